package simulation

import (
	"math"
	"sort"

	"github.com/igoengine/ishi/pkg/board"
	"github.com/igoengine/ishi/pkg/pattern"
	"gonum.org/v1/gonum/floats"
)

const latentDim = 5

// featureVector is one learned factorization-machine feature: a scalar weight
// plus a latent vector whose pairwise dot products with other active
// features' vectors model second-order interactions (spec.md 6,
// "factorization-machines model"). A zero-value featureVector (weight 0,
// zero vector) contributes nothing, so an unseen pattern code degrades
// gracefully to "no opinion" rather than needing a present/absent flag.
type featureVector struct {
	weight float64
	latent [latentDim]float64
}

// largeTable pairs the canonical-hash index for one MDk shell family with its
// feature vectors, stored densely in insertion order (spec.md 4.2,
// "Large-pattern lookup").
type largeTable struct {
	index *pattern.Index
	vecs  []featureVector
}

// defaultLargeCapacity sizes a large-pattern index before the first insert;
// trained pattern files run to a few hundred thousand entries.
const defaultLargeCapacity = 1 << 16

// Weights holds every learned featureVector the policy consults: one keyed by
// 3x3 pattern code, one keyed by raw MD2 shell code (encoded from the board on
// each lookup, looked up directly), one canonical-hash index per MD3/4/5
// shell family, one per tactical Feature, plus the pass prior, the nakade
// vital-point bonus, and the move-distance gamma table. Loaded from parameter
// files by pkg/params.
type Weights struct {
	Pattern3x3 map[pattern.Code3x3]featureVector
	ShellMD2   map[uint64]featureVector
	large      [3]largeTable // MD3..MD5, keyed by pattern.CanonicalHash
	Tactical   [numFeatures]featureVector
	Nakade     featureVector // bonus for playing a dead shape's vital point
	Pass       featureVector // learned pass prior (uct_params/Pass)
	Bias       featureVector // global bias term (uct_params/WeightZero)
	Distance   []float64     // gamma per Manhattan distance from the previous move; nil == built-in default

	// Prior-only feature families (uct_params): board-position class keyed by
	// distance from the nearest edge, and Manhattan distance from each of the
	// two preceding moves.
	PosID    map[int]featureVector
	MoveDist [2]map[int]featureVector
}

// NewWeights returns a Weights with every table allocated but empty (every
// lookup falls back to the zero featureVector until params are loaded).
func NewWeights() *Weights {
	w := &Weights{
		Pattern3x3: map[pattern.Code3x3]featureVector{},
		ShellMD2:   map[uint64]featureVector{},
		PosID:      map[int]featureVector{},
	}
	for i := range w.MoveDist {
		w.MoveDist[i] = map[int]featureVector{}
	}
	for i := range w.large {
		w.large[i] = largeTable{index: pattern.NewIndex(defaultLargeCapacity)}
	}
	return w
}

// SetBias installs the global bias term added to every candidate's score.
func (w *Weights) SetBias(weight float64, latent [latentDim]float64) {
	w.Bias = featureVector{weight: weight, latent: latent}
}

// SetPosID installs the learned weight for a board-position class (distance
// from the nearest edge, 1-based).
func (w *Weights) SetPosID(class int, weight float64, latent [latentDim]float64) {
	w.PosID[class] = featureVector{weight: weight, latent: latent}
}

// SetMoveDistance installs the learned weight for a candidate's Manhattan
// distance from the most recent move (which == 0) or the one before it
// (which == 1).
func (w *Weights) SetMoveDistance(which, distance int, weight float64, latent [latentDim]float64) {
	if which < 0 || which >= len(w.MoveDist) {
		return
	}
	w.MoveDist[which][distance] = featureVector{weight: weight, latent: latent}
}

// SetNakade installs the learned weight/latent vector for the nakade
// vital-point bonus.
func (w *Weights) SetNakade(weight float64, latent [latentDim]float64) {
	w.Nakade = featureVector{weight: weight, latent: latent}
}

// SetPass installs the learned pass prior.
func (w *Weights) SetPass(weight float64, latent [latentDim]float64) {
	w.Pass = featureVector{weight: weight, latent: latent}
}

// SetPattern3x3 installs the learned weight/latent vector for a 3x3 code.
func (w *Weights) SetPattern3x3(code pattern.Code3x3, weight float64, latent [latentDim]float64) {
	w.Pattern3x3[code] = featureVector{weight: weight, latent: latent}
}

// SetShell installs the learned weight/latent vector for an MDk shell entry,
// shellIdx in [0,3] for MD2..MD5. MD2 keys are raw shell codes; MD3..MD5 keys
// are the canonical 64-bit hashes the training tool emits
// (pattern.CanonicalHash of the concrete pattern).
func (w *Weights) SetShell(shellIdx int, key uint64, weight float64, latent [latentDim]float64) {
	if shellIdx == 0 {
		w.ShellMD2[key] = featureVector{weight: weight, latent: latent}
		return
	}
	lt := &w.large[shellIdx-1]
	id := lt.index.Insert(key)
	if id < 0 {
		return // index full; drop the entry rather than corrupt a probe chain
	}
	if id == len(lt.vecs) {
		lt.vecs = append(lt.vecs, featureVector{weight: weight, latent: latent})
	} else {
		lt.vecs[id] = featureVector{weight: weight, latent: latent}
	}
}

// SetTactical installs the learned weight/latent vector for a tactical feature.
func (w *Weights) SetTactical(f Feature, weight float64, latent [latentDim]float64) {
	w.Tactical[f] = featureVector{weight: weight, latent: latent}
}

// SetDistance installs the learned move-distance gamma for one Manhattan
// distance, growing the table as needed.
func (w *Weights) SetDistance(distance int, gamma float64) {
	if distance < 0 {
		return
	}
	for len(w.Distance) <= distance {
		w.Distance = append(w.Distance, defaultDistanceGamma)
	}
	w.Distance[distance] = gamma
}

// PassRate returns the pass candidate's sampling rate: exp of the learned
// pass weight, scaled well below a typical move's rate so playouts only pass
// once nothing playable remains. An unloaded table yields the bare floor.
func (w *Weights) PassRate() float64 {
	return math.Exp(w.Pass.weight) * 0.01
}

// Candidate is one legal move scored by the policy, ready for weighted sampling.
type Candidate struct {
	Move board.Point
	Rate float64
}

// Rate scores a single candidate move at p for color c, given the previous
// move (for the distance gamma) and the move's classified tactical feature.
// The factorization-machine score combines every active feature's own weight
// plus the pairwise latent-vector interactions between them, matching the
// standard FM scoring equation restricted to the handful of features active
// on any one move (spec.md 6):
//
//	score = sum_i w_i + sum_{i<j} <v_i, v_j>
//
// then exponentiated and scaled by the move-distance gamma so the result is a
// positive rate usable directly as a sampling weight.
func (w *Weights) Rate(b *board.Board, prev, p board.Point, c board.Color) float64 {
	return w.rate(b, prev, p, c, false)
}

// RatePrior scores a candidate for UCT child priors: the same formula as Rate
// but consulting the large MD3/4/5 pattern families as well, which the playout
// path skips for speed (spec.md 4.4, "rate all children ... using MD3/4/5 when
// available").
func (w *Weights) RatePrior(b *board.Board, prev, p board.Point, c board.Color) float64 {
	return w.rate(b, prev, p, c, true)
}

func (w *Weights) rate(b *board.Board, prev, p board.Point, c board.Color, large bool) float64 {
	if p == board.Pass {
		return w.PassRate()
	}
	if isSelfAtari(b, p, c) {
		return 0
	}

	active := w.activeFeatures(b, p, c, large)
	score := w.Bias.weight
	for _, fv := range active {
		score += fv.weight
	}
	for i := 0; i < len(active); i++ {
		for j := i + 1; j < len(active); j++ {
			score += floats.Dot(active[i].latent[:], active[j].latent[:])
		}
	}

	gamma := w.DistanceGamma(b.Layout(), prev, p)
	return math.Exp(score) * gamma
}

func (w *Weights) activeFeatures(b *board.Board, p board.Point, c board.Color, large bool) []featureVector {
	var out []featureVector

	code := b.Shape3x3(p)
	if fv, ok := w.Pattern3x3[code]; ok {
		out = append(out, fv)
	}
	if isNakadeVitalPoint(b, p, c) {
		out = append(out, w.Nakade)
	}

	md2 := pattern.EncodeShell(pattern.Shells[0], b.Layout(), b.ColorAt, p)
	if fv, ok := w.ShellMD2[md2]; ok {
		out = append(out, fv)
	}
	if large {
		for i := 1; i < len(pattern.Shells); i++ {
			lt := &w.large[i-1]
			if lt.index.Len() == 0 {
				continue
			}
			sc := pattern.EncodeShell(pattern.Shells[i], b.Layout(), b.ColorAt, p)
			if id, ok := lt.index.Lookup(pattern.CanonicalHash(i, sc)); ok {
				out = append(out, lt.vecs[id])
			}
		}
		layout := b.Layout()
		if fv, ok := w.PosID[posIDOf(layout, p)]; ok {
			out = append(out, fv)
		}
		for which := 0; which < 2; which++ {
			mv, _, ok := b.MoveBefore(which)
			if !ok || mv == board.Pass {
				continue
			}
			if fv, ok := w.MoveDist[which][layout.ManhattanDistance(mv, p)]; ok {
				out = append(out, fv)
			}
		}
	}

	if f := Classify(b, p, c); f != FeatureNone {
		out = append(out, w.Tactical[f])
	}

	return out
}

// posIDOf classifies a point by its distance from the nearest board edge,
// 1-based (edge line == 1), the board-position feature the prior model keys on.
func posIDOf(layout board.Layout, p board.Point) int {
	x, y := layout.XY(p)
	n := layout.Size - 1
	m := x
	for _, v := range [3]int{y, n - x, n - y} {
		if v < m {
			m = v
		}
	}
	return m + 1
}

// SampleWeighted draws one candidate proportionally to its Rate, using a
// prefix-sum table and binary search for O(log N) selection per draw (spec.md
// 4.3, "weighted sampling"). u must be a uniform random value in [0,1).
func SampleWeighted(candidates []Candidate, u float64) board.Point {
	if len(candidates) == 0 {
		return board.Pass
	}
	prefix := make([]float64, len(candidates))
	total := 0.0
	for i, c := range candidates {
		total += c.Rate
		prefix[i] = total
	}
	if total <= 0 {
		return candidates[0].Move
	}
	target := u * total
	idx := sort.Search(len(prefix), func(i int) bool { return prefix[i] >= target })
	if idx >= len(candidates) {
		idx = len(candidates) - 1
	}
	return candidates[idx].Move
}

// isSelfAtari reports whether playing c at p leaves the newly placed string
// with exactly one liberty without capturing anything -- almost always a
// wasted move, so the policy vetoes it to a zero rate. Three exceptions: a tiny
// throw-in (resulting string of one or two stones, often a snapback or ko
// threat) is kept, a resulting string of three to five stones whose shape is a
// nakade shape is kept, and a nakade vital point is kept, since throwing a
// stone into self-atari inside a dead shape is the entire point of the move
// (spec.md 4.3, "Self-atari veto").
func isSelfAtari(b *board.Board, p board.Point, c board.Color) bool {
	if isNakadeVitalPoint(b, p, c) {
		return false
	}
	captured, err := b.PutStone(p, c)
	if err != nil {
		return false
	}
	defer b.TakeBack()
	if captured > 0 {
		return false
	}
	if b.LibertyCount(p) != 1 {
		return false
	}
	size := b.StringSize(p)
	if size <= 2 {
		return false
	}
	if size <= 5 {
		if _, ok := pattern.FindNakadeVitalPoint(b.Layout(), b.StringStones(p)); ok {
			return false
		}
	}
	return true
}

// isNakadeVitalPoint reports whether p is the vital point of an opponent
// dead shape: an empty region of 3 to 6 points, enclosed only by c's
// opponent, whose point set matches one of the known nakade skeletons
// (spec.md 4.2, "Nakade table"; spec.md 8, scenario 4).
func isNakadeVitalPoint(b *board.Board, p board.Point, c board.Color) bool {
	region := enclosedEmptyRegion(b, p, c.Opponent())
	if region == nil {
		return false
	}
	vital, ok := pattern.FindNakadeVitalPoint(b.Layout(), region)
	return ok && vital == p
}

// enclosedEmptyRegion flood-fills the empty region containing p and returns
// its points if there are 3 to 6 of them and every bordering stone is owner's
// color, or nil if p isn't empty, the region is the wrong size, or it touches
// the other color.
func enclosedEmptyRegion(b *board.Board, p board.Point, owner board.Color) []board.Point {
	if b.ColorAt(p) != board.Empty {
		return nil
	}
	visited := map[board.Point]bool{p: true}
	queue := []board.Point{p}
	var region []board.Point
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		region = append(region, cur)
		if len(region) > 6 {
			return nil
		}
		for _, nb := range b.Layout().Neighbors4(cur) {
			switch nc := b.ColorAt(nb); nc {
			case board.Empty:
				if !visited[nb] {
					visited[nb] = true
					queue = append(queue, nb)
				}
			case owner, board.OffBoard:
			default:
				return nil
			}
		}
	}
	if len(region) < 3 {
		return nil
	}
	return region
}
