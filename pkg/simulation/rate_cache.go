package simulation

import "github.com/igoengine/ishi/pkg/board"

// RateCache incrementally maintains candidate move rates for one color to
// move across a sequence of played moves, re-rating only the points a move
// could have touched (spec.md 4.3, "incremental policy invalidation")
// instead of rescanning the whole board and recomputing Rate from scratch
// after every playout move. Every component of Rate -- the 3x3/MDk pattern
// lookups, the tactical-feature classification, the move-distance gamma --
// is local to a small radius around the point that changed (see
// maxShellRadius for the pattern ring and maxDistanceGammaReach for the gamma
// table's reach), so any
// point outside that radius is provably unaffected by the move and its
// cached rate can be reused unchanged.
type RateCache struct {
	weights *Weights
	turn    board.Color
	prev    board.Point
	rates   map[board.Point]float64
}

// NewRateCache builds a cache from scratch, rating every legal non-eye-filling
// candidate move for turn against b's current position, with the distance
// gamma anchored to the board's actual latest move.
func NewRateCache(b *board.Board, turn board.Color, weights *Weights) *RateCache {
	rc := &RateCache{weights: weights, turn: turn, prev: board.Pass}
	if mv, _, ok := b.LastMove(); ok {
		rc.prev = mv
	}
	rc.rebuild(b)
	return rc
}

func (rc *RateCache) rebuild(b *board.Board) {
	rc.rates = map[board.Point]float64{}
	layout := b.Layout()
	for y := 0; y < layout.Size; y++ {
		for x := 0; x < layout.Size; x++ {
			rc.refresh(b, layout.PointAt(x, y))
		}
	}
}

func (rc *RateCache) refresh(b *board.Board, p board.Point) {
	if !b.IsLegalNotEye(p, rc.turn) {
		delete(rc.rates, p)
		return
	}
	rc.rates[p] = rc.weights.Rate(b, rc.prev, p, rc.turn)
}

// Advance updates the cache for the opponent's turn after move has been
// played on b (b must already reflect the move). It re-rates (a) the pattern
// ring around move and every point its capture removed, and (b) the
// distance-gamma diamonds around both the new move and the move before it --
// a candidate near the old previous move keeps a stale gamma otherwise, since
// its bonus was anchored to a move that is no longer the latest. Together
// these cover every point whose rate the move can have changed. A pass in
// either role (the move itself, or the previous move the old gammas were
// anchored to) shifts the gamma baseline board-wide instead, and Advance
// falls back to a full rebuild.
func (rc *RateCache) Advance(b *board.Board, move board.Point) {
	oldPrev := rc.prev
	rc.turn = rc.turn.Opponent()
	rc.prev = move
	if move == board.Pass || oldPrev == board.Pass {
		// A pass in either role shifts the gamma baseline (1.0 everywhere vs
		// the flat far-distance default) for every candidate at once; there is
		// no local ring to bound that, so rebuild.
		rc.rebuild(b)
		return
	}
	layout := b.Layout()
	dirty := NewDirtySet()
	dirty.Add(layout, move)
	for _, cap := range b.LastCaptured() {
		dirty.Add(layout, cap)
	}
	dirty.AddManhattan(layout, move, maxDistanceGammaReach)
	if oldPrev != board.Pass {
		dirty.AddManhattan(layout, oldPrev, maxDistanceGammaReach)
	}
	// Liberty counts changed for every string touching the move or a captured
	// point, and tactical features read those counts at candidates adjacent to
	// ANY stone of such a string -- which can sit far outside the pattern
	// ring. Mark each such stone's immediate neighborhood too.
	rc.addTouchedStrings(b, dirty, move)
	for _, cap := range b.LastCaptured() {
		rc.addTouchedStrings(b, dirty, cap)
	}
	for _, p := range dirty.Points() {
		rc.refresh(b, p)
	}
}

func (rc *RateCache) addTouchedStrings(b *board.Board, dirty *DirtySet, around board.Point) {
	layout := b.Layout()
	for _, nb := range layout.Neighbors4(around) {
		c := b.ColorAt(nb)
		if c != board.Black && c != board.White {
			continue
		}
		for _, stone := range b.StringStones(nb) {
			dirty.AddManhattan(layout, stone, 1)
		}
	}
}

// Zero drops a candidate whose cached rate turned out stale (PutStone refused
// the point as occupied or as the ko point), so the next sample cannot
// draw it again this turn (spec.md 4.3, "Weighted sampling").
func (rc *RateCache) Zero(p board.Point) {
	delete(rc.rates, p)
}

// Candidates returns the cache's currently rated points as sampling
// candidates, ready for SampleWeighted.
func (rc *RateCache) Candidates() []Candidate {
	cands := make([]Candidate, 0, len(rc.rates))
	for p, r := range rc.rates {
		cands = append(cands, Candidate{Move: p, Rate: r})
	}
	return cands
}
