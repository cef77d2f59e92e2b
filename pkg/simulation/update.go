package simulation

import "github.com/igoengine/ishi/pkg/board"

// maxShellRadius is the largest shell offset magnitude among MD2..MD5, so a
// single stone change can only affect the rating of points within this many
// steps of it (spec.md 4.3, "incremental policy invalidation").
const maxShellRadius = 5

// DirtyPoints returns every point whose 3x3/MDk context could have changed as
// a result of a stone appearing or disappearing at changed, so the policy only
// needs to re-rate those rather than the whole board after each move. Ring
// points are deduped across an entire move's set of changed points (a capture
// can touch dozens) by the caller folding the results into a set.
func DirtyPoints(layout board.Layout, changed board.Point) []board.Point {
	out := make([]board.Point, 0, (2*maxShellRadius+1)*(2*maxShellRadius+1))
	x0, y0 := layout.XY(changed)
	for dy := -maxShellRadius; dy <= maxShellRadius; dy++ {
		for dx := -maxShellRadius; dx <= maxShellRadius; dx++ {
			p := layout.PointAt(x0+dx, y0+dy)
			if layout.OnBoard(p) {
				out = append(out, p)
			}
		}
	}
	return out
}

// DirtySet accumulates the union of DirtyPoints across every point a single
// move touched (the played stone plus every captured stone), so the caller
// re-rates each affected point exactly once per move.
type DirtySet struct {
	seen map[board.Point]bool
	pts  []board.Point
}

// NewDirtySet returns an empty accumulator.
func NewDirtySet() *DirtySet {
	return &DirtySet{seen: map[board.Point]bool{}}
}

// Add folds in every point DirtyPoints(layout, changed) returns.
func (d *DirtySet) Add(layout board.Layout, changed board.Point) {
	for _, p := range DirtyPoints(layout, changed) {
		if !d.seen[p] {
			d.seen[p] = true
			d.pts = append(d.pts, p)
		}
	}
}

// AddManhattan folds in every on-board point within Manhattan distance maxD
// of center. Used for distance-gamma invalidation, whose reach is a diamond
// rather than the square pattern ring.
func (d *DirtySet) AddManhattan(layout board.Layout, center board.Point, maxD int) {
	x0, y0 := layout.XY(center)
	for dy := -maxD; dy <= maxD; dy++ {
		rem := maxD - abs(dy)
		for dx := -rem; dx <= rem; dx++ {
			p := layout.PointAt(x0+dx, y0+dy)
			if !layout.OnBoard(p) || d.seen[p] {
				continue
			}
			d.seen[p] = true
			d.pts = append(d.pts, p)
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Points returns the accumulated, deduplicated set of affected points.
func (d *DirtySet) Points() []board.Point {
	return d.pts
}
