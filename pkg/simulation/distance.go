package simulation

import "github.com/igoengine/ishi/pkg/board"

// defaultDistanceTable is the built-in multiplier per Manhattan distance from
// the previous move, used until sim_params/PreviousDistance is loaded over it;
// distances beyond the table use defaultDistanceGamma (spec.md 4.3,
// "move-distance bonus"). Index 0 (distance zero, i.e. the same point --
// impossible for a legal move) is unused filler kept for direct
// index-by-distance access.
var defaultDistanceTable = []float64{
	1.0, // unused
	1.00,
	0.85,
	0.70,
	0.60,
	0.52,
	0.46,
	0.42,
	0.39,
	0.37,
}

const defaultDistanceGamma = 0.35

// maxDistanceGammaReach is the largest Manhattan distance at which the gamma
// still varies with distance; beyond it every candidate gets the flat default,
// so a move can only change the gamma of points within this reach of it. The
// incremental rate cache relies on this bound (see RateCache.Advance).
const maxDistanceGammaReach = 9

// DistanceGamma returns the move-distance multiplier for a candidate move p
// relative to the previous move prev, from the loaded PreviousDistance table
// if present, else the built-in default. Pass or a missing previous move
// (start of game) contributes no distance bonus (multiplier 1).
func (w *Weights) DistanceGamma(layout board.Layout, prev, p board.Point) float64 {
	if prev == board.Pass || prev == 0 || p == board.Pass {
		return 1.0
	}
	table := w.Distance
	if table == nil {
		table = defaultDistanceTable
	}
	d := layout.ManhattanDistance(prev, p)
	if d < len(table) {
		return table[d]
	}
	return defaultDistanceGamma
}

// DistanceGamma is the package-level variant over the default table, for
// callers without a Weights in hand.
func DistanceGamma(layout board.Layout, prev, p board.Point) float64 {
	if prev == board.Pass || prev == 0 || p == board.Pass {
		return 1.0
	}
	d := layout.ManhattanDistance(prev, p)
	if d < len(defaultDistanceTable) {
		return defaultDistanceTable[d]
	}
	return defaultDistanceGamma
}
