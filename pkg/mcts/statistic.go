package mcts

import "github.com/igoengine/ishi/pkg/board"

// Statistic summarizes a node's per-point ownership and criticality after
// search, used by the engine's FinalStatusList and by the periodic candidate
// re-scoring pass (spec.md 4.4, "Ownership / criticality").
type Statistic struct {
	BlackOwnership float64 // fraction of playouts ending with this point Black-owned
	Criticality    float64 // correlation between owning this point and winning
}

// Criticality returns, per point, how strongly occupying the point at the end
// of a playout correlates with winning it, from the root mover's perspective:
//
//	crit = winnerOwn/N - (own_me/N * winrate + own_opp/N * (1 - winrate))
//
// clipped below at zero. A high value marks a point whose fate still swings
// the game: the winner holds it far more often than either side's raw
// occupancy would predict (spec.md 4.4).
func Criticality(root *Node) []float64 {
	out := make([]float64, len(root.winnerOwn))
	n := root.visits.Load()
	if n == 0 {
		return out
	}
	wr := root.WinRate()
	me, opp := root.blackOwn, root.whiteOwn
	if root.Turn == board.White {
		me, opp = opp, me
	}
	for p := range out {
		winner := float64(root.winnerOwn[p].Load()) / float64(n)
		mine := float64(me[p].Load()) / float64(n)
		theirs := float64(opp[p].Load()) / float64(n)
		c := winner - (mine*wr + theirs*(1-wr))
		if c < 0 {
			c = 0
		}
		out[p] = c
	}
	return out
}

// Summarize collects a Statistic per point for the given node.
func Summarize(n *Node) []Statistic {
	out := make([]Statistic, len(n.blackOwn))
	crit := Criticality(n)
	v := n.visits.Load()
	for p := range out {
		if v == 0 {
			out[p] = Statistic{BlackOwnership: 0.5}
			continue
		}
		out[p] = Statistic{
			BlackOwnership: float64(n.blackOwn[p].Load()) / float64(v),
			Criticality:    crit[p],
		}
	}
	return out
}

// FinalOwner classifies a point as settled territory once ownership has
// converged past the given confidence threshold, else board.Empty (dame or
// still contested); used by the engine's FinalStatusList.
func FinalOwner(stat Statistic, threshold float64) board.Color {
	switch {
	case stat.BlackOwnership >= threshold:
		return board.Black
	case stat.BlackOwnership <= 1-threshold:
		return board.White
	default:
		return board.Empty
	}
}
