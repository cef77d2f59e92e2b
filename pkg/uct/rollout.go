package uct

import (
	"math/rand"

	"github.com/igoengine/ishi/pkg/board"
	"github.com/igoengine/ishi/pkg/simulation"
)

// maxMovesFactor bounds a game's total length as a multiple of the board
// area, so a pathological position (e.g. a long dame-filling sequence) cannot
// stall a worker forever; a simulation stops once the game ply reaches this
// cap, regardless of how deep in the game it started (spec.md 4.3,
// "Termination").
const maxMovesFactor = 3

// rollout plays out b to completion (two passes in a row, or the move cap)
// using the weighted playout policy, and returns the result from Black's
// perspective (1.0 Black win, 0.0 White win, 0.5 for a dead-even score) plus
// the final per-point owner for ownership/criticality accumulation.
func rollout(b *board.Board, turn board.Color, weights *simulation.Weights, rng *rand.Rand) (float64, []board.Color) {
	layout := b.Layout()
	maxPly := maxMovesFactor * layout.Size * layout.Size

	cache := simulation.NewRateCache(b, turn, weights)
	for b.Ply() < maxPly && !b.GameOver() {
		move := pickMove(cache, weights, rng)
		if move != board.Pass {
			if _, err := b.PutStone(move, turn); err != nil {
				// The cached rate was stale (PutStone refused the point as
				// occupied or as the ko point); drop it and re-sample rather
				// than waste a pass.
				cache.Zero(move)
				continue
			}
		} else {
			_, _ = b.PutStone(board.Pass, turn)
		}
		cache.Advance(b, move)
		turn = turn.Opponent()
	}

	score := b.Score() // positive favors Black
	result := 0.5
	switch {
	case score > 0:
		result = 1.0
	case score < 0:
		result = 0.0
	}

	owner := make([]board.Color, layout.NumPoints())
	for y := 0; y < layout.Size; y++ {
		for x := 0; x < layout.Size; x++ {
			p := layout.PointAt(x, y)
			owner[p] = finalOwnerAt(b, p)
		}
	}
	return result, owner
}

func finalOwnerAt(b *board.Board, p board.Point) board.Color {
	if c := b.ColorAt(p); c == board.Black || c == board.White {
		return c
	}
	return board.Empty
}

// pickMove samples one candidate move proportional to its cached rate,
// falling back to Pass if nothing is playable.
func pickMove(cache *simulation.RateCache, weights *simulation.Weights, rng *rand.Rand) board.Point {
	cands := cache.Candidates()
	cands = append(cands, simulation.Candidate{Move: board.Pass, Rate: weights.PassRate()})
	return simulation.SampleWeighted(cands, rng.Float64())
}
