package uct

import "github.com/igoengine/ishi/pkg/mcts"

// minElapsedFraction is how much of the search budget must have passed before
// the early-stop check runs at all (spec.md 4.5, "Interrupt condition"):
// checking too early risks quitting before progressive widening has even
// exposed the eventual best move.
const minElapsedFraction = 0.10

// ShouldInterrupt reports whether the search can stop early: the most-visited
// root child already leads the second-most-visited by more than the number of
// playouts remaining in the budget, so no further search can change the
// decision. Only worker 0 evaluates this (the caller is expected to gate on
// that), matching the teacher's single Handle-owns-the-stop-decision pattern
// generalized from one watchdog timer to a per-iteration check.
func ShouldInterrupt(root *mcts.Node, playoutsCompleted, playoutsBudgeted int64, elapsedFraction float64) bool {
	if elapsedFraction < minElapsedFraction {
		return false
	}
	remaining := playoutsBudgeted - playoutsCompleted
	if remaining <= 0 {
		return true
	}

	children := root.Children()
	if len(children) < 2 {
		return false
	}

	var top, second int64
	for _, c := range children {
		v := c.Visits()
		switch {
		case v > top:
			second = top
			top = v
		case v > second:
			second = v
		}
	}
	return top-second > remaining
}
