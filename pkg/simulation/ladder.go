package simulation

import "github.com/igoengine/ishi/pkg/board"

// maxLadderDepth bounds the ladder reader's recursion so it terminates even
// on pathological shapes; real ladders resolve in well under this many plies
// on any supported board size (spec.md 4.2, "Ladder search").
const maxLadderDepth = 80

// LadderStatus is the outcome of reading out a string's escape attempt.
type LadderStatus int

const (
	LadderUnknown LadderStatus = iota
	LadderCaptured             // the chased string is captured regardless of how it runs
	LadderEscapes              // the chased string reaches safety (a third liberty it can't be chased from)
)

// IsCaptured searches whether the string at p (currently in atari or about to
// be put there) is caught in a ladder: the attacker keeps reducing it to one
// liberty and the defender has no escape. Modeled on the teacher's
// push/search/pop alpha-beta recursion (pkg/search/alphabeta.go), generalized
// from a fixed eval-at-leaf to a boolean capture/escape readout, and using
// board.Board's own TakeBack instead of a parallel board flavor: ladder probes
// are infrequent enough (one per candidate atari move) that the cost of
// Board's general liberty-rebuild undo is not worth a second, duplicated
// board representation.
func IsCaptured(b *board.Board, p board.Point, attacker board.Color) bool {
	defender := attacker.Opponent()
	if b.ColorAt(p) != defender {
		return false
	}
	return readLadder(b, p, attacker, defender, maxLadderDepth) == LadderCaptured
}

func readLadder(b *board.Board, p board.Point, attacker, defender board.Color, depth int) LadderStatus {
	libs := b.LibertyCount(p)
	switch {
	case libs == 0:
		return LadderCaptured
	case libs >= 3:
		return LadderEscapes
	case depth <= 0:
		return LadderUnknown
	}

	if libs == 1 {
		// Already in atari: the attacker plays the last liberty. If that's
		// illegal (suicide, e.g. a false atari next to the attacker's own dead
		// shape) the string escapes by default.
		lastLib := soleLiberty(b, p)
		if !b.IsLegal(lastLib, attacker) {
			return LadderEscapes
		}
		if _, err := b.PutStone(lastLib, attacker); err != nil {
			return LadderEscapes
		}
		status := LadderCaptured
		if b.ColorAt(p) == defender && b.LibertyCount(p) > 0 {
			status = LadderUnknown
		}
		b.TakeBack()
		return status
	}

	// libs == 2: the defender tries each liberty as an escape; the ladder is
	// lost for the defender only if every escape still gets recaptured.
	for _, lib := range twoLiberties(b, p) {
		if !b.IsLegal(lib, defender) {
			continue
		}
		if _, err := b.PutStone(lib, defender); err != nil {
			continue
		}
		sub := readLadder(b, p, attacker, defender, depth-1)
		b.TakeBack()
		if sub != LadderCaptured {
			return LadderEscapes
		}
	}
	return LadderCaptured
}

func soleLiberty(b *board.Board, p board.Point) board.Point {
	for _, stone := range b.StringStones(p) {
		for _, nb := range b.Layout().Neighbors4(stone) {
			if b.ColorAt(nb) == board.Empty {
				return nb
			}
		}
	}
	return board.Pass
}

func twoLiberties(b *board.Board, p board.Point) []board.Point {
	var out []board.Point
	seen := map[board.Point]bool{}
	for _, stone := range b.StringStones(p) {
		for _, nb := range b.Layout().Neighbors4(stone) {
			if b.ColorAt(nb) == board.Empty && !seen[nb] {
				seen[nb] = true
				out = append(out, nb)
			}
		}
	}
	return out
}
