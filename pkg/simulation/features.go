// Package simulation implements the playout policy: a factorization-machine
// move-rating model blending 3x3/MDk pattern context, tactical features, and
// move-distance, plus the depth-limited ladder reader the tactical features
// consult (spec.md 4.2-4.3, "Move Generation & Rating").
package simulation

import "github.com/igoengine/ishi/pkg/board"

// Feature is a tactical move feature recognized during playouts, each
// contributing its own learned weight to a candidate move's rate (spec.md
// 4.2, "Tactical features").
type Feature int

const (
	FeatureNone Feature = iota
	FeatureCapture
	FeatureSaveExtension // extends a friendly string currently in atari
	FeatureAtari         // puts an opponent string in atari
	FeatureExtension     // extends a friendly string that has two liberties, one of them the move
	FeatureDameFill
	FeatureThrowIn // fills a point inside a one-point eye shape of the opponent (nakade setup)
	numFeatures
)

// Classify inspects the effect of playing c at p and returns the single
// highest-priority tactical feature that applies, in the priority order the
// teacher's rating table favors: a capture always wins over a mere atari,
// which wins over a plain extension.
func Classify(b *board.Board, p board.Point, c board.Color) Feature {
	if p == board.Pass {
		return FeatureNone
	}
	if capturesAny(b, p, c) {
		return FeatureCapture
	}
	if savesAtariString(b, p, c) {
		return FeatureSaveExtension
	}
	if putsOpponentInAtari(b, p, c) {
		return FeatureAtari
	}
	if extendsOwnAtariString(b, p, c) {
		return FeatureExtension
	}
	if isDameFill(b, p) {
		return FeatureDameFill
	}
	if isThrowIn(b, p, c) {
		return FeatureThrowIn
	}
	return FeatureNone
}

// capturesAny reports whether placing c at p would leave an adjacent enemy
// string with zero liberties.
func capturesAny(b *board.Board, p board.Point, c board.Color) bool {
	enemy := c.Opponent()
	for _, nb := range b.Layout().Neighbors4(p) {
		if b.ColorAt(nb) == enemy && b.LibertyCount(nb) == 1 {
			return true
		}
	}
	return false
}

// savesAtariString reports whether p is the sole remaining liberty of a
// friendly string already in atari, so playing there extends it to safety
// (or at least buys another liberty count).
func savesAtariString(b *board.Board, p board.Point, c board.Color) bool {
	for _, nb := range b.Layout().Neighbors4(p) {
		if b.ColorAt(nb) == c && b.LibertyCount(nb) == 1 {
			return true
		}
	}
	return false
}

// putsOpponentInAtari reports whether placing c at p would leave an adjacent
// enemy string with exactly one remaining liberty (not zero -- that's capture).
func putsOpponentInAtari(b *board.Board, p board.Point, c board.Color) bool {
	enemy := c.Opponent()
	for _, nb := range b.Layout().Neighbors4(p) {
		if b.ColorAt(nb) == enemy && b.LibertyCount(nb) == 2 {
			return true
		}
	}
	return false
}

// extendsOwnAtariString reports whether a friendly neighbor string currently
// has exactly two liberties (one of which is p), i.e. this move is a
// self-extension rather than a true liberty-saving escape.
func extendsOwnAtariString(b *board.Board, p board.Point, c board.Color) bool {
	for _, nb := range b.Layout().Neighbors4(p) {
		if b.ColorAt(nb) == c && b.LibertyCount(nb) == 2 {
			return true
		}
	}
	return false
}

// isDameFill reports whether p sits on a point with no empty orthogonal
// neighbor other than itself and borders both colors -- a point of no value
// to either side, filled only to avoid leaving the playout move generator
// without candidates.
func isDameFill(b *board.Board, p board.Point) bool {
	sawBlack, sawWhite := false, false
	for _, nb := range b.Layout().Neighbors4(p) {
		switch b.ColorAt(nb) {
		case board.Empty:
			return false
		case board.Black:
			sawBlack = true
		case board.White:
			sawWhite = true
		}
	}
	return sawBlack && sawWhite
}

// isThrowIn reports whether p sits inside a single-point eye shape belonging
// to the opponent -- filling it sacrifices a stone but sets up a nakade
// follow-up against the opponent's eye space.
func isThrowIn(b *board.Board, p board.Point, c board.Color) bool {
	code := b.Shape3x3(p)
	return board.IsEye(code) && board.EyeOwner(code) == c.Opponent()
}
