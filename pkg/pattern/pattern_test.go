package pattern

import (
	"testing"

	"github.com/igoengine/ishi/pkg/board"
)

func centerEyeCode(owner board.Color) Code3x3 {
	var nbr [8]board.Color
	for i := range nbr {
		nbr[i] = owner
	}
	return Encode3x3(nbr)
}

func TestClassifyEyeRealEye(t *testing.T) {
	code := centerEyeCode(board.Black)
	if !IsEye(code) {
		t.Fatalf("a point fully surrounded by one color on all 8 neighbors should be a real eye")
	}
	if EyeOwner(code) != board.Black {
		t.Fatalf("expected eye owner Black, got %v", EyeOwner(code))
	}
	if IsFalseEye(code) {
		t.Fatalf("a fully-owned eye shape should not be false")
	}
}

func TestClassifyEyeTwoDiagonalIntrusionsIsFalse(t *testing.T) {
	nbr := [8]board.Color{board.Black, board.Black, board.Black, board.Black, board.White, board.White, board.Black, board.Black}
	code := Encode3x3(nbr)
	if IsEye(code) {
		t.Fatalf("two enemy diagonal stones should break a one-point eye")
	}
	if !IsFalseEye(code) {
		t.Fatalf("expected the broken eye shape to be classified false")
	}
}

func TestClassifyEyeMixedOrthogonalIsNotEye(t *testing.T) {
	nbr := [8]board.Color{board.Black, board.White, board.Black, board.Black, board.Empty, board.Empty, board.Empty, board.Empty}
	code := Encode3x3(nbr)
	if IsEye(code) {
		t.Fatalf("disagreeing orthogonal neighbors cannot form an eye")
	}
}

func TestSymmetriesExpandsToSixteenVariants(t *testing.T) {
	code := centerEyeCode(board.Black)
	variants := Symmetries(code)
	if len(variants) != 16 {
		t.Fatalf("expected 16 symmetric variants, got %d", len(variants))
	}
	seenWhite := false
	for _, v := range variants {
		if EyeOwner(v) == board.White {
			seenWhite = true
		}
	}
	if !seenWhite {
		t.Fatalf("expected the color-swapped half of the symmetry set to flip ownership to White")
	}
}

func TestRingOffsetsAllAtExactManhattanDistance(t *testing.T) {
	for _, k := range []int{3, 4, 5} {
		offs := ringOffsets(k)
		if len(offs) != 4*k {
			t.Fatalf("ring at distance %d: expected %d points, got %d", k, 4*k, len(offs))
		}
		for _, off := range offs {
			if d := abs(off[0]) + abs(off[1]); d != k {
				t.Fatalf("ring at distance %d contains offset %v at distance %d", k, off, d)
			}
		}
	}
}

func TestShellsHaveExpectedWidth(t *testing.T) {
	if len(Shells[0].Offsets) != 12 {
		t.Fatalf("MD2 shell: expected 12 offsets, got %d", len(Shells[0].Offsets))
	}
	if len(Shells[1].Offsets) != 12 {
		t.Fatalf("MD3 shell: expected 12 offsets, got %d", len(Shells[1].Offsets))
	}
	if len(Shells[2].Offsets) != 16 {
		t.Fatalf("MD4 shell: expected 16 offsets, got %d", len(Shells[2].Offsets))
	}
	if len(Shells[3].Offsets) != 20 {
		t.Fatalf("MD5 shell: expected 20 offsets, got %d", len(Shells[3].Offsets))
	}
}

func TestEncodeShellReadsOffBoardAtEdge(t *testing.T) {
	layout := board.NewLayout(9)
	colorAt := board.NewBoard(9, 0, false, 1).ColorAt
	corner := layout.PointAt(0, 0)
	code := EncodeShell(Shells[3], layout, colorAt, corner)
	// MD5 reaches 5 points past the edge in every direction; this must not panic
	// (guard-ring read) and must produce a deterministic, reproducible code.
	again := EncodeShell(Shells[3], layout, colorAt, corner)
	if code != again {
		t.Fatalf("EncodeShell should be deterministic for the same board state")
	}
}
