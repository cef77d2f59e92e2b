package simulation

import (
	"testing"

	"github.com/igoengine/ishi/pkg/board"
)

func newTestBoard(t *testing.T) *board.Board {
	t.Helper()
	return board.NewBoard(9, 6.5, true, 1)
}

func TestClassifyCapture(t *testing.T) {
	b := newTestBoard(t)
	center := b.Layout().PointAt(4, 4)
	must(t, b, center, board.White)
	must(t, b, b.Layout().PointAt(3, 4), board.Black)
	must(t, b, b.Layout().PointAt(5, 4), board.Black)
	must(t, b, b.Layout().PointAt(4, 3), board.Black)

	lastLib := b.Layout().PointAt(4, 5)
	if f := Classify(b, lastLib, board.Black); f != FeatureCapture {
		t.Fatalf("expected FeatureCapture, got %v", f)
	}
}

func TestClassifyAtari(t *testing.T) {
	b := newTestBoard(t)
	center := b.Layout().PointAt(4, 4)
	must(t, b, center, board.White)
	must(t, b, b.Layout().PointAt(3, 4), board.Black)
	must(t, b, b.Layout().PointAt(5, 4), board.Black)

	if f := Classify(b, b.Layout().PointAt(4, 3), board.Black); f != FeatureAtari {
		t.Fatalf("expected FeatureAtari, got %v", f)
	}
}

func TestDistanceGammaDecaysWithDistance(t *testing.T) {
	layout := board.NewLayout(9)
	prev := layout.PointAt(4, 4)
	near := layout.PointAt(5, 4)
	far := layout.PointAt(8, 8)

	if DistanceGamma(layout, prev, near) <= DistanceGamma(layout, prev, far) {
		t.Fatalf("expected a closer move to have a higher distance gamma")
	}
}

func TestLadderCapturesCornerString(t *testing.T) {
	b := newTestBoard(t)
	// White string in a corner ladder shape, chased by black along the edge.
	must(t, b, b.Layout().PointAt(0, 0), board.White)
	must(t, b, b.Layout().PointAt(1, 1), board.Black)
	must(t, b, b.Layout().PointAt(0, 1), board.Black)

	if !IsCaptured(b, b.Layout().PointAt(0, 0), board.Black) {
		t.Fatalf("expected the single cornered white stone to be laddered")
	}
}

func TestSampleWeightedRespectsWeights(t *testing.T) {
	cands := []Candidate{
		{Move: board.Point(1), Rate: 0},
		{Move: board.Point(2), Rate: 1},
	}
	if got := SampleWeighted(cands, 0.99); got != board.Point(2) {
		t.Fatalf("expected the only positively-weighted candidate to be drawn, got %v", got)
	}
}

func TestWeightsRateUnseenPatternFallsBackToDistanceOnly(t *testing.T) {
	b := newTestBoard(t)
	w := NewWeights()
	rate := w.Rate(b, board.Pass, b.Layout().PointAt(4, 4), board.Black)
	if rate <= 0 {
		t.Fatalf("expected a positive default rate, got %v", rate)
	}
}

func TestSelfAtariVetoZeroesLargeGroups(t *testing.T) {
	b := newTestBoard(t)
	// Black string {(0,0),(1,0),(2,0)} reduced to the single liberty (0,1) by
	// the white stones; filling it leaves a four-stone L, which is not a nakade
	// shape, in self-atari.
	must(t, b, b.Layout().PointAt(0, 0), board.Black)
	must(t, b, b.Layout().PointAt(1, 0), board.Black)
	must(t, b, b.Layout().PointAt(2, 0), board.Black)
	must(t, b, b.Layout().PointAt(3, 0), board.White)
	must(t, b, b.Layout().PointAt(1, 1), board.White)
	must(t, b, b.Layout().PointAt(2, 1), board.White)

	w := NewWeights()
	fill := b.Layout().PointAt(0, 1)
	if rate := w.Rate(b, board.Pass, fill, board.Black); rate != 0 {
		t.Fatalf("expected a size-4 self-atari to be vetoed to rate 0, got %v", rate)
	}
	// An ordinary move elsewhere stays rated.
	if rate := w.Rate(b, board.Pass, b.Layout().PointAt(8, 8), board.Black); rate <= 0 {
		t.Fatalf("expected an ordinary move to keep a positive rate, got %v", rate)
	}
}

func TestRateCacheAdvanceMatchesFreshRates(t *testing.T) {
	b := newTestBoard(t)
	w := NewWeights()
	must(t, b, b.Layout().PointAt(4, 4), board.Black)
	must(t, b, b.Layout().PointAt(4, 5), board.White)

	cache := NewRateCache(b, board.Black, w)
	move := b.Layout().PointAt(3, 5)
	must(t, b, move, board.Black)
	cache.Advance(b, move)

	// Every cached rate must equal a from-scratch Rate against the new
	// position with the new previous move -- including points far from the
	// move, whose distance gamma changed when the "previous move" did.
	layout := b.Layout()
	for y := 0; y < layout.Size; y++ {
		for x := 0; x < layout.Size; x++ {
			p := layout.PointAt(x, y)
			got, cached := cache.rates[p]
			if !b.IsLegalNotEye(p, board.White) {
				if cached {
					t.Fatalf("point %v should not be cached: not playable", layout.GTPVertex(p))
				}
				continue
			}
			want := w.Rate(b, move, p, board.White)
			if !cached || got != want {
				t.Fatalf("point %v: cached rate %v (present=%v), want %v", layout.GTPVertex(p), got, cached, want)
			}
		}
	}
}

func must(t *testing.T, b *board.Board, p board.Point, c board.Color) {
	t.Helper()
	if _, err := b.PutStone(p, c); err != nil {
		t.Fatalf("PutStone(%v,%v): %v", p, c, err)
	}
}
