package uct

import (
	"context"
	"testing"
	"time"

	"github.com/igoengine/ishi/pkg/board"
	"github.com/igoengine/ishi/pkg/mcts"
	"github.com/igoengine/ishi/pkg/simulation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDriver(t *testing.T, size int) (*Driver, *board.Board) {
	t.Helper()
	b := board.NewBoard(size, 6.5, true, 1)
	weights := simulation.NewWeights()
	root := mcts.NewNode(board.Black, b.Hash(), b.Ply(), b.Layout().NumPoints())
	return NewDriver(b, weights, weights, root, nil), b
}

func TestDriverSearchReturnsAMove(t *testing.T) {
	d, _ := newTestDriver(t, 9)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result := d.Search(ctx, Options{Threads: 2, TimeControl: TimeControl{Remaining: 50 * time.Millisecond}})
	assert.NotZero(t, result.Playouts, "expected at least one playout to complete")
}

func TestDriverSearchPopulatesMoveRankingAndOwnership(t *testing.T) {
	d, b := newTestDriver(t, 9)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	result := d.Search(ctx, Options{Threads: 2, TimeControl: TimeControl{Remaining: 50 * time.Millisecond}})

	require.NotEmpty(t, result.Moves, "expected at least one ranked root child")
	for i := 1; i < len(result.Moves); i++ {
		assert.LessOrEqual(t, result.Moves[i].Visits, result.Moves[i-1].Visits,
			"Moves must rank by visit count descending")
	}
	assert.Len(t, result.Ownership, b.Layout().Size*b.Layout().Size)
	assert.NotNil(t, d.Root())
}

func TestSearchPlayoutBudgetHonored(t *testing.T) {
	d, _ := newTestDriver(t, 9)

	result := d.Search(context.Background(), Options{Threads: 2, Playouts: 64})
	// The budget may be exceeded by at most threads-1 in-flight playouts, and
	// the one-time extension may add 50% once; never more.
	assert.GreaterOrEqual(t, result.Playouts, int64(64))
	assert.LessOrEqual(t, result.Playouts, int64(64+32+2))
}

func TestExpandThresholdByBoardSize(t *testing.T) {
	assert.EqualValues(t, 20, expandThreshold(9))
	assert.EqualValues(t, 25, expandThreshold(13))
	assert.EqualValues(t, 40, expandThreshold(19))
}

func TestFirstMoveCandidatesAreOnePerSymmetryOrbit(t *testing.T) {
	layout := board.NewLayout(9)
	count := 0
	for y := 0; y < layout.Size; y++ {
		for x := 0; x < layout.Size; x++ {
			if isFirstMoveCandidate(layout, x, y) {
				count++
			}
		}
	}
	// A 9x9 board has 15 symmetry orbits: the 1+2+3+4+5 triangle of
	// representatives at or below the diagonal in the lower-left quadrant.
	assert.Equal(t, 15, count)

	// The center is always its own orbit's representative; a reflected corner
	// never is.
	assert.True(t, isFirstMoveCandidate(layout, 4, 4))
	assert.True(t, isFirstMoveCandidate(layout, 0, 0))
	assert.False(t, isFirstMoveCandidate(layout, 8, 8))
}

func TestRootCandidatesRestrictedOnOpeningMove(t *testing.T) {
	d, _ := newTestDriver(t, 9)
	d.prepareRoot()
	ranked, _ := d.Root().Candidates()
	assert.LessOrEqual(t, len(ranked), 15, "opening move considers one candidate per symmetry orbit")
	assert.NotEmpty(t, ranked)
}

func TestBudgetScalesWithBoardSize(t *testing.T) {
	tc := TimeControl{Remaining: 80 * time.Second}
	soft19, _ := tc.Budget(19)
	soft9, _ := tc.Budget(9)
	assert.Greater(t, soft9, soft19, "a 9x9 game gets a larger per-move slice of the same clock")
}

func TestShouldInterruptRequiresMinimumElapsed(t *testing.T) {
	root := mcts.NewNode(board.Black, 0, 0, 81)
	assert.False(t, ShouldInterrupt(root, 10, 100, 0.01))
}
