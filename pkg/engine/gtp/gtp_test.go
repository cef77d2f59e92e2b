package gtp

import (
	"testing"

	"github.com/igoengine/ishi/pkg/board"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandicapPointsStandardPlacement(t *testing.T) {
	layout := board.NewLayout(19)

	pts, err := handicapPoints(layout, 2)
	require.NoError(t, err)
	assert.Equal(t, []board.Point{layout.PointAt(3, 3), layout.PointAt(15, 15)}, pts)

	pts, err = handicapPoints(layout, 5)
	require.NoError(t, err)
	require.Len(t, pts, 5)
	assert.Equal(t, layout.PointAt(9, 9), pts[4], "odd handicaps of five or more take the center")

	pts, err = handicapPoints(layout, 9)
	require.NoError(t, err)
	assert.Len(t, pts, 9)

	_, err = handicapPoints(layout, 1)
	assert.Error(t, err)
	_, err = handicapPoints(layout, 10)
	assert.Error(t, err)
}

func TestHandicapPointsSmallBoardUsesTighterStars(t *testing.T) {
	layout := board.NewLayout(9)
	pts, err := handicapPoints(layout, 4)
	require.NoError(t, err)
	assert.Contains(t, pts, layout.PointAt(2, 2), "9x9 stars sit on the third line")
	assert.Contains(t, pts, layout.PointAt(6, 6))
}

func TestEncodeOwnershipBase62(t *testing.T) {
	s := encodeOwnershipBase62([]float64{0, 0.5, 1})
	require.Len(t, s, 3)
	assert.Equal(t, byte('0'), s[0], "fully White-owned maps to the lowest digit")
	assert.Equal(t, byte('z'), s[2], "fully Black-owned maps to the highest digit")
}

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "B+3.5", formatScore(3.5))
	assert.Equal(t, "W+0.5", formatScore(-0.5))
	assert.Equal(t, "0", formatScore(0))
}

func TestParseColor(t *testing.T) {
	c, err := parseColor("B")
	require.NoError(t, err)
	assert.Equal(t, board.Black, c)
	c, err = parseColor("white")
	require.NoError(t, err)
	assert.Equal(t, board.White, c)
	_, err = parseColor("green")
	assert.Error(t, err)
}
