package params

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/igoengine/ishi/pkg/simulation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeyedFactorRow(t *testing.T) {
	records, err := Parse(strings.NewReader("42 1.5 0.1 0.2 0.3 0.4 0.5\n"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.EqualValues(t, 42, records[0].Key)
	assert.Equal(t, 1.5, records[0].Weight)
	assert.Equal(t, 0.3, records[0].Latent[2])
}

func TestParseWeightPerLineUsesOrdinalKeys(t *testing.T) {
	records, err := Parse(strings.NewReader("1.0\n0.85\n0.70\n"))
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.EqualValues(t, 2, records[2].Key, "bare weights key by line order")
	assert.Equal(t, 0.70, records[2].Weight)
}

func TestParseIndexWeightPairs(t *testing.T) {
	records, err := Parse(strings.NewReader("4 0.60\n2 0.85\n"))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.EqualValues(t, 4, records[0].Key)
	assert.Equal(t, 0.85, records[1].Weight)
}

func TestParseUnkeyedFactorRow(t *testing.T) {
	records, err := Parse(strings.NewReader("0.5 1 2 3 4 5\n"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.EqualValues(t, 0, records[0].Key)
	assert.Equal(t, 0.5, records[0].Weight)
	assert.Equal(t, 5.0, records[0].Latent[4])
}

func TestParseSkipsCommentsAndBlankLines(t *testing.T) {
	records, err := Parse(strings.NewReader("# comment\n\n1 0.0 0 0 0 0 0\n"))
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestParseAggregatesErrorsAcrossBadLines(t *testing.T) {
	input := "bad line\n1 1 1 1 1 1 1\nanother bad one here\n"
	records, err := Parse(strings.NewReader(input))
	require.Error(t, err, "expected an aggregated error for the malformed lines")
	assert.Len(t, records, 1, "the one valid line should still parse")
	assert.Contains(t, err.Error(), "line 1")
	assert.Contains(t, err.Error(), "line 3")
}

func TestLoadAllWithNoSourcesReturnsEmptyWeights(t *testing.T) {
	w, err := LoadAll(Sources{})
	require.NoError(t, err)
	assert.Empty(t, w.Pattern3x3)
}

func TestLoadDistanceInstallsGammaTable(t *testing.T) {
	w := simulation.NewWeights()
	require.NoError(t, LoadDistance(strings.NewReader("1.0\n1.0\n0.9\n0.8\n"), w))
	require.Len(t, w.Distance, 4)
	assert.Equal(t, 0.9, w.Distance[2])
}

func TestLoadRootLoadsBothParameterSets(t *testing.T) {
	base := t.TempDir()
	simDir := filepath.Join(base, SimDirName)
	uctDir := filepath.Join(base, UctDirName)
	require.NoError(t, os.MkdirAll(simDir, 0o755))
	require.NoError(t, os.MkdirAll(uctDir, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(simDir, FilePreviousDistance), []byte("1.0\n1.0\n0.85\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(simDir, FileCapture), []byte("1.2 0 0 0 0 0\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(uctDir, FilePass), []byte("-0.5 0 0 0 0 0\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(uctDir, FileMD3), []byte("123456789 0.3 0 0 0 0 0\n"), 0o644))

	sim, uct, err := LoadRoot(context.Background(), base)
	require.NoError(t, err)
	require.Len(t, sim.Distance, 3)
	assert.Equal(t, 0.85, sim.Distance[2])
	assert.Less(t, uct.PassRate(), sim.PassRate(), "a negative pass weight lowers the pass rate")
}

func TestLoadRootMissingBaseIsAnError(t *testing.T) {
	_, _, err := LoadRoot(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
