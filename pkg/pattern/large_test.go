package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalHashInvariantUnderSymmetry(t *testing.T) {
	for s := range Shells {
		// A code with one Black stone at offset 0: every rotation/reflection of
		// it must canonicalize to the same hash.
		code := uint64(1)
		want := CanonicalHash(s, code)
		for tr := 0; tr < 8; tr++ {
			variant := permuteCode(code, shellPerms[s][tr])
			assert.Equal(t, want, CanonicalHash(s, variant), "shell %d transform %d", s, tr)
		}
		swapped := swapShellColors(code, len(Shells[s].Offsets))
		assert.Equal(t, want, CanonicalHash(s, swapped), "shell %d color swap", s)
	}
}

func TestCanonicalHashSeparatesShells(t *testing.T) {
	code := uint64(0x9) // two stones in the first two fields
	assert.NotEqual(t, CanonicalHash(1, code), CanonicalHash(2, code),
		"identical bits in different shell families must not collide structurally")
}

func TestSwapShellColorsTogglesOnlyStones(t *testing.T) {
	// Fields: Black(1), White(2), Empty(0), OffBoard(3).
	code := uint64(1) | uint64(2)<<2 | uint64(0)<<4 | uint64(3)<<6
	got := swapShellColors(code, 4)
	assert.EqualValues(t, 2, got&3)
	assert.EqualValues(t, 1, (got>>2)&3)
	assert.EqualValues(t, 0, (got>>4)&3)
	assert.EqualValues(t, 3, (got>>6)&3)
}

func TestIndexInsertLookup(t *testing.T) {
	ix := NewIndex(8)
	id1 := ix.Insert(0xDEAD)
	id2 := ix.Insert(0xBEEF)
	require.Equal(t, 0, id1)
	require.Equal(t, 1, id2)
	assert.Equal(t, id1, ix.Insert(0xDEAD), "re-inserting returns the existing id")

	got, ok := ix.Lookup(0xBEEF)
	require.True(t, ok)
	assert.Equal(t, id2, got)
	_, ok = ix.Lookup(0xF00D)
	assert.False(t, ok)
	assert.Equal(t, 2, ix.Len())
}

func TestShellPermsAreBijections(t *testing.T) {
	for s, shell := range Shells {
		for tr := 0; tr < 8; tr++ {
			seen := make([]bool, len(shell.Offsets))
			for _, j := range shellPerms[s][tr] {
				require.False(t, seen[j], "shell %d transform %d maps two offsets to %d", s, tr, j)
				seen[j] = true
			}
		}
	}
}
