package pattern

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Large patterns (MD3/MD4/MD5) are too wide for a direct table the way 3x3
// codes are; each concrete pattern loaded from a parameter file instead
// carries a 64-bit hash, canonicalized as the minimum over the 16 symmetry
// variants (8 dihedral transforms times an optional color swap), and lookups
// go through a linear-probing index keyed by that hash (spec.md 4.2,
// "Large-pattern lookup").

// shellPerms[s][t] maps an offset index of Shells[s] to its index under
// dihedral transform t, precomputed once at init so canonicalization is a
// pure bit shuffle with no geometry at lookup time.
var shellPerms [len(Shells)][8][]int

// dihedral returns the image of (dx,dy) under transform t: four rotations
// followed by the same four rotations mirrored.
func dihedral(t, dx, dy int) (int, int) {
	switch t {
	case 0:
		return dx, dy
	case 1:
		return -dy, dx
	case 2:
		return -dx, -dy
	case 3:
		return dy, -dx
	case 4:
		return -dx, dy
	case 5:
		return -dy, -dx
	case 6:
		return dx, -dy
	default:
		return dy, dx
	}
}

func init() {
	for s, shell := range Shells {
		at := map[[2]int]int{}
		for i, off := range shell.Offsets {
			at[off] = i
		}
		for t := 0; t < 8; t++ {
			perm := make([]int, len(shell.Offsets))
			for i, off := range shell.Offsets {
				x, y := dihedral(t, off[0], off[1])
				perm[i] = at[[2]int{x, y}]
			}
			shellPerms[s][t] = perm
		}
	}
}

// permuteCode rebuilds a shell code with every 2-bit color field moved from
// offset index i to perm[i].
func permuteCode(code uint64, perm []int) uint64 {
	var out uint64
	for i, j := range perm {
		out |= ((code >> uint(2*i)) & 3) << uint(2*j)
	}
	return out
}

// swapShellColors exchanges Black and White in every 2-bit field of a shell
// code, leaving empty and off-board fields alone. Black=1 and White=2, so a
// field swaps exactly when its two bits differ.
func swapShellColors(code uint64, fields int) uint64 {
	var out uint64
	for i := 0; i < fields; i++ {
		f := (code >> uint(2*i)) & 3
		if f == 1 || f == 2 {
			f ^= 3
		}
		out |= f << uint(2*i)
	}
	return out
}

// CanonicalHash maps a shell code to its symmetry-invariant 64-bit hash: the
// minimum of xxhash over all 16 variants. shellIdx selects MD2..MD5 (0..3)
// and is folded into the hashed bytes so the same bit pattern in two
// different shells cannot collide structurally.
func CanonicalHash(shellIdx int, code uint64) uint64 {
	shell := Shells[shellIdx]
	min := ^uint64(0)
	var buf [9]byte
	buf[0] = byte(shellIdx)
	for t := 0; t < 8; t++ {
		variant := permuteCode(code, shellPerms[shellIdx][t])
		for _, v := range [2]uint64{variant, swapShellColors(variant, len(shell.Offsets))} {
			binary.LittleEndian.PutUint64(buf[1:], v)
			if h := xxhash.Sum64(buf[:]); h < min {
				min = h
			}
		}
	}
	return min
}

// Index is an open-addressed, linear-probing map from canonical pattern hash
// to a dense 0-based id, sized to the next power of two above its capacity.
// Ids are assigned in insertion order so callers can keep pattern payloads in
// a parallel slice.
type Index struct {
	keys []uint64
	ids  []int32
	mask uint64
	used int
}

// NewIndex allocates an index with room for capacity entries before probing
// degrades (sized 2x to keep the load factor at or below one half).
func NewIndex(capacity int) *Index {
	n := 1
	for n < 2*capacity {
		n <<= 1
	}
	ix := &Index{
		keys: make([]uint64, n),
		ids:  make([]int32, n),
		mask: uint64(n - 1),
	}
	for i := range ix.ids {
		ix.ids[i] = -1
	}
	return ix
}

// Insert adds key and returns its dense id; inserting an existing key returns
// the id it already has. Returns -1 when the index is full.
func (ix *Index) Insert(key uint64) int {
	slot := key & ix.mask
	for probe := uint64(0); probe < uint64(len(ix.keys)); probe++ {
		i := (slot + probe) & ix.mask
		if ix.ids[i] < 0 {
			ix.keys[i] = key
			ix.ids[i] = int32(ix.used)
			ix.used++
			return int(ix.ids[i])
		}
		if ix.keys[i] == key {
			return int(ix.ids[i])
		}
	}
	return -1
}

// Lookup returns the dense id for key, if present.
func (ix *Index) Lookup(key uint64) (int, bool) {
	slot := key & ix.mask
	for probe := uint64(0); probe < uint64(len(ix.keys)); probe++ {
		i := (slot + probe) & ix.mask
		if ix.ids[i] < 0 {
			return 0, false
		}
		if ix.keys[i] == key {
			return int(ix.ids[i]), true
		}
	}
	return 0, false
}

// Len returns the number of distinct keys inserted.
func (ix *Index) Len() int { return ix.used }
