package pattern

import "github.com/igoengine/ishi/pkg/board"

// Shell is a concentric Manhattan-distance ring of offsets around a point, used to
// build the MD2/MD3/MD4/MD5 context fingerprints (spec.md 3, "MDk pattern").
// MD2 is the 3x3 ring (distance 1, the 4 orthogonal + 4 diagonal neighbors already
// covered by Code3x3) plus the distance-2 orthogonal "one-step extensions"; MD3/4/5
// are the exact-distance-k diamond rings beyond that, each its own fixed-width code.
type Shell struct {
	Offsets [][2]int
	Bits    int // 2 bits per offset
}

// Shells holds the four concentric-shell definitions, indexed by k-2 (MD2..MD5).
var Shells = [4]Shell{
	buildShell(shellMD2Offsets()), // MD2: 12 points, 24 bits
	buildShell(ringOffsets(3)),    // MD3: 12 points, 24 bits
	buildShell(ringOffsets(4)),    // MD4: 16 points, 32 bits
	buildShell(ringOffsets(5)),    // MD5: 20 points, 40 bits
}

func buildShell(offsets [][2]int) Shell {
	return Shell{Offsets: offsets, Bits: 2 * len(offsets)}
}

// shellMD2Offsets returns the 8 immediate (3x3) neighbors plus the 4 distance-2
// orthogonal extensions, matching spec.md's "3x3 plus one-step extensions" (24 bits).
func shellMD2Offsets() [][2]int {
	out := [][2]int{
		{0, -1}, {1, 0}, {0, 1}, {-1, 0}, // N,E,S,W
		{1, -1}, {1, 1}, {-1, 1}, {-1, -1}, // NE,SE,SW,NW
		{0, -2}, {2, 0}, {0, 2}, {-2, 0}, // one-step extensions
	}
	return out
}

// ringOffsets returns every (dx,dy) with exact Manhattan distance k, in a fixed
// deterministic order (starting due north, sweeping clockwise).
func ringOffsets(k int) [][2]int {
	var out [][2]int
	for dx := 0; dx <= k; dx++ {
		dy := k - dx
		if dx == 0 {
			out = append(out, [2]int{0, -dy})
		} else {
			out = append(out, [2]int{dx, -dy})
		}
	}
	for dy := 1; dy <= k; dy++ {
		dx := k - dy
		if dx == 0 {
			out = append(out, [2]int{dx, dy})
		} else {
			out = append(out, [2]int{dx, dy})
		}
	}
	for dx := k - 1; dx >= -k; dx-- {
		dy := k - abs(dx)
		if dx < 0 {
			out = append(out, [2]int{dx, dy})
		}
	}
	for dx := -k + 1; dx < 0; dx++ {
		dy := -(k - abs(dx))
		out = append(out, [2]int{dx, dy})
	}
	return dedupRing(out, k)
}

// dedupRing filters to unique points with |dx|+|dy| == k, preserving first-seen order.
// ringOffsets's sweep above can revisit axis points; this is the simplest correct fix.
func dedupRing(pts [][2]int, k int) [][2]int {
	seen := map[[2]int]bool{}
	out := make([][2]int, 0, 4*k)
	for _, p := range pts {
		if abs(p[0])+abs(p[1]) != k {
			continue
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// EncodeShell packs the colors at a shell's offsets (relative to layout point p) into
// a single integer code, 2 bits per offset, in the shell's fixed order.
func EncodeShell(shell Shell, layout board.Layout, colorAt func(board.Point) board.Color, p board.Point) uint64 {
	x0, y0 := layout.XY(p)
	var code uint64
	for i, off := range shell.Offsets {
		// The guard ring (board.OB wide) is pre-stamped OffBoard, so reading even the
		// largest shell (MD5, distance 5) from any on-board point never leaves the
		// backing array.
		c := colorAt(layout.PointAt(x0+off[0], y0+off[1]))
		code |= uint64(c) << uint(2*i)
	}
	return code
}
