package board

// Code3x3 is a 16-bit packing of the 8 immediate neighbors of a point (4 orthogonal
// + 4 diagonal), 2 bits each: order is N, E, S, W, NE, SE, SW, NW.
//
// This table lives in the board package, not in a higher-level pattern package,
// because the board engine's own eye test and territory scoring need to consult
// it directly: pattern depends on board (for Color), so a pattern-side table
// would be unreachable from here without a cycle. pkg/pattern re-exports these
// symbols for the simulation policy and the parameter loader, which read the
// same table through that package's existing API.
type Code3x3 uint16

// colorBits packs a Color into its 2-bit pattern code. Empty/Black/White/OffBoard
// already occupy 0..3, so this is the identity -- kept as a named step so the
// dependency on the exact enum values is explicit and grep-able.
func colorBits(c Color) Code3x3 {
	return Code3x3(c)
}

// Encode3x3 packs the 8 neighbor colors (in N,E,S,W,NE,SE,SW,NW order) into a Code3x3.
func Encode3x3(nbr [8]Color) Code3x3 {
	var code Code3x3
	for i, c := range nbr {
		code |= colorBits(c) << uint(2*i)
	}
	return code
}

func (c Code3x3) at(i int) Color {
	return Color((c >> uint(2*i)) & 0x3)
}

// rotate90 rotates the 8-neighbor ring by one quarter turn: N->E->S->W->N and
// NE->SE->SW->NW->NE, preserving the orthogonal/diagonal grouping.
func (c Code3x3) rotate90() Code3x3 {
	var nbr [8]Color
	for i := 0; i < 8; i++ {
		nbr[i] = c.at(i)
	}
	var rot [8]Color
	// orthogonal ring: N,E,S,W -> rotate one step
	rot[0], rot[1], rot[2], rot[3] = nbr[3], nbr[0], nbr[1], nbr[2]
	// diagonal ring: NE,SE,SW,NW -> rotate one step
	rot[4], rot[5], rot[6], rot[7] = nbr[7], nbr[4], nbr[5], nbr[6]
	return Encode3x3(rot)
}

// reflect mirrors the pattern across the N-S axis: E<->W, NE<->NW, SE<->SW.
func (c Code3x3) reflect() Code3x3 {
	var nbr [8]Color
	for i := 0; i < 8; i++ {
		nbr[i] = c.at(i)
	}
	nbr[1], nbr[3] = nbr[3], nbr[1]
	nbr[4], nbr[7] = nbr[7], nbr[4]
	nbr[5], nbr[6] = nbr[6], nbr[5]
	return Encode3x3(nbr)
}

// swapColor exchanges Black and White throughout the pattern, leaving Empty/OffBoard.
func (c Code3x3) swapColor() Code3x3 {
	var nbr [8]Color
	for i := 0; i < 8; i++ {
		switch v := c.at(i); v {
		case Black:
			nbr[i] = White
		case White:
			nbr[i] = Black
		default:
			nbr[i] = v
		}
	}
	return Encode3x3(nbr)
}

// Symmetries returns all 16 symmetric variants of c: 8 dihedral (4 rotations x
// reflect) times 2 color swaps. Used to expand templates (eye/false-eye/territory,
// nakade skeletons) over every orientation/color assignment at table-init time.
func Symmetries(c Code3x3) []Code3x3 {
	out := make([]Code3x3, 0, 16)
	cur := c
	for i := 0; i < 4; i++ {
		out = append(out, cur, cur.reflect())
		cur = cur.rotate90()
	}
	n := len(out)
	for i := 0; i < n; i++ {
		out = append(out, out[i].swapColor())
	}
	return out
}

const numCode3x3 = 1 << 16

var (
	eyeOwner  [numCode3x3]Color
	eyeTable  [numCode3x3]bool
	falseEye  [numCode3x3]bool
	territory [numCode3x3]Color
	nb4Empty  [numCode3x3]int
)

func init() {
	for code := 0; code < numCode3x3; code++ {
		c := Code3x3(code)
		owner, isEye, isFalse := classifyEye(c)
		eyeOwner[code] = owner
		eyeTable[code] = isEye
		falseEye[code] = isFalse
		territory[code] = classifyTerritory(c)
		nb4Empty[code] = countEmptyOrthogonal(c)
	}
}

// classifyEye implements the standard false-eye algorithm: the 4 orthogonal
// neighbors must agree on one color (off-board neighbors are transparent), and the
// diagonal neighbors may contain at most one enemy stone in the interior, zero if
// any diagonal neighbor is off-board (an edge or corner point).
func classifyEye(c Code3x3) (owner Color, isEye bool, isFalseEye bool) {
	owner = Empty
	for i := 0; i < 4; i++ {
		v := c.at(i)
		switch v {
		case Empty:
			return Empty, false, false
		case OffBoard:
			continue
		default:
			if owner == Empty {
				owner = v
			} else if owner != v {
				return Empty, false, false
			}
		}
	}
	if owner == Empty {
		return Empty, false, false
	}

	enemy := owner.Opponent()
	enemyDiag, offDiag := 0, 0
	for i := 4; i < 8; i++ {
		switch c.at(i) {
		case enemy:
			enemyDiag++
		case OffBoard:
			offDiag++
		}
	}
	allowed := 1
	if offDiag > 0 {
		allowed = 0
	}
	if enemyDiag <= allowed {
		return owner, true, false
	}
	return owner, false, true
}

// classifyTerritory returns the color that fully surrounds this point on all four
// orthogonal sides, treating off-board as transparent (spec.md 4.1, calculate_score).
// A point with any empty orthogonal neighbor is not territory by this strict,
// per-point rule -- it takes stones filling in around an empty region, not a
// flood-fill across it, to settle that region's color.
func classifyTerritory(c Code3x3) Color {
	owner := Empty
	for i := 0; i < 4; i++ {
		v := c.at(i)
		switch v {
		case Empty:
			return Empty
		case OffBoard:
			continue
		default:
			if owner == Empty {
				owner = v
			} else if owner != v {
				return Empty
			}
		}
	}
	return owner
}

func countEmptyOrthogonal(c Code3x3) int {
	n := 0
	for i := 0; i < 4; i++ {
		if c.at(i) == Empty {
			n++
		}
	}
	return n
}

// EyeOwner returns the color an empty point would need to be a complete one-color
// eye, or Empty if the 3x3 shape is not an eye shape at all.
func EyeOwner(c Code3x3) Color { return eyeOwner[c] }

// IsEye reports whether the 3x3 shape around an empty point is a real eye.
func IsEye(c Code3x3) bool { return eyeTable[c] }

// IsFalseEye reports whether the shape is an eye-like shape that is false (too many
// diagonal intrusions to guarantee life).
func IsFalseEye(c Code3x3) bool { return falseEye[c] }

// Territory returns the color whose territory the point belongs to under the
// four-orthogonal-neighbor rule, or Empty if neither side's territory.
func Territory(c Code3x3) Color { return territory[c] }

// NumEmptyOrthogonalNeighbors returns how many of the 4 orthogonal neighbors are empty.
func NumEmptyOrthogonalNeighbors(c Code3x3) int { return nb4Empty[c] }

// neighborOrder is the fixed N,E,S,W,NE,SE,SW,NW offset order Code3x3 packs into,
// shared by every caller that builds a code from a live board (board.go's eye/
// territory tests, simulation's pattern-gamma lookup).
var neighborOrder = [8][2]int{
	{0, -1}, {1, 0}, {0, 1}, {-1, 0}, // N,E,S,W
	{1, -1}, {1, 1}, {-1, 1}, {-1, -1}, // NE,SE,SW,NW
}

// Shape3x3 packs the 8 neighbors of p (in neighborOrder) into a Code3x3, ready
// for EyeOwner/IsEye/IsFalseEye/Territory lookup.
func (b *Board) Shape3x3(p Point) Code3x3 {
	layout := b.layout
	x, y := layout.XY(p)
	var nbr [8]Color
	for i, off := range neighborOrder {
		nbr[i] = b.color[layout.PointAt(x+off[0], y+off[1])]
	}
	return Encode3x3(nbr)
}
