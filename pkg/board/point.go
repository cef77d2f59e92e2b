package board

import "fmt"

// OB is the guard-ring width around the playable board. Pattern lookups read
// two steps outward from the edge (MD2), so the ring must be at least that wide.
const OB = 5

// MaxBoardSize is the largest supported board edge (19x19).
const MaxBoardSize = 19

// Point is a padded 1-D index into a (size+2*OB)^2 board. Two sentinel moves
// exist outside the coordinate range: Pass and Resign.
type Point int32

const (
	// Pass is the sentinel "no intersection" move.
	Pass Point = 0
	// Resign is the sentinel resignation move.
	Resign Point = -1
)

// Layout describes the padded-board geometry for one board size.
type Layout struct {
	Size   int // board edge, e.g. 9, 13, 19
	Stride int // row pitch, Size+2*OB
	Origin Point
}

// NewLayout returns the padded-board layout for the given edge size.
func NewLayout(size int) Layout {
	stride := size + 2*OB
	return Layout{
		Size:   size,
		Stride: stride,
		Origin: Point(OB*stride + OB),
	}
}

// NumPoints returns the total number of padded intersections, including the guard ring.
func (l Layout) NumPoints() int {
	return l.Stride * l.Stride
}

// PointAt converts 0-based (x,y) board coordinates to a padded Point.
func (l Layout) PointAt(x, y int) Point {
	return l.Origin + Point(y*l.Stride+x)
}

// XY converts a padded Point back to 0-based (x,y) board coordinates.
func (l Layout) XY(p Point) (int, int) {
	rel := int(p - l.Origin)
	y := rel / l.Stride
	x := rel % l.Stride
	return x, y
}

// OnBoard returns true iff p is inside the playable size x size area (not the guard ring).
func (l Layout) OnBoard(p Point) bool {
	x, y := l.XY(p)
	return x >= 0 && x < l.Size && y >= 0 && y < l.Size
}

// Neighbors4 returns the four orthogonal neighbors of p (may be guard-ring points).
func (l Layout) Neighbors4(p Point) [4]Point {
	return [4]Point{p - 1, p + 1, p - Point(l.Stride), p + Point(l.Stride)}
}

// Diagonals4 returns the four diagonal neighbors of p.
func (l Layout) Diagonals4(p Point) [4]Point {
	s := Point(l.Stride)
	return [4]Point{p - 1 - s, p + 1 - s, p - 1 + s, p + 1 + s}
}

// ManhattanDistance returns the Manhattan distance between two points.
func (l Layout) ManhattanDistance(a, b Point) int {
	ax, ay := l.XY(a)
	bx, by := l.XY(b)
	dx, dy := ax-bx, ay-by
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// GTPVertex renders a point in GTP coordinate notation: letters A..H,J..T for
// the column (skipping I), row 1 at the bottom.
func (l Layout) GTPVertex(p Point) string {
	if p == Pass {
		return "pass"
	}
	if p == Resign {
		return "resign"
	}
	x, y := l.XY(p)
	col := rune('A' + x)
	if col >= 'I' {
		col++
	}
	return fmt.Sprintf("%c%d", col, y+1)
}

// ParseGTPVertex parses a GTP coordinate back into a point.
func (l Layout) ParseGTPVertex(s string) (Point, error) {
	switch s {
	case "pass", "PASS":
		return Pass, nil
	case "resign", "RESIGN":
		return Resign, nil
	}
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid vertex: %q", s)
	}
	col := s[0]
	if col >= 'a' && col <= 'z' {
		col -= 'a' - 'A'
	}
	x := int(col - 'A')
	if col >= 'J' {
		x--
	}
	var y int
	if _, err := fmt.Sscanf(s[1:], "%d", &y); err != nil {
		return 0, fmt.Errorf("invalid vertex: %q: %w", s, err)
	}
	if x < 0 || x >= l.Size || y < 1 || y > l.Size {
		return 0, fmt.Errorf("vertex out of range: %q", s)
	}
	return l.PointAt(x, y-1), nil
}
