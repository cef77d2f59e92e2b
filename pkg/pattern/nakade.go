package pattern

import (
	"sort"

	"github.com/igoengine/ishi/pkg/board"
)

// compiledNakadeShape is one (orientation, skeleton) pair: a canonicalized point set
// together with the vital point expressed in the same canonical frame.
type compiledNakadeShape struct {
	name  string
	cells [][2]int
	vital [2]int
}

// nakadeTemplate is a dead-shape skeleton (3 to 6 stones that cannot make two eyes)
// with its vital point, given in one arbitrary orientation (spec.md 4.2, "Nakade
// table"). At init time every template is expanded over its 8 dihedral orientations,
// matching the 3x3 pattern table's symmetry treatment.
type nakadeTemplate struct {
	name  string
	cells [][2]int
	vital [2]int
}

var nakadeTemplates = []nakadeTemplate{
	{name: "straight-three", cells: [][2]int{{0, 0}, {1, 0}, {2, 0}}, vital: [2]int{1, 0}},
	{name: "bent-three", cells: [][2]int{{0, 0}, {1, 0}, {1, 1}}, vital: [2]int{1, 0}},
	{name: "square-four", cells: [][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}}, vital: [2]int{0, 0}},
	{name: "pyramid-four", cells: [][2]int{{0, 0}, {1, 0}, {2, 0}, {1, 1}}, vital: [2]int{1, 0}},
	{name: "bulky-five", cells: [][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}, {2, 0}}, vital: [2]int{1, 0}},
	{name: "crossed-five", cells: [][2]int{{1, 0}, {0, 1}, {1, 1}, {2, 1}, {1, 2}}, vital: [2]int{1, 1}},
	{name: "bulky-six", cells: [][2]int{{0, 0}, {1, 0}, {2, 0}, {0, 1}, {1, 1}, {2, 1}}, vital: [2]int{1, 0}},
}

// nakadeIndex maps a shape's size -> compiled (orientation, skeleton) candidates, so
// lookup only compares shapes of the same stone count.
var nakadeIndex map[int][]compiledNakadeShape

func init() {
	nakadeIndex = map[int][]compiledNakadeShape{}
	seen := map[string]bool{}
	for _, t := range nakadeTemplates {
		for _, variant := range pointSetOrientations(t.cells, t.vital) {
			cells, origin := canonicalizePoints(variant.cells)
			vital := [2]int{variant.vital[0] - origin[0], variant.vital[1] - origin[1]}
			key := t.name + shapeKey(cells)
			if seen[key] {
				continue
			}
			seen[key] = true
			n := len(cells)
			nakadeIndex[n] = append(nakadeIndex[n], compiledNakadeShape{name: t.name, cells: cells, vital: vital})
		}
	}
}

type orientedShape struct {
	cells [][2]int
	vital [2]int
}

// pointSetOrientations returns the 8 dihedral transforms (4 rotations x mirror) of a
// point set plus its distinguished point.
func pointSetOrientations(cells [][2]int, vital [2]int) []orientedShape {
	rot := func(p [2]int) [2]int { return [2]int{-p[1], p[0]} }
	mir := func(p [2]int) [2]int { return [2]int{-p[0], p[1]} }

	out := make([]orientedShape, 0, 8)
	curCells := append([][2]int(nil), cells...)
	curVital := vital
	for i := 0; i < 4; i++ {
		mirCells := mapPoints(curCells, mir)
		out = append(out, orientedShape{cells: curCells, vital: curVital})
		out = append(out, orientedShape{cells: mirCells, vital: mir(curVital)})
		curCells = mapPoints(curCells, rot)
		curVital = rot(curVital)
	}
	return out
}

func mapPoints(pts [][2]int, fn func([2]int) [2]int) [][2]int {
	out := make([][2]int, len(pts))
	for i, p := range pts {
		out[i] = fn(p)
	}
	return out
}

// canonicalizePoints sorts points and translates them so the lexicographically
// smallest sits at the origin, returning the canonical set and the translation applied.
func canonicalizePoints(cells [][2]int) ([][2]int, [2]int) {
	cp := append([][2]int(nil), cells...)
	sort.Slice(cp, func(i, j int) bool {
		if cp[i][0] != cp[j][0] {
			return cp[i][0] < cp[j][0]
		}
		return cp[i][1] < cp[j][1]
	})
	origin := cp[0]
	for i := range cp {
		cp[i][0] -= origin[0]
		cp[i][1] -= origin[1]
	}
	return cp, origin
}

func shapeKey(cells [][2]int) string {
	b := make([]byte, 0, len(cells)*8)
	for _, p := range cells {
		b = append(b, byte(p[0]+64), byte(p[1]+64))
	}
	return string(b)
}

// FindNakadeVitalPoint looks up the vital point for a candidate dead group. The
// caller is responsible for having verified the group is a single enclosed,
// eyeless string of 3-6 stones (spec.md 8, scenario 4, find_nakade_pos).
func FindNakadeVitalPoint(layout board.Layout, group []board.Point) (board.Point, bool) {
	if len(group) < 3 || len(group) > 6 {
		return 0, false
	}
	rel := make([][2]int, len(group))
	for i, p := range group {
		x, y := layout.XY(p)
		rel[i] = [2]int{x, y}
	}
	key, origin := canonicalizePoints(rel)

	for _, shape := range nakadeIndex[len(group)] {
		if !sameShape(shape.cells, key) {
			continue
		}
		vx := shape.vital[0] + origin[0]
		vy := shape.vital[1] + origin[1]
		return layout.PointAt(vx, vy), true
	}
	return 0, false
}

func sameShape(a, b [][2]int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
