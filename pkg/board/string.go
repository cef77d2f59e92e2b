package board

// stringID is a slot index into the string pool. noString marks "no owner".
type stringID int32

const noString stringID = -1

// chainEnd terminates the intrusive stone/liberty linked lists. Point zero is the
// padded board's (0,0) guard-ring corner, which can never hold a stone or be a
// liberty, so it doubles safely as the sentinel value (mirrors LIBERTY_END in
// spec.md's Data Model).
const chainEnd Point = 0

// stoneString is a maximal same-color 4-connected group (spec.md 3, "Stone string").
//
// Stone membership and liberties are each an intrusive singly-linked list: stone
// membership is threaded through the board-wide `next` array (one slot per point,
// shared across all strings since a point belongs to at most one string at a time);
// liberties are threaded through a per-string array the size of the board, trading
// memory for allocation-free insert/remove exactly as the origin engine's string_t
// does. The neighbor-string cross reference spec.md also lists is not maintained as
// its own intrusive list here: nothing that reads it needs better than O(4) per
// query, so callers derive it on demand from the four orthogonal neighbor points
// instead (Board.neighborStrings) -- one fewer incrementally-maintained invariant to
// keep consistent across merges and captures.
type stoneString struct {
	used  bool
	color Color
	size  int

	origin    Point
	stoneHead Point // head of the stone chain; chainEnd if empty/unused

	libHead  Point
	libChain []Point // per-point "next liberty" chain, length == NumPoints
	libCount int
}

func newStoneString(numPoints int) *stoneString {
	return &stoneString{
		libChain: make([]Point, numPoints),
	}
}

func (s *stoneString) reset() {
	s.used = false
	s.color = Empty
	s.size = 0
	s.origin = chainEnd
	s.stoneHead = chainEnd
	s.libHead = chainEnd
	s.libCount = 0
}

// hasLiberty reports whether p is currently recorded as a liberty of this string. O(libs).
func (s *stoneString) hasLiberty(p Point) bool {
	for cur := s.libHead; cur != chainEnd; cur = s.libChain[cur] {
		if cur == p {
			return true
		}
	}
	return false
}

// addLiberty inserts p into the liberty chain if not already present.
func (s *stoneString) addLiberty(p Point) {
	if s.hasLiberty(p) {
		return
	}
	s.libChain[p] = s.libHead
	s.libHead = p
	s.libCount++
}

// removeLiberty deletes p from the liberty chain, if present.
func (s *stoneString) removeLiberty(p Point) {
	if s.libHead == chainEnd {
		return
	}
	if s.libHead == p {
		s.libHead = s.libChain[p]
		s.libChain[p] = chainEnd
		s.libCount--
		return
	}
	for cur := s.libHead; s.libChain[cur] != chainEnd; cur = s.libChain[cur] {
		if s.libChain[cur] == p {
			s.libChain[cur] = s.libChain[p]
			s.libChain[p] = chainEnd
			s.libCount--
			return
		}
	}
}

// liberties returns a snapshot slice of the string's liberties. For inspection/testing.
func (s *stoneString) liberties() []Point {
	out := make([]Point, 0, s.libCount)
	for cur := s.libHead; cur != chainEnd; cur = s.libChain[cur] {
		out = append(out, cur)
	}
	return out
}

// addStone links p onto the front of the stone chain and bumps size. The caller owns
// updating the board-wide sid[]/next[] arrays; this only maintains the string's own
// bookkeeping (size, stoneHead links via the caller-supplied next array).
func (s *stoneString) addStone(p Point, next []Point) {
	next[p] = s.stoneHead
	s.stoneHead = p
	s.size++
}

// stones returns a snapshot of the string's member points, walking the stone chain.
func (s *stoneString) stones(next []Point) []Point {
	out := make([]Point, 0, s.size)
	for cur := s.stoneHead; cur != chainEnd; cur = next[cur] {
		out = append(out, cur)
	}
	return out
}
