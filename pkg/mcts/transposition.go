package mcts

import (
	"fmt"
	"sync"

	"github.com/igoengine/ishi/pkg/board"
)

// maxOccupancy is the load factor at which the table reports itself
// exhausted (spec.md 3, "enough_size"): the search driver then allocates no
// further nodes and its workers stop, rather than let the table degrade into
// long probe chains.
const maxOccupancy = 0.9

// Table is an open-addressed, linear-probing hash table from position hash to
// search Node, used to reuse subtrees across successive moves (the expected
// opponent reply and our own next search both often revisit the same
// positions). Power-of-two sized so the hash-to-slot mapping is a mask.
//
// Modeled on the teacher's table.Write CAS-retry loop (pkg/search/transposition.go)
// but generalized from a single direct-mapped slot per hash to linear probing
// over a run of slots, since collisions here must not silently evict a
// reachable subtree the way an alpha-beta TT entry can be safely overwritten.
type Table struct {
	mu        sync.RWMutex
	slots     []slot
	mask      uint64
	used      int
	exhausted bool
}

type slot struct {
	occupied bool
	hash     board.ZobristHash
	node     *Node
}

// NewTable allocates a table sized to the next power of two >= capacity.
func NewTable(capacity int) *Table {
	n := 1
	for n < capacity {
		n <<= 1
	}
	return &Table{
		slots: make([]slot, n),
		mask:  uint64(n - 1),
	}
}

// Get looks up the node stored for hash, if any.
func (t *Table) Get(hash board.ZobristHash) (*Node, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	idx := uint64(hash) & t.mask
	for probe := uint64(0); probe < uint64(len(t.slots)); probe++ {
		s := &t.slots[(idx+probe)&t.mask]
		if !s.occupied {
			return nil, false
		}
		if s.hash == hash {
			return s.node, true
		}
	}
	return nil, false
}

// Put inserts node under hash, unless the table has crossed maxOccupancy, in
// which case it reports false and the caller should stop retaining subtrees
// (spec.md 7, "hash exhaustion during search").
func (t *Table) Put(hash board.ZobristHash, n *Node) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.exhausted {
		return false
	}
	return t.putLocked(hash, n)
}

func (t *Table) putLocked(hash board.ZobristHash, n *Node) bool {
	idx := uint64(hash) & t.mask
	for probe := uint64(0); probe < uint64(len(t.slots)); probe++ {
		s := &t.slots[(idx+probe)&t.mask]
		if !s.occupied {
			s.occupied = true
			s.hash = hash
			s.node = n
			t.used++
			if float64(t.used)/float64(len(t.slots)) >= maxOccupancy {
				t.exhausted = true
			}
			return true
		}
		if s.hash == hash {
			s.node = n
			return true
		}
	}
	t.exhausted = true
	return false
}

// Exhausted reports whether the table has crossed its occupancy cutoff and
// should no longer be used to retain subtrees. Workers poll this and exit
// their loop cleanly rather than expand past the node budget (spec.md 5,
// "Resource bounds").
func (t *Table) Exhausted() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.exhausted
}

// Used returns the current occupancy fraction.
func (t *Table) Used() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return float64(t.used) / float64(len(t.slots))
}

// DeleteOld evicts every entry whose node's game ply is older than minPly:
// positions the game has already moved past can never be reached by a future
// search, so their subtrees are dead weight (spec.md 3, "delete_old_hash").
// Entries are reinserted rather than tombstoned so probe chains stay intact.
// Only call between searches; concurrent workers must not hold node pointers
// obtained from this table across the call.
func (t *Table) DeleteOld(minPly int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	old := t.slots
	t.slots = make([]slot, len(old))
	t.used = 0
	t.exhausted = false
	for i := range old {
		s := &old[i]
		if !s.occupied || s.node.Ply < minPly {
			continue
		}
		t.putLocked(s.hash, s.node)
	}
}

// Clear empties the table for reuse, e.g. at the start of a new game.
func (t *Table) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.slots {
		t.slots[i] = slot{}
	}
	t.used = 0
	t.exhausted = false
}

func (t *Table) String() string {
	return fmt.Sprintf("Table[%d slots @ %.1f%%]", len(t.slots), 100*t.Used())
}
