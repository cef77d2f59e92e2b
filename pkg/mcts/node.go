// Package mcts implements the parallel Monte-Carlo search tree: nodes with
// lock-free per-child visit/win counters, UCB1-TUNED child selection,
// progressive widening, and per-point ownership accumulation (criticality is
// derived across nodes in statistic.go, not stored per node).
package mcts

import (
	"sync"

	"github.com/igoengine/ishi/pkg/board"
	"go.uber.org/atomic"
)

// Child is one edge out of a Node: the move it represents, its per-edge
// visit/win counters, and a pointer to the (possibly not-yet-expanded) Node on
// the other side. Win mass is recorded from the mover's perspective, i.e. the
// Turn of the parent node that owns this edge.
type Child struct {
	Move   board.Point
	Prior  float64 // move-generation probability mass, from the simulation policy
	Ladder bool    // a losing ladder for Move's mover; excluded from selection

	moveCount atomic.Int64   // completed playouts plus in-flight virtual losses
	wins      atomic.Float64 // playout results in [0,1], mover's perspective

	node *atomic.Pointer[Node]
}

func newChild(move board.Point, prior float64, ladder bool) *Child {
	return &Child{Move: move, Prior: prior, Ladder: ladder, node: atomic.NewPointer[Node](nil)}
}

// Visits returns the edge's move count, including any virtual losses left by
// workers still descending through it.
func (c *Child) Visits() int64 { return c.moveCount.Load() }

// WinRate returns the edge's mean playout result from the mover's perspective,
// or 0.5 with no data.
func (c *Child) WinRate() float64 {
	n := c.moveCount.Load()
	if n == 0 {
		return 0.5
	}
	return c.wins.Load() / float64(n)
}

// AddVirtualLoss charges the edge one in-flight visit on the way down, so
// sibling workers see this branch as less attractive until the result lands.
func (c *Child) AddVirtualLoss(amount int64) {
	c.moveCount.Add(amount)
}

// Backpropagate records one playout's result (1.0 = win for the mover) and
// settles the virtual loss: the descent already charged the visit, so the move
// count only grows by 1-virtualLoss here. With virtualLoss == 1 the count is
// exact once every in-flight descent has landed.
func (c *Child) Backpropagate(result float64, virtualLoss int64) {
	c.wins.Add(result)
	c.moveCount.Add(1 - virtualLoss)
}

// NodeOrNil returns the child's node without expanding it, or nil if the
// child has never been expanded.
func (c *Child) NodeOrNil() *Node {
	return c.node.Load()
}

// expand allocates the child's node via fn exactly once, guarded by mu so two
// workers racing to expand the same child allocate one Node between them
// (mirrors the transposition table's CAS-guarded pointer swap in the teacher's
// table.Write, generalized from one slot to many).
func (c *Child) expand(mu *sync.Mutex, fn func() *Node) *Node {
	if n := c.node.Load(); n != nil {
		return n
	}
	mu.Lock()
	defer mu.Unlock()
	if n := c.node.Load(); n != nil {
		return n
	}
	n := fn()
	c.node.Store(n)
	return n
}

// Node is one position in the search tree. Counters are atomic so many worker
// goroutines can update them concurrently during backpropagation without a
// lock; the children slice and candidate ranking are only mutated under
// expandMu, and children only grows (progressive widening), never shrinks, so
// readers holding a snapshot never race with a writer.
type Node struct {
	Turn board.Color // color to move at this node
	Hash board.ZobristHash
	Ply  int // game ply at this position, for age-based table eviction

	visits  atomic.Int64   // playouts through this node plus in-flight virtual losses
	winMass atomic.Float64 // sum of per-playout results in [0,1] from Turn's perspective

	// Per-point terminal-position tallies: winner-owned, Black-owned,
	// White-owned. The winner tally is what criticality reads; the color
	// tallies feed ownership and final-status classification.
	winnerOwn []atomic.Int64
	blackOwn  []atomic.Int64
	whiteOwn  []atomic.Int64

	expandMu sync.Mutex
	ranked   []board.Point // non-pass candidates, best first
	priors   []float64
	ladder   []bool
	exposed  map[board.Point]bool
	children []*Child // children[0] is always the pass child
}

// NewNode allocates a node for the given position. numPoints sizes the
// ownership/criticality accumulators (spec.md 4.4, "Ownership & Criticality").
func NewNode(turn board.Color, hash board.ZobristHash, ply, numPoints int) *Node {
	return &Node{
		Turn:      turn,
		Hash:      hash,
		Ply:       ply,
		winnerOwn: make([]atomic.Int64, numPoints),
		blackOwn:  make([]atomic.Int64, numPoints),
		whiteOwn:  make([]atomic.Int64, numPoints),
		exposed:   map[board.Point]bool{},
	}
}

// Visits returns the number of playouts through this node, counting in-flight
// virtual losses the same way a child edge does.
func (n *Node) Visits() int64 { return n.visits.Load() }

// WinRate returns the mean playout result from Turn's perspective, or 0.5 with
// no data (first-play-urgency is applied one layer up, in SelectChild).
func (n *Node) WinRate() float64 {
	v := n.visits.Load()
	if v == 0 {
		return 0.5
	}
	return n.winMass.Load() / float64(v)
}

// AddVirtualLoss charges the node one in-flight visit during descent.
func (n *Node) AddVirtualLoss(amount int64) {
	n.visits.Add(amount)
}

// Backpropagate records one playout's result (1.0 = win for n.Turn's mover);
// the visit itself was already charged as virtual loss during descent.
func (n *Node) Backpropagate(result float64, virtualLoss int64) {
	n.visits.Add(1 - virtualLoss)
	n.winMass.Add(result)
}

// RecordTerritory folds one playout's final ownership into the accumulators:
// owner is the color holding each point at the end of the simulation, winner
// the playout's winning color.
func (n *Node) RecordTerritory(owner []board.Color, winner board.Color) {
	for p, c := range owner {
		switch c {
		case board.Black:
			n.blackOwn[p].Add(1)
		case board.White:
			n.whiteOwn[p].Add(1)
		}
		if c == winner {
			n.winnerOwn[p].Add(1)
		}
	}
}

// Ownership returns point p's fraction of playouts ending Black-owned.
func (n *Node) Ownership(p int) float64 {
	v := n.visits.Load()
	if v == 0 {
		return 0.5
	}
	return float64(n.blackOwn[p].Load()) / float64(v)
}

// SetCandidates installs the node's rated move list (non-pass moves, best
// first) plus the pass child's prior. Called when the node is created and
// again when a retained root is re-prepared for a new search; in the latter
// case already-exposed children keep their statistics but take the fresh
// ladder flags, so a ladder read from the previous root cannot linger
// (spec.md 4.4, "Node expansion at root").
func (n *Node) SetCandidates(ranked []board.Point, priors []float64, ladder []bool, passPrior float64) {
	n.expandMu.Lock()
	defer n.expandMu.Unlock()
	n.ranked = ranked
	n.priors = priors
	n.ladder = ladder
	if len(n.children) == 0 {
		n.children = append(n.children, newChild(board.Pass, passPrior, false))
		n.exposed[board.Pass] = true
		return
	}
	flags := map[board.Point]bool{}
	for i, mv := range ranked {
		if ladder != nil {
			flags[mv] = ladder[i]
		}
	}
	for _, c := range n.children {
		if c.Move != board.Pass {
			c.Ladder = flags[c.Move]
		}
	}
}

// Reprioritize replaces the candidate ranking, typically after the periodic
// ownership/criticality pass re-scores the root's moves. Exposed children keep
// their statistics; only the order in which *new* children open changes
// (spec.md 4.4's per-128-visit frontier re-sort, adapted to a grow-only
// frontier: statistics steer which moves open next rather than closing moves
// already explored).
func (n *Node) Reprioritize(ranked []board.Point, priors []float64, ladder []bool) {
	n.expandMu.Lock()
	defer n.expandMu.Unlock()
	n.ranked = ranked
	n.priors = priors
	n.ladder = ladder
}

// Candidates returns a snapshot of the node's current ranking, for the
// periodic re-scoring pass.
func (n *Node) Candidates() ([]board.Point, []float64) {
	n.expandMu.Lock()
	defer n.expandMu.Unlock()
	return append([]board.Point(nil), n.ranked...), append([]float64(nil), n.priors...)
}

// pwBase and pwGrowth parameterize the progressive-widening schedule: the
// frontier opens its width-th child once the parent's visits cross
// pw[width] = pw[width-1] + floor(pwBase * pwGrowth^(width-1)).
const (
	pwBase   = 40.0
	pwGrowth = 1.8
)

// widthFor returns the number of non-pass children exposed to selection at
// the given parent visit count.
func widthFor(visits int64) int {
	w := 1
	threshold := int64(0)
	step := pwBase
	for {
		threshold += int64(step)
		if visits < threshold {
			return w
		}
		w++
		step *= pwGrowth
		if w >= board.MaxBoardSize*board.MaxBoardSize {
			return w
		}
	}
}

// EnsureWidth grows the exposed child set from the stored ranking up to the
// progressive-widening width for the node's current visit count, and returns
// the exposed children. The pass child is always present and always first
// (spec.md 3, "the pass child is always at index 0"), outside the widening
// count. Safe for concurrent callers.
func (n *Node) EnsureWidth() []*Child {
	n.expandMu.Lock()
	defer n.expandMu.Unlock()

	if len(n.children) == 0 {
		n.children = append(n.children, newChild(board.Pass, 0, false))
		n.exposed[board.Pass] = true
	}

	want := widthFor(n.visits.Load())
	for i := 0; i < len(n.ranked) && len(n.children)-1 < want; i++ {
		mv := n.ranked[i]
		if n.exposed[mv] {
			continue
		}
		ladder := n.ladder != nil && n.ladder[i]
		n.children = append(n.children, newChild(mv, n.priors[i], ladder))
		n.exposed[mv] = true
	}
	return append([]*Child(nil), n.children...)
}

// Children returns a snapshot of the expanded child slots. Safe to call
// concurrently with EnsureWidth; may observe a slightly stale (shorter) slice.
func (n *Node) Children() []*Child {
	n.expandMu.Lock()
	defer n.expandMu.Unlock()
	return append([]*Child(nil), n.children...)
}

// allocMu is the one process-wide lock serializing child-node allocation
// across every parent in the tree.
var allocMu sync.Mutex

// ExpandChild returns (allocating if needed) the Node on the far side of c,
// using fn to build a fresh Node only the first time any worker reaches it.
func (n *Node) ExpandChild(c *Child, fn func() *Node) *Node {
	return c.expand(&allocMu, fn)
}
