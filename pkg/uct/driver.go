package uct

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/igoengine/ishi/pkg/board"
	"github.com/igoengine/ishi/pkg/mcts"
	"github.com/igoengine/ishi/pkg/simulation"
	"github.com/seekerror/logw"
	"github.com/seekerror/stdlib/pkg/util/contextx"
	"go.uber.org/atomic"
)

// virtualLoss is the per-descent visit penalty a worker leaves behind on
// every node and edge along its path so concurrent workers don't pile onto
// the same promising-looking branch before results land (spec.md 4.4,
// "Back-propagation with virtual loss").
const virtualLoss = 1

// criticalityInterval is how many root playouts pass between recomputations
// of the ownership/criticality statistics that re-rank the root's candidate
// frontier (spec.md 4.4, "Ownership / criticality").
const criticalityInterval = 100

// Re-ranking blend weights: how strongly the ownership and criticality
// statistics pull a candidate up the widening order relative to its policy
// prior.
const (
	ownershipWeight   = 0.10
	criticalityWeight = 0.40
)

// expandThreshold returns the number of descents through an edge before the
// node on its far side is allocated and its children rated, keyed by board
// size: bigger boards amortize the (board-area-sized) rating pass over more
// visits (spec.md 4.4, "Node expansion mid-tree").
func expandThreshold(size int) int64 {
	switch {
	case size >= 19:
		return 40
	case size >= 13:
		return 25
	default:
		return 20
	}
}

// Options configures one Driver run.
type Options struct {
	Threads      int
	Playouts     int64 // 0 == unbounded (time-limited only)
	TimeControl  TimeControl
	Interruption bool // enable the leader-margin early-stop check
}

// Result is what one Search call returns: the recommended move and the final
// playout count, for logging/GTP reporting.
type Result struct {
	Move     board.Point
	Playouts int64
	WinRate  float64

	PassWinRate float64    // the pass child's observed win rate, for pass selection rules
	Moves       []MoveInfo // root children ranked by visits, most first (lz-analyze/cgos-genmove_analyze)
	Ownership   []float64  // per point, row-major, fraction of playouts ending Black-owned
}

// MoveInfo is one root child's statistics, as reported by the lz-analyze and
// cgos-genmove_analyze GTP extensions (spec.md 6).
type MoveInfo struct {
	Move    board.Point
	Visits  int64
	WinRate float64
	LCB     float64 // normal-approximation lower confidence bound on WinRate
	Prior   float64
	Order   int
}

// Driver owns one root search: a shared mcts.Node tree plus a pool of worker
// goroutines descending/expanding/simulating/backpropagating against it. One
// Driver per move decision; discard and build a new one for the next move
// (subtree reuse happens through the shared mcts.Table, not by retaining a
// Driver across moves).
type Driver struct {
	playoutW *simulation.Weights // playout policy: MD2-and-under, fast path
	priorW   *simulation.Weights // child priors: full MD3/4/5 rating
	root     *mcts.Node
	rootPos  *board.Board
	table    *mcts.Table // nil == no subtree retention

	threshold  int64
	rootLadder map[board.Point]bool

	playouts atomic.Int64
}

// NewDriver creates a driver rooted at the given position. rootPos is cloned
// internally once per worker descent, never mutated in place. priorW may
// equal playoutW when no separate UCT parameter set is loaded; table may be
// nil to disable cross-move subtree retention.
func NewDriver(rootPos *board.Board, playoutW, priorW *simulation.Weights, root *mcts.Node, table *mcts.Table) *Driver {
	if priorW == nil {
		priorW = playoutW
	}
	return &Driver{
		playoutW:  playoutW,
		priorW:    priorW,
		root:      root,
		rootPos:   rootPos,
		table:     table,
		threshold: expandThreshold(rootPos.Layout().Size),
	}
}

// Search runs the parallel playout loop until ctx is cancelled, the playout
// budget is exhausted, or (if enabled) the early-stop margin check fires. In
// time-control mode, a search whose leading move is still within 20% of the
// runner-up at the nominal stop gets one 50% extension of both time and
// playouts before committing (spec.md 4.5, "Time extension").
//
// Mirrors the teacher's Launcher.Launch contract (a cancellable handle driving
// background work) but fans out over Options.Threads workers instead of one
// iterative-deepening goroutine, since UCT parallelizes over playouts rather
// than over deepening iterations.
func (d *Driver) Search(ctx context.Context, opt Options) Result {
	threads := opt.Threads
	if threads < 1 {
		threads = 1
	}
	d.prepareRoot()

	budget := opt.Playouts
	soft, hard := opt.TimeControl.Budget(d.rootPos.Layout().Size)
	timed := opt.TimeControl.Remaining > 0

	deadline := time.Time{}
	if timed {
		deadline = time.Now().Add(soft)
	}
	d.runWorkers(ctx, threads, budget, deadline, soft, opt)

	if d.undecided() && !contextx.IsCancelled(ctx) {
		extra := budget + budget/2
		deadline = time.Time{}
		if timed {
			deadline = time.Now().Add(hard - soft)
		}
		if timed || extra > 0 {
			logw.Debugf(ctx, "Search undecided at nominal stop; extending")
			d.runWorkers(ctx, threads, extra, deadline, hard-soft, opt)
		}
	}

	result := d.bestMove()
	logw.Debugf(ctx, "Search done: %v playouts, move=%v winrate=%.3f", result.Playouts, d.rootPos.Layout().GTPVertex(result.Move), result.WinRate)
	return result
}

// runWorkers fans out one playout loop per thread and blocks until every
// worker observes a stop condition. Worker 0 additionally owns the periodic
// bookkeeping: the criticality re-rank every criticalityInterval playouts and
// the leader-margin interrupt check (spec.md 4.5, "Scheduling model").
func (d *Driver) runWorkers(ctx context.Context, threads int, budget int64, deadline time.Time, total time.Duration, opt Options) {
	var wg sync.WaitGroup
	stop := make(chan struct{})
	var stopOnce sync.Once
	halt := func() { stopOnce.Do(func() { close(stop) }) }

	for t := 0; t < threads; t++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)<<32))
			lastCrit := int64(0)
			for {
				if contextx.IsCancelled(ctx) {
					return
				}
				select {
				case <-stop:
					return
				default:
				}
				if d.table != nil && d.table.Exhausted() {
					halt()
					return
				}

				d.playout(rng)
				n := d.playouts.Add(1)

				if budget > 0 && n >= budget {
					halt()
					return
				}
				if !deadline.IsZero() && time.Now().After(deadline) {
					halt()
					return
				}
				if worker != 0 {
					continue
				}
				if n/criticalityInterval > lastCrit {
					lastCrit = n / criticalityInterval
					d.reprioritizeRoot()
				}
				if opt.Interruption && budget > 0 {
					elapsed := float64(n) / float64(budget)
					if !deadline.IsZero() && total > 0 {
						elapsed = 1 - time.Until(deadline).Seconds()/total.Seconds()
					}
					if ShouldInterrupt(d.root, n, budget, elapsed) {
						halt()
						return
					}
				}
			}
		}(t)
	}
	wg.Wait()
}

// prepareRoot rates the root's candidates and installs them on the root node.
// Run even when the root was recovered from the transposition table: the
// ranking, ladder flags, and pass prior are refreshed against the actual
// current position, which also guards against a stale reused subtree (spec.md
// 4.4, "Node expansion at root"; spec.md 7, "Corrupted tree reuse").
func (d *Driver) prepareRoot() {
	ranked, priors, passPrior := d.rankMoves(d.rootPos.Clone(), d.root.Turn)

	d.rootLadder = map[board.Point]bool{}
	b := d.rootPos.Clone()
	ladder := make([]bool, len(ranked))
	for i, mv := range ranked {
		ladder[i] = isLosingLadderEscape(b, mv, d.root.Turn)
		d.rootLadder[mv] = ladder[i]
	}

	d.root.SetCandidates(ranked, priors, ladder, passPrior)
}

// playout descends from the root to a leaf, expands the leaf's node once its
// edge has been descended expandThreshold times, simulates a random game to
// completion with the playout policy, and backpropagates the result. One call
// is one unit of parallel work.
func (d *Driver) playout(rng *rand.Rand) {
	b := d.rootPos.Clone()

	node := d.root
	node.AddVirtualLoss(virtualLoss)
	nodes := []*mcts.Node{node}
	var edges []*mcts.Child
	var movers []board.Color
	turn := node.Turn

	for {
		children := node.EnsureWidth()
		child := mcts.SelectChild(children, node.Visits())
		if child == nil {
			break
		}
		child.AddVirtualLoss(virtualLoss)
		edges = append(edges, child)
		movers = append(movers, node.Turn)

		if _, err := b.PutStone(child.Move, node.Turn); err != nil {
			turn = node.Turn.Opponent()
			break
		}
		turn = node.Turn.Opponent()

		next := child.NodeOrNil()
		if next == nil {
			if child.Visits() < d.threshold || (d.table != nil && d.table.Exhausted()) {
				break // simulate from here; the edge keeps the statistics
			}
			next = d.expandChild(node, child, b)
		}
		next.AddVirtualLoss(virtualLoss)
		nodes = append(nodes, next)
		node = next
		if b.GameOver() {
			break
		}
	}

	result, owner := rollout(b, turn, d.playoutW, rng)
	winner := board.Empty
	switch {
	case result > 0.5:
		winner = board.Black
	case result < 0.5:
		winner = board.White
	}

	// result is from Black's perspective (1.0 == Black wins); each node and
	// edge folds it into its own mover's perspective.
	for _, n := range nodes {
		r := result
		if n.Turn == board.White {
			r = 1 - result
		}
		n.Backpropagate(r, virtualLoss)
		n.RecordTerritory(owner, winner)
	}
	for i, e := range edges {
		r := result
		if movers[i] == board.White {
			r = 1 - result
		}
		e.Backpropagate(r, virtualLoss)
	}
}

// expandChild allocates (or recovers from the transposition table) the node
// on the far side of child, rating its candidates once at creation.
func (d *Driver) expandChild(parent *mcts.Node, child *mcts.Child, b *board.Board) *mcts.Node {
	turn := parent.Turn.Opponent()
	return parent.ExpandChild(child, func() *mcts.Node {
		if d.table != nil {
			if cached, ok := d.table.Get(b.Hash()); ok && cached.Turn == turn {
				return cached
			}
		}
		n := mcts.NewNode(turn, b.Hash(), b.Ply(), b.Layout().NumPoints())
		ranked, priors, passPrior := d.rankMoves(b.Clone(), turn)
		n.SetCandidates(ranked, priors, nil, passPrior)
		if d.table != nil {
			d.table.Put(b.Hash(), n)
		}
		return n
	})
}

// rankMoves asks the prior policy to rate every legal non-self-eye-filling
// move for turn, returning them sorted best-first alongside their normalized
// priors and the pass candidate's prior share. On the very first move of the
// game, candidates are restricted to one representative per symmetry orbit of
// the empty board (spec.md 4.4, "on the opening move only").
func (d *Driver) rankMoves(b *board.Board, turn board.Color) ([]board.Point, []float64, float64) {
	layout := b.Layout()
	prev := board.Pass
	if mv, _, ok := b.LastMove(); ok {
		prev = mv
	}
	opening := b.Ply() == 0

	var cands []simulation.Candidate
	for y := 0; y < layout.Size; y++ {
		for x := 0; x < layout.Size; x++ {
			p := layout.PointAt(x, y)
			if opening && !isFirstMoveCandidate(layout, x, y) {
				continue
			}
			if !b.IsLegalNotEye(p, turn) {
				continue
			}
			rate := d.priorW.RatePrior(b, prev, p, turn)
			cands = append(cands, simulation.Candidate{Move: p, Rate: rate})
		}
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Rate > cands[j].Rate })

	passRate := d.priorW.PassRate()
	total := passRate
	for _, c := range cands {
		total += c.Rate
	}
	moves := make([]board.Point, len(cands))
	priors := make([]float64, len(cands))
	for i, c := range cands {
		moves[i] = c.Move
		if total > 0 {
			priors[i] = c.Rate / total
		}
	}
	passPrior := 0.0
	if total > 0 {
		passPrior = passRate / total
	}
	return moves, priors, passPrior
}

// isFirstMoveCandidate reports whether (x,y) is the canonical representative
// of its orbit under the empty board's eight symmetries: the first move never
// needs to consider two points the board cannot tell apart.
func isFirstMoveCandidate(layout board.Layout, x, y int) bool {
	n := layout.Size - 1
	self := y*layout.Size + x
	images := [8][2]int{
		{x, y}, {n - x, y}, {x, n - y}, {n - x, n - y},
		{y, x}, {n - y, x}, {y, n - x}, {n - y, n - x},
	}
	for _, im := range images {
		if im[1]*layout.Size+im[0] < self {
			return false
		}
	}
	return true
}

// reprioritizeRoot re-scores the root's candidates as
// prior + ownership_term + criticality_term and re-sorts the widening order,
// letting the accumulated simulation statistics steer which move opens next
// (spec.md 4.4, "this lets statistics shift the frontier over time").
func (d *Driver) reprioritizeRoot() {
	ranked, priors := d.root.Candidates()
	if len(ranked) == 0 {
		return
	}
	crit := mcts.Criticality(d.root)
	mover := d.root.Turn

	type scored struct {
		move  board.Point
		prior float64
		score float64
	}
	items := make([]scored, len(ranked))
	for i, mv := range ranked {
		own := d.root.Ownership(int(mv))
		if mover == board.White {
			own = 1 - own
		}
		items[i] = scored{
			move:  mv,
			prior: priors[i],
			score: priors[i] + ownershipWeight*own + criticalityWeight*crit[mv],
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].score > items[j].score })

	newRanked := make([]board.Point, len(items))
	newPriors := make([]float64, len(items))
	newLadder := make([]bool, len(items))
	for i, it := range items {
		newRanked[i] = it.move
		newPriors[i] = it.prior
		newLadder[i] = d.rootLadder[it.move]
	}
	d.root.Reprioritize(newRanked, newPriors, newLadder)
}

// lowerConfidence returns a one-sided 95% normal-approximation lower bound on
// a Bernoulli win rate, the "lcb" field of lz-analyze output.
func lowerConfidence(p float64, n int64) float64 {
	if n == 0 {
		return 0
	}
	lcb := p - 1.96*math.Sqrt(p*(1-p)/float64(n))
	if lcb < 0 {
		lcb = 0
	}
	return lcb
}

// undecided reports whether the most-visited root child still leads the
// runner-up by less than 20%, the trigger for the one-time search extension.
func (d *Driver) undecided() bool {
	children := d.root.Children()
	var top, second int64
	for _, c := range children {
		v := c.Visits()
		switch {
		case v > top:
			second = top
			top = v
		case v > second:
			second = v
		}
	}
	if top == 0 {
		return false
	}
	return float64(top-second) < 0.2*float64(top)
}

// isLosingLadderEscape reports whether mv extends a string of turn currently
// in atari into a shape that a ladder search shows gets captured anyway, so
// the tree can exclude it from selection instead of spending playouts
// confirming what a cheap search already settled. Run for the root's own
// candidates only -- ladder reads are too expensive to repeat at every tree
// depth (spec.md 4.3, "Ladder detection").
func isLosingLadderEscape(b *board.Board, mv board.Point, turn board.Color) bool {
	if mv == board.Pass {
		return false
	}
	extendsAtari := false
	for _, nb := range b.Layout().Neighbors4(mv) {
		if b.ColorAt(nb) == turn && b.LibertyCount(nb) == 1 {
			extendsAtari = true
			break
		}
	}
	if !extendsAtari {
		return false
	}
	if _, err := b.PutStone(mv, turn); err != nil {
		return false
	}
	defer b.TakeBack()
	return simulation.IsCaptured(b, mv, turn.Opponent())
}

// Ownership returns, for every point of the root's layout in row-major
// (y then x) board order, the root's fraction of playouts ending with that
// point Black-owned -- the source data for cgos-genmove_analyze's
// "ownership" field (spec.md 6).
func (d *Driver) Ownership() []float64 {
	layout := d.rootPos.Layout()
	out := make([]float64, 0, layout.Size*layout.Size)
	for y := 0; y < layout.Size; y++ {
		for x := 0; x < layout.Size; x++ {
			out = append(out, d.root.Ownership(int(layout.PointAt(x, y))))
		}
	}
	return out
}

// Root returns the driver's root node, for post-search statistic extraction
// (mcts.Summarize/FinalOwner) once Search has returned.
func (d *Driver) Root() *mcts.Node { return d.root }

// Snapshot returns the current leading move and playout count without
// stopping the search, safe to call concurrently from another goroutine while
// Search is running (every field it reads is atomic or append-only) -- used
// for live analysis output (spec.md 6, "lz-analyze").
func (d *Driver) Snapshot() Result {
	return d.bestMove()
}

// bestMove returns the root's most-visited child, the usual robust-child
// criterion (not highest win rate, which overweights low-visit flukes), plus
// every expanded child ranked by visit count for analysis output.
func (d *Driver) bestMove() Result {
	children := d.root.Children()
	playouts := d.playouts.Load()
	result := Result{Move: board.Pass, Playouts: playouts, PassWinRate: 0.5}

	var infos []MoveInfo
	for _, c := range children {
		if c.Move == board.Pass {
			result.PassWinRate = c.WinRate()
		}
		if c.Visits() == 0 {
			continue
		}
		infos = append(infos, MoveInfo{
			Move:    c.Move,
			Visits:  c.Visits(),
			WinRate: c.WinRate(),
			LCB:     lowerConfidence(c.WinRate(), c.Visits()),
			Prior:   c.Prior,
		})
	}
	if len(infos) == 0 {
		return result
	}
	sort.SliceStable(infos, func(i, j int) bool { return infos[i].Visits > infos[j].Visits })
	for i := range infos {
		infos[i].Order = i
	}
	best := infos[0]
	result.Move = best.Move
	result.WinRate = best.WinRate
	result.Moves = infos
	result.Ownership = d.Ownership()
	return result
}
