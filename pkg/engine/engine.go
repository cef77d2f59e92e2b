// Package engine wires the board, playout policy, and UCT search into the
// single façade the protocol drivers (GTP, console) talk to.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/igoengine/ishi/pkg/board"
	"github.com/igoengine/ishi/pkg/mcts"
	"github.com/igoengine/ishi/pkg/params"
	"github.com/igoengine/ishi/pkg/simulation"
	"github.com/igoengine/ishi/pkg/uct"
	"github.com/seekerror/build"
	"github.com/seekerror/logw"
	"github.com/seekerror/stdlib/pkg/lang"
)

var version = build.NewVersion(0, 1, 0)

// Options are search creation options (spec.md 6, command-line surface).
type Options struct {
	// Threads is the number of parallel playout workers.
	Threads int
	// Playouts caps the number of playouts per move. Zero means time-limited only.
	Playouts int64
	// ConstTime, if set, fixes the per-move search time regardless of TimeControl.
	ConstTime lang.Optional[time.Duration]
	// Size is the board edge (9, 13, or 19).
	Size int
	// Komi is added to White's score.
	Komi float64
	// Superko enables positional superko in addition to the basic ko rule.
	Superko bool
	// ReuseSubtree carries the mcts.Table across moves instead of starting fresh.
	ReuseSubtree bool
	// TreeSize bounds the mcts.Table capacity (number of node slots).
	TreeSize int
	// Pondering searches during the opponent's clock from the position after
	// our committed move, retaining the subtree for the next GenMove.
	Pondering bool
	// Resign, if set, is the win-rate floor below which GenMove resigns.
	Resign lang.Optional[float64]
	// Debug enables verbose per-move board-state logging.
	Debug bool
	// CGOSFormat selects the cgos-genmove_analyze JSON rendering for the
	// console driver's "analyze" command instead of the plain lz-analyze line.
	CGOSFormat bool
}

func (o Options) String() string {
	return fmt.Sprintf("{size=%v, threads=%v, playouts=%v, komi=%v, superko=%v}", o.Size, o.Threads, o.Playouts, o.Komi, o.Superko)
}

// Option is an engine creation option.
type Option func(*Engine)

// WithOptions sets the default runtime options.
func WithOptions(opts Options) Option {
	return func(e *Engine) { e.opts = opts }
}

// WithZobrist configures the engine to use the given random seed instead of
// the default seed of zero, for reproducible hashes across runs.
func WithZobrist(seed int64) Option {
	return func(e *Engine) { e.seed = seed }
}

// WithWeights installs pre-loaded playout and prior weights, bypassing
// LoadParams. uctW may be nil to use simW for both roles.
func WithWeights(simW, uctW *simulation.Weights) Option {
	return func(e *Engine) {
		e.simW = simW
		e.uctW = uctW
		if e.uctW == nil {
			e.uctW = simW
		}
	}
}

// passWinRateFloor is the pass-child win rate above which GenMove answers an
// opponent pass with a pass of its own, ending the game (spec.md 4.5, "Move
// selection at root").
const passWinRateFloor = 0.90

// Engine encapsulates the board, move-rating policy, and UCT search for one
// game, exposing the operations a GTP or console driver needs (spec.md 6).
type Engine struct {
	name, author string

	opts Options
	seed int64
	simW *simulation.Weights // playout policy weights (sim_params)
	uctW *simulation.Weights // child-prior weights (uct_params)

	b     *board.Board
	table *mcts.Table

	active   *activeSearch
	lastRoot *mcts.Node // root of the most recently completed search, for FinalStatusList
	mu       sync.Mutex
}

type activeSearch struct {
	cancel    context.CancelFunc
	driver    *uct.Driver
	done      chan uct.Result
	pondering bool
}

// New creates an engine with the given name/author and options.
func New(ctx context.Context, name, author string, opts ...Option) *Engine {
	e := &Engine{
		name:   name,
		author: author,
		simW:   simulation.NewWeights(),
		opts:   Options{Threads: 1, Size: 19, Komi: 6.5},
	}
	e.uctW = e.simW
	for _, fn := range opts {
		fn(e)
	}

	_ = e.Reset(ctx, e.opts.Size, e.opts.Komi, e.opts.Superko)

	logw.Infof(ctx, "Initialized engine: %v, options=%v", e.Name(), e.opts)
	return e
}

// Name returns the engine name and version.
func (e *Engine) Name() string {
	return fmt.Sprintf("%v %v", e.name, version)
}

// Author returns the author.
func (e *Engine) Author() string {
	return e.author
}

// Options returns the current runtime options.
func (e *Engine) Options() Options {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts
}

// LoadParams loads the sim_params and uct_params weight sets from under base,
// replacing the current weights. Aggregated file errors are returned for the
// caller to treat as a fatal configuration error (spec.md 7).
func (e *Engine) LoadParams(ctx context.Context, base string) error {
	simW, uctW, err := params.LoadRoot(ctx, base)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.simW = simW
	e.uctW = uctW
	e.mu.Unlock()
	return nil
}

// Board returns a cloned snapshot of the current position.
func (e *Engine) Board() *board.Board {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.b.Clone()
}

// Reset starts a new game on the given board size/komi/superko setting.
func (e *Engine) Reset(ctx context.Context, size int, komi float64, superko bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.haltActiveLocked(ctx)

	e.opts.Size = size
	e.opts.Komi = komi
	e.opts.Superko = superko
	e.b = board.NewBoard(size, komi, superko, e.seed)
	e.lastRoot = nil

	if e.opts.TreeSize > 0 {
		e.table = mcts.NewTable(e.opts.TreeSize)
	} else {
		e.table = nil
	}

	if e.opts.Debug {
		logw.Infof(ctx, "New board: %v", e.b)
	}
	return nil
}

// Play places a move for the given color (GTP "play" command). Halts any
// active search first -- including a ponder, whose retained subtree the next
// GenMove picks up through the transposition table when the move matches.
func (e *Engine) Play(ctx context.Context, p board.Point, c board.Color) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.haltActiveLocked(ctx)

	if p != board.Pass && !e.b.IsLegal(p, c) {
		return fmt.Errorf("illegal move: %v", e.b.Layout().GTPVertex(p))
	}
	if _, err := e.b.PutStone(p, c); err != nil {
		return err
	}
	if e.table != nil {
		e.table.DeleteOld(e.b.Ply())
	}
	if e.opts.Debug {
		logw.Infof(ctx, "Play %v %v: %v", c, e.b.Layout().GTPVertex(p), e.b)
	}
	return nil
}

// TakeBack undoes the latest move.
func (e *Engine) TakeBack(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.haltActiveLocked(ctx)

	if !e.b.TakeBack() {
		return fmt.Errorf("no move to take back")
	}
	return nil
}

// GenMove runs a UCT search and commits the chosen move to the board,
// returning it (spec.md 6, "genmove"). Returns board.Resign when the leading
// child's win rate falls below the configured resign threshold, and
// board.Pass when the game is over or the opponent passed and passing wins
// (spec.md 4.5, "Move selection at root"). Starts a ponder search on the
// opponent's expected clock afterwards when pondering is enabled.
func (e *Engine) GenMove(ctx context.Context, c board.Color) (board.Point, error) {
	e.mu.Lock()
	if e.b.GameOver() {
		e.mu.Unlock()
		return board.Pass, nil
	}
	opponentPassed := false
	if mv, mc, ok := e.b.LastMove(); ok && mv == board.Pass && mc == c.Opponent() {
		opponentPassed = true
	}
	e.mu.Unlock()

	result, err := e.search(ctx, c)
	if err != nil {
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	move := result.Move
	if floor, ok := e.opts.Resign.V(); ok && result.WinRate < floor {
		return board.Resign, nil
	}
	if opponentPassed && result.PassWinRate > passWinRateFloor {
		move = board.Pass
	}
	if _, err := e.b.PutStone(move, c); err != nil {
		return 0, err
	}
	if e.table != nil {
		e.table.DeleteOld(e.b.Ply())
	}
	logw.Infof(ctx, "GenMove %v -> %v (%v playouts, winrate=%.3f)", c, e.b.Layout().GTPVertex(move), result.Playouts, result.WinRate)

	if e.opts.Pondering && move != board.Pass && !e.b.GameOver() {
		e.startPonderLocked(ctx, c.Opponent())
	}
	return move, nil
}

// Analyze starts a background search and streams periodic snapshots until
// halted or the search budget is exhausted (spec.md 6, "lz-analyze").
func (e *Engine) Analyze(ctx context.Context, c board.Color, interval time.Duration) (<-chan uct.Result, error) {
	e.mu.Lock()
	if e.active != nil && e.active.pondering {
		e.haltActiveLocked(ctx)
	}
	if e.active != nil {
		e.mu.Unlock()
		return nil, fmt.Errorf("search already active")
	}
	searchCtx, cancel := context.WithCancel(ctx)
	driver := e.newDriverLocked(c)
	done := make(chan uct.Result, 1)
	e.active = &activeSearch{cancel: cancel, driver: driver, done: done}
	opt := e.searchOptionsLocked()
	e.mu.Unlock()

	out := make(chan uct.Result, 16)
	go func() {
		defer close(out)
		res := make(chan uct.Result, 1)
		go func() {
			res <- driver.Search(searchCtx, opt)
		}()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case r := <-res:
				done <- r // left for haltActiveLocked
				out <- r
				return
			case <-ticker.C:
				out <- driver.Snapshot()
			}
		}
	}()
	return out, nil
}

// Halt stops the active search, if any, returning its latest result.
func (e *Engine) Halt(ctx context.Context) (uct.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == nil {
		return uct.Result{}, fmt.Errorf("no active search")
	}
	r := e.haltActiveLocked(ctx)
	return r, nil
}

func (e *Engine) haltActiveLocked(ctx context.Context) uct.Result {
	if e.active == nil {
		return uct.Result{}
	}
	a := e.active
	e.active = nil
	a.cancel()
	r := <-a.done
	e.lastRoot = a.driver.Root()
	if a.pondering {
		logw.Debugf(ctx, "Ponder halted: %v playouts", r.Playouts)
	} else {
		logw.Infof(ctx, "Search halted: %v", r)
	}
	return r
}

// search runs a blocking foreground search (used by GenMove). An in-flight
// ponder is halted first; a real search already running is an error.
func (e *Engine) search(ctx context.Context, c board.Color) (uct.Result, error) {
	e.mu.Lock()
	if e.active != nil && e.active.pondering {
		e.haltActiveLocked(ctx)
	}
	if e.active != nil {
		e.mu.Unlock()
		return uct.Result{}, fmt.Errorf("search already active")
	}
	driver := e.newDriverLocked(c)
	opt := e.searchOptionsLocked()
	searchCtx, cancel := context.WithCancel(ctx)
	done := make(chan uct.Result, 1)
	e.active = &activeSearch{cancel: cancel, driver: driver, done: done}
	e.mu.Unlock()

	result := driver.Search(searchCtx, opt)
	cancel()
	done <- result // a concurrent Halt waits on this

	e.mu.Lock()
	if e.active != nil && e.active.done == done {
		e.active = nil
	}
	e.lastRoot = driver.Root()
	e.mu.Unlock()

	return result, nil
}

// startPonderLocked launches an unbounded background search for the opponent
// from the current position. It runs until the next Play/GenMove/Reset halts
// it; the statistics it accumulates stay reachable through the transposition
// table when the opponent's actual move matches the pondered line (spec.md
// 4.5, "Pondering").
func (e *Engine) startPonderLocked(ctx context.Context, c board.Color) {
	pctx, cancel := context.WithCancel(context.Background())
	driver := e.newDriverLocked(c)
	done := make(chan uct.Result, 1)
	e.active = &activeSearch{cancel: cancel, driver: driver, done: done, pondering: true}

	opt := uct.Options{Threads: e.opts.Threads} // no budget: runs until halted
	go func() {
		done <- driver.Search(pctx, opt)
	}()
	logw.Debugf(ctx, "Pondering for %v", c)
}

func (e *Engine) newDriverLocked(c board.Color) *uct.Driver {
	table := e.table
	if table != nil && !e.opts.ReuseSubtree {
		table.Clear()
	}

	root := mcts.NewNode(c, e.b.Hash(), e.b.Ply(), e.b.Layout().NumPoints())
	if table != nil {
		if cached, ok := table.Get(e.b.Hash()); ok && cached.Turn == c {
			root = cached
		} else {
			table.Put(e.b.Hash(), root)
		}
	}
	return uct.NewDriver(e.b.Clone(), e.simW, e.uctW, root, table)
}

func (e *Engine) searchOptionsLocked() uct.Options {
	remaining, _ := e.opts.ConstTime.V()
	tc := uct.TimeControl{Remaining: remaining}
	return uct.Options{
		Threads:      e.opts.Threads,
		Playouts:     e.opts.Playouts,
		TimeControl:  tc,
		Interruption: true,
	}
}

// FinalScore returns the Chinese-area score from the current position.
func (e *Engine) FinalScore(ctx context.Context) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.b.Score()
}

// statusThreshold is the ownership confidence a point must cross to be
// classified dead/alive rather than left unsettled. spec.md 9's open
// question (d) flags this pair of constants as uncalibrated for short
// searches; 0.30/0.70 is the value named there, kept as-is per that note
// rather than guessed at.
const statusThreshold = 0.30

// FinalStatusList classifies every occupied point as "alive" or "dead" from
// the most recently completed search's ownership statistics (spec.md 6,
// "final_status_list"). Returns an empty map if no search has run yet --
// nothing to classify from.
func (e *Engine) FinalStatusList(ctx context.Context) map[board.Point]string {
	e.mu.Lock()
	root := e.lastRoot
	b := e.b
	e.mu.Unlock()

	out := map[board.Point]string{}
	if root == nil {
		return out
	}
	stats := mcts.Summarize(root)
	layout := b.Layout()
	for y := 0; y < layout.Size; y++ {
		for x := 0; x < layout.Size; x++ {
			p := layout.PointAt(x, y)
			c := b.ColorAt(p)
			if c != board.Black && c != board.White {
				continue
			}
			owner := mcts.FinalOwner(stats[p], 1-statusThreshold)
			if owner == c {
				out[p] = "alive"
			} else {
				out[p] = "dead"
			}
		}
	}
	return out
}

// SetTimeLeft updates the remaining clock time used by the next search.
func (e *Engine) SetTimeLeft(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts.ConstTime = lang.Some(d)
}

// SetTimeSettings configures the main/byoyomi time budget (GTP
// "time_settings"). The core does not model byoyomi periods separately from
// main time (spec.md's time-control schedulers are an external collaborator,
// §1); main is folded directly into the per-move clock the time controller
// divides down.
func (e *Engine) SetTimeSettings(main, byoyomi time.Duration, stones int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts.ConstTime = lang.Some(main)
}

// SetPlayouts updates the per-move playout cap.
func (e *Engine) SetPlayouts(n int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts.Playouts = n
}
