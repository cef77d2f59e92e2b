package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/igoengine/ishi/pkg/engine"
	"github.com/igoengine/ishi/pkg/engine/console"
	"github.com/igoengine/ishi/pkg/engine/gtp"
	"github.com/seekerror/logw"
	"github.com/seekerror/stdlib/pkg/lang"
)

var (
	playouts     = flag.Int64("playout", 0, "Playouts per move (0 == unbounded, time-limited only)")
	constTime    = flag.Duration("const-time", 0, "Fixed per-move thinking time, e.g. 5s (0 == use time left)")
	timeLeft     = flag.Duration("time", 0, "Initial time left on the clock")
	size         = flag.Int("size", 19, "Board size: 9, 13, or 19")
	threads      = flag.Int("thread", 1, "Number of parallel playout workers")
	komi         = flag.Float64("komi", 6.5, "Komi added to White's score")
	handicap     = flag.Int("handicap", 0, "Number of handicap stones for Black (0 == even game)")
	reuseSubtree = flag.Bool("reuse-subtree", false, "Reuse the search tree across moves")
	pondering    = flag.Bool("pondering", false, "Ponder during the opponent's clock")
	treeSize     = flag.Int("tree-size", 0, "Transposition table capacity in node slots (0 == disabled)")
	noDebug      = flag.Bool("no-debug", false, "Suppress debug-level logging")
	superko      = flag.Bool("superko", true, "Enforce positional superko in addition to the basic ko rule")
	resign       = flag.Float64("resign", 0, "Resign when the leading child's win rate falls below this value (0 == never)")
	cgos         = flag.Bool("cgos", false, "Emit CGOS-flavored genmove_analyze output instead of lz-analyze")
	paramsDir    = flag.String("params", "", "Directory holding sim_params/ and uct_params/ weight files")
)

func init() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, `usage: ishi [options]

ISHI is a parallel Monte-Carlo tree search engine for the game of Go.
Options:
`)
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()
	ctx := context.Background()

	if *treeSize > 0 && *treeSize&(*treeSize-1) != 0 {
		logw.Exitf(ctx, "--tree-size must be a power of two, got %v", *treeSize)
	}
	if *resign < 0 || *resign > 1 {
		logw.Exitf(ctx, "--resign must be in [0,1], got %v", *resign)
	}
	if *handicap > 0 {
		logw.Infof(ctx, "Handicap stones are not placed automatically; pass them via GTP 'play' before the first move")
	}

	opts := engine.Options{
		Threads:      *threads,
		Playouts:     *playouts,
		Size:         *size,
		Komi:         *komi,
		Superko:      *superko,
		ReuseSubtree: *reuseSubtree,
		TreeSize:     *treeSize,
		Pondering:    *pondering,
		Debug:        !*noDebug,
		CGOSFormat:   *cgos,
	}
	if *constTime > 0 {
		opts.ConstTime = lang.Some(*constTime)
	}
	if *resign > 0 {
		opts.Resign = lang.Some(*resign)
	}

	if *pondering && !*reuseSubtree {
		logw.Infof(ctx, "Pondering without --reuse-subtree retains nothing; enable both to benefit")
	}

	e := engine.New(ctx, "ishi", "igoengine", engine.WithOptions(opts))
	if *paramsDir != "" {
		if err := e.LoadParams(ctx, *paramsDir); err != nil {
			logw.Exitf(ctx, "Loading parameters from %v: %v", *paramsDir, err)
		}
	}
	if *timeLeft > 0 {
		e.SetTimeLeft(*timeLeft)
	}

	in := engine.ReadStdinLines(ctx)
	switch <-in {
	case gtp.ProtocolName:
		driver, out := gtp.NewDriver(ctx, e, in)
		go engine.WriteStdoutLines(ctx, out)

		<-driver.Closed()

	case console.ProtocolName:
		driver, out := console.NewDriver(ctx, e, in)
		go engine.WriteStdoutLines(ctx, out)

		<-driver.Closed()

	default:
		flag.Usage()
		logw.Exitf(ctx, "Protocol not supported")
	}
}
