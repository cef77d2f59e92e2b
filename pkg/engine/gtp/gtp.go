// Package gtp implements a Go Text Protocol driver over the engine façade:
// the subset of GTP verbs needed to play a rated game (boardsize, komi, play,
// genmove, undo, final_score, showboard) plus the cgos/lz-analyze extensions
// spectator tools expect (spec.md 6, "GTP surface").
package gtp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/igoengine/ishi/pkg/board"
	"github.com/igoengine/ishi/pkg/engine"
	"github.com/igoengine/ishi/pkg/uct"
	"github.com/seekerror/logw"
	"github.com/seekerror/stdlib/pkg/util/iox"
)

const ProtocolName = "gtp"

var knownCommands = []string{
	"protocol_version", "name", "version", "known_command", "list_commands",
	"quit", "boardsize", "clear_board", "komi", "play", "genmove", "undo",
	"final_score", "final_status_list", "showboard", "time_left", "time_settings",
	"fixed_handicap", "set_free_handicap",
	"lz-analyze", "lz-genmove_analyze", "cgos-genmove_analyze", "kgs-genmove_cleanup",
}

// Driver implements the GTP wire protocol over an engine.Engine.
type Driver struct {
	iox.AsyncCloser

	e *engine.Engine

	out chan<- string

	active atomic.Bool
}

func NewDriver(ctx context.Context, e *engine.Engine, in <-chan string) (*Driver, <-chan string) {
	out := make(chan string, 100)
	d := &Driver{
		AsyncCloser: iox.NewAsyncCloser(),
		e:           e,
		out:         out,
	}
	go d.process(ctx, in)
	return d, out
}

func (d *Driver) process(ctx context.Context, in <-chan string) {
	defer d.Close()
	defer close(d.out)

	logw.Infof(ctx, "GTP protocol initialized")

	for {
		select {
		case line, ok := <-in:
			if !ok {
				return
			}
			d.handle(ctx, line)

		case <-d.Closed():
			_, _ = d.e.Halt(ctx)
			return
		}
	}
}

func (d *Driver) handle(ctx context.Context, line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	fields := strings.Fields(line)
	id := ""
	if len(fields[0]) > 0 && isDigit(fields[0][0]) {
		id = fields[0]
		fields = fields[1:]
	}
	if len(fields) == 0 {
		d.reply(id, true, "")
		return
	}

	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	switch cmd {
	case "protocol_version":
		d.reply(id, true, "2")
	case "name":
		d.reply(id, true, d.e.Name())
	case "version":
		d.reply(id, true, "1.0")
	case "known_command":
		d.reply(id, true, boolStr(len(args) > 0 && known(args[0])))
	case "list_commands":
		d.reply(id, true, strings.Join(knownCommands, "\n"))
	case "quit":
		d.reply(id, true, "")
		d.Close()
	case "boardsize":
		if len(args) == 0 {
			d.reply(id, false, "missing size")
			return
		}
		size, err := strconv.Atoi(args[0])
		if err != nil {
			d.reply(id, false, "invalid size")
			return
		}
		opt := d.e.Options()
		if err := d.e.Reset(ctx, size, opt.Komi, opt.Superko); err != nil {
			d.reply(id, false, err.Error())
			return
		}
		d.reply(id, true, "")
	case "clear_board":
		opt := d.e.Options()
		_ = d.e.Reset(ctx, opt.Size, opt.Komi, opt.Superko)
		d.reply(id, true, "")
	case "komi":
		if len(args) == 0 {
			d.reply(id, false, "missing komi")
			return
		}
		komi, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			d.reply(id, false, "invalid komi")
			return
		}
		opt := d.e.Options()
		_ = d.e.Reset(ctx, opt.Size, komi, opt.Superko)
		d.reply(id, true, "")
	case "play":
		if len(args) < 2 {
			d.reply(id, false, "usage: play <color> <vertex>")
			return
		}
		c, err := parseColor(args[0])
		if err != nil {
			d.reply(id, false, err.Error())
			return
		}
		p, err := d.e.Board().Layout().ParseGTPVertex(args[1])
		if err != nil {
			d.reply(id, false, err.Error())
			return
		}
		if err := d.e.Play(ctx, p, c); err != nil {
			d.reply(id, false, err.Error())
			return
		}
		d.reply(id, true, "")
	case "genmove":
		d.genMove(ctx, id, args)
	case "undo":
		if err := d.e.TakeBack(ctx); err != nil {
			d.reply(id, false, err.Error())
			return
		}
		d.reply(id, true, "")
	case "final_score":
		score := d.e.FinalScore(ctx)
		d.reply(id, true, formatScore(score))
	case "final_status_list":
		d.replyFinalStatusList(ctx, id, args)
	case "showboard":
		d.reply(id, true, "\n"+renderBoard(d.e.Board()))
	case "time_left":
		if len(args) >= 2 {
			if secs, err := strconv.Atoi(args[1]); err == nil {
				d.e.SetTimeLeft(time.Duration(secs) * time.Second)
			}
		}
		d.reply(id, true, "")
	case "time_settings":
		main, byoyomi, stones := 0, 0, 0
		if len(args) >= 1 {
			main, _ = strconv.Atoi(args[0])
		}
		if len(args) >= 2 {
			byoyomi, _ = strconv.Atoi(args[1])
		}
		if len(args) >= 3 {
			stones, _ = strconv.Atoi(args[2])
		}
		d.e.SetTimeSettings(time.Duration(main)*time.Second, time.Duration(byoyomi)*time.Second, stones)
		d.reply(id, true, "")
	case "kgs-genmove_cleanup":
		// Routed straight through genmove's path with no cleanup-specific move
		// rules: cleanup-pass move generation is out of the core's scope
		// (spec.md 1).
		d.genMove(ctx, id, args)
	case "fixed_handicap":
		d.fixedHandicap(ctx, id, args)
	case "set_free_handicap":
		d.freeHandicap(ctx, id, args)
	case "lz-analyze":
		d.streamAnalysis(ctx, id, args, d.formatLZLine, commitNone)
	case "lz-genmove_analyze":
		d.streamAnalysis(ctx, id, args, d.formatLZLine, commitVertex)
	case "cgos-genmove_analyze":
		d.streamAnalysis(ctx, id, args, d.formatCGOSLine, commitPlayLine)
	default:
		d.reply(id, false, "unknown command")
	}
}

// fixedHandicap places n stones on the standard star points for the current
// board size and replies with their vertices (spec.md 6, "fixed_handicap").
func (d *Driver) fixedHandicap(ctx context.Context, id string, args []string) {
	if len(args) == 0 {
		d.reply(id, false, "usage: fixed_handicap <n>")
		return
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		d.reply(id, false, "invalid handicap")
		return
	}
	layout := d.e.Board().Layout()
	pts, err := handicapPoints(layout, n)
	if err != nil {
		d.reply(id, false, err.Error())
		return
	}
	var vertices []string
	for _, p := range pts {
		if err := d.e.Play(ctx, p, board.Black); err != nil {
			d.reply(id, false, err.Error())
			return
		}
		vertices = append(vertices, layout.GTPVertex(p))
	}
	d.reply(id, true, strings.Join(vertices, " "))
}

// freeHandicap places the caller-chosen handicap stones (spec.md 6,
// "set_free_handicap").
func (d *Driver) freeHandicap(ctx context.Context, id string, args []string) {
	if len(args) == 0 {
		d.reply(id, false, "usage: set_free_handicap <vertex>...")
		return
	}
	layout := d.e.Board().Layout()
	for _, arg := range args {
		p, err := layout.ParseGTPVertex(arg)
		if err != nil {
			d.reply(id, false, err.Error())
			return
		}
		if err := d.e.Play(ctx, p, board.Black); err != nil {
			d.reply(id, false, err.Error())
			return
		}
	}
	d.reply(id, true, "")
}

// handicapPoints returns the standard star-point placement for n handicap
// stones: the four corner stars, then the side stars, with the center point
// taking the odd stone for n of 5, 7, or 9.
func handicapPoints(layout board.Layout, n int) ([]board.Point, error) {
	size := layout.Size
	if size < 7 {
		return nil, fmt.Errorf("board too small for fixed handicap")
	}
	edge := 3
	if size < 13 {
		edge = 2
	}
	lo, hi, mid := edge, size-1-edge, (size-1)/2
	stars := [][2]int{
		{lo, lo}, {hi, hi}, {hi, lo}, {lo, hi}, // corners
		{lo, mid}, {hi, mid}, {mid, lo}, {mid, hi}, // sides
	}
	max := 9
	if size%2 == 0 {
		max = 4 // no center or side stars without a middle line
	}
	if n < 2 || n > max {
		return nil, fmt.Errorf("handicap must be in [2,%d]", max)
	}

	var coords [][2]int
	if n%2 == 1 && n >= 5 {
		coords = append(coords, stars[:n-1]...)
		coords = append(coords, [2]int{mid, mid})
	} else {
		coords = stars[:n]
	}
	out := make([]board.Point, len(coords))
	for i, c := range coords {
		out[i] = layout.PointAt(c[0], c[1])
	}
	return out, nil
}

// genMove runs GenMove for the color named in args (Black if unspecified) and
// replies with the chosen vertex. Shared by "genmove" and
// "kgs-genmove_cleanup".
func (d *Driver) genMove(ctx context.Context, id string, args []string) {
	c := board.Black
	if len(args) > 0 {
		if parsed, err := parseColor(args[0]); err == nil {
			c = parsed
		}
	}
	p, err := d.e.GenMove(ctx, c)
	if err != nil {
		d.reply(id, false, err.Error())
		return
	}
	d.reply(id, true, d.e.Board().Layout().GTPVertex(p))
}

// replyFinalStatusList implements "final_status_list {dead,alive}" from the
// most recently completed search's ownership statistics (spec.md 6).
func (d *Driver) replyFinalStatusList(ctx context.Context, id string, args []string) {
	want := "dead"
	if len(args) > 0 {
		want = strings.ToLower(args[0])
	}
	status := d.e.FinalStatusList(ctx)
	layout := d.e.Board().Layout()
	var vertices []string
	for p, s := range status {
		if s == want {
			vertices = append(vertices, layout.GTPVertex(p))
		}
	}
	d.reply(id, true, strings.Join(vertices, " "))
}

// commitMode selects how an analysis stream finishes: pure analysis leaves
// the board alone, while the genmove_analyze variants commit the chosen move
// and emit it -- as a bare vertex (lz-genmove_analyze) or a trailing
// "play <vertex>" line (cgos-genmove_analyze) per spec.md 6.
type commitMode int

const (
	commitNone commitMode = iota
	commitVertex
	commitPlayLine
)

// streamAnalysis drives the lz-analyze family: periodic snapshots from a
// background search, one rendered line per interval, until the search ends
// (spec.md 6, "Analysis output").
func (d *Driver) streamAnalysis(ctx context.Context, id string, args []string, format func(uct.Result) string, mode commitMode) {
	c := board.Black
	if len(args) > 0 {
		if parsed, err := parseColor(args[0]); err == nil {
			c = parsed
		}
	}
	interval := 100 * time.Millisecond
	if len(args) > 1 {
		if cs, err := strconv.Atoi(args[1]); err == nil && cs > 0 {
			interval = time.Duration(cs) * 10 * time.Millisecond
		}
	}

	out, err := d.e.Analyze(ctx, c, interval)
	if err != nil {
		d.reply(id, false, err.Error())
		return
	}
	d.active.Store(true)
	d.out <- equalPrefix(id)
	go func() {
		var last uct.Result
		for r := range out {
			last = r
			d.out <- format(r)
		}
		d.active.Store(false)
		if mode != commitNone {
			if err := d.e.Play(ctx, last.Move, c); err != nil {
				d.out <- fmt.Sprintf("? %v", err)
				d.out <- ""
				return
			}
		}
		layout := d.e.Board().Layout()
		switch mode {
		case commitVertex:
			d.out <- layout.GTPVertex(last.Move)
		case commitPlayLine:
			d.out <- fmt.Sprintf("play %v", layout.GTPVertex(last.Move))
		}
		d.out <- ""
	}()
}

func equalPrefix(id string) string {
	if id != "" {
		return "=" + id
	}
	return "="
}

// formatLZLine renders lz-analyze's "info move V visits N winrate W prior P
// lcb L order K pv V" segments, one per ranked root child, concatenated onto
// a single line in winrate-descending order; winrate/prior/lcb are integers
// in [0, 10000] (spec.md 6). The pv is the move itself: the tree keeps no
// principal variation past the root.
func (d *Driver) formatLZLine(r uct.Result) string {
	layout := d.e.Board().Layout()
	moves := append([]uct.MoveInfo(nil), r.Moves...)
	sortByWinrateDescending(moves)

	var sb strings.Builder
	for _, m := range moves {
		v := layout.GTPVertex(m.Move)
		fmt.Fprintf(&sb, "info move %v visits %v winrate %v prior %v lcb %v order %v pv %v ",
			v, m.Visits, int(m.WinRate*10000), int(m.Prior*10000), int(m.LCB*10000), m.Order, v)
	}
	return strings.TrimSpace(sb.String())
}

// formatCGOSLine renders the cgos-genmove_analyze JSON object: overall
// winrate/visits, per-move stats, and a base-62 per-point ownership string
// (spec.md 6).
func (d *Driver) formatCGOSLine(r uct.Result) string {
	layout := d.e.Board().Layout()
	moves := append([]uct.MoveInfo(nil), r.Moves...)
	sortByWinrateDescending(moves)

	type moveJSON struct {
		Move    string `json:"move"`
		Winrate int    `json:"winrate"`
		Prior   int    `json:"prior"`
		PV      string `json:"pv"`
		Visits  int64  `json:"visits"`
	}
	type payload struct {
		Winrate   int        `json:"winrate"`
		Visits    int64      `json:"visits"`
		Moves     []moveJSON `json:"moves"`
		Ownership string     `json:"ownership"`
		Comment   string     `json:"comment"`
	}

	p := payload{
		Winrate:   int(r.WinRate * 10000),
		Visits:    r.Playouts,
		Ownership: encodeOwnershipBase62(r.Ownership),
		Comment:   "",
	}
	for _, m := range moves {
		p.Moves = append(p.Moves, moveJSON{
			Move:    layout.GTPVertex(m.Move),
			Winrate: int(m.WinRate * 10000),
			Prior:   int(m.Prior * 10000),
			PV:      layout.GTPVertex(m.Move),
			Visits:  m.Visits,
		})
	}
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(body)
}

func sortByWinrateDescending(m []uct.MoveInfo) {
	for i := 1; i < len(m); i++ {
		for j := i; j > 0 && m[j].WinRate > m[j-1].WinRate; j-- {
			m[j], m[j-1] = m[j-1], m[j]
		}
	}
}

// base62Alphabet renders ownership as the digits-then-letters alphabet most
// GTP analysis extensions use for compact per-point encodings.
const base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// encodeOwnershipBase62 maps each point's fraction-Black-owned value in
// [0,1] onto one base-62 character (0 == fully White, 61 == fully Black).
func encodeOwnershipBase62(ownership []float64) string {
	out := make([]byte, len(ownership))
	for i, v := range ownership {
		idx := int(v * float64(len(base62Alphabet)-1))
		if idx < 0 {
			idx = 0
		}
		if idx > len(base62Alphabet)-1 {
			idx = len(base62Alphabet) - 1
		}
		out[i] = base62Alphabet[idx]
	}
	return string(out)
}

func (d *Driver) reply(id string, ok bool, body string) {
	prefix := "="
	if !ok {
		prefix = "?"
	}
	if id != "" {
		prefix += id
	}
	d.out <- fmt.Sprintf("%v %v", prefix, body)
	d.out <- ""
}

func parseColor(s string) (board.Color, error) {
	switch strings.ToLower(s) {
	case "b", "black":
		return board.Black, nil
	case "w", "white":
		return board.White, nil
	default:
		return board.Empty, fmt.Errorf("invalid color: %v", s)
	}
}

func formatScore(score float64) string {
	switch {
	case score > 0:
		return fmt.Sprintf("B+%.1f", score)
	case score < 0:
		return fmt.Sprintf("W+%.1f", -score)
	default:
		return "0"
	}
}

func renderBoard(b *board.Board) string {
	layout := b.Layout()
	var sb strings.Builder
	for y := layout.Size - 1; y >= 0; y-- {
		for x := 0; x < layout.Size; x++ {
			sb.WriteString(b.ColorAt(layout.PointAt(x, y)).String())
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func known(cmd string) bool {
	for _, c := range knownCommands {
		if c == cmd {
			return true
		}
	}
	return false
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
