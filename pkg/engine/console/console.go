// Package console implements a human-readable debug driver for the engine,
// independent of the GTP wire protocol.
package console

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/igoengine/ishi/pkg/board"
	"github.com/igoengine/ishi/pkg/engine"
	"github.com/seekerror/logw"
	"github.com/seekerror/stdlib/pkg/util/iox"
)

const ProtocolName = "console"

// Driver implements a console driver for debugging: print the board,
// play/undo moves, and stream analysis updates as plain text.
type Driver struct {
	iox.AsyncCloser

	e *engine.Engine

	out chan<- string

	active atomic.Bool // user is waiting for genmove/analysis to finish
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

	logw.Infof(ctx, "Console protocol initialized")

	d.out <- fmt.Sprintf("engine %v (%v)", d.e.Name(), d.e.Author())
	d.printBoard(ctx)

	for {
		select {
		case line, ok := <-in:
			if !ok {
				logw.Infof(ctx, "Input stream broken. Exiting")
				return
			}

			parts := strings.Split(strings.TrimSpace(line), " ")
			if len(parts) == 0 {
				break
			}

			cmd := parts[0]
			args := parts[1:]

			switch strings.ToLower(cmd) {
			case "reset", "r":
				// reset [<size>] [<komi>]
				d.ensureInactive(ctx)

				size := 19
				komi := 6.5
				if len(args) > 0 {
					if v, err := strconv.Atoi(args[0]); err == nil {
						size = v
					}
				}
				if len(args) > 1 {
					if v, err := strconv.ParseFloat(args[1], 64); err == nil {
						komi = v
					}
				}
				if err := d.e.Reset(ctx, size, komi, true); err != nil {
					logw.Errorf(ctx, "Invalid reset: %v", line)
					return
				}
				d.printBoard(ctx)

			case "undo", "u":
				d.ensureInactive(ctx)
				_ = d.e.TakeBack(ctx)
				d.printBoard(ctx)

			case "print", "p":
				d.printBoard(ctx)

			case "genmove", "g":
				d.ensureInactive(ctx)
				c := colorFromArgs(args)
				d.active.Store(true)

				go func() {
					p, err := d.e.GenMove(ctx, c)
					if d.active.CompareAndSwap(true, false) {
						if err != nil {
							d.out <- fmt.Sprintf("genmove failed: %v", err)
							return
						}
						d.out <- fmt.Sprintf("= %v", d.e.Board().Layout().GTPVertex(p))
					}
				}()

			case "analyze", "a":
				d.ensureInactive(ctx)
				c := colorFromArgs(args)

				out, err := d.e.Analyze(ctx, c, 500*time.Millisecond)
				if err != nil {
					logw.Errorf(ctx, "Analyze failed: %v", err)
					return
				}
				d.active.Store(true)
				cgos := d.e.Options().CGOSFormat

				go func() {
					for r := range out {
						if cgos {
							d.out <- fmt.Sprintf(`{"winrate":%v,"visits":%v,"moves":[{"move":%q,"visits":%v,"winrate":%v}]}`,
								r.WinRate, r.Playouts, d.e.Board().Layout().GTPVertex(r.Move), r.Playouts, r.WinRate)
						} else {
							d.out <- fmt.Sprintf("playouts=%v move=%v winrate=%.3f", r.Playouts, d.e.Board().Layout().GTPVertex(r.Move), r.WinRate)
						}
					}
					d.active.Store(false)
				}()

			case "playouts":
				if len(args) > 0 {
					if n, err := strconv.Atoi(args[0]); err == nil {
						d.e.SetPlayouts(int64(n))
					}
				}

			case "time", "t":
				if len(args) > 0 {
					if secs, err := strconv.Atoi(args[0]); err == nil {
						d.e.SetTimeLeft(time.Duration(secs) * time.Second)
					}
				}

			case "halt", "stop":
				_, _ = d.e.Halt(ctx)
				d.active.Store(false)

			case "quit", "exit", "q":
				d.ensureInactive(ctx)
				return

			case "":
				// ignore empty command

			default:
				// Assume a move vertex if not a recognized command.
				d.ensureInactive(ctx)
				p, err := d.e.Board().Layout().ParseGTPVertex(cmd)
				if err != nil {
					d.out <- fmt.Sprintf("invalid command or move: '%v'", cmd)
					break
				}
				if err := d.e.Play(ctx, p, board.Black); err != nil {
					d.out <- fmt.Sprintf("invalid move: '%v': %v", cmd, err)
				} else {
					d.printBoard(ctx)
				}
			}

		case <-d.Closed():
			d.ensureInactive(ctx)
			logw.Infof(ctx, "Driver closed")
			return
		}
	}
}

func colorFromArgs(args []string) board.Color {
	if len(args) > 0 && strings.EqualFold(args[0], "white") {
		return board.White
	}
	return board.Black
}

func (d *Driver) ensureInactive(ctx context.Context) {
	d.active.Store(false)
	_, _ = d.e.Halt(ctx)
}

func (d *Driver) printBoard(ctx context.Context) {
	b := d.e.Board()
	layout := b.Layout()
	size := layout.Size

	d.out <- ""
	var header strings.Builder
	header.WriteString("   ")
	for x := 0; x < size; x++ {
		header.WriteString(fmt.Sprintf(" %v", columnLetter(x)))
	}
	d.out <- header.String()

	for y := size - 1; y >= 0; y-- {
		var row strings.Builder
		row.WriteString(fmt.Sprintf("%2d ", y+1))
		for x := 0; x < size; x++ {
			row.WriteString(" ")
			row.WriteString(b.ColorAt(layout.PointAt(x, y)).String())
		}
		d.out <- row.String()
	}
	d.out <- ""
	d.out <- fmt.Sprintf("turn: %v, komi: %v, hash: 0x%x", b.Turn(), b.Komi(), b.Hash())
	d.out <- ""
}

func columnLetter(x int) rune {
	col := rune('A' + x)
	if col >= 'I' {
		col++
	}
	return col
}
