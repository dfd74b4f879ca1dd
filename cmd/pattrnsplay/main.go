// Command pattrnsplay runs a mini-notation pattern and prints its event
// stream to the terminal, colour-coded per channel, until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"atomicgo.dev/keyboard"
	"atomicgo.dev/keyboard/keys"
	"github.com/fatih/color"

	"github.com/renoise/pattrns"
)

var channelColors = []func(format string, a ...any) string{
	color.New(color.FgCyan).SprintfFunc(),
	color.New(color.FgMagenta).SprintfFunc(),
	color.New(color.FgYellow).SprintfFunc(),
	color.New(color.FgGreen).SprintfFunc(),
	color.New(color.FgHiBlue).SprintfFunc(),
}

const (
	escape     = "\x1b["
	hideCursor = escape + "?25l"
	showCursor = escape + "?25h"
)

func main() {
	source := flag.String("pattern", "bd(3,8) sn", "mini-notation pattern to play")
	bpm := flag.Float64("bpm", 120, "beats per minute")
	beatsPerBar := flag.Uint("beats-per-bar", 4, "beats per bar")
	sampleRate := flag.Uint("sample-rate", 44100, "samples per second")
	cycles := flag.Uint("cycles", 0, "stop after this many cycles (0 = run until Ctrl-C)")
	flag.Parse()

	tb := pattrns.TimeBase{
		BeatsPerMinute: *bpm,
		BeatsPerBar:    uint32(*beatsPerBar),
		SamplesPerSec:  uint32(*sampleRate),
	}
	p, err := pattrns.FromSource(*source, tb, nil)
	if err != nil {
		log.Fatalf("pattrnsplay: %v", err)
	}

	runner := newRunner(p, tb)
	runner.setupSignalHandlers()
	runner.setupKeyboardHandlers()

	fmt.Print(hideCursor)
	defer fmt.Print(showCursor)

	var deadline uint64
	if *cycles > 0 {
		deadline = uint64(*cycles) * tb.SamplesPerWholeNote()
	} else {
		deadline = ^uint64(0)
	}

	if err := runner.run(deadline); err != nil {
		fmt.Fprintln(os.Stderr)
		log.Printf("pattrnsplay: %v", err)
	}
	runner.stop()
}

// runner drives a Pattern on the calling goroutine while a background
// goroutine listens for keyboard input to request an early stop — the same
// split the teacher's CLI demo uses between its audio callback and its
// keyboard-handling goroutine, adapted here since pattrnsplay has no audio
// device to own.
type runner struct {
	pattern  *pattrns.Pattern
	timeBase pattrns.TimeBase

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	paused bool
	mu     sync.Mutex
}

func newRunner(p *pattrns.Pattern, tb pattrns.TimeBase) *runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &runner{pattern: p, timeBase: tb, ctx: ctx, cancel: cancel}
}

func (r *runner) setupSignalHandlers() {
	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGINT)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		select {
		case <-r.ctx.Done():
		case <-sigch:
			r.cancel()
		}
	}()
}

func (r *runner) setupKeyboardHandlers() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		keyboard.Listen(func(key keys.Key) (stop bool, err error) {
			switch key.Code {
			case keys.CtrlC, keys.Escape, keys.RuneKey:
				if key.Code == keys.RuneKey && key.String() != "q" && key.String() != " " {
					return false, nil
				}
				if key.Code != keys.RuneKey || key.String() == "q" {
					r.cancel()
					return true, nil
				}
				r.togglePause()
			}
			return false, nil
		})
	}()
}

func (r *runner) togglePause() {
	r.mu.Lock()
	r.paused = !r.paused
	r.mu.Unlock()
}

func (r *runner) isPaused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused
}

// run plays the pattern until deadlineSamples or the context is cancelled,
// printing each event as it is produced.
func (r *runner) run(deadlineSamples uint64) error {
	return r.pattern.RunUntil(deadlineSamples, func(ev pattrns.Event) error {
		select {
		case <-r.ctx.Done():
			return r.ctx.Err()
		default:
		}
		for r.isPaused() {
			select {
			case <-r.ctx.Done():
				return r.ctx.Err()
			default:
			}
		}
		printEvent(ev)
		return nil
	})
}

func (r *runner) stop() {
	r.cancel()
	r.wg.Wait()
}

func printEvent(ev pattrns.Event) {
	paint := channelColors[int(ev.Channel-1)%len(channelColors)]
	key := "~"
	if !ev.Note.IsRest() {
		key = fmt.Sprintf("%d", ev.Note.Key)
	}
	fmt.Printf("%s  ch%-2d key=%-4s len=%d\n",
		paint("%8d", ev.TimeSamples), ev.Channel, key, ev.LengthSamples)
}
