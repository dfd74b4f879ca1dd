// Package pattrns implements a musical event sequence generator: given a
// user-authored pattern description, it produces a deterministic,
// time-stamped stream of note and parameter events for a host audio engine
// to consume. It does not produce audio samples itself.
package pattrns

import (
	"encoding/binary"
	"sort"

	"github.com/google/uuid"

	"github.com/renoise/pattrns/internal/cycle"
	"github.com/renoise/pattrns/internal/prng"
	"github.com/renoise/pattrns/internal/rational"
)

// TimeBase maps rational musical time to integer sample positions.
type TimeBase struct {
	BeatsPerMinute float64
	BeatsPerBar    uint32
	SamplesPerSec  uint32
}

// SamplesPerWholeNote returns samples_per_sec * 60 * beats_per_bar /
// beats_per_minute, the conversion factor rational.ToSamples needs.
func (t TimeBase) SamplesPerWholeNote() uint64 {
	if t.BeatsPerMinute <= 0 {
		return 0
	}
	v := float64(t.SamplesPerSec) * 60 * float64(t.BeatsPerBar) / t.BeatsPerMinute
	return uint64(v + 0.5)
}

func (t TimeBase) validate() error {
	if t.BeatsPerMinute <= 0 || t.BeatsPerBar == 0 || t.SamplesPerSec == 0 {
		return newError(ConfigErrorKind, nil, "invalid time base %+v", t)
	}
	return nil
}

// Event is one emitted, time-stamped note on a channel, ready for the host.
type Event struct {
	TimeSamples   uint64
	Channel       uint32
	Note          Note
	LengthSamples uint64
}

// Sink receives events in non-decreasing start-time order. Returning a
// non-nil error stops Run/RunUntil early and that error propagates to the
// caller; this is pattrns' cooperative-yield point (§5).
type Sink func(Event) error

// Pattern is the top-level scheduler composing the rational time base, RNG,
// parameter set and compiled cycle AST into a playable timeline (spec.md
// §4.I). A Pattern instance is not safe for concurrent use by multiple
// goroutines; the host may own many instances in parallel.
type Pattern struct {
	id   uuid.UUID
	root *cycle.Node
	ctx  *cycle.Context

	timeBase TimeBase
	trigger  []Note
	params   *ParameterSet
	mapFn    CycleMapFn

	seed uint64
	rng  *prng.Source

	curCycle rational.Rat // start of the next cycle run, in whole notes since t=0
	pending  []pendingEvent
	errSink  ErrorSink
}

// pendingEvent is a scheduled note still in rational time: materialising it
// to sample positions is deferred to delivery time so that a SetTimeBase
// call between buffering and delivery re-anchors correctly (spec.md §4.A)
// instead of baking in a now-stale sample position.
type pendingEvent struct {
	channel uint32
	note    Note
	start   rational.Rat
	length  rational.Rat
}

func (p *Pattern) materialize(pe pendingEvent, spwn uint64) Event {
	startSamples := rational.ToSamples(pe.start, spwn)
	endSamples := rational.ToSamples(pe.start.Add(pe.length), spwn)
	length := uint64(0)
	if endSamples > startSamples {
		length = endSamples - startSamples
	}
	return Event{TimeSamples: startSamples, Channel: pe.channel, Note: pe.note, LengthSamples: length}
}

// FromSource compiles mini-notation source and builds a ready-to-run
// Pattern. A parse failure aborts construction (§7 policy).
func FromSource(source string, timeBase TimeBase, trigger []Note) (*Pattern, error) {
	if err := timeBase.validate(); err != nil {
		return nil, err
	}
	root, err := cycle.Parse(source)
	if err != nil {
		if pe, ok := err.(*cycle.ParseError); ok {
			return nil, &Error{Kind: ParseErrorKind, Message: pe.Message, Span: &Span{Offset: pe.Offset, Line: pe.Line, Column: pe.Column}, Cause: err}
		}
		return nil, newError(ParseErrorKind, err, "%v", err)
	}
	id := uuid.New()
	return newPattern(root, timeBase, trigger, seedFromUUID(id), id), nil
}

// seedFromUUID derives a 64-bit RNG seed from a random uuid's low 8 bytes,
// giving each freshly constructed Pattern an independent default seed
// without reaching for a second source of randomness.
func seedFromUUID(id uuid.UUID) uint64 {
	return binary.LittleEndian.Uint64(id[8:16])
}

func newPattern(root *cycle.Node, timeBase TimeBase, trigger []Note, seed uint64, id uuid.UUID) *Pattern {
	params, _ := NewParameterSet()
	p := &Pattern{
		id:       id,
		root:     root,
		timeBase: timeBase,
		trigger:  trigger,
		params:   params,
		seed:     seed,
		errSink:  DefaultErrorSink,
	}
	p.rng = prng.New(p.seed)
	p.ctx = cycle.NewContext(p.rng.Clone())
	p.curCycle = rational.Zero
	return p
}

// Parameters returns the pattern's live parameter set.
func (p *Pattern) Parameters() *ParameterSet { return p.params }

// SetParameter clamps and stores a new value, observed by the next emitter
// invocation only (§4.I).
func (p *Pattern) SetParameter(id string, value float64) error {
	return p.params.Set(id, value)
}

// SamplesPerStep returns the pattern's step duration in samples, assuming
// an equal-width top-level subdivision of StepCount() steps.
func (p *Pattern) SamplesPerStep() float64 {
	n := p.StepCount()
	if n == 0 {
		return 0
	}
	return float64(p.timeBase.SamplesPerWholeNote()) / float64(n)
}

// StepCount returns channel 1's step count from the most recently completed
// run, or (if the pattern has not run yet) the number of direct children of
// its top-level subdivision as a pre-run estimate.
func (p *Pattern) StepCount() uint32 {
	if n := p.ctx.StepsSoFar(1); n > 0 {
		return uint32(n)
	}
	if p.root.Kind == cycle.KindSubdivision && len(p.root.Children) > 0 {
		return uint32(len(p.root.Children))
	}
	return 1
}

// SetTimeBase atomically swaps the time base. Per spec.md §4.A, this
// re-anchors the next event's timing from the pattern's exact rational
// position rather than its previously-computed sample position, so a tempo
// change never re-fires or skips an onset.
func (p *Pattern) SetTimeBase(tb TimeBase) error {
	if err := tb.validate(); err != nil {
		return err
	}
	p.timeBase = tb
	return nil
}

// SetTrigger replaces the root note event referenced by relative emitter
// expressions.
func (p *Pattern) SetTrigger(notes []Note) { p.trigger = notes }

// SetErrorSink replaces the sink notified of captured runtime errors.
func (p *Pattern) SetErrorSink(sink ErrorSink) {
	if sink == nil {
		sink = DefaultErrorSink
	}
	p.errSink = sink
}

// SetMapFn replaces the function mapping raw cycle events to notes/chords.
// A nil mapFn restores the default mapping (§4.E).
func (p *Pattern) SetMapFn(mapFn CycleMapFn) { p.mapFn = mapFn }

// Reset rewinds time to zero, reseeds the RNG from the original seed, and
// resets the cycle-run context (§4.I, §5).
func (p *Pattern) Reset() {
	p.rng = prng.New(p.seed)
	p.ctx = cycle.NewContext(p.rng.Clone())
	p.curCycle = rational.Zero
	p.pending = nil
}

// CloneInstance returns an independent Pattern sharing the immutable AST by
// reference but with a freshly seeded RNG and an independent parameter
// snapshot — the fix for the historical bug where clones shared parameter
// storage (spec.md §5, testable property 7).
func (p *Pattern) CloneInstance(tb TimeBase) *Pattern {
	clone := newPattern(p.root, tb, append([]Note(nil), p.trigger...), p.seed^0x9E3779B97F4A7C15, uuid.New())
	clone.params = p.params.Snapshot()
	clone.mapFn = p.mapFn
	clone.errSink = p.errSink
	return clone
}

// Run produces events indefinitely, calling sink once per event in
// time order, until sink returns a non-nil error.
func (p *Pattern) Run(sink Sink) error {
	const farFuture = ^uint64(0)
	for {
		if err := p.runCycles(farFuture, sink, false); err != nil {
			return err
		}
	}
}

// RunUntil produces all events with start time < deadline, in
// non-decreasing start-time order, then returns.
func (p *Pattern) RunUntil(deadlineSamples uint64, sink Sink) error {
	return p.runCycles(deadlineSamples, sink, false)
}

// AdvanceUntil behaves like RunUntil but discards events; used to seek.
func (p *Pattern) AdvanceUntil(deadlineSamples uint64) error {
	return p.runCycles(deadlineSamples, nil, true)
}

// runCycles drains the pending-event buffer (materialising sample positions
// from the pattern's current time base), refilling it one cycle run at a
// time, until an event would start at or after the deadline. Buffering
// undelivered events in rational time — rather than baking in sample
// positions at interpretation time — is what lets SetTimeBase re-anchor a
// call that was cut off mid-cycle (spec.md §4.A): the cycle-run context's
// own cycle counter only ever advances once per interpreted cycle, in
// lockstep with curCycle, regardless of how much of that cycle was
// delivered before the deadline.
func (p *Pattern) runCycles(deadlineSamples uint64, sink Sink, discard bool) error {
	spwn := p.timeBase.SamplesPerWholeNote()
	for {
		if len(p.pending) == 0 {
			cycleStart := p.curCycle
			raw := cycle.Interpret(p.root, p.ctx)
			p.curCycle = p.curCycle.Add(rational.FromInt(1))
			p.pending = p.toPending(raw, cycleStart)
			sort.SliceStable(p.pending, func(i, j int) bool {
				if !p.pending[i].start.Equal(p.pending[j].start) {
					return p.pending[i].start.Less(p.pending[j].start)
				}
				return p.pending[i].channel < p.pending[j].channel
			})
			if len(p.pending) == 0 {
				// An empty cycle (no onsets) would otherwise spin forever
				// without ever reaching the deadline; bail once the cycle
				// boundary itself has passed it.
				if rational.ToSamples(p.curCycle, spwn) >= deadlineSamples {
					return nil
				}
				continue
			}
		}
		for len(p.pending) > 0 {
			ev := p.materialize(p.pending[0], spwn)
			if ev.TimeSamples >= deadlineSamples {
				return nil
			}
			p.pending = p.pending[1:]
			if !discard {
				if err := sink(ev); err != nil {
					return err
				}
			}
		}
	}
}

// toPending maps one cycle run's raw events to pending notes anchored at
// cycleStart, leaving sample-time conversion for delivery time.
func (p *Pattern) toPending(raw []cycle.Event, cycleStart rational.Rat) []pendingEvent {
	pending := make([]pendingEvent, 0, len(raw))
	for _, ev := range raw {
		var payload any
		var err error
		if p.mapFn != nil {
			payload, err = p.mapFn(ev)
		} else {
			payload, err = defaultCycleMap(ev)
		}
		if err != nil {
			p.errSink(newError(RuntimeErrorKind, err, "emitter failed at step %d", ev.Step))
			continue
		}
		notes, err := resultToNotes(payload)
		if err != nil {
			p.errSink(newError(RuntimeErrorKind, err, "emitter failed at step %d", ev.Step))
			continue
		}
		if len(notes) == 0 {
			continue
		}
		absStart := cycleStart.Add(ev.Start)
		for _, n := range notes {
			if n.IsRest() {
				continue
			}
			pending = append(pending, pendingEvent{
				channel: uint32(ev.Channel),
				note:    n,
				start:   absStart,
				length:  ev.Length,
			})
		}
	}
	return pending
}
