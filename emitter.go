package pattrns

import (
	"github.com/renoise/pattrns/internal/cycle"
	"github.com/renoise/pattrns/internal/rational"
)

// EmitterContext is what emitter closures see: their position in the run,
// the gated pulse value that triggered them, the current rational time and
// time base, the trigger event, and a snapshot of the parameter set that
// will not change for the duration of this invocation (spec.md §4.J).
type EmitterContext struct {
	Step       int
	PulseValue PulseValue
	Time       rational.Rat
	TimeBase   TimeBase
	Trigger    []Note
	Params     *ParameterSet
}

// EmitterKind discriminates the four emitter shapes named in spec.md §4.H.
type EmitterKind int

const (
	EmitterStatic EmitterKind = iota
	EmitterFunc
	EmitterGenerator
	EmitterCycle
)

// EmitterFn is a dynamic-function or built-generator emitter closure. It
// returns a Note, a Chord, nil (silence), or an error, which Next returns to
// its caller.
type EmitterFn func(ctx *EmitterContext) (any, error)

// EmitterGeneratorFn is called once after each reset, on the first Next, to
// build a stateful EmitterFn.
type EmitterGeneratorFn func(ctx *EmitterContext) EmitterFn

// CycleMapFn replaces a raw cycle event's payload with a concrete note or
// chord. Returning (nil, nil) yields silence for that event.
type CycleMapFn func(ev cycle.Event) (any, error)

// Emitter is a tagged variant holding exactly one of the four emitter
// shapes, sharing the capability "next(context) -> events; reset()"
// without virtual dispatch (spec.md §9).
type Emitter struct {
	Kind EmitterKind

	Sequence []any // EmitterStatic: notes/chords, cycled
	Fn       EmitterFn
	Generator EmitterGeneratorFn

	CycleAST *cycle.Node
	CycleCtx *cycle.Context
	MapFn    CycleMapFn

	seqIdx  int
	builtFn EmitterFn // EmitterGenerator: built lazily on first Next
}

// Next consumes one gated pulse slot and returns zero or more concrete note
// events, each still needing its slot's absolute start time applied by the
// caller.
func (e *Emitter) Next(ctx *EmitterContext) ([]Note, error) {
	switch e.Kind {
	case EmitterStatic:
		return e.nextStatic()
	case EmitterFunc:
		payload, err := e.Fn(ctx)
		if err != nil {
			return nil, err
		}
		return resultToNotes(payload)
	case EmitterGenerator:
		if e.builtFn == nil {
			e.builtFn = e.Generator(ctx)
		}
		payload, err := e.builtFn(ctx)
		if err != nil {
			return nil, err
		}
		return resultToNotes(payload)
	case EmitterCycle:
		return e.nextCycle()
	default:
		return nil, nil
	}
}

// Reset rewinds any stateful emitter cursor (static sequence position,
// built generator closure, cycle-run context).
func (e *Emitter) Reset() {
	e.seqIdx = 0
	e.builtFn = nil
	if e.CycleCtx != nil {
		e.CycleCtx.Reset()
	}
}

func (e *Emitter) nextStatic() ([]Note, error) {
	if len(e.Sequence) == 0 {
		return nil, nil
	}
	item := e.Sequence[e.seqIdx%len(e.Sequence)]
	e.seqIdx++
	return resultToNotes(item)
}

func (e *Emitter) nextCycle() ([]Note, error) {
	if e.CycleAST == nil || e.CycleCtx == nil {
		return nil, nil
	}
	raw := cycle.Interpret(e.CycleAST, e.CycleCtx)
	var notes []Note
	for _, ev := range raw {
		var payload any
		var err error
		if e.MapFn != nil {
			payload, err = e.MapFn(ev)
		} else {
			payload, err = defaultCycleMap(ev)
		}
		if err != nil {
			return nil, err
		}
		ns, err := resultToNotes(payload)
		if err != nil {
			return nil, err
		}
		notes = append(notes, ns...)
	}
	return notes, nil
}

// resultToNotes normalises an emitter's returned payload (Note, Chord,
// []Note, or nil) into a flat []Note.
func resultToNotes(payload any) ([]Note, error) {
	switch v := payload.(type) {
	case nil:
		return nil, nil
	case Note:
		return []Note{v}, nil
	case Chord:
		return v.Notes, nil
	case []Note:
		return v, nil
	default:
		return nil, newError(RuntimeErrorKind, nil, "emitter returned unsupported type %T", v)
	}
}

// defaultCycleMap is the fallback payload mapping named in spec.md §4.E:
// numeric and pitch literals map to notes, unrecognised identifiers map to
// rests.
func defaultCycleMap(ev cycle.Event) (any, error) {
	note := Note{Key: KeyRest}
	switch ev.Kind {
	case cycle.KindRest:
		note.Key = KeyRest
	case cycle.KindPitch:
		key, err := ParseKey(ev.Raw)
		if err != nil {
			note.Key = KeyRest
		} else {
			note.Key = key
		}
	case cycle.KindChord:
		root, err := ParseKey(ev.Raw)
		if err != nil {
			return Note{Key: KeyRest}, nil
		}
		chord, err := NewChord(root, ev.ChordMode)
		if err != nil {
			return Note{Key: KeyRest}, nil
		}
		applyAttrs(chord.Notes, ev)
		return chord, nil
	case cycle.KindNumber:
		k := int(ev.Number)
		if k < 0 || k > 127 {
			note.Key = KeyRest
		} else {
			note.Key = k
		}
	case cycle.KindName:
		note.Key = KeyRest
	case cycle.KindTarget:
		note.Key = KeyRest
	default:
		note.Key = KeyRest
	}
	applyAttrs([]Note{note}, ev)
	return note, nil
}

func applyAttrs(notes []Note, ev cycle.Event) {
	for i := range notes {
		for attr, v := range ev.Attrs {
			v := v
			switch attr {
			case 'v':
				notes[i].Volume = &v
			case 'p':
				notes[i].Panning = &v
			case 'd':
				notes[i].Delay = &v
			case '#':
				inst := int(v)
				notes[i].Instrument = &inst
			}
		}
		for name, v := range ev.NamedAttrs {
			if notes[i].Params == nil {
				notes[i].Params = map[string]float64{}
			}
			notes[i].Params[name] = v
		}
	}
}
