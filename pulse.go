package pattrns

import (
	"github.com/renoise/pattrns/internal/prng"
	"github.com/renoise/pattrns/internal/rational"
)

// PulseValue is a rhythmic emphasis sample in [-1.0, 1.0]; zero is a rest.
type PulseValue float64

// IsRest reports whether v carries no pulse.
func (v PulseValue) IsRest() bool { return v == 0 }

// PulseSlot is one unit emission from the pulse stage: a duration, a value,
// and (for a gated sub-pulse) the sub-slots sharing that duration equally.
type PulseSlot struct {
	Start rational.Rat
	Length rational.Rat
	Value  PulseValue
	Sub    []PulseSlot
}

// PulseContext is what a pulse generator closure sees: its position in the
// run and a forked RNG branch for any sampling it needs to do.
type PulseContext struct {
	Cycle int
	Step  int
	RNG   *prng.Source
}

// PulseKind discriminates the three pulse-stage shapes named in spec.md
// §4.F: a static list, a generator closure, and a gate-repeat form.
type PulseKind int

const (
	PulseStatic PulseKind = iota
	PulseGenerator
	PulseGateRepeat
)

// PulseGeneratorFunc produces the next pulse slot's raw value: a single
// PulseValue, a []PulseValue (a gated sub-pulse sharing the slot equally),
// or nil (a rest).
type PulseGeneratorFunc func(ctx *PulseContext) any

// Pulse is a tagged variant holding exactly one of the three pulse-stage
// shapes, per pattrns' avoidance of virtual dispatch for stage variants
// (spec.md §9).
type Pulse struct {
	Kind PulseKind

	Values []PulseValue       // PulseStatic
	Fn     PulseGeneratorFunc // PulseGenerator

	RepeatValues []PulseValue // PulseGateRepeat: the list to repeat
	RepeatCount  int          // PulseGateRepeat: times to repeat each value

	idx int // PulseStatic/PulseGateRepeat cursor
}

// Next advances the pulse stage by one step width inside [start, start+length)
// and returns the produced slot.
func (p *Pulse) Next(ctx *PulseContext, start, length rational.Rat) PulseSlot {
	switch p.Kind {
	case PulseGenerator:
		return pulseSlotFromRaw(p.Fn(ctx), start, length)
	case PulseGateRepeat:
		if len(p.RepeatValues) == 0 {
			return PulseSlot{Start: start, Length: length}
		}
		rep := p.RepeatCount
		if rep < 1 {
			rep = 1
		}
		total := len(p.RepeatValues) * rep
		v := p.RepeatValues[(p.idx/rep)%len(p.RepeatValues)]
		p.idx = (p.idx + 1) % total
		return PulseSlot{Start: start, Length: length, Value: v}
	default: // PulseStatic
		if len(p.Values) == 0 {
			return PulseSlot{Start: start, Length: length}
		}
		v := p.Values[p.idx%len(p.Values)]
		p.idx++
		return PulseSlot{Start: start, Length: length, Value: v}
	}
}

// Reset rewinds the pulse stage's internal cursor, for PulseStatic and
// PulseGateRepeat.
func (p *Pulse) Reset() { p.idx = 0 }

func pulseSlotFromRaw(raw any, start, length rational.Rat) PulseSlot {
	switch v := raw.(type) {
	case nil:
		return PulseSlot{Start: start, Length: length}
	case PulseValue:
		return PulseSlot{Start: start, Length: length, Value: v}
	case float64:
		return PulseSlot{Start: start, Length: length, Value: PulseValue(v)}
	case []PulseValue:
		sub := make([]PulseSlot, len(v))
		subLen := length.Div(rational.FromInt(int64(len(v))))
		offset := start
		for i, sv := range v {
			sub[i] = PulseSlot{Start: offset, Length: subLen, Value: sv}
			offset = offset.Add(subLen)
		}
		return PulseSlot{Start: start, Length: length, Sub: sub}
	default:
		return PulseSlot{Start: start, Length: length}
	}
}
