package pattrns

// GateFunc decides whether a pulse slot passes through to the emitter
// stage. A gate never retimes pulses, only decides pass/drop (spec.md
// §4.G); it may consult ctx for probabilistic gating.
type GateFunc func(slot PulseSlot, ctx *PulseContext) bool

// DefaultGate accepts any slot whose value is non-zero.
func DefaultGate(slot PulseSlot, _ *PulseContext) bool {
	return !slot.Value.IsRest()
}
