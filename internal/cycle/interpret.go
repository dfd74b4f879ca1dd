package cycle

import (
	"strconv"

	"github.com/renoise/pattrns/internal/prng"
	"github.com/renoise/pattrns/internal/rational"
)

// Event is one time-stamped, per-channel output of one cycle run: a raw
// mini-notation payload plus the interval it occupies within the unit cycle
// [0,1). A subsequent, caller-supplied map function (see pattrns' emitter
// stage) turns this into a concrete note or parameter event.
type Event struct {
	Channel int // 1-based
	Step    int // 1-based since the context's last Reset
	Start   rational.Rat
	Length  rational.Rat

	Kind      Kind // Rest, Pitch, Chord, Number, Name, or Target
	Raw       string
	Number    float64
	ChordMode string

	Attrs      map[byte]float64  // from ':'-chained v/p/d/# operators
	NamedAttrs map[string]float64
}

// Context holds per-run interpreter state that must persist across
// consecutive cycle runs of the same pattern instance: the run counter that
// drives alternation and polymeter phase, the RNG, and step counters per
// channel. A fresh Context is created on every pattern Reset.
type Context struct {
	Cycle int
	RNG   *prng.Source

	stepCounters map[int]int
	polyPhase    map[*Node]int
}

// NewContext creates run state seeded from rng. Ownership of rng passes to
// the Context; callers that need the unconsumed RNG elsewhere should Clone
// it first.
func NewContext(rng *prng.Source) *Context {
	return &Context{RNG: rng, stepCounters: map[int]int{}, polyPhase: map[*Node]int{}}
}

// Reset rewinds run state to the start, as if the pattern had never played.
// It does not reseed the RNG; callers that want reproducible restarts
// should replace ctx.RNG with a freshly seeded source themselves.
func (c *Context) Reset() {
	c.Cycle = 0
	c.stepCounters = map[int]int{}
	c.polyPhase = map[*Node]int{}
}

func (c *Context) nextStep(channel int) int {
	c.stepCounters[channel]++
	return c.stepCounters[channel]
}

// StepsSoFar returns how many steps channel has emitted since the last
// Reset, for hosts that want to size a step grid without re-running the
// interpreter.
func (c *Context) StepsSoFar(channel int) int { return c.stepCounters[channel] }

// Interpret evaluates one cycle run of root and returns its events in
// evaluation order: a sequence's steps in time order, a stack's branches in
// channel-ascending order. The result is not sorted by channel overall
// ("[a, b] c" yields channels 1, 2, 1). It then advances ctx.Cycle.
func Interpret(root *Node, ctx *Context) []Event {
	var events []Event
	eval(root, ctx, 1, rational.FromInt(0), rational.FromInt(1), &events)
	ctx.Cycle++
	return events
}

// channelCount returns how many concurrent channels n occupies: the sum of
// its children's channel counts through Stack/Channels, the max through any
// other composite (Subdivision/Alternation/Polymeter/Choice, since only one
// of their children is "live" at a given instant, but the widest one sets
// the pattern's channel count for its whole run), or 1 for a leaf.
func channelCount(n *Node) int {
	switch n.Kind {
	case KindStack, KindChannels:
		total := 0
		for _, c := range n.Children {
			total += channelCount(c)
		}
		if total == 0 {
			return 1
		}
		return total
	case KindSubdivision, KindAlternation, KindPolymeter, KindChoice:
		max := 1
		for _, c := range n.Children {
			if cc := channelCount(c); cc > max {
				max = cc
			}
		}
		return max
	default:
		return 1
	}
}

// ChannelCount exposes channelCount for the scheduler, which needs to know
// the channel fan-out of a compiled pattern up front.
func ChannelCount(root *Node) int { return channelCount(root) }

// eval evaluates node over [start, start+length) on the channel range
// beginning at baseChannel, appending produced events (in evaluation order)
// to *out. It is the single recursive function the AST's tagged Kind drives,
// per pattrns' design notes against virtual dispatch.
func eval(n *Node, ctx *Context, baseChannel int, start, length rational.Rat, out *[]Event) {
	// Operators apply in a fixed pipeline, independent of their parse
	// order, since each has a well-defined effect regardless of sequence:
	// euclidean expansion first (it restructures time), then slow (gates
	// whole runs), then fast (subdivides time), then the base shape. Degrade
	// and target operators are read only by emitLeaf, so they take effect on
	// single atoms (and on every copy a euclid/slow/fast expansion makes of
	// one); on a group node they are not applied to the group's events.
	if op, ok := findOp(n, OpEuclid); ok {
		evalEuclid(n, op, ctx, baseChannel, start, length, out)
		return
	}
	if op, ok := findOp(n, OpSlow); ok {
		evalSlow(n, op, ctx, baseChannel, start, length, out)
		return
	}
	if op, ok := findOp(n, OpFast); ok {
		evalFast(n, op, ctx, baseChannel, start, length, out)
		return
	}

	switch n.Kind {
	case KindStack, KindChannels:
		evalStack(n, ctx, baseChannel, start, length, out)
	case KindSubdivision:
		evalSubdivision(n, ctx, baseChannel, start, length, out)
	case KindAlternation:
		evalAlternation(n, ctx, baseChannel, start, length, out)
	case KindPolymeter:
		evalPolymeter(n, ctx, baseChannel, start, length, out)
	case KindChoice:
		evalChoice(n, ctx, baseChannel, start, length, out)
	default:
		emitLeaf(n, ctx, baseChannel, start, length, out)
	}
}

func findOp(n *Node, kind OpKind) (Op, bool) {
	for _, op := range n.Ops {
		if op.Kind == kind {
			return op, true
		}
	}
	return Op{}, false
}

func withoutOp(n *Node, kind OpKind) *Node {
	clone := *n
	clone.Ops = nil
	for _, op := range n.Ops {
		if op.Kind != kind {
			clone.Ops = append(clone.Ops, op)
		}
	}
	return &clone
}

func evalEuclid(n *Node, op Op, ctx *Context, baseChannel int, start, length rational.Rat, out *[]Event) {
	if op.EuclidN <= 0 {
		return
	}
	onsets := bjorklund(op.EuclidK, op.EuclidN, op.EuclidRot)
	template := withoutOp(n, OpEuclid)
	slotLen := length.Div(rational.FromInt(int64(op.EuclidN)))
	offset := start
	for _, on := range onsets {
		if on {
			eval(template, ctx, baseChannel, offset, slotLen, out)
		} else {
			emitRest(ctx, baseChannel, offset, slotLen, out)
		}
		offset = offset.Add(slotLen)
	}
}

func evalSlow(n *Node, op Op, ctx *Context, baseChannel int, start, length rational.Rat, out *[]Event) {
	k := int(op.Factor)
	if k < 1 {
		k = 1
	}
	template := withoutOp(n, OpSlow)
	if k <= 1 || ctx.Cycle%k == 0 {
		eval(template, ctx, baseChannel, start, length, out)
		return
	}
	emitRest(ctx, baseChannel, start, length, out)
}

func evalFast(n *Node, op Op, ctx *Context, baseChannel int, start, length rational.Rat, out *[]Event) {
	k := int(op.Factor)
	if k < 1 {
		k = 1
	}
	template := withoutOp(n, OpFast)
	slotLen := length.Div(rational.FromInt(int64(k)))
	offset := start
	for i := 0; i < k; i++ {
		eval(template, ctx, baseChannel, offset, slotLen, out)
		offset = offset.Add(slotLen)
	}
}

func evalStack(n *Node, ctx *Context, baseChannel int, start, length rational.Rat, out *[]Event) {
	ch := baseChannel
	for _, c := range n.Children {
		eval(c, ctx, ch, start, length, out)
		ch += channelCount(c)
	}
}

// flattenedChild pairs an expanded child with its share of the parent's
// total weight, after expanding `!k` repeats and absorbing `_` holds into
// the weight of the preceding surviving child (invariants 1, 6 and 7).
type flattenedChild struct {
	node   *Node
	weight rational.Rat
}

func flattenSequence(children []*Node, weights []rational.Rat) []flattenedChild {
	var flat []flattenedChild
	for i, c := range children {
		w := rational.FromInt(1)
		if i < len(weights) {
			w = weights[i]
		}
		if c.Kind == KindHold {
			if len(flat) > 0 {
				flat[len(flat)-1].weight = flat[len(flat)-1].weight.Add(w)
			}
			continue
		}
		reps := repeatOf(c)
		if reps < 1 {
			reps = 1
		}
		clone := withoutOp(c, OpRepeat)
		for r := 0; r < reps; r++ {
			flat = append(flat, flattenedChild{node: clone, weight: w})
		}
	}
	return flat
}

func evalSubdivision(n *Node, ctx *Context, baseChannel int, start, length rational.Rat, out *[]Event) {
	if len(n.Children) == 0 {
		emitRest(ctx, baseChannel, start, length, out)
		return
	}
	flat := flattenSequence(n.Children, n.ChildWeights)
	total := rational.FromInt(0)
	for _, f := range flat {
		total = total.Add(f.weight)
	}
	if total.IsZero() {
		total = rational.FromInt(1)
	}

	// The last AUDIBLE child absorbs any rational rounding slack so the
	// partition's end is exactly start+length (testable property 1); a
	// standalone target atom (see below) never emits an event of its own,
	// so it can't be the one to absorb it.
	lastAudible := len(flat) - 1
	for lastAudible > 0 && flat[lastAudible].node.Kind == KindTarget {
		lastAudible--
	}

	offset := start
	active := map[byte]float64{} // attrs assigned by a preceding standalone target atom
	for i, f := range flat {
		share := length.Mul(f.weight).Div(total)
		childLen := share
		if i == lastAudible {
			childLen = start.Add(length).Sub(offset)
		}
		if f.node.Kind == KindTarget {
			// A standalone target atom, e.g. "v0.5", carries no onset of
			// its own; per spec.md §4.D it assigns its attribute across
			// the rest of this sequence instead of producing an event.
			active[f.node.TargetAttr] = f.node.Number
		} else {
			before := len(*out)
			eval(f.node, ctx, baseChannel, offset, childLen, out)
			applyActiveTargets(*out, before, active)
		}
		offset = offset.Add(share)
	}
}

// applyActiveTargets fills in any attribute assigned by an earlier
// standalone target atom in the same sequence, without overriding a value
// an event already carries from its own ':'-chained operators.
func applyActiveTargets(events []Event, from int, active map[byte]float64) {
	if len(active) == 0 {
		return
	}
	for i := from; i < len(events); i++ {
		for attr, v := range active {
			if events[i].Attrs == nil {
				events[i].Attrs = map[byte]float64{}
			}
			if _, ok := events[i].Attrs[attr]; !ok {
				events[i].Attrs[attr] = v
			}
		}
	}
}

// expandAltOrPolyRepeats expands bare `!k` suffixes on alternation/polymeter
// children into k literal repeated entries (these groups have no notion of
// weight, only a flat step/alternative list).
func expandAltOrPolyRepeats(children []*Node) []*Node {
	var out []*Node
	for _, c := range children {
		reps := repeatOf(c)
		if reps < 1 {
			reps = 1
		}
		clone := withoutOp(c, OpRepeat)
		for r := 0; r < reps; r++ {
			out = append(out, clone)
		}
	}
	return out
}

func evalAlternation(n *Node, ctx *Context, baseChannel int, start, length rational.Rat, out *[]Event) {
	children := expandAltOrPolyRepeats(n.Children)
	if len(children) == 0 {
		emitRest(ctx, baseChannel, start, length, out)
		return
	}
	idx := ctx.Cycle % len(children)
	eval(children[idx], ctx, baseChannel, start, length, out)
}

func evalPolymeter(n *Node, ctx *Context, baseChannel int, start, length rational.Rat, out *[]Event) {
	children := expandAltOrPolyRepeats(n.Children)
	if len(children) == 0 {
		emitRest(ctx, baseChannel, start, length, out)
		return
	}
	steps := n.PolymeterSteps
	if steps <= 0 {
		steps = len(children)
	}
	phase := ctx.polyPhase[n]
	slotLen := length.Div(rational.FromInt(int64(steps)))
	offset := start
	for i := 0; i < steps; i++ {
		idx := (phase + i) % len(children)
		eval(children[idx], ctx, baseChannel, offset, slotLen, out)
		offset = offset.Add(slotLen)
	}
	ctx.polyPhase[n] = (phase + steps) % len(children)
}

func evalChoice(n *Node, ctx *Context, baseChannel int, start, length rational.Rat, out *[]Event) {
	if len(n.Children) == 0 {
		emitRest(ctx, baseChannel, start, length, out)
		return
	}
	step := ctx.stepCounters[baseChannel] + 1
	tag := stepTag(ctx.Cycle, baseChannel, step)
	idx := int(ctx.RNG.Fork(tag).GenRange(0, int64(len(n.Children)-1)))
	eval(n.Children[idx], ctx, baseChannel, start, length, out)
}

// stepTag packs (cycle, channel, step) into one RNG fork tag, per spec.md
// §4.E step 5: the same (cycle, channel, step) always derives the same
// branch, so re-evaluating a choice or degrade at the same position within
// one run is stable.
func stepTag(cycle, channel, step int) uint64 {
	return uint64(uint32(cycle))<<40 | uint64(uint32(channel))<<20 | uint64(uint32(step))
}

func emitRest(ctx *Context, channel int, start, length rational.Rat, out *[]Event) {
	step := ctx.nextStep(channel)
	*out = append(*out, Event{Channel: channel, Step: step, Start: start, Length: length, Kind: KindRest, Raw: "~"})
}

// emitLeaf handles the degrade roll and target-attribute collection common
// to every base-case shape, then appends exactly one Event.
func emitLeaf(n *Node, ctx *Context, channel int, start, length rational.Rat, out *[]Event) {
	step := ctx.nextStep(channel)

	if op, ok := findOp(n, OpDegrade); ok {
		tag := stepTag(ctx.Cycle, channel, step)
		roll := ctx.RNG.Fork(tag ^ 0x5A5A5A5A).NextFloat64()
		if roll < op.Prob {
			*out = append(*out, Event{Channel: channel, Step: step, Start: start, Length: length, Kind: KindRest, Raw: "~"})
			return
		}
	}

	ev := Event{Channel: channel, Step: step, Start: start, Length: length}
	switch n.Kind {
	case KindRest:
		ev.Kind = KindRest
		ev.Raw = "~"
	case KindPitch:
		ev.Kind = KindPitch
		ev.Raw = n.Pitch
	case KindChord:
		ev.Kind = KindChord
		ev.Raw = n.Pitch
		ev.ChordMode = n.ChordMode
	case KindNumber:
		ev.Kind = KindNumber
		ev.Number = n.Number
		ev.Raw = formatNumber(n.Number)
	case KindName:
		ev.Kind = KindName
		ev.Raw = n.Name
	case KindTarget:
		ev.Kind = KindTarget
		ev.Number = n.Number
		ev.Attrs = map[byte]float64{n.TargetAttr: n.Number}
	default:
		ev.Kind = KindRest
		ev.Raw = "~"
	}

	for _, op := range n.Ops {
		if op.Kind != OpTarget || !op.HasValue {
			continue
		}
		if op.TargetAttr != 0 {
			if ev.Attrs == nil {
				ev.Attrs = map[byte]float64{}
			}
			ev.Attrs[op.TargetAttr] = op.Value
		} else if op.TargetName != "" {
			if ev.NamedAttrs == nil {
				ev.NamedAttrs = map[string]float64{}
			}
			ev.NamedAttrs[op.TargetName] = op.Value
		}
	}

	*out = append(*out, ev)
}

func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
