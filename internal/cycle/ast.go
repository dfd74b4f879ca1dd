// Package cycle implements the mini-notation parser and cycle interpreter:
// the grammar and evaluation rules in pattrns' specification for turning a
// TidalCycles-derived pattern string into a tagged AST, and the AST into a
// time-stamped, per-channel stream of raw step values for one cycle run.
//
// The AST is modelled as a single tagged sum type (Node, discriminated by
// Kind) rather than a class hierarchy of node types: the interpreter is one
// recursive function dispatching on Kind, matching pattrns' own design
// notes on avoiding virtual dispatch and closures living on AST nodes.
package cycle

import "github.com/renoise/pattrns/internal/rational"

// Kind discriminates the tagged union of AST node shapes.
type Kind int

const (
	KindRest Kind = iota
	KindHold
	KindPitch
	KindChord
	KindNumber
	KindName
	KindTarget      // a standalone target-attribute single, e.g. `v0.5`
	KindSubdivision // `[ a b c ]` or a bare whitespace-joined sequence
	KindAlternation // `< a b c >`
	KindPolymeter   // `{ a b c } % n`
	KindStack       // `,` separated children, concurrent channels
	KindChannels    // `.` separated children, sugar for KindStack (invariant 4)
	KindChoice      // `|` separated children, resolved at emission time
)

func (k Kind) String() string {
	switch k {
	case KindRest:
		return "Rest"
	case KindHold:
		return "Hold"
	case KindPitch:
		return "Pitch"
	case KindChord:
		return "Chord"
	case KindNumber:
		return "Number"
	case KindName:
		return "Name"
	case KindTarget:
		return "Target"
	case KindSubdivision:
		return "Subdivision"
	case KindAlternation:
		return "Alternation"
	case KindPolymeter:
		return "Polymeter"
	case KindStack:
		return "Stack"
	case KindChannels:
		return "Channels"
	case KindChoice:
		return "Choice"
	default:
		return "Unknown"
	}
}

// OpKind discriminates the operators that can be stacked onto a single or a
// group in grammar order (`:`, `?`, `!`, `@`, `*k`, `/k`, `(k,n[,r])`).
type OpKind int

const (
	OpTarget OpKind = iota // ':' attr or named attribute assignment
	OpDegrade
	OpRepeat
	OpWeight
	OpFast
	OpSlow
	OpEuclid
)

// Op is one operator application, carrying only the fields relevant to its
// Kind.
type Op struct {
	Kind OpKind

	// OpDegrade: probability of dropping the step, default 0.5 when NumSet
	// is false.
	Prob   float64
	NumSet bool

	// OpRepeat, OpWeight, OpFast, OpSlow: numeric factor.
	Factor float64

	// OpTarget: single-letter code ('v','p','d','#') or a named attribute.
	TargetAttr byte
	TargetName string
	HasValue   bool
	Value      float64

	// OpEuclid: k onsets distributed over n slots, rotated by rot.
	EuclidK, EuclidN, EuclidRot int
}

// Node is one AST node. Its meaning is entirely determined by Kind; fields
// irrelevant to a given Kind are left zero. Nodes are immutable once parsed
// and may be shared by reference across pattern instances.
type Node struct {
	Kind Kind

	// Leaf payload (Kind == Pitch/Chord/Number/Name/Target).
	Pitch      string  // raw pitch text, e.g. "c#4"
	ChordMode  string  // Kind == Chord: the mode/quality suffix after '
	Number     float64 // Kind == Number
	Name       string  // Kind == Name
	TargetAttr byte    // Kind == Target: 'v','p','d','#'

	// Group payload (Kind == Subdivision/Alternation/Polymeter/Stack/Channels/Choice).
	Children       []*Node
	PolymeterSteps int // Kind == Polymeter: N in `% N`, 0 means len(Children)

	// Per-child weight, parallel to Children, defaulting to 1 (invariant 1).
	// Populated by the OpWeight operator on each child expression.
	ChildWeights []rational.Rat

	Ops []Op
}

// weightOf returns the node's own weight (set via `@w`), defaulting to 1.
func weightOf(n *Node) rational.Rat {
	for _, op := range n.Ops {
		if op.Kind == OpWeight {
			return rational.New(int64(op.Factor*1_000_000), 1_000_000)
		}
	}
	return rational.FromInt(1)
}

// repeatOf returns the node's replication count set via `!k`, defaulting to 1.
func repeatOf(n *Node) int {
	for _, op := range n.Ops {
		if op.Kind == OpRepeat {
			if op.Factor < 1 {
				return 1
			}
			return int(op.Factor)
		}
	}
	return 1
}
