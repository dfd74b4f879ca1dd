// Package rational implements exact fractional time arithmetic for the
// pattern engine. Every duration that crosses a cycle boundary is kept as a
// pair of 64-bit integers in lowest terms so that subdividing a cycle by an
// arbitrary integer factor never accumulates rounding drift.
package rational

import "fmt"

// Rat is a signed rational number held in lowest terms with a positive
// denominator. The zero value has a zero denominator and is not a valid
// operand; start from Zero, New or FromInt instead.
type Rat struct {
	N int64 // numerator
	D int64 // denominator, always > 0
}

// Zero is the additive identity.
var Zero = Rat{0, 1}

// New builds a Rat from a numerator/denominator pair and normalises it.
// It panics if d is zero, mirroring the teacher's own panic-on-corrupt-MOD
// behaviour for invariants that should never be violated by the caller.
func New(n, d int64) Rat {
	if d == 0 {
		panic("rational: zero denominator")
	}
	return normalize(n, d)
}

// FromInt lifts a plain integer into a Rat.
func FromInt(n int64) Rat { return Rat{n, 1} }

func normalize(n, d int64) Rat {
	if d < 0 {
		n, d = -n, -d
	}
	if n == 0 {
		return Rat{0, 1}
	}
	if g := gcd(abs(n), d); g > 1 {
		n /= g
		d /= g
	}
	return Rat{n, d}
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

// Add returns r + o.
func (r Rat) Add(o Rat) Rat {
	return normalize(r.N*o.D+o.N*r.D, r.D*o.D)
}

// Sub returns r - o.
func (r Rat) Sub(o Rat) Rat {
	return normalize(r.N*o.D-o.N*r.D, r.D*o.D)
}

// Mul returns r * o.
func (r Rat) Mul(o Rat) Rat {
	return normalize(r.N*o.N, r.D*o.D)
}

// Div returns r / o. It panics if o is zero, the caller's responsibility to
// avoid (mirrors New's panic-on-corrupt-invariant policy).
func (r Rat) Div(o Rat) Rat {
	if o.N == 0 {
		panic("rational: division by zero")
	}
	return normalize(r.N*o.D, r.D*o.N)
}

// Cmp returns -1, 0 or 1 as r is less than, equal to, or greater than o.
func (r Rat) Cmp(o Rat) int {
	lhs := r.N * o.D
	rhs := o.N * r.D
	switch {
	case lhs < rhs:
		return -1
	case lhs > rhs:
		return 1
	default:
		return 0
	}
}

// Less reports whether r < o.
func (r Rat) Less(o Rat) bool { return r.Cmp(o) < 0 }

// Equal reports whether r == o.
func (r Rat) Equal(o Rat) bool { return r.Cmp(o) == 0 }

// IsZero reports whether r is exactly zero.
func (r Rat) IsZero() bool { return r.N == 0 }

// Float64 returns the nearest float64 approximation, for diagnostics only;
// never feed this back into scheduling math.
func (r Rat) Float64() float64 { return float64(r.N) / float64(r.D) }

// ToSamples converts the rational time value (in whole-note units) to an
// integer sample position against samplesPerWholeNote, rounding half-to-even
// ("banker's rounding") so that repeated small durations accumulate no
// systematic bias over long runs.
func ToSamples(t Rat, samplesPerWholeNote uint64) uint64 {
	if t.N <= 0 {
		return 0
	}
	num := t.N * int64(samplesPerWholeNote)
	den := t.D
	q := num / den
	rem := num % den
	twice := rem * 2
	switch {
	case twice < den:
		return uint64(q)
	case twice > den:
		return uint64(q + 1)
	default:
		// exactly halfway: round to even
		if q%2 == 0 {
			return uint64(q)
		}
		return uint64(q + 1)
	}
}

func (r Rat) String() string {
	if r.D == 1 {
		return fmt.Sprintf("%d", r.N)
	}
	return fmt.Sprintf("%d/%d", r.N, r.D)
}
