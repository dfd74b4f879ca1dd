// Package prng implements a small, seedable, reproducible pseudo-random
// source shared by every stage of a pattern instance. It is a xoshiro256**
// generator: fast, allocation-free after construction, and easy to fork into
// an independent branch for per-step sampling (choice, degrade) without
// disturbing the parent's cursor.
package prng

// Source is a xoshiro256** generator. The zero value is not valid; use New.
type Source struct {
	s [4]uint64
}

// New creates a Source seeded deterministically from seed. The same seed
// always produces the same sequence of draws.
func New(seed uint64) *Source {
	s := &Source{}
	s.reseed(seed)
	return s
}

// reseed repopulates state from a splitmix64 expansion of seed, the
// standard way to turn a single 64-bit seed into xoshiro256**'s 256 bits of
// state without ever landing on the all-zero state.
func (s *Source) reseed(seed uint64) {
	sm := seed
	next := func() uint64 {
		sm += 0x9E3779B97F4A7C15
		z := sm
		z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
		z = (z ^ (z >> 27)) * 0x94D049BB133111EB
		return z ^ (z >> 31)
	}
	for i := range s.s {
		s.s[i] = next()
	}
}

func rotl(x uint64, k uint) uint64 {
	return (x << k) | (x >> (64 - k))
}

// NextU64 returns the next raw 64-bit draw.
func (s *Source) NextU64() uint64 {
	result := rotl(s.s[1]*5, 7) * 9

	t := s.s[1] << 17

	s.s[2] ^= s.s[0]
	s.s[3] ^= s.s[1]
	s.s[1] ^= s.s[2]
	s.s[0] ^= s.s[3]

	s.s[2] ^= t

	s.s[3] = rotl(s.s[3], 45)

	return result
}

// NextFloat64 returns a draw uniform in [0, 1).
func (s *Source) NextFloat64() float64 {
	// Use the top 53 bits, the number of mantissa bits in a float64, so the
	// result is uniform and never rounds up to exactly 1.0.
	return float64(s.NextU64()>>11) / (1 << 53)
}

// GenRange returns a draw uniform in [lo, hi]. It panics if hi < lo.
func (s *Source) GenRange(lo, hi int64) int64 {
	if hi < lo {
		panic("prng: GenRange hi < lo")
	}
	span := uint64(hi-lo) + 1
	if span == 0 { // lo==MinInt64, hi==MaxInt64: full range
		return int64(s.NextU64())
	}
	return lo + int64(s.NextU64()%span)
}

// Clone returns an independent copy of s with the same internal state; the
// clone's subsequent draws do not affect, or get affected by, s.
func (s *Source) Clone() *Source {
	c := &Source{}
	c.s = s.s
	return c
}

// Fork derives an independent branch seeded from the combination of s's
// current state and tag (typically a packed cycle/channel/step key). The
// branch's draws never advance s's own cursor, and the same (s-state, tag)
// pair always yields the same branch — this is what makes choice/degrade
// reproducible under re-evaluation of the same step within one run.
func (s *Source) Fork(tag uint64) *Source {
	mix := s.s[0] ^ rotl(s.s[1], 17) ^ rotl(s.s[2], 31) ^ rotl(s.s[3], 47) ^ tag
	return New(mix)
}
