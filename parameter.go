package pattrns

import (
	clone "github.com/huandu/go-clone/generic"
)

// ParamType discriminates a Parameter's value kind.
type ParamType int

const (
	ParamBool ParamType = iota
	ParamInt
	ParamFloat
	ParamEnum
)

// Parameter is one typed, named, live-tweakable knob. Range fields apply to
// ParamInt and ParamFloat; EnumValues applies to ParamEnum.
type Parameter struct {
	ID          string
	Name        string
	Description string
	Type        ParamType
	Min, Max    float64
	EnumValues  []string

	value float64 // for Bool: 0/1; for Enum: index into EnumValues
}

// Value returns the parameter's current value as a float64 (for Bool, 0 or
// 1; for Enum, the selected index).
func (p Parameter) Value() float64 { return p.value }

// Bool returns the current value interpreted as a boolean.
func (p Parameter) Bool() bool { return p.value != 0 }

// Enum returns the current value's enum label.
func (p Parameter) Enum() string {
	i := int(p.value)
	if i < 0 || i >= len(p.EnumValues) {
		return ""
	}
	return p.EnumValues[i]
}

// ParameterSet is an ordered collection of Parameters, looked up by id in
// O(1), shared by reference with every stage closure of a Pattern. Rejects
// duplicate ids at construction (a ConfigError) per spec.md §4.J.
type ParameterSet struct {
	order []string
	byID  map[string]*Parameter
}

// NewParameterSet builds a ParameterSet from params, in the given order.
func NewParameterSet(params ...Parameter) (*ParameterSet, error) {
	s := &ParameterSet{byID: make(map[string]*Parameter, len(params))}
	for _, p := range params {
		if _, exists := s.byID[p.ID]; exists {
			return nil, newError(ConfigErrorKind, nil, "duplicate parameter id %q", p.ID)
		}
		cp := p
		s.order = append(s.order, p.ID)
		s.byID[p.ID] = &cp
	}
	return s, nil
}

// Get returns the named parameter and whether it exists.
func (s *ParameterSet) Get(id string) (Parameter, bool) {
	p, ok := s.byID[id]
	if !ok {
		return Parameter{}, false
	}
	return *p, true
}

// IDs returns every parameter id in declaration order.
func (s *ParameterSet) IDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Set clamps value to the parameter's declared range (for Bool/Enum, to
// their valid discrete set) and stores it. Unknown ids are a ConfigError;
// out-of-range values are clamped without error (§7 policy).
func (s *ParameterSet) Set(id string, value float64) error {
	p, ok := s.byID[id]
	if !ok {
		return newError(ConfigErrorKind, nil, "unknown parameter id %q", id)
	}
	switch p.Type {
	case ParamBool:
		if value != 0 {
			p.value = 1
		} else {
			p.value = 0
		}
	case ParamInt:
		v := float64(int64(value))
		p.value = clampFloat(v, p.Min, p.Max)
	case ParamFloat:
		p.value = clampFloat(value, p.Min, p.Max)
	case ParamEnum:
		i := int64(value)
		if i < 0 {
			i = 0
		}
		if n := int64(len(p.EnumValues)); n > 0 && i >= n {
			i = n - 1
		}
		p.value = float64(i)
	}
	return nil
}

func clampFloat(v, lo, hi float64) float64 {
	if lo == 0 && hi == 0 {
		return v // no declared range: unconstrained
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Snapshot returns an independent deep copy of s, so a mid-run write to the
// live set never tears the values an in-flight emitter invocation sees.
// Grounded on the teacher's own clone.Clone(testSong) usage for producing
// independent, reference-free copies of mutable state.
func (s *ParameterSet) Snapshot() *ParameterSet {
	return clone.Clone(s)
}
