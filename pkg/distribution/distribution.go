// Package distribution describes the search space of a single parameter.
//
// A Distribution converts between two representations of a parameter value:
//
//   - internal: the float64 the optimizer works with (for categorical
//     parameters this is the index of the chosen option).
//   - external: the value a user or a report sees (float64, int64, or the
//     categorical choice itself).
//
// The store records the first distribution seen for each parameter name in
// an experiment and rejects later assignments whose distribution is not
// compatible with it (see CheckCompatibility).
package distribution

import (
	"errors"
	"fmt"
	"math"
)

// Kind names a distribution family.
type Kind string

const (
	KindFloat       Kind = "float"
	KindInt         Kind = "int"
	KindCategorical Kind = "categorical"
)

// ErrIncompatible is returned by CheckCompatibility.
var ErrIncompatible = errors.New("incompatible distribution")

// ErrInvalid is returned when a distribution's bounds or choices are malformed.
var ErrInvalid = errors.New("invalid distribution")

// Distribution is the contract the store depends on.
type Distribution interface {
	// Kind returns the distribution family.
	Kind() Kind
	// ToExternalRepr converts an optimizer-facing value to the user-facing one.
	ToExternalRepr(internal float64) (any, error)
	// ToInternalRepr converts a user-facing value back to the optimizer-facing one.
	ToInternalRepr(external any) (float64, error)
	// Contains reports whether internal lies inside the distribution's domain.
	Contains(internal float64) bool
}

// CheckCompatibility returns nil when next may be used for a parameter that
// was first registered with old. Numeric distributions only need to share a
// family; categorical distributions must also offer identical choices.
func CheckCompatibility(old, next Distribution) error {
	if old.Kind() != next.Kind() {
		return fmt.Errorf("%w: cannot change %s to %s", ErrIncompatible, old.Kind(), next.Kind())
	}
	oc, ok := old.(*Categorical)
	if !ok {
		return nil
	}
	nc, ok := next.(*Categorical)
	if !ok {
		return fmt.Errorf("%w: %T is not a categorical distribution", ErrIncompatible, next)
	}
	if len(oc.Choices) != len(nc.Choices) {
		return fmt.Errorf("%w: categorical choices changed from %v to %v", ErrIncompatible, oc.Choices, nc.Choices)
	}
	for i := range oc.Choices {
		if !choiceEqual(oc.Choices[i], nc.Choices[i]) {
			return fmt.Errorf("%w: categorical choices changed from %v to %v", ErrIncompatible, oc.Choices, nc.Choices)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Float
// ---------------------------------------------------------------------------

// Float is a continuous range [Low, High], optionally log-scaled or
// discretized by Step. Log and Step are mutually exclusive.
type Float struct {
	Low  float64
	High float64
	Log  bool
	Step *float64
}

// NewFloat validates and returns a Float distribution.
func NewFloat(low, high float64, log bool, step *float64) (*Float, error) {
	if log && step != nil {
		return nil, fmt.Errorf("%w: float step and log cannot be used together", ErrInvalid)
	}
	if low > high {
		return nil, fmt.Errorf("%w: float low %v > high %v", ErrInvalid, low, high)
	}
	if log && low <= 0 {
		return nil, fmt.Errorf("%w: log float needs low > 0, got %v", ErrInvalid, low)
	}
	if step != nil && *step <= 0 {
		return nil, fmt.Errorf("%w: float step must be > 0, got %v", ErrInvalid, *step)
	}
	return &Float{Low: low, High: high, Log: log, Step: step}, nil
}

func (d *Float) Kind() Kind { return KindFloat }

func (d *Float) ToExternalRepr(internal float64) (any, error) { return internal, nil }

func (d *Float) ToInternalRepr(external any) (float64, error) {
	v, ok := toFloat(external)
	if !ok {
		return 0, fmt.Errorf("%w: float value %v (%T) is not numeric", ErrInvalid, external, external)
	}
	return v, nil
}

func (d *Float) Contains(internal float64) bool {
	if math.IsNaN(internal) {
		return false
	}
	if d.Step == nil {
		return d.Low <= internal && internal <= d.High
	}
	if internal < d.Low || internal > d.High {
		return false
	}
	k := (internal - d.Low) / *d.Step
	return math.Abs(k-math.Round(k)) < 1e-8
}

// ---------------------------------------------------------------------------
// Int
// ---------------------------------------------------------------------------

// Int is an integer range [Low, High] with a positive Step (default 1).
type Int struct {
	Low  int64
	High int64
	Log  bool
	Step int64
}

// NewInt validates and returns an Int distribution. A zero step means 1.
func NewInt(low, high int64, log bool, step int64) (*Int, error) {
	if step == 0 {
		step = 1
	}
	if log && step != 1 {
		return nil, fmt.Errorf("%w: int step must be 1 when log is true, got %d", ErrInvalid, step)
	}
	if low > high {
		return nil, fmt.Errorf("%w: int low %d > high %d", ErrInvalid, low, high)
	}
	if log && low < 1 {
		return nil, fmt.Errorf("%w: log int needs low >= 1, got %d", ErrInvalid, low)
	}
	if step < 0 {
		return nil, fmt.Errorf("%w: int step must be > 0, got %d", ErrInvalid, step)
	}
	return &Int{Low: low, High: high, Log: log, Step: step}, nil
}

func (d *Int) Kind() Kind { return KindInt }

func (d *Int) ToExternalRepr(internal float64) (any, error) {
	return int64(math.Round(internal)), nil
}

func (d *Int) ToInternalRepr(external any) (float64, error) {
	v, ok := toFloat(external)
	if !ok {
		return 0, fmt.Errorf("%w: int value %v (%T) is not numeric", ErrInvalid, external, external)
	}
	return v, nil
}

func (d *Int) Contains(internal float64) bool {
	if math.IsNaN(internal) || internal != math.Trunc(internal) {
		return false
	}
	v := int64(internal)
	return d.Low <= v && v <= d.High && (v-d.Low)%d.Step == 0
}

// ---------------------------------------------------------------------------
// Categorical
// ---------------------------------------------------------------------------

// Categorical picks one of a fixed list of scalar choices (string, bool,
// number or nil). The internal representation is the choice index.
type Categorical struct {
	Choices []any
}

// NewCategorical validates and returns a Categorical distribution.
func NewCategorical(choices []any) (*Categorical, error) {
	if len(choices) == 0 {
		return nil, fmt.Errorf("%w: categorical needs at least one choice", ErrInvalid)
	}
	for _, c := range choices {
		switch c.(type) {
		case nil, string, bool, int, int64, float64:
		default:
			return nil, fmt.Errorf("%w: categorical choice %v has unsupported type %T", ErrInvalid, c, c)
		}
	}
	cp := make([]any, len(choices))
	copy(cp, choices)
	return &Categorical{Choices: cp}, nil
}

func (d *Categorical) Kind() Kind { return KindCategorical }

func (d *Categorical) ToExternalRepr(internal float64) (any, error) {
	idx := int(internal)
	if float64(idx) != internal || idx < 0 || idx >= len(d.Choices) {
		return nil, fmt.Errorf("%w: categorical index %v out of range [0, %d)", ErrInvalid, internal, len(d.Choices))
	}
	return d.Choices[idx], nil
}

func (d *Categorical) ToInternalRepr(external any) (float64, error) {
	for i, c := range d.Choices {
		if choiceEqual(c, external) {
			return float64(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %v is not one of %v", ErrInvalid, external, d.Choices)
}

func (d *Categorical) Contains(internal float64) bool {
	idx := int(internal)
	return float64(idx) == internal && idx >= 0 && idx < len(d.Choices)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// choiceEqual compares scalar choices, treating all numeric types as equal
// when their float64 values match (YAML and JSON decode numbers differently).
func choiceEqual(a, b any) bool {
	af, aNum := toFloat(a)
	bf, bNum := toFloat(b)
	if aNum || bNum {
		return aNum && bNum && af == bf
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
