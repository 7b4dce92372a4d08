package distribution

import (
	"encoding/json"
	"fmt"
	"math"
)

// Spec is the declarative, serializable form of a Distribution. It is what
// scenario files contain and what the journal records.
type Spec struct {
	Type    Kind     `json:"type" yaml:"type"`
	Low     *float64 `json:"low,omitempty" yaml:"low,omitempty"`
	High    *float64 `json:"high,omitempty" yaml:"high,omitempty"`
	Log     bool     `json:"log,omitempty" yaml:"log,omitempty"`
	Step    *float64 `json:"step,omitempty" yaml:"step,omitempty"`
	Choices []any    `json:"choices,omitempty" yaml:"choices,omitempty"`
}

// Build validates the spec and returns the concrete Distribution.
func (s Spec) Build() (Distribution, error) {
	switch s.Type {
	case KindFloat:
		if s.Low == nil || s.High == nil {
			return nil, fmt.Errorf("%w: float needs low and high", ErrInvalid)
		}
		return NewFloat(*s.Low, *s.High, s.Log, s.Step)
	case KindInt:
		if s.Low == nil || s.High == nil {
			return nil, fmt.Errorf("%w: int needs low and high", ErrInvalid)
		}
		low, err := integral("low", *s.Low)
		if err != nil {
			return nil, err
		}
		high, err := integral("high", *s.High)
		if err != nil {
			return nil, err
		}
		var step int64
		if s.Step != nil {
			if step, err = integral("step", *s.Step); err != nil {
				return nil, err
			}
		}
		return NewInt(low, high, s.Log, step)
	case KindCategorical:
		choices := make([]any, len(s.Choices))
		for i, c := range s.Choices {
			choices[i] = normalizeChoice(c)
		}
		return NewCategorical(choices)
	default:
		return nil, fmt.Errorf("%w: unknown distribution type %q", ErrInvalid, s.Type)
	}
}

// SpecOf returns the Spec describing d.
func SpecOf(d Distribution) (Spec, error) {
	switch v := d.(type) {
	case *Float:
		low, high := v.Low, v.High
		s := Spec{Type: KindFloat, Low: &low, High: &high, Log: v.Log}
		if v.Step != nil {
			step := *v.Step
			s.Step = &step
		}
		return s, nil
	case *Int:
		low, high, step := float64(v.Low), float64(v.High), float64(v.Step)
		return Spec{Type: KindInt, Low: &low, High: &high, Log: v.Log, Step: &step}, nil
	case *Categorical:
		choices := make([]any, len(v.Choices))
		copy(choices, v.Choices)
		return Spec{Type: KindCategorical, Choices: choices}, nil
	default:
		return Spec{}, fmt.Errorf("%w: unsupported distribution %T", ErrInvalid, d)
	}
}

// Marshal encodes d as JSON.
func Marshal(d Distribution) ([]byte, error) {
	s, err := SpecOf(d)
	if err != nil {
		return nil, err
	}
	return json.Marshal(s)
}

// Unmarshal decodes a distribution written by Marshal.
func Unmarshal(data []byte) (Distribution, error) {
	var s Spec
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode distribution: %w", err)
	}
	return s.Build()
}

func integral(field string, v float64) (int64, error) {
	if v != math.Trunc(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: int %s must be integral, got %v", ErrInvalid, field, v)
	}
	return int64(v), nil
}

// normalizeChoice maps decoder-specific numeric types onto int64/float64.
func normalizeChoice(c any) any {
	switch n := c.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case uint64:
		return int64(n)
	case float32:
		return float64(n)
	}
	return c
}
