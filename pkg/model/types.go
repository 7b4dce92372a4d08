// Package model defines the core domain types for trialmem.
//
// An experiment is a named optimization run with a direction (minimize or
// maximize an objective). It owns an ordered sequence of trials; each trial
// is one assignment of parameters that is evaluated and, when it completes,
// reports a single objective value. Trials move through a small state
// machine:
//
//	WAITING -> RUNNING -> COMPLETE | PRUNED | FAIL
//
// The last three states are terminal. A trial in a terminal state is frozen.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/daviddao/trialmem/pkg/distribution"
)

// Direction says whether an experiment seeks small or large objective values.
type Direction int

const (
	DirectionNotSet Direction = iota
	DirectionMinimize
	DirectionMaximize
)

var directionNames = map[Direction]string{
	DirectionNotSet:   "NOT_SET",
	DirectionMinimize: "MINIMIZE",
	DirectionMaximize: "MAXIMIZE",
}

func (d Direction) String() string {
	if s, ok := directionNames[d]; ok {
		return s
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// ParseDirection accepts the String() form case-insensitively.
func ParseDirection(s string) (Direction, error) {
	for d, name := range directionNames {
		if strings.EqualFold(s, name) {
			return d, nil
		}
	}
	return DirectionNotSet, fmt.Errorf("unknown direction %q", s)
}

func (d Direction) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Direction) UnmarshalText(b []byte) error {
	v, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// TrialState is the lifecycle state of a trial.
type TrialState int

const (
	TrialRunning TrialState = iota
	TrialComplete
	TrialPruned
	TrialFail
	TrialWaiting
)

var stateNames = map[TrialState]string{
	TrialRunning:  "RUNNING",
	TrialComplete: "COMPLETE",
	TrialPruned:   "PRUNED",
	TrialFail:     "FAIL",
	TrialWaiting:  "WAITING",
}

func (s TrialState) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("TrialState(%d)", int(s))
}

// IsFinished reports whether s is terminal (COMPLETE, PRUNED or FAIL).
func (s TrialState) IsFinished() bool {
	return s == TrialComplete || s == TrialPruned || s == TrialFail
}

// ParseTrialState accepts the String() form case-insensitively. "FAILED" is
// accepted as an alias of FAIL.
func ParseTrialState(s string) (TrialState, error) {
	if strings.EqualFold(s, "FAILED") {
		return TrialFail, nil
	}
	for st, name := range stateNames {
		if strings.EqualFold(s, name) {
			return st, nil
		}
	}
	return TrialRunning, fmt.Errorf("unknown trial state %q", s)
}

func (s TrialState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *TrialState) UnmarshalText(b []byte) error {
	v, err := ParseTrialState(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Trial is one parameter assignment within an experiment.
//
// Params holds external representations; Distributions holds the
// distribution each param was sampled from, keyed by the same name.
type Trial struct {
	ID                 int64                                `json:"trial_id"`
	Number             int                                  `json:"number"`
	State              TrialState                           `json:"state"`
	Value              *float64                             `json:"value,omitempty"`
	Params             map[string]any                       `json:"params"`
	Distributions      map[string]distribution.Distribution `json:"-"`
	UserAttrs          map[string]any                       `json:"user_attrs"`
	SystemAttrs        map[string]any                       `json:"system_attrs"`
	IntermediateValues map[int]float64                      `json:"intermediate_values"`
	DatetimeStart      *time.Time                           `json:"datetime_start,omitempty"`
	DatetimeComplete   *time.Time                           `json:"datetime_complete,omitempty"`
}

// NewTrial returns an empty trial in the given state with initialized maps.
func NewTrial(state TrialState) *Trial {
	return &Trial{
		State:              state,
		Params:             map[string]any{},
		Distributions:      map[string]distribution.Distribution{},
		UserAttrs:          map[string]any{},
		SystemAttrs:        map[string]any{},
		IntermediateValues: map[int]float64{},
	}
}

// Clone returns a deep copy of t. Distributions are shared: they are
// treated as immutable once constructed.
func (t *Trial) Clone() *Trial {
	if t == nil {
		return nil
	}
	c := *t
	if t.Value != nil {
		v := *t.Value
		c.Value = &v
	}
	if t.DatetimeStart != nil {
		ts := *t.DatetimeStart
		c.DatetimeStart = &ts
	}
	if t.DatetimeComplete != nil {
		ts := *t.DatetimeComplete
		c.DatetimeComplete = &ts
	}
	c.Params = CopyAttrs(t.Params)
	c.UserAttrs = CopyAttrs(t.UserAttrs)
	c.SystemAttrs = CopyAttrs(t.SystemAttrs)
	c.Distributions = make(map[string]distribution.Distribution, len(t.Distributions))
	for k, d := range t.Distributions {
		c.Distributions[k] = d
	}
	c.IntermediateValues = make(map[int]float64, len(t.IntermediateValues))
	for k, v := range t.IntermediateValues {
		c.IntermediateValues[k] = v
	}
	return &c
}

// ExperimentSummary is a point-in-time snapshot of one experiment.
type ExperimentSummary struct {
	ID            int64          `json:"experiment_id"`
	Name          string         `json:"name"`
	Direction     Direction      `json:"direction"`
	BestTrial     *Trial         `json:"best_trial,omitempty"`
	UserAttrs     map[string]any `json:"user_attrs"`
	SystemAttrs   map[string]any `json:"system_attrs"`
	NTrials       int            `json:"n_trials"`
	DatetimeStart *time.Time     `json:"datetime_start,omitempty"`
}

// CopyAttrs deep-copies an attribute map. Scalars are copied by value;
// slices and maps are copied recursively so that the result shares no
// mutable state with m. Values of other composite types go through a JSON
// round trip.
func CopyAttrs(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch x := v.(type) {
	case nil, string, bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		return x
	case []any:
		s := make([]any, len(x))
		for i := range x {
			s[i] = copyValue(x[i])
		}
		return s
	case map[string]any:
		return CopyAttrs(x)
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return x
		}
		var out any
		if err := json.Unmarshal(data, &out); err != nil {
			return x
		}
		return out
	}
}
