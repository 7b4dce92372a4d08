package store

import "time"

// Op names a store mutation.
type Op string

const (
	OpCreateExperiment        Op = "create_experiment"
	OpDeleteExperiment        Op = "delete_experiment"
	OpSetDirection            Op = "set_direction"
	OpSetExperimentUserAttr   Op = "set_experiment_user_attr"
	OpSetExperimentSystemAttr Op = "set_experiment_system_attr"
	OpCreateTrial             Op = "create_trial"
	OpSetTrialState           Op = "set_trial_state"
	OpSetTrialParam           Op = "set_trial_param"
	OpSetTrialValue           Op = "set_trial_value"
	OpSetIntermediateValue    Op = "set_trial_intermediate_value"
	OpSetTrialUserAttr        Op = "set_trial_user_attr"
	OpSetTrialSystemAttr      Op = "set_trial_system_attr"
	OpBestTrialChanged        Op = "best_trial_changed"
)

// Event describes one successful mutation. Seq is assigned under the store
// lock and is strictly increasing, so it reflects the serialization order
// even if observers see events out of order.
type Event struct {
	Seq          uint64         `json:"seq"`
	Op           Op             `json:"op"`
	ExperimentID int64          `json:"experiment_id"`
	TrialID      int64          `json:"trial_id"` // -1 for experiment-level ops
	Payload      map[string]any `json:"payload,omitempty"`
	Time         time.Time      `json:"time"`
}

// Observer receives mutation events. Observe is called after the store lock
// has been released; implementations may block on I/O.
type Observer interface {
	Observe(e Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }
