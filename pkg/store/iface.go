// iface.go defines the StoreInterface for dependency injection and testing.
//
// The concrete *Store type satisfies this interface. Code that drives the
// store (the scenario runner, the CLI) accepts StoreInterface instead of
// *Store so tests can substitute a fake.
package store

import (
	"github.com/daviddao/trialmem/pkg/distribution"
	"github.com/daviddao/trialmem/pkg/model"
)

// StoreInterface defines the full set of store operations.
// The concrete *Store type implements this interface.
type StoreInterface interface {
	// --- Experiments ---

	// CreateExperiment registers a new experiment. An empty name is replaced
	// by a generated unique one.
	CreateExperiment(name string) (int64, error)

	// DeleteExperiment removes an experiment and every trial it owns.
	DeleteExperiment(experimentID int64) error

	// SetExperimentDirection sets the direction once; repeating the same
	// value is a no-op.
	SetExperimentDirection(experimentID int64, d model.Direction) error

	// SetExperimentUserAttr upserts a user attribute.
	SetExperimentUserAttr(experimentID int64, key string, value any) error

	// SetExperimentSystemAttr upserts a system attribute.
	SetExperimentSystemAttr(experimentID int64, key string, value any) error

	// GetExperimentIDFromName resolves a name to its id.
	GetExperimentIDFromName(name string) (int64, error)

	// GetExperimentIDFromTrialID resolves the experiment owning a trial.
	GetExperimentIDFromTrialID(trialID int64) (int64, error)

	// GetExperimentName returns the experiment's name.
	GetExperimentName(experimentID int64) (string, error)

	// GetExperimentDirection returns the experiment's direction.
	GetExperimentDirection(experimentID int64) (model.Direction, error)

	// GetExperimentUserAttrs returns a copy of the user attributes.
	GetExperimentUserAttrs(experimentID int64) (map[string]any, error)

	// GetExperimentSystemAttrs returns a copy of the system attributes.
	GetExperimentSystemAttrs(experimentID int64) (map[string]any, error)

	// GetAllExperimentSummaries snapshots every experiment, ordered by id.
	GetAllExperimentSummaries() ([]model.ExperimentSummary, error)

	// --- Trials ---

	// CreateNewTrial creates a trial, cloned from template when non-nil.
	CreateNewTrial(experimentID int64, template *model.Trial) (int64, error)

	// SetTrialState moves a trial to state. It returns false without
	// mutating when asked to start a trial that is not WAITING.
	SetTrialState(trialID int64, state model.TrialState) (bool, error)

	// SetTrialParam records a parameter given in its internal representation.
	SetTrialParam(trialID int64, name string, internal float64, d distribution.Distribution) error

	// SetTrialValue sets the objective value.
	SetTrialValue(trialID int64, value float64) error

	// SetTrialIntermediateValue records a value reported at step.
	SetTrialIntermediateValue(trialID int64, step int, value float64) error

	// SetTrialUserAttr upserts a trial user attribute.
	SetTrialUserAttr(trialID int64, key string, value any) error

	// SetTrialSystemAttr upserts a trial system attribute.
	SetTrialSystemAttr(trialID int64, key string, value any) error

	// GetTrial returns a deep copy of the trial.
	GetTrial(trialID int64) (*model.Trial, error)

	// GetTrialNumberFromID returns the per-experiment trial number.
	GetTrialNumberFromID(trialID int64) (int, error)

	// GetTrialIDFromNumber resolves a per-experiment trial number.
	GetTrialIDFromNumber(experimentID int64, number int) (int64, error)

	// GetTrialParam returns a parameter in its internal representation.
	GetTrialParam(trialID int64, name string) (float64, error)

	// GetAllTrials returns the experiment's trials in creation order,
	// optionally filtered by state.
	GetAllTrials(experimentID int64, deepcopy bool, states ...model.TrialState) ([]*model.Trial, error)

	// GetBestTrial returns a copy of the experiment's best completed trial.
	GetBestTrial(experimentID int64) (*model.Trial, error)

	// GetNTrials counts trials, optionally filtered by state.
	GetNTrials(experimentID int64, states ...model.TrialState) (int, error)
}

// Compile-time check that *Store implements StoreInterface.
var _ StoreInterface = (*Store)(nil)
