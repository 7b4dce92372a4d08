package store

import (
	"errors"

	"github.com/daviddao/trialmem/pkg/distribution"
)

// Sentinel errors. Store methods wrap these with the offending id or name;
// match them with errors.Is.
var (
	ErrNotFound                 = errors.New("not found")
	ErrDuplicatedExperiment     = errors.New("experiment name already exists")
	ErrInvalidDirectionChange   = errors.New("experiment direction already set")
	ErrIncompatibleDistribution = distribution.ErrIncompatible
	ErrNotUpdatable             = errors.New("trial is already finished")
	ErrNoCompletedTrials        = errors.New("no trials are completed yet")
	ErrInvalidParam             = errors.New("invalid parameter value")
)

// resultLabel maps an operation's error onto the metrics "result" label.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrDuplicatedExperiment):
		return "duplicated"
	case errors.Is(err, ErrInvalidDirectionChange):
		return "invalid_direction"
	case errors.Is(err, ErrIncompatibleDistribution):
		return "incompatible_distribution"
	case errors.Is(err, ErrNotUpdatable):
		return "not_updatable"
	case errors.Is(err, ErrNoCompletedTrials):
		return "no_completed_trials"
	case errors.Is(err, ErrInvalidParam):
		return "invalid_param"
	default:
		return "error"
	}
}
