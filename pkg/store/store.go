// Package store is the in-memory experiment and trial registry.
//
// A single Store owns every experiment, every trial and the per-experiment
// best-trial cache. All state lives behind one mutex: every exported method,
// reads included, holds it for its whole duration, so operations appear in a
// strict total order. Methods never call other exported methods; shared
// logic lives in *Locked helpers that assume the mutex is held.
//
// Read methods return copies. Nothing handed to a caller aliases internal
// maps, except GetAllTrials with deepcopy=false (see its doc).
package store

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/daviddao/trialmem/pkg/distribution"
	"github.com/daviddao/trialmem/pkg/model"
)

// GeneratedNamePrefix prefixes names assigned to unnamed experiments.
const GeneratedNamePrefix = "no-name-"

type experiment struct {
	id                 int64
	name               string
	direction          model.Direction
	paramDistributions map[string]distribution.Distribution
	userAttrs          map[string]any
	systemAttrs        map[string]any
	trials             []*model.Trial
	bestTrialID        *int64
}

type trialRef struct {
	experimentID int64
	number       int
}

// Store is the in-memory registry. The zero value is not usable; call New.
type Store struct {
	mu sync.Mutex

	experiments     map[int64]*experiment
	nameToID        map[string]int64
	trialRefs       map[int64]trialRef
	maxExperimentID int64
	maxTrialID      int64

	seq     uint64
	pending []Event

	logger   *slog.Logger
	observer Observer
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the structured logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithObserver registers an observer for mutation events.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

// WithClock overrides the time source used for trial timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		experiments:     map[int64]*experiment{},
		nameToID:        map[string]int64{},
		trialRefs:       map[int64]trialRef{},
		maxExperimentID: -1,
		maxTrialID:      -1,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) lock() { s.mu.Lock() }

// unlock releases the mutex, then hands queued events to the observer so
// that observer I/O never runs under the lock.
func (s *Store) unlock() {
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()
	if s.observer == nil {
		return
	}
	for _, e := range pending {
		s.observer.Observe(e)
	}
}

func (s *Store) emitLocked(op Op, experimentID, trialID int64, payload map[string]any) {
	if s.observer == nil {
		return
	}
	s.seq++
	s.pending = append(s.pending, Event{
		Seq:          s.seq,
		Op:           op,
		ExperimentID: experimentID,
		TrialID:      trialID,
		Payload:      payload,
		Time:         s.now().UTC(),
	})
}

// ---------------------------------------------------------------------------
// Experiments
// ---------------------------------------------------------------------------

// CreateExperiment registers a new experiment and returns its id. Ids are
// allocated from a counter and never reused.
func (s *Store) CreateExperiment(name string) (id int64, err error) {
	s.lock()
	defer func() { s.unlock(); recordOp(string(OpCreateExperiment), err) }()

	if name == "" {
		name = s.generateNameLocked()
	} else if _, ok := s.nameToID[name]; ok {
		return -1, fmt.Errorf("create experiment %q: %w", name, ErrDuplicatedExperiment)
	}

	s.maxExperimentID++
	id = s.maxExperimentID
	s.experiments[id] = &experiment{
		id:                 id,
		name:               name,
		paramDistributions: map[string]distribution.Distribution{},
		userAttrs:          map[string]any{},
		systemAttrs:        map[string]any{},
	}
	s.nameToID[name] = id

	s.logger.Debug("experiment created", "experiment_id", id, "name", name)
	s.emitLocked(OpCreateExperiment, id, -1, map[string]any{"name": name})
	return id, nil
}

func (s *Store) generateNameLocked() string {
	for {
		name := GeneratedNamePrefix + uuid.NewString()
		if _, ok := s.nameToID[name]; !ok {
			return name
		}
	}
}

// DeleteExperiment removes the experiment, its name and the reverse lookups
// of all its trials. Ids are not recycled.
func (s *Store) DeleteExperiment(experimentID int64) (err error) {
	s.lock()
	defer func() { s.unlock(); recordOp(string(OpDeleteExperiment), err) }()

	exp, err := s.experimentLocked(experimentID)
	if err != nil {
		return err
	}
	for _, t := range exp.trials {
		delete(s.trialRefs, t.ID)
	}
	delete(s.nameToID, exp.name)
	delete(s.experiments, experimentID)

	s.logger.Debug("experiment deleted", "experiment_id", experimentID, "trials", len(exp.trials))
	s.emitLocked(OpDeleteExperiment, experimentID, -1, map[string]any{"name": exp.name})
	return nil
}

// SetExperimentDirection sets the optimization direction. Once set to
// MINIMIZE or MAXIMIZE it cannot change; setting the same value again is a
// no-op.
func (s *Store) SetExperimentDirection(experimentID int64, d model.Direction) (err error) {
	s.lock()
	defer func() { s.unlock(); recordOp(string(OpSetDirection), err) }()

	exp, err := s.experimentLocked(experimentID)
	if err != nil {
		return err
	}
	if exp.direction == d {
		return nil
	}
	if exp.direction != model.DirectionNotSet {
		return fmt.Errorf("experiment %d: cannot change direction from %v to %v: %w",
			experimentID, exp.direction, d, ErrInvalidDirectionChange)
	}
	exp.direction = d
	s.emitLocked(OpSetDirection, experimentID, -1, map[string]any{"direction": d.String()})
	return nil
}

// SetExperimentUserAttr upserts key in the experiment's user attributes.
func (s *Store) SetExperimentUserAttr(experimentID int64, key string, value any) (err error) {
	s.lock()
	defer func() { s.unlock(); recordOp(string(OpSetExperimentUserAttr), err) }()

	exp, err := s.experimentLocked(experimentID)
	if err != nil {
		return err
	}
	exp.userAttrs[key] = model.CopyAttrs(map[string]any{key: value})[key]
	s.emitLocked(OpSetExperimentUserAttr, experimentID, -1, attrPayload(key, value))
	return nil
}

// SetExperimentSystemAttr upserts key in the experiment's system attributes.
func (s *Store) SetExperimentSystemAttr(experimentID int64, key string, value any) (err error) {
	s.lock()
	defer func() { s.unlock(); recordOp(string(OpSetExperimentSystemAttr), err) }()

	exp, err := s.experimentLocked(experimentID)
	if err != nil {
		return err
	}
	exp.systemAttrs[key] = model.CopyAttrs(map[string]any{key: value})[key]
	s.emitLocked(OpSetExperimentSystemAttr, experimentID, -1, attrPayload(key, value))
	return nil
}

// GetExperimentIDFromName resolves an experiment name.
func (s *Store) GetExperimentIDFromName(name string) (int64, error) {
	s.lock()
	defer s.unlock()

	id, ok := s.nameToID[name]
	if !ok {
		return -1, fmt.Errorf("experiment named %q: %w", name, ErrNotFound)
	}
	return id, nil
}

// GetExperimentIDFromTrialID returns the id of the experiment owning trialID.
func (s *Store) GetExperimentIDFromTrialID(trialID int64) (int64, error) {
	s.lock()
	defer s.unlock()

	ref, ok := s.trialRefs[trialID]
	if !ok {
		return -1, fmt.Errorf("trial %d: %w", trialID, ErrNotFound)
	}
	return ref.experimentID, nil
}

// GetExperimentName returns the experiment's name.
func (s *Store) GetExperimentName(experimentID int64) (string, error) {
	s.lock()
	defer s.unlock()

	exp, err := s.experimentLocked(experimentID)
	if err != nil {
		return "", err
	}
	return exp.name, nil
}

// GetExperimentDirection returns the experiment's direction.
func (s *Store) GetExperimentDirection(experimentID int64) (model.Direction, error) {
	s.lock()
	defer s.unlock()

	exp, err := s.experimentLocked(experimentID)
	if err != nil {
		return model.DirectionNotSet, err
	}
	return exp.direction, nil
}

// GetExperimentUserAttrs returns a deep copy of the user attributes.
func (s *Store) GetExperimentUserAttrs(experimentID int64) (map[string]any, error) {
	s.lock()
	defer s.unlock()

	exp, err := s.experimentLocked(experimentID)
	if err != nil {
		return nil, err
	}
	return model.CopyAttrs(exp.userAttrs), nil
}

// GetExperimentSystemAttrs returns a deep copy of the system attributes.
func (s *Store) GetExperimentSystemAttrs(experimentID int64) (map[string]any, error) {
	s.lock()
	defer s.unlock()

	exp, err := s.experimentLocked(experimentID)
	if err != nil {
		return nil, err
	}
	return model.CopyAttrs(exp.systemAttrs), nil
}

// GetAllExperimentSummaries snapshots every experiment, ordered by id.
// DatetimeStart is the earliest start among the experiment's trials, or nil
// when it has none.
func (s *Store) GetAllExperimentSummaries() ([]model.ExperimentSummary, error) {
	s.lock()
	defer s.unlock()

	ids := make([]int64, 0, len(s.experiments))
	for id := range s.experiments {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	summaries := make([]model.ExperimentSummary, 0, len(ids))
	for _, id := range ids {
		exp := s.experiments[id]
		sum := model.ExperimentSummary{
			ID:          exp.id,
			Name:        exp.name,
			Direction:   exp.direction,
			UserAttrs:   model.CopyAttrs(exp.userAttrs),
			SystemAttrs: model.CopyAttrs(exp.systemAttrs),
			NTrials:     len(exp.trials),
		}
		if exp.bestTrialID != nil {
			if best, err := s.trialLocked(*exp.bestTrialID); err == nil {
				sum.BestTrial = best.Clone()
			}
		}
		for _, t := range exp.trials {
			if t.DatetimeStart == nil {
				continue
			}
			if sum.DatetimeStart == nil || t.DatetimeStart.Before(*sum.DatetimeStart) {
				ts := *t.DatetimeStart
				sum.DatetimeStart = &ts
			}
		}
		summaries = append(summaries, sum)
	}
	return summaries, nil
}

// ---------------------------------------------------------------------------
// Trials
// ---------------------------------------------------------------------------

// CreateNewTrial appends a trial to the experiment and returns its global
// id. With a nil template the trial starts RUNNING with empty collections
// and the current time as its start. Otherwise the template is deep-copied
// (its ID and Number are ignored) and its distributions are registered on
// the experiment under the same compatibility rules as SetTrialParam.
//
// The trial's number is the experiment's trial count before insertion, so
// numbers are dense and 0-based per experiment.
func (s *Store) CreateNewTrial(experimentID int64, template *model.Trial) (trialID int64, err error) {
	s.lock()
	defer func() { s.unlock(); recordOp(string(OpCreateTrial), err) }()

	exp, err := s.experimentLocked(experimentID)
	if err != nil {
		return -1, err
	}

	var trial *model.Trial
	if template == nil {
		trial = model.NewTrial(model.TrialRunning)
		now := s.now()
		trial.DatetimeStart = &now
	} else {
		trial = template.Clone()
		ensureMaps(trial)
		for name, d := range trial.Distributions {
			if err := checkParamDistributionLocked(exp, name, d); err != nil {
				return -1, err
			}
		}
		for name, d := range trial.Distributions {
			if _, ok := exp.paramDistributions[name]; !ok {
				exp.paramDistributions[name] = d
			}
		}
	}

	s.maxTrialID++
	trial.ID = s.maxTrialID
	trial.Number = len(exp.trials)
	exp.trials = append(exp.trials, trial)
	s.trialRefs[trial.ID] = trialRef{experimentID: experimentID, number: trial.Number}
	trialsCreatedTotal.Inc()

	s.logger.Debug("trial created",
		"experiment_id", experimentID, "trial_id", trial.ID, "number", trial.Number, "state", trial.State)
	s.emitLocked(OpCreateTrial, experimentID, trial.ID, map[string]any{
		"number": trial.Number,
		"state":  trial.State.String(),
	})

	s.updateBestTrialLocked(exp, trial)
	return trial.ID, nil
}

// SetTrialState moves a trial to state. Finished trials cannot move at all
// (ErrNotUpdatable). Requesting RUNNING for a trial that is not WAITING
// returns false and leaves it untouched, so concurrent workers can race to
// claim a waiting trial. Entering a finished state stamps the completion
// time and, for COMPLETE, updates the best-trial cache.
func (s *Store) SetTrialState(trialID int64, state model.TrialState) (ok bool, err error) {
	s.lock()
	defer func() { s.unlock(); recordOp(string(OpSetTrialState), err) }()

	exp, trial, err := s.updatableTrialLocked(trialID)
	if err != nil {
		return false, err
	}
	if state == model.TrialRunning && trial.State != model.TrialWaiting {
		s.logger.Debug("trial already claimed", "trial_id", trialID, "state", trial.State)
		return false, nil
	}

	trial.State = state
	now := s.now()
	if state == model.TrialRunning {
		trial.DatetimeStart = &now
	}
	if state.IsFinished() {
		trial.DatetimeComplete = &now
	}
	trialStateTransitionsTotal.WithLabelValues(state.String()).Inc()

	s.logger.Debug("trial state set", "trial_id", trialID, "state", state)
	s.emitLocked(OpSetTrialState, exp.id, trialID, map[string]any{"state": state.String()})

	if state.IsFinished() {
		s.updateBestTrialLocked(exp, trial)
	}
	return true, nil
}

// SetTrialParam records parameter name, given in its internal
// representation, on the trial. If the experiment already knows a
// distribution for name, d must be compatible with it; the first
// distribution registered for a name stays the experiment's canonical one.
func (s *Store) SetTrialParam(trialID int64, name string, internal float64, d distribution.Distribution) (err error) {
	s.lock()
	defer func() { s.unlock(); recordOp(string(OpSetTrialParam), err) }()

	exp, trial, err := s.updatableTrialLocked(trialID)
	if err != nil {
		return err
	}
	if err := checkParamDistributionLocked(exp, name, d); err != nil {
		return err
	}
	external, err := d.ToExternalRepr(internal)
	if err != nil {
		return fmt.Errorf("trial %d param %q: %w: %v", trialID, name, ErrInvalidParam, err)
	}

	if _, ok := exp.paramDistributions[name]; !ok {
		exp.paramDistributions[name] = d
	}
	trial.Params[name] = external
	trial.Distributions[name] = d

	s.emitLocked(OpSetTrialParam, exp.id, trialID, paramPayload(name, internal, external, d))
	return nil
}

// SetTrialValue sets the trial's objective value.
func (s *Store) SetTrialValue(trialID int64, value float64) (err error) {
	s.lock()
	defer func() { s.unlock(); recordOp(string(OpSetTrialValue), err) }()

	exp, trial, err := s.updatableTrialLocked(trialID)
	if err != nil {
		return err
	}
	trial.Value = &value
	s.emitLocked(OpSetTrialValue, exp.id, trialID, map[string]any{"value": jsonFloat(value)})
	return nil
}

// SetTrialIntermediateValue records value at step, replacing any earlier
// report for the same step.
func (s *Store) SetTrialIntermediateValue(trialID int64, step int, value float64) (err error) {
	s.lock()
	defer func() { s.unlock(); recordOp(string(OpSetIntermediateValue), err) }()

	exp, trial, err := s.updatableTrialLocked(trialID)
	if err != nil {
		return err
	}
	trial.IntermediateValues[step] = value
	s.emitLocked(OpSetIntermediateValue, exp.id, trialID, map[string]any{"step": step, "value": jsonFloat(value)})
	return nil
}

// SetTrialUserAttr upserts key in the trial's user attributes.
func (s *Store) SetTrialUserAttr(trialID int64, key string, value any) (err error) {
	s.lock()
	defer func() { s.unlock(); recordOp(string(OpSetTrialUserAttr), err) }()

	exp, trial, err := s.updatableTrialLocked(trialID)
	if err != nil {
		return err
	}
	trial.UserAttrs[key] = model.CopyAttrs(map[string]any{key: value})[key]
	s.emitLocked(OpSetTrialUserAttr, exp.id, trialID, attrPayload(key, value))
	return nil
}

// SetTrialSystemAttr upserts key in the trial's system attributes.
func (s *Store) SetTrialSystemAttr(trialID int64, key string, value any) (err error) {
	s.lock()
	defer func() { s.unlock(); recordOp(string(OpSetTrialSystemAttr), err) }()

	exp, trial, err := s.updatableTrialLocked(trialID)
	if err != nil {
		return err
	}
	trial.SystemAttrs[key] = model.CopyAttrs(map[string]any{key: value})[key]
	s.emitLocked(OpSetTrialSystemAttr, exp.id, trialID, attrPayload(key, value))
	return nil
}

// GetTrial returns a deep copy of the trial.
func (s *Store) GetTrial(trialID int64) (*model.Trial, error) {
	s.lock()
	defer s.unlock()

	trial, err := s.trialLocked(trialID)
	if err != nil {
		return nil, err
	}
	return trial.Clone(), nil
}

// GetTrialNumberFromID returns the trial's per-experiment number.
func (s *Store) GetTrialNumberFromID(trialID int64) (int, error) {
	s.lock()
	defer s.unlock()

	ref, ok := s.trialRefs[trialID]
	if !ok {
		return -1, fmt.Errorf("trial %d: %w", trialID, ErrNotFound)
	}
	return ref.number, nil
}

// GetTrialIDFromNumber resolves the global id of an experiment's n-th trial.
func (s *Store) GetTrialIDFromNumber(experimentID int64, number int) (int64, error) {
	s.lock()
	defer s.unlock()

	exp, err := s.experimentLocked(experimentID)
	if err != nil {
		return -1, err
	}
	if number < 0 || number >= len(exp.trials) {
		return -1, fmt.Errorf("experiment %d trial number %d: %w", experimentID, number, ErrNotFound)
	}
	return exp.trials[number].ID, nil
}

// GetTrialParam returns parameter name in its internal representation.
func (s *Store) GetTrialParam(trialID int64, name string) (float64, error) {
	s.lock()
	defer s.unlock()

	trial, err := s.trialLocked(trialID)
	if err != nil {
		return 0, err
	}
	d, ok := trial.Distributions[name]
	if !ok {
		return 0, fmt.Errorf("trial %d param %q: %w", trialID, name, ErrNotFound)
	}
	return d.ToInternalRepr(trial.Params[name])
}

// GetAllTrials returns the experiment's trials in creation order, keeping
// only those whose state is in states when any are given.
//
// With deepcopy the result shares nothing with the store. Without it each
// element is a fresh Trial struct whose maps are still the store's own:
// callers must treat them as read-only, and may only read them without
// racing writers when the trial is finished (finished trials are frozen).
func (s *Store) GetAllTrials(experimentID int64, deepcopy bool, states ...model.TrialState) ([]*model.Trial, error) {
	s.lock()
	defer s.unlock()

	exp, err := s.experimentLocked(experimentID)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Trial, 0, len(exp.trials))
	for _, t := range exp.trials {
		if !stateIn(t.State, states) {
			continue
		}
		if deepcopy {
			out = append(out, t.Clone())
		} else {
			c := *t
			out = append(out, &c)
		}
	}
	return out, nil
}

// GetBestTrial returns a copy of the experiment's cached best COMPLETE trial.
func (s *Store) GetBestTrial(experimentID int64) (*model.Trial, error) {
	s.lock()
	defer s.unlock()

	exp, err := s.experimentLocked(experimentID)
	if err != nil {
		return nil, err
	}
	if exp.bestTrialID == nil {
		return nil, fmt.Errorf("experiment %d: %w", experimentID, ErrNoCompletedTrials)
	}
	best, err := s.trialLocked(*exp.bestTrialID)
	if err != nil {
		return nil, err
	}
	return best.Clone(), nil
}

// GetNTrials counts the experiment's trials, restricted to states when any
// are given.
func (s *Store) GetNTrials(experimentID int64, states ...model.TrialState) (int, error) {
	s.lock()
	defer s.unlock()

	exp, err := s.experimentLocked(experimentID)
	if err != nil {
		return 0, err
	}
	if len(states) == 0 {
		return len(exp.trials), nil
	}
	n := 0
	for _, t := range exp.trials {
		if stateIn(t.State, states) {
			n++
		}
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Best-trial cache
// ---------------------------------------------------------------------------

// updateBestTrialLocked folds a trial into its experiment's best-trial cache.
// Only COMPLETE trials count. A missing incumbent, or one without a value,
// is replaced unconditionally. Otherwise MAXIMIZE replaces on a strictly
// larger value and every other direction on a strictly smaller one, so the
// first trial to reach a given value keeps it.
func (s *Store) updateBestTrialLocked(exp *experiment, trial *model.Trial) {
	if trial.State != model.TrialComplete {
		return
	}
	if exp.bestTrialID != nil {
		best, err := s.trialLocked(*exp.bestTrialID)
		if err == nil && best.Value != nil {
			if trial.Value == nil {
				return
			}
			if exp.direction == model.DirectionMaximize {
				if !(*trial.Value > *best.Value) {
					return
				}
			} else if !(*trial.Value < *best.Value) {
				return
			}
		}
	}

	id := trial.ID
	exp.bestTrialID = &id
	bestTrialUpdatesTotal.Inc()
	payload := map[string]any{"number": trial.Number}
	if trial.Value != nil {
		payload["value"] = jsonFloat(*trial.Value)
	}
	s.logger.Debug("best trial changed", "experiment_id", exp.id, "trial_id", id)
	s.emitLocked(OpBestTrialChanged, exp.id, id, payload)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *Store) experimentLocked(experimentID int64) (*experiment, error) {
	exp, ok := s.experiments[experimentID]
	if !ok {
		return nil, fmt.Errorf("experiment %d: %w", experimentID, ErrNotFound)
	}
	return exp, nil
}

func (s *Store) trialLocked(trialID int64) (*model.Trial, error) {
	_, trial, err := s.trialWithExperimentLocked(trialID)
	return trial, err
}

func (s *Store) trialWithExperimentLocked(trialID int64) (*experiment, *model.Trial, error) {
	ref, ok := s.trialRefs[trialID]
	if !ok {
		return nil, nil, fmt.Errorf("trial %d: %w", trialID, ErrNotFound)
	}
	exp, err := s.experimentLocked(ref.experimentID)
	if err != nil {
		return nil, nil, err
	}
	return exp, exp.trials[ref.number], nil
}

// updatableTrialLocked looks up a trial and rejects finished ones.
func (s *Store) updatableTrialLocked(trialID int64) (*experiment, *model.Trial, error) {
	exp, trial, err := s.trialWithExperimentLocked(trialID)
	if err != nil {
		return nil, nil, err
	}
	if trial.State.IsFinished() {
		s.logger.Warn("rejected update of finished trial",
			"trial_id", trialID, "number", trial.Number, "state", trial.State)
		return nil, nil, fmt.Errorf("trial #%d (id %d) is %v: %w", trial.Number, trialID, trial.State, ErrNotUpdatable)
	}
	return exp, trial, nil
}

func checkParamDistributionLocked(exp *experiment, name string, d distribution.Distribution) error {
	prev, ok := exp.paramDistributions[name]
	if !ok {
		return nil
	}
	if err := distribution.CheckCompatibility(prev, d); err != nil {
		return fmt.Errorf("experiment %d param %q: %w", exp.id, name, err)
	}
	return nil
}

func ensureMaps(t *model.Trial) {
	if t.Params == nil {
		t.Params = map[string]any{}
	}
	if t.Distributions == nil {
		t.Distributions = map[string]distribution.Distribution{}
	}
	if t.UserAttrs == nil {
		t.UserAttrs = map[string]any{}
	}
	if t.SystemAttrs == nil {
		t.SystemAttrs = map[string]any{}
	}
	if t.IntermediateValues == nil {
		t.IntermediateValues = map[int]float64{}
	}
}

func stateIn(st model.TrialState, states []model.TrialState) bool {
	if len(states) == 0 {
		return true
	}
	for _, s := range states {
		if s == st {
			return true
		}
	}
	return false
}

func attrPayload(key string, value any) map[string]any {
	return map[string]any{"key": key, "value": model.CopyAttrs(map[string]any{key: value})[key]}
}

func paramPayload(name string, internal float64, external any, d distribution.Distribution) map[string]any {
	if f, ok := external.(float64); ok {
		external = jsonFloat(f)
	}
	p := map[string]any{"name": name, "internal": jsonFloat(internal), "external": external}
	if spec, err := distribution.SpecOf(d); err == nil {
		p["distribution"] = spec
	}
	return p
}

// jsonFloat keeps NaN and ±Inf encodable by rendering them as strings.
func jsonFloat(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Sprint(v)
	}
	return v
}
