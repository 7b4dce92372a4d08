// Package scenario replays a declarative YAML description of experiments
// and trials against a store. It is how tm exercises the registry without a
// search algorithm: every parameter value and objective is given up front.
package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/daviddao/trialmem/pkg/distribution"
	"github.com/daviddao/trialmem/pkg/model"
	"github.com/daviddao/trialmem/pkg/store"
)

// Scenario is the top-level YAML document.
type Scenario struct {
	// Parallel is the number of workers replaying each experiment's trials.
	// Zero or one replays them sequentially, in file order.
	Parallel    int          `yaml:"parallel"`
	Experiments []Experiment `yaml:"experiments"`
}

type Experiment struct {
	Name        string         `yaml:"name"`
	Direction   string         `yaml:"direction"`
	UserAttrs   map[string]any `yaml:"user_attrs"`
	SystemAttrs map[string]any `yaml:"system_attrs"`
	Trials      []Trial        `yaml:"trials"`
}

type Trial struct {
	// Waiting enqueues the trial as WAITING and then claims it, the way a
	// worker picks up a queued trial.
	Waiting      bool            `yaml:"waiting"`
	Params       []Param         `yaml:"params"`
	Intermediate map[int]float64 `yaml:"intermediate"`
	Value        *float64        `yaml:"value"`
	State        string          `yaml:"state"`
	UserAttrs    map[string]any  `yaml:"user_attrs"`
	SystemAttrs  map[string]any  `yaml:"system_attrs"`
}

type Param struct {
	Name         string            `yaml:"name"`
	Value        any               `yaml:"value"`
	Distribution distribution.Spec `yaml:"distribution"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a scenario document.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks everything that can be checked without a store.
func (sc *Scenario) Validate() error {
	if sc.Parallel < 0 {
		return fmt.Errorf("scenario: parallel must be >= 0, got %d", sc.Parallel)
	}
	for i, e := range sc.Experiments {
		if e.Direction != "" {
			if _, err := model.ParseDirection(e.Direction); err != nil {
				return fmt.Errorf("scenario: experiment %d: %w", i, err)
			}
		}
		for j, t := range e.Trials {
			if t.State != "" {
				if _, err := model.ParseTrialState(t.State); err != nil {
					return fmt.Errorf("scenario: experiment %d trial %d: %w", i, j, err)
				}
			}
			for _, p := range t.Params {
				if _, _, err := p.internal(); err != nil {
					return fmt.Errorf("scenario: experiment %d trial %d: %w", i, j, err)
				}
			}
		}
	}
	return nil
}

func (p Param) internal() (float64, distribution.Distribution, error) {
	d, err := p.Distribution.Build()
	if err != nil {
		return 0, nil, fmt.Errorf("param %q: %w", p.Name, err)
	}
	v, err := d.ToInternalRepr(p.Value)
	if err != nil {
		return 0, nil, fmt.Errorf("param %q: %w", p.Name, err)
	}
	if !d.Contains(v) {
		return 0, nil, fmt.Errorf("param %q: value %v outside its distribution", p.Name, p.Value)
	}
	return v, d, nil
}

// Result is what a replay produced.
type Result struct {
	ExperimentIDs []int64                   `json:"experiment_ids"`
	Summaries     []model.ExperimentSummary `json:"summaries"`
}

// Runner replays scenarios.
type Runner struct {
	store  store.StoreInterface
	logger *slog.Logger
}

// NewRunner returns a Runner driving s.
func NewRunner(s store.StoreInterface, logger *slog.Logger) *Runner {
	return &Runner{store: s, logger: logger}
}

// Run replays sc. Experiments are created in order; each experiment's
// trials are replayed by up to sc.Parallel workers. The first error stops
// the replay.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Result, error) {
	res := &Result{}
	for i, e := range sc.Experiments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id, err := r.createExperiment(e)
		if err != nil {
			return nil, fmt.Errorf("experiment %d: %w", i, err)
		}
		res.ExperimentIDs = append(res.ExperimentIDs, id)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(sc.Parallel, 1))
		for j, t := range e.Trials {
			j, t := j, t
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := r.replayTrial(id, t); err != nil {
					return fmt.Errorf("experiment %d trial %d: %w", i, j, err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		r.logger.Info("experiment replayed", "experiment_id", id, "trials", len(e.Trials))
	}

	sums, err := r.store.GetAllExperimentSummaries()
	if err != nil {
		return nil, err
	}
	res.Summaries = sums
	return res, nil
}

func (r *Runner) createExperiment(e Experiment) (int64, error) {
	id, err := r.store.CreateExperiment(e.Name)
	if err != nil {
		return -1, err
	}
	if e.Direction != "" {
		d, err := model.ParseDirection(e.Direction)
		if err != nil {
			return -1, err
		}
		if err := r.store.SetExperimentDirection(id, d); err != nil {
			return -1, err
		}
	}
	for k, v := range e.UserAttrs {
		if err := r.store.SetExperimentUserAttr(id, k, v); err != nil {
			return -1, err
		}
	}
	for k, v := range e.SystemAttrs {
		if err := r.store.SetExperimentSystemAttr(id, k, v); err != nil {
			return -1, err
		}
	}
	return id, nil
}

func (r *Runner) replayTrial(experimentID int64, t Trial) error {
	var template *model.Trial
	if t.Waiting {
		template = model.NewTrial(model.TrialWaiting)
	}
	id, err := r.store.CreateNewTrial(experimentID, template)
	if err != nil {
		return err
	}
	if t.Waiting {
		ok, err := r.store.SetTrialState(id, model.TrialRunning)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("trial %d: could not claim waiting trial", id)
		}
	}

	for _, p := range t.Params {
		v, d, err := p.internal()
		if err != nil {
			return err
		}
		if err := r.store.SetTrialParam(id, p.Name, v, d); err != nil {
			return err
		}
	}
	for step, v := range t.Intermediate {
		if err := r.store.SetTrialIntermediateValue(id, step, v); err != nil {
			return err
		}
	}
	for k, v := range t.UserAttrs {
		if err := r.store.SetTrialUserAttr(id, k, v); err != nil {
			return err
		}
	}
	for k, v := range t.SystemAttrs {
		if err := r.store.SetTrialSystemAttr(id, k, v); err != nil {
			return err
		}
	}
	if t.Value != nil {
		if err := r.store.SetTrialValue(id, *t.Value); err != nil {
			return err
		}
	}

	state, err := t.finalState()
	if err != nil {
		return err
	}
	if state == model.TrialRunning {
		return nil
	}
	if _, err := r.store.SetTrialState(id, state); err != nil {
		return err
	}
	r.logger.Debug("trial replayed", "trial_id", id, "state", state)
	return nil
}

// finalState defaults to COMPLETE when a value is given and RUNNING
// (left open) otherwise.
func (t Trial) finalState() (model.TrialState, error) {
	if t.State != "" {
		return model.ParseTrialState(t.State)
	}
	if t.Value != nil {
		return model.TrialComplete, nil
	}
	return model.TrialRunning, nil
}
