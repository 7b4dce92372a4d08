package scenario

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daviddao/trialmem/pkg/model"
	"github.com/daviddao/trialmem/pkg/store"
)

const sample = `
experiments:
  - name: mnist
    direction: maximize
    user_attrs:
      team: vision
    trials:
      - params:
          - name: lr
            value: 0.01
            distribution: {type: float, low: 0.0001, high: 1, log: true}
          - name: act
            value: relu
            distribution: {type: categorical, choices: [relu, tanh]}
          - name: layers
            value: 3
            distribution: {type: int, low: 1, high: 8}
        intermediate: {0: 0.5, 1: 0.7}
        value: 0.91
      - waiting: true
        value: 0.95
        user_attrs: {note: best}
      - value: 0.4
        state: pruned
      - params:
          - name: lr
            value: 0.5
            distribution: {type: float, low: 0.0001, high: 1, log: true}
  - direction: minimize
    trials:
      - value: 3
      - value: 1
      - state: fail
`

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestParse_Sample(t *testing.T) {
	sc, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.Len(t, sc.Experiments, 2)
	assert.Len(t, sc.Experiments[0].Trials, 4)
	assert.True(t, sc.Experiments[0].Trials[1].Waiting)
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"bad yaml":      "experiments: [",
		"bad direction": "experiments: [{direction: up}]",
		"bad state":     "experiments: [{trials: [{state: paused}]}]",
		"bad dist":      "experiments: [{trials: [{params: [{name: x, value: 1, distribution: {type: beta}}]}]}]",
		"out of range":  "experiments: [{trials: [{params: [{name: x, value: 9, distribution: {type: int, low: 0, high: 3}}]}]}]",
		"bad choice":    "experiments: [{trials: [{params: [{name: x, value: c, distribution: {type: categorical, choices: [a, b]}}]}]}]",
		"neg parallel":  "parallel: -1",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	sc, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, sc.Experiments, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestRun_Sequential(t *testing.T) {
	sc, err := Parse([]byte(sample))
	require.NoError(t, err)
	s := store.New()

	res, err := NewRunner(s, quietLogger()).Run(context.Background(), sc)
	require.NoError(t, err)
	require.Len(t, res.ExperimentIDs, 2)
	require.Len(t, res.Summaries, 2)

	mnist := res.Summaries[0]
	assert.Equal(t, "mnist", mnist.Name)
	assert.Equal(t, model.DirectionMaximize, mnist.Direction)
	assert.Equal(t, 4, mnist.NTrials)
	assert.Equal(t, "vision", mnist.UserAttrs["team"])
	require.NotNil(t, mnist.BestTrial)
	assert.Equal(t, 1, mnist.BestTrial.Number)
	assert.Equal(t, 0.95, *mnist.BestTrial.Value)
	assert.Equal(t, "best", mnist.BestTrial.UserAttrs["note"])

	first, err := s.GetTrial(mustTrialID(t, s, res.ExperimentIDs[0], 0))
	require.NoError(t, err)
	assert.Equal(t, "relu", first.Params["act"])
	assert.Equal(t, int64(3), first.Params["layers"])
	assert.Equal(t, map[int]float64{0: 0.5, 1: 0.7}, first.IntermediateValues)

	open, err := s.GetNTrials(res.ExperimentIDs[0], model.TrialRunning)
	require.NoError(t, err)
	assert.Equal(t, 1, open, "trial without value or state stays running")

	unnamed := res.Summaries[1]
	assert.True(t, strings.HasPrefix(unnamed.Name, store.GeneratedNamePrefix))
	assert.Equal(t, 1.0, *unnamed.BestTrial.Value)
	failed, _ := s.GetNTrials(res.ExperimentIDs[1], model.TrialFail)
	assert.Equal(t, 1, failed)
}

func TestRun_Parallel(t *testing.T) {
	var b strings.Builder
	b.WriteString("parallel: 8\nexperiments:\n  - name: wide\n    direction: minimize\n    trials:\n")
	for i := 0; i < 64; i++ {
		fmt.Fprintf(&b, "      - value: %d\n        waiting: true\n", 100-i)
	}
	sc, err := Parse([]byte(b.String()))
	require.NoError(t, err)

	s := store.New()
	res, err := NewRunner(s, quietLogger()).Run(context.Background(), sc)
	require.NoError(t, err)

	sum := res.Summaries[0]
	assert.Equal(t, 64, sum.NTrials)
	require.NotNil(t, sum.BestTrial)
	assert.Equal(t, 37.0, *sum.BestTrial.Value)

	complete, _ := s.GetNTrials(res.ExperimentIDs[0], model.TrialComplete)
	assert.Equal(t, 64, complete)
}

func TestRun_DuplicateNameFails(t *testing.T) {
	sc, err := Parse([]byte("experiments: [{name: a}, {name: a}]"))
	require.NoError(t, err)
	_, err = NewRunner(store.New(), quietLogger()).Run(context.Background(), sc)
	require.ErrorIs(t, err, store.ErrDuplicatedExperiment)
}

func TestRun_IncompatibleParamFails(t *testing.T) {
	doc := `
experiments:
  - name: clash
    trials:
      - params: [{name: x, value: 1, distribution: {type: int, low: 0, high: 3}}]
      - params: [{name: x, value: 0.5, distribution: {type: float, low: 0, high: 1}}]
`
	sc, err := Parse([]byte(doc))
	require.NoError(t, err)
	_, err = NewRunner(store.New(), quietLogger()).Run(context.Background(), sc)
	require.ErrorIs(t, err, store.ErrIncompatibleDistribution)
}

func TestRun_Canceled(t *testing.T) {
	sc, err := Parse([]byte(sample))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewRunner(store.New(), quietLogger()).Run(ctx, sc)
	require.ErrorIs(t, err, context.Canceled)
}

func mustTrialID(t *testing.T, s *store.Store, expID int64, number int) int64 {
	t.Helper()
	id, err := s.GetTrialIDFromNumber(expID, number)
	require.NoError(t, err)
	return id
}
