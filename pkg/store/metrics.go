package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trialmem_store_operations_total",
		Help: "Store operations by name and outcome",
	}, []string{"op", "result"})

	trialsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trialmem_trials_created_total",
		Help: "Trials created across all experiments",
	})

	trialStateTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trialmem_trial_state_transitions_total",
		Help: "Accepted trial state transitions by target state",
	}, []string{"state"})

	bestTrialUpdatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trialmem_best_trial_updates_total",
		Help: "Times an experiment's cached best trial changed",
	})
)

func recordOp(op string, err error) {
	operationsTotal.WithLabelValues(op, resultLabel(err)).Inc()
}
