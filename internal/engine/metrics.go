package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric definitions. Runs are labelled by outcome only; task names are
// user-controlled and would make label cardinality unbounded.
var (
	// runsTotal counts Calculate invocations by outcome (success/error).
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "popdyn_runs_total",
		Help: "Total number of simulation runs by outcome (success or error)",
	}, []string{"outcome"})

	// stepsTotal counts advanced time steps across all runs.
	stepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "popdyn_steps_total",
		Help: "Total number of time steps advanced",
	})

	// applicationsTotal counts transition applications by pass.
	applicationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "popdyn_transition_applications_total",
		Help: "Total number of transition applications by pass (normal or residual)",
	}, []string{"pass"})

	// runDuration tracks wall time of a full run.
	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "popdyn_run_duration_seconds",
		Help:    "Duration of simulation runs by outcome",
		Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1, 5, 30},
	}, []string{"outcome"})
)

const (
	passNormal   = "normal"
	passResidual = "residual"

	outcomeSuccess = "success"
	outcomeError   = "error"
)
