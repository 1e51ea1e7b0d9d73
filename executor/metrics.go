package executor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts executor activity. Recording happens between timed
// blocks, never inside one. A nil *Metrics records nothing.
type Metrics struct {
	iterations  *prometheus.CounterVec
	invocations *prometheus.CounterVec
	failures    *prometheus.CounterVec
	iterSeconds *prometheus.HistogramVec
	trials      *prometheus.CounterVec
}

// NewMetrics registers the executor metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		// Labels: benchmark, phase (warmup, measurement)
		iterations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "microbench",
			Subsystem: "executor",
			Name:      "iterations_total",
			Help:      "Timed iterations completed",
		}, []string{"benchmark", "phase"}),

		invocations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "microbench",
			Subsystem: "executor",
			Name:      "invocations_total",
			Help:      "Operation invocations inside timed blocks",
		}, []string{"benchmark"}),

		// Labels: benchmark, phase (the hook phase that failed)
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "microbench",
			Subsystem: "executor",
			Name:      "unit_failures_total",
			Help:      "Benchmark units aborted by a hook or operation failure",
		}, []string{"benchmark", "phase"}),

		iterSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "microbench",
			Subsystem: "executor",
			Name:      "iteration_duration_seconds",
			Help:      "Wall time of one timed batch",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"phase"}),

		// Labels: outcome (ok, failed)
		trials: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "microbench",
			Subsystem: "executor",
			Name:      "trials_total",
			Help:      "Benchmark units run to completion",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) observeIteration(benchmark string, state State, r IterationResult) {
	if m == nil {
		return
	}

	m.iterations.WithLabelValues(benchmark, state.String()).Inc()
	m.invocations.WithLabelValues(benchmark).Add(float64(r.Invocations))
	m.iterSeconds.WithLabelValues(state.String()).Observe(float64(r.ElapsedNanos) / 1e9)
}

func (m *Metrics) observeTrial(benchmark string, err *HookError) {
	if m == nil {
		return
	}

	if err != nil {
		m.failures.WithLabelValues(benchmark, string(err.Phase)).Inc()
		m.trials.WithLabelValues("failed").Inc()

		return
	}

	m.trials.WithLabelValues("ok").Inc()
}
