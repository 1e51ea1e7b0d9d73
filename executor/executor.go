// Package executor schedules and times benchmark trials.
//
// Each (benchmark × parameter assignment) unit runs as one trial:
//
//	Created → TrialSetup → WarmupIteration* → MeasurementIteration* → TrialTeardown → Reported
//
// Trials run one after another on the calling goroutine. Nothing is
// measured concurrently, and nothing interrupts a trial: an operation that
// never returns blocks the executor forever.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/weiihann/microbench/blackhole"
	"github.com/weiihann/microbench/config"
	"github.com/weiihann/microbench/platform"
	"github.com/weiihann/microbench/suite"
)

// Plan pairs a unit with the configuration it runs under.
type Plan struct {
	Unit   suite.Unit
	Config config.RunConfiguration
}

// Result is the outcome of one trial. Samples holds one value per
// measurement iteration; warm-up samples are not kept.
type Result struct {
	Unit    suite.Unit
	Config  config.RunConfiguration
	Samples []float64
	Err     *HookError

	// States lists the lifecycle states the trial passed through.
	States []State
}

// Failed reports whether the trial was aborted.
func (r Result) Failed() bool { return r.Err != nil }

// Executor runs trials with an injected time source.
type Executor struct {
	clock   platform.TimeSource
	logger  *slog.Logger
	metrics *Metrics
	pin     func(cpu int) error
}

// Option configures an Executor.
type Option func(*Executor)

// WithMetrics records executor activity into m.
func WithMetrics(m *Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithAffinity replaces the function used to honor advanced:cpu.
func WithAffinity(pin func(cpu int) error) Option {
	return func(e *Executor) { e.pin = pin }
}

func New(clock platform.TimeSource, logger *slog.Logger, opts ...Option) *Executor {
	e := &Executor{clock: clock, logger: logger, pin: platform.PinToCPU}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Run executes every plan in order. A failing unit is logged and returned
// with its error; the remaining plans still run.
func (e *Executor) Run(ctx context.Context, plans []Plan) []Result {
	results := make([]Result, 0, len(plans))

	for i, p := range plans {
		e.logger.InfoContext(ctx, "running benchmark",
			slog.String("benchmark", p.Unit.ID()),
			slog.Int("unit", i+1),
			slog.Int("units", len(plans)),
		)

		r := e.RunTrial(ctx, p)
		if r.Failed() {
			e.logger.WarnContext(ctx, "benchmark failed",
				slog.String("benchmark", p.Unit.ID()),
				slog.String("phase", string(r.Err.Phase)),
				slog.String("error", r.Err.Err.Error()),
			)
		}

		results = append(results, r)
	}

	return results
}

// trial is the mutable state of one running unit.
type trial struct {
	stateMachine

	id       string
	unit     suite.Unit
	cfg      config.RunConfiguration
	instance any
	measurer *Measurer
}

// RunTrial runs a single unit through its full lifecycle.
func (e *Executor) RunTrial(ctx context.Context, p Plan) Result {
	t := &trial{
		id:   p.Unit.ID(),
		unit: p.Unit,
		cfg:  p.Config,
	}
	result := Result{Unit: p.Unit, Config: p.Config}

	start := time.Now()
	err := e.runTrial(ctx, t, &result)
	t.to(Reported)
	result.States = t.history

	var hookErr *HookError
	if err != nil && !errors.As(err, &hookErr) {
		hookErr = &HookError{Benchmark: t.id, Phase: PhaseTrialSetup, Err: err}
	}

	if hookErr != nil {
		result.Samples = nil
		result.Err = hookErr
	}

	e.metrics.observeTrial(t.unit.FullName(), hookErr)

	e.logger.DebugContext(ctx, "trial finished",
		slog.String("benchmark", t.id),
		slog.Duration("wall_time", time.Since(start)),
		slog.Int("samples", len(result.Samples)),
	)

	return result
}

func (e *Executor) runTrial(ctx context.Context, t *trial, result *Result) error {
	t.to(TrialSetup)

	if err := t.cfg.Validate(); err != nil {
		return fmt.Errorf("run configuration: %w", err)
	}

	adv, err := ParseAdvanced(t.cfg.Advanced)
	if err != nil {
		return fmt.Errorf("advanced options: %w", err)
	}

	bh, err := blackhole.New(adv.Blackhole)
	if err != nil {
		return err
	}

	if adv.CPU >= 0 {
		if err := e.pin(adv.CPU); err != nil {
			e.logger.WarnContext(ctx, "cpu pinning unavailable",
				slog.String("benchmark", t.id),
				slog.Int("cpu", adv.CPU),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := e.setupTrial(t); err != nil {
		return err
	}

	t.measurer = NewMeasurer(e.clock, bh, t.cfg.IterationDuration())

	failure := e.iterations(ctx, t, result)

	t.to(TrialTeardown)

	if td := t.unit.Suite.Teardown; td != nil {
		err := call(t.id, PhaseTrialTeardown, func() error { return td(t.instance) })
		if failure == nil {
			failure = err
		}
	}

	return failure
}

// setupTrial creates the state instance, injects parameters and runs the
// trial setup hook.
func (e *Executor) setupTrial(t *trial) error {
	d := t.unit.Suite

	err := call(t.id, PhaseTrialSetup, func() error {
		t.instance = d.New()
		if t.instance == nil {
			return errors.New("state factory returned nil")
		}

		return nil
	})
	if err != nil {
		return err
	}

	for _, p := range t.unit.Params {
		err := call(t.id, PhaseParameters, func() error {
			return d.SetParameter(t.instance, p.Key, p.Value)
		})
		if err != nil {
			return err
		}
	}

	if d.Setup != nil {
		return call(t.id, PhaseTrialSetup, func() error { return d.Setup(t.instance) })
	}

	return nil
}

// iterations runs warm-up then measurement iterations and returns the first
// failure.
func (e *Executor) iterations(ctx context.Context, t *trial, result *Result) error {
	for i := 0; i < t.cfg.Warmups; i++ {
		t.to(WarmupIteration)

		if _, err := e.iterate(ctx, t, i); err != nil {
			return err
		}
	}

	samples := make([]float64, 0, t.cfg.Iterations)

	for i := 0; i < t.cfg.Iterations; i++ {
		t.to(MeasurementIteration)

		s, err := e.iterate(ctx, t, i)
		if err != nil {
			return err
		}

		samples = append(samples, s)
	}

	result.Samples = samples

	return nil
}

// iterate runs one iteration in the current state and returns its sample.
func (e *Executor) iterate(ctx context.Context, t *trial, index int) (float64, error) {
	b := t.unit.Benchmark

	if b.Setup != nil {
		if err := call(t.id, PhaseIterationSetup, func() error { return b.Setup(t.instance) }); err != nil {
			return 0, err
		}
	}

	var res IterationResult
	err := call(t.id, PhaseOperation, func() error {
		res = t.measurer.Measure(t.instance, b)
		return nil
	})
	if err != nil {
		return 0, err
	}

	if b.Teardown != nil {
		if err := call(t.id, PhaseIterationTeardown, func() error { return b.Teardown(t.instance) }); err != nil {
			return 0, err
		}
	}

	sample := Sample(t.cfg.Mode, res)
	e.metrics.observeIteration(t.unit.FullName(), t.state, res)

	e.logger.DebugContext(ctx, "iteration complete",
		slog.String("benchmark", t.id),
		slog.String("phase", t.state.String()),
		slog.Int("index", index+1),
		slog.Int64("cycles", res.Invocations),
		slog.Duration("elapsed", time.Duration(res.ElapsedNanos)),
		slog.Float64("sample", sample),
	)

	return sample, nil
}
