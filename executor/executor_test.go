package executor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiihann/microbench/blackhole"
	"github.com/weiihann/microbench/config"
	"github.com/weiihann/microbench/suite"
)

type recorder struct {
	events []string
	calls  int64
	size   string
}

func (r *recorder) log(e string) { r.events = append(r.events, e) }

// recorderSuite builds a suite whose hooks record their order. fail names a
// hook or "operation" to fail, panicked selects a panic over an error.
func recorderSuite(state *recorder, fail string, panicked bool) *suite.Descriptor {
	hook := func(name string) suite.Hook {
		return func(s any) error {
			s.(*recorder).log(name)
			if name != fail {
				return nil
			}
			if panicked {
				panic("boom")
			}
			return errors.New("boom")
		}
	}

	return &suite.Descriptor{
		Name:       "test.Recorder",
		New:        func() any { return state },
		Setup:      hook("trial setup"),
		Teardown:   hook("trial teardown"),
		Parameters: []suite.ParameterSpec{{Name: "size", Values: []string{"1"}}},
		SetParameter: func(s any, name, value string) error {
			s.(*recorder).log("param " + name + "=" + value)
			s.(*recorder).size = value
			return nil
		},
		Benchmarks: []suite.Benchmark{{
			Name: "op",
			Run: func(s any, _ blackhole.Blackhole) any {
				r := s.(*recorder)
				r.calls++
				if fail == "operation" && panicked {
					panic("boom")
				}
				return r.calls
			},
			Setup:    hook("iteration setup"),
			Teardown: hook("iteration teardown"),
		}},
	}
}

func unitOf(d *suite.Descriptor) suite.Unit {
	return suite.Unit{Suite: d, Benchmark: &d.Benchmarks[0], Params: suite.Assignments(d.Parameters)[0]}
}

func testConfig(iterations, warmups int) config.RunConfiguration {
	c := config.Default()
	c.Iterations = iterations
	c.Warmups = warmups
	c.IterationTime = 10
	c.IterationTimeUnit = config.Microseconds

	return c
}

func newTestExecutor(state *recorder, opts ...Option) *Executor {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(costClock{&state.calls, fixedCost(100)}, logger, opts...)
}

func TestRunTrialLifecycle(t *testing.T) {
	state := &recorder{}
	d := recorderSuite(state, "", false)
	e := newTestExecutor(state)

	r := e.RunTrial(context.Background(), Plan{Unit: unitOf(d), Config: testConfig(3, 1)})

	require.False(t, r.Failed())
	assert.Len(t, r.Samples, 3)
	assert.Equal(t, "1", state.size)

	iteration := []string{"iteration setup", "iteration teardown"}
	want := []string{"param size=1", "trial setup"}
	for i := 0; i < 4; i++ {
		want = append(want, iteration...)
	}
	want = append(want, "trial teardown")
	assert.Equal(t, want, state.events)

	assert.Equal(t, []State{
		TrialSetup,
		WarmupIteration,
		MeasurementIteration, MeasurementIteration, MeasurementIteration,
		TrialTeardown,
		Reported,
	}, r.States)
}

func TestRunTrialNoWarmups(t *testing.T) {
	state := &recorder{}
	d := recorderSuite(state, "", false)
	e := newTestExecutor(state)

	r := e.RunTrial(context.Background(), Plan{Unit: unitOf(d), Config: testConfig(2, 0)})

	require.False(t, r.Failed())
	assert.Equal(t, []State{TrialSetup, MeasurementIteration, MeasurementIteration, TrialTeardown, Reported}, r.States)
}

func TestRunTrialSamples(t *testing.T) {
	state := &recorder{}
	d := recorderSuite(state, "", false)
	e := newTestExecutor(state)

	cfg := testConfig(4, 2)
	cfg.Mode = config.AverageTime

	r := e.RunTrial(context.Background(), Plan{Unit: unitOf(d), Config: cfg})
	require.False(t, r.Failed())

	// Every call costs 100ns.
	for _, s := range r.Samples {
		assert.InDelta(t, 100.0, s, 1e-9)
	}

	cfg.Mode = config.Throughput
	r = e.RunTrial(context.Background(), Plan{Unit: unitOf(d), Config: cfg})
	require.False(t, r.Failed())

	for _, s := range r.Samples {
		assert.InDelta(t, 1e7, s, 1e-3)
	}
}

func TestRunTrialFailures(t *testing.T) {
	tests := []struct {
		hook         string
		phase        Phase
		wantTeardown bool
		wantStates   []State
	}{
		{"trial setup", PhaseTrialSetup, false, []State{TrialSetup, Reported}},
		{"iteration setup", PhaseIterationSetup, true, []State{TrialSetup, WarmupIteration, TrialTeardown, Reported}},
		{"iteration teardown", PhaseIterationTeardown, true, []State{TrialSetup, WarmupIteration, TrialTeardown, Reported}},
		{"trial teardown", PhaseTrialTeardown, true, nil},
		{"operation", PhaseOperation, true, []State{TrialSetup, WarmupIteration, TrialTeardown, Reported}},
	}

	for _, panicked := range []bool{false, true} {
		for _, tt := range tests {
			if tt.hook == "operation" && !panicked {
				continue
			}

			name := tt.hook
			if panicked {
				name += " panic"
			}

			t.Run(name, func(t *testing.T) {
				state := &recorder{}
				d := recorderSuite(state, tt.hook, panicked)
				e := newTestExecutor(state)

				r := e.RunTrial(context.Background(), Plan{Unit: unitOf(d), Config: testConfig(3, 1)})

				require.True(t, r.Failed())
				assert.Empty(t, r.Samples)
				assert.Equal(t, tt.phase, r.Err.Phase)
				assert.Equal(t, "test.Recorder.op | size=1", r.Err.Benchmark)
				assert.ErrorIs(t, r.Err, ErrHook)

				if panicked {
					var pe *PanicError
					require.ErrorAs(t, r.Err, &pe)
					assert.Equal(t, "boom", pe.Value)
					assert.NotEmpty(t, pe.Stack)
				}

				assert.Equal(t, tt.wantTeardown, state.events[len(state.events)-1] == "trial teardown")
				if tt.wantStates != nil {
					assert.Equal(t, tt.wantStates, r.States)
				}
				assert.Equal(t, Reported, r.States[len(r.States)-1])
			})
		}
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	bad := &recorder{}
	good := &recorder{}

	badSuite := recorderSuite(bad, "trial setup", true)
	goodSuite := recorderSuite(good, "", false)
	goodSuite.Name = "test.Good"

	// Both suites share one clock counter through good.calls; bad never
	// reaches an iteration.
	e := newTestExecutor(good)

	results := e.Run(context.Background(), []Plan{
		{Unit: unitOf(badSuite), Config: testConfig(2, 0)},
		{Unit: unitOf(goodSuite), Config: testConfig(2, 0)},
	})

	require.Len(t, results, 2)
	assert.True(t, results[0].Failed())
	assert.False(t, results[1].Failed())
	assert.Len(t, results[1].Samples, 2)
}

func TestRunTrialInvalidAdvanced(t *testing.T) {
	state := &recorder{}
	d := recorderSuite(state, "", false)
	e := newTestExecutor(state)

	cfg := testConfig(1, 0)
	cfg.Advanced = config.Options{{Key: OptionBlackhole, Value: "void"}}

	r := e.RunTrial(context.Background(), Plan{Unit: unitOf(d), Config: cfg})

	require.True(t, r.Failed())
	assert.Equal(t, PhaseTrialSetup, r.Err.Phase)
	assert.ErrorIs(t, r.Err, config.ErrConfiguration)
	assert.Empty(t, state.events)
}

func TestRunTrialInvalidConfiguration(t *testing.T) {
	state := &recorder{}
	d := recorderSuite(state, "", false)
	e := newTestExecutor(state)

	r := e.RunTrial(context.Background(), Plan{Unit: unitOf(d), Config: testConfig(0, 0)})

	require.True(t, r.Failed())
	assert.Equal(t, PhaseTrialSetup, r.Err.Phase)

	var ive *config.InvalidValueError
	require.ErrorAs(t, r.Err, &ive)
	assert.Equal(t, config.KeyIterations, ive.Key)
	assert.Empty(t, state.events)
	assert.Equal(t, []State{TrialSetup, Reported}, r.States[len(r.States)-2:])
}

func TestRunTrialGuardBlackhole(t *testing.T) {
	state := &recorder{}
	d := recorderSuite(state, "", false)
	e := newTestExecutor(state)

	cfg := testConfig(2, 1)
	cfg.Advanced = config.Options{{Key: OptionBlackhole, Value: blackhole.StrategyGuard}}

	r := e.RunTrial(context.Background(), Plan{Unit: unitOf(d), Config: cfg})

	require.False(t, r.Failed())
	assert.Len(t, r.Samples, 2)
}

func TestRunTrialMetrics(t *testing.T) {
	state := &recorder{}
	d := recorderSuite(state, "", false)
	reg := prometheus.NewRegistry()
	e := newTestExecutor(state, WithMetrics(NewMetrics(reg)))

	r := e.RunTrial(context.Background(), Plan{Unit: unitOf(d), Config: testConfig(3, 2)})
	require.False(t, r.Failed())

	failing := recorderSuite(&recorder{}, "iteration setup", false)
	failing.Name = "test.Failing"
	e.RunTrial(context.Background(), Plan{Unit: unitOf(failing), Config: testConfig(1, 0)})

	m := e.metrics
	assert.Equal(t, 2.0, testutil.ToFloat64(m.iterations.WithLabelValues("test.Recorder.op", "warmup")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.iterations.WithLabelValues("test.Recorder.op", "measurement")))
	assert.Equal(t, float64(state.calls), testutil.ToFloat64(m.invocations.WithLabelValues("test.Recorder.op")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.trials.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.trials.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("test.Failing.op", string(PhaseIterationSetup))))
}

func TestIllegalTransitionPanics(t *testing.T) {
	var m stateMachine

	assert.Panics(t, func() { m.to(MeasurementIteration) })

	m.to(TrialSetup)
	m.to(MeasurementIteration)
	assert.Panics(t, func() { m.to(WarmupIteration) })
	assert.Panics(t, func() { m.to(Reported) })
}

func TestParseAdvanced(t *testing.T) {
	adv, err := ParseAdvanced(nil)
	require.NoError(t, err)
	assert.Equal(t, Advanced{CPU: -1}, adv)

	adv, err = ParseAdvanced(config.Options{
		{Key: OptionCPU, Value: "2"},
		{Key: OptionBlackhole, Value: "guard"},
		{Key: "jvmArgs", Value: "ignored"},
	})
	require.NoError(t, err)
	assert.Equal(t, Advanced{Blackhole: "guard", CPU: 2}, adv)

	for _, opts := range []config.Options{
		{{Key: OptionCPU, Value: "-1"}},
		{{Key: OptionCPU, Value: "x"}},
		{{Key: OptionBlackhole, Value: "void"}},
	} {
		_, err := ParseAdvanced(opts)

		var ive *config.InvalidValueError
		require.ErrorAs(t, err, &ive)
	}
}

func TestRunTrialPinsCPU(t *testing.T) {
	state := &recorder{}
	d := recorderSuite(state, "", false)

	var pinned []int
	e := newTestExecutor(state, WithAffinity(func(cpu int) error {
		pinned = append(pinned, cpu)
		return errors.New("unsupported")
	}))

	cfg := testConfig(1, 0)
	r := e.RunTrial(context.Background(), Plan{Unit: unitOf(d), Config: cfg})
	require.False(t, r.Failed())
	assert.Empty(t, pinned)

	cfg.Advanced = config.Options{{Key: OptionCPU, Value: "3"}}
	r = e.RunTrial(context.Background(), Plan{Unit: unitOf(d), Config: cfg})

	require.False(t, r.Failed(), "pinning failure is not fatal")
	assert.Equal(t, []int{3}, pinned)
}
