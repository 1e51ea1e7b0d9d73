package harness

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiihann/microbench/blackhole"
	"github.com/weiihann/microbench/config"
	"github.com/weiihann/microbench/hostconfig"
	"github.com/weiihann/microbench/platform"
	"github.com/weiihann/microbench/report"
	"github.com/weiihann/microbench/suite"
	"github.com/weiihann/microbench/worker"
)

// helperEnv turns the test binary into a worker process.
const helperEnv = "MICROBENCH_HELPER_WORKER"

func helperSuites() []*suite.Descriptor {
	iterations, warmups := 2, 0
	iterTime := int64(1)
	unit := config.Milliseconds

	return []*suite.Descriptor{
		{
			Name: "helper.Ops",
			New:  func() any { return new(int) },
			Parameters: []suite.ParameterSpec{
				{Name: "n", Values: []string{"1", "2"}},
			},
			SetParameter: func(any, string, string) error { return nil },
			Benchmarks: []suite.Benchmark{
				{
					Name: "inc",
					Run: func(state any, _ blackhole.Blackhole) any {
						p := state.(*int)
						*p++
						return *p
					},
				},
				{
					Name: "fail",
					Run: func(any, blackhole.Blackhole) any {
						panic("always")
					},
				},
			},
			Defaults: config.Overrides{
				Iterations:        &iterations,
				Warmups:           &warmups,
				IterationTime:     &iterTime,
				IterationTimeUnit: &unit,
			},
		},
		{
			Name: "helper.Crash",
			New:  func() any { return new(int) },
			Benchmarks: []suite.Benchmark{
				{
					Name: "exit",
					Run: func(any, blackhole.Blackhole) any {
						os.Exit(3)
						return nil
					},
				},
			},
			Defaults: config.Overrides{
				Iterations:        &iterations,
				Warmups:           &warmups,
				IterationTime:     &iterTime,
				IterationTimeUnit: &unit,
			},
		},
	}
}

func TestMain(m *testing.M) {
	if os.Getenv(helperEnv) == "1" {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		os.Exit(worker.Execute(context.Background(), helperSuites(), logger, nil, os.Args[1:], os.Stdout))
	}

	os.Exit(m.Run())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func helperTarget(t *testing.T) hostconfig.Target {
	t.Helper()

	exe, err := os.Executable()
	require.NoError(t, err)

	return hostconfig.Target{
		Name:   "helper",
		Kind:   hostconfig.KindNative,
		Binary: exe,
		Env:    map[string]string{helperEnv: "1"},
	}
}

func hostConfig(t *testing.T, include ...string) *hostconfig.Config {
	t.Helper()

	return &hostconfig.Config{
		Targets:      []hostconfig.Target{helperTarget(t)},
		Include:      include,
		ReportDir:    t.TempDir(),
		ReportFormat: "json",
		Parallelism:  1,
	}
}

func TestRunnerList(t *testing.T) {
	cc, err := WrapCommand(helperTarget(t), helperTarget(t).Binary)
	require.NoError(t, err)

	r := NewRunner("helper", cc, discardLogger())

	entries, err := r.List(context.Background(), []string{`^helper\.Ops\.`}, []string{"fail"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "helper.Ops.inc", entries[0].Benchmark)
	assert.Len(t, entries[0].Units(), 2)
}

func TestHostRun(t *testing.T) {
	cfg := hostConfig(t, `^helper\.Ops\.`)
	cfg.Parameters = map[string][]string{"n": {"7"}}

	results, err := NewHost(cfg, ".", discardLogger()).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	assert.Equal(t, filepath.Join(cfg.ReportDir, "helper.json"), res.ReportPath)
	require.Len(t, res.Reports, 2)
	assert.Equal(t, 1, res.Succeeded())

	ok, failed := res.Reports[0], res.Reports[1]
	assert.Equal(t, "helper.Ops.inc | n=7", ok.ID())
	require.NotNil(t, ok.PrimaryMetric)
	assert.Len(t, ok.PrimaryMetric.RawData[0], 2)
	assert.Equal(t, "helper.Ops.fail | n=7", failed.ID())
	assert.Contains(t, failed.Error, "always")

	onDisk, err := report.ReadFile(platform.OSFiles{}, res.ReportPath)
	require.NoError(t, err)
	assert.Equal(t, res.Reports, onDisk)
}

func TestHostRunWorkerCrash(t *testing.T) {
	cfg := hostConfig(t, `^helper\.Crash\.`)

	results, err := NewHost(cfg, ".", discardLogger()).Run(context.Background())
	assert.ErrorIs(t, err, worker.ErrAllFailed)
	require.Len(t, results, 1)
	require.Len(t, results[0].Reports, 1)

	r := results[0].Reports[0]
	assert.Equal(t, "helper.Crash.exit", r.Benchmark)
	assert.True(t, r.Failed())
	assert.FileExists(t, results[0].ReportPath)
}

func TestHostRunAllFailed(t *testing.T) {
	cfg := hostConfig(t, `\.fail$`)

	_, err := NewHost(cfg, ".", discardLogger()).Run(context.Background())
	assert.ErrorIs(t, err, worker.ErrAllFailed)
}

func TestPlan(t *testing.T) {
	iterations := 9
	cfg := &hostconfig.Config{
		Configuration: hostconfig.Overrides{
			Iterations: &iterations,
			Advanced:   hostconfig.Advanced{{Key: "cpu", Value: "1"}},
		},
		Parameters: map[string][]string{"kind": {"x", "y"}},
	}

	entries := []worker.CatalogEntry{{
		Benchmark: "s.S.op",
		Parameters: []suite.ParameterSpec{
			{Name: "size", Values: []string{"1", "2"}},
			{Name: "kind", Values: []string{"a"}},
		},
		Configuration: "{iterations=5, warmups=3, iterationTime=1, iterationTimeUnit=s, " +
			"outputTimeUnit=us, mode=AverageTime, advanced:blackhole=guard}",
	}}

	plans, err := NewHost(cfg, ".", discardLogger()).Plan(entries)
	require.NoError(t, err)
	require.Len(t, plans, 4)

	var ids []string
	for _, p := range plans {
		ids = append(ids, suite.UnitID(p.Benchmark, p.Parameters))
	}
	assert.Equal(t, []string{
		"s.S.op | size=1 | kind=x",
		"s.S.op | size=1 | kind=y",
		"s.S.op | size=2 | kind=x",
		"s.S.op | size=2 | kind=y",
	}, ids)

	c := plans[0].Configuration
	assert.Equal(t, 9, c.Iterations)
	assert.Equal(t, 3, c.Warmups)
	assert.Equal(t, config.Microseconds, c.OutputTimeUnit)
	assert.Equal(t, config.AverageTime, c.Mode)
	assert.Equal(t, config.Options{{Key: "blackhole", Value: "guard"}, {Key: "cpu", Value: "1"}}, c.Advanced)

	_, err = NewHost(cfg, ".", discardLogger()).Plan([]worker.CatalogEntry{{Benchmark: "x", Configuration: "{}"}})
	var mpe *config.MissingParameterError
	assert.True(t, errors.As(err, &mpe))
}

func TestWrapCommand(t *testing.T) {
	tests := []struct {
		name   string
		target hostconfig.Target
		want   CommandConfig
		err    bool
	}{
		{
			name:   "native",
			target: hostconfig.Target{Name: "n", Kind: hostconfig.KindNative, Args: []string{"-v"}},
			want:   CommandConfig{Binary: "/bin/w", ExtraArgs: []string{"-v"}, Env: []string{}},
		},
		{
			name:   "wasip1 default runner",
			target: hostconfig.Target{Name: "w", Kind: hostconfig.KindWASI, Env: map[string]string{"B": "2", "A": "1"}},
			want: CommandConfig{
				Binary:    "wazero",
				ExtraArgs: []string{"run", "-mount=/:/", "/bin/w"},
				Env:       []string{"A=1", "B=2"},
			},
		},
		{
			name:   "js runner",
			target: hostconfig.Target{Name: "j", Kind: hostconfig.KindJS, Runner: []string{"node", "wasm_exec_node.js"}},
			want: CommandConfig{
				Binary:    "node",
				ExtraArgs: []string{"wasm_exec_node.js", "/bin/w"},
				Env:       []string{},
			},
		},
		{
			name:   "js without runner",
			target: hostconfig.Target{Name: "j", Kind: hostconfig.KindJS},
			err:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := WrapCommand(tt.target, "/bin/w")
			if tt.err {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveBinary(t *testing.T) {
	tests := []struct {
		target hostconfig.Target
		want   string
	}{
		{hostconfig.Target{Name: "a", Kind: hostconfig.KindNative}, filepath.Join("bin", "a-worker")},
		{hostconfig.Target{Name: "w", Kind: hostconfig.KindWASI}, filepath.Join("bin", "w-worker.wasm")},
		{hostconfig.Target{Name: "j", Kind: hostconfig.KindJS}, filepath.Join("bin", "j-worker.wasm")},
		{hostconfig.Target{Name: "p", Binary: "/opt/worker"}, "/opt/worker"},
	}

	for _, tt := range tests {
		if got := ResolveBinary("bin", tt.target); got != tt.want {
			t.Errorf("ResolveBinary(%s) = %q, want %q", tt.target.Name, got, tt.want)
		}
	}
}

func TestBuildPrebuiltMissing(t *testing.T) {
	_, err := Build(context.Background(), discardLogger(), ".", t.TempDir(),
		hostconfig.Target{Name: "p", Binary: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}

func TestHostList(t *testing.T) {
	cfg := hostConfig(t, `^helper\.Ops\.inc$`)

	got, err := NewHost(cfg, ".", discardLogger()).List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "helper", got[0].Target)
	require.Len(t, got[0].Units, 2)
	assert.Equal(t, config.Options{{Key: "n", Value: "2"}}, got[0].Units[1].Parameters)
	assert.Equal(t, 2, got[0].Units[0].Configuration.Iterations)
}

func TestHostRunIsolatesTargets(t *testing.T) {
	cfg := hostConfig(t, `^helper\.Ops\.inc$`)
	cfg.Targets = append(cfg.Targets, hostconfig.Target{
		Name:   "broken",
		Kind:   hostconfig.KindNative,
		Binary: filepath.Join(t.TempDir(), "missing-worker"),
	})
	cfg.Parallelism = 2

	results, err := NewHost(cfg, ".", discardLogger()).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target broken")
	assert.NotErrorIs(t, err, worker.ErrAllFailed)
	require.Len(t, results, 2)

	good, bad := results[0], results[1]
	require.NoError(t, good.Err)
	assert.Equal(t, "helper", good.Target)
	assert.Len(t, good.Reports, 2)
	assert.Equal(t, 2, good.Succeeded())
	assert.FileExists(t, good.ReportPath)

	assert.Equal(t, "broken", bad.Target)
	assert.Error(t, bad.Err)
	assert.Empty(t, bad.Reports)
	assert.NoFileExists(t, filepath.Join(cfg.ReportDir, "broken.json"))
}

func TestBuildWorkerForWasm(t *testing.T) {
	if testing.Short() {
		t.Skip("cross-compiles the worker")
	}
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go toolchain not on PATH")
	}

	for _, kind := range []hostconfig.Kind{hostconfig.KindWASI, hostconfig.KindJS} {
		t.Run(string(kind), func(t *testing.T) {
			target := hostconfig.Target{
				Name:    "worker-" + string(kind),
				Kind:    kind,
				Package: "./cmd/microbench-worker",
			}
			binDir := t.TempDir()

			got, err := Build(context.Background(), discardLogger(), "..", binDir, target)
			require.NoError(t, err)
			assert.Equal(t, ResolveBinary(binDir, target), got)
			assert.FileExists(t, got)
		})
	}
}
