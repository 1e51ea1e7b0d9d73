package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/weiihann/microbench/config"
	"github.com/weiihann/microbench/handoff"
	"github.com/weiihann/microbench/hostconfig"
	"github.com/weiihann/microbench/platform"
	"github.com/weiihann/microbench/report"
	"github.com/weiihann/microbench/suite"
	"github.com/weiihann/microbench/worker"
)

// TargetResult is the merged report of one target. Err is set when the
// target could not be built, listed or reported; Reports is then empty.
type TargetResult struct {
	Target     string
	ReportPath string
	Reports    []report.BenchmarkReport
	Err        error
}

// Succeeded counts units that produced a score.
func (r TargetResult) Succeeded() int {
	n := 0
	for _, br := range r.Reports {
		if !br.Failed() {
			n++
		}
	}

	return n
}

// Host runs every configured target.
type Host struct {
	cfg       *hostconfig.Config
	moduleDir string
	logger    *slog.Logger
	files     platform.FileIO
}

// NewHost creates a Host. moduleDir is where worker packages are built
// from.
func NewHost(cfg *hostconfig.Config, moduleDir string, logger *slog.Logger) *Host {
	return &Host{
		cfg:       cfg,
		moduleDir: moduleDir,
		logger:    logger,
		files:     platform.OSFiles{},
	}
}

// Run builds and runs the targets, at most Parallelism at a time, and
// writes one report per target into ReportDir. Units of one target run one
// after another. A failing target does not stop the others: its error is
// recorded in its TargetResult and joined into the returned error. A target
// whose every unit failed still gets its report and contributes an error
// wrapping worker.ErrAllFailed.
func (h *Host) Run(ctx context.Context) ([]TargetResult, error) {
	workDir, err := os.MkdirTemp("", "microbench-*")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	results := make([]TargetResult, len(h.cfg.Targets))

	var g errgroup.Group
	g.SetLimit(h.cfg.Parallelism)

	for i, t := range h.cfg.Targets {
		g.Go(func() error {
			res, err := h.runTarget(ctx, workDir, t)
			if err != nil {
				h.logger.ErrorContext(ctx, "target failed",
					slog.String("target", t.Name),
					slog.String("error", err.Error()),
				)
				res = TargetResult{Target: t.Name, Err: err}
			}

			results[i] = res

			return nil
		})
	}

	_ = g.Wait()

	var errs []error
	for _, r := range results {
		switch {
		case r.Err != nil:
			errs = append(errs, fmt.Errorf("target %s: %w", r.Target, r.Err))
		case len(r.Reports) > 0 && r.Succeeded() == 0:
			errs = append(errs, fmt.Errorf("target %s: %w", r.Target, worker.ErrAllFailed))
		}
	}

	return results, errors.Join(errs...)
}

// TargetUnits lists the units planned for one target.
type TargetUnits struct {
	Target string
	Units  []handoff.Handoff
}

// List builds every target's worker and plans its units without running
// them.
func (h *Host) List(ctx context.Context) ([]TargetUnits, error) {
	workDir, err := os.MkdirTemp("", "microbench-*")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	out := make([]TargetUnits, 0, len(h.cfg.Targets))
	for _, t := range h.cfg.Targets {
		_, units, err := h.prepare(ctx, workDir, t)
		if err != nil {
			return nil, fmt.Errorf("target %s: %w", t.Name, err)
		}

		out = append(out, TargetUnits{Target: t.Name, Units: units})
	}

	return out, nil
}

// prepare builds t's worker, reads its catalog and plans the units.
func (h *Host) prepare(ctx context.Context, workDir string, t hostconfig.Target) (*Runner, []handoff.Handoff, error) {
	binPath, err := Build(ctx, h.logger.With(slog.String("target", t.Name)), h.moduleDir, filepath.Join(workDir, "bin"), t)
	if err != nil {
		return nil, nil, err
	}

	cc, err := WrapCommand(t, binPath)
	if err != nil {
		return nil, nil, err
	}

	runner := NewRunner(t.Name, cc, h.logger)
	runner.Files = h.files

	entries, err := runner.List(ctx, h.cfg.Include, h.cfg.Exclude)
	if err != nil {
		return nil, nil, err
	}

	units, err := h.Plan(entries)
	if err != nil {
		return nil, nil, err
	}

	return runner, units, nil
}

func (h *Host) runTarget(ctx context.Context, workDir string, t hostconfig.Target) (TargetResult, error) {
	logger := h.logger.With(slog.String("target", t.Name))

	runner, units, err := h.prepare(ctx, workDir, t)
	if err != nil {
		return TargetResult{}, err
	}

	unitDir := filepath.Join(workDir, t.Name)
	if err := os.MkdirAll(unitDir, 0o755); err != nil {
		return TargetResult{}, fmt.Errorf("create unit dir %s: %w", unitDir, err)
	}

	reports := make([]report.BenchmarkReport, 0, len(units))

	for i, u := range units {
		id := suite.UnitID(u.Benchmark, u.Parameters)
		logger.InfoContext(ctx, "running unit",
			slog.String("benchmark", id),
			slog.Int("unit", i+1),
			slog.Int("units", len(units)),
		)

		got, err := h.runUnit(ctx, runner, unitDir, u)
		if err != nil {
			if ctx.Err() != nil {
				return TargetResult{}, ctx.Err()
			}

			logger.WarnContext(ctx, "unit failed",
				slog.String("benchmark", id),
				slog.String("error", err.Error()),
			)
			got = []report.BenchmarkReport{
				report.FailureOf(u.Benchmark, u.Parameters, u.Configuration, err),
			}
		}

		reports = append(reports, got...)
	}

	format, err := report.ParseFormat(h.cfg.ReportFormat)
	if err != nil {
		return TargetResult{}, err
	}

	path := filepath.Join(h.cfg.ReportDir, t.Name+format.Extension())
	if err := report.WriteFile(h.files, path, format, reports); err != nil {
		return TargetResult{}, err
	}

	logger.InfoContext(ctx, "target complete",
		slog.String("report", path),
		slog.Int("units", len(reports)),
	)

	return TargetResult{Target: t.Name, ReportPath: path, Reports: reports}, nil
}

func (h *Host) runUnit(ctx context.Context, runner *Runner, dir string, u handoff.Handoff) ([]report.BenchmarkReport, error) {
	id := uuid.NewString()
	hpath := filepath.Join(dir, id+".handoff")
	rpath := filepath.Join(dir, id+".json")

	if err := handoff.WriteFile(h.files, hpath, u); err != nil {
		return nil, err
	}

	return runner.RunUnit(ctx, UnitConfig{
		HandoffPath: hpath,
		ReportPath:  rpath,
		Timeout:     h.cfg.UnitTimeout,
	})
}

// Plan expands catalog entries into one hand-off per unit. Each unit's
// configuration is the worker's suite defaults with the host configuration
// layered on top; host parameter values replace declared ones by name.
func (h *Host) Plan(entries []worker.CatalogEntry) ([]handoff.Handoff, error) {
	var out []handoff.Handoff

	for _, e := range entries {
		base, err := config.Parse(e.Configuration)
		if err != nil {
			return nil, fmt.Errorf("catalog entry %s: %w", e.Benchmark, err)
		}

		cfg, err := config.Merge(base, h.cfg.Configuration.Config())
		if err != nil {
			return nil, fmt.Errorf("configure %s: %w", e.Benchmark, err)
		}

		specs := make([]suite.ParameterSpec, len(e.Parameters))
		for i, p := range e.Parameters {
			specs[i] = p
			if values, ok := h.cfg.Parameters[p.Name]; ok {
				specs[i].Values = values
			}
		}

		for _, params := range suite.Assignments(specs) {
			out = append(out, handoff.Handoff{
				Benchmark:     e.Benchmark,
				Configuration: cfg,
				Parameters:    params,
			})
		}
	}

	return out, nil
}
