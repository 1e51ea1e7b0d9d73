// Package worker is the benchmark process: it resolves which units to run,
// executes them and writes the report.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/weiihann/microbench/config"
	"github.com/weiihann/microbench/executor"
	"github.com/weiihann/microbench/handoff"
	"github.com/weiihann/microbench/platform"
	"github.com/weiihann/microbench/report"
	"github.com/weiihann/microbench/suite"
)

// ErrAllFailed is returned after the report is written when no unit
// produced a score.
var ErrAllFailed = errors.New("every benchmark unit failed")

// Options are the worker's command-line inputs.
type Options struct {
	ReportPath  string
	HandoffPath string
	Format      report.Format
	MetricsPath string
	Include     []string
	Exclude     []string
}

// Worker runs a fixed set of suites in one environment.
type Worker struct {
	suites []*suite.Descriptor
	env    platform.Environment
	logger *slog.Logger
}

func New(suites []*suite.Descriptor, env platform.Environment, logger *slog.Logger) *Worker {
	return &Worker{suites: suites, env: env, logger: logger}
}

// List writes the catalog of benchmarks matching opts' filters.
func (w *Worker) List(out io.Writer, opts Options) error {
	f, err := suite.NewFilter(opts.Include, opts.Exclude)
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrConfiguration, err)
	}

	entries, err := Catalog(w.suites, f)
	if err != nil {
		return err
	}

	return WriteCatalog(out, entries)
}

// Plans resolves the units to run. With a hand-off file only the named
// benchmark runs, with the hand-off's configuration and parameters;
// otherwise every unit accepted by the filters runs with the suite
// defaults. Any error here is a configuration error and nothing has run.
func (w *Worker) Plans(opts Options) ([]executor.Plan, error) {
	for _, d := range w.suites {
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("invalid suite: %w", err)
		}
	}

	var plans []executor.Plan

	if opts.HandoffPath != "" {
		p, err := w.handoffPlan(opts.HandoffPath)
		if err != nil {
			return nil, err
		}
		plans = []executor.Plan{p}
	} else {
		f, err := suite.NewFilter(opts.Include, opts.Exclude)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", config.ErrConfiguration, err)
		}

		for _, u := range suite.Units(w.suites, f) {
			cfg, err := config.Merge(config.Default(), u.Suite.Defaults)
			if err != nil {
				return nil, fmt.Errorf("defaults of suite %s: %w", u.Suite.Name, err)
			}
			plans = append(plans, executor.Plan{Unit: u, Config: cfg})
		}
	}

	for _, p := range plans {
		if _, err := executor.ParseAdvanced(p.Config.Advanced); err != nil {
			return nil, fmt.Errorf("%s: %w", p.Unit.ID(), err)
		}
	}

	return plans, nil
}

func (w *Worker) handoffPlan(path string) (executor.Plan, error) {
	h, err := handoff.ReadFile(w.env.Files, path)
	if err != nil {
		return executor.Plan{}, err
	}

	d, b, ok := suite.Lookup(w.suites, h.Benchmark)
	if !ok {
		return executor.Plan{}, fmt.Errorf("%w: unknown benchmark %q", config.ErrConfiguration, h.Benchmark)
	}

	params, err := d.Resolve(h.Parameters)
	if err != nil {
		return executor.Plan{}, fmt.Errorf("%w: %w", config.ErrConfiguration, err)
	}

	return executor.Plan{
		Unit:   suite.Unit{Suite: d, Benchmark: b, Params: params},
		Config: h.Configuration,
	}, nil
}

// Run executes the planned units and writes the report. The report is
// written even when units fail; ErrAllFailed is returned afterwards if
// none succeeded.
func (w *Worker) Run(ctx context.Context, opts Options) error {
	if opts.ReportPath == "" {
		return fmt.Errorf("%w: missing report file argument", config.ErrConfiguration)
	}

	plans, err := w.Plans(opts)
	if err != nil {
		return err
	}

	if len(plans) == 0 {
		return fmt.Errorf("%w: no benchmarks match", config.ErrConfiguration)
	}

	w.logger.InfoContext(ctx, "starting run",
		slog.String("environment", w.env.String()),
		slog.Int("units", len(plans)),
	)

	reg := prometheus.NewRegistry()
	e := executor.New(w.env.Clock, w.logger, executor.WithMetrics(executor.NewMetrics(reg)))

	results := e.Run(ctx, plans)

	reports := make([]report.BenchmarkReport, 0, len(results))
	succeeded := 0

	for _, r := range results {
		if r.Failed() {
			reports = append(reports, report.Failure(r.Unit, r.Config, r.Err))
			continue
		}

		br, err := report.Build(r.Unit, r.Config, r.Samples)
		if err != nil {
			reports = append(reports, report.Failure(r.Unit, r.Config, err))
			continue
		}

		reports = append(reports, br)
		succeeded++
	}

	format := opts.Format
	if format == "" {
		format = report.FormatJSON
	}

	if err := report.WriteFile(w.env.Files, opts.ReportPath, format, reports); err != nil {
		return err
	}

	if opts.MetricsPath != "" {
		if err := prometheus.WriteToTextfile(opts.MetricsPath, reg); err != nil {
			return fmt.Errorf("write metrics %s: %w", opts.MetricsPath, err)
		}
	}

	w.logger.InfoContext(ctx, "run complete",
		slog.String("report", opts.ReportPath),
		slog.Int("succeeded", succeeded),
		slog.Int("failed", len(reports)-succeeded),
	)

	if succeeded == 0 {
		return ErrAllFailed
	}

	return nil
}
