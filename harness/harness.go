// Package harness drives worker processes from the host: it builds one
// worker per target, asks it for its catalog, and runs every unit in a
// fresh worker process.
package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/weiihann/microbench/platform"
	"github.com/weiihann/microbench/report"
	"github.com/weiihann/microbench/worker"
)

// UnitConfig holds parameters for a single worker execution.
type UnitConfig struct {
	HandoffPath string
	ReportPath  string
	Timeout     time.Duration
}

// Runner launches and manages a worker binary.
type Runner struct {
	Name       string
	BinaryPath string
	ExtraArgs  []string
	Env        []string
	Logger     *slog.Logger
	Files      platform.FileIO
}

// NewRunner creates a Runner for the named target. Env is appended to the
// inherited environment.
func NewRunner(name string, cc CommandConfig, logger *slog.Logger) *Runner {
	return &Runner{
		Name:       name,
		BinaryPath: cc.Binary,
		ExtraArgs:  cc.ExtraArgs,
		Env:        cc.Env,
		Logger:     logger.With(slog.String("target", name)),
		Files:      platform.OSFiles{},
	}
}

func (r *Runner) command(ctx context.Context, args ...string) *exec.Cmd {
	full := make([]string, 0, len(r.ExtraArgs)+len(args))
	full = append(full, r.ExtraArgs...)
	full = append(full, args...)

	cmd := exec.CommandContext(ctx, r.BinaryPath, full...)
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}

	return cmd
}

// List asks the worker for the benchmarks matching the filters.
func (r *Runner) List(ctx context.Context, include, exclude []string) ([]worker.CatalogEntry, error) {
	args := []string{"--list"}
	for _, p := range include {
		args = append(args, "--include", p)
	}
	for _, p := range exclude {
		args = append(args, "--exclude", p)
	}

	cmd := r.command(ctx, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf(
			"list %s failed: %w\nstderr: %s",
			r.Name, err, stderr.String(),
		)
	}

	entries, err := worker.ReadCatalog(&stdout)
	if err != nil {
		return nil, fmt.Errorf(
			"parse %s catalog: %w\nstdout: %s",
			r.Name, err, stdout.String(),
		)
	}

	return entries, nil
}

// RunUnit runs the unit described by cfg.HandoffPath in a fresh worker
// process and returns the report it wrote. A worker that exits non-zero
// after writing its report (every unit failed) is not an error here; the
// failure is in the report.
func (r *Runner) RunUnit(ctx context.Context, cfg UnitConfig) ([]report.BenchmarkReport, error) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	cmd := r.command(ctx, cfg.ReportPath, "--handoff", cfg.HandoffPath)

	var stderr bytes.Buffer
	cmd.Stdout = os.Stderr
	cmd.Stderr = &stderr

	r.Logger.DebugContext(ctx, "starting worker",
		slog.String("binary", r.BinaryPath),
		slog.String("handoff", cfg.HandoffPath),
	)

	wallStart := time.Now()
	runErr := cmd.Run()
	wallElapsed := time.Since(wallStart)

	var exitErr *exec.ExitError
	if runErr != nil && !(errors.As(runErr, &exitErr) && exitErr.ExitCode() == worker.ExitFailure) {
		return nil, fmt.Errorf(
			"worker %s failed: %w\nstderr: %s",
			r.Name, runErr, stderr.String(),
		)
	}

	r.Logger.DebugContext(ctx, "worker finished",
		slog.Duration("wall_time", wallElapsed),
	)

	reports, err := report.ReadFile(r.Files, cfg.ReportPath)
	if err != nil {
		return nil, fmt.Errorf(
			"worker %s: %w\nstderr: %s",
			r.Name, err, stderr.String(),
		)
	}

	return reports, nil
}
