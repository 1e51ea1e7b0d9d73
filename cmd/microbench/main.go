// Package main provides the CLI entry point for microbench, which builds
// benchmark workers for each configured target and runs every benchmark
// unit in its own worker process.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/weiihann/microbench/config"
	"github.com/weiihann/microbench/harness"
	"github.com/weiihann/microbench/hostconfig"
	"github.com/weiihann/microbench/report"
	"github.com/weiihann/microbench/suite"
	"github.com/weiihann/microbench/worker"
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	root := newRootCmd(logger, level)
	if err := root.ExecuteContext(context.Background()); err != nil {
		logger.Error("microbench failed", slog.String("error", err.Error()))

		if errors.Is(err, config.ErrConfiguration) {
			os.Exit(worker.ExitConfiguration)
		}
		os.Exit(worker.ExitFailure)
	}
}

type rootFlags struct {
	configPath  string
	verbose     bool
	reportDir   string
	format      string
	parallelism int
	include     []string
	exclude     []string
	targets     []string
}

func newRootCmd(logger *slog.Logger, level *slog.LevelVar) *cobra.Command {
	var rf rootFlags

	root := &cobra.Command{
		Use:   "microbench",
		Short: "Microbenchmark runner for native and wasm targets",
		Long: `Microbench builds a worker binary per target, asks it which benchmarks
it carries, and runs every (benchmark × parameter assignment) unit in a fresh
worker process. Each target's results are merged into one report file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if rf.verbose {
				level.Set(slog.LevelDebug)
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&rf.configPath, "config", "c", hostconfig.DefaultPath,
		"Host configuration file")
	flags.BoolVarP(&rf.verbose, "verbose", "v", false,
		"Enable debug logging")
	flags.StringArrayVar(&rf.include, "include", nil,
		"Run only benchmarks whose full name matches this regexp (repeatable)")
	flags.StringArrayVar(&rf.exclude, "exclude", nil,
		"Skip benchmarks whose full name matches this regexp (repeatable)")
	flags.StringSliceVar(&rf.targets, "targets", nil,
		"Restrict the run to these targets (default: all configured)")

	root.AddCommand(newRunCmd(logger, &rf))
	root.AddCommand(newListCmd(logger, &rf))

	return root
}

func newRunCmd(logger *slog.Logger, rf *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build the targets and run their benchmarks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(rf)
			if err != nil {
				return err
			}

			return runBenchmarks(cmd.Context(), logger, cfg, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&rf.reportDir, "report-dir", "",
		"Directory for per-target report files")
	flags.StringVar(&rf.format, "format", "",
		"Report file format: json, csv, scsv, text")
	flags.IntVar(&rf.parallelism, "parallelism", 0,
		"Number of targets run concurrently")

	return cmd
}

func newListCmd(logger *slog.Logger, rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the benchmark units each target would run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(rf)
			if err != nil {
				return err
			}

			return listUnits(cmd.Context(), logger, cfg, cmd.OutOrStdout())
		},
	}
}

// loadConfig reads the configuration file and applies command-line
// overrides on top.
func loadConfig(rf *rootFlags) (*hostconfig.Config, error) {
	cfg, err := hostconfig.Load(rf.configPath)
	if err != nil {
		return nil, err
	}

	if rf.reportDir != "" {
		cfg.ReportDir = rf.reportDir
	}
	if rf.format != "" {
		cfg.ReportFormat = rf.format
	}
	if rf.parallelism != 0 {
		cfg.Parallelism = rf.parallelism
	}
	if len(rf.include) > 0 {
		cfg.Include = rf.include
	}
	if len(rf.exclude) > 0 {
		cfg.Exclude = rf.exclude
	}

	if len(rf.targets) > 0 {
		selected := make([]hostconfig.Target, 0, len(rf.targets))
		for _, name := range rf.targets {
			t, ok := cfg.Target(name)
			if !ok {
				return nil, fmt.Errorf("%w: unknown target %q", config.ErrConfiguration, name)
			}
			selected = append(selected, t)
		}
		cfg.Targets = selected
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func runBenchmarks(ctx context.Context, logger *slog.Logger, cfg *hostconfig.Config, out io.Writer) error {
	moduleDir, err := filepath.Abs(".")
	if err != nil {
		return fmt.Errorf("resolve module dir: %w", err)
	}

	reportDir, err := filepath.Abs(cfg.ReportDir)
	if err != nil {
		return fmt.Errorf("resolve report dir: %w", err)
	}
	cfg.ReportDir = reportDir

	logger.InfoContext(ctx, "starting benchmarks",
		slog.Int("targets", len(cfg.Targets)),
		slog.Int("parallelism", cfg.Parallelism),
		slog.String("report_dir", cfg.ReportDir),
	)

	results, runErr := harness.NewHost(cfg, moduleDir, logger).Run(ctx)

	for _, res := range results {
		if res.Err != nil {
			fmt.Fprintf(out, "\n# %s: %v\n", res.Target, res.Err)
			continue
		}

		fmt.Fprintf(out, "\n# %s (%d/%d units succeeded, report: %s)\n\n",
			res.Target, res.Succeeded(), len(res.Reports), res.ReportPath)

		if err := report.WriteText(out, res.Reports, report.DefaultFormatter); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	if runErr != nil {
		return runErr
	}

	logger.InfoContext(ctx, "benchmarks complete")

	return nil
}

func listUnits(ctx context.Context, logger *slog.Logger, cfg *hostconfig.Config, out io.Writer) error {
	moduleDir, err := filepath.Abs(".")
	if err != nil {
		return fmt.Errorf("resolve module dir: %w", err)
	}

	targets, err := harness.NewHost(cfg, moduleDir, logger).List(ctx)
	if err != nil {
		return err
	}

	for _, t := range targets {
		fmt.Fprintf(out, "%s:\n", t.Target)
		for _, u := range t.Units {
			fmt.Fprintf(out, "  %s\n    %s\n",
				suite.UnitID(u.Benchmark, u.Parameters), config.Format(u.Configuration))
		}
	}

	return nil
}
