package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/weiihann/microbench/config"
	"github.com/weiihann/microbench/platform"
	"github.com/weiihann/microbench/report"
	"github.com/weiihann/microbench/suite"
)

// Exit codes of the worker process.
const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitConfiguration = 2
)

// Main is the entry point of a worker binary built around suites.
func Main(suites []*suite.Descriptor) {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	os.Exit(Execute(context.Background(), suites, logger, level, os.Args[1:], os.Stdout))
}

// Execute runs the worker command line and returns the process exit code.
func Execute(
	ctx context.Context,
	suites []*suite.Descriptor,
	logger *slog.Logger,
	level *slog.LevelVar,
	args []string,
	stdout io.Writer,
) int {
	cmd := NewCommand(suites, logger, level)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)

	err := cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, config.ErrConfiguration):
		logger.Error("configuration error", slog.String("error", err.Error()))
		return ExitConfiguration
	default:
		logger.Error("run failed", slog.String("error", err.Error()))
		return ExitFailure
	}
}

// NewCommand builds the worker's cobra command.
func NewCommand(suites []*suite.Descriptor, logger *slog.Logger, level *slog.LevelVar) *cobra.Command {
	var (
		opts    Options
		format  string
		list    bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "microbench-worker <report-file>",
		Short: "Run benchmark units and write their report",
		Long: `Runs the built-in benchmark suites in this process and writes one
report entry per (benchmark × parameter assignment) unit.

With --handoff, only the unit described by the hand-off file runs.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose && level != nil {
				level.Set(slog.LevelDebug)
			}

			env, err := platform.Detect()
			if err != nil {
				return err
			}

			w := New(suites, env, logger)

			if list {
				return w.List(cmd.OutOrStdout(), opts)
			}

			if len(args) == 0 {
				return fmt.Errorf("%w: missing report file argument", config.ErrConfiguration)
			}
			opts.ReportPath = args[0]

			if opts.Format, err = report.ParseFormat(format); err != nil {
				return err
			}

			return w.Run(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.HandoffPath, "handoff", "",
		"Hand-off file naming the single unit to run")
	flags.StringVar(&format, "format", string(report.FormatJSON),
		"Report format: json, csv, scsv, text")
	flags.StringVar(&opts.MetricsPath, "metrics-file", "",
		"Write run metrics in Prometheus text format to this file")
	flags.StringArrayVar(&opts.Include, "include", nil,
		"Run only benchmarks whose full name matches this regexp (repeatable)")
	flags.StringArrayVar(&opts.Exclude, "exclude", nil,
		"Skip benchmarks whose full name matches this regexp (repeatable)")
	flags.BoolVar(&list, "list", false,
		"Print the benchmark catalog as JSON and exit")
	flags.BoolVarP(&verbose, "verbose", "v", false,
		"Log every iteration")

	return cmd
}
