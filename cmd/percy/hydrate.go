package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/tmobile/percy-cake-sub002/pkg/cli"
	"github.com/tmobile/percy-cake-sub002/pkg/config"
	"github.com/tmobile/percy-cake-sub002/pkg/history"
	"github.com/tmobile/percy-cake-sub002/pkg/hydrate"
	"github.com/tmobile/percy-cake-sub002/pkg/store"
)

var hydrateFlags struct {
	root            string
	app             string
	file            string
	out             string
	format          string
	concurrency     int
	report          string
	progress        bool
	comparePrevious bool
}

var hydrateCmd = &cobra.Command{
	Use:   "hydrate",
	Short: "Hydrate application configuration",
	Long: `Hydrate application configuration into one document per environment.

Exactly one input is required:
  --root DIR   every application in the tree under DIR
  --app DIR    the applications directly in DIR
  --file FILE  a single application file

Outputs are written to <out>/<relative dir>/<environment>/<application>.<ext>.
A failing application does not stop the others; the command exits with code 2
when any application failed or had cyclic references.

Examples:
  # Hydrate a tree as JSON
  percy hydrate --root apps/ --out build/

  # YAML output, eight applications at a time
  percy hydrate --root apps/ --out build/ --format yaml --concurrency 8

  # Record the run and show what changed since the previous one
  percy hydrate --root apps/ --out build/ --compare-previous`,
	RunE: runHydrate,
}

func init() {
	rootCmd.AddCommand(hydrateCmd)

	hydrateCmd.Flags().StringVar(&hydrateFlags.root, "root", "", "hydrate every application under this directory tree")
	hydrateCmd.Flags().StringVar(&hydrateFlags.app, "app", "", "hydrate the applications in this directory")
	hydrateCmd.Flags().StringVar(&hydrateFlags.file, "file", "", "hydrate a single application file")
	hydrateCmd.Flags().StringVarP(&hydrateFlags.out, "out", "o", "", "output directory")
	hydrateCmd.Flags().StringVar(&hydrateFlags.format, "format", "", "output document format: json, yaml")
	hydrateCmd.Flags().IntVar(&hydrateFlags.concurrency, "concurrency", 0, "applications hydrated in parallel")
	hydrateCmd.Flags().StringVar(&hydrateFlags.report, "report", "text", "summary format: text, json")
	hydrateCmd.Flags().BoolVar(&hydrateFlags.progress, "progress", false, "show a progress bar on stderr")
	hydrateCmd.Flags().BoolVar(&hydrateFlags.comparePrevious, "compare-previous", false, "record the run and diff it against the previous run")
	hydrateCmd.MarkFlagsMutuallyExclusive("root", "app", "file")
	hydrateCmd.MarkFlagsOneRequired("root", "app", "file")
	_ = hydrateCmd.MarkFlagRequired("out")
}

func runHydrate(cmd *cobra.Command, args []string) error {
	if hydrateFlags.out == "" {
		return cli.NewCommandError("hydrate", fmt.Errorf("--out must be specified"))
	}
	inputs := 0
	for _, in := range []string{hydrateFlags.root, hydrateFlags.app, hydrateFlags.file} {
		if in != "" {
			inputs++
		}
	}
	if inputs != 1 {
		return cli.NewCommandError("hydrate", fmt.Errorf("exactly one of --root, --app or --file must be specified"))
	}

	reportFormat, err := cli.ParseOutputFormat(hydrateFlags.report)
	if err != nil {
		return cli.NewCommandError("hydrate", err)
	}

	cfg, err := loadConfig(func(cfg *config.Config) {
		if hydrateFlags.format != "" {
			cfg.Hydration.OutputFormat = hydrateFlags.format
		}
		if hydrateFlags.concurrency > 0 {
			cfg.Hydration.Concurrency = hydrateFlags.concurrency
		}
		if hydrateFlags.comparePrevious {
			cfg.History.Enabled = true
		}
	})
	if err != nil {
		return cli.NewCommandError("hydrate", err)
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return cli.NewCommandError("hydrate", err)
	}

	tracer, flushTraces, err := newTracer(cfg, logger)
	if err != nil {
		return cli.NewCommandError("hydrate", err)
	}
	defer flushTraces()

	opts := []hydrate.Option{hydrate.WithLogger(logger), hydrate.WithTracer(tracer)}
	if hydrateFlags.progress {
		opts = append(opts, hydrate.WithProgress(cli.NewProgressReporter(cmd.ErrOrStderr())))
	}
	var hs *history.Store
	switch {
	case hydrateFlags.comparePrevious:
		hs, err = openDeferredHistory(cfg.History, logger)
	case cfg.History.Enabled:
		hs, err = history.Open(cfg.History, logger)
	}
	if err != nil {
		return cli.NewCommandError("hydrate", err)
	}
	if hs != nil {
		defer hs.Close()
		opts = append(opts, hydrate.WithHistory(hs))
	}

	h, err := hydrate.New(&cfg.Hydration, store.NewFileStore(cfg.Hydration.MaxFileSize, logger), opts...)
	if err != nil {
		return cli.NewCommandError("hydrate", err)
	}

	ctx := commandContext(cmd)
	var report *hydrate.Report
	switch {
	case hydrateFlags.root != "":
		report, err = h.HydrateAllApps(ctx, hydrateFlags.root, hydrateFlags.out)
	case hydrateFlags.app != "":
		report, err = h.HydrateDirectory(ctx, hydrateFlags.app, hydrateFlags.out)
	default:
		report, err = h.HydrateFile(ctx, hydrateFlags.file, hydrateFlags.out)
	}
	if err != nil {
		return cli.NewCommandError("hydrate", err)
	}

	out := cmd.OutOrStdout()
	if err := cli.NewFormatter(reportFormat).FormatTo(out, cli.NewReportSummary(report)); err != nil {
		return cli.NewCommandError("hydrate", err)
	}

	if hydrateFlags.comparePrevious {
		if err := comparePrevious(cmd, hs, report, logger); err != nil {
			return cli.NewCommandError("hydrate", err)
		}
		pruneHistory(ctx, hs, cfg.History.Retain, logger)
	}

	if err := report.Err(); err != nil {
		return cli.NewIncompleteError("hydrate", err)
	}
	return nil
}

// openDeferredHistory opens the history database without pruning on record,
// so the run before the current one is still there to compare against.
// pruneHistory applies the retention afterwards.
func openDeferredHistory(cfg config.HistoryConfig, logger *slog.Logger) (*history.Store, error) {
	cfg.Retain = -1
	return history.Open(cfg, logger)
}

func pruneHistory(ctx context.Context, hs *history.Store, keep int, logger *slog.Logger) {
	n, err := hs.Prune(ctx, keep)
	if err != nil {
		logger.WarnContext(ctx, "failed to prune run history", "error", err)
		return
	}
	if n > 0 {
		logger.DebugContext(ctx, "pruned run history", "runs", n, "retain", keep)
	}
}

// comparePrevious prints the differences between the run in report and the
// run recorded before it.
func comparePrevious(cmd *cobra.Command, hs *history.Store, report *hydrate.Report, logger *slog.Logger) error {
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	prev, err := hs.PreviousRun(ctx, report.RunID)
	if errors.Is(err, history.ErrRunNotFound) {
		// The current run may not have been recorded if history failed.
		logger.DebugContext(ctx, "no previous run", "run_id", report.RunID)
		_, err = fmt.Fprintln(out, "\nNo previous run to compare against.")
		return err
	}
	if err != nil {
		return err
	}

	diffs, err := hs.Diff(ctx, prev.ID, report.RunID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nChanges since run %s (%s):\n", prev.ID, prev.StartedAt.Local().Format("2006-01-02 15:04:05"))
	return writeOutputDiffs(out, diffs)
}

// writeOutputDiffs prints one header per changed output followed by its
// entries in text form.
func writeOutputDiffs(w io.Writer, diffs []history.OutputDiff) error {
	if len(diffs) == 0 {
		_, err := fmt.Fprintln(w, "No changes.")
		return err
	}
	for _, d := range diffs {
		if _, err := fmt.Fprintf(w, "%s %s [%s] (%d entries)\n", d.Kind, d.Application, d.Environment, len(d.Entries)); err != nil {
			return err
		}
		for _, e := range d.Entries {
			if _, err := fmt.Fprintf(w, "    %s\n", e.String()); err != nil {
				return err
			}
		}
	}
	return nil
}
