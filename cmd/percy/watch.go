package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tmobile/percy-cake-sub002/pkg/cli"
	"github.com/tmobile/percy-cake-sub002/pkg/compare"
	"github.com/tmobile/percy-cake-sub002/pkg/config"
	"github.com/tmobile/percy-cake-sub002/pkg/history"
	"github.com/tmobile/percy-cake-sub002/pkg/hydrate"
	"github.com/tmobile/percy-cake-sub002/pkg/store"
	"github.com/tmobile/percy-cake-sub002/pkg/telemetry/health"
	"github.com/tmobile/percy-cake-sub002/pkg/telemetry/metrics"
	"github.com/tmobile/percy-cake-sub002/pkg/watch"
)

var watchFlags struct {
	root        string
	out         string
	format      string
	concurrency int
	schedule    string
	metrics     bool
	listen      string
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-hydrate whenever the input changes",
	Long: `Hydrate an input tree, then keep the output in sync with it.

A new run starts when a YAML or percy rc file under --root changes, and on
every tick of --schedule. Runs never overlap. With --metrics the Prometheus
endpoint is served until the command is interrupted, together with /healthz,
/readyz and /version probes. Readiness fails until the first run completes
and whenever the latest run failed.

Examples:
  # Watch a tree
  percy watch --root apps/ --out build/

  # Also re-hydrate every 15 minutes and expose metrics on :9090
  percy watch --root apps/ --out build/ --schedule "*/15 * * * *" --metrics`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchFlags.root, "root", "", "input directory tree")
	watchCmd.Flags().StringVarP(&watchFlags.out, "out", "o", "", "output directory")
	watchCmd.Flags().StringVar(&watchFlags.format, "format", "", "output document format: json, yaml")
	watchCmd.Flags().IntVar(&watchFlags.concurrency, "concurrency", 0, "applications hydrated in parallel")
	watchCmd.Flags().StringVar(&watchFlags.schedule, "schedule", "", "cron expression for periodic runs (overrides watch.schedule)")
	watchCmd.Flags().BoolVar(&watchFlags.metrics, "metrics", false, "serve Prometheus metrics")
	watchCmd.Flags().StringVar(&watchFlags.listen, "metrics-listen", "", "metrics listen address (overrides telemetry.metrics.listen_address)")
	_ = watchCmd.MarkFlagRequired("root")
	_ = watchCmd.MarkFlagRequired("out")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchFlags.root == "" || watchFlags.out == "" {
		return cli.NewCommandError("watch", fmt.Errorf("--root and --out must be specified"))
	}

	cfg, err := loadConfig(func(cfg *config.Config) {
		if watchFlags.format != "" {
			cfg.Hydration.OutputFormat = watchFlags.format
		}
		if watchFlags.concurrency > 0 {
			cfg.Hydration.Concurrency = watchFlags.concurrency
		}
		if watchFlags.schedule != "" {
			cfg.Watch.Schedule = watchFlags.schedule
		}
		if watchFlags.metrics {
			cfg.Telemetry.Metrics.Enabled = true
		}
		if watchFlags.listen != "" {
			cfg.Telemetry.Metrics.ListenAddress = watchFlags.listen
		}
	})
	if err != nil {
		return cli.NewCommandError("watch", err)
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return cli.NewCommandError("watch", err)
	}

	tracer, flushTraces, err := newTracer(cfg, logger)
	if err != nil {
		return cli.NewCommandError("watch", err)
	}
	defer flushTraces()

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	opts := []hydrate.Option{hydrate.WithLogger(logger), hydrate.WithMetrics(collector), hydrate.WithTracer(tracer)}

	var hs *history.Store
	if cfg.History.Enabled {
		hs, err = openDeferredHistory(cfg.History, logger)
		if err != nil {
			return cli.NewCommandError("watch", err)
		}
		defer hs.Close()
		opts = append(opts, hydrate.WithHistory(hs))
	}

	h, err := hydrate.New(&cfg.Hydration, store.NewFileStore(cfg.Hydration.MaxFileSize, logger), opts...)
	if err != nil {
		return cli.NewCommandError("watch", err)
	}

	runState := &health.RunState{}
	checker := health.New(time.Second)
	checker.RegisterCheck("hydration", runState.Check)

	reporter := &watchReporter{
		out:       cmd.OutOrStdout(),
		history:   hs,
		retain:    cfg.History.Retain,
		collector: collector,
		logger:    logger,
	}
	w := watch.New(watchFlags.root, cfg.Watch,
		func(ctx context.Context) (*hydrate.Report, error) {
			return h.HydrateAllApps(ctx, watchFlags.root, watchFlags.out)
		},
		watch.WithLogger(logger),
		watch.WithMetrics(collector),
		watch.WithTracer(tracer),
		watch.WithIgnore(watchFlags.out),
		watch.WithReportHandler(func(trigger string, report *hydrate.Report, err error) {
			runState.Observe(trigger, report, err)
			reporter.report(trigger, report, err)
		}),
	)

	g, ctx := errgroup.WithContext(commandContext(cmd))
	if cfg.Telemetry.Metrics.Enabled {
		g.Go(func() error {
			return collector.Serve(ctx, logger, func(mux *http.ServeMux) {
				health.Register(mux, checker, Version, GitCommit, BuildDate)
			})
		})
	}
	g.Go(func() error {
		err := w.Run(ctx)
		if err == nil && ctx.Err() != nil {
			// Stop the metrics server too.
			return context.Canceled
		}
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return cli.NewCommandError("watch", err)
	}
	logger.Info("watch stopped", "runs", w.Runs())
	return nil
}

// watchReporter prints one summary line per run and, with history enabled,
// counts what changed since the previous run.
type watchReporter struct {
	mu        sync.Mutex
	out       io.Writer
	history   *history.Store
	retain    int
	collector *metrics.Collector
	logger    *slog.Logger
}

func (r *watchReporter) report(trigger string, report *hydrate.Report, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		fmt.Fprintf(r.out, "[%s] run failed: %v\n", trigger, err)
		return
	}
	if report == nil {
		return
	}
	fmt.Fprintf(r.out, "[%s] run %s %s: %d succeeded, %d partial, %d failed, %d warnings\n",
		trigger, report.RunID, report.Status(),
		report.Count(hydrate.StatusSucceeded),
		report.Count(hydrate.StatusPartial),
		report.Count(hydrate.StatusFailed),
		report.Warnings(),
	)

	if r.history == nil {
		return
	}
	ctx := context.Background()
	defer pruneHistory(ctx, r.history, r.retain, r.logger)

	prev, err := r.history.PreviousRun(ctx, report.RunID)
	if err != nil {
		if !errors.Is(err, history.ErrRunNotFound) {
			r.logger.Warn("failed to load previous run", "error", err)
		}
		return
	}
	diffs, err := r.history.Diff(ctx, prev.ID, report.RunID)
	if err != nil {
		r.logger.Warn("failed to diff runs", "from", prev.ID, "to", report.RunID, "error", err)
		return
	}
	counts := map[string]int{}
	for _, d := range diffs {
		for kind, n := range compare.Counts(d.Entries) {
			counts[kind] += n
		}
	}
	r.collector.RecordDiff(counts)
	if len(diffs) > 0 {
		fmt.Fprintf(r.out, "    %d outputs changed since run %s\n", len(diffs), prev.ID)
	}
}
