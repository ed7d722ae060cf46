package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tmobile/percy-cake-sub002/pkg/config"
	"github.com/tmobile/percy-cake-sub002/pkg/hydrate"
	"github.com/tmobile/percy-cake-sub002/pkg/telemetry/metrics"
	"github.com/tmobile/percy-cake-sub002/pkg/telemetry/tracing"
)

// HydrateFunc performs one hydration run.
type HydrateFunc func(ctx context.Context) (*hydrate.Report, error)

// ReportFunc receives the outcome of every run.
type ReportFunc func(trigger string, report *hydrate.Report, err error)

// Watcher re-hydrates an input tree whenever it changes or its schedule
// fires. Runs never overlap.
type Watcher struct {
	root     string
	config   config.WatchConfig
	hydrate  HydrateFunc
	logger   *slog.Logger
	metrics  *metrics.Collector
	tracer   *tracing.Tracer
	onReport ReportFunc
	ignore   []string

	runMu sync.Mutex
	runs  int
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) { w.logger = logger }
}

// WithMetrics counts triggers on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(w *Watcher) { w.metrics = c }
}

// WithTracer opens a span around every triggered run. The hydration run
// span becomes its child.
func WithTracer(t *tracing.Tracer) Option {
	return func(w *Watcher) { w.tracer = t }
}

// WithReportHandler calls fn after every run.
func WithReportHandler(fn ReportFunc) Option {
	return func(w *Watcher) { w.onReport = fn }
}

// WithIgnore drops file events under dirs, such as an output directory
// inside the input root.
func WithIgnore(dirs ...string) Option {
	return func(w *Watcher) { w.ignore = append(w.ignore, dirs...) }
}

// New creates a watcher for root that calls fn for every run.
func New(root string, cfg config.WatchConfig, fn HydrateFunc, opts ...Option) *Watcher {
	w := &Watcher{
		root:    root,
		config:  cfg,
		hydrate: fn,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run performs an initial hydration, then watches root and the schedule
// until ctx is cancelled. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	scheduler, err := NewScheduler(w.config.Schedule, w.logger)
	if err != nil {
		return err
	}

	fwConfig := DefaultFileWatcherConfig(w.root)
	if w.config.Debounce > 0 {
		fwConfig.Debounce = w.config.Debounce
	}
	fwConfig.Ignore = append(fwConfig.Ignore, w.ignore...)
	fw, err := NewFileWatcher(fwConfig, w.logger)
	if err != nil {
		return err
	}
	defer func() { _ = fw.Stop() }()

	w.Trigger(ctx, metrics.TriggerInitial)

	if err := scheduler.Start(ctx, func(ctx context.Context) {
		w.Trigger(ctx, metrics.TriggerSchedule)
	}); err != nil {
		return err
	}
	defer scheduler.Stop()

	err = fw.Watch(ctx, func(paths []string) {
		w.logger.InfoContext(ctx, "input changed", "files", len(paths), "first", paths[0])
		w.Trigger(ctx, metrics.TriggerFileChange)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch %s: %w", w.root, err)
	}
	return nil
}

// Trigger runs a hydration now, waiting for any run in progress to finish
// first. A cancelled ctx skips the run.
func (w *Watcher) Trigger(ctx context.Context, trigger string) {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	if ctx.Err() != nil {
		return
	}
	w.runs++
	w.metrics.RecordTrigger(trigger)

	ctx, span := w.tracer.Start(ctx, "watch.trigger", trace.WithAttributes(
		attribute.String(tracing.AttrTrigger, trigger),
		attribute.Int(tracing.AttrWatchRun, w.runs),
	))
	defer span.End()
	w.logger.InfoContext(ctx, "hydration triggered", "trigger", trigger, "run", w.runs)

	report, err := w.hydrate(ctx)
	switch {
	case err != nil:
		w.logger.ErrorContext(ctx, "hydration run failed", "trigger", trigger, "error", err)
		tracing.SetError(span, err)
	case report != nil:
		w.logger.InfoContext(ctx, "hydration run complete",
			"trigger", trigger,
			"run_id", report.RunID,
			"status", string(report.Status()),
		)
		span.SetAttributes(
			attribute.String(tracing.AttrRunID, report.RunID),
			attribute.String(tracing.AttrStatus, string(report.Status())),
		)
		tracing.SetStatus(span, report.Err())
	}
	if w.onReport != nil {
		w.onReport(trigger, report, err)
	}
}

// Runs returns the number of runs started so far.
func (w *Watcher) Runs() int {
	w.runMu.Lock()
	defer w.runMu.Unlock()
	return w.runs
}
