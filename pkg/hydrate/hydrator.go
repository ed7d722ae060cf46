package hydrate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmobile/percy-cake-sub002/pkg/config"
	"github.com/tmobile/percy-cake-sub002/pkg/document"
	"github.com/tmobile/percy-cake-sub002/pkg/store"
	"github.com/tmobile/percy-cake-sub002/pkg/telemetry/metrics"
	"github.com/tmobile/percy-cake-sub002/pkg/telemetry/tracing"
	"github.com/tmobile/percy-cake-sub002/pkg/variables"
)

// Recorder persists the outcome of a hydration run.
type Recorder interface {
	RecordRun(ctx context.Context, report *Report) error
}

// Progress is told how many applications a run hydrates, how many are done
// and which of them failed.
type Progress interface {
	Start(total int64)
	Update(current int64)
	Error(err error)
	Finish()
}

// Hydrator discovers applications and produces their hydrated documents.
// It holds no per-run state and is safe for concurrent use.
type Hydrator struct {
	config   *config.HydrationConfig
	store    store.Store
	logger   *slog.Logger
	metrics  *metrics.Collector
	tracer   *tracing.Tracer
	history  Recorder
	progress Progress
	format   document.Format
}

// Option configures a Hydrator.
type Option func(*Hydrator)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hydrator) { h.logger = logger }
}

// WithMetrics records application and run outcomes on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(h *Hydrator) { h.metrics = c }
}

// WithTracer opens a span for every run, application and environment.
func WithTracer(t *tracing.Tracer) Option {
	return func(h *Hydrator) { h.tracer = t }
}

// WithHistory records every run with r.
func WithHistory(r Recorder) Option {
	return func(h *Hydrator) { h.history = r }
}

// WithProgress reports per-application progress of every run to p.
func WithProgress(p Progress) Option {
	return func(h *Hydrator) { h.progress = p }
}

// New creates a hydrator reading and writing through st.
func New(cfg *config.HydrationConfig, st store.Store, opts ...Option) (*Hydrator, error) {
	format, err := document.ParseFormat(cfg.OutputFormat)
	if err != nil {
		return nil, err
	}
	h := &Hydrator{
		config: cfg,
		store:  st,
		logger: slog.New(slog.DiscardHandler),
		format: format,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// EnvironmentResult is the hydrated document of one environment.
type EnvironmentResult struct {
	Environment string
	Document    *document.Node
	Warnings    []variables.UnresolvedReference
	Errors      []*variables.CyclicReferenceError
}

// Result is the outcome of hydrating one application.
type Result struct {
	Application  *Application
	Environments []EnvironmentResult
}

// Documents returns the hydrated document of every environment.
func (r *Result) Documents() map[string]*document.Node {
	docs := make(map[string]*document.Node, len(r.Environments))
	for _, e := range r.Environments {
		docs[e.Environment] = e.Document
	}
	return docs
}

// Environment returns the result for env.
func (r *Result) Environment(env string) (*EnvironmentResult, bool) {
	for i := range r.Environments {
		if r.Environments[i].Environment == env {
			return &r.Environments[i], true
		}
	}
	return nil, false
}

// HydrateApplication merges the overlays of app onto its base and resolves
// variable references, once per declared environment. Applications that
// declare no environments produce a single "default" document.
//
// The returned error covers failures of the whole application: invalid
// substitution settings, broken inheritance and strict overlay violations.
// Unresolved references and cyclic values are reported per environment in
// the result.
func (h *Hydrator) HydrateApplication(app *Application, pc config.PercyConfig) (*Result, error) {
	resolver, err := variables.New(pc, h.config.MaxResolvePasses)
	if err != nil {
		return nil, fmt.Errorf("invalid variable substitution config: %w", err)
	}

	overlays := newOverlayResolver(app)
	res := &Result{Application: app}
	for _, env := range app.targets() {
		overlay, err := overlays.effective(env)
		if err != nil {
			return nil, err
		}

		merged := app.Base
		if overlay != nil {
			if pc.StrictOverlay {
				if err := checkStrict(app.Base, overlay, env, nil); err != nil {
					return nil, err
				}
			}
			merged = Merge(app.Base, overlay)
		}

		resolved := resolver.Resolve(merged, env)
		res.Environments = append(res.Environments, EnvironmentResult{
			Environment: env,
			Document:    resolved.Document,
			Warnings:    resolved.Warnings,
			Errors:      resolved.Errors,
		})
	}
	return res, nil
}
