package hydrate

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/tmobile/percy-cake-sub002/pkg/telemetry/logging"
	"github.com/tmobile/percy-cake-sub002/pkg/telemetry/metrics"
	"github.com/tmobile/percy-cake-sub002/pkg/telemetry/tracing"
)

// HydrateAllApps discovers every application under inputDir, hydrates them
// concurrently and writes one file per application and environment to
// <outputDir>/<relative dir>/<environment>/<file name>.<ext>.
//
// Failures are isolated per application and collected in the report; use
// Report.Err to get them as an error. The returned error is non-nil only
// when the run could not start (missing input root) or ctx was cancelled.
func (h *Hydrator) HydrateAllApps(ctx context.Context, inputDir, outputDir string) (*Report, error) {
	apps, err := h.DiscoverApplications(inputDir)
	var list *ErrorList
	if err != nil && !errors.As(err, &list) {
		return nil, err
	}
	return h.Run(ctx, inputDir, outputDir, apps, list)
}

// HydrateDirectory hydrates the applications directly inside dir.
func (h *Hydrator) HydrateDirectory(ctx context.Context, dir, outputDir string) (*Report, error) {
	apps, err := h.DiscoverDirectory(dir)
	var list *ErrorList
	if err != nil && !errors.As(err, &list) {
		return nil, err
	}
	return h.Run(ctx, dir, outputDir, apps, list)
}

// HydrateFile hydrates the single application defined by file.
func (h *Hydrator) HydrateFile(ctx context.Context, file, outputDir string) (*Report, error) {
	list := &ErrorList{}
	var apps []*Application
	app, err := h.LoadApplication(file)
	if err != nil {
		list.Add(&ApplicationError{
			Application: applicationName(".", filepath.Base(file)),
			File:        file,
			Cause:       err,
		})
	} else {
		apps = append(apps, app)
	}
	return h.Run(ctx, filepath.Dir(file), outputDir, apps, list)
}

// OutputPath returns where the document of env is written for app.
func (h *Hydrator) OutputPath(outputDir string, app *Application, env string) string {
	base := filepath.Base(app.Name) + h.format.Extension()
	return filepath.Join(outputDir, filepath.FromSlash(app.RelDir), env, base)
}

// Run hydrates already discovered applications. discovered carries the
// discovery failures to include in the report and may be nil.
func (h *Hydrator) Run(ctx context.Context, inputDir, outputDir string, apps []*Application, discovered *ErrorList) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		InputDir:  inputDir,
		OutputDir: outputDir,
		StartedAt: time.Now().UTC(),
	}
	ctx, span := h.tracer.Start(ctx, "hydrate.run", trace.WithAttributes(
		attribute.String(tracing.AttrRunID, report.RunID),
		attribute.String(tracing.AttrInputDir, inputDir),
		attribute.String(tracing.AttrOutputDir, outputDir),
	))
	defer span.End()
	ctx = logging.WithRunID(ctx, report.RunID)

	if discovered != nil {
		for _, err := range discovered.Errors {
			var ae *ApplicationError
			if errors.As(err, &ae) {
				h.logger.ErrorContext(ctx, "application failed to load",
					"application", ae.Application,
					"file", ae.File,
					"error", ae.Cause,
				)
				report.Applications = append(report.Applications, &ApplicationReport{
					Application: ae.Application,
					File:        ae.File,
					Status:      StatusFailed,
					Errors:      []error{ae.Cause},
				})
				h.metrics.RecordApplication(metrics.StatusFailed, 0, 0, 0, 0)
				continue
			}
			h.logger.ErrorContext(ctx, "discovery failed", "error", err)
			report.DiscoveryErrors = append(report.DiscoveryErrors, err)
		}
	}

	h.logger.InfoContext(ctx, "hydration started",
		"input", inputDir,
		"output", outputDir,
		"application_count", len(apps),
	)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	concurrency := h.config.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	g.SetLimit(concurrency)

	if h.progress != nil {
		h.progress.Start(int64(len(apps)))
	}
	var done int64
	for _, app := range apps {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ar := h.hydrateOne(ctx, app, outputDir)
			mu.Lock()
			report.Applications = append(report.Applications, ar)
			done++
			if h.progress != nil {
				if ar.Status == StatusFailed {
					h.progress.Error(ar.Err())
				}
				h.progress.Update(done)
			}
			mu.Unlock()
			return nil
		})
	}
	waitErr := g.Wait()
	if h.progress != nil {
		h.progress.Finish()
	}

	report.sort()
	report.Duration = time.Since(report.StartedAt)
	h.metrics.RecordRun(report.Status() == StatusFailed, report.Duration)

	h.logger.InfoContext(ctx, "hydration finished",
		"status", string(report.Status()),
		"succeeded", report.Count(StatusSucceeded),
		"partial", report.Count(StatusPartial),
		"failed", report.Count(StatusFailed),
		"warnings", report.Warnings(),
		"duration_ms", report.Duration.Milliseconds(),
	)

	tracing.SetRunAttributes(span, report.RunID, string(report.Status()), len(report.Applications), report.Count(StatusFailed))
	if waitErr != nil {
		err := fmt.Errorf("hydration cancelled: %w", waitErr)
		tracing.SetError(span, err)
		return report, err
	}
	tracing.SetStatus(span, report.Err())

	if h.history != nil {
		if err := h.history.RecordRun(ctx, report); err != nil {
			h.logger.WarnContext(ctx, "failed to record run history", "error", err)
		}
	}
	return report, nil
}

func (h *Hydrator) hydrateOne(ctx context.Context, app *Application, outputDir string) *ApplicationReport {
	start := time.Now()
	ar := &ApplicationReport{Application: app.Name, File: app.BaseFile, Status: StatusSucceeded}
	ctx, span := h.tracer.Start(ctx, "hydrate.application", trace.WithAttributes(tracing.Application(app.Name, app.BaseFile)...))
	defer func() {
		ar.Duration = time.Since(start)
		h.metrics.RecordApplication(string(ar.Status), len(ar.Outputs), len(ar.Warnings), h.cyclicCount(ar), ar.Duration)
		tracing.SetApplicationResult(span, string(ar.Status), len(ar.Outputs), len(ar.Warnings), len(ar.Errors))
		if ar.Status == StatusFailed {
			tracing.SetError(span, ar.Err())
		} else {
			tracing.SetStatus(span, nil)
		}
		span.End()
	}()

	for _, ov := range app.Overlays {
		if ov.Name != DefaultEnvironment && !contains(app.Environments, ov.Name) {
			h.logger.DebugContext(ctx, "ignoring overlay of undeclared environment",
				"application", app.Name,
				"environment", ov.Name,
			)
		}
	}

	res, err := h.HydrateApplication(app, app.Percy)
	if err != nil {
		h.logger.ErrorContext(ctx, "application failed",
			"application", app.Name,
			"file", app.BaseFile,
			"error", err,
		)
		ar.Status = StatusFailed
		ar.Errors = append(ar.Errors, err)
		return ar
	}

	for i := range res.Environments {
		if !h.writeEnvironment(ctx, app, &res.Environments[i], outputDir, ar) {
			return ar
		}
	}

	h.logger.DebugContext(ctx, "application hydrated",
		"application", app.Name,
		"environments", len(ar.Outputs),
		"status", string(ar.Status),
	)
	return ar
}

// writeEnvironment records the findings of env on ar and writes its
// document. It reports false when the write failed.
func (h *Hydrator) writeEnvironment(ctx context.Context, app *Application, env *EnvironmentResult, outputDir string, ar *ApplicationReport) bool {
	ctx, span := h.tracer.Start(ctx, "hydrate.environment", trace.WithAttributes(
		attribute.String(tracing.AttrApplication, app.Name),
		attribute.String(tracing.AttrEnvironment, env.Environment),
		attribute.Int(tracing.AttrWarnings, len(env.Warnings)),
		attribute.Int(tracing.AttrErrors, len(env.Errors)),
	))
	defer span.End()

	for _, w := range env.Warnings {
		h.logger.WarnContext(ctx, "unresolved variable reference",
			"application", app.Name,
			"environment", env.Environment,
			"path", w.Path.String(),
			"reference", w.Reference,
			"reason", w.Reason,
			"suggestion", w.Suggestion,
		)
		ar.Warnings = append(ar.Warnings, Warning{Environment: env.Environment, UnresolvedReference: w})
	}
	for _, e := range env.Errors {
		h.logger.ErrorContext(ctx, "variable reference failed",
			"application", app.Name,
			"environment", env.Environment,
			"path", e.Path.String(),
			"error", e,
		)
		ar.Errors = append(ar.Errors, fmt.Errorf("env %s: %w", env.Environment, e))
		ar.Status = StatusPartial
	}

	out := h.OutputPath(outputDir, app, env.Environment)
	if err := h.store.WriteDocument(out, env.Document); err != nil {
		h.logger.ErrorContext(ctx, "failed to write hydrated document",
			"application", app.Name,
			"environment", env.Environment,
			"path", out,
			"error", err,
		)
		tracing.SetError(span, err)
		ar.Status = StatusFailed
		ar.Errors = append(ar.Errors, err)
		return false
	}
	ar.Outputs = append(ar.Outputs, Output{Environment: env.Environment, Path: out, Document: env.Document})
	return true
}

func (h *Hydrator) cyclicCount(ar *ApplicationReport) int {
	if ar.Status != StatusPartial {
		return 0
	}
	return len(ar.Errors)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
