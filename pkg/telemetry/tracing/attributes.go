package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys set on percy spans.
const (
	AttrRunID       = "percy.run_id"
	AttrInputDir    = "percy.input_dir"
	AttrOutputDir   = "percy.output_dir"
	AttrTrigger     = "percy.trigger"
	AttrWatchRun    = "percy.watch.run"
	AttrApplication = "percy.application"
	AttrEnvironment = "percy.environment"
	AttrFile        = "percy.file"
	AttrStatus      = "percy.status"

	AttrApplications = "percy.applications"
	AttrOutputs      = "percy.outputs"
	AttrWarnings     = "percy.warnings"
	AttrErrors       = "percy.errors"
)

// Application returns the attributes identifying an application.
func Application(name, file string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrApplication, name),
		attribute.String(AttrFile, file),
	}
}

// SetRunAttributes sets the attributes of a finished hydration run.
func SetRunAttributes(span trace.Span, runID, status string, applications, failed int) {
	span.SetAttributes(
		attribute.String(AttrRunID, runID),
		attribute.String(AttrStatus, status),
		attribute.Int(AttrApplications, applications),
		attribute.Int(AttrErrors, failed),
	)
}

// SetApplicationResult sets the outcome of one application.
func SetApplicationResult(span trace.Span, status string, outputs, warnings, errs int) {
	span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int(AttrOutputs, outputs),
		attribute.Int(AttrWarnings, warnings),
		attribute.Int(AttrErrors, errs),
	)
}
