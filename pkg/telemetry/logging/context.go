package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Context keys for common log fields.
type contextKey string

const (
	// RunIDKey is the context key for hydration run IDs.
	RunIDKey contextKey = "run_id"

	// ApplicationKey is the context key for the application being hydrated.
	ApplicationKey contextKey = "application"

	// EnvironmentKey is the context key for the environment being hydrated.
	EnvironmentKey contextKey = "environment"

	// TraceIDKey and SpanIDKey name the fields taken from the active span.
	TraceIDKey contextKey = "trace_id"
	SpanIDKey  contextKey = "span_id"
)

// WithRunID adds a run ID to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// GetRunID retrieves the run ID from the context.
func GetRunID(ctx context.Context) string {
	if runID, ok := ctx.Value(RunIDKey).(string); ok {
		return runID
	}
	return ""
}

// WithApplication adds an application name to the context.
func WithApplication(ctx context.Context, app string) context.Context {
	return context.WithValue(ctx, ApplicationKey, app)
}

// GetApplication retrieves the application name from the context.
func GetApplication(ctx context.Context) string {
	if app, ok := ctx.Value(ApplicationKey).(string); ok {
		return app
	}
	return ""
}

// WithEnvironment adds an environment name to the context.
func WithEnvironment(ctx context.Context, env string) context.Context {
	return context.WithValue(ctx, EnvironmentKey, env)
}

// GetEnvironment retrieves the environment name from the context.
func GetEnvironment(ctx context.Context) string {
	if env, ok := ctx.Value(EnvironmentKey).(string); ok {
		return env
	}
	return ""
}

// extractContextFields extracts common fields from context for logging.
// Returns a slice of key-value pairs suitable for logger.With().
func extractContextFields(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}

	var fields []any
	if runID := GetRunID(ctx); runID != "" {
		fields = append(fields, string(RunIDKey), runID)
	}
	if app := GetApplication(ctx); app != "" {
		fields = append(fields, string(ApplicationKey), app)
	}
	if env := GetEnvironment(ctx); env != "" {
		fields = append(fields, string(EnvironmentKey), env)
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			string(TraceIDKey), sc.TraceID().String(),
			string(SpanIDKey), sc.SpanID().String(),
		)
	}
	return fields
}

// contextHandler adds context fields to every record and redacts secret
// attribute values before handing the record on.
type contextHandler struct {
	next     slog.Handler
	redactor *Redactor
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	fields := extractContextFields(ctx)
	if len(fields) == 0 && h.redactor == nil {
		return h.next.Handle(ctx, r)
	}

	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	out.Add(fields...)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redact(a))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redact(a)
	}
	return &contextHandler{next: h.next.WithAttrs(redacted), redactor: h.redactor}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{next: h.next.WithGroup(name), redactor: h.redactor}
}

func (h *contextHandler) redact(a slog.Attr) slog.Attr {
	if h.redactor == nil {
		return a
	}
	return h.redactor.RedactAttr(a)
}
