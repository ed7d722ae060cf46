// Package telemetry groups the observability packages of percy.
//
// # Components
//
//   - logging: structured log/slog logging with run, application and
//     environment context and redaction of secret-looking attributes
//   - metrics: Prometheus collectors for hydration, comparison and watch
//     mode, served over HTTP while watching
//   - tracing: OpenTelemetry spans per watch trigger, run, application and
//     environment, exported over OTLP when telemetry.tracing.enabled is set
//   - health: liveness and readiness probes mounted next to the metrics
//     endpoint; readiness follows the outcome of the latest hydration
//
// # Usage
//
//	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging, os.Stderr))
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//	defer tracer.Shutdown(context.Background())
//
//	h, err := hydrate.New(&cfg.Hydration, st,
//	    hydrate.WithLogger(logger.Slog()),
//	    hydrate.WithMetrics(collector),
//	    hydrate.WithTracer(tracer))
//
// # Redaction
//
// Resolved variable values can hold credentials. With telemetry.logging.redact
// enabled, attribute values whose key looks like a secret (password, token,
// secret, api key) are masked before they reach the handler.
package telemetry
