// Package tracing exports OpenTelemetry spans for hydration runs.
//
// Each run is one trace:
//
//	watch.trigger              (watch mode only)
//	└── hydrate.run            percy.run_id, percy.status
//	    └── hydrate.application percy.application, percy.outputs
//	        └── hydrate.environment percy.environment, percy.warnings
//
// Spans go to an OTLP gRPC collector when telemetry.tracing.enabled is set.
// A nil or disabled Tracer starts non-recording spans. Log records written
// inside a span carry its trace_id and span_id.
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, tracing.WithServiceVersion(version))
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//	h, err := hydrate.New(&cfg.Hydration, st, hydrate.WithTracer(tracer))
package tracing
