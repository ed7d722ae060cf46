// Package metrics provides Prometheus metrics for percy.
//
// # Overview
//
// The collector counts hydration runs and application outcomes, unresolved
// and cyclic variable references, diff entries and watch mode triggers.
// Metrics are registered on a private registry per Collector.
//
// # Metrics Categories
//
//   - Hydration: runs, applications by status, environments, durations
//   - Compare: comparisons and entries by kind
//   - Watch: hydrations started by trigger (fsnotify, schedule, initial)
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.RecordApplication(metrics.StatusSucceeded, 3, 0, 0, 12*time.Millisecond)
//
//	// In watch mode
//	go collector.Serve(ctx, logger)
//
// A nil *Collector ignores every Record call.
package metrics
