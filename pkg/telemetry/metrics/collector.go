package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tmobile/percy-cake-sub002/pkg/config"
)

// Application status label values.
const (
	StatusSucceeded = "succeeded"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
)

// Watch trigger label values.
const (
	TriggerFileChange = "fsnotify"
	TriggerSchedule   = "schedule"
	TriggerInitial    = "initial"
)

// Collector owns the Prometheus registry and every percy metric. A nil
// *Collector is valid and records nothing, so callers that do not care about
// metrics can pass nil.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	hydration *HydrationMetrics
	compare   *CompareMetrics
	watch     *WatchMetrics
}

// NewCollector creates a collector and registers all metrics. If registry is
// nil a fresh one is created; the process-wide default registry is never
// used so tests can build independent collectors.
//
// Example:
//
//	cfg := config.DefaultConfig().Telemetry.Metrics
//	collector := metrics.NewCollector(&cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = append([]float64(nil), config.DefaultDurationBuckets...)
	}

	return &Collector{
		config:    cfg,
		registry:  registry,
		hydration: NewHydrationMetrics(cfg, registry),
		compare:   NewCompareMetrics(cfg, registry),
		watch:     NewWatchMetrics(cfg, registry),
	}
}

// Registry returns the Prometheus registry backing the collector.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// RecordApplication records the outcome of hydrating one application.
//
// Parameters:
//   - status: StatusSucceeded, StatusPartial or StatusFailed
//   - environments: number of environment documents produced
//   - warnings: number of unresolved variable references
//   - cycles: number of values that failed with a cyclic reference
//   - duration: time spent on the application
func (c *Collector) RecordApplication(status string, environments, warnings, cycles int, duration time.Duration) {
	if c == nil {
		return
	}
	h := c.hydration
	h.applicationsTotal.WithLabelValues(status).Inc()
	h.environmentsTotal.Add(float64(environments))
	h.unresolvedTotal.Add(float64(warnings))
	h.cyclicTotal.Add(float64(cycles))
	h.duration.WithLabelValues("application").Observe(duration.Seconds())
}

// RecordRun records a complete hydration run.
func (c *Collector) RecordRun(failed bool, duration time.Duration) {
	if c == nil {
		return
	}
	status := StatusSucceeded
	if failed {
		status = StatusFailed
	}
	c.hydration.runsTotal.WithLabelValues(status).Inc()
	c.hydration.duration.WithLabelValues("run").Observe(duration.Seconds())
	c.hydration.lastRun.SetToCurrentTime()
}

// RecordDiff records the entries produced by one comparison, by kind.
func (c *Collector) RecordDiff(counts map[string]int) {
	if c == nil {
		return
	}
	for kind, n := range counts {
		c.compare.entriesTotal.WithLabelValues(kind).Add(float64(n))
	}
	c.compare.comparisonsTotal.Inc()
}

// RecordTrigger records why watch mode started a hydration.
func (c *Collector) RecordTrigger(trigger string) {
	if c == nil {
		return
	}
	c.watch.triggersTotal.WithLabelValues(trigger).Inc()
}
