package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tmobile/percy-cake-sub002/pkg/config"
)

// HydrationMetrics tracks hydration runs and per-application outcomes.
//
// Metrics:
//   - percy_hydration_runs_total: Hydration runs by status
//   - percy_hydration_applications_total: Applications hydrated by status
//   - percy_hydration_environments_total: Environment documents produced
//   - percy_hydration_unresolved_references_total: Unresolved variable references
//   - percy_hydration_cyclic_references_total: Values failed by cyclic references
//   - percy_hydration_duration_seconds: Duration by scope (application, run)
//   - percy_hydration_last_run_timestamp_seconds: Completion time of the last run
type HydrationMetrics struct {
	runsTotal         *prometheus.CounterVec
	applicationsTotal *prometheus.CounterVec
	environmentsTotal prometheus.Counter
	unresolvedTotal   prometheus.Counter
	cyclicTotal       prometheus.Counter
	duration          *prometheus.HistogramVec
	lastRun           prometheus.Gauge
}

// NewHydrationMetrics creates and registers hydration metrics.
func NewHydrationMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *HydrationMetrics {
	hm := &HydrationMetrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "hydration",
				Name:      "runs_total",
				Help:      "Total number of hydration runs",
			},
			[]string{"status"},
		),
		applicationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "hydration",
				Name:      "applications_total",
				Help:      "Total number of applications hydrated",
			},
			[]string{"status"},
		),
		environmentsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "hydration",
			Name:      "environments_total",
			Help:      "Total number of environment documents produced",
		}),
		unresolvedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "hydration",
			Name:      "unresolved_references_total",
			Help:      "Total number of variable references left unresolved",
		}),
		cyclicTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "hydration",
			Name:      "cyclic_references_total",
			Help:      "Total number of values that failed with a cyclic variable reference",
		}),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "hydration",
				Name:      "duration_seconds",
				Help:      "Hydration duration in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"scope"},
		),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "hydration",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last hydration run completed",
		}),
	}

	registry.MustRegister(
		hm.runsTotal,
		hm.applicationsTotal,
		hm.environmentsTotal,
		hm.unresolvedTotal,
		hm.cyclicTotal,
		hm.duration,
		hm.lastRun,
	)

	return hm
}

// CompareMetrics tracks document comparisons.
//
// Metrics:
//   - percy_compare_comparisons_total: Number of comparisons performed
//   - percy_compare_entries_total: Diff entries by kind (ADDED, REMOVED, CHANGED)
type CompareMetrics struct {
	comparisonsTotal prometheus.Counter
	entriesTotal     *prometheus.CounterVec
}

// NewCompareMetrics creates and registers comparison metrics.
func NewCompareMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CompareMetrics {
	cm := &CompareMetrics{
		comparisonsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "compare",
			Name:      "comparisons_total",
			Help:      "Total number of document comparisons",
		}),
		entriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "compare",
				Name:      "entries_total",
				Help:      "Total number of diff entries by kind",
			},
			[]string{"kind"},
		),
	}
	registry.MustRegister(cm.comparisonsTotal, cm.entriesTotal)
	return cm
}

// WatchMetrics tracks watch mode triggers.
//
// Metrics:
//   - percy_watch_triggers_total: Hydrations started by trigger
type WatchMetrics struct {
	triggersTotal *prometheus.CounterVec
}

// NewWatchMetrics creates and registers watch metrics.
func NewWatchMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *WatchMetrics {
	wm := &WatchMetrics{
		triggersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "watch",
				Name:      "triggers_total",
				Help:      "Total number of hydrations started in watch mode by trigger",
			},
			[]string{"trigger"},
		),
	}
	registry.MustRegister(wm.triggersTotal)
	return wm
}
