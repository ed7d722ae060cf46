package config

import "time"

// Config is the root configuration for percy.
// It is loaded once at startup and passed explicitly to the components that
// need it.
type Config struct {
	// Hydration controls application discovery, variable substitution and
	// output rendering.
	Hydration HydrationConfig `yaml:"hydration"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Watch controls the long-running watch mode.
	Watch WatchConfig `yaml:"watch"`

	// History controls the SQLite run history used to diff hydration runs.
	History HistoryConfig `yaml:"history"`
}

// HydrationConfig contains settings for the hydration engine.
type HydrationConfig struct {
	// EnvironmentFileName is the name of the per-directory file that declares
	// the environments of the applications beside it.
	// Default: "environments.yaml"
	EnvironmentFileName string `yaml:"environment_file_name"`

	// PercyConfigFileName is the name of the per-directory file overriding
	// DefaultPercyConfig for applications at or below it.
	// Default: ".percyrc"
	PercyConfigFileName string `yaml:"percy_config_file_name"`

	// DefaultPercyConfig holds the variable substitution tokens used when no
	// percy rc file overrides them.
	DefaultPercyConfig PercyConfig `yaml:"default_percy_config"`

	// OutputFormat selects the format of hydrated files.
	// Options: "json", "yaml"
	// Default: "json"
	OutputFormat string `yaml:"output_format"`

	// Concurrency is the number of applications hydrated in parallel.
	// Default: 4
	Concurrency int `yaml:"concurrency"`

	// MaxResolvePasses bounds the variable resolution fixed point.
	// Default: 64
	MaxResolvePasses int `yaml:"max_resolve_passes"`

	// MaxFileSize is the largest input document accepted, in bytes.
	// Default: 10MB
	MaxFileSize int64 `yaml:"max_file_size"`
}

// PercyConfig is the variable substitution configuration of an application.
// Field names match the keys of percy rc files.
type PercyConfig struct {
	// VariablePrefix opens a variable reference.
	// Default: "_{"
	VariablePrefix string `yaml:"variablePrefix" json:"variablePrefix"`

	// VariableSuffix closes a variable reference.
	// Default: "}_"
	VariableSuffix string `yaml:"variableSuffix" json:"variableSuffix"`

	// VariableNamePrefix starts the identifier inside a reference. Top-level
	// keys starting with it are variable definitions and are dropped from
	// hydrated output.
	// Default: "$"
	VariableNamePrefix string `yaml:"variableNamePrefix" json:"variableNamePrefix"`

	// EnvVariableName is the identifier that resolves to the name of the
	// environment being hydrated.
	// Default: "env"
	EnvVariableName string `yaml:"envVariableName" json:"envVariableName"`

	// StrictOverlay rejects overlay keys that do not exist in the base
	// document or change the kind of a node.
	// Default: false
	StrictOverlay bool `yaml:"strictOverlay" json:"strictOverlay"`
}

// Merge returns c overlaid with every non-empty field of o. A percy rc file
// can enable StrictOverlay but cannot disable it once a parent enabled it.
func (c PercyConfig) Merge(o PercyConfig) PercyConfig {
	out := c
	if o.VariablePrefix != "" {
		out.VariablePrefix = o.VariablePrefix
	}
	if o.VariableSuffix != "" {
		out.VariableSuffix = o.VariableSuffix
	}
	if o.VariableNamePrefix != "" {
		out.VariableNamePrefix = o.VariableNamePrefix
	}
	if o.EnvVariableName != "" {
		out.EnvVariableName = o.EnvVariableName
	}
	if o.StrictOverlay {
		out.StrictOverlay = true
	}
	return out
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains OpenTelemetry tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "text"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// Redact masks values of attributes whose key looks like a secret.
	// Default: true
	Redact bool `yaml:"redact"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether the metrics endpoint is served in watch mode.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric name prefix.
	// Default: "percy"
	Namespace string `yaml:"namespace"`

	// ListenAddress is the address of the metrics HTTP server.
	// Default: ":9090"
	ListenAddress string `yaml:"listen_address"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// DurationBuckets are the histogram buckets for hydration durations, in
	// seconds.
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// TracingConfig contains OpenTelemetry tracing configuration.
type TracingConfig struct {
	// Enabled controls whether hydration runs and watch triggers are traced.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "always"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Only used when Sampler is "ratio".
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Exporter determines the trace exporter to use.
	// Options: "otlp"
	// Default: "otlp"
	Exporter string `yaml:"exporter"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "percy"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter specific configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for the collector connection.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// WatchConfig controls watch mode.
type WatchConfig struct {
	// Debounce coalesces bursts of file system events.
	// Default: 250ms
	Debounce time.Duration `yaml:"debounce"`

	// Schedule is an optional cron expression (5 fields) that triggers a
	// full hydration even without file changes.
	Schedule string `yaml:"schedule"`
}

// HistoryConfig controls the run history database.
type HistoryConfig struct {
	// Enabled records every hydration run.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Driver selects the SQLite driver.
	// Options: "sqlite" (pure Go), "sqlite3" (cgo)
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// Path is the SQLite database file.
	// Default: "percy-history.db"
	Path string `yaml:"path"`

	// Retain is the number of runs kept; older runs are pruned after each
	// recorded run. A negative value keeps every run.
	// Default: 50
	Retain int `yaml:"retain"`

	// BusyTimeout is how long SQLite waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}
