package config

import "time"

// Default values for configuration fields.
const (
	// Hydration defaults
	DefaultEnvironmentFileName = "environments.yaml"
	DefaultPercyConfigFileName = ".percyrc"
	DefaultOutputFormat        = "json"
	DefaultConcurrency         = 4
	DefaultMaxResolvePasses    = 64
	DefaultMaxFileSize         = int64(10 * 1024 * 1024) // 10MB

	// Variable substitution defaults
	DefaultVariablePrefix     = "_{"
	DefaultVariableSuffix     = "}_"
	DefaultVariableNamePrefix = "$"
	DefaultEnvVariableName    = "env"

	// Telemetry defaults
	DefaultLogLevel             = "info"
	DefaultLogFormat            = "text"
	DefaultLogRedact            = true
	DefaultMetricsNamespace     = "percy"
	DefaultMetricsListenAddress = ":9090"
	DefaultMetricsPath          = "/metrics"
	DefaultTracingSampler       = "always"
	DefaultTracingSampleRatio   = 1.0
	DefaultTracingExporter      = "otlp"
	DefaultTracingEndpoint      = "localhost:4317"
	DefaultTracingServiceName   = "percy"
	DefaultTracingOTLPTimeout   = 10 * time.Second

	// Watch defaults
	DefaultWatchDebounce = 250 * time.Millisecond

	// History defaults
	DefaultHistoryDriver      = "sqlite"
	DefaultHistoryPath        = "percy-history.db"
	DefaultHistoryRetain      = 50
	DefaultHistoryBusyTimeout = 5 * time.Second
)

// DefaultDurationBuckets are the histogram buckets used when none are
// configured. Hydration of a single application is usually well under a
// second.
var DefaultDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// DefaultPercyConfig returns the built-in variable substitution settings.
func DefaultPercyConfig() PercyConfig {
	return PercyConfig{
		VariablePrefix:     DefaultVariablePrefix,
		VariableSuffix:     DefaultVariableSuffix,
		VariableNamePrefix: DefaultVariableNamePrefix,
		EnvVariableName:    DefaultEnvVariableName,
	}
}

// DefaultConfig returns a configuration populated with every default,
// including the boolean ones ApplyDefaults cannot infer from zero values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Telemetry.Logging.Redact = DefaultLogRedact
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every zero-valued field of cfg with its default.
func ApplyDefaults(cfg *Config) {
	// Hydration defaults
	if cfg.Hydration.EnvironmentFileName == "" {
		cfg.Hydration.EnvironmentFileName = DefaultEnvironmentFileName
	}
	if cfg.Hydration.PercyConfigFileName == "" {
		cfg.Hydration.PercyConfigFileName = DefaultPercyConfigFileName
	}
	cfg.Hydration.DefaultPercyConfig = DefaultPercyConfig().Merge(cfg.Hydration.DefaultPercyConfig)
	if cfg.Hydration.OutputFormat == "" {
		cfg.Hydration.OutputFormat = DefaultOutputFormat
	}
	if cfg.Hydration.Concurrency == 0 {
		cfg.Hydration.Concurrency = DefaultConcurrency
	}
	if cfg.Hydration.MaxResolvePasses == 0 {
		cfg.Hydration.MaxResolvePasses = DefaultMaxResolvePasses
	}
	if cfg.Hydration.MaxFileSize == 0 {
		cfg.Hydration.MaxFileSize = DefaultMaxFileSize
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = DefaultMetricsListenAddress
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if len(cfg.Telemetry.Metrics.DurationBuckets) == 0 {
		cfg.Telemetry.Metrics.DurationBuckets = append([]float64(nil), DefaultDurationBuckets...)
	}

	t := &cfg.Telemetry.Tracing
	if t.Sampler == "" {
		t.Sampler = DefaultTracingSampler
	}
	if t.SampleRatio == 0 {
		t.SampleRatio = DefaultTracingSampleRatio
	}
	if t.Exporter == "" {
		t.Exporter = DefaultTracingExporter
	}
	if t.Endpoint == "" {
		t.Endpoint = DefaultTracingEndpoint
	}
	if t.ServiceName == "" {
		t.ServiceName = DefaultTracingServiceName
	}
	if t.OTLP.Timeout == 0 {
		t.OTLP.Timeout = DefaultTracingOTLPTimeout
	}

	// Watch defaults
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = DefaultWatchDebounce
	}

	// History defaults
	if cfg.History.Driver == "" {
		cfg.History.Driver = DefaultHistoryDriver
	}
	if cfg.History.Path == "" {
		cfg.History.Path = DefaultHistoryPath
	}
	if cfg.History.Retain == 0 {
		cfg.History.Retain = DefaultHistoryRetain
	}
	if cfg.History.BusyTimeout == 0 {
		cfg.History.BusyTimeout = DefaultHistoryBusyTimeout
	}
}
