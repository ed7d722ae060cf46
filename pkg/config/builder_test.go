package config

import "time"

// ConfigBuilder provides a fluent API for building Config instances in tests.
// It starts with default values and allows selective overrides.
type ConfigBuilder struct {
	cfg Config
}

// NewTestConfig creates a new ConfigBuilder with sensible defaults for testing.
// The resulting configuration is valid and can be used immediately.
func NewTestConfig() *ConfigBuilder {
	return &ConfigBuilder{cfg: *DefaultConfig()}
}

// Build returns the built Config instance.
func (b *ConfigBuilder) Build() *Config {
	return &b.cfg
}

// WithEnvironmentFileName sets the environments file name.
func (b *ConfigBuilder) WithEnvironmentFileName(name string) *ConfigBuilder {
	b.cfg.Hydration.EnvironmentFileName = name
	return b
}

// WithPercyConfig replaces the default substitution settings.
func (b *ConfigBuilder) WithPercyConfig(pc PercyConfig) *ConfigBuilder {
	b.cfg.Hydration.DefaultPercyConfig = pc
	return b
}

// WithConcurrency sets the hydration concurrency.
func (b *ConfigBuilder) WithConcurrency(n int) *ConfigBuilder {
	b.cfg.Hydration.Concurrency = n
	return b
}

// WithOutputFormat sets the hydration output format.
func (b *ConfigBuilder) WithOutputFormat(format string) *ConfigBuilder {
	b.cfg.Hydration.OutputFormat = format
	return b
}

// WithLogLevel sets the logging level.
func (b *ConfigBuilder) WithLogLevel(level string) *ConfigBuilder {
	b.cfg.Telemetry.Logging.Level = level
	return b
}

// WithMetrics enables or disables the metrics endpoint.
func (b *ConfigBuilder) WithMetrics(enabled bool) *ConfigBuilder {
	b.cfg.Telemetry.Metrics.Enabled = enabled
	return b
}

// WithWatch sets the watch debounce and schedule.
func (b *ConfigBuilder) WithWatch(debounce time.Duration, schedule string) *ConfigBuilder {
	b.cfg.Watch.Debounce = debounce
	b.cfg.Watch.Schedule = schedule
	return b
}

// WithHistory enables history at path.
func (b *ConfigBuilder) WithHistory(path string) *ConfigBuilder {
	b.cfg.History.Enabled = true
	b.cfg.History.Path = path
	return b
}

// MinimalConfig returns the smallest valid configuration.
func MinimalConfig() *Config {
	return NewTestConfig().Build()
}
