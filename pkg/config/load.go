package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// An empty path yields the default configuration.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}

		// Unmarshal over the defaults so booleans that default to true survive
		// when the file does not mention them.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables always take precedence
// over file-based configuration.
//
// Two naming schemes are recognised. The historical names used by percy
// deployments (LOG_LEVEL, ENVIRONMENT_FILE_NAME, PERCY_CONFIG_FILE_NAME,
// DEFAULT_VARIABLE_PREFIX, DEFAULT_VARIABLE_SUFFIX,
// DEFAULT_VARIABLE_NAME_PREFIX, DEFAULT_ENV_VARIABLE_NAME) and the structured
// PERCY_SECTION_FIELD names. When both are set the PERCY_ name wins.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg, os.LookupEnv)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// lookupFunc matches os.LookupEnv so tests can supply their own environment.
type lookupFunc func(key string) (string, bool)

// first returns the value of the first non-empty variable among keys.
func (l lookupFunc) first(keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := l(k); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

func (l lookupFunc) str(dst *string, keys ...string) {
	if v, ok := l.first(keys...); ok {
		*dst = v
	}
}

func (l lookupFunc) integer(dst *int, keys ...string) {
	if v, ok := l.first(keys...); ok {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}

func (l lookupFunc) boolean(dst *bool, keys ...string) {
	if v, ok := l.first(keys...); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func (l lookupFunc) float(dst *float64, keys ...string) {
	if v, ok := l.first(keys...); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func (l lookupFunc) duration(dst *time.Duration, keys ...string) {
	if v, ok := l.first(keys...); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config, lookup lookupFunc) {
	// Hydration overrides
	h := &cfg.Hydration
	lookup.str(&h.EnvironmentFileName, "PERCY_HYDRATION_ENVIRONMENT_FILE_NAME", "ENVIRONMENT_FILE_NAME")
	lookup.str(&h.PercyConfigFileName, "PERCY_HYDRATION_PERCY_CONFIG_FILE_NAME", "PERCY_CONFIG_FILE_NAME")
	lookup.str(&h.DefaultPercyConfig.VariablePrefix, "PERCY_VARIABLE_PREFIX", "DEFAULT_VARIABLE_PREFIX")
	lookup.str(&h.DefaultPercyConfig.VariableSuffix, "PERCY_VARIABLE_SUFFIX", "DEFAULT_VARIABLE_SUFFIX")
	lookup.str(&h.DefaultPercyConfig.VariableNamePrefix, "PERCY_VARIABLE_NAME_PREFIX", "DEFAULT_VARIABLE_NAME_PREFIX")
	lookup.str(&h.DefaultPercyConfig.EnvVariableName, "PERCY_ENV_VARIABLE_NAME", "DEFAULT_ENV_VARIABLE_NAME")
	lookup.boolean(&h.DefaultPercyConfig.StrictOverlay, "PERCY_STRICT_OVERLAY")
	lookup.str(&h.OutputFormat, "PERCY_HYDRATION_OUTPUT_FORMAT")
	lookup.integer(&h.Concurrency, "PERCY_HYDRATION_CONCURRENCY")
	lookup.integer(&h.MaxResolvePasses, "PERCY_HYDRATION_MAX_RESOLVE_PASSES")
	if v, ok := lookup.first("PERCY_HYDRATION_MAX_FILE_SIZE"); ok {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			h.MaxFileSize = i
		}
	}

	// Telemetry overrides
	l := &cfg.Telemetry.Logging
	if v, ok := lookup.first("PERCY_TELEMETRY_LOGGING_LEVEL", "LOG_LEVEL"); ok {
		l.Level = strings.ToLower(v)
	}
	lookup.str(&l.Format, "PERCY_TELEMETRY_LOGGING_FORMAT")
	lookup.boolean(&l.AddSource, "PERCY_TELEMETRY_LOGGING_ADD_SOURCE")
	lookup.boolean(&l.Redact, "PERCY_TELEMETRY_LOGGING_REDACT")

	m := &cfg.Telemetry.Metrics
	lookup.boolean(&m.Enabled, "PERCY_TELEMETRY_METRICS_ENABLED")
	lookup.str(&m.Namespace, "PERCY_TELEMETRY_METRICS_NAMESPACE")
	lookup.str(&m.ListenAddress, "PERCY_TELEMETRY_METRICS_LISTEN_ADDRESS")
	lookup.str(&m.Path, "PERCY_TELEMETRY_METRICS_PATH")

	t := &cfg.Telemetry.Tracing
	lookup.boolean(&t.Enabled, "PERCY_TELEMETRY_TRACING_ENABLED")
	lookup.str(&t.Sampler, "PERCY_TELEMETRY_TRACING_SAMPLER")
	lookup.float(&t.SampleRatio, "PERCY_TELEMETRY_TRACING_SAMPLE_RATIO")
	lookup.str(&t.Endpoint, "PERCY_TELEMETRY_TRACING_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	lookup.str(&t.ServiceName, "PERCY_TELEMETRY_TRACING_SERVICE_NAME", "OTEL_SERVICE_NAME")
	lookup.boolean(&t.OTLP.Insecure, "PERCY_TELEMETRY_TRACING_INSECURE")

	// Watch overrides
	lookup.duration(&cfg.Watch.Debounce, "PERCY_WATCH_DEBOUNCE")
	lookup.str(&cfg.Watch.Schedule, "PERCY_WATCH_SCHEDULE")

	// History overrides
	lookup.boolean(&cfg.History.Enabled, "PERCY_HISTORY_ENABLED")
	lookup.str(&cfg.History.Driver, "PERCY_HISTORY_DRIVER")
	lookup.str(&cfg.History.Path, "PERCY_HISTORY_PATH")
	lookup.integer(&cfg.History.Retain, "PERCY_HISTORY_RETAIN")
	lookup.duration(&cfg.History.BusyTimeout, "PERCY_HISTORY_BUSY_TIMEOUT")
}
