// Package config provides configuration management for percy.
//
// This package handles loading and validating configuration from YAML files
// with environment variable overrides. The result is a plain Config value
// built once at startup and handed to the hydrator, the CLI and the
// telemetry packages; there is no package level state.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("percy.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("percy.yaml")
//
// An empty path skips the file and starts from DefaultConfig.
//
// # Environment Variable Overrides
//
// Structured names follow PERCY_SECTION_FIELD, for example
// PERCY_HYDRATION_CONCURRENCY or PERCY_TELEMETRY_LOGGING_FORMAT. The names
// used by existing percy installations are honoured as well:
//
//   - LOG_LEVEL
//   - ENVIRONMENT_FILE_NAME
//   - PERCY_CONFIG_FILE_NAME
//   - DEFAULT_VARIABLE_PREFIX, DEFAULT_VARIABLE_SUFFIX, DEFAULT_VARIABLE_NAME_PREFIX
//   - DEFAULT_ENV_VARIABLE_NAME
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Percy rc files
//
// PercyConfig is also the schema of the per-directory percy rc files
// (".percyrc" by default). PercyConfig.Merge layers them: a field set in a
// nearer file replaces the inherited value.
package config
