package cli

import (
	"errors"
	"fmt"
)

// Process exit codes.
const (
	// ExitError is returned for usage, configuration and I/O failures.
	ExitError = 1
	// ExitIncomplete is returned when a hydration ran to the end but some
	// applications failed or were only partially hydrated.
	ExitIncomplete = 2
)

// ConfigError represents an error in configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Code    int
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// NewCommandError creates a CommandError that exits with ExitError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Code:    ExitError,
		Err:     err,
	}
}

// NewIncompleteError creates a CommandError that exits with ExitIncomplete.
func NewIncompleteError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Code:    ExitIncomplete,
		Err:     err,
	}
}

// ExitCode returns the process exit code for err: 0 for nil, the code of
// the outermost CommandError, or ExitError.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ce *CommandError
	if errors.As(err, &ce) && ce.Code != 0 {
		return ce.Code
	}
	return ExitError
}
