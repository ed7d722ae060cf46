package hydrate

import (
	"fmt"
	"strings"
)

// DiscoveryError reports a missing or unreadable required file or
// directory, such as a missing input root or a missing environments file.
type DiscoveryError struct {
	// Path is the file or directory involved
	Path string

	// Message describes the error
	Message string

	// Cause is the underlying error, if any
	Cause error
}

// Error implements the error interface.
func (e *DiscoveryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("discovery error at %q: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("discovery error at %q: %s", e.Path, e.Message)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *DiscoveryError) Unwrap() error {
	return e.Cause
}

// ApplicationError attributes an error to the application it failed.
type ApplicationError struct {
	// Application is the application name
	Application string

	// File is the base file of the application
	File string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *ApplicationError) Error() string {
	return fmt.Sprintf("application %q (%s): %v", e.Application, e.File, e.Cause)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *ApplicationError) Unwrap() error {
	return e.Cause
}

// InheritanceError reports a broken "inherits" chain between environments.
type InheritanceError struct {
	// Environment is the environment whose chain is broken
	Environment string

	// Cycle contains the environments of a cycle, first repeated last
	Cycle []string

	// Message describes the error
	Message string
}

// Error implements the error interface.
func (e *InheritanceError) Error() string {
	if len(e.Cycle) > 0 {
		return fmt.Sprintf("cyclic env inherits detected: %s", strings.Join(e.Cycle, " -> "))
	}
	return fmt.Sprintf("env %q: %s", e.Environment, e.Message)
}

// OverlayError reports an overlay that does not fit its base document.
type OverlayError struct {
	// Environment is the environment whose overlay failed
	Environment string

	// Path is the property that failed, as a dotted path
	Path string

	// Message describes the error
	Message string
}

// Error implements the error interface.
func (e *OverlayError) Error() string {
	return fmt.Sprintf("%s: %s in env node: %s", e.Message, e.Path, e.Environment)
}

// ErrorList contains multiple errors that occurred while discovering or
// hydrating applications. Processing continues past individual failures, so
// a list may accompany partial results.
type ErrorList struct {
	Errors []error
}

// Error implements the error interface.
func (e *ErrorList) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d errors occurred:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %v\n", i+1, err))
	}
	return sb.String()
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (e *ErrorList) Unwrap() []error {
	return e.Errors
}

// Add adds an error to the list.
func (e *ErrorList) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if the list contains any errors.
func (e *ErrorList) HasErrors() bool {
	return len(e.Errors) > 0
}

// ToError returns nil if there are no errors, or the list itself otherwise.
func (e *ErrorList) ToError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}
