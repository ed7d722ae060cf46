package hydrate

import (
	"sort"
	"time"

	"github.com/tmobile/percy-cake-sub002/pkg/document"
	"github.com/tmobile/percy-cake-sub002/pkg/variables"
)

// Status is the outcome of one application in a run.
type Status string

const (
	// StatusSucceeded means every environment was written without errors.
	StatusSucceeded Status = "succeeded"
	// StatusPartial means every environment was written but some values
	// failed with a cyclic reference.
	StatusPartial Status = "partial"
	// StatusFailed means the application produced no complete output.
	StatusFailed Status = "failed"
)

// Output is one hydrated document written by a run.
type Output struct {
	Environment string
	Path        string
	Document    *document.Node
}

// Warning is an unresolved reference in one environment.
type Warning struct {
	Environment string
	variables.UnresolvedReference
}

// ApplicationReport is the outcome of one application.
type ApplicationReport struct {
	Application string
	File        string
	Status      Status
	Outputs     []Output
	Warnings    []Warning
	Errors      []error
	Duration    time.Duration
}

// Err wraps the errors of the application in an *ApplicationError, or
// returns nil when it succeeded.
func (a *ApplicationReport) Err() error {
	if len(a.Errors) == 0 {
		return nil
	}
	var cause error = a.Errors[0]
	if len(a.Errors) > 1 {
		cause = &ErrorList{Errors: a.Errors}
	}
	return &ApplicationError{Application: a.Application, File: a.File, Cause: cause}
}

// Report is the outcome of a hydration run.
type Report struct {
	RunID     string
	InputDir  string
	OutputDir string
	StartedAt time.Time
	Duration  time.Duration

	// Applications holds one entry per discovered application, including
	// those that failed to load, sorted by name.
	Applications []*ApplicationReport

	// DiscoveryErrors are failures not attributable to one application,
	// such as an unreadable directory or percy rc file.
	DiscoveryErrors []error
}

// Application returns the report entry for name.
func (r *Report) Application(name string) (*ApplicationReport, bool) {
	for _, a := range r.Applications {
		if a.Application == name {
			return a, true
		}
	}
	return nil, false
}

// Count returns the number of applications with status s.
func (r *Report) Count(s Status) int {
	n := 0
	for _, a := range r.Applications {
		if a.Status == s {
			n++
		}
	}
	return n
}

// Warnings returns the total number of unresolved references.
func (r *Report) Warnings() int {
	n := 0
	for _, a := range r.Applications {
		n += len(a.Warnings)
	}
	return n
}

// Status summarizes the run: failed if any application failed or discovery
// reported errors, partial if any application was partial, else succeeded.
func (r *Report) Status() Status {
	switch {
	case r.Count(StatusFailed) > 0 || len(r.DiscoveryErrors) > 0:
		return StatusFailed
	case r.Count(StatusPartial) > 0:
		return StatusPartial
	default:
		return StatusSucceeded
	}
}

// Err returns an *ErrorList with every discovery error and the error of
// every failed or partial application, or nil when the run was clean.
func (r *Report) Err() error {
	errs := &ErrorList{}
	for _, err := range r.DiscoveryErrors {
		errs.Add(err)
	}
	for _, a := range r.Applications {
		errs.Add(a.Err())
	}
	return errs.ToError()
}

func (r *Report) sort() {
	sort.Slice(r.Applications, func(i, j int) bool {
		return r.Applications[i].Application < r.Applications[j].Application
	})
}
