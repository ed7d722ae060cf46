package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/tmobile/percy-cake-sub002/pkg/hydrate"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is plain text output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is JSON output.
	FormatJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --format flag value. Empty means text.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want text or json)", s)
	}
}

// Formatter formats command output.
type Formatter interface {
	Format(data any) ([]byte, error)
	FormatTo(w io.Writer, data any) error
}

// TextFormatter formats output as plain text using the value's String
// method when it has one.
type TextFormatter struct{}

// Format converts data to text format.
func (f *TextFormatter) Format(data any) ([]byte, error) {
	return []byte(fmt.Sprintf("%v\n", data)), nil
}

// FormatTo writes data to writer in text format.
func (f *TextFormatter) FormatTo(w io.Writer, data any) error {
	_, err := fmt.Fprintf(w, "%v\n", data)
	return err
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// Format converts data to JSON format.
func (f *JSONFormatter) Format(data any) ([]byte, error) {
	if f.Indent {
		return json.MarshalIndent(data, "", "  ")
	}
	return json.Marshal(data)
}

// FormatTo writes data to writer in JSON format.
func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// NewFormatter creates a new formatter for the specified format.
func NewFormatter(format OutputFormat) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	default:
		return &TextFormatter{}
	}
}

// ReportSummary is the printable outcome of a hydration run.
type ReportSummary struct {
	RunID           string               `json:"run_id"`
	Status          string               `json:"status"`
	Input           string               `json:"input"`
	Output          string               `json:"output"`
	DurationMS      int64                `json:"duration_ms"`
	Applications    []ApplicationSummary `json:"applications"`
	DiscoveryErrors []string             `json:"discovery_errors,omitempty"`
}

// ApplicationSummary is the printable outcome of one application.
type ApplicationSummary struct {
	Name     string   `json:"name"`
	Status   string   `json:"status"`
	Outputs  []string `json:"outputs"`
	Warnings []string `json:"warnings,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

// NewReportSummary flattens r for printing.
func NewReportSummary(r *hydrate.Report) ReportSummary {
	s := ReportSummary{
		RunID:        r.RunID,
		Status:       string(r.Status()),
		Input:        r.InputDir,
		Output:       r.OutputDir,
		DurationMS:   r.Duration.Milliseconds(),
		Applications: make([]ApplicationSummary, 0, len(r.Applications)),
	}
	for _, err := range r.DiscoveryErrors {
		s.DiscoveryErrors = append(s.DiscoveryErrors, err.Error())
	}
	for _, a := range r.Applications {
		as := ApplicationSummary{
			Name:    a.Application,
			Status:  string(a.Status),
			Outputs: make([]string, 0, len(a.Outputs)),
		}
		for _, o := range a.Outputs {
			as.Outputs = append(as.Outputs, o.Path)
		}
		for _, w := range a.Warnings {
			as.Warnings = append(as.Warnings, fmt.Sprintf("[%s] %s", w.Environment, w.String()))
		}
		for _, err := range a.Errors {
			as.Errors = append(as.Errors, err.Error())
		}
		s.Applications = append(s.Applications, as)
	}
	return s
}

// String renders one line per application followed by its warnings and
// errors, and a closing totals line.
func (s ReportSummary) String() string {
	var sb strings.Builder
	counts := map[string]int{}
	for _, a := range s.Applications {
		counts[a.Status]++
		fmt.Fprintf(&sb, "%s %s (%d outputs)\n", statusMark(a.Status), a.Name, len(a.Outputs))
		for _, w := range a.Warnings {
			fmt.Fprintf(&sb, "    warning: %s\n", w)
		}
		for _, e := range a.Errors {
			fmt.Fprintf(&sb, "    error: %s\n", e)
		}
	}
	for _, e := range s.DiscoveryErrors {
		fmt.Fprintf(&sb, "✗ %s\n", e)
	}
	fmt.Fprintf(&sb, "\nRun %s %s: %d succeeded, %d partial, %d failed in %dms",
		s.RunID, s.Status,
		counts[string(hydrate.StatusSucceeded)],
		counts[string(hydrate.StatusPartial)],
		counts[string(hydrate.StatusFailed)],
		s.DurationMS,
	)
	return sb.String()
}

func statusMark(status string) string {
	switch hydrate.Status(status) {
	case hydrate.StatusSucceeded:
		return "✓"
	case hydrate.StatusPartial:
		return "!"
	default:
		return "✗"
	}
}
