package history

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/tmobile/percy-cake-sub002/pkg/compare"
	"github.com/tmobile/percy-cake-sub002/pkg/document"
)

// ErrRunNotFound is returned when a run ID is not in the database.
var ErrRunNotFound = errors.New("run not found")

// Run is a recorded hydration run.
type Run struct {
	ID           string
	StartedAt    time.Time
	Duration     time.Duration
	InputDir     string
	OutputDir    string
	Status       string
	Applications int
	Failures     int
}

// Output is one hydrated document recorded for a run.
type Output struct {
	RunID       string
	Application string
	Environment string
	Path        string
	Digest      string
	Document    *document.Node
}

// OutputDiff is the difference of one (application, environment) output
// between two runs.
type OutputDiff struct {
	Application string
	Environment string

	// Kind is Added when only the newer run produced the output, Removed
	// when only the older one did, and Changed otherwise.
	Kind    compare.Kind
	Entries []compare.DiffEntry
}

// Digest returns the hex SHA-256 of the key-sorted JSON rendering of doc.
func Digest(doc *document.Node) (string, error) {
	data, err := canonicalJSON(doc)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func canonicalJSON(doc *document.Node) ([]byte, error) {
	data, err := document.Canonical(doc).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

type outputKey struct {
	application string
	environment string
}

// diffOutputs compares the outputs of two runs. Only outputs whose digests
// differ are returned, ordered by application then environment.
func diffOutputs(from, to []Output) []OutputDiff {
	older := make(map[outputKey]Output, len(from))
	for _, o := range from {
		older[outputKey{o.Application, o.Environment}] = o
	}
	newer := make(map[outputKey]Output, len(to))
	for _, o := range to {
		newer[outputKey{o.Application, o.Environment}] = o
	}

	var diffs []OutputDiff
	for _, o := range from {
		n, ok := newer[outputKey{o.Application, o.Environment}]
		switch {
		case !ok:
			diffs = append(diffs, OutputDiff{
				Application: o.Application,
				Environment: o.Environment,
				Kind:        compare.Removed,
				Entries:     compare.Compare(o.Document, document.NewMapping()),
			})
		case n.Digest != o.Digest:
			diffs = append(diffs, OutputDiff{
				Application: o.Application,
				Environment: o.Environment,
				Kind:        compare.Changed,
				Entries:     compare.Compare(o.Document, n.Document),
			})
		}
	}
	for _, n := range to {
		if _, ok := older[outputKey{n.Application, n.Environment}]; ok {
			continue
		}
		diffs = append(diffs, OutputDiff{
			Application: n.Application,
			Environment: n.Environment,
			Kind:        compare.Added,
			Entries:     compare.Compare(document.NewMapping(), n.Document),
		})
	}
	sortDiffs(diffs)
	return diffs
}
