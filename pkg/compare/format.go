package compare

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/tmobile/percy-cake-sub002/pkg/document"
)

// Format selects how differences are rendered.
type Format string

const (
	// FormatText prints one line per entry with +, - and ~ markers.
	FormatText Format = "text"
	// FormatJSON prints the entries as a JSON array.
	FormatJSON Format = "json"
	// FormatUnified prints a unified diff of the key-sorted JSON renderings.
	FormatUnified Format = "unified"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatUnified:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unsupported diff format %q (want text, json or unified)", s)
	}
}

var markers = map[Kind]string{Added: "+", Removed: "-", Changed: "~"}

// WriteText writes one line per entry:
//
//	+ path: value
//	- path: value
//	~ path: before -> after
func WriteText(w io.Writer, entries []DiffEntry) error {
	for _, e := range entries {
		var err error
		switch e.Kind {
		case Added:
			_, err = fmt.Fprintf(w, "%s %s: %s\n", markers[e.Kind], e.Path, compact(e.After))
		case Removed:
			_, err = fmt.Fprintf(w, "%s %s: %s\n", markers[e.Kind], e.Path, compact(e.Before))
		default:
			_, err = fmt.Fprintf(w, "%s %s: %s -> %s\n", markers[e.Kind], e.Path, compact(e.Before), compact(e.After))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// MarshalJSON renders the entry as an object with the path both as a string
// and as a list of keys and indices.
func (e DiffEntry) MarshalJSON() ([]byte, error) {
	segments := e.Path.Values()
	if segments == nil {
		segments = []any{}
	}
	return json.Marshal(struct {
		Path     string         `json:"path"`
		Segments []any          `json:"segments"`
		Kind     Kind           `json:"kind"`
		Before   *document.Node `json:"before,omitempty"`
		After    *document.Node `json:"after,omitempty"`
	}{
		Path:     e.Path.String(),
		Segments: segments,
		Kind:     e.Kind,
		Before:   e.Before,
		After:    e.After,
	})
}

// WriteJSON writes the entries as an indented JSON array.
func WriteJSON(w io.Writer, entries []DiffEntry) error {
	if entries == nil {
		entries = []DiffEntry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// Unified returns a unified diff between the canonical JSON renderings of a
// and b. Key order does not show up in the diff. The result is empty when
// the documents are equal.
func Unified(a, b *document.Node, nameA, nameB string) (string, error) {
	ja, err := document.EncodeJSON(document.Canonical(a))
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", nameA, err)
	}
	jb, err := document.EncodeJSON(document.Canonical(b))
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", nameB, err)
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(ja)),
		B:        difflib.SplitLines(string(jb)),
		FromFile: nameA,
		ToFile:   nameB,
		Context:  3,
	})
}

// Write renders the differences from a to b in format f. The entries are
// computed by the caller so they can also be counted or inspected.
func Write(w io.Writer, f Format, a, b *document.Node, entries []DiffEntry, nameA, nameB string) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, entries)
	case FormatUnified:
		text, err := Unified(a, b, nameA, nameB)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, text)
		return err
	default:
		return WriteText(w, entries)
	}
}
