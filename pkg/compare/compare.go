package compare

import (
	"fmt"
	"io"

	"github.com/tmobile/percy-cake-sub002/pkg/document"
	"github.com/tmobile/percy-cake-sub002/pkg/store"
)

// Kind classifies a difference.
type Kind string

const (
	// Added means the path exists only in the second document.
	Added Kind = "ADDED"
	// Removed means the path exists only in the first document.
	Removed Kind = "REMOVED"
	// Changed means the path exists in both documents with different values
	// or different node kinds.
	Changed Kind = "CHANGED"
)

// DiffEntry is one difference between two documents.
type DiffEntry struct {
	Path document.Path
	Kind Kind

	// Before is the value in the first document; nil for Added.
	Before *document.Node
	// After is the value in the second document; nil for Removed.
	After *document.Node
}

// String renders the entry on one line.
func (e DiffEntry) String() string {
	switch e.Kind {
	case Added:
		return fmt.Sprintf("%s %s: %s", e.Kind, e.Path, compact(e.After))
	case Removed:
		return fmt.Sprintf("%s %s: %s", e.Kind, e.Path, compact(e.Before))
	default:
		return fmt.Sprintf("%s %s: %s -> %s", e.Kind, e.Path, compact(e.Before), compact(e.After))
	}
}

// Compare returns the structural differences from a to b.
//
// Mappings are compared by key, so key order never produces an entry.
// Sequences are compared by index; trailing elements of the longer one are
// reported whole as Added or Removed. Entries are ordered depth-first,
// parents before children, following the key order of a and then the keys
// only present in b.
func Compare(a, b *document.Node) []DiffEntry {
	var c comparison
	c.walk(nil, a, b)
	return c.entries
}

// FileComparison is the outcome of CompareFiles. A and B are kept for
// writers that render the documents themselves, such as the unified format.
type FileComparison struct {
	PathA, PathB string
	A, B         *document.Node
	Entries      []DiffEntry
}

// Write writes the comparison to w in format.
func (c *FileComparison) Write(w io.Writer, format Format) error {
	return Write(w, format, c.A, c.B, c.Entries, c.PathA, c.PathB)
}

// CompareFiles reads both documents through r and compares them.
func CompareFiles(r store.Reader, pathA, pathB string) (*FileComparison, error) {
	a, err := r.ReadDocument(pathA)
	if err != nil {
		return nil, err
	}
	b, err := r.ReadDocument(pathB)
	if err != nil {
		return nil, err
	}
	return &FileComparison{PathA: pathA, PathB: pathB, A: a, B: b, Entries: Compare(a, b)}, nil
}

// Counts returns the number of entries per kind.
func Counts(entries []DiffEntry) map[string]int {
	counts := map[string]int{string(Added): 0, string(Removed): 0, string(Changed): 0}
	for _, e := range entries {
		counts[string(e.Kind)]++
	}
	return counts
}

type comparison struct {
	entries []DiffEntry
}

func (c *comparison) add(path document.Path, kind Kind, before, after *document.Node) {
	c.entries = append(c.entries, DiffEntry{Path: path, Kind: kind, Before: before, After: after})
}

func (c *comparison) walk(path document.Path, a, b *document.Node) {
	switch {
	case a.IsMapping() && b.IsMapping():
		c.mapping(path, a, b)
	case a.IsSequence() && b.IsSequence():
		c.sequence(path, a, b)
	case !document.Equal(a, b):
		c.add(path, Changed, a, b)
	}
}

func (c *comparison) mapping(path document.Path, a, b *document.Node) {
	for _, pair := range a.Pairs() {
		bv, ok := b.Get(pair.Key)
		if !ok {
			c.add(path.Key(pair.Key), Removed, pair.Value, nil)
			continue
		}
		c.walk(path.Key(pair.Key), pair.Value, bv)
	}
	for _, pair := range b.Pairs() {
		if !a.Has(pair.Key) {
			c.add(path.Key(pair.Key), Added, nil, pair.Value)
		}
	}
}

func (c *comparison) sequence(path document.Path, a, b *document.Node) {
	ai, bi := a.Items(), b.Items()
	n := min(len(ai), len(bi))
	for i := 0; i < n; i++ {
		c.walk(path.Index(i), ai[i], bi[i])
	}
	for i := n; i < len(ai); i++ {
		c.add(path.Index(i), Removed, ai[i], nil)
	}
	for i := n; i < len(bi); i++ {
		c.add(path.Index(i), Added, nil, bi[i])
	}
}

func compact(n *document.Node) string {
	if n == nil {
		return "undefined"
	}
	data, err := n.MarshalJSON()
	if err != nil {
		return n.Text()
	}
	return string(data)
}
