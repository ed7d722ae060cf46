package store

import (
	"fmt"

	"github.com/tmobile/percy-cake-sub002/pkg/document"
)

// Entry is one child of a directory.
type Entry struct {
	Name  string
	IsDir bool
}

// Reader reads documents and enumerates directories.
type Reader interface {
	// ReadDocument reads and parses the document at path. The format is
	// chosen from the file name. Parse failures are *document.ParseError.
	ReadDocument(path string) (*document.Node, error)

	// ListDirectory returns the children of a directory sorted by name.
	ListDirectory(path string) ([]Entry, error)

	// Exists reports whether path names a file or directory.
	Exists(path string) (bool, error)
}

// Writer persists documents.
type Writer interface {
	// WriteDocument encodes doc in the format implied by path and writes it,
	// creating parent directories as needed.
	WriteDocument(path string, doc *document.Node) error
}

// Store is the file I/O boundary used by the hydrator.
type Store interface {
	Reader
	Writer
}

// LoadError represents an error that occurred while accessing a file or
// directory, such as a missing file, a size limit or invalid encoding.
type LoadError struct {
	// Path is the file or directory that failed
	Path string

	// Message describes the error
	Message string

	// Cause is the underlying error, if any
	Cause error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load %q: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load %q: %s", e.Path, e.Message)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *LoadError) Unwrap() error {
	return e.Cause
}
