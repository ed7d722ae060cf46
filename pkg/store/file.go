package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"unicode/utf8"

	"github.com/tmobile/percy-cake-sub002/pkg/config"
	"github.com/tmobile/percy-cake-sub002/pkg/document"
)

// FileStore reads and writes documents on the local file system.
type FileStore struct {
	maxFileSize int64
	logger      *slog.Logger
}

// NewFileStore creates a file system store. Files larger than maxFileSize
// are rejected; zero uses config.DefaultMaxFileSize.
func NewFileStore(maxFileSize int64, logger *slog.Logger) *FileStore {
	if maxFileSize <= 0 {
		maxFileSize = config.DefaultMaxFileSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

// ReadDocument loads a single document. It performs file size validation,
// UTF-8 validation and parsing.
func (s *FileStore) ReadDocument(path string) (*document.Node, error) {
	data, err := s.readFile(path)
	if err != nil {
		return nil, err
	}

	doc, err := document.Parse(data, path, document.FormatForPath(path))
	if err != nil {
		return nil, err
	}

	s.logger.Debug("read document", "path", path, "bytes", len(data))
	return doc, nil
}

func (s *FileStore) readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, &LoadError{Path: path, Message: "file not found", Cause: err}
		case errors.Is(err, fs.ErrPermission):
			return nil, &LoadError{Path: path, Message: "permission denied", Cause: err}
		}
		return nil, &LoadError{Path: path, Message: "failed to access file", Cause: err}
	}

	if !info.Mode().IsRegular() {
		return nil, &LoadError{Path: path, Message: "not a regular file"}
	}

	if info.Size() > s.maxFileSize {
		return nil, &LoadError{
			Path:    path,
			Message: fmt.Sprintf("file size %d bytes exceeds maximum %d bytes", info.Size(), s.maxFileSize),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "failed to read file", Cause: err}
	}

	if !utf8.Valid(data) {
		return nil, &LoadError{Path: path, Message: "file contains invalid UTF-8 encoding"}
	}
	return data, nil
}

// ListDirectory returns the entries of dir sorted by name. Symbolic links
// are followed to decide whether an entry is a directory; broken links are
// skipped.
func (s *FileStore) ListDirectory(dir string) ([]Entry, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &LoadError{Path: dir, Message: "directory not found", Cause: err}
		}
		return nil, &LoadError{Path: dir, Message: "failed to read directory", Cause: err}
	}

	entries := make([]Entry, 0, len(des))
	for _, de := range des {
		isDir := de.IsDir()
		if de.Type()&fs.ModeSymlink != 0 {
			info, err := os.Stat(filepath.Join(dir, de.Name()))
			if err != nil {
				s.logger.Warn("skipping unresolvable symlink",
					"path", filepath.Join(dir, de.Name()),
					"error", err,
				)
				continue
			}
			isDir = info.IsDir()
		}
		entries = append(entries, Entry{Name: de.Name(), IsDir: isDir})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Exists reports whether path exists.
func (s *FileStore) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, &LoadError{Path: path, Message: "failed to access path", Cause: err}
}

// WriteDocument encodes doc and replaces path atomically: the data is
// written to a temporary file in the same directory and renamed over the
// target.
func (s *FileStore) WriteDocument(path string, doc *document.Node) error {
	data, err := document.Encode(doc, document.FormatForPath(path))
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}

	s.logger.Debug("wrote document", "path", path, "bytes", len(data))
	return nil
}
