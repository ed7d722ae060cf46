package store

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/tmobile/percy-cake-sub002/pkg/document"
)

// MemoryStore is an in-memory store for tests and embedding. Directories
// exist implicitly whenever a file lies beneath them. It is safe for
// concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string][]byte)}
}

func clean(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}

// SetFile stores raw file content at path.
func (s *MemoryStore) SetFile(path, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[clean(path)] = []byte(content)
}

// File returns the raw content stored at path.
func (s *MemoryStore) File(path string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.files[clean(path)]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, true
}

// Files returns every stored file path, sorted.
func (s *MemoryStore) Files() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	paths := make([]string, 0, len(s.files))
	for p := range s.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// ReadDocument parses the document stored at path.
func (s *MemoryStore) ReadDocument(path string) (*document.Node, error) {
	data, ok := s.File(path)
	if !ok {
		return nil, &LoadError{Path: path, Message: "file not found", Cause: fs.ErrNotExist}
	}
	return document.Parse(data, path, document.FormatForPath(path))
}

// ListDirectory returns the direct children of dir.
func (s *MemoryStore) ListDirectory(dir string) ([]Entry, error) {
	dir = clean(dir)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.files[dir]; ok {
		return nil, &LoadError{Path: dir, Message: "not a directory"}
	}

	prefix := dir + "/"
	if dir == "." {
		prefix = ""
	}

	seen := make(map[string]bool)
	var entries []Entry
	for p := range s.files {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := p[len(prefix):]
		name, _, nested := strings.Cut(rest, "/")
		if seen[name] {
			continue
		}
		seen[name] = true
		entries = append(entries, Entry{Name: name, IsDir: nested})
	}

	if len(entries) == 0 {
		return nil, &LoadError{Path: dir, Message: "directory not found", Cause: fs.ErrNotExist}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Exists reports whether path is a stored file or an implied directory.
func (s *MemoryStore) Exists(path string) (bool, error) {
	path = clean(path)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.files[path]; ok {
		return true, nil
	}
	if path == "." {
		return len(s.files) > 0, nil
	}
	for p := range s.files {
		if strings.HasPrefix(p, path+"/") {
			return true, nil
		}
	}
	return false, nil
}

// WriteDocument encodes doc in the format implied by path and stores it.
func (s *MemoryStore) WriteDocument(path string, doc *document.Node) error {
	data, err := document.Encode(doc, document.FormatForPath(path))
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[clean(path)] = data
	return nil
}
