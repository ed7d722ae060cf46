package store

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tmobile/percy-cake-sub002/pkg/document"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestFileStore(maxSize int64) *FileStore {
	return NewFileStore(maxSize, slog.New(slog.DiscardHandler))
}

func TestFileStore_ReadDocument(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "app.yaml"), "a: 1\n")
	writeFile(t, filepath.Join(dir, ".percyrc"), `{"variablePrefix": "${"}`)

	s := newTestFileStore(0)

	doc, err := s.ReadDocument(filepath.Join(dir, "app.yaml"))
	if err != nil {
		t.Fatalf("ReadDocument() error = %v", err)
	}
	if v, _ := doc.Get("a"); v.Text() != "1" {
		t.Errorf("a = %q, want 1", v.Text())
	}

	rc, err := s.ReadDocument(filepath.Join(dir, ".percyrc"))
	if err != nil {
		t.Fatalf("ReadDocument(.percyrc) error = %v", err)
	}
	if v, _ := rc.Get("variablePrefix"); v.Text() != "${" {
		t.Errorf("variablePrefix = %q", v.Text())
	}
}

func TestFileStore_ReadDocumentErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "big.yaml"), "a: "+strings.Repeat("x", 100)+"\n")
	writeFile(t, filepath.Join(dir, "bad.yaml"), "a: [1, 2\n")
	writeFile(t, filepath.Join(dir, "latin1.yaml"), "a: \xff\xfe\n")

	s := newTestFileStore(64)

	tests := []struct {
		name    string
		path    string
		wantMsg string
		parse   bool
	}{
		{"missing", filepath.Join(dir, "missing.yaml"), "file not found", false},
		{"directory", dir, "not a regular file", false},
		{"too large", filepath.Join(dir, "big.yaml"), "exceeds maximum", false},
		{"invalid utf8", filepath.Join(dir, "latin1.yaml"), "invalid UTF-8", false},
		{"malformed", filepath.Join(dir, "bad.yaml"), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ReadDocument(tt.path)
			if err == nil {
				t.Fatal("ReadDocument() error = nil")
			}
			if tt.parse {
				var perr *document.ParseError
				if !errors.As(err, &perr) {
					t.Errorf("error = %T, want *document.ParseError", err)
				}
				return
			}
			var lerr *LoadError
			if !errors.As(err, &lerr) {
				t.Fatalf("error = %T, want *LoadError", err)
			}
			if !strings.Contains(lerr.Message, tt.wantMsg) {
				t.Errorf("Message = %q, want it to contain %q", lerr.Message, tt.wantMsg)
			}
		})
	}
}

func TestFileStore_ListDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.yaml"), "")
	writeFile(t, filepath.Join(dir, "a.yaml"), "")
	writeFile(t, filepath.Join(dir, "sub", "c.yaml"), "")
	if err := os.Symlink(filepath.Join(dir, "sub"), filepath.Join(dir, "link")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	if err := os.Symlink(filepath.Join(dir, "nowhere"), filepath.Join(dir, "broken")); err != nil {
		t.Fatal(err)
	}

	entries, err := newTestFileStore(0).ListDirectory(dir)
	if err != nil {
		t.Fatalf("ListDirectory() error = %v", err)
	}

	want := []Entry{{"a.yaml", false}, {"b.yaml", false}, {"link", true}, {"sub", true}}
	if len(entries) != len(want) {
		t.Fatalf("ListDirectory() = %v, want %v", entries, want)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entry %d = %v, want %v", i, entries[i], want[i])
		}
	}

	_, err = newTestFileStore(0).ListDirectory(filepath.Join(dir, "missing"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ListDirectory(missing) error = %v, want fs.ErrNotExist", err)
	}
}

func TestFileStore_Exists(t *testing.T) {
	dir := t.TempDir()
	s := newTestFileStore(0)

	if ok, err := s.Exists(dir); !ok || err != nil {
		t.Errorf("Exists(dir) = %v, %v", ok, err)
	}
	if ok, err := s.Exists(filepath.Join(dir, "nope")); ok || err != nil {
		t.Errorf("Exists(missing) = %v, %v", ok, err)
	}
}

func TestFileStore_WriteDocument(t *testing.T) {
	dir := t.TempDir()
	s := newTestFileStore(0)
	doc := document.MustParseYAML("b: 2\na: [1, x]\n")

	jsonPath := filepath.Join(dir, "out", "dev", "app.json")
	if err := s.WriteDocument(jsonPath, doc); err != nil {
		t.Fatalf("WriteDocument() error = %v", err)
	}
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	want := "{\n  \"b\": 2,\n  \"a\": [\n    1,\n    \"x\"\n  ]\n}\n"
	if string(data) != want {
		t.Errorf("json output =\n%s\nwant\n%s", data, want)
	}

	yamlPath := filepath.Join(dir, "out", "dev", "app.yaml")
	if err := s.WriteDocument(yamlPath, doc); err != nil {
		t.Fatalf("WriteDocument() error = %v", err)
	}
	back, err := s.ReadDocument(yamlPath)
	if err != nil {
		t.Fatal(err)
	}
	if !document.Equal(back, doc) {
		t.Error("yaml round trip changed the document")
	}

	// No temp files are left behind.
	entries, _ := os.ReadDir(filepath.Join(dir, "out", "dev"))
	if len(entries) != 2 {
		t.Errorf("output dir has %d entries, want 2", len(entries))
	}
}
