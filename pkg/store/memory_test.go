package store

import (
	"errors"
	"io/fs"
	"sync"
	"testing"

	"github.com/tmobile/percy-cake-sub002/pkg/document"
)

func TestMemoryStore_ListDirectory(t *testing.T) {
	s := NewMemoryStore()
	s.SetFile("root/app.yaml", "a: 1")
	s.SetFile("root/environments.yaml", "environments: [dev]")
	s.SetFile("root/svc/api.yaml", "b: 2")
	s.SetFile("other/x.yaml", "c: 3")

	entries, err := s.ListDirectory("root")
	if err != nil {
		t.Fatalf("ListDirectory() error = %v", err)
	}
	want := []Entry{{"app.yaml", false}, {"environments.yaml", false}, {"svc", true}}
	if len(entries) != len(want) {
		t.Fatalf("ListDirectory() = %v, want %v", entries, want)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entry %d = %v, want %v", i, entries[i], want[i])
		}
	}

	top, err := s.ListDirectory(".")
	if err != nil || len(top) != 2 {
		t.Errorf("ListDirectory(.) = %v, %v", top, err)
	}

	if _, err := s.ListDirectory("missing"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ListDirectory(missing) error = %v, want fs.ErrNotExist", err)
	}
	if _, err := s.ListDirectory("root/app.yaml"); err == nil {
		t.Error("ListDirectory(file) error = nil")
	}
}

func TestMemoryStore_Exists(t *testing.T) {
	s := NewMemoryStore()
	s.SetFile("a/b/c.yaml", "")

	for path, want := range map[string]bool{
		"a":          true,
		"a/b":        true,
		"a/b/c.yaml": true,
		"a/b/c":      false,
		"ab":         false,
		"./a/../a/b": true,
	} {
		if got, _ := s.Exists(path); got != want {
			t.Errorf("Exists(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestMemoryStore_ReadWrite(t *testing.T) {
	s := NewMemoryStore()
	doc := document.MustParseYAML("x: 1")

	if err := s.WriteDocument("out/app.json", doc); err != nil {
		t.Fatalf("WriteDocument() error = %v", err)
	}
	raw, ok := s.File("out/app.json")
	if !ok || string(raw) != "{\n  \"x\": 1\n}\n" {
		t.Errorf("File() = %q, %v", raw, ok)
	}

	back, err := s.ReadDocument("out/app.json")
	if err != nil {
		t.Fatalf("ReadDocument() error = %v", err)
	}
	if !document.Equal(back, doc) {
		t.Error("round trip changed the document")
	}

	s.SetFile("bad.yaml", "a: [")
	var perr *document.ParseError
	if _, err := s.ReadDocument("bad.yaml"); !errors.As(err, &perr) {
		t.Errorf("ReadDocument(bad) error = %v, want ParseError", err)
	}
}

func TestMemoryStore_Concurrent(t *testing.T) {
	s := NewMemoryStore()
	doc := document.MustParseYAML("x: 1")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.WriteDocument("out/"+string(rune('a'+i))+".yaml", doc)
			_, _ = s.ListDirectory("out")
		}(i)
	}
	wg.Wait()

	if got := len(s.Files()); got != 16 {
		t.Errorf("Files() = %d, want 16", got)
	}
}
