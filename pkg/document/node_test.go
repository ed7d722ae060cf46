package document

import (
	"strings"
	"testing"
)

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"identical", "a: 1", "a: 1", true},
		{"key order ignored", "a: 1\nb: 2", "b: 2\na: 1", true},
		{"sequence order matters", "[1, 2]", "[2, 1]", false},
		{"int vs float", "a: 1", "a: 1.0", false},
		{"int vs string", "a: 1", "a: '1'", false},
		{"missing key", "a: 1\nb: 2", "a: 1", false},
		{"nested", "a: {b: [x, {c: null}]}", "a: {b: [x, {c: ~}]}", true},
		{"mapping vs scalar", "a: {b: 1}", "a: b", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(MustParseYAML(tt.a), MustParseYAML(tt.b)); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNode_Lookup(t *testing.T) {
	n := MustParseYAML(`
server:
  hosts:
    - name: a
    - name: b
  "1": one
`)

	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"server.hosts[1].name", "b", true},
		{"server.hosts.0.name", "a", true},
		{"server.1", "one", true},
		{"server.hosts[2].name", "", false},
		{"server.missing", "", false},
		{"server.hosts.x", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			p, err := ParsePath(tt.path)
			if err != nil {
				t.Fatalf("ParsePath(%q) error = %v", tt.path, err)
			}
			v, ok := n.Lookup(p)
			if ok != tt.ok {
				t.Fatalf("Lookup(%q) ok = %v, want %v", tt.path, ok, tt.ok)
			}
			if ok && v.Text() != tt.want {
				t.Errorf("Lookup(%q) = %q, want %q", tt.path, v.Text(), tt.want)
			}
		})
	}
}

func TestNode_LocateConcretePath(t *testing.T) {
	n := MustParseYAML("servers:\n  - host: a\n  - host: b\n")
	p, err := ParsePath("servers.1.host")
	if err != nil {
		t.Fatal(err)
	}

	v, concrete, ok := n.Locate(p)
	if !ok {
		t.Fatal("Locate() ok = false")
	}
	if v.Text() != "b" {
		t.Errorf("Locate() value = %q, want %q", v.Text(), "b")
	}
	if got := concrete.String(); got != "servers[1].host" {
		t.Errorf("Locate() path = %q, want %q", got, "servers[1].host")
	}
}

func TestMappingBuilder_SetKeepsPosition(t *testing.T) {
	b := NewMappingBuilder(3)
	b.Set("a", NewInt(1))
	b.Set("b", NewInt(2))
	b.Set("a", NewInt(3))
	n := b.Build()

	if got := strings.Join(n.Keys(), ","); got != "a,b" {
		t.Errorf("Keys() = %q, want %q", got, "a,b")
	}
	if v, _ := n.Get("a"); v.Text() != "3" {
		t.Errorf("a = %q, want 3", v.Text())
	}
}

func TestNode_WithoutKeys(t *testing.T) {
	n := MustParseYAML("$host: x\nname: y\n$port: 1\n")
	out := n.WithoutKeys(func(k string) bool { return strings.HasPrefix(k, "$") })

	if got := strings.Join(out.Keys(), ","); got != "name" {
		t.Errorf("Keys() = %q, want %q", got, "name")
	}
	if n.Len() != 3 {
		t.Errorf("original Len() = %d, want 3 (must not be modified)", n.Len())
	}
}

func TestCanonical(t *testing.T) {
	n := MustParseYAML("b: {d: 1, c: 2}\na: [{z: 1, y: 2}]\n")
	c := Canonical(n)

	out, err := EncodeJSON(c)
	if err != nil {
		t.Fatalf("EncodeJSON() error = %v", err)
	}
	compact := strings.Join(strings.Fields(string(out)), "")
	want := `{"a":[{"y":2,"z":1}],"b":{"c":2,"d":1}}`
	if compact != want {
		t.Errorf("Canonical() = %s, want %s", compact, want)
	}
	if !Equal(n, c) {
		t.Error("Canonical() changed the value")
	}
}

func TestText(t *testing.T) {
	tests := []struct {
		node *Node
		want string
	}{
		{NewString("x"), "x"},
		{NewInt(-4), "-4"},
		{NewFloat(1.5), "1.5"},
		{NewFloat(3), "3"},
		{NewBool(false), "false"},
		{NewNull(), "null"},
		{NewMapping(), ""},
	}
	for _, tt := range tests {
		if got := tt.node.Text(); got != tt.want {
			t.Errorf("Text() = %q, want %q", got, tt.want)
		}
	}
}
