package document

import (
	"errors"
	"strings"
	"testing"
)

func TestParseYAML_PreservesKeyOrder(t *testing.T) {
	n, err := ParseYAML([]byte("zeta: 1\nalpha: 2\nmid: 3\n"), "order.yaml")
	if err != nil {
		t.Fatalf("ParseYAML() error = %v", err)
	}

	got := strings.Join(n.Keys(), ",")
	if got != "zeta,alpha,mid" {
		t.Errorf("Keys() = %q, want %q", got, "zeta,alpha,mid")
	}
}

func TestParseYAML_ScalarTypes(t *testing.T) {
	n := MustParseYAML(`
str: hello
quoted: "42"
int: 42
hex: 0x10
float: 1.5
bool: true
null_value: null
tilde: ~
`)

	tests := []struct {
		key  string
		want ScalarType
	}{
		{"str", StringType},
		{"quoted", StringType},
		{"int", IntType},
		{"hex", IntType},
		{"float", FloatType},
		{"bool", BoolType},
		{"null_value", NullType},
		{"tilde", NullType},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			v, ok := n.Get(tt.key)
			if !ok {
				t.Fatalf("Get(%q) missing", tt.key)
			}
			if v.ScalarType() != tt.want {
				t.Errorf("ScalarType() = %s, want %s", v.ScalarType(), tt.want)
			}
		})
	}

	if v, _ := n.Get("hex"); v.Text() != "16" {
		t.Errorf("hex Text() = %q, want %q", v.Text(), "16")
	}
}

func TestParseYAML_AnchorsAndMergeKeys(t *testing.T) {
	n := MustParseYAML(`
base: &base
  host: localhost
  port: 80
service:
  <<: *base
  port: 8080
list: [*base]
`)

	svc, _ := n.Get("service")
	if got := strings.Join(svc.Keys(), ","); got != "host,port" {
		t.Errorf("service keys = %q, want %q", got, "host,port")
	}
	port, _ := svc.Get("port")
	if i, _ := port.IntValue(); i != 8080 {
		t.Errorf("service.port = %d, want 8080 (explicit key wins over merge)", i)
	}

	list, _ := n.Get("list")
	first, ok := list.Index(0)
	if !ok || !first.IsMapping() {
		t.Fatalf("list[0] = %v, want mapping from alias", first)
	}
}

func TestParseYAML_DuplicateKey(t *testing.T) {
	_, err := ParseYAML([]byte("a: 1\nb: 2\na: 3\n"), "dup.yaml")
	if err == nil {
		t.Fatal("ParseYAML() error = nil, want duplicate key error")
	}

	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("error type = %T, want *ParseError", err)
	}
	if perr.Line != 3 {
		t.Errorf("ParseError.Line = %d, want 3", perr.Line)
	}
	if !strings.Contains(perr.Message, `duplicate key "a"`) {
		t.Errorf("ParseError.Message = %q, want duplicate key", perr.Message)
	}
	if !strings.Contains(perr.Snippet, "->") {
		t.Errorf("ParseError.Snippet = %q, want line marker", perr.Snippet)
	}
}

func TestParseYAML_Malformed(t *testing.T) {
	_, err := ParseYAML([]byte("a: [1, 2\nb: c\n"), "bad.yaml")

	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("error type = %T, want *ParseError", err)
	}
	if perr.File != "bad.yaml" {
		t.Errorf("ParseError.File = %q, want %q", perr.File, "bad.yaml")
	}
	if perr.Cause == nil {
		t.Error("ParseError.Cause = nil, want decoder error")
	}
}

func TestParseYAML_Empty(t *testing.T) {
	n, err := ParseYAML(nil, "empty.yaml")
	if err != nil {
		t.Fatalf("ParseYAML() error = %v", err)
	}
	if !n.IsNull() {
		t.Errorf("empty document = %s, want null", n.Kind())
	}
}

func TestParseYAML_Locations(t *testing.T) {
	n, err := ParseYAML([]byte("a:\n  b: x\n"), "loc.yaml")
	if err != nil {
		t.Fatalf("ParseYAML() error = %v", err)
	}
	b, _ := n.Lookup(Path{{Key: "a"}, {Key: "b"}})
	if got := b.Location().String(); got != "loc.yaml:2:6" {
		t.Errorf("Location() = %q, want %q", got, "loc.yaml:2:6")
	}
}

func TestEncodeYAML_RoundTrip(t *testing.T) {
	src := MustParseYAML(`
name: shop
replicas: 3
ratio: 2.0
flag: "true"
tags: [a, b]
nested:
  z: null
  y: 1
`)

	out, err := EncodeYAML(src)
	if err != nil {
		t.Fatalf("EncodeYAML() error = %v", err)
	}

	back, err := ParseYAML(out, "")
	if err != nil {
		t.Fatalf("ParseYAML(encoded) error = %v\n%s", err, out)
	}
	if !Equal(src, back) {
		t.Errorf("round trip changed document:\n%s", out)
	}
	if !strings.HasPrefix(string(out), "name: shop\n") {
		t.Errorf("EncodeYAML() did not keep key order:\n%s", out)
	}
}
