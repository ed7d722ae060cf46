package document

import (
	"errors"
	"strings"
	"testing"
)

func TestEncodeJSON_KeyOrderAndIndent(t *testing.T) {
	n := MustParseYAML(`
b: 1
a:
  url: "http://x/?a=1&b=<2>"
  list: [1, 2.5, true, null]
`)

	out, err := EncodeJSON(n)
	if err != nil {
		t.Fatalf("EncodeJSON() error = %v", err)
	}

	want := `{
  "b": 1,
  "a": {
    "url": "http://x/?a=1&b=<2>",
    "list": [
      1,
      2.5,
      true,
      null
    ]
  }
}
`
	if string(out) != want {
		t.Errorf("EncodeJSON() =\n%s\nwant\n%s", out, want)
	}
}

func TestEncodeJSON_Deterministic(t *testing.T) {
	n := MustParseYAML("z: 1\ny: [a, {q: 1, p: 2}]\nx: s\n")

	first, err := EncodeJSON(n)
	if err != nil {
		t.Fatalf("EncodeJSON() error = %v", err)
	}
	for i := 0; i < 10; i++ {
		again, _ := EncodeJSON(n)
		if string(again) != string(first) {
			t.Fatalf("EncodeJSON() output differs between calls:\n%s\n%s", first, again)
		}
	}
}

func TestEncodeJSON_RejectsNonFinite(t *testing.T) {
	n := MustParseYAML("x: .inf\n")
	if _, err := EncodeJSON(n); err == nil {
		t.Error("EncodeJSON(.inf) error = nil, want error")
	}
}

func TestParseJSON(t *testing.T) {
	n, err := ParseJSON([]byte(`{"variablePrefix": "{{", "n": 3, "f": 1e3, "nested": {"b": [1, "x"], "a": false}}`), ".percyrc")
	if err != nil {
		t.Fatalf("ParseJSON() error = %v", err)
	}

	if got := strings.Join(n.Keys(), ","); got != "variablePrefix,n,f,nested" {
		t.Errorf("Keys() = %q", got)
	}
	if v, _ := n.Get("n"); v.ScalarType() != IntType {
		t.Errorf("n type = %s, want int", v.ScalarType())
	}
	if v, _ := n.Get("f"); v.ScalarType() != FloatType {
		t.Errorf("f type = %s, want float", v.ScalarType())
	}
	nested, _ := n.Get("nested")
	if got := strings.Join(nested.Keys(), ","); got != "b,a" {
		t.Errorf("nested keys = %q, want %q", got, "b,a")
	}
}

func TestParseJSON_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"syntax", "{\n  \"a\": 1,\n  \"b\" 2\n}", "invalid JSON"},
		{"duplicate", `{"a": 1, "a": 2}`, "duplicate key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJSON([]byte(tt.input), "x.json")
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("error = %v, want *ParseError", err)
			}
			if !strings.Contains(perr.Message, tt.want) {
				t.Errorf("Message = %q, want to contain %q", perr.Message, tt.want)
			}
		})
	}
}

func TestJSONAndYAMLAgree(t *testing.T) {
	y := MustParseYAML("a: 1\nb: [x, {c: true}]\n")
	j, err := ParseJSON([]byte(`{"b": ["x", {"c": true}], "a": 1}`), "")
	if err != nil {
		t.Fatalf("ParseJSON() error = %v", err)
	}
	if !Equal(y, j) {
		t.Error("Equal(yaml, json) = false, want true")
	}
}
