package document

import "testing"

func TestParsePath(t *testing.T) {
	tests := []struct {
		input   string
		want    Path
		wantErr bool
	}{
		{input: "a", want: Path{{Key: "a"}}},
		{input: "a.b.c", want: Path{{Key: "a"}, {Key: "b"}, {Key: "c"}}},
		{input: "a[0].b", want: Path{{Key: "a"}, {Index: 0, IsIndex: true}, {Key: "b"}}},
		{input: "a.0", want: Path{{Key: "a"}, {Key: "0"}}},
		{input: `a["x.y"].z`, want: Path{{Key: "a"}, {Key: "x.y"}, {Key: "z"}}},
		{input: " host ", want: Path{{Key: "host"}}},
		{input: "", wantErr: true},
		{input: "a..b", wantErr: true},
		{input: "a.", wantErr: true},
		{input: "a[x]", wantErr: true},
		{input: "a[1", wantErr: true},
		{input: "a[0]b", wantErr: true},
		{input: "a[", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParsePath(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestPath_String(t *testing.T) {
	tests := []struct {
		path Path
		want string
	}{
		{nil, "(root)"},
		{Path{}.Key("a").Key("b"), "a.b"},
		{Path{}.Key("items").Index(2).Key("name"), "items[2].name"},
		{Path{}.Key("a").Key("x.y"), `a["x.y"]`},
	}

	for _, tt := range tests {
		if got := tt.path.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestPath_KeyDoesNotAlias(t *testing.T) {
	base := make(Path, 0, 4).Key("a")
	x := base.Key("x")
	y := base.Key("y")

	if x.String() != "a.x" || y.String() != "a.y" {
		t.Errorf("extending a shared prefix aliased: x=%s y=%s", x, y)
	}
}

func TestPath_StringRoundTrip(t *testing.T) {
	p := Path{}.Key("a").Key("x.y").Index(3).Key("z")
	back, err := ParsePath(p.String())
	if err != nil {
		t.Fatalf("ParsePath(%q) error = %v", p.String(), err)
	}
	if !back.Equal(p) {
		t.Errorf("round trip = %v, want %v", back, p)
	}
}
