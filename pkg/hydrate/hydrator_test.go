package hydrate

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/tmobile/percy-cake-sub002/pkg/config"
	"github.com/tmobile/percy-cake-sub002/pkg/document"
	"github.com/tmobile/percy-cake-sub002/pkg/store"
	"github.com/tmobile/percy-cake-sub002/pkg/variables"
)

func newTestHydrator(t *testing.T, st store.Store, opts ...Option) *Hydrator {
	t.Helper()
	cfg := config.DefaultConfig().Hydration
	if st == nil {
		st = store.NewMemoryStore()
	}
	h, err := New(&cfg, st, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return h
}

func newTestApplication(t *testing.T, src string, envs ...string) *Application {
	t.Helper()
	app, err := NewApplication("app", document.MustParseYAML(src), envs)
	if err != nil {
		t.Fatalf("NewApplication() error = %v", err)
	}
	return app
}

func hydrateEnv(t *testing.T, h *Hydrator, app *Application, env string) *EnvironmentResult {
	t.Helper()
	res, err := h.HydrateApplication(app, app.Percy)
	if err != nil {
		t.Fatalf("HydrateApplication() error = %v", err)
	}
	er, ok := res.Environment(env)
	if !ok {
		t.Fatalf("no result for environment %q", env)
	}
	return er
}

func assertDocument(t *testing.T, got *document.Node, want string) {
	t.Helper()
	if !document.Equal(got, document.MustParseYAML(want)) {
		out, _ := document.EncodeYAML(got)
		t.Errorf("document =\n%s\nwant\n%s", out, want)
	}
}

func TestHydrateApplication_MergeOverride(t *testing.T) {
	h := newTestHydrator(t, nil)
	app := newTestApplication(t, `
default: {a: 1, b: {c: 2}}
environments:
  dev: {b: {c: 3, d: 4}}
`, "dev")

	er := hydrateEnv(t, h, app, "dev")
	assertDocument(t, er.Document, `{a: 1, b: {c: 3, d: 4}}`)
}

func TestHydrateApplication_VariableResolution(t *testing.T) {
	h := newTestHydrator(t, nil)
	app := newTestApplication(t, `{host: "prod.example.com", url: "_{ $host }_/api"}`)

	er := hydrateEnv(t, h, app, DefaultEnvironment)
	assertDocument(t, er.Document, `{host: "prod.example.com", url: "prod.example.com/api"}`)
}

func TestHydrateApplication_DefaultOverlayAppliesToEveryEnvironment(t *testing.T) {
	h := newTestHydrator(t, nil)
	app := newTestApplication(t, `
default:
  region: none
  size: small
  tags: {team: core}
environments:
  default:
    region: us-east
  dev:
    size: tiny
  prod:
    region: us-west
    tags: {tier: gold}
`, "dev", "prod")

	assertDocument(t, hydrateEnv(t, h, app, "dev").Document,
		`{region: us-east, size: tiny, tags: {team: core}}`)
	assertDocument(t, hydrateEnv(t, h, app, "prod").Document,
		`{region: us-west, size: small, tags: {team: core, tier: gold}}`)
}

func TestHydrateApplication_DefaultMergedIntoOverlayBeforeBase(t *testing.T) {
	h := newTestHydrator(t, nil)
	// The default overlay turns k into a scalar, the dev overlay turns it
	// back into a mapping. Merging the overlays first means dev's mapping
	// is then merged with the base mapping.
	app := newTestApplication(t, `
default:
  k: {a: 1}
environments:
  default: {k: flat}
  dev: {k: {b: 2}}
`, "dev")

	assertDocument(t, hydrateEnv(t, h, app, "dev").Document, `{k: {a: 1, b: 2}}`)
}

func TestHydrateApplication_Inherits(t *testing.T) {
	h := newTestHydrator(t, nil)
	app := newTestApplication(t, `
default:
  replicas: 1
  log: info
  name: "svc-_{ $env }_"
environments:
  default: {log: warn}
  prod: {replicas: 3}
  staging:
    inherits: prod
    log: debug
  dr:
    inherits: staging
`, "prod", "staging", "dr")

	assertDocument(t, hydrateEnv(t, h, app, "prod").Document, `{replicas: 3, log: warn, name: svc-prod}`)
	assertDocument(t, hydrateEnv(t, h, app, "staging").Document, `{replicas: 3, log: debug, name: svc-staging}`)
	assertDocument(t, hydrateEnv(t, h, app, "dr").Document, `{replicas: 3, log: debug, name: svc-dr}`)
}

func TestHydrateApplication_InheritanceErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		envs    []string
		wantErr string
	}{
		{
			name: "cycle",
			src: `
default: {a: 1}
environments:
  a: {inherits: b}
  b: {inherits: c}
  c: {inherits: a}
`,
			envs:    []string{"a", "b", "c"},
			wantErr: "cyclic env inherits detected: a -> b -> c -> a",
		},
		{
			name: "self",
			src: `
default: {a: 1}
environments:
  a: {inherits: a}
`,
			envs:    []string{"a"},
			wantErr: "cyclic env inherits detected: a -> a",
		},
		{
			name: "unknown parent",
			src: `
default: {a: 1}
environments:
  a: {inherits: nowhere}
`,
			envs:    []string{"a"},
			wantErr: "inherits unknown environment nowhere",
		},
		{
			name: "parent not a string",
			src: `
default: {a: 1}
environments:
  a: {inherits: [b]}
`,
			envs:    []string{"a"},
			wantErr: "inherits must name an environment",
		},
	}

	h := newTestHydrator(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApplication(t, tt.src, tt.envs...)
			_, err := h.HydrateApplication(app, app.Percy)

			var ierr *InheritanceError
			if !errors.As(err, &ierr) {
				t.Fatalf("HydrateApplication() error = %v, want *InheritanceError", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestHydrateApplication_StrictOverlay(t *testing.T) {
	h := newTestHydrator(t, nil)
	app := newTestApplication(t, `
default: {db: {host: h, port: 5432}}
environments:
  qat: {db: {user: admin}}
`, "qat")

	// Lenient by default.
	assertDocument(t, hydrateEnv(t, h, app, "qat").Document, `{db: {host: h, port: 5432, user: admin}}`)

	pc := app.Percy
	pc.StrictOverlay = true
	_, err := h.HydrateApplication(app, pc)

	var oerr *OverlayError
	if !errors.As(err, &oerr) {
		t.Fatalf("HydrateApplication() error = %v, want *OverlayError", err)
	}
	if oerr.Path != "db.user" || oerr.Environment != "qat" {
		t.Errorf("OverlayError = %+v", oerr)
	}
}

func TestHydrateApplication_NoEnvironmentsProducesDefault(t *testing.T) {
	h := newTestHydrator(t, nil)
	app := newTestApplication(t, `{default: {a: "_{ $env }_"}}`)

	res, err := h.HydrateApplication(app, app.Percy)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Environments) != 1 || res.Environments[0].Environment != DefaultEnvironment {
		t.Fatalf("Environments = %+v, want only default", res.Environments)
	}
	assertDocument(t, res.Environments[0].Document, `{a: default}`)
}

func TestHydrateApplication_DeclarationOrder(t *testing.T) {
	h := newTestHydrator(t, nil)
	app := newTestApplication(t, `{default: {a: 1}}`, "prod", "dev", "qat")

	res, err := h.HydrateApplication(app, app.Percy)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, e := range res.Environments {
		got = append(got, e.Environment)
	}
	if want := []string{"prod", "dev", "qat"}; !reflect.DeepEqual(got, want) {
		t.Errorf("environments = %v, want %v", got, want)
	}
	if len(res.Documents()) != 3 {
		t.Errorf("Documents() = %d entries, want 3", len(res.Documents()))
	}
}

func TestHydrateApplication_VariablesAcrossOverlay(t *testing.T) {
	h := newTestHydrator(t, nil)
	app := newTestApplication(t, `
default:
  $host: localhost
  url: "http://_{ $host }_:_{ $port }_"
  $port: 8080
environments:
  prod:
    $host: prod.example.com
`, "dev", "prod")

	assertDocument(t, hydrateEnv(t, h, app, "dev").Document, `{url: "http://localhost:8080"}`)
	assertDocument(t, hydrateEnv(t, h, app, "prod").Document, `{url: "http://prod.example.com:8080"}`)
}

func TestHydrateApplication_CycleAndUnresolved(t *testing.T) {
	h := newTestHydrator(t, nil)
	app := newTestApplication(t, `{a: "_{ $b }_", b: "_{ $a }_", c: ok, d: "_{ $c }_!", x: "_{ $missing }_"}`)

	er := hydrateEnv(t, h, app, DefaultEnvironment)

	if len(er.Errors) != 2 {
		t.Errorf("Errors = %v, want 2", er.Errors)
	}
	var cyc *variables.CyclicReferenceError
	if len(er.Errors) > 0 && !errors.As(er.Errors[0], &cyc) {
		t.Errorf("error type = %T", er.Errors[0])
	}
	if len(er.Warnings) != 1 {
		t.Errorf("Warnings = %v, want exactly 1", er.Warnings)
	}
	if d, _ := er.Document.Get("d"); d.Text() != "ok!" {
		t.Errorf("d = %q, want %q", d.Text(), "ok!")
	}
}

func TestHydrateApplication_Idempotent(t *testing.T) {
	h := newTestHydrator(t, nil)
	app := newTestApplication(t, `
default:
  $domain: example.com
  host: "api._{ $domain }_"
  url: "https://_{ $host }_/_{ $env }_"
  ports: [80, 443]
environments:
  prod: {ports: [443]}
`, "prod")

	first := hydrateEnv(t, h, app, "prod").Document

	again, err := NewApplication("again", first, nil)
	if err != nil {
		t.Fatal(err)
	}
	second := hydrateEnv(t, h, again, DefaultEnvironment).Document

	if !document.Equal(first, second) {
		a, _ := document.EncodeJSON(first)
		b, _ := document.EncodeJSON(second)
		t.Errorf("hydrating the output changed it:\n%s\nvs\n%s", a, b)
	}
	firstJSON, _ := document.EncodeJSON(first)
	secondJSON, _ := document.EncodeJSON(second)
	if string(firstJSON) != string(secondJSON) {
		t.Error("re-hydrated output is not byte-identical")
	}
}

func TestHydrateApplication_Deterministic(t *testing.T) {
	h := newTestHydrator(t, nil)
	src := `
default: {b: "_{ $a }_", a: x, c: {d: "_{ $b }_"}}
environments:
  dev: {c: {e: 1}}
`
	var outputs []string
	for i := 0; i < 5; i++ {
		app := newTestApplication(t, src, "dev")
		data, err := document.EncodeJSON(hydrateEnv(t, h, app, "dev").Document)
		if err != nil {
			t.Fatal(err)
		}
		outputs = append(outputs, string(data))
	}
	for _, o := range outputs[1:] {
		if o != outputs[0] {
			t.Fatalf("outputs differ:\n%s\nvs\n%s", outputs[0], o)
		}
	}
}

func TestNewApplication_Formats(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		overlays int
		percy    bool
		wantErr  bool
	}{
		{"percy with environments", `{default: {a: 1}, environments: {dev: {a: 2}, qat: null}}`, 2, true, false},
		{"percy without environments", `{default: {a: 1}}`, 0, true, false},
		{"plain mapping", `{a: 1, environments: {}}`, 0, false, false},
		{"plain sequence", `[1, 2]`, 0, false, false},
		{"default not a mapping", `{default: [1]}`, 0, true, true},
		{"environments not a mapping", `{default: {}, environments: [dev]}`, 0, true, true},
		{"overlay not a mapping", `{default: {}, environments: {dev: 1}}`, 0, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := document.MustParseYAML(tt.src)
			if got := isPercyDocument(doc); got != tt.percy {
				t.Errorf("isPercyDocument() = %v, want %v", got, tt.percy)
			}
			app, err := NewApplication("x", doc, nil)
			if tt.wantErr {
				var perr *document.ParseError
				if !errors.As(err, &perr) {
					t.Errorf("NewApplication() error = %v, want *document.ParseError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewApplication() error = %v", err)
			}
			if len(app.Overlays) != tt.overlays {
				t.Errorf("Overlays = %d, want %d", len(app.Overlays), tt.overlays)
			}
		})
	}
}

func TestParseEnvironments(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		want    []string
		wantErr bool
	}{
		{"sequence", `[dev, qat]`, []string{"dev", "qat"}, false},
		{"environments sequence", `{environments: [dev, prod]}`, []string{"dev", "prod"}, false},
		{"environments mapping", `{default: {}, environments: {dev: {}, qat: {inherits: dev}}}`, []string{"dev", "qat"}, false},
		{"empty", `{environments: null}`, nil, false},
		{"missing key", `{envs: [dev]}`, nil, true},
		{"scalar", `dev`, nil, true},
		{"non-string name", `[dev, 1.5]`, nil, true},
		{"duplicate", `[dev, dev]`, nil, true},
		{"parent directory", `[dev, "../../escaped"]`, nil, true},
		{"dot", `["."]`, nil, true},
		{"dot dot", `[".."]`, nil, true},
		{"slash in mapping key", `{environments: {"team/dev": {}}}`, nil, true},
		{"backslash", `['qa\prod']`, nil, true},
		{"empty mapping key", `{environments: {"": {}}}`, nil, true},
		{"dotted name", `[dev.eu]`, []string{"dev.eu"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseEnvironments(document.MustParseYAML(tt.src))
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseEnvironments() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseEnvironments() = %v, want %v", got, tt.want)
			}
		})
	}
}
