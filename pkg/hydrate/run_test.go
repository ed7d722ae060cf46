package hydrate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tmobile/percy-cake-sub002/pkg/config"
	"github.com/tmobile/percy-cake-sub002/pkg/document"
	"github.com/tmobile/percy-cake-sub002/pkg/store"
	"github.com/tmobile/percy-cake-sub002/pkg/telemetry/logging"
	"github.com/tmobile/percy-cake-sub002/pkg/telemetry/metrics"
	"github.com/tmobile/percy-cake-sub002/pkg/telemetry/tracing"
)

var runFixture = map[string]string{
	"environments.yaml": "[dev, prod]\n",
	"api.yaml": `
default:
  $host: example.com
  url: "https://_{ $host }_/_{ $env }_"
environments:
  prod:
    $host: prod.example.com
`,
	"broken.yaml": "default: {a: [1\n",
	"svc/loop.yaml": `
a: "_{ b }_"
b: "_{ a }_"
c: "_{ missing }_"
d: fine
`,
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func readOutput(t *testing.T, path string) gjson.Result {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !gjson.ValidBytes(data) {
		t.Fatalf("output %s is not valid JSON:\n%s", path, data)
	}
	return gjson.ParseBytes(data)
}

func countMessages(t *testing.T, buf *bytes.Buffer, msg string) []map[string]any {
	t.Helper()
	var found []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("log line is not JSON: %q", line)
		}
		if rec["msg"] == msg {
			found = append(found, rec)
		}
	}
	return found
}

type fakeRecorder struct {
	mu      sync.Mutex
	reports []*Report
	err     error
}

func (f *fakeRecorder) RecordRun(_ context.Context, r *Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, r)
	return f.err
}

func TestHydrateAllApps(t *testing.T) {
	in := filepath.Join(t.TempDir(), "in")
	out := filepath.Join(t.TempDir(), "out")
	writeTree(t, in, runFixture)

	var logs bytes.Buffer
	logger, err := logging.New(logging.Config{Level: "debug", Format: "json", Writer: &logs})
	if err != nil {
		t.Fatal(err)
	}
	collector := metrics.NewCollector(&config.MetricsConfig{Namespace: "test"}, nil)
	recorder := &fakeRecorder{}

	h := newTestHydrator(t, store.NewFileStore(0, logger.Slog()),
		WithLogger(logger.Slog()),
		WithMetrics(collector),
		WithHistory(recorder),
	)

	report, err := h.HydrateAllApps(context.Background(), in, out)
	if err != nil {
		t.Fatalf("HydrateAllApps() error = %v", err)
	}

	t.Run("statuses", func(t *testing.T) {
		want := map[string]Status{"api": StatusSucceeded, "broken": StatusFailed, "svc/loop": StatusPartial}
		if len(report.Applications) != len(want) {
			t.Fatalf("applications = %d, want %d", len(report.Applications), len(want))
		}
		for name, status := range want {
			ar, ok := report.Application(name)
			if !ok {
				t.Errorf("no report for %s", name)
				continue
			}
			if ar.Status != status {
				t.Errorf("%s status = %s, want %s (errors %v)", name, ar.Status, status, ar.Errors)
			}
		}
		if report.Status() != StatusFailed {
			t.Errorf("run status = %s, want failed", report.Status())
		}
	})

	t.Run("isolated failures", func(t *testing.T) {
		broken, _ := report.Application("broken")
		var perr *document.ParseError
		if len(broken.Errors) != 1 || !errors.As(broken.Errors[0], &perr) {
			t.Errorf("broken errors = %v, want one *document.ParseError", broken.Errors)
		}

		var list *ErrorList
		if !errors.As(report.Err(), &list) || len(list.Errors) != 2 {
			t.Fatalf("report.Err() = %v, want 2 errors", report.Err())
		}
		var ae *ApplicationError
		if !errors.As(list.Errors[0], &ae) || ae.Application != "broken" {
			t.Errorf("first error = %v, want broken application", list.Errors[0])
		}
	})

	t.Run("outputs", func(t *testing.T) {
		dev := readOutput(t, filepath.Join(out, "dev", "api.json"))
		if got := dev.Get("url").String(); got != "https://example.com/dev" {
			t.Errorf("dev url = %q", got)
		}
		if n := len(dev.Map()); n != 1 {
			t.Errorf("dev output has %d keys, want 1 (variable keys stripped): %s", n, dev.Raw)
		}

		prod := readOutput(t, filepath.Join(out, "prod", "api.json"))
		if got := prod.Get("url").String(); got != "https://prod.example.com/prod" {
			t.Errorf("prod url = %q", got)
		}

		loop := readOutput(t, filepath.Join(out, "svc", "default", "loop.json"))
		if got := loop.Get("a").String(); got != "_{ b }_" {
			t.Errorf("loop a = %q, want original text", got)
		}
		if got := loop.Get("c").String(); got != "_{ missing }_" {
			t.Errorf("loop c = %q, want unresolved text", got)
		}
		if got := loop.Get("d").String(); got != "fine" {
			t.Errorf("loop d = %q", got)
		}

		if _, err := os.Stat(filepath.Join(out, "default", "broken.json")); !os.IsNotExist(err) {
			t.Errorf("failed application produced output: %v", err)
		}
	})

	t.Run("warnings are logged once", func(t *testing.T) {
		if report.Warnings() != 1 {
			t.Errorf("report warnings = %d, want 1", report.Warnings())
		}
		recs := countMessages(t, &logs, "unresolved variable reference")
		if len(recs) != 1 {
			t.Fatalf("unresolved warnings logged = %d, want 1", len(recs))
		}
		rec := recs[0]
		if rec["application"] != "svc/loop" || rec["path"] != "c" || rec["reference"] != "_{ missing }_" {
			t.Errorf("warning record = %v", rec)
		}
		if rec["run_id"] != report.RunID {
			t.Errorf("run_id = %v, want %s", rec["run_id"], report.RunID)
		}
	})

	t.Run("metrics", func(t *testing.T) {
		expected := `
# HELP test_hydration_applications_total Total number of applications hydrated
# TYPE test_hydration_applications_total counter
test_hydration_applications_total{status="failed"} 1
test_hydration_applications_total{status="partial"} 1
test_hydration_applications_total{status="succeeded"} 1
# HELP test_hydration_environments_total Total number of environment documents produced
# TYPE test_hydration_environments_total counter
test_hydration_environments_total 3
# HELP test_hydration_runs_total Total number of hydration runs
# TYPE test_hydration_runs_total counter
test_hydration_runs_total{status="failed"} 1
`
		err := testutil.GatherAndCompare(collector.Registry(), strings.NewReader(expected),
			"test_hydration_applications_total",
			"test_hydration_environments_total",
			"test_hydration_runs_total",
		)
		if err != nil {
			t.Error(err)
		}
	})

	t.Run("history", func(t *testing.T) {
		if len(recorder.reports) != 1 || recorder.reports[0] != report {
			t.Errorf("recorded reports = %v, want the run report", recorder.reports)
		}
		if report.RunID == "" {
			t.Error("run ID not set")
		}
	})
}

func TestHydrateAllApps_MissingInput(t *testing.T) {
	h := newTestHydrator(t, nil)

	report, err := h.HydrateAllApps(context.Background(), "missing", "out")
	var derr *DiscoveryError
	if !errors.As(err, &derr) {
		t.Fatalf("error = %v, want *DiscoveryError", err)
	}
	if report != nil {
		t.Errorf("report = %v, want nil", report)
	}
}

func TestHydrateAllApps_Concurrency(t *testing.T) {
	st := store.NewMemoryStore()
	var want []string
	for i := range 20 {
		name := fmt.Sprintf("app%02d", i)
		want = append(want, name)
		st.SetFile("in/"+name+".yaml", fmt.Sprintf("{id: %d, label: \"_{ id }_-_{ $env }_\"}", i))
	}

	cfg := config.DefaultConfig().Hydration
	cfg.Concurrency = 3
	h, err := New(&cfg, st)
	if err != nil {
		t.Fatal(err)
	}

	report, err := h.HydrateAllApps(context.Background(), "in", "out")
	if err != nil {
		t.Fatal(err)
	}
	if err := report.Err(); err != nil {
		t.Fatalf("report.Err() = %v", err)
	}

	var got []string
	for _, ar := range report.Applications {
		got = append(got, ar.Application)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("applications = %v, want sorted %v", got, want)
	}

	doc, err := st.ReadDocument("out/default/app07.json")
	if err != nil {
		t.Fatal(err)
	}
	assertDocument(t, doc, `{id: 7, label: "7-default"}`)
}

func TestHydrateAllApps_Cancelled(t *testing.T) {
	st := fixtureStore(map[string]string{"in/a.yaml": "a: 1", "in/b.yaml": "b: 1"})
	recorder := &fakeRecorder{}
	h := newTestHydrator(t, st, WithHistory(recorder))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := h.HydrateAllApps(ctx, "in", "out")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if report == nil || len(report.Applications) != 0 {
		t.Errorf("report = %+v, want no hydrated applications", report)
	}
	if _, ok := st.File("out/default/a.json"); ok {
		t.Error("cancelled run wrote output")
	}
	if len(recorder.reports) != 0 {
		t.Error("cancelled run was recorded")
	}
}

func TestHydrateAllApps_HistoryFailureIsNotFatal(t *testing.T) {
	st := fixtureStore(map[string]string{"in/a.yaml": "a: 1"})
	h := newTestHydrator(t, st, WithHistory(&fakeRecorder{err: errors.New("disk full")}))

	report, err := h.HydrateAllApps(context.Background(), "in", "out")
	if err != nil {
		t.Fatalf("HydrateAllApps() error = %v", err)
	}
	if report.Status() != StatusSucceeded {
		t.Errorf("status = %s, want succeeded", report.Status())
	}
}

func TestHydrateAllApps_DuplicateNameFailsLaterFile(t *testing.T) {
	st := fixtureStore(map[string]string{
		"in/api.yaml": "who: yaml",
		"in/api.yml":  "who: yml",
	})
	h := newTestHydrator(t, st)

	report, err := h.HydrateAllApps(context.Background(), "in", "out")
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Applications) != 2 || report.Count(StatusFailed) != 1 || report.Count(StatusSucceeded) != 1 {
		t.Fatalf("applications = %+v, want one succeeded and one failed", report.Applications)
	}
	if report.Err() == nil {
		t.Error("report.Err() = nil, want the duplicate application")
	}
	doc, err := st.ReadDocument("out/default/api.json")
	if err != nil {
		t.Fatal(err)
	}
	assertDocument(t, doc, `{who: yaml}`)
}

func TestHydrateAllApps_EnvironmentNameCannotEscapeOutput(t *testing.T) {
	st := fixtureStore(map[string]string{
		"in/environments.yaml": `["../../escaped"]`,
		"in/api.yaml":          "a: 1",
	})
	h := newTestHydrator(t, st)

	report, err := h.HydrateAllApps(context.Background(), "in", "out")
	if err != nil {
		t.Fatal(err)
	}
	ar, ok := report.Application("api")
	if !ok || ar.Status != StatusFailed {
		t.Fatalf("report = %+v, want api failed", report.Applications)
	}
	var perr *document.ParseError
	if !errors.As(report.Err(), &perr) {
		t.Errorf("report.Err() = %v, want *document.ParseError", report.Err())
	}
	for _, f := range st.Files() {
		if !strings.HasPrefix(f, "in/") {
			t.Errorf("unexpected file written: %s", f)
		}
	}
}

func TestHydrateDirectory(t *testing.T) {
	st := fixtureStore(map[string]string{
		"in/svc/environments.yaml": "[dev]",
		"in/svc/api.yaml":          "default: {a: 1}\nenvironments: {dev: {a: 2}}",
		"in/svc/sub/skipped.yaml":  "a: 1",
	})
	h := newTestHydrator(t, st)

	report, err := h.HydrateDirectory(context.Background(), "in/svc", "out")
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Applications) != 1 {
		t.Fatalf("applications = %d, want 1", len(report.Applications))
	}
	doc, err := st.ReadDocument("out/svc/dev/api.json")
	if err != nil {
		t.Fatal(err)
	}
	assertDocument(t, doc, `{a: 2}`)
}

func TestHydrateFile(t *testing.T) {
	st := fixtureStore(map[string]string{
		"in/environments.yaml": "[qat]",
		"in/app.yaml":          "default: {name: \"app-_{ $env }_\"}",
	})
	h := newTestHydrator(t, st)

	report, err := h.HydrateFile(context.Background(), "in/app.yaml", "out")
	if err != nil {
		t.Fatal(err)
	}
	if report.Status() != StatusSucceeded {
		t.Fatalf("status = %s, errors %v", report.Status(), report.Err())
	}
	doc, err := st.ReadDocument("out/qat/app.json")
	if err != nil {
		t.Fatal(err)
	}
	assertDocument(t, doc, `{name: app-qat}`)
}

func TestHydrateFile_Missing(t *testing.T) {
	h := newTestHydrator(t, nil)

	report, err := h.HydrateFile(context.Background(), "in/app.yaml", "out")
	if err != nil {
		t.Fatal(err)
	}
	ar, ok := report.Application("app")
	if !ok || ar.Status != StatusFailed {
		t.Fatalf("report = %+v, want failed app", report.Applications)
	}
	var lerr *store.LoadError
	if !errors.As(report.Err(), &lerr) {
		t.Errorf("report.Err() = %v, want *store.LoadError", report.Err())
	}
}

func TestOutputPath(t *testing.T) {
	cfg := config.DefaultConfig().Hydration
	cfg.OutputFormat = "yaml"
	h, err := New(&cfg, store.NewMemoryStore())
	if err != nil {
		t.Fatal(err)
	}
	app := &Application{Name: "svc/deep/api", RelDir: "svc/deep"}

	got := h.OutputPath("out", app, "prod")
	want := filepath.Join("out", "svc", "deep", "prod", "api.yaml")
	if got != want {
		t.Errorf("OutputPath() = %q, want %q", got, want)
	}
}

func TestNew_InvalidOutputFormat(t *testing.T) {
	cfg := config.DefaultConfig().Hydration
	cfg.OutputFormat = "toml"
	if _, err := New(&cfg, store.NewMemoryStore()); err == nil {
		t.Error("New() accepted an unsupported output format")
	}
}

type fakeProgress struct {
	total    int64
	updates  []int64
	errs     []error
	finished bool
}

func (p *fakeProgress) Start(total int64)    { p.total = total }
func (p *fakeProgress) Update(current int64) { p.updates = append(p.updates, current) }
func (p *fakeProgress) Error(err error)      { p.errs = append(p.errs, err) }
func (p *fakeProgress) Finish()              { p.finished = true }

func TestHydrateAllApps_Progress(t *testing.T) {
	st := store.NewMemoryStore()
	for i := range 4 {
		st.SetFile(fmt.Sprintf("in/app%d.yaml", i), "{a: 1}")
	}
	st.SetFile("in/environments.yaml", "[a, b]")
	st.SetFile("in/loop.yaml", "default: {x: 1}\nenvironments: {a: {inherits: b}, b: {inherits: a}}")

	progress := &fakeProgress{}
	cfg := config.DefaultConfig().Hydration
	cfg.Concurrency = 2
	h, err := New(&cfg, st, WithProgress(progress))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.HydrateAllApps(context.Background(), "in", "out"); err != nil {
		t.Fatal(err)
	}

	if progress.total != 5 {
		t.Errorf("total = %d, want 5", progress.total)
	}
	want := []int64{1, 2, 3, 4, 5}
	if !reflect.DeepEqual(progress.updates, want) {
		t.Errorf("updates = %v, want %v", progress.updates, want)
	}
	if !progress.finished {
		t.Error("Finish was not called")
	}
	var ierr *InheritanceError
	if len(progress.errs) != 1 || !errors.As(progress.errs[0], &ierr) {
		t.Errorf("errors = %v, want the loop application's InheritanceError", progress.errs)
	}
}

func TestHydrateAllApps_Spans(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tracer, err := tracing.New(&config.TracingConfig{
		Enabled:     true,
		Sampler:     tracing.SamplerAlways,
		ServiceName: "percy-test",
	}, tracing.WithExporter(exp))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = tracer.Shutdown(context.Background()) })

	st := fixtureStore(map[string]string{
		"in/environments.yaml": "[dev, prod]",
		"in/api.yaml":          "{a: 1}",
		"in/loop.yaml":         "default: {x: 1}\nenvironments: {dev: {inherits: prod}, prod: {inherits: dev}}",
	})
	h := newTestHydrator(t, st, WithTracer(tracer))

	report, err := h.HydrateAllApps(context.Background(), "in", "out")
	if err != nil {
		t.Fatal(err)
	}

	spans := exp.GetSpans()
	byName := make(map[string][]tracetest.SpanStub)
	for _, s := range spans {
		byName[s.Name] = append(byName[s.Name], s)
	}
	if len(byName["hydrate.run"]) != 1 || len(byName["hydrate.application"]) != 2 || len(byName["hydrate.environment"]) != 2 {
		t.Fatalf("span counts = run %d, application %d, environment %d; want 1, 2, 2",
			len(byName["hydrate.run"]), len(byName["hydrate.application"]), len(byName["hydrate.environment"]))
	}

	run := byName["hydrate.run"][0]
	if got := spanAttr(run, tracing.AttrRunID); got != report.RunID {
		t.Errorf("run span %s = %q, want %q", tracing.AttrRunID, got, report.RunID)
	}
	if run.Status.Code != codes.Error {
		t.Errorf("run span status = %v, want Error", run.Status.Code)
	}
	for _, s := range spans {
		if s.SpanContext.TraceID() != run.SpanContext.TraceID() {
			t.Errorf("span %s is in trace %s, want %s", s.Name, s.SpanContext.TraceID(), run.SpanContext.TraceID())
		}
	}

	apps := make(map[string]tracetest.SpanStub)
	for _, s := range byName["hydrate.application"] {
		if s.Parent.SpanID() != run.SpanContext.SpanID() {
			t.Errorf("application span parent = %s, want the run span", s.Parent.SpanID())
		}
		apps[spanAttr(s, tracing.AttrApplication)] = s
	}
	if apps["api"].Status.Code != codes.Ok {
		t.Errorf("api span status = %v, want Ok", apps["api"].Status.Code)
	}
	if apps["loop"].Status.Code != codes.Error || len(apps["loop"].Events) == 0 {
		t.Errorf("loop span status = %v with %d events, want a recorded error", apps["loop"].Status.Code, len(apps["loop"].Events))
	}

	var envs []string
	for _, s := range byName["hydrate.environment"] {
		if s.Parent.SpanID() != apps["api"].SpanContext.SpanID() {
			t.Errorf("environment span parent = %s, want the api span", s.Parent.SpanID())
		}
		envs = append(envs, spanAttr(s, tracing.AttrEnvironment))
	}
	sort.Strings(envs)
	if !reflect.DeepEqual(envs, []string{"dev", "prod"}) {
		t.Errorf("environment spans = %v, want [dev prod]", envs)
	}
}

func spanAttr(s tracetest.SpanStub, key string) string {
	for _, kv := range s.Attributes {
		if string(kv.Key) == key {
			return kv.Value.Emit()
		}
	}
	return ""
}
