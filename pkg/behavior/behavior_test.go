package behavior

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/vango-dev/behave/internal/errors"
	"github.com/vango-dev/behave/pkg/dom"
	"github.com/vango-dev/behave/pkg/once"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/net/html"
)

type testSettings struct {
	Highlight struct {
		Class string
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRegistry(t *testing.T, opts ...Option) (*Registry[testSettings], *ErrorCollector) {
	t.Helper()
	collector := &ErrorCollector{}
	opts = append([]Option{WithLogger(quietLogger()), WithReporter(collector)}, opts...)
	return NewRegistry[testSettings](opts...), collector
}

func parseFragment(t *testing.T, markup string) *html.Node {
	t.Helper()
	nodes, err := dom.ParseFragmentString(markup, nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	root := dom.Div(dom.ID("fragment"))
	dom.Append(root, nodes...)
	return root
}

func render(t *testing.T, n *html.Node) string {
	t.Helper()
	return dom.MustRenderString(n)
}

// highlight selects .todo elements not yet processed and adds a class.
var highlight = AttachFunc[testSettings](func(root *html.Node, s testSettings) error {
	class := s.Highlight.Class
	if class == "" {
		class = "highlighted"
	}
	for _, n := range once.Select("highlight", root, ".todo") {
		dom.AddClass(n, class)
	}
	return nil
})

// widget inserts a sibling after every .field and tears it down on
// unload or move.
var widget = Funcs[testSettings]{
	AttachFn: func(root *html.Node, _ testSettings) error {
		for _, n := range once.Select("widget", root, ".field") {
			dom.InsertAfter(n, dom.Span(dom.Class("widget")))
		}
		return nil
	},
	DetachFn: func(root *html.Node, _ testSettings, reason Reason) error {
		if !reason.ClearsMarkers() {
			return nil
		}
		for _, n := range once.Remove("widget", root, ".field") {
			if next := n.NextSibling; next != nil && dom.HasClass(next, "widget") {
				dom.Detach(next)
			}
		}
		return nil
	},
}

func TestHighlightScenario(t *testing.T) {
	reg, collector := newTestRegistry(t)
	reg.MustRegister("highlight", highlight)

	ctx := context.Background()
	fragment := parseFragment(t, `<div class="todo">A</div><div class="todo">B</div>`)

	reg.AttachAll(ctx, fragment, testSettings{})
	todos := dom.QueryAll(fragment, ".todo")
	for _, n := range todos {
		if !dom.HasClass(n, "highlighted") {
			t.Errorf("%q not highlighted after first pass", dom.TextContent(n))
		}
	}
	afterFirst := render(t, fragment)

	reg.AttachAll(ctx, fragment, testSettings{})
	if got := render(t, fragment); got != afterFirst {
		t.Errorf("second pass changed the DOM:\n%s\nwas:\n%s", got, afterFirst)
	}

	c := dom.Div(dom.Class("todo"), "C")
	dom.Append(fragment, c)
	reg.AttachAll(ctx, fragment, testSettings{})

	if !dom.HasClass(c, "highlighted") {
		t.Error("C not highlighted after third pass")
	}
	if got := strings.Count(render(t, fragment), "highlighted"); got != 3 {
		t.Errorf("highlighted count = %d, want 3", got)
	}
	if collector.Len() != 0 {
		t.Errorf("unexpected failures: %v", collector.Err())
	}
}

func TestIdempotentWithInsertedElements(t *testing.T) {
	reg, _ := newTestRegistry(t)
	reg.MustRegister("widget", widget)

	root := parseFragment(t, `<input class="field"><input class="field">`)
	ctx := context.Background()

	reg.AttachAll(ctx, root, testSettings{})
	first := render(t, root)
	reg.AttachAll(ctx, root, testSettings{})

	if got := render(t, root); got != first {
		t.Errorf("double attach inserted duplicates:\n%s", got)
	}
	if got := len(dom.QueryAll(root, ".widget")); got != 2 {
		t.Errorf("widgets = %d, want 2", got)
	}
}

func TestAttachScopedToRoot(t *testing.T) {
	reg, _ := newTestRegistry(t)
	reg.MustRegister("highlight", highlight)

	doc := parseFragment(t, `<div class="todo" id="a">A</div><section><div class="todo" id="b">B</div></section>`)
	a := dom.Query(doc, "#a")
	b := dom.Query(doc, "#b")

	reg.AttachAll(context.Background(), dom.Query(doc, "section"), testSettings{})

	if !dom.HasClass(b, "highlighted") || !once.Has(b, "highlight") {
		t.Error("B inside root was not augmented")
	}
	if dom.HasClass(a, "highlighted") || once.Has(a, "highlight") {
		t.Error("A outside root was touched")
	}
}

func TestAttachOrderPreserved(t *testing.T) {
	reg, collector := newTestRegistry(t)

	reg.MustRegister("x", AttachFunc[testSettings](func(root *html.Node, _ testSettings) error {
		for _, n := range once.Select("x", root, ".item") {
			dom.AddClass(n, "x-done")
		}
		return nil
	}))
	reg.MustRegister("y", AttachFunc[testSettings](func(root *html.Node, _ testSettings) error {
		for _, n := range once.Select("y", root, ".item") {
			if !dom.HasClass(n, "x-done") {
				return fmt.Errorf("y ran before x on %s", render(t, n))
			}
			dom.AddClass(n, "y-done")
		}
		return nil
	}))

	root := parseFragment(t, `<p class="item"></p><p class="item"></p>`)
	reg.AttachAll(context.Background(), root, testSettings{})

	if collector.Len() != 0 {
		t.Fatalf("order violated: %v", collector.Err())
	}
	if got := len(dom.QueryAll(root, ".y-done")); got != 2 {
		t.Errorf("y-done = %d, want 2", got)
	}
	if names := reg.Names(); strings.Join(names, ",") != "x,y" {
		t.Errorf("Names() = %v", names)
	}
}

func TestFailureIsolation(t *testing.T) {
	tests := []struct {
		name     string
		broken   AttachFunc[testSettings]
		wantCode string
	}{
		{
			name: "returned error",
			broken: func(*html.Node, testSettings) error {
				return fmt.Errorf("map library failed to load")
			},
			wantCode: "E110",
		},
		{
			name: "panic",
			broken: func(*html.Node, testSettings) error {
				var m map[string]int
				m["boom"]++
				return nil
			},
			wantCode: "E112",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, collector := newTestRegistry(t)
			mark := func(class string) AttachFunc[testSettings] {
				return func(root *html.Node, _ testSettings) error {
					for _, n := range once.Select(class, root, "p") {
						dom.AddClass(n, class)
					}
					return nil
				}
			}
			reg.MustRegister("first", mark("first"))
			reg.MustRegister("broken", tt.broken)
			reg.MustRegister("third", mark("third"))

			root := parseFragment(t, `<p></p>`)
			reg.AttachAll(context.Background(), root, testSettings{})

			p := dom.Query(root, "p")
			if !dom.HasClass(p, "first", "third") {
				t.Errorf("surrounding behaviors did not run: %s", render(t, p))
			}

			failures := collector.Failures()
			if len(failures) != 1 {
				t.Fatalf("failures = %d, want 1", len(failures))
			}
			f := failures[0]
			if f.Behavior != "broken" || f.Phase != PhaseAttach {
				t.Errorf("failure = %+v", f)
			}
			if !errors.HasCode(f.Err, tt.wantCode) {
				t.Errorf("failure code = %q, want %s", errors.CodeOf(f.Err), tt.wantCode)
			}
			if collector.Err() == nil {
				t.Error("collector.Err() should not be nil")
			}
		})
	}
}

func TestDetachRoundTrip(t *testing.T) {
	ctx := context.Background()
	markup := `<input class="field" id="a"><input class="field" id="b">`

	single := parseFragment(t, markup)
	reg, collector := newTestRegistry(t)
	reg.MustRegister("widget", widget)
	reg.AttachAll(ctx, single, testSettings{})
	want := render(t, single)

	t.Run("unload", func(t *testing.T) {
		root := parseFragment(t, markup)
		reg.AttachAll(ctx, root, testSettings{})
		reg.DetachAll(ctx, root, testSettings{}, ReasonUnload)

		if got := len(dom.QueryAll(root, ".widget")); got != 0 {
			t.Errorf("widgets after unload = %d, want 0", got)
		}
		if got := len(once.Find("widget", root, ".field")); got != 0 {
			t.Errorf("markers after unload = %d, want 0", got)
		}

		reg.AttachAll(ctx, root, testSettings{})
		if got := render(t, root); got != want {
			t.Errorf("round trip mismatch:\n%s\nwant:\n%s", got, want)
		}
	})

	t.Run("serialize", func(t *testing.T) {
		root := parseFragment(t, markup)
		reg.AttachAll(ctx, root, testSettings{})
		reg.DetachAll(ctx, root, testSettings{}, ReasonSerialize)
		reg.AttachAll(ctx, root, testSettings{})

		if got := render(t, root); got != want {
			t.Errorf("serialize then attach double augmented:\n%s", got)
		}
	})

	if collector.Len() != 0 {
		t.Errorf("unexpected failures: %v", collector.Err())
	}
}

func TestDetachReverseOrder(t *testing.T) {
	reg, _ := newTestRegistry(t)
	var calls []string
	record := func(name string) Funcs[testSettings] {
		return Funcs[testSettings]{
			AttachFn: func(*html.Node, testSettings) error {
				calls = append(calls, "attach:"+name)
				return nil
			},
			DetachFn: func(_ *html.Node, _ testSettings, reason Reason) error {
				calls = append(calls, "detach:"+name+":"+string(reason))
				return nil
			},
		}
	}
	reg.MustRegister("a", record("a"))
	reg.MustRegister("attach-only", highlight)
	reg.MustRegister("b", record("b"))

	root := parseFragment(t, `<p></p>`)
	reg.AttachAll(context.Background(), root, testSettings{})
	reg.DetachAll(context.Background(), root, testSettings{}, ReasonMove)

	want := "attach:a,attach:b,detach:b:move,detach:a:move"
	if got := strings.Join(calls, ","); got != want {
		t.Errorf("calls = %s\nwant    %s", got, want)
	}
}

func TestDetachFailureIsolated(t *testing.T) {
	reg, collector := newTestRegistry(t)
	ran := false
	reg.MustRegister("survivor", Funcs[testSettings]{
		DetachFn: func(*html.Node, testSettings, Reason) error {
			ran = true
			return nil
		},
	})
	reg.MustRegister("broken", Funcs[testSettings]{
		DetachFn: func(*html.Node, testSettings, Reason) error {
			return fmt.Errorf("editor gone")
		},
	})

	reg.DetachAll(context.Background(), dom.Div(), testSettings{}, ReasonUnload)

	if !ran {
		t.Error("earlier-registered detacher should still run")
	}
	failures := collector.Failures()
	if len(failures) != 1 || !errors.HasCode(failures[0].Err, "E111") {
		t.Fatalf("failures = %+v", failures)
	}
	if failures[0].Reason != ReasonUnload {
		t.Errorf("reason = %q, want unload", failures[0].Reason)
	}
}

func TestDetachUnknownReason(t *testing.T) {
	reg, collector := newTestRegistry(t)
	ran := false
	reg.MustRegister("d", Funcs[testSettings]{
		DetachFn: func(*html.Node, testSettings, Reason) error {
			ran = true
			return nil
		},
	})

	reg.DetachAll(context.Background(), dom.Div(), testSettings{}, Reason("explode"))

	if ran {
		t.Error("no behavior should run for an unknown reason")
	}
	failures := collector.Failures()
	if len(failures) != 1 || !errors.HasCode(failures[0].Err, "E102") {
		t.Errorf("failures = %+v", failures)
	}
}

func TestRegister(t *testing.T) {
	reg, _ := newTestRegistry(t)

	if err := reg.Register("highlight", highlight); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.Register("highlight", highlight); err != nil {
		t.Errorf("identical re-registration should be a no-op, got %v", err)
	}
	if err := reg.Register("widget", widget); err != nil {
		t.Fatalf("Register widget: %v", err)
	}
	if err := reg.Register("widget", widget); err != nil {
		t.Errorf("identical Funcs re-registration should be a no-op, got %v", err)
	}

	other := AttachFunc[testSettings](func(*html.Node, testSettings) error { return nil })
	err := reg.Register("highlight", other)
	if !errors.HasCode(err, "E100") {
		t.Errorf("conflict err = %v, want E100", err)
	}
	got, _ := reg.Lookup("highlight")
	if !sameBehavior(got, highlight) {
		t.Error("first registration should be retained")
	}

	if err := reg.Register("", highlight); !errors.HasCode(err, "E101") {
		t.Errorf("empty name err = %v, want E101", err)
	}
	var nilFunc AttachFunc[testSettings]
	if err := reg.Register("nil", nilFunc); !errors.HasCode(err, "E101") {
		t.Errorf("nil behavior err = %v, want E101", err)
	}
	if err := reg.Register("nil", nil); !errors.HasCode(err, "E101") {
		t.Errorf("nil interface err = %v, want E101", err)
	}

	if reg.Len() != 2 {
		t.Errorf("Len() = %d, want 2", reg.Len())
	}
	if _, ok := reg.Lookup("missing"); ok {
		t.Error("Lookup(missing) should fail")
	}
}

func TestMustRegisterPanicsOnConflict(t *testing.T) {
	reg, _ := newTestRegistry(t)
	reg.MustRegister("h", highlight)
	defer func() {
		if recover() == nil {
			t.Error("MustRegister should panic on conflict")
		}
	}()
	reg.MustRegister("h", widget)
}

type pointerBehavior struct{ id int }

func (p *pointerBehavior) Attach(*html.Node, testSettings) error { return nil }

func TestSameBehavior(t *testing.T) {
	p1 := &pointerBehavior{id: 1}
	p2 := &pointerBehavior{id: 1}

	if !sameBehavior(p1, p1) {
		t.Error("same pointer should be same")
	}
	if sameBehavior(p1, p2) {
		t.Error("distinct pointers should differ")
	}
	if sameBehavior(highlight, widget) {
		t.Error("different types should differ")
	}
}

func TestParseReason(t *testing.T) {
	for _, s := range []string{"unload", "move", "serialize"} {
		r, err := ParseReason(s)
		if err != nil || string(r) != s {
			t.Errorf("ParseReason(%q) = %q, %v", s, r, err)
		}
	}
	if _, err := ParseReason("reload"); !errors.HasCode(err, "E102") {
		t.Errorf("ParseReason(reload) err = %v", err)
	}
	if ReasonSerialize.ClearsMarkers() {
		t.Error("serialize must keep markers")
	}
	if !ReasonUnload.ClearsMarkers() || !ReasonMove.ClearsMarkers() {
		t.Error("unload and move must clear markers")
	}
}

func TestMetrics(t *testing.T) {
	promReg := prometheus.NewRegistry()
	metrics := NewMetrics(WithRegisterer(promReg), WithNamespace("test"))

	reg, _ := newTestRegistry(t, WithMetrics(metrics))
	reg.MustRegister("highlight", highlight)
	reg.MustRegister("broken", AttachFunc[testSettings](func(*html.Node, testSettings) error {
		return fmt.Errorf("nope")
	}))

	reg.AttachAll(context.Background(), dom.Div(), testSettings{})
	reg.AttachAll(context.Background(), dom.Div(), testSettings{})

	families, err := promReg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	runs := findCounter(families, "test_behavior_runs_total", map[string]string{
		"behavior": "broken", "phase": "attach", "outcome": "error",
	})
	if runs != 2 {
		t.Errorf("broken error runs = %v, want 2", runs)
	}
	ok := findCounter(families, "test_behavior_runs_total", map[string]string{
		"behavior": "highlight", "phase": "attach", "outcome": "ok",
	})
	if ok != 2 {
		t.Errorf("highlight ok runs = %v, want 2", ok)
	}
	passes := findCounter(families, "test_passes_total", map[string]string{"phase": "attach"})
	if passes != 2 {
		t.Errorf("attach passes = %v, want 2", passes)
	}
}

func TestMetricsOptions(t *testing.T) {
	promReg := prometheus.NewRegistry()
	metrics := NewMetrics(
		WithRegisterer(promReg),
		WithSubsystem("pages"),
		WithConstLabels(prometheus.Labels{"site": "demo"}),
		WithBuckets([]float64{0.005, 0.25}),
	)
	reg, _ := newTestRegistry(t, WithMetrics(metrics))
	reg.MustRegister("highlight", highlight)
	reg.AttachAll(context.Background(), dom.Div(), testSettings{})

	families, err := promReg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	runs := findCounter(families, "behave_pages_behavior_runs_total", map[string]string{
		"behavior": "highlight", "outcome": "ok", "site": "demo",
	})
	if runs != 1 {
		t.Errorf("runs = %v, want 1", runs)
	}
	for _, mf := range families {
		if mf.GetName() != "behave_pages_behavior_duration_seconds" {
			continue
		}
		buckets := mf.GetMetric()[0].GetHistogram().GetBucket()
		if len(buckets) != 2 || buckets[1].GetUpperBound() != 0.25 {
			t.Errorf("buckets = %v", buckets)
		}
		return
	}
	t.Error("duration histogram not found")
}

// recordedSpan keeps what a pass did with its span.
type recordedSpan struct {
	noop.Span
	name   string
	failed bool
	ended  bool
}

func (s *recordedSpan) SetStatus(code codes.Code, _ string) {
	if code == codes.Error {
		s.failed = true
	}
}

func (s *recordedSpan) End(...trace.SpanEndOption) { s.ended = true }

type recordingTracer struct {
	noop.Tracer
	spans []*recordedSpan
}

func (r *recordingTracer) Start(ctx context.Context, name string, _ ...trace.SpanStartOption) (context.Context, trace.Span) {
	s := &recordedSpan{name: name}
	r.spans = append(r.spans, s)
	return trace.ContextWithSpan(ctx, s), s
}

func TestTracerSpans(t *testing.T) {
	tracer := &recordingTracer{}
	reg, _ := newTestRegistry(t, WithTracer(tracer))
	reg.MustRegister("highlight", highlight)
	reg.MustRegister("broken", AttachFunc[testSettings](func(*html.Node, testSettings) error {
		return fmt.Errorf("nope")
	}))
	reg.AttachAll(context.Background(), dom.Div(), testSettings{})

	var names []string
	for _, s := range tracer.spans {
		names = append(names, s.name)
		if !s.ended {
			t.Errorf("span %s not ended", s.name)
		}
	}
	if got := strings.Join(names, " "); got != "behavior.AttachAll behavior.attach behavior.attach" {
		t.Fatalf("spans = %s", got)
	}
	if !tracer.spans[0].failed || tracer.spans[1].failed || !tracer.spans[2].failed {
		t.Errorf("span failures = %v %v %v", tracer.spans[0].failed, tracer.spans[1].failed, tracer.spans[2].failed)
	}
}

func findCounter(families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return -1
}
