package site

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/vango-dev/behave/pkg/behavior"
	"github.com/vango-dev/behave/pkg/dom"
	"github.com/vango-dev/behave/pkg/once"
	"github.com/vango-dev/behave/pkg/page"
	"golang.org/x/net/html"
)

type fixture struct {
	host     *Host
	failures *behavior.ErrorCollector
}

func newFixture(t *testing.T, markup string, s Settings, deps Deps, opts ...page.Option) *fixture {
	t.Helper()
	doc, err := dom.ParseDocument(strings.NewReader(markup))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	failures := &behavior.ErrorCollector{}
	reg := behavior.NewRegistry[Settings](behavior.WithLogger(logger), behavior.WithReporter(failures))
	opts = append([]page.Option{page.WithLogger(logger)}, opts...)
	host := page.New(doc, reg, s, opts...)
	if err := Register(host, deps); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return &fixture{host: host, failures: failures}
}

func (f *fixture) load(t *testing.T) {
	t.Helper()
	f.host.Load(context.Background())
	f.check(t)
}

func (f *fixture) check(t *testing.T) {
	t.Helper()
	if err := f.failures.Err(); err != nil {
		t.Fatalf("behavior failures: %v", err)
	}
}

func (f *fixture) query(t *testing.T, selector string) *html.Node {
	t.Helper()
	n := dom.Query(f.host.Document(), selector)
	if n == nil {
		t.Fatalf("no element matches %q", selector)
	}
	return n
}

func TestRegisterOrder(t *testing.T) {
	f := newFixture(t, `<p></p>`, DefaultSettings(), Deps{})
	want := "adminMenuMarginTop respImg isotope isotopeFilter animate imageZoom textarea wysiwyg flag"
	if got := strings.Join(f.host.Behaviors().Names(), " "); got != want {
		t.Errorf("Names = %s", got)
	}
}

func TestAnimateSelectorMatchesEveryTrigger(t *testing.T) {
	for _, anim := range Animations {
		n := dom.Div(dom.Class(anim.Trigger))
		if !dom.Matches(n, animateSelector) {
			t.Errorf("%s does not match %q", anim.Trigger, animateSelector)
		}
	}
	for _, sel := range selectors {
		if _, err := dom.Compile(sel); err != nil {
			t.Errorf("Compile(%q): %v", sel, err)
		}
	}
}

func TestAdminMenu(t *testing.T) {
	tests := []struct {
		name     string
		settings AdminMenuSettings
		want     bool
	}{
		{"margin", AdminMenuSettings{MarginTop: true}, true},
		{"suppressed", AdminMenuSettings{MarginTop: true, Suppress: true}, false},
		{"no margin", AdminMenuSettings{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			s.AdminMenu = tt.settings
			f := newFixture(t, `<body></body>`, s, Deps{})
			f.load(t)
			f.load(t)
			body := f.query(t, "body")
			if dom.HasClass(body, "admin-menu") != tt.want {
				t.Errorf("admin-menu class = %v, want %v", !tt.want, tt.want)
			}
			if tt.want && dom.Attr(body, "class") != "admin-menu" {
				t.Errorf("class = %q, want a single admin-menu", dom.Attr(body, "class"))
			}
		})
	}
}

var suffixes = []Suffix{{"_large", 1200}, {"_medium", 800}, {"_small", 0}}

func TestOptimalSuffix(t *testing.T) {
	tests := []struct {
		vp       Viewport
		useRatio bool
		want     string
	}{
		{Viewport{Width: 1400, DevicePixelRatio: 1}, false, "_large"},
		{Viewport{Width: 900, DevicePixelRatio: 1}, false, "_medium"},
		{Viewport{Width: 320, DevicePixelRatio: 1}, false, "_small"},
		{Viewport{Width: 700, DevicePixelRatio: 2}, false, "_small"},
		{Viewport{Width: 700, DevicePixelRatio: 2}, true, "_large"},
		{Viewport{Width: 500, DevicePixelRatio: 0}, true, "_small"},
	}
	for _, tt := range tests {
		if got := OptimalSuffix(suffixes, tt.vp, tt.useRatio); got != tt.want {
			t.Errorf("OptimalSuffix(%+v, %v) = %q, want %q", tt.vp, tt.useRatio, got, tt.want)
		}
	}
	if got := OptimalSuffix([]Suffix{{"_large", 1200}}, Viewport{Width: 100}, false); got != "" {
		t.Errorf("no fitting suffix = %q, want empty", got)
	}
}

const respImgPage = `<html><body>
<img id="a" src="/files/a_large.jpg" width="10" height="10">
<a id="c" class="colorbox" href="/files/b_large.jpg">b</a>
</body></html>`

func TestRespImgRewritesSuffixes(t *testing.T) {
	s := DefaultSettings()
	s.RespImg = RespImgSettings{
		Suffixes:      suffixes,
		CurrentSuffix: "_large",
		HasCurrent:    true,
		ForceResize:   true,
	}
	nav := &page.RecordingNavigator{}
	f := newFixture(t, respImgPage, s, Deps{Viewport: Viewport{Width: 900, DevicePixelRatio: 1}}, page.WithNavigator(nav))
	f.load(t)
	f.load(t)

	img := f.query(t, "#a")
	if got := dom.Attr(img, "src"); got != "/files/a_medium.jpg" {
		t.Errorf("src = %q", got)
	}
	if dom.HasAttr(img, "width") || dom.HasAttr(img, "height") {
		t.Error("dimensions should be dropped")
	}
	if got := dom.Attr(f.query(t, "#c"), "href"); got != "/files/b_medium.jpg" {
		t.Errorf("colorbox href = %q", got)
	}
	if len(nav.Reloads()) != 0 {
		t.Errorf("unexpected reloads %v", nav.Reloads())
	}
}

func TestRespImgRedirectsWithoutCurrentSuffix(t *testing.T) {
	s := DefaultSettings()
	s.RespImg = RespImgSettings{
		Suffixes:      suffixes,
		DefaultSuffix: "_large",
		ForceRedirect: true,
		ForceResize:   true,
	}
	nav := &page.RecordingNavigator{}
	f := newFixture(t, respImgPage, s, Deps{Viewport: Viewport{Width: 900, DevicePixelRatio: 1}}, page.WithNavigator(nav))
	f.load(t)
	f.load(t)

	if got := nav.Reloads(); len(got) != 1 {
		t.Fatalf("reloads = %v, want exactly one", got)
	}
	if got := dom.Attr(f.query(t, "#a"), "src"); got != "/files/a_large.jpg" {
		t.Errorf("src rewritten before reload: %q", got)
	}
}

func TestRespImgReloadOnResize(t *testing.T) {
	s := DefaultSettings()
	s.RespImg = RespImgSettings{
		Suffixes:       suffixes,
		CurrentSuffix:  "_large",
		HasCurrent:     true,
		ReloadOnResize: true,
	}
	nav := &page.RecordingNavigator{}
	f := newFixture(t, respImgPage, s, Deps{Viewport: Viewport{Width: 320, DevicePixelRatio: 1}}, page.WithNavigator(nav))
	f.load(t)

	if got := nav.Reloads(); len(got) != 1 || !strings.Contains(got[0], "_small") {
		t.Errorf("reloads = %v", got)
	}
}

func TestRespImgWithoutCookies(t *testing.T) {
	s := DefaultSettings()
	s.RespImg = RespImgSettings{
		Suffixes:       suffixes,
		DefaultSuffix:  "_large",
		ForceRedirect:  true,
		ForceResize:    true,
		ReloadOnResize: true,
	}
	nav := &page.RecordingNavigator{}
	vp := Viewport{Width: 900, DevicePixelRatio: 1, CookiesDisabled: true}
	f := newFixture(t, respImgPage, s, Deps{Viewport: vp}, page.WithNavigator(nav))
	f.load(t)

	if got := nav.Reloads(); len(got) != 0 {
		t.Errorf("reloads = %v, want none without cookies", got)
	}
	if got := dom.Attr(f.query(t, "#a"), "src"); got != "/files/a_medium.jpg" {
		t.Errorf("src = %q, want the default suffix rewritten", got)
	}
}

const activitiesPage = `<body>
<select class="filter-act"><option value="">All</option></select>
<div class="activities">
  <div id="a1" class="activity sports">1</div>
  <div id="a2" class="activity music">2</div>
</div>
<div id="loose" class="activity sports">3</div>
</body>`

func TestIsotopeAndFilter(t *testing.T) {
	f := newFixture(t, activitiesPage, DefaultSettings(), Deps{})
	f.load(t)
	ctx := context.Background()

	c := f.query(t, ".activities")
	if !dom.HasClass(c, IsotopeClass) || dom.Attr(c, "data-layout") != DefaultLayoutMode {
		t.Errorf("container = class %q layout %q", dom.Attr(c, "class"), dom.Attr(c, "data-layout"))
	}
	if !dom.HasClass(f.query(t, "#a1"), IsotopeItemClass) {
		t.Error("item not laid out")
	}
	if dom.HasClass(f.query(t, "#loose"), IsotopeItemClass) {
		t.Error("item outside a container should be left alone")
	}

	ctl := f.query(t, ".filter-act")
	f.host.Events().Trigger(ctx, ctl, "change", "sports")
	if dom.HasClass(f.query(t, "#a1"), IsotopeHidden) || !dom.HasClass(f.query(t, "#a2"), IsotopeHidden) {
		t.Error("filter sports should hide only #a2")
	}
	if dom.Attr(c, "data-filter") != ".sports" {
		t.Errorf("data-filter = %q", dom.Attr(c, "data-filter"))
	}

	f.host.Events().Trigger(ctx, ctl, "change", "")
	if dom.HasClass(f.query(t, "#a2"), IsotopeHidden) {
		t.Error("empty filter should show every item")
	}

	nodes, _ := dom.ParseFragmentString(`<div id="a3" class="activity music">3</div>`, c)
	f.host.Insert(ctx, c, nodes...)
	f.check(t)
	if !dom.HasClass(f.query(t, "#a3"), IsotopeItemClass) {
		t.Error("inserted item not laid out")
	}

	f.load(t)
	if n := f.host.Events().Count(ctl, "change"); n != 1 {
		t.Errorf("change handlers = %d, want 1", n)
	}
}

func TestAnimate(t *testing.T) {
	markup := `<body><div id="wrap"><h2 id="h" class="flyup">t</h2><p id="p" class="appears flyleft">p</p></div><div id="dest"></div></body>`
	f := newFixture(t, markup, DefaultSettings(), Deps{})
	f.load(t)
	f.load(t)
	ctx := context.Background()

	h := f.query(t, "#h")
	if n := f.host.Events().Count(h, "inview"); n != 1 {
		t.Fatalf("inview handlers = %d, want 1", n)
	}
	if dom.HasClass(h, "animated") {
		t.Error("animation must wait for inview")
	}
	f.host.Events().Trigger(ctx, h, "inview", "")
	if got := dom.Attr(h, "class"); got != "flyup animated fadeInUp" {
		t.Errorf("class = %q", got)
	}

	p := f.query(t, "#p")
	f.host.Events().Trigger(ctx, p, "inview", "")
	if !dom.HasClass(p, "fadeInLeft", "fadeIn", "animated") {
		t.Errorf("class = %q", dom.Attr(p, "class"))
	}

	if err := f.host.Move(ctx, f.query(t, "#wrap"), f.query(t, "#dest")); err != nil {
		t.Fatal(err)
	}
	f.check(t)
	if n := f.host.Events().Count(h, "inview"); n != 1 {
		t.Errorf("inview handlers after move = %d, want 1", n)
	}

	if err := f.host.Remove(ctx, f.query(t, "#wrap")); err != nil {
		t.Fatal(err)
	}
	if f.host.Events().Len() != 0 {
		t.Error("bindings left after removal")
	}
	if once.Has(h, "animate") {
		t.Error("marker left after unload")
	}
}

func TestAnimateDisabled(t *testing.T) {
	s := DefaultSettings()
	s.Animate.Disabled = true
	f := newFixture(t, `<body><h2 class="flyup">t</h2></body>`, s, Deps{})
	f.load(t)
	if f.host.Events().Len() != 0 {
		t.Error("disabled animate should bind nothing")
	}
}

func TestImageZoomAndTextarea(t *testing.T) {
	markup := `<body>
	<div class="image-container"><img id="i" src="/x.jpg"><span><a id="cat" href="/c">c</a></span></div>
	<img id="outside" src="/y.jpg">
	<div id="w" class="form-textarea-wrapper resizable"><textarea></textarea></div>
	<div id="fixed" class="form-textarea-wrapper"><textarea></textarea></div>
	</body>`
	f := newFixture(t, markup, DefaultSettings(), Deps{})
	f.load(t)
	f.load(t)

	if !dom.HasClass(f.query(t, "#i"), "zoom") || dom.HasClass(f.query(t, "#outside"), "zoom") {
		t.Error("zoom applied to the wrong images")
	}
	if !dom.HasClass(f.query(t, "#cat"), "cat") {
		t.Error("category link not tagged")
	}

	w := f.query(t, "#w")
	if !dom.HasClass(w, "resizable-textarea") {
		t.Error("wrapper not made resizable")
	}
	if n := len(dom.QueryAll(w, ".grippie")); n != 1 {
		t.Errorf("grippies = %d, want 1", n)
	}
	if dom.Query(f.query(t, "#fixed"), ".grippie") != nil {
		t.Error("non-resizable wrapper got a grippie")
	}
}

func TestWysiwyg(t *testing.T) {
	markup := `<body><form id="f">
	<textarea id="edit-body" class="wysiwyg">&lt;p&gt;hi&lt;/p&gt;</textarea>
	<textarea id="edit-plain" class="wysiwyg">plain</textarea>
	</form></body>`
	s := DefaultSettings()
	s.Wysiwyg.Triggers = map[string]WysiwygTrigger{"edit-body": {Editor: "ckeditor", Format: "full_html"}}
	f := newFixture(t, markup, s, Deps{})
	f.load(t)
	f.load(t)
	ctx := context.Background()

	field := f.query(t, "#edit-body")
	editor := EditorFor(field)
	if editor == nil {
		t.Fatal("editor not created")
	}
	if dom.Attr(editor, "data-editor") != "ckeditor" || dom.Query(editor, "p") == nil {
		t.Errorf("editor = %s", dom.MustRenderString(editor))
	}
	if len(dom.QueryAll(f.host.Document(), "."+EditorClass)) != 1 {
		t.Error("expected exactly one editor")
	}
	if EditorFor(f.query(t, "#edit-plain")) != nil {
		t.Error("field without trigger got an editor")
	}

	dom.SetText(editor, "bye")
	form := f.query(t, "#f")
	f.host.Serialize(ctx, form)
	f.check(t)
	if got := dom.TextContent(field); got != "bye" {
		t.Errorf("serialized field = %q", got)
	}
	if EditorFor(field) == nil || !once.Has(field, "wysiwyg") {
		t.Error("serialize must keep the editor attached")
	}

	dom.SetText(EditorFor(field), "final")
	f.host.Detach(ctx, form, behavior.ReasonUnload)
	f.check(t)
	if got := dom.TextContent(field); got != "final" {
		t.Errorf("unloaded field = %q", got)
	}
	if EditorFor(field) != nil || once.Has(field, "wysiwyg") {
		t.Error("unload must destroy the editor and clear the marker")
	}

	f.load(t)
	if len(dom.QueryAll(f.host.Document(), "."+EditorClass)) != 1 {
		t.Error("reattach should create one editor again")
	}
}

// flakyEditor fails its first attaches.
type flakyEditor struct {
	DOMEditor
	fails int
}

func (e *flakyEditor) Attach(field *html.Node, trigger WysiwygTrigger) error {
	if e.fails > 0 {
		e.fails--
		return errors.New("editor not ready")
	}
	return e.DOMEditor.Attach(field, trigger)
}

func TestWysiwygRetriesFailedAttach(t *testing.T) {
	markup := `<body><textarea id="edit-body" class="wysiwyg">hi</textarea></body>`
	s := DefaultSettings()
	s.Wysiwyg.Triggers = map[string]WysiwygTrigger{"edit-body": {Editor: "ckeditor"}}
	f := newFixture(t, markup, s, Deps{Editor: &flakyEditor{fails: 1}})
	ctx := context.Background()

	f.host.Load(ctx)
	if f.failures.Len() != 1 {
		t.Fatalf("failures = %d, want 1", f.failures.Len())
	}
	field := f.query(t, "#edit-body")
	if once.Has(field, "wysiwyg") || EditorFor(field) != nil {
		t.Fatal("failed field must stay unmarked")
	}

	f.failures.Reset()
	f.load(t)
	if EditorFor(field) == nil || !once.Has(field, "wysiwyg") {
		t.Error("second pass should attach the editor")
	}
}
