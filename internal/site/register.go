package site

import (
	"github.com/vango-dev/behave/pkg/behavior"
	"github.com/vango-dev/behave/pkg/dom"
	"github.com/vango-dev/behave/pkg/fragment"
	"github.com/vango-dev/behave/pkg/page"
)

// Host is the page the site behaviors run on.
type Host = page.Page[Settings]

// Deps are the collaborators site behaviors need beyond the page.
type Deps struct {
	// Fragments serves flag toggle responses. Defaults to an empty
	// static source.
	Fragments fragment.Source

	// Editor backs wysiwyg fields. Defaults to DOMEditor.
	Editor Editor

	// Viewport describes the client the page is prepared for.
	Viewport Viewport
}

// Viewport is the client window used for responsive image decisions.
type Viewport struct {
	Width            int
	DevicePixelRatio float64

	// CookiesDisabled reports a client that drops cookies. respImg never
	// reloads such a client.
	CookiesDisabled bool
}

// DefaultViewport is a common desktop window.
var DefaultViewport = Viewport{Width: 1280, DevicePixelRatio: 1}

// selectors lists the fixed selectors the behaviors query with. They are
// compiled at init, so a malformed one panics instead of matching nothing.
var selectors = []string{
	"body", "html", "img[src]", "a.colorbox[href]", "textarea",
	".activities", ".filter-act", animateSelector,
	".image-container img", ".image-container span a",
	".form-textarea-wrapper.resizable", wysiwygSelector,
	"a.flag[href]", "a.flag-link-toggle", ".flag-wrapper",
	".flag-action", ".unflag-action",
	SettingsSelector, DefaultItemSelector,
}

func init() {
	for _, sel := range selectors {
		dom.MustCompile(sel)
	}
}

// Register adds the site behaviors to the host's registry. isotopeFilter
// must follow isotope, which it relies on for the processed containers.
func Register(host *Host, deps Deps) error {
	if deps.Fragments == nil {
		deps.Fragments = fragment.Static{}
	}
	if deps.Editor == nil {
		deps.Editor = DOMEditor{}
	}
	if deps.Viewport.Width == 0 {
		deps.Viewport.Width = DefaultViewport.Width
	}
	if deps.Viewport.DevicePixelRatio == 0 {
		deps.Viewport.DevicePixelRatio = DefaultViewport.DevicePixelRatio
	}

	behaviors := []struct {
		name string
		b    behavior.Behavior[Settings]
	}{
		{"adminMenuMarginTop", behavior.AttachFunc[Settings](attachAdminMenu)},
		{"respImg", &respImg{host: host, viewport: deps.Viewport}},
		{"isotope", behavior.AttachFunc[Settings](attachIsotope)},
		{"isotopeFilter", &isotopeFilter{host: host}},
		{"animate", &animate{host: host}},
		{"imageZoom", behavior.AttachFunc[Settings](attachImageZoom)},
		{"textarea", behavior.AttachFunc[Settings](attachTextarea)},
		{"wysiwyg", &wysiwyg{editor: deps.Editor}},
		{"flag", &flag{host: host, src: deps.Fragments}},
	}
	reg := host.Behaviors()
	for _, e := range behaviors {
		if err := reg.Register(e.name, e.b); err != nil {
			return err
		}
	}
	return nil
}
