package site

import (
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/vango-dev/behave/internal/errors"
	"github.com/vango-dev/behave/pkg/dom"
	"golang.org/x/net/html"
)

// Settings is the site settings snapshot, one field per namespace.
type Settings struct {
	Animate   AnimateSettings   `json:"animate"`
	Isotope   IsotopeSettings   `json:"isotope"`
	ImageZoom ImageZoomSettings `json:"imageZoom"`
	Flag      FlagSettings      `json:"flag"`
	Wysiwyg   WysiwygSettings   `json:"wysiwyg"`
	Textarea  TextareaSettings  `json:"textarea"`
	AdminMenu AdminMenuSettings `json:"adminMenu"`
	RespImg   RespImgSettings   `json:"respImg"`
}

// AnimateSettings configures the animate behavior.
type AnimateSettings struct {
	Disabled bool `json:"disabled"`
}

// IsotopeSettings configures the activity grid.
type IsotopeSettings struct {
	LayoutMode   string `json:"layoutMode"`
	ItemSelector string `json:"itemSelector"`
}

// ImageZoomSettings configures the image zoom behavior.
type ImageZoomSettings struct {
	Disabled bool `json:"disabled"`
}

// FlagSettings configures flag links.
type FlagSettings struct {
	// Anonymous requires has_js=1 on flag links so that crawlers cannot
	// flag content.
	Anonymous bool `json:"anonymous"`

	// Templates maps "<flag>_<content id>" to the link markup for the
	// flagged state, used to fix up cached pages.
	Templates map[string]string `json:"templates"`
}

// WysiwygSettings maps field ids to their editor trigger.
type WysiwygSettings struct {
	Triggers map[string]WysiwygTrigger `json:"triggers"`
}

// WysiwygTrigger selects the editor for a field.
type WysiwygTrigger struct {
	Editor string `json:"editor"`
	Format string `json:"format"`
}

// TextareaSettings configures resizable textareas.
type TextareaSettings struct {
	Disabled bool `json:"disabled"`
}

// AdminMenuSettings configures the admin menu offset.
type AdminMenuSettings struct {
	Suppress  bool `json:"suppress"`
	MarginTop bool `json:"margin_top"`
}

// RespImgSettings configures responsive image suffixes.
type RespImgSettings struct {
	// Suffixes lists breakpoints from widest to narrowest.
	Suffixes []Suffix

	// CurrentSuffix is the suffix the page was rendered with. HasCurrent
	// is false when the server did not know it.
	CurrentSuffix string
	HasCurrent    bool

	DefaultSuffix       string
	ForceRedirect       bool
	ForceResize         bool
	ReloadOnResize      bool
	UseDevicePixelRatio bool
}

// Suffix is an image suffix and the viewport width it needs.
type Suffix struct {
	Name  string
	Width int
}

// Defaults for the isotope namespace.
const (
	DefaultLayoutMode   = "fitRows"
	DefaultItemSelector = ".activity"
)

// Namespaces lists the settings namespaces in decode order.
var Namespaces = []string{
	"animate", "isotope", "imageZoom", "flag",
	"wysiwyg", "textarea", "adminMenu", "respImg",
}

// DecodeSettings decodes a settings blob. Each namespace is decoded on
// its own; a malformed namespace keeps its defaults and contributes an
// E130 error to the joined result while the others are still applied.
func DecodeSettings(raw []byte) (s Settings, err error) {
	defer s.applyDefaults()

	if len(raw) == 0 {
		return s, nil
	}
	if !gjson.ValidBytes(raw) {
		return s, errors.New("E130").WithDetail("The settings blob is not valid JSON.")
	}

	root := gjson.ParseBytes(raw)
	var errs []error
	for _, ns := range Namespaces {
		r := root.Get(ns)
		if !r.Exists() {
			continue
		}
		if err := s.decodeNamespace(ns, r); err != nil {
			errs = append(errs, errors.New("E130").
				WithDetail(fmt.Sprintf("Namespace %q could not be decoded.", ns)).
				Wrap(err))
		}
	}
	return s, stderrors.Join(errs...)
}

func (s *Settings) decodeNamespace(ns string, r gjson.Result) error {
	if ns == "respImg" {
		v, err := decodeRespImg(r)
		if err == nil {
			s.RespImg = v
		}
		return err
	}

	switch ns {
	case "animate":
		return decodeInto(r.Raw, &s.Animate)
	case "isotope":
		return decodeInto(r.Raw, &s.Isotope)
	case "imageZoom":
		return decodeInto(r.Raw, &s.ImageZoom)
	case "flag":
		return decodeInto(r.Raw, &s.Flag)
	case "wysiwyg":
		return decodeInto(r.Raw, &s.Wysiwyg)
	case "textarea":
		return decodeInto(r.Raw, &s.Textarea)
	case "adminMenu":
		return decodeInto(r.Raw, &s.AdminMenu)
	}
	return fmt.Errorf("unknown namespace %q", ns)
}

// decodeInto leaves dst untouched when raw does not decode.
func decodeInto[T any](raw string, dst *T) error {
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return err
	}
	*dst = v
	return nil
}

// decodeRespImg reads the respImg namespace. Flags are accepted as
// booleans or "0"/"1" strings, and current_suffix may be false.
func decodeRespImg(r gjson.Result) (RespImgSettings, error) {
	var v RespImgSettings
	if !r.IsObject() {
		return v, fmt.Errorf("expected an object, got %s", r.Type)
	}

	suffixes := r.Get("suffixes")
	if suffixes.Exists() && !suffixes.IsObject() {
		return v, fmt.Errorf("suffixes: expected an object, got %s", suffixes.Type)
	}
	var err error
	suffixes.ForEach(func(key, value gjson.Result) bool {
		if value.Type != gjson.Number && value.Type != gjson.String {
			err = fmt.Errorf("suffix %q: width must be a number", key.String())
			return false
		}
		v.Suffixes = append(v.Suffixes, Suffix{Name: key.String(), Width: int(value.Int())})
		return true
	})
	if err != nil {
		return RespImgSettings{}, err
	}

	if cur := r.Get("current_suffix"); cur.Type == gjson.String {
		v.CurrentSuffix = cur.String()
		v.HasCurrent = true
	}
	v.DefaultSuffix = r.Get("default_suffix").String()
	v.ForceRedirect = r.Get("forceRedirect").Bool()
	v.ForceResize = r.Get("forceResize").Bool()
	v.ReloadOnResize = r.Get("reloadOnResize").Bool()
	v.UseDevicePixelRatio = r.Get("useDevicePixelRatio").Bool()
	return v, nil
}

func (s *Settings) applyDefaults() {
	if s.Isotope.LayoutMode == "" {
		s.Isotope.LayoutMode = DefaultLayoutMode
	}
	if s.Isotope.ItemSelector == "" {
		s.Isotope.ItemSelector = DefaultItemSelector
	}
}

// SettingsSelector matches the element that carries the settings blob.
const SettingsSelector = `script[type="application/json"][data-behave-settings]`

// ExtractSettings returns the settings blob embedded in doc.
func ExtractSettings(doc *html.Node) ([]byte, bool) {
	n := dom.Query(doc, SettingsSelector)
	if n == nil {
		return nil, false
	}
	return []byte(dom.TextContent(n)), true
}

// DefaultSettings returns the settings used when a page carries none.
func DefaultSettings() Settings {
	var s Settings
	s.applyDefaults()
	return s
}
