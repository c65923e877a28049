package site

import (
	"strings"

	"github.com/vango-dev/behave/pkg/dom"
	"github.com/vango-dev/behave/pkg/once"
	"golang.org/x/net/html"
)

type respImg struct {
	host     *Host
	viewport Viewport
}

// Attach swaps image suffixes for the one that fits the viewport. When
// the page needs a different rendering altogether the navigator is asked
// to reload, and nothing is rewritten. A reload only helps a client that
// keeps cookies, since the server picks the suffix from one.
func (r *respImg) Attach(root *html.Node, s Settings) error {
	rs := s.RespImg
	if len(rs.Suffixes) == 0 {
		return nil
	}

	current := rs.CurrentSuffix
	if !rs.HasCurrent {
		current = rs.DefaultSuffix
	}
	suffix := OptimalSuffix(rs.Suffixes, r.viewport, rs.UseDevicePixelRatio)

	cookies := !r.viewport.CookiesDisabled
	var reason string
	switch {
	case !rs.HasCurrent && rs.ForceRedirect && cookies:
		reason = "respImg: no current suffix"
	case rs.ReloadOnResize && suffix != "" && suffix != current && cookies:
		reason = "respImg: suffix " + current + " -> " + suffix
	}
	if reason != "" {
		// Ask once, on the pass that sees <html>.
		for range once.Select("resp-img", root, "html") {
			r.host.Navigator().Reload(reason)
		}
		return nil
	}

	if !rs.ForceResize || suffix == "" || current == "" || suffix == current {
		return nil
	}
	for _, img := range once.Select("resp-img", root, "img[src]") {
		dom.SetAttr(img, "src", strings.Replace(dom.Attr(img, "src"), current, suffix, 1))
		dom.RemoveAttr(img, "width")
		dom.RemoveAttr(img, "height")
	}
	for _, a := range once.Select("resp-img", root, "a.colorbox[href]") {
		dom.SetAttr(a, "href", strings.Replace(dom.Attr(a, "href"), current, suffix, 1))
	}
	return nil
}

// OptimalSuffix returns the first suffix whose breakpoint fits the
// viewport, or "" when none does. With useRatio the breakpoints are
// scaled down by the device pixel ratio.
func OptimalSuffix(suffixes []Suffix, vp Viewport, useRatio bool) string {
	ratio := 1.0
	if useRatio && vp.DevicePixelRatio > 0 {
		ratio = vp.DevicePixelRatio
	}
	for _, s := range suffixes {
		if float64(s.Width)/ratio <= float64(vp.Width) {
			return s.Name
		}
	}
	return ""
}
