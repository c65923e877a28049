package site

import (
	"context"

	"github.com/vango-dev/behave/pkg/behavior"
	"github.com/vango-dev/behave/pkg/dom"
	"github.com/vango-dev/behave/pkg/once"
	"github.com/vango-dev/behave/pkg/page"
	"golang.org/x/net/html"
)

// Class names used by the activity grid.
const (
	IsotopeClass     = "isotope"
	IsotopeItemClass = "isotope-item"
	IsotopeHidden    = "isotope-hidden"
)

// attachIsotope lays out .activities containers. Items inserted later
// into an already processed container are picked up by the pass over
// the inserted content.
func attachIsotope(root *html.Node, s Settings) error {
	for _, c := range once.Select("isotope", root, ".activities") {
		dom.AddClass(c, IsotopeClass)
		dom.SetAttr(c, "data-layout", s.Isotope.LayoutMode)
	}
	for _, item := range dom.QueryAll(root, s.Isotope.ItemSelector) {
		c := dom.Closest(item.Parent, ".activities")
		if c == nil || !once.Has(c, "isotope") {
			continue
		}
		if once.Mark(item, "isotope-item") {
			dom.AddClass(item, IsotopeItemClass)
		}
	}
	return nil
}

const isotopeFilterNS = "isotopeFilter"

// isotopeFilter filters the grid from .filter-act select controls.
type isotopeFilter struct {
	host *Host
}

func (f *isotopeFilter) Attach(root *html.Node, s Settings) error {
	for _, ctl := range once.Select("isotope-filter", root, ".filter-act") {
		f.host.Events().On(ctl, "change", isotopeFilterNS, func(_ context.Context, e *page.Event) {
			FilterActivities(f.host.Document(), s.Isotope.ItemSelector, e.Value)
		})
	}
	return nil
}

func (f *isotopeFilter) Detach(root *html.Node, _ Settings, reason behavior.Reason) error {
	if !reason.ClearsMarkers() {
		return nil
	}
	f.host.Events().OffWithin(root, isotopeFilterNS)
	once.Remove("isotope-filter", root, ".filter-act")
	return nil
}

// FilterActivities hides the items of every processed container that do
// not carry class. An empty class shows every item.
func FilterActivities(doc *html.Node, itemSelector, class string) {
	for _, c := range once.Find("isotope", doc, ".activities") {
		if class == "" {
			dom.RemoveAttr(c, "data-filter")
		} else {
			dom.SetAttr(c, "data-filter", "."+class)
		}
		for _, item := range dom.QueryAll(c, itemSelector) {
			if item == c {
				continue
			}
			dom.ToggleClass(item, IsotopeHidden, class != "" && !dom.HasClass(item, class))
		}
	}
}
