package site

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/vango-dev/behave/pkg/dom"
	"github.com/vango-dev/behave/pkg/fragment"
	"github.com/vango-dev/behave/pkg/once"
	"github.com/vango-dev/behave/pkg/page"
	"golang.org/x/net/html"
)

// Class names used by flag links.
const (
	FlagWaitingClass   = "flag-waiting"
	FlagProcessedClass = "flag-processed"
)

const (
	flagNS         = "flag"
	flagTemplateID = "flag-template"
)

var (
	userFlagRe   = regexp.MustCompile(`^(\w+)_(\d+)$`)
	globalFlagRe = regexp.MustCompile(`^flag_global_(\w+)_(\d+)$`)
)

// flag toggles flags without leaving the page and fixes up flag links on
// cached pages for anonymous users.
type flag struct {
	host *Host
	src  fragment.Source
}

func (f *flag) Attach(root *html.Node, s Settings) error {
	if len(s.Flag.Templates) > 0 {
		f.applyTemplates(root, s.Flag.Templates)
	}

	if s.Flag.Anonymous {
		for _, a := range once.Select("flag-anonymous", root, "a.flag[href]") {
			href := dom.Attr(a, "href")
			sep := "?"
			if strings.Contains(href, "?") {
				sep = "&"
			}
			dom.SetAttr(a, "href", href+sep+"has_js=1")
			dom.AddClass(a, "flag-anonymous-processed")
		}
	}

	for _, a := range once.Select("flag", root, "a.flag-link-toggle") {
		dom.AddClass(a, FlagProcessedClass)
		f.host.Events().On(a, "click", flagNS, f.onClick)
	}
	return nil
}

// applyTemplates swaps cached links for the state recorded in the flag
// cookies. User flags default to off, so a listed flag always swaps.
// Global flag templates hold the opposite of the cached state, so a link
// swaps only when it still offers the action the cookie says is done.
func (f *flag) applyTemplates(root *html.Node, templates map[string]string) {
	cookies := f.host.Cookies()

	if userFlags := cookies.Get("flags"); userFlags != "" {
		for _, entry := range strings.Split(userFlags, "+") {
			m := userFlagRe.FindStringSubmatch(entry)
			if m == nil {
				continue
			}
			f.swapLinks(root, templates, m[1], m[2], "")
		}
	}

	// Sorted for a deterministic swap order.
	names := make([]string, 0, len(cookies))
	for name := range cookies {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		m := globalFlagRe.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		state := "unflag"
		switch cookies[name] {
		case "1":
			state = "flag"
		case "0":
		default:
			continue
		}
		f.swapLinks(root, templates, m[1], m[2], "."+state+"-action")
	}
}

// swapLinks replaces the links of one flag with its template. Inserted
// copies carry the flag-template marker, so a later pass over the same
// content leaves them in place.
func (f *flag) swapLinks(root *html.Node, templates map[string]string, name, contentID, requires string) {
	tmpl, ok := templates[name+"_"+contentID]
	if !ok {
		return
	}
	sel := FlagSelector(name, contentID)
	for _, link := range dom.QueryAll(root, sel) {
		// Skip links already swapped out with an enclosing match.
		if link == root || link.Parent == nil || !dom.Contains(root, link) || once.Has(link, flagTemplateID) {
			continue
		}
		if requires != "" && dom.Query(link, requires) == nil {
			continue
		}
		nodes, err := dom.ParseFragmentString(tmpl, link.Parent)
		if err != nil {
			f.host.Logger().Warn("flag template parse failed", "flag", name, "content", contentID, "error", err)
			continue
		}
		for _, n := range nodes {
			for _, m := range dom.QueryAll(n, sel) {
				once.Mark(m, flagTemplateID)
			}
		}
		f.host.Events().OffWithin(link, "")
		dom.ReplaceWith(link, nodes...)
	}
}

// FlagSelector matches the links of one flag on one piece of content.
func FlagSelector(name, contentID string) string {
	return fmt.Sprintf(".flag-%s-%s", strings.ReplaceAll(name, "_", "-"), contentID)
}

func (f *flag) onClick(ctx context.Context, e *page.Event) {
	e.PreventDefault()

	wrapper := dom.Closest(e.Target, ".flag-wrapper")
	if wrapper == nil || dom.HasClass(wrapper, FlagWaitingClass) {
		return
	}
	dom.AddClass(wrapper, FlagWaitingClass)

	href := dom.Attr(e.Target, "href")
	f.host.Go(ctx, func(ctx context.Context) page.Task {
		body, err := f.src.Fetch(ctx, href)
		return func(ctx context.Context) {
			if err == nil {
				err = f.update(ctx, wrapper, body)
			}
			if err != nil {
				f.host.Logger().Warn("flag toggle failed", "href", href, "error", err)
				dom.RemoveClass(wrapper, FlagWaitingClass)
			}
		}
	})
}

// update replaces the clicked wrapper and every other wrapper of the same
// flag with the new link from a toggle response.
func (f *flag) update(ctx context.Context, wrapper *html.Node, body []byte) error {
	if !gjson.ValidBytes(body) {
		return fmt.Errorf("flag response is not JSON")
	}
	resp := gjson.ParseBytes(body)
	newLink := resp.Get("newLink").String()
	if newLink == "" {
		return fmt.Errorf("flag response has no newLink")
	}
	if wrapper.Parent == nil {
		// Replaced while the request was in flight.
		return nil
	}

	var others []*html.Node
	name, contentID := resp.Get("flagName").String(), resp.Get("contentId").String()
	if name != "" && contentID != "" {
		for _, w := range dom.QueryAll(f.host.Document(), ".flag-wrapper"+FlagSelector(name, contentID)) {
			if w != wrapper {
				others = append(others, w)
			}
		}
	}

	nodes, err := dom.ParseFragmentString(newLink, wrapper.Parent)
	if err != nil {
		return err
	}
	if err := f.host.Replace(ctx, wrapper, nodes...); err != nil {
		return err
	}

	for _, w := range others {
		if w.Parent == nil {
			continue
		}
		nodes, err := dom.ParseFragmentString(newLink, w.Parent)
		if err != nil {
			return err
		}
		if err := f.host.Replace(ctx, w, nodes...); err != nil {
			return err
		}
	}
	return nil
}
