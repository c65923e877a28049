package site

import (
	"context"

	"github.com/vango-dev/behave/pkg/behavior"
	"github.com/vango-dev/behave/pkg/dom"
	"github.com/vango-dev/behave/pkg/once"
	"github.com/vango-dev/behave/pkg/page"
	"golang.org/x/net/html"
)

// Animations maps trigger classes to the animation applied when the
// element scrolls into view.
var Animations = []struct{ Trigger, Effect string }{
	{"flyup", "fadeInUp"},
	{"flyleft", "fadeInLeft"},
	{"superflyleft", "slideInLeft"},
	{"appears", "fadeIn"},
}

const (
	animateNS       = "animate"
	animateSelector = ".flyup, .flyleft, .superflyleft, .appears"
)

// animate binds inview handlers that start CSS animations.
type animate struct {
	host *Host
}

func (a *animate) Attach(root *html.Node, s Settings) error {
	if s.Animate.Disabled {
		return nil
	}
	for _, n := range once.Select("animate", root, animateSelector) {
		a.host.Events().On(n, "inview", animateNS, onInView)
	}
	return nil
}

func (a *animate) Detach(root *html.Node, _ Settings, reason behavior.Reason) error {
	if !reason.ClearsMarkers() {
		return nil
	}
	a.host.Events().OffWithin(root, animateNS)
	once.Remove("animate", root, animateSelector)
	return nil
}

func onInView(_ context.Context, e *page.Event) {
	for _, anim := range Animations {
		if dom.HasClass(e.Target, anim.Trigger) {
			dom.AddClass(e.Target, "animated", anim.Effect)
		}
	}
}
