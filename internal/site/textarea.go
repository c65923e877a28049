package site

import (
	"github.com/vango-dev/behave/pkg/dom"
	"github.com/vango-dev/behave/pkg/once"
	"golang.org/x/net/html"
)

// attachTextarea adds a resize grip below resizable textareas.
func attachTextarea(root *html.Node, s Settings) error {
	if s.Textarea.Disabled {
		return nil
	}
	for _, w := range once.Select("textarea", root, ".form-textarea-wrapper.resizable") {
		ta := dom.Query(w, "textarea")
		if ta == nil {
			continue
		}
		dom.AddClass(w, "resizable-textarea")
		dom.InsertAfter(ta, dom.Div(dom.Class("grippie")))
	}
	return nil
}
