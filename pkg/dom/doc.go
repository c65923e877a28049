// Package dom provides the live document model that behaviors augment.
//
// Documents and fragments are golang.org/x/net/html node trees. The
// package adds what behavior code reaches for constantly: CSS selection
// scoped to a root, class and attribute manipulation, tree mutations and
// small element builders.
//
// # Selection
//
// QueryAll matches the root itself as well as its descendants, so a
// behavior attached to a freshly inserted element sees that element:
//
//	for _, n := range dom.QueryAll(root, ".todo") {
//	    dom.AddClass(n, "highlighted")
//	}
//
// Selectors are compiled once and cached.
//
// # Builders
//
//	dom.Div(dom.Class("flag-wrapper"),
//	    dom.A(dom.Href("/flag/1"), dom.Class("flag"), "Bookmark"),
//	)
//
// # Rendering
//
// Render writes a node back to HTML; RenderOptions.Pretty indents block
// elements for debugging.
package dom
