// Package once records which behaviors have already processed an element.
//
// A marker is an id stored in the element's data-once attribute, a
// space-separated set, so an element can carry markers for any number of
// behaviors:
//
//	<div class="todo" data-once="highlight animate">
//
// Select is the guard every behavior uses inside Attach: it returns only
// the matching elements that do not carry the id yet and marks them in the
// same step, so a second pass over the same root selects nothing.
package once

import (
	"strconv"
	"strings"

	"github.com/vango-dev/behave/pkg/dom"
	"golang.org/x/net/html"
)

// Attr is the attribute that holds the marker set.
const Attr = "data-once"

// ValidID reports whether id can be used as a marker.
func ValidID(id string) bool {
	return id != "" && !strings.ContainsAny(id, " \t\n\r\f")
}

// IDs returns the markers carried by n.
func IDs(n *html.Node) []string {
	return strings.Fields(dom.Attr(n, Attr))
}

// Has reports whether n carries the marker id.
func Has(n *html.Node, id string) bool {
	for _, have := range IDs(n) {
		if have == id {
			return true
		}
	}
	return false
}

// Mark records id on n. It reports false when n already carried it.
func Mark(n *html.Node, id string) bool {
	if !ValidID(id) {
		panic("once: invalid id " + strconv.Quote(id))
	}
	ids := IDs(n)
	for _, have := range ids {
		if have == id {
			return false
		}
	}
	dom.SetAttr(n, Attr, strings.Join(append(ids, id), " "))
	return true
}

// Unmark removes id from n. It reports whether n carried it.
func Unmark(n *html.Node, id string) bool {
	ids := IDs(n)
	kept := ids[:0]
	found := false
	for _, have := range ids {
		if have == id {
			found = true
			continue
		}
		kept = append(kept, have)
	}
	if !found {
		return false
	}
	if len(kept) == 0 {
		dom.RemoveAttr(n, Attr)
	} else {
		dom.SetAttr(n, Attr, strings.Join(kept, " "))
	}
	return true
}

// Select returns the elements within root (root included) that match
// selector and do not carry id, marking each of them.
func Select(id string, root *html.Node, selector string) []*html.Node {
	return Filter(id, dom.QueryAll(root, selector))
}

// Filter marks and returns the nodes that do not carry id yet.
func Filter(id string, nodes []*html.Node) []*html.Node {
	var out []*html.Node
	for _, n := range nodes {
		if Mark(n, id) {
			out = append(out, n)
		}
	}
	return out
}

// Find returns the elements within root that match selector and already
// carry id.
func Find(id string, root *html.Node, selector string) []*html.Node {
	var out []*html.Node
	for _, n := range dom.QueryAll(root, selector) {
		if Has(n, id) {
			out = append(out, n)
		}
	}
	return out
}

// Remove clears id from the matching elements within root and returns
// those that carried it.
func Remove(id string, root *html.Node, selector string) []*html.Node {
	var out []*html.Node
	for _, n := range dom.QueryAll(root, selector) {
		if Unmark(n, id) {
			out = append(out, n)
		}
	}
	return out
}
