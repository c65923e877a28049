package dom

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseDocument parses a complete HTML document.
func ParseDocument(r io.Reader) (*html.Node, error) {
	return html.Parse(r)
}

// ParseFragment parses markup in the context of the given element and
// returns the top-level nodes, detached from any parent. A nil context
// parses as if inside a <body>.
func ParseFragment(r io.Reader, context *html.Node) ([]*html.Node, error) {
	if context == nil || context.Type != html.ElementNode {
		context = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	}
	return html.ParseFragment(r, context)
}

// ParseFragmentString is ParseFragment over a string.
func ParseFragmentString(s string, context *html.Node) ([]*html.Node, error) {
	return ParseFragment(strings.NewReader(s), context)
}

// IsElement reports whether n is an element node.
func IsElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

// Document returns the document node that n belongs to, or nil when n is
// not attached to a document.
func Document(n *html.Node) *html.Node {
	for ; n != nil; n = n.Parent {
		if n.Type == html.DocumentNode {
			return n
		}
	}
	return nil
}

// Contains reports whether n is root or one of its descendants.
func Contains(root, n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == root {
			return true
		}
	}
	return false
}

// Closest returns the nearest ancestor of n (starting with n itself) that
// matches selector.
func Closest(n *html.Node, selector string) *html.Node {
	sel, err := Compile(selector)
	if err != nil {
		return nil
	}
	for ; n != nil; n = n.Parent {
		if IsElement(n) && sel.Match(n) {
			return n
		}
	}
	return nil
}

// Walk visits n and its descendants in document order. Returning false
// from fn skips the node's children.
func Walk(n *html.Node, fn func(*html.Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		Walk(c, fn)
		c = next
	}
}

// Elements returns the element children of n.
func Elements(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// TextContent returns the concatenated text of n and its descendants.
func TextContent(n *html.Node) string {
	var b strings.Builder
	Walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		return true
	})
	return b.String()
}

// SetText replaces the children of n with a single text node.
func SetText(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	if text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
}

// Append appends nodes to parent, detaching them from any previous parent.
func Append(parent *html.Node, nodes ...*html.Node) {
	for _, n := range nodes {
		Detach(n)
		parent.AppendChild(n)
	}
}

// InsertAfter inserts nodes immediately after ref, preserving their order.
func InsertAfter(ref *html.Node, nodes ...*html.Node) {
	parent := ref.Parent
	if parent == nil {
		return
	}
	next := ref.NextSibling
	for _, n := range nodes {
		Detach(n)
		parent.InsertBefore(n, next)
	}
}

// ReplaceWith puts nodes where old is and removes old. It reports false
// when old has no parent.
func ReplaceWith(old *html.Node, nodes ...*html.Node) bool {
	parent := old.Parent
	if parent == nil {
		return false
	}
	for _, n := range nodes {
		Detach(n)
		parent.InsertBefore(n, old)
	}
	parent.RemoveChild(old)
	return true
}

// Detach removes n from its parent, if any.
func Detach(n *html.Node) {
	if n != nil && n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}
