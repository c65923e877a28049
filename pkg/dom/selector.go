package dom

import (
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// selectorCache holds compiled selectors keyed by source text.
var selectorCache sync.Map

// Compile parses a selector group such as ".a, .b", reusing a previously
// compiled copy.
func Compile(selector string) (cascadia.Matcher, error) {
	if cached, ok := selectorCache.Load(selector); ok {
		return cached.(cascadia.Matcher), nil
	}
	sel, err := cascadia.ParseGroup(selector)
	if err != nil {
		return nil, err
	}
	selectorCache.Store(selector, sel)
	return sel, nil
}

// MustCompile is like Compile but panics on a malformed selector.
func MustCompile(selector string) cascadia.Matcher {
	sel, err := Compile(selector)
	if err != nil {
		panic("dom: invalid selector " + selector + ": " + err.Error())
	}
	return sel
}

// QueryAll returns the elements matching selector within root, root
// included, in document order. A malformed selector matches nothing.
func QueryAll(root *html.Node, selector string) []*html.Node {
	sel, err := Compile(selector)
	if err != nil || root == nil {
		return nil
	}
	var out []*html.Node
	if IsElement(root) && sel.Match(root) {
		out = append(out, root)
	}
	return append(out, cascadia.QueryAll(root, sel)...)
}

// Query returns the first element matching selector within root, root
// included.
func Query(root *html.Node, selector string) *html.Node {
	sel, err := Compile(selector)
	if err != nil || root == nil {
		return nil
	}
	if IsElement(root) && sel.Match(root) {
		return root
	}
	return cascadia.Query(root, sel)
}

// Matches reports whether n matches selector.
func Matches(n *html.Node, selector string) bool {
	if !IsElement(n) {
		return false
	}
	sel, err := Compile(selector)
	if err != nil {
		return false
	}
	return sel.Match(n)
}
