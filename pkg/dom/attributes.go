package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Attr returns the value of the attribute key, or "" when absent.
func Attr(n *html.Node, key string) string {
	v, _ := LookupAttr(n, key)
	return v
}

// LookupAttr returns the value of the attribute key and whether it exists.
func LookupAttr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// HasAttr reports whether n carries the attribute key.
func HasAttr(n *html.Node, key string) bool {
	_, ok := LookupAttr(n, key)
	return ok
}

// SetAttr sets the attribute key to val, adding it when absent.
func SetAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr removes the attribute key. It reports whether it was present.
func RemoveAttr(n *html.Node, key string) bool {
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return true
		}
	}
	return false
}

// Classes returns the class tokens of n.
func Classes(n *html.Node) []string {
	return strings.Fields(Attr(n, "class"))
}

// HasClass reports whether n has every one of the given classes.
func HasClass(n *html.Node, classes ...string) bool {
	have := Classes(n)
	for _, want := range classes {
		found := false
		for _, c := range have {
			if c == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return len(classes) > 0
}

// AddClass adds classes to n, skipping those already present.
func AddClass(n *html.Node, classes ...string) {
	have := Classes(n)
	changed := false
	for _, c := range classes {
		if c == "" || containsToken(have, c) {
			continue
		}
		have = append(have, c)
		changed = true
	}
	if changed {
		SetAttr(n, "class", strings.Join(have, " "))
	}
}

// RemoveClass removes classes from n. The class attribute is dropped when
// no classes remain.
func RemoveClass(n *html.Node, classes ...string) {
	have := Classes(n)
	kept := have[:0]
	for _, c := range have {
		if !containsToken(classes, c) {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		RemoveAttr(n, "class")
		return
	}
	SetAttr(n, "class", strings.Join(kept, " "))
}

// ToggleClass adds or removes class depending on on.
func ToggleClass(n *html.Node, class string, on bool) {
	if on {
		AddClass(n, class)
	} else {
		RemoveClass(n, class)
	}
}

func containsToken(tokens []string, tok string) bool {
	for _, t := range tokens {
		if t == tok {
			return true
		}
	}
	return false
}
