package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Attribute is a single attribute passed to an element builder.
type Attribute struct {
	Key   string
	Value string
}

// voidElements are elements that cannot have children.
var voidElements = map[string]bool{
	"area":   true,
	"base":   true,
	"br":     true,
	"col":    true,
	"embed":  true,
	"hr":     true,
	"img":    true,
	"input":  true,
	"link":   true,
	"meta":   true,
	"param":  true,
	"source": true,
	"track":  true,
	"wbr":    true,
}

// IsVoidElement returns true if the tag is a void element.
func IsVoidElement(tag string) bool {
	return voidElements[tag]
}

// El creates an element with the given tag.
// Arguments can be: nil, Attribute, []Attribute, *html.Node, []*html.Node, string.
func El(tag string, args ...any) *html.Node {
	node := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}

	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
			// Ignore nil (allows conditional attributes)
			continue

		case Attribute:
			if v.Key == "class" {
				AddClass(node, strings.Fields(v.Value)...)
			} else if v.Key != "" {
				SetAttr(node, v.Key, v.Value)
			}

		case []Attribute:
			for _, a := range v {
				if a.Key == "class" {
					AddClass(node, strings.Fields(a.Value)...)
				} else if a.Key != "" {
					SetAttr(node, a.Key, a.Value)
				}
			}

		case *html.Node:
			if v != nil && !IsVoidElement(tag) {
				Append(node, v)
			}

		case []*html.Node:
			if IsVoidElement(tag) {
				continue
			}
			for _, child := range v {
				if child != nil {
					Append(node, child)
				}
			}

		case string:
			// Shorthand for text node
			if !IsVoidElement(tag) {
				node.AppendChild(Text(v))
			}
		}
	}

	return node
}

// Text creates a text node.
func Text(content string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: content}
}

func Div(args ...any) *html.Node      { return El("div", args...) }
func Span(args ...any) *html.Node     { return El("span", args...) }
func A(args ...any) *html.Node        { return El("a", args...) }
func Img(args ...any) *html.Node      { return El("img", args...) }
func Textarea(args ...any) *html.Node { return El("textarea", args...) }
func Select(args ...any) *html.Node   { return El("select", args...) }
func Body(args ...any) *html.Node     { return El("body", args...) }

// AttrKV creates an arbitrary attribute.
func AttrKV(key, value string) Attribute { return Attribute{Key: key, Value: value} }

// ID sets the id attribute.
func ID(id string) Attribute { return AttrKV("id", id) }

// Class sets class tokens; repeated Class arguments accumulate.
func Class(classes ...string) Attribute { return AttrKV("class", strings.Join(classes, " ")) }

// Href sets the href attribute.
func Href(url string) Attribute { return AttrKV("href", url) }

// Src sets the src attribute.
func Src(url string) Attribute { return AttrKV("src", url) }

// Value sets the value attribute.
func Value(v string) Attribute { return AttrKV("value", v) }

// Data creates a data-* attribute.
// Example: Data("id", "123") → data-id="123"
func Data(key, value string) Attribute { return AttrKV("data-"+key, value) }
