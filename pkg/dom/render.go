package dom

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// RenderOptions configures HTML output.
type RenderOptions struct {
	// Pretty enables indented output for block elements.
	// Should only be used for debugging as it changes whitespace.
	Pretty bool

	// Indent is the string used for each indentation level in pretty mode.
	// Defaults to two spaces if not specified.
	Indent string
}

// inlineElements are not broken onto their own line in pretty mode.
var inlineElements = map[string]bool{
	"a": true, "abbr": true, "b": true, "code": true, "em": true,
	"i": true, "img": true, "label": true, "option": true, "small": true,
	"span": true, "strong": true, "textarea": true, "title": true,
}

// rawTextElements hold content that must not be escaped or reindented.
var rawTextElements = map[string]bool{
	"script": true, "style": true, "pre": true, "textarea": true,
}

// Render writes n to w.
func Render(w io.Writer, n *html.Node, opts RenderOptions) error {
	if !opts.Pretty {
		return html.Render(w, n)
	}
	if opts.Indent == "" {
		opts.Indent = "  "
	}
	p := &prettyPrinter{w: w, indent: opts.Indent}
	p.node(n, 0)
	return p.err
}

// RenderString renders n to a string.
func RenderString(n *html.Node, opts RenderOptions) (string, error) {
	var buf bytes.Buffer
	if err := Render(&buf, n, opts); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderChildren renders the children of n without n itself.
func RenderChildren(n *html.Node) (string, error) {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// MustRenderString renders n compactly and panics on error.
// Intended for tests and debugging.
func MustRenderString(n *html.Node) string {
	s, err := RenderString(n, RenderOptions{})
	if err != nil {
		panic(err)
	}
	return s
}

type prettyPrinter struct {
	w      io.Writer
	indent string
	err    error
}

func (p *prettyPrinter) write(s string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.w, s)
}

func (p *prettyPrinter) node(n *html.Node, depth int) {
	switch n.Type {
	case html.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			p.node(c, depth)
		}
	case html.ElementNode:
		p.element(n, depth)
	case html.TextNode:
		text := strings.TrimSpace(n.Data)
		if text == "" {
			return
		}
		p.write(strings.Repeat(p.indent, depth))
		p.write(html.EscapeString(text))
		p.write("\n")
	default:
		// Doctype, comments: delegate to the stock renderer.
		var buf bytes.Buffer
		if err := html.Render(&buf, n); err != nil && p.err == nil {
			p.err = err
			return
		}
		p.write(strings.Repeat(p.indent, depth))
		p.write(buf.String())
		p.write("\n")
	}
}

func (p *prettyPrinter) element(n *html.Node, depth int) {
	pad := strings.Repeat(p.indent, depth)

	// Inline and raw-text elements render on one line.
	if inlineElements[n.Data] || rawTextElements[n.Data] {
		var buf bytes.Buffer
		if err := html.Render(&buf, n); err != nil && p.err == nil {
			p.err = err
			return
		}
		p.write(pad)
		p.write(buf.String())
		p.write("\n")
		return
	}

	p.write(pad)
	p.write("<")
	p.write(n.Data)
	for _, a := range n.Attr {
		p.write(" ")
		if a.Namespace != "" {
			p.write(a.Namespace + ":")
		}
		p.write(a.Key)
		p.write(`="`)
		p.write(html.EscapeString(a.Val))
		p.write(`"`)
	}
	p.write(">")

	if IsVoidElement(n.Data) {
		p.write("\n")
		return
	}
	if n.FirstChild == nil {
		p.write("</" + n.Data + ">\n")
		return
	}

	p.write("\n")
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.node(c, depth+1)
	}
	p.write(pad)
	p.write("</" + n.Data + ">\n")
}
