package site

import (
	stderrors "errors"

	"github.com/vango-dev/behave/pkg/behavior"
	"github.com/vango-dev/behave/pkg/dom"
	"github.com/vango-dev/behave/pkg/once"
	"golang.org/x/net/html"
)

// Editor is a rich-text editor bound to a form field.
type Editor interface {
	// Attach creates an editor for field.
	Attach(field *html.Node, trigger WysiwygTrigger) error

	// Serialize writes the editor content back into field.
	Serialize(field *html.Node) error

	// Detach removes the editor. Content is not flushed.
	Detach(field *html.Node) error
}

const wysiwygSelector = ".wysiwyg"

// wysiwyg turns fields with a configured trigger into editors.
type wysiwyg struct {
	editor Editor
}

func (w *wysiwyg) Attach(root *html.Node, s Settings) error {
	var errs []error
	for _, field := range once.Select("wysiwyg", root, wysiwygSelector) {
		trigger, ok := s.Wysiwyg.Triggers[dom.Attr(field, "id")]
		if !ok {
			continue
		}
		if err := w.editor.Attach(field, trigger); err != nil {
			// Left unmarked so a later pass can retry.
			once.Unmark(field, "wysiwyg")
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// Detach always flushes editor content. Only unload and move tear the
// editor down; serialize leaves it running.
func (w *wysiwyg) Detach(root *html.Node, s Settings, reason behavior.Reason) error {
	var errs []error
	for _, field := range once.Find("wysiwyg", root, wysiwygSelector) {
		if _, ok := s.Wysiwyg.Triggers[dom.Attr(field, "id")]; !ok {
			if reason.ClearsMarkers() {
				once.Unmark(field, "wysiwyg")
			}
			continue
		}
		if err := w.editor.Serialize(field); err != nil {
			errs = append(errs, err)
		}
		if !reason.ClearsMarkers() {
			continue
		}
		if err := w.editor.Detach(field); err != nil {
			errs = append(errs, err)
		}
		once.Unmark(field, "wysiwyg")
	}
	return stderrors.Join(errs...)
}

// DOMEditor keeps editor state in a div.wysiwyg-editor placed right after
// the field.
type DOMEditor struct{}

// EditorClass marks the element DOMEditor creates.
const EditorClass = "wysiwyg-editor"

// Attach implements Editor.
func (DOMEditor) Attach(field *html.Node, trigger WysiwygTrigger) error {
	if field.Parent == nil {
		return stderrors.New("wysiwyg: field is not in a document")
	}
	content, err := dom.ParseFragmentString(dom.TextContent(field), field.Parent)
	if err != nil {
		return err
	}
	dom.AddClass(field, "wysiwyg-hidden")
	editor := dom.Div(
		dom.Class(EditorClass),
		dom.Data("editor", trigger.Editor),
		dom.Data("format", trigger.Format),
		content,
	)
	dom.InsertAfter(field, editor)
	return nil
}

// Serialize implements Editor.
func (DOMEditor) Serialize(field *html.Node) error {
	editor := EditorFor(field)
	if editor == nil {
		return nil
	}
	markup, err := dom.RenderChildren(editor)
	if err != nil {
		return err
	}
	dom.SetText(field, markup)
	return nil
}

// Detach implements Editor.
func (DOMEditor) Detach(field *html.Node) error {
	if editor := EditorFor(field); editor != nil {
		dom.Detach(editor)
	}
	dom.RemoveClass(field, "wysiwyg-hidden")
	return nil
}

// EditorFor returns the editor element DOMEditor created for field.
func EditorFor(field *html.Node) *html.Node {
	for n := field.NextSibling; n != nil; n = n.NextSibling {
		if dom.IsElement(n) {
			if dom.HasClass(n, EditorClass) {
				return n
			}
			return nil
		}
	}
	return nil
}
