package site

import (
	"github.com/vango-dev/behave/pkg/dom"
	"github.com/vango-dev/behave/pkg/once"
	"golang.org/x/net/html"
)

// attachImageZoom tags gallery images and their category links.
func attachImageZoom(root *html.Node, s Settings) error {
	if s.ImageZoom.Disabled {
		return nil
	}
	for _, img := range once.Select("image-zoom", root, ".image-container img") {
		dom.AddClass(img, "zoom")
	}
	for _, a := range once.Select("image-zoom", root, ".image-container span a") {
		dom.AddClass(a, "cat")
	}
	return nil
}
