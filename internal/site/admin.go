package site

import (
	"github.com/vango-dev/behave/pkg/dom"
	"github.com/vango-dev/behave/pkg/once"
	"golang.org/x/net/html"
)

// attachAdminMenu offsets the body for the admin menu bar.
func attachAdminMenu(root *html.Node, s Settings) error {
	if s.AdminMenu.Suppress || !s.AdminMenu.MarginTop {
		return nil
	}
	for _, body := range once.Select("admin-menu", root, "body") {
		dom.AddClass(body, "admin-menu")
	}
	return nil
}
