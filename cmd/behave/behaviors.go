package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vango-dev/behave/internal/site"
	"github.com/vango-dev/behave/pkg/behavior"
	"github.com/vango-dev/behave/pkg/dom"
	"github.com/vango-dev/behave/pkg/page"
)

func behaviorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "behaviors",
		Short: "List registered behaviors in attach order",
		Long: `List the site behaviors in the order they attach. Behaviors marked
"detach" unwind their work when content is unloaded, moved or
serialized; detach passes visit them in reverse order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := behavior.NewRegistry[site.Settings]()
			host := page.New(dom.El("html"), reg, site.DefaultSettings())
			if err := site.Register(host, site.Deps{}); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, name := range reg.Names() {
				b, _ := reg.Lookup(name)
				kind := "attach"
				if _, ok := b.(behavior.Detacher[site.Settings]); ok {
					kind = "attach, detach"
				}
				fmt.Fprintf(out, "%2d  %-20s %s\n", i+1, name, kind)
			}
			return nil
		},
	}
}
