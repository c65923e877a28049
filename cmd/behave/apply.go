package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/vango-dev/behave/internal/config"
	"github.com/vango-dev/behave/internal/errors"
	"github.com/vango-dev/behave/pkg/dom"
	"github.com/vango-dev/behave/pkg/page"
)

type applyOptions struct {
	settings string
	out      string
	pretty   bool
	strict   bool
	timeout  time.Duration
	cookies  []string
	triggers []string
}

func applyCmd() *cobra.Command {
	var opts applyOptions

	cmd := &cobra.Command{
		Use:   "apply <file>",
		Short: "Attach behaviors to an HTML file and print the result",
		Long: `Parse an HTML file, attach every site behavior, wait for their
async work and print the resulting document.

Use "-" to read the page from stdin. Behavior failures are reported on
stderr; with --strict they also make the command fail.

--trigger fires an event at the loaded page, as type[=value]:selector.
Handlers run on the page loop and their async work settles before the
next trigger and before the page is printed.

Examples:
  behave apply index.html
  behave apply index.html --settings settings.json --pretty
  behave apply page.html --cookie flags=bookmarks_12 --out out.html
  behave apply page.html --trigger 'click:#one a.flag-link-toggle'
  behave apply page.html --trigger 'change=sports:.filter-act'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.settings, "settings", "", "Settings JSON file (default from behave.json)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Write the result to a file instead of stdout")
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "Indent the output")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Fail when any behavior fails")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Bound for the whole pass (default from behave.json)")
	cmd.Flags().StringArrayVar(&opts.cookies, "cookie", nil, "Cookie visible to behaviors, as name=value (repeatable)")
	cmd.Flags().StringArrayVar(&opts.triggers, "trigger", nil, "Event fired after load, as type[=value]:selector (repeatable)")

	return cmd
}

func runApply(cmd *cobra.Command, file string, opts applyOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if opts.timeout > 0 {
		cfg.Timeout = config.Duration(opts.timeout)
	}
	if opts.settings != "" {
		abs, err := filepath.Abs(opts.settings)
		if err != nil {
			return err
		}
		cfg.Settings = abs
	}

	cookies, err := parseCookies(opts.cookies)
	if err != nil {
		return err
	}
	triggers, err := parseTriggers(opts.triggers)
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	pl, err := newPipeline(cfg, newLogger(stderr, cfg.LogLevel()), nil)
	if err != nil {
		return err
	}

	var in io.Reader = cmd.InOrStdin()
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	res, err := pl.process(cmd.Context(), in, cookies, triggers)
	if err != nil {
		return err
	}

	if err := writeOutput(cmd.OutOrStdout(), opts, res); err != nil {
		return err
	}

	for _, reason := range res.reloads {
		fmt.Fprintf(stderr, "reload requested: %s\n", reason)
	}
	for _, f := range res.failures {
		errors.Fprint(stderr, f.Err)
	}
	if opts.strict && len(res.failures) > 0 {
		return errors.New("E150").
			WithDetail(fmt.Sprintf("%d behavior failures while processing %s", len(res.failures), file))
	}
	return nil
}

func writeOutput(stdout io.Writer, opts applyOptions, res *outcome) error {
	renderOpts := dom.RenderOptions{Pretty: opts.pretty}
	if opts.out == "" {
		return res.host.Render(stdout, renderOpts)
	}

	f, err := os.Create(opts.out)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := res.host.Render(w, renderOpts); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func parseCookies(pairs []string) (page.Cookies, error) {
	cookies := page.Cookies{}
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid cookie %q, want name=value", pair)
		}
		cookies[name] = value
	}
	return cookies, nil
}
