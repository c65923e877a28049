package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/vango-dev/behave/internal/config"
	"github.com/vango-dev/behave/internal/errors"
	"github.com/vango-dev/behave/internal/site"
	"github.com/vango-dev/behave/pkg/behavior"
	"github.com/vango-dev/behave/pkg/dom"
	"github.com/vango-dev/behave/pkg/fragment"
	"github.com/vango-dev/behave/pkg/page"
)

// loadConfig loads the --config file, or searches upward from the working
// directory. Without any behave.json the defaults are used.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.LoadFile(configFile)
	} else {
		cfg, err = config.LoadFromWorkingDir()
		if errors.HasCode(err, "E121") {
			cfg, err = config.New(), nil
		}
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// newFragmentSource builds the configured source. Concurrent fetches of
// the same key are coalesced.
func newFragmentSource(cfg *config.Config) fragment.Source {
	fc := cfg.Fragments
	var src fragment.Source
	switch fc.Kind {
	case config.FragmentsHTTP:
		src = &fragment.HTTPSource{
			BaseURL: fc.BaseURL,
			Client:  &http.Client{Timeout: cfg.TimeoutDuration()},
			Header:  http.Header{"X-Requested-With": {"XMLHttpRequest"}},
		}
	case config.FragmentsS3:
		src = fragment.NewS3Source(fragment.NewS3Client(fc.Region, fc.Endpoint), fc.Bucket, fc.Prefix)
	default:
		src = fragment.Static{}
	}
	return fragment.Coalesce(src, cfg.TimeoutDuration())
}

// pipeline processes pages with the site behaviors.
type pipeline struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *behavior.Metrics
	source   fragment.Source
	settings []byte
}

func newPipeline(cfg *config.Config, logger *slog.Logger, metrics *behavior.Metrics) (*pipeline, error) {
	pl := &pipeline{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		source:  newFragmentSource(cfg),
	}
	if path := cfg.SettingsPath(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.New("E122").
				WithDetail("Cannot read settings file " + path).
				Wrap(err)
		}
		pl.settings = data
	}
	return pl, nil
}

// trigger is an event fired at every element matching Selector once the
// page has loaded.
type trigger struct {
	Type     string
	Value    string
	Selector string
}

// parseTrigger reads "type[=value]:selector", e.g. "click:#one a" or
// "change=sports:.filter-act".
func parseTrigger(s string) (trigger, error) {
	head, selector, ok := strings.Cut(s, ":")
	typ, value, _ := strings.Cut(head, "=")
	selector = strings.TrimSpace(selector)
	if !ok || typ == "" || selector == "" {
		return trigger{}, errors.New("E151").WithDetail(fmt.Sprintf("Cannot parse trigger %q.", s))
	}
	if _, err := dom.Compile(selector); err != nil {
		return trigger{}, errors.New("E151").
			WithDetail(fmt.Sprintf("Trigger %q has an invalid selector.", s)).
			Wrap(err)
	}
	return trigger{Type: typ, Value: value, Selector: selector}, nil
}

func parseTriggers(specs []string) ([]trigger, error) {
	var out []trigger
	for _, s := range specs {
		tr, err := parseTrigger(s)
		if err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, nil
}

// outcome is the result of processing one page.
type outcome struct {
	host     *site.Host
	failures []behavior.Failure
	reloads  []string
}

// process parses a page, attaches the site behaviors and waits for their
// async work. Triggers then fire in order, each settling before the next
// one looks up its targets. Settings embedded in the page win over the
// settings file.
func (pl *pipeline) process(ctx context.Context, r io.Reader, cookies page.Cookies, triggers []trigger) (*outcome, error) {
	doc, err := dom.ParseDocument(r)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	raw, ok := site.ExtractSettings(doc)
	if !ok {
		raw = pl.settings
	}
	settings, err := site.DecodeSettings(raw)
	if err != nil {
		pl.logger.Warn("settings partially decoded", "error", err)
	}

	collector := &behavior.ErrorCollector{}
	reg := behavior.NewRegistry[site.Settings](
		behavior.WithLogger(pl.logger),
		behavior.WithReporter(collector),
		behavior.WithMetrics(pl.metrics),
	)
	nav := &page.RecordingNavigator{}
	host := page.New(doc, reg, settings,
		page.WithLogger(pl.logger),
		page.WithNavigator(nav),
		page.WithCookies(cookies),
	)
	err = site.Register(host, site.Deps{
		Fragments: pl.source,
		Viewport: site.Viewport{
			Width:            pl.cfg.Viewport.Width,
			DevicePixelRatio: pl.cfg.Viewport.DevicePixelRatio,
			CookiesDisabled:  pl.cfg.Viewport.CookiesDisabled,
		},
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, pl.cfg.TimeoutDuration())
	defer cancel()

	host.Load(ctx)
	if err := host.Settle(ctx); err != nil {
		return nil, fmt.Errorf("page did not settle: %w", err)
	}

	for _, tr := range triggers {
		targets := dom.QueryAll(doc, tr.Selector)
		if len(targets) == 0 {
			return nil, errors.New("E151").
				WithDetail(fmt.Sprintf("Trigger selector %q matches no element.", tr.Selector))
		}
		for _, n := range targets {
			host.Trigger(n, tr.Type, tr.Value)
		}
		if err := host.Settle(ctx); err != nil {
			return nil, fmt.Errorf("page did not settle after %s: %w", tr.Type, err)
		}
	}

	return &outcome{
		host:     host,
		failures: collector.Failures(),
		reloads:  nav.Reloads(),
	}, nil
}
