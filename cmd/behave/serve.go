package main

import (
	"bytes"
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/vango-dev/behave/internal/config"
	"github.com/vango-dev/behave/internal/errors"
	"github.com/vango-dev/behave/pkg/behavior"
	"github.com/vango-dev/behave/pkg/dom"
	"github.com/vango-dev/behave/pkg/page"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Response headers describing the page pass.
const (
	headerReload   = "X-Behave-Reload"
	headerFailures = "X-Behave-Failures"
)

const serverTracerName = "github.com/vango-dev/behave/cmd/behave"

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve pages with behaviors applied",
		Long: `Serve the pages directory over HTTP. Every HTML page is processed
per request: request cookies are visible to behaviors, and the result
is rendered once their async work has settled.

Routes:
  GET  /healthz   liveness check
  GET  /metrics   Prometheus metrics
  GET  /*         pages and static files
  POST /*         a page with the form's "trigger" events fired
                  (type[=value]:selector, repeatable)

Examples:
  behave serve
  behave serve --addr=:9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from behave.json)")

	return cmd
}

func runServe(ctx context.Context, addr string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	logger := newLogger(os.Stderr, cfg.LogLevel())
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := behavior.NewMetrics(metricsOptions(cfg, registry)...)

	pl, err := newPipeline(cfg, logger, metrics)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newRouter(pl, registry),
		ReadHeaderTimeout: 10 * time.Second,
	}

	printBanner()
	success("Serving %s", cfg.PagesPath())
	info("Listening on %s", cfg.Server.Addr)
	if cfg.Fragments.Kind == config.FragmentsStatic {
		warn("No fragment source configured, flag toggles will not reach the site")
	} else {
		info("Fragments from %s source", cfg.Fragments.Kind)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !stderrors.Is(err, http.ErrServerClosed) {
			errorMsg("Server stopped: %v", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// metricsOptions maps the metrics section of behave.json to collector
// options.
func metricsOptions(cfg *config.Config, registry prometheus.Registerer) []behavior.MetricsOption {
	mc := cfg.Metrics
	opts := []behavior.MetricsOption{behavior.WithRegisterer(registry)}
	if mc.Namespace != "" {
		opts = append(opts, behavior.WithNamespace(mc.Namespace))
	}
	if mc.Subsystem != "" {
		opts = append(opts, behavior.WithSubsystem(mc.Subsystem))
	}
	if len(mc.ConstLabels) > 0 {
		opts = append(opts, behavior.WithConstLabels(prometheus.Labels(mc.ConstLabels)))
	}
	if len(mc.Buckets) > 0 {
		opts = append(opts, behavior.WithBuckets(mc.Buckets))
	}
	return opts
}

// newRouter builds the HTTP handler. gatherer backs /metrics.
func newRouter(pl *pipeline, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(pl.logger))
	r.Use(middleware.Recoverer)
	r.Use(traceRequests)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/*", pl.servePage)
	r.Post("/*", pl.servePage)

	return r
}

func (pl *pipeline) servePage(w http.ResponseWriter, r *http.Request) {
	name := path.Clean("/" + chi.URLParam(r, "*"))
	if name == "/" {
		name = "/index.html"
	}
	file := filepath.Join(pl.cfg.PagesPath(), filepath.FromSlash(name))

	fi, err := os.Stat(file)
	if err == nil && fi.IsDir() {
		file = filepath.Join(file, "index.html")
		fi, err = os.Stat(file)
	}
	if err != nil {
		http.NotFound(w, r)
		return
	}

	ext := strings.ToLower(filepath.Ext(fi.Name()))
	if ext != ".html" && ext != ".htm" {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		http.ServeFile(w, r, file)
		return
	}

	var triggers []trigger
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		triggers, err = parseTriggers(r.PostForm["trigger"])
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	f, err := os.Open(file)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	defer f.Close()

	cookies := page.Cookies{}
	for _, c := range r.Cookies() {
		cookies[c.Name] = c.Value
	}

	res, err := pl.process(r.Context(), f, cookies, triggers)
	if errors.HasCode(err, "E151") {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		pl.logger.Error("page processing failed", "page", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := res.host.Render(&buf, dom.RenderOptions{}); err != nil {
		pl.logger.Error("page render failed", "page", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(res.reloads) > 0 {
		w.Header().Set(headerReload, strings.Join(res.reloads, "; "))
	}
	if len(res.failures) > 0 {
		w.Header().Set(headerFailures, strconv.Itoa(len(res.failures)))
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// requestLogger logs one line per request with slog.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// traceRequests starts a server span per request. Behavior passes for the
// page become its children.
func traceRequests(next http.Handler) http.Handler {
	tracer := otel.Tracer(serverTracerName)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
			),
		)
		defer span.End()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	})
}
