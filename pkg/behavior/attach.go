package behavior

import (
	"context"
	"fmt"
	"time"

	"github.com/vango-dev/behave/internal/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"
)

// AttachAll runs every behavior's Attach against root in registration
// order. Failures are isolated per behavior; see the package docs.
func (r *Registry[S]) AttachAll(ctx context.Context, root *html.Node, settings S) {
	entries := r.snapshot()

	ctx, span := r.tracer.Start(ctx, "behavior.AttachAll",
		trace.WithAttributes(attribute.Int("behave.behaviors", len(entries))))
	defer span.End()

	failed := 0
	for _, e := range entries {
		b := e.behavior
		if !r.invoke(ctx, e.name, PhaseAttach, "", func() error {
			return b.Attach(root, settings)
		}) {
			failed++
		}
	}
	r.finishPass(span, PhaseAttach, failed)
}

// DetachAll runs Detach on every behavior that implements Detacher, in
// reverse registration order. An unknown reason is reported and nothing
// runs.
func (r *Registry[S]) DetachAll(ctx context.Context, root *html.Node, settings S, reason Reason) {
	if !reason.Valid() {
		r.fail(Failure{
			Phase:  PhaseDetach,
			Reason: reason,
			Err:    errors.New("E102").WithDetail(fmt.Sprintf("got %q", string(reason))),
		})
		return
	}

	entries := r.snapshot()

	ctx, span := r.tracer.Start(ctx, "behavior.DetachAll",
		trace.WithAttributes(
			attribute.Int("behave.behaviors", len(entries)),
			attribute.String("behave.reason", string(reason)),
		))
	defer span.End()

	failed := 0
	for i := len(entries) - 1; i >= 0; i-- {
		d, ok := entries[i].behavior.(Detacher[S])
		if !ok {
			continue
		}
		if !r.invoke(ctx, entries[i].name, PhaseDetach, reason, func() error {
			return d.Detach(root, settings, reason)
		}) {
			failed++
		}
	}
	r.finishPass(span, PhaseDetach, failed)
}

// invoke runs fn inside the per-behavior failure boundary. It reports
// whether fn completed without error.
func (r *Registry[S]) invoke(ctx context.Context, name string, phase Phase, reason Reason, fn func() error) (ok bool) {
	_, span := r.tracer.Start(ctx, "behavior."+string(phase),
		trace.WithAttributes(attribute.String("behave.behavior", name)))
	start := time.Now()

	defer func() {
		outcome := outcomeOK
		if p := recover(); p != nil {
			outcome = outcomePanic
			err := errors.New("E112").WithBehavior(name).Wrap(fmt.Errorf("panic: %v", p))
			r.fail(Failure{Behavior: name, Phase: phase, Reason: reason, Err: err})
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Message)
			ok = false
		} else if !ok {
			outcome = outcomeError
		}
		if r.metrics != nil {
			r.metrics.observe(name, phase, outcome, time.Since(start))
		}
		span.End()
	}()

	if err := fn(); err != nil {
		code := "E110"
		if phase == PhaseDetach {
			code = "E111"
		}
		wrapped := errors.New(code).WithBehavior(name).Wrap(err)
		r.fail(Failure{Behavior: name, Phase: phase, Reason: reason, Err: wrapped})
		span.RecordError(err)
		span.SetStatus(codes.Error, wrapped.Message)
		return false
	}
	return true
}

func (r *Registry[S]) fail(f Failure) {
	attrs := []any{"phase", string(f.Phase), "error", f.Err}
	if f.Behavior != "" {
		attrs = append(attrs, "behavior", f.Behavior)
	}
	if f.Reason != "" {
		attrs = append(attrs, "reason", string(f.Reason))
	}
	r.logger.Warn("behavior failed", attrs...)

	if r.reporter != nil {
		r.reporter.Report(f)
	}
}

func (r *Registry[S]) finishPass(span trace.Span, phase Phase, failed int) {
	span.SetAttributes(attribute.Int("behave.failed", failed))
	if failed > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d behaviors failed", failed))
	}
	if r.metrics != nil {
		r.metrics.passes.WithLabelValues(string(phase)).Inc()
	}
}
