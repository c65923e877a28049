package behavior

import (
	"log/slog"
	"reflect"
	"sync"

	"github.com/vango-dev/behave/internal/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/vango-dev/behave/pkg/behavior"

// entry is one registered behavior.
type entry[S any] struct {
	name     string
	behavior Behavior[S]
}

// Registry holds behaviors in registration order and runs them.
//
// Behaviors are expected to be registered before the first pass. Passes
// run on a snapshot of the registry, so a behavior registered during a
// pass takes part from the next pass on.
type Registry[S any] struct {
	mu      sync.RWMutex
	entries []entry[S]
	index   map[string]int

	logger   *slog.Logger
	reporter Reporter
	metrics  *Metrics
	tracer   trace.Tracer
}

// Option configures a Registry.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	reporter Reporter
	metrics  *Metrics
	tracer   trace.Tracer
}

// WithLogger sets the logger used for failures. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithReporter sets the diagnostics collaborator that receives failures.
func WithReporter(r Reporter) Option {
	return func(o *options) {
		o.reporter = r
	}
}

// WithMetrics records pass outcomes in Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithTracer sets the tracer used for pass spans. Defaults to the global
// OpenTelemetry tracer provider.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}

// NewRegistry creates an empty Registry.
func NewRegistry[S any](opts ...Option) *Registry[S] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}
	return &Registry[S]{
		index:    make(map[string]int),
		logger:   o.logger,
		reporter: o.reporter,
		metrics:  o.metrics,
		tracer:   o.tracer,
	}
}

// Register adds b under name. Registering the identical implementation
// again is a no-op. Registering a different implementation under a taken
// name returns an E100 error and keeps the first one.
func (r *Registry[S]) Register(name string, b Behavior[S]) error {
	if name == "" || isNil(b) {
		return errors.New("E101").WithBehavior(name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if i, ok := r.index[name]; ok {
		if sameBehavior(r.entries[i].behavior, b) {
			return nil
		}
		return errors.New("E100").
			WithBehavior(name).
			WithSuggestion("Use a distinct name or register the behavior once at startup")
	}

	r.index[name] = len(r.entries)
	r.entries = append(r.entries, entry[S]{name: name, behavior: b})
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry[S]) MustRegister(name string, b Behavior[S]) {
	if err := r.Register(name, b); err != nil {
		panic(err)
	}
}

// Lookup returns the behavior registered under name.
func (r *Registry[S]) Lookup(name string) (Behavior[S], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.entries[i].behavior, true
}

// Names returns behavior names in registration order.
func (r *Registry[S]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.name
	}
	return names
}

// Len returns the number of registered behaviors.
func (r *Registry[S]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Registry[S]) snapshot() []entry[S] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entry[S], len(r.entries))
	copy(out, r.entries)
	return out
}

func isNil(b any) bool {
	if b == nil {
		return true
	}
	v := reflect.ValueOf(b)
	switch v.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Interface, reflect.Slice, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// sameBehavior reports whether a and b are the same implementation.
// Functions compare by code pointer, structs field by field.
func sameBehavior(a, b any) bool {
	return sameValue(reflect.ValueOf(a), reflect.ValueOf(b))
}

func sameValue(a, b reflect.Value) bool {
	if !a.IsValid() || !b.IsValid() {
		return a.IsValid() == b.IsValid()
	}
	if a.Type() != b.Type() {
		return false
	}
	switch a.Kind() {
	case reflect.Func:
		return a.Pointer() == b.Pointer()
	case reflect.Interface:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() == b.IsNil()
		}
		return sameValue(a.Elem(), b.Elem())
	case reflect.Struct:
		for i := 0; i < a.NumField(); i++ {
			if !sameValue(a.Field(i), b.Field(i)) {
				return false
			}
		}
		return true
	case reflect.Map, reflect.Slice:
		return a.Pointer() == b.Pointer() && a.Len() == b.Len()
	}
	if a.Type().Comparable() {
		return a.Equal(b)
	}
	return false
}
