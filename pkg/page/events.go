package page

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vango-dev/behave/pkg/dom"
	"golang.org/x/net/html"
)

// Event is dispatched to bound handlers.
type Event struct {
	// Type is the event name, e.g. "click" or "inview".
	Type string

	// Target is the element the event was triggered on.
	Target *html.Node

	// Value carries the control value for change events.
	Value string

	defaultPrevented bool
}

// PreventDefault marks the event as handled.
func (e *Event) PreventDefault() { e.defaultPrevented = true }

// DefaultPrevented reports whether a handler called PreventDefault.
func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }

// Handler handles an event.
type Handler func(ctx context.Context, e *Event)

type binding struct {
	ns      string
	handler Handler
}

// Events is the per-element handler table. Bindings are keyed by element
// identity; namespaces let a behavior unbind only its own handlers.
//
// Events is not safe for concurrent use; it belongs to the page loop.
type Events struct {
	bindings map[*html.Node]map[string][]binding
	logger   *slog.Logger
}

// NewEvents creates an empty table.
func NewEvents(logger *slog.Logger) *Events {
	if logger == nil {
		logger = slog.Default()
	}
	return &Events{
		bindings: make(map[*html.Node]map[string][]binding),
		logger:   logger,
	}
}

// On binds h to events of type typ on n under namespace ns.
func (e *Events) On(n *html.Node, typ, ns string, h Handler) {
	byType := e.bindings[n]
	if byType == nil {
		byType = make(map[string][]binding)
		e.bindings[n] = byType
	}
	byType[typ] = append(byType[typ], binding{ns: ns, handler: h})
}

// Off unbinds handlers on n. An empty typ matches every type and an empty
// ns matches every namespace. It returns the number of handlers removed.
func (e *Events) Off(n *html.Node, typ, ns string) int {
	byType := e.bindings[n]
	if byType == nil {
		return 0
	}
	removed := 0
	for t, list := range byType {
		if typ != "" && t != typ {
			continue
		}
		kept := list[:0]
		for _, b := range list {
			if ns == "" || b.ns == ns {
				removed++
				continue
			}
			kept = append(kept, b)
		}
		if len(kept) == 0 {
			delete(byType, t)
		} else {
			byType[t] = kept
		}
	}
	if len(byType) == 0 {
		delete(e.bindings, n)
	}
	return removed
}

// OffWithin unbinds namespace ns (every namespace when empty) from root
// and all its descendants.
func (e *Events) OffWithin(root *html.Node, ns string) int {
	removed := 0
	for n := range e.bindings {
		if dom.Contains(root, n) {
			removed += e.Off(n, "", ns)
		}
	}
	return removed
}

// Count returns the number of handlers bound on n for typ.
func (e *Events) Count(n *html.Node, typ string) int {
	return len(e.bindings[n][typ])
}

// Len returns the number of elements with at least one binding.
func (e *Events) Len() int {
	return len(e.bindings)
}

// Trigger runs the handlers bound on n for typ in binding order and
// returns the event. A panicking handler is logged and skipped.
func (e *Events) Trigger(ctx context.Context, n *html.Node, typ, value string) *Event {
	ev := &Event{Type: typ, Target: n, Value: value}
	list := append([]binding(nil), e.bindings[n][typ]...)
	for _, b := range list {
		e.call(ctx, b, ev)
	}
	return ev
}

func (e *Events) call(ctx context.Context, b binding, ev *Event) {
	defer func() {
		if p := recover(); p != nil {
			e.logger.Error("event handler panicked",
				"event", ev.Type, "namespace", b.ns, "panic", fmt.Sprint(p))
		}
	}()
	b.handler(ctx, ev)
}
