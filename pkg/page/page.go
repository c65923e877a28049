package page

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/vango-dev/behave/pkg/behavior"
	"github.com/vango-dev/behave/pkg/dom"
	"golang.org/x/net/html"
)

// ErrDetached is returned when a mutation targets a node with no parent.
var ErrDetached = errors.New("page: node is not attached")

// DefaultQueueSize is the default capacity of the task queue.
const DefaultQueueSize = 256

// Page is a live document with behaviors attached to it.
type Page[S any] struct {
	doc       *html.Node
	behaviors *behavior.Registry[S]
	settings  S
	events    *Events
	navigator Navigator
	cookies   Cookies
	logger    *slog.Logger

	*loop
}

// Option configures a Page.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	queueSize int
	navigator Navigator
	cookies   Cookies
}

// WithLogger sets the page logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithQueueSize sets the task queue capacity.
func WithQueueSize(n int) Option {
	return func(o *options) {
		o.queueSize = n
	}
}

// WithNavigator sets the navigation collaborator.
func WithNavigator(n Navigator) Option {
	return func(o *options) {
		o.navigator = n
	}
}

// WithCookies sets the cookies visible to behaviors.
func WithCookies(c Cookies) Option {
	return func(o *options) {
		o.cookies = c
	}
}

// New creates a Page for doc. Behaviors may keep registering on reg until
// the first pass.
func New[S any](doc *html.Node, reg *behavior.Registry[S], settings S, opts ...Option) *Page[S] {
	o := options{queueSize: DefaultQueueSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.navigator == nil {
		o.navigator = &RecordingNavigator{}
	}
	if o.queueSize <= 0 {
		o.queueSize = DefaultQueueSize
	}

	return &Page[S]{
		doc:       doc,
		behaviors: reg,
		settings:  settings,
		events:    NewEvents(o.logger),
		navigator: o.navigator,
		cookies:   o.cookies,
		logger:    o.logger,
		loop:      newLoop(o.queueSize, o.logger),
	}
}

// Document returns the page's document node.
func (p *Page[S]) Document() *html.Node { return p.doc }

// Settings returns the settings snapshot handed to behaviors.
func (p *Page[S]) Settings() S { return p.settings }

// Behaviors returns the page's registry.
func (p *Page[S]) Behaviors() *behavior.Registry[S] { return p.behaviors }

// Events returns the event-binding table.
func (p *Page[S]) Events() *Events { return p.events }

// Navigator returns the navigation collaborator.
func (p *Page[S]) Navigator() Navigator { return p.navigator }

// Cookies returns the cookies visible to behaviors.
func (p *Page[S]) Cookies() Cookies { return p.cookies }

// Logger returns the page logger.
func (p *Page[S]) Logger() *slog.Logger { return p.logger }

// Load runs the initial attach pass over the whole document.
func (p *Page[S]) Load(ctx context.Context) {
	p.behaviors.AttachAll(ctx, p.doc, p.settings)
}

// Attach runs an attach pass over root.
func (p *Page[S]) Attach(ctx context.Context, root *html.Node) {
	p.behaviors.AttachAll(ctx, root, p.settings)
}

// Detach runs a detach pass over root.
func (p *Page[S]) Detach(ctx context.Context, root *html.Node, reason behavior.Reason) {
	p.behaviors.DetachAll(ctx, root, p.settings, reason)
}

// Serialize asks behaviors under root to flush their state into the
// underlying form fields. Attachments stay in place.
func (p *Page[S]) Serialize(ctx context.Context, root *html.Node) {
	p.behaviors.DetachAll(ctx, root, p.settings, behavior.ReasonSerialize)
}

// Insert appends nodes to parent and attaches behaviors to each inserted
// element, leaving the rest of the document alone.
func (p *Page[S]) Insert(ctx context.Context, parent *html.Node, nodes ...*html.Node) {
	dom.Append(parent, nodes...)
	p.attachEach(ctx, nodes)
}

// InsertAfter inserts nodes after ref and attaches behaviors to them.
func (p *Page[S]) InsertAfter(ctx context.Context, ref *html.Node, nodes ...*html.Node) error {
	if ref.Parent == nil {
		return ErrDetached
	}
	dom.InsertAfter(ref, nodes...)
	p.attachEach(ctx, nodes)
	return nil
}

// Replace unloads old, puts nodes in its place and attaches behaviors to
// the new nodes only.
func (p *Page[S]) Replace(ctx context.Context, old *html.Node, nodes ...*html.Node) error {
	if old.Parent == nil {
		return ErrDetached
	}
	p.behaviors.DetachAll(ctx, old, p.settings, behavior.ReasonUnload)
	p.events.OffWithin(old, "")
	dom.ReplaceWith(old, nodes...)
	p.attachEach(ctx, nodes)
	return nil
}

// Move detaches n for relocation, appends it to newParent and attaches
// behaviors to it again.
func (p *Page[S]) Move(ctx context.Context, n, newParent *html.Node) error {
	if n.Parent == nil {
		return ErrDetached
	}
	p.behaviors.DetachAll(ctx, n, p.settings, behavior.ReasonMove)
	dom.Append(newParent, n)
	p.behaviors.AttachAll(ctx, n, p.settings)
	return nil
}

// Remove unloads n and takes it out of the document.
func (p *Page[S]) Remove(ctx context.Context, n *html.Node) error {
	if n.Parent == nil {
		return ErrDetached
	}
	p.behaviors.DetachAll(ctx, n, p.settings, behavior.ReasonUnload)
	p.events.OffWithin(n, "")
	dom.Detach(n)
	return nil
}

// Trigger queues an event of type typ on n. The handlers run on the loop,
// on the next Settle or within Run.
func (p *Page[S]) Trigger(n *html.Node, typ, value string) {
	p.Dispatch(func(ctx context.Context) {
		p.events.Trigger(ctx, n, typ, value)
	})
}

// Render writes the current document.
func (p *Page[S]) Render(w io.Writer, opts dom.RenderOptions) error {
	return dom.Render(w, p.doc, opts)
}

func (p *Page[S]) attachEach(ctx context.Context, nodes []*html.Node) {
	for _, n := range nodes {
		if dom.IsElement(n) {
			p.behaviors.AttachAll(ctx, n, p.settings)
		}
	}
}
