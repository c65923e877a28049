package behavior

import (
	"github.com/vango-dev/behave/internal/errors"
	"golang.org/x/net/html"
)

// Behavior is a unit of DOM augmentation logic.
//
// Attach must only affect elements inside root and must guard each
// element with a processed-marker so that repeated calls are no-ops.
type Behavior[S any] interface {
	Attach(root *html.Node, settings S) error
}

// Detacher is implemented by behaviors that can unwind their attachment.
type Detacher[S any] interface {
	Detach(root *html.Node, settings S, reason Reason) error
}

// AttachFunc adapts a function to a Behavior without Detach.
type AttachFunc[S any] func(root *html.Node, settings S) error

// Attach implements Behavior.
func (f AttachFunc[S]) Attach(root *html.Node, settings S) error {
	return f(root, settings)
}

// Funcs adapts a pair of functions to a Behavior with Detach.
// A nil DetachFn makes Detach a no-op.
type Funcs[S any] struct {
	AttachFn func(root *html.Node, settings S) error
	DetachFn func(root *html.Node, settings S, reason Reason) error
}

// Attach implements Behavior.
func (f Funcs[S]) Attach(root *html.Node, settings S) error {
	if f.AttachFn == nil {
		return nil
	}
	return f.AttachFn(root, settings)
}

// Detach implements Detacher.
func (f Funcs[S]) Detach(root *html.Node, settings S, reason Reason) error {
	if f.DetachFn == nil {
		return nil
	}
	return f.DetachFn(root, settings, reason)
}

// Reason tells Detach why it is being called.
type Reason string

const (
	// ReasonUnload means the subtree is about to be removed permanently.
	ReasonUnload Reason = "unload"

	// ReasonMove means the subtree is being relocated in the document.
	ReasonMove Reason = "move"

	// ReasonSerialize asks behaviors to flush editable state into the
	// underlying form fields without tearing the augmentation down.
	ReasonSerialize Reason = "serialize"
)

// Valid reports whether r is one of the known reasons.
func (r Reason) Valid() bool {
	switch r {
	case ReasonUnload, ReasonMove, ReasonSerialize:
		return true
	}
	return false
}

// ClearsMarkers reports whether behaviors should remove their
// processed-markers when detaching for r.
func (r Reason) ClearsMarkers() bool {
	return r == ReasonUnload || r == ReasonMove
}

// ParseReason converts a string to a Reason.
func ParseReason(s string) (Reason, error) {
	r := Reason(s)
	if !r.Valid() {
		return "", errors.New("E102").WithDetail("got " + s + ", want unload, move or serialize")
	}
	return r, nil
}

// Phase identifies which half of the lifecycle a failure happened in.
type Phase string

const (
	PhaseAttach Phase = "attach"
	PhaseDetach Phase = "detach"
)
