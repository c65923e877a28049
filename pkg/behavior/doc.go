// Package behavior provides the behavior registry and attachment engine.
//
// A behavior is a named unit of DOM augmentation logic. Behaviors are
// registered once, in order, on a Registry; AttachAll then runs every
// behavior against a root subtree and DetachAll unwinds them in reverse
// order.
//
// # Contract
//
// The engine never selects elements itself. Each behavior picks its
// candidates inside the root it is handed and guards them with a
// processed-marker (see package once), which makes repeated passes over
// the same or an overlapping root safe:
//
//	reg := behavior.NewRegistry[Settings]()
//	reg.MustRegister("highlight", behavior.AttachFunc[Settings](
//	    func(root *html.Node, s Settings) error {
//	        for _, n := range once.Select("highlight", root, ".todo") {
//	            dom.AddClass(n, "highlighted")
//	        }
//	        return nil
//	    }))
//
//	reg.AttachAll(ctx, doc, settings)     // highlights every .todo
//	reg.AttachAll(ctx, doc, settings)     // no-op
//	reg.AttachAll(ctx, inserted, settings) // only the new content
//
// # Failure isolation
//
// A behavior that returns an error or panics is recorded, logged,
// reported to the configured Reporter and counted; the pass continues with
// the next behavior. AttachAll and DetachAll never return an error.
//
// # Detach reasons
//
// Detach receives one of ReasonUnload, ReasonMove or ReasonSerialize.
// Serialize flushes state back into form fields and keeps the
// processed-marker; unload and move clear it so the content can be
// attached again.
package behavior
