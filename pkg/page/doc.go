// Package page provides the page-lifecycle controller.
//
// A Page owns one document, the behavior registry attached to it, the
// settings snapshot, an event-binding table and a serial task loop. All
// DOM access happens on that loop; asynchronous behavior work runs on its
// own goroutine and re-enters the page by returning a Task:
//
//	p.Go(ctx, func(ctx context.Context) page.Task {
//	    body, err := source.Fetch(ctx, key)
//	    return func(ctx context.Context) {
//	        if err != nil {
//	            return
//	        }
//	        nodes, _ := dom.ParseFragment(bytes.NewReader(body), wrapper)
//	        p.Replace(ctx, wrapper, nodes...)
//	    }
//	})
//
// Content mutations go through Insert, Replace, Move and Remove, which
// issue detach and attach passes scoped to just the affected subtree.
package page
