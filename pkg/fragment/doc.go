// Package fragment fetches supplementary markup for behaviors.
//
// A Source maps a key (a path or URL) to bytes. Behaviors call it from
// work started with page.Go, never from the page loop:
//
//	p.Go(ctx, func(ctx context.Context) page.Task {
//	    body, err := src.Fetch(ctx, href)
//	    ...
//	})
//
// HTTPSource and S3Source cover the usual deployments, Static serves
// tests and offline pages, and Coalesce shares one in-flight fetch
// between concurrent callers of the same key.
package fragment
