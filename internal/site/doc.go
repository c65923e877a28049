// Package site holds the behaviors of the activities site and the typed
// settings they read.
//
// Register wires every behavior into a page's registry in the order the
// site depends on:
//
//	reg := behavior.NewRegistry[site.Settings]()
//	p := page.New(doc, reg, settings)
//	if err := site.Register(p, site.Deps{Fragments: src}); err != nil {
//	    return err
//	}
//	p.Load(ctx)
package site
