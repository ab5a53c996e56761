// Package feed turns a paginated offers listing into a continuous feed.
//
// An Orchestrator owns the pagination state of one host page. Each scroll
// event that brings the end of the list close enough requests the next
// page as a background document, polls it until the offers table is
// rendered and publishes the outcome on a Bus:
//
//	bus := feed.NewBus()
//	bus.Subscribe(feed.SenderName, func(e feed.Event) {
//	    if e.Kind == feed.PageReady {
//	        rows := listing.NewPage(e.Document).Articles()
//	        ...
//	    }
//	})
//
//	o, err := feed.New(ctx, feed.Config{Base: hostURL, Pagination: state}, loader, bus, nil)
//	...
//	o.OnScroll(viewport.LastRowRect())
//
// Pages are requested strictly in order. A page that never becomes ready is
// skipped: the feed advances past it and never retries it.
package feed
