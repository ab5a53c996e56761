// Package pagination parses the listing pagination block and builds page URLs.
//
// The listing shows two text fields: an item count ("1234 Articles", or
// "300+ Articles" when the count is capped) and a page range ("Page 2 of 5",
// or "Page 2 of 5+" when more pages exist beyond the displayed range).
//
// Example usage:
//
//	state, ok := pagination.Parse(itemsText, pagesText)
//	if !ok || !state.Enabled() {
//		// no infinite scroll for this page
//	}
//	next := pagination.PageURL(hostURL, state.CurrentPage+1)
//
// The parsed State is immutable for the session: the marketplace does not
// change these values while a listing is open.
package pagination
