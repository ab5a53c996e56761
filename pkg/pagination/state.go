package pagination

import (
	"net/url"
	"strconv"
	"strings"
)

// PageParam is the query parameter the marketplace uses to select a page.
const PageParam = "site"

// State holds the pagination metadata of the host document.
type State struct {
	// CurrentPage is the page shown by the host document.
	CurrentPage int

	// TotalPages is the number of pages in the displayed range.
	TotalPages int

	// TotalItems is the listing item count (lower bound when capped).
	TotalItems int

	// HasMorePages is set when the page range is capped ("5+").
	HasMorePages bool
}

// Enabled reports whether there is at least one page after the current one.
func (s State) Enabled() bool {
	return s.CurrentPage > 0 && s.TotalPages > s.CurrentPage
}

// Parse extracts pagination values from the item count and page range texts.
// It returns a zero State and false when either text is missing or malformed.
func Parse(itemsText, pagesText string) (State, bool) {
	items := strings.Fields(itemsText)
	pages := strings.Fields(pagesText)

	// "Page 2 of 5" -> [Page 2 of 5]
	if len(items) == 0 || len(pages) < 4 {
		return State{}, false
	}

	totalItems, _, ok := parseCount(items[0])
	if !ok {
		return State{}, false
	}

	current, err := strconv.Atoi(pages[1])
	if err != nil {
		return State{}, false
	}

	total, more, ok := parseCount(pages[3])
	if !ok {
		return State{}, false
	}

	return State{
		CurrentPage:  current,
		TotalPages:   total,
		TotalItems:   totalItems,
		HasMorePages: more,
	}, true
}

// parseCount parses "300" or "300+" and reports whether the suffix was present.
func parseCount(s string) (n int, capped bool, ok bool) {
	s = strings.ReplaceAll(s, ".", "")
	num, suffix, found := strings.Cut(s, "+")
	if found && suffix != "" {
		return 0, false, false
	}

	n, err := strconv.Atoi(num)
	if err != nil {
		return 0, false, false
	}
	return n, found, true
}

// PageURL returns base with its page selector rewritten to page.
// Other query parameters are preserved.
func PageURL(base *url.URL, page int) string {
	u := *base
	q := u.Query()
	q.Set(PageParam, strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}
