// Package listing reads offers, pagination and seller metadata from a
// marketplace offers page.
//
// Every accessor degrades to a zero value when the expected markup is
// absent; nothing here returns an error for missing elements.
package listing

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/Sternrassler/cm-offers-feed/pkg/pagination"
)

// Selectors of the offers page markup.
const (
	MarkerSelector        = "div#UserOffersTable"
	RowSelector           = "div.article-row"
	PaginationSelector    = "div.pagination"
	DestinationSelector   = "span.seller-extended span.fonticon-calendar"
	SystemMessageSelector = "div.systemMessage"
)

// Page is a read-only view of one offers page.
type Page struct {
	doc *goquery.Document
}

// NewPage wraps a parsed document.
func NewPage(doc *goquery.Document) *Page {
	return &Page{doc: doc}
}

// HasMarker reports whether the offers table has been rendered.
func (p *Page) HasMarker() bool {
	return p.doc.Find(MarkerSelector).Length() > 0
}

// Pagination parses the item count and page range of the first
// pagination bar.
func (p *Page) Pagination() (pagination.State, bool) {
	bar := p.doc.Find(PaginationSelector).First()
	if bar.Length() == 0 {
		return pagination.State{}, false
	}
	children := bar.Children()
	if children.Length() < 2 {
		return pagination.State{}, false
	}
	return pagination.Parse(children.Eq(0).Text(), children.Eq(1).Text())
}

// DestinationTooltip returns the delivery estimate tooltip of the seller
// header, e.g. "Estimated delivery time to Finland: 3 days".
func (p *Page) DestinationTooltip() (string, bool) {
	v := TooltipValue(p.doc.Find(DestinationSelector).First())
	return v, v != ""
}

// Articles returns every offer row in document order.
func (p *Page) Articles() []Article {
	var articles []Article
	p.doc.Find(RowSelector).Each(func(_ int, row *goquery.Selection) {
		if a, ok := parseArticle(row, p.doc); ok {
			articles = append(articles, a)
		}
	})
	return articles
}

// Article returns the offer row with the given id.
func (p *Page) Article(id string) (Article, bool) {
	row := p.doc.Find("div#" + rowIDPrefix + id).First()
	if row.Length() == 0 {
		return Article{}, false
	}
	return parseArticle(row, p.doc)
}

// SystemMessage returns the text of the notification banner, if shown.
func (p *Page) SystemMessage() (string, bool) {
	banner := p.doc.Find(SystemMessageSelector).First()
	if banner.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(banner.Text()), true
}

// TooltipValue returns the tooltip text of sel. The marketplace moves the
// title attribute to data-bs-original-title once tooltips initialise.
func TooltipValue(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	if v, ok := sel.Attr("data-bs-original-title"); ok && v != "" {
		return v
	}
	v, _ := sel.Attr("title")
	return v
}
