package listing

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const rowIDPrefix = "articleRow"

// NotShippingTooltip is shown on the disabled cart button of offers the
// seller does not ship to the viewer's country.
const NotShippingTooltip = "You cannot buy the offered item, because the seller does not ship to your country. " +
	"The seller may also be on your blacklist, or vice versa."

// TrackingPriceThreshold is the whole-euro price from which tracked
// shipping is mandatory.
const TrackingPriceThreshold = 25

var imageExtensions = []string{".jpg", ".jpeg", ".png"}

// Article is one offer row.
type Article struct {
	ID          string
	Title       string
	Description string
	Attributes  []string
	Comments    string
	URL         string
	ImageURL    string
	Price       string
	Amount      string

	// SellerLocation is the seller flag tooltip, e.g. "Item location: Germany".
	SellerLocation string
	// SellerInfo is the seller's sales summary tooltip.
	SellerInfo string

	TrackingRequired bool
	Shippable        bool

	Cart *CartForm
}

// AttributeLine joins description and attributes for display.
func (a Article) AttributeLine() string {
	parts := make([]string, 0, len(a.Attributes)+1)
	if a.Description != "" {
		parts = append(parts, a.Description)
	}
	parts = append(parts, a.Attributes...)
	return strings.Join(parts, " | ")
}

func parseArticle(row *goquery.Selection, doc *goquery.Document) (Article, bool) {
	id, _ := row.Attr("id")
	id = strings.TrimPrefix(id, rowIDPrefix)
	if id == "" {
		return Article{}, false
	}

	a := Article{ID: id, Shippable: true}

	seller := row.Find("div.col-seller").First()
	title, description := splitTitle(seller.Text())
	a.Title = title
	a.Description = description
	if href, ok := seller.Children().First().Attr("href"); ok {
		a.URL = resolve(doc, href)
	}

	row.Find("div.product-attributes").First().Children().Each(func(_ int, attr *goquery.Selection) {
		if v := TooltipValue(attr); v != "" {
			a.Attributes = append(a.Attributes, v)
		}
	})

	a.Price = strings.TrimSpace(row.Find("span.text-nowrap").First().Text())
	a.Amount = strings.TrimSpace(row.Find("span.item-count").First().Text())

	a.Comments = strings.TrimSpace(row.Find("span.text-truncate").First().Text())
	if a.Comments == "" {
		a.Comments = TooltipValue(row.Find("span.fonticon-comments").First())
	}

	a.ImageURL = imageURL(TooltipValue(row.Find("span.thumbnail-icon").First()))
	a.SellerLocation = TooltipValue(row.Find("span.seller-name span.icon").First())
	a.SellerInfo = TooltipValue(row.Find("span.sell-count").First())

	a.TrackingRequired = trackingRequired(row)
	a.Shippable = TooltipValue(row.Find("a[role='button']").First()) != NotShippingTooltip

	a.Cart = parseCartForm(row, id, doc)

	return a, true
}

// splitTitle splits "Name (PRE 039)" into name and the bracketed part.
func splitTitle(text string) (string, string) {
	name, rest, found := strings.Cut(text, "(")
	name = strings.TrimSpace(name)
	if !found {
		return name, ""
	}
	description, _, _ := strings.Cut(rest, ")")
	return name, strings.TrimSpace(description)
}

// imageURL extracts the first https image link from a thumbnail tooltip,
// which embeds it in an <img> tag.
func imageURL(tooltip string) string {
	start := strings.Index(tooltip, "https")
	if start < 0 {
		return ""
	}
	for _, ext := range imageExtensions {
		if end := strings.Index(tooltip, ext); end >= start {
			return tooltip[start : end+len(ext)]
		}
	}
	return ""
}

// trackingRequired applies the marketplace rule: a tooltip marker next to
// the price, an untracked-not-eligible marker, or a price of 25 EUR or more.
func trackingRequired(row *goquery.Selection) bool {
	price := row.Find("div.price-container").First()
	if price.Find("span[data-bs-toggle='tooltip']").Length() > 0 {
		return true
	}
	if row.Find("span.untracked").Length() > 0 {
		return true
	}
	if price.Length() == 0 {
		return false
	}
	euros, ok := WholeEuros(price.Text())
	return ok && euros >= TrackingPriceThreshold
}

// WholeEuros parses the integer part of a price like "1.250,99 €".
func WholeEuros(price string) (int, bool) {
	whole, _, _ := strings.Cut(price, ",")
	var digits strings.Builder
	for _, r := range whole {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0, false
	}
	return n, true
}

func resolve(doc *goquery.Document, href string) string {
	if doc == nil || doc.Url == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return doc.Url.ResolveReference(ref).String()
}
