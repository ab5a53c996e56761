package postage

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/cm-offers-feed/pkg/country"
	"github.com/Sternrassler/cm-offers-feed/pkg/listing"
)

func pageWithTooltip(t *testing.T, tooltip string) *listing.Page {
	t.Helper()
	html := `<span class="seller-extended"><span class="fonticon-calendar" title="` + tooltip + `"></span></span>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return listing.NewPage(doc)
}

func TestDestinationFromTooltip(t *testing.T) {
	tests := []struct {
		tooltip string
		want    country.Code
		wantOK  bool
	}{
		{"Estimated delivery time to Finland is 3 days", 11, true},
		{"Estimated delivery time to Finland: 3-5 days", 11, true},
		{"Shipping to Czech Republic takes 2 days", 6, true},
		{"Delivery to United Kingdom.", 13, true},
		{"Delivery to Atlantis: 9 days", country.None, false},
		{"Delivery time 3 days", country.None, false},
		{"ends with to", country.None, false},
		{"", country.None, false},
	}

	for _, tt := range tests {
		t.Run(tt.tooltip, func(t *testing.T) {
			got, ok := DestinationFromTooltip(tt.tooltip)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestOriginFromLocation(t *testing.T) {
	tests := []struct {
		location string
		want     country.Code
		wantOK   bool
	}{
		{"Item location: Germany", 7, true},
		{"Item location: United Kingdom", 13, true},
		{"Item location: Mars", country.None, false},
		{"Germany", country.None, false},
		{"", country.None, false},
	}

	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			got, ok := OriginFromLocation(tt.location)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestResolver_DestinationIsPersisted(t *testing.T) {
	store, mr := setupStore(t)
	r := NewResolver(store)
	ctx := context.Background()

	code, ok := r.Destination(ctx, pageWithTooltip(t, "Estimated delivery time to Finland is 3 days"))
	require.True(t, ok)
	assert.Equal(t, country.Code(11), code)

	stored, err := mr.Get(DestinationKey)
	require.NoError(t, err)
	assert.Equal(t, "11", stored)

	// The stored value wins over a different page.
	code, ok = r.Destination(ctx, pageWithTooltip(t, "Estimated delivery time to Spain is 3 days"))
	require.True(t, ok)
	assert.Equal(t, country.Code(11), code)

	// And over no page at all.
	code, ok = r.Destination(ctx, nil)
	require.True(t, ok)
	assert.Equal(t, country.Code(11), code)
}

func TestResolver_DestinationAbsent(t *testing.T) {
	store, mr := setupStore(t)
	r := NewResolver(store)
	ctx := context.Background()

	_, ok := r.Destination(ctx, pageWithTooltip(t, "Estimated delivery time to Atlantis is 3 days"))
	assert.False(t, ok)
	assert.False(t, mr.Exists(DestinationKey))

	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<p></p>"))
	require.NoError(t, err)
	_, ok = r.Destination(ctx, listing.NewPage(doc))
	assert.False(t, ok)
}

func TestResolver_InvalidStoredValueIsReplaced(t *testing.T) {
	store, mr := setupStore(t)
	r := NewResolver(store)
	require.NoError(t, mr.Set(DestinationKey, "garbage"))

	code, ok := r.Destination(context.Background(), pageWithTooltip(t, "Delivery to France in 2 days"))
	require.True(t, ok)
	assert.Equal(t, country.Code(12), code)

	stored, _ := mr.Get(DestinationKey)
	assert.Equal(t, "12", stored)
}

func TestResolver_Origin(t *testing.T) {
	store, _ := setupStore(t)
	r := NewResolver(store)

	code, ok := r.Origin(listing.Article{ID: "1", SellerLocation: "Item location: Austria"})
	assert.True(t, ok)
	assert.Equal(t, country.Code(1), code)

	_, ok = r.Origin(listing.Article{ID: "2"})
	assert.False(t, ok)
}
