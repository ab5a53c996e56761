package postage

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/Sternrassler/cm-offers-feed/pkg/cache"
	"github.com/Sternrassler/cm-offers-feed/pkg/country"
	"github.com/Sternrassler/cm-offers-feed/pkg/listing"
	"github.com/Sternrassler/cm-offers-feed/pkg/logging"
	"github.com/rs/zerolog"
)

// maxNameWords bounds multi-word country names ("Czech Republic").
const maxNameWords = 3

// Resolver maps page and row metadata to country codes.
type Resolver struct {
	store  cache.Store
	logger zerolog.Logger
}

// NewResolver creates a resolver persisting the destination in store.
func NewResolver(store cache.Store) *Resolver {
	return &Resolver{
		store:  store,
		logger: logging.NewLogger(logging.ComponentPostage),
	}
}

// Destination returns the viewer's country. A stored value wins; otherwise
// it is read from the delivery estimate tooltip of page and stored.
func (r *Resolver) Destination(ctx context.Context, page *listing.Page) (country.Code, bool) {
	data, err := r.store.Get(ctx, DestinationKey)
	switch {
	case err == nil:
		if n, convErr := strconv.Atoi(string(data)); convErr == nil && country.Code(n).Valid() {
			return country.Code(n), true
		}
		r.logger.Warn().Str("value", string(data)).Msg("Ignoring invalid stored destination")
	case !errors.Is(err, cache.ErrCacheMiss):
		r.logger.Warn().Err(err).Msg("Failed to read stored destination")
	}

	if page == nil {
		return country.None, false
	}
	tooltip, ok := page.DestinationTooltip()
	if !ok {
		r.logger.Debug().Msg("No delivery estimate tooltip on page")
		return country.None, false
	}

	code, ok := DestinationFromTooltip(tooltip)
	if !ok {
		r.logger.Warn().Str("tooltip", tooltip).Msg("Destination country not in table")
		return country.None, false
	}

	if err := r.store.Set(ctx, DestinationKey, []byte(strconv.Itoa(int(code)))); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to store destination")
	}
	return code, true
}

// Origin returns the seller country of a row. Origins are not stored.
func (r *Resolver) Origin(a listing.Article) (country.Code, bool) {
	code, ok := OriginFromLocation(a.SellerLocation)
	if !ok && a.SellerLocation != "" {
		r.logger.Warn().
			Str("article_id", a.ID).
			Str("location", a.SellerLocation).
			Msg("Seller country not in table")
	}
	return code, ok
}

// DestinationFromTooltip finds the country named after the word "to", e.g.
// "Estimated delivery time to Czech Republic: 2-4 days".
func DestinationFromTooltip(tooltip string) (country.Code, bool) {
	words := strings.Fields(tooltip)
	for i, w := range words {
		if w != "to" || i+1 >= len(words) {
			continue
		}
		rest := words[i+1:]
		for n := min(maxNameWords, len(rest)); n > 0; n-- {
			name := strings.TrimRight(strings.Join(rest[:n], " "), ".,:;")
			if code, ok := country.Lookup(name); ok {
				return code, true
			}
		}
	}
	return country.None, false
}

// OriginFromLocation parses a seller flag tooltip like
// "Item location: Germany".
func OriginFromLocation(location string) (country.Code, bool) {
	_, name, found := strings.Cut(location, ": ")
	if !found {
		return country.None, false
	}
	return country.Lookup(name)
}
