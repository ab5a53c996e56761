package postage

import (
	"context"
	"fmt"

	"github.com/Sternrassler/cm-offers-feed/pkg/country"
	"github.com/Sternrassler/cm-offers-feed/pkg/listing"
)

// Estimate is the shipping estimate shown under an offer.
type Estimate struct {
	ArticleID string
	From      country.Code
	To        country.Code
	Tracked   bool
	Option    Option
	Label     string
}

// Estimator combines origin resolution, the cache and option selection.
type Estimator struct {
	cache    *Cache
	resolver *Resolver
}

// NewEstimator creates an estimator.
func NewEstimator(c *Cache, r *Resolver) *Estimator {
	return &Estimator{cache: c, resolver: r}
}

// Estimate returns the cheapest suitable option for a row shipped to dest.
// Every failure is reported as ErrNoEstimate.
func (e *Estimator) Estimate(ctx context.Context, a listing.Article, dest country.Code) (Estimate, error) {
	from, ok := e.resolver.Origin(a)
	if !ok {
		return Estimate{}, fmt.Errorf("%w: unknown seller country", ErrNoEstimate)
	}

	record, err := e.cache.Lookup(ctx, from, dest)
	if err != nil {
		return Estimate{}, err
	}

	opt, ok := SelectCheapest(record, a.TrackingRequired)
	if !ok {
		return Estimate{}, fmt.Errorf("%w: no matching option for %s", ErrNoEstimate, record.ID)
	}

	return Estimate{
		ArticleID: a.ID,
		From:      from,
		To:        dest,
		Tracked:   a.TrackingRequired,
		Option:    opt,
		Label:     opt.Label(),
	}, nil
}
