// Package offers keeps the growing collection of offer rows shown to the
// viewer and annotates each row with a shipping estimate.
package offers

import (
	"context"
	"errors"
	"sync"

	"github.com/Sternrassler/cm-offers-feed/pkg/country"
	"github.com/Sternrassler/cm-offers-feed/pkg/feed"
	"github.com/Sternrassler/cm-offers-feed/pkg/listing"
	"github.com/Sternrassler/cm-offers-feed/pkg/logging"
	"github.com/Sternrassler/cm-offers-feed/pkg/postage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	rowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cmfeed_offers_rows_total",
		Help: "Total offer rows seen by result (merged, not_shipping, duplicate)",
	}, []string{"result"})

	estimatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cmfeed_offers_estimates_total",
		Help: "Total shipping estimates by result",
	}, []string{"result"})
)

// DefaultConcurrency bounds parallel estimates per merge.
const DefaultConcurrency = 8

// Estimator produces the shipping estimate of a row.
type Estimator interface {
	Estimate(ctx context.Context, a listing.Article, dest country.Code) (postage.Estimate, error)
}

// Row is one visible offer.
type Row struct {
	Page     int
	Article  listing.Article
	Estimate *postage.Estimate
}

// Table is the visible collection. Rows are kept in merge order.
type Table struct {
	estimator   Estimator
	dest        country.Code
	concurrency int
	logger      zerolog.Logger

	mu    sync.RWMutex
	rows  []Row
	index map[string]int
}

// NewTable creates an empty collection. Rows are estimated only when dest
// is a known country; a nil estimator disables estimates.
func NewTable(estimator Estimator, dest country.Code) *Table {
	return &Table{
		estimator:   estimator,
		dest:        dest,
		concurrency: DefaultConcurrency,
		logger:      logging.NewLogger(logging.ComponentTable),
		index:       make(map[string]int),
	}
}

// SetConcurrency changes the number of parallel estimates.
func (t *Table) SetConcurrency(n int) {
	if n > 0 {
		t.concurrency = n
	}
}

// Subscribe merges the rows of every ready page published by the feed.
// Rows are read while the event is delivered, before the page is released.
func (t *Table) Subscribe(ctx context.Context, bus *feed.Bus) (unsubscribe func()) {
	return bus.Subscribe(feed.SenderName, func(e feed.Event) {
		if e.Kind != feed.PageReady || e.Document == nil {
			return
		}
		articles := listing.NewPage(e.Document).Articles()
		added := t.Merge(ctx, e.Page, articles)
		t.logger.Info().
			Int("page", e.Page).
			Int("rows", len(articles)).
			Int("added", added).
			Msg("Merged page into offers table")
	})
}

// Merge appends the shippable articles not already present and estimates
// them. It returns the number of rows added.
func (t *Table) Merge(ctx context.Context, page int, articles []listing.Article) int {
	var added []string

	t.mu.Lock()
	for _, a := range articles {
		if !a.Shippable {
			rowsTotal.WithLabelValues("not_shipping").Inc()
			continue
		}
		if _, dup := t.index[a.ID]; dup {
			rowsTotal.WithLabelValues("duplicate").Inc()
			continue
		}
		t.index[a.ID] = len(t.rows)
		t.rows = append(t.rows, Row{Page: page, Article: a})
		added = append(added, a.ID)
		rowsTotal.WithLabelValues("merged").Inc()
	}
	t.mu.Unlock()

	if err := t.estimate(ctx, added); err != nil {
		t.logger.Debug().Err(err).Int("page", page).Msg("Estimates interrupted")
	}
	return len(added)
}

// Refresh replaces the row of a, which the marketplace re-renders after a
// cart action, and estimates it again.
func (t *Table) Refresh(ctx context.Context, a listing.Article) error {
	t.mu.Lock()
	i, ok := t.index[a.ID]
	if !ok {
		t.mu.Unlock()
		return errors.New("row not found: " + a.ID)
	}
	t.rows[i].Article = a
	t.rows[i].Estimate = nil
	t.mu.Unlock()

	return t.estimate(ctx, []string{a.ID})
}

// estimate runs the estimator for ids in parallel. A row without an
// estimate is not an error; only cancellation is returned.
func (t *Table) estimate(ctx context.Context, ids []string) error {
	if t.estimator == nil || !t.dest.Valid() || len(ids) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(t.concurrency)

	for _, id := range ids {
		id := id
		article, ok := t.article(id)
		if !ok {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			est, err := t.estimator.Estimate(ctx, article, t.dest)
			if err != nil {
				estimatesTotal.WithLabelValues("none").Inc()
				t.logger.Debug().Err(err).Str("article_id", id).Msg("No shipping estimate")
				return nil
			}

			estimatesTotal.WithLabelValues("ok").Inc()
			t.setEstimate(id, est)
			return nil
		})
	}

	return g.Wait()
}

func (t *Table) article(id string) (listing.Article, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i, ok := t.index[id]
	if !ok {
		return listing.Article{}, false
	}
	return t.rows[i].Article, true
}

func (t *Table) setEstimate(id string, est postage.Estimate) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i, ok := t.index[id]; ok {
		t.rows[i].Estimate = &est
	}
}

// Rows returns a snapshot of the collection.
func (t *Table) Rows() []Row {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Row, len(t.rows))
	copy(out, t.rows)
	return out
}

// Len returns the number of rows.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}
