package postage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Sternrassler/cm-offers-feed/pkg/cache"
	"github.com/Sternrassler/cm-offers-feed/pkg/country"
	"github.com/Sternrassler/cm-offers-feed/pkg/logging"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// ErrNoEstimate means no shipping estimate can be shown. Lookups never
// fail with anything else.
var ErrNoEstimate = errors.New("no shipping estimate")

// Store keys.
var (
	// RecordsKey holds the JSON array of every Record.
	RecordsKey = cache.Key{Namespace: "postage", Name: "postage-values"}.String()

	// DestinationKey holds the viewer's destination country code.
	DestinationKey = cache.Key{Namespace: "postage", Name: "country-value"}.String()
)

// Cache serves Records from the store and refetches them once per
// calendar year.
type Cache struct {
	store  cache.Store
	api    Fetcher
	logger zerolog.Logger
	now    func() time.Time

	group singleflight.Group

	// mu serialises the read-modify-write of the stored collection.
	mu sync.Mutex
}

// NewCache creates a cache over store that fetches misses from api.
func NewCache(store cache.Store, api Fetcher) *Cache {
	return &Cache{
		store:  store,
		api:    api,
		logger: logging.NewLogger(logging.ComponentPostage),
		now:    time.Now,
	}
}

// SetClock replaces the time source (for testing).
func (c *Cache) SetClock(now func() time.Time) {
	c.now = now
}

// Lookup returns the Record of a pair. It returns ErrNoEstimate without any
// network call when either side is unknown, and ErrNoEstimate wrapping the
// cause when the remote fetch fails. Failures are never stored.
//
// Concurrent lookups of the same pair share one fetch. The shared fetch is
// detached from the caller that started it; each caller stops waiting when
// its own ctx ends.
func (c *Cache) Lookup(ctx context.Context, from, to country.Code) (Record, error) {
	if !from.Valid() || !to.Valid() {
		return Record{}, ErrNoEstimate
	}

	id := RecordID(from, to)
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(id, func() (any, error) {
		return c.lookup(shared, from, to)
	})

	select {
	case <-ctx.Done():
		return Record{}, fmt.Errorf("%w: %v", ErrNoEstimate, ctx.Err())
	case res := <-ch:
		if res.Shared {
			sharedLookupsTotal.Inc()
		}
		if res.Err != nil {
			return Record{}, res.Err
		}
		return res.Val.(Record), nil
	}
}

func (c *Cache) lookup(ctx context.Context, from, to country.Code) (Record, error) {
	id := RecordID(from, to)
	year := c.now().Year()
	log := c.logger.With().Int("ship_from", int(from)).Int("ship_to", int(to)).Logger()

	persist := true

	// mu covers the store read-modify-write of the collection only; the
	// remote fetch runs unlocked.
	c.mu.Lock()
	records, err := c.load(ctx)
	if err != nil {
		// The stored collection cannot be trusted; serve from the API
		// without overwriting it.
		log.Warn().Err(err).Msg("Failed to read postage records")
		persist = false
	} else if i := slices.IndexFunc(records, func(r Record) bool { return r.ID == id }); i >= 0 {
		if !records[i].Stale(year) {
			c.mu.Unlock()
			cacheHitsTotal.Inc()
			log.Debug().Msg("Postage cache hit")
			return records[i], nil
		}

		// Stale records are never served, not even as a fallback.
		records = slices.Delete(records, i, i+1)
		if err := c.save(ctx, records); err != nil {
			log.Warn().Err(err).Msg("Failed to evict stale postage record")
		}
		cacheEvictionsTotal.Inc()
		log.Debug().Int("year", year).Msg("Evicted stale postage record")
	}
	c.mu.Unlock()

	cacheMissesTotal.Inc()

	options, err := c.api.Fetch(ctx, from, to)
	if err != nil {
		log.Warn().Err(err).Msg("Postage fetch failed, no estimate")
		return Record{}, fmt.Errorf("%w: %w", ErrNoEstimate, err)
	}

	record := Record{
		ID:          id,
		ShipFrom:    from,
		ShipTo:      to,
		YearUpdated: year,
		Options:     options,
	}

	if persist {
		c.mu.Lock()
		if err := c.append(ctx, record); err != nil {
			log.Warn().Err(err).Msg("Failed to store postage record")
		}
		c.mu.Unlock()
	}

	log.Info().Int("options", len(options)).Msg("Fetched new postage record")
	return record, nil
}

// append re-reads the collection so writes from other pairs are kept, and
// replaces any record of the same pair.
func (c *Cache) append(ctx context.Context, record Record) error {
	records, err := c.load(ctx)
	if err != nil {
		return err
	}
	records = slices.DeleteFunc(records, func(r Record) bool { return r.ID == record.ID })
	records = append(records, record)
	return c.save(ctx, records)
}

// Records returns the stored collection.
func (c *Cache) Records(ctx context.Context) ([]Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load(ctx)
}

func (c *Cache) load(ctx context.Context) ([]Record, error) {
	data, err := c.store.Get(ctx, RecordsKey)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", cache.ErrInvalidEntry, err)
	}
	return records, nil
}

func (c *Cache) save(ctx context.Context, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal postage records: %w", err)
	}
	return c.store.Set(ctx, RecordsKey, data)
}
