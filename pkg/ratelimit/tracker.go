package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/cm-offers-feed/pkg/cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cmfeed_rate_limit_blocks_total",
		Help: "Total number of requests blocked inside a back-off window",
	})

	rateLimitWindowsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cmfeed_rate_limit_windows_total",
		Help: "Total number of back-off windows opened by 429 responses",
	})
)

// Tracker records back-off windows and gates requests.
type Tracker struct {
	store  cache.Store
	logger zerolog.Logger
	now    func() time.Time
}

// NewTracker creates a new rate limit tracker.
func NewTracker(store cache.Store, logger zerolog.Logger) *Tracker {
	return &Tracker{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// GetState retrieves the current back-off state.
// Returns an open (zero) state if nothing is stored.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	data, err := t.store.Get(ctx, StoreKeyState)
	if errors.Is(err, cache.ErrCacheMiss) {
		return &State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rate limit state: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: %v", cache.ErrInvalidEntry, err)
	}
	return &state, nil
}

// UpdateFromResponse opens a back-off window when resp is a 429.
// Other responses leave the state untouched.
func (t *Tracker) UpdateFromResponse(ctx context.Context, resp *http.Response) error {
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		return nil
	}

	now := t.now()
	wait := parseRetryAfter(resp.Header.Get("Retry-After"), now)

	state := &State{
		BlockedUntil: now.Add(wait),
		LastStatus:   resp.StatusCode,
		LastUpdate:   now,
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal rate limit state: %w", err)
	}
	if err := t.store.Set(ctx, StoreKeyState, data); err != nil {
		return fmt.Errorf("store rate limit state: %w", err)
	}

	rateLimitWindowsTotal.Inc()
	t.logger.Warn().
		Dur("backoff", wait).
		Time("blocked_until", state.BlockedUntil).
		Msg("Marketplace rate limit hit - backing off")

	return nil
}

// ShouldAllowRequest returns false while a back-off window is open.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, err
	}

	now := t.now()
	if state.IsBlocked(now) {
		t.logger.Debug().
			Dur("wait_duration", state.TimeUntilReset(now)).
			Msg("Request blocked by back-off window")
		rateLimitBlocksTotal.Inc()
		return false, nil
	}

	return true, nil
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return DefaultBackoff
	}

	var wait time.Duration
	if secs, err := strconv.Atoi(value); err == nil {
		wait = time.Duration(secs) * time.Second
	} else if at, err := http.ParseTime(value); err == nil {
		wait = at.Sub(now)
	} else {
		return DefaultBackoff
	}

	if wait <= 0 {
		return DefaultBackoff
	}
	if wait > MaxBackoff {
		return MaxBackoff
	}
	return wait
}
