// Package poll implements a bounded, fixed-interval wait for a condition.
//
// It replaces ad-hoc interval timers: the readiness check of background
// documents and the cart notification wait both use Until.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

var (
	pollAttempts = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cmfeed_poll_attempts",
		Help:    "Number of condition checks performed per poll by purpose",
		Buckets: []float64{1, 2, 3, 5, 10, 15, 20},
	}, []string{"purpose"})

	pollTimeoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cmfeed_poll_timeouts_total",
		Help: "Total number of polls that exhausted their attempt bound by purpose",
	}, []string{"purpose"})
)

// ErrCancelled is returned when the context is cancelled while polling.
var ErrCancelled = errors.New("poll cancelled")

// Outcome is the result of a poll.
type Outcome int

const (
	// Ready means the condition became true within the bound.
	Ready Outcome = iota
	// TimedOut means the attempt bound was exhausted.
	TimedOut
	// Cancelled means the context ended before the condition held.
	Cancelled
)

// String returns the outcome label used in logs and metrics.
func (o Outcome) String() string {
	switch o {
	case Ready:
		return "ready"
	case TimedOut:
		return "timed_out"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Config bounds a poll.
type Config struct {
	// Purpose labels metrics and log lines (e.g. "readiness", "banner").
	Purpose string

	// Interval is the wait before each check.
	Interval time.Duration

	// MaxAttempts is the number of checks before giving up.
	MaxAttempts int
}

// Validate checks that the poll is bounded.
func (c Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("poll interval must be > 0 (got %s)", c.Interval)
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("poll max attempts must be > 0 (got %d)", c.MaxAttempts)
	}
	return nil
}

// Until waits Interval and then evaluates cond, at most MaxAttempts times.
// The first check happens after one interval, never immediately.
func Until(ctx context.Context, cfg Config, cond func() bool) (Outcome, error) {
	if err := cfg.Validate(); err != nil {
		return TimedOut, err
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
		if err := ctx.Err(); err != nil {
			log.Debug().
				Str("purpose", cfg.Purpose).
				Int("attempt", attempt).
				Msg("Poll cancelled")
			return Cancelled, fmt.Errorf("%w: %v", ErrCancelled, err)
		}

		if cond() {
			pollAttempts.WithLabelValues(cfg.Purpose).Observe(float64(attempt))
			return Ready, nil
		}
	}

	pollAttempts.WithLabelValues(cfg.Purpose).Observe(float64(cfg.MaxAttempts))
	pollTimeoutsTotal.WithLabelValues(cfg.Purpose).Inc()

	return TimedOut, nil
}
