// Package cart submits add-to-cart actions and reads the marketplace's
// notification banner to decide the outcome.
package cart

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/cm-offers-feed/pkg/logging"
	"github.com/Sternrassler/cm-offers-feed/pkg/poll"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cmfeed_cart_submissions_total",
	Help: "Total cart submissions by outcome",
}, []string{"outcome"})

// SuccessMessage is the banner text of a successful cart action.
const SuccessMessage = "Your request was executed successfully"

// Outcome is the result of a submission.
type Outcome int

const (
	// Succeeded means the success banner appeared.
	Succeeded Outcome = iota
	// Failed means another banner appeared or the action errored.
	Failed
	// TimedOut means no banner appeared within the bound.
	TimedOut
)

// String returns the outcome label.
func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case TimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Banner is the transient notification region of a page.
type Banner interface {
	// Message returns the banner text if one is shown.
	Message() (string, bool)
	// Dismiss closes the current banner.
	Dismiss(ctx context.Context) error
}

// Action is one cart submission.
type Action interface {
	Submit(ctx context.Context) error
}

// Result describes a finished submission.
type Result struct {
	Outcome Outcome
	Message string
}

// Config bounds the banner waits.
type Config struct {
	// Dismiss bounds the wait for an old banner to disappear.
	Dismiss poll.Config
	// Await bounds the wait for the result banner.
	Await poll.Config
}

// DefaultConfig returns 100ms x 10 for dismissal and 200ms x 10 for the
// result banner.
func DefaultConfig() Config {
	return Config{
		Dismiss: poll.Config{Purpose: "banner_dismiss", Interval: 100 * time.Millisecond, MaxAttempts: 10},
		Await:   poll.Config{Purpose: "banner", Interval: 200 * time.Millisecond, MaxAttempts: 10},
	}
}

// Submitter runs cart actions.
type Submitter struct {
	cfg    Config
	logger zerolog.Logger
}

// NewSubmitter creates a submitter.
func NewSubmitter(cfg Config) (*Submitter, error) {
	if err := cfg.Dismiss.Validate(); err != nil {
		return nil, fmt.Errorf("dismiss poll: %w", err)
	}
	if err := cfg.Await.Validate(); err != nil {
		return nil, fmt.Errorf("banner poll: %w", err)
	}
	return &Submitter{cfg: cfg, logger: logging.NewLogger(logging.ComponentCart)}, nil
}

// Submit clears any shown banner, runs action and waits for the result
// banner. The returned error is set only for a failed action or a
// cancelled context.
func (s *Submitter) Submit(ctx context.Context, action Action, banner Banner) (Result, error) {
	if _, shown := banner.Message(); shown {
		if err := banner.Dismiss(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to dismiss banner")
		}
		gone, err := poll.Until(ctx, s.cfg.Dismiss, func() bool {
			_, shown := banner.Message()
			return !shown
		})
		if err != nil {
			return s.finish(Result{Outcome: Failed}), err
		}
		if gone != poll.Ready {
			s.logger.Warn().Msg("Previous banner still shown, submitting anyway")
		}
	}

	if err := action.Submit(ctx); err != nil {
		return s.finish(Result{Outcome: Failed}), fmt.Errorf("submit cart action: %w", err)
	}

	var message string
	outcome, err := poll.Until(ctx, s.cfg.Await, func() bool {
		text, shown := banner.Message()
		message = text
		return shown
	})
	if err != nil {
		return s.finish(Result{Outcome: Failed}), err
	}
	if outcome == poll.TimedOut {
		s.logger.Error().Msg("Failed to get system message")
		return s.finish(Result{Outcome: TimedOut}), nil
	}

	message = strings.TrimSpace(message)
	if message == SuccessMessage {
		s.logger.Info().Msg("Item added to cart")
		return s.finish(Result{Outcome: Succeeded, Message: message}), nil
	}

	s.logger.Warn().Str("message", message).Msg("Adding to cart failed")
	return s.finish(Result{Outcome: Failed, Message: message}), nil
}

func (s *Submitter) finish(r Result) Result {
	submissionsTotal.WithLabelValues(r.Outcome.String()).Inc()
	return r
}
