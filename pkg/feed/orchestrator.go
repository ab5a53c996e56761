package feed

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/Sternrassler/cm-offers-feed/pkg/document"
	"github.com/Sternrassler/cm-offers-feed/pkg/listing"
	"github.com/Sternrassler/cm-offers-feed/pkg/logging"
	"github.com/Sternrassler/cm-offers-feed/pkg/pagination"
	"github.com/Sternrassler/cm-offers-feed/pkg/poll"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	pagesRequestedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cmfeed_feed_pages_requested_total",
		Help: "Total number of background pages requested",
	})

	pagesResolvedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cmfeed_feed_pages_resolved_total",
		Help: "Total number of background pages resolved by outcome",
	}, []string{"outcome"})

	pagesInflight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cmfeed_feed_pages_inflight",
		Help: "Background pages currently being polled",
	})
)

// ErrNoPagination is returned when the host page carries no pagination.
var ErrNoPagination = errors.New("no pagination available")

// PageStatus is the lifecycle of one page number.
type PageStatus int

const (
	// StatusUnrequested pages have no background document.
	StatusUnrequested PageStatus = iota
	// StatusRequested pages are loading.
	StatusRequested
	// StatusReady pages were loaded and published.
	StatusReady
	// StatusNotReady pages timed out and were skipped.
	StatusNotReady
)

// String returns the status label.
func (s PageStatus) String() string {
	switch s {
	case StatusUnrequested:
		return "unrequested"
	case StatusRequested:
		return "requested"
	case StatusReady:
		return "ready"
	case StatusNotReady:
		return "not_ready"
	default:
		return "unknown"
	}
}

// Config configures an Orchestrator.
type Config struct {
	// Base is the host page location; page URLs rewrite its page selector.
	Base *url.URL

	// Pagination is parsed once from the host page and never changes.
	Pagination pagination.State

	// Readiness bounds the poll of each background document.
	// Defaults to 500ms x 20.
	Readiness poll.Config

	// Marker is the selector that signals a rendered page.
	// Defaults to listing.MarkerSelector.
	Marker string
}

// DefaultReadiness is the readiness poll bound of background documents.
func DefaultReadiness() poll.Config {
	return poll.Config{Purpose: "readiness", Interval: 500 * time.Millisecond, MaxAttempts: 20}
}

// Orchestrator sequences background page loads for one host page.
type Orchestrator struct {
	base      *url.URL
	state     pagination.State
	readiness poll.Config
	marker    string

	loader    document.Loader
	bus       *Bus
	indicator Indicator
	logger    zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	pagesLoaded int
	loading     map[int]bool
	statuses    map[int]PageStatus
	handles     map[int]*document.Handle
	detached    bool
	closed      bool
}

// New creates an orchestrator that lives until ctx ends or Close is called.
// A nil indicator disables progress reporting.
func New(ctx context.Context, cfg Config, loader document.Loader, bus *Bus, indicator Indicator) (*Orchestrator, error) {
	if cfg.Pagination.CurrentPage <= 0 {
		return nil, ErrNoPagination
	}
	if cfg.Base == nil {
		return nil, errors.New("base URL is required")
	}
	if loader == nil || bus == nil {
		return nil, errors.New("loader and bus are required")
	}

	if cfg.Readiness == (poll.Config{}) {
		cfg.Readiness = DefaultReadiness()
	}
	if err := cfg.Readiness.Validate(); err != nil {
		return nil, err
	}
	if cfg.Marker == "" {
		cfg.Marker = listing.MarkerSelector
	}
	if indicator == nil {
		indicator = nopIndicator{}
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Orchestrator{
		base:        cfg.Base,
		state:       cfg.Pagination,
		readiness:   cfg.Readiness,
		marker:      cfg.Marker,
		loader:      loader,
		bus:         bus,
		indicator:   indicator,
		logger:      logging.NewLogger(logging.ComponentFeed),
		ctx:         ctx,
		cancel:      cancel,
		pagesLoaded: cfg.Pagination.CurrentPage,
		loading:     make(map[int]bool),
		statuses:    make(map[int]PageStatus),
		handles:     make(map[int]*document.Handle),
	}, nil
}

// RequestNextPage starts loading page pagesLoaded+1. It returns false when
// nothing was started: the feed is exhausted, detached, or the page is
// already loading.
func (o *Orchestrator) RequestNextPage() bool {
	o.mu.Lock()
	if o.closed || o.detached || o.ctx.Err() != nil {
		o.mu.Unlock()
		return false
	}

	if o.state.TotalPages <= o.pagesLoaded {
		o.detached = true
		loaded := o.pagesLoaded
		o.mu.Unlock()

		o.indicator.Retire()
		o.logger.Info().
			Int("pages_loaded", loaded).
			Int("total_pages", o.state.TotalPages).
			Bool("has_more_pages", o.state.HasMorePages).
			Msg("No pages left, scroll trigger detached")
		return false
	}

	next := o.pagesLoaded + 1
	if o.loading[next] {
		o.mu.Unlock()
		o.logger.Debug().Int("page", next).Msg("Already loading page")
		return false
	}

	o.loading[next] = true
	o.statuses[next] = StatusRequested
	o.wg.Add(1)
	o.mu.Unlock()

	pageURL := pagination.PageURL(o.base, next)

	o.indicator.Start(next)
	handle := o.loader.Load(o.ctx, next, pageURL)

	o.mu.Lock()
	o.handles[next] = handle
	o.mu.Unlock()

	pagesRequestedTotal.Inc()
	pagesInflight.Inc()
	o.logger.Info().Int("page", next).Str("url", pageURL).Msg("Start loading page")

	o.bus.Publish(Event{Sender: SenderName, Kind: PageRequested, Page: next})

	go o.awaitReady(next, handle)
	return true
}

// awaitReady polls handle until the content tree exists and contains the
// marker, then resolves the page.
func (o *Orchestrator) awaitReady(page int, handle *document.Handle) {
	defer o.wg.Done()
	defer pagesInflight.Dec()

	outcome, err := poll.Until(o.ctx, o.readiness, func() bool {
		if handle.Document() == nil {
			return false
		}
		return handle.HasMarker(o.marker)
	})

	switch outcome {
	case poll.TimedOut:
		o.logger.Warn().
			Int("page", page).
			Str("url", handle.URL).
			Int("attempts", o.readiness.MaxAttempts).
			Msg("Poll limit reached before page loaded, skipping page")
	case poll.Cancelled:
		o.logger.Debug().Err(err).Int("page", page).Msg("Page load cancelled")
	}

	o.resolve(page, handle, outcome)
}

// resolve records the outcome of page. pagesLoaded advances even when the
// page was not ready so the feed keeps moving.
func (o *Orchestrator) resolve(page int, handle *document.Handle, outcome poll.Outcome) {
	ready := outcome == poll.Ready

	o.mu.Lock()
	o.loading[page] = false
	if page > o.pagesLoaded {
		o.pagesLoaded = page
	}
	if ready {
		o.statuses[page] = StatusReady
	} else {
		o.statuses[page] = StatusNotReady
	}
	delete(o.handles, page)
	o.mu.Unlock()

	if ready {
		handle.SetStatus(document.Ready)
	} else {
		handle.SetStatus(document.TimedOut)
	}
	o.indicator.Stop(page)
	pagesResolvedTotal.WithLabelValues(outcome.String()).Inc()

	// Subscribers run synchronously, so the tree is merged once Publish
	// returns and the handle can be released.
	defer handle.Dispose()

	if outcome == poll.Cancelled {
		return
	}
	if !ready {
		o.logger.Error().Int("page", page).Msg("Failed to load articles from page")
		o.bus.Publish(Event{Sender: SenderName, Kind: PageFailed, Page: page})
		return
	}

	o.logger.Info().Int("page", page).Msg("Loaded page")
	o.bus.Publish(Event{Sender: SenderName, Kind: PageReady, Page: page, Document: handle.Document()})
}

// OnScroll is the scroll listener. It requests the next page when the last
// row is close enough and reports whether a load was started.
func (o *Orchestrator) OnScroll(last Rect) bool {
	if o.Detached() || !ShouldLoadNext(last) {
		return false
	}
	return o.RequestNextPage()
}

// Status returns the lifecycle state of page.
func (o *Orchestrator) Status(page int) PageStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.statuses[page]
}

// PagesLoaded returns the highest page merged or skipped so far.
func (o *Orchestrator) PagesLoaded() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pagesLoaded
}

// Loading reports whether page has a background document in flight.
func (o *Orchestrator) Loading(page int) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.loading[page]
}

// Detached reports whether the feed reached its terminal state.
func (o *Orchestrator) Detached() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.detached
}

// Pagination returns the immutable pagination state.
func (o *Orchestrator) Pagination() pagination.State {
	return o.state
}

// Wait blocks until every started page load has resolved.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Close cancels in-flight polls, waits for them and disposes their handles.
func (o *Orchestrator) Close() {
	// No wg.Add may follow once Wait starts.
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()

	o.cancel()
	o.wg.Wait()

	o.mu.Lock()
	handles := o.handles
	o.handles = make(map[int]*document.Handle)
	o.mu.Unlock()

	for _, h := range handles {
		h.Dispose()
	}
}
