package document

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/Sternrassler/cm-offers-feed/pkg/client"
	"github.com/Sternrassler/cm-offers-feed/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	loadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cmfeed_document_loads_total",
		Help: "Total background document loads by result",
	}, []string{"result"})

	loadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cmfeed_document_load_duration_seconds",
		Help:    "Time to fetch and parse a background document",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	})
)

// Loader creates background documents.
type Loader interface {
	// Load starts loading rawURL and returns immediately. The handle's
	// content tree appears once the load finishes.
	Load(ctx context.Context, page int, rawURL string) *Handle
}

// Getter fetches a URL body. *client.Client satisfies it.
type Getter interface {
	Get(ctx context.Context, rawURL string) ([]byte, error)
}

// HTTPLoader fetches documents over HTTP and parses them with goquery.
type HTTPLoader struct {
	getter Getter
	logger zerolog.Logger
}

// NewHTTPLoader creates a loader on top of getter.
func NewHTTPLoader(getter Getter) *HTTPLoader {
	return &HTTPLoader{
		getter: getter,
		logger: logging.NewLogger(logging.ComponentLoader),
	}
}

// Load implements Loader. The fetch runs until it completes, ctx ends or the
// handle is disposed.
func (l *HTTPLoader) Load(ctx context.Context, page int, rawURL string) *Handle {
	loadCtx, cancel := context.WithCancel(ctx)

	h := NewHandle(page, rawURL)
	h.cancel = cancel

	go func() {
		defer cancel()

		doc, err := l.Fetch(loadCtx, rawURL)
		if err != nil {
			l.logger.Warn().
				Err(err).
				Bool("transient", client.Transient(err)).
				Int("page", page).
				Str("url", rawURL).
				Msg("Background document failed to load")
			h.Fail(err)
			return
		}
		h.Complete(doc)
	}()

	return h
}

// Fetch loads and parses rawURL synchronously.
func (l *HTTPLoader) Fetch(ctx context.Context, rawURL string) (*goquery.Document, error) {
	start := time.Now()
	defer func() {
		loadDuration.Observe(time.Since(start).Seconds())
	}()

	body, err := l.getter.Get(ctx, rawURL)
	if err != nil {
		loadsTotal.WithLabelValues("fetch_error").Inc()
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	doc, err := Parse(body)
	if err != nil {
		loadsTotal.WithLabelValues("parse_error").Inc()
		return nil, err
	}

	doc.Url, _ = url.Parse(rawURL)

	loadsTotal.WithLabelValues("ok").Inc()
	l.logger.Debug().Str("url", rawURL).Int("bytes", len(body)).Msg("Document loaded")
	return doc, nil
}

// Parse builds a content tree from raw HTML.
func Parse(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}
