// Package metrics exposes the Prometheus registry of cm-offers-feed.
// All metrics are defined in their respective packages (feed, postage,
// cache, client, ...) to maintain modularity and avoid circular
// dependencies.
//
// This package provides the HTTP handler and a reference for all metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the registry read by Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Feed Metrics (pkg/feed):
//   - cmfeed_feed_pages_requested_total (Counter): Background pages requested
//   - cmfeed_feed_pages_resolved_total{outcome} (Counter): Pages resolved (ready, timed_out, cancelled)
//   - cmfeed_feed_pages_inflight (Gauge): Pages currently being polled
//
// Poll Metrics (pkg/poll):
//   - cmfeed_poll_attempts{purpose} (Histogram): Checks per poll (readiness, banner, banner_dismiss)
//   - cmfeed_poll_timeouts_total{purpose} (Counter): Polls that exhausted their bound
//
// Document Metrics (pkg/document):
//   - cmfeed_document_loads_total{result} (Counter): Loads by result (ok, fetch_error, parse_error)
//   - cmfeed_document_load_duration_seconds (Histogram): Fetch and parse time
//
// Postage Metrics (pkg/postage):
//   - cmfeed_postage_cache_hits_total (Counter): Lookups served from the stored collection
//   - cmfeed_postage_cache_misses_total (Counter): Lookups that needed a remote fetch
//   - cmfeed_postage_cache_evictions_total (Counter): Stale records removed at a year boundary
//   - cmfeed_postage_shared_lookups_total (Counter): Lookups that joined an in-flight fetch
//   - cmfeed_postage_api_requests_total{status} (Counter): Shipping-cost API requests by result
//
// Offers Metrics (pkg/offers):
//   - cmfeed_offers_rows_total{result} (Counter): Rows by result (merged, not_shipping, duplicate)
//   - cmfeed_offers_estimates_total{result} (Counter): Estimates by result (ok, none)
//
// Cart Metrics (pkg/cart):
//   - cmfeed_cart_submissions_total{outcome} (Counter): Submissions (succeeded, failed, timed_out)
//
// Store Metrics (pkg/cache):
//   - cmfeed_store_hits_total{backend} (Counter): Store hits (redis, sqlite)
//   - cmfeed_store_misses_total{backend} (Counter): Store misses
//   - cmfeed_store_errors_total{backend, operation} (Counter): Store errors (get, set, delete)
//
// Request Metrics (pkg/client):
//   - cmfeed_requests_total{host, status} (Counter): Requests by host and HTTP status
//   - cmfeed_request_duration_seconds{host} (Histogram): Request duration by host
//   - cmfeed_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Rate Limit Metrics (pkg/ratelimit):
//   - cmfeed_rate_limit_windows_total (Counter): Back-off windows opened by 429 responses
//   - cmfeed_rate_limit_blocks_total (Counter): Requests blocked inside a window
//
// Example Prometheus Queries:
//
//   # Postage Cache Hit Rate
//   sum(rate(cmfeed_postage_cache_hits_total[5m])) /
//   (sum(rate(cmfeed_postage_cache_hits_total[5m])) + sum(rate(cmfeed_postage_cache_misses_total[5m])))
//
//   # Skipped Pages
//   cmfeed_feed_pages_resolved_total{outcome="timed_out"}
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(cmfeed_request_duration_seconds_bucket[5m]))
