package postage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cmfeed_postage_cache_hits_total",
		Help: "Total postage lookups served from the stored collection",
	})

	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cmfeed_postage_cache_misses_total",
		Help: "Total postage lookups that required a remote fetch",
	})

	cacheEvictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cmfeed_postage_cache_evictions_total",
		Help: "Total stale postage records removed at a year boundary",
	})

	sharedLookupsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cmfeed_postage_shared_lookups_total",
		Help: "Total lookups that joined an in-flight lookup of the same pair",
	})

	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cmfeed_postage_api_requests_total",
		Help: "Total shipping-cost API requests by result",
	}, []string{"status"})
)
