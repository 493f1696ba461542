package pricing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "walletlens_price_cache_hits_total",
		Help: "Price lookups served from the cache",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "walletlens_price_cache_misses_total",
		Help: "Price lookups that had to go upstream",
	})
	upstreamCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletlens_price_upstream_calls_total",
			Help: "Upstream price API calls by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)
)
