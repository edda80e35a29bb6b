package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Quote metrics
	QuoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_quote_requests_total",
			Help: "Total number of quote requests",
		},
		[]string{"chain", "network", "connector", "status"},
	)

	QuoteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_quote_duration_seconds",
			Help:    "Quote request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"chain", "connector"},
	)

	// Execute metrics
	ExecuteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_execute_requests_total",
			Help: "Total number of swap execute requests",
		},
		[]string{"chain", "network", "connector", "status"},
	)

	ExecuteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_execute_duration_seconds",
			Help:    "Swap execution duration in seconds, including confirmation wait",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"chain", "connector"},
	)

	TransactionOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_transaction_outcomes_total",
			Help: "Reconciled transaction outcomes by status",
		},
		[]string{"chain", "network", "status"},
	)

	// Quote cache metrics
	QuoteCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_quote_cache_hits_total",
		Help: "Total number of quote cache hits",
	})

	QuoteCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_quote_cache_misses_total",
		Help: "Total number of quote cache misses",
	})

	QuoteCacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_quote_cache_size",
		Help: "Current number of entries in quote cache",
	})

	QuoteCacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_quote_cache_evictions_total",
			Help: "Quote cache evictions by reason",
		},
		[]string{"reason"},
	)

	// Upstream metrics
	UpstreamErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_upstream_errors_total",
			Help: "Classified upstream errors",
		},
		[]string{"upstream", "kind"},
	)

	// Pool registry metrics
	PoolCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_pool_count",
		Help: "Total number of registered pools",
	})

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_events_published_total",
			Help: "Swap outcome events published",
		},
		[]string{"status"},
	)

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_http_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
