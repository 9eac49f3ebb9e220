package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counts completed analyses by overall score category.
var AnalysesCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "seo_analyses_completed_total",
	Help: "Total number of completed analyses by overall score category",
}, []string{"category"})

// Counts analyses that stopped at a pipeline stage, by error kind.
var StageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "seo_stage_failures_total",
	Help: "Total number of analyses that ended with a stage error",
}, []string{"kind"})

// Counts scorers that failed and were replaced by their default.
var FactorFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "seo_factor_failures_total",
	Help: "Total number of factor scorers that failed",
}, []string{"factor"})

// Fetch metrics
var (
	NetworkFetches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seo_network_fetches_total",
		Help: "Total number of page fetches that went to the network",
	})

	FetchCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seo_fetch_cache_hits_total",
		Help: "Total number of page fetches served from a session cache",
	})

	FetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "seo_fetch_duration_seconds",
		Help:    "Time taken to fetch a page",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
	})
)

// Crawl metrics
var (
	PagesCrawled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seo_pages_crawled_total",
		Help: "Total number of pages visited by site crawls",
	})

	BrokenLinks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seo_broken_links_total",
		Help: "Total number of internal links found broken",
	})
)

// CircuitBreakerState reports 0=closed, 1=half-open, 2=open per guarded service.
var CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "seo_circuit_breaker_state",
	Help: "Current state of circuit breakers (0=closed, 1=half-open, 2=open)",
}, []string{"service"})

// HTTPRequests counts API requests by route and status code.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "seo_http_requests_total",
	Help: "Total number of API requests",
}, []string{"route", "status"})
