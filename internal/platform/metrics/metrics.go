package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// 上游数据源
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Total number of upstream API calls by source and result",
		},
		[]string{"source", "result"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Duration of upstream API calls in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"source"},
	)

	UpstreamBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "upstream_circuit_breaker_state",
			Help: "Circuit breaker state per upstream (0=closed, 1=half-open, 2=open)",
		},
		[]string{"source"},
	)

	// 刷新流水线
	RefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "country_refresh_total",
			Help: "Total number of refresh runs by result",
		},
		[]string{"result"},
	)

	RefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "country_refresh_duration_seconds",
			Help:    "Duration of complete refresh runs in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	CountriesStored = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "countries_stored",
			Help: "Number of country records after the last refresh",
		},
	)

	SummaryRenderFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "summary_render_failures_total",
			Help: "Total number of summary image render failures",
		},
	)

	// 缓存
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "country_cache_lookups_total",
			Help: "Country cache lookups by outcome (hit, miss, error, bypass)",
		},
		[]string{"outcome"},
	)

	CacheHealthState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "country_cache_health_state",
			Help: "Redis cache health (0=healthy, 1=degraded, 2=rebuilding)",
		},
	)
)
