package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_cache_lookups_total",
			Help: "Analytics cache lookups by outcome",
		},
		[]string{"outcome"}, // hit, stale_hit, miss
	)

	CacheFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_cache_fetches_total",
			Help: "Underlying fetches triggered by cache misses and refreshes",
		},
		[]string{"kind"}, // sync, background, coalesced
	)

	CacheSweptEntries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analytics_cache_swept_entries_total",
			Help: "Expired cache entries removed by the periodic sweep",
		},
	)

	ReportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "availability_report_duration_seconds",
			Help:    "Time spent computing availability reports",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"scope"}, // team, sprint, company, alerts
	)
)

func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func RecordCacheLookup(outcome string) {
	CacheLookups.WithLabelValues(outcome).Inc()
}

func RecordCacheFetch(kind string) {
	CacheFetches.WithLabelValues(kind).Inc()
}

func RecordReportDuration(scope string, duration time.Duration) {
	ReportDuration.WithLabelValues(scope).Observe(duration.Seconds())
}
