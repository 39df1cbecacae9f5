// Package telemetry provides observability primitives for the provider cache service.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	ActiveRequests   prometheus.Gauge
	UpstreamDuration *prometheus.HistogramVec
	UpstreamErrors   *prometheus.CounterVec
	CacheHits        *prometheus.CounterVec
	CacheMisses      *prometheus.CounterVec
	StaleServes      *prometheus.CounterVec
	CacheEvictions   prometheus.Gauge
	RateLimitBlocks  *prometheus.CounterVec
	CacheEntries     prometheus.Gauge
	SnapshotEntries  prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nexuscache",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:                       "nexuscache",
			Name:                            "request_duration_seconds",
			Help:                            "HTTP request duration in seconds.",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 0,
		}, []string{"method", "path"}),

		ActiveRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nexuscache",
			Name:      "active_requests",
			Help:      "Number of currently active requests.",
		}),

		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:                       "nexuscache",
			Name:                            "upstream_duration_seconds",
			Help:                            "Upstream provider call duration in seconds.",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 0,
		}, []string{"provider"}),

		UpstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nexuscache",
			Name:      "upstream_errors_total",
			Help:      "Total upstream provider errors.",
		}, []string{"provider", "status"}),

		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nexuscache",
			Name:      "cache_hits_total",
			Help:      "Total fresh cache hits.",
		}, []string{"provider"}),

		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nexuscache",
			Name:      "cache_misses_total",
			Help:      "Total cache misses.",
		}, []string{"provider"}),

		StaleServes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nexuscache",
			Name:      "cache_stale_serves_total",
			Help:      "Total expired values served because the provider budget was exhausted.",
		}, []string{"provider"}),

		CacheEvictions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nexuscache",
			Name:      "cache_evictions",
			Help:      "LRU evictions since start, mirrored from the cache counters.",
		}),

		RateLimitBlocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nexuscache",
			Name:      "ratelimit_blocks_total",
			Help:      "Total decisions affected by an exhausted provider budget.",
		}, []string{"provider"}),

		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nexuscache",
			Name:      "cache_entries",
			Help:      "Current number of cached entries.",
		}),

		SnapshotEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nexuscache",
			Name:      "snapshot_entries",
			Help:      "Entries in the most recently persisted snapshot.",
		}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ActiveRequests,
		m.UpstreamDuration,
		m.UpstreamErrors,
		m.CacheHits,
		m.CacheMisses,
		m.StaleServes,
		m.CacheEvictions,
		m.RateLimitBlocks,
		m.CacheEntries,
		m.SnapshotEntries,
	)

	return m
}
