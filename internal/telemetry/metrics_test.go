package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewPedanticRegistry()
	m := NewMetrics(reg)

	if m.RequestsTotal == nil {
		t.Error("RequestsTotal is nil")
	}
	if m.RequestDuration == nil {
		t.Error("RequestDuration is nil")
	}
	if m.ActiveRequests == nil {
		t.Error("ActiveRequests is nil")
	}
	if m.UpstreamDuration == nil {
		t.Error("UpstreamDuration is nil")
	}
	if m.UpstreamErrors == nil {
		t.Error("UpstreamErrors is nil")
	}
	if m.CacheHits == nil {
		t.Error("CacheHits is nil")
	}
	if m.CacheMisses == nil {
		t.Error("CacheMisses is nil")
	}
	if m.StaleServes == nil {
		t.Error("StaleServes is nil")
	}
	if m.CacheEvictions == nil {
		t.Error("CacheEvictions is nil")
	}
	if m.RateLimitBlocks == nil {
		t.Error("RateLimitBlocks is nil")
	}
	if m.CacheEntries == nil {
		t.Error("CacheEntries is nil")
	}
	if m.SnapshotEntries == nil {
		t.Error("SnapshotEntries is nil")
	}

	// Verify metrics can be gathered without error.
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) == 0 {
		t.Error("expected at least one metric family")
	}
}

func TestNewMetricsIncrement(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewPedanticRegistry()
	m := NewMetrics(reg)

	// Increment counters and observe histograms to verify they work.
	m.RequestsTotal.WithLabelValues("GET", "/admin/cache/stats", "200").Inc()
	m.CacheHits.WithLabelValues("taapi").Inc()
	m.CacheMisses.WithLabelValues("taapi").Inc()
	m.StaleServes.WithLabelValues("lunarcrush").Inc()
	m.ActiveRequests.Set(5)
	m.RequestDuration.WithLabelValues("GET", "/admin/cache/stats").Observe(0.123)
	m.UpstreamDuration.WithLabelValues("taapi").Observe(0.456)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather after increment: %v", err)
	}

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}

	want := []string{
		"nexuscache_requests_total",
		"nexuscache_cache_hits_total",
		"nexuscache_cache_misses_total",
		"nexuscache_cache_stale_serves_total",
		"nexuscache_active_requests",
		"nexuscache_request_duration_seconds",
		"nexuscache_upstream_duration_seconds",
	}
	for _, name := range want {
		if !names[name] {
			t.Errorf("missing metric %q in gathered families", name)
		}
	}
}

// SetupTracing is not unit-tested because it requires a gRPC connection
// to an OTLP collector, which is integration-test territory.
