// Package fetch implements the API-fetch wrapper around the response cache.
// It is the collaborator the cache core is designed for: every read runs
// the SmartGet decision, and only a genuine miss reaches the network.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	nexus "github.com/VL13N/FullStackNexus-sub002/internal"
	"github.com/VL13N/FullStackNexus-sub002/internal/cache"
	"github.com/VL13N/FullStackNexus-sub002/internal/telemetry"
)

// FetchFunc performs one upstream request and returns the raw payload.
type FetchFunc func(ctx context.Context) ([]byte, error)

// Fetcher runs the fetch protocol: SmartGet, then on a permitted miss the
// upstream call, then CacheResponse and Record. Concurrent misses for the
// same key are collapsed into a single upstream request.
type Fetcher struct {
	cache    *cache.Cache
	metrics  *telemetry.Metrics // nil disables metric recording
	tracer   trace.Tracer
	group    singleflight.Group
	breakers *breakers
}

// NewFetcher creates a Fetcher on top of the given cache.
func NewFetcher(c *cache.Cache, m *telemetry.Metrics) *Fetcher {
	return &Fetcher{
		cache:    c,
		metrics:  m,
		tracer:   telemetry.Tracer("nexuscache/fetch"),
		breakers: newBreakers(DefaultBreakerConfig()),
	}
}

// Fetch returns the payload for q, from cache when possible. An expired
// value is returned as-is when the provider's budget is exhausted; only
// when no cached value exists at all does budget exhaustion surface as
// nexus.ErrRateLimited.
func (f *Fetcher) Fetch(ctx context.Context, q cache.Query, fn FetchFunc) ([]byte, error) {
	out := f.cache.SmartGet(q)
	switch out.Kind {
	case cache.FreshHit:
		f.countHit(q.Provider)
		return out.Value, nil

	case cache.StaleHitRateLimited:
		f.countStale(q.Provider)
		slog.LogAttrs(ctx, slog.LevelWarn, "serving stale value under rate limit",
			slog.String("provider", q.Provider),
			slog.String("endpoint", q.Endpoint),
			slog.Int64("age_ms", out.Age.Milliseconds()),
			slog.Time("budget_resets", out.Budget.ResetAt),
		)
		return out.Value, nil
	}

	f.countMiss(q.Provider)
	if !out.MayFetch {
		f.countBlock(q.Provider)
		return nil, fmt.Errorf("%s budget exhausted until %s: %w",
			q.Provider, out.Budget.ResetAt.Format(time.RFC3339), nexus.ErrRateLimited)
	}

	// The leader's result is shared by every coalesced caller, so the
	// upstream call must outlive the leader's own request context.
	v, err, _ := f.group.Do(q.Key(), func() (any, error) {
		return f.fetchUpstream(context.WithoutCancel(ctx), q, fn)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// fetchUpstream performs the real network call, spends budget, and caches
// the payload. Budget is spent on every upstream request made, successful
// or not; caching is a separate decision the cache itself makes.
func (f *Fetcher) fetchUpstream(ctx context.Context, q cache.Query, fn FetchFunc) ([]byte, error) {
	br := f.breakers.get(q.Provider)
	if !br.allow() {
		return nil, fmt.Errorf("%s circuit open: %w", q.Provider, nexus.ErrProviderDown)
	}

	ctx, span := f.tracer.Start(ctx, "fetch.upstream",
		trace.WithAttributes(
			attribute.String("provider", q.Provider),
			attribute.String("endpoint", q.Endpoint),
		))
	defer span.End()

	start := time.Now()
	payload, err := fn(ctx)
	f.observeUpstream(q.Provider, time.Since(start))
	f.cache.Record(q.Provider)
	br.observe(err)

	if err != nil {
		span.RecordError(err)
		f.countUpstreamError(q.Provider, err)
		return nil, fmt.Errorf("fetch %s %s: %w", q.Provider, q.Endpoint, err)
	}

	if !f.cache.CacheResponse(q, payload, cache.PutOptions{}) {
		slog.LogAttrs(ctx, slog.LevelDebug, "payload refused by cache",
			slog.String("provider", q.Provider),
			slog.String("endpoint", q.Endpoint),
		)
	}
	return payload, nil
}

func (f *Fetcher) countHit(provider string) {
	if f.metrics != nil {
		f.metrics.CacheHits.WithLabelValues(provider).Inc()
	}
}

func (f *Fetcher) countMiss(provider string) {
	if f.metrics != nil {
		f.metrics.CacheMisses.WithLabelValues(provider).Inc()
	}
}

func (f *Fetcher) countStale(provider string) {
	if f.metrics != nil {
		f.metrics.StaleServes.WithLabelValues(provider).Inc()
	}
}

func (f *Fetcher) countBlock(provider string) {
	if f.metrics != nil {
		f.metrics.RateLimitBlocks.WithLabelValues(provider).Inc()
	}
}

func (f *Fetcher) observeUpstream(provider string, d time.Duration) {
	if f.metrics != nil {
		f.metrics.UpstreamDuration.WithLabelValues(provider).Observe(d.Seconds())
	}
}

func (f *Fetcher) countUpstreamError(provider string, err error) {
	if f.metrics != nil {
		f.metrics.UpstreamErrors.WithLabelValues(provider, statusLabel(err)).Inc()
	}
}
