package cache

import (
	"testing"
	"time"
)

func newTestCache(t *testing.T, clk *testClock, opts Options) *Cache {
	t.Helper()
	if clk != nil {
		opts.Now = clk.Now
	}
	c, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestSmartGet_FreshHit(t *testing.T) {
	t.Parallel()
	clk := newTestClock()
	c := newTestCache(t, clk, Options{MaxSize: 10, DefaultTTL: time.Minute})

	q := Query{Provider: "taapi", Endpoint: "/rsi", Params: map[string]string{"symbol": "BTC"}}
	if !c.CacheResponse(q, []byte(`{"value":55.2}`), PutOptions{}) {
		t.Fatal("response should be cached")
	}
	clk.Advance(10 * time.Second)

	out := c.SmartGet(q)
	if out.Kind != FreshHit {
		t.Fatalf("kind = %v, want fresh_hit", out.Kind)
	}
	if string(out.Value) != `{"value":55.2}` {
		t.Errorf("value = %s", out.Value)
	}
	if out.Age != 10*time.Second {
		t.Errorf("age = %v, want 10s", out.Age)
	}
}

func TestSmartGet_MissWhenEmpty(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, nil, Options{MaxSize: 10})

	out := c.SmartGet(Query{Provider: "taapi", Endpoint: "/rsi"})
	if out.Kind != Miss {
		t.Fatalf("kind = %v, want miss", out.Kind)
	}
	if !out.MayFetch {
		t.Error("unlimited provider miss should permit fetching")
	}
}

// The concrete stale-serve scenario: ttl=1000ms, budget 2 per 5000ms.
// Fresh hit first, then exhaust the budget, expire the entry, and the
// expired value must still be served rather than a miss.
func TestSmartGet_RateLimitProtectionPrecedence(t *testing.T) {
	t.Parallel()
	clk := newTestClock()
	c := newTestCache(t, clk, Options{
		MaxSize:      10,
		ProviderTTLs: map[string]time.Duration{"p1": 1000 * time.Millisecond},
		RateLimits:   map[string]RateLimit{"p1": {Requests: 2, Window: 5000 * time.Millisecond}},
	})

	q := Query{Provider: "p1", Endpoint: "/k1"}
	c.CacheResponse(q, []byte(`"v1"`), PutOptions{})

	out := c.SmartGet(q)
	if out.Kind != FreshHit || string(out.Value) != `"v1"` {
		t.Fatalf("immediate get = %v %s, want fresh v1", out.Kind, out.Value)
	}

	c.Record("p1")
	c.Record("p1")
	if c.CheckBudget("p1").Allowed {
		t.Fatal("budget should be exhausted after two records")
	}

	clk.Advance(1100 * time.Millisecond) // entry expired, budget still spent

	out = c.SmartGet(q)
	if out.Kind != StaleHitRateLimited {
		t.Fatalf("kind = %v, want stale_hit_rate_limited", out.Kind)
	}
	if string(out.Value) != `"v1"` {
		t.Errorf("stale value = %s, want v1", out.Value)
	}
}

func TestSmartGet_FreshBeatsRateLimit(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, nil, Options{
		MaxSize:    10,
		DefaultTTL: time.Minute,
		RateLimits: map[string]RateLimit{"p1": {Requests: 1, Window: time.Minute}},
	})

	q := Query{Provider: "p1", Endpoint: "/e"}
	c.CacheResponse(q, []byte(`1`), PutOptions{})
	c.Record("p1")

	// Budget exhausted, but the entry is fresh: still a plain fresh hit.
	out := c.SmartGet(q)
	if out.Kind != FreshHit {
		t.Errorf("kind = %v, want fresh_hit", out.Kind)
	}
}

func TestSmartGet_ExpiredWithBudgetIsMiss(t *testing.T) {
	t.Parallel()
	clk := newTestClock()
	c := newTestCache(t, clk, Options{
		MaxSize:      10,
		ProviderTTLs: map[string]time.Duration{"p1": time.Second},
		RateLimits:   map[string]RateLimit{"p1": {Requests: 5, Window: time.Minute}},
	})

	q := Query{Provider: "p1", Endpoint: "/e"}
	c.CacheResponse(q, []byte(`1`), PutOptions{})
	clk.Advance(2 * time.Second)

	out := c.SmartGet(q)
	if out.Kind != Miss {
		t.Fatalf("kind = %v, want miss (budget available, entry expired)", out.Kind)
	}
	if !out.MayFetch {
		t.Error("mayFetch should be true with budget available")
	}
}

func TestSmartGet_MissRateLimitedNoFallback(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, nil, Options{
		MaxSize:    10,
		RateLimits: map[string]RateLimit{"p1": {Requests: 1, Window: time.Minute}},
	})
	c.Record("p1")

	out := c.SmartGet(Query{Provider: "p1", Endpoint: "/never-cached"})
	if out.Kind != Miss {
		t.Fatalf("kind = %v, want miss", out.Kind)
	}
	if out.MayFetch {
		t.Error("mayFetch should be false when exhausted")
	}
	if out.Budget.Allowed {
		t.Error("budget info should report the exhaustion")
	}
}

// Per-call MaxAge is authoritative over the configured TTL when supplied.
func TestSmartGet_MaxAgeOverridesTTL(t *testing.T) {
	t.Parallel()
	clk := newTestClock()
	c := newTestCache(t, clk, Options{
		MaxSize:      10,
		ProviderTTLs: map[string]time.Duration{"p1": time.Hour},
		RateLimits:   map[string]RateLimit{"p1": {Requests: 1, Window: time.Minute}},
	})

	q := Query{Provider: "p1", Endpoint: "/e"}
	c.CacheResponse(q, []byte(`1`), PutOptions{})
	clk.Advance(10 * time.Minute)

	// Still fresh per the 1h TTL.
	if out := c.SmartGet(q); out.Kind != FreshHit {
		t.Fatalf("ttl-fresh get = %v, want fresh_hit", out.Kind)
	}

	// A tighter per-call bound demotes it to a miss with budget available.
	q.MaxAge = 5 * time.Minute
	out := c.SmartGet(q)
	if out.Kind != Miss || !out.MayFetch {
		t.Fatalf("maxAge get = %v mayFetch %v, want refetchable miss", out.Kind, out.MayFetch)
	}

	// With the budget spent, the too-old-but-TTL-live entry is served stale.
	c.Record("p1")
	out = c.SmartGet(q)
	if out.Kind != StaleHitRateLimited {
		t.Fatalf("maxAge+exhausted get = %v, want stale_hit_rate_limited", out.Kind)
	}
	// The entry was TTL-live, so it must still be in the store.
	q.MaxAge = 0
	if out := c.SmartGet(q); out.Kind != FreshHit {
		t.Errorf("entry should remain stored after maxAge stale serve, got %v", out.Kind)
	}
}

func TestCacheResponse_RefusesErrorPayloads(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, nil, Options{MaxSize: 10, DefaultTTL: time.Minute})
	q := Query{Provider: "p", Endpoint: "/e"}

	if c.CacheResponse(q, []byte(`{"error":"upstream exploded"}`), PutOptions{}) {
		t.Error("error payload should be refused")
	}
	if c.CacheResponse(q, []byte(`{"status":"error","message":"nope"}`), PutOptions{}) {
		t.Error("status=error payload should be refused")
	}
	if c.CacheResponse(q, []byte(`{"success":false}`), PutOptions{}) {
		t.Error("success=false payload should be refused")
	}
	if !c.CacheResponse(q, []byte(`{"error":"x"}`), PutOptions{CacheErrors: true}) {
		t.Error("CacheErrors should permit caching error payloads")
	}
}

func TestCacheResponse_NeverCachesRateLimitErrors(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, nil, Options{MaxSize: 10, DefaultTTL: time.Minute})
	q := Query{Provider: "p", Endpoint: "/e"}

	payloads := [][]byte{
		[]byte(`{"error":{"code":429,"message":"slow down"}}`),
		[]byte(`{"statusCode":429,"message":"Too Many Requests"}`),
		[]byte(`{"error":"rate limit exceeded"}`),
	}
	for _, p := range payloads {
		// Even CacheErrors must not poison the cache with a transient 429.
		if c.CacheResponse(q, p, PutOptions{CacheErrors: true}) {
			t.Errorf("rate-limit payload cached: %s", p)
		}
	}
}

func TestCacheResponse_OpaqueNonJSONPayload(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, nil, Options{MaxSize: 10, DefaultTTL: time.Minute})
	q := Query{Provider: "p", Endpoint: "/e"}

	if !c.CacheResponse(q, []byte("plain text, error-free by definition"), PutOptions{}) {
		t.Error("non-JSON payloads are opaque and must be cached")
	}
}

func TestCacheResponse_TTLOverride(t *testing.T) {
	t.Parallel()
	clk := newTestClock()
	c := newTestCache(t, clk, Options{MaxSize: 10, DefaultTTL: time.Minute})
	q := Query{Provider: "p", Endpoint: "/e"}

	c.CacheResponse(q, []byte(`1`), PutOptions{TTL: time.Hour})
	clk.Advance(30 * time.Minute)

	if out := c.SmartGet(q); out.Kind != FreshHit {
		t.Errorf("kind = %v, want fresh_hit under overridden TTL", out.Kind)
	}
}

func TestSmartGet_StatsCounting(t *testing.T) {
	t.Parallel()
	clk := newTestClock()
	c := newTestCache(t, clk, Options{
		MaxSize:      10,
		ProviderTTLs: map[string]time.Duration{"p": time.Second},
		RateLimits:   map[string]RateLimit{"p": {Requests: 1, Window: time.Minute}},
	})
	q := Query{Provider: "p", Endpoint: "/e"}

	c.SmartGet(q) // miss
	c.CacheResponse(q, []byte(`1`), PutOptions{})
	c.SmartGet(q) // fresh hit
	c.Record("p")
	clk.Advance(2 * time.Second)
	c.SmartGet(q) // stale hit under rate limit

	s := c.Stats()
	if s.Hits != 2 {
		t.Errorf("hits = %d, want 2 (fresh + stale serve)", s.Hits)
	}
	if s.Misses != 1 {
		t.Errorf("misses = %d, want 1", s.Misses)
	}
	if s.RateLimitBlocks != 1 {
		t.Errorf("rate limit blocks = %d, want 1", s.RateLimitBlocks)
	}
}
