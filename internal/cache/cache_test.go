package cache

import (
	"errors"
	"testing"
	"time"

	nexus "github.com/VL13N/FullStackNexus-sub002/internal"
)

func TestNew_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		opts Options
	}{
		{"negative default ttl", Options{DefaultTTL: -time.Second}},
		{"negative max size", Options{MaxSize: -1}},
		{"negative cleanup interval", Options{CleanupInterval: -time.Minute}},
		{"negative provider ttl", Options{ProviderTTLs: map[string]time.Duration{"p": -1}}},
		{"negative rate capacity", Options{RateLimits: map[string]RateLimit{"p": {Requests: -1, Window: time.Minute}}}},
		{"rate limit without window", Options{RateLimits: map[string]RateLimit{"p": {Requests: 5}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := New(tc.opts); !errors.Is(err, nexus.ErrInvalidConfig) {
				t.Errorf("New = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()
	c, err := New(Options{MaxSize: 10})
	if err != nil {
		t.Fatal(err)
	}
	if got := c.TTL("anything"); got != 5*time.Minute {
		t.Errorf("default ttl = %v, want 5m", got)
	}
	if got := c.CleanupInterval(); got != time.Minute {
		t.Errorf("cleanup interval = %v, want 1m", got)
	}
}

func TestTTL_PerProviderOverride(t *testing.T) {
	t.Parallel()
	c, err := New(Options{
		MaxSize:      10,
		DefaultTTL:   time.Minute,
		ProviderTTLs: map[string]time.Duration{"taapi": 10 * time.Second, "off": 0},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := c.TTL("taapi"); got != 10*time.Second {
		t.Errorf("taapi ttl = %v", got)
	}
	if got := c.TTL("off"); got != 0 {
		t.Errorf("explicit zero ttl = %v, want 0 (caching disabled)", got)
	}
	if got := c.TTL("other"); got != time.Minute {
		t.Errorf("fallback ttl = %v", got)
	}
}

func TestInvalidate_ThroughFacade(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, nil, Options{MaxSize: 10, DefaultTTL: time.Hour})

	c.CacheResponse(Query{Provider: "taapi", Endpoint: "/rsi"}, []byte(`1`), PutOptions{})
	c.CacheResponse(Query{Provider: "taapi", Endpoint: "/macd"}, []byte(`2`), PutOptions{})

	if n := c.Invalidate("taapi", ""); n != 2 {
		t.Errorf("invalidated %d, want 2", n)
	}
	if out := c.SmartGet(Query{Provider: "taapi", Endpoint: "/rsi"}); out.Kind != Miss {
		t.Error("invalidated entry should miss")
	}
}

func TestDestroy_IdempotentTeardown(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, nil, Options{MaxSize: 10, DefaultTTL: time.Hour})
	q := Query{Provider: "p", Endpoint: "/e"}
	c.CacheResponse(q, []byte(`1`), PutOptions{})

	c.Destroy()
	c.Destroy() // second call is a no-op, not a panic

	if out := c.SmartGet(q); out.Kind != Miss || out.MayFetch {
		t.Errorf("destroyed cache get = %v mayFetch %v, want dead miss", out.Kind, out.MayFetch)
	}
	if c.CacheResponse(q, []byte(`2`), PutOptions{}) {
		t.Error("destroyed cache must refuse writes")
	}
	if c.Export() != nil {
		t.Error("destroyed cache must export nothing")
	}
}

func TestStats_HitRate(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, nil, Options{MaxSize: 10, DefaultTTL: time.Hour})
	q := Query{Provider: "p", Endpoint: "/e"}

	c.SmartGet(q) // miss
	c.CacheResponse(q, []byte(`123456`), PutOptions{})
	c.SmartGet(q) // hit
	c.SmartGet(q) // hit

	s := c.Stats()
	if s.HitRate < 66.6 || s.HitRate > 66.7 {
		t.Errorf("hit rate = %.2f, want ~66.67", s.HitRate)
	}
	if s.Entries != 1 {
		t.Errorf("entries = %d, want 1", s.Entries)
	}
	if ps := s.Providers["p"]; ps.Entries != 1 || ps.SizeBytes != 6 {
		t.Errorf("provider stats = %+v", ps)
	}
}

func TestStats_BudgetMap(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, nil, Options{
		MaxSize:    10,
		RateLimits: map[string]RateLimit{"p1": {Requests: 1, Window: time.Minute}},
	})
	c.Record("p1")

	s := c.Stats()
	b, ok := s.Budgets["p1"]
	if !ok {
		t.Fatal("budgets should include every configured provider")
	}
	if b.Allowed || b.Remaining != 0 {
		t.Errorf("budget = %+v, want exhausted", b)
	}
}

func TestEvictionsCounted(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, nil, Options{MaxSize: 1, DefaultTTL: time.Hour})

	c.CacheResponse(Query{Provider: "p", Endpoint: "/a"}, []byte(`1`), PutOptions{})
	c.CacheResponse(Query{Provider: "p", Endpoint: "/b"}, []byte(`2`), PutOptions{})

	if s := c.Stats(); s.Evictions != 1 {
		t.Errorf("evictions = %d, want 1", s.Evictions)
	}
}
