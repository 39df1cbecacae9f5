// Package cache implements the in-process response cache that mediates access
// to the rate-limited upstream data providers. It performs no I/O of its own:
// callers run the fetch, the cache decides whether they need to.
package cache

import (
	"fmt"
	"sync/atomic"
	"time"

	nexus "github.com/VL13N/FullStackNexus-sub002/internal"
)

// RateLimit is a sliding-window request budget: at most Requests upstream
// calls within the trailing Window. Requests <= 0 means unlimited.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

// Options configures a Cache. The zero value of DefaultTTL and
// CleanupInterval select sensible defaults; MaxSize is taken literally,
// so a zero MaxSize yields a cache that stores nothing.
type Options struct {
	// DefaultTTL applies to providers without a ProviderTTLs entry.
	// Zero selects 5 minutes.
	DefaultTTL time.Duration

	// MaxSize is the maximum number of entries before LRU eviction.
	MaxSize int

	// CleanupInterval is how often the embedding scheduler should call
	// Cleanup and PruneBudgets. Zero selects 1 minute. The cache itself
	// runs no timers.
	CleanupInterval time.Duration

	// ProviderTTLs overrides DefaultTTL per provider. An explicit zero
	// makes that provider's entries expire immediately, disabling caching
	// for it without branching caller code.
	ProviderTTLs map[string]time.Duration

	// RateLimits holds the per-provider request budgets. Providers absent
	// from the map are unlimited.
	RateLimits map[string]RateLimit

	// Now is the clock source, defaulting to time.Now.
	Now func() time.Time
}

// Cache composes the entry store, rate budget tracker, and stats recorder
// behind the smart-accessor decision procedure. Safe for concurrent use.
type Cache struct {
	defaultTTL      time.Duration
	cleanupInterval time.Duration
	providerTTLs    map[string]time.Duration

	store     *EntryStore
	budget    *RateBudgetTracker
	stats     *StatsRecorder
	now       func() time.Time
	destroyed atomic.Bool
}

// New validates opts and builds a Cache. Configuration errors are reported
// at construction, wrapped around nexus.ErrInvalidConfig.
func New(opts Options) (*Cache, error) {
	if opts.DefaultTTL < 0 {
		return nil, fmt.Errorf("%w: negative default ttl %v", nexus.ErrInvalidConfig, opts.DefaultTTL)
	}
	if opts.MaxSize < 0 {
		return nil, fmt.Errorf("%w: negative max size %d", nexus.ErrInvalidConfig, opts.MaxSize)
	}
	if opts.CleanupInterval < 0 {
		return nil, fmt.Errorf("%w: negative cleanup interval %v", nexus.ErrInvalidConfig, opts.CleanupInterval)
	}
	for p, ttl := range opts.ProviderTTLs {
		if ttl < 0 {
			return nil, fmt.Errorf("%w: negative ttl %v for provider %q", nexus.ErrInvalidConfig, ttl, p)
		}
	}
	for p, rl := range opts.RateLimits {
		if rl.Requests < 0 {
			return nil, fmt.Errorf("%w: negative rate capacity %d for provider %q", nexus.ErrInvalidConfig, rl.Requests, p)
		}
		if rl.Requests > 0 && rl.Window <= 0 {
			return nil, fmt.Errorf("%w: rate limit for provider %q needs a positive window", nexus.ErrInvalidConfig, p)
		}
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	defaultTTL := opts.DefaultTTL
	if defaultTTL == 0 {
		defaultTTL = 5 * time.Minute
	}
	cleanupInterval := opts.CleanupInterval
	if cleanupInterval == 0 {
		cleanupInterval = time.Minute
	}

	ttls := make(map[string]time.Duration, len(opts.ProviderTTLs))
	for p, ttl := range opts.ProviderTTLs {
		ttls[p] = ttl
	}

	return &Cache{
		defaultTTL:      defaultTTL,
		cleanupInterval: cleanupInterval,
		providerTTLs:    ttls,
		store:           NewEntryStore(opts.MaxSize, now),
		budget:          NewRateBudgetTracker(opts.RateLimits, now),
		stats:           NewStatsRecorder(),
		now:             now,
	}, nil
}

// TTL returns the configured time-to-live for a provider's entries.
func (c *Cache) TTL(provider string) time.Duration {
	if ttl, ok := c.providerTTLs[provider]; ok {
		return ttl
	}
	return c.defaultTTL
}

// CleanupInterval reports how often the embedding scheduler should sweep.
func (c *Cache) CleanupInterval() time.Duration {
	return c.cleanupInterval
}

// CheckBudget reports the remaining request budget for a provider without
// consuming any of it.
func (c *Cache) CheckBudget(provider string) BudgetResult {
	return c.budget.CheckBudget(provider)
}

// Record consumes one unit of a provider's request budget. Call it exactly
// once per upstream request actually made, never on a cache hit.
func (c *Cache) Record(provider string) {
	if c.destroyed.Load() {
		return
	}
	c.budget.Record(provider)
}

// Invalidate removes all entries matching provider and key-substring pattern.
// An empty provider matches every provider. Returns the number of entries
// removed.
func (c *Cache) Invalidate(provider, pattern string) int {
	return c.store.Invalidate(provider, pattern)
}

// Cleanup sweeps out every expired entry. Get only reclaims keys that are
// requested again, so a periodic sweep is what bounds memory under skewed
// access patterns.
func (c *Cache) Cleanup() int {
	return c.store.Cleanup()
}

// PruneBudgets drops rate-window timestamps that have aged out. Pruning also
// happens lazily on every budget check; the sweep bounds memory for
// providers that go quiet.
func (c *Cache) PruneBudgets() int {
	return c.budget.Prune()
}

// Destroy tears the cache down: all entries, budgets, and counters are
// cleared. Safe to call more than once; only the first call does anything.
// The embedding application calls this once at shutdown, after stopping
// the sweep scheduler.
func (c *Cache) Destroy() {
	if !c.destroyed.CompareAndSwap(false, true) {
		return
	}
	c.store.clear()
	c.budget.reset()
	c.stats.reset()
}
