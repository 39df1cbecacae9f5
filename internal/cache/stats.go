package cache

import (
	"sync/atomic"
	"time"
)

// Counters are the running totals the recorder maintains.
type Counters struct {
	Hits            uint64 `json:"hits"`
	Misses          uint64 `json:"misses"`
	Evictions       uint64 `json:"evictions"`
	RateLimitBlocks uint64 `json:"rate_limit_blocks"`
}

// ProviderStats is the per-provider breakdown in a stats snapshot.
type ProviderStats struct {
	Entries   int           `json:"entries"`
	SizeBytes int           `json:"size_bytes"`
	TTL       time.Duration `json:"ttl"`
}

// Stats is an on-demand, side-effect-free view of cache behavior.
type Stats struct {
	Counters
	HitRate   float64                  `json:"hit_rate"` // percentage
	Entries   int                      `json:"entries"`
	Providers map[string]ProviderStats `json:"providers"`
	Budgets   map[string]BudgetResult  `json:"budgets"`
}

// StatsRecorder keeps hit/miss/eviction/rate-limit-block counts. All
// counters are atomic so the hot path never takes a lock for bookkeeping.
type StatsRecorder struct {
	hits            atomic.Uint64
	misses          atomic.Uint64
	evictions       atomic.Uint64
	rateLimitBlocks atomic.Uint64
}

// NewStatsRecorder creates a zeroed recorder.
func NewStatsRecorder() *StatsRecorder {
	return &StatsRecorder{}
}

func (r *StatsRecorder) hit()            { r.hits.Add(1) }
func (r *StatsRecorder) miss()           { r.misses.Add(1) }
func (r *StatsRecorder) rateLimitBlock() { r.rateLimitBlocks.Add(1) }

func (r *StatsRecorder) addEvictions(n int) {
	if n > 0 {
		r.evictions.Add(uint64(n))
	}
}

func (r *StatsRecorder) counters() Counters {
	return Counters{
		Hits:            r.hits.Load(),
		Misses:          r.misses.Load(),
		Evictions:       r.evictions.Load(),
		RateLimitBlocks: r.rateLimitBlocks.Load(),
	}
}

func (r *StatsRecorder) restore(c Counters) {
	r.hits.Store(c.Hits)
	r.misses.Store(c.Misses)
	r.evictions.Store(c.Evictions)
	r.rateLimitBlocks.Store(c.RateLimitBlocks)
}

func (r *StatsRecorder) reset() {
	r.restore(Counters{})
}

// Stats assembles the full observability snapshot: counters, derived hit
// rate, per-provider entry/size breakdown, and one live budget check per
// configured provider. Reading stats has no side effects.
func (c *Cache) Stats() Stats {
	counters := c.stats.counters()
	s := Stats{
		Counters:  counters,
		Entries:   c.store.Len(),
		Providers: c.store.providerBreakdown(),
		Budgets:   c.budget.Budgets(),
	}
	if total := counters.Hits + counters.Misses; total > 0 {
		s.HitRate = float64(counters.Hits) / float64(total) * 100
	}
	for p, ps := range s.Providers {
		ps.TTL = c.TTL(p)
		s.Providers[p] = ps
	}
	return s
}
