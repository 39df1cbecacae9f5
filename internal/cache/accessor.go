package cache

import (
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// OutcomeKind tags the result of a SmartGet decision.
type OutcomeKind int

const (
	// FreshHit: a live cached value; no upstream call is needed.
	FreshHit OutcomeKind = iota
	// StaleHitRateLimited: the cached value is expired but the provider's
	// budget is exhausted, so the stale value is served instead of failing.
	StaleHitRateLimited
	// Miss: no usable cached value; the caller must fetch when MayFetch.
	Miss
)

func (k OutcomeKind) String() string {
	switch k {
	case FreshHit:
		return "fresh_hit"
	case StaleHitRateLimited:
		return "stale_hit_rate_limited"
	case Miss:
		return "miss"
	default:
		return "unknown"
	}
}

// Outcome is the explicit decision SmartGet hands back. "No cached value"
// and "rate limited" are expected, frequent results handled inline by every
// caller, so they are states here, not errors.
type Outcome struct {
	Kind     OutcomeKind
	Value    []byte        // set for FreshHit and StaleHitRateLimited
	Age      time.Duration // time since the entry was created
	MayFetch bool          // set for Miss: whether budget allows an upstream call
	Budget   BudgetResult
}

// Query identifies one logical provider request. MaxAge, when positive,
// is a per-call freshness bound that is authoritative over the provider's
// configured TTL: an entry still live per TTL but older than MaxAge is not
// served as fresh.
type Query struct {
	Provider string
	Endpoint string
	Params   map[string]string
	MaxAge   time.Duration
}

// Key returns the deterministic cache key for the query.
func (q Query) Key() string {
	return Key(q.Provider, q.Endpoint, q.Params)
}

// SmartGet is the decision procedure callers run before any upstream call.
// Order matters: a fresh value wins even when the provider is rate limited,
// and budget exhaustion downgrades to a stale serve rather than a miss
// whenever any prior value exists, even an expired one.
func (c *Cache) SmartGet(q Query) Outcome {
	if c.destroyed.Load() {
		return Outcome{Kind: Miss, MayFetch: false}
	}

	ent, found, fresh := c.store.Get(q.Key())
	if found {
		age := c.now().Sub(ent.CreatedAt)
		if fresh && (q.MaxAge <= 0 || age < q.MaxAge) {
			c.stats.hit()
			return Outcome{Kind: FreshHit, Value: ent.Value, Age: age}
		}
		budget := c.budget.CheckBudget(q.Provider)
		if !budget.Allowed {
			c.stats.hit()
			c.stats.rateLimitBlock()
			return Outcome{Kind: StaleHitRateLimited, Value: ent.Value, Age: age, Budget: budget}
		}
		c.stats.miss()
		return Outcome{Kind: Miss, MayFetch: true, Budget: budget}
	}

	budget := c.budget.CheckBudget(q.Provider)
	c.stats.miss()
	if !budget.Allowed {
		c.stats.rateLimitBlock()
	}
	return Outcome{Kind: Miss, MayFetch: budget.Allowed, Budget: budget}
}

// PutOptions controls the CacheResponse write path.
type PutOptions struct {
	// TTL overrides the provider's configured TTL when positive.
	TTL time.Duration
	// CacheErrors permits caching error-shaped payloads. Rate-limit error
	// payloads are refused regardless.
	CacheErrors bool
}

// CacheResponse stores a payload fetched from upstream and reports whether
// it was cached. Error-shaped responses are refused unless opts.CacheErrors,
// and a payload carrying the provider's own rate-limit error is always
// refused so a transient failure cannot poison the cache. Spending budget is
// the caller's job via Record; caching and budget stay independent.
func (c *Cache) CacheResponse(q Query, payload []byte, opts PutOptions) bool {
	if c.destroyed.Load() {
		return false
	}
	if isRateLimitPayload(payload) {
		return false
	}
	if !opts.CacheErrors && isErrorPayload(payload) {
		return false
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = c.TTL(q.Provider)
	}
	evicted := c.store.Put(q.Key(), payload, q.Provider, ttl)
	c.stats.addEvictions(evicted)
	return true
}

// isErrorPayload reports whether a JSON payload looks like a provider error
// (an "error" member, or status/success fields saying so). Non-JSON payloads
// are opaque and never treated as errors.
func isErrorPayload(payload []byte) bool {
	if !gjson.ValidBytes(payload) {
		return false
	}
	root := gjson.ParseBytes(payload)
	if root.Get("error").Exists() {
		return true
	}
	if s := root.Get("status"); s.Type == gjson.String && s.Str == "error" {
		return true
	}
	if ok := root.Get("success"); ok.Type == gjson.False {
		return true
	}
	return false
}

// isRateLimitPayload reports whether a JSON payload signals the provider's
// own rate-limit rejection (HTTP 429 encodings or a telltale message).
func isRateLimitPayload(payload []byte) bool {
	if !gjson.ValidBytes(payload) {
		return false
	}
	root := gjson.ParseBytes(payload)
	for _, path := range []string{"error.code", "error.status", "statusCode", "code"} {
		if root.Get(path).Int() == 429 {
			return true
		}
	}
	msg := strings.ToLower(root.Get("error.message").String())
	if msg == "" {
		msg = strings.ToLower(root.Get("error").String())
	}
	if msg == "" {
		msg = strings.ToLower(root.Get("message").String())
	}
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests")
}
