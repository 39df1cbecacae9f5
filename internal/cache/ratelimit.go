package cache

import (
	"sync"
	"time"
)

// BudgetResult is the outcome of a budget check. ResetAt is when the budget
// next increases: the oldest retained request instant plus the window, or
// the check time when nothing is outstanding.
type BudgetResult struct {
	Allowed   bool
	Remaining int
	Unlimited bool
	ResetAt   time.Time
}

// rateWindow is one provider's exact sliding window of request instants.
// Expired timestamps are pruned lazily on every check or record, never by a
// timer of its own.
type rateWindow struct {
	mu       sync.Mutex
	capacity int
	window   time.Duration
	stamps   []time.Time
}

// prune drops timestamps that no longer satisfy now - ts < window.
func (w *rateWindow) prune(now time.Time) int {
	cut := 0
	for cut < len(w.stamps) && now.Sub(w.stamps[cut]) >= w.window {
		cut++
	}
	if cut > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[cut:]...)
	}
	return cut
}

func (w *rateWindow) check(now time.Time) BudgetResult {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(now)
	remaining := w.capacity - len(w.stamps)
	if remaining < 0 {
		remaining = 0
	}
	resetAt := now
	if len(w.stamps) > 0 {
		resetAt = w.stamps[0].Add(w.window)
	}
	return BudgetResult{
		Allowed:   remaining > 0,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}

func (w *rateWindow) record(now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(now)
	w.stamps = append(w.stamps, now)
}

// RateBudgetTracker keeps the per-provider sliding windows and owns all
// admission decisions. Providers without a configured limit are unlimited.
type RateBudgetTracker struct {
	mu      sync.RWMutex
	windows map[string]*rateWindow
	limits  map[string]RateLimit
	now     func() time.Time
}

// NewRateBudgetTracker creates a tracker for the given per-provider limits.
func NewRateBudgetTracker(limits map[string]RateLimit, now func() time.Time) *RateBudgetTracker {
	if now == nil {
		now = time.Now
	}
	lim := make(map[string]RateLimit, len(limits))
	for p, rl := range limits {
		lim[p] = rl
	}
	return &RateBudgetTracker{
		windows: make(map[string]*rateWindow),
		limits:  lim,
		now:     now,
	}
}

// CheckBudget reports whether provider may make another upstream request,
// how many requests remain, and when the budget next increases.
func (t *RateBudgetTracker) CheckBudget(provider string) BudgetResult {
	w := t.getWindow(provider)
	if w == nil {
		return BudgetResult{Allowed: true, Unlimited: true, ResetAt: t.now()}
	}
	return w.check(t.now())
}

// Record appends the current instant to provider's window. Call exactly
// once per upstream request actually made, not once per cache check.
func (t *RateBudgetTracker) Record(provider string) {
	if w := t.getWindow(provider); w != nil {
		w.record(t.now())
	}
}

// Prune drops aged-out timestamps across all windows and returns the count.
func (t *RateBudgetTracker) Prune() int {
	t.mu.RLock()
	windows := make([]*rateWindow, 0, len(t.windows))
	for _, w := range t.windows {
		windows = append(windows, w)
	}
	t.mu.RUnlock()

	now := t.now()
	pruned := 0
	for _, w := range windows {
		w.mu.Lock()
		pruned += w.prune(now)
		w.mu.Unlock()
	}
	return pruned
}

// Budgets returns a live budget check per configured provider.
func (t *RateBudgetTracker) Budgets() map[string]BudgetResult {
	out := make(map[string]BudgetResult, len(t.limits))
	for p := range t.limits {
		out[p] = t.CheckBudget(p)
	}
	return out
}

// getWindow returns provider's window, lazily creating it, or nil when the
// provider is unlimited.
func (t *RateBudgetTracker) getWindow(provider string) *rateWindow {
	t.mu.RLock()
	w, ok := t.windows[provider]
	t.mu.RUnlock()
	if ok {
		return w
	}

	rl, limited := t.limits[provider]
	if !limited || rl.Requests <= 0 {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if w, ok := t.windows[provider]; ok {
		return w
	}
	w = &rateWindow{capacity: rl.Requests, window: rl.Window}
	t.windows[provider] = w
	return w
}

func (t *RateBudgetTracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.windows = make(map[string]*rateWindow)
}

// windowStamps returns a copy of every window's retained timestamps.
func (t *RateBudgetTracker) windowStamps() map[string][]time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string][]time.Time, len(t.windows))
	for p, w := range t.windows {
		w.mu.Lock()
		out[p] = append([]time.Time(nil), w.stamps...)
		w.mu.Unlock()
	}
	return out
}

// restoreStamps replaces window contents from a snapshot. Stamps for
// providers that are no longer rate limited are dropped; aged stamps fall
// out on the next prune.
func (t *RateBudgetTracker) restoreStamps(stamps map[string][]time.Time) {
	t.mu.Lock()
	t.windows = make(map[string]*rateWindow)
	t.mu.Unlock()

	for p, ts := range stamps {
		w := t.getWindow(p)
		if w == nil {
			continue
		}
		w.mu.Lock()
		w.stamps = append([]time.Time(nil), ts...)
		w.mu.Unlock()
	}
}
