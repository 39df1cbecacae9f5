package cache

import "time"

// Snapshot is a deep structural copy of the cache state, suitable for
// handing to an external persistence layer. The cache defines no storage
// format; the embedding system picks one.
type Snapshot struct {
	CreatedAt   time.Time              `json:"created_at"`
	Entries     []Entry                `json:"entries"` // least recently used first
	Counters    Counters               `json:"counters"`
	RateWindows map[string][]time.Time `json:"rate_windows"`
}

// Export captures the current entries, counters, and rate windows. A
// destroyed cache has no state left worth capturing and returns nil.
func (c *Cache) Export() *Snapshot {
	if c.destroyed.Load() {
		return nil
	}
	return &Snapshot{
		CreatedAt:   c.now(),
		Entries:     c.store.entriesLRU(),
		Counters:    c.stats.counters(),
		RateWindows: c.budget.windowStamps(),
	}
}

// Import replaces the cache state with the snapshot's. Entries whose expiry
// is already in the past relative to this process's clock are silently
// dropped: a restart must never begin by serving known-stale data. Returns
// the number of entries imported.
func (c *Cache) Import(snap *Snapshot) int {
	if c.destroyed.Load() || snap == nil {
		return 0
	}
	imported := c.store.restore(snap.Entries)
	c.stats.restore(snap.Counters)
	c.budget.restoreStamps(snap.RateWindows)
	return imported
}
