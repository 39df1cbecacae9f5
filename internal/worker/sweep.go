package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/VL13N/FullStackNexus-sub002/internal/cache"
	"github.com/VL13N/FullStackNexus-sub002/internal/telemetry"
)

// SweepWorker periodically removes expired entries and prunes spent
// rate-budget timestamps so memory tracks the live working set instead
// of everything ever cached.
type SweepWorker struct {
	cache    *cache.Cache
	metrics  *telemetry.Metrics // nil disables gauge updates
	interval time.Duration
}

// NewSweepWorker creates a SweepWorker. A non-positive interval falls back
// to the cache's configured cleanup interval.
func NewSweepWorker(c *cache.Cache, m *telemetry.Metrics, interval time.Duration) *SweepWorker {
	if interval <= 0 {
		interval = c.CleanupInterval()
	}
	return &SweepWorker{cache: c, metrics: m, interval: interval}
}

// Run sweeps on every tick until ctx is cancelled.
func (w *SweepWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sweep(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

func (w *SweepWorker) sweep(ctx context.Context) {
	removed := w.cache.Cleanup()
	pruned := w.cache.PruneBudgets()

	if w.metrics != nil {
		stats := w.cache.Stats()
		w.metrics.CacheEntries.Set(float64(stats.Entries))
		w.metrics.CacheEvictions.Set(float64(stats.Counters.Evictions))
	}
	if removed > 0 || pruned > 0 {
		slog.LogAttrs(ctx, slog.LevelDebug, "cache sweep",
			slog.Int("expired_removed", removed),
			slog.Int("stamps_pruned", pruned),
		)
	}
}
