package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	nexus "github.com/VL13N/FullStackNexus-sub002/internal"
	"github.com/VL13N/FullStackNexus-sub002/internal/cache"
	"github.com/VL13N/FullStackNexus-sub002/internal/storage"
	"github.com/VL13N/FullStackNexus-sub002/internal/telemetry"
)

// finalSnapshotTimeout bounds the shutdown snapshot so a wedged database
// cannot stall process exit.
const finalSnapshotTimeout = 5 * time.Second

// SnapshotWorker periodically exports the cache to the snapshot store and
// prunes old rows. On shutdown it takes one final snapshot so a restart
// resumes with warm entries and honest rate budgets.
type SnapshotWorker struct {
	cache    *cache.Cache
	store    storage.SnapshotStore
	metrics  *telemetry.Metrics // nil disables gauge updates
	interval time.Duration
	keep     int
}

// NewSnapshotWorker creates a SnapshotWorker saving every interval and
// keeping the newest keep snapshots.
func NewSnapshotWorker(c *cache.Cache, store storage.SnapshotStore, m *telemetry.Metrics, interval time.Duration, keep int) *SnapshotWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if keep <= 0 {
		keep = 5
	}
	return &SnapshotWorker{cache: c, store: store, metrics: m, interval: interval, keep: keep}
}

// Run snapshots on every tick until ctx is cancelled, then takes a final
// snapshot on its own deadline.
func (w *SnapshotWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.snapshot(ctx); err != nil {
				slog.LogAttrs(ctx, slog.LevelError, "snapshot failed",
					slog.String("error", err.Error()),
				)
			}
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), finalSnapshotTimeout)
			defer cancel()
			if err := w.snapshot(final); err != nil {
				slog.LogAttrs(final, slog.LevelError, "final snapshot failed",
					slog.String("error", err.Error()),
				)
			}
			return nil
		}
	}
}

func (w *SnapshotWorker) snapshot(ctx context.Context) error {
	snap := w.cache.Export()
	if snap == nil {
		return nil
	}

	id, err := w.store.SaveSnapshot(ctx, snap)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	deleted, err := w.store.PruneSnapshots(ctx, w.keep)
	if err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	if w.metrics != nil {
		w.metrics.SnapshotEntries.Set(float64(len(snap.Entries)))
	}

	slog.LogAttrs(ctx, slog.LevelInfo, "snapshot saved",
		slog.String("id", id),
		slog.Int("entries", len(snap.Entries)),
		slog.Int("pruned", deleted),
	)
	return nil
}

// Restore imports the most recent snapshot into the cache at boot. A
// missing snapshot is not an error; a first start has nothing to restore.
func Restore(ctx context.Context, c *cache.Cache, store storage.SnapshotStore) (int, error) {
	snap, err := store.LatestSnapshot(ctx)
	if err != nil {
		if errors.Is(err, nexus.ErrSnapshotNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("load snapshot: %w", err)
	}
	return c.Import(snap), nil
}
