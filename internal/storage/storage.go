// Package storage defines the persistence interfaces the cache's snapshot
// hooks are wired to. The cache itself never persists anything; the
// embedding application exports snapshots here and imports them at boot.
package storage

import (
	"context"

	"github.com/VL13N/FullStackNexus-sub002/internal/cache"
)

// SnapshotStore persists exported cache snapshots.
type SnapshotStore interface {
	// SaveSnapshot persists a snapshot and returns its storage ID.
	SaveSnapshot(ctx context.Context, snap *cache.Snapshot) (string, error)
	// LatestSnapshot loads the most recently saved snapshot, or
	// nexus.ErrSnapshotNotFound when none exists.
	LatestSnapshot(ctx context.Context) (*cache.Snapshot, error)
	// PruneSnapshots deletes all but the newest keep snapshots and
	// returns the number deleted.
	PruneSnapshots(ctx context.Context, keep int) (int, error)
	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
	// Close releases the store's resources.
	Close() error
}
