package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	nexus "github.com/VL13N/FullStackNexus-sub002/internal"
	"github.com/VL13N/FullStackNexus-sub002/internal/cache"
)

// SaveSnapshot persists a snapshot as a JSON blob and returns its row ID.
// The cache core defines no storage format, so JSON is this store's choice.
func (s *Store) SaveSnapshot(ctx context.Context, snap *cache.Snapshot) (string, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	id := uuid.Must(uuid.NewV7()).String()
	_, err = s.write.ExecContext(ctx,
		`INSERT INTO snapshots (id, created_at, entry_count, data) VALUES (?, ?, ?, ?)`,
		id, snap.CreatedAt.UTC().Format(time.RFC3339Nano), len(snap.Entries), data,
	)
	if err != nil {
		return "", fmt.Errorf("insert snapshot: %w", err)
	}
	return id, nil
}

// LatestSnapshot loads the most recently saved snapshot.
func (s *Store) LatestSnapshot(ctx context.Context) (*cache.Snapshot, error) {
	var data []byte
	err := s.read.QueryRowContext(ctx,
		`SELECT data FROM snapshots ORDER BY created_at DESC LIMIT 1`,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nexus.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}

	var snap cache.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// PruneSnapshots deletes all but the newest keep rows.
func (s *Store) PruneSnapshots(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.write.ExecContext(ctx,
		`DELETE FROM snapshots WHERE id NOT IN (
			SELECT id FROM snapshots ORDER BY created_at DESC LIMIT ?
		)`, keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}
