package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/user/meshwatch/internal/topology"
)

// SnapshotStore persists the single global topology snapshot. Each save
// overwrites the previous snapshot; there is no history.
type SnapshotStore struct {
	db *DB
}

// NewSnapshotStore creates a snapshot store.
func NewSnapshotStore(db *DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// SaveSnapshot writes the snapshot, replacing any prior one.
func (s *SnapshotStore) SaveSnapshot(snap topology.Snapshot) error {
	counts, err := json.Marshal(snap.HopCounts)
	if err != nil {
		return fmt.Errorf("failed to encode hop counts: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO topology_snapshots (id, fetched_at, total_devices, hop_counts)
		 VALUES (1, ?, ?, ?)`,
		snap.Timestamp.Format(time.RFC3339), snap.TotalDevices, string(counts),
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads the snapshot back. The second return value is false
// when no snapshot has been saved yet.
func (s *SnapshotStore) LoadSnapshot() (topology.Snapshot, bool, error) {
	var (
		fetchedAt string
		total     int
		counts    string
	)
	err := s.db.QueryRow(
		`SELECT fetched_at, total_devices, hop_counts FROM topology_snapshots WHERE id = 1`,
	).Scan(&fetchedAt, &total, &counts)
	if err == sql.ErrNoRows {
		return topology.Snapshot{}, false, nil
	}
	if err != nil {
		return topology.Snapshot{}, false, fmt.Errorf("failed to load snapshot: %w", err)
	}

	snap := topology.Snapshot{TotalDevices: total}
	if snap.Timestamp, err = time.Parse(time.RFC3339, fetchedAt); err != nil {
		return topology.Snapshot{}, false, fmt.Errorf("bad snapshot timestamp: %w", err)
	}
	if err := json.Unmarshal([]byte(counts), &snap.HopCounts); err != nil {
		return topology.Snapshot{}, false, fmt.Errorf("bad snapshot hop counts: %w", err)
	}
	return snap, true, nil
}
