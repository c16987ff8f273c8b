package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/user/meshwatch/internal/model"
	"github.com/user/meshwatch/internal/util"
)

// StoredResult is one persisted per-device outcome row.
type StoredResult struct {
	ID        int64             `json:"id"`
	Kind      model.Kind        `json:"kind"`
	Label     string            `json:"label"`
	Address   string            `json:"address"`
	HopCount  string            `json:"hop_count"`
	Status    string            `json:"status"`
	OK        bool              `json:"ok"`
	Fields    map[string]string `json:"fields"`
	CreatedAt time.Time         `json:"created_at"`
}

// StoredSummary is one persisted run summary row.
type StoredSummary struct {
	ID        int64      `json:"id"`
	Kind      model.Kind `json:"kind"`
	Success   int        `json:"success"`
	Failure   int        `json:"failure"`
	Skipped   int        `json:"skipped"`
	Summary   string     `json:"summary"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   time.Time  `json:"ended_at"`
}

// ResultStore persists per-device outcomes and run summaries for reporting.
type ResultStore struct {
	db *DB
}

// NewResultStore creates a result store.
func NewResultStore(db *DB) *ResultStore {
	return &ResultStore{db: db}
}

// SaveResult inserts one device outcome row.
func (s *ResultStore) SaveResult(ev model.ProgressEvent) error {
	fields, err := json.Marshal(ev.Result)
	if err != nil {
		return fmt.Errorf("failed to encode result fields: %w", err)
	}

	ok := 0
	status := string(model.StatusUnknown)
	if ev.Outcome != nil {
		status = string(ev.Outcome.Status())
		if ev.Outcome.OK() {
			ok = 1
		}
	}

	_, err = s.db.Exec(
		`INSERT INTO run_results (kind, label, address, hop_count, status, ok, fields)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(ev.Kind), ev.Device.Label, ev.Device.Address, ev.HopCount, status, ok, string(fields),
	)
	if err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	return nil
}

// SaveSummary inserts one run summary row.
func (s *ResultStore) SaveSummary(state model.RunState) error {
	_, err := s.db.Exec(
		`INSERT INTO run_summaries (kind, success, failure, skipped, summary, started_at, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(state.Kind), state.Success, state.Failure, state.Skipped,
		state.Summary, state.StartTime, state.EndTime,
	)
	if err != nil {
		return fmt.Errorf("failed to save run summary: %w", err)
	}
	return nil
}

// LatestSummary returns the most recent summary for a kind.
func (s *ResultStore) LatestSummary(kind model.Kind) (StoredSummary, bool, error) {
	var sum StoredSummary
	var k string
	err := s.db.QueryRow(
		`SELECT id, kind, success, failure, skipped, summary, started_at, ended_at
		 FROM run_summaries WHERE kind = ? ORDER BY id DESC LIMIT 1`,
		string(kind),
	).Scan(&sum.ID, &k, &sum.Success, &sum.Failure, &sum.Skipped, &sum.Summary, &sum.StartedAt, &sum.EndedAt)
	if err == sql.ErrNoRows {
		return StoredSummary{}, false, nil
	}
	if err != nil {
		return StoredSummary{}, false, fmt.Errorf("failed to load summary: %w", err)
	}
	sum.Kind = model.Kind(k)
	return sum, true, nil
}

// ResultsSince returns a kind's results recorded at or after since, oldest
// first.
func (s *ResultStore) ResultsSince(kind model.Kind, since time.Time) ([]StoredResult, error) {
	rows, err := s.db.Query(
		`SELECT id, kind, label, address, hop_count, status, ok, fields, created_at
		 FROM run_results WHERE kind = ? AND created_at >= ? ORDER BY id ASC`,
		string(kind), since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var results []StoredResult
	for rows.Next() {
		var (
			r      StoredResult
			k      string
			ok     int
			fields string
		)
		if err := rows.Scan(&r.ID, &k, &r.Label, &r.Address, &r.HopCount, &r.Status, &ok, &fields, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		r.Kind = model.Kind(k)
		r.OK = ok != 0
		if fields != "" {
			if err := json.Unmarshal([]byte(fields), &r.Fields); err != nil {
				return nil, fmt.Errorf("bad result fields: %w", err)
			}
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// ResultSink is an engine sink that persists every device outcome and run
// summary. Persistence failures are logged, never surfaced to the runner.
type ResultSink struct {
	store *ResultStore
}

// NewResultSink creates a persisting sink over the store.
func NewResultSink(store *ResultStore) *ResultSink {
	return &ResultSink{store: store}
}

// Progress persists one device outcome.
func (s *ResultSink) Progress(ev model.ProgressEvent) {
	if err := s.store.SaveResult(ev); err != nil {
		util.Warn("Failed to persist result for %s: %v", ev.Device.Label, err)
	}
}

// Completed persists the run summary.
func (s *ResultSink) Completed(kind model.Kind, state model.RunState) {
	if err := s.store.SaveSummary(state); err != nil {
		util.Warn("Failed to persist %s run summary: %v", kind, err)
	}
}

// RunError logs the run error; there is nothing durable to record.
func (s *ResultSink) RunError(kind model.Kind, msg string) {
	util.Error("%s run failed: %s", kind, msg)
}
