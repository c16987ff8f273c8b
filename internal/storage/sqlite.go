// Package storage provides SQLite persistence for meshwatch.
package storage

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite database connection.
type DB struct {
	*sql.DB
}

var (
	instance *DB
	once     sync.Once
)

// Initialize opens (once) and migrates the database under dataDir.
func Initialize(dataDir string) (*DB, error) {
	var initErr error
	once.Do(func() {
		dbPath := filepath.Join(dataDir, "meshwatch.db")
		db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_busy_timeout=5000")
		if err != nil {
			initErr = fmt.Errorf("failed to open database: %w", err)
			return
		}

		// SQLite only supports one writer
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		instance = &DB{DB: db}

		if err := instance.createTables(); err != nil {
			initErr = fmt.Errorf("failed to create tables: %w", err)
			return
		}
	})

	return instance, initErr
}

// OpenAt opens a standalone database at an explicit path, bypassing the
// singleton. Used by tests.
func OpenAt(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	d := &DB{DB: db}
	if err := d.createTables(); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return d, nil
}

func (db *DB) createTables() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS topology_snapshots (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			fetched_at TEXT NOT NULL,
			total_devices INTEGER NOT NULL,
			hop_counts TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS run_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			label TEXT NOT NULL,
			address TEXT NOT NULL,
			hop_count TEXT,
			status TEXT NOT NULL,
			ok INTEGER DEFAULT 0,
			fields TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_run_results_kind ON run_results(kind)`,
		`CREATE INDEX IF NOT EXISTS idx_run_results_created_at ON run_results(created_at)`,

		`CREATE TABLE IF NOT EXISTS run_summaries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			success INTEGER NOT NULL,
			failure INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			summary TEXT,
			started_at DATETIME,
			ended_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_run_summaries_kind ON run_summaries(kind)`,
	}

	for _, table := range tables {
		if _, err := db.Exec(table); err != nil {
			return fmt.Errorf("failed to execute: %s: %w", table, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}
