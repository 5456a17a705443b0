package core

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Init opens the SQLite database and creates the snapshot tables.
func (s *SnapshotStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return wrapError("init", ErrStoreClosed)
	}

	// _journal_mode=WAL: Better concurrency
	// _synchronous=NORMAL: Good balance of safety and speed
	// _busy_timeout=5000: Wait up to 5s for lock instead of failing immediately
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", s.path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return wrapError("init", fmt.Errorf("failed to open database: %w", err))
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(2 * time.Hour)

	s.db = db

	if err := s.createTables(ctx); err != nil {
		return wrapError("init", err)
	}

	s.logger.Info("snapshot store initialized", "path", s.path)
	return nil
}

// createTables creates the snapshot tables.
func (s *SnapshotStore) createTables(ctx context.Context) error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS cache_entries (
		key TEXT PRIMARY KEY,
		vector BLOB NOT NULL,
		inserted_at INTEGER NOT NULL,
		last_access INTEGER NOT NULL,
		frequency INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS models (
		name TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		dimension INTEGER NOT NULL,
		modality TEXT NOT NULL,
		domain TEXT,
		performance_weight REAL NOT NULL DEFAULT 1.0
	);

	CREATE INDEX IF NOT EXISTS idx_cache_entries_last_access
		ON cache_entries(last_access);
	`

	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}
