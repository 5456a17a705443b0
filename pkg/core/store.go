package core

import (
	"database/sql"
	"sync"
)

// SnapshotStore persists cache entries and model registry state in a
// SQLite file, so a process restart can warm-start from its previous
// cache instead of regenerating every embedding.
type SnapshotStore struct {
	db     *sql.DB
	path   string
	mu     sync.RWMutex
	closed bool
	logger Logger
}

// NewSnapshotStore creates a snapshot store backed by the SQLite file
// at path. Call Init before use.
func NewSnapshotStore(path string, logger Logger) (*SnapshotStore, error) {
	if path == "" {
		return nil, wrapError("init", ErrInvalidConfig)
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &SnapshotStore{path: path, logger: logger}, nil
}

// Close closes the underlying database. Subsequent operations return
// ErrStoreClosed.
func (s *SnapshotStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
