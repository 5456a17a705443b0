package core

import (
	"context"
	"fmt"
	"time"

	"github.com/liliang-cn/modalvec/internal/encoding"
)

// SaveCache replaces the persisted cache snapshot with the given
// entries, atomically.
func (s *SnapshotStore) SaveCache(ctx context.Context, entries []CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return wrapError("save cache", ErrStoreClosed)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapError("save cache", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM cache_entries"); err != nil {
		return wrapError("save cache", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cache_entries (key, vector, inserted_at, last_access, frequency)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return wrapError("save cache", err)
	}
	defer stmt.Close()

	for _, entry := range entries {
		blob, err := encoding.EncodeVector(entry.Vector)
		if err != nil {
			return wrapError("save cache", fmt.Errorf("entry %s: %w", entry.Key, err))
		}
		_, err = stmt.ExecContext(ctx, entry.Key, blob,
			entry.InsertedAt.UnixNano(), entry.LastAccess.UnixNano(), entry.Frequency)
		if err != nil {
			return wrapError("save cache", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrapError("save cache", err)
	}

	s.logger.Info("cache snapshot saved", "entries", len(entries))
	return nil
}

// LoadCache returns all persisted cache entries.
func (s *SnapshotStore) LoadCache(ctx context.Context) ([]CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, wrapError("load cache", ErrStoreClosed)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT key, vector, inserted_at, last_access, frequency
		FROM cache_entries
	`)
	if err != nil {
		return nil, wrapError("load cache", err)
	}
	defer rows.Close()

	var entries []CacheEntry
	for rows.Next() {
		var entry CacheEntry
		var blob []byte
		var insertedAt, lastAccess int64

		if err := rows.Scan(&entry.Key, &blob, &insertedAt, &lastAccess, &entry.Frequency); err != nil {
			return nil, wrapError("load cache", err)
		}

		vector, err := encoding.DecodeVector(blob)
		if err != nil {
			return nil, wrapError("load cache", fmt.Errorf("entry %s: %w", entry.Key, err))
		}
		entry.Vector = vector
		entry.InsertedAt = time.Unix(0, insertedAt)
		entry.LastAccess = time.Unix(0, lastAccess)
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// SaveModels replaces the persisted model configurations.
func (s *SnapshotStore) SaveModels(ctx context.Context, models []ModelConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return wrapError("save models", ErrStoreClosed)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapError("save models", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM models"); err != nil {
		return wrapError("save models", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO models (name, type, dimension, modality, domain, performance_weight)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return wrapError("save models", err)
	}
	defer stmt.Close()

	for _, model := range models {
		_, err = stmt.ExecContext(ctx, model.Name, model.Type, model.Dimension,
			string(model.Modality), model.Domain, model.PerformanceWeight)
		if err != nil {
			return wrapError("save models", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrapError("save models", err)
	}

	s.logger.Info("model snapshot saved", "models", len(models))
	return nil
}

// LoadModels returns all persisted model configurations.
func (s *SnapshotStore) LoadModels(ctx context.Context) ([]ModelConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, wrapError("load models", ErrStoreClosed)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, type, dimension, modality, domain, performance_weight
		FROM models
	`)
	if err != nil {
		return nil, wrapError("load models", err)
	}
	defer rows.Close()

	var models []ModelConfig
	for rows.Next() {
		var model ModelConfig
		var modality string
		if err := rows.Scan(&model.Name, &model.Type, &model.Dimension,
			&modality, &model.Domain, &model.PerformanceWeight); err != nil {
			return nil, wrapError("load models", err)
		}
		model.Modality = Modality(modality)
		models = append(models, model)
	}

	return models, rows.Err()
}
