package schedule

import (
	"context"
	"time"

	"github.com/liliang-cn/modalvec/pkg/core"
)

// CacheSweepJob removes expired entries from the embedding cache.
type CacheSweepJob struct {
	cache *core.EmbeddingCache
}

// NewCacheSweepJob creates a sweep job over the given cache.
func NewCacheSweepJob(cache *core.EmbeddingCache) *CacheSweepJob {
	return &CacheSweepJob{cache: cache}
}

func (j *CacheSweepJob) Name() string {
	return "cache_sweep"
}

func (j *CacheSweepJob) Run(ctx context.Context) error {
	if j.cache == nil {
		return nil
	}
	j.cache.Sweep(time.Now())
	return nil
}

// OptimizeJob runs one optimizer pass, refreshing model performance
// weights and modality fusion weights.
type OptimizeJob struct {
	optimizer *core.Optimizer
}

// NewOptimizeJob creates an optimize job for the given optimizer.
func NewOptimizeJob(optimizer *core.Optimizer) *OptimizeJob {
	return &OptimizeJob{optimizer: optimizer}
}

func (j *OptimizeJob) Name() string {
	return "optimize"
}

func (j *OptimizeJob) Run(ctx context.Context) error {
	if j.optimizer == nil {
		return nil
	}
	j.optimizer.Optimize()
	return nil
}

// SnapshotJob persists the live cache and model registry to the
// snapshot store.
type SnapshotJob struct {
	store    *core.SnapshotStore
	cache    *core.EmbeddingCache
	registry *core.Registry
}

// NewSnapshotJob creates a snapshot job.
func NewSnapshotJob(store *core.SnapshotStore, cache *core.EmbeddingCache, registry *core.Registry) *SnapshotJob {
	return &SnapshotJob{store: store, cache: cache, registry: registry}
}

func (j *SnapshotJob) Name() string {
	return "snapshot"
}

func (j *SnapshotJob) Run(ctx context.Context) error {
	if j.store == nil {
		return nil
	}
	if j.cache != nil {
		if err := j.store.SaveCache(ctx, j.cache.Snapshot()); err != nil {
			return err
		}
	}
	if j.registry != nil {
		if err := j.store.SaveModels(ctx, j.registry.Models()); err != nil {
			return err
		}
	}
	return nil
}
