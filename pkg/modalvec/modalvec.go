// Package modalvec provides the high-level entry point to the
// multi-modal embedding toolkit.
package modalvec

import (
	"context"
	"fmt"
	"time"

	"github.com/liliang-cn/modalvec/pkg/core"
	"github.com/liliang-cn/modalvec/pkg/schedule"
)

// TextEncoder converts text into vectors. See core.TextEncoder.
type TextEncoder = core.TextEncoder

// Config represents system configuration.
type Config struct {
	// Path is the optional SQLite snapshot file. Empty disables
	// persistence; the cache then lives only in memory.
	Path string

	// Dimension is the target dimensionality of the default models.
	Dimension int

	// CacheSize is the maximum number of cached embeddings.
	CacheSize int

	// CacheTTL is the time-to-live of cache entries.
	CacheTTL time.Duration

	// Logger receives engine and maintenance events. Defaults to nop.
	Logger core.Logger
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Dimension: 128,
		CacheSize: 10000,
		CacheTTL:  time.Hour,
		Logger:    core.NopLogger(),
	}
}

// Option is a functional option for configuring the System.
type Option func(*System)

// WithEncoder configures the system with a text encoder. Without one,
// text embedding degrades to fallback results.
func WithEncoder(encoder TextEncoder) Option {
	return func(s *System) {
		s.encoder = encoder
	}
}

// WithModels registers additional models on top of the defaults.
func WithModels(models ...core.ModelConfig) Option {
	return func(s *System) {
		s.extraModels = append(s.extraModels, models...)
	}
}

// WithLogger overrides the configured logger.
func WithLogger(logger core.Logger) Option {
	return func(s *System) {
		if logger != nil {
			s.config.Logger = logger
		}
	}
}

// System is a configured multi-modal embedding system.
type System struct {
	config    Config
	engine    *core.Engine
	optimizer *core.Optimizer
	store     *core.SnapshotStore
	scheduler *schedule.CronScheduler

	encoder     TextEncoder
	extraModels []core.ModelConfig
}

// Open creates a system from the configuration. When config.Path is
// set, a previous snapshot is restored so the cache warm-starts.
func Open(config Config, opts ...Option) (*System, error) {
	if config.Dimension <= 0 {
		config.Dimension = 128
	}
	if config.Logger == nil {
		config.Logger = core.NopLogger()
	}

	sys := &System{config: config}
	for _, opt := range opts {
		opt(sys)
	}

	registry := core.NewRegistry(config.Logger)
	for _, model := range core.DefaultModels(config.Dimension) {
		if err := registry.Register(model); err != nil {
			return nil, err
		}
	}
	for _, model := range sys.extraModels {
		if err := registry.Register(model); err != nil {
			return nil, err
		}
	}

	coreConfig := core.DefaultConfig()
	coreConfig.DefaultDimension = config.Dimension
	if config.CacheSize > 0 {
		coreConfig.CacheSize = config.CacheSize
	}
	if config.CacheTTL > 0 {
		coreConfig.CacheTTL = config.CacheTTL
	}
	coreConfig.Logger = config.Logger

	engine, err := core.NewEngine(coreConfig, registry, sys.encoder)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	sys.engine = engine
	sys.optimizer = core.NewOptimizer(engine, config.Logger)

	if config.Path != "" {
		store, err := core.NewSnapshotStore(config.Path, config.Logger)
		if err != nil {
			return nil, err
		}
		ctx := context.Background()
		if err := store.Init(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize snapshot store: %w", err)
		}
		sys.store = store

		if err := sys.Load(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	return sys, nil
}

// Engine returns the underlying embedding engine.
func (s *System) Engine() *core.Engine {
	return s.engine
}

// Registry returns the model registry.
func (s *System) Registry() *core.Registry {
	return s.engine.Registry()
}

// Embed converts content of the given modality into an embedding.
func (s *System) Embed(ctx context.Context, content any, modality core.Modality, opts *core.EmbedOptions) (core.EmbeddingResult, error) {
	return s.engine.Embed(ctx, content, modality, opts)
}

// EmbedText embeds a text string with the configured encoder.
func (s *System) EmbedText(ctx context.Context, text string) (core.EmbeddingResult, error) {
	return s.engine.EmbedText(ctx, text)
}

// Similarity computes similarity between two vectors.
func (s *System) Similarity(a, b []float32, metric core.SimilarityMetric) (core.SimilarityResult, error) {
	return core.Similarity(a, b, metric)
}

// Cluster groups vectors with the selected algorithm.
func (s *System) Cluster(vectors [][]float32, algorithm core.ClusterAlgorithm, opts core.ClusterOptions) (core.ClusteringResult, error) {
	return core.Cluster(vectors, algorithm, opts, s.config.Logger)
}

// Fuse combines heterogeneous embeddings into one vector.
func (s *System) Fuse(embeddings [][]float32, weights []float64, targetDim int) ([]float32, error) {
	return core.Fuse(embeddings, weights, targetDim)
}

// Ensemble combines embedding results under the given strategy.
func (s *System) Ensemble(results []core.EmbeddingResult, strategy core.EnsembleStrategy) ([]float32, error) {
	return s.engine.Ensemble(results, strategy)
}

// Optimize runs one adaptation pass.
func (s *System) Optimize() core.OptimizeReport {
	return s.optimizer.Optimize()
}

// SearchCache performs exact top-K similarity search over the cache.
func (s *System) SearchCache(query []float32, topK int) ([]core.ScoredVector, error) {
	cache := s.engine.Cache()
	if cache == nil {
		return nil, nil
	}
	return cache.Search(query, topK, core.CosineSimilarity)
}

// CacheStats returns embedding cache statistics.
func (s *System) CacheStats() core.CacheStats {
	cache := s.engine.Cache()
	if cache == nil {
		return core.CacheStats{}
	}
	return cache.Stats()
}

// Save persists the cache and model registry to the snapshot store.
// It is a no-op without a configured Path.
func (s *System) Save(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	cache := s.engine.Cache()
	if cache != nil {
		if err := s.store.SaveCache(ctx, cache.Snapshot()); err != nil {
			return err
		}
	}
	return s.store.SaveModels(ctx, s.Registry().Models())
}

// Load restores cache entries and model configurations from the
// snapshot store. It is a no-op without a configured Path.
func (s *System) Load(ctx context.Context) error {
	if s.store == nil {
		return nil
	}

	entries, err := s.store.LoadCache(ctx)
	if err != nil {
		return err
	}
	if cache := s.engine.Cache(); cache != nil && len(entries) > 0 {
		restored := cache.Restore(entries)
		s.config.Logger.Info("cache restored from snapshot", "entries", restored)
	}

	models, err := s.store.LoadModels(ctx)
	if err != nil {
		return err
	}
	for _, model := range models {
		if err := s.Registry().Register(model); err != nil {
			return err
		}
	}
	return nil
}

// StartMaintenance schedules cache sweeps, optimizer passes and (when
// persistence is configured) snapshots on the given cron specs. Empty
// specs skip the corresponding job.
func (s *System) StartMaintenance(ctx context.Context, sweepSpec, optimizeSpec, snapshotSpec string) error {
	if s.scheduler != nil {
		return fmt.Errorf("maintenance already started")
	}

	scheduler := schedule.NewCronScheduler(s.config.Logger)

	if sweepSpec != "" {
		if err := scheduler.AddJob(schedule.NewCacheSweepJob(s.engine.Cache()), sweepSpec); err != nil {
			return err
		}
	}
	if optimizeSpec != "" {
		if err := scheduler.AddJob(schedule.NewOptimizeJob(s.optimizer), optimizeSpec); err != nil {
			return err
		}
	}
	if snapshotSpec != "" && s.store != nil {
		if err := scheduler.AddJob(schedule.NewSnapshotJob(s.store, s.engine.Cache(), s.Registry()), snapshotSpec); err != nil {
			return err
		}
	}

	scheduler.Start(ctx)
	s.scheduler = scheduler
	return nil
}

// StopMaintenance halts the maintenance scheduler, waiting for running
// jobs.
func (s *System) StopMaintenance() {
	if s.scheduler == nil {
		return
	}
	s.scheduler.Stop()
	s.scheduler = nil
}

// Close stops maintenance, persists a final snapshot when configured
// and closes the snapshot store.
func (s *System) Close() error {
	s.StopMaintenance()

	if s.store == nil {
		return nil
	}
	if err := s.Save(context.Background()); err != nil {
		s.config.Logger.Error("final snapshot failed", "error", err)
	}
	return s.store.Close()
}
