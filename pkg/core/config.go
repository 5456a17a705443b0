package core

import (
	"time"
)

// Config holds engine configuration.
type Config struct {
	// DefaultDimension is the target dimensionality used by default
	// models and by the stacking ensemble reduction.
	DefaultDimension int

	// CacheSize is the maximum number of cached embeddings.
	CacheSize int

	// CacheTTL is the time-to-live of a cache entry. Entries older than
	// this are treated as misses and removed on read.
	CacheTTL time.Duration

	// DisableCache turns off the embedding cache entirely.
	DisableCache bool

	// Seed drives the deterministic RNG used by clustering restarts and
	// the stacking reduction.
	Seed int64

	// ModalityWeights are the fusion weights used for structured inputs.
	// Missing modalities default to 1.0.
	ModalityWeights map[Modality]float64

	// Logger receives engine events, including every suppressed error.
	// Defaults to NopLogger.
	Logger Logger
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		DefaultDimension: 128,
		CacheSize:        10000,
		CacheTTL:         time.Hour,
		Seed:             42,
		ModalityWeights: map[Modality]float64{
			ModalityText:        1.0,
			ModalityNumerical:   0.8,
			ModalityCategorical: 0.6,
			ModalityTemporal:    0.7,
		},
		Logger: NopLogger(),
	}
}

// validate checks config invariants and fills defaults.
func (c *Config) validate() error {
	if c.DefaultDimension <= 0 {
		return wrapError("config", ErrInvalidDimension)
	}
	if c.CacheSize <= 0 {
		c.CacheSize = 10000
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = time.Hour
	}
	if c.Logger == nil {
		c.Logger = NopLogger()
	}
	return nil
}
