package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TextEncoder converts text into vectors. Implementations wrap external
// embedding models (Gemini, OpenAI, local models); the engine never
// assumes one is configured and degrades to a fallback result when the
// encoder is missing or fails.
type TextEncoder interface {
	// Encode converts a single text string into a vector.
	Encode(ctx context.Context, text string) ([]float32, error)

	// Dim returns the dimension of vectors produced by this encoder.
	Dim() int
}

// EmbedOptions carries per-call embedding options.
type EmbedOptions struct {
	// ModelName pins a specific registered model. Empty selects
	// automatically by modality.
	ModelName string

	// Params become part of the cache key, so embeddings generated
	// under different parameters never collide.
	Params map[string]string

	// NoCache bypasses the cache for this call.
	NoCache bool
}

// Engine generates multi-modal embeddings backed by a model registry
// and an embedding cache.
//
// The error return of Embed is reserved for configuration errors
// (unknown model name, no model for the modality). Generation failures
// never propagate: the caller receives a well-shaped zero vector with
// Success=false and FallbackCause set, and the failure is logged.
type Engine struct {
	config   Config
	registry *Registry
	cache    *EmbeddingCache
	encoder  TextEncoder
	scalers  *scalerSet
	logger   Logger

	weightsMu       sync.RWMutex
	modalityWeights map[Modality]float64
}

// NewEngine creates an embedding engine. The registry must already hold
// the models to serve; encoder may be nil, in which case text embedding
// degrades to fallback results.
func NewEngine(config Config, registry *Registry, encoder TextEncoder) (*Engine, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	if registry == nil {
		return nil, wrapError("engine", ErrInvalidConfig)
	}

	var cache *EmbeddingCache
	if !config.DisableCache {
		cache = NewEmbeddingCache(config.CacheSize, config.CacheTTL, config.Logger)
	}

	weights := make(map[Modality]float64, len(config.ModalityWeights))
	for m, w := range config.ModalityWeights {
		weights[m] = w
	}

	return &Engine{
		config:          config,
		registry:        registry,
		cache:           cache,
		encoder:         encoder,
		scalers:         newScalerSet(),
		logger:          config.Logger,
		modalityWeights: weights,
	}, nil
}

// ModalityWeights returns a copy of the current fusion weights used for
// structured inputs.
func (e *Engine) ModalityWeights() map[Modality]float64 {
	e.weightsMu.RLock()
	defer e.weightsMu.RUnlock()

	out := make(map[Modality]float64, len(e.modalityWeights))
	for m, w := range e.modalityWeights {
		out[m] = w
	}
	return out
}

// SetModalityWeights replaces the fusion weights. Called by the
// optimizer after usage-based reweighting.
func (e *Engine) SetModalityWeights(weights map[Modality]float64) {
	e.weightsMu.Lock()
	defer e.weightsMu.Unlock()

	e.modalityWeights = make(map[Modality]float64, len(weights))
	for m, w := range weights {
		e.modalityWeights[m] = w
	}
}

// Registry returns the engine's model registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Cache returns the embedding cache, or nil when caching is disabled.
func (e *Engine) Cache() *EmbeddingCache {
	return e.cache
}

// Embed converts content of the given modality into an EmbeddingResult.
func (e *Engine) Embed(ctx context.Context, content any, modality Modality, opts *EmbedOptions) (EmbeddingResult, error) {
	start := time.Now()

	if opts == nil {
		opts = &EmbedOptions{}
	}
	if !modality.Valid() {
		return EmbeddingResult{}, wrapError("embed", ErrInvalidConfig)
	}

	var model ModelConfig
	var err error
	if opts.ModelName != "" {
		model, err = e.registry.Get(opts.ModelName)
	} else {
		model, err = e.registry.Select(modality)
	}
	if err != nil {
		return EmbeddingResult{}, err
	}

	contentKey := deriveContentKey(content)
	cacheable := e.cache != nil && !opts.NoCache

	if cacheable {
		if vec, ok := e.cache.Get(contentKey, model.Name, opts.Params); ok {
			return EmbeddingResult{
				ID:              uuid.New().String(),
				Vector:          vec,
				ModelName:       model.Name,
				Modality:        modality,
				ComputationTime: time.Since(start),
				CacheHit:        true,
				Confidence:      modelConfidence(model),
				Success:         true,
			}, nil
		}
	}

	vector, genErr := e.generate(ctx, content, modality, model)
	elapsed := time.Since(start)

	if genErr != nil {
		e.logger.Warn("embedding generation failed, returning fallback",
			"model", model.Name, "modality", modality, "error", genErr)
		return EmbeddingResult{
			ID:              uuid.New().String(),
			Vector:          make([]float32, model.Dimension),
			ModelName:       model.Name,
			Modality:        modality,
			ComputationTime: elapsed,
			Success:         false,
			FallbackCause:   genErr,
		}, nil
	}

	if cacheable {
		e.cache.Put(contentKey, model.Name, vector, opts.Params)
	}
	e.registry.RecordUsage(model.Name, elapsed)

	return EmbeddingResult{
		ID:              uuid.New().String(),
		Vector:          vector,
		ModelName:       model.Name,
		Modality:        modality,
		ComputationTime: elapsed,
		Confidence:      modelConfidence(model),
		Success:         true,
	}, nil
}

// EmbedText is a convenience wrapper for text content.
func (e *Engine) EmbedText(ctx context.Context, text string) (EmbeddingResult, error) {
	return e.Embed(ctx, text, ModalityText, nil)
}

// generate dispatches to the per-modality generator.
func (e *Engine) generate(ctx context.Context, content any, modality Modality, model ModelConfig) ([]float32, error) {
	switch modality {
	case ModalityText:
		return e.generateText(ctx, content, model)
	case ModalityNumerical:
		return e.generateNumerical(content, model)
	case ModalityCategorical:
		return generateCategorical(content, model.Dimension)
	case ModalityTemporal:
		return generateTemporal(content, model.Dimension)
	case ModalityStructured:
		return e.generateStructured(ctx, content, model)
	default:
		return nil, fmt.Errorf("unsupported modality %q", modality)
	}
}

// generateText delegates to the injected encoder and adapts the result
// to the model's declared dimension. The blocking encode call honors
// ctx for cancellation and deadlines.
func (e *Engine) generateText(ctx context.Context, content any, model ModelConfig) ([]float32, error) {
	if e.encoder == nil {
		return nil, ErrEncoderNotConfigured
	}

	text, ok := content.(string)
	if !ok {
		text = fmt.Sprintf("%v", content)
	}
	if text == "" {
		return nil, ErrEmptyInput
	}

	vec, err := e.encoder.Encode(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("encode failed: %w", err)
	}
	if len(vec) == 0 {
		return nil, ErrEmptyVector
	}

	return AdaptDimension(vec, model.Dimension), nil
}

// modelConfidence maps the model's performance weight into [0, 1] as a
// rough quality signal on successful results.
func modelConfidence(model ModelConfig) float64 {
	if model.PerformanceWeight > 1.0 {
		return 1.0
	}
	if model.PerformanceWeight < 0 {
		return 0.0
	}
	return model.PerformanceWeight
}

// deriveContentKey turns arbitrary content into the string the cache
// keys on: raw text for string-like content, otherwise the SHA-256 of
// its printed form.
func deriveContentKey(content any) string {
	switch v := content.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		sum := sha256.Sum256([]byte(fmt.Sprintf("%v", v)))
		return hex.EncodeToString(sum[:])
	}
}
