package core

import (
	"sync"
	"time"
)

// latencyWindow is the number of recent generation latencies kept per
// model for performance-weight updates.
const latencyWindow = 100

// ModelConfig is a named embedding model configuration.
type ModelConfig struct {
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	Dimension int      `json:"dimension"`
	Modality  Modality `json:"modality"`
	Domain    string   `json:"domain,omitempty"`
	// PerformanceWeight biases model selection; it is updated by the
	// optimizer from observed latencies.
	PerformanceWeight float64 `json:"performanceWeight"`
}

// ModelUsage is a read-only snapshot of a model's runtime counters.
type ModelUsage struct {
	UsageCount int64     `json:"usageCount"`
	LastUsed   time.Time `json:"lastUsed"`
}

// modelState couples a config with its runtime counters.
type modelState struct {
	config     ModelConfig
	usageCount int64
	lastUsed   time.Time
	latencies  []time.Duration
}

// Registry owns model configurations and their runtime state. It is
// injected into the engine and the optimizer instead of living as
// ambient instance state, so tests can supply fake registries.
type Registry struct {
	mu     sync.RWMutex
	models map[string]*modelState
	logger Logger
}

// NewRegistry creates an empty model registry.
func NewRegistry(logger Logger) *Registry {
	if logger == nil {
		logger = NopLogger()
	}
	return &Registry{
		models: make(map[string]*modelState),
		logger: logger,
	}
}

// DefaultModels returns the default model set, one per modality, all at
// the given dimension.
func DefaultModels(dimension int) []ModelConfig {
	return []ModelConfig{
		{Name: "text-default", Type: "external", Dimension: dimension, Modality: ModalityText, Domain: "general", PerformanceWeight: 1.0},
		{Name: "numerical-stats", Type: "statistical", Dimension: dimension, Modality: ModalityNumerical, Domain: "general", PerformanceWeight: 1.0},
		{Name: "categorical-hash", Type: "hashed", Dimension: dimension, Modality: ModalityCategorical, Domain: "general", PerformanceWeight: 1.0},
		{Name: "temporal-calendar", Type: "calendar", Dimension: dimension, Modality: ModalityTemporal, Domain: "general", PerformanceWeight: 1.0},
		{Name: "structured-fusion", Type: "fusion", Dimension: dimension, Modality: ModalityStructured, Domain: "general", PerformanceWeight: 0.9},
	}
}

// Register adds or replaces a model configuration.
func (r *Registry) Register(config ModelConfig) error {
	if config.Name == "" {
		return wrapError("register", ErrInvalidConfig)
	}
	if config.Dimension <= 0 {
		return wrapError("register", ErrInvalidDimension)
	}
	if !config.Modality.Valid() {
		return wrapError("register", ErrInvalidConfig)
	}
	if config.PerformanceWeight <= 0 {
		config.PerformanceWeight = 1.0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.models[config.Name] = &modelState{config: config}
	r.logger.Debug("model registered", "name", config.Name, "modality", config.Modality, "dim", config.Dimension)
	return nil
}

// Get returns the configuration of a registered model. An unknown name
// is a configuration error surfaced to the caller, never a silent
// zero-vector fallback.
func (r *Registry) Get(name string) (ModelConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.models[name]
	if !ok {
		return ModelConfig{}, wrapError("get "+name, ErrModelNotFound)
	}
	return state.config, nil
}

// Select picks the model for a modality: candidates are models whose
// modality matches, plus the structured catch-all. Among candidates the
// one with the highest performance weight wins, ties broken toward the
// least-used model for load balancing.
func (r *Registry) Select(modality Modality) (ModelConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *modelState
	for _, state := range r.models {
		if state.config.Modality != modality && state.config.Modality != ModalityStructured {
			continue
		}
		if best == nil {
			best = state
			continue
		}
		if state.config.PerformanceWeight > best.config.PerformanceWeight ||
			(state.config.PerformanceWeight == best.config.PerformanceWeight && state.usageCount < best.usageCount) {
			best = state
		}
	}

	if best == nil {
		return ModelConfig{}, wrapError("select "+string(modality), ErrNoModelAvailable)
	}
	return best.config, nil
}

// RecordUsage bumps a model's usage counters and appends the observed
// generation latency to its rolling window. Unknown names are ignored:
// usage tracking is advisory, not correctness-critical.
func (r *Registry) RecordUsage(name string, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.models[name]
	if !ok {
		return
	}
	state.usageCount++
	state.lastUsed = time.Now()
	state.latencies = append(state.latencies, elapsed)
	if len(state.latencies) > latencyWindow {
		state.latencies = state.latencies[len(state.latencies)-latencyWindow:]
	}
}

// Usage returns a model's runtime counters.
func (r *Registry) Usage(name string) (ModelUsage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.models[name]
	if !ok {
		return ModelUsage{}, wrapError("usage "+name, ErrModelNotFound)
	}
	return ModelUsage{UsageCount: state.usageCount, LastUsed: state.lastUsed}, nil
}

// AvgLatency returns the mean of the rolling latency window, or 0 when
// the model has no recorded generations.
func (r *Registry) AvgLatency(name string) time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.models[name]
	if !ok || len(state.latencies) == 0 {
		return 0
	}
	var total time.Duration
	for _, l := range state.latencies {
		total += l
	}
	return total / time.Duration(len(state.latencies))
}

// SetPerformanceWeight updates a model's selection weight.
func (r *Registry) SetPerformanceWeight(name string, weight float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.models[name]
	if !ok {
		return wrapError("set weight "+name, ErrModelNotFound)
	}
	state.config.PerformanceWeight = weight
	return nil
}

// Models returns a snapshot of all registered configurations.
func (r *Registry) Models() []ModelConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ModelConfig, 0, len(r.models))
	for _, state := range r.models {
		out = append(out, state.config)
	}
	return out
}

// UsageByModality aggregates usage counts per modality. Used by the
// optimizer to reweight modality fusion.
func (r *Registry) UsageByModality() map[Modality]int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[Modality]int64)
	for _, state := range r.models {
		out[state.config.Modality] += state.usageCount
	}
	return out
}

// Len returns the number of registered models.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.models)
}
