package core

// EnsembleStrategy selects how a set of model outputs is combined into
// a single vector. Strategies are a closed enum dispatched with an
// exhaustive switch, so an unhandled strategy is a compile-visible
// default case rather than a missing map key.
type EnsembleStrategy int

const (
	// EnsembleVoting averages all outputs after truncating to the
	// shortest common dimension.
	EnsembleVoting EnsembleStrategy = iota
	// EnsembleWeighted scales each output by its model's performance
	// weight before summing.
	EnsembleWeighted
	// EnsembleStacking concatenates all outputs and truncates the
	// result to the default dimension. A learned reduction like PCA
	// needs a sample set to fit, which a single concatenated vector
	// cannot provide, so truncation is the reduction.
	EnsembleStacking
)

// String returns the strategy name.
func (s EnsembleStrategy) String() string {
	switch s {
	case EnsembleVoting:
		return "voting"
	case EnsembleWeighted:
		return "weighted"
	case EnsembleStacking:
		return "stacking"
	default:
		return "unknown"
	}
}

// AdaptDimension returns a copy of the vector normalized to targetDim:
// truncated when longer, zero-padded when shorter. The values are left
// unscaled; fused vectors are deliberately not re-normalized.
func AdaptDimension(vector []float32, targetDim int) []float32 {
	result := make([]float32, targetDim)
	copy(result, vector)
	return result
}

// Fuse combines heterogeneous embeddings into one targetDim vector.
// Every input is pad/truncated to targetDim, weights are normalized to
// sum to 1, and the weighted sum is returned. The final vector is not
// unit-normalized, so magnitudes carry through to downstream cosine
// comparisons.
//
// Fuse(v, [1.0], len(v)) is the identity.
func Fuse(embeddings [][]float32, weights []float64, targetDim int) ([]float32, error) {
	if len(embeddings) == 0 {
		return nil, wrapError("fuse", ErrEmptyInput)
	}
	if len(embeddings) != len(weights) {
		return nil, wrapError("fuse", ErrMismatchedWeights)
	}
	if targetDim <= 0 {
		return nil, wrapError("fuse", ErrInvalidDimension)
	}

	var total float64
	for _, w := range weights {
		total += w
	}

	normalized := make([]float64, len(weights))
	if total > 0 {
		for i, w := range weights {
			normalized[i] = w / total
		}
	} else {
		// Degenerate weights fall back to a plain average.
		for i := range normalized {
			normalized[i] = 1.0 / float64(len(weights))
		}
	}

	fused := make([]float32, targetDim)
	for i, emb := range embeddings {
		adapted := AdaptDimension(emb, targetDim)
		w := normalized[i]
		for j, v := range adapted {
			fused[j] += float32(float64(v) * w)
		}
	}

	return fused, nil
}

// Ensemble combines the vectors of several embedding results under the
// given strategy. Weighted lookups use the current performance weight
// of each result's model; results from unregistered models weigh 1.0.
func (e *Engine) Ensemble(results []EmbeddingResult, strategy EnsembleStrategy) ([]float32, error) {
	if len(results) == 0 {
		return nil, wrapError("ensemble", ErrEmptyInput)
	}

	vectors := make([][]float32, len(results))
	for i, r := range results {
		if len(r.Vector) == 0 {
			return nil, wrapError("ensemble", ErrEmptyVector)
		}
		vectors[i] = r.Vector
	}

	switch strategy {
	case EnsembleVoting:
		return votingEnsemble(vectors), nil

	case EnsembleWeighted:
		weights := make([]float64, len(results))
		maxDim := 0
		for i, r := range results {
			weights[i] = 1.0
			if cfg, err := e.registry.Get(r.ModelName); err == nil {
				weights[i] = cfg.PerformanceWeight
			}
			if len(r.Vector) > maxDim {
				maxDim = len(r.Vector)
			}
		}
		return Fuse(vectors, weights, maxDim)

	case EnsembleStacking:
		return stackingEnsemble(vectors, e.config.DefaultDimension), nil

	default:
		return nil, wrapError("ensemble", ErrInvalidConfig)
	}
}

// votingEnsemble means all vectors after truncating to the shortest
// common dimension.
func votingEnsemble(vectors [][]float32) []float32 {
	minDim := len(vectors[0])
	for _, v := range vectors[1:] {
		if len(v) < minDim {
			minDim = len(v)
		}
	}

	out := make([]float32, minDim)
	for _, v := range vectors {
		for i := 0; i < minDim; i++ {
			out[i] += v[i]
		}
	}
	n := float32(len(vectors))
	for i := range out {
		out[i] /= n
	}
	return out
}

// stackingEnsemble concatenates all vectors and truncates to targetDim.
func stackingEnsemble(vectors [][]float32, targetDim int) []float32 {
	total := 0
	for _, v := range vectors {
		total += len(v)
	}

	stacked := make([]float32, 0, total)
	for _, v := range vectors {
		stacked = append(stacked, v...)
	}

	return AdaptDimension(stacked, targetDim)
}
