// Package encoders provides TextEncoder implementations and wrappers
// for the modalvec engine.
package encoders

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/liliang-cn/modalvec/pkg/core"
)

// Hash is a deterministic pseudo-encoder: it derives a vector from the
// FNV-1a hash of the text. It captures no semantics and exists for
// tests, demos and CLI use where no real embedding model is available.
// Identical texts always produce identical vectors.
type Hash struct {
	dim int
}

// NewHash creates a hash encoder producing vectors of the given
// dimension.
func NewHash(dim int) *Hash {
	if dim <= 0 {
		dim = 128
	}
	return &Hash{dim: dim}
}

// Encode derives a unit-norm vector from the text's hash.
func (h *Hash) Encode(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, h.dim)
	state := fnv.New64a()
	state.Write([]byte(text))
	seed := state.Sum64()

	// Simple xorshift walk over the hash so every dimension differs.
	x := seed
	for i := range vec {
		x ^= x << 13
		x ^= x >> 7
		x ^= x << 17
		vec[i] = float32(int64(x%2000)-1000) / 1000.0
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		n := float32(math.Sqrt(norm))
		for i := range vec {
			vec[i] /= n
		}
	}
	return vec, nil
}

// Dim returns the encoder's output dimension.
func (h *Hash) Dim() int {
	return h.dim
}

// EncodeBatch encodes multiple texts concurrently with any encoder.
// Encoders without native batch support get it for free.
func EncodeBatch(ctx context.Context, encoder core.TextEncoder, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	errs := make([]error, len(texts))

	type result struct {
		idx int
		vec []float32
		err error
	}

	ch := make(chan result, len(texts))
	for i, text := range texts {
		go func(idx int, t string) {
			vec, err := encoder.Encode(ctx, t)
			ch <- result{idx: idx, vec: vec, err: err}
		}(i, text)
	}

	for range texts {
		r := <-ch
		results[r.idx] = r.vec
		errs[r.idx] = r.err
	}

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}
