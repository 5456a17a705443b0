package encoders

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/liliang-cn/modalvec/pkg/core"
)

// WrapLRU wraps an encoder with a client-side expirable LRU cache.
// This sits in front of the remote model call and is independent of
// the engine's embedding cache, which keys on model and params; here
// the key is the raw text. Invalid size or ttl returns the encoder
// unwrapped.
func WrapLRU(next core.TextEncoder, size int, ttl time.Duration) core.TextEncoder {
	if next == nil || size <= 0 || ttl <= 0 {
		return next
	}
	return &lruEncoder{
		next:  next,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

type lruEncoder struct {
	next  core.TextEncoder
	cache *expirable.LRU[string, []float32]
}

func (l *lruEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := l.cache.Get(text); ok {
		return cloneVector(cached), nil
	}
	vec, err := l.next.Encode(ctx, text)
	if err != nil {
		return nil, err
	}
	l.cache.Add(text, cloneVector(vec))
	return vec, nil
}

func (l *lruEncoder) Dim() int {
	return l.next.Dim()
}

func cloneVector(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}
	clone := make([]float32, len(values))
	copy(clone, values)
	return clone
}
