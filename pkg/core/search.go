package core

import (
	"container/heap"
)

// ScoredVector is a cached vector paired with its similarity to a
// query.
type ScoredVector struct {
	Key    string    `json:"key"`
	Vector []float32 `json:"vector"`
	Score  float64   `json:"score"`
}

// Search performs exact brute-force top-K similarity search over the
// live cache contents. At the volumes the cache is designed for this
// O(n) scan is cheaper than maintaining an approximate index.
func (c *EmbeddingCache) Search(query []float32, topK int, simFn SimilarityFunc) ([]ScoredVector, error) {
	if len(query) == 0 {
		return nil, wrapError("search", ErrEmptyVector)
	}
	if topK <= 0 {
		topK = 10
	}
	if simFn == nil {
		simFn = CosineSimilarity
	}

	entries := c.Snapshot()

	// Min-heap of the best topK scores seen so far.
	h := &scoredHeap{}
	heap.Init(h)

	for _, entry := range entries {
		minDim := len(query)
		if len(entry.Vector) < minDim {
			minDim = len(entry.Vector)
		}
		if minDim == 0 {
			continue
		}
		score := simFn(query[:minDim], entry.Vector[:minDim])

		if h.Len() < topK {
			heap.Push(h, ScoredVector{Key: entry.Key, Vector: entry.Vector, Score: score})
		} else if score > (*h)[0].Score {
			(*h)[0] = ScoredVector{Key: entry.Key, Vector: entry.Vector, Score: score}
			heap.Fix(h, 0)
		}
	}

	// Pop ascending, reverse to descending.
	out := make([]ScoredVector, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(ScoredVector)
	}
	return out, nil
}

// scoredHeap is a min-heap over similarity scores.
type scoredHeap []ScoredVector

func (h scoredHeap) Len() int            { return len(h) }
func (h scoredHeap) Less(i, j int) bool  { return h[i].Score < h[j].Score }
func (h scoredHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *scoredHeap) Push(x interface{}) { *h = append(*h, x.(ScoredVector)) }
func (h *scoredHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
