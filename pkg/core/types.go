package core

import (
	"time"
)

// Modality identifies the category of input data an embedding model handles.
type Modality string

// Supported modalities
const (
	ModalityText        Modality = "text"
	ModalityNumerical   Modality = "numerical"
	ModalityCategorical Modality = "categorical"
	ModalityTemporal    Modality = "temporal"
	// ModalityStructured is the catch-all modality: structured inputs are
	// split per field and each field is routed to its own sub-embedder.
	ModalityStructured Modality = "structured"
)

// Valid reports whether m is a known modality.
func (m Modality) Valid() bool {
	switch m {
	case ModalityText, ModalityNumerical, ModalityCategorical, ModalityTemporal, ModalityStructured:
		return true
	}
	return false
}

// EmbeddingResult is the outcome of a single embedding call.
//
// Success discriminates a genuine computation from a fallback: when a
// generation error was suppressed, Success is false, Vector is all
// zeros at the model's declared dimension and FallbackCause carries the
// suppressed error. Callers must check Success rather than assume the
// vector is meaningful.
type EmbeddingResult struct {
	ID              string        `json:"id"`
	Vector          []float32     `json:"vector"`
	ModelName       string        `json:"modelName"`
	Modality        Modality      `json:"modality"`
	ComputationTime time.Duration `json:"computationTime"`
	CacheHit        bool          `json:"cacheHit"`
	Confidence      float64       `json:"confidence"`
	Success         bool          `json:"success"`
	FallbackCause   error         `json:"-"`
}

// SimilarityResult is the outcome of a similarity computation.
// Components holds the per-metric breakdown that contributed to Score
// (for the combined metric it contains both parts).
type SimilarityResult struct {
	Score      float64            `json:"score"`
	Metric     SimilarityMetric   `json:"metric"`
	Components map[string]float64 `json:"components,omitempty"`
	Confidence float64            `json:"confidence"`
}

// ClusterNeighbor describes a related cluster and the centroid
// similarity that links it.
type ClusterNeighbor struct {
	Cluster    int     `json:"cluster"`
	Similarity float64 `json:"similarity"`
}

// ClusteringResult is the outcome of a clustering call.
//
// Labels has one entry per input vector; DBSCAN marks outliers with
// label -1. Relationships maps each cluster to its top related
// clusters by centroid cosine similarity. As with EmbeddingResult,
// Success=false means the algorithm failed and the result degenerated
// to a single cluster with the mean of all points as sole centroid.
type ClusteringResult struct {
	Labels        []int                     `json:"labels"`
	Centroids     [][]float32               `json:"centroids"`
	Silhouette    float64                   `json:"silhouette"`
	Relationships map[int][]ClusterNeighbor `json:"relationships,omitempty"`
	Algorithm     ClusterAlgorithm          `json:"algorithm"`
	Success       bool                      `json:"success"`
	FallbackCause error                     `json:"-"`
}

// AdaptationMatrix maps embeddings from a source domain onto a target
// domain via a least-squares linear transform.
type AdaptationMatrix struct {
	SourceDomain string      `json:"sourceDomain"`
	TargetDomain string      `json:"targetDomain"`
	Matrix       [][]float64 `json:"matrix"`
	// Quality is 1 - MSE measured on the fit sample itself. There is no
	// held-out validation, so this is optimistic by construction.
	Quality float64 `json:"quality"`
}

// copyVector returns a defensive copy of v.
func copyVector(v []float32) []float32 {
	if v == nil {
		return nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
