package core

import "math"

// SimilarityMetric selects the similarity computation.
type SimilarityMetric string

// Supported similarity metrics
const (
	MetricCosine    SimilarityMetric = "cosine"
	MetricEuclidean SimilarityMetric = "euclidean"
	MetricManhattan SimilarityMetric = "manhattan"
	MetricPearson   SimilarityMetric = "pearson"
	// MetricCombined blends cosine and euclidean-derived similarity
	// with fixed 0.6/0.4 weights.
	MetricCombined SimilarityMetric = "combined"
)

// SimilarityFunc calculates similarity between two equal-length vectors.
type SimilarityFunc func(a, b []float32) float64

// Predefined similarity functions
var (
	// CosineSimilarity calculates cosine similarity between two vectors
	CosineSimilarity = cosineSimilarity

	// DotProduct calculates dot product between two vectors
	DotProduct = dotProduct
)

// Similarity computes the similarity between a and b under the given
// metric. Vectors of different lengths are truncated to the shorter
// length before comparison; this loses information silently, matching
// the documented contract.
func Similarity(a, b []float32, metric SimilarityMetric) (SimilarityResult, error) {
	if len(a) == 0 || len(b) == 0 {
		return SimilarityResult{}, wrapError("similarity", ErrEmptyVector)
	}

	minDim := len(a)
	if len(b) < minDim {
		minDim = len(b)
	}
	ta, tb := a[:minDim], b[:minDim]

	components := make(map[string]float64)
	var score float64

	switch metric {
	case MetricCosine, "":
		score = cosineSimilarity(ta, tb)
		components["cosine"] = score
	case MetricEuclidean:
		score = distanceSimilarity(euclideanDistance(ta, tb))
		components["euclidean"] = score
	case MetricManhattan:
		score = distanceSimilarity(manhattanDistance(ta, tb))
		components["manhattan"] = score
	case MetricPearson:
		score = pearsonCorrelation(ta, tb)
		components["pearson"] = score
	case MetricCombined:
		cos := cosineSimilarity(ta, tb)
		euc := distanceSimilarity(euclideanDistance(ta, tb))
		score = 0.6*cos + 0.4*euc
		components["cosine"] = cos
		components["euclidean"] = euc
	default:
		return SimilarityResult{}, wrapError("similarity", ErrInvalidConfig)
	}

	return SimilarityResult{
		Score:      score,
		Metric:     metric,
		Components: components,
		Confidence: similarityConfidence(a, b, minDim),
	}, nil
}

// similarityConfidence is a rough quality signal:
// min(1, |a|*|b| / (2*minDim)). It has no formal grounding and should
// not be treated as a calibrated probability.
func similarityConfidence(a, b []float32, minDim int) float64 {
	conf := vectorNorm(a) * vectorNorm(b) / (2.0 * float64(minDim))
	if conf > 1.0 {
		return 1.0
	}
	return conf
}

// cosineSimilarity calculates cosine similarity between two vectors.
// Returns a value between -1 and 1, where 1 means identical direction.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	var dot, normA, normB float64
	for i := 0; i < len(a); i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	// Handle zero vectors
	if normA == 0.0 || normB == 0.0 {
		return 0.0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// dotProduct calculates the dot product between two vectors.
func dotProduct(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	var result float64
	for i := 0; i < len(a); i++ {
		result += float64(a[i]) * float64(b[i])
	}
	return result
}

// euclideanDistance calculates the L2 distance between two vectors.
func euclideanDistance(a, b []float32) float64 {
	var sum float64
	for i := 0; i < len(a); i++ {
		diff := float64(a[i]) - float64(b[i])
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// manhattanDistance calculates the L1 distance between two vectors.
func manhattanDistance(a, b []float32) float64 {
	var sum float64
	for i := 0; i < len(a); i++ {
		sum += math.Abs(float64(a[i]) - float64(b[i]))
	}
	return sum
}

// distanceSimilarity converts a distance into a similarity in (0, 1]
// via 1/(1+distance).
func distanceSimilarity(distance float64) float64 {
	return 1.0 / (1.0 + distance)
}

// pearsonCorrelation calculates the Pearson correlation coefficient.
// Degenerate inputs (constant vectors) map to 0 instead of NaN.
func pearsonCorrelation(a, b []float32) float64 {
	n := float64(len(a))
	if n == 0 {
		return 0.0
	}

	var sumA, sumB float64
	for i := range a {
		sumA += float64(a[i])
		sumB += float64(b[i])
	}
	meanA, meanB := sumA/n, sumB/n

	var cov, varA, varB float64
	for i := range a {
		da := float64(a[i]) - meanA
		db := float64(b[i]) - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}

	if varA == 0.0 || varB == 0.0 {
		return 0.0
	}

	r := cov / math.Sqrt(varA*varB)
	if math.IsNaN(r) {
		return 0.0
	}
	return r
}

// vectorNorm calculates the L2 norm of a vector.
func vectorNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// l2Normalize scales a vector to unit length in place, guarding
// against zero-norm input.
func l2Normalize(v []float32) {
	norm := vectorNorm(v)
	if norm == 0 {
		return
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}
