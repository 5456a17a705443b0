package core

import (
	"fmt"
	"math"
	"math/rand"
)

// ClusterAlgorithm selects the clustering algorithm.
type ClusterAlgorithm string

// Supported clustering algorithms
const (
	AlgorithmKMeans        ClusterAlgorithm = "kmeans"
	AlgorithmDBSCAN        ClusterAlgorithm = "dbscan"
	AlgorithmAgglomerative ClusterAlgorithm = "agglomerative"
)

// Clustering constants
const (
	kmeansRestarts = 10
	kmeansMaxIters = 100

	defaultNumClusters = 3
	defaultEps         = 0.5
	defaultMinSamples  = 3

	// relationshipThreshold is the minimum centroid cosine similarity
	// for two clusters to be reported as related.
	relationshipThreshold = 0.5
	// relationshipTopK caps related clusters reported per cluster.
	relationshipTopK = 3
)

// ClusterOptions carries per-call clustering parameters. Zero values
// select the defaults above.
type ClusterOptions struct {
	NumClusters int
	Eps         float64
	MinSamples  int
	Seed        int64
}

// Cluster groups vectors with the selected algorithm.
//
// Internal algorithm failures never propagate: the result collapses to
// a single degenerate cluster holding all points with the mean as sole
// centroid, Success=false and FallbackCause set. Only an empty or
// inconsistent input surfaces an error, since no well-shaped result
// can be built from it.
func Cluster(vectors [][]float32, algorithm ClusterAlgorithm, opts ClusterOptions, logger Logger) (ClusteringResult, error) {
	if logger == nil {
		logger = NopLogger()
	}
	if len(vectors) == 0 {
		return ClusteringResult{}, wrapError("cluster", ErrEmptyInput)
	}
	dim := len(vectors[0])
	for _, v := range vectors {
		if len(v) != dim || dim == 0 {
			return ClusteringResult{}, wrapError("cluster", ErrInvalidDimension)
		}
	}

	if opts.NumClusters <= 0 {
		opts.NumClusters = defaultNumClusters
	}
	if opts.Eps <= 0 {
		opts.Eps = defaultEps
	}
	if opts.MinSamples <= 0 {
		opts.MinSamples = defaultMinSamples
	}

	var labels []int
	var centroids [][]float32
	var err error

	switch algorithm {
	case AlgorithmKMeans, "":
		labels, centroids, err = kMeansCluster(vectors, opts.NumClusters, opts.Seed)
	case AlgorithmDBSCAN:
		labels, centroids, err = dbscanCluster(vectors, opts.Eps, opts.MinSamples)
	case AlgorithmAgglomerative:
		labels, centroids, err = agglomerativeCluster(vectors, opts.NumClusters)
	default:
		err = fmt.Errorf("unknown clustering algorithm %q", algorithm)
	}

	if err != nil {
		logger.Warn("clustering failed, returning degenerate cluster", "algorithm", algorithm, "error", err)
		return degenerateCluster(vectors, algorithm, err), nil
	}

	return ClusteringResult{
		Labels:        labels,
		Centroids:     centroids,
		Silhouette:    silhouetteScore(vectors, labels),
		Relationships: clusterRelationships(centroids),
		Algorithm:     algorithm,
		Success:       true,
	}, nil
}

// degenerateCluster collapses all points into one cluster with the mean
// as its centroid.
func degenerateCluster(vectors [][]float32, algorithm ClusterAlgorithm, cause error) ClusteringResult {
	labels := make([]int, len(vectors))
	return ClusteringResult{
		Labels:        labels,
		Centroids:     [][]float32{meanVector(vectors)},
		Silhouette:    0,
		Algorithm:     algorithm,
		Success:       false,
		FallbackCause: cause,
	}
}

// meanVector averages a non-empty set of equal-length vectors.
func meanVector(vectors [][]float32) []float32 {
	dim := len(vectors[0])
	mean := make([]float32, dim)
	for _, v := range vectors {
		for i, x := range v {
			mean[i] += x
		}
	}
	n := float32(len(vectors))
	for i := range mean {
		mean[i] /= n
	}
	return mean
}

// kMeansCluster runs seeded k-means with multiple random restarts and
// keeps the assignment with the lowest inertia.
func kMeansCluster(vectors [][]float32, k int, seed int64) ([]int, [][]float32, error) {
	if k > len(vectors) {
		return nil, nil, fmt.Errorf("need at least %d vectors for %d clusters, got %d", k, k, len(vectors))
	}

	rng := rand.New(rand.NewSource(seed))

	bestInertia := math.MaxFloat64
	var bestLabels []int
	var bestCentroids [][]float32

	for restart := 0; restart < kmeansRestarts; restart++ {
		labels, centroids := kMeansOnce(vectors, k, rng)
		inertia := kMeansInertia(vectors, labels, centroids)
		if inertia < bestInertia {
			bestInertia = inertia
			bestLabels = labels
			bestCentroids = centroids
		}
	}

	return bestLabels, bestCentroids, nil
}

// kMeansOnce runs a single k-means pass: random centroid init from the
// data, then assignment/update iterations until stable.
func kMeansOnce(vectors [][]float32, k int, rng *rand.Rand) ([]int, [][]float32) {
	dim := len(vectors[0])

	centroids := make([][]float32, k)
	perm := rng.Perm(len(vectors))
	for i := 0; i < k; i++ {
		centroids[i] = make([]float32, dim)
		copy(centroids[i], vectors[perm[i]])
	}

	assignments := make([]int, len(vectors))

	for iter := 0; iter < kmeansMaxIters; iter++ {
		changed := false
		for i, vec := range vectors {
			minDist := math.MaxFloat64
			minIdx := 0
			for j, centroid := range centroids {
				dist := euclideanDistance(vec, centroid)
				if dist < minDist {
					minDist = dist
					minIdx = j
				}
			}
			if assignments[i] != minIdx {
				changed = true
				assignments[i] = minIdx
			}
		}

		if !changed {
			break
		}

		counts := make([]int, k)
		for i := range centroids {
			centroids[i] = make([]float32, dim)
		}
		for i, vec := range vectors {
			cluster := assignments[i]
			counts[cluster]++
			for j := 0; j < dim; j++ {
				centroids[cluster][j] += vec[j]
			}
		}
		for i := range centroids {
			if counts[i] > 0 {
				for j := 0; j < dim; j++ {
					centroids[i][j] /= float32(counts[i])
				}
			} else {
				// Re-seed empty clusters from a random point.
				copy(centroids[i], vectors[rng.Intn(len(vectors))])
			}
		}
	}

	return assignments, centroids
}

// kMeansInertia sums squared distances of points to their centroid.
func kMeansInertia(vectors [][]float32, labels []int, centroids [][]float32) float64 {
	var total float64
	for i, vec := range vectors {
		d := euclideanDistance(vec, centroids[labels[i]])
		total += d * d
	}
	return total
}

// dbscanCluster implements density-based clustering. Outliers keep
// label -1; centroids are computed for real clusters only.
func dbscanCluster(vectors [][]float32, eps float64, minSamples int) ([]int, [][]float32, error) {
	const (
		unvisited = -2
		noise     = -1
	)

	n := len(vectors)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = unvisited
	}

	neighborsOf := func(idx int) []int {
		var out []int
		for j := 0; j < n; j++ {
			if j != idx && euclideanDistance(vectors[idx], vectors[j]) <= eps {
				out = append(out, j)
			}
		}
		return out
	}

	cluster := 0
	for i := 0; i < n; i++ {
		if labels[i] != unvisited {
			continue
		}

		neighbors := neighborsOf(i)
		if len(neighbors)+1 < minSamples {
			labels[i] = noise
			continue
		}

		labels[i] = cluster
		queue := append([]int(nil), neighbors...)
		for len(queue) > 0 {
			j := queue[0]
			queue = queue[1:]

			if labels[j] == noise {
				labels[j] = cluster
			}
			if labels[j] != unvisited {
				continue
			}
			labels[j] = cluster

			jNeighbors := neighborsOf(j)
			if len(jNeighbors)+1 >= minSamples {
				queue = append(queue, jNeighbors...)
			}
		}
		cluster++
	}

	if cluster == 0 {
		return nil, nil, fmt.Errorf("dbscan found no dense region (eps=%g, minSamples=%d)", eps, minSamples)
	}

	centroids := centroidsFor(vectors, labels, cluster)
	return labels, centroids, nil
}

// agglomerativeCluster merges clusters bottom-up with single linkage
// until the requested count remains.
func agglomerativeCluster(vectors [][]float32, k int) ([]int, [][]float32, error) {
	n := len(vectors)
	if k > n {
		return nil, nil, fmt.Errorf("need at least %d vectors for %d clusters, got %d", k, k, n)
	}

	labels := make([]int, n)
	for i := range labels {
		labels[i] = i
	}
	active := n

	for active > k {
		// Find the closest pair of clusters under single linkage.
		bestDist := math.MaxFloat64
		bestA, bestB := -1, -1
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				if labels[i] == labels[j] {
					continue
				}
				d := euclideanDistance(vectors[i], vectors[j])
				if d < bestDist {
					bestDist = d
					bestA, bestB = labels[i], labels[j]
				}
			}
		}
		if bestA < 0 {
			break
		}
		for i := range labels {
			if labels[i] == bestB {
				labels[i] = bestA
			}
		}
		active--
	}

	// Compact labels to 0..k-1.
	remap := make(map[int]int)
	next := 0
	for i, l := range labels {
		if _, ok := remap[l]; !ok {
			remap[l] = next
			next++
		}
		labels[i] = remap[l]
	}

	centroids := centroidsFor(vectors, labels, next)
	return labels, centroids, nil
}

// centroidsFor averages the members of each non-noise cluster.
func centroidsFor(vectors [][]float32, labels []int, clusters int) [][]float32 {
	dim := len(vectors[0])
	centroids := make([][]float32, clusters)
	counts := make([]int, clusters)
	for i := range centroids {
		centroids[i] = make([]float32, dim)
	}

	for i, vec := range vectors {
		l := labels[i]
		if l < 0 {
			continue
		}
		counts[l]++
		for j, x := range vec {
			centroids[l][j] += x
		}
	}
	for i := range centroids {
		if counts[i] > 0 {
			for j := range centroids[i] {
				centroids[i][j] /= float32(counts[i])
			}
		}
	}
	return centroids
}

// silhouetteScore computes the mean silhouette over all points in real
// clusters. It is defined only when at least two distinct labels exist;
// otherwise it defaults to 0.
func silhouetteScore(vectors [][]float32, labels []int) float64 {
	distinct := make(map[int]int)
	for _, l := range labels {
		if l >= 0 {
			distinct[l]++
		}
	}
	if len(distinct) < 2 {
		return 0
	}

	var total float64
	counted := 0
	for i, vec := range vectors {
		li := labels[i]
		if li < 0 {
			continue
		}
		if distinct[li] < 2 {
			// Singleton clusters contribute 0 by convention.
			counted++
			continue
		}

		// Mean distance to own cluster and to the nearest other cluster.
		sums := make(map[int]float64)
		counts := make(map[int]int)
		for j, other := range vectors {
			lj := labels[j]
			if j == i || lj < 0 {
				continue
			}
			sums[lj] += euclideanDistance(vec, other)
			counts[lj]++
		}

		a := sums[li] / float64(counts[li])
		b := math.MaxFloat64
		for l, sum := range sums {
			if l == li {
				continue
			}
			if mean := sum / float64(counts[l]); mean < b {
				b = mean
			}
		}

		maxAB := a
		if b > maxAB {
			maxAB = b
		}
		if maxAB > 0 {
			total += (b - a) / maxAB
		}
		counted++
	}

	if counted == 0 {
		return 0
	}
	return total / float64(counted)
}

// clusterRelationships links clusters whose centroids are cosine
// similar above the threshold, keeping the top neighbors per cluster.
func clusterRelationships(centroids [][]float32) map[int][]ClusterNeighbor {
	out := make(map[int][]ClusterNeighbor)
	for i := range centroids {
		var neighbors []ClusterNeighbor
		for j := range centroids {
			if i == j {
				continue
			}
			sim := cosineSimilarity(centroids[i], centroids[j])
			if sim > relationshipThreshold {
				neighbors = append(neighbors, ClusterNeighbor{Cluster: j, Similarity: sim})
			}
		}
		// Keep the strongest links only.
		for a := 0; a < len(neighbors); a++ {
			for b := a + 1; b < len(neighbors); b++ {
				if neighbors[b].Similarity > neighbors[a].Similarity {
					neighbors[a], neighbors[b] = neighbors[b], neighbors[a]
				}
			}
		}
		if len(neighbors) > relationshipTopK {
			neighbors = neighbors[:relationshipTopK]
		}
		if len(neighbors) > 0 {
			out[i] = neighbors
		}
	}
	return out
}
