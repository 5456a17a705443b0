package core

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"sync"
	"time"
)

// categoricalBits is how many hash-derived dimensions each category
// contributes.
const categoricalBits = 10

// temporalFeatures is the number of calendar features packed per
// timestamp.
const temporalFeatures = 6

// zscoreScaler standardizes numerical input per feature.
//
// The scaler is fitted lazily on the first input a model sees, which
// means it is fitted on a single sample: per-feature std is then zero
// and guarded to 1, so the first input always scales to all zeros and
// later inputs are offsets from the first.
type zscoreScaler struct {
	fitted bool
	mean   []float64
	scale  []float64
}

func (s *zscoreScaler) fit(values []float64) {
	s.mean = make([]float64, len(values))
	s.scale = make([]float64, len(values))
	copy(s.mean, values)
	for i := range s.scale {
		// Single-sample std is zero; guard to 1 like sklearn does.
		s.scale[i] = 1.0
	}
	s.fitted = true
}

func (s *zscoreScaler) transform(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if i < len(s.mean) {
			out[i] = (v - s.mean[i]) / s.scale[i]
		} else {
			out[i] = v
		}
	}
	return out
}

// scalerSet holds one lazily fitted scaler per model.
type scalerSet struct {
	mu      sync.Mutex
	scalers map[string]*zscoreScaler
}

func newScalerSet() *scalerSet {
	return &scalerSet{scalers: make(map[string]*zscoreScaler)}
}

// scale fits the model's scaler on first use, then transforms.
func (ss *scalerSet) scale(modelName string, values []float64) []float64 {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	scaler, ok := ss.scalers[modelName]
	if !ok {
		scaler = &zscoreScaler{}
		ss.scalers[modelName] = scaler
	}
	if !scaler.fitted {
		scaler.fit(values)
	}
	return scaler.transform(values)
}

// generateNumerical packs a scaled numerical vector into the model's
// dimension: the scaled values first, then five summary statistics
// (mean, std, min, max, median) of the scaled values, then zeros.
func (e *Engine) generateNumerical(content any, model ModelConfig) ([]float32, error) {
	values, ok := toFloat64s(content)
	if !ok || len(values) == 0 {
		return nil, fmt.Errorf("%w: numerical content must be a non-empty number slice", ErrEmptyInput)
	}

	scaled := e.scalers.scale(model.Name, values)

	vector := make([]float32, model.Dimension)
	n := len(scaled)
	if n > model.Dimension {
		n = model.Dimension
	}
	for i := 0; i < n; i++ {
		vector[i] = float32(scaled[i])
	}

	stats := summaryStats(scaled)
	for i, s := range stats {
		pos := n + i
		if pos >= model.Dimension {
			break
		}
		vector[pos] = float32(s)
	}

	return vector, nil
}

// summaryStats returns mean, std, min, max and median of values.
func summaryStats(values []float64) [5]float64 {
	var stats [5]float64
	if len(values) == 0 {
		return stats
	}

	var sum float64
	minV, maxV := values[0], values[0]
	for _, v := range values {
		sum += v
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values))

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	var median float64
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2.0
	} else {
		median = sorted[mid]
	}

	stats[0] = mean
	stats[1] = math.Sqrt(variance)
	stats[2] = minV
	stats[3] = maxV
	stats[4] = median
	return stats
}

// generateCategorical encodes categories by hash bit-packing: each
// category contributes up to ten dimensions derived from the bits of
// its FNV-1a hash, positions wrapping modulo the target dimension. The
// final vector is L2-normalized with a zero-norm guard.
func generateCategorical(content any, dimension int) ([]float32, error) {
	categories, ok := toStrings(content)
	if !ok || len(categories) == 0 {
		return nil, fmt.Errorf("%w: categorical content must be a non-empty string slice", ErrEmptyInput)
	}

	vector := make([]float32, dimension)
	for i, category := range categories {
		h := fnv.New64a()
		h.Write([]byte(category))
		bits := h.Sum64()

		for b := 0; b < categoricalBits; b++ {
			pos := (i*categoricalBits + b) % dimension
			vector[pos] += float32((bits >> uint(b)) & 1)
		}
	}

	l2Normalize(vector)
	return vector, nil
}

// generateTemporal packs six normalized calendar features per timestamp
// (year/3000, month/12, day/31, hour/24, minute/60, second/60),
// sequentially for up to dimension/6 timestamps. Unparseable date
// strings fall back to the current time.
func generateTemporal(content any, dimension int) ([]float32, error) {
	timestamps, ok := toTimestamps(content)
	if !ok || len(timestamps) == 0 {
		return nil, fmt.Errorf("%w: temporal content must be a non-empty timestamp slice", ErrEmptyInput)
	}

	vector := make([]float32, dimension)
	maxTimestamps := dimension / temporalFeatures
	if len(timestamps) > maxTimestamps {
		timestamps = timestamps[:maxTimestamps]
	}

	for i, t := range timestamps {
		base := i * temporalFeatures
		vector[base+0] = float32(t.Year()) / 3000.0
		vector[base+1] = float32(t.Month()) / 12.0
		vector[base+2] = float32(t.Day()) / 31.0
		vector[base+3] = float32(t.Hour()) / 24.0
		vector[base+4] = float32(t.Minute()) / 60.0
		vector[base+5] = float32(t.Second()) / 60.0
	}

	return vector, nil
}

// structuredTextDiscount is the weight penalty applied to fields that
// had to be stringified before text embedding.
const structuredTextDiscount = 0.5

// generateStructured embeds each field of a map by its Go type and
// fuses the sub-embeddings with the configured per-modality weights.
// A failing field degrades to a zero sub-vector and is logged; the
// structured embedding itself fails only when every field is unusable.
func (e *Engine) generateStructured(ctx context.Context, content any, model ModelConfig) ([]float32, error) {
	fields, ok := content.(map[string]any)
	if !ok || len(fields) == 0 {
		return nil, fmt.Errorf("%w: structured content must be a non-empty map", ErrEmptyInput)
	}

	// Deterministic field order so fusion weights line up run to run.
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var vectors [][]float32
	var weights []float64
	usable := 0

	for _, name := range names {
		value := fields[name]

		var vec []float32
		var err error
		var weight float64

		switch v := value.(type) {
		case string:
			vec, err = e.generateText(ctx, v, model)
			weight = e.modalityWeight(ModalityText)
		case time.Time:
			vec, err = generateTemporal(v, model.Dimension)
			weight = e.modalityWeight(ModalityTemporal)
		default:
			if nums, isNum := toFloat64s(v); isNum {
				vec, err = e.generateNumerical(nums, model)
				weight = e.modalityWeight(ModalityNumerical)
			} else {
				vec, err = e.generateText(ctx, fmt.Sprintf("%v", v), model)
				weight = e.modalityWeight(ModalityText) * structuredTextDiscount
			}
		}

		if err != nil {
			e.logger.Warn("structured field embedding failed", "field", name, "error", err)
			vec = make([]float32, model.Dimension)
		} else {
			usable++
		}
		vectors = append(vectors, vec)
		weights = append(weights, weight)
	}

	if usable == 0 {
		return nil, fmt.Errorf("no usable fields in structured content")
	}

	return Fuse(vectors, weights, model.Dimension)
}

// modalityWeight returns the current fusion weight for a modality,
// defaulting to 1.0.
func (e *Engine) modalityWeight(m Modality) float64 {
	e.weightsMu.RLock()
	defer e.weightsMu.RUnlock()

	if w, ok := e.modalityWeights[m]; ok {
		return w
	}
	return 1.0
}

// toFloat64s coerces common numeric content shapes to []float64.
func toFloat64s(content any) ([]float64, bool) {
	switch v := content.(type) {
	case []float64:
		return v, true
	case []float32:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, true
	case []int:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, true
	case []int64:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, true
	case float64:
		return []float64{v}, true
	case float32:
		return []float64{float64(v)}, true
	case int:
		return []float64{float64(v)}, true
	case int64:
		return []float64{float64(v)}, true
	default:
		return nil, false
	}
}

// toStrings coerces categorical content shapes to []string.
func toStrings(content any) ([]string, bool) {
	switch v := content.(type) {
	case []string:
		return v, true
	case string:
		return []string{v}, true
	default:
		return nil, false
	}
}

// timestampLayouts are tried in order when parsing date strings.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// toTimestamps coerces temporal content shapes to []time.Time.
func toTimestamps(content any) ([]time.Time, bool) {
	switch v := content.(type) {
	case time.Time:
		return []time.Time{v}, true
	case []time.Time:
		return v, true
	case string:
		return []time.Time{parseTimestamp(v)}, true
	case []string:
		out := make([]time.Time, len(v))
		for i, s := range v {
			out[i] = parseTimestamp(s)
		}
		return out, true
	default:
		return nil, false
	}
}

// parseTimestamp parses a date string, falling back to the current time
// when no layout matches.
func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Now()
}
