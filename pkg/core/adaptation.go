package core

import (
	"fmt"
	"math"
)

// modalityWeightCap is the maximum share a single modality may take
// after usage-based reweighting, before renormalization.
const modalityWeightCap = 0.8

// OptimizeReport summarizes the adjustments applied by one Optimize
// pass.
type OptimizeReport struct {
	ModelWeights    map[string]float64   `json:"modelWeights"`
	ModalityWeights map[Modality]float64 `json:"modalityWeights"`
}

// Optimizer applies heuristic adaptation rules on top of the engine:
// latency-driven model weights and usage-driven modality reweighting.
// There is no schedule of its own; callers invoke Optimize directly or
// through a scheduled job, so tests stay deterministic.
type Optimizer struct {
	engine *Engine
	logger Logger
}

// NewOptimizer creates an optimizer bound to an engine.
func NewOptimizer(engine *Engine, logger Logger) *Optimizer {
	if logger == nil {
		logger = NopLogger()
	}
	return &Optimizer{engine: engine, logger: logger}
}

// Optimize recomputes model performance weights from the rolling
// latency windows (1/(1+avgSeconds): faster models are preferred by
// selection) and reweights modality fusion proportionally to usage,
// clipped and renormalized to sum to 1. These are advisory heuristics,
// not online-learning updates with guarantees.
func (o *Optimizer) Optimize() OptimizeReport {
	registry := o.engine.Registry()

	report := OptimizeReport{
		ModelWeights:    make(map[string]float64),
		ModalityWeights: make(map[Modality]float64),
	}

	for _, model := range registry.Models() {
		avg := registry.AvgLatency(model.Name)
		if avg <= 0 {
			continue
		}
		weight := 1.0 / (1.0 + avg.Seconds())
		if err := registry.SetPerformanceWeight(model.Name, weight); err != nil {
			continue
		}
		report.ModelWeights[model.Name] = weight
		o.logger.Debug("model weight updated", "model", model.Name, "weight", weight)
	}

	usage := registry.UsageByModality()
	var total int64
	for _, count := range usage {
		total += count
	}
	if total > 0 {
		weights := make(map[Modality]float64, len(usage))
		var sum float64
		for modality, count := range usage {
			w := float64(count) / float64(total)
			if w > modalityWeightCap {
				w = modalityWeightCap
			}
			weights[modality] = w
			sum += w
		}
		if sum > 0 {
			for modality := range weights {
				weights[modality] /= sum
			}
			o.engine.SetModalityWeights(weights)
			report.ModalityWeights = weights
		}
	}

	return report
}

// FitAdaptation fits a least-squares linear map from source-domain
// embedding samples onto target-domain samples. Quality is 1 - MSE
// measured on the fit sample itself; with no held-out set it is
// optimistic by construction and should be read as a rough signal.
func FitAdaptation(sourceDomain, targetDomain string, source, target [][]float32) (AdaptationMatrix, error) {
	if len(source) == 0 || len(source) != len(target) {
		return AdaptationMatrix{}, wrapError("adapt", fmt.Errorf("%w: need equal non-empty sample sets", ErrEmptyInput))
	}

	srcDim := len(source[0])
	dstDim := len(target[0])
	if srcDim == 0 || dstDim == 0 {
		return AdaptationMatrix{}, wrapError("adapt", ErrInvalidDimension)
	}
	for i := range source {
		if len(source[i]) != srcDim || len(target[i]) != dstDim {
			return AdaptationMatrix{}, wrapError("adapt", ErrInvalidDimension)
		}
	}

	// Normal equations: W = (XᵀX)⁻¹ XᵀY, with a tiny ridge term so
	// rank-deficient sample sets stay solvable.
	n := len(source)
	xtx := make([][]float64, srcDim)
	for i := range xtx {
		xtx[i] = make([]float64, srcDim)
		for j := 0; j < srcDim; j++ {
			var sum float64
			for s := 0; s < n; s++ {
				sum += float64(source[s][i]) * float64(source[s][j])
			}
			xtx[i][j] = sum
		}
		xtx[i][i] += 1e-8
	}

	xty := make([][]float64, srcDim)
	for i := range xty {
		xty[i] = make([]float64, dstDim)
		for j := 0; j < dstDim; j++ {
			var sum float64
			for s := 0; s < n; s++ {
				sum += float64(source[s][i]) * float64(target[s][j])
			}
			xty[i][j] = sum
		}
	}

	matrix, err := solveLinearSystem(xtx, xty)
	if err != nil {
		return AdaptationMatrix{}, wrapError("adapt", err)
	}

	// Quality on the training sample.
	var mse float64
	for s := 0; s < n; s++ {
		for j := 0; j < dstDim; j++ {
			var pred float64
			for i := 0; i < srcDim; i++ {
				pred += float64(source[s][i]) * matrix[i][j]
			}
			diff := pred - float64(target[s][j])
			mse += diff * diff
		}
	}
	mse /= float64(n * dstDim)

	return AdaptationMatrix{
		SourceDomain: sourceDomain,
		TargetDomain: targetDomain,
		Matrix:       matrix,
		Quality:      1.0 - mse,
	}, nil
}

// Apply transforms a source-domain vector into the target domain.
func (m AdaptationMatrix) Apply(vector []float32) ([]float32, error) {
	if len(m.Matrix) == 0 {
		return nil, wrapError("adapt", ErrInvalidConfig)
	}
	if len(vector) != len(m.Matrix) {
		return nil, wrapError("adapt", ErrInvalidDimension)
	}

	dstDim := len(m.Matrix[0])
	out := make([]float32, dstDim)
	for j := 0; j < dstDim; j++ {
		var sum float64
		for i, v := range vector {
			sum += float64(v) * m.Matrix[i][j]
		}
		out[j] = float32(sum)
	}
	return out, nil
}

// solveLinearSystem solves A·X = B for X with Gaussian elimination and
// partial pivoting. A is square (n×n), B is n×m.
func solveLinearSystem(a, b [][]float64) ([][]float64, error) {
	n := len(a)
	m := len(b[0])

	// Work on copies; elimination is destructive.
	aug := make([][]float64, n)
	for i := range aug {
		aug[i] = make([]float64, n+m)
		copy(aug[i], a[i])
		copy(aug[i][n:], b[i])
	}

	for col := 0; col < n; col++ {
		pivot := col
		for row := col + 1; row < n; row++ {
			if math.Abs(aug[row][col]) > math.Abs(aug[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(aug[pivot][col]) < 1e-12 {
			return nil, fmt.Errorf("singular system at column %d", col)
		}
		aug[col], aug[pivot] = aug[pivot], aug[col]

		for row := 0; row < n; row++ {
			if row == col {
				continue
			}
			factor := aug[row][col] / aug[col][col]
			for k := col; k < n+m; k++ {
				aug[row][k] -= factor * aug[col][k]
			}
		}
	}

	x := make([][]float64, n)
	for i := range x {
		x[i] = make([]float64, m)
		for j := 0; j < m; j++ {
			x[i][j] = aug[i][n+j] / aug[i][i]
		}
	}
	return x, nil
}
