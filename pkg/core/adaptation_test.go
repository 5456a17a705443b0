package core

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

func TestOptimizeModelWeights(t *testing.T) {
	engine := newTestEngine(t, &stubEncoder{vector: []float32{1}})
	registry := engine.Registry()

	registry.RecordUsage("text-default", 100*time.Millisecond)
	registry.RecordUsage("numerical-stats", time.Second)

	optimizer := NewOptimizer(engine, nil)
	report := optimizer.Optimize()

	// weight = 1/(1+avgSeconds): the faster model ends up heavier.
	wantText := 1.0 / 1.1
	if got := report.ModelWeights["text-default"]; math.Abs(got-wantText) > 1e-9 {
		t.Errorf("text-default weight = %v, want %v", got, wantText)
	}
	wantNum := 1.0 / 2.0
	if got := report.ModelWeights["numerical-stats"]; math.Abs(got-wantNum) > 1e-9 {
		t.Errorf("numerical-stats weight = %v, want %v", got, wantNum)
	}

	// Models without recorded latency keep their weight untouched.
	if _, ok := report.ModelWeights["categorical-hash"]; ok {
		t.Error("unused model received a weight update")
	}
	config, _ := registry.Get("categorical-hash")
	if config.PerformanceWeight != 1.0 {
		t.Errorf("unused model weight = %v, want unchanged 1.0", config.PerformanceWeight)
	}

	// The registry reflects the new weights.
	config, _ = registry.Get("text-default")
	if math.Abs(config.PerformanceWeight-wantText) > 1e-9 {
		t.Errorf("registry weight = %v, want %v", config.PerformanceWeight, wantText)
	}
}

func TestOptimizeModalityWeights(t *testing.T) {
	engine := newTestEngine(t, &stubEncoder{vector: []float32{1}})
	registry := engine.Registry()

	// 3 text uses, 1 numerical use.
	for i := 0; i < 3; i++ {
		registry.RecordUsage("text-default", time.Millisecond)
	}
	registry.RecordUsage("numerical-stats", time.Millisecond)

	report := NewOptimizer(engine, nil).Optimize()

	var sum float64
	for _, w := range report.ModalityWeights {
		sum += w
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("modality weights sum = %v, want 1.0", sum)
	}
	if report.ModalityWeights[ModalityText] <= report.ModalityWeights[ModalityNumerical] {
		t.Errorf("text weight %v not above numerical %v despite heavier usage",
			report.ModalityWeights[ModalityText], report.ModalityWeights[ModalityNumerical])
	}

	// The engine picked up the new fusion weights.
	engineWeights := engine.ModalityWeights()
	if math.Abs(engineWeights[ModalityText]-report.ModalityWeights[ModalityText]) > 1e-9 {
		t.Error("engine modality weights out of sync with the report")
	}
}

func TestOptimizeModalityWeightCap(t *testing.T) {
	engine := newTestEngine(t, &stubEncoder{vector: []float32{1}})
	registry := engine.Registry()

	// One modality dominates completely; the cap keeps it below 1 before
	// renormalization.
	for i := 0; i < 50; i++ {
		registry.RecordUsage("text-default", time.Millisecond)
	}
	registry.RecordUsage("numerical-stats", time.Millisecond)

	report := NewOptimizer(engine, nil).Optimize()

	text := report.ModalityWeights[ModalityText]
	numerical := report.ModalityWeights[ModalityNumerical]
	if text >= 1.0 {
		t.Errorf("dominant modality weight = %v, want capped below 1", text)
	}
	if numerical <= 0 {
		t.Errorf("minor modality weight = %v, want positive share", numerical)
	}
}

func TestOptimizeNoUsageIsNoOp(t *testing.T) {
	engine := newTestEngine(t, nil)

	report := NewOptimizer(engine, nil).Optimize()
	if len(report.ModelWeights) != 0 {
		t.Errorf("ModelWeights = %v without usage, want empty", report.ModelWeights)
	}
	if len(report.ModalityWeights) != 0 {
		t.Errorf("ModalityWeights = %v without usage, want empty", report.ModalityWeights)
	}
}

func TestOptimizeFeedsSelection(t *testing.T) {
	encoder := &stubEncoder{vector: []float32{1}}
	engine := newTestEngine(t, encoder)
	registry := engine.Registry()
	ctx := context.Background()

	// Make the default text model look slow, then optimize: selection
	// should move to the structured catch-all, which kept weight 0.9.
	registry.RecordUsage("text-default", 2*time.Second)
	NewOptimizer(engine, nil).Optimize()

	result, err := engine.EmbedText(ctx, "content")
	if err != nil {
		t.Fatalf("EmbedText() error = %v", err)
	}
	if result.ModelName != "structured-fusion" {
		t.Errorf("ModelName = %q after reweighting, want %q", result.ModelName, "structured-fusion")
	}
}

func TestFitAdaptationIdentity(t *testing.T) {
	source := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
		{1, 1, 0},
		{0, 1, 1},
	}

	matrix, err := FitAdaptation("general", "general", source, source)
	if err != nil {
		t.Fatalf("FitAdaptation() error = %v", err)
	}
	if matrix.SourceDomain != "general" || matrix.TargetDomain != "general" {
		t.Errorf("domains = %q -> %q, want general -> general", matrix.SourceDomain, matrix.TargetDomain)
	}
	if matrix.Quality < 0.999 {
		t.Errorf("Quality = %v for identity fit, want near 1", matrix.Quality)
	}

	// The fitted map reproduces the samples.
	out, err := matrix.Apply([]float32{1, 2, 3})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	want := []float64{1, 2, 3}
	for i, w := range want {
		if math.Abs(float64(out[i])-w) > 1e-3 {
			t.Errorf("Apply()[%d] = %v, want %v", i, out[i], w)
		}
	}
}

func TestFitAdaptationScaling(t *testing.T) {
	source := [][]float32{
		{1, 0},
		{0, 1},
		{1, 1},
	}
	target := [][]float32{
		{2, 0},
		{0, 2},
		{2, 2},
	}

	matrix, err := FitAdaptation("a", "b", source, target)
	if err != nil {
		t.Fatalf("FitAdaptation() error = %v", err)
	}

	out, err := matrix.Apply([]float32{3, 4})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if math.Abs(float64(out[0])-6) > 1e-3 || math.Abs(float64(out[1])-8) > 1e-3 {
		t.Errorf("Apply() = %v, want [6 8]", out)
	}
}

func TestFitAdaptationDifferentDimensions(t *testing.T) {
	source := [][]float32{
		{1, 0},
		{0, 1},
		{1, 1},
	}
	target := [][]float32{
		{1, 0, 1},
		{0, 1, 1},
		{1, 1, 2},
	}

	matrix, err := FitAdaptation("a", "b", source, target)
	if err != nil {
		t.Fatalf("FitAdaptation() error = %v", err)
	}

	out, err := matrix.Apply([]float32{2, 3})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("Apply() length = %d, want target dim 3", len(out))
	}
	want := []float64{2, 3, 5}
	for i, w := range want {
		if math.Abs(float64(out[i])-w) > 1e-3 {
			t.Errorf("Apply()[%d] = %v, want %v", i, out[i], w)
		}
	}
}

func TestFitAdaptationErrors(t *testing.T) {
	if _, err := FitAdaptation("a", "b", nil, nil); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("FitAdaptation(nil) error = %v, want ErrEmptyInput", err)
	}

	source := [][]float32{{1, 2}}
	target := [][]float32{{1}, {2}}
	if _, err := FitAdaptation("a", "b", source, target); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("FitAdaptation() mismatched counts error = %v, want ErrEmptyInput", err)
	}

	ragged := [][]float32{{1, 2}, {1}}
	even := [][]float32{{1}, {2}}
	if _, err := FitAdaptation("a", "b", ragged, even); !errors.Is(err, ErrInvalidDimension) {
		t.Errorf("FitAdaptation() ragged source error = %v, want ErrInvalidDimension", err)
	}
}

func TestAdaptationMatrixApplyErrors(t *testing.T) {
	var empty AdaptationMatrix
	if _, err := empty.Apply([]float32{1}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Apply() on empty matrix error = %v, want ErrInvalidConfig", err)
	}

	matrix := AdaptationMatrix{Matrix: [][]float64{{1, 0}, {0, 1}}}
	if _, err := matrix.Apply([]float32{1, 2, 3}); !errors.Is(err, ErrInvalidDimension) {
		t.Errorf("Apply() with wrong input dim error = %v, want ErrInvalidDimension", err)
	}
}

func TestSolveLinearSystem(t *testing.T) {
	// 2x + y = 5, x + 3y = 10 -> x = 1, y = 3.
	a := [][]float64{{2, 1}, {1, 3}}
	b := [][]float64{{5}, {10}}

	x, err := solveLinearSystem(a, b)
	if err != nil {
		t.Fatalf("solveLinearSystem() error = %v", err)
	}
	if math.Abs(x[0][0]-1) > 1e-9 || math.Abs(x[1][0]-3) > 1e-9 {
		t.Errorf("solveLinearSystem() = [%v %v], want [1 3]", x[0][0], x[1][0])
	}

	singular := [][]float64{{1, 1}, {1, 1}}
	if _, err := solveLinearSystem(singular, b); err == nil {
		t.Error("solveLinearSystem() on singular matrix succeeded, want error")
	}
}
