package train

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"metaelm/internal/nn"
	"metaelm/internal/optim"
)

// linearDataset builds y = X·w + b with deterministic inputs.
func linearDataset(rows, cols int, seed int64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewSource(seed))
	X := mat.NewDense(rows, cols, nil)
	y := mat.NewDense(rows, 1, nil)
	for r := 0; r < rows; r++ {
		total := 0.5
		for c := 0; c < cols; c++ {
			v := rng.Float64()*2 - 1
			X.Set(r, c, v)
			total += float64(c+1) * v
		}
		y.Set(r, 0, total)
	}
	return X, y
}

// clusterDataset builds two separable label clusters in 2D.
func clusterDataset(perClass int, seed int64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewSource(seed))
	X := mat.NewDense(2*perClass, 2, nil)
	y := mat.NewDense(2*perClass, 1, nil)
	for i := 0; i < perClass; i++ {
		X.Set(i, 0, rng.NormFloat64()*0.2)
		X.Set(i, 1, rng.NormFloat64()*0.2)
		y.Set(i, 0, 0)

		X.Set(perClass+i, 0, 3+rng.NormFloat64()*0.2)
		X.Set(perClass+i, 1, 3+rng.NormFloat64()*0.2)
		y.Set(perClass+i, 0, 1)
	}
	return X, y
}

func TestEvaluatorDistinguishesCandidates(t *testing.T) {
	template, err := nn.NewNetwork([]int{2}, "identity", 1)
	if err != nil {
		t.Fatalf("new network: %v", err)
	}
	if err := template.Init(3); err != nil {
		t.Fatalf("init: %v", err)
	}

	X := mat.NewDense(4, 3, []float64{
		1, 0, 2,
		0, 1, 1,
		2, 1, 0,
		1, 2, 1,
	})
	y := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	sc, err := buildScaler(TaskRegression, y)
	if err != nil {
		t.Fatalf("build scaler: %v", err)
	}
	spec, err := ResolveObjective("MSE")
	if err != nil {
		t.Fatalf("resolve objective: %v", err)
	}
	eval := NewEvaluator(template, sc, spec, X, y, flatten(y))

	ndim := template.NDim()
	if ndim != 3*2+2 {
		t.Fatalf("ndim: got %d, want 8", ndim)
	}
	zeros := make([]float64, ndim)
	ones := make([]float64, ndim)
	for i := range ones {
		ones[i] = 1
	}

	fitZero := eval.Evaluate(zeros)
	fitOnes := eval.Evaluate(ones)
	if len(fitZero) != 1 || len(fitOnes) != 1 {
		t.Fatalf("objective widths: %d, %d, want 1", len(fitZero), len(fitOnes))
	}
	if fitZero[0] == fitOnes[0] {
		t.Fatalf("zero and ones candidates scored identically: %g", fitZero[0])
	}
}

func TestEvaluatorLeavesTemplateUntouched(t *testing.T) {
	template, err := nn.NewNetwork([]int{3}, "sigmoid", 5)
	if err != nil {
		t.Fatalf("new network: %v", err)
	}
	if err := template.Init(2); err != nil {
		t.Fatalf("init: %v", err)
	}
	before, err := template.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	X, y := linearDataset(10, 2, 3)
	sc, _ := buildScaler(TaskRegression, y)
	spec, _ := ResolveObjective("RMSE")
	eval := NewEvaluator(template, sc, spec, X, y, flatten(y))

	candidate := make([]float64, template.NDim())
	for i := range candidate {
		candidate[i] = 0.25 * float64(i)
	}
	eval.Evaluate(candidate)

	after, err := template.Encode()
	if err != nil {
		t.Fatalf("encode after: %v", err)
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("template parameter %d mutated by evaluation", i)
		}
	}
}

func TestELMClosedFormShapes(t *testing.T) {
	X, y := linearDataset(100, 4, 42)

	elm, err := NewELM([]int{8}, "sigmoid", TaskRegression, 7)
	if err != nil {
		t.Fatalf("new ELM: %v", err)
	}
	if err := elm.Fit(X, y); err != nil {
		t.Fatalf("fit: %v", err)
	}

	pred, err := elm.Predict(X)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if r, c := pred.Dims(); r != 100 || c != 1 {
		t.Fatalf("prediction shape: got (%d,%d), want (100,1)", r, c)
	}

	report := elm.Network().Weights()
	if r, c := report.Weights[0].Dims(); r != 4 || c != 8 {
		t.Fatalf("weight shape: got (%d,%d), want (4,8)", r, c)
	}
	if r, c := report.Beta.Dims(); r != 8 || c != 1 {
		t.Fatalf("beta shape: got (%d,%d), want (8,1)", r, c)
	}

	mse, err := elm.Score(X, y, "MSE")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if math.IsNaN(mse) || math.IsInf(mse, 0) {
		t.Fatalf("MSE not finite: %g", mse)
	}
}

func TestELMPredictBeforeFit(t *testing.T) {
	elm, err := NewELM([]int{4}, "relu", TaskRegression, 1)
	if err != nil {
		t.Fatalf("new ELM: %v", err)
	}
	if _, err := elm.Predict(mat.NewDense(2, 3, nil)); !errors.Is(err, ErrNotFitted) {
		t.Fatalf("expected ErrNotFitted, got: %v", err)
	}
}

func TestEvaluateStandaloneMetrics(t *testing.T) {
	yTrue := []float64{1, 2, 3, 4}
	yPred := []float64{1, 2, 3, 2}

	scores, err := Evaluate(yTrue, yPred, "MSE", "MAE")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if scores["MSE"] != 1.0 {
		t.Fatalf("MSE: got %g, want 1", scores["MSE"])
	}
	if scores["MAE"] != 0.5 {
		t.Fatalf("MAE: got %g, want 0.5", scores["MAE"])
	}

	if _, err := Evaluate(yTrue, yPred, "NOPE"); err == nil {
		t.Fatal("expected error for unknown metric")
	}
	if _, err := Evaluate(yTrue, yPred[:2], "MSE"); err == nil {
		t.Fatal("expected error for length mismatch")
	}
}

func TestTrainerConfigErrorsBeforeSearch(t *testing.T) {
	base := TrainerConfig{
		LayerSizes: []int{4},
		Activation: "sigmoid",
		Task:       TaskRegression,
		Objective:  "MSE",
		Optimizer:  OptimizerSpec{Name: "BaseGA", Params: optim.Params{"epoch": 5, "pop_size": 6}},
		Seed:       1,
	}

	cfg := base
	cfg.Optimizer = OptimizerSpec{Name: "NoSuchOpt", Params: optim.Params{"epoch": 5, "pop_size": 6}}
	if _, err := NewTrainer(cfg); !errors.Is(err, optim.ErrOptimizerNotFound) {
		t.Fatalf("expected ErrOptimizerNotFound, got: %v", err)
	}

	cfg = base
	cfg.Optimizer = OptimizerSpec{Name: "BaseGA"}
	if _, err := NewTrainer(cfg); !errors.Is(err, optim.ErrMissingParams) {
		t.Fatalf("expected ErrMissingParams, got: %v", err)
	}

	cfg = base
	cfg.Objective = "BOGUS"
	if _, err := NewTrainer(cfg); err == nil {
		t.Fatal("expected objective resolution error")
	}

	cfg = base
	cfg.Activation = "warp"
	if _, err := NewTrainer(cfg); err == nil {
		t.Fatal("expected activation resolution error")
	}

	cfg = base
	cfg.Mode = "cluster"
	if _, err := NewTrainer(cfg); !errors.Is(err, optim.ErrUnknownMode) {
		t.Fatalf("expected ErrUnknownMode, got: %v", err)
	}

	cfg = base
	cfg.ObjectiveWeights = []float64{1, 2}
	if _, err := NewTrainer(cfg); err == nil {
		t.Fatal("expected rejection of multi-objective weights before search")
	}

	cfg = base
	cfg.Optimizer = OptimizerSpec{
		Name:     "BaseGA",
		Params:   optim.Params{"epoch": 5, "pop_size": 6},
		Instance: &recordingOptimizer{},
	}
	if _, err := NewTrainer(cfg); err == nil {
		t.Fatal("expected rejection of optimizer spec with both name and instance")
	}
}

// recordingOptimizer counts Solve calls and fails on demand, standing in
// for the pluggable backend.
type recordingOptimizer struct {
	calls int
	fail  error
}

func (r *recordingOptimizer) Name() string { return "recording" }

func (r *recordingOptimizer) Solve(_ context.Context, problem optim.Problem, _ optim.SolveOptions) (optim.Result, error) {
	r.calls++
	if r.fail != nil {
		return optim.Result{}, r.fail
	}
	solution := append([]float64(nil), problem.LowerBounds...)
	objectives := problem.Objective(solution)
	fitness := 0.0
	for _, obj := range objectives {
		fitness += obj
	}
	agent := optim.Agent{Solution: solution, Objectives: objectives, Fitness: fitness}
	return optim.Result{
		Best:    agent,
		History: &optim.History{CurrentBest: []optim.Agent{agent}, GlobalBest: []optim.Agent{agent}},
	}, nil
}

func TestTrainerBadBoundsStopSearch(t *testing.T) {
	rec := &recordingOptimizer{}
	trainer, err := NewTrainer(TrainerConfig{
		LayerSizes:  []int{4},
		Activation:  "sigmoid",
		Task:        TaskRegression,
		Objective:   "MSE",
		LowerBounds: []float64{-1, -2},
		UpperBounds: []float64{1},
		Optimizer:   OptimizerSpec{Instance: rec},
		Seed:        1,
	})
	if err != nil {
		t.Fatalf("new trainer: %v", err)
	}

	X, y := linearDataset(20, 3, 1)
	if err := trainer.Fit(context.Background(), X, y); !errors.Is(err, ErrBoundsLength) {
		t.Fatalf("expected ErrBoundsLength, got: %v", err)
	}
	if rec.calls != 0 {
		t.Fatalf("search started despite invalid bounds: %d calls", rec.calls)
	}
	if trainer.State() == StateFinalized {
		t.Fatal("trainer finalized after failed fit")
	}
}

func TestTrainerOptimizerFailurePropagates(t *testing.T) {
	wantErr := errors.New("backend exploded")
	trainer, err := NewTrainer(TrainerConfig{
		LayerSizes: []int{4},
		Activation: "sigmoid",
		Task:       TaskRegression,
		Objective:  "MSE",
		Optimizer:  OptimizerSpec{Instance: &recordingOptimizer{fail: wantErr}},
		Seed:       1,
	})
	if err != nil {
		t.Fatalf("new trainer: %v", err)
	}

	X, y := linearDataset(20, 3, 1)
	if err := trainer.Fit(context.Background(), X, y); !errors.Is(err, wantErr) {
		t.Fatalf("expected backend error to propagate, got: %v", err)
	}
}

func TestTrainerRegressionEndToEnd(t *testing.T) {
	X, y := linearDataset(60, 3, 11)
	trainer, err := NewTrainer(TrainerConfig{
		LayerSizes: []int{6},
		Activation: "identity",
		Task:       TaskRegression,
		Objective:  "MSE",
		Optimizer:  OptimizerSpec{Name: "BaseGA", Params: optim.Params{"epoch": 20, "pop_size": 15}},
		Seed:       4,
	})
	if err != nil {
		t.Fatalf("new trainer: %v", err)
	}

	if err := trainer.Fit(context.Background(), X, y); err != nil {
		t.Fatalf("fit: %v", err)
	}
	if trainer.State() != StateFinalized {
		t.Fatalf("state after fit: got %s, want finalized", trainer.State())
	}

	history := trainer.LossHistory()
	if len(history) != 20 {
		t.Fatalf("loss history length: got %d, want 20", len(history))
	}
	for i := 1; i < len(history); i++ {
		if history[i] > history[i-1] {
			t.Fatalf("loss history regressed at %d under minimize", i)
		}
	}

	pred, err := trainer.Predict(X)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if r, c := pred.Dims(); r != 60 || c != 1 {
		t.Fatalf("prediction shape: got (%d,%d), want (60,1)", r, c)
	}

	mse, err := trainer.Score(X, y, "MSE")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if math.IsNaN(mse) || math.IsInf(mse, 0) {
		t.Fatalf("MSE not finite: %g", mse)
	}
}

func TestTrainerClassificationEndToEnd(t *testing.T) {
	X, y := clusterDataset(25, 2)
	trainer, err := NewTrainer(TrainerConfig{
		LayerSizes: []int{8},
		Activation: "sigmoid",
		Task:       TaskClassification,
		Objective:  "AS",
		Optimizer:  OptimizerSpec{Name: "OriginalPSO", Params: optim.Params{"epoch": 25, "pop_size": 15}},
		Mode:       optim.ModeSwarm,
		Seed:       8,
	})
	if err != nil {
		t.Fatalf("new trainer: %v", err)
	}
	if err := trainer.Fit(context.Background(), X, y); err != nil {
		t.Fatalf("fit: %v", err)
	}

	pred, err := trainer.Predict(X)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	rows, cols := pred.Dims()
	if rows != 50 || cols != 1 {
		t.Fatalf("prediction shape: got (%d,%d), want (50,1)", rows, cols)
	}
	for r := 0; r < rows; r++ {
		if v := pred.At(r, 0); v != 0 && v != 1 {
			t.Fatalf("prediction at row %d not a known label: %g", r, v)
		}
	}

	acc, err := trainer.Score(X, y, "AS")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if acc < 0 || acc > 1 {
		t.Fatalf("accuracy out of range: %g", acc)
	}
	if acc != trainer.BestFitness() {
		t.Fatalf("training accuracy %g disagrees with best fitness %g", acc, trainer.BestFitness())
	}
}

func TestTrainerModesAgreeOnShapes(t *testing.T) {
	X, y := linearDataset(40, 3, 21)

	fit := func(mode optim.Mode) *Trainer {
		trainer, err := NewTrainer(TrainerConfig{
			LayerSizes: []int{5},
			Activation: "sigmoid",
			Task:       TaskRegression,
			Objective:  "MSE",
			Optimizer:  OptimizerSpec{Name: "BaseGA", Params: optim.Params{"epoch": 12, "pop_size": 10}},
			Mode:       mode,
			Workers:    4,
			Seed:       9,
		})
		if err != nil {
			t.Fatalf("new trainer mode=%s: %v", mode, err)
		}
		if err := trainer.Fit(context.Background(), X, y); err != nil {
			t.Fatalf("fit mode=%s: %v", mode, err)
		}
		return trainer
	}

	sequential := fit(optim.ModeSingle)
	parallel := fit(optim.ModeProcess)

	for _, trainer := range []*Trainer{sequential, parallel} {
		report := trainer.Network().Weights()
		if r, c := report.Weights[0].Dims(); r != 3 || c != 5 {
			t.Fatalf("weight shape corrupted: got (%d,%d), want (3,5)", r, c)
		}
		if r, c := report.Beta.Dims(); r != 5 || c != 1 {
			t.Fatalf("beta shape corrupted: got (%d,%d), want (5,1)", r, c)
		}
		if got := len(trainer.LossHistory()); got != 12 {
			t.Fatalf("loss history length: got %d, want 12", got)
		}
	}
}

func TestTrainerDeterministicForSeed(t *testing.T) {
	X, y := linearDataset(30, 3, 5)

	run := func() *Trainer {
		trainer, err := NewTrainer(TrainerConfig{
			LayerSizes: []int{5},
			Activation: "tanh",
			Task:       TaskRegression,
			Objective:  "MSE",
			Optimizer:  OptimizerSpec{Name: "OriginalPSO", Params: optim.Params{"epoch": 10, "pop_size": 10}},
			Mode:       optim.ModeThread,
			Workers:    3,
			Seed:       77,
		})
		if err != nil {
			t.Fatalf("new trainer: %v", err)
		}
		if err := trainer.Fit(context.Background(), X, y); err != nil {
			t.Fatalf("fit: %v", err)
		}
		return trainer
	}

	a, b := run(), run()
	if a.BestFitness() != b.BestFitness() {
		t.Fatalf("same seed produced different best fitness: %g != %g", a.BestFitness(), b.BestFitness())
	}
	predA, err := a.Predict(X)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	predB, err := b.Predict(X)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if !mat.Equal(predA, predB) {
		t.Fatal("same seed produced different predictions")
	}
}
