package train

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"metaelm/internal/nn"
	"metaelm/internal/scaler"
)

// Task selects how targets are scaled and which metric catalog applies
// by default.
type Task string

const (
	TaskRegression     Task = "regression"
	TaskClassification Task = "classification"
)

var ErrNotFitted = errors.New("model not fitted")

func validateTask(task Task) error {
	switch task {
	case TaskRegression, TaskClassification:
		return nil
	default:
		return fmt.Errorf("unknown task %q (supported: regression, classification)", task)
	}
}

// buildScaler picks the target scaler for the task: identity for
// regression, one-hot fitted on the label column for classification.
func buildScaler(task Task, y *mat.Dense) (scaler.ObjectiveScaler, error) {
	if task == TaskClassification {
		return scaler.FitOneHot(y)
	}
	_, cols := y.Dims()
	return scaler.NewIdentity(cols)
}

// ELM is the closed-form estimator: hidden parameters are sampled once
// from the seed, the output layer is solved analytically, and no search
// happens.
type ELM struct {
	layerSizes []int
	activation string
	task       Task
	seed       int64

	network *nn.Network
	sc      scaler.ObjectiveScaler
}

func NewELM(layerSizes []int, activation string, task Task, seed int64) (*ELM, error) {
	if err := validateTask(task); err != nil {
		return nil, err
	}
	// Fail fast on a bad topology or activation name.
	if _, err := nn.NewNetwork(layerSizes, activation, seed); err != nil {
		return nil, err
	}
	return &ELM{
		layerSizes: append([]int(nil), layerSizes...),
		activation: activation,
		task:       task,
		seed:       seed,
	}, nil
}

// Fit trains from scratch: a repeated call reinitializes hidden
// parameters from the seed rather than resuming.
func (e *ELM) Fit(X, y *mat.Dense) error {
	sc, err := buildScaler(e.task, y)
	if err != nil {
		return err
	}
	yScaled, err := sc.Transform(y)
	if err != nil {
		return err
	}

	network, err := nn.NewNetwork(e.layerSizes, e.activation, e.seed)
	if err != nil {
		return err
	}
	if err := network.Fit(X, yScaled); err != nil {
		return err
	}

	e.network = network
	e.sc = sc
	return nil
}

// Predict returns values in the original target space: regression
// outputs pass through, classification scores collapse to class labels.
func (e *ELM) Predict(X *mat.Dense) (*mat.Dense, error) {
	raw, err := e.PredictRaw(X)
	if err != nil {
		return nil, err
	}
	return e.sc.InverseTransform(raw)
}

// PredictRaw returns the uninverted output-layer response, one column
// per scaled output.
func (e *ELM) PredictRaw(X *mat.Dense) (*mat.Dense, error) {
	if e.network == nil {
		return nil, ErrNotFitted
	}
	return e.network.Predict(X)
}

// Score evaluates one named metric on (X, y) in the original target
// space.
func (e *ELM) Score(X, y *mat.Dense, metricName string) (float64, error) {
	pred, err := e.Predict(X)
	if err != nil {
		return 0, err
	}
	return scoreMetric(metricName, y, pred)
}

// Scores evaluates several named metrics in one pass over the data.
func (e *ELM) Scores(X, y *mat.Dense, metricNames ...string) (map[string]float64, error) {
	pred, err := e.Predict(X)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(metricNames))
	for _, name := range metricNames {
		value, err := scoreMetric(name, y, pred)
		if err != nil {
			return nil, err
		}
		out[name] = value
	}
	return out, nil
}

func (e *ELM) Network() *nn.Network { return e.network }

// Evaluate scores already-computed predictions against ground truth for
// each named metric, without touching a fitted model.
func Evaluate(yTrue, yPred []float64, metricNames ...string) (map[string]float64, error) {
	if len(yTrue) != len(yPred) {
		return nil, fmt.Errorf("evaluate: %d true values vs %d predictions", len(yTrue), len(yPred))
	}
	out := make(map[string]float64, len(metricNames))
	for _, name := range metricNames {
		spec, err := ResolveObjective(name)
		if err != nil {
			return nil, err
		}
		value, err := spec.Fn(yTrue, yPred)
		if err != nil {
			return nil, err
		}
		out[name] = value
	}
	return out, nil
}

func scoreMetric(name string, y, pred *mat.Dense) (float64, error) {
	spec, err := ResolveObjective(name)
	if err != nil {
		return 0, err
	}
	return spec.Fn(flatten(y), flatten(pred))
}
