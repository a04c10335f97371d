package train

import (
	"errors"
	"log"

	"gonum.org/v1/gonum/mat"

	"metaelm/internal/metrics"
	"metaelm/internal/nn"
	"metaelm/internal/scaler"
)

// Evaluator scores candidate solution vectors against fixed training
// data. Every call decodes into a fresh scratch network cloned from the
// template, so evaluations are independent and safe to run concurrently;
// the long-lived network is never touched during search.
type Evaluator struct {
	template *nn.Network
	sc       scaler.ObjectiveScaler
	spec     metrics.Spec

	x       *mat.Dense
	yScaled *mat.Dense
	yTrue   []float64
}

// NewEvaluator captures the training data once. X and yScaled are the
// inputs and scaled targets the output layer is solved against; yTrue
// holds the original flattened targets the objective metric scores on.
func NewEvaluator(template *nn.Network, sc scaler.ObjectiveScaler, spec metrics.Spec, x, yScaled *mat.Dense, yTrue []float64) *Evaluator {
	return &Evaluator{
		template: template,
		sc:       sc,
		spec:     spec,
		x:        x,
		yScaled:  yScaled,
		yTrue:    yTrue,
	}
}

// Evaluate is the objective function handed to the optimizer. A
// numerically degenerate candidate gets the catalog's worst value for the
// resolved direction instead of aborting the search; one bad draw out of
// thousands must not kill the run.
func (e *Evaluator) Evaluate(solution []float64) []float64 {
	value, err := e.score(solution)
	if err != nil {
		if !errors.Is(err, nn.ErrDegenerate) {
			log.Printf("fitness evaluation failed: %v", err)
		}
		return []float64{metrics.WorstValue(e.spec.Direction)}
	}
	return []float64{value}
}

func (e *Evaluator) score(solution []float64) (float64, error) {
	scratch := e.template.CloneTopology()
	if err := scratch.Decode(solution, e.x, e.yScaled); err != nil {
		return 0, err
	}
	raw, err := scratch.Predict(e.x)
	if err != nil {
		return 0, err
	}
	pred, err := e.sc.InverseTransform(raw)
	if err != nil {
		return 0, err
	}
	return e.spec.Fn(e.yTrue, flatten(pred))
}

func flatten(m *mat.Dense) []float64 {
	rows, cols := m.Dims()
	out := make([]float64, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out = append(out, m.At(r, c))
		}
	}
	return out
}
