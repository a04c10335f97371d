package scaler

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// ObjectiveScaler maps raw targets into the space the output layer is
// solved in and back. Predictions flow through InverseTransform unless the
// caller asks for raw output.
type ObjectiveScaler interface {
	Transform(y *mat.Dense) (*mat.Dense, error)
	InverseTransform(y *mat.Dense) (*mat.Dense, error)
	NumOutputs() int
}

// Identity is the regression scaler: targets pass through unchanged.
type Identity struct {
	outputs int
}

func NewIdentity(outputs int) (*Identity, error) {
	if outputs <= 0 {
		return nil, fmt.Errorf("outputs must be > 0: got %d", outputs)
	}
	return &Identity{outputs: outputs}, nil
}

func (s *Identity) Transform(y *mat.Dense) (*mat.Dense, error) {
	if err := s.checkWidth(y); err != nil {
		return nil, err
	}
	return mat.DenseCopyOf(y), nil
}

func (s *Identity) InverseTransform(y *mat.Dense) (*mat.Dense, error) {
	if err := s.checkWidth(y); err != nil {
		return nil, err
	}
	return mat.DenseCopyOf(y), nil
}

func (s *Identity) NumOutputs() int { return s.outputs }

func (s *Identity) checkWidth(y *mat.Dense) error {
	if _, cols := y.Dims(); cols != s.outputs {
		return fmt.Errorf("target width mismatch: got %d, want %d", cols, s.outputs)
	}
	return nil
}

// OneHot is the classification scaler: labels become one-hot rows on
// Transform, and score rows collapse back to the nearest class label via
// argmax on InverseTransform.
type OneHot struct {
	classes []float64
	index   map[float64]int
}

// FitOneHot learns the class set from a single-column label matrix.
func FitOneHot(y *mat.Dense) (*OneHot, error) {
	rows, cols := y.Dims()
	if cols != 1 {
		return nil, fmt.Errorf("labels must be a single column: got %d columns", cols)
	}
	if rows == 0 {
		return nil, errors.New("labels must not be empty")
	}

	seen := make(map[float64]struct{}, rows)
	for r := 0; r < rows; r++ {
		seen[y.At(r, 0)] = struct{}{}
	}
	if len(seen) < 2 {
		return nil, fmt.Errorf("at least two classes are required: got %d", len(seen))
	}

	classes := make([]float64, 0, len(seen))
	for label := range seen {
		classes = append(classes, label)
	}
	sort.Float64s(classes)

	index := make(map[float64]int, len(classes))
	for i, label := range classes {
		index[label] = i
	}
	return &OneHot{classes: classes, index: index}, nil
}

func (s *OneHot) Transform(y *mat.Dense) (*mat.Dense, error) {
	rows, cols := y.Dims()
	if cols != 1 {
		return nil, fmt.Errorf("labels must be a single column: got %d columns", cols)
	}

	out := mat.NewDense(rows, len(s.classes), nil)
	for r := 0; r < rows; r++ {
		label := y.At(r, 0)
		idx, ok := s.index[label]
		if !ok {
			return nil, fmt.Errorf("unknown class label at row %d: %v (known: %v)", r, label, s.classes)
		}
		out.Set(r, idx, 1)
	}
	return out, nil
}

func (s *OneHot) InverseTransform(y *mat.Dense) (*mat.Dense, error) {
	rows, cols := y.Dims()
	if cols != len(s.classes) {
		return nil, fmt.Errorf("score width mismatch: got %d, want %d", cols, len(s.classes))
	}

	out := mat.NewDense(rows, 1, nil)
	for r := 0; r < rows; r++ {
		best := 0
		bestScore := y.At(r, 0)
		for c := 1; c < cols; c++ {
			if score := y.At(r, c); score > bestScore {
				best = c
				bestScore = score
			}
		}
		out.Set(r, 0, s.classes[best])
	}
	return out, nil
}

func (s *OneHot) NumOutputs() int { return len(s.classes) }

// Classes returns the learned label set, sorted ascending.
func (s *OneHot) Classes() []float64 {
	return append([]float64(nil), s.classes...)
}
