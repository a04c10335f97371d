package train

import (
	"errors"
	"fmt"
)

var ErrBoundsLength = errors.New("bound length mismatch")

// Search bounds default to the unit box when the caller supplies none,
// matching the usual range for standard-normal hidden parameters.
const (
	defaultLowerBound = -1.0
	defaultUpperBound = 1.0
)

// ResolveBounds expands user-supplied bounds to the full problem
// dimension. A single-element bound broadcasts; a full-length bound
// passes through; anything else is a configuration error — never
// silently truncated or padded.
func ResolveBounds(lb, ub []float64, problemSize int) ([]float64, []float64, error) {
	if problemSize <= 0 {
		return nil, nil, fmt.Errorf("problem size must be > 0: got %d", problemSize)
	}
	if len(lb) == 0 && len(ub) == 0 {
		lb = []float64{defaultLowerBound}
		ub = []float64{defaultUpperBound}
	}

	lower, err := expandBound("lower", lb, problemSize)
	if err != nil {
		return nil, nil, err
	}
	upper, err := expandBound("upper", ub, problemSize)
	if err != nil {
		return nil, nil, err
	}
	for i := range lower {
		if lower[i] > upper[i] {
			return nil, nil, fmt.Errorf("lower bound above upper bound at dim %d: %g > %g", i, lower[i], upper[i])
		}
	}
	return lower, upper, nil
}

func expandBound(side string, bound []float64, problemSize int) ([]float64, error) {
	switch len(bound) {
	case 1:
		out := make([]float64, problemSize)
		for i := range out {
			out[i] = bound[0]
		}
		return out, nil
	case problemSize:
		return append([]float64(nil), bound...), nil
	default:
		return nil, fmt.Errorf("%w: %s bound has length %d, want 1 or %d",
			ErrBoundsLength, side, len(bound), problemSize)
	}
}
