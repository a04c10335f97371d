package nn

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

// ErrDegenerate reports a hidden representation whose SVD could not be
// computed, so the Moore-Penrose pseudoinverse is unavailable.
var ErrDegenerate = errors.New("degenerate hidden representation: svd failed")

// pinvRcond mirrors the relative cutoff numpy applies in linalg.pinv:
// singular values below rcond * max(m, n) * sigma_max are treated as zero.
const pinvRcond = 1e-15

// PseudoInverse returns the Moore-Penrose pseudoinverse of a via thin SVD.
func PseudoInverse(a *mat.Dense) (*mat.Dense, error) {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, ErrDegenerate
	}

	values := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	rows, cols := a.Dims()
	longest := rows
	if cols > longest {
		longest = cols
	}
	tol := 0.0
	if len(values) > 0 {
		tol = pinvRcond * float64(longest) * values[0]
	}

	inverted := mat.NewDense(len(values), len(values), nil)
	for i, sigma := range values {
		if sigma > tol {
			inverted.Set(i, i, 1/sigma)
		}
	}

	var tmp, out mat.Dense
	tmp.Mul(&v, inverted)
	out.Mul(&tmp, u.T())
	return &out, nil
}
