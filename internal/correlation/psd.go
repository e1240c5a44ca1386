package correlation

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrEigenDecomposition indicates the eigendecomposition did not converge
var ErrEigenDecomposition = errors.New("eigendecomposition of correlation matrix failed")

// ToSymDense converts a square correlation grid into a symmetric matrix
func ToSymDense(matrix [][]float64) *mat.SymDense {
	n := len(matrix)
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, matrix[i][j])
		}
	}
	return sym
}

// NearestPSD projects a correlation matrix onto the positive semi-definite
// cone: negative eigenvalues are clamped to floor, the matrix is rebuilt,
// and the diagonal is rescaled back to 1. Ad hoc pairwise estimates can
// produce matrices no distribution could realize; this makes them usable
// for Cholesky-based sampling.
func NearestPSD(sym *mat.SymDense, floor float64) (*mat.SymDense, error) {
	n := sym.SymmetricDim()

	var eig mat.EigenSym
	if ok := eig.Factorize(sym, true); !ok {
		return nil, ErrEigenDecomposition
	}

	values := eig.Values(nil)
	clamped := false
	for i, v := range values {
		if v < floor {
			values[i] = floor
			clamped = true
		}
	}
	if !clamped {
		return sym, nil
	}

	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	// Rebuild V * diag(values) * V^T
	diag := mat.NewDiagDense(n, values)
	var scaled, rebuilt mat.Dense
	scaled.Mul(&vectors, diag)
	rebuilt.Mul(&scaled, vectors.T())

	// Rescale to a unit diagonal
	repaired := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if i == j {
				repaired.SetSym(i, j, 1.0)
				continue
			}
			denom := math.Sqrt(rebuilt.At(i, i) * rebuilt.At(j, j))
			value := (rebuilt.At(i, j) + rebuilt.At(j, i)) / 2 / denom
			repaired.SetSym(i, j, math.Max(-1.0, math.Min(1.0, value)))
		}
	}

	return repaired, nil
}
