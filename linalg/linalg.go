// Package linalg isolates the symmetric factorization used by the Gaussian
// process engine, so that the dense decompositions can be swapped for other
// solvers without touching the likelihood formulas.
package linalg

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrNotPositiveDefinite = errors.New("matrix is not numerically positive definite")
	ErrShape               = errors.New("dimension mismatch")
	ErrSingular            = errors.New("solve produced non-finite values")
)

// Factorization of a symmetric matrix A.
type Factorization interface {
	// Order n of the factorized matrix.
	Size() int

	// Solve A x = b and store x in dst.
	SolveVecTo(dst *mat.VecDense, b mat.Vector) error

	// Solve A X = B and store X in dst.
	SolveTo(dst *mat.Dense, b mat.Matrix) error

	// Natural logarithm of det(A).
	LogDet() float64
}

// Factorizer computes a Factorization. The input matrix is not modified.
type Factorizer interface {
	Factorize(a *mat.SymDense) (Factorization, error)
}

func allFinite(data []float64) bool {
	for _, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func checkVec(n int, b mat.Vector) error {
	if b.Len() != n {
		return ErrShape
	}
	return nil
}

func checkMat(n int, b mat.Matrix) error {
	if r, _ := b.Dims(); r != n {
		return ErrShape
	}
	return nil
}
