package utils

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Identity Matrix.
func Eye(n int) *mat.Dense {
	out := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		out.Set(i, i, 1)
	}
	return out
}

// Sum of the diagonal entries of a square matrix.
func Trace(m mat.Matrix) float64 {
	r, c := m.Dims()
	if r != c {
		panic(mat.ErrSquare)
	}
	tr := 0.0
	for i := 0; i < r; i++ {
		tr += m.At(i, i)
	}
	return tr
}

// Squared Euclidean distance between two vectors of equal length.
func SqDist(x1, x2 []float64) float64 {
	d := floats.Distance(x1, x2, 2)
	return d * d
}

// Fill a symmetric matrix from a function evaluated on the upper triangle
// (i <= j) only.
func SymFromUpper(n int, f func(i, j int) float64) *mat.SymDense {
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			out.SetSym(i, j, f(i, j))
		}
	}
	return out
}
