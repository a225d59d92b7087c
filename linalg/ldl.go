package linalg

import (
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"
)

var (
	ldl *LDL
	_   Factorization = ldl // Check that LDL respects the Factorization interface.

	_ Factorizer = LDLFactorizer{}
)

// LDLFactorizer produces LDL factorizations. It is the default factorizer of
// the engine.
type LDLFactorizer struct{}

func (LDLFactorizer) Factorize(a *mat.SymDense) (Factorization, error) {
	return NewLDL(a)
}

// LDL is the factorization P A Pᵀ = L D Lᵀ of a symmetric positive definite
// matrix, with L unit lower triangular, D diagonal and P a permutation chosen
// by symmetric diagonal pivoting (largest remaining diagonal entry first).
//
// The factorization fails only when a pivot is not strictly positive, so
// matrices that are positive definite but badly conditioned still factorize.
type LDL struct {
	n    int
	data []float64 // L below the diagonal, D on it, row-major with stride n.
	perm []int     // Row k of P A Pᵀ is row perm[k] of A.
}

func NewLDL(a mat.Symmetric) (*LDL, error) {
	n := a.SymmetricDim()
	data := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			data[i*n+j] = a.At(i, j)
		}
	}
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}

	for k := 0; k < n; k++ {
		p := k
		for i := k + 1; i < n; i++ {
			if data[i*n+i] > data[p*n+p] {
				p = i
			}
		}
		if p != k {
			swapSym(data, n, k, p)
			perm[k], perm[p] = perm[p], perm[k]
		}

		d := data[k*n+k]
		if !(d > 0) || math.IsInf(d, 1) {
			return nil, ErrNotPositiveDefinite
		}
		m := n - k - 1
		if m == 0 {
			continue
		}
		// A22 -= v vᵀ / d, then l = v / d.
		v := blas64.Vector{N: m, Inc: n, Data: data[(k+1)*n+k:]}
		a22 := blas64.Symmetric{
			N:      m,
			Stride: n,
			Data:   data[(k+1)*n+k+1:],
			Uplo:   blas.Lower,
		}
		blas64.Syr(-1.0/d, v, a22)
		blas64.Scal(1.0/d, v)
	}
	return &LDL{n: n, data: data, perm: perm}, nil
}

// Symmetric swap of rows and columns k < p of a matrix stored in the lower
// triangle. The already factorized columns (< k) are swapped as rows of L.
func swapSym(data []float64, n, k, p int) {
	if k > 0 {
		blas64.Swap(
			blas64.Vector{N: k, Inc: 1, Data: data[k*n:]},
			blas64.Vector{N: k, Inc: 1, Data: data[p*n:]})
	}
	data[k*n+k], data[p*n+p] = data[p*n+p], data[k*n+k]
	if m := p - k - 1; m > 0 {
		blas64.Swap(
			blas64.Vector{N: m, Inc: n, Data: data[(k+1)*n+k:]},
			blas64.Vector{N: m, Inc: 1, Data: data[p*n+k+1:]})
	}
	if m := n - p - 1; m > 0 {
		blas64.Swap(
			blas64.Vector{N: m, Inc: n, Data: data[(p+1)*n+k:]},
			blas64.Vector{N: m, Inc: n, Data: data[(p+1)*n+p:]})
	}
}

func (f *LDL) Size() int {
	return f.n
}

// D returns a copy of the diagonal factor.
func (f *LDL) D() []float64 {
	d := make([]float64, f.n)
	for i := range d {
		d[i] = f.data[i*f.n+i]
	}
	return d
}

// Perm returns a copy of the pivoting permutation.
func (f *LDL) Perm() []int {
	return append([]int(nil), f.perm...)
}

func (f *LDL) LogDet() float64 {
	logdet := 0.0
	for i := 0; i < f.n; i++ {
		logdet += math.Log(f.data[i*f.n+i])
	}
	return logdet
}

func (f *LDL) unitLower() blas64.Triangular {
	return blas64.Triangular{
		N:      f.n,
		Stride: f.n,
		Data:   f.data,
		Uplo:   blas.Lower,
		Diag:   blas.Unit,
	}
}

func (f *LDL) SolveVecTo(dst *mat.VecDense, b mat.Vector) error {
	n := f.n
	if err := checkVec(n, b); err != nil {
		return err
	}
	c := blas64.Vector{N: n, Inc: 1, Data: make([]float64, n)}
	for k, src := range f.perm {
		c.Data[k] = b.AtVec(src)
	}
	l := f.unitLower()
	blas64.Trsv(blas.NoTrans, l, c)
	for k := 0; k < n; k++ {
		c.Data[k] /= f.data[k*n+k]
	}
	blas64.Trsv(blas.Trans, l, c)
	if !allFinite(c.Data) {
		return ErrSingular
	}

	if dst.IsEmpty() {
		dst.ReuseAsVec(n)
	} else if dst.Len() != n {
		return ErrShape
	}
	for k, src := range f.perm {
		dst.SetVec(src, c.Data[k])
	}
	return nil
}

func (f *LDL) SolveTo(dst *mat.Dense, b mat.Matrix) error {
	n := f.n
	if err := checkMat(n, b); err != nil {
		return err
	}
	_, m := b.Dims()
	c := blas64.General{Rows: n, Cols: m, Stride: m, Data: make([]float64, n*m)}
	for k, src := range f.perm {
		for j := 0; j < m; j++ {
			c.Data[k*m+j] = b.At(src, j)
		}
	}
	l := f.unitLower()
	blas64.Trsm(blas.Left, blas.NoTrans, 1.0, l, c)
	for k := 0; k < n; k++ {
		blas64.Scal(1.0/f.data[k*n+k], blas64.Vector{N: m, Inc: 1, Data: c.Data[k*m:]})
	}
	blas64.Trsm(blas.Left, blas.Trans, 1.0, l, c)
	if !allFinite(c.Data) {
		return ErrSingular
	}

	if dst.IsEmpty() {
		dst.ReuseAs(n, m)
	} else if r, cols := dst.Dims(); r != n || cols != m {
		return ErrShape
	}
	for k, src := range f.perm {
		dst.SetRow(src, c.Data[k*m:(k+1)*m])
	}
	return nil
}
