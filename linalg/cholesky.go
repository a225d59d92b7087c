package linalg

import (
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/lapack/lapack64"
	"gonum.org/v1/gonum/mat"
)

var (
	cholesky *Cholesky
	_        Factorization = cholesky // Check that Cholesky respects the Factorization interface.

	_ Factorizer = CholeskyFactorizer{}
)

// CholeskyFactorizer produces plain (unpivoted) Cholesky factorizations.
type CholeskyFactorizer struct{}

func (CholeskyFactorizer) Factorize(a *mat.SymDense) (Factorization, error) {
	return NewCholesky(a)
}

// Cholesky is the factorization A = Uᵀ U with U upper triangular.
type Cholesky struct {
	u blas64.Triangular
}

func NewCholesky(a mat.Symmetric) (*Cholesky, error) {
	n := a.SymmetricDim()
	sym := blas64.Symmetric{
		N:      n,
		Stride: n,
		Data:   make([]float64, n*n),
		Uplo:   blas.Upper,
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.Data[i*n+j] = a.At(i, j)
		}
	}
	u, ok := lapack64.Potrf(sym)
	if !ok || !allFinite(diag(u)) {
		return nil, ErrNotPositiveDefinite
	}
	return &Cholesky{u: u}, nil
}

func diag(t blas64.Triangular) []float64 {
	d := make([]float64, t.N)
	for i := range d {
		d[i] = t.Data[i*t.Stride+i]
	}
	return d
}

func (f *Cholesky) Size() int {
	return f.u.N
}

func (f *Cholesky) LogDet() float64 {
	logdet := 0.0
	for _, v := range diag(f.u) {
		logdet += 2 * math.Log(v)
	}
	return logdet
}

func (f *Cholesky) SolveVecTo(dst *mat.VecDense, b mat.Vector) error {
	n := f.u.N
	if err := checkVec(n, b); err != nil {
		return err
	}
	c := blas64.General{Rows: n, Cols: 1, Stride: 1, Data: make([]float64, n)}
	for i := 0; i < n; i++ {
		c.Data[i] = b.AtVec(i)
	}
	lapack64.Potrs(f.u, c)
	if !allFinite(c.Data) {
		return ErrSingular
	}
	if dst.IsEmpty() {
		dst.ReuseAsVec(n)
	} else if dst.Len() != n {
		return ErrShape
	}
	dst.CopyVec(mat.NewVecDense(n, c.Data))
	return nil
}

func (f *Cholesky) SolveTo(dst *mat.Dense, b mat.Matrix) error {
	n := f.u.N
	if err := checkMat(n, b); err != nil {
		return err
	}
	_, m := b.Dims()
	c := mat.DenseCopyOf(b)
	lapack64.Potrs(f.u, c.RawMatrix())
	if !allFinite(c.RawMatrix().Data) {
		return ErrSingular
	}
	if dst.IsEmpty() {
		dst.ReuseAs(n, m)
	} else if r, cols := dst.Dims(); r != n || cols != m {
		return ErrShape
	}
	dst.Copy(c)
	return nil
}
