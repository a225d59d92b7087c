// Package gp implements exact Gaussian process regression with a zero-mean
// prior: the log marginal likelihood of noisy observations and its gradient
// with respect to the kernel hyperparameters.
//
// A GP caches the factorization of the covariance matrix built by Compute, so
// that any number of LogLikelihood and GradLogLikelihood calls against
// different target vectors reuse it. A GP is not safe for concurrent use.
package gp

import (
	"errors"
	"fmt"
	"math"

	"github.com/lucasmaystre/gogp/kern"
	"github.com/lucasmaystre/gogp/linalg"
	"github.com/lucasmaystre/gogp/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// ln(2π)
const lnTwoPi = 1.8378770664093453

var (
	ErrShape         = errors.New("training set shape mismatch")
	ErrFactorization = errors.New("covariance matrix factorization failed")
)

// Info is the status of the last GradLogLikelihood call.
type Info int

const (
	Success     Info = 0
	NotComputed Info = -1 // No valid factorization, or target length mismatch.
	SolveFailed Info = -2
)

func (i Info) String() string {
	switch i {
	case Success:
		return "success"
	case NotComputed:
		return "not computed"
	case SolveFailed:
		return "solve failed"
	}
	return fmt.Sprintf("Info(%d)", int(i))
}

type State int

const (
	Uninitialized State = iota
	Ready
	Stale
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case Stale:
		return "stale"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Valid factorization together with the training set it was built from.
type factorState struct {
	fact linalg.Factorization
	x    *mat.Dense
	rows [][]float64
	n    int
}

type GP struct {
	kernel     kern.Kernel
	factorizer linalg.Factorizer
	logger     *zap.Logger
	workers    int

	fs    *factorState // nil when no valid factorization exists.
	stale bool
	info  Info
}

func New(kernel kern.Kernel, opts ...Option) *GP {
	g := &GP{
		kernel:     kernel,
		factorizer: linalg.LDLFactorizer{},
		logger:     zap.NewNop(),
		workers:    1,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *GP) Kernel() kern.Kernel {
	return g.kernel
}

// SetKernel swaps the kernel. Any cached factorization belongs to the old
// hyperparameters and is discarded, so Compute must be called again.
func (g *GP) SetKernel(kernel kern.Kernel) {
	if g.fs != nil {
		g.stale = true
	}
	g.fs = nil
	g.kernel = kernel
}

func (g *GP) State() State {
	switch {
	case g.fs != nil:
		return Ready
	case g.stale:
		return Stale
	}
	return Uninitialized
}

// Info returns the status of the last GradLogLikelihood call.
func (g *GP) Info() Info {
	return g.info
}

// Len returns the training-set size of the last successful Compute, or 0.
func (g *GP) Len() int {
	if g.fs == nil {
		return 0
	}
	return g.fs.n
}

// Inputs returns a copy of the training inputs of the last successful
// Compute, or nil.
func (g *GP) Inputs() *mat.Dense {
	if g.fs == nil {
		return nil
	}
	return mat.DenseCopyOf(g.fs.x)
}

// Compute builds the covariance matrix of the inputs (one per row of x) with
// per-sample noise standard deviations yerr on the diagonal, and factorizes
// it. The previous factorization is discarded whatever the outcome. A nil
// error corresponds to status 0; on error the GP is stale.
func (g *GP) Compute(x mat.Matrix, yerr []float64) error {
	g.fs = nil
	g.stale = true

	n, d := x.Dims()
	if n == 0 || d == 0 || len(yerr) != n {
		g.logger.Debug("invalid training set",
			zap.Int("rows", n), zap.Int("cols", d), zap.Int("noise", len(yerr)))
		return fmt.Errorf("%w: %dx%d inputs, %d noise values", ErrShape, n, d, len(yerr))
	}

	inputs := mat.DenseCopyOf(x)
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = inputs.RawRowView(i)
	}

	k := mat.NewSymDense(n, nil)
	_ = g.parallel(n, func(i int) error {
		for j := i + 1; j < n; j++ {
			k.SetSym(i, j, g.kernel.Evaluate(rows[i], rows[j]))
		}
		k.SetSym(i, i, g.kernel.Evaluate(rows[i], rows[i])+yerr[i]*yerr[i])
		return nil
	})

	fact, err := g.factorizer.Factorize(k)
	if err != nil {
		g.logger.Debug("factorization failed",
			zap.Int("n", n), zap.Float64s("params", g.kernel.Params()), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrFactorization, err)
	}

	g.fs = &factorState{fact: fact, x: inputs, rows: rows, n: n}
	g.stale = false
	g.logger.Debug("covariance factorized",
		zap.Int("n", n), zap.Int("dim", d), zap.Float64("logdet", fact.LogDet()))
	return nil
}

func (g *GP) ready(n int) (*factorState, bool) {
	if g.fs == nil || g.fs.n != n {
		return nil, false
	}
	return g.fs, true
}

// LogLikelihood returns log p(y) under the GP prior. It returns -Inf when the
// GP is not ready, when len(y) differs from the training-set size, or when
// the solve fails, so that the value can be compared and maximized directly.
func (g *GP) LogLikelihood(y []float64) float64 {
	fs, ok := g.ready(len(y))
	if !ok {
		return math.Inf(-1)
	}
	yv := mat.NewVecDense(fs.n, y)
	var alpha mat.VecDense
	if err := fs.fact.SolveVecTo(&alpha, yv); err != nil {
		g.logger.Debug("likelihood solve failed", zap.Error(err))
		return math.Inf(-1)
	}
	return -0.5 * (mat.Dot(yv, &alpha) + fs.fact.LogDet() + float64(fs.n)*lnTwoPi)
}

// GradLogLikelihood returns the gradient of LogLikelihood with respect to the
// kernel hyperparameters. Unlike LogLikelihood, failures are reported through
// Info; the returned vector is then all zeros and must not be used.
func (g *GP) GradLogLikelihood(y []float64) []float64 {
	npars := g.kernel.NPars()
	g.info = Success

	fs, ok := g.ready(len(y))
	if !ok {
		g.info = NotComputed
		return make([]float64, npars)
	}
	n := fs.n

	yv := mat.NewVecDense(n, y)
	var alpha mat.VecDense
	if err := fs.fact.SolveVecTo(&alpha, yv); err != nil {
		g.logger.Debug("gradient solve failed", zap.Error(err))
		g.info = SolveFailed
		return make([]float64, npars)
	}

	// All dK/dθ_k matrices from a single pass over i <= j.
	dks := make([]*mat.SymDense, npars)
	for k := range dks {
		dks[k] = mat.NewSymDense(n, nil)
	}
	_ = g.parallel(n, func(i int) error {
		for j := i; j < n; j++ {
			grad := g.kernel.Gradient(fs.rows[i], fs.rows[j])
			for k, dk := range dks {
				dk.SetSym(i, j, grad[k])
			}
		}
		return nil
	})

	// dL/dθ_k = -1/2 (tr(K⁻¹ dK) - αᵀ dK α)
	grad := make([]float64, npars)
	err := g.parallel(npars, func(k int) error {
		var sol mat.Dense
		if err := fs.fact.SolveTo(&sol, dks[k]); err != nil {
			return err
		}
		grad[k] = -0.5 * (utils.Trace(&sol) - mat.Inner(&alpha, dks[k], &alpha))
		return nil
	})
	if err != nil {
		g.logger.Debug("trace solve failed", zap.Error(err))
		g.info = SolveFailed
		return make([]float64, npars)
	}
	return grad
}

// Run fn(0), ..., fn(n-1), on at most g.workers goroutines. Every call must
// write to its own output slot.
func (g *GP) parallel(n int, fn func(i int) error) error {
	if g.workers < 2 {
		for i := 0; i < n; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}
	var eg errgroup.Group
	eg.SetLimit(g.workers)
	for i := 0; i < n; i++ {
		i := i
		eg.Go(func() error {
			return fn(i)
		})
	}
	return eg.Wait()
}
