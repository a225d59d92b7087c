package fitters

import (
	"errors"
	"fmt"
	"math"

	"github.com/lucasmaystre/gogp/gp"
	"github.com/lucasmaystre/gogp/kern"
	"github.com/lucasmaystre/gogp/obs"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

var (
	ErrInfeasible  = errors.New("initial hyperparameters give an infeasible model")
	ErrNonPositive = errors.New("hyperparameters must be positive")
	ErrMethod      = errors.New("unknown optimization method")
)

const (
	MethodBFGS       = "bfgs"
	MethodLBFGS      = "lbfgs"
	MethodNelderMead = "nelder-mead"
)

type Settings struct {
	Method            string
	MaxIterations     int
	GradientThreshold float64
}

func DefaultSettings() Settings {
	return Settings{
		Method:            MethodBFGS,
		MaxIterations:     200,
		GradientThreshold: 1e-6,
	}
}

type Result struct {
	Params        []float64
	LogLikelihood float64
	Evaluations   int
	Status        optimize.Status
}

// MarginalLikelihood maximizes the log marginal likelihood of a dataset over
// the hyperparameters of a kernel family. The search runs over the logarithm
// of the hyperparameters, which keeps them positive. Hyperparameters for which
// the covariance matrix cannot be factorized are rejected by giving them an
// infinite cost.
type MarginalLikelihood struct {
	gp      *gp.GP
	factory kern.Factory
	data    *obs.Dataset
	logger  *zap.Logger

	// Last evaluation, in log-space.
	lastU    []float64
	lastLL   float64
	lastGrad []float64
	evals    int
}

func NewMarginalLikelihood(g *gp.GP, factory kern.Factory, data *obs.Dataset,
	logger *zap.Logger) *MarginalLikelihood {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarginalLikelihood{
		gp:      g,
		factory: factory,
		data:    data,
		logger:  logger,
	}
}

// Evaluate returns the log-likelihood and its gradient at the given
// hyperparameters. The log-likelihood is -Inf when they are infeasible.
func (f *MarginalLikelihood) Evaluate(params []float64) (float64, []float64, error) {
	k, err := f.factory(params)
	if err != nil {
		return math.Inf(-1), nil, err
	}
	f.lastU = nil
	f.gp.SetKernel(k)
	if err := f.gp.Compute(f.data.Inputs, f.data.Noise); err != nil {
		return math.Inf(-1), make([]float64, k.NPars()), nil
	}
	ll := f.gp.LogLikelihood(f.data.Targets)
	grad := f.gp.GradLogLikelihood(f.data.Targets)
	if f.gp.Info() != gp.Success {
		return math.Inf(-1), grad, nil
	}
	return ll, grad, nil
}

func (f *MarginalLikelihood) evaluateLog(u []float64) {
	if f.lastU != nil && floats.Equal(u, f.lastU) {
		return
	}
	f.evals++
	params := make([]float64, len(u))
	for i, v := range u {
		params[i] = math.Exp(v)
	}
	ll, grad, err := f.Evaluate(params)
	if err != nil || grad == nil {
		grad = make([]float64, len(u))
	}
	// Chain rule for θ = exp(u).
	floats.Mul(grad, params)
	f.lastU = append([]float64(nil), u...)
	f.lastLL = ll
	f.lastGrad = grad
	f.logger.Debug("evaluated marginal likelihood",
		zap.Float64s("params", params), zap.Float64("loglike", ll))
}

func (f *MarginalLikelihood) problem() optimize.Problem {
	return optimize.Problem{
		Func: func(u []float64) float64 {
			f.evaluateLog(u)
			return -f.lastLL
		},
		Grad: func(grad, u []float64) {
			f.evaluateLog(u)
			copy(grad, f.lastGrad)
			floats.Scale(-1, grad)
		},
	}
}

func method(name string) (optimize.Method, error) {
	switch name {
	case MethodBFGS, "":
		return &optimize.BFGS{}, nil
	case MethodLBFGS:
		return &optimize.LBFGS{}, nil
	case MethodNelderMead:
		return &optimize.NelderMead{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrMethod, name)
}

// Fit runs the optimizer from the initial hyperparameters. On return the GP
// holds the factorization for the best hyperparameters found. When the
// optimizer stops with an error after making progress, both the result and
// the error are returned.
func (f *MarginalLikelihood) Fit(initial []float64, settings Settings) (*Result, error) {
	m, err := method(settings.Method)
	if err != nil {
		return nil, err
	}
	u0 := make([]float64, len(initial))
	for i, v := range initial {
		if !(v > 0) {
			return nil, fmt.Errorf("%w: got %v", ErrNonPositive, initial)
		}
		u0[i] = math.Log(v)
	}
	ll0, _, err := f.Evaluate(initial)
	if err != nil {
		return nil, err
	}
	if math.IsInf(ll0, -1) {
		return nil, fmt.Errorf("%w: %v", ErrInfeasible, initial)
	}

	f.evals = 0
	opt := &optimize.Settings{
		GradientThreshold: settings.GradientThreshold,
		MajorIterations:   settings.MaxIterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Iterations: 20,
		},
	}
	res, optErr := optimize.Minimize(f.problem(), u0, opt, m)
	if res == nil {
		return nil, optErr
	}

	best := make([]float64, len(res.X))
	for i, v := range res.X {
		best[i] = math.Exp(v)
	}
	// Leave the GP factorized at the best point and report its likelihood.
	ll, _, err := f.Evaluate(best)
	if err != nil {
		return nil, err
	}
	result := &Result{
		Params:        best,
		LogLikelihood: ll,
		Evaluations:   f.evals,
		Status:        res.Status,
	}
	f.logger.Info("fitted hyperparameters",
		zap.Float64s("params", best),
		zap.Float64("loglike", ll),
		zap.Float64("initial_loglike", ll0),
		zap.Int("evaluations", f.evals),
		zap.Stringer("status", res.Status))
	if optErr != nil {
		f.logger.Warn("optimizer stopped early", zap.Error(optErr))
		return result, optErr
	}
	return result, nil
}
