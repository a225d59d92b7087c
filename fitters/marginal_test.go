package fitters

import (
	"math"
	"math/rand"
	"testing"

	"github.com/lucasmaystre/gogp/gp"
	"github.com/lucasmaystre/gogp/kern"
	"github.com/lucasmaystre/gogp/obs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gonum.org/v1/gonum/mat"
)

func sineDataset(seed int64, n int) *obs.Dataset {
	rnd := rand.New(rand.NewSource(seed))
	ds := &obs.Dataset{
		Inputs:  mat.NewDense(n, 1, nil),
		Noise:   make([]float64, n),
		Targets: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		x := 10 * float64(i) / float64(n)
		ds.Inputs.Set(i, 0, x)
		ds.Noise[i] = 0.1
		ds.Targets[i] = 2*math.Sin(x) + 0.1*rnd.NormFloat64()
	}
	return ds
}

func TestFitImprovesLikelihood(t *testing.T) {
	ds := sineDataset(1, 25)
	initial := []float64{0.5, 10.0}
	for _, name := range []string{MethodBFGS, MethodLBFGS, MethodNelderMead} {
		t.Run(name, func(t *testing.T) {
			g := gp.New(kern.NewIsoSqExp(initial[0], initial[1]))
			f := NewMarginalLikelihood(g, kern.NewIsoSqExpFromParams, ds, zaptest.NewLogger(t))
			ll0, _, err := f.Evaluate(initial)
			require.NoError(t, err)

			settings := DefaultSettings()
			settings.Method = name
			res, err := f.Fit(initial, settings)
			require.NotNil(t, res)
			if err != nil {
				t.Logf("optimizer: %v", err)
			}
			assert.Greater(t, res.LogLikelihood, ll0)
			assert.Positive(t, res.Evaluations)
			for _, p := range res.Params {
				assert.Positive(t, p)
			}

			// The GP is left factorized at the best point.
			assert.Equal(t, gp.Ready, g.State())
			assert.Equal(t, res.Params, g.Kernel().Params())
			assert.Equal(t, res.LogLikelihood, g.LogLikelihood(ds.Targets))
		})
	}
}

func TestFitGradientNearZeroAtOptimum(t *testing.T) {
	ds := sineDataset(2, 20)
	g := gp.New(kern.NewIsoSqExp(1.0, 1.0))
	f := NewMarginalLikelihood(g, kern.NewIsoSqExpFromParams, ds, nil)
	res, err := f.Fit([]float64{1.0, 1.0}, DefaultSettings())
	require.NotNil(t, res)
	if err != nil {
		t.Logf("optimizer: %v", err)
	}

	_, grad, err := f.Evaluate(res.Params)
	require.NoError(t, err)
	for i, v := range grad {
		// Gradient with respect to log-parameters.
		assert.InDelta(t, 0.0, v*res.Params[i], 5e-2)
	}
}

func TestFitRejectsInvalidStart(t *testing.T) {
	ds := sineDataset(3, 5)
	g := gp.New(kern.NewIsoSqExp(1.0, 1.0))
	f := NewMarginalLikelihood(g, kern.NewIsoSqExpFromParams, ds, nil)

	_, err := f.Fit([]float64{-1.0, 1.0}, DefaultSettings())
	assert.ErrorIs(t, err, ErrNonPositive)

	_, err = f.Fit([]float64{1.0}, DefaultSettings())
	assert.ErrorIs(t, err, kern.ErrParamCount)

	settings := DefaultSettings()
	settings.Method = "simulated-annealing"
	_, err = f.Fit([]float64{1.0, 1.0}, settings)
	assert.ErrorIs(t, err, ErrMethod)
}

func TestFitInfeasibleStart(t *testing.T) {
	ds := &obs.Dataset{
		Inputs:  mat.NewDense(2, 1, []float64{1, 1}),
		Noise:   []float64{0, 0},
		Targets: []float64{1, 2},
	}
	g := gp.New(kern.NewIsoSqExp(1.0, 1.0))
	f := NewMarginalLikelihood(g, kern.NewIsoSqExpFromParams, ds, nil)
	_, err := f.Fit([]float64{1.0, 1.0}, DefaultSettings())
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestEvaluateInfeasible(t *testing.T) {
	ds := sineDataset(4, 4)
	g := gp.New(kern.NewZero(nil))
	f := NewMarginalLikelihood(g, kern.NewZeroFromParams, &obs.Dataset{
		Inputs:  ds.Inputs,
		Noise:   make([]float64, 4),
		Targets: ds.Targets,
	}, nil)
	ll, grad, err := f.Evaluate([]float64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, math.Inf(-1), ll)
	assert.Equal(t, []float64{0, 0}, grad)
}

func TestEvaluationCache(t *testing.T) {
	ds := sineDataset(5, 6)
	g := gp.New(kern.NewIsoSqExp(1.0, 1.0))
	f := NewMarginalLikelihood(g, kern.NewIsoSqExpFromParams, ds, nil)
	p := f.problem()

	u := []float64{0.1, -0.2}
	grad := make([]float64, 2)
	v := p.Func(u)
	p.Grad(grad, u)
	assert.Equal(t, 1, f.evals)
	assert.Equal(t, v, p.Func(u))
	assert.Equal(t, 1, f.evals)

	p.Func([]float64{0.2, -0.2})
	assert.Equal(t, 2, f.evals)
}
