package kern

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
)

func randVec(rnd *rand.Rand, d int) []float64 {
	x := make([]float64, d)
	for i := range x {
		x[i] = rnd.NormFloat64()
	}
	return x
}

func TestSymmetry(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	kernels := []Kernel{
		NewZero([]float64{1, 2, 3}),
		NewIsoSqExp(1.0, 1.0),
		NewIsoSqExp(2.5, 0.3),
	}
	for _, k := range kernels {
		for trial := 0; trial < 20; trial++ {
			x1, x2 := randVec(rnd, 3), randVec(rnd, 3)
			assert.Equal(t, k.Evaluate(x1, x2), k.Evaluate(x2, x1))
			assert.Equal(t, k.Gradient(x1, x2), k.Gradient(x2, x1))
		}
	}
}

func TestIsoSqExpDiagonal(t *testing.T) {
	rnd := rand.New(rand.NewSource(2))
	for _, amp := range []float64{0.1, 1.0, 3.7} {
		k := NewIsoSqExp(amp, 0.8)
		x := randVec(rnd, 4)
		assert.Equal(t, amp, k.Evaluate(x, x))
	}
}

func TestIsoSqExpValue(t *testing.T) {
	k := NewIsoSqExp(2.0, 4.0)
	// |d|^2 = 8, chi2 = 2.
	got := k.Evaluate([]float64{0, 0}, []float64{2, 2})
	assert.InDelta(t, 2.0*math.Exp(-1.0), got, 1e-14)
}

func TestIsoSqExpGradientFiniteDiff(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	settings := &fd.Settings{Formula: fd.Central, Step: 1e-6}
	for trial := 0; trial < 50; trial++ {
		params := []float64{0.1 + 3*rnd.Float64(), 0.1 + 3*rnd.Float64()}
		x1, x2 := randVec(rnd, 2), randVec(rnd, 2)
		k := NewIsoSqExp(params[0], params[1])
		grad := k.Gradient(x1, x2)
		require.Len(t, grad, k.NPars())

		num := fd.Gradient(nil, func(p []float64) float64 {
			return NewIsoSqExp(p[0], p[1]).Evaluate(x1, x2)
		}, params, settings)
		for i := range grad {
			assert.InDelta(t, num[i], grad[i], 1e-5*math.Max(1, math.Abs(num[i])),
				"param %d, trial %d", i, trial)
		}
	}
}

func TestZero(t *testing.T) {
	k := NewZero([]float64{4, 5})
	assert.Equal(t, 2, k.NPars())
	assert.Equal(t, []float64{4, 5}, k.Params())
	assert.Equal(t, 0.0, k.Evaluate([]float64{1}, []float64{2}))
	assert.Equal(t, []float64{0, 0}, k.Gradient([]float64{1}, []float64{2}))
}

func TestParamsAreCopies(t *testing.T) {
	params := []float64{1, 2}
	k := NewZero(params)
	params[0] = 100
	k.Params()[1] = 100
	assert.Equal(t, []float64{1, 2}, k.Params())
}

func TestFactories(t *testing.T) {
	k, err := NewIsoSqExpFromParams([]float64{1.5, 0.5})
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 0.5}, k.Params())

	_, err = NewIsoSqExpFromParams([]float64{1.5})
	assert.ErrorIs(t, err, ErrParamCount)

	var f Factory = NewZeroFromParams
	z, err := f([]float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 3, z.NPars())
}
