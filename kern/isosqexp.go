package kern

import (
	"fmt"
	"math"

	"github.com/lucasmaystre/gogp/utils"
)

var (
	isoSqExp *IsoSqExp
	_        Kernel = isoSqExp // Check that IsoSqExp respects the Kernel interface.
)

// IsoSqExp is the isotropic squared-exponential (Gaussian) kernel
//
//	k(x1, x2) = A exp(-|x1 - x2|^2 / (2 S))
//
// with amplitude A and squared length-scale S. The parameters are not checked:
// a negative amplitude or a non-positive scale yields a covariance matrix that
// fails to factorize.
type IsoSqExp struct {
	amplitude float64
	scale     float64
}

func NewIsoSqExp(amplitude, scale float64) *IsoSqExp {
	return &IsoSqExp{
		amplitude: amplitude,
		scale:     scale,
	}
}

// NewIsoSqExpFromParams is a Factory taking (amplitude, scale).
func NewIsoSqExpFromParams(params []float64) (Kernel, error) {
	if len(params) != 2 {
		return nil, fmt.Errorf("isotropic squared exponential: got %d, want 2: %w",
			len(params), ErrParamCount)
	}
	return NewIsoSqExp(params[0], params[1]), nil
}

func (k *IsoSqExp) NPars() int {
	return 2
}

func (k *IsoSqExp) Params() []float64 {
	return []float64{k.amplitude, k.scale}
}

func (k *IsoSqExp) Amplitude() float64 {
	return k.amplitude
}

func (k *IsoSqExp) Scale() float64 {
	return k.scale
}

func (k *IsoSqExp) Evaluate(x1, x2 []float64) float64 {
	chi2 := utils.SqDist(x1, x2) / k.scale
	return k.amplitude * math.Exp(-0.5*chi2)
}

func (k *IsoSqExp) Gradient(x1, x2 []float64) []float64 {
	// e = -|d|^2 / (2 S), so dk/dS = -e / S * A exp(e).
	e := -0.5 * utils.SqDist(x1, x2) / k.scale
	value := math.Exp(e)
	return []float64{
		value,
		-e / k.scale * k.amplitude * value,
	}
}
