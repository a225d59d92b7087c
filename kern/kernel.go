package kern

import (
	"errors"
)

var ErrParamCount = errors.New("wrong number of kernel hyperparameters")

// Kernel is a covariance function k(x1, x2) parametrized by a fixed-length
// vector of hyperparameters. Implementations are immutable and evaluation is a
// pure function of the parameters and the two inputs.
type Kernel interface {
	// Number of hyperparameters :math:`\theta`.
	NPars() int

	// Copy of the hyperparameter vector.
	Params() []float64

	// Prior covariance :math:`k(\mathbf{x}_1, \mathbf{x}_2)`.
	Evaluate(x1, x2 []float64) float64

	// Partial derivatives :math:`\partial k / \partial \theta_k`, one per
	// hyperparameter.
	Gradient(x1, x2 []float64) []float64
}

// Factory builds a kernel of a fixed family from a hyperparameter vector.
type Factory func(params []float64) (Kernel, error)
