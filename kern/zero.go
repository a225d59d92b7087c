package kern

var (
	zero *Zero
	_    Kernel = zero // Check that Zero respects the Kernel interface.
)

// Zero is the default kernel: the covariance is identically zero whatever the
// parameters, and so is its gradient.
type Zero struct {
	params []float64
}

func NewZero(params []float64) *Zero {
	return &Zero{
		params: append([]float64(nil), params...),
	}
}

func NewZeroFromParams(params []float64) (Kernel, error) {
	return NewZero(params), nil
}

func (k *Zero) NPars() int {
	return len(k.params)
}

func (k *Zero) Params() []float64 {
	return append([]float64(nil), k.params...)
}

func (k *Zero) Evaluate(x1, x2 []float64) float64 {
	return 0.0
}

func (k *Zero) Gradient(x1, x2 []float64) []float64 {
	return make([]float64, len(k.params))
}
