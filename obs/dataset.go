// Package obs holds training observations: input locations, their noise
// standard deviations and the observed target values.
package obs

import (
	"errors"
	"math"
	"os"

	"github.com/samber/oops"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

const (
	CodeRead    = "obs.dataset.read_failure"
	CodeParse   = "obs.dataset.invalid_format"
	CodeInvalid = "obs.dataset.invalid_value"
)

var ErrInvalid = errors.New("invalid dataset")

// Dataset is a set of n noisy observations of a function of d inputs.
type Dataset struct {
	Inputs  *mat.Dense // n×d, one input per row.
	Noise   []float64  // Noise standard deviations.
	Targets []float64
}

type point struct {
	X    []float64 `yaml:"x"`
	Y    float64   `yaml:"y"`
	Yerr *float64  `yaml:"yerr"`
}

type document struct {
	Noise  float64 `yaml:"noise"` // Default for points without yerr.
	Points []point `yaml:"points"`
}

func (ds *Dataset) Len() int {
	if ds.Inputs == nil {
		return 0
	}
	r, _ := ds.Inputs.Dims()
	return r
}

func (ds *Dataset) Dim() int {
	if ds.Inputs == nil {
		return 0
	}
	_, c := ds.Inputs.Dims()
	return c
}

func invalid(format string, args ...any) error {
	return oops.In("obs").Code(CodeInvalid).Wrapf(ErrInvalid, format, args...)
}

// Validate checks that the dataset is non-empty, that noise and targets match
// the number of inputs, that every value is finite and that noise levels are
// non-negative.
func (ds *Dataset) Validate() error {
	n := ds.Len()
	if n == 0 {
		return invalid("dataset has no points")
	}
	if len(ds.Noise) != n {
		return invalid("%d noise values for %d points", len(ds.Noise), n)
	}
	if len(ds.Targets) != n {
		return invalid("%d targets for %d points", len(ds.Targets), n)
	}
	for i := 0; i < n; i++ {
		for j, v := range ds.Inputs.RawRowView(i) {
			if !finite(v) {
				return invalid("point %d: input %d is not finite", i, j)
			}
		}
		if !finite(ds.Targets[i]) {
			return invalid("point %d: target is not finite", i)
		}
		if !finite(ds.Noise[i]) || ds.Noise[i] < 0 {
			return invalid("point %d: noise must be finite and non-negative, got %g", i, ds.Noise[i])
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Parse reads a YAML document of the form
//
//	noise: 0.1
//	points:
//	  - {x: [0.0, 1.0], y: 0.5}
//	  - {x: [1.0, 2.0], y: 0.7, yerr: 0.2}
func Parse(data []byte) (*Dataset, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, oops.In("obs").Code(CodeParse).Wrapf(err, "parsing dataset")
	}
	n := len(doc.Points)
	if n == 0 {
		return nil, invalid("dataset has no points")
	}
	d := len(doc.Points[0].X)
	if d == 0 {
		return nil, invalid("point 0 has no inputs")
	}
	ds := &Dataset{
		Inputs:  mat.NewDense(n, d, nil),
		Noise:   make([]float64, n),
		Targets: make([]float64, n),
	}
	for i, p := range doc.Points {
		if len(p.X) != d {
			return nil, invalid("point %d has %d inputs, want %d", i, len(p.X), d)
		}
		ds.Inputs.SetRow(i, p.X)
		ds.Targets[i] = p.Y
		ds.Noise[i] = doc.Noise
		if p.Yerr != nil {
			ds.Noise[i] = *p.Yerr
		}
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.In("obs").Code(CodeRead).With("path", path).Wrapf(err, "reading dataset")
	}
	return Parse(data)
}
