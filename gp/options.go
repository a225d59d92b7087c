package gp

import (
	"github.com/lucasmaystre/gogp/linalg"
	"go.uber.org/zap"
)

type Option func(*GP)

// WithFactorizer replaces the default LDL factorization.
func WithFactorizer(f linalg.Factorizer) Option {
	return func(g *GP) {
		g.factorizer = f
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(g *GP) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithWorkers bounds the number of goroutines used for the covariance rows and
// the per-hyperparameter trace solves. Values below 2 mean sequential.
func WithWorkers(n int) Option {
	return func(g *GP) {
		g.workers = n
	}
}
