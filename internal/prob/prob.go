// Package prob holds log-density and log-mass functions built on the
// operands-and-partials accumulator.
//
// Every function accepts any mix of constant and differentiable operands
// (float64, []float64, autodiff.Var, []autodiff.Var). Vector operands are
// combined elementwise, scalars broadcast, and the result is the sum over
// all positions. With only constant operands the result is a constant and
// nothing is recorded on the tape, which may then be nil.
//
// The Propto variants drop every term that does not depend on a
// differentiable operand. They are meant for samplers and optimizers that
// only need the density up to a constant.
//
// Argument errors are returned as *check.DomainError or *check.SizeError.
package prob

import (
	"math"

	"github.com/born-ml/adjoint/internal/partials"
)

// negLogSqrtTwoPi is -log √(2π).
var negLogSqrtTwoPi = -0.5 * math.Log(2*math.Pi)

// include reports whether a term depending on edges contributes to the result.
func include(propto bool, edges ...*partials.Edge) bool {
	if !propto {
		return true
	}
	for _, e := range edges {
		if !e.IsConstant() {
			return true
		}
	}
	return false
}
