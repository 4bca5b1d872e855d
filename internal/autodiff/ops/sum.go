package ops

import "github.com/born-ml/adjoint/internal/autodiff"

// Sum records Σ xᵢ as a single node.
//
// Backward: ∂/∂xᵢ = 1 for every element.
func Sum(t *autodiff.Tape, xs []autodiff.Var) autodiff.Var {
	var s float64
	for _, x := range xs {
		s += x.Val()
	}
	return reduction(t, s, xs, func(int) float64 { return 1 })
}
