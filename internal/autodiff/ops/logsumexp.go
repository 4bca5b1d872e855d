package ops

import (
	"math"

	"github.com/born-ml/adjoint/internal/autodiff"
)

// LogSumExp records log Σ exp(xᵢ), shifted by the maximum for stability.
//
// Backward: ∂/∂xᵢ = softmax(x)ᵢ.
//
// An empty input yields -Inf.
func LogSumExp(t *autodiff.Tape, xs []autodiff.Var) autodiff.Var {
	if len(xs) == 0 {
		return autodiff.Constant(math.Inf(-1))
	}
	m := math.Inf(-1)
	for _, x := range xs {
		m = math.Max(m, x.Val())
	}
	if math.IsInf(m, 0) {
		return reduction(t, m, xs, func(int) float64 { return 0 })
	}
	var s float64
	for _, x := range xs {
		s += math.Exp(x.Val() - m)
	}
	lse := m + math.Log(s)
	return reduction(t, lse, xs, func(i int) float64 { return math.Exp(xs[i].Val() - lse) })
}
