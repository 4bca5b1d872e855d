package ops

import (
	"fmt"

	"github.com/born-ml/adjoint/internal/autodiff"
)

// Dot records Σ aᵢ·bᵢ as a single node.
//
// Backward: ∂/∂aᵢ = bᵢ, ∂/∂bᵢ = aᵢ.
func Dot(t *autodiff.Tape, a, b []autodiff.Var) autodiff.Var {
	if len(a) != len(b) {
		panic(fmt.Sprintf("dot: size mismatch %d vs %d", len(a), len(b)))
	}
	var s float64
	for i := range a {
		s += a[i].Val() * b[i].Val()
	}

	n := countVars(a) + countVars(b)
	if n == 0 {
		return autodiff.Constant(s)
	}
	operands := t.AllocRefs(n)
	partials := t.AllocFloats(n)
	k := 0
	for i := range a {
		if !a[i].IsConstant() {
			operands[k], partials[k] = a[i].Vari(), b[i].Val()
			k++
		}
		if !b[i].IsConstant() {
			operands[k], partials[k] = b[i].Vari(), a[i].Val()
			k++
		}
	}
	return t.NewNodeRefs(s, operands, partials)
}

// DotSelf records Σ xᵢ².
//
// Backward: ∂/∂xᵢ = 2xᵢ.
func DotSelf(t *autodiff.Tape, xs []autodiff.Var) autodiff.Var {
	var s float64
	for _, x := range xs {
		v := x.Val()
		s += v * v
	}
	return reduction(t, s, xs, func(i int) float64 { return 2 * xs[i].Val() })
}
