package ops

import (
	"math"

	"github.com/born-ml/adjoint/internal/autodiff"
)

// Softmax records softmax(x)ᵢ = exp(xᵢ - max(x)) / Σⱼ exp(xⱼ - max(x)).
//
// The max-shifting keeps exp from overflowing.
//
// Backward:
//
//	∂L/∂xⱼ = sⱼ · (∂L/∂sⱼ - Σᵢ ∂L/∂sᵢ · sᵢ)
//
// All outputs share one recorded node.
func Softmax(t *autodiff.Tape, xs []autodiff.Var) []autodiff.Var {
	n := len(xs)
	if n == 0 {
		return nil
	}
	m := math.Inf(-1)
	for _, x := range xs {
		m = math.Max(m, x.Val())
	}
	constant := countVars(xs) == 0
	var s []float64
	if constant {
		s = make([]float64, n)
	} else {
		s = t.AllocFloats(n)
	}
	var z float64
	for i, x := range xs {
		s[i] = math.Exp(x.Val() - m)
		z += s[i]
	}
	for i := range s {
		s[i] /= z
	}

	out := make([]autodiff.Var, n)
	if constant {
		for i := range s {
			out[i] = autodiff.Constant(s[i])
		}
		return out
	}

	op := &softmaxOp{x: refs(t, xs), s: s, out: t.AllocRefs(n)}
	for i := range s {
		out[i] = t.NewNoChain(s[i])
		op.out[i] = out[i].Vari()
	}
	t.Record(op)
	return out
}

type softmaxOp struct {
	x   []*autodiff.Vari // nil at constant positions
	s   []float64
	out []*autodiff.Vari
}

func (op *softmaxOp) Chain(*autodiff.Vari) {
	var dot float64
	for i, y := range op.out {
		dot += y.Adj() * op.s[i]
	}
	for j, x := range op.x {
		if x != nil {
			x.AddAdj(op.s[j] * (op.out[j].Adj() - dot))
		}
	}
}
