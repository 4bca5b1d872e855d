package ops

import "github.com/born-ml/adjoint/internal/autodiff"

// Scale records yᵢ = c·xᵢ, broadcasting the size-1 operand c over x.
//
// Backward:
//
//	∂L/∂c  = Σᵢ ∂L/∂yᵢ · xᵢ   (c influenced every output)
//	∂L/∂xᵢ = ∂L/∂yᵢ · c
//
// All outputs share one recorded node.
func Scale(t *autodiff.Tape, c autodiff.Var, xs []autodiff.Var) []autodiff.Var {
	cv := c.Val()
	out := make([]autodiff.Var, len(xs))
	if c.IsConstant() && countVars(xs) == 0 {
		for i, x := range xs {
			out[i] = autodiff.Constant(cv * x.Val())
		}
		return out
	}

	op := &scaleOp{
		c:   c.Vari(),
		cv:  cv,
		x:   refs(t, xs),
		xv:  t.AllocFloats(len(xs)),
		out: t.AllocRefs(len(xs)),
	}
	for i, x := range xs {
		op.xv[i] = x.Val()
		out[i] = t.NewNoChain(cv * op.xv[i])
		op.out[i] = out[i].Vari()
	}
	t.Record(op)
	return out
}

type scaleOp struct {
	c   *autodiff.Vari // nil when constant
	cv  float64
	x   []*autodiff.Vari // nil at constant positions
	xv  []float64
	out []*autodiff.Vari
}

func (op *scaleOp) Chain(*autodiff.Vari) {
	var dc float64
	for i, y := range op.out {
		adj := y.Adj()
		dc += adj * op.xv[i]
		if op.x[i] != nil {
			op.x[i].AddAdj(adj * op.cv)
		}
	}
	if op.c != nil {
		op.c.AddAdj(dc)
	}
}
