// Package ops defines container and reduction nodes for the autodiff tape.
//
// Where an elementary operation records one node per scalar, the operations
// here record one node for a whole vector:
//   - Sum, Dot, DotSelf, LogSumExp: scalar output, one node whose operands are
//     every differentiable element (partials stored on the arena)
//   - Scale: size-1 operand broadcast over a vector, multi-output
//   - Softmax: multi-output
//
// Multi-output operations allocate their outputs with Tape.NewNoChain and then
// record a single node whose reverse step loops over all elements.
package ops

import "github.com/born-ml/adjoint/internal/autodiff"

// countVars returns the number of differentiable elements of xs.
func countVars(xs []autodiff.Var) int {
	n := 0
	for _, x := range xs {
		if !x.IsConstant() {
			n++
		}
	}
	return n
}

// refs returns the nodes behind xs, nil at constant positions, on the arena.
func refs(t *autodiff.Tape, xs []autodiff.Var) []*autodiff.Vari {
	out := t.AllocRefs(len(xs))
	for i, x := range xs {
		out[i] = x.Vari()
	}
	return out
}

// reduction records a scalar node over xs where element i has partial d(i).
// Constant elements are skipped; with no differentiable element the result
// is a constant.
func reduction(t *autodiff.Tape, val float64, xs []autodiff.Var, d func(i int) float64) autodiff.Var {
	n := countVars(xs)
	if n == 0 {
		return autodiff.Constant(val)
	}
	operands := t.AllocRefs(n)
	partials := t.AllocFloats(n)
	k := 0
	for i, x := range xs {
		if x.IsConstant() {
			continue
		}
		operands[k] = x.Vari()
		partials[k] = d(i)
		k++
	}
	return t.NewNodeRefs(val, operands, partials)
}
