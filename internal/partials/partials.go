// Package partials implements the operands-and-partials accumulator every
// differentiable primitive is built on.
//
// A primitive wraps each argument with Of, hands the edges to New, computes
// its value in float64 while adding ∂result/∂argumentᵢ into the edges'
// Partials, and finishes with Build:
//
//	y, mu := partials.Of(yIn), partials.Of(muIn)
//	op := partials.New(tape, y, mu)
//	for n := 0; n < partials.MaxSize(y, mu); n++ {
//	    d := y.Val(n) - mu.Val(n)
//	    logp -= 0.5 * d * d
//	    op.Edge(0).Partials.Add(n, -d)
//	    op.Edge(1).Partials.Add(n, d)
//	}
//	return op.Build(logp)
//
// When every operand is constant no partials buffer is allocated and Build
// returns a constant, so callers pay for graph bookkeeping only when a
// derivative was actually requested.
package partials

import (
	"fmt"

	"github.com/born-ml/adjoint/internal/autodiff"
)

// OperandsAndPartials accumulates the partial derivatives of one primitive
// with respect to any number of operands and records at most one node.
type OperandsAndPartials struct {
	tape  *autodiff.Tape
	edges []Edge
}

// New allocates a zeroed partials buffer on t's arena for every
// differentiable edge. t may be nil when every edge is constant.
func New(t *autodiff.Tape, edges ...Edge) *OperandsAndPartials {
	for i := range edges {
		e := &edges[i]
		e.Partials = nil
		if e.IsConstant() {
			continue
		}
		if t == nil {
			panic(fmt.Sprintf("partials: differentiable operand %d needs a tape", i))
		}
		e.Partials = t.AllocFloats(e.Len())
	}
	return &OperandsAndPartials{tape: t, edges: edges}
}

// Edge returns edge k (in the order given to New).
func (o *OperandsAndPartials) Edge(k int) *Edge {
	return &o.edges[k]
}

// NumEdges returns the number of operands.
func (o *OperandsAndPartials) NumEdges() int {
	return len(o.edges)
}

// Build finalizes the primitive with its value.
//
// With no differentiable operand it returns a constant holding exactly value.
// Otherwise it records one node whose reverse step adds
// adj · Partials[i] to every differentiable element of every edge.
//
// Build panics if a Partials buffer no longer matches its operand's length.
func (o *OperandsAndPartials) Build(value float64) autodiff.Var {
	n := 0
	single := -1
	for i := range o.edges {
		e := &o.edges[i]
		if e.Partials == nil {
			continue
		}
		if len(e.Partials) != e.Len() {
			panic(fmt.Sprintf("partials: edge %d has %d partials for %d elements", i, len(e.Partials), e.Len()))
		}
		k := e.countVars()
		if k == 0 {
			continue
		}
		if n == 0 && k == e.Len() {
			single = i
		} else {
			single = -1
		}
		n += k
	}
	if n == 0 {
		return autodiff.Constant(value)
	}

	operands := o.tape.AllocRefs(n)
	var partials []float64
	if single >= 0 {
		// One fully differentiable edge: its arena buffer is used as is.
		partials = o.edges[single].Partials
	} else {
		partials = o.tape.AllocFloats(n)
	}

	k := 0
	for i := range o.edges {
		e := &o.edges[i]
		if e.Partials == nil {
			continue
		}
		for j := 0; j < e.Len(); j++ {
			v := e.at(j)
			if v.IsConstant() {
				continue
			}
			operands[k] = v.Vari()
			if single < 0 {
				partials[k] = e.Partials[j]
			}
			k++
		}
	}
	return o.tape.NewNodeRefs(value, operands, partials)
}

// countVars returns the number of differentiable elements.
func (e *Edge) countVars() int {
	switch e.kind {
	case varScalar:
		return 1
	case varVector:
		n := 0
		for _, v := range e.vars {
			if !v.IsConstant() {
				n++
			}
		}
		return n
	}
	return 0
}
