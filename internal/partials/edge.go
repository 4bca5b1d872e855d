package partials

import "github.com/born-ml/adjoint/internal/autodiff"

// Operand is any argument a differentiable primitive accepts: a constant
// scalar or vector, or a differentiable scalar or vector.
type Operand interface {
	float64 | []float64 | autodiff.Var | []autodiff.Var
}

type kind uint8

const (
	constScalar kind = iota
	constVector
	varScalar
	varVector
)

// Edge binds one operand of a primitive to its partial derivatives.
//
// An Edge is a small value meant to live on the Go stack. Built with Of, it is
// a read-only broadcasting view of the operand; the Partials buffer is only
// allocated when the edge is handed to New and the operand is differentiable.
type Edge struct {
	kind   kind
	scalar float64
	floats []float64
	v      autodiff.Var
	vars   []autodiff.Var

	// Partials holds ∂result/∂operandᵢ, one slot per element. It is nil for
	// constant operands.
	Partials Broadcast
}

// Of returns the edge for x.
func Of[T Operand](x T) Edge {
	switch v := any(x).(type) {
	case float64:
		return Edge{kind: constScalar, scalar: v}
	case []float64:
		return Edge{kind: constVector, floats: v}
	case autodiff.Var:
		if v.IsConstant() {
			return Edge{kind: constScalar, scalar: v.Val()}
		}
		return Edge{kind: varScalar, v: v}
	case []autodiff.Var:
		return Edge{kind: varVector, vars: v}
	}
	panic("partials: unreachable operand type")
}

// Len returns the number of elements of the operand; 1 for scalars.
func (e *Edge) Len() int {
	switch e.kind {
	case constVector:
		return len(e.floats)
	case varVector:
		return len(e.vars)
	}
	return 1
}

// IsVector reports whether the operand is a container.
func (e *Edge) IsVector() bool {
	return e.kind == constVector || e.kind == varVector
}

// IsConstant reports whether no element of the operand is differentiable.
func (e *Edge) IsConstant() bool {
	switch e.kind {
	case varScalar:
		return false
	case varVector:
		for _, v := range e.vars {
			if !v.IsConstant() {
				return false
			}
		}
	}
	return true
}

// Val returns the value of element i. Operands of length 1 broadcast: every
// index maps to their only element.
func (e *Edge) Val(i int) float64 {
	switch e.kind {
	case constScalar:
		return e.scalar
	case varScalar:
		return e.v.Val()
	case constVector:
		if len(e.floats) == 1 {
			return e.floats[0]
		}
		return e.floats[i]
	default:
		if len(e.vars) == 1 {
			return e.vars[0].Val()
		}
		return e.vars[i].Val()
	}
}

// at returns element i as a Var (constant when not differentiable).
func (e *Edge) at(i int) autodiff.Var {
	switch e.kind {
	case varScalar:
		return e.v
	case varVector:
		return e.vars[i]
	}
	return autodiff.Constant(e.Val(i))
}

// Broadcast is a partials buffer that folds every index onto element 0 when
// it has length 1, so a size-1 operand combined with longer ones accumulates
// the contribution of every position.
type Broadcast []float64

// Add accumulates d into position i. Adding to a nil buffer (constant operand)
// does nothing.
func (b Broadcast) Add(i int, d float64) {
	switch len(b) {
	case 0:
		return
	case 1:
		b[0] += d
	default:
		b[i] += d
	}
}

// MaxSize returns the largest operand length, as used for the loop bound of a
// vectorized primitive.
func MaxSize(edges ...Edge) int {
	n := 0
	for i := range edges {
		n = max(n, edges[i].Len())
	}
	return n
}

// SizeZero reports whether any operand is an empty container.
func SizeZero(edges ...Edge) bool {
	for i := range edges {
		if edges[i].Len() == 0 {
			return true
		}
	}
	return false
}
