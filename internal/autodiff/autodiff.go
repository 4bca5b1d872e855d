// Package autodiff implements reverse-mode automatic differentiation on an
// arena-backed tape.
//
// Architecture:
//   - Tape: owns an arena and records nodes in creation order
//   - Vari: graph vertex holding value, adjoint and reverse step
//   - Var: handle that is either node-backed or a plain constant
//   - Backward: replays the tape in reverse, accumulating adjoints
//
// Every elementary operation below computes its value and local partial
// derivatives in float64 and records at most one node. When no operand is
// differentiable the result is a constant and the arena is not touched.
//
// Usage:
//
//	tape := autodiff.NewTape()
//	x := tape.NewVar(2.0)
//	y := tape.Mul(x, x) // y = x²
//	tape.Backward(y)
//	fmt.Println(x.Adj()) // dy/dx = 2x = 4.0
package autodiff

import "math"

// Identity records y = a.
//
// Backward: ∂y/∂a = 1.
func (t *Tape) Identity(a Var) Var {
	return t.unary(a.Val(), a, 1)
}

// Add records a + b.
//
// Backward: ∂/∂a = 1, ∂/∂b = 1.
func (t *Tape) Add(a, b Var) Var {
	return t.binary(a.Val()+b.Val(), a, 1, b, 1)
}

// Sub records a - b.
//
// Backward: ∂/∂a = 1, ∂/∂b = -1.
func (t *Tape) Sub(a, b Var) Var {
	return t.binary(a.Val()-b.Val(), a, 1, b, -1)
}

// Mul records a · b.
//
// Backward: ∂/∂a = b, ∂/∂b = a.
func (t *Tape) Mul(a, b Var) Var {
	av, bv := a.Val(), b.Val()
	return t.binary(av*bv, a, bv, b, av)
}

// Div records a / b.
//
// Backward: ∂/∂a = 1/b, ∂/∂b = -a/b².
func (t *Tape) Div(a, b Var) Var {
	av, bv := a.Val(), b.Val()
	return t.binary(av/bv, a, 1/bv, b, -av/(bv*bv))
}

// Neg records -a.
func (t *Tape) Neg(a Var) Var {
	return t.unary(-a.Val(), a, -1)
}

// Square records a².
//
// Backward: ∂/∂a = 2a.
func (t *Tape) Square(a Var) Var {
	av := a.Val()
	return t.unary(av*av, a, 2*av)
}

// Sqrt records √a.
//
// Backward: ∂/∂a = 1 / (2√a).
func (t *Tape) Sqrt(a Var) Var {
	r := math.Sqrt(a.Val())
	return t.unary(r, a, 0.5/r)
}

// Exp records eᵃ.
//
// Backward: ∂/∂a = eᵃ.
func (t *Tape) Exp(a Var) Var {
	e := math.Exp(a.Val())
	return t.unary(e, a, e)
}

// Log records ln a.
//
// Backward: ∂/∂a = 1/a.
//
// Note: non-positive inputs produce NaN or -Inf; validating the domain is the
// caller's job.
func (t *Tape) Log(a Var) Var {
	av := a.Val()
	return t.unary(math.Log(av), a, 1/av)
}

// Log1p records ln(1 + a).
//
// Backward: ∂/∂a = 1 / (1 + a).
func (t *Tape) Log1p(a Var) Var {
	av := a.Val()
	return t.unary(math.Log1p(av), a, 1/(1+av))
}

// Pow records aᵇ.
//
// Backward: ∂/∂a = b·aᵇ⁻¹, ∂/∂b = aᵇ·ln a (taken as 0 when a = 0).
func (t *Tape) Pow(a, b Var) Var {
	av, bv := a.Val(), b.Val()
	val := math.Pow(av, bv)
	db := 0.0
	if av != 0 {
		db = val * math.Log(av)
	}
	return t.binary(val, a, bv*math.Pow(av, bv-1), b, db)
}

// Sin records sin a.
func (t *Tape) Sin(a Var) Var {
	av := a.Val()
	return t.unary(math.Sin(av), a, math.Cos(av))
}

// Cos records cos a.
func (t *Tape) Cos(a Var) Var {
	av := a.Val()
	return t.unary(math.Cos(av), a, -math.Sin(av))
}

// Tanh records tanh a.
//
// Backward: ∂/∂a = 1 - tanh²(a).
func (t *Tape) Tanh(a Var) Var {
	th := math.Tanh(a.Val())
	return t.unary(th, a, 1-th*th)
}

// InvLogit records the logistic sigmoid σ(a) = 1 / (1 + e⁻ᵃ).
//
// Backward: ∂/∂a = σ(a)·(1 - σ(a)).
func (t *Tape) InvLogit(a Var) Var {
	s := invLogit(a.Val())
	return t.unary(s, a, s*(1-s))
}

// Erfc records the complementary error function.
//
// Backward: ∂/∂a = -2/√π · e^(-a²).
func (t *Tape) Erfc(a Var) Var {
	av := a.Val()
	return t.unary(math.Erfc(av), a, -2/math.SqrtPi*math.Exp(-av*av))
}

// invLogit evaluates σ(x) without overflowing for large |x|.
func invLogit(x float64) float64 {
	if x < 0 {
		e := math.Exp(x)
		return e / (1 + e)
	}
	return 1 / (1 + math.Exp(-x))
}

func (t *Tape) unary(val float64, a Var, da float64) Var {
	if a.vi == nil {
		return Constant(val)
	}
	vi := t.alloc(val)
	vi.operands = t.refs.AllocSlice(1)
	vi.operands[0] = a.vi
	vi.partials = t.arena.Floats(1)
	vi.partials[0] = da
	t.push(vi)
	return Var{vi: vi}
}

func (t *Tape) binary(val float64, a Var, da float64, b Var, db float64) Var {
	switch {
	case a.vi == nil:
		return t.unary(val, b, db)
	case b.vi == nil:
		return t.unary(val, a, da)
	}
	vi := t.alloc(val)
	vi.operands = t.refs.AllocSlice(2)
	vi.operands[0], vi.operands[1] = a.vi, b.vi
	vi.partials = t.arena.Floats(2)
	vi.partials[0], vi.partials[1] = da, db
	t.push(vi)
	return Var{vi: vi}
}
