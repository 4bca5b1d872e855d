package autodiff

// Chainer is implemented by node kinds whose reverse step is not a plain
// weighted sum over precomputed partials (containers, factorization-derived
// operations).
//
// Chain is called exactly once per reverse pass with the node it is attached
// to. It must only add to operand adjoints.
type Chainer interface {
	Chain(v *Vari)
}

// Vari is a vertex of the computation graph.
//
// The value is fixed at construction. The adjoint starts at zero and is only
// ever increased by the reverse step of nodes that read this one.
//
// Varis live in the arena of the Tape that created them and are never freed
// individually; they become invalid when the tape is reset.
type Vari struct {
	val float64
	adj float64

	// Precomputed-gradients kind: adj flows to operands[i] weighted by partials[i].
	operands []*Vari
	partials []float64

	// Custom kind; takes precedence over operands/partials when set.
	chainer Chainer
}

// Val returns the value computed in the forward pass.
func (v *Vari) Val() float64 {
	return v.val
}

// Adj returns the accumulated adjoint.
func (v *Vari) Adj() float64 {
	return v.adj
}

// AddAdj adds d to the adjoint.
func (v *Vari) AddAdj(d float64) {
	v.adj += d
}

// chain distributes the adjoint of v to its operands.
func (v *Vari) chain() {
	if v.chainer != nil {
		v.chainer.Chain(v)
		return
	}
	adj := v.adj
	for i, op := range v.operands {
		op.adj += adj * v.partials[i]
	}
}

// Var is the handle user code computes with.
//
// A Var is either differentiable (backed by a Vari recorded on a Tape) or a
// constant carrying only its value. Operations whose operands are all
// constants return constants and never touch the arena.
type Var struct {
	vi  *Vari
	val float64
}

// Constant returns a Var with no graph node.
func Constant(x float64) Var {
	return Var{val: x}
}

// Constants wraps each value with Constant.
func Constants(xs []float64) []Var {
	out := make([]Var, len(xs))
	for i, x := range xs {
		out[i] = Constant(x)
	}
	return out
}

// Val returns the value of v.
func (v Var) Val() float64 {
	if v.vi != nil {
		return v.vi.val
	}
	return v.val
}

// Adj returns the adjoint of v, zero for constants.
func (v Var) Adj() float64 {
	if v.vi != nil {
		return v.vi.adj
	}
	return 0
}

// IsConstant reports whether v has no graph node.
func (v Var) IsConstant() bool {
	return v.vi == nil
}

// Vari returns the node behind v, nil for constants.
func (v Var) Vari() *Vari {
	return v.vi
}

// Vals returns the values of xs.
func Vals(xs []Var) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = x.Val()
	}
	return out
}

// Adjs returns the adjoints of xs.
func Adjs(xs []Var) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = x.Adj()
	}
	return out
}
