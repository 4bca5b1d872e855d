package ldlt

import (
	"github.com/pkg/errors"

	"github.com/born-ml/adjoint/internal/autodiff"
	"github.com/born-ml/adjoint/internal/partials"
)

// LogDeterminant records log |det A| for the factorized matrix A.
//
// Backward: ∂/∂Aᵢⱼ = (A⁻¹)ⱼᵢ, accumulated onto the Vars of A.
func LogDeterminant(t *autodiff.Tape, f *Factor) (autodiff.Var, error) {
	a := partials.Of(f.Matrix().Data)
	op := partials.New(t, a)
	if !a.IsConstant() {
		inv, err := f.Inverse()
		if err != nil {
			return autodiff.Var{}, err
		}
		edge := op.Edge(0)
		for i := 0; i < f.n; i++ {
			for j := 0; j < f.n; j++ {
				edge.Partials.Add(i*f.n+j, inv.At(j, i))
			}
		}
	}
	return op.Build(f.LogAbsDet()), nil
}

// TraceInvQuad records bᵀA⁻¹b.
//
// Backward, with x = A⁻¹b:
//
//	∂/∂b   = 2x
//	∂/∂Aᵢⱼ = -xᵢxⱼ
func TraceInvQuad(t *autodiff.Tape, f *Factor, b []autodiff.Var) (autodiff.Var, error) {
	if len(b) != f.n {
		return autodiff.Var{}, errors.Errorf("trace_inv_quad: b has %d elements, want %d", len(b), f.n)
	}
	bv := autodiff.Vals(b)
	x, err := f.SolveVec(bv)
	if err != nil {
		return autodiff.Var{}, err
	}
	var val float64
	for i := range bv {
		val += bv[i] * x[i]
	}

	op := partials.New(t, partials.Of(f.Matrix().Data), partials.Of(b))
	da, db := op.Edge(0), op.Edge(1)
	for i := 0; i < f.n; i++ {
		db.Partials.Add(i, 2*x[i])
		for j := 0; j < f.n; j++ {
			da.Partials.Add(i*f.n+j, -x[i]*x[j])
		}
	}
	return op.Build(val), nil
}

// Solve records x = A⁻¹b. All outputs share one recorded node.
//
// Backward, with ḡ = A⁻¹ ∂L/∂x:
//
//	∂L/∂b   = ḡ
//	∂L/∂Aᵢⱼ = -ḡᵢxⱼ
func Solve(t *autodiff.Tape, f *Factor, b []autodiff.Var) ([]autodiff.Var, error) {
	if len(b) != f.n {
		return nil, errors.Errorf("mdivide_left_ldlt: b has %d elements, want %d", len(b), f.n)
	}
	x, err := f.SolveVec(autodiff.Vals(b))
	if err != nil {
		return nil, err
	}

	a := f.Matrix()
	out := make([]autodiff.Var, f.n)
	if allConstant(a.Data) && allConstant(b) {
		for i := range x {
			out[i] = autodiff.Constant(x[i])
		}
		return out, nil
	}

	op := &solveOp{
		f:   f,
		a:   varis(t, a.Data),
		b:   varis(t, b),
		x:   t.AllocFloats(f.n),
		out: t.AllocRefs(f.n),
	}
	copy(op.x, x)
	for i := range x {
		out[i] = t.NewNoChain(x[i])
		op.out[i] = out[i].Vari()
	}
	t.Record(op)
	return out, nil
}

type solveOp struct {
	f   *Factor
	a   []*autodiff.Vari // row-major, nil at constant positions
	b   []*autodiff.Vari
	x   []float64
	out []*autodiff.Vari
}

func (op *solveOp) Chain(*autodiff.Vari) {
	n := op.f.n
	adjX := make([]float64, n)
	for i, y := range op.out {
		adjX[i] = y.Adj()
	}
	g, err := op.f.SolveVec(adjX)
	if err != nil {
		panic(err.Error())
	}
	for i := 0; i < n; i++ {
		if op.b[i] != nil {
			op.b[i].AddAdj(g[i])
		}
		for j := 0; j < n; j++ {
			if a := op.a[i*n+j]; a != nil {
				a.AddAdj(-g[i] * op.x[j])
			}
		}
	}
}

func allConstant(xs []autodiff.Var) bool {
	for _, x := range xs {
		if !x.IsConstant() {
			return false
		}
	}
	return true
}

func varis(t *autodiff.Tape, xs []autodiff.Var) []*autodiff.Vari {
	out := t.AllocRefs(len(xs))
	for i, x := range xs {
		out[i] = x.Vari()
	}
	return out
}
