package autodiff

import (
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// Func is a scalar function of differentiable inputs, evaluated on t.
type Func func(t *Tape, x []Var) (Var, error)

// VecFunc is a vector function of differentiable inputs, evaluated on t.
type VecFunc func(t *Tape, x []Var) ([]Var, error)

// Gradient evaluates f at x and returns f(x) and ∇f(x).
//
// The evaluation runs in a nested scope that is released before returning, so
// Gradient can be called any number of times on the same tape without growing
// it. Errors returned by f are passed through.
func (t *Tape) Gradient(f Func, x []float64) (float64, []float64, error) {
	t.StartNested()
	defer t.RecoverNested()

	xs := t.NewVars(x)
	fx, err := f(t, xs)
	if err != nil {
		return 0, nil, err
	}
	if fx.IsConstant() {
		// f does not depend on x.
		return fx.Val(), make([]float64, len(x)), nil
	}
	t.Backward(fx)
	return fx.Val(), Adjs(xs), nil
}

// Jacobian evaluates f at x and returns f(x) and the len(f(x))×len(x)
// Jacobian. One reverse pass is run per output, zeroing adjoints in between.
func (t *Tape) Jacobian(f VecFunc, x []float64) ([]float64, *mat.Dense, error) {
	t.StartNested()
	defer t.RecoverNested()

	xs := t.NewVars(x)
	fx, err := f(t, xs)
	if err != nil {
		return nil, nil, err
	}
	vals := Vals(fx)
	if len(fx) == 0 || len(xs) == 0 {
		return vals, &mat.Dense{}, nil
	}

	jac := mat.NewDense(len(fx), len(xs), nil)
	for i, y := range fx {
		if y.IsConstant() {
			continue
		}
		t.ZeroAdjoints()
		t.Backward(y)
		for j, xv := range xs {
			jac.Set(i, j, xv.Adj())
		}
	}
	return vals, jac, nil
}

// Hessian returns f(x), ∇f(x) and the Hessian of f at x.
//
// The Hessian is the central finite-difference Jacobian of the exact reverse
// mode gradient, symmetrized.
func (t *Tape) Hessian(f Func, x []float64) (float64, []float64, *mat.SymDense, error) {
	fx, grad, err := t.Gradient(f, x)
	if err != nil {
		return 0, nil, nil, err
	}
	n := len(x)
	if n == 0 {
		return fx, grad, &mat.SymDense{}, nil
	}

	var gradErr error
	jac := mat.NewDense(n, n, nil)
	fd.Jacobian(jac, func(y, xx []float64) {
		if gradErr != nil {
			return
		}
		_, g, err := t.Gradient(f, xx)
		if err != nil {
			gradErr = err
			return
		}
		copy(y, g)
	}, x, &fd.JacobianSettings{Formula: fd.Central})
	if gradErr != nil {
		return 0, nil, nil, gradErr
	}

	hess := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			hess.SetSym(i, j, 0.5*(jac.At(i, j)+jac.At(j, i)))
		}
	}
	return fx, grad, hess, nil
}
