// Package ldlt caches the factorization of a symmetric positive-definite
// matrix of Vars so several differentiable operations can share it.
//
// A Factor is not a graph node and is never recorded on the tape. It keeps
// the float64 factorization (gonum Cholesky, A = LLᵀ, equivalent to LDLᵀ with
// D = diag(L)²) together with the Vars the matrix was built from. Operations
// reading the factor (LogDeterminant, TraceInvQuad, Solve) record their own
// nodes against those original Vars, so gradients reach the matrix entries
// even though the O(n³) work happened once.
//
// The factor is registered with the tape's arena and released when the tape
// is reset, or when the nested scope it was computed in is recovered.
package ldlt

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/adjoint/internal/autodiff"
	"github.com/born-ml/adjoint/internal/check"
)

// SymmetryTolerance is the relative tolerance of the symmetry check.
const SymmetryTolerance = 1e-8

// Factor is a cached factorization of a symmetric positive-definite matrix.
type Factor struct {
	n        int
	chol     mat.Cholesky
	a        autodiff.Matrix
	inv      *mat.SymDense // computed on first use
	released bool
}

// Compute factorizes the values of a and keeps references to its Vars.
// It returns a *check.DomainError if a is not symmetric positive definite.
// It panics if t is nil.
func Compute(t *autodiff.Tape, a autodiff.Matrix) (*Factor, error) {
	const function = "ldlt_factor"
	if t == nil {
		panic(function + ": needs a tape")
	}
	if err := check.Square(function, "A", a.Rows, a.Cols); err != nil {
		return nil, err
	}
	n := a.Rows
	if n == 0 {
		return nil, errors.Errorf("%s: A must not be empty", function)
	}
	at := func(i, j int) float64 { return a.At(i, j).Val() }
	if err := check.Symmetric(function, "A", n, at, SymmetryTolerance); err != nil {
		return nil, err
	}

	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, at(i, j))
		}
	}
	f := &Factor{n: n, a: a}
	if !f.chol.Factorize(sym) {
		return nil, errors.WithStack(&check.DomainError{
			Function: function,
			Name:     "A",
			Index:    -1,
			Value:    at(0, 0),
			Msg:      "must be positive definite",
		})
	}
	t.Arena().RegisterCleanup(f)
	return f, nil
}

// N returns the dimension of the factorized matrix.
func (f *Factor) N() int {
	return f.n
}

// Matrix returns the Vars the factor was computed from.
func (f *Factor) Matrix() autodiff.Matrix {
	f.mustBeLive()
	return f.a
}

// LogAbsDet returns log |det A|.
func (f *Factor) LogAbsDet() float64 {
	f.mustBeLive()
	return f.chol.LogDet()
}

// SolveVec returns A⁻¹b.
func (f *Factor) SolveVec(b []float64) ([]float64, error) {
	f.mustBeLive()
	if len(b) != f.n {
		return nil, errors.Errorf("ldlt: right-hand side has %d elements, want %d", len(b), f.n)
	}
	var x mat.VecDense
	if err := f.chol.SolveVecTo(&x, mat.NewVecDense(f.n, append([]float64(nil), b...))); fatal(err) {
		return nil, errors.Wrap(err, "ldlt: solve")
	}
	return x.RawVector().Data, nil
}

// Inverse returns A⁻¹, computing it on first use. The result must not be
// modified.
func (f *Factor) Inverse() (*mat.SymDense, error) {
	f.mustBeLive()
	if f.inv != nil {
		return f.inv, nil
	}
	var inv mat.SymDense
	if err := f.chol.InverseTo(&inv); fatal(err) {
		return nil, errors.Wrap(err, "ldlt: inverse")
	}
	f.inv = &inv
	return f.inv, nil
}

// Release drops the factorization and the references into the tape.
func (f *Factor) Release() {
	f.chol.Reset()
	f.a = autodiff.Matrix{}
	f.inv = nil
	f.released = true
}

// fatal reports whether err invalidates a result. A mat.Condition error only
// warns about ill-conditioning; the result is still returned.
func fatal(err error) bool {
	if err == nil {
		return false
	}
	var cond mat.Condition
	return !errors.As(err, &cond)
}

func (f *Factor) mustBeLive() {
	if f.released {
		panic("ldlt: factor used after its tape was reset")
	}
}
