package prob

import (
	"math"

	"github.com/pkg/errors"

	"github.com/born-ml/adjoint/internal/autodiff"
	"github.com/born-ml/adjoint/internal/check"
	"github.com/born-ml/adjoint/internal/ldlt"
)

// MultiNormalLpdf returns the log density of the vector y under a
// multivariate normal distribution with mean mu and covariance sigma.
//
//	log p(y) = -½k log 2π - ½ log|Σ| - ½(y-μ)ᵀΣ⁻¹(y-μ)
//
// y and mu must have the same length; neither broadcasts. Σ is factorized
// once and the factorization feeds both the log-determinant and the
// quadratic form. Unlike the scalar densities, t must not be nil unless the
// result is a constant: the factorization is registered with its arena.
func MultiNormalLpdf(t *autodiff.Tape, y, mu []autodiff.Var, sigma autodiff.Matrix) (autodiff.Var, error) {
	return multiNormalLpdf(t, false, y, mu, sigma)
}

// MultiNormalLpdfPropto is MultiNormalLpdf without the -½k log 2π term, and
// without the log-determinant when sigma is constant.
func MultiNormalLpdfPropto(t *autodiff.Tape, y, mu []autodiff.Var, sigma autodiff.Matrix) (autodiff.Var, error) {
	return multiNormalLpdf(t, true, y, mu, sigma)
}

// MultiNormalFactorLpdf is MultiNormalLpdf with Σ given by a factorization
// from ldlt.Compute. One factor can serve every observation sharing Σ.
func MultiNormalFactorLpdf(t *autodiff.Tape, y, mu []autodiff.Var, sigma *ldlt.Factor) (autodiff.Var, error) {
	return multiNormalFactorLpdf(t, false, y, mu, sigma)
}

// MultiNormalFactorLpdfPropto is MultiNormalLpdfPropto with Σ given by a
// factorization from ldlt.Compute.
func MultiNormalFactorLpdfPropto(t *autodiff.Tape, y, mu []autodiff.Var, sigma *ldlt.Factor) (autodiff.Var, error) {
	return multiNormalFactorLpdf(t, true, y, mu, sigma)
}

const multiNormalFunction = "multi_normal_lpdf"

func multiNormalLpdf(t *autodiff.Tape, propto bool, y, mu []autodiff.Var, sigma autodiff.Matrix) (autodiff.Var, error) {
	if err := checkMultiNormal(y, mu); err != nil {
		return autodiff.Var{}, err
	}
	if err := check.Square(multiNormalFunction, "Covariance matrix", sigma.Rows, sigma.Cols); err != nil {
		return autodiff.Var{}, err
	}
	if err := sameSize("Covariance matrix rows", sigma.Rows, "Random variable", len(y)); err != nil {
		return autodiff.Var{}, err
	}
	if len(y) == 0 {
		return autodiff.Constant(0), nil
	}
	sigmaConstant := allConstant(sigma.Data)
	if propto && sigmaConstant && allConstant(y) && allConstant(mu) {
		return autodiff.Constant(0), nil
	}
	mustHaveTape(t)

	f, err := ldlt.Compute(t, sigma)
	if err != nil {
		return autodiff.Var{}, err
	}
	return multiNormalFactored(t, propto, y, mu, f, sigmaConstant)
}

func multiNormalFactorLpdf(t *autodiff.Tape, propto bool, y, mu []autodiff.Var, f *ldlt.Factor) (autodiff.Var, error) {
	if err := checkMultiNormal(y, mu); err != nil {
		return autodiff.Var{}, err
	}
	if err := sameSize("Covariance matrix rows", f.N(), "Random variable", len(y)); err != nil {
		return autodiff.Var{}, err
	}
	sigmaConstant := allConstant(f.Matrix().Data)
	if propto && sigmaConstant && allConstant(y) && allConstant(mu) {
		return autodiff.Constant(0), nil
	}
	mustHaveTape(t)
	return multiNormalFactored(t, propto, y, mu, f, sigmaConstant)
}

func multiNormalFactored(t *autodiff.Tape, propto bool, y, mu []autodiff.Var, f *ldlt.Factor, sigmaConstant bool) (autodiff.Var, error) {
	diff := make([]autodiff.Var, len(y))
	for i := range y {
		diff[i] = t.Sub(y[i], mu[i])
	}
	quad, err := ldlt.TraceInvQuad(t, f, diff)
	if err != nil {
		return autodiff.Var{}, err
	}
	logp := t.Mul(autodiff.Constant(-0.5), quad)

	if !propto || !sigmaConstant {
		ld, err := ldlt.LogDeterminant(t, f)
		if err != nil {
			return autodiff.Var{}, err
		}
		logp = t.Sub(logp, t.Mul(autodiff.Constant(0.5), ld))
	}
	if !propto {
		logp = t.Add(logp, autodiff.Constant(-0.5*float64(len(y))*math.Log(2*math.Pi)))
	}
	return logp, nil
}

func checkMultiNormal(y, mu []autodiff.Var) error {
	if err := check.NotNaN(multiNormalFunction, "Random variable", vars(y)); err != nil {
		return err
	}
	if err := check.Finite(multiNormalFunction, "Location parameter", vars(mu)); err != nil {
		return err
	}
	return sameSize("Location parameter", len(mu), "Random variable", len(y))
}

// sameSize requires an exact length match.
func sameSize(name string, size int, expected string, want int) error {
	if size == want {
		return nil
	}
	return errors.WithStack(&check.SizeError{
		Function: multiNormalFunction,
		Name:     name,
		Size:     size,
		Expected: expected,
		Want:     want,
	})
}

func mustHaveTape(t *autodiff.Tape) {
	if t == nil {
		panic(multiNormalFunction + ": needs a tape")
	}
}

// vars adapts a slice of Vars to check.Values.
type vars []autodiff.Var

func (v vars) Len() int          { return len(v) }
func (v vars) Val(i int) float64 { return v[i].Val() }
func (v vars) IsVector() bool    { return true }

func allConstant(xs []autodiff.Var) bool {
	for _, x := range xs {
		if !x.IsConstant() {
			return false
		}
	}
	return true
}
