package prob

import (
	"math"

	"github.com/born-ml/adjoint/internal/autodiff"
	"github.com/born-ml/adjoint/internal/check"
	"github.com/born-ml/adjoint/internal/partials"
)

// NormalLpdf returns the log of the normal density of y given location mu
// and scale sigma.
//
//	log N(y | μ, σ) = -log √(2π) - log σ - ½((y-μ)/σ)²
//
// Partials:
//
//	∂/∂y = -(y-μ)/σ²
//	∂/∂μ =  (y-μ)/σ²
//	∂/∂σ = -1/σ + (y-μ)²/σ³
func NormalLpdf[Y, M, S partials.Operand](t *autodiff.Tape, y Y, mu M, sigma S) (autodiff.Var, error) {
	return normalLpdf(t, false, partials.Of(y), partials.Of(mu), partials.Of(sigma))
}

// NormalLpdfPropto is NormalLpdf without the terms that are constant in the
// differentiable operands.
func NormalLpdfPropto[Y, M, S partials.Operand](t *autodiff.Tape, y Y, mu M, sigma S) (autodiff.Var, error) {
	return normalLpdf(t, true, partials.Of(y), partials.Of(mu), partials.Of(sigma))
}

func normalLpdf(t *autodiff.Tape, propto bool, y, mu, sigma partials.Edge) (autodiff.Var, error) {
	const function = "normal_lpdf"
	if err := check.NotNaN(function, "Random variable", &y); err != nil {
		return autodiff.Var{}, err
	}
	if err := check.Finite(function, "Location parameter", &mu); err != nil {
		return autodiff.Var{}, err
	}
	if err := check.Positive(function, "Scale parameter", &sigma); err != nil {
		return autodiff.Var{}, err
	}
	if err := check.ConsistentSizes(function,
		check.Named("Random variable", &y),
		check.Named("Location parameter", &mu),
		check.Named("Scale parameter", &sigma)); err != nil {
		return autodiff.Var{}, err
	}

	if !include(propto, &y, &mu, &sigma) || partials.SizeZero(y, mu, sigma) {
		return autodiff.Constant(0), nil
	}
	includeConst := include(propto)
	includeSigma := include(propto, &sigma)

	op := partials.New(t, y, mu, sigma)
	dy, dmu, dsigma := op.Edge(0), op.Edge(1), op.Edge(2)

	var logp float64
	n := partials.MaxSize(y, mu, sigma)
	for i := 0; i < n; i++ {
		s := sigma.Val(i)
		invSigma := 1 / s
		z := (y.Val(i) - mu.Val(i)) * invSigma
		z2 := z * z

		if includeConst {
			logp += negLogSqrtTwoPi
		}
		if includeSigma {
			logp -= math.Log(s)
		}
		logp -= 0.5 * z2

		scaled := invSigma * z
		dy.Partials.Add(i, -scaled)
		dmu.Partials.Add(i, scaled)
		dsigma.Partials.Add(i, -invSigma+invSigma*z2)
	}
	return op.Build(logp), nil
}
