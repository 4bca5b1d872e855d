package prob

import (
	"math"

	"github.com/born-ml/adjoint/internal/autodiff"
	"github.com/born-ml/adjoint/internal/check"
	"github.com/born-ml/adjoint/internal/partials"
)

// ExpModNormalLpdf returns the log density of the exponentially modified
// normal distribution: the sum of a normal(mu, sigma) and an independent
// exponential(lambda) variable.
//
//	log p(y) = log λ - log 2 + λ(μ + ½λσ² - y) + log erfc((μ + λσ² - y) / (√2 σ))
func ExpModNormalLpdf[Y, M, S, L partials.Operand](t *autodiff.Tape, y Y, mu M, sigma S, lambda L) (autodiff.Var, error) {
	return expModNormalLpdf(t, false, partials.Of(y), partials.Of(mu), partials.Of(sigma), partials.Of(lambda))
}

// ExpModNormalLpdfPropto is ExpModNormalLpdf up to terms constant in the
// differentiable operands.
func ExpModNormalLpdfPropto[Y, M, S, L partials.Operand](t *autodiff.Tape, y Y, mu M, sigma S, lambda L) (autodiff.Var, error) {
	return expModNormalLpdf(t, true, partials.Of(y), partials.Of(mu), partials.Of(sigma), partials.Of(lambda))
}

func expModNormalLpdf(t *autodiff.Tape, propto bool, y, mu, sigma, lambda partials.Edge) (autodiff.Var, error) {
	const function = "exp_mod_normal_lpdf"
	if err := check.NotNaN(function, "Random variable", &y); err != nil {
		return autodiff.Var{}, err
	}
	if err := check.Finite(function, "Location parameter", &mu); err != nil {
		return autodiff.Var{}, err
	}
	if err := check.PositiveFinite(function, "Inv_scale parameter", &lambda); err != nil {
		return autodiff.Var{}, err
	}
	if err := check.PositiveFinite(function, "Scale parameter", &sigma); err != nil {
		return autodiff.Var{}, err
	}
	if err := check.ConsistentSizes(function,
		check.Named("Random variable", &y),
		check.Named("Location parameter", &mu),
		check.Named("Scale parameter", &sigma),
		check.Named("Inv_scale parameter", &lambda)); err != nil {
		return autodiff.Var{}, err
	}

	if !include(propto, &y, &mu, &sigma, &lambda) || partials.SizeZero(y, mu, sigma, lambda) {
		return autodiff.Constant(0), nil
	}
	includeConst := include(propto)
	includeLambda := include(propto, &lambda)

	op := partials.New(t, y, mu, sigma, lambda)
	dy, dmu, dsigma, dlambda := op.Edge(0), op.Edge(1), op.Edge(2), op.Edge(3)

	var logp float64
	n := partials.MaxSize(y, mu, sigma, lambda)
	for i := 0; i < n; i++ {
		yv, m, s, l := y.Val(i), mu.Val(i), sigma.Val(i), lambda.Val(i)
		v := m + l*s*s - yv
		z := v / (math.Sqrt2 * s)
		erfc := math.Erfc(z)

		if includeConst {
			logp -= math.Ln2
		}
		if includeLambda {
			logp += math.Log(l)
		}
		logp += l*(m+0.5*l*s*s-yv) + math.Log(erfc)

		// d/dz log erfc(z)
		dlogErfc := -2 / math.SqrtPi * math.Exp(-z*z) / erfc

		dy.Partials.Add(i, -l-dlogErfc/(math.Sqrt2*s))
		dmu.Partials.Add(i, l+dlogErfc/(math.Sqrt2*s))
		dsigma.Partials.Add(i, s*l*l+dlogErfc*(-m/(s*s*math.Sqrt2)+l/math.Sqrt2+yv/(s*s*math.Sqrt2)))
		dlambda.Partials.Add(i, 1/l+l*s*s+m-yv+dlogErfc*s/math.Sqrt2)
	}
	return op.Build(logp), nil
}
