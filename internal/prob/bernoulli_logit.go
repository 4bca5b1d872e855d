package prob

import (
	"math"

	"github.com/born-ml/adjoint/internal/autodiff"
	"github.com/born-ml/adjoint/internal/check"
	"github.com/born-ml/adjoint/internal/partials"
)

// logitCutoff bounds |(2n-1)·θ| beyond which log(1 + e^-x) is replaced by its
// asymptote.
const logitCutoff = 20.0

// outcomes adapts a slice of 0/1 outcomes to check.Values.
type outcomes []int

func (o outcomes) Len() int          { return len(o) }
func (o outcomes) Val(i int) float64 { return float64(o[i]) }
func (o outcomes) IsVector() bool    { return true }

func (o outcomes) at(i int) int {
	if len(o) == 1 {
		return o[0]
	}
	return o[i]
}

// BernoulliLogitLpmf returns the log probability of the outcomes n (each 0
// or 1) under a Bernoulli distribution with success log-odds theta.
//
//	log p(n | θ) = -log(1 + exp(-(2n-1)θ))
//
// With x = (2n-1)θ, the log term is evaluated as -e^-x for x > 20 and as x
// for x < -20. The partials follow the same branches; for x > 20 that is
// (2n-1)·e^-x, the derivative of the asymptote actually evaluated, not -e^-x.
func BernoulliLogitLpmf[T partials.Operand](t *autodiff.Tape, n []int, theta T) (autodiff.Var, error) {
	return bernoulliLogitLpmf(t, false, outcomes(n), partials.Of(theta))
}

// BernoulliLogitLpmfPropto is BernoulliLogitLpmf, returning 0 when theta is
// constant.
func BernoulliLogitLpmfPropto[T partials.Operand](t *autodiff.Tape, n []int, theta T) (autodiff.Var, error) {
	return bernoulliLogitLpmf(t, true, outcomes(n), partials.Of(theta))
}

func bernoulliLogitLpmf(t *autodiff.Tape, propto bool, n outcomes, theta partials.Edge) (autodiff.Var, error) {
	const function = "bernoulli_logit_lpmf"
	if err := check.Bounded(function, "n", n, 0, 1); err != nil {
		return autodiff.Var{}, err
	}
	if err := check.NotNaN(function, "Logit transformed probability parameter", &theta); err != nil {
		return autodiff.Var{}, err
	}
	if err := check.ConsistentSizes(function,
		check.Named("Random variable", n),
		check.Named("Probability parameter", &theta)); err != nil {
		return autodiff.Var{}, err
	}
	if !include(propto, &theta) || len(n) == 0 || theta.Len() == 0 {
		return autodiff.Constant(0), nil
	}

	op := partials.New(t, theta)
	dtheta := op.Edge(0)

	var logp float64
	size := max(len(n), theta.Len())
	for i := 0; i < size; i++ {
		sign := float64(2*n.at(i) - 1)
		x := sign * theta.Val(i)
		e := math.Exp(-x)

		switch {
		case x > logitCutoff:
			logp -= e
			dtheta.Partials.Add(i, sign*e)
		case x < -logitCutoff:
			logp += x
			dtheta.Partials.Add(i, sign)
		default:
			logp -= math.Log1p(e)
			dtheta.Partials.Add(i, sign*e/(e+1))
		}
	}
	return op.Build(logp), nil
}
