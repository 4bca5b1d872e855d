// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package prob provides differentiable log densities and log mass functions.
//
// Every scalar-parameter function accepts any mix of float64, []float64,
// autodiff.Var and []autodiff.Var. Vector operands are combined
// elementwise, scalars broadcast, and the result is the sum over all
// positions:
//
//	tape := autodiff.NewTape()
//	mu := tape.NewVar(0.5)
//	lp, err := prob.NormalLpdf(tape, []float64{0.1, 0.9, 1.3}, mu, 2.0)
//
// Argument errors are returned as *DomainError or *SizeError.
package prob

import (
	"github.com/born-ml/adjoint/autodiff"
	"github.com/born-ml/adjoint/internal/check"
	"github.com/born-ml/adjoint/internal/partials"
	"github.com/born-ml/adjoint/internal/prob"
)

// Operand is any argument a scalar-parameter distribution accepts.
type Operand = partials.Operand

// DomainError reports an argument outside its valid domain.
type DomainError = check.DomainError

// SizeError reports vector arguments whose sizes do not match.
type SizeError = check.SizeError

// NormalLpdf returns log N(y | mu, sigma).
func NormalLpdf[Y, M, S Operand](t *autodiff.Tape, y Y, mu M, sigma S) (autodiff.Var, error) {
	return prob.NormalLpdf(t, y, mu, sigma)
}

// NormalLpdfPropto is NormalLpdf up to terms constant in the
// differentiable operands.
func NormalLpdfPropto[Y, M, S Operand](t *autodiff.Tape, y Y, mu M, sigma S) (autodiff.Var, error) {
	return prob.NormalLpdfPropto(t, y, mu, sigma)
}

// GumbelLcdf returns log F(y | mu, beta) of the Gumbel distribution.
func GumbelLcdf[Y, M, B Operand](t *autodiff.Tape, y Y, mu M, beta B) (autodiff.Var, error) {
	return prob.GumbelLcdf(t, y, mu, beta)
}

// ExpModNormalLpdf returns the log density of the exponentially modified
// normal distribution.
func ExpModNormalLpdf[Y, M, S, L Operand](t *autodiff.Tape, y Y, mu M, sigma S, lambda L) (autodiff.Var, error) {
	return prob.ExpModNormalLpdf(t, y, mu, sigma, lambda)
}

// ExpModNormalLpdfPropto is ExpModNormalLpdf up to terms constant in the
// differentiable operands.
func ExpModNormalLpdfPropto[Y, M, S, L Operand](t *autodiff.Tape, y Y, mu M, sigma S, lambda L) (autodiff.Var, error) {
	return prob.ExpModNormalLpdfPropto(t, y, mu, sigma, lambda)
}

// BernoulliLogitLpmf returns the log probability of the 0/1 outcomes n given
// success log-odds theta.
func BernoulliLogitLpmf[T Operand](t *autodiff.Tape, n []int, theta T) (autodiff.Var, error) {
	return prob.BernoulliLogitLpmf(t, n, theta)
}

// BernoulliLogitLpmfPropto is BernoulliLogitLpmf, returning 0 when theta is
// constant.
func BernoulliLogitLpmfPropto[T Operand](t *autodiff.Tape, n []int, theta T) (autodiff.Var, error) {
	return prob.BernoulliLogitLpmfPropto(t, n, theta)
}

// MultiNormalLpdf returns log N(y | mu, sigma) for a k-dimensional y.
func MultiNormalLpdf(t *autodiff.Tape, y, mu []autodiff.Var, sigma autodiff.Matrix) (autodiff.Var, error) {
	return prob.MultiNormalLpdf(t, y, mu, sigma)
}

// MultiNormalLpdfPropto is MultiNormalLpdf up to terms constant in the
// differentiable operands.
func MultiNormalLpdfPropto(t *autodiff.Tape, y, mu []autodiff.Var, sigma autodiff.Matrix) (autodiff.Var, error) {
	return prob.MultiNormalLpdfPropto(t, y, mu, sigma)
}

// MultiNormalFactorLpdf is MultiNormalLpdf with sigma given by
// autodiff.Cholesky, so observations sharing sigma share one factorization.
func MultiNormalFactorLpdf(t *autodiff.Tape, y, mu []autodiff.Var, sigma *autodiff.Factor) (autodiff.Var, error) {
	return prob.MultiNormalFactorLpdf(t, y, mu, sigma)
}

// MultiNormalFactorLpdfPropto is MultiNormalLpdfPropto with sigma given by
// autodiff.Cholesky.
func MultiNormalFactorLpdfPropto(t *autodiff.Tape, y, mu []autodiff.Var, sigma *autodiff.Factor) (autodiff.Var, error) {
	return prob.MultiNormalFactorLpdfPropto(t, y, mu, sigma)
}
