// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides reverse-mode automatic differentiation of scalar
// functions.
//
// A Tape records every elementary operation of one forward evaluation into an
// arena. Backward replays the records in reverse and leaves ∂root/∂x in every
// variable's adjoint. Reset releases the whole pass at once and keeps the
// memory for the next one.
//
// Example:
//
//	import "github.com/born-ml/adjoint/autodiff"
//
//	func main() {
//	    tape := autodiff.NewTape()
//	    x := tape.NewVar(3)
//	    y := tape.NewVar(2)
//
//	    f := tape.Mul(tape.Square(x), y) // f = x² · y
//	    tape.Backward(f)
//
//	    fmt.Println(f.Val(), x.Adj(), y.Adj()) // 18 12 9
//	    tape.Reset()
//	}
//
// Gradient, Jacobian and Hessian evaluate a whole function in a nested scope
// so the tape can be reused between calls:
//
//	fx, grad, err := tape.Gradient(func(t *autodiff.Tape, x []autodiff.Var) (autodiff.Var, error) {
//	    return autodiff.LogSumExp(t, x), nil
//	}, []float64{1, 2, 3})
package autodiff

import (
	"github.com/born-ml/adjoint/internal/arena"
	"github.com/born-ml/adjoint/internal/autodiff"
	"github.com/born-ml/adjoint/internal/autodiff/ops"
	"github.com/born-ml/adjoint/internal/ldlt"
)

// Tape records operations for automatic differentiation.
type Tape = autodiff.Tape

// Var is a differentiable scalar: a constant or a handle to a node on a Tape.
type Var = autodiff.Var

// Vari is a node of the computation graph.
type Vari = autodiff.Vari

// Chainer is implemented by custom nodes with their own reverse step.
type Chainer = autodiff.Chainer

// Func is a scalar function of a vector, evaluated on a Tape.
type Func = autodiff.Func

// VecFunc is a vector function of a vector, evaluated on a Tape.
type VecFunc = autodiff.VecFunc

// Matrix is a dense row-major matrix of Vars.
type Matrix = autodiff.Matrix

// Option configures a Tape.
type Option = autodiff.Option

// ArenaConfig sizes the arena behind a Tape.
type ArenaConfig = arena.Config

// Factor is a Cholesky factorization of a symmetric positive-definite Matrix.
type Factor = ldlt.Factor

// NewTape creates an empty tape.
func NewTape(opts ...Option) *Tape {
	return autodiff.NewTape(opts...)
}

// DefaultArenaConfig returns the arena sizing NewTape uses.
func DefaultArenaConfig() ArenaConfig {
	return arena.DefaultConfig()
}

// WithArenaConfig sets the arena sizing of a new Tape.
func WithArenaConfig(cfg ArenaConfig) Option {
	return autodiff.WithArenaConfig(cfg)
}

// WithCapacity preallocates room for n recorded nodes.
func WithCapacity(n int) Option {
	return autodiff.WithCapacity(n)
}

// Constant returns a Var that is never differentiated.
func Constant(x float64) Var {
	return autodiff.Constant(x)
}

// Constants wraps every value of xs with Constant.
func Constants(xs []float64) []Var {
	return autodiff.Constants(xs)
}

// NewMatrix builds a rows×cols Matrix over data in row-major order.
func NewMatrix(rows, cols int, data []Var) Matrix {
	return autodiff.NewMatrix(rows, cols, data)
}

// Vals returns the values of xs.
func Vals(xs []Var) []float64 {
	return autodiff.Vals(xs)
}

// Adjs returns the adjoints of xs.
func Adjs(xs []Var) []float64 {
	return autodiff.Adjs(xs)
}

// Sum returns Σ xs.
func Sum(t *Tape, xs []Var) Var {
	return ops.Sum(t, xs)
}

// Dot returns Σ aᵢ·bᵢ.
func Dot(t *Tape, a, b []Var) Var {
	return ops.Dot(t, a, b)
}

// DotSelf returns Σ xᵢ².
func DotSelf(t *Tape, xs []Var) Var {
	return ops.DotSelf(t, xs)
}

// LogSumExp returns log Σ exp(xᵢ), evaluated without overflow.
func LogSumExp(t *Tape, xs []Var) Var {
	return ops.LogSumExp(t, xs)
}

// Scale returns c·xᵢ for every element of xs.
func Scale(t *Tape, c Var, xs []Var) []Var {
	return ops.Scale(t, c, xs)
}

// Softmax returns exp(xᵢ) / Σ exp(xⱼ).
func Softmax(t *Tape, xs []Var) []Var {
	return ops.Softmax(t, xs)
}

// Cholesky factors the symmetric positive-definite matrix a. The factor is
// released when t is reset or the enclosing nested scope is recovered.
func Cholesky(t *Tape, a Matrix) (*Factor, error) {
	return ldlt.Compute(t, a)
}

// LogDeterminant returns log |A| for the factored matrix A.
func LogDeterminant(t *Tape, f *Factor) (Var, error) {
	return ldlt.LogDeterminant(t, f)
}

// TraceInvQuad returns bᵀ A⁻¹ b for the factored matrix A.
func TraceInvQuad(t *Tape, f *Factor, b []Var) (Var, error) {
	return ldlt.TraceInvQuad(t, f, b)
}

// Solve returns x with A x = b for the factored matrix A.
func Solve(t *Tape, f *Factor, b []Var) ([]Var, error) {
	return ldlt.Solve(t, f, b)
}
