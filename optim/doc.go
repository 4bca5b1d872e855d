// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides first-order optimizers and a driver loop for scalar
// objectives differentiated with autodiff.
//
// # Overview
//
// This package contains:
//   - SGD: gradient descent with optional momentum
//   - Adam: Adaptive Moment Estimation with bias correction
//   - Minimize: the evaluate, differentiate, step loop
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/adjoint/autodiff"
//	    "github.com/born-ml/adjoint/optim"
//	)
//
//	func main() {
//	    tape := autodiff.NewTape()
//	    f := func(t *autodiff.Tape, x []autodiff.Var) (autodiff.Var, error) {
//	        return autodiff.DotSelf(t, x), nil
//	    }
//
//	    res, err := optim.Minimize(ctx, tape, f, []float64{1, -2},
//	        optim.NewAdam(optim.AdamConfig{LR: 0.05}),
//	        optim.Options{MaxIterations: 500},
//	    )
//	}
//
// # Optimizers
//
// SGD (Stochastic Gradient Descent):
//
//	optimizer := optim.NewSGD(optim.SGDConfig{
//	    LR:       0.01,
//	    Momentum: 0.9,
//	})
//
// Adam (Adaptive Moment Estimation):
//
//	optimizer := optim.NewAdam(optim.AdamConfig{
//	    LR:    0.001,
//	    Betas: [2]float64{0.9, 0.999},
//	    Eps:   1e-8,
//	})
//
// Optimizers keep per-parameter state; use one optimizer per concurrent
// minimization.
package optim
