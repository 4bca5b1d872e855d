// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"context"

	"github.com/born-ml/adjoint/autodiff"
	"github.com/born-ml/adjoint/internal/optim"
)

// Optimizer interface defines the common interface for all optimizers.
type Optimizer = optim.Optimizer

// Config represents the base configuration for optimizers.
type Config = optim.Config

// SGD (Stochastic Gradient Descent)

// SGD represents the SGD optimizer with optional momentum.
type SGD = optim.SGD

// SGDConfig contains configuration for SGD optimizer.
type SGDConfig = optim.SGDConfig

// NewSGD creates a new SGD optimizer.
//
// Example:
//
//	optimizer := optim.NewSGD(optim.SGDConfig{
//	    LR:       0.01,
//	    Momentum: 0.9,
//	})
func NewSGD(config SGDConfig) *SGD {
	return optim.NewSGD(config)
}

// Adam (Adaptive Moment Estimation)

// Adam represents the Adam optimizer.
type Adam = optim.Adam

// AdamConfig contains configuration for Adam optimizer.
type AdamConfig = optim.AdamConfig

// NewAdam creates a new Adam optimizer.
//
// Example:
//
//	optimizer := optim.NewAdam(optim.AdamConfig{LR: 0.001})
func NewAdam(config AdamConfig) *Adam {
	return optim.NewAdam(config)
}

// Driver loop

// Options controls Minimize.
type Options = optim.Options

// Result is the outcome of Minimize.
type Result = optim.Result

// Minimize repeatedly evaluates f and its gradient on t and steps opt from
// x0 until the objective stops changing, the iteration limit is reached or
// ctx is done. Set Options.Maximize to ascend instead.
func Minimize(ctx context.Context, t *autodiff.Tape, f autodiff.Func, x0 []float64, opt Optimizer, opts Options) (Result, error) {
	return optim.Minimize(ctx, t, f, x0, opt, opts)
}
