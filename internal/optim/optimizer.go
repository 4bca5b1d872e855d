// Package optim implements first-order optimizers driven by reverse-mode
// gradients.
//
// This package provides:
//   - Optimizer interface: Base interface for all optimizers
//   - SGD: Gradient descent with momentum
//   - Adam: Adaptive Moment Estimation
//   - Minimize: the evaluation loop tying an objective on a Tape to an optimizer
//
// Example usage:
//
//	opt := optim.NewAdam(optim.AdamConfig{LR: 0.05})
//	res, err := optim.Minimize(ctx, tape, logDensity, x0, opt, optim.Options{
//	    Maximize:      true,
//	    MaxIterations: 2000,
//	})
package optim

// Optimizer is the base interface for all optimization algorithms.
//
// Optimizers always minimize; Minimize flips the sign of the gradient when
// asked to maximize.
type Optimizer interface {
	// Step updates x in place from the gradient at x.
	//
	// x and grad must have the same length on every call. Optimizer state
	// (velocities, moments) is kept per position.
	Step(x, grad []float64)

	// Reset clears accumulated state so the optimizer can start a new run.
	Reset()

	// GetLR returns the current learning rate.
	//
	// Useful for monitoring and learning rate scheduling.
	GetLR() float64

	// SetLR changes the learning rate.
	SetLR(lr float64)
}

// Config is the base configuration for all optimizers.
type Config struct {
	LR float64 // Learning rate
}

// grow returns s resized to n, zero-filled when (re)allocated.
func grow(s []float64, n int) []float64 {
	if len(s) == n {
		return s
	}
	return make([]float64, n)
}
