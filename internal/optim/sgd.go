package optim

import "fmt"

// SGD implements gradient descent with optional momentum.
//
// Update rule without momentum:
//
//	x = x - lr * gradient
//
// Update rule with momentum:
//
//	velocity = momentum * velocity + gradient
//	x = x - lr * velocity
//
// Momentum helps accelerate descent in relevant directions and dampens oscillations.
//
// Example:
//
//	optimizer := optim.NewSGD(optim.SGDConfig{
//	    LR:       0.01,
//	    Momentum: 0.9,
//	})
type SGD struct {
	lr       float64
	momentum float64
	velocity []float64
}

// SGDConfig holds configuration for SGD optimizer.
type SGDConfig struct {
	LR       float64 // Learning rate (default: 0.01)
	Momentum float64 // Momentum factor (default: 0.0, range: [0, 1))
}

// NewSGD creates a new SGD optimizer.
//
// Panics if the momentum is outside [0, 1).
func NewSGD(config SGDConfig) *SGD {
	// Set defaults
	if config.LR == 0 {
		config.LR = 0.01
	}
	if config.Momentum < 0 || config.Momentum >= 1 {
		panic(fmt.Sprintf("optim: SGD momentum must be in [0, 1), got %g", config.Momentum))
	}

	return &SGD{
		lr:       config.LR,
		momentum: config.Momentum,
	}
}

// Step performs a single optimization step.
func (s *SGD) Step(x, grad []float64) {
	if len(x) != len(grad) {
		panic(fmt.Sprintf("optim: %d parameters but %d gradients", len(x), len(grad)))
	}
	if s.momentum == 0 {
		for i := range x {
			x[i] -= s.lr * grad[i]
		}
		return
	}

	s.velocity = grow(s.velocity, len(x))
	for i := range x {
		s.velocity[i] = s.momentum*s.velocity[i] + grad[i]
		x[i] -= s.lr * s.velocity[i]
	}
}

// Reset clears the velocities.
func (s *SGD) Reset() {
	s.velocity = nil
}

// GetLR returns the current learning rate.
func (s *SGD) GetLR() float64 {
	return s.lr
}

// SetLR sets a new learning rate.
func (s *SGD) SetLR(lr float64) {
	s.lr = lr
}

// GetMomentum returns the momentum factor.
func (s *SGD) GetMomentum() float64 {
	return s.momentum
}
