package optim

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"github.com/born-ml/adjoint/internal/autodiff"
	"github.com/born-ml/adjoint/internal/ctxlog"
)

// Options controls the Minimize loop.
type Options struct {
	Maximize      bool    // Ascend instead of descend
	MaxIterations int     // Iteration limit (default: 1000)
	Tolerance     float64 // Stop when |Δf| <= Tolerance·max(1, |f|) (default: 1e-8)
	LogEvery      int     // Log progress every n iterations, 0 disables
}

// Result is the outcome of Minimize.
type Result struct {
	X          []float64 // Last evaluated point
	Value      float64   // Objective at X (sign as returned by f)
	Gradient   []float64 // Gradient at X
	Iterations int       // Gradient evaluations performed
	Converged  bool      // Stopped on tolerance rather than the iteration limit
}

// Minimize repeatedly evaluates f and its gradient on t and feeds the
// gradient to opt, starting from x0 (which is not modified). opt is reset
// first.
//
// Each iteration is an independent forward/reverse pass: t is reset after
// every evaluation, so memory stays bounded no matter how many iterations
// run. t must not be inside a nested scope.
//
// The loop stops when the objective changes by less than the tolerance, when
// the iteration limit is reached, or when ctx is done; cancellation is
// checked between iterations and returns ctx.Err() with the last evaluated
// point. A non-finite objective or gradient aborts with an error.
func Minimize(ctx context.Context, t *autodiff.Tape, f autodiff.Func, x0 []float64, opt Optimizer, opts Options) (Result, error) {
	if opts.MaxIterations == 0 {
		opts.MaxIterations = 1000
	}
	if opts.Tolerance == 0 {
		opts.Tolerance = 1e-8
	}
	logger := ctxlog.FromContext(ctx)
	opt.Reset()
	sign := 1.0
	if opts.Maximize {
		sign = -1
	}

	x := append([]float64(nil), x0...)
	res := Result{X: append([]float64(nil), x0...)}
	step := make([]float64, len(x0))
	prev := math.Inf(1)

	for res.Iterations < opts.MaxIterations {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		fx, grad, err := t.Gradient(f, x)
		t.Reset()
		if err != nil {
			return res, errors.Wrapf(err, "optim: iteration %d", res.Iterations+1)
		}
		res.Iterations++
		if !finite(fx, grad) {
			return res, errors.Errorf("optim: objective or gradient is not finite at iteration %d (f = %v)", res.Iterations, fx)
		}
		copy(res.X, x)
		res.Value, res.Gradient = fx, grad

		obj := sign * fx
		if opts.LogEvery > 0 && res.Iterations%opts.LogEvery == 0 {
			logger.Debug("optimizer progress", "iteration", res.Iterations, "value", fx, "lr", opt.GetLR())
		}
		if math.Abs(prev-obj) <= opts.Tolerance*math.Max(1, math.Abs(obj)) {
			res.Converged = true
			break
		}
		prev = obj

		for i, g := range grad {
			step[i] = sign * g
		}
		opt.Step(x, step)
	}

	logger.Info("optimization finished",
		"iterations", res.Iterations,
		"value", res.Value,
		"converged", res.Converged)
	return res, nil
}

func finite(fx float64, grad []float64) bool {
	if math.IsNaN(fx) || math.IsInf(fx, 0) {
		return false
	}
	for _, g := range grad {
		if math.IsNaN(g) || math.IsInf(g, 0) {
			return false
		}
	}
	return true
}
