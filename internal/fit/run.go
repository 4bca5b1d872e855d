package fit

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/adjoint/internal/autodiff"
	"github.com/born-ml/adjoint/internal/ctxlog"
	"github.com/born-ml/adjoint/internal/optim"
	"github.com/born-ml/adjoint/internal/parallel"
)

// Options controls Run.
type Options struct {
	Parallel parallel.Config
	LogEvery int // Optimizer progress interval, 0 disables
}

// StartResult is the optimum reached from one start.
type StartResult struct {
	Start      string
	Params     []string
	X          []float64 // Mode estimate, in Params order
	StdErr     []float64 // sqrt(diag(-H⁻¹)) at X; NaN when -H is not positive definite
	LogDensity float64
	Iterations int
	Converged  bool
}

// Run maximizes the model's log density from every start of f. Results are
// in start order. The first failing start cancels the others.
func Run(ctx context.Context, f *File, opts Options) ([]StartResult, error) {
	results := make([]StartResult, len(f.Starts))
	err := parallel.ForEach(ctx, len(f.Starts),
		func() *autodiff.Tape { return autodiff.NewTape() },
		func(ctx context.Context, tape *autodiff.Tape, i int) error {
			s := f.Starts[i]
			ctx = ctxlog.WithLogger(ctx, ctxlog.FromContext(ctx).With("start", s.Name))
			res, err := runStart(ctx, tape, f, s, opts)
			if err != nil {
				return errors.Wrapf(err, "start %q", s.Name)
			}
			results[i] = res
			return nil
		}, opts.Parallel)
	if err != nil {
		return nil, err
	}
	return results, nil
}

func runStart(ctx context.Context, tape *autodiff.Tape, f *File, s Start, opts Options) (StartResult, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("starting optimization", "model", f.Model.Kind(), "x0", s.X)

	res, err := optim.Minimize(ctx, tape, f.Model.LogDensity, s.X, newOptimizer(f.Optimizer), optim.Options{
		Maximize:      true,
		MaxIterations: f.Optimizer.MaxIterations,
		Tolerance:     f.Optimizer.Tolerance,
		LogEvery:      opts.LogEvery,
	})
	if err != nil {
		return StartResult{}, err
	}

	_, _, hess, err := tape.Hessian(f.Model.LogDensity, res.X)
	tape.Reset()
	if err != nil {
		return StartResult{}, errors.Wrap(err, "hessian")
	}
	stdErr := standardErrors(hess, len(res.X))
	if len(stdErr) > 0 && math.IsNaN(stdErr[0]) {
		logger.Warn("negative hessian is not positive definite at the optimum")
	}

	return StartResult{
		Start:      s.Name,
		Params:     f.Model.Params(),
		X:          res.X,
		StdErr:     stdErr,
		LogDensity: res.Value,
		Iterations: res.Iterations,
		Converged:  res.Converged,
	}, nil
}

func newOptimizer(cfg OptimizerConfig) optim.Optimizer {
	if cfg.Method == "sgd" {
		return optim.NewSGD(optim.SGDConfig{LR: cfg.LearningRate, Momentum: cfg.Momentum})
	}
	return optim.NewAdam(optim.AdamConfig{LR: cfg.LearningRate})
}

// standardErrors inverts the negative Hessian. All entries are NaN when it
// is not positive definite.
func standardErrors(hess *mat.SymDense, n int) []float64 {
	se := make([]float64, n)
	if n == 0 {
		return se
	}
	var neg mat.SymDense
	neg.ScaleSym(-1, hess)

	var chol mat.Cholesky
	var cov mat.SymDense
	if !chol.Factorize(&neg) || chol.InverseTo(&cov) != nil {
		for i := range se {
			se[i] = math.NaN()
		}
		return se
	}
	for i := range se {
		se[i] = math.Sqrt(cov.At(i, i))
	}
	return se
}

// Best returns the index of the result with the highest log density, or -1
// for an empty slice.
func Best(results []StartResult) int {
	best := -1
	for i, r := range results {
		if best < 0 || r.LogDensity > results[best].LogDensity {
			best = i
		}
	}
	return best
}
