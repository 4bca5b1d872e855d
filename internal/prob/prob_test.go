package prob

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/born-ml/adjoint/internal/autodiff"
	"github.com/born-ml/adjoint/internal/check"
	"github.com/born-ml/adjoint/internal/ldlt"
)

// gradCheck compares the reverse-mode gradient of f at x against central
// finite differences of its value.
func gradCheck(t *testing.T, f autodiff.Func, x []float64, tol float64) {
	t.Helper()
	tape := autodiff.NewTape()
	_, grad, err := tape.Gradient(f, x)
	require.NoError(t, err)

	want := fd.Gradient(nil, func(xx []float64) float64 {
		fx, err := f(nil, autodiff.Constants(xx))
		require.NoError(t, err)
		return fx.Val()
	}, x, &fd.Settings{Formula: fd.Central})
	assert.InDeltaSlice(t, want, grad, tol)
}

func TestNormalLpdf_Value(t *testing.T) {
	ys := []float64{-1.5, 0.2, 3}
	lp, err := NormalLpdf(nil, ys, 0.5, 2.0)
	require.NoError(t, err)
	assert.True(t, lp.IsConstant())

	var want float64
	for _, y := range ys {
		want += distuv.Normal{Mu: 0.5, Sigma: 2}.LogProb(y)
	}
	assert.InDelta(t, want, lp.Val(), 1e-12)
}

func TestNormalLpdf_ConstantIsExact(t *testing.T) {
	tape := autodiff.NewTape()
	lp, err := NormalLpdf(tape, 1.0, 0.25, 1.5)
	require.NoError(t, err)

	z := (1.0 - 0.25) * (1 / 1.5)
	want := negLogSqrtTwoPi - math.Log(1.5) - 0.5*(z*z)
	assert.Equal(t, want, lp.Val())
	assert.Zero(t, tape.NumVaris())
	assert.Zero(t, tape.Arena().Stats().Used)
}

func TestNormalLpdf_Gradient(t *testing.T) {
	gradCheck(t, func(t *autodiff.Tape, x []autodiff.Var) (autodiff.Var, error) {
		return NormalLpdf(t, x[:3], x[3], x[4])
	}, []float64{0.1, -0.4, 2.2, 0.3, 1.7}, 1e-7)
}

// A size-1 location against three observations accumulates all three
// partials while each observation keeps its own.
func TestNormalLpdf_Broadcast(t *testing.T) {
	tape := autodiff.NewTape()
	y := tape.NewVars([]float64{1, 2, 4})
	mu := tape.NewVars([]float64{2})

	lp, err := NormalLpdf(tape, y, mu, 1.0)
	require.NoError(t, err)
	tape.Backward(lp)

	assert.Equal(t, []float64{1, 0, -2}, autodiff.Adjs(y))
	assert.InDelta(t, -1+0+2, mu[0].Adj(), 1e-15)
}

func TestNormalLpdfPropto(t *testing.T) {
	tape := autodiff.NewTape()
	mu := tape.NewVar(0.5)

	lp, err := NormalLpdfPropto(tape, []float64{1, 2}, mu, 2.0)
	require.NoError(t, err)
	assert.InDelta(t, -0.5*(0.25*0.25+0.75*0.75), lp.Val(), 1e-15)

	lp, err = NormalLpdfPropto(tape, []float64{1, 2}, 0.5, 2.0)
	require.NoError(t, err)
	assert.True(t, lp.IsConstant())
	assert.Zero(t, lp.Val())
}

func TestNormalLpdf_Errors(t *testing.T) {
	_, err := NormalLpdf(nil, 1.0, 0.0, -1.0)
	var domain *check.DomainError
	require.True(t, errors.As(err, &domain))
	assert.Equal(t, "normal_lpdf", domain.Function)
	assert.Equal(t, "Scale parameter", domain.Name)
	assert.Equal(t, -1, domain.Index)

	_, err = NormalLpdf(nil, []float64{1, math.NaN()}, 0.0, 1.0)
	require.True(t, errors.As(err, &domain))
	assert.Equal(t, 1, domain.Index)
	assert.Contains(t, err.Error(), "Random variable[2]")

	_, err = NormalLpdf(nil, 1.0, math.Inf(1), 1.0)
	require.True(t, errors.As(err, &domain))

	_, err = NormalLpdf(nil, []float64{1, 2, 3}, []float64{0, 0}, 1.0)
	var size *check.SizeError
	require.True(t, errors.As(err, &size))
	assert.Equal(t, 2, size.Size)
	assert.Equal(t, 3, size.Want)
}

func TestNormalLpdf_SizeZero(t *testing.T) {
	tape := autodiff.NewTape()
	lp, err := NormalLpdf(tape, []autodiff.Var{}, tape.NewVar(0), 1.0)
	require.NoError(t, err)
	assert.True(t, lp.IsConstant())
	assert.Zero(t, lp.Val())
}

func TestGumbelLcdf(t *testing.T) {
	ys := []float64{-1, 0.5, 4}
	lp, err := GumbelLcdf(nil, ys, 0.3, 1.4)
	require.NoError(t, err)

	var want float64
	for _, y := range ys {
		want += math.Log(distuv.GumbelRight{Mu: 0.3, Beta: 1.4}.CDF(y))
	}
	assert.InDelta(t, want, lp.Val(), 1e-12)

	gradCheck(t, func(t *autodiff.Tape, x []autodiff.Var) (autodiff.Var, error) {
		return GumbelLcdf(t, x[:3], x[3], x[4])
	}, []float64{-1, 0.5, 4, 0.3, 1.4}, 1e-7)
}

func TestGumbelLcdf_EmptyBeforeChecks(t *testing.T) {
	lp, err := GumbelLcdf(nil, []float64{}, math.NaN(), -1.0)
	require.NoError(t, err)
	assert.Zero(t, lp.Val())

	_, err = GumbelLcdf(nil, 1.0, 0.0, 0.0)
	require.Error(t, err)
}

func TestExpModNormalLpdf_Value(t *testing.T) {
	const (
		y, mu, sigma, lambda = 1.3, 0.4, 0.8, 1.5
	)
	lp, err := ExpModNormalLpdf(nil, y, mu, sigma, lambda)
	require.NoError(t, err)

	// Density of normal + exponential as a convolution over the exponential part.
	norm := distuv.Normal{Mu: mu, Sigma: sigma}
	expo := distuv.Exponential{Rate: lambda}
	p := quad.Fixed(func(x float64) float64 {
		return norm.Prob(y-x) * expo.Prob(x)
	}, 0, 40, 400, nil, 0)
	assert.InDelta(t, math.Log(p), lp.Val(), 1e-6)
}

func TestExpModNormalLpdf_Gradient(t *testing.T) {
	gradCheck(t, func(t *autodiff.Tape, x []autodiff.Var) (autodiff.Var, error) {
		return ExpModNormalLpdf(t, x[:2], x[2], x[3], x[4])
	}, []float64{1.3, -0.2, 0.4, 0.8, 1.5}, 1e-6)
}

func TestExpModNormalLpdf_Errors(t *testing.T) {
	_, err := ExpModNormalLpdf(nil, 1.0, 0.0, 1.0, math.Inf(1))
	var domain *check.DomainError
	require.True(t, errors.As(err, &domain))
	assert.Equal(t, "Inv_scale parameter", domain.Name)
}

func TestBernoulliLogitLpmf(t *testing.T) {
	n := []int{1, 0, 1, 1}
	theta := []float64{0.3, -1.2, 2.5, -0.7}

	lp, err := BernoulliLogitLpmf(nil, n, theta)
	require.NoError(t, err)

	var want float64
	for i := range n {
		p := 1 / (1 + math.Exp(-theta[i]))
		want += distuv.Bernoulli{P: p}.LogProb(float64(n[i]))
	}
	assert.InDelta(t, want, lp.Val(), 1e-12)

	gradCheck(t, func(t *autodiff.Tape, x []autodiff.Var) (autodiff.Var, error) {
		return BernoulliLogitLpmf(t, n, x)
	}, theta, 1e-7)
}

func TestBernoulliLogitLpmf_Cutoff(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		theta float64
		lp    float64
		grad  float64
	}{
		{"far positive", 1, 25, -math.Exp(-25), math.Exp(-25)},
		{"far negative", 1, -25, -25, 1},
		{"failure far positive", 0, 25, -25, -1},
		{"failure far negative", 0, -25, -math.Exp(-25), -math.Exp(-25)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tape := autodiff.NewTape()
			theta := tape.NewVar(tt.theta)
			lp, err := BernoulliLogitLpmf(tape, []int{tt.n}, theta)
			require.NoError(t, err)
			tape.Backward(lp)
			assert.Equal(t, tt.lp, lp.Val())
			assert.Equal(t, tt.grad, theta.Adj())
		})
	}
}

func TestBernoulliLogitLpmf_Errors(t *testing.T) {
	_, err := BernoulliLogitLpmf(nil, []int{0, 2}, 0.0)
	var domain *check.DomainError
	require.True(t, errors.As(err, &domain))
	assert.Equal(t, "n", domain.Name)
	assert.Equal(t, 1, domain.Index)

	_, err = BernoulliLogitLpmf(nil, []int{0, 1}, []float64{1, 2, 3})
	var size *check.SizeError
	require.True(t, errors.As(err, &size))
}

func TestMultiNormalLpdf(t *testing.T) {
	y := []float64{0.5, -1, 2}
	mu := []float64{0, 0.3, 1}
	cov := []float64{
		2, 0.3, 0.1,
		0.3, 1, 0.2,
		0.1, 0.2, 1.5,
	}

	tape := autodiff.NewTape()
	lp, err := MultiNormalLpdf(tape, autodiff.Constants(y), autodiff.Constants(mu),
		autodiff.NewMatrix(3, 3, autodiff.Constants(cov)))
	require.NoError(t, err)

	dist, ok := distmv.NewNormal(mu, mat.NewSymDense(3, cov), nil)
	require.True(t, ok)
	assert.InDelta(t, dist.LogProb(y), lp.Val(), 1e-12)
}

func TestMultiNormalLpdf_Gradient(t *testing.T) {
	// x = y (3), mu (3), then the upper triangle of the covariance (6).
	x0 := []float64{
		0.5, -1, 2,
		0, 0.3, 1,
		2, 0.3, 0.1, 1, 0.2, 1.5,
	}
	tape := autodiff.NewTape()
	_, grad, err := tape.Gradient(func(t *autodiff.Tape, x []autodiff.Var) (autodiff.Var, error) {
		return MultiNormalLpdf(t, x[:3], x[3:6], symmetric(3, x[6:]))
	}, x0)
	require.NoError(t, err)

	want := fd.Gradient(nil, func(x []float64) float64 {
		dist, ok := distmv.NewNormal(x[3:6], upperSym(3, x[6:]), nil)
		require.True(t, ok)
		return dist.LogProb(x[:3])
	}, x0, &fd.Settings{Formula: fd.Central})
	assert.InDeltaSlice(t, want, grad, 1e-6)
}

func TestMultiNormalLpdf_Errors(t *testing.T) {
	tape := autodiff.NewTape()
	_, err := MultiNormalLpdf(tape, autodiff.Constants([]float64{1, 2}), autodiff.Constants([]float64{0, 0}),
		autodiff.NewMatrix(3, 3, autodiff.Constants(make([]float64, 9))))
	var size *check.SizeError
	require.True(t, errors.As(err, &size))

	_, err = MultiNormalLpdf(tape, autodiff.Constants([]float64{1, 2}), autodiff.Constants([]float64{0, 0}),
		autodiff.NewMatrix(2, 2, autodiff.Constants([]float64{1, 0, 0, -1})))
	var domain *check.DomainError
	require.True(t, errors.As(err, &domain))

	// A length-1 location does not broadcast over a longer variate.
	identity3 := autodiff.NewMatrix(3, 3, autodiff.Constants([]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}))
	_, err = MultiNormalLpdf(tape, autodiff.Constants([]float64{1, 2, 3}), tape.NewVars([]float64{0}), identity3)
	require.True(t, errors.As(err, &size))
	assert.Equal(t, "Location parameter", size.Name)
	assert.Equal(t, 1, size.Size)
	assert.Equal(t, 3, size.Want)

	// Nor is a longer location truncated to a length-1 variate.
	_, err = MultiNormalLpdf(tape, autodiff.Constants([]float64{1}), tape.NewVars([]float64{0, 5, 9}),
		autodiff.NewMatrix(1, 1, autodiff.Constants([]float64{1})))
	require.True(t, errors.As(err, &size))
	assert.Equal(t, "Location parameter", size.Name)
	assert.Equal(t, 3, size.Size)
	assert.Equal(t, 1, size.Want)
}

func TestMultiNormalLpdf_NilTape(t *testing.T) {
	y := autodiff.Constants([]float64{1, 2})
	mu := autodiff.Constants([]float64{0, 0})
	sigma := autodiff.NewMatrix(2, 2, autodiff.Constants([]float64{1, 0, 0, 1}))

	assert.PanicsWithValue(t, "multi_normal_lpdf: needs a tape", func() {
		_, _ = MultiNormalLpdf(nil, y, mu, sigma)
	})

	// An all-constant proportional density is 0 and records nothing.
	lp, err := MultiNormalLpdfPropto(nil, y, mu, sigma)
	require.NoError(t, err)
	assert.True(t, lp.IsConstant())
	assert.Equal(t, 0.0, lp.Val())
}

func TestMultiNormalFactorLpdf(t *testing.T) {
	rows := [][]float64{{0.5, -1}, {1, 0.2}, {-0.3, 0.4}}
	cov := []float64{2, 0.3, 0.3, 1}
	mu0 := []float64{0.1, -0.2}

	tape := autodiff.NewTape()
	sigma := autodiff.NewMatrix(2, 2, autodiff.Constants(cov))
	f, err := ldlt.Compute(tape, sigma)
	require.NoError(t, err)
	require.Equal(t, 1, tape.Arena().Stats().Cleanups)

	mu := tape.NewVars(mu0)
	var shared autodiff.Var
	for _, y := range rows {
		lp, err := MultiNormalFactorLpdf(tape, autodiff.Constants(y), mu, f)
		require.NoError(t, err)
		shared = tape.Add(shared, lp)
	}
	tape.Backward(shared)
	sharedGrad := autodiff.Adjs(mu)
	assert.Equal(t, 1, tape.Arena().Stats().Cleanups)

	_, err = MultiNormalFactorLpdfPropto(tape, autodiff.Constants([]float64{1, 2, 3}), mu, f)
	var size *check.SizeError
	require.True(t, errors.As(err, &size))
	tape.Reset()

	mu = tape.NewVars(mu0)
	var separate autodiff.Var
	for _, y := range rows {
		lp, err := MultiNormalLpdf(tape, autodiff.Constants(y), mu, sigma)
		require.NoError(t, err)
		separate = tape.Add(separate, lp)
	}
	tape.Backward(separate)

	assert.InDelta(t, separate.Val(), shared.Val(), 1e-12)
	assert.InDeltaSlice(t, autodiff.Adjs(mu), sharedGrad, 1e-12)
}

func symmetric(n int, upper []autodiff.Var) autodiff.Matrix {
	data := make([]autodiff.Var, n*n)
	k := 0
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			data[i*n+j], data[j*n+i] = upper[k], upper[k]
			k++
		}
	}
	return autodiff.NewMatrix(n, n, data)
}

func upperSym(n int, upper []float64) *mat.SymDense {
	s := mat.NewSymDense(n, nil)
	k := 0
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, upper[k])
			k++
		}
	}
	return s
}
