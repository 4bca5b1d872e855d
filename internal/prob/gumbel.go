package prob

import (
	"math"

	"github.com/born-ml/adjoint/internal/autodiff"
	"github.com/born-ml/adjoint/internal/check"
	"github.com/born-ml/adjoint/internal/partials"
)

// GumbelLcdf returns the log of the Gumbel cumulative distribution function
// of y given location mu and scale beta.
//
//	log F(y | μ, β) = -exp(-(y-μ)/β)
//
// Partials, with z = (y-μ)/β and r = exp(-z)/β:
//
//	∂/∂y =  r
//	∂/∂μ = -r
//	∂/∂β = -r·z
//
// Empty inputs return 0 before any argument is checked.
func GumbelLcdf[Y, M, B partials.Operand](t *autodiff.Tape, y Y, mu M, beta B) (autodiff.Var, error) {
	const function = "gumbel_lcdf"
	ey, emu, ebeta := partials.Of(y), partials.Of(mu), partials.Of(beta)
	if partials.SizeZero(ey, emu, ebeta) {
		return autodiff.Constant(0), nil
	}
	if err := check.NotNaN(function, "Random variable", &ey); err != nil {
		return autodiff.Var{}, err
	}
	if err := check.Finite(function, "Location parameter", &emu); err != nil {
		return autodiff.Var{}, err
	}
	if err := check.Positive(function, "Scale parameter", &ebeta); err != nil {
		return autodiff.Var{}, err
	}
	if err := check.ConsistentSizes(function,
		check.Named("Random variable", &ey),
		check.Named("Location parameter", &emu),
		check.Named("Scale parameter", &ebeta)); err != nil {
		return autodiff.Var{}, err
	}

	op := partials.New(t, ey, emu, ebeta)
	dy, dmu, dbeta := op.Edge(0), op.Edge(1), op.Edge(2)

	var cdfLog float64
	n := partials.MaxSize(ey, emu, ebeta)
	for i := 0; i < n; i++ {
		b := ebeta.Val(i)
		z := (ey.Val(i) - emu.Val(i)) / b
		e := math.Exp(-z)
		r := e / b
		cdfLog -= e

		dy.Partials.Add(i, r)
		dmu.Partials.Add(i, -r)
		dbeta.Partials.Add(i, -r*z)
	}
	return op.Build(cdfLog), nil
}
