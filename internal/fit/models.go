package fit

import (
	"sort"
	"strconv"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/pkg/errors"

	"github.com/born-ml/adjoint/internal/autodiff"
	"github.com/born-ml/adjoint/internal/autodiff/ops"
	"github.com/born-ml/adjoint/internal/ldlt"
	"github.com/born-ml/adjoint/internal/prob"
)

// Model is an unnormalized log posterior over named, unconstrained
// parameters. Positive parameters are fitted on the log scale.
type Model interface {
	// Kind is the label the model is declared with.
	Kind() string
	// Params names the components of theta.
	Params() []string
	// LogDensity evaluates the log posterior at theta, up to a constant.
	LogDensity(t *autodiff.Tape, theta []autodiff.Var) (autodiff.Var, error)
}

type decoder func(body hcl.Body) (Model, error)

var catalog = map[string]decoder{
	"normal":         decodeModel(func() dataModel { return &normalModel{} }),
	"exp_mod_normal": decodeModel(func() dataModel { return &expModNormalModel{} }),
	"logistic":       decodeModel(func() dataModel { return &logisticModel{} }),
	"multi_normal":   decodeModel(func() dataModel { return &multiNormalModel{} }),
}

// Kinds lists the model kinds NewModel accepts.
func Kinds() []string {
	kinds := make([]string, 0, len(catalog))
	for k := range catalog {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// NewModel decodes the data attributes in body for the model kind.
func NewModel(kind string, body hcl.Body) (Model, error) {
	dec, ok := catalog[kind]
	if !ok {
		return nil, errors.Errorf("unknown model kind %q (available: %v)", kind, Kinds())
	}
	return dec(body)
}

// dataModel is a Model decoded from HCL attributes and checked afterwards.
type dataModel interface {
	Model
	validate() error
}

func decodeModel(newModel func() dataModel) decoder {
	return func(body hcl.Body) (Model, error) {
		m := newModel()
		if diags := gohcl.DecodeBody(body, nil, m); diags.HasErrors() {
			return nil, diags
		}
		if err := m.validate(); err != nil {
			return nil, err
		}
		return m, nil
	}
}

// normalModel: y ~ Normal(mu, exp(log_sigma)).
type normalModel struct {
	Y []float64 `hcl:"y"`
}

func (m *normalModel) Kind() string     { return "normal" }
func (m *normalModel) Params() []string { return []string{"mu", "log_sigma"} }

func (m *normalModel) LogDensity(t *autodiff.Tape, theta []autodiff.Var) (autodiff.Var, error) {
	return prob.NormalLpdfPropto(t, m.Y, theta[0], t.Exp(theta[1]))
}

func (m *normalModel) validate() error {
	if len(m.Y) < 2 {
		return errors.New("y needs at least two observations")
	}
	return nil
}

// expModNormalModel: y ~ ExpModNormal(mu, exp(log_sigma), exp(log_lambda)).
type expModNormalModel struct {
	Y []float64 `hcl:"y"`
}

func (m *expModNormalModel) Kind() string { return "exp_mod_normal" }

func (m *expModNormalModel) Params() []string {
	return []string{"mu", "log_sigma", "log_lambda"}
}

func (m *expModNormalModel) LogDensity(t *autodiff.Tape, theta []autodiff.Var) (autodiff.Var, error) {
	return prob.ExpModNormalLpdfPropto(t, m.Y, theta[0], t.Exp(theta[1]), t.Exp(theta[2]))
}

func (m *expModNormalModel) validate() error {
	if len(m.Y) < 3 {
		return errors.New("y needs at least three observations")
	}
	return nil
}

// logisticModel: y ~ BernoulliLogit(alpha + beta·x), with an optional
// Normal(0, prior_scale) prior on both coefficients.
type logisticModel struct {
	X          []float64 `hcl:"x"`
	Y          []int     `hcl:"y"`
	PriorScale *float64  `hcl:"prior_scale,optional"`
}

func (m *logisticModel) Kind() string     { return "logistic" }
func (m *logisticModel) Params() []string { return []string{"alpha", "beta"} }

func (m *logisticModel) LogDensity(t *autodiff.Tape, theta []autodiff.Var) (autodiff.Var, error) {
	alpha, beta := theta[0], theta[1]
	eta := ops.Scale(t, beta, autodiff.Constants(m.X))
	for i := range eta {
		eta[i] = t.Add(alpha, eta[i])
	}
	lp, err := prob.BernoulliLogitLpmfPropto(t, m.Y, eta)
	if err != nil {
		return autodiff.Var{}, err
	}
	if m.PriorScale == nil {
		return lp, nil
	}
	prior, err := prob.NormalLpdfPropto(t, theta, 0.0, *m.PriorScale)
	if err != nil {
		return autodiff.Var{}, err
	}
	return t.Add(lp, prior), nil
}

func (m *logisticModel) validate() error {
	if len(m.X) == 0 {
		return errors.New("x is empty")
	}
	if len(m.X) != len(m.Y) {
		return errors.Errorf("x has %d values but y has %d", len(m.X), len(m.Y))
	}
	for i, y := range m.Y {
		if y != 0 && y != 1 {
			return errors.Errorf("y[%d] is %d, but must be 0 or 1", i, y)
		}
	}
	if m.PriorScale != nil && *m.PriorScale <= 0 {
		return errors.Errorf("prior_scale must be positive, got %v", *m.PriorScale)
	}
	return nil
}

// multiNormalModel: every row of y ~ MultiNormal(mu, sigma) with sigma
// known.
type multiNormalModel struct {
	Y     [][]float64 `hcl:"y"`
	Sigma [][]float64 `hcl:"sigma"`
}

func (m *multiNormalModel) Kind() string { return "multi_normal" }

func (m *multiNormalModel) Params() []string {
	params := make([]string, len(m.Sigma))
	for i := range params {
		params[i] = "mu_" + strconv.Itoa(i+1)
	}
	return params
}

func (m *multiNormalModel) LogDensity(t *autodiff.Tape, theta []autodiff.Var) (autodiff.Var, error) {
	k := len(m.Sigma)
	flat := make([]float64, 0, k*k)
	for _, row := range m.Sigma {
		flat = append(flat, row...)
	}
	sigma := autodiff.NewMatrix(k, k, autodiff.Constants(flat))

	f, err := ldlt.Compute(t, sigma)
	if err != nil {
		return autodiff.Var{}, err
	}

	var lp autodiff.Var
	for _, y := range m.Y {
		l, err := prob.MultiNormalFactorLpdfPropto(t, autodiff.Constants(y), theta, f)
		if err != nil {
			return autodiff.Var{}, err
		}
		lp = t.Add(lp, l)
	}
	return lp, nil
}

func (m *multiNormalModel) validate() error {
	k := len(m.Sigma)
	if k == 0 {
		return errors.New("sigma is empty")
	}
	for i, row := range m.Sigma {
		if len(row) != k {
			return errors.Errorf("sigma must be square: row %d has %d columns, want %d", i+1, len(row), k)
		}
	}
	if len(m.Y) == 0 {
		return errors.New("y is empty")
	}
	for i, row := range m.Y {
		if len(row) != k {
			return errors.Errorf("y row %d has %d values, want %d", i+1, len(row), k)
		}
	}
	return nil
}
