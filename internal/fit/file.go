// Package fit loads maximum a posteriori fitting jobs from HCL files and runs
// them.
//
// A fit file names one model, its data, an optional optimizer block and any
// number of starting points:
//
//	model "normal" {
//	  y = [1.2, 0.7, 2.3]
//	}
//
//	optimizer {
//	  method        = "adam"
//	  learning_rate = 0.05
//	  iterations    = 2000
//	}
//
//	start "origin" {
//	  values = { mu = 0, log_sigma = 0 }
//	}
//
// Every start is optimized independently; starts run concurrently, each on
// its own tape.
package fit

import (
	"fmt"
	"math"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// File is a decoded fit description.
type File struct {
	Model     Model
	Optimizer OptimizerConfig
	Starts    []Start
}

// OptimizerConfig selects and tunes the optimizer used for every start.
type OptimizerConfig struct {
	Method        string  // "adam" or "sgd"
	LearningRate  float64 // 0 means the method's default
	Momentum      float64 // sgd only
	MaxIterations int     // 0 means the optim default
	Tolerance     float64 // 0 means the optim default
}

// Start is one named initial point, in Model.Params() order.
type Start struct {
	Name string
	X    []float64
}

// hclFitFile represents the top-level structure of a fit file for decoding.
type hclFitFile struct {
	Model     *hclModel     `hcl:"model,block"`
	Optimizer *hclOptimizer `hcl:"optimizer,block"`
	Starts    []*hclStart   `hcl:"start,block"`
}

type hclModel struct {
	Kind string   `hcl:"kind,label"`
	Body hcl.Body `hcl:",remain"`
}

type hclOptimizer struct {
	Method       *string  `hcl:"method,optional"`
	LearningRate *float64 `hcl:"learning_rate,optional"`
	Momentum     *float64 `hcl:"momentum,optional"`
	Iterations   *int     `hcl:"iterations,optional"`
	Tolerance    *float64 `hcl:"tolerance,optional"`
}

type hclStart struct {
	Name   string    `hcl:"name,label"`
	Values cty.Value `hcl:"values,optional"`
}

// Load parses and decodes the fit file at path.
func Load(path string) (*File, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}
	return decode(path, hclFile.Body)
}

// Parse decodes a fit description held in memory. filename is only used in
// diagnostics.
func Parse(src []byte, filename string) (*File, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	return decode(filename, hclFile.Body)
}

func decode(filename string, body hcl.Body) (*File, error) {
	var parsed hclFitFile
	if diags := gohcl.DecodeBody(body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}
	if parsed.Model == nil {
		return nil, errors.Errorf("%s: missing model block", filename)
	}

	model, err := NewModel(parsed.Model.Kind, parsed.Model.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: model %q", filename, parsed.Model.Kind)
	}
	opt, err := decodeOptimizer(parsed.Optimizer)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: optimizer", filename)
	}

	file := &File{Model: model, Optimizer: opt}
	seen := make(map[string]bool, len(parsed.Starts))
	for _, s := range parsed.Starts {
		if seen[s.Name] {
			return nil, errors.Errorf("%s: duplicate start %q", filename, s.Name)
		}
		seen[s.Name] = true
		x, err := startValues(model.Params(), s.Values)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: start %q", filename, s.Name)
		}
		file.Starts = append(file.Starts, Start{Name: s.Name, X: x})
	}
	if len(file.Starts) == 0 {
		file.Starts = []Start{{Name: "default", X: make([]float64, len(model.Params()))}}
	}
	return file, nil
}

func decodeOptimizer(b *hclOptimizer) (OptimizerConfig, error) {
	cfg := OptimizerConfig{Method: "adam"}
	if b == nil {
		return cfg, nil
	}
	if b.Method != nil {
		cfg.Method = *b.Method
	}
	if cfg.Method != "adam" && cfg.Method != "sgd" {
		return cfg, errors.Errorf("unknown method %q (want adam or sgd)", cfg.Method)
	}
	if b.LearningRate != nil {
		if *b.LearningRate <= 0 {
			return cfg, errors.Errorf("learning_rate must be positive, got %v", *b.LearningRate)
		}
		cfg.LearningRate = *b.LearningRate
	}
	if b.Momentum != nil {
		if cfg.Method != "sgd" {
			return cfg, errors.New("momentum is only supported by sgd")
		}
		if *b.Momentum < 0 || *b.Momentum >= 1 {
			return cfg, errors.Errorf("momentum must be in [0, 1), got %v", *b.Momentum)
		}
		cfg.Momentum = *b.Momentum
	}
	if b.Iterations != nil {
		if *b.Iterations <= 0 {
			return cfg, errors.Errorf("iterations must be positive, got %d", *b.Iterations)
		}
		cfg.MaxIterations = *b.Iterations
	}
	if b.Tolerance != nil {
		if *b.Tolerance <= 0 {
			return cfg, errors.Errorf("tolerance must be positive, got %v", *b.Tolerance)
		}
		cfg.Tolerance = *b.Tolerance
	}
	return cfg, nil
}

// startValues maps an HCL object of parameter values onto params. Missing
// parameters start at 0.
func startValues(params []string, values cty.Value) ([]float64, error) {
	x := make([]float64, len(params))
	if values.IsNull() {
		return x, nil
	}
	ty := values.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, errors.Errorf("values must be an object, got %s", ty.FriendlyName())
	}
	if !values.IsWhollyKnown() {
		return nil, errors.New("values must be known")
	}

	index := make(map[string]int, len(params))
	for i, p := range params {
		index[p] = i
	}
	for it := values.ElementIterator(); it.Next(); {
		k, v := it.Element()
		name := k.AsString()
		i, ok := index[name]
		if !ok {
			return nil, errors.Errorf("unknown parameter %q (model parameters: %v)", name, params)
		}
		if err := gocty.FromCtyValue(v, &x[i]); err != nil {
			return nil, errors.Wrapf(err, "parameter %q", name)
		}
		if math.IsNaN(x[i]) || math.IsInf(x[i], 0) {
			return nil, errors.Errorf("parameter %q must be finite", name)
		}
	}
	return x, nil
}
