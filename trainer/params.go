package trainer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/Noofbiz/exrec/datasets"
	"github.com/Noofbiz/exrec/predictor"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Params is the parameter file shared by every trial file of a run. Keys
// contain spaces to stay compatible with existing parameter files.
type Params struct {
	Data DataParams `json:"data" yaml:"data"`
	Opt  OptParams  `json:"opt" yaml:"opt"`
	NN   NNParams   `json:"nn" yaml:"nn"`
	Usr  UsrParams  `json:"usr" yaml:"usr"`
	Run  RunParams  `json:"run" yaml:"run"`
}

// DataParams controls the split and the batching.
type DataParams struct {
	// TestFraction of each file's trials is held out, from the end.
	TestFraction float64 `json:"test fraction" yaml:"test fraction"`
	BatchSize    int     `json:"batch size" yaml:"batch size"`
}

// OptParams configures the optimizer.
type OptParams struct {
	LearningRate float64 `json:"learning rate" yaml:"learning rate"`

	// Iterations is the number of epochs over the training batches.
	Iterations int     `json:"iterations" yaml:"iterations"`
	Momentum   float64 `json:"momentum" yaml:"momentum"`
	Decay      float64 `json:"decay" yaml:"decay"`
}

// NNParams configures the predictor network.
type NNParams struct {
	NumHidden int `json:"num hidden" yaml:"num hidden"`
}

// UsrParams holds user-facing switches.
type UsrParams struct {
	Verbose bool `json:"verbose" yaml:"verbose"`
}

// RunParams controls how a file is processed.
type RunParams struct {
	// ParallelBases trains the X and Z predictors concurrently.
	ParallelBases bool `json:"parallel bases" yaml:"parallel bases"`

	// EvalWorkers bounds the scoring workers; 0 uses every CPU.
	EvalWorkers int `json:"eval workers" yaml:"eval workers"`
}

// DefaultParams returns the parameters used for keys missing from a file.
func DefaultParams() Params {
	return Params{
		Data: DataParams{TestFraction: 0.1, BatchSize: 1000},
		Opt:  OptParams{LearningRate: 1e-3, Iterations: 10, Momentum: 0, Decay: 0.9},
		NN:   NNParams{NumHidden: 100},
	}
}

// LoadParams reads a parameter file. Files ending in .yaml or .yml are parsed
// as YAML, anything else as JSON. Missing keys keep their DefaultParams value.
func LoadParams(path string) (Params, error) {
	params := DefaultParams()
	data, err := os.ReadFile(path)
	if err != nil {
		return params, errors.Wrapf(err, "failed to read parameter file %s", path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &params)
	default:
		err = json.Unmarshal(data, &params)
	}
	if err != nil {
		return params, errors.Wrapf(datasets.ErrParse, "parameter file %s: %v", path, err)
	}
	if err := params.Validate(); err != nil {
		return params, errors.WithMessagef(err, "parameter file %s", path)
	}
	return params, nil
}

// Validate reports the first out-of-range parameter.
func (p Params) Validate() error {
	switch {
	case p.Data.TestFraction < 0 || p.Data.TestFraction >= 1:
		return errors.Wrapf(datasets.ErrRange, "data.test fraction %g outside [0, 1)", p.Data.TestFraction)
	case p.Data.BatchSize <= 0:
		return errors.Wrapf(datasets.ErrRange, "data.batch size %d must be positive", p.Data.BatchSize)
	case p.Opt.LearningRate <= 0:
		return errors.Wrapf(datasets.ErrRange, "opt.learning rate %g must be positive", p.Opt.LearningRate)
	case p.Opt.Iterations < 1:
		return errors.Wrapf(datasets.ErrRange, "opt.iterations %d must be at least 1", p.Opt.Iterations)
	case p.Opt.Momentum < 0 || p.Opt.Momentum >= 1:
		return errors.Wrapf(datasets.ErrRange, "opt.momentum %g outside [0, 1)", p.Opt.Momentum)
	case p.Opt.Decay <= 0 || p.Opt.Decay >= 1:
		return errors.Wrapf(datasets.ErrRange, "opt.decay %g outside (0, 1)", p.Opt.Decay)
	case p.NN.NumHidden <= 0:
		return errors.Wrapf(datasets.ErrRange, "nn.num hidden %d must be positive", p.NN.NumHidden)
	case p.Run.EvalWorkers < 0:
		return errors.Wrapf(datasets.ErrRange, "run.eval workers %d must not be negative", p.Run.EvalWorkers)
	}
	return nil
}

// PredictorConfig maps the parameters onto a predictor configuration.
func (p Params) PredictorConfig() predictor.Config {
	return predictor.Config{
		NumHidden:    p.NN.NumHidden,
		LearningRate: p.Opt.LearningRate,
		Decay:        p.Opt.Decay,
		Momentum:     p.Opt.Momentum,
		Epochs:       p.Opt.Iterations,
		Verbose:      p.Usr.Verbose,
	}
}
