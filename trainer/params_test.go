package trainer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Noofbiz/exrec/datasets"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestLoadParams_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "param.json")
	writeFile(t, path, `{
  "data": {"test fraction": 0.2, "batch size": 50},
  "opt": {"learning rate": 0.01, "iterations": 3, "momentum": 0.5, "decay": 0.95},
  "nn": {"num hidden": 16},
  "usr": {"verbose": true}
}`)
	p, err := LoadParams(path)
	require.NoError(t, err)
	assert.Equal(t, 0.2, p.Data.TestFraction)
	assert.Equal(t, 50, p.Data.BatchSize)
	assert.Equal(t, 0.01, p.Opt.LearningRate)
	assert.Equal(t, 3, p.Opt.Iterations)
	assert.Equal(t, 0.5, p.Opt.Momentum)
	assert.Equal(t, 0.95, p.Opt.Decay)
	assert.Equal(t, 16, p.NN.NumHidden)
	assert.True(t, p.Usr.Verbose)
	assert.False(t, p.Run.ParallelBases)

	cfg := p.PredictorConfig()
	assert.Equal(t, 16, cfg.NumHidden)
	assert.Equal(t, 3, cfg.Epochs)
	assert.Equal(t, 0.5, cfg.Momentum)
	assert.True(t, cfg.Verbose)
}

func TestLoadParams_YAMLKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "param.yaml")
	writeFile(t, path, `
data:
  batch size: 20
run:
  parallel bases: true
  eval workers: 2
`)
	p, err := LoadParams(path)
	require.NoError(t, err)
	want := DefaultParams()
	want.Data.BatchSize = 20
	want.Run = RunParams{ParallelBases: true, EvalWorkers: 2}
	assert.Equal(t, want, p)
}

func TestLoadParams_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadParams(filepath.Join(dir, "missing.json"))
	require.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	writeFile(t, bad, `{"data": {"batch size": "ten"}}`)
	_, err = LoadParams(bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, datasets.ErrParse))

	outOfRange := filepath.Join(dir, "range.yml")
	writeFile(t, outOfRange, "opt:\n  decay: 1.5\n")
	_, err = LoadParams(outOfRange)
	require.Error(t, err)
	assert.True(t, errors.Is(err, datasets.ErrRange))
}

func TestValidate(t *testing.T) {
	require.NoError(t, DefaultParams().Validate())

	cases := map[string]func(p *Params){
		"test fraction": func(p *Params) { p.Data.TestFraction = 1 },
		"batch size":    func(p *Params) { p.Data.BatchSize = 0 },
		"learning rate": func(p *Params) { p.Opt.LearningRate = -1 },
		"iterations":    func(p *Params) { p.Opt.Iterations = 0 },
		"momentum":      func(p *Params) { p.Opt.Momentum = 1 },
		"decay":         func(p *Params) { p.Opt.Decay = 0 },
		"num hidden":    func(p *Params) { p.NN.NumHidden = 0 },
		"eval workers":  func(p *Params) { p.Run.EvalWorkers = -2 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := DefaultParams()
			mutate(&p)
			err := p.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, datasets.ErrRange))
			assert.Contains(t, err.Error(), name)
		})
	}
}
