package evaluate

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/Noofbiz/exrec/datasets"
	"github.com/Noofbiz/exrec/decoder"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockErrors are the X1..X4 and Z1..Z4 block errors of one trial.
type blockErrors struct {
	x, z [4]int
}

// loadTrials builds a dataset whose trials carry the given block errors. The
// syndromes are fixed and irrelevant to scoring.
func loadTrials(t *testing.T, trials []blockErrors) *datasets.Dataset {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("0.001 0.0001 0.00001 1000\n")
	for _, tr := range trials {
		var tokens []string
		for _, errs := range [][4]int{tr.x, tr.z} {
			tokens = append(tokens, "001", "010", "011", "100")
			for _, e := range errs {
				tokens = append(tokens, fmt.Sprintf("%07b", e))
			}
		}
		sb.WriteString(strings.Join(tokens, " ") + "\n")
	}
	ds, _, err := datasets.Read(strings.NewReader(sb.String()))
	require.NoError(t, err)
	return ds
}

// exactPredictions predicts the true 3-4 pair of every trial.
func exactPredictions(test *datasets.Dataset) Predictions {
	p := Predictions{}
	for _, b := range datasets.Bases {
		p[b] = make([]int, test.Len())
		for i := range test.Len() {
			_, p[b][i] = test.Labels(b, i)
		}
	}
	return p
}

func TestScore_ExactPredictionsHaveNoFaults(t *testing.T) {
	test := loadTrials(t, []blockErrors{
		{x: [4]int{1, 2, 3, 4}, z: [4]int{5, 6, 7, 8}},
		{x: [4]int{0, 0, 127, 64}, z: [4]int{0, 0, 0, 1}},
	})
	fraction, err := Score(exactPredictions(test), test)
	require.NoError(t, err)
	assert.Equal(t, 0.0, fraction)
}

func TestScore_OneInFour(t *testing.T) {
	test := loadTrials(t, []blockErrors{
		{x: [4]int{0, 0, 0, 0}, z: [4]int{0, 0, 0, 0}},
		{x: [4]int{0, 0, 0, 0}, z: [4]int{0, 0, 0, 0}},
		{x: [4]int{0, 0, 0, 0}, z: [4]int{0, 0, 0, 0}},
		{x: [4]int{0, 0, 0, 0}, z: [4]int{0, 0, 0, 0}},
	})
	p := exactPredictions(test)
	// Trial 2: a weight-2 recovery on X3 is mis-corrected into a logical
	// operator; a weight-1 recovery on Z4 of trial 0 is corrected.
	p[datasets.X][2] = 0b1100000 << 7
	p[datasets.Z][0] = 0b0000100
	fraction, err := Score(p, test)
	require.NoError(t, err)
	assert.Equal(t, 0.25, fraction)
}

func TestScore_TrialCountedOnce(t *testing.T) {
	test := loadTrials(t, []blockErrors{
		{x: [4]int{0, 0, 0, 0}, z: [4]int{0, 0, 0, 0}},
		{x: [4]int{0, 0, 0, 0}, z: [4]int{0, 0, 0, 0}},
	})
	p := exactPredictions(test)
	logical := 0b1111111
	p[datasets.X][0] = logical<<7 | logical
	p[datasets.Z][0] = logical<<7 | logical
	fraction, err := Score(p, test)
	require.NoError(t, err)
	assert.Equal(t, 0.5, fraction)
}

func TestScore_Errors(t *testing.T) {
	test := loadTrials(t, []blockErrors{{}, {}})

	p := exactPredictions(test)
	p[datasets.Z] = p[datasets.Z][:1]
	_, err := Score(p, test)
	require.Error(t, err)
	assert.True(t, errors.Is(err, datasets.ErrRange))

	p = exactPredictions(test)
	p[datasets.X][1] = 1 << 14
	_, err = Score(p, test)
	require.Error(t, err)
	assert.True(t, errors.Is(err, datasets.ErrRange))

	p = exactPredictions(test)
	delete(p, datasets.X)
	_, err = Score(p, test)
	require.Error(t, err)

	_, empty, err := datasets.Split(test, 0)
	require.NoError(t, err)
	_, err = Score(Predictions{datasets.X: nil, datasets.Z: nil}, empty)
	require.Error(t, err)
	assert.True(t, errors.Is(err, datasets.ErrRange))
}

func TestEvaluator_MatchesScore(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	trials := make([]blockErrors, 500)
	for i := range trials {
		for j := range 4 {
			trials[i].x[j] = rng.Intn(128)
			trials[i].z[j] = rng.Intn(128)
		}
	}
	test := loadTrials(t, trials)
	p := Predictions{}
	for _, b := range datasets.Bases {
		p[b] = make([]int, test.Len())
		for i := range p[b] {
			p[b][i] = rng.Intn(1 << 14)
		}
	}

	want, err := Score(p, test)
	require.NoError(t, err)

	e := NewEvaluator(decoder.Steane)
	e.Workers = 3
	e.MinChunk = 7
	r, err := e.Evaluate(context.Background(), p, test, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 500, r.Trials)
	assert.InDelta(t, want, r.Fraction, 1e-12)
	assert.InDelta(t, 0.5*want, r.Estimate, 1e-12)
	assert.Equal(t, 0.5, r.FaultScale)
}

func TestEvaluator_Canceled(t *testing.T) {
	test := loadTrials(t, []blockErrors{{}, {}, {}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := &Evaluator{Workers: 2, MinChunk: 1}
	_, err := e.Evaluate(ctx, exactPredictions(test), test, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
