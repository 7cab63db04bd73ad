package predictor

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/Noofbiz/exrec/datasets"
	"github.com/gomlx/gomlx/backends"
	_ "github.com/gomlx/gomlx/backends/default"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// constantTrials returns n trials with varying syndromes whose X 3-4 pair is
// always (x3, x4).
func constantTrials(t *testing.T, n, x3, x4 int) *datasets.Dataset {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("0.001 0.0001 0.00001 100000\n")
	for i := range n {
		tokens := []string{
			fmt.Sprintf("%03b", i%8), fmt.Sprintf("%03b", (i/8)%8), fmt.Sprintf("%03b", (i+3)%8), "001",
			"0000000", "0000000", fmt.Sprintf("%07b", x3), fmt.Sprintf("%07b", x4),
			"000", "000", "000", "000",
			"0000000", "0000000", "0000000", "0000000",
		}
		sb.WriteString(strings.Join(tokens, " ") + "\n")
	}
	ds, _, err := datasets.Read(strings.NewReader(sb.String()))
	require.NoError(t, err)
	return ds
}

// trainingBackend returns a backend able to train the LSTM, or skips the
// test. SimpleGo lacks ops needed by the LSTM gradient.
func trainingBackend(t *testing.T) backends.Backend {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping gomlx training test in short mode")
	}
	backend := backends.MustNew()
	if strings.Contains(backend.Name(), "SimpleGo") {
		t.Skipf("backend %q cannot train the LSTM predictor", backend.Name())
	}
	return backend
}

func TestNew_Defaults(t *testing.T) {
	_, err := New(nil, Config{})
	require.Error(t, err)

	if testing.Short() {
		t.Skip("skipping gomlx backend test in short mode")
	}
	backend := backends.MustNew()
	m, err := New(backend, Config{})
	require.NoError(t, err)
	assert.Equal(t, 64, m.Config.NumHidden)
	assert.Equal(t, 1e-3, m.Config.LearningRate)
	assert.Equal(t, 0.9, m.Config.Decay)
	assert.Equal(t, 1, m.Config.Epochs)
	assert.Equal(t, 4096, m.Config.EvalBatchSize)

	_, err = New(backend, Config{Momentum: 1.5})
	require.Error(t, err)
	assert.True(t, errors.Is(err, datasets.ErrRange))

	_, err = m.Predict(constantTrials(t, 4, 1, 2), datasets.X)
	require.Error(t, err, "predicting before training")
}

func TestTrainAndPredict(t *testing.T) {
	backend := trainingBackend(t)
	const x3, x4 = 0b0000101, 0b1000000
	ds := constantTrials(t, 64, x3, x4)
	train, test, err := datasets.Split(ds, 16)
	require.NoError(t, err)

	it, err := datasets.NewBatchIterator(train, datasets.X, 16)
	require.NoError(t, err)

	m, err := New(backend, Config{
		NumHidden:     8,
		LearningRate:  0.05,
		Epochs:        20,
		EvalBatchSize: 10,
	})
	require.NoError(t, err)
	loss, err := m.Train(it)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(loss), "loss is NaN")

	predictions, err := m.Predict(test, datasets.X)
	require.NoError(t, err)
	require.Len(t, predictions, test.Len())
	want := x3<<7 | x4
	for i, p := range predictions {
		assert.Equalf(t, want, p, "trial %d", i)
	}
}
