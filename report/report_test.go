package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntries() []Entry {
	return []Entry{
		{
			Run:  "run-1",
			Data: Data{Path: "data/p0.001.txt", FaultScale: 0.02, TotalDataSize: 2000, TestSetSize: 200},
			Opt:  Opt{BatchSize: 100, NumBatches: 18},
			Res:  Result{P: 0.001, LuAvg: 3e-5, LuStd: 1e-6, NNAvg: 2e-5},
		},
		{
			Run:  "run-1",
			Data: Data{Path: "data/p0.002.txt", FaultScale: 0.05, TotalDataSize: 5000, TestSetSize: 500},
			Opt:  Opt{BatchSize: 100, NumBatches: 45},
			Res:  Result{P: 0.002, LuAvg: 1e-4, LuStd: 5e-6, NNAvg: 9e-5},
		},
	}
}

func TestWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Reports")
	start := time.Date(2024, 3, 5, 7, 8, 9, 0, time.Local)

	path, err := Write(dir, start, sampleEntries())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2024-03-05-07-08-09.json"), path)

	// Key names and nesting are checked on the raw JSON.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw []struct {
		Data map[string]any `json:"data"`
		Opt  map[string]any `json:"opt"`
		Res  map[string]any `json:"res"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 2)
	for _, key := range []string{"path", "fault scale", "total data size", "test set size"} {
		assert.Containsf(t, raw[0].Data, key, "data.%s", key)
	}
	for _, key := range []string{"batch size", "number of batches"} {
		assert.Containsf(t, raw[0].Opt, key, "opt.%s", key)
	}
	for _, key := range []string{"p", "lu avg", "lu std", "nn avg", "nn std"} {
		assert.Containsf(t, raw[0].Res, key, "res.%s", key)
	}
	assert.Contains(t, string(data), "\n  {\n    \"run\"")

	entries, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, sampleEntries(), entries)

	// Same start time: the existing report is kept and the new one gets a
	// numbered name.
	second, err := Write(dir, start, sampleEntries()[:1])
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2024-03-05-07-08-09-1.json"), second)
	third, err := Write(dir, start, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2024-03-05-07-08-09-2.json"), third)

	entries, err = Read(path)
	require.NoError(t, err)
	assert.Equal(t, sampleEntries(), entries)
	entries, err = Read(second)
	require.NoError(t, err)
	assert.Equal(t, sampleEntries()[:1], entries)
}

func TestWrite_Empty(t *testing.T) {
	path, err := Write(t.TempDir(), time.Now(), nil)
	require.NoError(t, err)
	entries, err := Read(path)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNewRunID(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestPlotRates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plots", "rates.png")
	require.NoError(t, PlotRates(sampleEntries(), path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	// Zero rates fall back to linear axes.
	entries := sampleEntries()
	entries[0].Res.NNAvg = 0
	require.NoError(t, PlotRates(entries, filepath.Join(dir, "linear.png")))

	require.Error(t, PlotRates(nil, filepath.Join(dir, "none.png")))
}
