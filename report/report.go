// Package report writes the per-run report: one entry per trial file, stored
// as a JSON array in a file named after the run's start time.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// TimeLayout names report files: YYYY-MM-DD-HH-MM-SS.
const TimeLayout = "2006-01-02-15-04-05"

// Entry is the outcome of one trial file. Field names are read by downstream
// tooling and must not change.
type Entry struct {
	// Run identifies the invocation that produced the entry.
	Run string `json:"run,omitempty"`

	Data Data   `json:"data"`
	Opt  Opt    `json:"opt"`
	Res  Result `json:"res"`
}

// Data describes the trial file and its split.
type Data struct {
	Path          string  `json:"path"`
	FaultScale    float64 `json:"fault scale"`
	TotalDataSize int     `json:"total data size"`
	TestSetSize   int     `json:"test set size"`
}

// Opt describes the training schedule.
type Opt struct {
	BatchSize  int `json:"batch size"`
	NumBatches int `json:"number of batches"`
}

// Result holds the baseline and predictor logical error rates.
type Result struct {
	P     float64 `json:"p"`
	LuAvg float64 `json:"lu avg"`
	LuStd float64 `json:"lu std"`
	NNAvg float64 `json:"nn avg"`
	NNStd float64 `json:"nn std"`
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// maxSuffix bounds the numbered names tried when a report name is taken.
const maxSuffix = 1000

// Write stores entries as an indented JSON array in
// <dir>/<start formatted with TimeLayout>.json and returns the file path. An
// existing report is never overwritten: when the name is taken, the first free
// of <name>-1.json, <name>-2.json, ... is used instead.
func Write(dir string, start time.Time, entries []Entry) (string, error) {
	if entries == nil {
		entries = []Entry{}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to create report directory %s", dir)
	}
	f, path, err := create(dir, start.Format(TimeLayout))
	if err != nil {
		return "", err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		_ = f.Close()
		return "", errors.Wrapf(err, "failed to write report %s", path)
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrapf(err, "failed to close report %s", path)
	}
	return path, nil
}

// create opens a new file named base.json in dir, or the first free numbered
// variant of it.
func create(dir, base string) (*os.File, string, error) {
	for i := range maxSuffix {
		name := base + ".json"
		if i > 0 {
			name = fmt.Sprintf("%s-%d.json", base, i)
		}
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !os.IsExist(err) {
			return nil, "", errors.Wrapf(err, "failed to create report %s", path)
		}
	}
	return nil, "", errors.Errorf("failed to create report: %d reports named %s already exist in %s", maxSuffix, base, dir)
}

// Read loads a report written by Write.
func Read(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read report %s", path)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrapf(err, "failed to parse report %s", path)
	}
	return entries, nil
}
