package datasets

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// FindTrialFiles lists the trial files directly under dir, sorted by name.
// Hidden entries and sub-directories are skipped.
func FindTrialFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list trial files in %s", dir)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	if len(paths) == 0 {
		return nil, errors.Errorf("no trial files found in %s", dir)
	}
	sort.Strings(paths)
	return paths, nil
}

// FaultScale returns the factor from a rate measured on the written trials to
// a rate over every simulated trial, written or not: written/simulated.
//
// It assumes the trials that were not written (trivial syndrome) contribute no
// logical faults.
func FaultScale(written int, h Header) (float64, error) {
	if h.DataSize <= 0 {
		return 0, errors.Wrapf(ErrRange, "data size %d must be positive", h.DataSize)
	}
	return float64(written) / float64(h.DataSize), nil
}

// TestSize returns int(fraction * n), the number of trailing trials held out.
func TestSize(n int, fraction float64) (int, error) {
	if fraction < 0 || fraction >= 1 {
		return 0, errors.Wrapf(ErrRange, "test fraction %g outside [0, 1)", fraction)
	}
	return int(fraction * float64(n)), nil
}

// NonTrivial reports whether trial i has any nonzero syndrome bit in basis b.
func (d *Dataset) NonTrivial(b Basis, i int) bool {
	for _, v := range d.Input(b, i) {
		if v != 0 {
			return true
		}
	}
	return false
}
