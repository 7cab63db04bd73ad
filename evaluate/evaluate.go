// Package evaluate scores test-set predictions with the parity decoder and
// turns the per-trial pass/fail into a logical error rate.
package evaluate

import (
	"context"
	"runtime"

	"github.com/Noofbiz/exrec/bitcodec"
	"github.com/Noofbiz/exrec/datasets"
	"github.com/Noofbiz/exrec/decoder"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Predictions maps each basis to one combined 3-4 prediction per test trial,
// each in [0, 2^14).
type Predictions map[datasets.Basis][]int

// Result is the outcome of scoring one test set.
type Result struct {
	// Trials is the number of test trials and Faulty the number with at least
	// one logical fault.
	Trials int
	Faulty int

	// Fraction is Faulty / Trials.
	Fraction float64

	// FaultScale converts a rate over written trials into a rate over every
	// simulated trial (see datasets.FaultScale).
	FaultScale float64

	// Estimate is FaultScale * Fraction, the reported logical error rate.
	Estimate float64
}

// Score returns the fraction of test trials for which any of X3, X4, Z3, Z4
// is left with a logical fault by the predicted recovery. It runs on the
// calling goroutine.
func Score(predictions Predictions, test *datasets.Dataset) (float64, error) {
	if err := validate(predictions, test); err != nil {
		return 0, err
	}
	faulty, err := countFaults(decoder.Steane, predictions, test, 0, test.Len())
	if err != nil {
		return 0, err
	}
	return float64(faulty) / float64(test.Len()), nil
}

// Evaluator scores predictions over a pool of workers, each handling a
// contiguous range of trials.
type Evaluator struct {
	// Code classifies residual errors. Defaults to decoder.Steane.
	Code *decoder.Code

	// Workers bounds the number of concurrent workers. Defaults to
	// runtime.NumCPU().
	Workers int

	// MinChunk is the smallest number of trials handed to one worker.
	MinChunk int
}

// NewEvaluator returns an Evaluator for code with default tunables.
func NewEvaluator(code *decoder.Code) *Evaluator {
	return &Evaluator{
		Code:     code,
		Workers:  runtime.NumCPU(),
		MinChunk: 1024,
	}
}

// Evaluate scores predictions against test and rescales the fraction by
// faultScale.
func (e *Evaluator) Evaluate(ctx context.Context, predictions Predictions, test *datasets.Dataset, faultScale float64) (*Result, error) {
	if err := validate(predictions, test); err != nil {
		return nil, err
	}
	code := e.Code
	if code == nil {
		code = decoder.Steane
	}
	workers := e.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	minChunk := e.MinChunk
	if minChunk <= 0 {
		minChunk = 1
	}

	n := test.Len()
	chunk := max((n+workers-1)/workers, minChunk)
	numChunks := (n + chunk - 1) / chunk
	counts := make([]int, numChunks)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for c := range numChunks {
		from, to := c*chunk, min((c+1)*chunk, n)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			count, err := countFaults(code, predictions, test, from, to)
			counts[c] = count
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r := &Result{Trials: n, FaultScale: faultScale}
	for _, c := range counts {
		r.Faulty += c
	}
	r.Fraction = float64(r.Faulty) / float64(n)
	r.Estimate = faultScale * r.Fraction
	return r, nil
}

func validate(predictions Predictions, test *datasets.Dataset) error {
	if test.Len() == 0 {
		return errors.Wrap(datasets.ErrRange, "empty test set")
	}
	for _, b := range datasets.Bases {
		p, ok := predictions[b]
		if !ok {
			return errors.Wrapf(datasets.ErrRange, "no predictions for basis %s", b)
		}
		if len(p) != test.Len() {
			return errors.Wrapf(datasets.ErrRange, "%d predictions for basis %s, want one per test trial (%d)",
				len(p), b, test.Len())
		}
		for i, v := range p {
			if v < 0 || v >= bitcodec.CombinedRange {
				return errors.Wrapf(datasets.ErrRange, "prediction %d for basis %s at trial %d outside [0, %d)",
					v, b, i, bitcodec.CombinedRange)
			}
		}
	}
	return nil
}

// countFaults counts the faulty trials in [from, to). A trial stops being
// checked at its first faulty key.
func countFaults(code *decoder.Code, predictions Predictions, test *datasets.Dataset, from, to int) (int, error) {
	faulty := 0
	for i := from; i < to; i++ {
		for _, k := range datasets.Keys {
			high, low := bitcodec.SplitCombinedError(predictions[k.Basis()][i])
			recovery := low
			if k.High() {
				recovery = high
			}
			fault, err := code.Check(recovery, test.Output(k, i))
			if err != nil {
				return 0, errors.WithMessagef(err, "trial %d key %s", i, k)
			}
			if fault {
				faulty++
				break
			}
		}
	}
	return faulty, nil
}
