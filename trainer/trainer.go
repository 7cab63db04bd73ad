// Package trainer runs the per-file pipeline: load the trial file, split it,
// train one predictor per basis, score the test trials and fill a report
// entry.
package trainer

import (
	"context"
	"time"

	"github.com/Noofbiz/exrec/datasets"
	"github.com/Noofbiz/exrec/decoder"
	"github.com/Noofbiz/exrec/evaluate"
	"github.com/Noofbiz/exrec/predictor"
	"github.com/Noofbiz/exrec/report"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/gomlx/backends"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// Predictor is a per-basis model: it learns from the train batches of one
// basis, then predicts the combined 3-4 error of every trial of a dataset.
// *predictor.Model implements it.
type Predictor interface {
	Train(it *datasets.BatchIterator) (loss float64, err error)
	Predict(ds *datasets.Dataset, b datasets.Basis) ([]int, error)
}

// PredictorFactory creates a fresh, untrained Predictor for one basis.
type PredictorFactory func(backend backends.Backend, cfg predictor.Config) (Predictor, error)

// NewModel is the default PredictorFactory: a gomlx LSTM predictor.
func NewModel(backend backends.Backend, cfg predictor.Config) (Predictor, error) {
	m, err := predictor.New(backend, cfg)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Trainer holds what is shared by every file of a run. The X and Z pipelines
// of a file share nothing mutable, only the backend and the immutable code.
type Trainer struct {
	Params  Params
	Backend backends.Backend

	// Code scores the predictions. Defaults to decoder.Steane.
	Code *decoder.Code

	// RunID is copied into every report entry.
	RunID string

	// NewPredictor creates the model of each basis. Defaults to NewModel.
	NewPredictor PredictorFactory
}

// New returns a Trainer for params on backend.
func New(backend backends.Backend, params Params) (*Trainer, error) {
	if backend == nil {
		return nil, errors.New("trainer requires a backend")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Trainer{
		Params:       params,
		Backend:      backend,
		Code:         decoder.Steane,
		RunID:        report.NewRunID(),
		NewPredictor: NewModel,
	}, nil
}

// Run processes one trial file and returns its report entry.
func (t *Trainer) Run(ctx context.Context, path string) (*report.Entry, error) {
	start := time.Now()
	klog.Infof("reading trials from %s", path)
	ds, header, err := datasets.Load(path)
	if err != nil {
		return nil, err
	}

	total := ds.Len()
	testSize, err := datasets.TestSize(total, t.Params.Data.TestFraction)
	if err != nil {
		return nil, err
	}
	if testSize == 0 {
		return nil, errors.Wrapf(datasets.ErrRange, "%s: test fraction %g of %d trials leaves no test trials",
			path, t.Params.Data.TestFraction, total)
	}
	trainSet, testSet, err := datasets.Split(ds, testSize)
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	faultScale, err := datasets.FaultScale(total, header)
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	batchSize := t.Params.Data.BatchSize
	entry := &report.Entry{
		Run: t.RunID,
		Data: report.Data{
			Path:          path,
			FaultScale:    faultScale,
			TotalDataSize: total,
			TestSetSize:   testSize,
		},
		Opt: report.Opt{
			BatchSize:  batchSize,
			NumBatches: datasets.NumBatches(trainSet.Len(), batchSize),
		},
		Res: report.Result{
			P:     header.P,
			LuAvg: header.LuAvg,
			LuStd: header.LuStd,
		},
	}
	klog.Infof("%s: p=%g, %s trials of %s simulated, %s train / %s test, %d batches of %d",
		path, header.P, humanize.Comma(int64(total)), humanize.Comma(int64(header.DataSize)),
		humanize.Comma(int64(trainSet.Len())), humanize.Comma(int64(testSize)),
		entry.Opt.NumBatches, batchSize)

	predictions, err := t.predict(ctx, trainSet, testSet)
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}

	evaluator := evaluate.NewEvaluator(t.Code)
	if t.Params.Run.EvalWorkers > 0 {
		evaluator.Workers = t.Params.Run.EvalWorkers
	}
	result, err := evaluator.Evaluate(ctx, predictions, testSet, faultScale)
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	entry.Res.NNAvg = result.Estimate
	entry.Res.NNStd = 0

	klog.Infof("%s: %s of %s test trials faulty, nn avg %.3g (lu avg %.3g) in %s",
		path, humanize.Comma(int64(result.Faulty)), humanize.Comma(int64(result.Trials)),
		entry.Res.NNAvg, entry.Res.LuAvg, time.Since(start).Round(time.Millisecond))
	return entry, nil
}

// predict trains one predictor per basis on trainSet and predicts testSet.
func (t *Trainer) predict(ctx context.Context, trainSet, testSet *datasets.Dataset) (evaluate.Predictions, error) {
	var perBasis [datasets.NumBases][]int
	runBasis := func(ctx context.Context, b datasets.Basis) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		p, err := t.trainBasis(trainSet, testSet, b)
		if err != nil {
			return errors.WithMessagef(err, "basis %s", b)
		}
		perBasis[b] = p
		return nil
	}

	if t.Params.Run.ParallelBases {
		g, gctx := errgroup.WithContext(ctx)
		for _, b := range datasets.Bases {
			g.Go(func() error { return runBasis(gctx, b) })
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for _, b := range datasets.Bases {
			if err := runBasis(ctx, b); err != nil {
				return nil, err
			}
		}
	}

	predictions := evaluate.Predictions{}
	for _, b := range datasets.Bases {
		predictions[b] = perBasis[b]
	}
	return predictions, nil
}

// trainBasis is the pipeline of one basis: batches, a fresh predictor and its
// test-set predictions.
func (t *Trainer) trainBasis(trainSet, testSet *datasets.Dataset, b datasets.Basis) ([]int, error) {
	it, err := datasets.NewBatchIterator(trainSet, b, t.Params.Data.BatchSize)
	if err != nil {
		return nil, err
	}
	newPredictor := t.NewPredictor
	if newPredictor == nil {
		newPredictor = NewModel
	}
	model, err := newPredictor(t.Backend, t.Params.PredictorConfig())
	if err != nil {
		return nil, err
	}
	start := time.Now()
	loss, err := model.Train(it)
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("basis %s trained in %s, last batch loss %.4g", b, time.Since(start).Round(time.Millisecond), loss)
	return model.Predict(testSet, b)
}

// RunAll processes paths in order. With keepGoing, a failing file is logged
// and skipped; otherwise the first failure aborts the run. The entries of the
// files processed so far are returned in both cases.
func (t *Trainer) RunAll(ctx context.Context, paths []string, keepGoing bool) ([]report.Entry, error) {
	entries := make([]report.Entry, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return entries, err
		}
		entry, err := t.Run(ctx, path)
		if err != nil {
			if !keepGoing {
				return entries, err
			}
			klog.Warningf("skipping %s: %v", path, err)
			continue
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}
