// Package predictor is the sequence model that learns to map the two
// syndrome steps of a trial to its two combined errors.
//
// The model runs an LSTM over the [SequenceLen, SyndromeBits] input, joins the
// hidden state of every step and reads out LabelSize logits: one block of
// NumClasses logits for the 1-2 pair and one for the 3-4 pair. Only the 3-4
// block is used for predictions.
package predictor

import (
	"github.com/Noofbiz/exrec/datasets"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers"
	"github.com/gomlx/gomlx/pkg/ml/layers/lstm"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/gomlx/gomlx/pkg/ml/train/losses"
	"github.com/gomlx/gomlx/pkg/ml/train/optimizers"
	"github.com/gomlx/gomlx/ui/commandline"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Config holds the model and optimizer hyperparameters. Zero values are
// replaced by defaults in New.
type Config struct {
	// NumHidden is the LSTM state size. Default 64.
	NumHidden int

	// LearningRate of the optimizer. Default 1e-3.
	LearningRate float64

	// Decay is the moving-average factor of the squared gradients. Default 0.9.
	Decay float64

	// Momentum is the moving-average factor of the gradients. With 0 the
	// optimizer is RMSProp, otherwise Adam with beta1 = Momentum and
	// beta2 = Decay. Adam only approximates RMSProp with momentum: it averages
	// the gradients before scaling and applies bias correction, so results
	// for Momentum > 0 differ from an RMSProp-with-momentum run.
	Momentum float64

	// Epochs is the number of passes over the training batches. Default 1.
	Epochs int

	// EvalBatchSize bounds the number of trials per inference call. Default 4096.
	EvalBatchSize int

	// Verbose attaches a progress bar to the training loop.
	Verbose bool
}

// Model is one trainable predictor. Use one Model per basis: models share
// nothing but the backend.
type Model struct {
	Config Config

	backend backends.Backend
	ctx     *context.Context
	trained bool

	predictExec *context.Exec
}

// New creates an untrained Model on backend.
func New(backend backends.Backend, cfg Config) (*Model, error) {
	if backend == nil {
		return nil, errors.New("predictor requires a backend")
	}
	if cfg.NumHidden == 0 {
		cfg.NumHidden = 64
	}
	if cfg.LearningRate == 0 {
		cfg.LearningRate = 1e-3
	}
	if cfg.Decay == 0 {
		cfg.Decay = 0.9
	}
	if cfg.Epochs == 0 {
		cfg.Epochs = 1
	}
	if cfg.EvalBatchSize == 0 {
		cfg.EvalBatchSize = 4096
	}
	switch {
	case cfg.NumHidden < 0:
		return nil, errors.Wrapf(datasets.ErrRange, "num hidden %d must be positive", cfg.NumHidden)
	case cfg.LearningRate < 0:
		return nil, errors.Wrapf(datasets.ErrRange, "learning rate %g must be positive", cfg.LearningRate)
	case cfg.Decay < 0 || cfg.Decay >= 1:
		return nil, errors.Wrapf(datasets.ErrRange, "decay %g outside (0, 1)", cfg.Decay)
	case cfg.Momentum < 0 || cfg.Momentum >= 1:
		return nil, errors.Wrapf(datasets.ErrRange, "momentum %g outside [0, 1)", cfg.Momentum)
	case cfg.Epochs < 0 || cfg.EvalBatchSize < 0:
		return nil, errors.Wrapf(datasets.ErrRange, "epochs %d and eval batch size %d must be positive",
			cfg.Epochs, cfg.EvalBatchSize)
	}
	return &Model{
		Config:  cfg,
		backend: backend,
		ctx:     context.New(),
	}, nil
}

// modelGraph maps inputs[0], shaped [batch, SequenceLen, SyndromeBits], to
// logits shaped [batch, LabelSize].
func (m *Model) modelGraph(ctx *context.Context, _ any, inputs []*Node) []*Node {
	x := inputs[0]
	batchSize := x.Shape().Dim(0)

	// allHidden: [SequenceLen, 1, batch, NumHidden].
	allHidden, _, _ := lstm.New(ctx.In("lstm"), x, m.Config.NumHidden).Done()
	steps := make([]*Node, datasets.SequenceLen)
	for s := range steps {
		steps[s] = Reshape(Slice(allHidden, AxisRange(s, s+1)), batchSize, m.Config.NumHidden)
	}
	joined := Concatenate(steps, -1)
	logits := layers.Dense(ctx.In("readout"), joined, true, datasets.LabelSize)
	return []*Node{logits}
}

// lossGraph is the summed cross-entropy of the two one-hot blocks.
func lossGraph(labels, predictions []*Node) *Node {
	logits := predictions[0]
	batchSize := logits.Shape().Dim(0)
	logits = Reshape(logits, batchSize, datasets.SequenceLen, datasets.NumClasses)
	target := Reshape(labels[0], batchSize, datasets.SequenceLen, datasets.NumClasses)
	return ReduceAllSum(losses.CategoricalCrossEntropyLogits([]*Node{target}, []*Node{logits}))
}

// optimizer returns RMSProp, or Adam when a momentum is configured.
func (m *Model) optimizer() optimizers.Interface {
	if m.Config.Momentum > 0 {
		return optimizers.Adam().
			LearningRate(m.Config.LearningRate).
			Betas(m.Config.Momentum, m.Config.Decay).
			Done()
	}
	return optimizers.RMSProp().
		LearningRate(m.Config.LearningRate).
		Betas(0, m.Config.Decay).
		Done()
}

// Train runs Config.Epochs passes over the batches of it and returns the loss
// of the last batch.
func (m *Model) Train(it *datasets.BatchIterator) (loss float64, err error) {
	if it == nil {
		return 0, errors.New("nil batch iterator")
	}
	klog.V(1).Infof("training %s: %d epochs of %d batches of %d", it.Name(), m.Config.Epochs, it.NumBatches(), it.BatchSize())
	err = exceptions.TryCatch[error](func() {
		trainer := train.NewTrainer(m.backend, m.ctx, m.modelGraph, lossGraph, m.optimizer(), nil, nil)
		loop := train.NewLoop(trainer)
		if m.Config.Verbose {
			commandline.AttachProgressBar(loop)
		}
		it.Reset()
		metrics, runErr := loop.RunEpochs(it, m.Config.Epochs)
		if runErr != nil {
			panic(runErr)
		}
		if len(metrics) > 0 {
			loss = float64(tensors.CopyFlatData[float32](metrics[0])[0])
		}
	})
	if err != nil {
		return 0, errors.Wrapf(err, "training %s failed", it.Name())
	}
	m.trained = true
	m.predictExec = nil
	return loss, nil
}

// predictGraph returns the argmax over the 3-4 block of the logits.
func (m *Model) predictGraph(ctx *context.Context, x *Node) *Node {
	logits := m.modelGraph(ctx, nil, []*Node{x})[0]
	pair34 := Slice(logits, AxisRange(), AxisRange(datasets.NumClasses, datasets.LabelSize))
	return ArgMax(pair34, -1)
}

// Predict returns, for every trial of ds, the predicted combined 3-4 error of
// basis b, in [0, NumClasses).
func (m *Model) Predict(ds *datasets.Dataset, b datasets.Basis) ([]int, error) {
	if !m.trained {
		return nil, errors.New("predictor has not been trained")
	}
	if m.predictExec == nil {
		exec, err := context.NewExec(m.backend, m.ctx.Reuse(), m.predictGraph)
		if err != nil {
			return nil, errors.Wrap(err, "failed to build prediction graph")
		}
		m.predictExec = exec
	}

	n := ds.Len()
	predictions := make([]int, 0, n)
	for from := 0; from < n; from += m.Config.EvalBatchSize {
		to := min(from+m.Config.EvalBatchSize, n)
		input := datasets.InputTensor(ds.InputBatch(b, from, to), to-from)
		out, err := m.predictExec.Exec1(input)
		if err != nil {
			return nil, errors.Wrapf(err, "prediction of trials [%d, %d) failed", from, to)
		}
		for _, v := range tensors.CopyFlatData[int32](out) {
			predictions = append(predictions, int(v))
		}
	}
	return predictions, nil
}
