package datasets

import (
	"fmt"
	"io"
	"iter"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
)

// Batch is one contiguous minibatch of a basis, in flat row-major buffers.
type Batch struct {
	Basis Basis

	// Index is the batch number within the epoch; rows are [From, To).
	Index    int
	From, To int

	// Inputs is [Size()][SequenceLen][SyndromeBits], aliasing the dataset.
	Inputs []float32

	// Labels is [Size()][LabelSize]: the one-hot rows of the 12 and 34 pairs.
	Labels []float32
}

// Size returns the number of trials in the batch.
func (b *Batch) Size() int {
	return b.To - b.From
}

// ToGomlxTensors converts the batch to gomlx tensors shaped
// [batch, SequenceLen, SyndromeBits] and [batch, LabelSize].
func (b *Batch) ToGomlxTensors() (inputs, labels *tensors.Tensor, err error) {
	n := b.Size()
	if n <= 0 {
		return nil, nil, errors.Wrapf(ErrRange, "empty batch %d", b.Index)
	}
	if len(b.Inputs) != n*InputSize || len(b.Labels) != n*LabelSize {
		return nil, nil, errors.Errorf("batch %d buffers hold %d inputs and %d labels, want %d and %d",
			b.Index, len(b.Inputs), len(b.Labels), n*InputSize, n*LabelSize)
	}
	inputs = InputTensor(b.Inputs, n)
	labels = tensors.FromFlatDataAndDimensions(b.Labels, n, LabelSize)
	return inputs, labels, nil
}

// InputTensor copies the first n input rows of flat into a
// [n, SequenceLen, SyndromeBits] tensor. The tensor does not alias flat.
func InputTensor(flat []float32, n int) *tensors.Tensor {
	buf := make([]float32, n*InputSize)
	copy(buf, flat)
	return tensors.FromFlatDataAndDimensions(buf, n, SequenceLen, SyndromeBits)
}

// NumBatches returns floor(n / batchSize): trailing rows that do not fill a
// batch are never yielded.
func NumBatches(n, batchSize int) int {
	if batchSize <= 0 || n <= 0 {
		return 0
	}
	return n / batchSize
}

// batch materializes batch j of basis b.
func (d *Dataset) batch(b Basis, j, batchSize int) (*Batch, error) {
	from, to := j*batchSize, (j+1)*batchSize
	labels, err := d.IndicatorBatch(b, from, to)
	if err != nil {
		return nil, errors.WithMessagef(err, "batch %d", j)
	}
	return &Batch{
		Basis:  b,
		Index:  j,
		From:   from,
		To:     to,
		Inputs: d.InputBatch(b, from, to),
		Labels: labels,
	}, nil
}

// Batches returns the minibatches of basis b in file order. Each call starts a
// new pass, so the sequence can be ranged over once per epoch. Iteration stops
// after the first error.
func (d *Dataset) Batches(b Basis, batchSize int) iter.Seq2[*Batch, error] {
	return func(yield func(*Batch, error) bool) {
		if batchSize <= 0 {
			yield(nil, errors.Wrapf(ErrRange, "batch size %d must be positive", batchSize))
			return
		}
		for j := range NumBatches(d.n, batchSize) {
			batch, err := d.batch(b, j, batchSize)
			if !yield(batch, err) || err != nil {
				return
			}
		}
	}
}

// BatchIterator feeds the minibatches of one basis to a gomlx train.Loop. It
// implements train.Dataset: Yield returns io.EOF at the end of each epoch and
// Reset rewinds to the first batch.
//
// A BatchIterator is not safe for concurrent use. Use one per basis pipeline.
type BatchIterator struct {
	ds        *Dataset
	basis     Basis
	batchSize int
	next      int
}

// NewBatchIterator creates an iterator over the train rows of ds for basis b.
func NewBatchIterator(ds *Dataset, b Basis, batchSize int) (*BatchIterator, error) {
	if batchSize <= 0 {
		return nil, errors.Wrapf(ErrRange, "batch size %d must be positive", batchSize)
	}
	if NumBatches(ds.Len(), batchSize) == 0 {
		return nil, errors.Wrapf(ErrRange, "batch size %d larger than the %d train trials", batchSize, ds.Len())
	}
	return &BatchIterator{ds: ds, basis: b, batchSize: batchSize}, nil
}

// Name implements train.Dataset.
func (it *BatchIterator) Name() string {
	return fmt.Sprintf("trials-%s", it.basis)
}

// Basis returns the basis the iterator yields.
func (it *BatchIterator) Basis() Basis {
	return it.basis
}

// BatchSize returns the number of trials per batch.
func (it *BatchIterator) BatchSize() int {
	return it.batchSize
}

// NumBatches returns the number of batches per epoch.
func (it *BatchIterator) NumBatches() int {
	return NumBatches(it.ds.Len(), it.batchSize)
}

// Reset implements train.Dataset.
func (it *BatchIterator) Reset() {
	it.next = 0
}

// Yield implements train.Dataset. spec is always nil: the trainer keys its
// compiled graphs by spec, and every batch has the same shapes.
func (it *BatchIterator) Yield() (spec any, inputs, labels []*tensors.Tensor, err error) {
	if it.next >= it.NumBatches() {
		return nil, nil, nil, io.EOF
	}
	batch, err := it.ds.batch(it.basis, it.next, it.batchSize)
	if err != nil {
		return nil, nil, nil, err
	}
	it.next++
	in, lab, err := batch.ToGomlxTensors()
	if err != nil {
		return nil, nil, nil, err
	}
	return nil, []*tensors.Tensor{in}, []*tensors.Tensor{lab}, nil
}
