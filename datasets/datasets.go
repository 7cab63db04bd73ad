package datasets

import (
	"fmt"

	"github.com/Noofbiz/exrec/bitcodec"
	"github.com/pkg/errors"
)

// This file defines the in-memory trial dataset built from one simulation
// run file and the views used for training and evaluation.
//
// Layout and intended usage:
//
// Dataset
//   - Built once per file by Load/Read, then split by row index into a train
//     and a test view (Split). Views share the backing arrays and are
//     read-only.
//   - Inputs per trial and basis: the two 6-bit syndromes (qubits 1-2, then
//     3-4) as a [SequenceLen][SyndromeBits] float32 block of 0/1 values.
//   - Labels per trial and basis: the two 14-bit combined errors (12, 34).
//     Their one-hot indicator rows (2 x 2^14) are built on demand per batch
//     by IndicatorBatch, so a file never holds the full indicator matrix.
//   - Outputs per trial and Key (X3, X4, Z3, Z4): the 7-bit block errors
//     used to score predictions.
//
// BatchIterator adapts a Dataset to gomlx's train.Dataset interface so it can
// feed a train.Loop directly.

// Errors re-exported for callers that only import datasets.
var (
	ErrFormat = bitcodec.ErrFormat
	ErrParse  = bitcodec.ErrParse
	ErrIndex  = bitcodec.ErrIndex
	ErrRange  = bitcodec.ErrRange
)

const (
	// SequenceLen is the number of syndrome steps fed to a predictor.
	SequenceLen = 2

	// SyndromeBits is the width of one step: two 3-bit block syndromes.
	SyndromeBits = 6

	// InputSize is the number of input values per trial.
	InputSize = SequenceLen * SyndromeBits

	// NumClasses is the number of distinct combined errors per qubit pair.
	NumClasses = bitcodec.CombinedRange

	// LabelSize is the length of one indicator row: two one-hot blocks.
	LabelSize = SequenceLen * NumClasses
)

// Basis is one of the two error types the code corrects independently.
type Basis int

const (
	X Basis = iota
	Z
	NumBases
)

// Bases lists the bases in training order.
var Bases = []Basis{X, Z}

func (b Basis) String() string {
	switch b {
	case X:
		return "X"
	case Z:
		return "Z"
	}
	return fmt.Sprintf("Basis(%d)", int(b))
}

// Key identifies one (qubit, basis) block error scored at evaluation.
type Key int

const (
	X3 Key = iota
	X4
	Z3
	Z4
	NumKeys
)

// Keys lists the scored keys in the order they are checked for each trial.
var Keys = []Key{X3, X4, Z3, Z4}

// Basis returns the basis of the key.
func (k Key) Basis() Basis {
	if k == X3 || k == X4 {
		return X
	}
	return Z
}

// High reports whether the key is the high half (qubit 3) of the 3-4 pair.
func (k Key) High() bool {
	return k == X3 || k == Z3
}

func (k Key) String() string {
	switch k {
	case X3:
		return "X3"
	case X4:
		return "X4"
	case Z3:
		return "Z3"
	case Z4:
		return "Z4"
	}
	return fmt.Sprintf("Key(%d)", int(k))
}

// Dataset owns the aligned per-trial arrays of one file (or a row view of
// them).
type Dataset struct {
	n int

	// inputs[b] holds n*InputSize values.
	inputs [NumBases][]float32

	// combined[b] holds n*SequenceLen labels: (12, 34) per trial.
	combined [NumBases][]int

	// outputs[k] holds n block errors.
	outputs [NumKeys][]int
}

// newDataset allocates room for capacity trials.
func newDataset(capacity int) *Dataset {
	d := &Dataset{}
	for b := range NumBases {
		d.inputs[b] = make([]float32, 0, capacity*InputSize)
		d.combined[b] = make([]int, 0, capacity*SequenceLen)
	}
	for k := range NumKeys {
		d.outputs[k] = make([]int, 0, capacity)
	}
	return d
}

// append adds one trial to the dataset.
func (d *Dataset) append(rec *TrialRecord) {
	syn := [NumBases][SequenceLen]string{
		X: {rec.SynX12, rec.SynX34},
		Z: {rec.SynZ12, rec.SynZ34},
	}
	for b := range NumBases {
		for _, s := range syn[b] {
			for i := 0; i < len(s); i++ {
				d.inputs[b] = append(d.inputs[b], float32(s[i]-'0'))
			}
		}
	}
	d.combined[X] = append(d.combined[X], rec.ErrX12, rec.ErrX34)
	d.combined[Z] = append(d.combined[Z], rec.ErrZ12, rec.ErrZ34)
	d.outputs[X3] = append(d.outputs[X3], rec.ErrX3)
	d.outputs[X4] = append(d.outputs[X4], rec.ErrX4)
	d.outputs[Z3] = append(d.outputs[Z3], rec.ErrZ3)
	d.outputs[Z4] = append(d.outputs[Z4], rec.ErrZ4)
	d.n++
}

// Len returns the number of trials.
func (d *Dataset) Len() int {
	return d.n
}

// Input returns the InputSize syndrome values of trial i for basis b. The
// returned slice aliases the dataset and must not be modified.
func (d *Dataset) Input(b Basis, i int) []float32 {
	return d.inputs[b][i*InputSize : (i+1)*InputSize]
}

// InputBatch returns the syndrome values of trials [from, to) for basis b,
// flattened as [to-from][SequenceLen][SyndromeBits]. The returned slice
// aliases the dataset and must not be modified.
func (d *Dataset) InputBatch(b Basis, from, to int) []float32 {
	return d.inputs[b][from*InputSize : to*InputSize]
}

// Output returns the block error of trial i for key k.
func (d *Dataset) Output(k Key, i int) int {
	return d.outputs[k][i]
}

// Labels returns the (12, 34) combined errors of trial i for basis b.
func (d *Dataset) Labels(b Basis, i int) (pair12, pair34 int) {
	return d.combined[b][i*SequenceLen], d.combined[b][i*SequenceLen+1]
}

// IndicatorBatch returns the one-hot indicator rows of trials [from, to) for
// basis b, flattened as [to-from][LabelSize]. Each row is the indicator of the
// 12 pair followed by the indicator of the 34 pair.
func (d *Dataset) IndicatorBatch(b Basis, from, to int) ([]float32, error) {
	if from < 0 || to > d.n || from > to {
		return nil, errors.Wrapf(ErrRange, "rows [%d, %d) outside dataset of %d trials", from, to, d.n)
	}
	flat := make([]float32, (to-from)*LabelSize)
	if err := fillIndicator(flat, d.combined[b][from*SequenceLen:to*SequenceLen], NumClasses); err != nil {
		return nil, err
	}
	return flat, nil
}

// Slice returns the trials [from, to) as a view sharing the backing arrays,
// in the original order.
func (d *Dataset) Slice(from, to int) (*Dataset, error) {
	if from < 0 || to > d.n || from > to {
		return nil, errors.Wrapf(ErrRange, "rows [%d, %d) outside dataset of %d trials", from, to, d.n)
	}
	v := &Dataset{n: to - from}
	for b := range NumBases {
		v.inputs[b] = d.inputs[b][from*InputSize : to*InputSize : to*InputSize]
		v.combined[b] = d.combined[b][from*SequenceLen : to*SequenceLen : to*SequenceLen]
	}
	for k := range NumKeys {
		v.outputs[k] = d.outputs[k][from:to:to]
	}
	return v, nil
}

// Split returns the leading Len()-testSize trials as train and the trailing
// testSize trials as test. Both keep the file order.
func Split(d *Dataset, testSize int) (train, test *Dataset, err error) {
	if testSize < 0 || testSize >= d.Len() {
		return nil, nil, errors.Wrapf(ErrRange, "test size %d invalid for %d trials, want [0, %d)",
			testSize, d.Len(), d.Len())
	}
	cut := d.Len() - testSize
	if train, err = d.Slice(0, cut); err != nil {
		return nil, nil, err
	}
	if test, err = d.Slice(cut, d.Len()); err != nil {
		return nil, nil, err
	}
	return train, test, nil
}

// BuildIndicator returns one row of length numClasses per label with a single
// 1 at the label's index.
func BuildIndicator(labels []int, numClasses int) ([][]float32, error) {
	flat := make([]float32, len(labels)*numClasses)
	if err := fillIndicator(flat, labels, numClasses); err != nil {
		return nil, err
	}
	rows := make([][]float32, len(labels))
	for i := range rows {
		rows[i] = flat[i*numClasses : (i+1)*numClasses : (i+1)*numClasses]
	}
	return rows, nil
}

// fillIndicator writes consecutive one-hot blocks of numClasses values into
// dst, one per label. dst must be zeroed and hold len(labels)*numClasses.
func fillIndicator(dst []float32, labels []int, numClasses int) error {
	for i, label := range labels {
		if label < 0 || label >= numClasses {
			return errors.Wrapf(ErrIndex, "label %d at position %d outside [0, %d)", label, i, numClasses)
		}
		dst[i*numClasses+label] = 1
	}
	return nil
}
