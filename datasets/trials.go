package datasets

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Noofbiz/exrec/bitcodec"
	"github.com/pkg/errors"
)

// Trial files are written by the circuit simulator, one file per physical
// error rate. The first line is the header:
//
//	<p> <lu_avg> <lu_std> <data_size>
//
// Every following line is one trial with a nontrivial syndrome, as 16
// whitespace-separated binary tokens:
//
//	col  0-1   X syndrome, blocks 1 and 2 (3 bits each)
//	col  2-3   X syndrome, blocks 3 and 4
//	col  4-5   X error, blocks 1 and 2 (7 bits each)
//	col  6-7   X error, blocks 3 and 4
//	col  8-9   Z syndrome, blocks 1 and 2
//	col 10-11  Z syndrome, blocks 3 and 4
//	col 12-13  Z error, blocks 1 and 2
//	col 14-15  Z error, blocks 3 and 4
//
// Trials whose syndromes are all zero are not written; data_size counts every
// simulated trial, written or not.

const (
	// NumTokens is the number of tokens on a trial line.
	NumTokens = 16

	// syndromeBlockBits is the width of one block syndrome token.
	syndromeBlockBits = SyndromeBits / 2

	// maxLineSize bounds a single line read by the scanner.
	maxLineSize = 1 << 20
)

// Column index of the first token of each field. Pairs occupy two columns.
const (
	colSynX12 = 0
	colSynX34 = 2
	colErrX12 = 4
	colErrX34 = 6
	colSynZ12 = 8
	colSynZ34 = 10
	colErrZ12 = 12
	colErrZ34 = 14
)

// Header holds the first line of a trial file.
type Header struct {
	// P is the physical error rate of the simulation.
	P float64

	// LuAvg and LuStd are the baseline (lookup-table decoder) logical error
	// rate and its standard deviation.
	LuAvg float64
	LuStd float64

	// DataSize is the number of simulated trials, including the ones with a
	// trivial syndrome that were not written.
	DataSize int
}

// TrialRecord is one parsed trial line.
type TrialRecord struct {
	// Syndromes, 6 bits each: the two 3-bit block syndromes joined.
	SynX12, SynX34 string
	SynZ12, SynZ34 string

	// Combined 14-bit errors: high block * 2^7 + low block.
	ErrX12, ErrX34 int
	ErrZ12, ErrZ34 int

	// 7-bit block errors of blocks 3 and 4.
	ErrX3, ErrX4 int
	ErrZ3, ErrZ4 int
}

// ParseHeader parses the header line.
func ParseHeader(line string) (Header, error) {
	var h Header
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return h, errors.Wrapf(ErrParse, "header %q has %d fields, want 4", line, len(fields))
	}
	var err error
	floats := []*float64{&h.P, &h.LuAvg, &h.LuStd}
	for i, dst := range floats {
		if *dst, err = strconv.ParseFloat(fields[i], 64); err != nil {
			return h, errors.Wrapf(ErrParse, "header field %d (%q): %v", i, fields[i], err)
		}
	}
	if h.DataSize, err = strconv.Atoi(fields[3]); err != nil {
		return h, errors.Wrapf(ErrParse, "header data size %q: %v", fields[3], err)
	}
	if h.DataSize <= 0 {
		return h, errors.Wrapf(ErrParse, "header data size %d must be positive", h.DataSize)
	}
	return h, nil
}

// ParseRecord parses one trial line. A malformed binary field is reported as
// ErrParse, with the field error in the message.
func ParseRecord(line string) (TrialRecord, error) {
	var rec TrialRecord
	tokens := strings.Fields(line)
	if len(tokens) != NumTokens {
		return rec, errors.Wrapf(ErrParse, "trial line has %d tokens, want %d", len(tokens), NumTokens)
	}

	syndromes := []struct {
		col int
		dst *string
	}{
		{colSynX12, &rec.SynX12}, {colSynX34, &rec.SynX34},
		{colSynZ12, &rec.SynZ12}, {colSynZ34, &rec.SynZ34},
	}
	for _, f := range syndromes {
		for _, tok := range tokens[f.col : f.col+2] {
			if _, err := bitcodec.ParseBinaryField(tok, syndromeBlockBits); err != nil {
				return rec, errors.Wrapf(ErrParse, "syndrome column %d: %v", f.col, err)
			}
		}
		*f.dst = tokens[f.col] + tokens[f.col+1]
	}

	var blocks [NumTokens]int
	for _, col := range []int{colErrX12, colErrX34, colErrZ12, colErrZ34} {
		for _, c := range []int{col, col + 1} {
			v, err := bitcodec.ParseBinaryField(tokens[c], bitcodec.ErrorBits)
			if err != nil {
				return rec, errors.Wrapf(ErrParse, "error column %d: %v", c, err)
			}
			blocks[c] = int(v)
		}
	}
	rec.ErrX3, rec.ErrX4 = blocks[colErrX34], blocks[colErrX34+1]
	rec.ErrZ3, rec.ErrZ4 = blocks[colErrZ34], blocks[colErrZ34+1]

	// Combined values are derived from the block columns, then checked
	// against the joined tokens read as one 14-bit field.
	combined := []struct {
		col int
		dst *int
	}{
		{colErrX12, &rec.ErrX12}, {colErrX34, &rec.ErrX34},
		{colErrZ12, &rec.ErrZ12}, {colErrZ34, &rec.ErrZ34},
	}
	for _, f := range combined {
		*f.dst = bitcodec.CombineErrors(blocks[f.col], blocks[f.col+1])
		joined, err := bitcodec.ParseBinaryField(tokens[f.col]+tokens[f.col+1], bitcodec.CombinedBits)
		if err != nil {
			return rec, errors.Wrapf(ErrParse, "combined error columns %d-%d: %v", f.col, f.col+1, err)
		}
		if int(joined) != *f.dst {
			return rec, errors.Wrapf(ErrParse, "combined error columns %d-%d read %d, blocks give %d",
				f.col, f.col+1, joined, *f.dst)
		}
	}
	return rec, nil
}

// Load reads the trial file at path.
func Load(path string) (*Dataset, Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Header{}, errors.Wrapf(err, "failed to open trial file %s", path)
	}
	defer f.Close()
	ds, h, err := Read(f)
	if err != nil {
		return nil, Header{}, errors.WithMessagef(err, "trial file %s", path)
	}
	return ds, h, nil
}

// Read parses a trial file from r. Any malformed line fails the whole file:
// rows of the per-basis arrays must stay aligned. Blank lines are ignored.
func Read(r io.Reader) (*Dataset, Header, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, Header{}, errors.Wrap(err, "failed to read header")
		}
		return nil, Header{}, errors.Wrap(ErrParse, "missing header line")
	}
	h, err := ParseHeader(scanner.Text())
	if err != nil {
		return nil, Header{}, errors.WithMessage(err, "line 1")
	}

	ds := newDataset(0)
	lineNum := 1
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, err := ParseRecord(line)
		if err != nil {
			return nil, Header{}, errors.WithMessagef(err, "line %d", lineNum)
		}
		ds.append(&rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, Header{}, errors.Wrapf(err, "failed to read line %d", lineNum+1)
	}
	return ds, h, nil
}
