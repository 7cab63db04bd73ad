// Package decoder classifies residual errors on a 7-qubit CSS code block.
//
// A block error is a 7-bit value written most-significant bit first: bit 6 of
// the integer is qubit (column) 0 of the check matrix, bit 0 is column 6.
// Given a predicted recovery and the actual error, the residual
// recovery XOR actual is measured against the check matrix, the code's own
// single-qubit correction for that syndrome is applied, and what remains is
// either a stabilizer (even weight) or a logical operator (odd weight).
package decoder

import (
	"fmt"
	"math/bits"

	"github.com/Noofbiz/exrec/bitcodec"
	"github.com/pkg/errors"
)

const (
	// NumQubits is the block length of the code.
	NumQubits = bitcodec.ErrorBits

	// NumChecks is the number of parity checks (rows of the check matrix).
	NumChecks = 3

	numSyndromes = 1 << NumChecks
)

// Matrix is a NumChecks x NumQubits binary check matrix, one row per check.
type Matrix [NumChecks][NumQubits]uint8

// SteaneMatrix is the generator/parity-check matrix G of the code. Column j
// read top to bottom is the binary representation of j+1.
var SteaneMatrix = Matrix{
	{0, 0, 0, 1, 1, 1, 1},
	{0, 1, 1, 0, 0, 1, 1},
	{1, 0, 1, 0, 1, 0, 1},
}

// Steane is the code built from SteaneMatrix. It is immutable and safe for
// concurrent use.
var Steane = mustNewCode(SteaneMatrix)

// Code holds a check matrix in bit-mask form together with its
// syndrome -> single-qubit correction lookup table.
type Code struct {
	matrix Matrix

	// rows[r] has bit (NumQubits-1-j) set when matrix[r][j] == 1.
	rows [NumChecks]uint8

	// corrections[s] is the correction applied for syndrome value s, where
	// s = 4*s0 + 2*s1 + s2. corrections[0] is always 0.
	corrections [numSyndromes]uint8
}

// NewCode builds a Code from m. Every column of m must be a distinct,
// non-zero syndrome so that each single-qubit error has its own correction.
func NewCode(m Matrix) (*Code, error) {
	c := &Code{matrix: m}
	for r := range NumChecks {
		for j := range NumQubits {
			switch m[r][j] {
			case 0:
			case 1:
				c.rows[r] |= unitMask(j)
			default:
				return nil, errors.Wrapf(bitcodec.ErrFormat, "check matrix entry [%d][%d]=%d is not binary", r, j, m[r][j])
			}
		}
	}
	seen := [numSyndromes]bool{true}
	for j := range NumQubits {
		s := c.Syndrome(unitMask(j))
		if seen[s] {
			return nil, errors.Wrapf(bitcodec.ErrRange,
				"column %d of the check matrix has syndrome %03b, which is zero or shared with another column", j, s)
		}
		seen[s] = true
		c.corrections[s] = unitMask(j)
	}
	return c, nil
}

func mustNewCode(m Matrix) *Code {
	c, err := NewCode(m)
	if err != nil {
		panic(fmt.Sprintf("invalid built-in check matrix: %v", err))
	}
	return c
}

// unitMask returns the 7-bit vector with a single 1 at column j.
func unitMask(j int) uint8 {
	return 1 << (NumQubits - 1 - j)
}

// Matrix returns a copy of the check matrix.
func (c *Code) Matrix() Matrix {
	return c.matrix
}

// Syndrome computes G . e^T mod 2 packed as 4*s0 + 2*s1 + s2.
func (c *Code) Syndrome(e uint8) int {
	s := 0
	for r := range NumChecks {
		s = s<<1 | bits.OnesCount8(c.rows[r]&e)&1
	}
	return s
}

// Correction returns the single-qubit correction for syndrome value s, or 0
// when s is the trivial syndrome.
func (c *Code) Correction(s int) uint8 {
	return c.corrections[s&(numSyndromes-1)]
}

// Coset returns the residual recovery XOR actual after the code's own
// correction for its syndrome.
func (c *Code) Coset(recovery, actual uint8) uint8 {
	e := recovery ^ actual
	return e ^ c.Correction(c.Syndrome(e))
}

// Check reports whether applying recovery to a block holding actual leaves a
// logical fault. Both operands must be in [0,128).
func (c *Code) Check(recovery, actual int) (bool, error) {
	if recovery < 0 || recovery >= bitcodec.ErrorRange {
		return false, errors.Wrapf(bitcodec.ErrRange, "recovery %d outside [0,%d)", recovery, bitcodec.ErrorRange)
	}
	if actual < 0 || actual >= bitcodec.ErrorRange {
		return false, errors.Wrapf(bitcodec.ErrRange, "actual error %d outside [0,%d)", actual, bitcodec.ErrorRange)
	}
	return bits.OnesCount8(c.Coset(uint8(recovery), uint8(actual)))&1 == 1, nil
}

// IsLogicalFault is Check for the Steane code. It panics if an operand is
// outside [0,128); use Steane.Check to get an error instead.
func IsLogicalFault(recovery, actual int) bool {
	fault, err := Steane.Check(recovery, actual)
	if err != nil {
		panic(err)
	}
	return fault
}
