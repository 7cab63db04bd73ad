// Package bitcodec converts the fixed-width binary fields found in trial
// records into integers and bit vectors.
//
// Error values in trial files are written most-significant bit first, so the
// string "1000000" is the 7-bit value 64. Two 7-bit errors on a pair of
// qubits are concatenated into one 14-bit value, high qubit first.
package bitcodec

import (
	"github.com/pkg/errors"
)

const (
	// ErrorBits is the width of a single-block error field.
	ErrorBits = 7

	// CombinedBits is the width of a two-block combined error field.
	CombinedBits = 2 * ErrorBits

	// ErrorRange is the number of distinct single-block errors (2^7).
	ErrorRange = 1 << ErrorBits

	// CombinedRange is the number of distinct combined errors (2^14).
	CombinedRange = 1 << CombinedBits
)

// ParseBinaryField interprets text as a base-2 digit string of exactly width
// characters.
func ParseBinaryField(text string, width int) (uint32, error) {
	if width <= 0 || width > 32 {
		return 0, errors.Wrapf(ErrFormat, "unsupported field width %d", width)
	}
	if len(text) != width {
		return 0, errors.Wrapf(ErrFormat, "field %q has %d characters, want %d", text, len(text), width)
	}
	var v uint32
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '0':
			v <<= 1
		case '1':
			v = v<<1 | 1
		default:
			return 0, errors.Wrapf(ErrFormat, "field %q has non-binary character %q at %d", text, text[i], i)
		}
	}
	return v, nil
}

// ToBitVector maps each character of text to 0 or 1.
func ToBitVector(text string) ([]float32, error) {
	bits := make([]float32, len(text))
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '0':
		case '1':
			bits[i] = 1
		default:
			return nil, errors.Wrapf(ErrFormat, "syndrome %q has non-binary character %q at %d", text, text[i], i)
		}
	}
	return bits, nil
}

// SplitCombinedError returns (value div 2^7, value mod 2^7).
func SplitCombinedError(value int) (high, low int) {
	return value >> ErrorBits, value & (ErrorRange - 1)
}

// CombineErrors is the inverse of SplitCombinedError: high*2^7 + low.
func CombineErrors(high, low int) int {
	return high<<ErrorBits | low
}
