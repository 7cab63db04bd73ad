package bitcodec

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBinaryField(t *testing.T) {
	v, err := ParseBinaryField("1000000", ErrorBits)
	require.NoError(t, err)
	assert.Equal(t, uint32(64), v)

	v, err = ParseBinaryField("0000001", ErrorBits)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), v)

	v, err = ParseBinaryField("11111111111111", CombinedBits)
	require.NoError(t, err)
	assert.Equal(t, uint32(CombinedRange-1), v)

	for _, bad := range []string{"", "000000", "00000000", "00000a0", "0 00000", "+000000"} {
		_, err := ParseBinaryField(bad, ErrorBits)
		require.Errorf(t, err, "expected error for %q", bad)
		assert.Truef(t, errors.Is(err, ErrFormat), "error for %q should wrap ErrFormat: %v", bad, err)
	}
}

func TestToBitVector(t *testing.T) {
	bits, err := ToBitVector("101001")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 1, 0, 0, 1}, bits)

	_, err = ToBitVector("10200")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFormat))
}

func TestSplitCombinedErrorRoundTrip(t *testing.T) {
	for h := 0; h < ErrorRange; h++ {
		for l := 0; l < ErrorRange; l++ {
			gotH, gotL := SplitCombinedError(CombineErrors(h, l))
			if gotH != h || gotL != l {
				t.Fatalf("round trip (%d,%d) gave (%d,%d)", h, l, gotH, gotL)
			}
		}
	}
	assert.Equal(t, 5*128+9, CombineErrors(5, 9))
	h, l := SplitCombinedError(CombinedRange - 1)
	assert.Equal(t, ErrorRange-1, h)
	assert.Equal(t, ErrorRange-1, l)
}
