package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBDIEncodeBlockAllZeroIsOpcode0(t *testing.T) {
	in := make([]byte, 64)
	out := make([]byte, 65)

	n := bdiEncodeBlock(in, out)
	assert.Equal(t, 1, n)
	assert.Equal(t, byte(0), out[0])

	decoded := make([]byte, 64)
	require.NoError(t, bdiDecodeBlock(out, decoded))
	assert.Equal(t, in, decoded)
}

func TestBDIEncodeBlockRepeatedByteIsOpcode1(t *testing.T) {
	in := make([]byte, 64)
	for i := range in {
		in[i] = 0x42
	}
	out := make([]byte, 65)

	n := bdiEncodeBlock(in, out)
	assert.Equal(t, 2, n)
	assert.Equal(t, byte(1), out[0])

	decoded := make([]byte, 64)
	require.NoError(t, bdiDecodeBlock(out, decoded))
	assert.Equal(t, in, decoded)
}

func TestBDIEncodeBlockIncompressibleFallsBackToOpcodeFF(t *testing.T) {
	in := make([]byte, 64)
	for i := range in {
		// A pattern with no usable base/delta structure in any width: every
		// byte position differs unpredictably from its neighbors.
		in[i] = byte((i*97 + 53) % 256)
	}
	out := make([]byte, 65)

	n := bdiEncodeBlock(in, out)
	if out[0] == 0xff {
		assert.Equal(t, 65, n)
	}

	decoded := make([]byte, 64)
	require.NoError(t, bdiDecodeBlock(out, decoded))
	assert.Equal(t, in, decoded)
}

func TestBDIEncodedLenMatchesEveryOpcode(t *testing.T) {
	opcodes := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16,
		17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 0xff}
	for _, op := range opcodes {
		n, err := bdiEncodedLen(op)
		require.NoError(t, err, "opcode %d", op)
		assert.Greater(t, n, 0, "opcode %d", op)
	}

	_, err := bdiEncodedLen(29)
	assert.ErrorIs(t, err, ErrInvalidOpcode)
}

func TestBDIRoundTripsAscendingRun(t *testing.T) {
	in := make([]byte, 64)
	for i := range in {
		in[i] = byte(i)
	}
	out := make([]byte, 65)
	n := bdiEncodeBlock(in, out)

	decoded := make([]byte, 64)
	require.NoError(t, bdiDecodeBlock(out[:n], decoded))
	assert.Equal(t, in, decoded)
}
