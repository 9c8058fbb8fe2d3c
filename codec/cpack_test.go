package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCPACKRoundTripsAllZeroBlock(t *testing.T) {
	in := make([]byte, 64)
	scratch := make([]byte, 128)

	bits := cpackEncodeBlock(in, scratch)
	assert.Equal(t, 32, bits) // sixteen zzzz tokens at 2 bits each

	out := make([]byte, 64)
	require.NoError(t, cpackDecodeBlock(out, scratch))
	assert.Equal(t, in, out)
}

func TestCPACKDictionaryReuseAcrossChunks(t *testing.T) {
	in := make([]byte, 64)
	// Eight identical 4-byte chunks followed by eight zero chunks: every
	// repeat after the first should be encoded as a dictionary match (mmmm,
	// 6 bits) rather than a fresh literal (xxxx).
	for i := 0; i < 8; i++ {
		in[4*i] = 0xde
		in[4*i+1] = 0xad
		in[4*i+2] = 0xbe
		in[4*i+3] = 0xef
	}
	scratch := make([]byte, 128)

	bits := cpackEncodeBlock(in, scratch)

	out := make([]byte, 64)
	require.NoError(t, cpackDecodeBlock(out, scratch))
	assert.Equal(t, in, out)

	// First chunk is a literal (2 + 32 bits), every identical chunk after it
	// is a dictionary match (2 + 4 bits) once the entry exists, and each of
	// the eight trailing zero chunks is a zzzz token (2 bits).
	assert.Equal(t, 34+7*6+8*2, bits)
}

func TestCPACKDictionaryCapsAtSixteenEntries(t *testing.T) {
	in := make([]byte, 64)
	for i := 0; i < 16; i++ {
		in[4*i] = byte(i)
		in[4*i+1] = byte(i + 1)
		in[4*i+2] = byte(i + 2)
		in[4*i+3] = byte(i + 3)
	}
	scratch := make([]byte, 256)

	cpackEncodeBlock(in, scratch)

	out := make([]byte, 64)
	require.NoError(t, cpackDecodeBlock(out, scratch))
	assert.Equal(t, in, out)
}

func TestCPACKPartialMatchGrammar(t *testing.T) {
	in := make([]byte, 64)
	// First chunk seeds the dictionary; second chunk shares its first two
	// bytes only (mmxx), third shares its first three (mmmx).
	copy(in[0:4], []byte{0x01, 0x02, 0x03, 0x04})
	copy(in[4:8], []byte{0x01, 0x02, 0x99, 0x98})
	copy(in[8:12], []byte{0x01, 0x02, 0x03, 0x97})
	scratch := make([]byte, 128)

	cpackEncodeBlock(in, scratch)

	out := make([]byte, 64)
	require.NoError(t, cpackDecodeBlock(out, scratch))
	assert.Equal(t, in, out)
}
