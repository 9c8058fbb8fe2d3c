package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBPCCompressoMode0PreservesFullBase regression-tests the base-width
// bug once caught here: bpcWriteBase masked the block's base to its low 16
// bits before writing it, which this test would have failed (base would
// decode as 0x0100 instead of 0x03020100).
func TestBPCCompressoMode0PreservesFullBase(t *testing.T) {
	in := make([]byte, 64)
	for i := 0; i < 16; i++ {
		in[i*4+0] = 0x00
		in[i*4+1] = 0x01
		in[i*4+2] = 0x02
		in[i*4+3] = 0x03
	}
	scratch := make([]byte, 144)

	bits := bpcCompressoEncodeBlock(in, scratch)
	nbytes := (bits + 7) / 8

	out := make([]byte, 64)
	require.NoError(t, bpcCompressoDecodeBlock(out, scratch[:nbytes]))
	assert.Equal(t, in, out)
}

func TestBPCCompressoMode0AllZeroBlock(t *testing.T) {
	in := make([]byte, 64)
	scratch := make([]byte, 144)

	bits := bpcCompressoEncodeBlock(in, scratch)
	nbytes := (bits + 7) / 8

	out := make([]byte, 64)
	require.NoError(t, bpcCompressoDecodeBlock(out, scratch[:nbytes]))
	assert.Equal(t, in, out)
}

// TestBPCCompressoMode1Fallback exercises the raw-halfword mode by using
// values that make the delta transform worse than emitting the halfwords
// directly: every fourth uint32 word holds unrelated bytes and the rest are
// zero, so most raw halfwords are zero while the deltas between adjacent
// words are not.
func TestBPCCompressoMode1Fallback(t *testing.T) {
	in := make([]byte, 64)
	for i := range in {
		if i%16 < 4 {
			in[i] = byte(i*83 + 17)
		}
	}
	scratch := make([]byte, 144)

	bits := bpcCompressoEncodeBlock(in, scratch)
	nbytes := (bits + 7) / 8
	assert.Equal(t, byte(1), scratch[0]>>7) // leading bit 1 marks mode 1

	out := make([]byte, 64)
	require.NoError(t, bpcCompressoDecodeBlock(out, scratch[:nbytes]))
	assert.Equal(t, in, out)
}

func TestBPCCompressoCodecRoundTrip(t *testing.T) {
	c := BPCCompresso{}
	in := make([]byte, c.blockSize())
	for i := 0; i < 16; i++ {
		in[i*4+0] = 0xff
		in[i*4+1] = 0xfe
		in[i*4+2] = 0xfd
		in[i*4+3] = 0xfc
	}
	scratch := make([]byte, c.blockSize()*2+16)

	bits := c.encodeBlock(in, scratch)
	nbytes := (bits + 7) / 8

	out := make([]byte, c.blockSize())
	require.NoError(t, c.decodeBlock(out, scratch[:nbytes]))
	assert.Equal(t, in, out)
}
