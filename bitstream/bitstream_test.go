package bitstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	widths := []uint{1, 3, 4, 7, 8, 13, 16, 32}
	values := []uint64{0, 1, 0x7f, 0xff, 0x1fff, 0xffff, 0xdeadbeef, 0xffffffff}

	dst := make([]byte, 256)
	w := NewWriter(dst)
	for i := range widths {
		w.Write(values[i]&((uint64(1)<<widths[i])-1), widths[i])
	}
	n := w.Finish()
	require.Greater(t, n, 0)

	r := NewReader8(dst[:n])
	for i := range widths {
		want := uint32(values[i] & ((uint64(1) << widths[i]) - 1))
		assert.Equal(t, want, r.Read(widths[i]), "field %d (width %d)", i, widths[i])
	}
}

func TestWriterLenMatchesFinish(t *testing.T) {
	dst := make([]byte, 64)
	w := NewWriter(dst)
	w.Write(0b101, 3)
	w.Write(0xabcd, 16)

	bits := w.Len()
	assert.Equal(t, 19, bits)

	n := w.Finish()
	assert.Equal(t, (bits+7)/8, n)
}

func TestWriterFlushesAcrossRegisterBoundary(t *testing.T) {
	dst := make([]byte, 32)
	w := NewWriter(dst)
	for i := 0; i < 10; i++ {
		w.Write(uint64(i&1), 7)
	}
	n := w.Finish()

	r := NewReader8(dst[:n])
	for i := 0; i < 10; i++ {
		assert.Equal(t, uint32(i&1), r.Read(7))
	}
}

func TestReader8PastEndReturnsZero(t *testing.T) {
	r := NewReader8([]byte{0xff})
	assert.Equal(t, uint32(0xff), r.Read(8))
	assert.Equal(t, uint32(0), r.Read(8))
}
