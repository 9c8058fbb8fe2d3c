package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cacheprobe/pagecomp/page"
)

func TestHuffmanRoundTripsSingleSymbolPage(t *testing.T) {
	in := make([]byte, page.Size)
	for i := range in {
		in[i] = 0x07
	}
	scratch := make([]byte, page.Size*2)

	n := huffmanEncodePage(in, scratch)
	require.Greater(t, n, 0)

	out := make([]byte, page.Size)
	require.NoError(t, huffmanDecodePage(out, scratch[:n], page.Size))
	assert.Equal(t, in, out)
}

func TestHuffmanRoundTripsSkewedDistribution(t *testing.T) {
	in := make([]byte, page.Size)
	for i := range in {
		if i%64 == 0 {
			in[i] = byte(i)
		} else {
			in[i] = 0xaa
		}
	}
	scratch := make([]byte, page.Size*2)

	n := huffmanEncodePage(in, scratch)
	out := make([]byte, page.Size)
	require.NoError(t, huffmanDecodePage(out, scratch[:n], page.Size))
	assert.Equal(t, in, out)
}

func TestHuffmanRoundTripsEveryByteValuePresent(t *testing.T) {
	in := make([]byte, page.Size)
	for i := range in {
		in[i] = byte(i % 256)
	}
	scratch := make([]byte, page.Size*2)

	n := huffmanEncodePage(in, scratch)
	out := make([]byte, page.Size)
	require.NoError(t, huffmanDecodePage(out, scratch[:n], page.Size))
	assert.Equal(t, in, out)
}
