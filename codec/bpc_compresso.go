package codec

import (
	"encoding/binary"

	"github.com/cacheprobe/pagecomp/bitstream"
)

// bpcCompressoScratch is the scratch size the reference adapter gives each
// of the two trial encodings (bpctemp[34*2+2] in bpc_compresso.c); the
// Open Questions note this is arguably undersized for the mode-1 fallback,
// so this port rounds up rather than reproducing the exact byte count.
const bpcCompressoScratch = 80

// bpcCompressoWidths mirrors bpcPlaneWidths but for the 16-word variant: a
// 4-bit index and, depending on which mode is being written, a 15-bit (mode
// 0, transformed deltas) or 16-bit (mode 1, raw halfwords) DBX field. The
// "all ones" sentinel is always compared against the literal 0x7fff in both
// modes in the reference source, even though mode 1's raw values are
// 16-bit — reproduced here rather than corrected.
func bpcCompressoWidths(raw uint) bpcPlaneWidths {
	return bpcPlaneWidths{indexBits: 4, planeBits: raw, allOnes: 0x7fff}
}

// bpcCompressoEncodeMode0 transforms the block's 16 uint32 words into a base
// and 15 deltas between adjacent words, and writes the base followed by the
// ZRL encoding of the deltas' 32 bit-planes (15 bits each). Deltas wrap
// naturally on overflow; unlike bpcTransform, no sign mask is tracked.
func bpcCompressoEncodeMode0(words [16]uint32, w *bitstream.Writer) {
	base := words[0]
	var delta [15]uint32
	for i := 1; i < 16; i++ {
		delta[i-1] = words[i] - words[i-1]
	}
	var plane [32]uint32
	for i := 0; i < 32; i++ {
		var p uint32
		for j := 0; j < 15; j++ {
			p |= ((delta[j] >> uint(i)) & 1) << uint(j)
		}
		plane[i] = p
	}

	bpcWriteBase(w, base, 32)
	bpcWritePlanes(w, plane[:], bpcCompressoWidths(15))
}

// bpcCompressoDecodeMode0 inverts bpcCompressoEncodeMode0.
func bpcCompressoDecodeMode0(r *bitstream.Reader8) [16]uint32 {
	base := bpcReadBase(r, 32)
	plane := bpcReadPlanes(r, 32, bpcCompressoWidths(15))

	var delta [15]uint32
	for i := 0; i < 15; i++ {
		var d uint32
		for j := 0; j < 32; j++ {
			d |= ((plane[j] >> uint(i)) & 1) << uint(j)
		}
		delta[i] = d
	}

	var words [16]uint32
	words[0] = base
	for i := 1; i < 16; i++ {
		words[i] = words[i-1] + delta[i-1]
	}

	return words
}

// bpcCompressoEncodeMode1 writes the 32 raw uint16 halfwords of the block
// directly through the same ZRL plane grammar, skipping the transform
// entirely: the fallback mode for blocks the delta transform doesn't help.
func bpcCompressoEncodeMode1(halfwords [32]uint16, w *bitstream.Writer) {
	plane := make([]uint32, 32)
	for i, v := range halfwords {
		plane[i] = uint32(v)
	}
	bpcWritePlanes(w, plane, bpcCompressoWidths(16))
}

// bpcCompressoDecodeMode1 inverts bpcCompressoEncodeMode1.
func bpcCompressoDecodeMode1(r *bitstream.Reader8) [32]uint16 {
	plane := bpcReadPlanes(r, 32, bpcCompressoWidths(16))
	var out [32]uint16
	for i, v := range plane {
		out[i] = uint16(v)
	}

	return out
}

// bpcCompressoEncodeBlock compresses a 64-byte block (16 little-endian
// uint32 words) by trying both the transformed mode-0 encoding and the raw
// mode-1 encoding and keeping whichever is smaller, matching
// bpc_compresso.c's bpcCompressData. The kept encoding's leading bit records
// which mode was used.
func bpcCompressoEncodeBlock(in []byte, scratch []byte) int {
	var words [16]uint32
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(in[i*4:])
	}
	var halfwords [32]uint16
	for i := range halfwords {
		halfwords[i] = binary.LittleEndian.Uint16(in[i*2:])
	}

	w0 := bitstream.NewWriter(scratch)
	w0.Write(0, 1)
	bpcCompressoEncodeMode0(words, w0)
	bits0 := w0.Len()
	w0.Finish()

	var alt [bpcCompressoScratch]byte
	w1 := bitstream.NewWriter(alt[:])
	w1.Write(1, 1)
	bpcCompressoEncodeMode1(halfwords, w1)
	bits1 := w1.Len()
	bytes1 := w1.Finish()

	if bits1 < bits0 {
		copy(scratch, alt[:bytes1])

		return bits1
	}

	return bits0
}

func bpcCompressoDecodeBlock(out []byte, in []byte) error {
	r := bitstream.NewReader8(in)
	if r.Read(1) == 1 {
		halfwords := bpcCompressoDecodeMode1(r)
		for i, v := range halfwords {
			binary.LittleEndian.PutUint16(out[i*2:], v)
		}

		return nil
	}

	words := bpcCompressoDecodeMode0(r)
	for i, v := range words {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}

	return nil
}

// BPCCompresso implements Codec over 64-byte (16 x uint32) blocks using the
// two-mode scheme described in bpc_compresso.h.
type BPCCompresso struct{}

var _ blockCodec = BPCCompresso{}

func (BPCCompresso) blockSize() int { return 64 }

func (BPCCompresso) reportsCachelines() bool { return true }

func (BPCCompresso) encodeBlock(in, scratch []byte) int {
	return bpcCompressoEncodeBlock(in, scratch)
}

func (BPCCompresso) decodeBlock(out, in []byte) error {
	return bpcCompressoDecodeBlock(out, in)
}

func init() {
	Register("bpc_compresso", func(opts AdapterOptions) Codec {
		return newBlockAdapter("bpc_compresso", BPCCompresso{}, opts)
	})
}
