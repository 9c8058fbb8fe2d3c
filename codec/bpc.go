package codec

import (
	"encoding/binary"

	"github.com/cacheprobe/pagecomp/bitstream"
)

// bpcTransform computes the base + 31-delta + sign-mask representation of
// 32 consecutive uint32 words, mirroring bpctransform() in bpc.h. plane[0..31]
// holds the bit-plane matrix (plane[k] is bit k of each of the 31 deltas,
// LSB-first across deltas) and plane[32] holds the sign mask.
func bpcTransform(in [32]uint32) (base uint32, plane [33]uint32) {
	base = in[0]
	var delta [31]uint32
	for i := 1; i < 32; i++ {
		delta[i-1] = in[i] - in[i-1]
		if in[i] < in[i-1] {
			plane[32] |= 1 << uint(i-1)
		}
	}
	for i := 0; i < 32; i++ {
		var p uint32
		for j := 0; j < 31; j++ {
			p |= ((delta[j] >> uint(i)) & 1) << uint(j)
		}
		plane[i] = p
	}

	return base, plane
}

// bpcTransformRev inverts bpcTransform, mirroring bpctransform_rev().
func bpcTransformRev(base uint32, plane [33]uint32) (out [32]uint32) {
	out[0] = base
	var delta [31]uint32
	for i := 0; i < 31; i++ {
		var d uint32
		for j := 0; j < 32; j++ {
			d |= ((plane[j] >> uint(i)) & 1) << uint(j)
		}
		delta[i] = d
	}
	for i := 1; i < 32; i++ {
		if (plane[32]>>uint(i-1))&1 == 0 {
			out[i] = out[i-1] + delta[i-1]
		} else {
			out[i] = out[i-1] - (^delta[i-1] + 1)
		}
	}

	return out
}

// bpcWriteBase emits the base-encoding prefix used by both BPC variants: a
// short form selected by a 3-bit tag (all-zero / 4-bit / 8-bit / 16-bit
// signed) or, failing those, a single set bit followed by the raw 32-bit
// base. width is always 32 for both variants; the short-form checks are
// identical between them.
func bpcWriteBase(w *bitstream.Writer, base uint32, width uint) {
	signed4 := uint32(0xfffffff8)
	signed8 := uint32(0xffffff80)
	signed16 := uint32(0xffff8000)

	switch {
	case base == 0:
		w.Write(0, 3)
	case signed4&base == 0 || signed4&^base == 0:
		w.Write(1, 3)
		w.Write(uint64(base&0xf), 4)
	case signed8&base == 0 || signed8&^base == 0:
		w.Write(2, 3)
		w.Write(uint64(base&0xff), 8)
	case signed16&base == 0 || signed16&^base == 0:
		w.Write(3, 3)
		w.Write(uint64(base&0xffff), 16)
	default:
		w.Write(1, 1)
		w.Write(uint64(base), width)
	}
}

// bpcReadBase inverts bpcWriteBase.
func bpcReadBase(r *bitstream.Reader8, width uint) uint32 {
	if r.Read(1) == 1 {
		return r.Read(width)
	}
	switch r.Read(2) {
	case 1:
		base := r.Read(4)
		if base&8 != 0 {
			base |= 0xfffffff0
		}

		return base
	case 2:
		base := r.Read(8)
		if base&0x80 != 0 {
			base |= 0xffffff00
		}

		return base
	case 3:
		base := r.Read(16)
		if base&0x8000 != 0 {
			base |= 0xffff0000
		}

		return base
	default:
		return 0
	}
}

// bpcPlaneWidths describes the ZRL grammar's field widths, which differ
// between the full BPC variant (§4.3) and the 16-word Compresso variant
// (§4.4): the full variant uses 5-bit indices over 31-bit planes, Compresso
// uses 4-bit indices over 15-bit planes.
type bpcPlaneWidths struct {
	indexBits uint // width of the single/double-bit index field
	planeBits uint // width of a raw plane/DBX value
	allOnes   uint32
}

var bpcFullWidths = bpcPlaneWidths{indexBits: 5, planeBits: 31, allOnes: 0x7fffffff}

// bpcWritePlanes emits the zero-run-length bit-plane grammar, iterating
// planes from nPlanes-1 down to 0 with an implicit plane[nPlanes] of 0 on
// the first step (the sign-mask plane is already plane[nPlanes-1] in the
// caller's array).
func bpcWritePlanes(w *bitstream.Writer, plane []uint32, wd bpcPlaneWidths) {
	n := len(plane)
	zeros := 0
	flush := func() {
		switch {
		case zeros == 1:
			w.Write(1, 3)
		case zeros > 1:
			w.Write(1, 2)
			w.Write(uint64(zeros-2), 5)
		}
		zeros = 0
	}

	for i := n - 1; i >= 0; i-- {
		var dbx uint32
		if i == n-1 {
			dbx = plane[i]
		} else {
			dbx = plane[i+1] ^ plane[i]
		}

		if dbx == 0 {
			zeros++

			continue
		}
		flush()

		// Single-bit or two-consecutive-bit DBX.
		matched := false
		for j := uint(0); j < wd.planeBits; j++ {
			one := uint32(1) << j
			if dbx == one {
				w.Write(3, 5)
				w.Write(uint64(j), wd.indexBits)
				matched = true

				break
			}
			if j+1 < wd.planeBits && dbx == one|(one<<1) {
				w.Write(2, 5)
				w.Write(uint64(j), wd.indexBits)
				matched = true

				break
			}
		}
		if matched {
			continue
		}

		switch {
		case dbx == wd.allOnes:
			w.Write(0, 5)
		case plane[i] == 0:
			w.Write(1, 5)
		default:
			w.Write(1, 1)
			w.Write(uint64(dbx), wd.planeBits)
		}
	}
	flush()
}

// bpcReadPlanes inverts bpcWritePlanes.
func bpcReadPlanes(r *bitstream.Reader8, n int, wd bpcPlaneWidths) []uint32 {
	plane := make([]uint32, n)
	var prevDBP uint32
	for i := n - 1; i >= 0; i-- {
		switch {
		case r.Read(1) == 1:
			plane[i] = r.Read(wd.planeBits) ^ prevDBP
		case r.Read(1) == 1:
			run := int(r.Read(5))
			for j := 0; j < run+2 && i-j >= 0; j++ {
				plane[i-j] = prevDBP
			}
			i -= run + 1
		case r.Read(1) == 1:
			plane[i] = prevDBP
		default:
			switch r.Read(2) {
			case 0:
				plane[i] = wd.allOnes ^ prevDBP
			case 1:
				plane[i] = 0
			case 2:
				j := r.Read(wd.indexBits)
				plane[i] = ((1 << j) | (1 << (j + 1))) ^ prevDBP
			case 3:
				plane[i] = (1 << r.Read(wd.indexBits)) ^ prevDBP
			}
		}
		prevDBP = plane[i]
	}

	return plane
}

// bpcEncodeBlock compresses 32 consecutive little-endian uint32 words (a
// 128-byte block). It returns the exact number of bits the encoding takes
// (computed before byte padding); scratch holds the padded encoding for
// decodeBlock.
func bpcEncodeBlock(in []byte, scratch []byte) int {
	var words [32]uint32
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(in[i*4:])
	}
	base, plane := bpcTransform(words)

	w := bitstream.NewWriter(scratch)
	bpcWriteBase(w, base, 32)
	bpcWritePlanes(w, plane[:], bpcFullWidths)
	bits := w.Len()
	w.Finish()

	return bits
}

func bpcDecodeBlock(out []byte, in []byte) error {
	r := bitstream.NewReader8(in)
	base := bpcReadBase(r, 32)
	planeSlice := bpcReadPlanes(r, 33, bpcFullWidths)
	var plane [33]uint32
	copy(plane[:], planeSlice)
	words := bpcTransformRev(base, plane)
	for i, v := range words {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}

	return nil
}

// BPC implements Codec over 128-byte (32 x uint32) blocks using the
// bit-plane scheme described in bpc.h.
type BPC struct{}

var _ blockCodec = BPC{}

func (BPC) blockSize() int { return 128 }

// reportsCachelines is false: the reference adapter (bpc.c) never populates
// a per-cacheline report for this variant, unlike bdi.c, cpack.c and
// bpc_compresso.c.
func (BPC) reportsCachelines() bool { return false }

func (BPC) encodeBlock(in, scratch []byte) int { return bpcEncodeBlock(in, scratch) }

func (BPC) decodeBlock(out, in []byte) error { return bpcDecodeBlock(out, in) }

func init() {
	Register("bpc", func(opts AdapterOptions) Codec {
		return newBlockAdapter("bpc", BPC{}, opts)
	})
}
