package codec

// cpack implements the dictionary-coder scheme from cpack.h: a 16-entry,
// insertion-order dictionary of 4-byte words, each subsequent 4-byte chunk
// of a 64-byte block matched against it using a six-token grammar
// (zzzz/zzzx/mmmm/mmmx/mmxx/xxxx). Bits are packed LSB-first within each
// byte, unlike bitstream.Writer's MSB-first register — this mirrors
// cpack.h's own set_bit1/read_bit helpers directly rather than reusing the
// bitstream packer that bpc and huffman use.

type cpackBitWriter struct {
	out []byte
	idx int
}

func (w *cpackBitWriter) writeBit(b bool) {
	byteIdx := w.idx / 8
	bit := uint(w.idx % 8)
	if b {
		w.out[byteIdx] |= 1 << bit
	} else {
		w.out[byteIdx] &^= 1 << bit
	}
	w.idx++
}

func (w *cpackBitWriter) writeByte(v uint8) {
	for shift := 7; shift >= 0; shift-- {
		w.writeBit(v&(1<<uint(shift)) != 0)
	}
}

func (w *cpackBitWriter) writeIdx(idx int) {
	w.writeBit(idx&8 != 0)
	w.writeBit(idx&4 != 0)
	w.writeBit(idx&2 != 0)
	w.writeBit(idx&1 != 0)
}

type cpackBitReader struct {
	in  []byte
	idx int
}

func (r *cpackBitReader) readBit() bool {
	byteIdx := r.idx / 8
	bit := uint(r.idx % 8)
	r.idx++

	return r.in[byteIdx]&(1<<bit) != 0
}

func (r *cpackBitReader) readByte() uint8 {
	var v uint8
	v += 128 * b2u8(r.readBit())
	v += 64 * b2u8(r.readBit())
	v += 32 * b2u8(r.readBit())
	v += 16 * b2u8(r.readBit())
	v += 8 * b2u8(r.readBit())
	v += 4 * b2u8(r.readBit())
	v += 2 * b2u8(r.readBit())
	v += 1 * b2u8(r.readBit())

	return v
}

func (r *cpackBitReader) readIdx() int {
	idx := 0
	idx += 8 * int(b2u8(r.readBit()))
	idx += 4 * int(b2u8(r.readBit()))
	idx += 2 * int(b2u8(r.readBit()))
	idx += 1 * int(b2u8(r.readBit()))

	return idx
}

func b2u8(b bool) uint8 {
	if b {
		return 1
	}

	return 0
}

// cpackEncodeBlock compresses a 64-byte block and returns the exact number
// of bits written (cpack_compress's return value is already a bit count,
// despite its own "in bytes" comment).
func cpackEncodeBlock(in []byte, scratch []byte) int {
	w := &cpackBitWriter{out: scratch}
	var dict [64]uint8
	dictSize := 0

	for i := 0; i < 16; i++ {
		a, b, c, d := in[4*i], in[4*i+1], in[4*i+2], in[4*i+3]

		if a == 0 && b == 0 && c == 0 {
			if d == 0 {
				w.writeBit(false)
				w.writeBit(false)
			} else {
				w.writeBit(true)
				w.writeBit(true)
				w.writeBit(false)
				w.writeBit(true)
				w.writeByte(d)
			}

			continue
		}

		found := false
		for j := 0; j < dictSize; j++ {
			if a != dict[4*j] || b != dict[4*j+1] {
				continue
			}
			switch {
			case c == dict[4*j+2] && d == dict[4*j+3]:
				w.writeBit(true)
				w.writeBit(false)
				w.writeIdx(j)
			case c == dict[4*j+2]:
				w.writeBit(true)
				w.writeBit(true)
				w.writeBit(true)
				w.writeBit(false)
				w.writeIdx(j)
				w.writeByte(d)
			default:
				w.writeBit(true)
				w.writeBit(true)
				w.writeBit(false)
				w.writeBit(false)
				w.writeIdx(j)
				w.writeByte(c)
				w.writeByte(d)
			}
			found = true

			break
		}
		if found {
			continue
		}

		w.writeBit(false)
		w.writeBit(true)
		w.writeByte(a)
		w.writeByte(b)
		w.writeByte(c)
		w.writeByte(d)

		if dictSize < 16 {
			dict[4*dictSize] = a
			dict[4*dictSize+1] = b
			dict[4*dictSize+2] = c
			dict[4*dictSize+3] = d
			dictSize++
		}
	}

	return w.idx
}

func cpackDecodeBlock(out []byte, in []byte) error {
	r := &cpackBitReader{in: in}
	var dict [64]uint8
	dictSize := 0
	outIdx := 0

	for outIdx < 64 {
		bit1 := r.readBit()
		bit2 := r.readBit()

		switch {
		case !bit1 && !bit2: // zzzz
			out[outIdx], out[outIdx+1], out[outIdx+2], out[outIdx+3] = 0, 0, 0, 0
			outIdx += 4
		case !bit1 && bit2: // xxxx
			a, b, c, d := r.readByte(), r.readByte(), r.readByte(), r.readByte()
			if dictSize < 16 {
				dict[dictSize*4], dict[dictSize*4+1], dict[dictSize*4+2], dict[dictSize*4+3] = a, b, c, d
				dictSize++
			}
			out[outIdx], out[outIdx+1], out[outIdx+2], out[outIdx+3] = a, b, c, d
			outIdx += 4
		case bit1 && !bit2: // mmmm
			idx := r.readIdx()
			if idx < 0 || idx*4+3 >= len(dict) {
				return ErrInvalidBitstream
			}
			copy(out[outIdx:outIdx+4], dict[idx*4:idx*4+4])
			outIdx += 4
		default:
			bit3 := r.readBit()
			bit4 := r.readBit()
			switch {
			case !bit3 && !bit4: // mmxx
				idx := r.readIdx()
				c, d := r.readByte(), r.readByte()
				if idx < 0 || idx*4+1 >= len(dict) {
					return ErrInvalidBitstream
				}
				out[outIdx], out[outIdx+1] = dict[idx*4], dict[idx*4+1]
				out[outIdx+2], out[outIdx+3] = c, d
				outIdx += 4
			case !bit3 && bit4: // zzzx
				d := r.readByte()
				out[outIdx], out[outIdx+1], out[outIdx+2], out[outIdx+3] = 0, 0, 0, d
				outIdx += 4
			default: // mmmx
				idx := r.readIdx()
				d := r.readByte()
				if idx < 0 || idx*4+2 >= len(dict) {
					return ErrInvalidBitstream
				}
				out[outIdx], out[outIdx+1], out[outIdx+2] = dict[idx*4], dict[idx*4+1], dict[idx*4+2]
				out[outIdx+3] = d
				outIdx += 4
			}
		}
	}

	return nil
}

// CPACK implements Codec over 64-byte blocks using the dictionary scheme
// described in cpack.h.
type CPACK struct{}

var _ blockCodec = CPACK{}

func (CPACK) blockSize() int { return 64 }

// reportsCachelines is true: cpack.c's adapter populates a per-cacheline
// report, since one 64-byte block is exactly one cacheline.
func (CPACK) reportsCachelines() bool { return true }

func (CPACK) encodeBlock(in, scratch []byte) int { return cpackEncodeBlock(in, scratch) }

func (CPACK) decodeBlock(out, in []byte) error { return cpackDecodeBlock(out, in) }

func init() {
	Register("cpack", func(opts AdapterOptions) Codec {
		return newBlockAdapter("cpack", CPACK{}, opts)
	})
}
