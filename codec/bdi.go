package codec

import (
	"fmt"
)

// bdiNorm reads length bytes (length in {1,2,4,8}) from a 64-byte block
// little-endian (byte 0 is least significant) — the codec's native
// representation for a little-endian host.
func bdiNorm(in []byte, length int) uint64 {
	var v uint64
	for i := 0; i < length; i++ {
		v |= uint64(in[i]) << (uint(i) * 8)
	}

	return v
}

// bdiEndian reads length bytes big-endian (byte 0 is most significant) — the
// alternate endianness the encoder also probes alongside the little-endian
// reading, keeping whichever interpretation yields a narrower base.
func bdiEndian(in []byte, length int) uint64 {
	var v uint64
	for i := 0; i < length; i++ {
		v = (v << 8) | uint64(in[i])
	}

	return v
}

// bdiCompress emits the base + per-block-delta payload for one (bl, dl, im, en)
// combination into out, mirroring bdicompress() in the reference C codec.
func bdiCompress(in []byte, out []byte, base uint64, im int, bl, dl int, en bool) {
	offset := im * 8 / bl
	var mask uint64 = 0xff
	if dl == 2 {
		mask = 0xffff
	}
	if dl == 4 {
		mask = 0xffffffff
	}
	var zero uint64 = 0xffffffff

	putLE(out[offset:offset+bl], base, bl)

	j := bl
	for i := 0; i < 64; i += bl {
		var temp uint64
		if en {
			temp = bdiEndian(in[i:], bl)
		} else {
			temp = bdiNorm(in[i:], bl)
		}
		if im != 0 && temp <= mask {
			zero ^= 1 << uint(i/bl)
		} else {
			temp -= base
		}
		putLE(out[offset+j:offset+j+dl], temp, dl)
		j += dl
	}

	if offset != 0 {
		putLE(out[:offset], zero, offset)
	}
}

// bdiDecompress inverts bdiCompress, mirroring bdidecompress().
func bdiDecompress(in []byte, out []byte, im int, bl, dl int, en bool) {
	offset := im * 8 / bl
	var zero uint64
	if offset != 0 {
		zero = getLE(in[:offset], offset)
	}
	base := getLE(in[offset:offset+bl], bl)

	j := 0
	for i := 0; j < 64; i += dl {
		temp := getLE(in[i+offset+bl:i+offset+bl+dl], dl)
		if im == 0 || (zero>>uint(i/dl))&1 != 0 {
			temp += base
		}
		for n := 0; n < bl; n++ {
			if en {
				out[j+n] = byte(temp >> (uint(bl-n-1) * 8))
			} else {
				out[j+n] = byte(temp >> (uint(n) * 8))
			}
		}
		j += bl
	}
}

func putLE(dst []byte, v uint64, n int) {
	for i := 0; i < n; i++ {
		dst[i] = byte(v >> (uint(i) * 8))
	}
}

func getLE(src []byte, n int) uint64 {
	var v uint64
	for i := 0; i < n; i++ {
		v |= uint64(src[i]) << (uint(i) * 8)
	}

	return v
}

// bdiEncodeBlock encodes one 64-byte block using the Base-Delta-Immediate
// scheme, writing the opcode byte followed by its payload into out and
// returning the number of bytes written. out must have capacity for at
// least 65 bytes.
//
// This is a close port of bdiCompressData() in the reference C codec,
// including its ordered probe sequence (the encoder's tie-break) and three
// source idiosyncrasies kept rather than fixed: the opcode-26 branch reuses
// the tB8D2 guard where tB2D1 looks intended, the opcode-28 branch reuses
// the tB8D2i guard where tB2D1i looks intended, and the tB4D2i scan-loop
// guard tests temp32 where ttemp32 looks intended. tB8D2 and tB8D2i are
// already tested by earlier branches (opcodes 8 and 14), so opcodes 26 and
// 28 are never emitted. Decoding does not depend on which guard fired, so
// round-trip correctness is unaffected; only the encoder's choice of
// opcode is biased.
func bdiEncodeBlock(in []byte, out []byte) int {
	if len(in) != 64 {
		panic("bdi: block must be 64 bytes")
	}

	R0 := true
	R1 := in[0]

	B8min := bdiNorm(in, 8)
	B8D1, B8D2, B8D4 := B8min, B8min, B8min
	B8D1i, B8D2i, B8D4i := B8min, B8min, B8min
	tB8min := bdiEndian(in, 8)
	tB8D1, tB8D2, tB8D4 := tB8min, tB8min, tB8min
	tB8D1i, tB8D2i, tB8D4i := tB8min, tB8min, tB8min

	B4min := uint32(bdiNorm(in, 4))
	B4D2, B4D1, B4D1i := B4min, B4min, B4min
	B4D2i := B4min
	tB4min := uint32(bdiEndian(in, 4))
	tB4D2, tB4D1, tB4D1i := tB4min, tB4min, tB4min
	tB4D2i := tB4min

	B2min := uint16(bdiNorm(in, 2))
	R2, B2D1, B2D1i := B2min, B2min, B2min
	tB2min := uint16(bdiEndian(in, 2))
	tB2D1, tB2D1i := tB2min, tB2min

	R4 := B4min
	R8 := B8min

	B8D1, B8D2, B8D4 = 1, 1, 1
	tB8D1, tB8D2, tB8D4 = 1, 1, 1
	B4D1, B4D2 = 1, 1
	tB4D1, tB4D2 = 1, 1
	B2D1 = 1
	tB2D1 = 1

	for i := 0; i < 64; i++ {
		if i%8 == 0 && i != 0 {
			temp64 := bdiNorm(in[i:], 8)
			ttemp64 := bdiEndian(in[i:], 8)
			if R8 != temp64 {
				R8 = 0
			}
			if temp64 > 0xff {
				if B8D1i < temp64 && B8D1i > 0xff {
				} else {
					B8D1i = temp64
				}
			}
			if temp64 > 0xffff {
				if B8D2i < temp64 && B8D2i > 0xffff {
				} else {
					B8D2i = temp64
				}
			}
			if temp64 > 0xffffffff {
				if B8D4i < temp64 && B8D4i > 0xffffffff {
				} else {
					B8D4i = temp64
				}
			}
			if ttemp64 > 0xff {
				if tB8D1i < ttemp64 && tB8D1i > 0xff {
				} else {
					tB8D1i = ttemp64
				}
			}
			if ttemp64 > 0xffff {
				if tB8D2i < ttemp64 && tB8D2i > 0xffff {
				} else {
					tB8D2i = ttemp64
				}
			}
			if ttemp64 > 0xffffffff {
				if tB8D4i < ttemp64 && tB8D4i > 0xffffffff {
				} else {
					tB8D4i = ttemp64
				}
			}
			if B8min > temp64 {
				B8min = temp64
			}
			if tB8min > ttemp64 {
				tB8min = ttemp64
			}
		}
		if i%4 == 0 && i != 0 {
			temp32 := uint32(bdiNorm(in[i:], 4))
			ttemp32 := uint32(bdiEndian(in[i:], 4))
			if R4 != temp32 {
				R4 = 0
			}
			if temp32 > 0xff {
				if B4D1i < temp32 && B4D1i > 0xff {
				} else {
					B4D1i = temp32
				}
			}
			if temp32 > 0xffff {
				if B4D2i < temp32 && B4D2i > 0xffff {
				} else {
					B4D2i = temp32
				}
			}
			if ttemp32 > 0xff {
				if tB4D1i < ttemp32 && tB4D1i > 0xff {
				} else {
					tB4D1i = ttemp32
				}
			}
			// Reproduced verbatim from the reference source: this guard tests
			// temp32 (the little-endian scan) rather than ttemp32, even
			// though the value assigned is ttemp32. Flagged as an open
			// design question rather than corrected; it biases which block
			// is chosen as tB4D2i's running candidate but the decoder does
			// not depend on it.
			if temp32 > 0xffff {
				if tB4D2i < ttemp32 && tB4D2i > 0xffff {
				} else {
					tB4D2i = ttemp32
				}
			}
			if B4min > temp32 {
				B4min = temp32
			}
			if tB4min > ttemp32 {
				tB4min = ttemp32
			}
		}
		if i%2 == 0 && i != 0 {
			temp16 := uint16(bdiNorm(in[i:], 2))
			ttemp16 := uint16(bdiEndian(in[i:], 2))
			if R2 != temp16 {
				R2 = 0
			}
			if temp16 > 0xff {
				if B2D1i < temp16 && B2D1i > 0xff {
				} else {
					B2D1i = temp16
				}
			}
			if ttemp16 > 0xff {
				if tB2D1i < ttemp16 && tB2D1i > 0xff {
				} else {
					tB2D1i = ttemp16
				}
			}
			if B2min > temp16 {
				B2min = temp16
			}
			if tB2min > ttemp16 {
				tB2min = ttemp16
			}
		}
		if R1 != in[i] {
			R1 = 0
		}
		if in[i] != 0 {
			R0 = false
		}
	}

	if R0 {
		out[0] = 0

		return 1
	}
	if R1 != 0 {
		out[0] = 1
		out[1] = R1

		return 2
	}
	if R2 != 0 {
		out[0] = 2
		out[1] = byte(R2)
		out[2] = byte(R2 >> 8)

		return 3
	}
	if R4 != 0 {
		out[0] = 3
		putLE(out[1:5], uint64(R4), 4)

		return 5
	}
	if R8 != 0 {
		out[0] = 4
		putLE(out[1:9], R8, 8)

		return 9
	}

	for i := 0; i < 64; i++ {
		if i%8 == 0 {
			temp64 := bdiNorm(in[i:], 8)
			ttemp64 := bdiEndian(in[i:], 8)
			if temp64-B8min > 0xff {
				B8D1 = 0
			}
			if temp64-B8min > 0xffff {
				B8D2 = 0
			}
			if temp64-B8min > 0xffffffff {
				B8D4 = 0
			}
			if temp64 > 0xff && temp64-B8D1i > 0xff {
				B8D1i = 0
			}
			if temp64 > 0xffff && temp64-B8D2i > 0xffff {
				B8D2i = 0
			}
			if temp64 > 0xffffffff && temp64-B8D4i > 0xffffffff {
				B8D4i = 0
			}
			if ttemp64-tB8min > 0xff {
				tB8D1 = 0
			}
			if ttemp64-tB8min > 0xffff {
				tB8D2 = 0
			}
			if ttemp64-tB8min > 0xffffffff {
				tB8D4 = 0
			}
			if ttemp64 > 0xff && ttemp64-tB8D1i > 0xff {
				tB8D1i = 0
			}
			if ttemp64 > 0xffff && ttemp64-tB8D2i > 0xffff {
				tB8D2i = 0
			}
			if ttemp64 > 0xffffffff && ttemp64-tB8D4i > 0xffffffff {
				tB8D4i = 0
			}
		}
		if i%4 == 0 {
			temp32 := uint32(bdiNorm(in[i:], 4))
			ttemp32 := uint32(bdiEndian(in[i:], 4))
			if temp32-B4min > 0xff {
				B4D1 = 0
			}
			if temp32-B4min > 0xffff {
				B4D2 = 0
			}
			if temp32 > 0xff && temp32-B4D1i > 0xff {
				B4D1i = 0
			}
			if temp32 > 0xffff && temp32-B4D2i > 0xffff {
				B4D2i = 0
			}
			if ttemp32-tB4min > 0xff {
				tB4D1 = 0
			}
			if ttemp32-tB4min > 0xffff {
				tB4D2 = 0
			}
			if ttemp32 > 0xff && ttemp32-tB4D1i > 0xff {
				tB4D1i = 0
			}
			if ttemp32 > 0xffff && ttemp32-tB4D2i > 0xffff {
				tB4D2i = 0
			}
		}
		if i%2 == 0 {
			temp16 := uint16(bdiNorm(in[i:], 2))
			ttemp16 := uint16(bdiEndian(in[i:], 2))
			if temp16-B2min > 0xff {
				B2D1 = 0
			}
			if temp16 > 0xff && temp16-B2D1i > 0xff {
				B2D1i = 0
			}
			if ttemp16-tB2min > 0xff {
				tB2D1 = 0
			}
			if ttemp16 > 0xff && ttemp16-tB2D1i > 0xff {
				tB2D1i = 0
			}
		}
	}

	_ = tB2D1 // computed by the scan but never read: the opcode-26 guard below tests tB8D2

	switch {
	case B8D1 != 0:
		bdiCompress(in, out[1:], B8min, 0, 8, 1, false)
		out[0] = 5

		return 17
	case tB8D1 != 0:
		bdiCompress(in, out[1:], tB8min, 0, 8, 1, true)
		out[0] = 6

		return 17
	case B8D1i != 0:
		bdiCompress(in, out[1:], B8D1i, 1, 8, 1, false)
		out[0] = 11

		return 18
	case tB8D1i != 0:
		bdiCompress(in, out[1:], tB8D1i, 1, 8, 1, true)
		out[0] = 12

		return 18
	case B4D1 != 0:
		bdiCompress(in, out[1:], uint64(B4min), 0, 4, 1, false)
		out[0] = 17

		return 21
	case tB4D1 != 0:
		bdiCompress(in, out[1:], uint64(tB4min), 0, 4, 1, true)
		out[0] = 18

		return 21
	case B4D1i != 0:
		bdiCompress(in, out[1:], uint64(B4D1i), 1, 4, 1, false)
		out[0] = 21

		return 23
	case tB4D1i != 0:
		bdiCompress(in, out[1:], uint64(tB4D1i), 1, 4, 1, true)
		out[0] = 22

		return 23
	case B8D2 != 0:
		bdiCompress(in, out[1:], B8min, 0, 8, 2, false)
		out[0] = 7

		return 25
	case tB8D2 != 0:
		bdiCompress(in, out[1:], tB8min, 0, 8, 2, true)
		out[0] = 8

		return 25
	case B8D2i != 0:
		bdiCompress(in, out[1:], B8D2i, 1, 8, 2, false)
		out[0] = 13

		return 27
	case tB8D2i != 0:
		bdiCompress(in, out[1:], tB8D2i, 1, 8, 2, true)
		out[0] = 14

		return 27
	case B2D1 != 0:
		bdiCompress(in, out[1:], uint64(B2min), 0, 2, 1, false)
		out[0] = 25

		return 35
	// Reproduced verbatim from the reference source: this branch's guard is
	// tB8D2, not tB2D1 as the opcode-26 (B2/big-endian) mode would imply —
	// see the design-notes discussion above bdiEncodeBlock.
	case tB8D2 != 0:
		bdiCompress(in, out[1:], uint64(tB2min), 0, 2, 1, true)
		out[0] = 26

		return 35
	case B4D2 != 0:
		bdiCompress(in, out[1:], uint64(B4min), 0, 4, 2, false)
		out[0] = 19

		return 37
	case tB4D2 != 0:
		bdiCompress(in, out[1:], uint64(tB4min), 0, 4, 2, true)
		out[0] = 20

		return 37
	case B4D2i != 0:
		bdiCompress(in, out[1:], uint64(B4D2i), 1, 4, 2, false)
		out[0] = 23

		return 39
	case tB4D2i != 0:
		bdiCompress(in, out[1:], uint64(tB4D2i), 1, 4, 2, true)
		out[0] = 24

		return 39
	case B2D1i != 0:
		bdiCompress(in, out[1:], uint64(B2D1i), 1, 2, 1, false)
		out[0] = 27

		return 39
	// Reproduced verbatim: guard is tB8D2i, not tB2D1i.
	case tB8D2i != 0:
		bdiCompress(in, out[1:], uint64(tB2D1i), 1, 2, 1, true)
		out[0] = 28

		return 39
	case B8D4 != 0:
		bdiCompress(in, out[1:], B8min, 0, 8, 4, false)
		out[0] = 9

		return 41
	case tB8D4 != 0:
		bdiCompress(in, out[1:], tB8min, 0, 8, 4, true)
		out[0] = 10

		return 41
	case B8D4i != 0:
		bdiCompress(in, out[1:], B8D4i, 1, 8, 4, false)
		out[0] = 15

		return 42
	case tB8D4i != 0:
		bdiCompress(in, out[1:], tB8D4i, 1, 8, 4, true)
		out[0] = 16

		return 42
	}

	out[0] = 0xff
	copy(out[1:65], in)

	return 65
}

// bdiDecodeBlock reconstructs the original 64-byte block from its BDI
// encoding. Returns ErrInvalidOpcode for opcodes outside 0..28 ∪ {0xFF}.
func bdiDecodeBlock(in []byte, out []byte) error {
	switch in[0] {
	case 0:
		for i := range out[:64] {
			out[i] = 0
		}
	case 1:
		for i := range out[:64] {
			out[i] = in[1]
		}
	case 2:
		for i := 0; i < 32; i++ {
			out[2*i] = in[1]
			out[2*i+1] = in[2]
		}
	case 3:
		for i := 0; i < 16; i++ {
			copy(out[4*i:4*i+4], in[1:5])
		}
	case 4:
		for i := 0; i < 8; i++ {
			copy(out[8*i:8*i+8], in[1:9])
		}
	case 5:
		bdiDecompress(in[1:], out, 0, 8, 1, false)
	case 6:
		bdiDecompress(in[1:], out, 0, 8, 1, true)
	case 7:
		bdiDecompress(in[1:], out, 0, 8, 2, false)
	case 8:
		bdiDecompress(in[1:], out, 0, 8, 2, true)
	case 9:
		bdiDecompress(in[1:], out, 0, 8, 4, false)
	case 10:
		bdiDecompress(in[1:], out, 0, 8, 4, true)
	case 11:
		bdiDecompress(in[1:], out, 1, 8, 1, false)
	case 12:
		bdiDecompress(in[1:], out, 1, 8, 1, true)
	case 13:
		bdiDecompress(in[1:], out, 1, 8, 2, false)
	case 14:
		bdiDecompress(in[1:], out, 1, 8, 2, true)
	case 15:
		bdiDecompress(in[1:], out, 1, 8, 4, false)
	case 16:
		bdiDecompress(in[1:], out, 1, 8, 4, true)
	case 17:
		bdiDecompress(in[1:], out, 0, 4, 1, false)
	case 18:
		bdiDecompress(in[1:], out, 0, 4, 1, true)
	case 19:
		bdiDecompress(in[1:], out, 0, 4, 2, false)
	case 20:
		bdiDecompress(in[1:], out, 0, 4, 2, true)
	case 21:
		bdiDecompress(in[1:], out, 1, 4, 1, false)
	case 22:
		bdiDecompress(in[1:], out, 1, 4, 1, true)
	case 23:
		bdiDecompress(in[1:], out, 1, 4, 2, false)
	case 24:
		bdiDecompress(in[1:], out, 1, 4, 2, true)
	case 25:
		bdiDecompress(in[1:], out, 0, 2, 1, false)
	case 26:
		bdiDecompress(in[1:], out, 0, 2, 1, true)
	case 27:
		bdiDecompress(in[1:], out, 1, 2, 1, false)
	case 28:
		bdiDecompress(in[1:], out, 1, 2, 1, true)
	case 0xff:
		copy(out[:64], in[1:65])
	default:
		return fmt.Errorf("bdi: opcode %d: %w", in[0], ErrInvalidOpcode)
	}

	return nil
}

// bdiEncodedLen returns the byte length of a BDI-encoded block given its
// opcode, without decoding the payload.
func bdiEncodedLen(opcode byte) (int, error) {
	switch {
	case opcode == 0:
		return 1, nil
	case opcode == 1:
		return 2, nil
	case opcode == 2:
		return 3, nil
	case opcode == 3:
		return 5, nil
	case opcode == 4:
		return 9, nil
	case opcode == 5 || opcode == 6:
		return 17, nil
	case opcode == 7 || opcode == 8:
		return 25, nil
	case opcode == 9 || opcode == 10:
		return 41, nil
	case opcode == 11 || opcode == 12:
		return 18, nil
	case opcode == 13 || opcode == 14:
		return 27, nil
	case opcode == 15 || opcode == 16:
		return 42, nil
	case opcode == 17 || opcode == 18:
		return 21, nil
	case opcode == 19 || opcode == 20:
		return 37, nil
	case opcode == 21 || opcode == 22:
		return 23, nil
	case opcode == 23 || opcode == 24:
		return 39, nil
	case opcode == 25 || opcode == 26:
		return 35, nil
	case opcode == 27 || opcode == 28:
		return 39, nil
	case opcode == 0xff:
		return 65, nil
	default:
		return 0, fmt.Errorf("bdi: opcode %d: %w", opcode, ErrInvalidOpcode)
	}
}

// BDI implements Codec over 64-byte blocks using the Base-Delta-Immediate
// scheme described in bdi.h.
type BDI struct{}

var _ blockCodec = BDI{}

func (BDI) blockSize() int { return 64 }

// reportsCachelines is true: the reference adapter (bdi.c) populates a
// per-cacheline report, since one 64-byte block is exactly one cacheline.
func (BDI) reportsCachelines() bool { return true }

func (BDI) encodeBlock(in, scratch []byte) int {
	// bdiCompressData returns a byte count; bdi.c's adapter converts to bits
	// by multiplying by 8 before reporting, which this mirrors.
	return bdiEncodeBlock(in, scratch) * 8
}

func (BDI) decodeBlock(out, in []byte) error {
	return bdiDecodeBlock(in, out)
}

func init() {
	Register("bdi", func(opts AdapterOptions) Codec {
		return newBlockAdapter("bdi", BDI{}, opts)
	})
}
