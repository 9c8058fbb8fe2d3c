package codec

import (
	"bytes"
	"fmt"

	"github.com/cacheprobe/pagecomp/page"
)

// blockCodec is the shape BDI, BPC, BPC-Compresso and CPACK share: a
// stateless, fixed-block transform. blockAdapter walks a page in blockSize()
// chunks and turns one of these into a Codec.
type blockCodec interface {
	// blockSize is the codec's natural input granularity in bytes (64 for
	// BDI/CPACK/BPC-Compresso, 128 for the full BPC variant).
	blockSize() int
	// reportsCachelines mirrors which codecs the reference driver builds a
	// per-cacheline report for: BDI, CPACK and BPC-Compresso do; the full
	// BPC variant (128-byte blocks) does not.
	reportsCachelines() bool
	// encodeBlock compresses one blockSize()-byte block into scratch and
	// returns the exact number of compressed bits (not rounded to a byte
	// boundary — BPC/BPC-Compresso/CPACK all report sub-byte precision).
	// scratch holds the encoding padded to ceil(bits/8) bytes.
	encodeBlock(in, scratch []byte) (bits int)
	// decodeBlock reconstructs one blockSize()-byte block from its
	// byte-padded encoding, used only when AdapterOptions.Validate is set.
	decodeBlock(out, in []byte) error
}

// blockAdapter implements Codec by walking a page in a blockCodec's natural
// block size: sum block bit-lengths, clamp each to the block's raw bit
// width when ParseSwitch is set, and populate a cacheline report whenever
// the codec is cacheline-granular.
type blockAdapter struct {
	name    string
	bc      blockCodec
	opts    AdapterOptions
	scratch []byte
}

var _ Codec = (*blockAdapter)(nil)

func newBlockAdapter(name string, bc blockCodec, opts AdapterOptions) *blockAdapter {
	bs := bc.blockSize()

	return &blockAdapter{
		name: name,
		bc:   bc,
		opts: opts,
		// Generous scratch sizing: no block codec here ever needs more than
		// 2x its raw size plus a small header, and the adapter reuses this
		// buffer across every block in the page.
		scratch: make([]byte, bs*2+16),
	}
}

func (a *blockAdapter) Name() string { return a.name }

func (a *blockAdapter) CompressPage(pg []byte) (int, *page.CachelineReport, error) {
	if len(pg) != page.Size {
		panic("codec: page must be page.Size bytes")
	}

	bs := a.bc.blockSize()
	blockBits := bs * 8

	var cl *page.CachelineReport
	blocksPerLine, linesPerBlock := 0, 0
	if a.bc.reportsCachelines() {
		cl = &page.CachelineReport{}
		switch {
		case bs <= page.CachelineSize:
			blocksPerLine = page.CachelineSize / bs
		default:
			linesPerBlock = bs / page.CachelineSize
		}
	}

	totalBits := 0
	lineBits := 0
	lineIdx := 0
	blocksInLine := 0

	for off := 0; off < page.Size; off += bs {
		block := pg[off : off+bs]
		bits := a.bc.encodeBlock(block, a.scratch)
		encodedBytes := (bits + 7) / 8
		if a.opts.ParseSwitch && bits > blockBits {
			bits = blockBits
		}

		if a.opts.Validate {
			got := make([]byte, bs)
			if err := a.bc.decodeBlock(got, a.scratch[:encodedBytes]); err != nil {
				return 0, nil, fmt.Errorf("codec %s: decode at offset %d: %w", a.name, off, err)
			}
			if !bytes.Equal(got, block) {
				return 0, nil, &ValidationError{Codec: a.name, Offset: int64(off)}
			}
		}

		totalBits += bits

		switch {
		case cl == nil:
			// no cacheline report for this codec
		case blocksPerLine > 0:
			lineBits += bits
			blocksInLine++
			if blocksInLine == blocksPerLine {
				cl.Set(lineIdx, uint16(lineBits))
				lineIdx++
				lineBits = 0
				blocksInLine = 0
			}
		default:
			// One block spans multiple cachelines; attribute its bits evenly.
			perLine := bits / linesPerBlock
			rem := bits % linesPerBlock
			for i := 0; i < linesPerBlock; i++ {
				v := perLine
				if i == linesPerBlock-1 {
					v += rem
				}
				cl.Set(lineIdx, uint16(v))
				lineIdx++
			}
		}
	}

	return totalBits, cl, nil
}
