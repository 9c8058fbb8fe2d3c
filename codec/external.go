package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/cacheprobe/pagecomp/internal/pool"
	"github.com/cacheprobe/pagecomp/page"
)

// externalCodec wraps a general-purpose byte compressor as a whole-page
// Codec, for comparing the bit-exact cacheline schemes against ordinary
// general-purpose compression. None of these report per-cacheline sizes:
// they compress the page as one stream.
type externalCodec struct {
	name    string
	opts    AdapterOptions
	compress func(dst, src []byte) ([]byte, error)
	decompress func(dst, src []byte) ([]byte, error)
}

var _ Codec = (*externalCodec)(nil)

func (c *externalCodec) Name() string { return c.name }

func (c *externalCodec) CompressPage(pg []byte) (int, *page.CachelineReport, error) {
	if len(pg) != page.Size {
		panic("codec: page must be page.Size bytes")
	}

	buf := pool.GetPageBuffer()
	defer pool.PutPageBuffer(buf)

	out, err := c.compress(buf.Bytes(), pg)
	if err != nil {
		return 0, nil, fmt.Errorf("codec %s: compress: %w", c.name, err)
	}

	bits := len(out) * 8
	if c.opts.ParseSwitch && bits > page.Size*8 {
		bits = page.Size * 8
	}

	if c.opts.Validate {
		got, err := c.decompress(nil, out)
		if err != nil {
			return 0, nil, fmt.Errorf("codec %s: decompress: %w", c.name, err)
		}
		if len(got) != page.Size {
			return 0, nil, &ValidationError{Codec: c.name, Offset: 0}
		}
		for i := range got {
			if got[i] != pg[i] {
				return 0, nil, &ValidationError{Codec: c.name, Offset: int64(i)}
			}
		}
	}

	return bits, nil, nil
}

// lz4Compress runs a single CompressBlock call sized via
// lz4.CompressBlockBound.
func lz4Compress(dst, src []byte) ([]byte, error) {
	bound := lz4.CompressBlockBound(len(src))
	if cap(dst) < bound {
		dst = make([]byte, bound)
	}
	dst = dst[:bound]

	var c lz4.Compressor
	n, err := c.CompressBlock(src, dst)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// Incompressible input: lz4 declines to emit an expanded block.
		return append([]byte{}, src...), nil
	}

	return dst[:n], nil
}

func lz4Decompress(dst, src []byte) ([]byte, error) {
	if len(src) == page.Size {
		// lz4Compress's incompressible fallback is a verbatim copy.
		out := make([]byte, page.Size)
		copy(out, src)

		return out, nil
	}

	buf := make([]byte, page.Size)
	n, err := lz4.UncompressBlock(src, buf)
	if err != nil {
		return nil, err
	}

	return buf[:n], nil
}

func s2Compress(dst, src []byte) ([]byte, error) {
	return s2.Encode(dst[:0], src), nil
}

func s2Decompress(dst, src []byte) ([]byte, error) {
	return s2.Decode(dst, src)
}

func deflateCompress(dst, src []byte) ([]byte, error) {
	buf := bytes.NewBuffer(dst[:0])
	w, err := flate.NewWriter(buf, flate.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(src); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func deflateDecompress(dst, src []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(src))
	defer r.Close()

	out := make([]byte, page.Size)
	n, err := io.ReadFull(r, out)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, err
	}

	return out[:n], nil
}

var zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
var zstdDecoder, _ = zstd.NewReader(nil)

func zstdCompress(dst, src []byte) ([]byte, error) {
	return zstdEncoder.EncodeAll(src, dst[:0]), nil
}

func zstdDecompress(dst, src []byte) ([]byte, error) {
	return zstdDecoder.DecodeAll(src, dst[:0])
}

func init() {
	Register("lz4", func(opts AdapterOptions) Codec {
		return &externalCodec{name: "lz4", opts: opts, compress: lz4Compress, decompress: lz4Decompress}
	})
	Register("s2", func(opts AdapterOptions) Codec {
		return &externalCodec{name: "s2", opts: opts, compress: s2Compress, decompress: s2Decompress}
	})
	Register("deflate", func(opts AdapterOptions) Codec {
		return &externalCodec{name: "deflate", opts: opts, compress: deflateCompress, decompress: deflateDecompress}
	})
	Register("zstd", func(opts AdapterOptions) Codec {
		return &externalCodec{name: "zstd", opts: opts, compress: zstdCompress, decompress: zstdDecompress}
	})
}
