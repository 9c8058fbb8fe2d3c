package driver

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/cacheprobe/pagecomp/internal/pool"
	"github.com/cacheprobe/pagecomp/page"
)

// CodecTotal is one codec's accumulated compressed size across every
// non-zero page in the measured region.
type CodecTotal struct {
	Name string
	Bits int64
}

// LayoutTotal is one layout aggregator's accumulated size across every
// non-zero page.
type LayoutTotal struct {
	Name string
	Bits int64
}

// Report is the outcome of one Driver.Run: everything main() prints as a
// single CSV row, plus the header row's shape.
type Report struct {
	Filename string
	FileSize int64
	// Marker is 'p' when the measured region was already a raw page dump
	// (or the located segment started at file offset 0), 'e' otherwise.
	Marker byte

	ZeroPages        int64
	ZeroPagesEnabled bool

	DistinctPages  int64
	DuplicatePages int64

	ActualSize bool
	Header     bool

	Codecs  []CodecTotal
	Layouts []LayoutTotal
}

// rawBits returns the total bits of non-zero page content the codecs
// actually competed over: every page but the all-zero ones.
func (r *Report) rawBits() int64 {
	pages := r.FileSize / page.Size
	nonZero := pages - r.ZeroPages

	return nonZero * page.Size * 8
}

// WriteCSV renders the report the way main()'s final printf block does:
// an optional header row, then one data row with either compression
// ratios or raw bit counts per codec/layout column.
func (r *Report) WriteCSV(w io.Writer) error {
	buf := pool.GetReportBuffer()
	defer pool.PutReportBuffer(buf)

	if r.Header {
		buf.MustWrite([]byte("file name,file size,elf"))
		if r.ZeroPagesEnabled {
			buf.MustWrite([]byte(",zero pages"))
		}
		buf.MustWrite([]byte(",duplicate pages"))
		for _, c := range r.Codecs {
			buf.MustWrite([]byte(","))
			buf.MustWrite([]byte(c.Name))
		}
		for _, l := range r.Layouts {
			buf.MustWrite([]byte(","))
			buf.MustWrite([]byte(l.Name))
		}
		buf.MustWrite([]byte("\n"))
	}

	buf.MustWrite([]byte(filepath.Base(r.Filename)))
	buf.MustWrite([]byte(","))
	buf.MustWrite([]byte(strconv.FormatInt(r.FileSize, 10)))
	buf.MustWrite([]byte(","))
	buf.MustWrite([]byte{r.Marker})

	if r.ZeroPagesEnabled {
		buf.MustWrite([]byte(","))
		buf.MustWrite([]byte(strconv.FormatInt(r.ZeroPages, 10)))
	}
	buf.MustWrite([]byte(","))
	buf.MustWrite([]byte(strconv.FormatInt(r.DuplicatePages, 10)))

	raw := r.rawBits()
	for _, c := range r.Codecs {
		buf.MustWrite([]byte(","))
		buf.MustWrite([]byte(r.formatBits(c.Bits, raw)))
	}
	for _, l := range r.Layouts {
		buf.MustWrite([]byte(","))
		buf.MustWrite([]byte(r.formatBits(l.Bits, raw)))
	}
	buf.MustWrite([]byte("\n"))

	_, err := w.Write(buf.Bytes())

	return err
}

// formatBits renders one column: the raw bit count with -a, otherwise the
// compression ratio against the non-zero-page raw size.
func (r *Report) formatBits(bits, raw int64) string {
	if r.ActualSize {
		return strconv.FormatInt(bits, 10)
	}
	if raw == 0 {
		return "0"
	}

	return fmt.Sprintf("%.6f", float64(bits)/float64(raw))
}
