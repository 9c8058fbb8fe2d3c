package driver

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cacheprobe/pagecomp/page"
)

func TestReportWriteCSVRatioMode(t *testing.T) {
	r := &Report{
		Filename:         "core.dump",
		FileSize:         page.Size * 4,
		Marker:           'p',
		ZeroPagesEnabled: true,
		ZeroPages:        1,
		Header:           true,
		Codecs:           []CodecTotal{{Name: "bdi", Bits: int64(page.Size * 3 * 4)}},
	}

	var buf bytes.Buffer
	require.NoError(t, r.WriteCSV(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "file name,file size,elf,zero pages,duplicate pages,bdi")
	assert.Contains(t, lines[1], "core.dump,")
	assert.Contains(t, lines[1], ",0.500000")
}

func TestReportWriteCSVActualSizeMode(t *testing.T) {
	r := &Report{
		Filename:   "dump",
		FileSize:   page.Size,
		Marker:     'e',
		ActualSize: true,
		Header:     false,
		Codecs:     []CodecTotal{{Name: "bpc", Bits: 12345}},
	}

	var buf bytes.Buffer
	require.NoError(t, r.WriteCSV(&buf))
	assert.Equal(t, "dump,4096,e,0,12345\n", buf.String())
}

func TestReportRawBitsExcludesZeroPages(t *testing.T) {
	r := &Report{FileSize: page.Size * 4, ZeroPages: 1}
	assert.Equal(t, int64(page.Size*3*8), r.rawBits())
}
