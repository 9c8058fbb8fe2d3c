package driver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cacheprobe/pagecomp/page"
)

func writeRawDump(t *testing.T, pages [][]byte) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "dump")

	var data []byte
	for _, pg := range pages {
		data = append(data, pg...)
	}
	require.NoError(t, os.WriteFile(path, data, 0o600))

	return path
}

func TestDriverRunProducesReportOverRawDump(t *testing.T) {
	zero := make([]byte, page.Size)

	repeating := make([]byte, page.Size)
	for i := range repeating {
		repeating[i] = byte(i % 4)
	}

	dup := make([]byte, page.Size)
	for i := range dup {
		dup[i] = 0x5a
	}

	path := writeRawDump(t, [][]byte{zero, repeating, dup, dup})

	opts := DefaultOptions()
	opts.Filename = path
	opts.Threads = 2

	d, err := New(opts)
	require.NoError(t, err)

	report, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, byte('p'), report.Marker)
	assert.Equal(t, int64(1), report.ZeroPages)
	assert.Equal(t, int64(3), report.DistinctPages) // zero, repeating, dup (second dup is a repeat)
	assert.Equal(t, int64(1), report.DuplicatePages)
	require.NotEmpty(t, report.Codecs)
	require.NotEmpty(t, report.Layouts)

	for _, c := range report.Codecs {
		assert.Greater(t, c.Bits, int64(0), c.Name)
	}
}

func TestDriverRunWithoutLayouts(t *testing.T) {
	pg := make([]byte, page.Size)
	for i := range pg {
		pg[i] = byte(i)
	}
	path := writeRawDump(t, [][]byte{pg})

	opts := DefaultOptions()
	opts.Filename = path
	opts.LoadLayouts = false

	d, err := New(opts)
	require.NoError(t, err)

	report, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Layouts)
}

func TestDriverRunEmptyFile(t *testing.T) {
	path := writeRawDump(t, nil)

	opts := DefaultOptions()
	opts.Filename = path

	d, err := New(opts)
	require.NoError(t, err)

	report, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), report.FileSize)
}
