package driver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cacheprobe/pagecomp/endian"
)

func writeTempFile(t *testing.T, data []byte) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "region")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	return path
}

func TestAutoELFParseRawDump(t *testing.T) {
	data := make([]byte, 3*4096)
	path := writeTempFile(t, data)

	start, end, err := autoELFParse(path)
	require.NoError(t, err)
	assert.Equal(t, int64(0), start)
	assert.Equal(t, int64(len(data)), end)
}

func TestAutoELFParseRawDumpRoundsDownToPage(t *testing.T) {
	data := make([]byte, 3*4096+100)
	path := writeTempFile(t, data)

	_, end, err := autoELFParse(path)
	require.NoError(t, err)
	assert.Equal(t, int64(3*4096), end)
}

// buildMinimalELF constructs a synthetic ELF64 file with one program header
// (p_type left zero) whose memsz is page-aligned, to exercise the ELF-detection branch
// of autoELFParse without a real binary.
func buildMinimalELF(t *testing.T, segmentOffset int64, memsz uint64, shoff int64, fileSize int) []byte {
	t.Helper()
	buf := make([]byte, fileSize)
	e := endian.GetLittleEndianEngine()

	copy(buf[0:4], elfMagic[:])
	e.PutUint64(buf[32:40], 64) // e_phoff: one phdr right after the ehdr
	e.PutUint64(buf[40:48], uint64(shoff))
	e.PutUint16(buf[56:58], 1) // e_phnum

	ph := buf[64:120]
	e.PutUint64(ph[8:16], uint64(segmentOffset))
	e.PutUint64(ph[40:48], memsz)

	return buf
}

func TestAutoELFParseLocatesLoadSegment(t *testing.T) {
	buf := buildMinimalELF(t, 4096, 8192, 3*4096, 5*4096)
	path := writeTempFile(t, buf)

	start, end, err := autoELFParse(path)
	require.NoError(t, err)
	assert.Equal(t, int64(4096), start)
	assert.Equal(t, int64(3*4096), end)
}

func TestAutoELFParseSkipsUnalignedSegment(t *testing.T) {
	buf := buildMinimalELF(t, 4096, 100, 3*4096, 5*4096) // memsz not page-aligned
	path := writeTempFile(t, buf)

	start, _, err := autoELFParse(path)
	require.NoError(t, err)
	assert.Equal(t, int64(0), start)
}
