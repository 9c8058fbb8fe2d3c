package driver

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/cacheprobe/pagecomp/codec"
	"github.com/cacheprobe/pagecomp/endian"
)

const (
	elf64EhdrSize = 64
	elf64PhdrSize = 56
)

var elfMagic = [4]byte{0x7f, 'E', 'L', 'F'}

// elf64Ehdr is the fixed 64-byte ELF64 file header (elf.h's Elf64_Ehdr),
// parsed field-by-field through an EndianEngine rather than through
// debug/elf: the auto-detection below needs e_shoff/e_phoff directly,
// which debug/elf consumes internally instead of exposing.
type elf64Ehdr struct {
	ident [16]byte
	phoff uint64
	shoff uint64
	phnum uint16
}

func parseElf64Ehdr(buf []byte, e endian.EndianEngine) elf64Ehdr {
	var h elf64Ehdr
	copy(h.ident[:], buf[0:16])
	h.phoff = e.Uint64(buf[32:40])
	h.shoff = e.Uint64(buf[40:48])
	h.phnum = e.Uint16(buf[56:58])

	return h
}

type elf64Phdr struct {
	offset uint64
	memsz  uint64
}

func parseElf64Phdr(buf []byte, e endian.EndianEngine) elf64Phdr {
	return elf64Phdr{
		offset: e.Uint64(buf[8:16]),
		memsz:  e.Uint64(buf[40:48]),
	}
}

// autoELFParse mirrors auto_elf_parse: if fn looks like an ELF file, find
// the first program header whose memsz is non-zero and a multiple of the
// page size (its p_type is not checked) and use its offset as start, and
// the section header offset as the raw end; otherwise treat the whole file
// as an already-extracted page dump. The result is always rounded down to
// a page boundary.
func autoELFParse(fn string) (start, end int64, err error) {
	f, err := os.Open(fn)
	if err != nil {
		return 0, 0, fmt.Errorf("opening %s: %w: %w", fn, err, codec.ErrParse)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, 0, fmt.Errorf("statting %s: %w: %w", fn, err, codec.ErrParse)
	}
	size := info.Size()

	var ehdrBuf [elf64EhdrSize]byte
	n, err := io.ReadFull(f, ehdrBuf[:])
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return 0, 0, fmt.Errorf("reading ELF header: %w: %w", err, codec.ErrParse)
	}

	engine := endian.GetLittleEndianEngine()

	if n < elf64EhdrSize || !bytes.Equal(ehdrBuf[0:4], elfMagic[:]) {
		// Not an ELF file: assume it is already an extracted page dump.
		return 0, size &^ 0xfff, nil
	}

	hdr := parseElf64Ehdr(ehdrBuf[:], engine)

	start = 0
	end = int64(hdr.shoff)

	if _, seekErr := f.Seek(int64(hdr.phoff), io.SeekStart); seekErr != nil {
		return 0, 0, fmt.Errorf("seeking to program header table: %w: %w", seekErr, codec.ErrParse)
	}

	var phdrBuf [elf64PhdrSize]byte
	for i := 0; i < int(hdr.phnum); i++ {
		if _, readErr := io.ReadFull(f, phdrBuf[:]); readErr != nil {
			return 0, 0, fmt.Errorf("reading program header %d: %w: %w", i, readErr, codec.ErrParse)
		}
		ph := parseElf64Phdr(phdrBuf[:], engine)
		if ph.memsz != 0 && ph.memsz&0xfff == 0 {
			start = int64(ph.offset)

			break
		}
	}

	if size < end {
		end = size
	}
	end = start + ((end - start) &^ 0xfff)

	return start, end, nil
}
