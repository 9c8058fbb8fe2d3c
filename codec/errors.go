package codec

import (
	"errors"
	"strconv"
)

// Sentinel errors for the codec package, wrapped with context at each call
// site via fmt.Errorf("...: %w", ...) so errors.Is/errors.As work across
// adapter and driver boundaries.
var (
	// ErrInvalidOpcode is returned by a decoder when it reads an opcode or
	// mode byte outside its defined alphabet.
	ErrInvalidOpcode = errors.New("invalid opcode")
	// ErrInvalidBitstream is returned by a decoder when the bit grammar it
	// reads cannot be a valid encoding (e.g. an out-of-range index).
	ErrInvalidBitstream = errors.New("invalid bitstream")
	// ErrParse is returned by the driver when it fails to locate or read
	// the measured region inside an input file (an unopenable file, an I/O
	// error reading the ELF header, a truncated program header table, and
	// the like). A file too short for an ELF header is not an error: it is
	// treated as a raw page dump.
	ErrParse = errors.New("parse error")
	// ErrConfig is returned when a run's options are invalid before any
	// file I/O is attempted (a required flag missing, a count out of
	// range).
	ErrConfig = errors.New("config error")
)

// ValidationError reports a round-trip mismatch detected by an adapter
// running with AdapterOptions.Validate set.
type ValidationError struct {
	Codec  string
	Offset int64
}

func (e *ValidationError) Error() string {
	return "codec " + e.Codec + ": validation failed at offset " + strconv.FormatInt(e.Offset, 10)
}
