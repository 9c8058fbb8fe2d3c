// Package codec provides the bit-exact page/cacheline compressors — BDI,
// BPC, BPC-Compresso, CPACK, canonical Huffman, and thin wrappers around a
// few external general-purpose compressors — behind one adapter interface
// the driver and layouts can drive uniformly.
package codec

import "github.com/cacheprobe/pagecomp/page"

// AdapterOptions configures a codec adapter's behavior, independent of the
// underlying bit-exact algorithm.
type AdapterOptions struct {
	// ParseSwitch clamps each block's reported size to the block's natural
	// bit width so compression never costs more than storing the block
	// raw. Defaults to true (enabled); the CLI's -p flag disables it.
	ParseSwitch bool
	// Validate decompresses every block after compressing it and compares
	// byte-for-byte, returning a *ValidationError on mismatch. Defaults to
	// false; the CLI's -v flag enables it.
	Validate bool
}

// Codec compresses whole pages and optionally reports per-cacheline sizes.
// A Codec value is not required to be safe for concurrent use: the block
// adapter that drives the bit-exact algorithms keeps a reusable scratch
// buffer, so callers that run many goroutines must build one Codec set per
// goroutine (Build is cheap; driver does this once per worker chunk) rather
// than share a single set across them.
type Codec interface {
	// Name is the stable identifier this codec is registered and reported
	// under in CSV output.
	Name() string

	// CompressPage compresses one page.Size-byte page and returns the total
	// number of compressed bits. If the codec is cacheline-granular, cl is
	// populated with one entry per cacheline; otherwise cl is nil.
	CompressPage(pg []byte) (bits int, cl *page.CachelineReport, err error)
}

// Factory builds a Codec bound to the given adapter options. Codecs
// register a Factory with Register from their own init(), replacing the
// reference driver's dynamic .so plugin loading with a static,
// compile-time inventory.
type Factory func(AdapterOptions) Codec
