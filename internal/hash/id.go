// Package hash provides the content fingerprint used to detect duplicate
// pages within a measured region.
package hash

import "github.com/cespare/xxhash/v2"

// Page computes the xxHash64 fingerprint of one page's raw bytes.
func Page(data []byte) uint64 {
	return xxhash.Sum64(data)
}
