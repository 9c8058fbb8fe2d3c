package layout

import "github.com/cacheprobe/pagecomp/page"

// pageByteThreshold and the two buckets it chooses between come directly
// from binaryization.c: a page is "compressible" if its best-of size fits
// under roughly 88% of a page.
const pageByteThreshold = 3604

// Binaryize quantizes a page's best-of size (in bits) into one of two
// buckets: a full page, or half a page. It depends on BestOf's output
// rather than compressing anything itself, mirroring bz_pr/bz_cp reading
// the "best-of" compression's page_size.
func Binaryize(bestOfBits int) int {
	if bestOfBits > pageByteThreshold*8 {
		return page.Size * 8
	}

	return page.Size * 4
}
