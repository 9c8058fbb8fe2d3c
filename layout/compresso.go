package layout

import (
	"sync/atomic"

	"github.com/cacheprobe/pagecomp/page"
)

// allowedCachelineSizes and allowedPageSizes are the quantization buckets
// from compresso.c, grounded on the Compresso paper's cacheline size
// classes (0/8/32/64 bytes) and a 512-byte page-size ladder.
var allowedCachelineSizes = [4]int{0, 8, 32, 64}
var allowedPageSizes = [8]int{512, 1024, 1536, 2048, 2560, 3072, 3584, 4096}

// compressoMetadataBytes is the per-page overhead compresso.c adds to the
// chosen page-size bucket (accounting for the cacheline size-class table).
const compressoMetadataBytes = 64

// Compresso reimplements the Compresso paper's two-level layout: round each
// cacheline up to the smallest allowed size class, sum those into an
// aligned page size, then round that up to the smallest allowed page-size
// bucket and add a fixed per-page metadata cost. Safe for concurrent use by
// many worker goroutines sharing one instance.
type Compresso struct {
	cachelineCount  [4]atomic.Int64
	cachelineBits   [4]atomic.Int64
	pageCount       [8]atomic.Int64
	pageRawBits     [8]atomic.Int64
	pageAlignedBits [8]atomic.Int64
}

// CompressoResult holds the two Compresso page sizes in bits: Bits is the
// bucketed page size plus metadata overhead ("compresso" in the reference
// driver), CacheAlignedBits is the raw sum of cacheline size classes with
// no page-level rounding or overhead ("compresso_cache").
type CompressoResult struct {
	Bits             int
	CacheAlignedBits int
}

// Compute classifies one page's cacheline report and records it into the
// running bucket statistics, mirroring compresso_pr/compresso_cp/
// compresso_cp2. cl must be the per-cacheline report produced by the
// bpc_compresso codec.
func (c *Compresso) Compute(cl *page.CachelineReport, pageBits int) CompressoResult {
	alignedBytes := 0

	for i := 0; i < page.CachelinesPerPage; i++ {
		raw := cl[i]
		j := len(allowedCachelineSizes) - 1
		for k, sz := range allowedCachelineSizes {
			if page.IsZero(raw) || int(page.Norm(raw)) <= sz*8 {
				j = k

				break
			}
		}
		alignedBytes += allowedCachelineSizes[j]
		c.cachelineCount[j].Add(1)
		c.cachelineBits[j].Add(int64(page.Norm(raw)))
	}

	pj := len(allowedPageSizes) - 1
	for k, sz := range allowedPageSizes {
		if alignedBytes < sz {
			pj = k

			break
		}
	}
	bucketedBits := (allowedPageSizes[pj] + compressoMetadataBytes) * 8
	alignedBits := alignedBytes * 8

	c.pageCount[pj].Add(1)
	c.pageRawBits[pj].Add(int64(pageBits))
	c.pageAlignedBits[pj].Add(int64(alignedBits))

	return CompressoResult{Bits: bucketedBits, CacheAlignedBits: alignedBits}
}
