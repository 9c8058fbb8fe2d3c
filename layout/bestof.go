// Package layout implements the aggregator schemes that combine one or more
// per-codec page results into a reportable size, mirroring the reference
// driver's pluggable "layout" modules (best-of, binaryization, compresso).
// Unlike the reference driver's observer-style layouts, which re-invoke the
// same stored per-page compression result for every layout, these take the
// already-computed codec results directly: the driver compresses each page
// with every codec exactly once and fans the results out to whichever
// layouts want them.
package layout

import (
	"sync/atomic"

	"github.com/cacheprobe/pagecomp/page"
)

// Result is one codec's compression of a single page: a bit count and,
// when the codec is cacheline-granular, a per-cacheline report.
type Result struct {
	Bits int
	Report *page.CachelineReport
}

// BestOf picks, independently for every cacheline, the smallest compressed
// size among a fixed set of member codecs that report cacheline
// granularity, and compares the resulting page total against the smallest
// whole-page result among its page-granular members — mirroring
// best-of.c's bo_cp.
//
// A codec that never reports cachelines (the full BPC variant, the
// external wrappers) only ever competes at the page level; one that does
// (BDI, CPACK, BPC-Compresso) only ever competes at the cacheline level.
type BestOf struct {
	names    []string
	portions []atomic.Int64
}

// NewBestOf builds a BestOf over the named codecs, in the given order. The
// names are looked up by the caller against its own per-page results each
// time Combine is called.
func NewBestOf(names []string) *BestOf {
	return &BestOf{
		names:    append([]string(nil), names...),
		portions: make([]atomic.Int64, len(names)),
	}
}

func (b *BestOf) Name() string { return "best-of" }

// Combine expects one Result per name passed to NewBestOf, in the same
// order, and returns the best-of size in bits and, when the summed
// per-cacheline minimum wins (or no page-granular member exists), that
// per-cacheline report; when a page-granular member wins, the report is nil.
func (b *BestOf) Combine(results []Result) (int, *page.CachelineReport) {
	var csize [page.CachelinesPerPage]uint16
	var cindex [page.CachelinesPerPage]int
	for i := range cindex {
		cindex[i] = -1
	}
	pindex := -1
	var psize int

	for i, r := range results {
		if r.Report != nil {
			for j := 0; j < page.CachelinesPerPage; j++ {
				v := page.Norm(r.Report[j])
				if cindex[j] == -1 || v < csize[j] {
					csize[j] = v
					cindex[j] = i
				}
			}

			continue
		}

		if pindex == -1 || r.Bits < psize {
			pindex = i
			psize = r.Bits
		}
	}

	cpsize := 0
	for _, v := range csize {
		cpsize += int(v)
	}

	if pindex == -1 || (cindex[0] != -1 && cpsize < psize) {
		for _, idx := range cindex {
			b.portions[idx].Add(1)
		}
		report := &page.CachelineReport{}
		for j, v := range csize {
			report.Set(j, v)
		}

		return cpsize, report
	}

	b.portions[pindex].Add(int64(page.CachelinesPerPage))

	return psize, nil
}

// Portions reports, per member codec, how many cachelines' worth of pages
// it won across every Combine call so far (a whole-page win counts as
// page.CachelinesPerPage), mirroring best-of.c's portion_report.
func (b *BestOf) Portions() map[string]int64 {
	out := make(map[string]int64, len(b.names))
	for i, n := range b.names {
		out[n] = b.portions[i].Load()
	}

	return out
}
