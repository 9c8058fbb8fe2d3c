package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cacheprobe/pagecomp/page"
)

func TestBestOfPrefersSmallerPageLevelResult(t *testing.T) {
	b := NewBestOf([]string{"a", "b"})
	bits, cl := b.Combine([]Result{
		{Bits: 1000},
		{Bits: 500},
	})

	assert.Equal(t, 500, bits)
	assert.Nil(t, cl)
	assert.Equal(t, map[string]int64{"a": 0, "b": int64(page.CachelinesPerPage)}, b.Portions())
}

func TestBestOfMixesCachelineWinners(t *testing.T) {
	b := NewBestOf([]string{"a", "b"})

	var ra, rb page.CachelineReport
	for i := 0; i < page.CachelinesPerPage; i++ {
		if i%2 == 0 {
			ra.Set(i, 10)
			rb.Set(i, 999)
		} else {
			ra.Set(i, 999)
			rb.Set(i, 10)
		}
	}

	bits, cl := b.Combine([]Result{
		{Report: &ra},
		{Report: &rb},
	})

	require.NotNil(t, cl)
	assert.Equal(t, page.CachelinesPerPage*10, bits)

	portions := b.Portions()
	assert.Equal(t, int64(page.CachelinesPerPage/2), portions["a"])
	assert.Equal(t, int64(page.CachelinesPerPage/2), portions["b"])
}

func TestBestOfCachelineBeatsPageLevel(t *testing.T) {
	b := NewBestOf([]string{"cacheline", "page"})

	var cl page.CachelineReport
	for i := 0; i < page.CachelinesPerPage; i++ {
		cl.Set(i, 1)
	}

	bits, report := b.Combine([]Result{
		{Report: &cl},
		{Bits: page.CachelinesPerPage * 1000},
	})

	assert.Equal(t, page.CachelinesPerPage, bits)
	require.NotNil(t, report)
}

func TestBinaryize(t *testing.T) {
	assert.Equal(t, page.Size*4, Binaryize(100))
	assert.Equal(t, page.Size*8, Binaryize(pageByteThreshold*8+1))
}

func TestCompressoComputeBuckets(t *testing.T) {
	c := &Compresso{}

	var cl page.CachelineReport
	for i := 0; i < page.CachelinesPerPage; i++ {
		cl.Set(i, 0) // all cachelines compress to nothing
	}

	res := c.Compute(&cl, 123)
	assert.Equal(t, (allowedPageSizes[0]+compressoMetadataBytes)*8, res.Bits)
	assert.Equal(t, 0, res.CacheAlignedBits)
}

func TestCompressoComputeFullPage(t *testing.T) {
	c := &Compresso{}

	var cl page.CachelineReport
	for i := 0; i < page.CachelinesPerPage; i++ {
		cl.Set(i, page.CachelineSize*8) // every cacheline needs its full raw size
	}

	res := c.Compute(&cl, 456)
	lastBucket := allowedPageSizes[len(allowedPageSizes)-1]
	assert.Equal(t, (lastBucket+compressoMetadataBytes)*8, res.Bits)
	assert.Equal(t, page.CachelinesPerPage*allowedCachelineSizes[len(allowedCachelineSizes)-1]*8, res.CacheAlignedBits)
}

func TestCompressoZeroCachelineSentinel(t *testing.T) {
	c := &Compresso{}

	var cl page.CachelineReport
	cl.SetZero(0, 500)
	for i := 1; i < page.CachelinesPerPage; i++ {
		cl.Set(i, 0)
	}

	res := c.Compute(&cl, 1)
	assert.Equal(t, 0, res.CacheAlignedBits)
}
