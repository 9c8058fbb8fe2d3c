package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormRoundTripsLiteral(t *testing.T) {
	for _, v := range []uint16{0, 1, 100, 32768} {
		assert.Equal(t, v, Norm(v))
		assert.False(t, IsZero(v))
	}
}

func TestSetZeroRecoversLiteral(t *testing.T) {
	var r CachelineReport
	r.SetZero(0, 512)

	assert.True(t, IsZero(r[0]))
	assert.Equal(t, uint16(512), Norm(r[0]))
}

func TestSetAllZeroPage(t *testing.T) {
	var r CachelineReport
	r.SetAllZeroPage()

	for i := 0; i < CachelinesPerPage; i++ {
		assert.True(t, IsZero(r[i]))
	}
}

func TestSum(t *testing.T) {
	var r CachelineReport
	r.Set(0, 100)
	r.Set(1, 200)
	r.SetZero(2, 50)

	assert.Equal(t, 350, r.Sum())
}

func TestIsAllZero(t *testing.T) {
	buf := make([]byte, Size)
	assert.True(t, IsAllZero(buf))

	buf[Size-1] = 1
	assert.False(t, IsAllZero(buf))
}

func TestCachelineGeometry(t *testing.T) {
	assert.Equal(t, 64, CachelinesPerPage)
	assert.Equal(t, Size, CachelinesPerPage*CachelineSize)
}
