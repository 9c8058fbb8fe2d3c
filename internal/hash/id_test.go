package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cacheprobe/pagecomp/page"
)

func TestPageDeterministic(t *testing.T) {
	a := make([]byte, page.Size)
	b := make([]byte, page.Size)
	for i := range a {
		a[i] = byte(i)
		b[i] = byte(i)
	}

	assert.Equal(t, Page(a), Page(b))
}

func TestPageDistinguishesContent(t *testing.T) {
	zero := make([]byte, page.Size)
	patterned := make([]byte, page.Size)
	for i := range patterned {
		patterned[i] = byte(i)
	}

	assert.NotEqual(t, Page(zero), Page(patterned))
}

func TestPageSensitiveToSingleByte(t *testing.T) {
	a := make([]byte, page.Size)
	b := make([]byte, page.Size)
	copy(b, a)
	b[page.Size-1] = 1

	assert.NotEqual(t, Page(a), Page(b))
}

func BenchmarkPage(b *testing.B) {
	buf := make([]byte, page.Size)
	b.ResetTimer()
	for b.Loop() {
		Page(buf)
	}
}
