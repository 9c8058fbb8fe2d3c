package codec

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cacheprobe/pagecomp/page"
)

func samplePages() map[string][]byte {
	zero := make([]byte, page.Size)

	rnd := make([]byte, page.Size)
	src := rand.New(rand.NewSource(1))
	src.Read(rnd) //nolint:errcheck

	repeating := make([]byte, page.Size)
	for i := range repeating {
		repeating[i] = byte(i % 4)
	}

	sparse := make([]byte, page.Size)
	sparse[10] = 1
	sparse[4000] = 0xff

	return map[string][]byte{
		"zero":      zero,
		"random":    rnd,
		"repeating": repeating,
		"sparse":    sparse,
	}
}

func TestRegisteredCodecsRoundTrip(t *testing.T) {
	opts := AdapterOptions{ParseSwitch: true, Validate: true}
	pages := samplePages()

	for _, name := range Names() {
		name := name
		t.Run(name, func(t *testing.T) {
			c := Build(opts)
			var target Codec
			for _, cc := range c {
				if cc.Name() == name {
					target = cc
				}
			}
			require.NotNil(t, target)

			for pname, pg := range pages {
				bits, cl, err := target.CompressPage(pg)
				require.NoError(t, err, "page %s", pname)
				assert.LessOrEqual(t, bits, page.Size*8, "page %s", pname)
				assert.Greater(t, bits, 0, "page %s", pname)
				if cl != nil {
					assert.LessOrEqual(t, cl.Sum(), page.Size*8, "page %s", pname)
				}
			}
		})
	}
}

func TestNamesStable(t *testing.T) {
	first := Names()
	second := Names()
	assert.Equal(t, first, second)
}

func TestParseSwitchClampsToRawWidth(t *testing.T) {
	opts := AdapterOptions{ParseSwitch: true}
	rnd := make([]byte, page.Size)
	src := rand.New(rand.NewSource(2))
	src.Read(rnd) //nolint:errcheck

	for _, c := range Build(opts) {
		bits, _, err := c.CompressPage(rnd)
		require.NoError(t, err)
		assert.LessOrEqual(t, bits, page.Size*8, c.Name())
	}
}
