// Package driver runs the measurement pipeline end to end: locate the
// memory region to measure inside a file (auto-detecting ELF core/program
// segments), map it, fan it out across a bounded worker pool, and drive
// every registered codec and layout over each page. Mirrors driver.c's
// run_compress and main.
package driver

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/cacheprobe/pagecomp/codec"
	"github.com/cacheprobe/pagecomp/internal/hash"
	"github.com/cacheprobe/pagecomp/layout"
	"github.com/cacheprobe/pagecomp/page"
)

// openForMmap opens the file read-only, ready for unix.Mmap against its fd.
func openForMmap(filename string) (*os.File, error) {
	return os.Open(filename)
}

// blockPages is the number of pages handed to one worker goroutine per
// chunk: large enough to amortize goroutine scheduling overhead, small
// enough that the pool stays balanced across threads. Mirrors driver.c's
// BLOCK.
const blockPages = 1024

// Options configures one measurement run, mirroring driver.c's shared
// struct and CLI flags.
type Options struct {
	Filename string
	// Threads bounds how many pages are compressed concurrently.
	Threads int
	// Validate decompresses every block/page after compressing it and
	// fails the run on mismatch.
	Validate bool
	// ParseSwitch clamps compressed sizes (both per-block, inside each
	// codec, and per-page, here) to never exceed their raw width.
	ParseSwitch bool
	// ZeroSwitch enables the all-zero-page fast path and per-cacheline
	// zero marking. Named to match zero_switch's sense in the reference
	// driver, where passing -z disables it.
	ZeroSwitch bool
	// LoadLayouts runs the best-of/binarization/compresso aggregators in
	// addition to the raw per-codec totals.
	LoadLayouts bool
	// ActualSize reports raw bit counts in CSV output instead of
	// compression ratios.
	ActualSize bool
	// Header prints a CSV header row before the data row.
	Header bool
}

// DefaultOptions returns the reference driver's defaults.
func DefaultOptions() Options {
	return Options{
		Threads:     4,
		ParseSwitch: true,
		ZeroSwitch:  true,
		LoadLayouts: true,
		Header:      true,
	}
}

// Driver holds the built codec/layout set for one run.
type Driver struct {
	opts        Options
	names       []string
	adapterOpts codec.AdapterOptions
	indexOf     map[string]int
	totals      []atomic.Int64
	zeroCount   atomic.Int64

	bestOf      *layout.BestOf
	bestOfIdx   []int
	bestOfTotal atomic.Int64
	binTotal    atomic.Int64

	compresso           *layout.Compresso
	compressoIdx        int
	compressoTotal      atomic.Int64
	compressoCacheTotal atomic.Int64

	seenPages     sync.Map // uint64 page fingerprint -> *atomic.Int64 occurrence count
	distinctPages atomic.Int64
	dupPages      atomic.Int64
}

// New builds a Driver that runs every registered codec, in registration
// order, plus (when opts.LoadLayouts) the best-of/binarization/compresso
// aggregators layered on top of the "bpc", "lz4" and "bpc_compresso"
// results.
func New(opts Options) (*Driver, error) {
	adapterOpts := codec.AdapterOptions{ParseSwitch: opts.ParseSwitch, Validate: opts.Validate}
	names := codec.Names()

	d := &Driver{
		opts:        opts,
		names:       names,
		adapterOpts: adapterOpts,
		indexOf:     make(map[string]int, len(names)),
		totals:      make([]atomic.Int64, len(names)),
	}
	for i, n := range names {
		d.indexOf[n] = i
	}

	if opts.LoadLayouts {
		bestOfNames := []string{"bpc", "lz4"}
		for _, n := range bestOfNames {
			if _, ok := d.indexOf[n]; !ok {
				return nil, fmt.Errorf("driver: best-of requires codec %q to be registered", n)
			}
		}
		d.bestOf = layout.NewBestOf(bestOfNames)
		d.bestOfIdx = make([]int, len(bestOfNames))
		for i, n := range bestOfNames {
			d.bestOfIdx[i] = d.indexOf[n]
		}

		idx, ok := d.indexOf["bpc_compresso"]
		if !ok {
			return nil, fmt.Errorf("driver: compresso requires codec %q to be registered", "bpc_compresso")
		}
		d.compresso = &layout.Compresso{}
		d.compressoIdx = idx
	}

	return d, nil
}

// Run measures the file named in opts.Filename and returns the aggregate
// report.
func (d *Driver) Run(ctx context.Context) (*Report, error) {
	start, end, err := autoELFParse(d.opts.Filename)
	if err != nil {
		return nil, fmt.Errorf("driver: %w", err)
	}

	f, err := openForMmap(d.opts.Filename)
	if err != nil {
		return nil, fmt.Errorf("driver: %w", err)
	}
	defer f.Close()

	marker := byte('e')
	if start == 0 {
		marker = 'p'
	}

	if end <= start {
		return d.buildReport(end-start, marker), nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(end), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("driver: mmap: %w", err)
	}
	defer unix.Munmap(data) //nolint:errcheck

	if err := d.runWorkers(ctx, data[start:end]); err != nil {
		return nil, err
	}

	return d.buildReport(end-start, marker), nil
}

func (d *Driver) runWorkers(ctx context.Context, region []byte) error {
	sem := make(chan struct{}, d.opts.Threads)
	var wg sync.WaitGroup
	errOnce := make(chan error, 1)

	blockBytes := blockPages * page.Size
	for cur := 0; cur < len(region); cur += blockBytes {
		hi := cur + blockBytes
		if hi > len(region) {
			hi = len(region)
		}
		chunk := region[cur:hi]

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()

			return ctx.Err()
		}

		wg.Add(1)
		go func(chunk []byte) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := d.processChunk(chunk); err != nil {
				select {
				case errOnce <- err:
				default:
				}
			}
		}(chunk)
	}

	wg.Wait()

	select {
	case err := <-errOnce:
		return err
	default:
		return nil
	}
}

func (d *Driver) processChunk(chunk []byte) error {
	// Each worker goroutine builds its own codec instances: block adapters
	// hold a mutable scratch buffer, so instances can't be shared across
	// concurrent callers.
	codecs := codec.Build(d.adapterOpts)
	results := make([]layout.Result, len(codecs))

	for off := 0; off+page.Size <= len(chunk); off += page.Size {
		pg := chunk[off : off+page.Size]

		d.trackDuplicate(pg)

		if d.opts.ZeroSwitch && page.IsAllZero(pg) {
			d.zeroCount.Add(1)

			continue
		}

		cMap := [page.CachelinesPerPage]bool{}
		if d.opts.ZeroSwitch {
			for i := 0; i < page.CachelinesPerPage; i++ {
				cMap[i] = page.IsAllZero(pg[i*page.CachelineSize : (i+1)*page.CachelineSize])
			}
		}

		for i, c := range codecs {
			bits, cl, err := c.CompressPage(pg)
			if err != nil {
				return fmt.Errorf("driver: %w", err)
			}
			if d.opts.ParseSwitch && bits > page.Size*8 {
				bits = page.Size * 8
			}
			if cl != nil && d.opts.ZeroSwitch {
				for j := 0; j < page.CachelinesPerPage; j++ {
					if cMap[j] {
						cl.SetZero(j, cl[j])
					}
				}
			}

			d.totals[i].Add(int64(bits))
			results[i] = layout.Result{Bits: bits, Report: cl}
		}

		if d.opts.LoadLayouts {
			bestOfResults := make([]layout.Result, len(d.bestOfIdx))
			for i, idx := range d.bestOfIdx {
				bestOfResults[i] = results[idx]
			}
			bestOfBits, _ := d.bestOf.Combine(bestOfResults)
			d.bestOfTotal.Add(int64(bestOfBits))
			d.binTotal.Add(int64(layout.Binaryize(bestOfBits)))

			if cr := results[d.compressoIdx]; cr.Report != nil {
				res := d.compresso.Compute(cr.Report, cr.Bits)
				d.compressoTotal.Add(int64(res.Bits))
				d.compressoCacheTotal.Add(int64(res.CacheAlignedBits))
			}
		}
	}

	return nil
}

// trackDuplicate fingerprints pg and records whether an identical page has
// already been seen in this run, supplementing the raw compression totals
// with a duplicate-page count.
func (d *Driver) trackDuplicate(pg []byte) {
	sum := hash.Page(pg)

	v, loaded := d.seenPages.LoadOrStore(sum, new(atomic.Int64))
	count := v.(*atomic.Int64)
	n := count.Add(1)
	if !loaded {
		d.distinctPages.Add(1)
	}
	if n > 1 {
		d.dupPages.Add(1)
	}
}

// buildReport snapshots every accumulated total into a Report.
func (d *Driver) buildReport(fileSize int64, marker byte) *Report {
	r := &Report{
		Filename:         d.opts.Filename,
		FileSize:         fileSize,
		Marker:           marker,
		ZeroPages:        d.zeroCount.Load(),
		ZeroPagesEnabled: d.opts.ZeroSwitch,
		ActualSize:       d.opts.ActualSize,
		Header:           d.opts.Header,
		Codecs:           make([]CodecTotal, len(d.names)),
		DistinctPages:    d.distinctPages.Load(),
		DuplicatePages:   d.dupPages.Load(),
	}
	for i, n := range d.names {
		r.Codecs[i] = CodecTotal{Name: n, Bits: d.totals[i].Load()}
	}
	if d.opts.LoadLayouts {
		r.Layouts = []LayoutTotal{
			{Name: "best-of", Bits: d.bestOfTotal.Load()},
			{Name: "binarization", Bits: d.binTotal.Load()},
			{Name: "compresso", Bits: d.compressoTotal.Load()},
			{Name: "compresso_cache", Bits: d.compressoCacheTotal.Load()},
		}
	}

	return r
}
