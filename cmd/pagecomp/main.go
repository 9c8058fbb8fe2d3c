// Command pagecomp measures how well a page's worth of memory compresses
// under each registered codec and layout, for a file that is either a raw
// page dump or an ELF file to auto-locate the measured region within.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/cacheprobe/pagecomp/codec"
	"github.com/cacheprobe/pagecomp/driver"
)

func main() {
	defaults := driver.DefaultOptions()

	filename := flag.String("f", "", "input file (raw page dump or ELF, required)")
	threads := flag.Int("n", defaults.Threads, "number of worker goroutines")
	validate := flag.Bool("v", false, "validate every compressed block/page by decompressing it")
	noHeader := flag.Bool("h", false, "suppress the CSV header row")
	noParse := flag.Bool("p", false, "disable parse-switch clamping of compressed sizes")
	noLayouts := flag.Bool("l", false, "disable layout aggregators (best-of, binarization, compresso)")
	absolute := flag.Bool("a", false, "print absolute bit counts instead of compression ratios")
	zeroFlag := flag.Bool("z", false, "disable zero-page fast path and per-cacheline zero marking")
	flag.Parse()

	if *filename == "" {
		fmt.Fprintf(os.Stderr, "pagecomp: %v\n", fmt.Errorf("-f is required: %w", codec.ErrConfig))
		flag.Usage()
		os.Exit(1)
	}
	if *threads <= 0 {
		fmt.Fprintf(os.Stderr, "pagecomp: %v\n", fmt.Errorf("-n must be greater than 0: %w", codec.ErrConfig))
		os.Exit(1)
	}

	d, err := driver.NewFromOptions(
		driver.WithFilename(*filename),
		driver.WithThreads(*threads),
		driver.WithValidate(*validate),
		driver.WithHeader(!*noHeader),
		driver.WithParseSwitch(!*noParse),
		driver.WithLoadLayouts(!*noLayouts),
		driver.WithActualSize(*absolute),
		driver.WithZeroSwitch(!*zeroFlag),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pagecomp: %v\n", err)
		os.Exit(1)
	}

	report, err := d.Run(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "pagecomp: %v\n", err)
		os.Exit(1)
	}

	if err := report.WriteCSV(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "pagecomp: %v\n", err)
		os.Exit(1)
	}
}
