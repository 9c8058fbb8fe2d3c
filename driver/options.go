package driver

import "github.com/cacheprobe/pagecomp/internal/options"

// Option configures an Options value through the generic functional-option
// helper, letting callers build a run's configuration field by field
// instead of constructing the struct literal directly.
type Option = options.Option[*Options]

// WithFilename sets the input file.
func WithFilename(name string) Option {
	return options.NoError[*Options](func(o *Options) { o.Filename = name })
}

// WithThreads sets the worker pool size.
func WithThreads(n int) Option {
	return options.NoError[*Options](func(o *Options) { o.Threads = n })
}

// WithValidate toggles decompress-and-compare validation.
func WithValidate(v bool) Option {
	return options.NoError[*Options](func(o *Options) { o.Validate = v })
}

// WithParseSwitch toggles the raw-size clamp.
func WithParseSwitch(v bool) Option {
	return options.NoError[*Options](func(o *Options) { o.ParseSwitch = v })
}

// WithZeroSwitch toggles the all-zero-page fast path.
func WithZeroSwitch(v bool) Option {
	return options.NoError[*Options](func(o *Options) { o.ZeroSwitch = v })
}

// WithLoadLayouts toggles the layout aggregators.
func WithLoadLayouts(v bool) Option {
	return options.NoError[*Options](func(o *Options) { o.LoadLayouts = v })
}

// WithActualSize toggles raw-bit-count CSV output.
func WithActualSize(v bool) Option {
	return options.NoError[*Options](func(o *Options) { o.ActualSize = v })
}

// WithHeader toggles the CSV header row.
func WithHeader(v bool) Option {
	return options.NoError[*Options](func(o *Options) { o.Header = v })
}

// NewFromOptions starts from DefaultOptions, applies opts in order, and
// builds a Driver from the result.
func NewFromOptions(opts ...Option) (*Driver, error) {
	o := DefaultOptions()
	if err := options.Apply(&o, opts...); err != nil {
		return nil, err
	}

	return New(o)
}
