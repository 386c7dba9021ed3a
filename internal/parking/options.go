package parking

import (
	"log/slog"
	"time"
)

// DefaultMaxAllocationAttempts bounds the ID collision retry loop in Enter.
const DefaultMaxAllocationAttempts = 5

type options struct {
	now                   func() time.Time
	logger                *slog.Logger
	maxAllocationAttempts int
}

type Option func(*options)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithMaxAllocationAttempts(n int) Option {
	return func(o *options) { o.maxAllocationAttempts = n }
}

func newOptions(opts []Option) options {
	o := options{
		now:                   time.Now,
		logger:                slog.Default(),
		maxAllocationAttempts: DefaultMaxAllocationAttempts,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxAllocationAttempts <= 0 {
		o.maxAllocationAttempts = DefaultMaxAllocationAttempts
	}
	return o
}
