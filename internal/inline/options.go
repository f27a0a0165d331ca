// SPDX-License-Identifier: MPL-2.0

package inline

import (
	"io"

	"github.com/charmbracelet/log"
)

// DefaultMaxFileSize is the largest helper file that will be inlined (5MB).
const DefaultMaxFileSize int64 = 5 * 1024 * 1024

type (
	// options holds configuration for an inlining pass.
	options struct {
		logger      *log.Logger
		maxFileSize int64
	}

	// Option configures an inlining pass.
	Option func(*options)
)

func defaultOptions() options {
	return options{
		logger:      log.New(io.Discard),
		maxFileSize: DefaultMaxFileSize,
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger warnings and progress are reported to.
// A nil logger discards output.
func WithLogger(logger *log.Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = log.New(io.Discard)
		}
		o.logger = logger
	}
}

// WithMaxFileSize sets the maximum size of a file that may be inlined.
// Default is DefaultMaxFileSize (5MB).
func WithMaxFileSize(size int64) Option {
	return func(o *options) {
		o.maxFileSize = size
	}
}
