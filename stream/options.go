package stream

import (
	"log/slog"

	"github.com/c360/streamkit/metric"
)

const (
	// DefaultHighWaterMark is the buffered element count at which backpressure engages
	DefaultHighWaterMark = 1024

	// MaxHighWaterMark caps automatic high-water-mark raises from ReadN
	MaxHighWaterMark = 8 << 20
)

type options struct {
	highWaterMark int
	logger        *slog.Logger
	metrics       *metric.Metrics
	kind          string
	keepAlive     bool
	autoClose     bool
	policy        UnhandledErrorPolicy
}

// Option configures a stream
type Option func(*options)

// WithHighWaterMark sets the buffered element count at which backpressure engages
func WithHighWaterMark(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.highWaterMark = n
		}
	}
}

// WithLogger sets the stream logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics records stream activity into metrics instead of the loop's
func WithMetrics(metrics *metric.Metrics) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}

// WithKind labels the stream in logs and metrics (e.g. "socket", "file")
func WithKind(kind string) Option {
	return func(o *options) {
		if kind != "" {
			o.kind = kind
		}
	}
}

// WithKeepAlive retains the loop from creation until the stream closes
func WithKeepAlive() Option {
	return func(o *options) {
		o.keepAlive = true
	}
}

// WithAutoClose controls whether a side closes itself after "end" or "finish".
// Enabled by default.
func WithAutoClose(enabled bool) Option {
	return func(o *options) {
		o.autoClose = enabled
	}
}

// WithUnhandledErrorPolicy sets what happens to errors nobody listens for
func WithUnhandledErrorPolicy(policy UnhandledErrorPolicy) Option {
	return func(o *options) {
		o.policy = policy
	}
}

func applyOptions(opts []Option) options {
	o := options{
		highWaterMark: DefaultHighWaterMark,
		kind:          "stream",
		autoClose:     true,
		policy:        FailLoop,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
