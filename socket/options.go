package socket

import (
	"log/slog"
	"time"

	"github.com/c360/streamkit/metric"
	"github.com/c360/streamkit/stream"
)

// DefaultDialTimeout bounds a single dial attempt.
const DefaultDialTimeout = 10 * time.Second

type options struct {
	logger      *slog.Logger
	metrics     *metric.Metrics
	dialTimeout time.Duration
	streamOpts  []stream.Option
}

// Option configures sockets and servers
type Option func(*options)

// WithLogger sets the logger for sockets and the server.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics records connection and byte counts.
func WithMetrics(metrics *metric.Metrics) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}

// WithDialTimeout bounds each dial attempt.
func WithDialTimeout(d time.Duration) Option {
	return func(o *options) {
		o.dialTimeout = d
	}
}

// WithStreamOptions passes options to the socket's duplex stream.
func WithStreamOptions(opts ...stream.Option) Option {
	return func(o *options) {
		o.streamOpts = append(o.streamOpts, opts...)
	}
}

func applyOptions(opts []Option) options {
	o := options{dialTimeout: DefaultDialTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
