package buffer

import (
	"github.com/c360/streamkit/metric"
)

// Option configures ring behavior using the functional options pattern.
type Option func(*bufferOptions)

type bufferOptions struct {
	// metricsReg is optional - if provided, ring stats are also exposed as Prometheus metrics
	metricsReg *metric.MetricsRegistry

	// metricsPrefix is used as the component label for Prometheus metrics
	metricsPrefix string
}

// WithMetrics enables Prometheus metrics export for ring statistics.
// A nil registry or empty prefix leaves metrics disabled.
func WithMetrics(registry *metric.MetricsRegistry, prefix string) Option {
	return func(opts *bufferOptions) {
		if registry != nil && prefix != "" {
			opts.metricsReg = registry
			opts.metricsPrefix = prefix
		}
	}
}

func applyOptions(options ...Option) *bufferOptions {
	opts := &bufferOptions{}
	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}
	return opts
}
