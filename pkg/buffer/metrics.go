package buffer

import (
	"github.com/c360/streamkit/errors"
	"github.com/c360/streamkit/metric"
	"github.com/prometheus/client_golang/prometheus"
)

// bufferMetrics holds Prometheus metrics for ring operations.
type bufferMetrics struct {
	pushes prometheus.Counter
	pops   prometheus.Counter
	size   prometheus.Gauge
}

func newBufferMetrics(registry *metric.MetricsRegistry, prefix string) (*bufferMetrics, error) {
	m := &bufferMetrics{
		pushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "streamkit",
			Subsystem:   "buffer",
			Name:        "pushes_total",
			ConstLabels: prometheus.Labels{"component": prefix},
			Help:        "Total number of items pushed into the ring",
		}),
		pops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "streamkit",
			Subsystem:   "buffer",
			Name:        "pops_total",
			ConstLabels: prometheus.Labels{"component": prefix},
			Help:        "Total number of items popped from the ring",
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "streamkit",
			Subsystem:   "buffer",
			Name:        "size",
			ConstLabels: prometheus.Labels{"component": prefix},
			Help:        "Current number of items in the ring",
		}),
	}

	if err := registry.RegisterCounter(prefix, "buffer_pushes", m.pushes); err != nil {
		return nil, errors.Wrap(err, "buffer", "newBufferMetrics", "register pushes")
	}
	if err := registry.RegisterCounter(prefix, "buffer_pops", m.pops); err != nil {
		return nil, errors.Wrap(err, "buffer", "newBufferMetrics", "register pops")
	}
	if err := registry.RegisterGauge(prefix, "buffer_size", m.size); err != nil {
		return nil, errors.Wrap(err, "buffer", "newBufferMetrics", "register size")
	}

	return m, nil
}

func (m *bufferMetrics) recordPush(size int) {
	m.pushes.Inc()
	m.size.Set(float64(size))
}

func (m *bufferMetrics) recordPop(size int) {
	m.pops.Inc()
	m.size.Set(float64(size))
}

func (m *bufferMetrics) updateSize(size int) {
	m.size.Set(float64(size))
}
