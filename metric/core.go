package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the runtime-level metrics shared by the event loop, the
// stream engine and the socket layer. All Record methods are safe to call on a
// nil *Metrics, which disables recording.
type Metrics struct {
	// Event loop
	TasksExecuted prometheus.Counter
	QueueDepth    prometheus.Gauge
	RetainedWork  prometheus.Gauge
	TimersFired   prometheus.Counter
	LoopFailures  prometheus.Counter

	// Streams
	ItemsPushed        *prometheus.CounterVec
	ItemsRead          *prometheus.CounterVec
	ItemsWritten       *prometheus.CounterVec
	BackpressurePauses *prometheus.CounterVec
	StreamErrors       *prometheus.CounterVec
	ActiveStreams      *prometheus.GaugeVec

	// Sockets
	BytesReceived       prometheus.Counter
	BytesSent           prometheus.Counter
	ConnectionsActive   prometheus.Gauge
	ConnectionsAccepted prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all runtime metrics
func NewMetrics() *Metrics {
	return &Metrics{
		TasksExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "streamkit",
			Subsystem: "loop",
			Name:      "tasks_executed_total",
			Help:      "Total number of tasks executed by the event loop",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "streamkit",
			Subsystem: "loop",
			Name:      "queue_depth",
			Help:      "Number of tasks waiting in the serial queue",
		}),
		RetainedWork: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "streamkit",
			Subsystem: "loop",
			Name:      "retained_work",
			Help:      "Outstanding work items keeping the loop alive",
		}),
		TimersFired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "streamkit",
			Subsystem: "loop",
			Name:      "timers_fired_total",
			Help:      "Total number of timers that fired",
		}),
		LoopFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "streamkit",
			Subsystem: "loop",
			Name:      "failures_total",
			Help:      "Total number of loop runs ended by a failure",
		}),

		ItemsPushed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streamkit",
			Subsystem: "stream",
			Name:      "items_pushed_total",
			Help:      "Items pushed into readable buffers",
		}, []string{"kind"}),
		ItemsRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streamkit",
			Subsystem: "stream",
			Name:      "items_read_total",
			Help:      "Items dequeued by readable consumers",
		}, []string{"kind"}),
		ItemsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streamkit",
			Subsystem: "stream",
			Name:      "items_written_total",
			Help:      "Items accepted by writable targets",
		}, []string{"kind"}),
		BackpressurePauses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streamkit",
			Subsystem: "stream",
			Name:      "backpressure_pauses_total",
			Help:      "Times a stream paused because its buffer reached the high-water-mark",
		}, []string{"kind", "side"}),
		StreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streamkit",
			Subsystem: "stream",
			Name:      "errors_total",
			Help:      "Errors surfaced on stream error channels",
		}, []string{"kind", "class"}),
		ActiveStreams: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "streamkit",
			Subsystem: "stream",
			Name:      "active",
			Help:      "Streams created and not yet closed",
		}, []string{"side"}),

		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "streamkit",
			Subsystem: "socket",
			Name:      "bytes_received_total",
			Help:      "Bytes read from sockets",
		}),
		BytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "streamkit",
			Subsystem: "socket",
			Name:      "bytes_sent_total",
			Help:      "Bytes written to sockets",
		}),
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "streamkit",
			Subsystem: "socket",
			Name:      "connections_active",
			Help:      "Open socket connections",
		}),
		ConnectionsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "streamkit",
			Subsystem: "socket",
			Name:      "connections_accepted_total",
			Help:      "Connections accepted by servers",
		}),
	}
}

func (c *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.TasksExecuted, c.QueueDepth, c.RetainedWork, c.TimersFired, c.LoopFailures,
		c.ItemsPushed, c.ItemsRead, c.ItemsWritten, c.BackpressurePauses, c.StreamErrors, c.ActiveStreams,
		c.BytesReceived, c.BytesSent, c.ConnectionsActive, c.ConnectionsAccepted,
	}
}

// RecordTask records one executed loop task and the remaining queue depth
func (c *Metrics) RecordTask(queueDepth int) {
	if c == nil {
		return
	}
	c.TasksExecuted.Inc()
	c.QueueDepth.Set(float64(queueDepth))
}

// RecordQueueDepth updates the queue depth gauge
func (c *Metrics) RecordQueueDepth(queueDepth int) {
	if c == nil {
		return
	}
	c.QueueDepth.Set(float64(queueDepth))
}

// RecordRetained updates the outstanding work gauge
func (c *Metrics) RecordRetained(retained int) {
	if c == nil {
		return
	}
	c.RetainedWork.Set(float64(retained))
}

// RecordTimerFired increments the timer counter
func (c *Metrics) RecordTimerFired() {
	if c == nil {
		return
	}
	c.TimersFired.Inc()
}

// RecordLoopFailure increments the loop failure counter
func (c *Metrics) RecordLoopFailure() {
	if c == nil {
		return
	}
	c.LoopFailures.Inc()
}

// RecordPushed adds n pushed items for a stream kind
func (c *Metrics) RecordPushed(kind string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.ItemsPushed.WithLabelValues(kind).Add(float64(n))
}

// RecordRead adds n consumed items for a stream kind
func (c *Metrics) RecordRead(kind string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.ItemsRead.WithLabelValues(kind).Add(float64(n))
}

// RecordWritten adds n items accepted by a target
func (c *Metrics) RecordWritten(kind string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.ItemsWritten.WithLabelValues(kind).Add(float64(n))
}

// RecordBackpressure counts a buffer-full pause on the given side ("read" or "write")
func (c *Metrics) RecordBackpressure(kind, side string) {
	if c == nil {
		return
	}
	c.BackpressurePauses.WithLabelValues(kind, side).Inc()
}

// RecordStreamError counts an error surfaced on a stream
func (c *Metrics) RecordStreamError(kind, class string) {
	if c == nil {
		return
	}
	c.StreamErrors.WithLabelValues(kind, class).Inc()
}

// RecordStreamOpened increments the active stream gauge for a side
func (c *Metrics) RecordStreamOpened(side string) {
	if c == nil {
		return
	}
	c.ActiveStreams.WithLabelValues(side).Inc()
}

// RecordStreamClosed decrements the active stream gauge for a side
func (c *Metrics) RecordStreamClosed(side string) {
	if c == nil {
		return
	}
	c.ActiveStreams.WithLabelValues(side).Dec()
}

// RecordBytesReceived adds socket input bytes
func (c *Metrics) RecordBytesReceived(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.BytesReceived.Add(float64(n))
}

// RecordBytesSent adds socket output bytes
func (c *Metrics) RecordBytesSent(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.BytesSent.Add(float64(n))
}

// RecordConnectionOpened tracks a new socket connection
func (c *Metrics) RecordConnectionOpened(accepted bool) {
	if c == nil {
		return
	}
	c.ConnectionsActive.Inc()
	if accepted {
		c.ConnectionsAccepted.Inc()
	}
}

// RecordConnectionClosed tracks a closed socket connection
func (c *Metrics) RecordConnectionClosed() {
	if c == nil {
		return
	}
	c.ConnectionsActive.Dec()
}
