// Package loop implements the single-threaded cooperative scheduler every
// stream runs on: one serial task queue, a "next tick" primitive, timers, and an
// outstanding-work counter that keeps Run alive while I/O is pending.
//
// Stream state is only touched by tasks running on the loop, so streams need no
// locks. Goroutines doing blocking I/O hand their results back with Enqueue.
package loop

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/c360/streamkit/errors"
	"github.com/c360/streamkit/metric"
	"github.com/c360/streamkit/pkg/buffer"
)

const queueCapacity = 64

// Loop is a serial execution queue. Enqueue and the Retain/Release counter are
// safe to use from any goroutine; tasks run one at a time on the goroutine
// calling Run.
type Loop struct {
	mu       sync.Mutex
	cond     *sync.Cond
	queue    *buffer.Ring[func()]
	retained int
	running  bool
	stopped  bool
	failure  error

	logger        *slog.Logger
	metrics       *metric.Metrics
	queueRegistry *metric.MetricsRegistry

	executed atomic.Int64
	fired    atomic.Int64
}

// Option represents a configuration option for the loop
type Option func(*Loop)

// WithLogger sets the loop logger
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithMetrics records loop activity into the runtime metrics
func WithMetrics(metrics *metric.Metrics) Option {
	return func(l *Loop) {
		l.metrics = metrics
	}
}

// WithQueueMetrics exports the task queue's push, pop and size counters to
// registry under the "loop_queue" component.
func WithQueueMetrics(registry *metric.MetricsRegistry) Option {
	return func(l *Loop) {
		l.queueRegistry = registry
	}
}

// New creates an idle loop
func New(opts ...Option) *Loop {
	l := &Loop{
		logger: slog.Default().With("component", "loop"),
	}
	l.cond = sync.NewCond(&l.mu)

	for _, opt := range opts {
		opt(l)
	}

	if l.queueRegistry != nil {
		queue, err := buffer.NewRing[func()](queueCapacity, buffer.WithMetrics(l.queueRegistry, "loop_queue"))
		if err != nil {
			l.logger.Warn("Queue metrics disabled", "error", err)
		} else {
			l.queue = queue
		}
	}
	if l.queue == nil {
		l.queue = buffer.MustRing[func()](queueCapacity)
	}
	return l
}

// Logger returns the loop logger, for components that did not get their own
func (l *Loop) Logger() *slog.Logger {
	return l.logger
}

// Metrics returns the runtime metrics the loop records into, possibly nil
func (l *Loop) Metrics() *metric.Metrics {
	return l.metrics
}

// Enqueue appends fn to the serial queue. Tasks run in FIFO order.
func (l *Loop) Enqueue(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.queue.PushBack(fn)
	depth := l.queue.Len()
	l.cond.Signal()
	l.mu.Unlock()

	l.metrics.RecordQueueDepth(depth)
}

// NextTick schedules fn to run after the current task completes. Streams use
// it for every event emission so no callback fires inside the call that
// produced it.
func (l *Loop) NextTick(fn func()) {
	l.Enqueue(fn)
}

// Retain marks one unit of outstanding work. Run does not return on an empty
// queue while any work is retained.
func (l *Loop) Retain() {
	l.mu.Lock()
	l.retained++
	retained := l.retained
	l.mu.Unlock()

	l.metrics.RecordRetained(retained)
}

// Release ends one unit of outstanding work.
func (l *Loop) Release() {
	l.mu.Lock()
	if l.retained == 0 {
		l.mu.Unlock()
		l.logger.Warn("Release without matching Retain")
		return
	}
	l.retained--
	retained := l.retained
	if retained == 0 {
		l.cond.Broadcast()
	}
	l.mu.Unlock()

	l.metrics.RecordRetained(retained)
}

// Fail ends the active (or next) Run with err.
func (l *Loop) Fail(err error) {
	if err == nil {
		return
	}
	l.mu.Lock()
	if l.failure == nil {
		l.failure = err
	}
	l.cond.Broadcast()
	l.mu.Unlock()
}

// Stop ends the active Run after the current task. Queued tasks stay queued.
func (l *Loop) Stop() {
	l.mu.Lock()
	l.stopped = true
	l.cond.Broadcast()
	l.mu.Unlock()
}

// Run executes tasks until the queue is empty and no work is retained, the
// context is cancelled, Stop is called, or a task fails. A panicking task is
// recovered and reported as a Fatal error.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return errors.WrapInvalid(ErrAlreadyRunning, "Loop", "Run", "start loop")
	}
	l.running = true
	l.stopped = false
	l.mu.Unlock()

	stopWatch := context.AfterFunc(ctx, func() {
		l.mu.Lock()
		l.cond.Broadcast()
		l.mu.Unlock()
	})

	defer func() {
		stopWatch()
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	for {
		l.mu.Lock()
		for l.queue.IsEmpty() && l.retained > 0 && !l.stopped && l.failure == nil && ctx.Err() == nil {
			l.cond.Wait()
		}

		if l.failure != nil {
			err := l.failure
			l.failure = nil
			l.mu.Unlock()
			l.metrics.RecordLoopFailure()
			return err
		}
		if l.stopped {
			l.mu.Unlock()
			return nil
		}
		if err := ctx.Err(); err != nil {
			l.mu.Unlock()
			return err
		}

		task, ok := l.queue.PopFront()
		depth := l.queue.Len()
		l.mu.Unlock()

		if !ok {
			// Empty queue and nothing retained: idle.
			return nil
		}

		if err := l.execute(task); err != nil {
			l.metrics.RecordLoopFailure()
			return err
		}
		l.executed.Add(1)
		l.metrics.RecordTask(depth)
	}
}

func (l *Loop) execute(task func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Task panicked", "panic", r)
			err = errors.WrapFatal(fmt.Errorf("%w: %v", ErrTaskPanicked, r), "Loop", "Run", "execute task")
		}
	}()
	task()
	return nil
}

// Stats represents loop statistics
type Stats struct {
	TasksExecuted int64 `json:"tasks_executed"`
	TimersFired   int64 `json:"timers_fired"`
	QueueDepth    int   `json:"queue_depth"`
	Retained      int   `json:"retained"`
	Running       bool  `json:"running"`

	QueueCapacity int                 `json:"queue_capacity"`
	Queue         buffer.StatsSummary `json:"queue"`
}

// Stats returns current loop statistics
func (l *Loop) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		TasksExecuted: l.executed.Load(),
		TimersFired:   l.fired.Load(),
		QueueDepth:    l.queue.Len(),
		Retained:      l.retained,
		Running:       l.running,
		QueueCapacity: l.queue.Capacity(),
		Queue:         l.queue.Stats().Summary(),
	}
}
