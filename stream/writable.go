package stream

import (
	"github.com/c360/streamkit/errors"
	"github.com/c360/streamkit/loop"
)

// Consumer is the extension point behind a Writable.
//
// PrimaryWriteV offers a brigade; the consumer calls done exactly once, on the
// loop, with the number of elements it accepted (possibly fewer than offered)
// or an error. At most one PrimaryWriteV is outstanding at a time. CanEnd
// reports whether the consumer can ever be told that no more data is coming.
type Consumer[T any] interface {
	PrimaryWriteV(brigade Brigade[T], done func(err error, written int))
	PrimaryClose()
	CanEnd() bool
}

// Writable serializes writes to a Consumer with corking and an end/finish
// protocol. Like Readable it must only be used on the loop goroutine.
type Writable[T any] struct {
	base

	consumer      Consumer[T]
	buffer        *WritableBuffer[T]
	highWaterMark int
	autoClose     bool

	inFlight        int
	isWriting       bool
	corkCount       int
	calledEnd       bool
	endSuppressed   bool
	finishScheduled bool
	finished        bool
	failed          error

	drainL  listenerSet[func()]
	finishL listenerSet[func()]
}

// NewWritable creates a Writable draining into consumer.
func NewWritable[T any](lp *loop.Loop, consumer Consumer[T], opts ...Option) *Writable[T] {
	return newWritable[T](lp, consumer, applyOptions(opts))
}

func newWritable[T any](lp *loop.Loop, consumer Consumer[T], o options) *Writable[T] {
	w := &Writable[T]{
		consumer:      consumer,
		buffer:        NewWritableBuffer[T](),
		highWaterMark: o.highWaterMark,
		autoClose:     o.autoClose,
	}
	w.init(lp, "write", o)
	return w
}

// WriteV queues a brigade. done, if set, runs once the whole brigade has been
// accepted; it never runs if the write fails. The result reports whether the
// buffer still has room after this call, counting the write in flight; a
// producer seeing false should wait for "drain".
func (w *Writable[T]) WriteV(brigade Brigade[T], done func()) bool {
	if w.failed != nil {
		w.logger.Warn("Write rejected", "error", errors.ErrStreamFailed, "cause", w.failed)
		return false
	}
	if w.calledEnd || w.closed {
		w.emitError(errors.WrapInvalid(errors.ErrWriteAfterEnd, "Writable", "WriteV", "queue write"))
		return false
	}

	if brigade.Count() == 0 {
		if done != nil {
			w.lp.NextTick(done)
		}
		return w.AvailableSpace() > 0
	}

	w.buffer.Enqueue(brigade, done)
	if w.corkCount == 0 && !w.isWriting {
		w.writeNextBlock()
	}

	if w.AvailableSpace() > 0 {
		return true
	}
	w.metrics.RecordBackpressure(w.kind, "write")
	return false
}

// Write queues a single bucket.
func (w *Writable[T]) Write(bucket []T, done func()) bool {
	return w.WriteV(Brigade[T]{bucket}, done)
}

// Cork holds writes in the buffer until the matching Uncork. Calls nest.
func (w *Writable[T]) Cork() {
	if w.closed {
		return
	}
	w.corkCount++
}

// Uncork undoes one Cork; the last one starts writing whatever accumulated.
func (w *Writable[T]) Uncork() {
	if w.corkCount == 0 {
		w.logger.Debug("Uncork without Cork ignored")
		return
	}
	w.corkCount--
	if w.corkCount == 0 && !w.isWriting && !w.buffer.IsEmpty() {
		w.writeNextBlock()
	}
}

// End requests the end of the stream. "finish" fires once everything queued
// has been written, unless the consumer cannot end. A second End is a no-op.
func (w *Writable[T]) End() {
	w.EndWith(nil)
}

// EndWith writes a final bucket and ends the stream.
func (w *Writable[T]) EndWith(bucket []T) {
	if w.calledEnd {
		w.logger.Debug("End called twice")
		return
	}
	if w.closed {
		w.logger.Debug("End after close ignored")
		return
	}
	if len(bucket) > 0 {
		w.WriteV(Brigade[T]{bucket}, nil)
	}

	w.calledEnd = true
	w.corkCount = 0
	if !w.isWriting && !w.buffer.IsEmpty() {
		w.writeNextBlock()
	}
	w.maybeFinish()
}

func (w *Writable[T]) writeNextBlock() {
	if w.closed || w.failed != nil || w.corkCount > 0 {
		w.isWriting = false
		return
	}
	brigade, done, ok := w.buffer.Dequeue()
	if !ok {
		w.isWriting = false
		return
	}

	w.isWriting = true
	w.inFlight = brigade.Count()

	completed := false
	synchronous := true
	w.consumer.PrimaryWriteV(brigade, func(err error, written int) {
		if completed {
			w.emitError(errors.WrapInvalid(errors.ErrWriteCallbackReused, "Writable", "PrimaryWriteV", "complete write"))
			return
		}
		completed = true
		if synchronous {
			// The block stays in flight until the next tick, so the caller
			// still sees its occupancy.
			w.lp.NextTick(func() { w.afterPrimaryWrite(brigade, done, err, written) })
			return
		}
		w.afterPrimaryWrite(brigade, done, err, written)
	})
	synchronous = false
}

func (w *Writable[T]) afterPrimaryWrite(brigade Brigade[T], done func(), err error, written int) {
	w.inFlight = 0
	if w.closed {
		w.isWriting = false
		return
	}
	if err != nil {
		w.isWriting = false
		w.failed = err
		w.emitError(err)
		return
	}

	total := brigade.Count()
	written = max(0, min(written, total))
	w.metrics.RecordWritten(w.kind, written)

	if written < total {
		w.buffer.EnqueueFront(brigade.Drop(written), done)
	} else if done != nil {
		w.lp.NextTick(done)
	}

	if !w.buffer.IsEmpty() && w.corkCount == 0 {
		w.writeNextBlock()
		return
	}

	w.isWriting = false
	if !w.buffer.IsEmpty() {
		return
	}
	if w.calledEnd {
		w.maybeFinish()
		return
	}
	w.lp.NextTick(w.emitDrain)
}

func (w *Writable[T]) emitDrain() {
	if w.closed || w.calledEnd {
		return
	}
	w.drainL.emit(callVoid)
}

func (w *Writable[T]) maybeFinish() {
	if !w.calledEnd || w.finishScheduled || w.isWriting || !w.buffer.IsEmpty() || w.failed != nil || w.closed {
		return
	}
	if !w.consumer.CanEnd() {
		if !w.endSuppressed {
			w.endSuppressed = true
			w.logger.Debug("Consumer cannot end, finish suppressed")
		}
		return
	}

	w.finishScheduled = true
	w.lp.NextTick(func() {
		if w.closed {
			return
		}
		w.finished = true
		w.finishL.emit(callVoid)
		if w.autoClose {
			w.Close()
		}
	})
}

// OnDrain registers a listener called whenever the queue empties before End.
func (w *Writable[T]) OnDrain(fn func()) ListenerID {
	return w.drainL.add(fn, false)
}

// OnceDrain is OnDrain for a single emission.
func (w *Writable[T]) OnceDrain(fn func()) ListenerID {
	return w.drainL.add(fn, true)
}

// OnFinish registers a listener called once everything has been written after
// End.
func (w *Writable[T]) OnFinish(fn func()) ListenerID {
	return w.finishL.add(fn, true)
}

// Off removes a listener.
func (w *Writable[T]) Off(id ListenerID) {
	_ = w.drainL.remove(id) || w.finishL.remove(id) || w.off(id)
}

// Close shuts the write side down. Queued writes are dropped without running
// their completions.
func (w *Writable[T]) Close() {
	if w.closed {
		return
	}
	w.closed = true
	if w.consumer != nil {
		w.consumer.PrimaryClose()
	}
	w.buffer.Clear()
	w.scheduleClose(func() {
		w.drainL.clear()
		w.finishL.clear()
		w.consumer = nil
	})
}

// State returns the current lifecycle state.
func (w *Writable[T]) State() WritableState {
	switch {
	case w.finished:
		return WritableFinished
	case w.calledEnd:
		return WritableEndRequested
	case w.corkCount > 0:
		return WritableCorked
	case w.isWriting:
		return WritableWriting
	default:
		return WritableIdle
	}
}

// AvailableSpace returns how many more elements fit below the high-water-mark,
// counting queued and in-flight elements. Never negative.
func (w *Writable[T]) AvailableSpace() int {
	return max(0, w.highWaterMark-w.buffer.Count()-w.inFlight)
}

// HighWaterMark returns the high-water-mark.
func (w *Writable[T]) HighWaterMark() int { return w.highWaterMark }

// Buffered returns the number of queued (not in-flight) elements.
func (w *Writable[T]) Buffered() int { return w.buffer.Count() }

// CorkDepth returns the number of outstanding Cork calls.
func (w *Writable[T]) CorkDepth() int { return w.corkCount }

// Finished reports whether "finish" has been emitted.
func (w *Writable[T]) Finished() bool { return w.finished }

// Ended reports whether End has been called.
func (w *Writable[T]) Ended() bool { return w.calledEnd }

// Err returns the consumer error that made the stream unusable, if any.
func (w *Writable[T]) Err() error { return w.failed }
