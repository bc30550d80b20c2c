package stream

import (
	"github.com/c360/streamkit/errors"
	"github.com/c360/streamkit/loop"
)

// Producer is the extension point behind a Readable.
//
// PrimaryRead asks for up to count elements. The producer answers later, on
// the loop, with Push(bucket), Push(nil) for EOF, or Fail(err). At most one
// PrimaryRead is outstanding at a time.
type Producer[T any] interface {
	PrimaryRead(count int)
	PrimaryPause()
	PrimaryClose()
}

// Readable buffers data from a Producer and hands it to consumers through
// Read/ReadN and the "readable" event, bounding memory with a high-water-mark.
//
// Readable is not safe for concurrent use: every method must be called on the
// loop goroutine. A Readable starts paused; the first OnReadable registration
// resumes it.
type Readable[T any] struct {
	base

	producer  Producer[T]
	buffer    *ReadableBuffer[T]
	autoClose bool

	pauseCount        int
	resumedOnce       bool
	autoPaused        bool
	inGenerator       bool
	generateScheduled bool
	readableScheduled bool
	pendingReadable   bool
	hitEOF            bool
	endScheduled      bool
	ended             bool
	failed            error

	readableL listenerSet[func()]
	endL      listenerSet[func()]
}

// NewReadable creates a paused Readable driven by producer.
func NewReadable[T any](lp *loop.Loop, producer Producer[T], opts ...Option) *Readable[T] {
	return newReadable[T](lp, producer, applyOptions(opts))
}

func newReadable[T any](lp *loop.Loop, producer Producer[T], o options) *Readable[T] {
	r := &Readable[T]{
		producer:   producer,
		buffer:     NewReadableBuffer[T](o.highWaterMark),
		autoClose:  o.autoClose,
		pauseCount: 1,
	}
	r.init(lp, "read", o)
	return r
}

// Push hands a bucket to the stream. A nil bucket signals EOF. It reports
// whether the buffer still has room; producers that push on their own should
// stop when it returns false.
func (r *Readable[T]) Push(bucket []T) bool {
	if r.closed {
		r.logger.Debug("Push after close dropped", "items", len(bucket))
		return false
	}
	r.inGenerator = false

	if bucket == nil {
		if r.hitEOF {
			r.logger.Debug("Duplicate EOF ignored")
			return false
		}
		r.hitEOF = true
		r.scheduleReadable()
		if r.pauseCount == 0 {
			r.maybeEnd()
		}
		return false
	}

	if r.hitEOF {
		r.emitError(errors.WrapInvalid(errors.ErrPushAfterEOF, "Readable", "Push", "push bucket"))
		return false
	}

	if len(bucket) == 0 {
		r.scheduleGenerate()
		return r.buffer.AvailableSpace() > 0
	}

	r.buffer.Enqueue(bucket)
	r.metrics.RecordPushed(r.kind, len(bucket))
	r.scheduleReadable()

	if r.buffer.AvailableSpace() <= 0 {
		r.enterAutoPause()
		return false
	}
	r.scheduleGenerate()
	return true
}

// Fail reports a producer error. Generation stops; buffered data stays
// readable.
func (r *Readable[T]) Fail(err error) {
	if err == nil {
		return
	}
	if r.closed {
		r.logger.Debug("Error after close dropped", "error", err)
		return
	}
	r.inGenerator = false
	if r.failed == nil {
		r.failed = err
	}
	r.emitError(err)
}

// Unshift puts data back at the front of the buffer without signalling
// "readable".
func (r *Readable[T]) Unshift(bucket []T) {
	if r.closed || len(bucket) == 0 {
		return
	}
	r.buffer.EnqueueFront(bucket)
	if r.buffer.AvailableSpace() <= 0 {
		r.enterAutoPause()
	}
}

// ReadN returns exactly n elements, or nil if fewer are buffered and EOF has
// not been reached. At EOF it returns whatever is left. Asking for more than
// the high-water-mark raises it to the next power of two (up to
// MaxHighWaterMark).
func (r *Readable[T]) ReadN(n int) []T {
	if n <= 0 {
		return nil
	}
	if n > r.buffer.HighWaterMark() {
		r.buffer.SetHighWaterMark(min(nextPowerOfTwo(n), MaxHighWaterMark))
	}

	if r.buffer.Count() < n {
		if !r.hitEOF {
			r.scheduleGenerate()
			return nil
		}
		if r.buffer.IsEmpty() {
			r.maybeEnd()
			return nil
		}
		n = r.buffer.Count()
	}

	out := r.buffer.Dequeue(n)
	r.afterDequeue(len(out))
	return out
}

// Read returns everything buffered, or nil when the buffer is empty.
func (r *Readable[T]) Read() []T {
	if r.buffer.IsEmpty() {
		if r.hitEOF {
			r.maybeEnd()
		} else {
			r.scheduleGenerate()
		}
		return nil
	}
	out := r.buffer.DequeueAll()
	r.afterDequeue(len(out))
	return out
}

func (r *Readable[T]) afterDequeue(n int) {
	r.metrics.RecordRead(r.kind, n)
	if r.autoPaused && r.buffer.AvailableSpace() > 0 {
		r.autoPaused = false
	}
	if r.hitEOF {
		r.scheduleReadable()
		if r.buffer.IsEmpty() {
			r.maybeEnd()
		}
		return
	}
	r.scheduleGenerate()
}

// Pause stops generation. Calls nest; each Pause needs a matching Resume.
func (r *Readable[T]) Pause() {
	r.pauseCount++
	if r.pauseCount == 1 && r.producer != nil {
		r.producer.PrimaryPause()
	}
}

// Resume undoes one Pause. When the count reaches zero, generation restarts
// and any "readable" suppressed while paused is delivered.
func (r *Readable[T]) Resume() {
	r.resumedOnce = true
	if r.pauseCount == 0 {
		r.logger.Debug("Resume on a flowing stream ignored")
		return
	}
	r.pauseCount--
	if r.pauseCount > 0 {
		return
	}

	if r.pendingReadable {
		r.pendingReadable = false
		r.scheduleReadable()
	}
	if r.hitEOF {
		if r.buffer.IsEmpty() {
			r.maybeEnd()
		}
		return
	}
	r.scheduleGenerate()
}

// OnReadable registers a listener for "data can be read". The first
// registration on a stream resumes it.
func (r *Readable[T]) OnReadable(fn func()) ListenerID {
	id := r.readableL.add(fn, false)
	r.implicitResume()
	return id
}

// OnceReadable is OnReadable for a single emission.
func (r *Readable[T]) OnceReadable(fn func()) ListenerID {
	id := r.readableL.add(fn, true)
	r.implicitResume()
	return id
}

func (r *Readable[T]) implicitResume() {
	if !r.resumedOnce {
		r.Resume()
	}
}

// OnEnd registers a listener called once after EOF, when the buffer is empty.
func (r *Readable[T]) OnEnd(fn func()) ListenerID {
	return r.endL.add(fn, true)
}

// Off removes a listener.
func (r *Readable[T]) Off(id ListenerID) {
	_ = r.readableL.remove(id) || r.endL.remove(id) || r.off(id)
}

// Close shuts the read side down. It is safe while a read is in flight; late
// pushes are dropped. "close" fires on the next tick, after which all
// listeners are released.
func (r *Readable[T]) Close() {
	if r.closed {
		return
	}
	r.closed = true
	r.inGenerator = false
	if r.producer != nil {
		r.producer.PrimaryClose()
	}
	r.scheduleClose(func() {
		r.readableL.clear()
		r.endL.clear()
		r.buffer.Clear()
		r.producer = nil
	})
}

// State returns the current lifecycle state.
func (r *Readable[T]) State() ReadableState {
	switch {
	case r.ended:
		return ReadableEnded
	case r.hitEOF:
		return ReadableHitEOF
	case r.pauseCount > 0:
		return ReadablePaused
	case r.inGenerator:
		return ReadableGenerating
	default:
		return ReadableIdle
	}
}

// PauseDepth returns the number of outstanding Pause calls.
func (r *Readable[T]) PauseDepth() int { return r.pauseCount }

// HitEOF reports whether EOF has been pushed.
func (r *Readable[T]) HitEOF() bool { return r.hitEOF }

// Ended reports whether "end" has been emitted.
func (r *Readable[T]) Ended() bool { return r.ended }

// Err returns the first producer error, if any.
func (r *Readable[T]) Err() error { return r.failed }

// Buffered returns the number of buffered elements.
func (r *Readable[T]) Buffered() int { return r.buffer.Count() }

// AvailableSpace returns how many more elements fit below the high-water-mark.
func (r *Readable[T]) AvailableSpace() int { return r.buffer.AvailableSpace() }

// HighWaterMark returns the current high-water-mark.
func (r *Readable[T]) HighWaterMark() int { return r.buffer.HighWaterMark() }

func (r *Readable[T]) scheduleReadable() {
	if r.pauseCount > 0 {
		r.pendingReadable = true
		return
	}
	if r.readableScheduled {
		return
	}
	r.readableScheduled = true
	r.lp.NextTick(r.emitReadable)
}

func (r *Readable[T]) emitReadable() {
	r.readableScheduled = false
	if r.closed || r.ended {
		return
	}
	if r.pauseCount > 0 {
		r.pendingReadable = true
		return
	}
	if r.buffer.IsEmpty() && !r.hitEOF {
		return
	}
	r.readableL.emit(callVoid)
}

func (r *Readable[T]) scheduleGenerate() {
	if r.generateScheduled {
		return
	}
	r.generateScheduled = true
	r.lp.NextTick(func() {
		r.generateScheduled = false
		r.generate()
	})
}

func (r *Readable[T]) generate() {
	if r.closed || r.failed != nil || r.hitEOF || r.inGenerator || r.pauseCount > 0 {
		return
	}
	space := r.buffer.AvailableSpace()
	if space <= 0 {
		r.enterAutoPause()
		return
	}
	r.inGenerator = true
	r.producer.PrimaryRead(space)
}

func (r *Readable[T]) enterAutoPause() {
	if r.autoPaused {
		return
	}
	r.autoPaused = true
	r.metrics.RecordBackpressure(r.kind, "read")
	if r.pauseCount == 0 && r.producer != nil {
		r.producer.PrimaryPause()
	}
}

func (r *Readable[T]) maybeEnd() {
	if !r.hitEOF || !r.buffer.IsEmpty() || r.endScheduled || r.closed {
		return
	}
	r.endScheduled = true
	r.lp.NextTick(func() {
		if r.closed {
			return
		}
		r.ended = true
		r.endL.emit(callVoid)
		if r.autoClose {
			r.Close()
		}
	})
}
