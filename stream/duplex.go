package stream

import (
	"github.com/c360/streamkit/loop"
)

// DuplexImpl is implemented once by a transport that reads and writes through
// the same resource. Its read half follows the Producer contract, its write
// half the Consumer contract.
type DuplexImpl[R, W any] interface {
	PrimaryRead(count int)
	PrimaryPause()
	PrimaryWriteV(brigade Brigade[W], done func(err error, written int))
	PrimaryCloseRead()
	PrimaryCloseWrite()
	CanEnd() bool
}

// Duplex pairs an independent read side (elements R) and write side (elements
// W). The sides share no buffer. Each closes on its own; the duplex emits
// "close" exactly once, after both have closed. Errors from either side arrive
// on the duplex error channel.
type Duplex[R, W any] struct {
	base

	impl          DuplexImpl[R, W]
	readable      *Readable[R]
	writable      *Writable[W]
	closeRefCount int
}

type readDelegate[R, W any] struct{ d *Duplex[R, W] }

func (r readDelegate[R, W]) PrimaryRead(count int) { r.d.impl.PrimaryRead(count) }
func (r readDelegate[R, W]) PrimaryPause()         { r.d.impl.PrimaryPause() }
func (r readDelegate[R, W]) PrimaryClose()         { r.d.impl.PrimaryCloseRead() }

type writeDelegate[R, W any] struct{ d *Duplex[R, W] }

func (w writeDelegate[R, W]) PrimaryWriteV(brigade Brigade[W], done func(err error, written int)) {
	w.d.impl.PrimaryWriteV(brigade, done)
}
func (w writeDelegate[R, W]) PrimaryClose() { w.d.impl.PrimaryCloseWrite() }
func (w writeDelegate[R, W]) CanEnd() bool  { return w.d.impl.CanEnd() }

// NewDuplex creates a duplex around impl. Options apply to both sides.
func NewDuplex[R, W any](lp *loop.Loop, impl DuplexImpl[R, W], opts ...Option) *Duplex[R, W] {
	o := applyOptions(opts)
	d := &Duplex[R, W]{impl: impl, closeRefCount: 2}
	d.init(lp, "duplex", o)

	side := o
	side.keepAlive = false
	d.readable = newReadable[R](lp, readDelegate[R, W]{d}, side)
	d.writable = newWritable[W](lp, writeDelegate[R, W]{d}, side)

	d.readable.errorOwner = d.dispatchError
	d.writable.errorOwner = d.dispatchError
	d.readable.closeL.add(d.sideClosed, true)
	d.writable.closeL.add(d.sideClosed, true)
	return d
}

func (d *Duplex[R, W]) sideClosed() {
	d.closeRefCount--
	switch {
	case d.closeRefCount > 0:
		return
	case d.closeRefCount < 0:
		d.logger.Warn("Duplex side closed more than twice", "ref_count", d.closeRefCount)
		return
	}
	d.closed = true
	d.scheduleClose(nil)
}

// Readable returns the read side.
func (d *Duplex[R, W]) Readable() *Readable[R] { return d.readable }

// Writable returns the write side.
func (d *Duplex[R, W]) Writable() *Writable[W] { return d.writable }

// Push hands read-side data to the stream; nil signals EOF.
func (d *Duplex[R, W]) Push(bucket []R) bool { return d.readable.Push(bucket) }

// Fail reports a read-side error.
func (d *Duplex[R, W]) Fail(err error) { d.readable.Fail(err) }

// Unshift puts data back at the front of the read buffer.
func (d *Duplex[R, W]) Unshift(bucket []R) { d.readable.Unshift(bucket) }

// Read returns everything buffered on the read side.
func (d *Duplex[R, W]) Read() []R { return d.readable.Read() }

// ReadN returns exactly n elements from the read side, see Readable.ReadN.
func (d *Duplex[R, W]) ReadN(n int) []R { return d.readable.ReadN(n) }

// Pause pauses the read side.
func (d *Duplex[R, W]) Pause() { d.readable.Pause() }

// Resume resumes the read side.
func (d *Duplex[R, W]) Resume() { d.readable.Resume() }

// HitEOF reports whether the read side received EOF.
func (d *Duplex[R, W]) HitEOF() bool { return d.readable.HitEOF() }

// OnReadable registers a read-side "readable" listener.
func (d *Duplex[R, W]) OnReadable(fn func()) ListenerID { return d.readable.OnReadable(fn) }

// OnceReadable registers a one-shot "readable" listener.
func (d *Duplex[R, W]) OnceReadable(fn func()) ListenerID { return d.readable.OnceReadable(fn) }

// OnEnd registers a read-side "end" listener.
func (d *Duplex[R, W]) OnEnd(fn func()) ListenerID { return d.readable.OnEnd(fn) }

// WriteV queues a brigade on the write side.
func (d *Duplex[R, W]) WriteV(brigade Brigade[W], done func()) bool {
	return d.writable.WriteV(brigade, done)
}

// Write queues a bucket on the write side.
func (d *Duplex[R, W]) Write(bucket []W, done func()) bool { return d.writable.Write(bucket, done) }

// Cork corks the write side.
func (d *Duplex[R, W]) Cork() { d.writable.Cork() }

// Uncork uncorks the write side.
func (d *Duplex[R, W]) Uncork() { d.writable.Uncork() }

// End ends the write side.
func (d *Duplex[R, W]) End() { d.writable.End() }

// EndWith writes a final bucket and ends the write side.
func (d *Duplex[R, W]) EndWith(bucket []W) { d.writable.EndWith(bucket) }

// OnDrain registers a write-side "drain" listener.
func (d *Duplex[R, W]) OnDrain(fn func()) ListenerID { return d.writable.OnDrain(fn) }

// OnceDrain registers a one-shot "drain" listener.
func (d *Duplex[R, W]) OnceDrain(fn func()) ListenerID { return d.writable.OnceDrain(fn) }

// OnFinish registers a write-side "finish" listener.
func (d *Duplex[R, W]) OnFinish(fn func()) ListenerID { return d.writable.OnFinish(fn) }

// Off removes a listener from the duplex or either side.
func (d *Duplex[R, W]) Off(id ListenerID) {
	d.readable.Off(id)
	d.writable.Off(id)
	d.off(id)
}

// CloseRead closes the read side only.
func (d *Duplex[R, W]) CloseRead() { d.readable.Close() }

// CloseWrite closes the write side only.
func (d *Duplex[R, W]) CloseWrite() { d.writable.Close() }

// Close closes both sides.
func (d *Duplex[R, W]) Close() {
	d.readable.Close()
	d.writable.Close()
}

// ReadClosed reports whether the read side has been closed.
func (d *Duplex[R, W]) ReadClosed() bool { return d.readable.closed }

// WriteClosed reports whether the write side has been closed.
func (d *Duplex[R, W]) WriteClosed() bool { return d.writable.closed }
