package stream

import (
	"github.com/c360/streamkit/errors"
	"github.com/c360/streamkit/loop"
)

// TransformFunc converts one written bucket, pushing any number of output
// buckets. It may keep state between calls (e.g. a partial frame).
type TransformFunc[I, O any] func(in []I, push func([]O)) error

// FlushFunc runs once after the write side finished, before EOF is pushed.
type FlushFunc[O any] func(push func([]O)) error

// Transform is a duplex whose write side (elements I) feeds a function that
// pushes into its read side (elements O). A write completes only while the
// read side has room, so backpressure propagates through the stage.
type Transform[I, O any] struct {
	*Duplex[O, I]

	transform TransformFunc[I, O]
	flush     FlushFunc[O]
	held      func()
}

type transformCore[I, O any] struct{ t *Transform[I, O] }

// NewTransform creates a transform stage. flush may be nil.
func NewTransform[I, O any](lp *loop.Loop, fn TransformFunc[I, O], flush FlushFunc[O], opts ...Option) *Transform[I, O] {
	t := &Transform[I, O]{transform: fn, flush: flush}
	opts = append([]Option{WithKind("transform")}, opts...)
	t.Duplex = NewDuplex[O, I](lp, transformCore[I, O]{t}, opts...)
	t.Duplex.writable.finishL.add(t.finishInput, true)
	return t
}

// Through creates a same-type transform stage.
func Through[T any](lp *loop.Loop, fn TransformFunc[T, T], opts ...Option) *Transform[T, T] {
	return NewTransform[T, T](lp, fn, nil, opts...)
}

// Map creates a stage applying fn to every element.
func Map[I, O any](lp *loop.Loop, fn func(I) O, opts ...Option) *Transform[I, O] {
	return NewTransform[I, O](lp, func(in []I, push func([]O)) error {
		out := make([]O, len(in))
		for i, item := range in {
			out[i] = fn(item)
		}
		push(out)
		return nil
	}, nil, opts...)
}

func (t *Transform[I, O]) push(out []O) {
	if len(out) > 0 {
		t.Duplex.Push(out)
	}
}

func (t *Transform[I, O]) finishInput() {
	if t.flush != nil {
		if err := t.flush(t.push); err != nil {
			t.Duplex.Fail(errors.Wrap(err, "Transform", "flush", "flush transform"))
			return
		}
	}
	t.Duplex.Push(nil)
}

func (c transformCore[I, O]) PrimaryWriteV(brigade Brigade[I], done func(err error, written int)) {
	t := c.t
	for _, bucket := range brigade {
		if err := t.transform(bucket, t.push); err != nil {
			done(errors.Wrap(err, "Transform", "PrimaryWriteV", "transform bucket"), 0)
			return
		}
	}

	count := brigade.Count()
	if t.readable.AvailableSpace() > 0 || t.readable.closed {
		done(nil, count)
		return
	}
	t.held = func() { done(nil, count) }
}

// PrimaryRead releases a write held back by a full read buffer.
func (c transformCore[I, O]) PrimaryRead(int) {
	if held := c.t.held; held != nil {
		c.t.held = nil
		held()
	}
}

func (c transformCore[I, O]) PrimaryPause() {}

func (c transformCore[I, O]) PrimaryCloseRead() {
	// Nobody will read again; let pending input drain.
	c.PrimaryRead(0)
}

func (c transformCore[I, O]) PrimaryCloseWrite() {
	c.t.held = nil
}

func (c transformCore[I, O]) CanEnd() bool { return true }
