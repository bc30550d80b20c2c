package stream

import (
	"github.com/c360/streamkit/loop"
)

// SliceSource yields the items of a slice, at most MaxPerRead per Next.
type SliceSource[T any] struct {
	items      []T
	MaxPerRead int
}

// NewSliceSource creates a source over items. maxPerRead <= 0 means unlimited.
func NewSliceSource[T any](items []T, maxPerRead int) *SliceSource[T] {
	return &SliceSource[T]{items: items, MaxPerRead: maxPerRead}
}

// FromSlice creates a stream that yields items and then EOF.
func FromSlice[T any](lp *loop.Loop, items []T, opts ...Option) *SourceStream[T] {
	return NewSourceStream[T](lp, NewSliceSource(items, 0), opts...)
}

// Next implements Source.
func (s *SliceSource[T]) Next(count int, yield func(error, []T)) {
	if len(s.items) == 0 {
		yield(nil, nil)
		return
	}
	n := min(count, len(s.items))
	if s.MaxPerRead > 0 {
		n = min(n, s.MaxPerRead)
	}
	bucket := s.items[:n:n]
	s.items = s.items[n:]
	yield(nil, bucket)
}

// Pause implements Source.
func (s *SliceSource[T]) Pause() {}

// CloseSource implements Source.
func (s *SliceSource[T]) CloseSource() { s.items = nil }

// Remaining returns how many items have not been yielded yet.
func (s *SliceSource[T]) Remaining() int { return len(s.items) }

// FuncSource adapts a generator function. The function returns at most count
// items; a nil slice means EOF.
type FuncSource[T any] struct {
	fn     func(count int) ([]T, error)
	closed bool
}

// NewFuncSource creates a source calling fn on the loop for every read.
func NewFuncSource[T any](fn func(count int) ([]T, error)) *FuncSource[T] {
	return &FuncSource[T]{fn: fn}
}

// Next implements Source.
func (s *FuncSource[T]) Next(count int, yield func(error, []T)) {
	if s.closed {
		yield(nil, nil)
		return
	}
	bucket, err := s.fn(count)
	yield(err, bucket)
}

// Pause implements Source.
func (s *FuncSource[T]) Pause() {}

// CloseSource implements Source.
func (s *FuncSource[T]) CloseSource() { s.closed = true }

// CollectTarget records everything written to it. Limits caps how many
// elements successive writes accept (driving the partial-write path); once
// the limits run out writes are accepted whole.
type CollectTarget[T any] struct {
	Limits []int
	NoEnd  bool
	Err    error

	items  []T
	writes []Brigade[T]
	closed bool
}

// NewCollectTarget creates an accept-everything target.
func NewCollectTarget[T any]() *CollectTarget[T] {
	return &CollectTarget[T]{}
}

// WriteV implements Target.
func (c *CollectTarget[T]) WriteV(brigade Brigade[T], yield func(error, int)) {
	if c.Err != nil {
		yield(c.Err, 0)
		return
	}
	c.writes = append(c.writes, brigade)

	accepted := brigade.Count()
	if len(c.Limits) > 0 {
		accepted = min(accepted, c.Limits[0])
		c.Limits = c.Limits[1:]
	}
	c.items = append(c.items, brigade.Flatten()[:accepted]...)
	yield(nil, accepted)
}

// CloseTarget implements Target.
func (c *CollectTarget[T]) CloseTarget() { c.closed = true }

// CanEnd implements Target.
func (c *CollectTarget[T]) CanEnd() bool { return !c.NoEnd }

// Items returns every accepted element in order.
func (c *CollectTarget[T]) Items() []T { return c.items }

// Writes returns the brigades offered to the target, one per WriteV call.
func (c *CollectTarget[T]) Writes() []Brigade[T] { return c.writes }

// Closed reports whether CloseTarget was called.
func (c *CollectTarget[T]) Closed() bool { return c.closed }

// NewCollectStream creates a TargetStream over a fresh CollectTarget.
func NewCollectStream[T any](lp *loop.Loop, opts ...Option) (*TargetStream[T], *CollectTarget[T]) {
	target := NewCollectTarget[T]()
	return NewTargetStream[T](lp, target, opts...), target
}
