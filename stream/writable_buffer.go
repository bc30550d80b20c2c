package stream

import (
	"github.com/c360/streamkit/pkg/buffer"
)

type writeEntry[T any] struct {
	brigade Brigade[T]
	done    func()
}

// WritableBuffer is a FIFO of (brigade, completion) pairs awaiting the
// consumer. A partially written brigade goes back to the front with its
// original completion, so the completion fires once for the whole write.
type WritableBuffer[T any] struct {
	queue *buffer.Ring[writeEntry[T]]
	count int
}

// NewWritableBuffer creates an empty buffer.
func NewWritableBuffer[T any]() *WritableBuffer[T] {
	return &WritableBuffer[T]{queue: buffer.MustRing[writeEntry[T]](8)}
}

// Enqueue appends a brigade and its completion.
func (b *WritableBuffer[T]) Enqueue(brigade Brigade[T], done func()) {
	b.queue.PushBack(writeEntry[T]{brigade: brigade, done: done})
	b.count += brigade.Count()
}

// EnqueueFront puts the unwritten remainder of a brigade back at the front.
func (b *WritableBuffer[T]) EnqueueFront(brigade Brigade[T], done func()) {
	b.queue.PushFront(writeEntry[T]{brigade: brigade, done: done})
	b.count += brigade.Count()
}

// Dequeue removes the front entry.
func (b *WritableBuffer[T]) Dequeue() (Brigade[T], func(), bool) {
	entry, ok := b.queue.PopFront()
	if !ok {
		return nil, nil, false
	}
	b.count -= entry.brigade.Count()
	return entry.brigade, entry.done, true
}

// Clear drops every entry without invoking completions.
func (b *WritableBuffer[T]) Clear() {
	b.queue.Clear()
	b.count = 0
}

// Count returns the number of queued elements.
func (b *WritableBuffer[T]) Count() int { return b.count }

// Len returns the number of queued entries.
func (b *WritableBuffer[T]) Len() int { return b.queue.Len() }

// IsEmpty reports whether no entries are queued.
func (b *WritableBuffer[T]) IsEmpty() bool { return b.queue.IsEmpty() }
