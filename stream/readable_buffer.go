package stream

import (
	"github.com/c360/streamkit/pkg/buffer"
)

// ReadableBuffer is a FIFO of buckets with a running element count.
//
// Invariant: Count() equals the sum of the lengths of the queued buckets.
type ReadableBuffer[T any] struct {
	queue         *buffer.Ring[[]T]
	count         int
	highWaterMark int
}

// NewReadableBuffer creates an empty buffer with the given high-water-mark.
func NewReadableBuffer[T any](highWaterMark int) *ReadableBuffer[T] {
	return &ReadableBuffer[T]{
		queue:         buffer.MustRing[[]T](8),
		highWaterMark: highWaterMark,
	}
}

// Enqueue appends a bucket. Empty buckets are ignored.
func (b *ReadableBuffer[T]) Enqueue(bucket []T) {
	if len(bucket) == 0 {
		return
	}
	b.queue.PushBack(bucket)
	b.count += len(bucket)
}

// EnqueueFront prepends a bucket so it is dequeued before everything else.
func (b *ReadableBuffer[T]) EnqueueFront(bucket []T) {
	if len(bucket) == 0 {
		return
	}
	b.queue.PushFront(bucket)
	b.count += len(bucket)
}

// Dequeue removes and returns up to n elements from the front. A bucket that
// straddles n is split and its remainder goes back to the front.
func (b *ReadableBuffer[T]) Dequeue(n int) []T {
	if n <= 0 || b.count == 0 {
		return nil
	}
	if n > b.count {
		n = b.count
	}

	first, _ := b.queue.PeekFront()
	if len(first) == n {
		b.queue.PopFront()
		b.count -= n
		return first
	}

	out := make([]T, 0, n)
	for len(out) < n {
		bucket, _ := b.queue.PopFront()
		need := n - len(out)
		if len(bucket) > need {
			out = append(out, bucket[:need]...)
			b.queue.PushFront(bucket[need:])
			break
		}
		out = append(out, bucket...)
	}
	b.count -= n
	return out
}

// DequeueAll removes and returns every buffered element.
func (b *ReadableBuffer[T]) DequeueAll() []T {
	return b.Dequeue(b.count)
}

// Clear drops all buffered buckets.
func (b *ReadableBuffer[T]) Clear() {
	b.queue.Clear()
	b.count = 0
}

// Count returns the number of buffered elements.
func (b *ReadableBuffer[T]) Count() int { return b.count }

// Buckets returns the number of queued buckets.
func (b *ReadableBuffer[T]) Buckets() int { return b.queue.Len() }

// IsEmpty reports whether nothing is buffered.
func (b *ReadableBuffer[T]) IsEmpty() bool { return b.count == 0 }

// HighWaterMark returns the target maximum element count.
func (b *ReadableBuffer[T]) HighWaterMark() int { return b.highWaterMark }

// SetHighWaterMark changes the target maximum element count.
func (b *ReadableBuffer[T]) SetHighWaterMark(n int) { b.highWaterMark = n }

// AvailableSpace returns max(0, highWaterMark - Count()).
func (b *ReadableBuffer[T]) AvailableSpace() int {
	return max(0, b.highWaterMark-b.count)
}
