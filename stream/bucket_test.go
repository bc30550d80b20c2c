package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBrigade_CountDropFlatten(t *testing.T) {
	b := Brigade[int]{{1, 2}, {3}, {4, 5, 6}}

	assert.Equal(t, 6, b.Count())
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, b.Flatten())

	assert.Equal(t, Brigade[int]{{2}, {3}, {4, 5, 6}}, b.Drop(1))
	assert.Equal(t, Brigade[int]{{3}, {4, 5, 6}}, b.Drop(2))
	assert.Equal(t, Brigade[int]{{5, 6}}, b.Drop(4))
	assert.Nil(t, b.Drop(6))
	assert.Equal(t, b, b.Drop(0))

	// The receiver is untouched.
	assert.Equal(t, Brigade[int]{{1, 2}, {3}, {4, 5, 6}}, b)
}

func TestNextPowerOfTwo(t *testing.T) {
	tests := []struct{ in, want int }{
		{1, 1}, {2, 2}, {3, 4}, {17, 32}, {1024, 1024}, {1025, 2048},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nextPowerOfTwo(tt.in), "n=%d", tt.in)
	}
}

func TestReadableBuffer_DequeueSplitsBuckets(t *testing.T) {
	b := NewReadableBuffer[int](8)
	b.Enqueue([]int{1, 2, 3})
	b.Enqueue([]int{})
	b.Enqueue([]int{4, 5})

	assert.Equal(t, 5, b.Count())
	assert.Equal(t, 2, b.Buckets())
	assert.Equal(t, 3, b.AvailableSpace())

	assert.Equal(t, []int{1, 2}, b.Dequeue(2))
	assert.Equal(t, 3, b.Count())
	assert.Equal(t, []int{3, 4}, b.Dequeue(2))
	assert.Equal(t, []int{5}, b.Dequeue(10))
	assert.True(t, b.IsEmpty())
	assert.Nil(t, b.Dequeue(1))
}

func TestReadableBuffer_EnqueueFrontAndSpace(t *testing.T) {
	b := NewReadableBuffer[byte](4)
	b.Enqueue([]byte("cd"))
	b.EnqueueFront([]byte("ab"))
	b.Enqueue([]byte("ef"))

	assert.Equal(t, 0, b.AvailableSpace(), "space never goes negative")
	assert.Equal(t, []byte("abcdef"), b.DequeueAll())

	b.Enqueue([]byte("x"))
	b.Clear()
	assert.Equal(t, 0, b.Count())
}

func TestReadableBuffer_SplitDoesNotMutateBucket(t *testing.T) {
	bucket := []int{1, 2, 3, 4}
	b := NewReadableBuffer[int](8)
	b.Enqueue(bucket)
	b.Enqueue([]int{5})

	head := b.Dequeue(2)
	head = append(head, 99)
	assert.Equal(t, []int{1, 2, 99}, head)
	assert.Equal(t, []int{1, 2, 3, 4}, bucket)
	assert.Equal(t, []int{3, 4, 5}, b.DequeueAll())
}

func TestWritableBuffer_FrontRequeue(t *testing.T) {
	b := NewWritableBuffer[int]()
	calls := 0
	done := func() { calls++ }

	b.Enqueue(Brigade[int]{{1, 2, 3}}, done)
	b.Enqueue(Brigade[int]{{4}}, nil)
	assert.Equal(t, 4, b.Count())
	assert.Equal(t, 2, b.Len())

	brigade, cb, ok := b.Dequeue()
	assert.True(t, ok)
	assert.Equal(t, 1, b.Count())

	b.EnqueueFront(brigade.Drop(1), cb)
	assert.Equal(t, 3, b.Count())

	rest, cb2, ok := b.Dequeue()
	assert.True(t, ok)
	assert.Equal(t, Brigade[int]{{2, 3}}, rest)
	cb2()
	assert.Equal(t, 1, calls)

	b.Clear()
	assert.True(t, b.IsEmpty())
	_, _, ok = b.Dequeue()
	assert.False(t, ok)
}
