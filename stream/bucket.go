package stream

// A bucket is one contiguous []T produced by a single read or accepted by a
// single write. Buckets are never mutated once handed to a stream; taking a
// prefix yields a new slice header over the same backing array.

// Brigade is an ordered sequence of buckets scheduled as one logical write.
type Brigade[T any] [][]T

// Count returns the total number of elements across all buckets.
func (b Brigade[T]) Count() int {
	n := 0
	for _, bucket := range b {
		n += len(bucket)
	}
	return n
}

// Drop returns the brigade without its first n elements. The receiver is left
// untouched; a bucket split by n contributes its tail.
func (b Brigade[T]) Drop(n int) Brigade[T] {
	if n <= 0 {
		return b
	}
	for i, bucket := range b {
		if n < len(bucket) {
			rest := make(Brigade[T], 0, len(b)-i)
			rest = append(rest, bucket[n:])
			return append(rest, b[i+1:]...)
		}
		n -= len(bucket)
	}
	return nil
}

// Flatten concatenates all buckets into a fresh slice.
func (b Brigade[T]) Flatten() []T {
	out := make([]T, 0, b.Count())
	for _, bucket := range b {
		out = append(out, bucket...)
	}
	return out
}

// nextPowerOfTwo returns the smallest power of two >= n.
func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
