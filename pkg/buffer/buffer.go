// Package buffer provides a growable, index-addressed ring deque.
//
// Ring is the arena behind the stream engine's readable and writable buffers and
// the event loop's task queue: pushing at either end and popping from the front
// are O(1) amortized, and elements are never shifted. Ring is not safe for
// concurrent use; its owners serialize access (the loop under its mutex, streams
// by running on the loop).
//
// Statistics are always collected. Prometheus metrics can be enabled with
// WithMetrics.
package buffer

const minCapacity = 8

// Ring is a double-ended queue backed by a power-of-two circular slice.
type Ring[T any] struct {
	items   []T
	head    int // index of the front element
	size    int
	stats   *Statistics
	metrics *bufferMetrics
}

// NewRing creates a ring with room for at least capacity items before growing.
// Returns an error only if metrics registration fails.
func NewRing[T any](capacity int, options ...Option) (*Ring[T], error) {
	opts := applyOptions(options...)

	var metrics *bufferMetrics
	if opts.metricsReg != nil {
		var err error
		metrics, err = newBufferMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, err
		}
	}

	return &Ring[T]{
		items:   make([]T, roundUp(capacity)),
		stats:   NewStatistics(),
		metrics: metrics,
	}, nil
}

// MustRing is NewRing without metrics; it cannot fail.
func MustRing[T any](capacity int) *Ring[T] {
	return &Ring[T]{
		items: make([]T, roundUp(capacity)),
		stats: NewStatistics(),
	}
}

func roundUp(n int) int {
	c := minCapacity
	for c < n {
		c <<= 1
	}
	return c
}

func (r *Ring[T]) mask(i int) int {
	return i & (len(r.items) - 1)
}

func (r *Ring[T]) grow() {
	items := make([]T, len(r.items)*2)
	n := copy(items, r.items[r.head:])
	copy(items[n:], r.items[:r.head])
	r.items = items
	r.head = 0
	r.stats.Grow()
}

// PushBack appends an item at the back.
func (r *Ring[T]) PushBack(item T) {
	if r.size == len(r.items) {
		r.grow()
	}
	r.items[r.mask(r.head+r.size)] = item
	r.size++
	r.recordPush()
}

// PushFront prepends an item so it is the next to be popped.
func (r *Ring[T]) PushFront(item T) {
	if r.size == len(r.items) {
		r.grow()
	}
	r.head = r.mask(r.head - 1 + len(r.items))
	r.items[r.head] = item
	r.size++
	r.recordPush()
}

// PopFront removes and returns the front item.
func (r *Ring[T]) PopFront() (T, bool) {
	var zero T
	if r.size == 0 {
		return zero, false
	}

	item := r.items[r.head]
	r.items[r.head] = zero // Clear for GC
	r.head = r.mask(r.head + 1)
	r.size--

	r.stats.Pop()
	r.stats.UpdateSize(int64(r.size))
	if r.metrics != nil {
		r.metrics.recordPop(r.size)
	}
	return item, true
}

// PeekFront returns the front item without removing it.
func (r *Ring[T]) PeekFront() (T, bool) {
	var zero T
	if r.size == 0 {
		return zero, false
	}
	return r.items[r.head], true
}

// Len returns the number of queued items.
func (r *Ring[T]) Len() int {
	return r.size
}

// Capacity returns the number of items the ring holds before growing.
func (r *Ring[T]) Capacity() int {
	return len(r.items)
}

// IsEmpty returns true if the ring holds no items.
func (r *Ring[T]) IsEmpty() bool {
	return r.size == 0
}

// Drain removes and returns all items in FIFO order.
func (r *Ring[T]) Drain() []T {
	if r.size == 0 {
		return nil
	}
	out := make([]T, 0, r.size)
	for r.size > 0 {
		item, _ := r.PopFront()
		out = append(out, item)
	}
	return out
}

// Clear removes all items.
func (r *Ring[T]) Clear() {
	var zero T
	for i := 0; i < r.size; i++ {
		r.items[r.mask(r.head+i)] = zero
	}
	r.head = 0
	r.size = 0
	r.stats.UpdateSize(0)
	if r.metrics != nil {
		r.metrics.updateSize(0)
	}
}

// Stats returns the ring statistics.
func (r *Ring[T]) Stats() *Statistics {
	return r.stats
}

func (r *Ring[T]) recordPush() {
	r.stats.Push()
	r.stats.UpdateSize(int64(r.size))
	if r.metrics != nil {
		r.metrics.recordPush(r.size)
	}
}
