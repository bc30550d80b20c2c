package buffer

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/streamkit/metric"
)

func TestRing_FIFO(t *testing.T) {
	r := MustRing[string](2)

	r.PushBack("first")
	r.PushBack("second")
	r.PushBack("third")
	assert.Equal(t, 3, r.Len())

	front, ok := r.PeekFront()
	require.True(t, ok)
	assert.Equal(t, "first", front)
	assert.Equal(t, 3, r.Len(), "peek must not consume")

	assert.Equal(t, []string{"first", "second", "third"}, r.Drain())
	assert.True(t, r.IsEmpty())

	_, ok = r.PopFront()
	assert.False(t, ok)
}

func TestRing_PushFront(t *testing.T) {
	r := MustRing[int](0)

	r.PushBack(2)
	r.PushBack(3)
	r.PushFront(1)
	r.PushFront(0)

	assert.Equal(t, []int{0, 1, 2, 3}, r.Drain())
}

func TestRing_GrowPreservesOrderAcrossWrap(t *testing.T) {
	r := MustRing[int](minCapacity)

	// Advance head so the contents wrap around the end of the slice.
	for i := 0; i < 5; i++ {
		r.PushBack(-1)
	}
	for i := 0; i < 5; i++ {
		_, _ = r.PopFront()
	}

	for i := 0; i < minCapacity*3; i++ {
		r.PushBack(i)
	}
	r.PushFront(-1)

	assert.Equal(t, roundUp(minCapacity*3+1), r.Capacity())
	assert.Positive(t, r.Stats().Grows())

	got := r.Drain()
	require.Len(t, got, minCapacity*3+1)
	for i, v := range got {
		assert.Equal(t, i-1, v)
	}
}

func TestRing_ClearAndStats(t *testing.T) {
	r := MustRing[int](4)
	for i := 0; i < 6; i++ {
		r.PushBack(i)
	}
	_, _ = r.PopFront()
	r.Clear()

	summary := r.Stats().Summary()
	assert.Equal(t, int64(6), summary.Pushes)
	assert.Equal(t, int64(1), summary.Pops)
	assert.Equal(t, int64(6), summary.MaxSize)
	assert.Equal(t, int64(0), summary.CurrentSize)
	assert.True(t, r.IsEmpty())
}

func TestRing_WithMetrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()

	r, err := NewRing[int](4, WithMetrics(registry, "loop_queue"))
	require.NoError(t, err)

	r.PushBack(1)
	r.PushBack(2)
	_, _ = r.PopFront()

	assert.Equal(t, 2.0, testutil.ToFloat64(r.metrics.pushes))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.metrics.pops))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.metrics.size))

	_, err = NewRing[int](4, WithMetrics(registry, "loop_queue"))
	assert.Error(t, err, "duplicate prefix must fail registration")
}

func TestRing_WithMetricsIgnoresNilRegistry(t *testing.T) {
	r, err := NewRing[int](4, WithMetrics(nil, "x"))
	require.NoError(t, err)
	assert.Nil(t, r.metrics)
}
