package stream

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/streamkit/testutil"
)

func passThrough(in []int, push func([]int)) error {
	push(in)
	return nil
}

func TestMap(t *testing.T) {
	lp := newLoop(t)
	m := Map[int, string](lp, strconv.Itoa)

	var got []string
	var gotErr error
	Concat[string](m, func(items []string, err error) {
		got, gotErr = items, err
	})
	Pipe[int](FromSlice(lp, []int{1, 2, 3}), m)
	run(t, lp)

	require.NoError(t, gotErr)
	assert.Equal(t, []string{"1", "2", "3"}, got)
	assert.True(t, m.Closed())
}

func TestTransform_FlushRunsBeforeEOF(t *testing.T) {
	lp := newLoop(t)
	sum := 0
	tr := NewTransform[int, int](lp,
		func(in []int, _ func([]int)) error {
			for _, v := range in {
				sum += v
			}
			return nil
		},
		func(push func([]int)) error {
			push([]int{sum})
			return nil
		})

	var got []int
	Concat[int](tr, func(items []int, _ error) { got = items })
	Pipe[int](FromSlice(lp, testutil.Sequence(5)), tr)
	run(t, lp)

	assert.Equal(t, []int{10}, got)
}

func TestTransform_BackpressureHoldsWrites(t *testing.T) {
	lp := newLoop(t)
	tr := Through[int](lp, passThrough, WithHighWaterMark(2))
	tr.OnReadable(func() {})

	done := 0
	for i := 0; i < 5; i++ {
		tr.Write([]int{i}, func() { done++ })
	}
	run(t, lp)
	assert.Equal(t, 1, done, "second write is held while the read side is full")
	assert.Equal(t, 2, tr.Readable().Buffered())

	var got []int
	for i := 0; i < 5 && len(got) < 5; i++ {
		got = append(got, tr.Read()...)
		run(t, lp)
	}
	assert.Equal(t, testutil.Sequence(5), got)
	assert.Equal(t, 5, done)
}

func TestTransform_ErrorFailsWriteSide(t *testing.T) {
	lp := newLoop(t)
	boom := errors.New("bad input")
	tr := Through[int](lp, func([]int, func([]int)) error { return boom })
	rec := &errorRecorder{}
	tr.OnError(rec.record)

	done := 0
	tr.Write([]int{1}, func() { done++ })
	run(t, lp)

	require.Len(t, rec.errs, 1)
	assert.ErrorIs(t, rec.errs[0], boom)
	assert.Equal(t, 0, done)
}
