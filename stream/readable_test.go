package stream

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "github.com/c360/streamkit/errors"
	"github.com/c360/streamkit/testutil"
)

func TestReadable_EndToEndScenario(t *testing.T) {
	lp := newLoop(t)
	r := NewReadable[int](lp, &testProducer{})

	ended := 0
	r.OnEnd(func() { ended++ })

	r.Push([]int{1, 2, 3})
	r.Push([]int{4, 5})
	r.Push(nil)

	assert.Equal(t, []int{1, 2, 3, 4}, r.ReadN(4))
	assert.Equal(t, []int{5}, r.Read())
	assert.Nil(t, r.Read())
	assert.True(t, r.HitEOF())

	run(t, lp)
	assert.Equal(t, 1, ended)
	assert.Equal(t, ReadableEnded, r.State())
	assert.True(t, r.Closed(), "auto-closes after end")
}

func TestReadable_ReadNWaitsForEnoughData(t *testing.T) {
	lp := newLoop(t)
	r := NewReadable[int](lp, &testProducer{})

	r.Push([]int{1, 2})
	assert.Nil(t, r.ReadN(3), "not enough data and no EOF")
	assert.Equal(t, 2, r.Buffered())

	r.Push([]int{3})
	assert.Equal(t, []int{1, 2, 3}, r.ReadN(3))

	r.Push([]int{4})
	r.Push(nil)
	assert.Equal(t, []int{4}, r.ReadN(3), "EOF returns the remainder")
	assert.Nil(t, r.ReadN(3))
}

func TestReadable_EOFExactlyOnce(t *testing.T) {
	lp := newLoop(t)
	r := NewReadable[int](lp, &testProducer{})

	ended := 0
	rec := &errorRecorder{}
	r.OnEnd(func() { ended++ })
	r.OnError(rec.record)

	assert.False(t, r.Push(nil))
	assert.False(t, r.Push(nil))

	r.OnReadable(func() {
		assert.Nil(t, r.Read())
	})
	run(t, lp)

	assert.Equal(t, 1, ended)
	assert.Empty(t, rec.errs)
	assert.True(t, r.HitEOF())
}

func TestReadable_PushAfterEOFIsContractViolation(t *testing.T) {
	lp := newLoop(t)
	r := NewReadable[int](lp, &testProducer{})
	rec := &errorRecorder{}
	r.OnError(rec.record)

	r.Push(nil)
	assert.False(t, r.Push([]int{1}))
	run(t, lp)

	require.Len(t, rec.errs, 1)
	assert.ErrorIs(t, rec.errs[0], serrors.ErrPushAfterEOF)
	assert.True(t, serrors.IsContractViolation(rec.errs[0]))
	assert.True(t, serrors.IsInvalid(rec.errs[0]))
	assert.Equal(t, 0, r.Buffered())
}

func TestReadable_HighWaterMarkAutoRaise(t *testing.T) {
	lp := newLoop(t)
	r := NewReadable[int](lp, &testProducer{}, WithHighWaterMark(16))
	r.Push(testutil.Sequence(10))

	assert.Equal(t, 6, r.AvailableSpace())
	assert.Nil(t, r.ReadN(100))
	assert.Equal(t, 128, r.HighWaterMark())
	assert.Equal(t, 118, r.AvailableSpace())

	r.ReadN(MaxHighWaterMark + 1)
	assert.Equal(t, MaxHighWaterMark, r.HighWaterMark())
}

func TestReadable_StartsPausedAndFirstListenerResumes(t *testing.T) {
	lp := newLoop(t)
	p := &testProducer{}
	r := NewReadable[int](lp, p)

	assert.Equal(t, ReadablePaused, r.State())
	assert.Equal(t, 1, r.PauseDepth())
	run(t, lp)
	assert.Empty(t, p.reads, "nothing happens before a consumer registers")

	r.OnReadable(func() {})
	assert.Equal(t, 0, r.PauseDepth())
	run(t, lp)
	assert.Equal(t, []int{DefaultHighWaterMark}, p.reads)
	assert.Equal(t, ReadableGenerating, r.State())
}

func TestReadable_PauseNests(t *testing.T) {
	lp := newLoop(t)
	p := &testProducer{}
	r := NewReadable[int](lp, p)
	r.OnReadable(func() {})

	r.Pause()
	r.Pause()
	assert.Equal(t, 1, p.pauses, "only the first pause reaches the producer")
	assert.Equal(t, 2, r.PauseDepth())
	run(t, lp)
	assert.Empty(t, p.reads)

	r.Resume()
	run(t, lp)
	assert.Empty(t, p.reads, "one pause still outstanding")

	r.Resume()
	run(t, lp)
	assert.Len(t, p.reads, 1)

	r.Resume()
	assert.Equal(t, 0, r.PauseDepth(), "extra resume is ignored")
}

func TestReadable_ReadableSuppressedWhilePaused(t *testing.T) {
	lp := newLoop(t)
	r := NewReadable[int](lp, &testProducer{})

	readable := 0
	r.OnReadable(func() { readable++ })
	run(t, lp)

	r.Pause()
	r.Push([]int{1})
	run(t, lp)
	assert.Equal(t, 0, readable)

	r.Resume()
	run(t, lp)
	assert.Equal(t, 1, readable)
	assert.Equal(t, []int{1}, r.Read())
}

func TestReadable_UnshiftDoesNotSignal(t *testing.T) {
	lp := newLoop(t)
	r := NewReadable[int](lp, &testProducer{})

	readable := 0
	r.OnReadable(func() { readable++ })
	run(t, lp)

	r.Unshift([]int{9})
	run(t, lp)
	assert.Equal(t, 0, readable)

	r.Push([]int{10})
	r.Unshift([]int{8})
	run(t, lp)
	assert.Equal(t, 1, readable)
	assert.Equal(t, []int{8, 9, 10}, r.Read())
}

func TestReadable_BackpressureStopsGeneration(t *testing.T) {
	lp := newLoop(t)
	src := NewSliceSource(testutil.Sequence(100), 0)
	s := NewSourceStream[int](lp, src, WithHighWaterMark(10))

	s.OnReadable(func() {})
	run(t, lp)
	assert.Equal(t, 10, s.Buffered())
	assert.Equal(t, 0, s.AvailableSpace())
	assert.Equal(t, 90, src.Remaining())

	assert.Equal(t, []int{0, 1, 2, 3}, s.ReadN(4))
	run(t, lp)
	assert.Equal(t, 10, s.Buffered(), "refilled to the high-water-mark")
	assert.Equal(t, 86, src.Remaining())
}

func TestReadable_FailKeepsBufferedData(t *testing.T) {
	lp := newLoop(t)
	p := &testProducer{}
	r := NewReadable[int](lp, p)
	rec := &errorRecorder{}
	r.OnError(rec.record)

	boom := errors.New("boom")
	r.Push([]int{1, 2})
	r.Fail(boom)
	run(t, lp)

	require.Len(t, rec.errs, 1)
	assert.ErrorIs(t, rec.errs[0], boom)
	assert.Equal(t, boom, r.Err())
	assert.Equal(t, []int{1, 2}, r.Read())

	r.Resume()
	run(t, lp)
	assert.Empty(t, p.reads, "generation stopped")
}

func TestReadable_UnhandledErrorFailsLoop(t *testing.T) {
	lp := newLoop(t)
	r := NewReadable[int](lp, &testProducer{})

	boom := errors.New("boom")
	r.Fail(boom)

	err := testutil.RunLoopExpectError(t, lp)
	assert.ErrorIs(t, err, boom)
}

func TestReadable_UnhandledErrorLogOnly(t *testing.T) {
	lp := newLoop(t)
	r := NewReadable[int](lp, &testProducer{}, WithUnhandledErrorPolicy(LogOnly))

	r.Fail(errors.New("boom"))
	run(t, lp)
	assert.Error(t, r.Err())
}

func TestReadable_CloseWhileReadInFlight(t *testing.T) {
	lp := newLoop(t)
	src := testutil.NewManualSource[int]()
	s := NewSourceStream[int](lp, src)

	closed := 0
	rec := &errorRecorder{}
	s.OnClose(func() { closed++ })
	s.OnError(rec.record)
	s.OnReadable(func() {})

	// The read request is issued on the first tick; close on the second.
	lp.Enqueue(func() {
		assert.True(t, src.Pending())
		s.Close()
	})
	run(t, lp)

	assert.Equal(t, 1, closed)
	assert.Equal(t, 1, src.Closes)
	assert.Equal(t, 0, lp.Stats().Retained)

	require.NoError(t, src.Yield([]int{1}))
	run(t, lp)
	assert.Equal(t, 0, s.Buffered(), "late data is dropped")
	assert.Empty(t, rec.errs)
	assert.Equal(t, 0, s.readableL.len(), "listeners released")

	s.Close()
	run(t, lp)
	assert.Equal(t, 1, closed)
}

func TestReadable_ListenerAddedDuringDispatchWaits(t *testing.T) {
	lp := newLoop(t)
	r := NewReadable[int](lp, &testProducer{})

	calls, late := 0, 0
	added := false
	r.OnReadable(func() {
		calls++
		if !added {
			added = true
			r.OnReadable(func() { late++ })
		}
	})

	r.Push([]int{1})
	run(t, lp)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, late)

	r.Push([]int{2})
	run(t, lp)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, late)
}

func TestReadable_OffAndOnce(t *testing.T) {
	lp := newLoop(t)
	r := NewReadable[int](lp, &testProducer{})

	once, many := 0, 0
	r.OnceReadable(func() { once++ })
	id := r.OnReadable(func() { many++ })

	r.Push([]int{1})
	run(t, lp)
	r.Off(id)
	r.Push([]int{2})
	run(t, lp)

	assert.Equal(t, 1, once)
	assert.Equal(t, 1, many)
}

func TestReadableState_String(t *testing.T) {
	assert.Equal(t, "idle", ReadableIdle.String())
	assert.Equal(t, "hit-eof", ReadableHitEOF.String())
	assert.Equal(t, "ended", ReadableEnded.String())
	assert.Equal(t, "unknown", ReadableState(42).String())
}
