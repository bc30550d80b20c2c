package stream

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/streamkit/errors"
	"github.com/c360/streamkit/testutil"
)

func TestPipe_SliceToCollect(t *testing.T) {
	lp := newLoop(t)
	src := FromSlice(lp, testutil.Sequence(100))
	dst, target := NewCollectStream[int](lp)

	p := Pipe[int](src, dst)
	run(t, lp)

	assert.Equal(t, testutil.Sequence(100), target.Items())
	assert.True(t, dst.Finished())
	assert.True(t, target.Closed())
	assert.True(t, src.Closed())
	assert.False(t, p.Active())
}

func TestPipe_Backpressure(t *testing.T) {
	lp := newLoop(t)
	src := NewSourceStream[int](lp, NewSliceSource(testutil.Sequence(50), 3))
	dst, target := NewCollectStream[int](lp, WithHighWaterMark(4))
	target.Limits = []int{1, 1, 2, 1}

	drains := 0
	dst.OnDrain(func() { drains++ })
	Pipe[int](src, dst)
	run(t, lp)

	assert.Equal(t, testutil.Sequence(50), target.Items())
	assert.Positive(t, drains)
	assert.True(t, dst.Finished())
}

func TestPipe_Notifications(t *testing.T) {
	lp := newLoop(t)
	src := FromSlice(lp, []string{"a", "b"})
	dst, _ := NewCollectStream[string](lp)

	var srcPeers, dstPeers, unpipes []string
	src.OnPipe(func(peer Stream) { srcPeers = append(srcPeers, peer.ID()) })
	dst.OnPipe(func(peer Stream) { dstPeers = append(dstPeers, peer.ID()) })
	src.OnUnpipe(func(peer Stream) { unpipes = append(unpipes, "src:"+peer.Kind()) })
	dst.OnUnpipe(func(peer Stream) { unpipes = append(unpipes, "dst:"+peer.Kind()) })

	Pipe[string](src, dst)
	run(t, lp)

	assert.Equal(t, []string{dst.ID()}, srcPeers)
	assert.Equal(t, []string{src.ID()}, dstPeers)
	assert.ElementsMatch(t, []string{"src:target", "dst:source"}, unpipes)
}

func TestPipe_WithoutEnd(t *testing.T) {
	lp := newLoop(t)
	src := FromSlice(lp, testutil.Sequence(3))
	dst, target := NewCollectStream[int](lp)

	p := Pipe[int](src, dst, WithEnd(false))
	run(t, lp)

	assert.Equal(t, testutil.Sequence(3), target.Items())
	assert.False(t, dst.Ended())
	assert.False(t, target.Closed())
	assert.False(t, p.Active())
}

func TestPipe_SourceErrorUnpipes(t *testing.T) {
	lp := newLoop(t)
	boom := stderrors.New("connection reset")
	calls := 0
	src := NewSourceStream[int](lp, NewFuncSource(func(int) ([]int, error) {
		calls++
		if calls == 1 {
			return []int{1, 2}, nil
		}
		return nil, boom
	}))
	rec := &errorRecorder{}
	src.OnError(rec.record)
	dst, target := NewCollectStream[int](lp)

	p := Pipe[int](src, dst)
	run(t, lp)

	require.Len(t, rec.errs, 1)
	assert.ErrorIs(t, rec.errs[0], boom)
	assert.True(t, errors.IsTransient(rec.errs[0]))
	assert.False(t, p.Active())
	assert.Equal(t, []int{1, 2}, target.Items())
	assert.False(t, dst.Ended())
}

func TestPipe_UnpipeStopsFlow(t *testing.T) {
	lp := newLoop(t)
	src := FromSlice(lp, testutil.Sequence(10))
	dst, target := NewCollectStream[int](lp)

	p := Pipe[int](src, dst)
	p.Unpipe()
	p.Unpipe()
	run(t, lp)

	assert.Empty(t, target.Items())
	assert.False(t, dst.Ended())
	assert.Equal(t, 10, src.Buffered())
}
