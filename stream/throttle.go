package stream

import (
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/c360/streamkit/errors"
	"github.com/c360/streamkit/loop"
)

// ThrottledSource rate-limits another source: every element yielded costs
// one token from the limiter. A read waits on a loop timer for its first
// token; the rest of the bucket is charged once the inner source has
// answered, so a short bucket only pays for what it carried.
type ThrottledSource[T any] struct {
	lp      *loop.Loop
	inner   Source[T]
	limiter *rate.Limiter
	timer   *loop.Timer
	closed  bool
}

// NewThrottledSource wraps inner with limiter.
func NewThrottledSource[T any](lp *loop.Loop, inner Source[T], limiter *rate.Limiter) *ThrottledSource[T] {
	return &ThrottledSource[T]{lp: lp, inner: inner, limiter: limiter}
}

// Throttle creates a stream over inner yielding at most limit elements per
// second with the given burst.
func Throttle[T any](lp *loop.Loop, inner Source[T], limit rate.Limit, burst int, opts ...Option) *SourceStream[T] {
	opts = append([]Option{WithKind("throttled")}, opts...)
	return NewSourceStream[T](lp, NewThrottledSource(lp, inner, rate.NewLimiter(limit, burst)), opts...)
}

// Next implements Source.
func (s *ThrottledSource[T]) Next(count int, yield func(error, []T)) {
	if s.closed {
		yield(nil, nil)
		return
	}
	if burst := s.limiter.Burst(); burst > 0 && s.limiter.Limit() != rate.Inf {
		count = min(count, burst)
	}

	r := s.limiter.Reserve()
	if !r.OK() {
		err := fmt.Errorf("%w: rate limit %v with burst %d admits no elements",
			errors.ErrInvalidConfig, s.limiter.Limit(), s.limiter.Burst())
		yield(errors.WrapInvalid(err, "ThrottledSource", "Next", "reserve token"), nil)
		return
	}

	charge := func(err error, bucket []T) {
		if extra := len(bucket) - 1; extra > 0 {
			s.limiter.ReserveN(time.Now(), extra)
		}
		yield(err, bucket)
	}

	delay := r.Delay()
	if delay <= 0 {
		s.inner.Next(count, charge)
		return
	}
	s.timer = s.lp.SetTimeout(delay, func() {
		s.timer = nil
		if s.closed {
			yield(nil, nil)
			return
		}
		s.inner.Next(count, charge)
	})
}

// Pause implements Source.
func (s *ThrottledSource[T]) Pause() { s.inner.Pause() }

// CloseSource implements Source.
func (s *ThrottledSource[T]) CloseSource() {
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.inner.CloseSource()
}
