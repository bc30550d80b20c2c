package stream

import (
	"github.com/c360/streamkit/errors"
	"github.com/c360/streamkit/loop"
)

// Source is an asynchronous generator of buckets bound to a SourceStream.
//
// Next is called on the loop, only when the stream has room, with at most one
// call outstanding. The source answers by calling yield exactly once, from any
// goroutine: yield(nil, bucket) with at most count items, yield(nil, nil) for
// EOF, or yield(err, nil) on failure.
type Source[T any] interface {
	Next(count int, yield func(err error, bucket []T))
	Pause()
	CloseSource()
}

// SourceStream is a Readable fed by a Source. It retains the loop while a Next
// call is outstanding.
type SourceStream[T any] struct {
	*Readable[T]

	source  Source[T]
	pending *readRequest
}

type readRequest struct {
	answered bool
}

type sourceAdapter[T any] struct{ s *SourceStream[T] }

// NewSourceStream binds source to a new paused Readable.
func NewSourceStream[T any](lp *loop.Loop, source Source[T], opts ...Option) *SourceStream[T] {
	s := &SourceStream[T]{source: source}
	opts = append([]Option{WithKind("source")}, opts...)
	s.Readable = NewReadable[T](lp, sourceAdapter[T]{s}, opts...)
	return s
}

// Source returns the bound source.
func (s *SourceStream[T]) Source() Source[T] { return s.source }

func (a sourceAdapter[T]) PrimaryRead(count int) {
	s := a.s
	req := &readRequest{}
	s.pending = req
	s.lp.Retain()
	s.source.Next(count, func(err error, bucket []T) {
		s.lp.Enqueue(func() { s.deliver(req, err, bucket) })
	})
}

func (s *SourceStream[T]) deliver(req *readRequest, err error, bucket []T) {
	if req.answered {
		if !s.closed {
			s.emitError(errors.WrapInvalid(errors.ErrReadCallbackReused, "SourceStream", "Next", "deliver bucket"))
		}
		return
	}
	req.answered = true

	if s.pending == req {
		s.pending = nil
		s.lp.Release()
	}
	if s.closed {
		return
	}
	if err != nil {
		s.Fail(errors.WrapIO(err, "SourceStream", "Next", "read source"))
		return
	}
	s.Push(bucket)
}

func (a sourceAdapter[T]) PrimaryPause() { a.s.source.Pause() }

func (a sourceAdapter[T]) PrimaryClose() {
	s := a.s
	s.source.CloseSource()
	if s.pending != nil {
		s.pending = nil
		s.lp.Release()
	}
}
