package stream

import (
	"github.com/c360/streamkit/errors"
	"github.com/c360/streamkit/loop"
)

// Target is an asynchronous consumer of brigades bound to a TargetStream.
//
// WriteV is called on the loop with at most one call outstanding. The target
// calls yield exactly once, from any goroutine, with the number of elements
// it accepted or an error. CanEnd is false for targets that must never be told
// no more data is coming, such as an interactive terminal.
type Target[T any] interface {
	WriteV(brigade Brigade[T], yield func(err error, written int))
	CloseTarget()
	CanEnd() bool
}

// TargetStream is a Writable draining into a Target. It retains the loop while
// a WriteV call is outstanding.
type TargetStream[T any] struct {
	*Writable[T]

	target  Target[T]
	pending *writeRequest
}

type writeRequest struct {
	released bool
}

type targetAdapter[T any] struct{ s *TargetStream[T] }

// NewTargetStream binds target to a new Writable.
func NewTargetStream[T any](lp *loop.Loop, target Target[T], opts ...Option) *TargetStream[T] {
	s := &TargetStream[T]{target: target}
	opts = append([]Option{WithKind("target")}, opts...)
	s.Writable = NewWritable[T](lp, targetAdapter[T]{s}, opts...)
	return s
}

// Target returns the bound target.
func (s *TargetStream[T]) Target() Target[T] { return s.target }

func (a targetAdapter[T]) PrimaryWriteV(brigade Brigade[T], done func(err error, written int)) {
	s := a.s
	req := &writeRequest{}
	s.pending = req
	s.lp.Retain()
	s.target.WriteV(brigade, func(err error, written int) {
		s.lp.Enqueue(func() {
			s.release(req)
			done(errors.WrapIO(err, "TargetStream", "WriteV", "write target"), written)
		})
	})
}

func (s *TargetStream[T]) release(req *writeRequest) {
	if req.released {
		return
	}
	req.released = true
	if s.pending == req {
		s.pending = nil
	}
	s.lp.Release()
}

func (a targetAdapter[T]) PrimaryClose() {
	s := a.s
	s.target.CloseTarget()
	if s.pending != nil {
		s.release(s.pending)
	}
}

func (a targetAdapter[T]) CanEnd() bool { return a.s.target.CanEnd() }
