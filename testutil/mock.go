package testutil

import "errors"

// ManualSource is a stream Source whose reads are answered by the test.
// It must be used from the loop goroutine (or while the loop is not running).
type ManualSource[T any] struct {
	Requests []int
	Pauses   int
	Closes   int

	yield func(error, []T)
}

// NewManualSource creates a source with no outstanding request.
func NewManualSource[T any]() *ManualSource[T] {
	return &ManualSource[T]{}
}

// Next records the request and holds on to yield.
func (s *ManualSource[T]) Next(count int, yield func(error, []T)) {
	s.Requests = append(s.Requests, count)
	s.yield = yield
}

// Pause records the call.
func (s *ManualSource[T]) Pause() { s.Pauses++ }

// CloseSource records the call.
func (s *ManualSource[T]) CloseSource() { s.Closes++ }

// Pending reports whether a request is waiting for an answer.
func (s *ManualSource[T]) Pending() bool { return s.yield != nil }

// Yield answers the outstanding request with bucket.
func (s *ManualSource[T]) Yield(bucket []T) error {
	return s.answer(nil, bucket)
}

// YieldEOF answers the outstanding request with EOF.
func (s *ManualSource[T]) YieldEOF() error {
	return s.answer(nil, nil)
}

// YieldError answers the outstanding request with err.
func (s *ManualSource[T]) YieldError(err error) error {
	return s.answer(err, nil)
}

// ErrNoRequest is returned when answering without an outstanding request.
var ErrNoRequest = errors.New("no outstanding request")

func (s *ManualSource[T]) answer(err error, bucket []T) error {
	if s.yield == nil {
		return ErrNoRequest
	}
	yield := s.yield
	s.yield = nil
	yield(err, bucket)
	return nil
}
