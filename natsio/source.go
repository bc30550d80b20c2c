package natsio

import (
	"log/slog"

	"github.com/c360/streamkit/errors"
	"github.com/c360/streamkit/loop"
	"github.com/c360/streamkit/pkg/buffer"
	"github.com/c360/streamkit/stream"
)

// DefaultMaxPending bounds the messages a SubjectSource holds while the
// stream is not reading.
const DefaultMaxPending = 65536

// SubjectSource receives the messages of one subscription. Messages arriving
// while the stream does not read are kept, up to maxPending; beyond that the
// oldest are dropped.
type SubjectSource struct {
	lp          *loop.Loop
	subject     string
	unsubscribe func() error
	logger      *slog.Logger

	pending    *buffer.Ring[Message]
	maxPending int
	dropped    int

	waitCount int
	waiting   func(error, []Message)
	closed    bool
}

// NewSubjectSource subscribes to subject. maxPending <= 0 uses
// DefaultMaxPending.
func NewSubjectSource(lp *loop.Loop, conn Conn, subject string, maxPending int) (*SubjectSource, error) {
	if maxPending <= 0 {
		maxPending = DefaultMaxPending
	}
	s := &SubjectSource{
		lp:         lp,
		subject:    subject,
		logger:     lp.Logger().With("component", "natsio", "subject", subject),
		pending:    buffer.MustRing[Message](64),
		maxPending: maxPending,
	}

	unsubscribe, err := conn.Subscribe(subject, func(subject string, data []byte) {
		msg := Message{Subject: subject, Data: data}
		lp.Enqueue(func() { s.deliver(msg) })
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "natsio", "NewSubjectSource", "subscribe")
	}
	s.unsubscribe = unsubscribe
	return s, nil
}

// Subscribe creates a readable stream of the messages on subject.
func Subscribe(lp *loop.Loop, conn Conn, subject string, opts ...stream.Option) (*stream.SourceStream[Message], error) {
	src, err := NewSubjectSource(lp, conn, subject, 0)
	if err != nil {
		return nil, err
	}
	opts = append([]stream.Option{stream.WithKind("nats-subscribe")}, opts...)
	return stream.NewSourceStream[Message](lp, src, opts...), nil
}

func (s *SubjectSource) deliver(msg Message) {
	if s.closed {
		return
	}
	s.pending.PushBack(msg)
	if s.pending.Len() > s.maxPending {
		s.pending.PopFront()
		s.dropped++
		if s.dropped == 1 || s.dropped%1000 == 0 {
			s.logger.Warn("Dropping messages, reader too slow", "dropped", s.dropped, "max_pending", s.maxPending)
		}
	}
	if s.waiting != nil {
		yield, count := s.waiting, s.waitCount
		s.waiting = nil
		yield(nil, s.take(count))
	}
}

func (s *SubjectSource) take(count int) []Message {
	if count >= s.pending.Len() {
		return s.pending.Drain()
	}
	out := make([]Message, count)
	for i := range out {
		out[i], _ = s.pending.PopFront()
	}
	return out
}

// Next implements stream.Source.
func (s *SubjectSource) Next(count int, yield func(error, []Message)) {
	if s.closed {
		yield(nil, nil)
		return
	}
	if !s.pending.IsEmpty() {
		yield(nil, s.take(count))
		return
	}
	s.waitCount = count
	s.waiting = yield
}

// Pause implements stream.Source. Messages keep arriving and are held.
func (s *SubjectSource) Pause() {}

// CloseSource unsubscribes and drops held messages.
func (s *SubjectSource) CloseSource() {
	if s.closed {
		return
	}
	s.closed = true
	s.waiting = nil
	s.pending.Clear()
	if err := s.unsubscribe(); err != nil {
		s.logger.Debug("Unsubscribe failed", "error", err)
	}
}

// Pending returns the number of held messages.
func (s *SubjectSource) Pending() int { return s.pending.Len() }

// Dropped returns how many messages were discarded for lack of room.
func (s *SubjectSource) Dropped() int { return s.dropped }
