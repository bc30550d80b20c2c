package natsio

import (
	"github.com/c360/streamkit/loop"
	"github.com/c360/streamkit/stream"
)

// SubjectTarget publishes every written payload to one subject. Publishing
// and the flush that completes each write run on a goroutine.
type SubjectTarget struct {
	conn    Conn
	subject string
}

// NewSubjectTarget creates a target publishing to subject.
func NewSubjectTarget(conn Conn, subject string) *SubjectTarget {
	return &SubjectTarget{conn: conn, subject: subject}
}

// Publisher creates a writable stream publishing to subject.
func Publisher(lp *loop.Loop, conn Conn, subject string, opts ...stream.Option) *stream.TargetStream[[]byte] {
	opts = append([]stream.Option{stream.WithKind("nats-publish")}, opts...)
	return stream.NewTargetStream[[]byte](lp, NewSubjectTarget(conn, subject), opts...)
}

// WriteV implements stream.Target.
func (t *SubjectTarget) WriteV(brigade stream.Brigade[[]byte], yield func(error, int)) {
	payloads := brigade.Flatten()
	go func() {
		for i, data := range payloads {
			if err := t.conn.Publish(t.subject, data); err != nil {
				yield(err, i)
				return
			}
		}
		yield(t.conn.Flush(), len(payloads))
	}()
}

// CloseTarget implements stream.Target. The connection is owned by the caller
// and stays open.
func (t *SubjectTarget) CloseTarget() {}

// CanEnd implements stream.Target.
func (t *SubjectTarget) CanEnd() bool { return true }
