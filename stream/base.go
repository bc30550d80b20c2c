package stream

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/c360/streamkit/errors"
	"github.com/c360/streamkit/loop"
	"github.com/c360/streamkit/metric"
)

// Stream is the identity every readable and writable side shares.
type Stream interface {
	ID() string
	Kind() string
	Loop() *loop.Loop
}

// base holds what both sides and the duplex have in common: identity,
// logging, the error channel, close and pipe notifications.
type base struct {
	lp      *loop.Loop
	id      string
	kind    string
	side    string
	logger  *slog.Logger
	metrics *metric.Metrics
	policy  UnhandledErrorPolicy

	keepAlive bool
	retained  bool

	errorL     listenerSet[func(error)]
	errorObs   listenerSet[func(error)]
	closeL     listenerSet[func()]
	pipeL      listenerSet[func(Stream)]
	unpipeL    listenerSet[func(Stream)]
	errorOwner func(error)

	closed    bool
	destroyed bool
}

func (b *base) init(lp *loop.Loop, side string, o options) {
	b.lp = lp
	b.id = uuid.NewString()
	b.kind = o.kind
	b.side = side
	b.policy = o.policy
	b.keepAlive = o.keepAlive

	b.metrics = o.metrics
	if b.metrics == nil {
		b.metrics = lp.Metrics()
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default().With("component", "stream")
	}
	b.logger = logger.With("stream_id", b.id, "kind", b.kind, "side", side)

	if b.keepAlive {
		b.retained = true
		lp.Retain()
	}
	b.metrics.RecordStreamOpened(side)
}

// ID returns the stream's unique identifier
func (b *base) ID() string { return b.id }

// Kind returns the stream's label
func (b *base) Kind() string { return b.kind }

// Loop returns the loop the stream runs on
func (b *base) Loop() *loop.Loop { return b.lp }

// Closed reports whether Close has been called
func (b *base) Closed() bool { return b.closed }

// OnError registers a listener for the stream's error channel. A stream with
// no error listener applies its UnhandledErrorPolicy.
func (b *base) OnError(fn func(error)) ListenerID {
	return b.errorL.add(fn, false)
}

// OnClose registers a listener called once when the stream closes.
func (b *base) OnClose(fn func()) ListenerID {
	return b.closeL.add(fn, true)
}

// OnPipe registers a listener called when a pipe to or from this stream starts.
func (b *base) OnPipe(fn func(peer Stream)) ListenerID {
	return b.pipeL.add(fn, false)
}

// OnUnpipe registers a listener called when a pipe is torn down.
func (b *base) OnUnpipe(fn func(peer Stream)) ListenerID {
	return b.unpipeL.add(fn, false)
}

func (b *base) off(id ListenerID) bool {
	return b.errorL.remove(id) || b.errorObs.remove(id) || b.closeL.remove(id) ||
		b.pipeL.remove(id) || b.unpipeL.remove(id)
}

// observeError registers an internal error observer. Observers see every
// error but do not count as handling it.
func (b *base) observeError(fn func(error)) ListenerID {
	return b.errorObs.add(fn, false)
}

func (b *base) notifyPipe(peer Stream) {
	b.lp.NextTick(func() {
		b.pipeL.emit(func(fn func(Stream)) { fn(peer) })
	})
}

func (b *base) notifyUnpipe(peer Stream) {
	b.lp.NextTick(func() {
		b.unpipeL.emit(func(fn func(Stream)) { fn(peer) })
	})
}

// emitError schedules delivery of err on the error channel.
func (b *base) emitError(err error) {
	b.lp.NextTick(func() { b.dispatchError(err) })
}

func (b *base) dispatchError(err error) {
	if b.errorOwner != nil {
		b.errorOwner(err)
		return
	}
	if b.destroyed {
		b.logger.Warn("Error on closed stream", "error", err)
		return
	}

	b.metrics.RecordStreamError(b.kind, errors.Classify(err).String())
	b.errorObs.emit(func(fn func(error)) { fn(err) })

	if b.errorL.len() > 0 {
		b.errorL.emit(func(fn func(error)) { fn(err) })
		return
	}

	switch b.policy {
	case LogOnly:
		b.logger.Warn("Unhandled stream error", "error", err)
	default:
		b.logger.Error("Unhandled stream error", "error", err)
		b.lp.Fail(err)
	}
}

// scheduleClose emits "close" on the next tick and then releases listeners.
func (b *base) scheduleClose(after func()) {
	b.metrics.RecordStreamClosed(b.side)
	if b.retained {
		b.retained = false
		b.lp.Release()
	}
	b.lp.NextTick(func() {
		b.closeL.emit(callVoid)
		if after != nil {
			after()
		}
		b.destroy()
	})
}

func (b *base) destroy() {
	b.destroyed = true
	b.errorL.clear()
	b.errorObs.clear()
	b.closeL.clear()
	b.pipeL.clear()
	b.unpipeL.clear()
}
