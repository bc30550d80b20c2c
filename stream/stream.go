package stream

// ReadableStream is the consumer-facing surface of anything readable:
// *Readable, *SourceStream, *Duplex and *Transform all satisfy it.
type ReadableStream[T any] interface {
	Stream
	Read() []T
	ReadN(n int) []T
	Pause()
	Resume()
	HitEOF() bool
	OnReadable(fn func()) ListenerID
	OnEnd(fn func()) ListenerID
	OnError(fn func(error)) ListenerID
	OnClose(fn func()) ListenerID
	Off(id ListenerID)

	observeError(fn func(error)) ListenerID
	notifyPipe(peer Stream)
	notifyUnpipe(peer Stream)
}

// WritableStream is the producer-facing surface of anything writable:
// *Writable, *TargetStream, *Duplex and *Transform all satisfy it.
type WritableStream[T any] interface {
	Stream
	WriteV(brigade Brigade[T], done func()) bool
	Write(bucket []T, done func()) bool
	End()
	OnDrain(fn func()) ListenerID
	OnFinish(fn func()) ListenerID
	OnError(fn func(error)) ListenerID
	OnClose(fn func()) ListenerID
	Off(id ListenerID)

	observeError(fn func(error)) ListenerID
	notifyPipe(peer Stream)
	notifyUnpipe(peer Stream)
}

var (
	_ ReadableStream[byte]   = (*Readable[byte])(nil)
	_ WritableStream[byte]   = (*Writable[byte])(nil)
	_ ReadableStream[byte]   = (*Duplex[byte, byte])(nil)
	_ WritableStream[byte]   = (*Duplex[byte, byte])(nil)
	_ ReadableStream[byte]   = (*SourceStream[byte])(nil)
	_ WritableStream[byte]   = (*TargetStream[byte])(nil)
	_ ReadableStream[int]    = (*Transform[string, int])(nil)
	_ WritableStream[string] = (*Transform[string, int])(nil)
)
