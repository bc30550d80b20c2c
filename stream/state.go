package stream

// ReadableState describes where a readable side is in its lifecycle.
type ReadableState int

const (
	// ReadableIdle has room in its buffer and no read in flight
	ReadableIdle ReadableState = iota
	// ReadableGenerating has a producer read in flight
	ReadableGenerating
	// ReadablePaused was paused by its consumer (or has not been resumed yet)
	ReadablePaused
	// ReadableHitEOF received EOF but still holds buffered data
	ReadableHitEOF
	// ReadableEnded emitted "end"
	ReadableEnded
)

func (s ReadableState) String() string {
	switch s {
	case ReadableIdle:
		return "idle"
	case ReadableGenerating:
		return "generating"
	case ReadablePaused:
		return "paused"
	case ReadableHitEOF:
		return "hit-eof"
	case ReadableEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// WritableState describes where a writable side is in its lifecycle.
type WritableState int

const (
	// WritableIdle has nothing in flight
	WritableIdle WritableState = iota
	// WritableWriting has a consumer write in flight
	WritableWriting
	// WritableCorked is accumulating writes
	WritableCorked
	// WritableEndRequested had End called and is flushing
	WritableEndRequested
	// WritableFinished emitted "finish"
	WritableFinished
)

func (s WritableState) String() string {
	switch s {
	case WritableIdle:
		return "idle"
	case WritableWriting:
		return "writing"
	case WritableCorked:
		return "corked"
	case WritableEndRequested:
		return "end-requested"
	case WritableFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// UnhandledErrorPolicy decides what happens to a stream error nobody listens for.
type UnhandledErrorPolicy int

const (
	// FailLoop logs the error and ends the loop's Run with it
	FailLoop UnhandledErrorPolicy = iota
	// LogOnly logs the error and carries on
	LogOnly
)

func (p UnhandledErrorPolicy) String() string {
	switch p {
	case FailLoop:
		return "fail-loop"
	case LogOnly:
		return "log-only"
	default:
		return "unknown"
	}
}
