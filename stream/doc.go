// Package stream is the stream engine: readable, writable and duplex streams
// with backpressure, running on a single-threaded loop.
//
// # Model
//
// Data moves in buckets ([]T). A Readable buffers buckets produced by a
// Producer and hands them out through Read/ReadN and the "readable" event.
// A Writable queues brigades (ordered groups of buckets) and feeds them one
// at a time to a Consumer, re-queueing whatever a partial write left over. A
// Duplex pairs one of each with a shared close lifecycle.
//
// Transports do not implement Producer/Consumer directly; they implement the
// Source and Target contracts and are bound with NewSourceStream and
// NewTargetStream:
//
//	src := stream.FromSlice(lp, []int{1, 2, 3})
//	dst, collected := stream.NewCollectStream[int](lp)
//	stream.Pipe[int](src, dst)
//	err := lp.Run(ctx)
//	// collected.Items() == []int{1, 2, 3}
//
// # Threading
//
// Streams are not safe for concurrent use. Every method must be called on the
// loop goroutine, and every event is delivered on a later tick, never inside
// the call that caused it. Sources and Targets may answer from any goroutine;
// their results are posted back to the loop.
//
// # Backpressure
//
// A Readable stops asking its producer for data once the buffer reaches the
// high-water-mark and resumes when a consumer reads. This automatic pause is
// separate from Pause/Resume, which nest. Writable.WriteV returns false once
// queued plus in-flight elements reach the high-water-mark; producers should
// then wait for "drain". Pipe wires both up.
//
// # Errors
//
// Each stream has one error channel (OnError). Source and Target errors stop
// the stream but keep buffered data. Misuse such as pushing after EOF or
// writing after End is reported on the same channel as an error wrapping
// errors.ErrContractViolation. An error with no listener follows the stream's
// UnhandledErrorPolicy; the default fails the loop.
package stream
