package stream

import (
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/mattn/go-isatty"

	"github.com/c360/streamkit/loop"
)

// DefaultChunkSize bounds a single read from an io.Reader.
const DefaultChunkSize = 64 * 1024

// ReaderSource reads an io.Reader on a goroutine per Next call and yields the
// bytes back on the loop. io.EOF becomes stream EOF.
type ReaderSource struct {
	r         io.Reader
	chunkSize int
	eof       atomic.Bool
	closeOnce sync.Once
}

// NewReaderSource creates a source reading at most chunkSize bytes per Next.
func NewReaderSource(r io.Reader, chunkSize int) *ReaderSource {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &ReaderSource{r: r, chunkSize: chunkSize}
}

// FromReader creates a byte stream over r.
func FromReader(lp *loop.Loop, r io.Reader, opts ...Option) *SourceStream[byte] {
	opts = append([]Option{WithKind("reader")}, opts...)
	return NewSourceStream[byte](lp, NewReaderSource(r, 0), opts...)
}

// Next implements Source.
func (s *ReaderSource) Next(count int, yield func(error, []byte)) {
	if s.eof.Load() {
		yield(nil, nil)
		return
	}
	buf := make([]byte, min(count, s.chunkSize))
	go func() {
		for {
			n, err := s.r.Read(buf)
			if errors.Is(err, io.EOF) {
				s.eof.Store(true)
				err = nil
			}
			switch {
			case err != nil:
				yield(err, nil)
			case n > 0:
				yield(nil, buf[:n:n])
			case s.eof.Load():
				yield(nil, nil)
			default:
				// zero bytes without error: try again
				continue
			}
			return
		}
	}()
}

// Pause implements Source. Reads only happen on demand.
func (s *ReaderSource) Pause() {}

// CloseSource closes the reader if it is an io.Closer.
func (s *ReaderSource) CloseSource() {
	s.closeOnce.Do(func() {
		if c, ok := s.r.(io.Closer); ok {
			_ = c.Close()
		}
	})
}

// WriterTarget writes brigades to an io.Writer on a goroutine.
type WriterTarget struct {
	w         io.Writer
	canEnd    bool
	closeOnce sync.Once
	noClose   bool
}

// NewWriterTarget creates a target over w. w is closed with the target if it
// is an io.Closer.
func NewWriterTarget(w io.Writer) *WriterTarget {
	return &WriterTarget{w: w, canEnd: true}
}

// ToWriter creates a byte stream writing into w.
func ToWriter(lp *loop.Loop, w io.Writer, opts ...Option) *TargetStream[byte] {
	opts = append([]Option{WithKind("writer")}, opts...)
	return NewTargetStream[byte](lp, NewWriterTarget(w), opts...)
}

// NewStdoutTarget creates a stream writing to standard output. An interactive
// terminal cannot end, so "finish" never fires for it and stdout stays open.
func NewStdoutTarget(lp *loop.Loop, opts ...Option) *TargetStream[byte] {
	target := &WriterTarget{
		w:       os.Stdout,
		canEnd:  !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()),
		noClose: true,
	}
	opts = append([]Option{WithKind("stdout")}, opts...)
	return NewTargetStream[byte](lp, target, opts...)
}

// WriteV implements Target.
func (t *WriterTarget) WriteV(brigade Brigade[byte], yield func(error, int)) {
	go func() {
		written := 0
		for _, bucket := range brigade {
			n, err := t.w.Write(bucket)
			written += n
			if err != nil {
				yield(err, written)
				return
			}
		}
		yield(nil, written)
	}()
}

// CloseTarget implements Target.
func (t *WriterTarget) CloseTarget() {
	if t.noClose {
		return
	}
	t.closeOnce.Do(func() {
		if c, ok := t.w.(io.Closer); ok {
			_ = c.Close()
		}
	})
}

// CanEnd implements Target.
func (t *WriterTarget) CanEnd() bool { return t.canEnd }
