package fs

import (
	"os"
	"path/filepath"

	"github.com/c360/streamkit/errors"
	"github.com/c360/streamkit/loop"
	"github.com/c360/streamkit/stream"
)

// Mode selects how CreateWriteStream opens an existing file.
type Mode int

const (
	// Truncate empties an existing file.
	Truncate Mode = iota
	// Append writes after the existing content.
	Append
	// Exclusive fails if the file already exists.
	Exclusive
)

// String returns the mode name
func (m Mode) String() string {
	switch m {
	case Truncate:
		return "truncate"
	case Append:
		return "append"
	case Exclusive:
		return "exclusive"
	default:
		return "unknown"
	}
}

func (m Mode) flags() int {
	flags := os.O_CREATE | os.O_WRONLY
	switch m {
	case Append:
		flags |= os.O_APPEND
	case Exclusive:
		flags |= os.O_EXCL
	default:
		flags |= os.O_TRUNC
	}
	return flags
}

// FilePerm is the permission used for created files.
const FilePerm = 0o644

// CreateReadStream opens path for reading. The file is closed when the stream
// closes, which by default happens right after "end".
func CreateReadStream(lp *loop.Loop, path string, opts ...stream.Option) (*stream.SourceStream[byte], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapInvalid(err, "fs", "CreateReadStream", "open file")
	}
	opts = append([]stream.Option{stream.WithKind("file")}, opts...)
	return stream.NewSourceStream[byte](lp, stream.NewReaderSource(f, 0), opts...), nil
}

// CreateWriteStream opens path for writing, creating missing parent
// directories. The file is closed when the stream closes, which by default
// happens right after "finish".
func CreateWriteStream(lp *loop.Loop, path string, mode Mode, opts ...stream.Option) (*stream.TargetStream[byte], error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.WrapFatal(err, "fs", "CreateWriteStream", "create parent directory")
		}
	}
	f, err := os.OpenFile(path, mode.flags(), FilePerm)
	if err != nil {
		return nil, errors.WrapInvalid(err, "fs", "CreateWriteStream", "open file")
	}
	opts = append([]stream.Option{stream.WithKind("file")}, opts...)
	return stream.NewTargetStream[byte](lp, &fileTarget{WriterTarget: stream.NewWriterTarget(f), f: f}, opts...), nil
}

// fileTarget syncs the file before it is closed.
type fileTarget struct {
	*stream.WriterTarget
	f *os.File
}

func (t *fileTarget) CloseTarget() {
	_ = t.f.Sync()
	t.WriterTarget.CloseTarget()
}

// ReadFile reads the whole file and calls done on the loop.
func ReadFile(lp *loop.Loop, path string, done func(data []byte, err error)) {
	src, err := CreateReadStream(lp, path)
	if err != nil {
		lp.NextTick(func() { done(nil, err) })
		return
	}
	stream.Concat[byte](src, func(data []byte, err error) {
		if err != nil {
			src.Close()
			data = nil
		}
		done(data, err)
	})
}

// WriteFile replaces the file content with data and calls done on the loop
// once the data is on disk or writing failed.
func WriteFile(lp *loop.Loop, path string, data []byte, done func(err error)) {
	dst, err := CreateWriteStream(lp, path, Truncate)
	if err != nil {
		lp.NextTick(func() { done(err) })
		return
	}

	called := false
	finish := func(err error) {
		if called {
			return
		}
		called = true
		done(err)
	}
	dst.OnFinish(func() { finish(nil) })
	dst.OnError(func(err error) {
		dst.Close()
		finish(err)
	})
	dst.EndWith(data)
}
