package resp

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"strconv"

	"github.com/c360/streamkit/errors"
	"github.com/c360/streamkit/loop"
	"github.com/c360/streamkit/stream"
)

// MaxBulkLength is the largest bulk string the decoder accepts.
const MaxBulkLength = 512 << 20

const maxLineLength = 64 * 1024

// ErrProtocol marks malformed RESP input.
var ErrProtocol = stderrors.New("resp protocol error")

// errIncomplete means more input is needed.
var errIncomplete = stderrors.New("incomplete")

// Parser decodes RESP values from a byte stream fed in arbitrary pieces.
type Parser struct {
	buf []byte
}

// Feed appends data and returns every value completed by it.
func (p *Parser) Feed(data []byte) ([]Value, error) {
	p.buf = append(p.buf, data...)

	var out []Value
	pos := 0
	for pos < len(p.buf) {
		v, next, err := parse(p.buf, pos)
		if stderrors.Is(err, errIncomplete) {
			break
		}
		if err != nil {
			p.buf = nil
			return out, err
		}
		out = append(out, v)
		pos = next
	}
	p.buf = append(p.buf[:0], p.buf[pos:]...)
	return out, nil
}

// Buffered returns the number of bytes waiting for the rest of a value.
func (p *Parser) Buffered() int { return len(p.buf) }

// NewDecoder returns a transform turning bytes into RESP values. Partial
// values are held until their remaining bytes arrive; malformed input fails
// the write side. Input ending in the middle of a value is an error too.
func NewDecoder(lp *loop.Loop, opts ...stream.Option) *stream.Transform[byte, Value] {
	p := &Parser{}
	opts = append([]stream.Option{stream.WithKind("resp-decoder")}, opts...)
	return stream.NewTransform[byte, Value](lp,
		func(in []byte, push func([]Value)) error {
			values, err := p.Feed(in)
			push(values)
			if err != nil {
				return errors.WrapInvalid(err, "resp", "Decode", "parse input")
			}
			return nil
		},
		func(func([]Value)) error {
			if p.Buffered() > 0 {
				return errors.WrapInvalid(fmt.Errorf("%w: %d bytes of truncated value", ErrProtocol, p.Buffered()),
					"resp", "Decode", "flush input")
			}
			return nil
		},
		opts...)
}

func parse(buf []byte, pos int) (Value, int, error) {
	line, next, err := readLine(buf, pos)
	if err != nil {
		return Value{}, 0, err
	}
	if len(line) == 0 {
		return Value{}, 0, fmt.Errorf("%w: empty line", ErrProtocol)
	}

	kind, body := Kind(line[0]), string(line[1:])
	switch kind {
	case SimpleString, Error:
		return Value{Kind: kind, Str: body}, next, nil

	case Integer:
		n, err := strconv.ParseInt(body, 10, 64)
		if err != nil {
			return Value{}, 0, fmt.Errorf("%w: bad integer %q", ErrProtocol, body)
		}
		return Value{Kind: Integer, Int: n}, next, nil

	case BulkString:
		n, err := parseLength(body)
		if err != nil {
			return Value{}, 0, err
		}
		if n < 0 {
			return Value{Kind: BulkString, Null: true}, next, nil
		}
		if n > MaxBulkLength {
			return Value{}, 0, fmt.Errorf("%w: bulk length %d too large", ErrProtocol, n)
		}
		end := next + n
		if len(buf) < end+2 {
			return Value{}, 0, errIncomplete
		}
		if buf[end] != '\r' || buf[end+1] != '\n' {
			return Value{}, 0, fmt.Errorf("%w: bulk string not terminated", ErrProtocol)
		}
		return Value{Kind: BulkString, Str: string(buf[next:end])}, end + 2, nil

	case Array:
		n, err := parseLength(body)
		if err != nil {
			return Value{}, 0, err
		}
		if n < 0 {
			return Value{Kind: Array, Null: true}, next, nil
		}
		items := make([]Value, 0, min(n, 1024))
		for range n {
			var item Value
			item, next, err = parse(buf, next)
			if err != nil {
				return Value{}, 0, err
			}
			items = append(items, item)
		}
		return Value{Kind: Array, Array: items}, next, nil

	default:
		return Value{}, 0, fmt.Errorf("%w: unknown type byte %q", ErrProtocol, line[0])
	}
}

func parseLength(body string) (int, error) {
	n, err := strconv.Atoi(body)
	if err != nil || n < -1 {
		return 0, fmt.Errorf("%w: bad length %q", ErrProtocol, body)
	}
	return n, nil
}

func readLine(buf []byte, pos int) ([]byte, int, error) {
	i := bytes.Index(buf[pos:], []byte("\r\n"))
	if i < 0 {
		if len(buf)-pos > maxLineLength {
			return nil, 0, fmt.Errorf("%w: line longer than %d bytes", ErrProtocol, maxLineLength)
		}
		return nil, 0, errIncomplete
	}
	return buf[pos : pos+i], pos + i + 2, nil
}
