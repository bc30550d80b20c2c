package resp

import (
	"strconv"
	"strings"
)

// Kind is the RESP type marker.
type Kind byte

// RESP2 types.
const (
	SimpleString Kind = '+'
	Error        Kind = '-'
	Integer      Kind = ':'
	BulkString   Kind = '$'
	Array        Kind = '*'
)

// String returns the type name
func (k Kind) String() string {
	switch k {
	case SimpleString:
		return "simple-string"
	case Error:
		return "error"
	case Integer:
		return "integer"
	case BulkString:
		return "bulk-string"
	case Array:
		return "array"
	default:
		return "unknown"
	}
}

// Value is one decoded RESP value. Null marks the null bulk string and the
// null array.
type Value struct {
	Kind  Kind
	Str   string
	Int   int64
	Array []Value
	Null  bool
}

// String renders the value the way redis-cli prints replies.
func (v Value) String() string {
	var b strings.Builder
	v.format(&b, "")
	return b.String()
}

func (v Value) format(b *strings.Builder, indent string) {
	switch {
	case v.Null:
		b.WriteString("(nil)")
	case v.Kind == SimpleString:
		b.WriteString(v.Str)
	case v.Kind == Error:
		b.WriteString("(error) ")
		b.WriteString(v.Str)
	case v.Kind == Integer:
		b.WriteString("(integer) ")
		b.WriteString(strconv.FormatInt(v.Int, 10))
	case v.Kind == BulkString:
		b.WriteString(strconv.Quote(v.Str))
	case v.Kind == Array:
		if len(v.Array) == 0 {
			b.WriteString("(empty array)")
			return
		}
		for i, item := range v.Array {
			if i > 0 {
				b.WriteString("\n")
				b.WriteString(indent)
			}
			prefix := strconv.Itoa(i+1) + ") "
			b.WriteString(prefix)
			item.format(b, indent+strings.Repeat(" ", len(prefix)))
		}
	}
}

// EncodeCommand encodes a command as an array of bulk strings.
func EncodeCommand(args ...string) []byte {
	out := make([]byte, 0, 16*len(args)+16)
	out = append(out, '*')
	out = strconv.AppendInt(out, int64(len(args)), 10)
	out = append(out, '\r', '\n')
	for _, arg := range args {
		out = append(out, '$')
		out = strconv.AppendInt(out, int64(len(arg)), 10)
		out = append(out, '\r', '\n')
		out = append(out, arg...)
		out = append(out, '\r', '\n')
	}
	return out
}
