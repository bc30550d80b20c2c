package testutil

// TestChunks contains byte buckets for byte-stream tests.
var TestChunks = [][]byte{
	[]byte("first chunk\n"),
	[]byte("second chunk\n"),
	[]byte("third chunk\n"),
	[]byte("fourth chunk\n"),
	[]byte("final chunk\n"),
}

// TestLines contains plain text lines for testing.
var TestLines = []string{
	"This is a test message",
	"Another test message",
	"Yet another test message",
	"One more test message",
	"Final test message",
}

// TestBinaryData contains test binary data patterns.
var TestBinaryData = [][]byte{
	{0x01, 0x02, 0x03, 0x04, 0x05},
	{0x0A, 0x0B, 0x0C, 0x0D, 0x0E},
	{0xFF, 0xFE, 0xFD, 0xFC, 0xFB},
}

// TestMessages contains generic JSON messages for message-stream tests.
var TestMessages = []string{
	`{"id": 1, "value": "foo", "timestamp": 1234567890, "count": 42}`,
	`{"id": 2, "value": "bar", "timestamp": 1234567891, "count": 43}`,
	`{"id": 3, "value": "baz", "timestamp": 1234567892, "count": 44}`,
}

// Joined concatenates chunks into one slice.
func Joined(chunks [][]byte) []byte {
	var out []byte
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

// Sequence returns the integers [0, n).
func Sequence(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
