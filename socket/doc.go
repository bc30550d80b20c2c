// Package socket exposes TCP connections as byte duplex streams.
//
// A Socket is a stream.Duplex[byte, byte] over a net.Conn. Reads and writes run
// on goroutines, one of each at a time, and post their results to the loop.
// Writes are vectored: a whole brigade goes out in one net.Buffers write.
//
// The two sides close independently. Ending the write side sends FIN (TCP
// CloseWrite); closing the read side shuts down reading. The connection is
// closed once both sides are closed.
//
// Connect dials asynchronously; ConnectWithRetry adds exponential backoff via
// pkg/retry. Listen starts a Server that hands each accepted connection to a
// callback on the loop:
//
//	srv, err := socket.Listen(lp, "127.0.0.1:7000", func(s *socket.Socket) {
//		stream.Pipe[byte](s, s) // echo
//	})
package socket
