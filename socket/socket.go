package socket

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/c360/streamkit/errors"
	"github.com/c360/streamkit/loop"
	"github.com/c360/streamkit/metric"
	"github.com/c360/streamkit/pkg/retry"
	"github.com/c360/streamkit/stream"
)

// readChunkSize bounds a single read from the connection.
const readChunkSize = 64 * 1024

// Socket is a TCP connection exposed as a byte duplex.
type Socket struct {
	*stream.Duplex[byte, byte]

	lp      *loop.Loop
	conn    net.Conn
	logger  *slog.Logger
	metrics *metric.Metrics

	readClosed  bool
	writeClosed bool
	connClosed  bool

	idleTimeout time.Duration
	idleTimer   *loop.Timer
	onIdle      func()
}

type socketImpl struct{ s *Socket }

// NewSocket wraps an established connection. accepted marks server-side
// connections for the metrics.
func NewSocket(lp *loop.Loop, conn net.Conn, accepted bool, opts ...Option) *Socket {
	o := applyOptions(opts)
	s := &Socket{lp: lp, conn: conn, metrics: o.metrics}
	if s.metrics == nil {
		s.metrics = lp.Metrics()
	}

	logger := o.logger
	if logger == nil {
		logger = lp.Logger()
	}
	s.logger = logger.With("component", "socket", "remote", conn.RemoteAddr().String())

	streamOpts := append([]stream.Option{
		stream.WithKind("socket"),
		stream.WithLogger(logger),
		stream.WithMetrics(s.metrics),
	}, o.streamOpts...)
	s.Duplex = stream.NewDuplex[byte, byte](lp, socketImpl{s}, streamOpts...)

	s.metrics.RecordConnectionOpened(accepted)
	s.logger.Debug("Socket opened", "local", conn.LocalAddr().String(), "accepted", accepted)
	return s
}

// Connect dials address on a goroutine and calls done on the loop with the
// connected socket.
func Connect(lp *loop.Loop, address string, done func(*Socket, error), opts ...Option) {
	o := applyOptions(opts)
	dialer := net.Dialer{Timeout: o.dialTimeout}
	dial(lp, opts, done, func() (net.Conn, error) {
		return dialer.Dial("tcp", address)
	})
}

// ConnectWithRetry is Connect with exponential backoff. Errors are retried
// while cfg.ShouldRetry allows it, so only transient failures such as a
// refused connection are retried. Cancelling ctx stops retrying.
func ConnectWithRetry(ctx context.Context, lp *loop.Loop, address string, cfg errors.RetryConfig, done func(*Socket, error), opts ...Option) {
	o := applyOptions(opts)
	dialer := net.Dialer{Timeout: o.dialTimeout}
	dial(lp, opts, done, func() (net.Conn, error) {
		return retry.DoWithResult(ctx, cfg.ToRetryConfig(), func() (net.Conn, error) {
			return dialer.DialContext(ctx, "tcp", address)
		})
	})
}

func dial(lp *loop.Loop, opts []Option, done func(*Socket, error), fn func() (net.Conn, error)) {
	lp.Retain()
	go func() {
		conn, err := fn()
		lp.Enqueue(func() {
			defer lp.Release()
			if err != nil {
				done(nil, errors.WrapIO(err, "socket", "Connect", "dial"))
				return
			}
			done(NewSocket(lp, conn, false, opts...), nil)
		})
	}()
}

// Address returns the local address.
func (s *Socket) Address() net.Addr { return s.conn.LocalAddr() }

// RemoteAddress returns the peer address.
func (s *Socket) RemoteAddress() net.Addr { return s.conn.RemoteAddr() }

// Conn returns the underlying connection.
func (s *Socket) Conn() net.Conn { return s.conn }

// SetTimeout calls fn after d without reads or writes completing. The timer
// restarts on every completed read or write. A zero d disables it. While
// armed the timer keeps the loop running.
func (s *Socket) SetTimeout(d time.Duration, fn func()) {
	s.idleTimeout = d
	s.onIdle = fn
	if d <= 0 || s.connClosed {
		s.stopIdle()
		return
	}
	if s.idleTimer == nil {
		s.idleTimer = s.lp.SetTimeout(d, s.fireIdle)
		return
	}
	s.idleTimer.Reset(d)
}

func (s *Socket) fireIdle() {
	s.logger.Debug("Socket idle", "timeout", s.idleTimeout)
	if s.onIdle != nil {
		s.onIdle()
	}
}

func (s *Socket) touch() {
	if s.idleTimer != nil && s.idleTimeout > 0 && !s.connClosed {
		s.idleTimer.Reset(s.idleTimeout)
	}
}

func (s *Socket) stopIdle() {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
}

func (i socketImpl) PrimaryRead(count int) {
	s := i.s
	buf := make([]byte, min(count, readChunkSize))
	s.lp.Retain()
	go func() {
		n, err := s.conn.Read(buf)
		s.lp.Enqueue(func() {
			defer s.lp.Release()
			s.afterRead(buf[:n:n], err)
		})
	}()
}

func (s *Socket) afterRead(data []byte, err error) {
	if len(data) > 0 {
		s.metrics.RecordBytesReceived(len(data))
		s.touch()
	}
	if s.readClosed {
		return
	}
	switch {
	case err == nil:
		s.Push(data)
	case stderrors.Is(err, io.EOF):
		if len(data) > 0 {
			s.Push(data)
		}
		s.Push(nil)
	default:
		if len(data) > 0 {
			s.Push(data)
		}
		s.Fail(errors.WrapIO(err, "socket", "PrimaryRead", "read connection"))
	}
}

// PrimaryPause is a no-op: reads only happen on demand.
func (i socketImpl) PrimaryPause() {}

func (i socketImpl) PrimaryWriteV(brigade stream.Brigade[byte], done func(err error, written int)) {
	s := i.s
	// WriteTo consumes the slices, so hand it a copy of the headers.
	bufs := make(net.Buffers, len(brigade))
	copy(bufs, brigade)
	s.lp.Retain()
	go func() {
		n, err := bufs.WriteTo(s.conn)
		s.lp.Enqueue(func() {
			defer s.lp.Release()
			if n > 0 {
				s.metrics.RecordBytesSent(int(n))
				s.touch()
			}
			done(errors.WrapIO(err, "socket", "PrimaryWriteV", "write connection"), int(n))
		})
	}()
}

func (i socketImpl) PrimaryCloseRead() {
	s := i.s
	s.readClosed = true
	if !s.writeClosed {
		if tcp, ok := s.conn.(interface{ CloseRead() error }); ok {
			if err := tcp.CloseRead(); err != nil {
				s.logger.Debug("CloseRead failed", "error", err)
			}
		} else if err := s.conn.SetReadDeadline(time.Now()); err != nil {
			// Without CloseRead an outstanding Read only returns on a deadline.
			s.logger.Debug("SetReadDeadline failed", "error", err)
		}
	}
	s.maybeCloseConn()
}

func (i socketImpl) PrimaryCloseWrite() {
	s := i.s
	s.writeClosed = true
	if !s.readClosed {
		if tcp, ok := s.conn.(interface{ CloseWrite() error }); ok {
			if err := tcp.CloseWrite(); err != nil {
				s.logger.Debug("CloseWrite failed", "error", err)
			}
		}
	}
	s.maybeCloseConn()
}

func (i socketImpl) CanEnd() bool { return true }

func (s *Socket) maybeCloseConn() {
	if !s.readClosed || !s.writeClosed || s.connClosed {
		return
	}
	s.connClosed = true
	s.stopIdle()
	if err := s.conn.Close(); err != nil {
		s.logger.Debug("Close failed", "error", err)
	}
	s.metrics.RecordConnectionClosed()
	s.logger.Debug("Socket closed")
}
