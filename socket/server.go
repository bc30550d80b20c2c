package socket

import (
	stderrors "errors"
	"log/slog"
	"net"
	"sync/atomic"

	"github.com/c360/streamkit/errors"
	"github.com/c360/streamkit/loop"
)

// Server accepts TCP connections and hands them to a callback on the loop.
// A listening server keeps the loop running until Close.
type Server struct {
	lp       *loop.Loop
	listener net.Listener
	onConn   func(*Socket)
	opts     []Option
	logger   *slog.Logger

	closing atomic.Bool
	closed  bool
	err     error
}

// Listen starts accepting connections on address.
func Listen(lp *loop.Loop, address string, onConn func(*Socket), opts ...Option) (*Server, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, errors.WrapInvalid(err, "socket", "Listen", "listen")
	}

	o := applyOptions(opts)
	logger := o.logger
	if logger == nil {
		logger = lp.Logger()
	}
	srv := &Server{
		lp:       lp,
		listener: listener,
		onConn:   onConn,
		opts:     opts,
		logger:   logger.With("component", "socket-server", "address", listener.Addr().String()),
	}

	lp.Retain()
	go srv.acceptLoop()
	srv.logger.Info("Server listening")
	return srv, nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closing.Load() || stderrors.Is(err, net.ErrClosed) {
				return
			}
			s.lp.Enqueue(func() { s.fail(err) })
			return
		}
		s.lp.Enqueue(func() {
			if s.closed {
				_ = conn.Close()
				return
			}
			s.onConn(NewSocket(s.lp, conn, true, s.opts...))
		})
	}
}

func (s *Server) fail(err error) {
	if s.closed {
		return
	}
	s.err = errors.WrapIO(err, "socket", "Accept", "accept connection")
	s.logger.Error("Server stopped accepting", "error", s.err)
	s.Close()
}

// Address returns the listening address.
func (s *Server) Address() net.Addr { return s.listener.Addr() }

// Err returns the error that stopped the server, if any.
func (s *Server) Err() error { return s.err }

// Close stops accepting. Established sockets are not affected.
func (s *Server) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.closing.Store(true)
	if err := s.listener.Close(); err != nil {
		s.logger.Debug("Listener close failed", "error", err)
	}
	s.lp.Release()
	s.logger.Info("Server closed")
}
