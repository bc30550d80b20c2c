package socket

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/streamkit/errors"
	"github.com/c360/streamkit/loop"
	"github.com/c360/streamkit/metric"
	"github.com/c360/streamkit/stream"
	streamtest "github.com/c360/streamkit/testutil"
)

func newEchoServer(t *testing.T, lp *loop.Loop, opts ...Option) *Server {
	t.Helper()
	srv, err := Listen(lp, "127.0.0.1:0", func(s *Socket) {
		stream.Pipe[byte](s, s)
	}, opts...)
	require.NoError(t, err)
	return srv
}

func TestSocket_Echo(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	metrics := registry.CoreMetrics()
	lp := streamtest.NewLoop(t, loop.WithMetrics(metrics))
	srv := newEchoServer(t, lp)

	message := strings.Join(streamtest.TestLines, "\n")
	var got []byte
	var gotErr error
	var client *Socket
	Connect(lp, srv.Address().String(), func(s *Socket, err error) {
		require.NoError(t, err)
		client = s
		stream.Concat[byte](s, func(data []byte, err error) {
			got, gotErr = data, err
			srv.Close()
		})
		s.EndWith([]byte(message))
	})
	streamtest.RunLoop(t, lp)

	require.NoError(t, gotErr)
	assert.Equal(t, message, string(got))
	require.NotNil(t, client)
	assert.True(t, client.ReadClosed())
	assert.True(t, client.WriteClosed())
	assert.Equal(t, srv.Address().String(), client.RemoteAddress().String())

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ConnectionsAccepted))
	assert.Equal(t, float64(2*len(message)), testutil.ToFloat64(metrics.BytesSent))
	assert.Equal(t, float64(2*len(message)), testutil.ToFloat64(metrics.BytesReceived))
}

func TestSocket_HalfClose(t *testing.T) {
	lp := streamtest.NewLoop(t)

	var serverGot []byte
	srv, err := Listen(lp, "127.0.0.1:0", func(s *Socket) {
		// Read the whole request, then answer on the still open write side.
		stream.Concat[byte](s, func(data []byte, err error) {
			require.NoError(t, err)
			serverGot = data
			assert.True(t, s.HitEOF())
			assert.False(t, s.WriteClosed())
			s.EndWith([]byte("ack"))
		})
	})
	require.NoError(t, err)

	var reply []byte
	Connect(lp, srv.Address().String(), func(s *Socket, err error) {
		require.NoError(t, err)
		stream.Concat[byte](s, func(data []byte, _ error) {
			reply = data
			srv.Close()
		})
		s.EndWith([]byte("request"))
	})
	streamtest.RunLoop(t, lp)

	assert.Equal(t, "request", string(serverGot))
	assert.Equal(t, "ack", string(reply))
}

func TestSocket_IdleTimeout(t *testing.T) {
	lp := streamtest.NewLoop(t)
	srv, err := Listen(lp, "127.0.0.1:0", func(s *Socket) {
		s.SetTimeout(30*time.Millisecond, s.Close)
	})
	require.NoError(t, err)

	idle := false
	Connect(lp, srv.Address().String(), func(s *Socket, err error) {
		require.NoError(t, err)
		s.OnEnd(func() {
			s.Close()
			srv.Close()
		})
		s.OnReadable(func() { s.Read() })
		s.SetTimeout(time.Second, func() { idle = true })
	})

	start := time.Now()
	streamtest.RunLoop(t, lp)

	assert.False(t, idle, "server closes first and the client timer stops on close")
	assert.Less(t, time.Since(start), time.Second)
}

func TestConnect_Refused(t *testing.T) {
	lp := streamtest.NewLoop(t)
	address := closedPort(t)

	var gotErr error
	Connect(lp, address, func(s *Socket, err error) {
		assert.Nil(t, s)
		gotErr = err
	})
	streamtest.RunLoop(t, lp)

	require.Error(t, gotErr)
	assert.True(t, errors.IsTransient(gotErr))
}

func TestSocket_CloseReadUnblocksPendingRead(t *testing.T) {
	lp := streamtest.NewLoop(t)
	local, remote := net.Pipe()
	t.Cleanup(func() {
		_ = local.Close()
		_ = remote.Close()
	})

	s := NewSocket(lp, local, false)
	s.OnReadable(func() {})
	lp.SetTimeout(20*time.Millisecond, s.CloseRead)
	streamtest.RunLoop(t, lp)

	assert.True(t, s.ReadClosed())
	assert.False(t, s.WriteClosed())
	assert.NoError(t, s.Readable().Err())
}

func TestConnectWithRetry(t *testing.T) {
	lp := streamtest.NewLoop(t)
	address := closedPort(t)
	cfg := errors.RetryConfig{MaxRetries: 2, InitialDelay: 5 * time.Millisecond, MaxDelay: 20 * time.Millisecond, BackoffFactor: 2}

	attempts := 0
	var gotErr error
	ConnectWithRetry(context.Background(), lp, address, cfg, func(_ *Socket, err error) {
		attempts++
		gotErr = err
	})
	streamtest.RunLoop(t, lp)

	assert.Equal(t, 1, attempts)
	require.Error(t, gotErr)
	assert.Contains(t, gotErr.Error(), "after 3 attempts")

	// A live listener connects on the first attempt.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			_ = conn.Close()
		}
	}()

	var connected *Socket
	ConnectWithRetry(context.Background(), lp, ln.Addr().String(), cfg, func(s *Socket, err error) {
		require.NoError(t, err)
		connected = s
		s.Close()
	})
	streamtest.RunLoop(t, lp)
	require.NotNil(t, connected)
}

func TestServer_CloseReleasesLoop(t *testing.T) {
	lp := streamtest.NewLoop(t)
	srv := newEchoServer(t, lp)
	lp.NextTick(srv.Close)
	streamtest.RunLoop(t, lp)

	srv.Close()
	assert.NoError(t, srv.Err())
}

func TestListen_InvalidAddress(t *testing.T) {
	lp := streamtest.NewLoop(t)
	_, err := Listen(lp, "256.0.0.1:http-nope", func(*Socket) {})
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

// closedPort returns an address nothing listens on.
func closedPort(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	address := ln.Addr().String()
	require.NoError(t, ln.Close())
	return address
}
