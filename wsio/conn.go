package wsio

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/c360/streamkit/errors"
	"github.com/c360/streamkit/loop"
	"github.com/c360/streamkit/metric"
	"github.com/c360/streamkit/stream"
)

// closeWriteTimeout bounds sending the close frame.
const closeWriteTimeout = time.Second

type options struct {
	logger      *slog.Logger
	messageType int
	readLimit   int64
	streamOpts  []stream.Option
}

// Option configures a Conn
type Option func(*options)

// WithLogger sets the connection logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTextMessages sends text frames instead of binary frames.
func WithTextMessages() Option {
	return func(o *options) {
		o.messageType = websocket.TextMessage
	}
}

// WithReadLimit caps the size of a received message.
func WithReadLimit(limit int64) Option {
	return func(o *options) {
		o.readLimit = limit
	}
}

// WithStreamOptions passes options to the duplex stream.
func WithStreamOptions(opts ...stream.Option) Option {
	return func(o *options) {
		o.streamOpts = append(o.streamOpts, opts...)
	}
}

// Conn is a WebSocket connection as a duplex of messages.
type Conn struct {
	*stream.Duplex[[]byte, []byte]

	lp          *loop.Loop
	ws          *websocket.Conn
	logger      *slog.Logger
	metrics     *metric.Metrics
	messageType int

	readClosed  bool
	writeClosed bool
	connClosed  bool
}

type connImpl struct{ c *Conn }

// New wraps an established WebSocket connection.
func New(lp *loop.Loop, ws *websocket.Conn, opts ...Option) *Conn {
	o := options{messageType: websocket.BinaryMessage}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = lp.Logger()
	}

	c := &Conn{
		lp:          lp,
		ws:          ws,
		logger:      logger.With("component", "wsio", "remote", ws.RemoteAddr().String()),
		metrics:     lp.Metrics(),
		messageType: o.messageType,
	}
	if o.readLimit > 0 {
		ws.SetReadLimit(o.readLimit)
	}
	// Answer the peer's close frame only when our own write side ends.
	ws.SetCloseHandler(func(int, string) error { return nil })

	streamOpts := append([]stream.Option{stream.WithKind("websocket"), stream.WithLogger(logger)}, o.streamOpts...)
	c.Duplex = stream.NewDuplex[[]byte, []byte](lp, connImpl{c}, streamOpts...)
	c.metrics.RecordConnectionOpened(false)
	return c
}

// Dial connects to url on a goroutine and calls done on the loop.
func Dial(lp *loop.Loop, url string, header http.Header, done func(*Conn, error), opts ...Option) {
	lp.Retain()
	go func() {
		ws, _, err := websocket.DefaultDialer.Dial(url, header)
		lp.Enqueue(func() {
			defer lp.Release()
			if err != nil {
				done(nil, errors.WrapIO(err, "wsio", "Dial", "dial websocket"))
				return
			}
			done(New(lp, ws, opts...), nil)
		})
	}()
}

// Handler upgrades HTTP requests and hands each connection to onConn on the
// loop.
func Handler(lp *loop.Loop, upgrader *websocket.Upgrader, onConn func(*Conn), opts ...Option) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already replied with an HTTP error.
			lp.Logger().Debug("WebSocket upgrade failed", "component", "wsio", "error", err)
			return
		}
		lp.Enqueue(func() { onConn(New(lp, ws, opts...)) })
	})
}

// WebSocket returns the underlying connection.
func (c *Conn) WebSocket() *websocket.Conn { return c.ws }

func (i connImpl) PrimaryRead(int) {
	c := i.c
	c.lp.Retain()
	go func() {
		_, msg, err := c.ws.ReadMessage()
		c.lp.Enqueue(func() {
			defer c.lp.Release()
			c.afterRead(msg, err)
		})
	}()
}

func (c *Conn) afterRead(msg []byte, err error) {
	if c.readClosed {
		return
	}
	switch {
	case err == nil:
		c.metrics.RecordBytesReceived(len(msg))
		c.Push([][]byte{msg})
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
		c.Push(nil)
	case websocket.IsCloseError(err, websocket.CloseAbnormalClosure):
		c.Fail(errors.WrapTransient(fmt.Errorf("%w: %w", errors.ErrConnectionLost, err), "wsio", "PrimaryRead", "read message"))
	default:
		c.Fail(errors.WrapIO(err, "wsio", "PrimaryRead", "read message"))
	}
}

func (i connImpl) PrimaryPause() {}

func (i connImpl) PrimaryWriteV(brigade stream.Brigade[[]byte], done func(err error, written int)) {
	c := i.c
	messages := brigade.Flatten()
	c.lp.Retain()
	go func() {
		written, size := 0, 0
		var err error
		for _, msg := range messages {
			if err = c.ws.WriteMessage(c.messageType, msg); err != nil {
				break
			}
			written++
			size += len(msg)
		}
		c.lp.Enqueue(func() {
			defer c.lp.Release()
			c.metrics.RecordBytesSent(size)
			done(errors.WrapIO(err, "wsio", "PrimaryWriteV", "write message"), written)
		})
	}()
}

func (i connImpl) PrimaryCloseRead() {
	i.c.readClosed = true
	i.c.maybeClose()
}

func (i connImpl) PrimaryCloseWrite() {
	c := i.c
	c.writeClosed = true
	frame := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := c.ws.WriteControl(websocket.CloseMessage, frame, time.Now().Add(closeWriteTimeout)); err != nil {
		c.logger.Debug("Close frame not sent", "error", err)
	}
	c.maybeClose()
}

func (i connImpl) CanEnd() bool { return true }

func (c *Conn) maybeClose() {
	if !c.readClosed || !c.writeClosed || c.connClosed {
		return
	}
	c.connClosed = true
	if err := c.ws.Close(); err != nil {
		c.logger.Debug("Close failed", "error", err)
	}
	c.metrics.RecordConnectionClosed()
}
