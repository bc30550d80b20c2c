package natsio

import (
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/streamkit/errors"
)

// Conn is the part of a NATS connection the streams need.
type Conn interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler func(subject string, data []byte)) (unsubscribe func() error, err error)
	Flush() error
}

// Message is one received NATS message.
type Message struct {
	Subject string
	Data    []byte
}

type natsConn struct {
	nc *nats.Conn
}

// FromConn adapts a nats.go connection.
func FromConn(nc *nats.Conn) Conn {
	return natsConn{nc: nc}
}

func (c natsConn) Publish(subject string, data []byte) error {
	return c.nc.Publish(subject, data)
}

func (c natsConn) Subscribe(subject string, handler func(string, []byte)) (func() error, error) {
	sub, err := c.nc.Subscribe(subject, func(m *nats.Msg) {
		handler(m.Subject, m.Data)
	})
	if err != nil {
		return nil, err
	}
	return sub.Unsubscribe, nil
}

func (c natsConn) Flush() error {
	return c.nc.Flush()
}

// ConnectOptions configures Connect
type ConnectOptions struct {
	Name          string
	Timeout       time.Duration
	MaxReconnects int
	ReconnectWait time.Duration
}

// Connect dials a NATS server. It blocks; call it before running the loop or
// from a goroutine.
func Connect(url string, o ConnectOptions) (*nats.Conn, error) {
	opts := []nats.Option{nats.MaxReconnects(o.MaxReconnects)}
	if o.Name != "" {
		opts = append(opts, nats.Name(o.Name))
	}
	if o.Timeout > 0 {
		opts = append(opts, nats.Timeout(o.Timeout))
	}
	if o.ReconnectWait > 0 {
		opts = append(opts, nats.ReconnectWait(o.ReconnectWait))
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, errors.WrapTransient(err, "natsio", "Connect", "connect to NATS")
	}
	return nc, nil
}
