package main

import (
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/c360/streamkit/codec/resp"
	"github.com/c360/streamkit/errors"
	"github.com/c360/streamkit/fs"
	"github.com/c360/streamkit/natsio"
	"github.com/c360/streamkit/socket"
	"github.com/c360/streamkit/stream"
	"github.com/c360/streamkit/wsio"
)

// errUsage marks bad command arguments.
var errUsage = stderrors.New("usage")

// commands set up streams on the loop before it runs.
var commands = map[string]func(a *app, args []string) error{
	"echo":   runEcho,
	"wsecho": runWSEcho,
	"cat":    runCat,
	"resp":   runRESP,
	"pub":    runPub,
	"sub":    runSub,
}

func newFlagSet(name string) *flag.FlagSet {
	set := flag.NewFlagSet(name, flag.ContinueOnError)
	set.SetOutput(io.Discard)
	return set
}

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

func runEcho(a *app, args []string) error {
	set := newFlagSet("echo")
	listen := set.String("listen", a.cfg.Server.Listen, "address to listen on")
	if err := set.Parse(args); err != nil {
		return usageError("%v", err)
	}

	conns := map[*socket.Socket]struct{}{}
	server, err := socket.Listen(a.lp, *listen, func(s *socket.Socket) {
		conns[s] = struct{}{}
		log := a.logger.With("component", "echo", "remote", s.RemoteAddress().String())
		log.Debug("Connection accepted")

		s.OnClose(func() {
			delete(conns, s)
			log.Debug("Connection closed")
		})
		s.OnError(func(err error) {
			log.Warn("Connection failed", "error", err)
		})
		if idle := a.cfg.Server.IdleTimeout.Std(); idle > 0 {
			s.SetTimeout(idle, func() {
				log.Debug("Connection idle", "timeout", idle)
				s.Close()
			})
		}
		stream.Pipe[byte](s, s)
	}, a.socketOptions()...)
	if err != nil {
		return err
	}
	a.logger.Info("Echo server listening", "address", server.Address().String())

	a.onShutdown(func() {
		server.Close()
		for s := range conns {
			s.Close()
		}
	})
	return nil
}

func runWSEcho(a *app, args []string) error {
	set := newFlagSet("wsecho")
	listen := set.String("listen", a.cfg.Server.Listen, "address to listen on")
	path := set.String("path", "/ws", "upgrade path")
	text := set.Bool("text", false, "reply with text frames")
	if err := set.Parse(args); err != nil {
		return usageError("%v", err)
	}

	opts := []wsio.Option{
		wsio.WithLogger(a.logger.With("component", "wsio")),
		wsio.WithStreamOptions(a.streamOptions("websocket")...),
	}
	if *text {
		opts = append(opts, wsio.WithTextMessages())
	}

	conns := map[*wsio.Conn]struct{}{}
	upgrader := &websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	mux := http.NewServeMux()
	mux.Handle(*path, wsio.Handler(a.lp, upgrader, func(c *wsio.Conn) {
		conns[c] = struct{}{}
		c.OnClose(func() { delete(conns, c) })
		c.OnError(func(err error) {
			a.logger.Warn("WebSocket failed", "component", "wsecho", "error", err)
		})
		stream.Pipe[[]byte](c, c)
	}, opts...))

	ln, err := net.Listen("tcp", *listen)
	if err != nil {
		return errors.WrapInvalid(err, "wsecho", "Listen", "bind listener")
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	a.lp.Retain()
	go func() {
		if err := srv.Serve(ln); !stderrors.Is(err, http.ErrServerClosed) {
			a.lp.Fail(errors.WrapTransient(err, "wsecho", "Serve", "serve HTTP"))
		}
	}()
	a.logger.Info("WebSocket echo server listening", "address", ln.Addr().String(), "path", *path)

	a.onShutdown(func() {
		_ = srv.Close()
		a.lp.Release()
		for c := range conns {
			c.Close()
		}
	})
	return nil
}

func runCat(a *app, args []string) error {
	if len(args) == 0 {
		return usageError("cat FILE...")
	}

	out := stream.NewStdoutTarget(a.lp, a.streamOptions("stdout")...)
	out.OnError(a.lp.Fail)

	var next func(i int)
	next = func(i int) {
		if i == len(args) {
			out.End()
			return
		}
		src, err := fs.CreateReadStream(a.lp, args[i], a.streamOptions("file")...)
		if err != nil {
			a.lp.Fail(err)
			return
		}
		src.OnError(a.lp.Fail)
		src.OnEnd(func() { next(i + 1) })
		stream.Pipe[byte](src, out, stream.WithEnd(false))
	}
	next(0)
	return nil
}

func runRESP(a *app, args []string) error {
	set := newFlagSet("resp")
	addr := set.String("addr", "localhost:6379", "Redis address")
	if err := set.Parse(args); err != nil {
		return usageError("%v", err)
	}
	command := set.Args()
	if len(command) == 0 {
		return usageError("resp [--addr HOST:PORT] COMMAND [ARG...]")
	}

	socket.ConnectWithRetry(a.ctx, a.lp, *addr, errors.DefaultRetryConfig(), func(s *socket.Socket, err error) {
		if err != nil {
			a.lp.Fail(err)
			return
		}
		s.OnError(a.lp.Fail)

		dec := resp.NewDecoder(a.lp, a.streamOptions("resp-decoder")...)
		dec.OnError(a.lp.Fail)
		dec.OnReadable(func() {
			replies := dec.Read()
			if len(replies) == 0 {
				return
			}
			fmt.Println(replies[0].String())
			s.Close()
		})
		stream.Pipe[byte](s, dec)

		s.Write(resp.EncodeCommand(command...), nil)
	}, a.socketOptions()...)
	return nil
}

func (a *app) connectNATS() (natsio.Conn, error) {
	nc, err := natsio.Connect(a.cfg.NATS.URL(), natsio.ConnectOptions{
		Name:          a.cfg.NATS.Name,
		Timeout:       a.cfg.NATS.Timeout.Std(),
		MaxReconnects: a.cfg.NATS.MaxReconnects,
		ReconnectWait: a.cfg.NATS.ReconnectWait.Std(),
	})
	if err != nil {
		return nil, err
	}
	a.onCleanup(nc.Close)
	return natsio.FromConn(nc), nil
}

func runPub(a *app, args []string) error {
	if len(args) < 2 {
		return usageError("pub SUBJECT MESSAGE...")
	}
	conn, err := a.connectNATS()
	if err != nil {
		return err
	}

	messages := make([][]byte, 0, len(args)-1)
	for _, m := range args[1:] {
		messages = append(messages, []byte(m))
	}

	pub := natsio.Publisher(a.lp, conn, args[0], a.streamOptions("nats-publish")...)
	pub.OnError(a.lp.Fail)
	pub.OnFinish(func() {
		a.logger.Debug("Published", "subject", args[0], "messages", len(messages))
	})
	pub.EndWith(messages)
	return nil
}

func runSub(a *app, args []string) error {
	set := newFlagSet("sub")
	count := set.Int("count", 0, "exit after this many messages, 0 for no limit")
	if err := set.Parse(args); err != nil {
		return usageError("%v", err)
	}
	if set.NArg() != 1 {
		return usageError("sub [--count N] SUBJECT")
	}
	subject := set.Arg(0)

	conn, err := a.connectNATS()
	if err != nil {
		return err
	}

	src, err := natsio.Subscribe(a.lp, conn, subject, a.streamOptions("nats-subscribe")...)
	if err != nil {
		return err
	}
	src.OnError(a.lp.Fail)

	seen := 0
	lines := stream.NewTransform[natsio.Message, byte](a.lp, func(in []natsio.Message, push func([]byte)) error {
		var out []byte
		for _, msg := range in {
			if *count > 0 && seen == *count {
				break
			}
			out = append(out, msg.Data...)
			out = append(out, '\n')
			seen++
		}
		push(out)
		if *count > 0 && seen == *count {
			src.Close()
		}
		return nil
	}, nil, a.streamOptions("lines")...)

	out := stream.NewStdoutTarget(a.lp, a.streamOptions("stdout")...)
	out.OnError(a.lp.Fail)

	stream.Pipe[natsio.Message](src, lines)
	stream.Pipe[byte](lines, out)
	a.logger.Info("Subscribed", "subject", subject)

	a.onShutdown(src.Close)
	return nil
}
