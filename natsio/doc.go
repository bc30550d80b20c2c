// Package natsio binds NATS subjects to streams.
//
// Subscribe turns a subject (wildcards allowed) into a readable stream of
// Message values. Publisher turns a subject into a writable stream of
// payloads; a write completes once its messages were flushed to the server,
// so a slow server pushes back on the writer.
//
// Both work against the small Conn interface. FromConn adapts a *nats.Conn;
// tests use testutil.MockNATSConn.
package natsio
