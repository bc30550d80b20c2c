// Package streamkit is an event-driven stream engine: typed readable and
// writable streams with backpressure, running on a single-threaded loop.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│            loop.Loop                │  serial task queue, next tick,
//	│                                     │  timers, retain/release
//	└─────────────────────────────────────┘
//	           ↓ runs
//	┌─────────────────────────────────────┐
//	│   stream.Readable / Writable        │  buckets, brigades, high water
//	│   stream.Duplex / Transform / Pipe  │  marks, cork, events
//	└─────────────────────────────────────┘
//	           ↓ adapts
//	┌─────────────────────────────────────┐
//	│  socket   wsio   fs   natsio   resp │  TCP, WebSocket, files, NATS
//	└─────────────────────────────────────┘  subjects, Redis protocol
//
// Stream state is only touched from loop tasks. Blocking I/O runs on
// goroutines that hand results back with Loop.Enqueue and keep the loop
// alive with Retain until they do.
//
// # Packages
//
//   - loop: the scheduler
//   - stream: buffers, stream kinds, Source/Target adapters, Pipe
//   - socket: TCP client and server sockets as byte duplexes
//   - wsio: WebSocket connections as message duplexes
//   - fs: file read and write streams
//   - natsio: NATS subjects as message sources and targets
//   - codec/resp: Redis protocol decoder as a transform stage
//   - config: layered JSON/YAML configuration
//   - metric: Prometheus metrics for loops, streams and connections
//   - errors: classified errors (transient, invalid, fatal)
//
// The streamkit command in cmd/streamkit wires these into small servers and
// clients.
package streamkit
