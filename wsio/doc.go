// Package wsio exposes WebSocket connections as message duplex streams.
//
// Each stream element is one WebSocket message. Ending the write side sends a
// close frame with status 1000; a close frame from the peer is EOF on the read
// side. The underlying connection is closed once both sides are closed, so a
// peer can still send its remaining messages after we stopped writing.
package wsio
