// Package resp decodes and encodes the Redis serialization protocol (RESP2).
//
// NewDecoder returns a stream transform from bytes to Values that can sit
// between a socket and its consumer:
//
//	dec := resp.NewDecoder(lp)
//	stream.Pipe[byte](sock, dec)
//	dec.OnReadable(func() { for _, v := range dec.Read() { fmt.Println(v) } })
//	sock.Write(resp.EncodeCommand("PING"), nil)
package resp
