// Package testutil provides helpers for testing code built on the stream engine.
//
// # Overview
//
// Streams only make progress while their loop runs, so most tests follow the
// same shape: build streams, drive them with RunLoop, assert on what the
// targets saw.
//
//	lp := testutil.NewLoop(t)
//	src := stream.FromSlice(lp, testutil.TestChunks)
//	...
//	testutil.RunLoop(t, lp)
//
// # Core Components
//
// Loop helpers:
//   - NewLoop: a loop logging to the test output
//   - RunLoop: runs until idle, failing the test on error or timeout
//   - RunLoopExpectError: runs until the loop fails and returns the error
//
// Mock implementations:
//
// ManualSource - a stream Source answered by the test:
//   - records every Next request
//   - Yield/YieldEOF/YieldError answer the outstanding request
//   - tracks Pause and CloseSource calls
//
// MockNATSConn - in-memory publish/subscribe matching natsio.Conn:
//   - thread-safe for concurrent use
//   - stores all published messages for verification
//   - delivers to subscription handlers synchronously
//
// Test data:
//   - TestChunks, TestLines: byte buckets for byte-stream tests
//   - TestBinaryData: non-text payloads
//
// # Design Principles
//
// testutil only depends on the loop, never on the stream package, so the
// stream package's own tests can use it. Mocks satisfy stream interfaces
// structurally.
//
// Real dependencies are preferred where they are cheap: NATS integration
// tests run a real server with testcontainers, and the RESP codec is tested
// against miniredis.
package testutil
