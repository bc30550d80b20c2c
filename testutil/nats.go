package testutil

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// ErrMockClosed is returned by MockNATSConn after Close.
var ErrMockClosed = errors.New("mock connection closed")

// MockNATSConn is an in-memory publish/subscribe connection for testing.
// It matches natsio.Conn. Thread-safe for concurrent use from multiple
// goroutines; handlers run synchronously on the publishing goroutine.
type MockNATSConn struct {
	mu            sync.RWMutex
	messages      map[string][][]byte
	subscriptions map[string]map[int]func(string, []byte)
	nextSub       int
	flushes       int
	closed        bool
}

// NewMockNATSConn creates a new mock connection.
func NewMockNATSConn() *MockNATSConn {
	return &MockNATSConn{
		messages:      make(map[string][][]byte),
		subscriptions: make(map[string]map[int]func(string, []byte)),
	}
}

// Publish stores data and delivers it to the subject's subscribers.
func (c *MockNATSConn) Publish(subject string, data []byte) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrMockClosed
	}
	c.messages[subject] = append(c.messages[subject], data)

	// Copy handlers to avoid holding lock during callbacks
	handlers := make([]func(string, []byte), 0, len(c.subscriptions[subject]))
	for _, h := range c.subscriptions[subject] {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()

	for _, handler := range handlers {
		handler(subject, data)
	}
	return nil
}

// Subscribe registers handler for subject. The returned function removes it.
func (c *MockNATSConn) Subscribe(subject string, handler func(subject string, data []byte)) (func() error, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrMockClosed
	}
	if c.subscriptions[subject] == nil {
		c.subscriptions[subject] = make(map[int]func(string, []byte))
	}
	c.nextSub++
	id := c.nextSub
	c.subscriptions[subject][id] = handler

	return func() error {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subscriptions[subject], id)
		return nil
	}, nil
}

// Flush records the call.
func (c *MockNATSConn) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrMockClosed
	}
	c.flushes++
	return nil
}

// Messages returns a copy of everything published on subject.
func (c *MockNATSConn) Messages(subject string) [][]byte {
	c.mu.RLock()
	defer c.mu.RUnlock()

	msgs := c.messages[subject]
	if msgs == nil {
		return nil
	}
	result := make([][]byte, len(msgs))
	copy(result, msgs)
	return result
}

// MessageCount returns the number of messages published on subject.
func (c *MockNATSConn) MessageCount(subject string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages[subject])
}

// SubscriberCount returns the number of live subscriptions on subject.
func (c *MockNATSConn) SubscriberCount(subject string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subscriptions[subject])
}

// Flushes returns how many times Flush was called.
func (c *MockNATSConn) Flushes() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.flushes
}

// Close closes the mock connection.
func (c *MockNATSConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// WaitForMessageCount waits for a number of messages on subject (with timeout).
func WaitForMessageCount(t *testing.T, conn *MockNATSConn, subject string, count int, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		if conn.MessageCount(subject) >= count {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %d messages on subject %s (got %d)", count, subject, conn.MessageCount(subject))
			return
		}
	}
}
