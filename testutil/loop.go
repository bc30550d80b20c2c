package testutil

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/c360/streamkit/loop"
)

// DefaultRunTimeout bounds RunLoop.
const DefaultRunTimeout = 5 * time.Second

// NewLoop creates a loop whose logger writes to the test log.
func NewLoop(t testing.TB, opts ...loop.Option) *loop.Loop {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return loop.New(append([]loop.Option{loop.WithLogger(logger)}, opts...)...)
}

// RunLoop runs lp until it is idle, failing the test if Run errors or takes
// longer than DefaultRunTimeout.
func RunLoop(t require.TestingT, lp *loop.Loop) {
	if h, ok := t.(interface{ Helper() }); ok {
		h.Helper()
	}
	ctx, cancel := context.WithTimeout(context.Background(), DefaultRunTimeout)
	defer cancel()
	require.NoError(t, lp.Run(ctx))
}

// RunLoopExpectError runs lp and returns the error it failed with.
func RunLoopExpectError(t require.TestingT, lp *loop.Loop) error {
	if h, ok := t.(interface{ Helper() }); ok {
		h.Helper()
	}
	ctx, cancel := context.WithTimeout(context.Background(), DefaultRunTimeout)
	defer cancel()
	err := lp.Run(ctx)
	require.Error(t, err)
	require.NotErrorIs(t, err, context.DeadlineExceeded)
	return err
}

type testWriter struct{ t testing.TB }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
