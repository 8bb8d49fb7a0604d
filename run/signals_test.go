package run

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/ridge/geyser/test"
	"github.com/stretchr/testify/require"
)

func TestFirstSignalStartsShutdown(t *testing.T) {
	codes := make(chan int, 1)
	exit = func(code int) { codes <- code }
	t.Cleanup(func() { exit = os.Exit })

	signals := make(chan os.Signal, 2)
	signals <- syscall.SIGTERM
	require.NoError(t, awaitSignals(test.Context(t), signals, func() {}))

	select {
	case code := <-codes:
		t.Fatalf("exited with %d after a single signal", code)
	case <-time.After(50 * time.Millisecond):
	}

	signals <- syscall.SIGINT
	select {
	case code := <-codes:
		require.Equal(t, exitInterrupted, code)
	case <-time.After(5 * time.Second):
		t.Fatal("second signal did not exit")
	}
}

func TestSignalsStopWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(test.Context(t))
	cancel()

	stopped := false
	err := awaitSignals(ctx, make(chan os.Signal), func() { stopped = true })
	require.ErrorIs(t, err, context.Canceled)
	require.True(t, stopped)
}
