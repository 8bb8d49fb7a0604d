package run

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ridge/geyser/tlog"
	"go.uber.org/zap"
)

// exitInterrupted is the exit code of a process cut short by a second signal
const exitInterrupted = 130

var exit = os.Exit

func handleSignals(ctx context.Context) error {
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	return awaitSignals(ctx, signals, func() { signal.Stop(signals) })
}

// awaitSignals returns nil on the first signal, which starts the shutdown of
// the task. Shutdown may be held up by subscribers that never drain their
// streams, so a second signal exits the process without waiting.
func awaitSignals(ctx context.Context, signals <-chan os.Signal, stop func()) error {
	logger := tlog.Get(ctx)
	select {
	case sig := <-signals:
		logger.Info("Received signal, shutting down", zap.Stringer("signal", sig))
	case <-ctx.Done():
		stop()
		return ctx.Err()
	}

	go func() {
		sig := <-signals
		logger.Error("Received another signal during shutdown, exiting", zap.Stringer("signal", sig))
		_ = logger.Sync()
		exit(exitInterrupted)
	}()
	return nil
}
