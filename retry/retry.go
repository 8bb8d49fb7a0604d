// Package retry runs operations that may fail transiently.
//
// An operation signals that it wants another attempt by wrapping its error
// with Retriable. Any other result ends the loop.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/ridge/geyser/tlog"
	"go.uber.org/zap"
)

// DelayFn produces the delays between attempts of one retry loop.
//
// Each call returns the delay before the next attempt and whether the next
// attempt should be made at all. The first call is made before the very
// first attempt and must return ok.
type DelayFn func() (delay time.Duration, ok bool)

// Config defines retry intervals. Each call to Delays starts an
// independent sequence.
type Config interface {
	Delays() DelayFn
}

// FixedConfig defines fixed retry intervals
type FixedConfig struct {
	// TryAfter is the delay before the first attempt
	TryAfter time.Duration

	// RetryAfter is the delay before each subsequent attempt
	RetryAfter time.Duration

	// MaxAttempts is the maximum number of attempts taken; 0 = unlimited
	MaxAttempts int
}

// Delays implements interface Config
func (c FixedConfig) Delays() DelayFn {
	attempts := 0
	return func() (time.Duration, bool) {
		attempts++
		switch {
		case attempts == 1:
			return c.TryAfter, true
		case c.MaxAttempts != 0 && attempts > c.MaxAttempts:
			return 0, false
		default:
			return c.RetryAfter, true
		}
	}
}

// ErrRetriable means the operation that caused the error should be retried
type ErrRetriable struct {
	err error
}

func (r ErrRetriable) Error() string {
	return r.err.Error()
}

// Unwrap returns the next error in the error chain
func (r ErrRetriable) Unwrap() error {
	return r.err
}

// Retriable wraps an error to tell Do that it should keep trying.
// Returns nil if err is nil.
func Retriable(err error) error {
	if err == nil {
		return nil
	}
	return ErrRetriable{err: err}
}

// IsRetriable reports whether err asks for another attempt
func IsRetriable(err error) bool {
	var r ErrRetriable
	return errors.As(err, &r)
}

// Do executes f, retrying while it returns a Retriable error and the
// delays allow.
//
// When the attempts are exhausted, the unwrapped last error is returned.
// Repeated identical errors are logged once.
func Do(ctx context.Context, c Config, f func() error) error {
	startedAt := time.Now()
	delays := c.Delays()
	var lastMessage string
	var r ErrRetriable
	for i := 0; ; i++ {
		logger := tlog.Get(ctx).With(zap.Int("attempts", i+1))

		delay, ok := delays()
		if !ok {
			if i == 0 {
				panic("ok is false on first attempt")
			}
			logger.Debug("Retry failed after maximum number of attempts", zap.Error(r.err), zap.Duration("duration", time.Since(startedAt)))
			return r.err
		}

		if err := Sleep(ctx, delay); err != nil {
			return err
		}

		err := f()
		if !errors.As(err, &r) {
			if i > 0 && err == nil {
				logger.Debug("Retry succeeded", zap.Duration("duration", time.Since(startedAt)))
			}
			return err
		}
		if ctx.Err() != nil && errors.Is(r.err, ctx.Err()) {
			return r.err // f wants to retry but the context is closing
		}

		if newMessage := r.err.Error(); lastMessage != newMessage {
			logger.Debug("Will retry", zap.Error(r.err))
			lastMessage = newMessage
		}
	}
}

// Do1 is a single return value version of Do
func Do1[T any](ctx context.Context, c Config, f func() (T, error)) (T, error) {
	var t T
	err := Do(ctx, c, func() error {
		var err error
		t, err = f()
		return err
	})
	return t, err
}

// Sleep waits for the duration to elapse or the context to close, whichever
// comes first. Non-positive durations return immediately.
func Sleep(ctx context.Context, duration time.Duration) error {
	if duration <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
