package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ridge/geyser/test"
	"github.com/stretchr/testify/require"
)

func TestDo(t *testing.T) {
	ctx := test.Context(t)

	count := 0
	err := Do(ctx, FixedConfig{}, func() error {
		count++
		if count == 10 {
			return errors.New("ten")
		}
		return Retriable(fmt.Errorf("%d", count))
	})
	require.EqualError(t, err, "ten")

	count = 0
	ret, err := Do1(ctx, FixedConfig{}, func() (int, error) {
		count++
		if count == 5 {
			return 5, nil
		}
		return count, Retriable(fmt.Errorf("%d", count))
	})
	require.NoError(t, err)
	require.Equal(t, 5, ret)
}

func TestMaxAttempts(t *testing.T) {
	ctx := test.Context(t)
	attempts := 0
	err := Do(ctx, FixedConfig{MaxAttempts: 100}, func() error {
		attempts++
		return Retriable(fmt.Errorf("attempt %d", attempts))
	})
	require.EqualError(t, err, "attempt 100")
	require.Equal(t, 100, attempts)
	require.False(t, IsRetriable(err))
}

func TestCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(test.Context(t))
	attempts := 0
	err := Do(ctx, FixedConfig{RetryAfter: time.Hour}, func() error {
		attempts++
		cancel()
		return Retriable(errors.New("again"))
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, attempts)
}

func TestRetriable(t *testing.T) {
	require.Nil(t, Retriable(nil))
	err := fmt.Errorf("wrapped: %w", Retriable(context.DeadlineExceeded))
	require.True(t, IsRetriable(err))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
