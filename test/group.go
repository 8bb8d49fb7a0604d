package test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ridge/parallel"
	"github.com/stretchr/testify/require"
)

// Group returns a parallel.Group running in a testing context.
//
// The group is shut down when the test ends. If it finishes with an error
// other than context.Canceled, the test fails.
func Group(t *testing.T) *parallel.Group {
	return groupIn(t, Context(t))
}

// GroupWithTimeout is a version of Group with a timeout.
//
// If the timeout expires, the group context is closed with
// context.DeadlineExceeded and the test fails.
func GroupWithTimeout(t *testing.T, timeout time.Duration) *parallel.Group {
	return groupIn(t, ContextWithTimeout(t, timeout))
}

func groupIn(t *testing.T, ctx context.Context) *parallel.Group {
	group := parallel.NewGroup(ctx)
	t.Cleanup(func() {
		group.Exit(nil)
		if err := group.Wait(); !errors.Is(err, context.Canceled) {
			require.NoError(t, err)
		}
	})
	return group
}
