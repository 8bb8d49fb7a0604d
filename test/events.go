package test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// ReceiveTimeout is how long the assertions below wait for each value
var ReceiveTimeout = 3 * time.Second

func receive[T any](ch <-chan T) (T, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), ReceiveTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	case v, ok := <-ch:
		return v, ok, nil
	}
}

// Receive waits for the next value on ch and fails the test on timeout or
// if the channel is closed
func Receive[T any](t *testing.T, ch <-chan T) (T, bool) {
	v, ok, err := receive(ch)
	if !assert.NoError(t, err, "timeout") || !assert.True(t, ok, "channel closed") {
		return v, false
	}
	return v, true
}

// AssertForefrontEvents asserts that the expected values are received on ch
// in order
func AssertForefrontEvents[T any](t *testing.T, ch <-chan T, expected ...T) bool {
	ok := true
	for i, e := range expected {
		v, vOK, err := receive(ch)
		if !assert.NoErrorf(t, err, "timeout, index: %d", i) || !assert.Truef(t, vOK, "channel closed, index: %d", i) {
			return false
		}
		ok = assert.Equal(t, e, v) && ok
	}
	return ok
}

// AssertUnorderedEvents asserts that the expected values are received on ch
// in any order
func AssertUnorderedEvents[T any](t *testing.T, ch <-chan T, expected ...T) bool {
	actual := make([]T, 0, len(expected))
	for i := range expected {
		v, vOK, err := receive(ch)
		if !assert.NoErrorf(t, err, "timeout, index: %d", i) || !assert.Truef(t, vOK, "channel closed, index: %d", i) {
			return false
		}
		actual = append(actual, v)
	}
	return assert.ElementsMatch(t, expected, actual)
}

// AssertEvents is AssertForefrontEvents that also asserts that nothing else
// is buffered in ch
func AssertEvents[T any](t *testing.T, ch <-chan T, expected ...T) bool {
	if !AssertForefrontEvents(t, ch, expected...) {
		return false
	}
	return AssertNoMoreEvents(t, ch)
}

// AssertNoMoreEvents asserts that ch holds no buffered values
func AssertNoMoreEvents[T any](t *testing.T, ch <-chan T) bool {
	ok := true
	for len(ch) > 0 {
		v, vOK := <-ch
		if !vOK {
			break
		}
		assert.Fail(t, "unexpected event", "%#v", v)
		ok = false
	}
	return ok
}
