package tnet

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"

	"github.com/quic-go/quic-go"
	"github.com/ridge/geyser/retry"
	"github.com/stretchr/testify/require"
)

func TestRetriableNil(t *testing.T) {
	require.Nil(t, MaybeRetriableError(nil))
}

func TestRetriable(t *testing.T) {
	for _, err := range []error{
		syscall.ECONNREFUSED,
		fmt.Errorf("dial: %w", syscall.ECONNRESET),
		io.ErrUnexpectedEOF,
		&quic.StreamError{StreamID: 3, ErrorCode: 1},
	} {
		require.True(t, retry.IsRetriable(MaybeRetriableError(err)), "%v", err)
	}
}

func TestNotRetriable(t *testing.T) {
	for _, err := range []error{
		errors.New("boom"),
		&quic.ApplicationError{Remote: true, ErrorCode: 2},
		&quic.IdleTimeoutError{},
		net.ErrClosed,
	} {
		require.False(t, retry.IsRetriable(MaybeRetriableError(err)), "%v", err)
	}
}

func TestConnectionGone(t *testing.T) {
	require.False(t, IsConnectionGone(nil))
	require.True(t, IsConnectionGone(fmt.Errorf("write: %w", &quic.ApplicationError{ErrorCode: 1})))
	require.True(t, IsConnectionGone(quic.ErrServerClosed))
	require.False(t, IsConnectionGone(&quic.StreamError{}))

	appErr, ok := ApplicationClose(fmt.Errorf("read: %w", &quic.ApplicationError{Remote: true, ErrorCode: 4, ErrorMessage: "x"}))
	require.True(t, ok)
	require.Equal(t, quic.ApplicationErrorCode(4), appErr.ErrorCode)
	require.True(t, appErr.Remote)
}

func TestStripClosed(t *testing.T) {
	require.NoError(t, StripClosedConnectionError(fmt.Errorf("accept: %w", net.ErrClosed)))
	require.Error(t, StripClosedConnectionError(errors.New("other")))
}
