package tnet

import (
	"errors"
	"net"
	"strings"

	"github.com/quic-go/quic-go"
)

// IsClosedConnectionError returns if the passed error is "closed network connection".
func IsClosedConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, quic.ErrServerClosed) {
		return true
	}
	// older wrappers lose the sentinel, so match the text as well
	return strings.HasSuffix(err.Error(), "use of closed network connection")
}

// StripClosedConnectionError returns nil if the passed error is
// "closed network connection", and the original error otherwise.
//
// This is handy to decrease the amount of spam in logs, as "closed network
// connection" is a common error that happens every time a network connection
// is closed as a result of handling context cancellation.
func StripClosedConnectionError(err error) error {
	if IsClosedConnectionError(err) {
		return nil
	}
	return err
}

// ApplicationClose returns the application error carried by a QUIC
// connection close, if any
func ApplicationClose(err error) (*quic.ApplicationError, bool) {
	var appErr *quic.ApplicationError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsConnectionGone reports whether err means the QUIC connection is no longer
// usable: closed by either side, timed out, or reset by the transport
func IsConnectionGone(err error) bool {
	if err == nil {
		return false
	}
	var (
		appErr       *quic.ApplicationError
		idleErr      *quic.IdleTimeoutError
		handshakeErr *quic.HandshakeTimeoutError
		transportErr *quic.TransportError
		resetErr     *quic.StatelessResetError
	)
	return errors.As(err, &appErr) ||
		errors.As(err, &idleErr) ||
		errors.As(err, &handshakeErr) ||
		errors.As(err, &transportErr) ||
		errors.As(err, &resetErr) ||
		IsClosedConnectionError(err)
}
