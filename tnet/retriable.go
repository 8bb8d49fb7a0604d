package tnet

import (
	"errors"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/quic-go/quic-go"
	"github.com/ridge/geyser/retry"
)

// MaybeRetriableError converts given network error into
// retry.ErrRetriable if the network operation is retriable.
//
// Errors meaning that a QUIC connection is gone are never retriable: the
// operation has to be repeated on a new connection.
func MaybeRetriableError(err error) error {
	if err == nil {
		return nil
	}
	var streamErr *quic.StreamError
	if errors.As(err, &streamErr) {
		return retry.Retriable(err)
	}
	if IsConnectionGone(err) {
		return err
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.Temporary() {
		return retry.Retriable(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return retry.Retriable(err)
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return retry.Retriable(err)
	}
	if errors.Is(err, syscall.ECONNRESET) {
		return retry.Retriable(err)
	}
	if errors.Is(err, syscall.EHOSTUNREACH) {
		return retry.Retriable(err)
	}
	if errors.Is(err, syscall.EPIPE) {
		return retry.Retriable(err)
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return retry.Retriable(err)
	}
	// This is unexported error coming from DNS code
	if strings.Contains(err.Error(), "server misbehaving") {
		return retry.Retriable(err)
	}
	return err
}
