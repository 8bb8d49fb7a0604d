package wire

import "fmt"

// ErrProtocol is returned for frames that violate the wire format. A
// protocol error is fatal for the connection it was received on.
type ErrProtocol struct {
	Reason string
	Err    error
}

func (err *ErrProtocol) Error() string {
	if err.Err == nil {
		return "protocol error: " + err.Reason
	}
	return fmt.Sprintf("protocol error: %s: %v", err.Reason, err.Err)
}

// Unwrap returns the cause
func (err *ErrProtocol) Unwrap() error {
	return err.Err
}

func protocolError(err error, format string, args ...any) *ErrProtocol {
	return &ErrProtocol{Reason: fmt.Sprintf(format, args...), Err: err}
}

// CloseCode is the application error code sent when a connection is closed
type CloseCode uint64

// Close codes
const (
	CloseNormal CloseCode = iota
	CloseProtocol
	CloseOverloaded
	CloseTooManyConnections
	CloseDeliveryFailed
	CloseShutdown
)

var closeCodeNames = map[CloseCode]string{
	CloseNormal:             "normal",
	CloseProtocol:           "protocol error",
	CloseOverloaded:         "overloaded",
	CloseTooManyConnections: "too many connections",
	CloseDeliveryFailed:     "delivery failed",
	CloseShutdown:           "shutdown",
}

func (c CloseCode) String() string {
	if name, ok := closeCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("close code %d", uint64(c))
}

// ErrClosed describes a connection closed by the peer with a close code
type ErrClosed struct {
	Code   CloseCode
	Remote bool
	Reason string
}

func (err ErrClosed) Error() string {
	side := "locally"
	if err.Remote {
		side = "by peer"
	}
	if err.Reason == "" {
		return fmt.Sprintf("connection closed %s: %s", side, err.Code)
	}
	return fmt.Sprintf("connection closed %s: %s: %s", side, err.Code, err.Reason)
}

// ExitCode fulfils run.WithExitCode.
//
// A subscriber dropped by the server exits with 100 plus the close code, so
// that supervisors can tell overload from protocol errors.
func (err ErrClosed) ExitCode() int {
	if !err.Remote || err.Code == CloseNormal || err.Code > CloseShutdown {
		return 1
	}
	return 100 + int(err.Code)
}
