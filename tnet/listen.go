package tnet

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/ridge/must/v2"
	"golang.org/x/sys/unix"
)

var lc = net.ListenConfig{
	KeepAlive: 3 * time.Minute,
}

// Listen installs a listener on the specified address.
//
// If the address string starts with "tcp:", the rest is interpreted as
// [address]:port on which to open a TCP listening socket. TCP keep-alive is
// enabled in this case.
//
// If the address string starts with "unix:", the rest is interpreted the path
// to a UNIX domain socket to listen on.
//
// If neither prefix is present, "tcp:" is assumed.
func Listen(address string) (net.Listener, error) {
	network := "tcp"
	proto, rest, ok := strings.Cut(address, ":")
	if ok {
		switch proto {
		case "unix":
			network = "unix"
			address = rest
		case "tcp":
			address = rest
		}
	}
	return lc.Listen(context.Background(), network, address)
}

// ListenOnRandomPort selects a random local TCP port and installs a listener on
// it with TCP keep-alive enabled
func ListenOnRandomPort() net.Listener {
	return must.OK1(Listen("localhost:"))
}

// ListenUDP opens a UDP socket for a QUIC endpoint.
//
// A positive bufferSize is applied to both the kernel receive and send buffers.
// The kernel may clamp it; the effective receive buffer size is returned.
func ListenUDP(address string, bufferSize int) (*net.UDPConn, int, error) {
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, 0, err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, 0, err
	}
	if bufferSize > 0 {
		if err := conn.SetReadBuffer(bufferSize); err != nil {
			_ = conn.Close()
			return nil, 0, fmt.Errorf("failed to set receive buffer: %w", err)
		}
		if err := conn.SetWriteBuffer(bufferSize); err != nil {
			_ = conn.Close()
			return nil, 0, fmt.Errorf("failed to set send buffer: %w", err)
		}
	}
	size, err := receiveBufferSize(conn)
	if err != nil {
		_ = conn.Close()
		return nil, 0, err
	}
	return conn, size, nil
}

// ListenUDPOnRandomPort opens a UDP socket on a random local port
func ListenUDPOnRandomPort() *net.UDPConn {
	conn, _, err := ListenUDP("localhost:0", 0)
	must.OK(err)
	return conn
}

func receiveBufferSize(conn *net.UDPConn) (int, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return 0, err
	}
	var size int
	var sockErr error
	if err := raw.Control(func(fd uintptr) {
		size, sockErr = unix.GetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF)
	}); err != nil {
		return 0, err
	}
	if sockErr != nil {
		return 0, fmt.Errorf("failed to read receive buffer size: %w", sockErr)
	}
	return size, nil
}
