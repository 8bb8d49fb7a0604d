// Package client subscribes to a geyser server.
//
// A Client is a single QUIC connection. The subscriber sends its filters with
// Subscribe and receives every matching event as a message on its own
// stream; Run reassembles and decodes them. Messages arrive in completion
// order, which is not the order in which the server published them.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"syscall"

	"github.com/quic-go/quic-go"
	"github.com/ridge/geyser/compression"
	"github.com/ridge/geyser/event"
	"github.com/ridge/geyser/filter"
	"github.com/ridge/geyser/identity"
	"github.com/ridge/geyser/retry"
	"github.com/ridge/geyser/tlog"
	"github.com/ridge/geyser/tnet"
	"github.com/ridge/geyser/wire"
	"github.com/ridge/must/v2"
	"github.com/ridge/parallel"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// ErrClosed is returned after Close
var ErrClosed = errors.New("client closed")

// Client is a connection to a geyser server
type Client struct {
	config Config
	conn   quic.Connection
	server event.Pubkey
	none   compression.Codec

	running atomic.Bool
	closed  atomic.Bool

	fatalOnce sync.Once
	fatal     error
}

// Connect dials the server, retrying according to config.Dial
func Connect(ctx context.Context, address string, id identity.Keypair, config Config) (*Client, error) {
	config = config.WithDefaults()
	tlsConf, err := identity.ClientTLS(id, config.ServerPubkey)
	if err != nil {
		return nil, err
	}

	logger := tlog.Get(ctx).With(zap.String("server", address))
	conn, err := retry.Do1(ctx, config.Dial, func() (quic.Connection, error) {
		conn, err := quic.DialAddr(ctx, address, tlsConf, config.quicConfig())
		if err != nil {
			logger.Debug("Connection attempt failed", zap.Error(err))
			return nil, dialRetriable(err)
		}
		return conn, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", address, err)
	}

	server, err := identity.PeerPubkey(conn.ConnectionState().TLS)
	if err != nil {
		_ = conn.CloseWithError(quic.ApplicationErrorCode(wire.CloseProtocol), err.Error())
		return nil, err
	}
	logger.Info("Connected to geyser server", zap.Stringer("serverIdentity", server), zap.Stringer("identity", id))
	return &Client{
		config: config,
		conn:   conn,
		server: server,
		none:   must.OK1(compression.ForType(compression.None)),
	}, nil
}

// dialRetriable marks the failures of a connection attempt that are worth
// another attempt: the server not answering in time or not listening yet
func dialRetriable(err error) error {
	var (
		handshakeErr *quic.HandshakeTimeoutError
		idleErr      *quic.IdleTimeoutError
		resetErr     *quic.StatelessResetError
		netErr       net.Error
	)
	switch {
	case errors.As(err, &handshakeErr), errors.As(err, &idleErr), errors.As(err, &resetErr):
		return retry.Retriable(err)
	case errors.Is(err, syscall.ECONNREFUSED):
		return retry.Retriable(err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return retry.Retriable(err)
	}
	return err
}

// ServerPubkey returns the identity presented by the server
func (c *Client) ServerPubkey() event.Pubkey {
	return c.server
}

// LocalAddr returns the local address of the connection
func (c *Client) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// Subscribe sends the filters to the server. They replace any filters sent
// before.
func (c *Client) Subscribe(ctx context.Context, filters []filter.Filter) error {
	frame, err := wire.Encode(wire.FiltersMsg{Filters: filters}, c.none)
	if err != nil {
		return err
	}
	stream, err := c.conn.OpenUniStreamSync(ctx)
	if err != nil {
		return c.mapError(err)
	}
	if _, err := stream.Write(frame); err != nil {
		stream.CancelWrite(0)
		return c.mapError(err)
	}
	if err := stream.Close(); err != nil {
		return c.mapError(err)
	}
	tlog.Get(ctx).Debug("Subscribed", zap.Object("filters", wire.FiltersMsg{Filters: filters}))
	return nil
}

// Run receives messages from the server and writes them into the sink until
// the connection is closed.
//
// Always returns a non-nil error: ctx.Err(), ErrClosed after Close,
// wire.ErrClosed if the server closed the connection, a *wire.ErrProtocol if
// the server sent a malformed message, or the transport error.
//
// Run may not be called twice on the same client.
func (c *Client) Run(ctx context.Context, sink chan<- wire.Message) error {
	if !c.running.CompareAndSwap(false, true) {
		panic("client.Run called twice")
	}

	err := parallel.Run(ctx, func(ctx context.Context, spawn parallel.SpawnFn) error {
		spawn("accept", parallel.Fail, func(ctx context.Context) error {
			for {
				stream, err := c.conn.AcceptUniStream(ctx)
				if err != nil {
					return err
				}
				spawn("receive", parallel.Continue, func(ctx context.Context) error {
					return c.receive(ctx, stream, sink)
				})
			}
		})
		return nil
	})
	if c.fatal != nil {
		return c.fatal
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return c.mapError(err)
}

// receive reads one message. Streams reset by the server are skipped: the
// server repeats the message on a new stream.
func (c *Client) receive(ctx context.Context, stream quic.ReceiveStream, sink chan<- wire.Message) error {
	counter := &countingReader{r: stream}
	msg, err := wire.Decode(counter, c.config.MaxPayloadSize)
	if err == nil {
		if _, ok := msg.(wire.EventMessage); !ok {
			err = &wire.ErrProtocol{Reason: fmt.Sprintf("unexpected %s message from server", msg.Kind())}
		}
	}
	if err != nil {
		var perr *wire.ErrProtocol
		if errors.As(err, &perr) {
			c.fatalOnce.Do(func() { c.fatal = err })
			_ = c.conn.CloseWithError(quic.ApplicationErrorCode(wire.CloseProtocol), perr.Reason)
			return err
		}
		var streamErr *quic.StreamError
		if errors.As(err, &streamErr) {
			tlog.Get(ctx).Debug("Stream aborted by server", zap.Error(err))
			return nil
		}
		return err
	}
	if c.config.Stats != nil {
		c.config.Stats.Record(msg.(wire.EventMessage).Event(), counter.n)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case sink <- msg:
		return nil
	}
}

type countingReader struct {
	r io.Reader
	n int
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n += n
	return n, err
}

// mapError translates connection close errors
func (c *Client) mapError(err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := tnet.ApplicationClose(err); ok {
		if !appErr.Remote && c.closed.Load() {
			return ErrClosed
		}
		return wire.ErrClosed{
			Code:   wire.CloseCode(appErr.ErrorCode),
			Remote: appErr.Remote,
			Reason: appErr.ErrorMessage,
		}
	}
	return err
}

// Close closes the connection
func (c *Client) Close() error {
	c.closed.Store(true)
	return c.conn.CloseWithError(quic.ApplicationErrorCode(wire.CloseNormal), "")
}
