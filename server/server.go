// Package server distributes geyser events to subscribers over QUIC.
//
// The server owns no producer logic: events are published into a
// queue.Queue by the caller and popped by the dispatcher, which encodes each
// event once and hands the frame to every session whose subscription matches.
// Every message travels on its own unidirectional stream.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/quic-go/quic-go"
	"github.com/ridge/geyser/admission"
	"github.com/ridge/geyser/compression"
	"github.com/ridge/geyser/identity"
	"github.com/ridge/geyser/queue"
	"github.com/ridge/geyser/tlog"
	"github.com/ridge/geyser/tnet"
	"github.com/ridge/geyser/wire"
	"github.com/ridge/parallel"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ConnectionID identifies a session for the lifetime of the server
type ConnectionID uint64

// Server accepts subscriber connections and delivers matching events
type Server struct {
	config Config
	queue  *queue.Queue
	codec  compression.Codec
	tls    *tls.Config
	global admission.Global

	mu       sync.Mutex
	sessions map[ConnectionID]*session
	nextID   ConnectionID
	addr     net.Addr
}

// New creates a server reading events from q
func New(config Config, q *queue.Queue) (*Server, error) {
	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}
	codec, err := compression.New(config.CompressionParameters.CompressionType)
	if err != nil {
		return nil, err
	}
	id := config.Identity
	if id == nil {
		generated, err := identity.Generate()
		if err != nil {
			return nil, err
		}
		id = &generated
	}
	tlsConf, err := identity.ServerTLS(*id)
	if err != nil {
		return nil, err
	}
	return &Server{
		config:   config,
		queue:    q,
		codec:    codec,
		tls:      tlsConf,
		sessions: map[ConnectionID]*session{},
	}, nil
}

// Config returns the effective configuration
func (s *Server) Config() Config {
	return s.config
}

// Run serves subscribers until the context is closed. Open connections are
// closed with wire.CloseShutdown.
//
// A socket passed in Config.Conn is not closed by Run and must stay open
// until Run returns.
func (s *Server) Run(ctx context.Context) error {
	conn := s.config.Conn
	var owned io.Closer
	if conn == nil {
		udp, bufferSize, err := tnet.ListenUDP(s.config.Address, s.config.QUICParameters.SocketBufferSize)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", s.config.Address, err)
		}
		tlog.Get(ctx).Debug("UDP socket opened", zap.Int("receiveBuffer", bufferSize))
		conn = udp
		owned = udp
	}
	transport := &quic.Transport{Conn: conn}
	listener, err := transport.Listen(s.tls, s.config.QUICConfig())
	if err != nil {
		if owned != nil {
			_ = owned.Close()
		}
		return fmt.Errorf("failed to start QUIC listener: %w", err)
	}

	s.mu.Lock()
	s.addr = listener.Addr()
	s.mu.Unlock()

	ctx = tlog.With(ctx, zap.Stringer("quicServer", listener.Addr()))
	q := s.config.QUICParameters
	tlog.Get(ctx).Info("Serving subscribers",
		zap.Int("maxConnections", q.MaxNumberOfConnections),
		zap.Int("maxStreamsPerClient", q.MaxNumberOfStreamsPerClient),
		zap.Stringer("compression", s.codec.Type()),
		zap.Bool("pacing", s.config.pacing()),
		zap.Bool("bbr", q.UseBBR),
		zap.Uint64("maxAckDelayMs", q.MaxAckDelay),
		zap.Uint64("ackExponent", q.AckExponent))

	return parallel.Run(ctx, func(ctx context.Context, spawn parallel.SpawnFn) error {
		spawn("accept", parallel.Fail, func(ctx context.Context) error {
			return s.accept(ctx, listener, spawn)
		})
		spawn("dispatch", parallel.Fail, s.dispatch)
		spawn("closer", parallel.Fail, func(ctx context.Context) error {
			<-ctx.Done()
			// connections, then the listener, then the transport: the
			// socket goes last
			s.shutdown()
			err := multierr.Combine(ctx.Err(), listener.Close(), transport.Close())
			if owned != nil {
				err = multierr.Append(err, owned.Close())
			}
			return err
		})
		if s.config.MetricsAddress != "" {
			httpServer, err := s.httpServer()
			if err != nil {
				return err
			}
			spawn("http", parallel.Fail, httpServer.Run)
		}
		return nil
	})
}

// Addr returns the listening address once Run has started, nil before
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

func (s *Server) accept(ctx context.Context, listener *quic.Listener, spawn parallel.SpawnFn) error {
	for {
		conn, err := listener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to accept connection: %w", err)
		}

		sess, err := s.add(ctx, conn)
		if err != nil {
			tlog.Get(ctx).Warn("Connection rejected", zap.Stringer("remoteAddr", conn.RemoteAddr()), zap.Error(err))
			s.config.Metrics.ConnectionRejected()
			_ = conn.CloseWithError(quic.ApplicationErrorCode(wire.CloseTooManyConnections), err.Error())
			continue
		}
		spawn(fmt.Sprintf("session-%d", sess.id), parallel.Continue, func(ctx context.Context) error {
			defer s.remove(sess.id)
			sess.run(ctx)
			return nil
		})
	}
}

var errTooManyConnections = errors.New("too many connections")

func (s *Server) add(ctx context.Context, conn quic.Connection) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sessions) >= s.config.QUICParameters.MaxNumberOfConnections {
		return nil, fmt.Errorf("%w: limit is %d", errTooManyConnections, s.config.QUICParameters.MaxNumberOfConnections)
	}
	s.nextID++
	sess := newSession(ctx, s, s.nextID, conn)
	s.sessions[sess.id] = sess
	s.config.Metrics.ConnectionOpened()
	return sess, nil
}

// shutdown closes every open connection ahead of the listener, so that
// subscribers see wire.CloseShutdown rather than the listener going away
func (s *Server) shutdown() {
	for _, sess := range s.snapshot() {
		sess.close(wire.CloseShutdown, "server shutting down")
	}
}

func (s *Server) remove(id ConnectionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// snapshot returns the current sessions ordered by ID
func (s *Server) snapshot() []*session {
	s.mu.Lock()
	sessions := maps.Values(s.sessions)
	s.mu.Unlock()

	slices.SortFunc(sessions, func(a, b *session) bool { return a.id < b.id })
	return sessions
}
