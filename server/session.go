package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ef-ds/deque"
	"github.com/quic-go/quic-go"
	"github.com/ridge/geyser/admission"
	"github.com/ridge/geyser/defaults"
	"github.com/ridge/geyser/event"
	"github.com/ridge/geyser/filter"
	"github.com/ridge/geyser/identity"
	"github.com/ridge/geyser/stats"
	"github.com/ridge/geyser/tlog"
	"github.com/ridge/geyser/tnet"
	"github.com/ridge/geyser/wire"
	"github.com/ridge/parallel"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// outgoing is an encoded event waiting for delivery
type outgoing struct {
	event event.Event
	frame []byte
}

type session struct {
	id     ConnectionID
	server *Server
	conn   quic.Connection
	peer   event.Pubkey
	logger *zap.Logger

	budget       *admission.Budget
	subscription atomic.Pointer[filter.Subscription]
	sent         stats.Counters // per kind, logged at disconnect
	messagesSent atomic.Uint64
	bytesSent    atomic.Uint64

	outboxMu sync.Mutex
	outbox   deque.Deque
	notify   chan struct{}

	closeOnce   sync.Once
	closeReason string // close code name, or how the transport went away
}

func newSession(ctx context.Context, s *Server, id ConnectionID, conn quic.Connection) *session {
	peer, err := identity.PeerPubkey(conn.ConnectionState().TLS)
	logger := tlog.Get(ctx).With(zap.Uint64("connectionID", uint64(id)), zap.Stringer("remoteAddr", conn.RemoteAddr()))
	if err == nil {
		logger = logger.With(zap.Stringer("peer", peer))
	}
	return &session{
		id:     id,
		server: s,
		conn:   conn,
		peer:   peer,
		logger: logger,
		budget: admission.New(s.config.Admission(), &s.global),
		notify: make(chan struct{}, 1),
	}
}

// run serves the connection until it is closed by either side or the
// context is closed
func (s *session) run(ctx context.Context) {
	ctx = tlog.WithLogger(ctx, s.logger)
	s.logger.Info("Subscriber connected")

	err := parallel.Run(ctx, func(ctx context.Context, spawn parallel.SpawnFn) error {
		spawn("watch", parallel.Fail, s.watch)
		spawn("filters", parallel.Fail, s.receiveFilters)
		spawn("sender", parallel.Fail, func(ctx context.Context) error {
			return s.send(ctx, spawn)
		})
		return nil
	})

	s.budget.Close()
	s.server.config.Metrics.StreamsInFlight(s.server.global.InFlight())
	s.server.config.Metrics.ConnectionClosed(s.closeReason)

	fields := []zap.Field{zap.Object("sent", s.sent.Take()), zap.String("closeReason", s.closeReason)}
	if err != nil && !errors.Is(err, context.Canceled) {
		fields = append(fields, zap.Error(err))
	}
	s.logger.Info("Subscriber disconnected", fields...)
}

// watch ends the session when the connection goes away, and closes the
// connection when the server shuts down
func (s *session) watch(ctx context.Context) error {
	select {
	case <-s.conn.Context().Done():
	case <-ctx.Done():
		if s.conn.Context().Err() == nil {
			s.close(wire.CloseShutdown, "server shutting down")
			return ctx.Err()
		}
	}
	cause := context.Cause(s.conn.Context())
	s.closeOnce.Do(func() {
		s.closeReason = transportCloseReason(cause)
	})
	return cause
}

func transportCloseReason(err error) string {
	var idleErr *quic.IdleTimeoutError
	if appErr, ok := tnet.ApplicationClose(err); ok && appErr.Remote {
		return "closed by peer: " + wire.CloseCode(appErr.ErrorCode).String()
	}
	if errors.As(err, &idleErr) {
		return "idle timeout"
	}
	return "transport error"
}

// close closes the connection with the code. Only the first call counts.
func (s *session) close(code wire.CloseCode, reason string) {
	s.closeOnce.Do(func() {
		s.closeReason = code.String()
		_ = s.conn.CloseWithError(quic.ApplicationErrorCode(code), reason)
	})
}

// fail drops the connection because of err
func (s *session) fail(code wire.CloseCode, err error) {
	s.logger.Warn("Dropping subscriber", zap.Stringer("closeCode", code), zap.Error(err))
	switch code {
	case wire.CloseOverloaded:
		s.server.config.Metrics.Overloaded()
	case wire.CloseProtocol:
		s.server.config.Metrics.ProtocolError()
	case wire.CloseDeliveryFailed:
		s.server.config.Metrics.DeliveryFailed()
	}
	s.close(code, err.Error())
}

// receiveFilters reads subscription updates sent by the client, one
// FiltersMsg per stream. Every update replaces the previous subscription.
func (s *session) receiveFilters(ctx context.Context) error {
	for {
		stream, err := s.conn.AcceptUniStream(ctx)
		if err != nil {
			return err
		}
		msg, err := wire.Decode(stream, defaults.MaxPayloadSize)
		if err != nil {
			var perr *wire.ErrProtocol
			if errors.As(err, &perr) {
				s.fail(wire.CloseProtocol, err)
				return err
			}
			if tnet.IsConnectionGone(err) {
				return err
			}
			s.logger.Debug("Filter stream aborted", zap.Error(err))
			continue
		}
		filters, ok := msg.(wire.FiltersMsg)
		if !ok {
			err := fmt.Errorf("unexpected %s message from subscriber", msg.Kind())
			s.fail(wire.CloseProtocol, err)
			return err
		}
		sub := filter.Compile(filters.Filters)
		s.subscription.Store(sub)
		s.server.config.Metrics.SubscriptionUpdated()
		s.logger.Info("Subscription updated", zap.Object("subscription", sub))
	}
}

// matches reports whether the event should be delivered on this session
func (s *session) matches(e event.Event) bool {
	sub := s.subscription.Load()
	return sub != nil && sub.Matches(e)
}

// enqueue hands a message to the session without blocking. A session that
// has no stream budget left is dropped.
func (s *session) enqueue(o outgoing) {
	if err := s.budget.Reserve(); err != nil {
		if errors.Is(err, admission.ErrOverloaded) {
			s.fail(wire.CloseOverloaded, err)
		}
		return
	}

	s.outboxMu.Lock()
	s.outbox.PushBack(o)
	s.outboxMu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *session) next(ctx context.Context) (outgoing, error) {
	for {
		s.outboxMu.Lock()
		o, ok := s.outbox.PopFront()
		s.outboxMu.Unlock()
		if ok {
			return o.(outgoing), nil
		}

		select {
		case <-ctx.Done():
			return outgoing{}, ctx.Err()
		case <-s.notify:
		}
	}
}

// send admits queued messages in order and starts one delivery per message
func (s *session) send(ctx context.Context, spawn parallel.SpawnFn) error {
	var limiter *rate.Limiter
	if s.server.config.pacing() {
		limiter = rate.NewLimiter(rate.Limit(s.server.config.QUICParameters.StreamOpenRate), defaultStreamOpenBurst)
	}

	for {
		o, err := s.next(ctx)
		if err != nil {
			return err
		}
		if err := s.budget.Admit(ctx); err != nil {
			s.budget.Cancel()
			if errors.Is(err, admission.ErrOverloaded) {
				s.fail(wire.CloseOverloaded, err)
			}
			return err
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				s.budget.Release()
				return err
			}
		}
		s.server.config.Metrics.StreamsInFlight(s.server.global.InFlight())

		spawn("deliver", parallel.Continue, func(ctx context.Context) error {
			defer s.budget.Release()
			s.deliver(ctx, o)
			return nil
		})
	}
}
