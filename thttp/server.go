package thttp

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/ridge/geyser/tlog"
	"github.com/ridge/must/v2"
	"github.com/ridge/parallel"
	"go.uber.org/zap"
)

const (
	// Scrapes and status polls are short: anything still running after
	// this long is cut off
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// Server serves the operational endpoints on a listener it owns
type Server struct {
	listener net.Listener
	handler  http.Handler
}

// NewServer creates a Server. The listener is closed when Run returns.
func NewServer(listener net.Listener, handler http.Handler) *Server {
	return &Server{
		listener: listener,
		handler:  handler,
	}
}

// Run serves requests until the context is closed, then lets the requests in
// progress finish for up to shutdownTimeout
func (s *Server) Run(ctx context.Context) error {
	ctx = tlog.With(ctx, zap.Stringer("httpServer", s.listener.Addr()))
	logger := tlog.Get(ctx)

	// Request contexts outlive ctx by the shutdown period
	reqCtx, reqCancel := context.WithCancel(context.WithoutCancel(ctx))
	defer reqCancel()

	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          must.OK1(zap.NewStdLogAt(logger, zap.WarnLevel)),
		BaseContext:       func(net.Listener) context.Context { return reqCtx },
		ConnContext: func(ctx context.Context, conn net.Conn) context.Context {
			return tlog.With(ctx, zap.Stringer("remoteAddr", conn.RemoteAddr()))
		},
	}

	return parallel.Run(ctx, func(ctx context.Context, spawn parallel.SpawnFn) error {
		spawn("serve", parallel.Fail, func(ctx context.Context) error {
			logger.Info("Serving operational endpoints")
			err := server.Serve(s.listener)
			// ErrServerClosed is the result of Shutdown below, which only
			// happens once ctx is closed
			if errors.Is(err, http.ErrServerClosed) && ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		})
		spawn("shutdown", parallel.Fail, func(ctx context.Context) error {
			<-ctx.Done()
			if err := s.shutdown(reqCtx, server); err != nil {
				return err
			}
			return ctx.Err()
		})
		return nil
	})
}

func (s *Server) shutdown(reqCtx context.Context, server *http.Server) error {
	logger := tlog.Get(reqCtx)
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(reqCtx, shutdownTimeout)
	defer cancel()

	// Errors other than the timeout come from closing the listener, which
	// does not matter any more
	if err := server.Shutdown(shutdownCtx); err != nil && shutdownCtx.Err() != nil {
		logger.Info("Shutdown timed out, dropping requests in progress", zap.Error(err))
		_ = server.Close()
		return err
	}
	logger.Info("Shutdown complete")
	return nil
}

// ListenAddr returns the local address of the server's listener
func (s *Server) ListenAddr() net.Addr {
	return s.listener.Addr()
}

// Wrap installs a number of middleware on HTTP handler. The first
// middleware listed will be the first one to see the request.
func Wrap(handler http.Handler, mw ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	return handler
}
