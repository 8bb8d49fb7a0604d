package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/ridge/geyser/event"
	"github.com/ridge/geyser/queue"
	"github.com/ridge/geyser/thttp"
	"github.com/ridge/geyser/tlog"
	"github.com/ridge/geyser/tnet"
	"github.com/ridge/parallel"
	"go.uber.org/zap"
)

// Status is the operational state served on /status
type Status struct {
	Queue       QueueStatus        `json:"queue"`
	Connections []ConnectionStatus `json:"connections"`
	InFlight    int64              `json:"inFlight"`
}

// QueueStatus describes the ingest queue
type QueueStatus struct {
	Length   int         `json:"length"`
	Capacity int         `json:"capacity"`
	Stats    queue.Stats `json:"stats"`
}

// ConnectionStatus describes one subscriber connection
type ConnectionStatus struct {
	ID           ConnectionID `json:"id"`
	RemoteAddr   string       `json:"remoteAddr"`
	Peer         event.Pubkey `json:"peer"`
	Filters      int          `json:"filters"`
	Pending      int          `json:"pending"`
	InFlight     int          `json:"inFlight"`
	Deferred     int          `json:"deferred"`
	Peak         int          `json:"peak"`
	MessagesSent uint64       `json:"messagesSent"`
	BytesSent    uint64       `json:"bytesSent"`
}

// Status returns the current state of the server
func (s *Server) Status() Status {
	res := Status{
		Queue: QueueStatus{
			Length:   s.queue.Len(),
			Capacity: s.queue.Capacity(),
			Stats:    s.queue.Stats(),
		},
		Connections: []ConnectionStatus{},
		InFlight:    s.global.InFlight(),
	}
	for _, sess := range s.snapshot() {
		budget := sess.budget.Snapshot()
		cs := ConnectionStatus{
			ID:           sess.id,
			RemoteAddr:   sess.conn.RemoteAddr().String(),
			Peer:         sess.peer,
			Pending:      budget.Pending,
			InFlight:     budget.InFlight,
			Deferred:     budget.Deferred,
			Peak:         budget.Peak,
			MessagesSent: sess.messagesSent.Load(),
			BytesSent:    sess.bytesSent.Load(),
		}
		if sub := sess.subscription.Load(); sub != nil {
			cs.Filters = len(sub.Filters())
		}
		res.Connections = append(res.Connections, cs)
	}
	return res
}

type handlerProvider interface {
	Handler() http.Handler
}

// Router returns the handler of the operational endpoints
func (s *Server) Router() http.Handler {
	router := mux.NewRouter()
	router.Use(thttp.Log) // after route matching, so that the route name is logged
	router.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		if err := thttp.WriteJSON(w, r, http.StatusOK, s.Status()); err != nil {
			tlog.Get(r.Context()).Debug("Failed to write status", zap.Error(err))
		}
	}).Methods(http.MethodGet, http.MethodHead).Name("status")
	if p, ok := s.config.Metrics.(handlerProvider); ok {
		router.Handle("/metrics", p.Handler()).Methods(http.MethodGet).Name("metrics")
	}
	return router
}

func (s *Server) httpServer() (*thttp.Server, error) {
	listener, err := tnet.Listen(s.config.MetricsAddress)
	if err != nil {
		return nil, err
	}
	recoverPanics := thttp.Recover(func(parallel.ErrPanic) {
		s.config.Metrics.HandlerPanicked()
	})
	return thttp.NewServer(listener, thttp.Wrap(s.Router(), recoverPanics, thttp.CORS)), nil
}
