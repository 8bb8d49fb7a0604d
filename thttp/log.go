package thttp

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/ridge/geyser/tlog"
	"go.uber.org/zap"
)

// recorder remembers the status code and the body size of a response
type recorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func record(w http.ResponseWriter) *recorder {
	if rec, ok := w.(*recorder); ok {
		return rec
	}
	return &recorder{ResponseWriter: w}
}

func (r *recorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(p)
	r.bytes += n
	return n, err
}

// Flush lets streaming handlers such as promhttp push partial responses
func (r *recorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *recorder) written() bool {
	return r.status != 0
}

// Log is a middleware that logs before and after handling of each request.
// Requests matched by a gorilla/mux route are logged with the route name.
func Log(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("url", r.URL.String()),
		}
		if route := mux.CurrentRoute(r); route != nil && route.GetName() != "" {
			fields = append(fields, zap.String("route", route.GetName()))
		}
		ctx := tlog.With(r.Context(), fields...)
		logger := tlog.Get(ctx)
		logger.Debug("HTTP request handling started")
		rec := &recorder{ResponseWriter: w}
		next.ServeHTTP(rec, r.WithContext(ctx))
		logger.Debug("HTTP request handling ended",
			zap.Int("statusCode", rec.status),
			zap.Int("bytes", rec.bytes),
			zap.Duration("elapsed", time.Since(started)))
	})
}
