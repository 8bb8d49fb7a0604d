package thttp

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/ridge/geyser/tlog"
	"github.com/ridge/parallel"
	"go.uber.org/zap"
)

// Recover returns a middleware that keeps a panicking handler from taking the
// server down. The panic is logged with its stack and passed to report, which
// may be nil, and the client gets a 500 unless the response has already
// started. http.ErrAbortHandler is passed through to net/http.
func Recover(report func(parallel.ErrPanic)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := record(w)
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if err, ok := p.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(p)
				}
				errPanic := parallel.ErrPanic{Value: p, Stack: debug.Stack()}
				tlog.Get(r.Context()).Error("HTTP handler panicked",
					zap.String("method", r.Method),
					zap.String("url", r.URL.String()),
					zap.Error(errPanic),
					zap.ByteString("stack", errPanic.Stack))
				if report != nil {
					report(errPanic)
				}
				if !rec.written() {
					rec.WriteHeader(http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(rec, r)
		})
	}
}
