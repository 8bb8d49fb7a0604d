package thttp

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/ridge/geyser/test"
	"github.com/ridge/geyser/tnet"
	"github.com/ridge/must/v2"
	"github.com/ridge/parallel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(ctx context.Context, t *testing.T, s *Server) *http.Response {
	res, err := http.DefaultClient.Do(must.OK1(http.NewRequestWithContext(ctx, http.MethodGet, "http://"+s.ListenAddr().String()+"/status", nil)))
	require.NoError(t, err)
	return res
}

func TestServer(t *testing.T) {
	group := test.Group(t)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := w.Write([]byte(`{"connections":[]}`))
		assert.NoError(t, err)
	})

	s := NewServer(tnet.ListenOnRandomPort(), Wrap(handler, Log, Recover(nil), CORS))
	group.Spawn("server", parallel.Fail, s.Run)

	res := get(group.Context(), t, s)
	require.Equal(t, http.StatusOK, res.StatusCode)
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.Equal(t, `{"connections":[]}`, string(body))
	res.Body.Close()
}

func TestShutdownWaitsForRequests(t *testing.T) {
	ctx, cancel := context.WithCancel(test.Context(t))
	defer cancel()

	started := make(chan struct{})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		time.Sleep(100 * time.Millisecond)
		_, err := w.Write([]byte("done"))
		assert.NoError(t, err)
	})

	s := NewServer(tnet.ListenOnRandomPort(), handler)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- s.Run(ctx)
	}()

	type result struct {
		res *http.Response
		err error
	}
	resCh := make(chan result, 1)
	go func() {
		req := must.OK1(http.NewRequestWithContext(test.Context(t), http.MethodGet, "http://"+s.ListenAddr().String()+"/status", nil))
		res, err := http.DefaultClient.Do(req)
		resCh <- result{res: res, err: err}
	}()

	<-started
	cancel()

	r := <-resCh
	require.NoError(t, r.err)
	res := r.res
	require.Equal(t, http.StatusOK, res.StatusCode)
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.Equal(t, "done", string(body))
	res.Body.Close()

	require.ErrorIs(t, <-serverErr, context.Canceled)
}
