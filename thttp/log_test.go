package thttp

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/ridge/geyser/test"
	"github.com/ridge/geyser/tlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLog(t *testing.T) {
	ctx := test.Context(t)

	handler := Log(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		_, err = w.Write(data)
		assert.NoError(t, err)
	}))

	r := httptest.NewRequest(http.MethodPost, "http://localhost", nil).WithContext(ctx)
	r.Body = io.NopCloser(strings.NewReader("hello"))
	res := TestCtx(ctx, handler, r)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	body, err := io.ReadAll(res.Body)
	assert.NoError(t, err)
	assert.Equal(t, []byte("hello"), body)
	res.Body.Close()
}

func TestLogRecordsRouteAndResponse(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ctx := tlog.WithLogger(context.Background(), zap.New(core))

	router := mux.NewRouter()
	router.Use(Log)
	router.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, err := w.Write([]byte("1234567"))
		assert.NoError(t, err)
	}).Name("status")

	res := TestCtx(ctx, router, httptest.NewRequest(http.MethodGet, "http://localhost/status", nil))
	require.Equal(t, http.StatusTeapot, res.StatusCode)
	res.Body.Close()

	ended := logs.FilterMessage("HTTP request handling ended").All()
	require.Len(t, ended, 1)
	fields := ended[0].ContextMap()
	require.Equal(t, "status", fields["route"])
	require.Equal(t, int64(http.StatusTeapot), fields["statusCode"])
	require.Equal(t, int64(7), fields["bytes"])
}
