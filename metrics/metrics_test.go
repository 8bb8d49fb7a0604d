package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestPrometheus(t *testing.T) {
	p := NewPrometheus()
	p.ConnectionOpened()
	p.ConnectionOpened()
	p.ConnectionClosed("overloaded")
	p.MessageSent("Account", 100)
	p.MessageSent("Account", 50)
	p.MessageSent("Slot", 20)
	p.QueueOutcome("superseded")
	p.QueueLength(7)
	p.EncodingFailed("Slot")
	p.HandlerPanicked()

	require.Equal(t, 1.0, testutil.ToFloat64(p.connections))
	require.Equal(t, 1.0, testutil.ToFloat64(p.closed.WithLabelValues("overloaded")))
	require.Equal(t, 2.0, testutil.ToFloat64(p.messagesSent.WithLabelValues("Account")))
	require.Equal(t, 150.0, testutil.ToFloat64(p.bytesSent.WithLabelValues("Account")))
	require.Equal(t, 7.0, testutil.ToFloat64(p.queueLength))
	require.Equal(t, 1.0, testutil.ToFloat64(p.queueOutcomes.WithLabelValues("superseded")))
	require.Equal(t, 1.0, testutil.ToFloat64(p.encodingErrors.WithLabelValues("Slot")))
	require.Equal(t, 1.0, testutil.ToFloat64(p.httpPanics))
}

func TestHandler(t *testing.T) {
	p := NewPrometheus()
	p.Overloaded()

	w := httptest.NewRecorder()
	p.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://localhost/metrics", nil))
	res := w.Result()
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "geyser_overloaded_total 1")
	require.Contains(t, string(body), "go_goroutines")
}
