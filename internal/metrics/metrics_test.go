package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterServesMetricsAndHealth(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	runs := prometheus.NewCounter(prometheus.CounterOpts{Name: "jobscout_runs_started_total", Help: "runs"})
	reg.MustRegister(runs)
	runs.Inc()

	handler, err := NewRouter(reg)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "jobscout_runs_started_total 1")
	assert.Contains(t, body, `http_requests_total{code="200",method="GET"} 1`)
	assert.Contains(t, body, `http_requests_total{code="404",method="GET"} 1`)
	assert.Contains(t, body, `http_request_duration_seconds_count{method="GET",route="/healthz"} 1`)
}

func TestNewRouterRequiresRegistry(t *testing.T) {
	t.Parallel()

	_, err := NewRouter(nil)
	require.Error(t, err)
}

func TestServerStartAndShutdown(t *testing.T) {
	t.Parallel()

	srv, err := Start("127.0.0.1:0", prometheus.NewRegistry(), nil)
	require.NoError(t, err)

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, "ok", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
}
