package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.Login(true)
	m.Login(false)
	m.Login(false)
	m.Upload("video", "stored")
	m.Streamed(2048)
	m.SessionsSwept(3)
	m.ObserveRequest(http.MethodGet, "/course/{id}", http.StatusOK, 15*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.logins.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.logins.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploads.WithLabelValues("video", "stored")))
	assert.Equal(t, 2048.0, testutil.ToFloat64(m.streamed))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.sessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/course/{id}", "200")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Login(true)
		m.Upload("file", "stored")
		m.Streamed(1)
		m.SessionsSwept(1)
		m.ObserveRequest("GET", "/", 200, time.Millisecond)
	})
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.Login(true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `coursehub_logins_total{result="success"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
