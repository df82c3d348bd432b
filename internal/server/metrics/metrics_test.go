package metrics

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Joins.Inc()
	m.Pushes.WithLabelValues("user").Add(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Joins))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Pushes.WithLabelValues("user")))

	assert.Panics(t, func() { New(reg) }, "double registration")
}

func TestRouter_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Broadcasts.Add(3)

	srv := httptest.NewServer(Router(reg, func(context.Context) error { return nil }))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := new(bytes.Buffer)
	_, err = body.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), "profilekeeper_broadcasts_total 3")
}

func TestRouter_Health(t *testing.T) {
	healthy := true
	h := Router(prometheus.NewRegistry(), func(context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("db down")
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	healthy = false
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "db down")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
