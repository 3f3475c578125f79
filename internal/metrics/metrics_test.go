package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestStatusClass(t *testing.T) {
	tests := map[int]string{
		200: "2xx",
		204: "2xx",
		301: "3xx",
		304: "3xx",
		404: "4xx",
		405: "4xx",
		500: "5xx",
		502: "5xx",
		504: "5xx",
	}
	for status, want := range tests {
		assert.Equal(t, want, StatusClass(status), status)
	}
}

func TestCountersIncrement(t *testing.T) {
	m := New()

	m.RequestsTotal.WithLabelValues("media", "2xx").Inc()
	m.RequestsTotal.WithLabelValues("media", "2xx").Inc()
	m.RequestsTotal.WithLabelValues("app", "5xx").Inc()
	m.BackendFailures.WithLabelValues("dial").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("media", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("app", "5xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BackendFailures.WithLabelValues("dial")))
}

func TestInFlightGauge(t *testing.T) {
	m := New()
	m.InFlight.Inc()
	m.InFlight.Inc()
	m.InFlight.Dec()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InFlight))
}

func TestHandlerScrape(t *testing.T) {
	m := New()
	m.RequestsTotal.WithLabelValues("static", "2xx").Inc()
	m.RequestDuration.WithLabelValues("static").Observe(0.01)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `gateway_requests_total{kind="static",status="2xx"} 1`)
	assert.Contains(t, body, "gateway_request_duration_seconds_bucket")
	assert.Contains(t, body, "gateway_in_flight_requests 0")
}

func TestIndependentRegistries(t *testing.T) {
	// Two Metrics values must not share counters.
	a, b := New(), New()
	a.RequestsTotal.WithLabelValues("app", "2xx").Inc()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.RequestsTotal.WithLabelValues("app", "2xx")))
}
