package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"example.com/mediagate/internal/logger"
	"example.com/mediagate/internal/metrics"
)

// statusRecorder captures the status code and byte count written to a
// response for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (sr *statusRecorder) WriteHeader(status int) {
	if sr.status == 0 {
		sr.status = status
	}
	sr.ResponseWriter.WriteHeader(status)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += int64(n)
	return n, err
}

// Flush forwards to the underlying writer so the reverse proxy can stream
// backend responses incrementally.
func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// instrument wraps the gateway with the request middleware chain:
// panic recovery, request id assignment, access logging and metrics.
func instrument(g *Gateway, lg *logger.Logger, m *metrics.Metrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", requestID)
		r.Header.Set("X-Request-Id", requestID)

		kind := g.Classify(r.URL.Path).Kind

		if m != nil {
			m.InFlight.Inc()
			defer m.InFlight.Dec()
		}

		rec := &statusRecorder{ResponseWriter: w}

		defer func() {
			if err := recover(); err != nil {
				lg.Error("panic while handling request", logger.LogFields{
					"request_id": requestID,
					"path":       r.URL.Path,
					"panic":      err,
				})
				if rec.status == 0 {
					http.Error(rec, "Internal Server Error", http.StatusInternalServerError)
				}
			}

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)
			lg.Access(logger.AccessEntry{
				RequestID:  requestID,
				RemoteAddr: r.RemoteAddr,
				Method:     r.Method,
				Path:       r.URL.Path,
				Query:      r.URL.RawQuery,
				Status:     status,
				Bytes:      rec.bytes,
				Duration:   elapsed,
				UserAgent:  r.UserAgent(),
			})
			if m != nil {
				m.RequestsTotal.WithLabelValues(kind.String(), metrics.StatusClass(status)).Inc()
				m.RequestDuration.WithLabelValues(kind.String()).Observe(elapsed.Seconds())
			}
		}()

		g.ServeHTTP(rec, r)
	})
}
