// Package metrics provides Prometheus metrics for the file server binary.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// File paths are unbounded, so requests are labelled by method and
	// status only.
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "servefs_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "servefs_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	bytesServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "servefs_http_response_bytes_total",
			Help: "Total body bytes written to clients",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRequest records a completed HTTP request.
func RecordRequest(method string, status int, bytes int64, duration time.Duration) {
	requestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	requestDuration.WithLabelValues(method).Observe(duration.Seconds())
	bytesServed.Add(float64(bytes))
}

// responseWriter wraps http.ResponseWriter to capture status and body size.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	bytes      int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(p []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(p)
	rw.bytes += int64(n)
	return n, err
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// ObserveFunc receives the outcome of each request after it completes.
type ObserveFunc func(r *http.Request, status int, bytes int64, duration time.Duration)

// Instrument returns middleware that records request metrics. If observe is
// non-nil it is invoked with the same outcome, which lets the caller hook in
// access logging without a second wrapper.
func Instrument(next http.Handler, observe ObserveFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		elapsed := time.Since(start)
		RecordRequest(r.Method, rw.statusCode, rw.bytes, elapsed)
		if observe != nil {
			observe(r, rw.statusCode, rw.bytes, elapsed)
		}
	})
}
