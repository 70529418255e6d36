// Package telemetry exposes Prometheus metrics for the API.
package telemetry

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/isdelr/bizops-api/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	activityEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activity_events_total",
			Help: "Total number of recorded activity events",
		},
		[]string{"resource", "type"},
	)

	hostCPUPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "host_cpu_percent",
		Help: "Host CPU utilisation in percent",
	})

	hostMemoryPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "host_memory_percent",
		Help: "Host memory utilisation in percent",
	})
)

// Middleware records request counts and latency labelled by route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		path := routePattern(r)

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the metrics in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetHostUsage updates the host gauges.
func SetHostUsage(cpuPercent, memoryPercent float64) {
	hostCPUPercent.Set(cpuPercent)
	hostMemoryPercent.Set(memoryPercent)
}

// EventCounter counts activity events as they are published.
type EventCounter struct{}

// Publish increments the counter for the event's resource and type.
func (EventCounter) Publish(_ context.Context, event models.Event) error {
	activityEventsTotal.WithLabelValues(event.Resource, event.Type).Inc()
	return nil
}

// routePattern keeps label cardinality bounded by using the matched route
// instead of the raw path.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
