package app

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"freight/cmd/internal/realtime"
)

// Metrics owns the process-wide Prometheus registry and the collectors
// shared across the HTTP layer and the event bus.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	busEvents    prometheus.Counter
	busSubs      prometheus.Gauge
}

// NewMetrics builds a registry with runtime collectors plus the app's own.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "freight",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served, by method and status class.",
		}, []string{"method", "class"}),
		busEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "freight",
			Subsystem: "bus",
			Name:      "events_published_total",
			Help:      "Change events published to the in-process bus.",
		}),
		busSubs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "freight",
			Subsystem: "bus",
			Name:      "subscribers",
			Help:      "Stream subscribers currently attached to the bus.",
		}),
	}
	reg.MustRegister(m.httpRequests, m.busEvents, m.busSubs)
	return m
}

// Bus returns the collectors wired into the realtime bus.
func (m *Metrics) Bus() *realtime.BusMetrics {
	return &realtime.BusMetrics{
		EventsPublished: m.busEvents,
		Subscribers:     m.busSubs,
	}
}

// Handler exposes the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WithHTTP counts every served request by method and status class.
func (m *Metrics) WithHTTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lrw := &loggingResponseWriter{
			ResponseWriter: w,
			status:         http.StatusOK,
		}
		next.ServeHTTP(lrw, r)
		m.httpRequests.WithLabelValues(r.Method, statusClass(lrw.status)).Inc()
	})
}
