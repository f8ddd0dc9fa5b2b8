// Package telemetry records filter invocations as Prometheus metrics.
//
// A one-shot run writes the registry to a node_exporter textfile when it
// finishes; serve mode exposes it over HTTP.
package telemetry

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "image_filter"

// Outcome labels.
const (
	OutcomeSuccess = "success" // filter returned 0
	OutcomeFailure = "failure" // filter returned non-zero
	OutcomeError   = "error"   // host error, filter not called
)

// Metrics records filter calls. It is safe for concurrent use.
type Metrics struct {
	reg *prometheus.Registry

	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	pixels   *prometheus.CounterVec
}

// New creates the metrics on a private registry.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "Filter invocations by filter, source and outcome.",
		}, []string{"filter", "source", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Time spent inside process_image.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"filter", "source"}),
		pixels: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pixels_total",
			Help:      "Pixels handed to filters that returned success.",
		}, []string{"filter"}),
	}
	m.reg.MustRegister(m.calls, m.duration, m.pixels)
	return m
}

// RegisterRuntime adds Go runtime and process collectors. Only long-running
// processes use it; textfiles should not carry them.
func (m *Metrics) RegisterRuntime() {
	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Observe records one call. pixels is counted only on success.
func (m *Metrics) Observe(filter, source, outcome string, pixels int, d time.Duration) {
	m.calls.WithLabelValues(filter, source, outcome).Inc()
	if outcome == OutcomeError {
		return
	}
	m.duration.WithLabelValues(filter, source).Observe(d.Seconds())
	if outcome == OutcomeSuccess {
		m.pixels.WithLabelValues(filter).Add(float64(pixels))
	}
}

// WriteTextfile writes the registry atomically in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Expose serves /metrics on addr in the background. The returned server is
// shut down by the caller.
func (m *Metrics) Expose(addr string, log *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics listener stopped", "addr", addr, "err", err)
		}
	}()
	return srv
}
