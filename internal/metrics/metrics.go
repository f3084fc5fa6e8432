// Package metrics exposes Prometheus collectors for job processing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "widescreen"

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	jobsTotal        *prometheus.CounterVec
	jobsRunning      *prometheus.GaugeVec
	jobDuration      *prometheus.HistogramVec
	framesComposited prometheus.Counter
}

// New creates and registers the collectors, including the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Jobs that reached a terminal status.",
		}, []string{"kind", "status"}),
		jobsRunning: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_running",
			Help:      "Jobs currently running.",
		}, []string{"kind"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Wall time of finished jobs.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~34m
		}, []string{"kind", "status"}),
		framesComposited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_composited_total",
			Help:      "Frames padded to 16:9 and written to an encoder.",
		}),
	}

	m.registry.MustRegister(
		m.jobsTotal,
		m.jobsRunning,
		m.jobDuration,
		m.framesComposited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry backing the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// JobStarted marks a job of kind as running.
func (m *Metrics) JobStarted(kind string) {
	m.jobsRunning.WithLabelValues(kind).Inc()
}

// JobFinished records a job's terminal status and duration.
func (m *Metrics) JobFinished(kind, status string, elapsed time.Duration) {
	m.jobsRunning.WithLabelValues(kind).Dec()
	m.jobsTotal.WithLabelValues(kind, status).Inc()
	m.jobDuration.WithLabelValues(kind, status).Observe(elapsed.Seconds())
}

// FramesComposited adds n written frames.
func (m *Metrics) FramesComposited(n int) {
	if n > 0 {
		m.framesComposited.Add(float64(n))
	}
}
