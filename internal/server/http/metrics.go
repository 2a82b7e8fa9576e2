package httpserver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the request instruments exported on /metrics.
type Metrics struct {
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	conflicts *prometheus.CounterVec
}

// NewRegistry returns a registry with the Go runtime and process collectors attached.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// NewMetrics registers the HTTP instruments on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "timekeeper",
				Name:      "http_requests_total",
				Help:      "HTTP requests by route template, method and status code.",
			},
			[]string{"route", "method", "code"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "timekeeper",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route template and method.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		conflicts: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "timekeeper",
				Name:      "entry_conflicts_total",
				Help:      "Requests rejected because of the entry state (active entry exists, already stopped).",
			},
			[]string{"route"},
		),
	}
}
