// Package metrics collects upstream request metrics and exposes them for Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records plex.tv and media-server calls. It satisfies services.Recorder.
type Collector struct {
	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	probeFailures prometheus.Counter
	logins        *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wrapped_upstream_requests_total",
			Help: "Upstream Plex requests by operation and HTTP status (0 for transport errors).",
		}, []string{"op", "status_code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wrapped_upstream_latency_seconds",
			Help:    "Upstream Plex request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		probeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wrapped_server_probe_failures_total",
			Help: "Servers skipped while listing music libraries.",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wrapped_logins_total",
			Help: "Completed logins by method and result.",
		}, []string{"method", "result"}),
	}

	reg.MustRegister(c.requests, c.latency, c.probeFailures, c.logins)
	return c
}

// ObserveRequest records one upstream call.
func (c *Collector) ObserveRequest(op string, statusCode int, elapsed time.Duration) {
	c.requests.WithLabelValues(op, strconv.Itoa(statusCode)).Inc()
	c.latency.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ProbeFailed counts a server whose libraries could not be listed. The name is not used as a label.
func (c *Collector) ProbeFailed(string) {
	c.probeFailures.Inc()
}

// RecordLogin counts a finished login attempt, e.g. ("pin", "ok").
func (c *Collector) RecordLogin(method, result string) {
	c.logins.WithLabelValues(method, result).Inc()
}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
