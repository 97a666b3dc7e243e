// Package metrics holds the Prometheus instruments of the image server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ProviderRequests *prometheus.CounterVec
	ProviderLatency  *prometheus.HistogramVec
	Downloads        *prometheus.CounterVec
	StoredBytes      *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
}

// New creates the metrics on a private registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ProviderRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "imageserver_provider_requests_total",
			Help: "Stock-photo provider searches by outcome",
		}, []string{"provider", "outcome"}), // outcome: ok, error, unavailable
		ProviderLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "imageserver_provider_request_seconds",
			Help:    "Latency of stock-photo provider searches",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		Downloads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "imageserver_downloads_total",
			Help: "Remote image downloads by outcome",
		}, []string{"outcome"}),
		StoredBytes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "imageserver_stored_bytes_total",
			Help: "Bytes written to the image tree",
		}, []string{"section"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "imageserver_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"method", "route", "status"}),
	}
}

// Handler exposes the registry for scraping
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveProvider records one provider search
func (m *Metrics) ObserveProvider(provider, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ProviderRequests.WithLabelValues(provider, outcome).Inc()
	if outcome == "ok" || outcome == "error" {
		m.ProviderLatency.WithLabelValues(provider).Observe(elapsed.Seconds())
	}
}

// IncDownloads records one download attempt
func (m *Metrics) IncDownloads(outcome string) {
	if m == nil {
		return
	}
	m.Downloads.WithLabelValues(outcome).Inc()
}

// AddStoredBytes records bytes persisted for a section
func (m *Metrics) AddStoredBytes(section string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.StoredBytes.WithLabelValues(section).Add(float64(n))
}

// IncHTTPRequests records one served request
func (m *Metrics) IncHTTPRequests(method, route, status string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
}
