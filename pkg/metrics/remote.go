package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RemoteMetrics records calls against the remote document store.
type RemoteMetrics struct {
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
}

// NewRemoteMetrics registers the remote call metrics on the provided registerer.
func NewRemoteMetrics(reg prometheus.Registerer) *RemoteMetrics {
	if reg == nil {
		return &RemoteMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "remote_request_duration_seconds",
		Help:    "Duration of document store requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"resource", "method"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "remote_requests_total",
		Help: "Document store requests by outcome.",
	}, []string{"resource", "method", "outcome"})
	reg.MustRegister(duration, requests)
	return &RemoteMetrics{
		duration: duration,
		requests: requests,
	}
}

// Observe records one completed request.
func (m *RemoteMetrics) Observe(resource, method string, duration time.Duration, err error) {
	if m == nil || m.requests == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.duration.WithLabelValues(normalizeLabel(resource), normalizeLabel(method)).Observe(duration.Seconds())
	m.requests.WithLabelValues(normalizeLabel(resource), normalizeLabel(method), outcome).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
