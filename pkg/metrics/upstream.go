package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// UpstreamMetrics tracks calls to the marketplace API per target and operation.
type UpstreamMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func NewUpstreamMetrics(reg prometheus.Registerer) *UpstreamMetrics {
	if reg == nil {
		return &UpstreamMetrics{}
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_requests_total",
		Help:      "Marketplace API calls by target, operation and status (0 for transport errors).",
	}, []string{"target", "operation", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upstream_request_duration_seconds",
		Help:      "Marketplace API latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"target", "operation"})
	reg.MustRegister(requests, latency)
	return &UpstreamMetrics{requests: requests, latency: latency}
}

// ObserveUpstream satisfies the marketplace client's observer hook.
func (m *UpstreamMetrics) ObserveUpstream(target, operation string, status int, elapsed time.Duration) {
	if m == nil || m.requests == nil {
		return
	}
	target, operation = normalizeLabel(target), normalizeLabel(operation)
	m.requests.WithLabelValues(target, operation, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(target, operation).Observe(elapsed.Seconds())
}
