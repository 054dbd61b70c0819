package metrics

import "github.com/prometheus/client_golang/prometheus"

// CheckoutMetrics counts checkout submissions by payment method and outcome.
type CheckoutMetrics struct {
	checkouts *prometheus.CounterVec
}

func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkouts_total",
		Help:      "Checkout submissions by payment method and outcome.",
	}, []string{"method", "outcome"})
	reg.MustRegister(checkouts)
	return &CheckoutMetrics{checkouts: checkouts}
}

func (m *CheckoutMetrics) Observe(method, outcome string) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(method), normalizeLabel(outcome)).Inc()
}
