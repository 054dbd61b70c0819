package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records the STK push attempt lifecycle.
type PaymentMetrics struct {
	started    prometheus.Counter
	rejected   prometheus.Counter
	finished   *prometheus.CounterVec
	pollErrors prometheus.Counter
	expired    prometheus.Counter
	active     prometheus.Gauge
	duration   prometheus.Histogram
}

func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	started := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_attempts_started_total",
		Help:      "STK push attempts accepted by the gateway.",
	})
	rejected := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_push_rejected_total",
		Help:      "STK push requests the gateway refused synchronously.",
	})
	finished := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_attempts_finished_total",
		Help:      "Payment attempts by terminal outcome and failure reason.",
	}, []string{"outcome", "reason"})
	pollErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_poll_errors_total",
		Help:      "Status polls that failed transiently.",
	})
	expired := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_attempts_expired_total",
		Help:      "Finished attempts dropped after their retention period.",
	})
	active := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "payment_attempts_active",
		Help:      "Attempts currently polling.",
	})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "payment_attempt_duration_seconds",
		Help:      "Time from push acceptance to terminal outcome.",
		Buckets:   []float64{3, 6, 9, 15, 30, 60, 90, 120},
	})
	reg.MustRegister(started, rejected, finished, pollErrors, expired, active, duration)
	return &PaymentMetrics{
		started:    started,
		rejected:   rejected,
		finished:   finished,
		pollErrors: pollErrors,
		expired:    expired,
		active:     active,
		duration:   duration,
	}
}

func (m *PaymentMetrics) AttemptStarted() {
	if m == nil || m.started == nil {
		return
	}
	m.started.Inc()
	m.active.Inc()
}

// AttemptFinished is called once per attempt that left pending, including closes.
func (m *PaymentMetrics) AttemptFinished(outcome, reason string, elapsed time.Duration) {
	if m == nil || m.finished == nil {
		return
	}
	m.finished.WithLabelValues(normalizeLabel(outcome), reason).Inc()
	m.active.Dec()
	m.duration.Observe(elapsed.Seconds())
}

// PushRejected counts attempts that never reached pending.
func (m *PaymentMetrics) PushRejected() {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.Inc()
}

func (m *PaymentMetrics) PollError() {
	if m == nil || m.pollErrors == nil {
		return
	}
	m.pollErrors.Inc()
}

func (m *PaymentMetrics) AttemptExpired() {
	if m == nil || m.expired == nil {
		return
	}
	m.expired.Inc()
}
