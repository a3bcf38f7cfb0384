package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Payment metrics
	PaymentInitTotal   *prometheus.CounterVec
	WebhookEventsTotal *prometheus.CounterVec
	OrdersPaidTotal    *prometheus.CounterVec
}

// New creates a new Metrics instance with all metrics registered.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "asoasiko"
	}

	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),

		PaymentInitTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "payment",
				Name:      "init_total",
				Help:      "Total number of payment initialization attempts",
			},
			[]string{"gateway", "outcome"}, // outcome: success, gateway_error, rejected
		),
		WebhookEventsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "payment",
				Name:      "webhook_events_total",
				Help:      "Total number of webhook deliveries processed",
			},
			[]string{"provider", "event", "outcome"}, // outcome: applied, duplicate, ignored, invalid_signature, error
		),
		OrdersPaidTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "order",
				Name:      "paid_total",
				Help:      "Total number of orders marked paid",
			},
			[]string{"method"},
		),
	}
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	statusStr := statusCodeToString(status)
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordPaymentInit records a payment initialization attempt.
func (m *Metrics) RecordPaymentInit(gateway, outcome string) {
	m.PaymentInitTotal.WithLabelValues(gateway, outcome).Inc()
}

// RecordWebhookEvent records a processed webhook delivery.
func (m *Metrics) RecordWebhookEvent(provider, event, outcome string) {
	m.WebhookEventsTotal.WithLabelValues(provider, event, outcome).Inc()
}

// RecordOrderPaid records an order transitioning to paid.
func (m *Metrics) RecordOrderPaid(method string) {
	m.OrdersPaidTotal.WithLabelValues(method).Inc()
}

// statusCodeToString converts an HTTP status code to a string category.
func statusCodeToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
