package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics for the relay
var (
	WebhookRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_webhook_requests_total",
			Help: "Total number of inbound webhooks by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	PurchaseAlertsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_purchase_alerts_total",
			Help: "Total number of purchase alerts published",
		},
	)

	ForwardFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_alert_forward_failures_total",
			Help: "Total number of purchase alerts that could not be forwarded",
		},
	)

	StreamLive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_stream_live",
			Help: "1 while the stream is live as last written by this instance",
		},
	)

	StreamConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "relay_stream_connections",
			Help: "Open push connections by transport",
		},
		[]string{"transport"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)
)

var registerOnce sync.Once

// Register registers all Prometheus metrics with the default registry.
// Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(WebhookRequestsTotal)
		prometheus.MustRegister(PurchaseAlertsTotal)
		prometheus.MustRegister(ForwardFailuresTotal)
		prometheus.MustRegister(StreamLive)
		prometheus.MustRegister(StreamConnections)
		prometheus.MustRegister(HTTPRequestDuration)
	})
}
