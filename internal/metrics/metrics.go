package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Payment sessions
	PaymentSessions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_sessions_total",
			Help: "Payment session attempts by final status",
		},
		[]string{"status"}, // success|failed|cancelled
	)
	PersistenceFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_persistence_failures_total",
			Help: "Failed persistence steps after a captured payment",
		},
		[]string{"step"}, // transaction|items|inventory
	)
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "payment_sessions_active",
			Help: "Payment sessions currently held in memory",
		},
	)

	// Gateway proxies
	GatewayRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Gateway proxy calls by service and status code",
		},
		[]string{"service", "status"},
	)
	GatewayLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_upstream_latency_seconds",
			Help:    "Latency of upstream gateway calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_rate_limited_total",
			Help: "Requests rejected by the gateway rate limiter",
		},
	)

	// HTTP API
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_requests_latency_seconds",
			Help:    "Latency of HTTP requests by route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
	HTTPInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "HTTP requests currently being served",
		},
	)

	// Worker queue
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)

	initOnce sync.Once
)

// Handler serves /metrics.
var Handler = promhttp.Handler

// Init registers collectors on the default registry. Safe to call twice.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			PaymentSessions,
			PersistenceFailures,
			ActiveSessions,
			GatewayRequests,
			GatewayLatency,
			RateLimited,
			WorkerQueueDepth,
			HTTPLatency,
			HTTPInFlight,
		)
	})
}
