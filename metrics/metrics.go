// Package metrics holds the prometheus collectors used across the service.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	cartOperations      *prometheus.CounterVec
	expiredCartsCleared prometheus.Counter
	notifications       *prometheus.CounterVec
	httpRequests        *prometheus.CounterVec
	httpDurations       *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cartOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cart_operations_total",
				Help: "Cart engine operations by outcome.",
			},
			[]string{"operation", "outcome"},
		),
		expiredCartsCleared: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "expired_carts_cleared_total",
				Help: "Carts removed by the expiry sweep.",
			},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_total",
				Help: "Notification publish and delivery attempts by outcome.",
			},
			[]string{"event", "outcome"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP requests by method, route and status.",
			},
			[]string{"method", "route", "status"},
		),
		httpDurations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
	reg.MustRegister(
		m.cartOperations,
		m.expiredCartsCleared,
		m.notifications,
		m.httpRequests,
		m.httpDurations,
	)
	return m
}

func (m *Metrics) CartOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.cartOperations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) ExpiredCartsCleared(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.expiredCartsCleared.Add(float64(n))
}

func (m *Metrics) Notification(event, outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(event, outcome).Inc()
}

func (m *Metrics) HTTPRequest(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDurations.WithLabelValues(method, route).Observe(seconds)
}
