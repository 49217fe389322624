// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BreakerState is 0 for CLOSED, 1 for HALF_OPEN and 2 for OPEN.
	BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "reservation_breaker_state",
		Help: "Circuit breaker state per downstream service (0 closed, 1 half-open, 2 open)",
	}, []string{"service"})

	FallbackCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_fallback_calls_total",
		Help: "Calls answered by the fallback client instead of the live service",
	}, []string{"service", "operation"})

	Operations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_operations_total",
		Help: "Reservation lifecycle operations by outcome",
	}, []string{"operation", "outcome"})

	CatalogSyncFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservation_catalog_sync_failures_total",
		Help: "Room availability updates that could not be applied after a status change",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_http_requests_total",
		Help: "HTTP requests by route, method and status code",
	}, []string{"route", "method", "code"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reservation_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	}, []string{"route", "method"})
)
