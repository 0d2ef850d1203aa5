// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReservationOps counts reservation operations by kind and outcome
	// (created, conflict, updated, cancelled, deleted).
	ReservationOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arena",
		Name:      "reservation_operations_total",
		Help:      "Reservation operations by booking kind and outcome.",
	}, []string{"kind", "outcome"})

	LedgerOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arena",
		Name:      "ledger_operations_total",
		Help:      "Ledger mutations by operation and transaction type.",
	}, []string{"operation", "type"})

	PaymentAmount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arena",
		Name:      "payments_recorded_amount_total",
		Help:      "Sum of recorded payment amounts by method.",
	}, []string{"method"})

	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arena",
		Name:      "rate_limited_requests_total",
		Help:      "Requests rejected by the token bucket, by route.",
	}, []string{"route"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "arena",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method, route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)
