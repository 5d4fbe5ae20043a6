package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CheckoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkouts_total",
		Help: "Total number of invoices created at checkout",
	})

	CheckoutsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkouts_failed_total",
		Help: "Total number of failed checkouts",
	}, []string{"reason"})

	CheckoutLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_latency_seconds",
		Help:    "Latency of checkout processing",
		Buckets: prometheus.DefBuckets,
	})

	ReturnsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "returns_total",
		Help: "Total number of returns processed",
	})

	ReturnsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "returns_failed_total",
		Help: "Total number of failed returns",
	}, []string{"reason"})

	ReturnConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "return_conflicts_total",
		Help: "Total number of returns rejected because the invoice was already returned",
	})

	LoyaltyRedemptionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loyalty_redemptions_total",
		Help: "Total number of successful loyalty redemptions",
	})

	LoyaltyRedemptionsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loyalty_redemptions_failed_total",
		Help: "Total number of failed loyalty redemptions",
	}, []string{"reason"})

	LoyaltyPointsEarnedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loyalty_points_earned_total",
		Help: "Total loyalty points accrued across all customers",
	})

	RegisterOpensTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "register_opens_total",
		Help: "Total number of cash register days opened",
	})

	RegisterClosesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "register_closes_total",
		Help: "Total number of cash register days closed",
	})

	RegisterExpensesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "register_expenses_total",
		Help: "Total number of expenses recorded against the cash drawer",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
