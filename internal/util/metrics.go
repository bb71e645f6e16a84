package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PaymentsVerifiedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_verified_total",
		Help: "Total number of payments verified against the gateway",
	})

	PaymentVerificationFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_verification_failed_total",
		Help: "Total number of failed payment verifications",
	}, []string{"reason"})

	OrdersFinalizedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_finalized_total",
		Help: "Total number of orders created from verified payments",
	})

	FinalizeFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finalize_failed_total",
		Help: "Total number of failed finalize attempts",
	}, []string{"reason"})

	DuplicateReferencesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duplicate_references_total",
		Help: "Total number of finalize calls replaying an already-settled reference",
	})

	DiscountsRedeemedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discounts_redeemed_total",
		Help: "Total number of discount codes redeemed",
	})

	DiscountRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discount_rejections_total",
		Help: "Total number of discount codes that failed validation at apply time",
	}, []string{"reason"})

	ReconciliationsOpenedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reconciliations_opened_total",
		Help: "Total number of reconciliation records opened for degraded finalizations",
	}, []string{"kind"})

	ReconciliationsResolvedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reconciliations_resolved_total",
		Help: "Total number of reconciliation records repaired by the worker",
	}, []string{"kind"})

	GatewayVerifyLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gateway_verify_latency_seconds",
		Help:    "Latency of gateway transaction verification calls",
		Buckets: prometheus.DefBuckets,
	})

	FinalizeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "finalize_latency_seconds",
		Help:    "End-to-end latency of the finalize saga",
		Buckets: prometheus.DefBuckets,
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
