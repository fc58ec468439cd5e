package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Total number of orders materialized after payment",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of failed order attempts",
	}, []string{"reason"})

	OrdersCancelledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Total number of cancelled orders",
	}, []string{"by"})

	OrdersConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_confirmed_total",
		Help: "Total number of orders confirmed by staff",
	})

	BookingsPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_placed_total",
		Help: "Total number of bookings created",
	})

	BookingsConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_confirmed_total",
		Help: "Total number of bookings confirmed by staff",
	})

	BookingsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookings_failed_total",
		Help: "Total number of failed booking attempts",
	}, []string{"reason"})

	StockShortfallsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_shortfalls_total",
		Help: "Total number of operations blocked by insufficient stock",
	})

	StockDeductionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stock_deduction_latency_seconds",
		Help:    "Latency of transactional stock deductions",
		Buckets: prometheus.DefBuckets,
	})

	PaymentVerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_verifications_total",
		Help: "Total number of gateway payment verifications",
	}, []string{"result"})

	GatewayOrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_orders_created_total",
		Help: "Total number of payment-gateway orders created",
	})

	GatewayCallLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gateway_call_latency_seconds",
		Help:    "Latency of payment-gateway HTTP calls",
		Buckets: prometheus.DefBuckets,
	})

	EmailsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "emails_sent_total",
		Help: "Total number of notification emails attempted",
	}, []string{"template", "result"})

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
