package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PaymentsCreated tracks created transactions per currency
	PaymentsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_created_total",
			Help: "Total number of payment transactions created",
		},
		[]string{"currency", "network"},
	)

	// PaymentsCompleted tracks completed transactions per network
	PaymentsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_completed_total",
			Help: "Total number of payment transactions completed",
		},
		[]string{"network"},
	)

	// PaymentsFailed tracks failed transactions by reason
	PaymentsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_failed_total",
			Help: "Total number of payment transactions failed",
		},
		[]string{"reason"},
	)

	// ComplianceRejections tracks gate rejections per stage
	ComplianceRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_compliance_rejections_total",
			Help: "Total number of compliance gate rejections",
		},
		[]string{"code"},
	)

	// ConfirmationLag tracks confirmations still outstanding per network
	ConfirmationLag = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "payments_confirmation_lag",
			Help: "Outstanding confirmations for the oldest processing transaction",
		},
		[]string{"network"},
	)

	// RPCCallsTotal tracks RPC calls per network and provider
	RPCCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_rpc_calls_total",
			Help: "Total number of RPC calls",
		},
		[]string{"network", "provider", "method"},
	)

	// RPCErrorsTotal tracks RPC errors per network and provider
	RPCErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_rpc_errors_total",
			Help: "Total number of RPC errors",
		},
		[]string{"network", "provider"},
	)

	// FeeSyncFailures tracks failed on-chain fee rate pushes
	FeeSyncFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payments_fee_sync_failures_total",
			Help: "Total number of failed on-chain fee rate pushes",
		},
	)

	// RPCLatency tracks RPC call latency
	RPCLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payments_rpc_latency_seconds",
			Help:    "RPC call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"network", "provider", "method"},
	)
)
