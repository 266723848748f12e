package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RPCCalls tracks read calls against the chain endpoint
	RPCCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stakezil_rpc_calls_total",
			Help: "Total number of chain RPC calls",
		},
		[]string{"method"},
	)

	// RPCErrors tracks failed chain calls
	RPCErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stakezil_rpc_errors_total",
			Help: "Total number of failed chain RPC calls",
		},
		[]string{"method"},
	)

	// PoolReadFailures counts pool reads degraded to zero
	PoolReadFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stakezil_pool_read_failures_total",
			Help: "Pool stake reads that failed and counted as zero",
		},
		[]string{"pool"},
	)

	// EligibilityChecks counts zero-fee checks by outcome
	EligibilityChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stakezil_eligibility_checks_total",
			Help: "Zero-fee eligibility checks",
		},
		[]string{"eligible"},
	)

	// FeeUpdates counts affiliate fee pushes into the widget
	FeeUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stakezil_fee_updates_total",
			Help: "Affiliate fee configurations pushed into the widget",
		},
		[]string{"percent"},
	)

	// WalletRegistrations counts external wallet registrations with the widget
	WalletRegistrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stakezil_wallet_registrations_total",
			Help: "External EVM wallet registrations issued to the widget",
		},
		[]string{"result"},
	)

	// PageSessions tracks connected dashboard pages
	PageSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stakezil_page_sessions",
			Help: "Connected dashboard pages",
		},
	)
)
