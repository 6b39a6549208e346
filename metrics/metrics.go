// Package metrics exposes Prometheus collectors for statement execution,
// transactions and server connections.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StatementsTotal counts executed statements by kind and outcome.
	StatementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flatdb_statements_total",
			Help: "Total number of executed statements",
		},
		[]string{"statement", "outcome"},
	)
	// StatementDuration is the latency of direct statement execution.
	StatementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flatdb_statement_duration_seconds",
			Help:    "Statement execution latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"statement"},
	)
	// TransactionsTotal counts finished transactions (committed, rolled_back, discarded).
	TransactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flatdb_transactions_total",
			Help: "Total number of finished transactions",
		},
		[]string{"outcome"},
	)
	BufferedStatements = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "flatdb_buffered_statements",
			Help: "Statements currently held in open transaction buffers",
		},
	)
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "flatdb_active_connections",
			Help: "Open client connections",
		},
	)
)

const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeIgnored = "ignored"
)

// ObserveStatement records one executed statement.
func ObserveStatement(statement string, seconds float64, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	StatementsTotal.WithLabelValues(statement, outcome).Inc()
	StatementDuration.WithLabelValues(statement).Observe(seconds)
}
