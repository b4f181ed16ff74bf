package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the domain counters exported at /metrics.
type Metrics struct {
	TransactionsCommitted prometheus.Counter
	TransactionsReverted  prometheus.Counter
	AuditFailures         prometheus.Counter
}

// NewMetrics registers the domain counters with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TransactionsCommitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "smartledger_transactions_committed_total",
			Help: "Transactions committed, including replacements from edits.",
		}),
		TransactionsReverted: factory.NewCounter(prometheus.CounterOpts{
			Name: "smartledger_transactions_reverted_total",
			Help: "Transactions reverted and deleted.",
		}),
		AuditFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "smartledger_audit_failures_total",
			Help: "Groups whose stored state failed invariant verification.",
		}),
	}
}
