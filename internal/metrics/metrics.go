package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PurchaseOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ticketing",
		Name:      "purchase_outcomes_total",
		Help:      "Purchase attempts by outcome (success or denial reason).",
	}, []string{"outcome"})

	PurchaseDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ticketing",
		Name:      "purchase_duration_seconds",
		Help:      "End-to-end latency of purchase attempts.",
		Buckets:   prometheus.DefBuckets,
	})

	LedgerRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ticketing",
		Name:      "ledger_retries_total",
		Help:      "Storage operations retried after a transient conflict.",
	}, []string{"op"})

	Compensations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ticketing",
		Name:      "compensations_total",
		Help:      "Reservations compensated after issuance failure, by result.",
	}, []string{"result"})

	Reconciled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ticketing",
		Name:      "reconciled_reservations_total",
		Help:      "Reservations processed by the reconciler, by result.",
	}, []string{"result"})

	NotificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ticketing",
		Name:      "notification_failures_total",
		Help:      "Failed post-purchase notifications by sink.",
	}, []string{"sink"})
)
