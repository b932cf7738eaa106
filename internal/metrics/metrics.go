// Package metrics exposes the engine's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Accrual grant outcomes.
const (
	OutcomeGranted = "granted"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
	OutcomeExpired = "expired"
	OutcomeNotDue  = "not_due"
)

// Withdrawal outcomes besides the rejecting rule names.
const (
	OutcomeAccepted  = "accepted"
	OutcomeApproved  = "approved"
	OutcomeRejected  = "rejected"
	OutcomeCompleted = "completed"
)

// ─── Ledger ─────────────────────────────────────────────────────────────────

// TransactionsAppended counts newly created ledger entries by kind.
var TransactionsAppended = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ledger",
	Name:      "transactions_appended_total",
	Help:      "Total ledger transactions appended, by kind.",
}, []string{"kind"})

// ─── Accrual ────────────────────────────────────────────────────────────────

// AccrualGrants counts per-investment accrual outcomes.
var AccrualGrants = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ledger",
	Name:      "accrual_grants_total",
	Help:      "Per-investment accrual outcomes.",
}, []string{"outcome"})

// AccrualRunDuration tracks how long a full accrual run takes.
var AccrualRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "ledger",
	Name:      "accrual_run_duration_seconds",
	Help:      "Duration of a complete accrual run.",
	Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
})

// ─── Withdrawals & referrals ────────────────────────────────────────────────

// Withdrawals counts submissions and settlements by outcome.
// Rejected submissions are labelled with the violated rule.
var Withdrawals = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ledger",
	Name:      "withdrawals_total",
	Help:      "Withdrawal submissions and settlements, by outcome.",
}, []string{"outcome"})

// ReferralRewards counts referral rewards paid.
var ReferralRewards = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "ledger",
	Name:      "referral_rewards_total",
	Help:      "Total referral rewards credited.",
})
