package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind identifies the business reason of a ledger entry.
// The sign applied during balance aggregation is implied by the kind,
// amounts are never stored negative.
type TransactionKind string

const (
	KindCreditDeposit   TransactionKind = "credit_deposit"
	KindCreditReferral  TransactionKind = "credit_referral"
	KindDebitWithdrawal TransactionKind = "debit_withdrawal"
	KindDebitPurchase   TransactionKind = "debit_purchase"
)

// TransactionKinds lists every valid kind.
var TransactionKinds = []TransactionKind{
	KindCreditDeposit,
	KindCreditReferral,
	KindDebitWithdrawal,
	KindDebitPurchase,
}

// Valid reports whether k is one of the known kinds.
func (k TransactionKind) Valid() bool {
	switch k {
	case KindCreditDeposit, KindCreditReferral, KindDebitWithdrawal, KindDebitPurchase:
		return true
	}
	return false
}

// IsCredit reports whether the kind adds to the balance.
func (k TransactionKind) IsCredit() bool {
	return k == KindCreditDeposit || k == KindCreditReferral
}

// Signed returns amount with the sign implied by the kind.
func (k TransactionKind) Signed(amount decimal.Decimal) decimal.Decimal {
	if k.IsCredit() {
		return amount
	}
	return amount.Neg()
}

// TransactionStatus is the lifecycle state of a ledger entry.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
	StatusCancelled TransactionStatus = "cancelled"
)

// transactionTransitions is the only set of legal status edges.
// Completed, Failed and Cancelled are terminal.
var transactionTransitions = map[TransactionStatus][]TransactionStatus{
	StatusPending: {StatusCompleted, StatusFailed, StatusCancelled},
}

// Valid reports whether s is one of the known statuses.
func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is a legal edge.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	for _, allowed := range transactionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Metadata keys written by the engine.
const (
	MetaSource              = "source"
	MetaInvestmentID        = "investmentId"
	MetaGrantDate           = "grantDate"
	MetaDayNumber           = "dayNumber"
	MetaProductID           = "productId"
	MetaWithdrawalRequestID = "withdrawalRequestId"
	MetaReason              = "reason"
	MetaReferredAccount     = "referredAccount"
	MetaTriggeringTxID      = "triggeringTransactionId"
	MetaTax                 = "tax"
	MetaNetAmount           = "netAmount"
)

// Metadata source values.
const (
	SourceAccrual          = "accrual"
	SourcePurchase         = "purchase"
	SourceWithdrawal       = "withdrawal"
	SourceWithdrawalRefund = "withdrawal_refund"
	SourceReferral         = "referral"
	SourceRecharge         = "recharge"
)

// Transaction is a single immutable entry in the ledger.
// Once Completed, Account, Kind and Amount never change.
type Transaction struct {
	ID          string            `json:"id"`
	Account     string            `json:"account"`
	Kind        TransactionKind   `json:"kind"`
	Amount      decimal.Decimal   `json:"amount"`
	Status      TransactionStatus `json:"status"`
	ExternalRef string            `json:"externalRef,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// SignedAmount returns the contribution of t to its account balance.
// Non-completed transactions contribute zero.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.Status != StatusCompleted {
		return decimal.Zero
	}
	return t.Kind.Signed(t.Amount)
}

// SamePayload reports whether two transactions describe the same money movement.
// Used to tell an idempotent retry from an id collision.
func (t Transaction) SamePayload(other Transaction) bool {
	return t.Account == other.Account &&
		t.Kind == other.Kind &&
		t.Amount.Equal(other.Amount)
}

// TransactionFilter narrows a history query. Zero values mean "no filter".
type TransactionFilter struct {
	Kinds    []TransactionKind
	Statuses []TransactionStatus
	From     time.Time
	To       time.Time
	Limit    int
}

// Balance is the derived balance of an account at a point in time.
type Balance struct {
	Account   string          `json:"account"`
	Balance   decimal.Decimal `json:"balance"`
	AsOf      time.Time       `json:"asOf"`
	FromCache bool            `json:"fromCache,omitempty"`
}
