package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// WithdrawalStatus is the settlement state of a withdrawal request.
type WithdrawalStatus string

const (
	WithdrawalPending   WithdrawalStatus = "pending"
	WithdrawalApproved  WithdrawalStatus = "approved"
	WithdrawalRejected  WithdrawalStatus = "rejected"
	WithdrawalCompleted WithdrawalStatus = "completed"
)

var withdrawalTransitions = map[WithdrawalStatus][]WithdrawalStatus{
	WithdrawalPending:  {WithdrawalApproved, WithdrawalRejected},
	WithdrawalApproved: {WithdrawalCompleted},
}

// Valid reports whether s is one of the known statuses.
func (s WithdrawalStatus) Valid() bool {
	switch s {
	case WithdrawalPending, WithdrawalApproved, WithdrawalRejected, WithdrawalCompleted:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is a legal edge.
func (s WithdrawalStatus) CanTransitionTo(next WithdrawalStatus) bool {
	for _, allowed := range withdrawalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// WithdrawalRequest is a payout awaiting human settlement. Funds were
// reserved by FundingTransactionID when the request was created.
type WithdrawalRequest struct {
	ID                   string           `json:"id"`
	Reference            string           `json:"reference"`
	Account              string           `json:"account"`
	RequestedAmount      decimal.Decimal  `json:"requestedAmount"`
	Tax                  decimal.Decimal  `json:"tax"`
	NetAmount            decimal.Decimal  `json:"netAmount"`
	Status               WithdrawalStatus `json:"status"`
	FundingTransactionID string           `json:"fundingTransactionId"`
	RefundTransactionID  string           `json:"refundTransactionId,omitempty"`
	PayoutMethodID       string           `json:"payoutMethodId"`
	PayoutType           PayoutType       `json:"payoutType"`
	PayoutDestination    string           `json:"payoutDestination"`
	ExternalRef          string           `json:"externalRef,omitempty"`
	RejectReason         string           `json:"rejectReason,omitempty"`
	BusinessDate         string           `json:"businessDate"`
	CreatedAt            time.Time        `json:"createdAt"`
	UpdatedAt            time.Time        `json:"updatedAt"`
}

// WithdrawalAllowance reports how much more an account may withdraw today.
type WithdrawalAllowance struct {
	Account    string          `json:"account"`
	Date       string          `json:"date"`
	DailyLimit decimal.Decimal `json:"dailyLimit"`
	Used       decimal.Decimal `json:"used"`
	Remaining  decimal.Decimal `json:"remaining"`
}

// PayoutType is the rail an external payout is sent over.
type PayoutType string

const (
	PayoutBank PayoutType = "bank"
	PayoutUPI  PayoutType = "upi"
)

// Valid reports whether t is a known payout rail.
func (t PayoutType) Valid() bool {
	return t == PayoutBank || t == PayoutUPI
}

// PayoutMethod is a settlement destination registered by an account.
// Destination is opaque to the engine and never format-validated.
type PayoutMethod struct {
	ID          string     `json:"id"`
	Account     string     `json:"account"`
	Type        PayoutType `json:"type"`
	Destination string     `json:"destination"`
	CreatedAt   time.Time  `json:"createdAt"`
}
