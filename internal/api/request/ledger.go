package request

import "github.com/shopspring/decimal"

// RecordDepositRequest registers a pending recharge reported by the payment
// collaborator. ID doubles as the idempotency key of the deposit.
type RecordDepositRequest struct {
	ID          string          `json:"id"`
	Account     string          `json:"account"`
	Amount      decimal.Decimal `json:"amount"`
	ExternalRef string          `json:"externalRef"`
}

// TransitionStatusRequest moves a pending transaction to a terminal status.
type TransitionStatusRequest struct {
	Status string `json:"status"`
}

// RunAccrualRequest triggers an accrual run. Date defaults to today.
type RunAccrualRequest struct {
	Date string `json:"date,omitempty"`
}
