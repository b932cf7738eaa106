package request

import "github.com/shopspring/decimal"

type SubmitWithdrawalRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	PIN            string          `json:"pin"`
	PayoutMethodID string          `json:"payoutMethodId"`
}

type ApproveWithdrawalRequest struct {
	ExternalRef string `json:"externalRef"`
}

type RejectWithdrawalRequest struct {
	Reason string `json:"reason"`
}

type AddPayoutMethodRequest struct {
	Type        string `json:"type"`
	Destination string `json:"destination"`
}

type SetCredentialRequest struct {
	PIN string `json:"pin"`
}
