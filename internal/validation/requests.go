package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/ndewijer/investment-ledger/internal/api/request"
	"github.com/ndewijer/investment-ledger/internal/model"
)

// ValidateRecordDeposit validates a deposit registration.
//
// Required fields:
//   - id: Non-empty, used as the idempotency key
//   - account: Valid account identifier
//   - amount: Positive with at most two decimal places
//   - externalRef: Payment reference of the collaborator
func ValidateRecordDeposit(req request.RecordDepositRequest) error {
	var verr Error

	if strings.TrimSpace(req.ID) == "" {
		verr.reject("id", "id is required")
	}
	if err := ValidateAccount(req.Account); err != nil {
		verr.reject("account", err.Error())
	}
	if msg := checkAmount(req.Amount.IsPositive(), req.Amount.Exponent()); msg != "" {
		verr.reject("amount", msg)
	}
	if strings.TrimSpace(req.ExternalRef) == "" {
		verr.reject("externalRef", "externalRef is required")
	}
	return verr.orNil()
}

// ValidateTransitionStatus validates a status change and returns the target status.
// Only the terminal statuses completed, failed and cancelled are accepted.
func ValidateTransitionStatus(req request.TransitionStatusRequest) (model.TransactionStatus, error) {
	status := model.TransactionStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if !status.Valid() || status == model.StatusPending {
		return "", fieldError("status", fmt.Sprintf("invalid status: %s", req.Status))
	}
	return status, nil
}

// ValidatePurchase validates a purchase request.
func ValidatePurchase(req request.PurchaseRequest) error {
	var verr Error

	if strings.TrimSpace(req.ProductID) == "" {
		verr.reject("productId", "productId is required")
	}
	if strings.TrimSpace(req.IdempotencyKey) == "" {
		verr.reject("idempotencyKey", "idempotencyKey is required")
	}
	return verr.orNil()
}

// ValidateRegisterReferral validates a referral registration.
func ValidateRegisterReferral(req request.RegisterReferralRequest) error {
	if err := ValidateAccount(req.ReferrerAccount); err != nil {
		return fieldError("referrerAccount", err.Error())
	}
	return nil
}

// ValidateRunAccrual parses the optional grant date of a manual accrual run.
// A zero time is returned when no date was given.
func ValidateRunAccrual(req request.RunAccrualRequest, loc *time.Location) (time.Time, error) {
	if req.Date == "" {
		return time.Time{}, nil
	}
	date, err := time.ParseInLocation(model.DateLayout, req.Date, loc)
	if err != nil {
		return time.Time{}, fieldError("date", err.Error())
	}
	return date, nil
}

func checkAmount(positive bool, exponent int32) string {
	if !positive {
		return "amount must be positive"
	}
	if exponent < -2 {
		return "amount must have at most two decimal places"
	}
	return ""
}
