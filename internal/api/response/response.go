// Package response provides utilities for sending consistent HTTP responses.
// It includes helpers for JSON responses, standardized error responses and
// the mapping from service errors to status codes.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ndewijer/investment-ledger/internal/apperrors"
)

// ErrorResponse represents a structured error response returned by the API.
// The Details field is optional and can contain additional context about the error.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// PolicyErrorResponse is returned when a withdrawal or purchase is refused by a
// business rule. Rule is stable and machine readable; Details is meant for users.
type PolicyErrorResponse struct {
	Error   string `json:"error"`
	Rule    string `json:"rule"`
	Details string `json:"details"`
}

// RespondJSON sends a JSON response with the given status code.
// Sets the Content-Type header to application/json and writes the status code.
// If data is nil, only the status code is sent (useful for 204 No Content).
// Logs encoding errors but does not fail the response.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			zap.L().Warn("failed to encode JSON response", zap.Error(err))
		}
	}
}

// RespondError sends a structured error response with the given status code.
// The message should be a user-friendly error description.
// The details parameter can be an error string, additional context, or nil.
//
// Example:
//
//	response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
//	response.RespondError(w, http.StatusNotFound, "resource not found", "")
func RespondError(w http.ResponseWriter, status int, message string, details interface{}) {
	response := ErrorResponse{
		Error:   message,
		Details: details,
	}
	RespondJSON(w, status, response)
}

var (
	notFoundErrors = []error{
		apperrors.ErrTransactionNotFound,
		apperrors.ErrInvestmentNotFound,
		apperrors.ErrWithdrawalNotFound,
		apperrors.ErrReferralRewardNotFound,
		apperrors.ErrProductNotFound,
		apperrors.ErrPayoutMethodNotFound,
		apperrors.ErrCredentialNotFound,
	}
	conflictErrors = []error{
		apperrors.ErrInvalidTransition,
		apperrors.ErrIdempotencyKeyReuse,
		apperrors.ErrReferrerAlreadySet,
		apperrors.ErrAlreadyPurchased,
		apperrors.ErrDuplicateEntry,
		apperrors.ErrImmutableTransaction,
	}
	badRequestErrors = []error{
		apperrors.ErrInvalidAmount,
		apperrors.ErrInvalidKind,
		apperrors.ErrInvalidStatus,
		apperrors.ErrEmptyAccount,
		apperrors.ErrInvalidUUID,
		apperrors.ErrInvalidDateRange,
		apperrors.ErrSelfReferral,
		apperrors.ErrWeakSecret,
		apperrors.ErrInvalidPayoutMethod,
	}
)

// StatusFor returns the HTTP status code for a service error.
func StatusFor(err error) int {
	var pe *apperrors.PolicyError
	switch {
	case errors.As(err, &pe):
		return http.StatusUnprocessableEntity
	case isAny(err, notFoundErrors):
		return http.StatusNotFound
	case isAny(err, conflictErrors):
		return http.StatusConflict
	case isAny(err, badRequestErrors):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrProductUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// RespondServiceError maps err to a status code and writes it.
//
// Policy refusals become 422 with the violated rule, missing entities 404,
// state conflicts 409 and invalid input 400. An unreachable collaborator is a
// 503. Anything else is logged and reported as a retryable 500 without
// internal details.
func RespondServiceError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	switch status {
	case http.StatusUnprocessableEntity:
		var pe *apperrors.PolicyError
		errors.As(err, &pe)
		RespondJSON(w, status, PolicyErrorResponse{
			Error:   pe.Rule.Error(),
			Rule:    pe.RuleName(),
			Details: pe.Message,
		})
	case http.StatusServiceUnavailable:
		RespondError(w, status, apperrors.ErrProductUnavailable.Error(), apperrors.ErrRetryable.Error())
	case http.StatusInternalServerError:
		zap.L().Error("request failed", zap.Error(err))
		RespondError(w, status, apperrors.ErrRetryable.Error(), nil)
	default:
		RespondError(w, status, rootMessage(err), err.Error())
	}
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// rootMessage returns the message of the first sentinel err matches, so
// clients see "withdrawal request not found" rather than a wrapped chain.
func rootMessage(err error) string {
	for _, group := range [][]error{notFoundErrors, conflictErrors, badRequestErrors} {
		for _, target := range group {
			if errors.Is(err, target) {
				return target.Error()
			}
		}
	}
	return err.Error()
}
