package apperrors

import (
	"errors"
	"fmt"
)

// Domain entity errors represent missing or invalid entities in the system.
// These errors indicate that a requested resource does not exist.
var (
	// ErrTransactionNotFound indicates that a ledger transaction with the given ID does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrInvestmentNotFound indicates that an investment with the given ID does not exist.
	ErrInvestmentNotFound = errors.New("investment not found")

	// ErrWithdrawalNotFound indicates that a withdrawal request with the given ID does not exist.
	ErrWithdrawalNotFound = errors.New("withdrawal request not found")

	// ErrReferralRewardNotFound indicates that a referral reward with the given ID does not exist.
	ErrReferralRewardNotFound = errors.New("referral reward not found")

	// ErrProductNotFound indicates that the catalog has no product with the given ID.
	ErrProductNotFound = errors.New("product not found")

	// ErrPayoutMethodNotFound indicates that no payout method with the given ID is owned by the account.
	ErrPayoutMethodNotFound = errors.New("payout method not found")

	// ErrCredentialNotFound indicates that the account never provisioned a withdrawal credential.
	ErrCredentialNotFound = errors.New("withdrawal credential not found")
)

// Withdrawal policy errors. Each identifies the first rule a withdrawal request violated.
var (
	ErrInvalidCredential   = errors.New("invalid withdrawal credential")
	ErrWindowClosed        = errors.New("withdrawal window closed")
	ErrBelowMinimum        = errors.New("amount below minimum withdrawal")
	ErrDailyLimitExceeded  = errors.New("daily withdrawal limit exceeded")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNoPayoutMethod      = errors.New("no payout method on file")
)

// Business logic errors represent validation failures or constraint violations.
// These errors indicate that an operation cannot be completed due to business rules.
var (
	// ErrInvalidAmount indicates that a monetary amount is zero, negative or unparsable.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInvalidKind indicates an unknown transaction kind.
	ErrInvalidKind = errors.New("invalid transaction kind")

	// ErrInvalidStatus indicates an unknown status value.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidTransition indicates a status change that is not an edge of the state machine,
	// or a transition that lost a race against another writer.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrEmptyAccount indicates that a required account identifier is empty.
	ErrEmptyAccount = errors.New("account cannot be empty")

	// ErrInvalidUUID indicates that a provided ID is not a valid UUID format.
	ErrInvalidUUID = errors.New("invalid UUID format")

	// ErrInvalidDateRange indicates that the provided date range is invalid.
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrSelfReferral indicates an account tried to refer itself.
	ErrSelfReferral = errors.New("account cannot refer itself")

	// ErrReferrerAlreadySet indicates the account already has a different referrer.
	ErrReferrerAlreadySet = errors.New("referrer already set")

	// ErrAlreadyPurchased indicates a referrer was registered for an account that has already completed a purchase.
	ErrAlreadyPurchased = errors.New("account has already completed a purchase")

	// ErrWeakSecret indicates a withdrawal PIN that is not 4 to 12 digits.
	ErrWeakSecret = errors.New("withdrawal PIN must be 4 to 12 digits")

	// ErrInvalidPayoutMethod indicates an unknown payout type or an empty destination.
	ErrInvalidPayoutMethod = errors.New("invalid payout method")
)

// Conflict errors are expected under concurrency and mean "already done".
var (
	// ErrDuplicateEntry indicates that an entity with the same unique constraint already exists.
	ErrDuplicateEntry = errors.New("duplicate entry")

	// ErrIdempotencyKeyReuse indicates a transaction id was reused with a different payload.
	ErrIdempotencyKeyReuse = errors.New("transaction id reused with different payload")
)

// Dependency errors represent failures of collaborators outside the ledger.
var (
	// ErrProductUnavailable indicates the product catalog could not serve a lookup.
	ErrProductUnavailable = errors.New("product catalog unavailable")
)

// Operation failure errors represent system-level failures when retrieving or processing data.
var (
	ErrFailedToRetrieveBalance      = errors.New("failed to retrieve balance")
	ErrFailedToRetrieveTransactions = errors.New("failed to retrieve transactions")
	ErrFailedToRetrieveInvestments  = errors.New("failed to retrieve investments")
	ErrFailedToRetrieveGrants       = errors.New("failed to retrieve income grants")
	ErrFailedToRetrieveWithdrawals  = errors.New("failed to retrieve withdrawals")
	ErrFailedToRetrieveReferrals    = errors.New("failed to retrieve referral rewards")
	ErrFailedToRunAccrual           = errors.New("failed to run accrual")
	ErrRetryable                    = errors.New("temporary failure, please retry")
)

// Data integrity errors represent attempts to rewrite history.
var (
	// ErrImmutableTransaction indicates an attempt to change or delete a completed entry.
	ErrImmutableTransaction = errors.New("completed transactions are immutable")

	// ErrDataInconsistency indicates that stored data is in an inconsistent state.
	ErrDataInconsistency = errors.New("data inconsistency detected")
)

// PolicyError reports the withdrawal rule that rejected a request together
// with a message suitable for end users.
type PolicyError struct {
	Rule    error
	Message string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Message)
}

func (e *PolicyError) Unwrap() error {
	return e.Rule
}

// RuleName returns a stable machine-readable identifier for the violated rule.
func (e *PolicyError) RuleName() string {
	switch e.Rule {
	case ErrInvalidCredential:
		return "InvalidCredential"
	case ErrWindowClosed:
		return "WindowClosed"
	case ErrBelowMinimum:
		return "BelowMinimum"
	case ErrDailyLimitExceeded:
		return "DailyLimitExceeded"
	case ErrInsufficientBalance:
		return "InsufficientBalance"
	case ErrNoPayoutMethod:
		return "NoPayoutMethod"
	}
	return "Unknown"
}

// NewPolicyError builds a PolicyError for rule with a formatted user message.
func NewPolicyError(rule error, format string, args ...any) *PolicyError {
	return &PolicyError{Rule: rule, Message: fmt.Sprintf(format, args...)}
}
