// Package validation checks request payloads before they reach the services.
package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// Common validation errors
var (
	ErrInvalidUUID    = fmt.Errorf("invalid UUID format")
	ErrInvalidAccount = fmt.Errorf("invalid account")
)

// MaxAccountLength bounds account identifiers. Accounts are opaque strings
// owned by the identity collaborator.
const MaxAccountLength = 64

// ValidateUUID checks if a string is a valid UUID
func ValidateUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidUUID, id)
	}
	return nil
}

// ValidateAccount checks that an account identifier is present, bounded and
// free of whitespace or control characters.
func ValidateAccount(account string) error {
	switch {
	case account == "":
		return fmt.Errorf("%w: account is required", ErrInvalidAccount)
	case len(account) > MaxAccountLength:
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidAccount, MaxAccountLength)
	case strings.IndexFunc(account, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) }) >= 0:
		return fmt.Errorf("%w: contains whitespace", ErrInvalidAccount)
	}
	return nil
}
