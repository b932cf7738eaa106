package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/ndewijer/investment-ledger/internal/apperrors"
	"github.com/ndewijer/investment-ledger/internal/model"
	"github.com/ndewijer/investment-ledger/internal/repository"
	"github.com/ndewijer/investment-ledger/internal/vault"
)

// CredentialService stores withdrawal PINs sealed with the vault and
// verifies them. It is the bundled CredentialVerifier.
type CredentialService struct {
	credentialRepo *repository.CredentialRepository
	vault          *vault.Vault
	clock          Clock
}

// NewCredentialService creates a new CredentialService.
func NewCredentialService(credentialRepo *repository.CredentialRepository, v *vault.Vault, clock Clock) *CredentialService {
	return &CredentialService{credentialRepo: credentialRepo, vault: v, clock: clock.orDefault()}
}

// SetCredential provisions or replaces the withdrawal PIN of account.
func (s *CredentialService) SetCredential(ctx context.Context, account, secret string) error {
	if account == "" {
		return apperrors.ErrEmptyAccount
	}
	if len(secret) < 4 || len(secret) > 12 || strings.IndexFunc(secret, func(r rune) bool { return !unicode.IsDigit(r) }) >= 0 {
		return apperrors.ErrWeakSecret
	}
	sealed, err := s.vault.Seal(secret)
	if err != nil {
		return err
	}
	return s.credentialRepo.Upsert(ctx, account, sealed, s.clock())
}

// VerifyWithdrawalCredential reports whether secret matches the stored PIN.
// An account without a PIN never verifies.
func (s *CredentialService) VerifyWithdrawalCredential(ctx context.Context, account, secret string) (bool, error) {
	sealed, err := s.credentialRepo.GetSealed(ctx, account)
	if errors.Is(err, apperrors.ErrCredentialNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s.vault.Matches(sealed, secret), nil
}

// PayoutService registers payout destinations sealed with the vault.
// It is the bundled PayoutDirectory.
type PayoutService struct {
	payoutRepo *repository.PayoutMethodRepository
	vault      *vault.Vault
	clock      Clock
}

// NewPayoutService creates a new PayoutService.
func NewPayoutService(payoutRepo *repository.PayoutMethodRepository, v *vault.Vault, clock Clock) *PayoutService {
	return &PayoutService{payoutRepo: payoutRepo, vault: v, clock: clock.orDefault()}
}

// AddPayoutMethod registers a destination for account. The destination is
// opaque: bank and UPI formats are not validated here.
func (s *PayoutService) AddPayoutMethod(ctx context.Context, account string, payoutType model.PayoutType, destination string) (model.PayoutMethod, error) {
	if account == "" {
		return model.PayoutMethod{}, apperrors.ErrEmptyAccount
	}
	if !payoutType.Valid() {
		return model.PayoutMethod{}, fmt.Errorf("%w: unknown type %q", apperrors.ErrInvalidPayoutMethod, payoutType)
	}
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return model.PayoutMethod{}, fmt.Errorf("%w: destination cannot be empty", apperrors.ErrInvalidPayoutMethod)
	}

	sealed, err := s.vault.Seal(destination)
	if err != nil {
		return model.PayoutMethod{}, err
	}
	m := model.PayoutMethod{
		ID:          newID(""),
		Account:     account,
		Type:        payoutType,
		Destination: sealed,
		CreatedAt:   s.clock(),
	}
	if err := s.payoutRepo.Insert(ctx, m); err != nil {
		return model.PayoutMethod{}, err
	}
	m.Destination = destination
	return m, nil
}

// GetPayoutMethod returns the method if account owns it.
func (s *PayoutService) GetPayoutMethod(ctx context.Context, account, methodID string) (model.PayoutMethod, error) {
	m, err := s.payoutRepo.GetOwned(ctx, account, methodID)
	if err != nil {
		return model.PayoutMethod{}, err
	}
	if m.Destination, err = s.vault.Open(m.Destination); err != nil {
		return model.PayoutMethod{}, fmt.Errorf("failed to open payout destination %s: %w", methodID, err)
	}
	return m, nil
}
