package service

import (
	"context"

	"github.com/ndewijer/investment-ledger/internal/model"
)

// The engine calls out to these collaborators but does not own them.
// Bundled implementations live in this package (CredentialService,
// PayoutService) and in internal/catalog.
//
//go:generate mockgen -destination=mocks/mock_collaborators.go -source=collaborators.go

// CredentialVerifier checks the withdrawal secret of an account.
type CredentialVerifier interface {
	VerifyWithdrawalCredential(ctx context.Context, account, secret string) (bool, error)
}

// PayoutDirectory resolves a payout method owned by an account.
// It returns apperrors.ErrPayoutMethodNotFound when the method does not
// exist or belongs to someone else.
type PayoutDirectory interface {
	GetPayoutMethod(ctx context.Context, account, methodID string) (model.PayoutMethod, error)
}

// ProductCatalog resolves investment products.
// It returns apperrors.ErrProductNotFound for unknown ids; any other error
// means the catalog itself is unavailable.
type ProductCatalog interface {
	GetProduct(ctx context.Context, productID string) (model.Product, error)
}
