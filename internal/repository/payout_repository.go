package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ndewijer/investment-ledger/internal/apperrors"
	"github.com/ndewijer/investment-ledger/internal/database"
	"github.com/ndewijer/investment-ledger/internal/model"
)

// PayoutMethodRepository provides data access methods for the payout_method table.
// Destinations are stored sealed; callers seal and open them.
type PayoutMethodRepository struct {
	db database.DBTX
}

// NewPayoutMethodRepository creates a new PayoutMethodRepository with the provided database connection.
func NewPayoutMethodRepository(db database.DBTX) *PayoutMethodRepository {
	return &PayoutMethodRepository{db: db}
}

// Insert stores a payout method whose Destination is already sealed.
func (s *PayoutMethodRepository) Insert(ctx context.Context, m model.PayoutMethod) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payout_method (id, account, type, destination_sealed, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, m.ID, m.Account, string(m.Type), m.Destination, FormatTimestamp(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert payout method: %w", err)
	}
	return nil
}

// GetOwned returns the payout method id if it belongs to account.
// A method owned by someone else is reported as not found.
func (s *PayoutMethodRepository) GetOwned(ctx context.Context, account, id string) (model.PayoutMethod, error) {
	var (
		m                   model.PayoutMethod
		payoutType, created string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, account, type, destination_sealed, created_at
		FROM payout_method
		WHERE id = ? AND account = ?
	`, id, account).Scan(&m.ID, &m.Account, &payoutType, &m.Destination, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PayoutMethod{}, apperrors.ErrPayoutMethodNotFound
	}
	if err != nil {
		return model.PayoutMethod{}, fmt.Errorf("failed to get payout method: %w", err)
	}
	m.Type = model.PayoutType(payoutType)
	if m.CreatedAt, err = ParseTime(created); err != nil {
		return model.PayoutMethod{}, err
	}
	return m, nil
}

// CredentialRepository provides data access methods for the withdrawal_credential table.
type CredentialRepository struct {
	db database.DBTX
}

// NewCredentialRepository creates a new CredentialRepository with the provided database connection.
func NewCredentialRepository(db database.DBTX) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Upsert stores the sealed withdrawal secret of account, replacing any previous one.
func (s *CredentialRepository) Upsert(ctx context.Context, account, sealed string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO withdrawal_credential (account, secret_sealed, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(account) DO UPDATE SET secret_sealed = excluded.secret_sealed, updated_at = excluded.updated_at
	`, account, sealed, FormatTimestamp(at))
	if err != nil {
		return fmt.Errorf("failed to store withdrawal credential: %w", err)
	}
	return nil
}

// GetSealed returns the sealed secret of account, or apperrors.ErrCredentialNotFound.
func (s *CredentialRepository) GetSealed(ctx context.Context, account string) (string, error) {
	var sealed string
	err := s.db.QueryRowContext(ctx, `SELECT secret_sealed FROM withdrawal_credential WHERE account = ?`, account).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperrors.ErrCredentialNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get withdrawal credential: %w", err)
	}
	return sealed, nil
}
