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

// InvestmentRepository provides data access methods for the investment table.
type InvestmentRepository struct {
	db database.DBTX
}

// NewInvestmentRepository creates a new InvestmentRepository with the provided database connection.
func NewInvestmentRepository(db database.DBTX) *InvestmentRepository {
	return &InvestmentRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (s *InvestmentRepository) WithTx(tx database.DBTX) *InvestmentRepository {
	return &InvestmentRepository{db: tx}
}

const investmentColumns = `id, account, product_id, purchase_price, purchase_date, funding_transaction_id, created_at`

// Insert writes a new investment. Its funding transaction must already exist.
func (s *InvestmentRepository) Insert(ctx context.Context, inv model.Investment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO investment (`+investmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		inv.ID,
		inv.Account,
		inv.ProductID,
		inv.PurchasePrice.String(),
		FormatDate(inv.PurchaseDate),
		inv.FundingTransactionID,
		FormatTimestamp(inv.CreatedAt),
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("%w: investment %s", apperrors.ErrDuplicateEntry, inv.ID)
		}
		return fmt.Errorf("failed to insert investment: %w", err)
	}
	return nil
}

// GetInvestment retrieves a single investment by id.
func (s *InvestmentRepository) GetInvestment(ctx context.Context, id string) (model.Investment, error) {
	inv, err := scanInvestment(s.db.QueryRowContext(ctx, `SELECT `+investmentColumns+` FROM investment WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Investment{}, apperrors.ErrInvestmentNotFound
	}
	if err != nil {
		return model.Investment{}, fmt.Errorf("failed to get investment: %w", err)
	}
	return inv, nil
}

// GetByFundingTransaction returns the investment paid for by the given transaction.
func (s *InvestmentRepository) GetByFundingTransaction(ctx context.Context, transactionID string) (model.Investment, error) {
	inv, err := scanInvestment(s.db.QueryRowContext(ctx, `SELECT `+investmentColumns+` FROM investment WHERE funding_transaction_id = ?`, transactionID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Investment{}, apperrors.ErrInvestmentNotFound
	}
	if err != nil {
		return model.Investment{}, fmt.Errorf("failed to get investment: %w", err)
	}
	return inv, nil
}

// ListByAccount returns the investments of account, oldest first.
func (s *InvestmentRepository) ListByAccount(ctx context.Context, account string) ([]model.Investment, error) {
	return s.list(ctx, `SELECT `+investmentColumns+` FROM investment WHERE account = ? ORDER BY purchase_date ASC, created_at ASC`, account)
}

// ListPurchasedOnOrBefore returns every investment purchased on or before day.
// Expired investments are included; the caller decides what is still active.
func (s *InvestmentRepository) ListPurchasedOnOrBefore(ctx context.Context, day time.Time) ([]model.Investment, error) {
	return s.list(ctx, `SELECT `+investmentColumns+` FROM investment WHERE purchase_date <= ? ORDER BY purchase_date ASC, id ASC`, FormatDate(day))
}

func (s *InvestmentRepository) list(ctx context.Context, query string, args ...any) ([]model.Investment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query investment table: %w", err)
	}
	defer rows.Close()

	investments := []model.Investment{}
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan investment table results: %w", err)
		}
		investments = append(investments, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating investment table: %w", err)
	}
	return investments, nil
}

func scanInvestment(row rowScanner) (model.Investment, error) {
	var (
		inv                                   model.Investment
		priceStr, purchaseDateStr, createdStr string
	)
	if err := row.Scan(&inv.ID, &inv.Account, &inv.ProductID, &priceStr, &purchaseDateStr, &inv.FundingTransactionID, &createdStr); err != nil {
		return model.Investment{}, err
	}

	var err error
	if inv.PurchasePrice, err = parseAmount(priceStr); err != nil {
		return model.Investment{}, err
	}
	if inv.PurchaseDate, err = ParseDate(purchaseDateStr); err != nil {
		return model.Investment{}, err
	}
	if inv.CreatedAt, err = ParseTime(createdStr); err != nil {
		return model.Investment{}, err
	}
	return inv, nil
}
