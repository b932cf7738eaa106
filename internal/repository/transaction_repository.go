package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/investment-ledger/internal/apperrors"
	"github.com/ndewijer/investment-ledger/internal/database"
	"github.com/ndewijer/investment-ledger/internal/model"
)

// TransactionRepository provides data access methods for the ledger_transaction table.
// There is deliberately no method that changes account, kind or amount; the schema
// triggers refuse such updates as well.
type TransactionRepository struct {
	db database.DBTX
}

// NewTransactionRepository creates a new TransactionRepository with the provided database connection.
func NewTransactionRepository(db database.DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (s *TransactionRepository) WithTx(tx database.DBTX) *TransactionRepository {
	return &TransactionRepository{db: tx}
}

const transactionColumns = `id, account, kind, amount, status, external_ref, metadata, created_at, updated_at`

// Insert writes t unless a row with the same id already exists.
// Returns true when the row was created, false when the id was already taken.
func (s *TransactionRepository) Insert(ctx context.Context, t model.Transaction) (bool, error) {
	metadata, err := encodeMetadata(t.Metadata)
	if err != nil {
		return false, err
	}

	query := `
		INSERT INTO ledger_transaction (` + transactionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		t.ID,
		t.Account,
		string(t.Kind),
		t.Amount.String(),
		string(t.Status),
		nullString(t.ExternalRef),
		metadata,
		FormatTimestamp(t.CreatedAt),
		FormatTimestamp(t.UpdatedAt),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	return n == 1, nil
}

// GetTransaction retrieves a single transaction by id.
// Returns apperrors.ErrTransactionNotFound when no row matches.
func (s *TransactionRepository) GetTransaction(ctx context.Context, id string) (model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM ledger_transaction WHERE id = ?`

	t, err := scanTransaction(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Transaction{}, apperrors.ErrTransactionNotFound
	}
	if err != nil {
		return model.Transaction{}, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

// SumCompleted returns the signed sum of all Completed transactions of account.
// Amounts are stored as decimal text and added in Go so the result is exact.
func (s *TransactionRepository) SumCompleted(ctx context.Context, account string) (decimal.Decimal, error) {
	query := `
		SELECT kind, amount
		FROM ledger_transaction
		WHERE account = ? AND status = ?
	`
	rows, err := s.db.QueryContext(ctx, query, account, string(model.StatusCompleted))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query ledger_transaction table: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var kind, amountStr string
		if err := rows.Scan(&kind, &amountStr); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan ledger_transaction results: %w", err)
		}
		amount, err := parseAmount(amountStr)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(model.TransactionKind(kind).Signed(amount))
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("error iterating ledger_transaction table: %w", err)
	}
	return total, nil
}

// History lists transactions of account matching filter, newest first.
// From is inclusive, To is exclusive. A zero Limit returns everything.
func (s *TransactionRepository) History(ctx context.Context, account string, filter model.TransactionFilter) ([]model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM ledger_transaction WHERE account = ?`
	args := []any{account}

	if len(filter.Kinds) > 0 {
		query += ` AND kind IN (` + placeholders(len(filter.Kinds)) + `)`
		for _, k := range filter.Kinds {
			args = append(args, string(k))
		}
	}
	if len(filter.Statuses) > 0 {
		query += ` AND status IN (` + placeholders(len(filter.Statuses)) + `)`
		for _, st := range filter.Statuses {
			args = append(args, string(st))
		}
	}
	if !filter.From.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, FormatTimestamp(filter.From))
	}
	if !filter.To.IsZero() {
		query += ` AND created_at < ?`
		args = append(args, FormatTimestamp(filter.To))
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger_transaction table: %w", err)
	}
	defer rows.Close()

	transactions := []model.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger_transaction results: %w", err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger_transaction table: %w", err)
	}
	return transactions, nil
}

// CountCompleted counts the Completed transactions of kind for account,
// ignoring excludeID.
func (s *TransactionRepository) CountCompleted(ctx context.Context, account string, kind model.TransactionKind, excludeID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM ledger_transaction
		WHERE account = ? AND kind = ? AND status = ? AND id <> ?
	`, account, string(kind), string(model.StatusCompleted), excludeID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}

// UpdateStatus moves a transaction from one status to another.
// The update is conditional on the current status, so of two concurrent
// transitions at most one reports true.
func (s *TransactionRepository) UpdateStatus(ctx context.Context, id string, from, to model.TransactionStatus, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE ledger_transaction
		SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, string(to), FormatTimestamp(at), id, string(from))
	if err != nil {
		if database.IsTriggerAbort(err) {
			return false, fmt.Errorf("%w: %v", apperrors.ErrImmutableTransaction, err)
		}
		return false, fmt.Errorf("failed to update transaction status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update result: %w", err)
	}
	return n == 1, nil
}

func scanTransaction(row rowScanner) (model.Transaction, error) {
	var (
		t                                    model.Transaction
		kind, status, amountStr, metadataStr string
		createdAtStr, updatedAtStr           string
		externalRef                          sql.NullString
	)
	if err := row.Scan(&t.ID, &t.Account, &kind, &amountStr, &status, &externalRef, &metadataStr, &createdAtStr, &updatedAtStr); err != nil {
		return model.Transaction{}, err
	}

	var err error
	t.Kind = model.TransactionKind(kind)
	t.Status = model.TransactionStatus(status)
	t.ExternalRef = externalRef.String
	if t.Amount, err = parseAmount(amountStr); err != nil {
		return model.Transaction{}, err
	}
	if t.Metadata, err = decodeMetadata(metadataStr); err != nil {
		return model.Transaction{}, err
	}
	if t.CreatedAt, err = ParseTime(createdAtStr); err != nil {
		return model.Transaction{}, err
	}
	if t.UpdatedAt, err = ParseTime(updatedAtStr); err != nil {
		return model.Transaction{}, err
	}
	return t, nil
}
