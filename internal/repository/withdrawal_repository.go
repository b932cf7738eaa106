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

// WithdrawalRepository provides data access methods for the withdrawal_request table.
type WithdrawalRepository struct {
	db database.DBTX
}

// NewWithdrawalRepository creates a new WithdrawalRepository with the provided database connection.
func NewWithdrawalRepository(db database.DBTX) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (s *WithdrawalRepository) WithTx(tx database.DBTX) *WithdrawalRepository {
	return &WithdrawalRepository{db: tx}
}

const withdrawalColumns = `id, reference, account, requested_amount, tax, net_amount, status,
	funding_transaction_id, refund_transaction_id, payout_method_id, payout_type, payout_destination,
	external_ref, reject_reason, business_date, created_at, updated_at`

// Insert writes a new withdrawal request. Its funding transaction must already exist.
func (s *WithdrawalRepository) Insert(ctx context.Context, w model.WithdrawalRequest) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO withdrawal_request (`+withdrawalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		w.ID,
		w.Reference,
		w.Account,
		w.RequestedAmount.String(),
		w.Tax.String(),
		w.NetAmount.String(),
		string(w.Status),
		w.FundingTransactionID,
		nullString(w.RefundTransactionID),
		w.PayoutMethodID,
		string(w.PayoutType),
		w.PayoutDestination,
		nullString(w.ExternalRef),
		nullString(w.RejectReason),
		w.BusinessDate,
		FormatTimestamp(w.CreatedAt),
		FormatTimestamp(w.UpdatedAt),
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("%w: withdrawal request %s", apperrors.ErrDuplicateEntry, w.ID)
		}
		return fmt.Errorf("failed to insert withdrawal request: %w", err)
	}
	return nil
}

// GetWithdrawal retrieves a single withdrawal request by id.
func (s *WithdrawalRepository) GetWithdrawal(ctx context.Context, id string) (model.WithdrawalRequest, error) {
	w, err := scanWithdrawal(s.db.QueryRowContext(ctx, `SELECT `+withdrawalColumns+` FROM withdrawal_request WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.WithdrawalRequest{}, apperrors.ErrWithdrawalNotFound
	}
	if err != nil {
		return model.WithdrawalRequest{}, fmt.Errorf("failed to get withdrawal request: %w", err)
	}
	return w, nil
}

// SumRequestedOn totals the requested amounts of account's requests on businessDate.
// Rejected requests are excluded because their funds were returned.
func (s *WithdrawalRepository) SumRequestedOn(ctx context.Context, account, businessDate string) (decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT requested_amount
		FROM withdrawal_request
		WHERE account = ? AND business_date = ? AND status <> ?
	`, account, businessDate, string(model.WithdrawalRejected))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query withdrawal_request table: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var amountStr string
		if err := rows.Scan(&amountStr); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan withdrawal_request table results: %w", err)
		}
		amount, err := parseAmount(amountStr)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(amount)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("error iterating withdrawal_request table: %w", err)
	}
	return total, nil
}

// ListByAccount returns the withdrawal requests of account, newest first.
func (s *WithdrawalRepository) ListByAccount(ctx context.Context, account string) ([]model.WithdrawalRequest, error) {
	return s.list(ctx, `SELECT `+withdrawalColumns+` FROM withdrawal_request WHERE account = ? ORDER BY created_at DESC`, account)
}

// ListByStatus returns all withdrawal requests in status, oldest first.
func (s *WithdrawalRepository) ListByStatus(ctx context.Context, status model.WithdrawalStatus) ([]model.WithdrawalRequest, error) {
	return s.list(ctx, `SELECT `+withdrawalColumns+` FROM withdrawal_request WHERE status = ? ORDER BY created_at ASC`, string(status))
}

// WithdrawalUpdate carries the settlement fields written alongside a status change.
// Empty fields are left untouched.
type WithdrawalUpdate struct {
	ExternalRef         string
	RejectReason        string
	RefundTransactionID string
	At                  time.Time
}

// UpdateStatus moves a request from one status to another, conditional on the
// current status. Of two concurrent settlements at most one reports true.
func (s *WithdrawalRepository) UpdateStatus(ctx context.Context, id string, from, to model.WithdrawalStatus, u WithdrawalUpdate) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE withdrawal_request
		SET status = ?,
			external_ref = COALESCE(?, external_ref),
			reject_reason = COALESCE(?, reject_reason),
			refund_transaction_id = COALESCE(?, refund_transaction_id),
			updated_at = ?
		WHERE id = ? AND status = ?
	`,
		string(to),
		nullString(u.ExternalRef),
		nullString(u.RejectReason),
		nullString(u.RefundTransactionID),
		FormatTimestamp(u.At),
		id,
		string(from),
	)
	if err != nil {
		if database.IsTriggerAbort(err) {
			return false, fmt.Errorf("%w: %v", apperrors.ErrInvalidTransition, err)
		}
		return false, fmt.Errorf("failed to update withdrawal request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update result: %w", err)
	}
	return n == 1, nil
}

func (s *WithdrawalRepository) list(ctx context.Context, query string, args ...any) ([]model.WithdrawalRequest, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query withdrawal_request table: %w", err)
	}
	defer rows.Close()

	requests := []model.WithdrawalRequest{}
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal_request table results: %w", err)
		}
		requests = append(requests, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating withdrawal_request table: %w", err)
	}
	return requests, nil
}

func scanWithdrawal(row rowScanner) (model.WithdrawalRequest, error) {
	var (
		w                                   model.WithdrawalRequest
		requestedStr, taxStr, netStr        string
		status, payoutType                  string
		createdStr, updatedStr              string
		refundTx, externalRef, rejectReason sql.NullString
	)
	err := row.Scan(
		&w.ID,
		&w.Reference,
		&w.Account,
		&requestedStr,
		&taxStr,
		&netStr,
		&status,
		&w.FundingTransactionID,
		&refundTx,
		&w.PayoutMethodID,
		&payoutType,
		&w.PayoutDestination,
		&externalRef,
		&rejectReason,
		&w.BusinessDate,
		&createdStr,
		&updatedStr,
	)
	if err != nil {
		return model.WithdrawalRequest{}, err
	}

	w.Status = model.WithdrawalStatus(status)
	w.PayoutType = model.PayoutType(payoutType)
	w.RefundTransactionID = refundTx.String
	w.ExternalRef = externalRef.String
	w.RejectReason = rejectReason.String

	if w.RequestedAmount, err = parseAmount(requestedStr); err != nil {
		return model.WithdrawalRequest{}, err
	}
	if w.Tax, err = parseAmount(taxStr); err != nil {
		return model.WithdrawalRequest{}, err
	}
	if w.NetAmount, err = parseAmount(netStr); err != nil {
		return model.WithdrawalRequest{}, err
	}
	if w.CreatedAt, err = ParseTime(createdStr); err != nil {
		return model.WithdrawalRequest{}, err
	}
	if w.UpdatedAt, err = ParseTime(updatedStr); err != nil {
		return model.WithdrawalRequest{}, err
	}
	return w, nil
}
