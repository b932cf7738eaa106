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

// ReferralRepository provides data access methods for the referral_link and referral_reward tables.
type ReferralRepository struct {
	db database.DBTX
}

// NewReferralRepository creates a new ReferralRepository with the provided database connection.
func NewReferralRepository(db database.DBTX) *ReferralRepository {
	return &ReferralRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (s *ReferralRepository) WithTx(tx database.DBTX) *ReferralRepository {
	return &ReferralRepository{db: tx}
}

// InsertLink records who referred an account.
// Returns apperrors.ErrDuplicateEntry when the account already has a referrer.
func (s *ReferralRepository) InsertLink(ctx context.Context, link model.ReferralLink) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO referral_link (account, referrer_account, created_at)
		VALUES (?, ?, ?)
	`, link.Account, link.ReferrerAccount, FormatTimestamp(link.CreatedAt))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("%w: referral link for %s", apperrors.ErrDuplicateEntry, link.Account)
		}
		return fmt.Errorf("failed to insert referral link: %w", err)
	}
	return nil
}

// GetLink returns the referral link of account. The bool is false when the
// account was not referred by anyone.
func (s *ReferralRepository) GetLink(ctx context.Context, account string) (model.ReferralLink, bool, error) {
	var (
		link       model.ReferralLink
		createdStr string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT account, referrer_account, created_at
		FROM referral_link
		WHERE account = ?
	`, account).Scan(&link.Account, &link.ReferrerAccount, &createdStr)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ReferralLink{}, false, nil
	}
	if err != nil {
		return model.ReferralLink{}, false, fmt.Errorf("failed to get referral link: %w", err)
	}
	if link.CreatedAt, err = ParseTime(createdStr); err != nil {
		return model.ReferralLink{}, false, err
	}
	return link, true, nil
}

const referralRewardColumns = `id, referrer_account, referred_account, triggering_transaction_id, reward_transaction_id, amount, status, created_at`

// InsertReward claims the (referrer, referred) pair.
// Returns false without error when a reward for the pair already exists.
func (s *ReferralRepository) InsertReward(ctx context.Context, r model.ReferralReward) (bool, error) {
	created := FormatTimestamp(r.CreatedAt)
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO referral_reward (`+referralRewardColumns+`, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		r.ID,
		r.ReferrerAccount,
		r.ReferredAccount,
		r.TriggeringTransactionID,
		r.RewardTransactionID,
		r.Amount.String(),
		string(r.Status),
		created,
		created,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert referral reward: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	return n == 1, nil
}

// GetReward retrieves a single referral reward by id.
func (s *ReferralRepository) GetReward(ctx context.Context, id string) (model.ReferralReward, error) {
	r, err := scanReferralReward(s.db.QueryRowContext(ctx, `SELECT `+referralRewardColumns+` FROM referral_reward WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.ReferralReward{}, apperrors.ErrReferralRewardNotFound
	}
	if err != nil {
		return model.ReferralReward{}, fmt.Errorf("failed to get referral reward: %w", err)
	}
	return r, nil
}

// ListRewardsByReferrer returns the rewards earned by account, oldest first.
func (s *ReferralRepository) ListRewardsByReferrer(ctx context.Context, account string) ([]model.ReferralReward, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+referralRewardColumns+`
		FROM referral_reward
		WHERE referrer_account = ?
		ORDER BY created_at ASC
	`, account)
	if err != nil {
		return nil, fmt.Errorf("failed to query referral_reward table: %w", err)
	}
	defer rows.Close()

	rewards := []model.ReferralReward{}
	for rows.Next() {
		r, err := scanReferralReward(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan referral_reward table results: %w", err)
		}
		rewards = append(rewards, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating referral_reward table: %w", err)
	}
	return rewards, nil
}

// UpdateRewardStatus moves a reward between statuses, conditional on the current one.
func (s *ReferralRepository) UpdateRewardStatus(ctx context.Context, id string, from, to model.ReferralRewardStatus, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE referral_reward
		SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, string(to), FormatTimestamp(at), id, string(from))
	if err != nil {
		return false, fmt.Errorf("failed to update referral reward status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update result: %w", err)
	}
	return n == 1, nil
}

func scanReferralReward(row rowScanner) (model.ReferralReward, error) {
	var (
		r                              model.ReferralReward
		amountStr, status, createdStr string
	)
	if err := row.Scan(&r.ID, &r.ReferrerAccount, &r.ReferredAccount, &r.TriggeringTransactionID, &r.RewardTransactionID, &amountStr, &status, &createdStr); err != nil {
		return model.ReferralReward{}, err
	}

	var err error
	r.Status = model.ReferralRewardStatus(status)
	if r.Amount, err = parseAmount(amountStr); err != nil {
		return model.ReferralReward{}, err
	}
	if r.CreatedAt, err = ParseTime(createdStr); err != nil {
		return model.ReferralReward{}, err
	}
	return r, nil
}
