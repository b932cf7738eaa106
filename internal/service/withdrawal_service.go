package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ndewijer/investment-ledger/internal/apperrors"
	"github.com/ndewijer/investment-ledger/internal/database"
	"github.com/ndewijer/investment-ledger/internal/events"
	"github.com/ndewijer/investment-ledger/internal/metrics"
	"github.com/ndewijer/investment-ledger/internal/model"
	"github.com/ndewijer/investment-ledger/internal/repository"
)

// WithdrawalPolicy holds the rules a withdrawal request is checked against.
// All calendar decisions use Location.
type WithdrawalPolicy struct {
	MinimumAmount decimal.Decimal
	DailyLimit    decimal.Decimal
	TaxRate       decimal.Decimal
	OpenHour      int
	CloseHour     int
	BlockedDays   []time.Weekday
	Location      *time.Location
}

// SubmitWithdrawal is a withdrawal request as submitted by an account holder.
type SubmitWithdrawal struct {
	Account        string
	Amount         decimal.Decimal
	Secret         string
	PayoutMethodID string
}

// WithdrawalService validates withdrawal requests, reserves their funds and
// drives the settlement state machine.
type WithdrawalService struct {
	db             *sql.DB
	ledger         *LedgerService
	withdrawalRepo *repository.WithdrawalRepository
	credentials    CredentialVerifier
	payouts        PayoutDirectory
	publisher      events.Publisher
	policy         WithdrawalPolicy
	logger         *zap.Logger
	clock          Clock
}

// NewWithdrawalService creates a new WithdrawalService.
func NewWithdrawalService(
	db *sql.DB,
	ledger *LedgerService,
	withdrawalRepo *repository.WithdrawalRepository,
	credentials CredentialVerifier,
	payouts PayoutDirectory,
	publisher events.Publisher,
	policy WithdrawalPolicy,
	logger *zap.Logger,
	clock Clock,
) *WithdrawalService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if policy.Location == nil {
		policy.Location = time.UTC
	}
	return &WithdrawalService{
		db:             db,
		ledger:         ledger,
		withdrawalRepo: withdrawalRepo,
		credentials:    credentials,
		payouts:        payouts,
		publisher:      publisher,
		policy:         policy,
		logger:         logger,
		clock:          clock.orDefault(),
	}
}

// Submit validates req and, when every rule passes, atomically appends a
// Completed debit_withdrawal for the requested amount and creates a Pending
// request awaiting settlement.
//
// Rules are checked in this order and the first violation is returned as a
// *apperrors.PolicyError:
//  1. withdrawal credential (ErrInvalidCredential)
//  2. time window and blocked weekdays (ErrWindowClosed)
//  3. minimum amount (ErrBelowMinimum)
//  4. daily cap over today's non-rejected requests (ErrDailyLimitExceeded)
//  5. derived balance (ErrInsufficientBalance)
//  6. payout method owned by the account (ErrNoPayoutMethod)
//
// Rules 4 to 6 and the writes share one write transaction, so concurrent
// submissions for the same account serialize and each sees the previous one.
func (s *WithdrawalService) Submit(ctx context.Context, req SubmitWithdrawal) (model.WithdrawalRequest, error) {
	w, err := s.submit(ctx, req)
	if err != nil {
		var pe *apperrors.PolicyError
		if errors.As(err, &pe) {
			metrics.Withdrawals.WithLabelValues(pe.RuleName()).Inc()
			s.logger.Info("withdrawal refused",
				zap.String("account", req.Account),
				zap.String("rule", pe.RuleName()),
				zap.String("amount", req.Amount.String()),
			)
		}
		return model.WithdrawalRequest{}, err
	}
	metrics.Withdrawals.WithLabelValues(metrics.OutcomeAccepted).Inc()
	return w, nil
}

func (s *WithdrawalService) submit(ctx context.Context, req SubmitWithdrawal) (model.WithdrawalRequest, error) {
	if req.Account == "" {
		return model.WithdrawalRequest{}, apperrors.ErrEmptyAccount
	}
	if !req.Amount.IsPositive() {
		return model.WithdrawalRequest{}, apperrors.ErrInvalidAmount
	}

	// 1. credential
	ok, err := s.credentials.VerifyWithdrawalCredential(ctx, req.Account, req.Secret)
	if err != nil && !errors.Is(err, apperrors.ErrCredentialNotFound) {
		return model.WithdrawalRequest{}, fmt.Errorf("failed to verify withdrawal credential: %w", err)
	}
	if !ok {
		return model.WithdrawalRequest{}, apperrors.NewPolicyError(apperrors.ErrInvalidCredential, "withdrawal PIN is incorrect")
	}

	// 2. window
	now := s.clock()
	if err := s.checkWindow(now); err != nil {
		return model.WithdrawalRequest{}, err
	}

	// 3. minimum
	if req.Amount.LessThan(s.policy.MinimumAmount) {
		return model.WithdrawalRequest{}, apperrors.NewPolicyError(apperrors.ErrBelowMinimum,
			"minimum withdrawal is %s", formatMoney(s.policy.MinimumAmount))
	}

	// The payout lookup goes to the collaborator before the write transaction
	// is opened; its verdict is only reported after rules 4 and 5.
	var method model.PayoutMethod
	var methodErr error
	if req.PayoutMethodID == "" {
		methodErr = apperrors.ErrPayoutMethodNotFound
	} else {
		method, methodErr = s.payouts.GetPayoutMethod(ctx, req.Account, req.PayoutMethodID)
	}

	businessDate := model.CalendarDate(now, s.policy.Location).Format(model.DateLayout)
	tax := roundMoney(req.Amount.Mul(s.policy.TaxRate))
	request := model.WithdrawalRequest{
		ID:              uuid.New().String(),
		Reference:       "WD" + ulid.Make().String(),
		Account:         req.Account,
		RequestedAmount: req.Amount,
		Tax:             tax,
		NetAmount:       req.Amount.Sub(tax),
		Status:          model.WithdrawalPending,
		BusinessDate:    businessDate,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	request.FundingTransactionID = uuid.New().String()

	var emitted []model.Transaction
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.withdrawalRepo.WithTx(tx)

		// 4. daily cap
		used, err := repo.SumRequestedOn(ctx, req.Account, businessDate)
		if err != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrFailedToRetrieveWithdrawals, err)
		}
		if used.Add(req.Amount).GreaterThan(s.policy.DailyLimit) {
			remaining := decimal.Max(decimal.Zero, s.policy.DailyLimit.Sub(used))
			return apperrors.NewPolicyError(apperrors.ErrDailyLimitExceeded,
				"daily withdrawal limit is %s, %s remaining today", formatMoney(s.policy.DailyLimit), formatMoney(remaining))
		}

		// 5. balance
		balance, err := s.ledger.BalanceOfInTx(ctx, tx, req.Account)
		if err != nil {
			return err
		}
		if balance.LessThan(req.Amount) {
			return apperrors.NewPolicyError(apperrors.ErrInsufficientBalance,
				"balance %s is below the requested %s", formatMoney(balance), formatMoney(req.Amount))
		}

		// 6. payout method
		if methodErr != nil {
			if errors.Is(methodErr, apperrors.ErrPayoutMethodNotFound) {
				return apperrors.NewPolicyError(apperrors.ErrNoPayoutMethod, "add a bank account or UPI id before withdrawing")
			}
			return fmt.Errorf("failed to resolve payout method: %w", methodErr)
		}
		request.PayoutMethodID = method.ID
		request.PayoutType = method.Type
		request.PayoutDestination = method.Destination

		_, _, emitted, err = s.ledger.AppendInTx(ctx, tx, model.Transaction{
			ID:      request.FundingTransactionID,
			Account: req.Account,
			Kind:    model.KindDebitWithdrawal,
			Amount:  req.Amount,
			Status:  model.StatusCompleted,
			Metadata: map[string]string{
				model.MetaSource:              model.SourceWithdrawal,
				model.MetaWithdrawalRequestID: request.ID,
				model.MetaTax:                 tax.String(),
				model.MetaNetAmount:           request.NetAmount.String(),
			},
		})
		if err != nil {
			return err
		}
		return repo.Insert(ctx, request)
	})
	if err != nil {
		return model.WithdrawalRequest{}, err
	}

	s.ledger.Committed(ctx, emitted...)
	s.publisher.Publish(ctx, events.WithdrawalStatusChanged(request))
	s.logger.Info("withdrawal accepted",
		zap.String("account", request.Account),
		zap.String("withdrawalId", request.ID),
		zap.String("reference", request.Reference),
		zap.String("amount", request.RequestedAmount.String()),
	)
	return request, nil
}

func (s *WithdrawalService) checkWindow(now time.Time) error {
	local := now.In(s.policy.Location)
	if slices.Contains(s.policy.BlockedDays, local.Weekday()) {
		return apperrors.NewPolicyError(apperrors.ErrWindowClosed,
			"withdrawals are not available on %s", local.Weekday())
	}
	if local.Hour() < s.policy.OpenHour || local.Hour() >= s.policy.CloseHour {
		return apperrors.NewPolicyError(apperrors.ErrWindowClosed,
			"withdrawals are open between %02d:00 and %02d:00", s.policy.OpenHour, s.policy.CloseHour)
	}
	return nil
}

// Approve moves a Pending request to Approved and records the external
// settlement reference (e.g. the bank UTR).
func (s *WithdrawalService) Approve(ctx context.Context, id, externalRef string) (model.WithdrawalRequest, error) {
	w, err := s.transition(ctx, id, model.WithdrawalApproved, repository.WithdrawalUpdate{ExternalRef: strings.TrimSpace(externalRef)}, nil)
	if err != nil {
		return model.WithdrawalRequest{}, err
	}
	metrics.Withdrawals.WithLabelValues(metrics.OutcomeApproved).Inc()
	return w, nil
}

// Complete moves an Approved request to Completed once the payout is confirmed.
func (s *WithdrawalService) Complete(ctx context.Context, id string) (model.WithdrawalRequest, error) {
	w, err := s.transition(ctx, id, model.WithdrawalCompleted, repository.WithdrawalUpdate{}, nil)
	if err != nil {
		return model.WithdrawalRequest{}, err
	}
	metrics.Withdrawals.WithLabelValues(metrics.OutcomeCompleted).Inc()
	return w, nil
}

// Reject moves a Pending request to Rejected and returns the reserved funds
// by appending a Completed credit_deposit for the full requested amount.
// The original debit is never modified.
func (s *WithdrawalService) Reject(ctx context.Context, id, reason string) (model.WithdrawalRequest, error) {
	reason = strings.TrimSpace(reason)
	refundID := deterministicID("withdrawal-refund", id)

	w, err := s.transition(ctx, id, model.WithdrawalRejected,
		repository.WithdrawalUpdate{RejectReason: reason, RefundTransactionID: refundID},
		func(tx database.DBTX, w model.WithdrawalRequest) ([]model.Transaction, error) {
			_, _, emitted, err := s.ledger.AppendInTx(ctx, tx, model.Transaction{
				ID:      refundID,
				Account: w.Account,
				Kind:    model.KindCreditDeposit,
				Amount:  w.RequestedAmount,
				Status:  model.StatusCompleted,
				Metadata: map[string]string{
					model.MetaSource:              model.SourceWithdrawalRefund,
					model.MetaWithdrawalRequestID: w.ID,
					model.MetaReason:              reason,
				},
			})
			return emitted, err
		})
	if err != nil {
		return model.WithdrawalRequest{}, err
	}
	metrics.Withdrawals.WithLabelValues(metrics.OutcomeRejected).Inc()
	return w, nil
}

// transition applies one settlement step. effect, when set, runs inside the
// same transaction before the status is written.
func (s *WithdrawalService) transition(
	ctx context.Context,
	id string,
	to model.WithdrawalStatus,
	update repository.WithdrawalUpdate,
	effect func(tx database.DBTX, w model.WithdrawalRequest) ([]model.Transaction, error),
) (model.WithdrawalRequest, error) {
	var (
		w       model.WithdrawalRequest
		emitted []model.Transaction
	)
	update.At = s.clock()

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.withdrawalRepo.WithTx(tx)
		var err error
		if w, err = repo.GetWithdrawal(ctx, id); err != nil {
			return err
		}
		if !w.Status.CanTransitionTo(to) {
			return fmt.Errorf("%w: withdrawal %s is %s", apperrors.ErrInvalidTransition, id, w.Status)
		}
		if effect != nil {
			if emitted, err = effect(tx, w); err != nil {
				return err
			}
		}
		ok, err := repo.UpdateStatus(ctx, id, w.Status, to, update)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: withdrawal %s changed concurrently", apperrors.ErrInvalidTransition, id)
		}
		return nil
	})
	if err != nil {
		return model.WithdrawalRequest{}, err
	}

	w.Status = to
	w.UpdatedAt = update.At
	if update.ExternalRef != "" {
		w.ExternalRef = update.ExternalRef
	}
	if update.RejectReason != "" {
		w.RejectReason = update.RejectReason
	}
	if update.RefundTransactionID != "" {
		w.RefundTransactionID = update.RefundTransactionID
	}

	s.ledger.Committed(ctx, emitted...)
	s.publisher.Publish(ctx, events.WithdrawalStatusChanged(w))
	s.logger.Info("withdrawal settled",
		zap.String("withdrawalId", w.ID),
		zap.String("account", w.Account),
		zap.String("status", string(w.Status)),
	)
	return w, nil
}

// RemainingAllowance reports how much more account may withdraw today.
func (s *WithdrawalService) RemainingAllowance(ctx context.Context, account string) (model.WithdrawalAllowance, error) {
	if account == "" {
		return model.WithdrawalAllowance{}, apperrors.ErrEmptyAccount
	}
	businessDate := model.CalendarDate(s.clock(), s.policy.Location).Format(model.DateLayout)
	used, err := s.withdrawalRepo.SumRequestedOn(ctx, account, businessDate)
	if err != nil {
		return model.WithdrawalAllowance{}, fmt.Errorf("%w: %v", apperrors.ErrFailedToRetrieveWithdrawals, err)
	}
	return model.WithdrawalAllowance{
		Account:    account,
		Date:       businessDate,
		DailyLimit: s.policy.DailyLimit,
		Used:       used,
		Remaining:  decimal.Max(decimal.Zero, s.policy.DailyLimit.Sub(used)),
	}, nil
}

// GetWithdrawal retrieves a single withdrawal request.
func (s *WithdrawalService) GetWithdrawal(ctx context.Context, id string) (model.WithdrawalRequest, error) {
	return s.withdrawalRepo.GetWithdrawal(ctx, id)
}

// ListWithdrawals returns the withdrawal requests of account, newest first.
func (s *WithdrawalService) ListWithdrawals(ctx context.Context, account string) ([]model.WithdrawalRequest, error) {
	if account == "" {
		return nil, apperrors.ErrEmptyAccount
	}
	requests, err := s.withdrawalRepo.ListByAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrFailedToRetrieveWithdrawals, err)
	}
	return requests, nil
}

// ListPending returns every request awaiting settlement, oldest first.
func (s *WithdrawalService) ListPending(ctx context.Context) ([]model.WithdrawalRequest, error) {
	requests, err := s.withdrawalRepo.ListByStatus(ctx, model.WithdrawalPending)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrFailedToRetrieveWithdrawals, err)
	}
	return requests, nil
}
