package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ndewijer/investment-ledger/internal/apperrors"
	"github.com/ndewijer/investment-ledger/internal/cache"
	"github.com/ndewijer/investment-ledger/internal/database"
	"github.com/ndewijer/investment-ledger/internal/events"
	"github.com/ndewijer/investment-ledger/internal/metrics"
	"github.com/ndewijer/investment-ledger/internal/model"
	"github.com/ndewijer/investment-ledger/internal/repository"
)

// PurchaseHook runs inside the write transaction whenever a debit_purchase
// becomes Completed. It returns any transactions it appended so they can be
// announced after commit.
type PurchaseHook func(ctx context.Context, tx database.DBTX, purchase model.Transaction) ([]model.Transaction, error)

// LedgerService owns the ledger: appending entries, moving them out of
// Pending, and deriving balances from Completed rows.
type LedgerService struct {
	db              *sql.DB
	transactionRepo *repository.TransactionRepository
	balanceCache    cache.BalanceCache
	publisher       events.Publisher
	logger          *zap.Logger
	clock           Clock
	purchaseHooks   []PurchaseHook
}

// NewLedgerService creates a new LedgerService. A nil cache or publisher disables that concern.
func NewLedgerService(
	db *sql.DB,
	transactionRepo *repository.TransactionRepository,
	balanceCache cache.BalanceCache,
	publisher events.Publisher,
	logger *zap.Logger,
	clock Clock,
) *LedgerService {
	if balanceCache == nil {
		balanceCache = cache.Nop{}
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &LedgerService{
		db:              db,
		transactionRepo: transactionRepo,
		balanceCache:    balanceCache,
		publisher:       publisher,
		logger:          logger,
		clock:           clock.orDefault(),
	}
}

// OnPurchaseCompleted registers hook. Hooks are not safe to register after
// the service starts handling requests.
func (s *LedgerService) OnPurchaseCompleted(hook PurchaseHook) {
	s.purchaseHooks = append(s.purchaseHooks, hook)
}

// Append records a new transaction and returns it as stored.
//
// The id is caller-supplied or generated. Appending again with an id that
// already exists and the same account, kind and amount is a no-op that
// returns the stored row with created=false; a different payload under the
// same id fails with apperrors.ErrIdempotencyKeyReuse.
func (s *LedgerService) Append(ctx context.Context, t model.Transaction) (model.Transaction, bool, error) {
	var (
		stored  model.Transaction
		created bool
		emitted []model.Transaction
	)
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		stored, created, emitted, err = s.AppendInTx(ctx, tx, t)
		return err
	})
	if err != nil {
		return model.Transaction{}, false, err
	}
	s.Committed(ctx, emitted...)
	return stored, created, nil
}

// AppendInTx is Append for callers that already hold a write transaction.
// The returned slice holds every transaction created, including those
// appended by purchase hooks; pass it to Committed once tx commits.
func (s *LedgerService) AppendInTx(ctx context.Context, tx database.DBTX, t model.Transaction) (model.Transaction, bool, []model.Transaction, error) {
	if t.Account == "" {
		return model.Transaction{}, false, nil, apperrors.ErrEmptyAccount
	}
	if !t.Kind.Valid() {
		return model.Transaction{}, false, nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidKind, t.Kind)
	}
	if t.Status == "" {
		t.Status = model.StatusPending
	}
	if !t.Status.Valid() {
		return model.Transaction{}, false, nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidStatus, t.Status)
	}
	if !t.Amount.IsPositive() {
		return model.Transaction{}, false, nil, apperrors.ErrInvalidAmount
	}

	t.ID = newID(t.ID)
	now := s.clock()
	t.CreatedAt = now
	t.UpdatedAt = now

	repo := s.transactionRepo.WithTx(tx)
	created, err := repo.Insert(ctx, t)
	if err != nil {
		return model.Transaction{}, false, nil, err
	}
	if !created {
		existing, err := repo.GetTransaction(ctx, t.ID)
		if err != nil {
			return model.Transaction{}, false, nil, err
		}
		if !existing.SamePayload(t) {
			return model.Transaction{}, false, nil, fmt.Errorf("%w: %s", apperrors.ErrIdempotencyKeyReuse, t.ID)
		}
		s.logger.Debug("transaction already recorded", zap.String("transactionId", t.ID))
		return existing, false, nil, nil
	}

	emitted := []model.Transaction{t}
	if t.Kind == model.KindDebitPurchase && t.Status == model.StatusCompleted {
		more, err := s.runPurchaseHooks(ctx, tx, t)
		if err != nil {
			return model.Transaction{}, false, nil, err
		}
		emitted = append(emitted, more...)
	}
	return t, true, emitted, nil
}

// TransitionStatus moves a Pending transaction to Completed, Failed or Cancelled.
// Any other move, including a second transition of the same row, fails with
// apperrors.ErrInvalidTransition.
func (s *LedgerService) TransitionStatus(ctx context.Context, id string, newStatus model.TransactionStatus) (model.Transaction, error) {
	if !newStatus.Valid() {
		return model.Transaction{}, fmt.Errorf("%w: %q", apperrors.ErrInvalidStatus, newStatus)
	}

	var (
		updated model.Transaction
		emitted []model.Transaction
	)
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.transactionRepo.WithTx(tx)
		current, err := repo.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if !current.Status.CanTransitionTo(newStatus) {
			return fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidTransition, current.Status, newStatus)
		}

		now := s.clock()
		ok, err := repo.UpdateStatus(ctx, id, current.Status, newStatus, now)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s changed concurrently", apperrors.ErrInvalidTransition, id)
		}

		updated = current
		updated.Status = newStatus
		updated.UpdatedAt = now

		if updated.Kind == model.KindDebitPurchase && newStatus == model.StatusCompleted {
			if emitted, err = s.runPurchaseHooks(ctx, tx, updated); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return model.Transaction{}, err
	}

	s.publisher.Publish(ctx, events.TransactionStatusChanged(updated))
	s.invalidate(ctx, updated.Account)
	s.Committed(ctx, emitted...)
	return updated, nil
}

// Committed announces transactions created inside a transaction that has
// since committed: metrics, events and cache invalidation. It never fails.
func (s *LedgerService) Committed(ctx context.Context, created ...model.Transaction) {
	if len(created) == 0 {
		return
	}
	accounts := make([]string, 0, len(created))
	evs := make([]events.Event, 0, len(created))
	for _, t := range created {
		metrics.TransactionsAppended.WithLabelValues(string(t.Kind)).Inc()
		evs = append(evs, events.TransactionAppended(t))
		accounts = append(accounts, t.Account)
	}
	s.publisher.Publish(ctx, evs...)
	s.invalidate(ctx, accounts...)
}

// BalanceOf derives the balance of account from its Completed transactions.
// An account without transactions has balance zero.
func (s *LedgerService) BalanceOf(ctx context.Context, account string) (decimal.Decimal, error) {
	return s.BalanceOfInTx(ctx, s.db, account)
}

// BalanceOfInTx is BalanceOf evaluated through tx, so it sees the
// transaction's own uncommitted writes.
func (s *LedgerService) BalanceOfInTx(ctx context.Context, tx database.DBTX, account string) (decimal.Decimal, error) {
	if account == "" {
		return decimal.Zero, apperrors.ErrEmptyAccount
	}
	balance, err := s.transactionRepo.WithTx(tx).SumCompleted(ctx, account)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", apperrors.ErrFailedToRetrieveBalance, err)
	}
	return balance, nil
}

// CachedBalanceOf serves a display balance, reading through the balance cache.
// Cache failures fall back to the ledger. Policy decisions must use BalanceOf.
//
// A write may commit, and invalidate, between deriving the balance and
// caching it. The balance is derived again after the cache write and the
// entry dropped when the two differ, so a stale value never outlives the call.
func (s *LedgerService) CachedBalanceOf(ctx context.Context, account string) (model.Balance, error) {
	if account == "" {
		return model.Balance{}, apperrors.ErrEmptyAccount
	}
	if cached, ok, err := s.balanceCache.Get(ctx, account); err != nil {
		s.logger.Warn("balance cache read failed", zap.String("account", account), zap.Error(err))
	} else if ok {
		return model.Balance{Account: account, Balance: cached, AsOf: s.clock(), FromCache: true}, nil
	}

	balance, err := s.BalanceOf(ctx, account)
	if err != nil {
		return model.Balance{}, err
	}
	if err := s.balanceCache.Set(ctx, account, balance); err != nil {
		s.logger.Warn("balance cache write failed", zap.String("account", account), zap.Error(err))
		return model.Balance{Account: account, Balance: balance, AsOf: s.clock()}, nil
	}

	fresh, err := s.BalanceOf(ctx, account)
	if err != nil || !fresh.Equal(balance) {
		s.invalidate(ctx, account)
	}
	if err == nil {
		balance = fresh
	}
	return model.Balance{Account: account, Balance: balance, AsOf: s.clock()}, nil
}

// HasCompletedPurchase reports whether account has a Completed debit_purchase
// other than excludeID, evaluated through tx.
func (s *LedgerService) HasCompletedPurchase(ctx context.Context, tx database.DBTX, account, excludeID string) (bool, error) {
	n, err := s.transactionRepo.WithTx(tx).CountCompleted(ctx, account, model.KindDebitPurchase, excludeID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetTransaction returns a single transaction.
func (s *LedgerService) GetTransaction(ctx context.Context, id string) (model.Transaction, error) {
	return s.transactionRepo.GetTransaction(ctx, id)
}

// History returns the transactions of account matching filter, newest first.
func (s *LedgerService) History(ctx context.Context, account string, filter model.TransactionFilter) ([]model.Transaction, error) {
	if account == "" {
		return nil, apperrors.ErrEmptyAccount
	}
	for _, k := range filter.Kinds {
		if !k.Valid() {
			return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidKind, k)
		}
	}
	for _, st := range filter.Statuses {
		if !st.Valid() {
			return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidStatus, st)
		}
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, apperrors.ErrInvalidDateRange
	}

	transactions, err := s.transactionRepo.History(ctx, account, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrFailedToRetrieveTransactions, err)
	}
	return transactions, nil
}

// RecordDeposit records a Pending recharge awaiting confirmation by the
// payment collaborator. It only affects the balance once transitioned to
// Completed.
func (s *LedgerService) RecordDeposit(ctx context.Context, id, account string, amount decimal.Decimal, externalRef string) (model.Transaction, bool, error) {
	return s.Append(ctx, model.Transaction{
		ID:          id,
		Account:     account,
		Kind:        model.KindCreditDeposit,
		Amount:      amount,
		Status:      model.StatusPending,
		ExternalRef: externalRef,
		Metadata:    map[string]string{model.MetaSource: model.SourceRecharge},
	})
}

func (s *LedgerService) runPurchaseHooks(ctx context.Context, tx database.DBTX, purchase model.Transaction) ([]model.Transaction, error) {
	var emitted []model.Transaction
	for _, hook := range s.purchaseHooks {
		more, err := hook(ctx, tx, purchase)
		if err != nil {
			return nil, fmt.Errorf("purchase completion hook failed: %w", err)
		}
		emitted = append(emitted, more...)
	}
	return emitted, nil
}

func (s *LedgerService) invalidate(ctx context.Context, accounts ...string) {
	if err := s.balanceCache.Invalidate(ctx, accounts...); err != nil {
		s.logger.Warn("balance cache invalidation failed", zap.Strings("accounts", accounts), zap.Error(err))
	}
}
