package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ndewijer/investment-ledger/internal/apperrors"
	"github.com/ndewijer/investment-ledger/internal/database"
	"github.com/ndewijer/investment-ledger/internal/metrics"
	"github.com/ndewijer/investment-ledger/internal/model"
	"github.com/ndewijer/investment-ledger/internal/repository"
)

// ReferralService pays the one-time reward a referrer earns when the account
// they referred completes its first purchase.
type ReferralService struct {
	db           *sql.DB
	ledger       *LedgerService
	referralRepo *repository.ReferralRepository
	rewardAmount decimal.Decimal
	logger       *zap.Logger
	clock        Clock
}

// NewReferralService creates a new ReferralService and subscribes it to
// completed purchases on ledger.
func NewReferralService(
	db *sql.DB,
	ledger *LedgerService,
	referralRepo *repository.ReferralRepository,
	rewardAmount decimal.Decimal,
	logger *zap.Logger,
	clock Clock,
) *ReferralService {
	s := &ReferralService{
		db:           db,
		ledger:       ledger,
		referralRepo: referralRepo,
		rewardAmount: rewardAmount,
		logger:       logger,
		clock:        clock.orDefault(),
	}
	ledger.OnPurchaseCompleted(s.purchaseHook)
	return s
}

// RegisterReferral records that referrer referred account. The link is
// permanent: registering the same pair again is a no-op and a different
// referrer fails with apperrors.ErrReferrerAlreadySet. A new link is refused
// with apperrors.ErrAlreadyPurchased once account has completed a purchase.
func (s *ReferralService) RegisterReferral(ctx context.Context, account, referrer string) (model.ReferralLink, error) {
	if account == "" || referrer == "" {
		return model.ReferralLink{}, apperrors.ErrEmptyAccount
	}
	if account == referrer {
		return model.ReferralLink{}, apperrors.ErrSelfReferral
	}

	link := model.ReferralLink{Account: account, ReferrerAccount: referrer, CreatedAt: s.clock()}
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.referralRepo.WithTx(tx)
		existing, ok, err := repo.GetLink(ctx, account)
		if err != nil {
			return err
		}
		if ok {
			if existing.ReferrerAccount != referrer {
				return fmt.Errorf("%w: %s is referred by %s", apperrors.ErrReferrerAlreadySet, account, existing.ReferrerAccount)
			}
			link = existing
			return nil
		}

		purchased, err := s.ledger.HasCompletedPurchase(ctx, tx, account, "")
		if err != nil {
			return err
		}
		if purchased {
			return fmt.Errorf("%w: %s cannot be linked to %s", apperrors.ErrAlreadyPurchased, account, referrer)
		}
		return repo.InsertLink(ctx, link)
	})
	if err != nil {
		return model.ReferralLink{}, err
	}
	return link, nil
}

// OnPurchaseCompleted rewards the referrer of account for its first
// completed purchase, in its own transaction. It returns the reward when one
// was created, nil when the account has no referrer or was already rewarded.
func (s *ReferralService) OnPurchaseCompleted(ctx context.Context, account, purchaseTransactionID string, amount decimal.Decimal) (*model.ReferralReward, error) {
	var (
		reward  *model.ReferralReward
		emitted []model.Transaction
	)
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		reward, emitted, err = s.reward(ctx, tx, account, purchaseTransactionID, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.ledger.Committed(ctx, emitted...)
	return reward, nil
}

func (s *ReferralService) purchaseHook(ctx context.Context, tx database.DBTX, purchase model.Transaction) ([]model.Transaction, error) {
	_, emitted, err := s.reward(ctx, tx, purchase.Account, purchase.ID, purchase.Amount)
	return emitted, err
}

func (s *ReferralService) reward(ctx context.Context, tx database.DBTX, account, purchaseTransactionID string, amount decimal.Decimal) (*model.ReferralReward, []model.Transaction, error) {
	if !amount.IsPositive() || !s.rewardAmount.IsPositive() {
		return nil, nil, nil
	}

	repo := s.referralRepo.WithTx(tx)
	link, ok, err := repo.GetLink(ctx, account)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, nil
	}

	earlier, err := s.ledger.HasCompletedPurchase(ctx, tx, account, purchaseTransactionID)
	if err != nil {
		return nil, nil, err
	}
	if earlier {
		s.logger.Debug("not the first completed purchase",
			zap.String("account", account),
			zap.String("transactionId", purchaseTransactionID),
		)
		return nil, nil, nil
	}

	reward := model.ReferralReward{
		ID:                      deterministicID("referral", link.ReferrerAccount, account),
		ReferrerAccount:         link.ReferrerAccount,
		ReferredAccount:         account,
		TriggeringTransactionID: purchaseTransactionID,
		RewardTransactionID:     deterministicID("referral-reward", link.ReferrerAccount, account),
		Amount:                  s.rewardAmount,
		Status:                  model.RewardCompleted,
		CreatedAt:               s.clock(),
	}
	claimed, err := repo.InsertReward(ctx, reward)
	if err != nil {
		return nil, nil, err
	}
	if !claimed {
		s.logger.Debug("referral reward already paid",
			zap.String("referrer", link.ReferrerAccount),
			zap.String("account", account),
		)
		return nil, nil, nil
	}

	_, _, emitted, err := s.ledger.AppendInTx(ctx, tx, model.Transaction{
		ID:      reward.RewardTransactionID,
		Account: link.ReferrerAccount,
		Kind:    model.KindCreditReferral,
		Amount:  s.rewardAmount,
		Status:  model.StatusCompleted,
		Metadata: map[string]string{
			model.MetaSource:          model.SourceReferral,
			model.MetaReferredAccount: account,
			model.MetaTriggeringTxID:  purchaseTransactionID,
		},
	})
	if err != nil {
		return nil, nil, err
	}

	metrics.ReferralRewards.Inc()
	s.logger.Info("referral reward credited",
		zap.String("referrer", link.ReferrerAccount),
		zap.String("account", account),
		zap.String("amount", s.rewardAmount.String()),
	)
	return &reward, emitted, nil
}

// ListRewards returns the rewards earned by account.
func (s *ReferralService) ListRewards(ctx context.Context, account string) ([]model.ReferralReward, error) {
	if account == "" {
		return nil, apperrors.ErrEmptyAccount
	}
	rewards, err := s.referralRepo.ListRewardsByReferrer(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrFailedToRetrieveReferrals, err)
	}
	return rewards, nil
}

// Totals splits the rewards earned by account into Completed and Withdrawn.
func (s *ReferralService) Totals(ctx context.Context, account string) (model.ReferralTotals, error) {
	rewards, err := s.ListRewards(ctx, account)
	if err != nil {
		return model.ReferralTotals{}, err
	}
	totals := model.ReferralTotals{Account: account, Completed: decimal.Zero, Withdrawn: decimal.Zero, Count: len(rewards)}
	for _, r := range rewards {
		switch r.Status {
		case model.RewardCompleted:
			totals.Completed = totals.Completed.Add(r.Amount)
		case model.RewardWithdrawn:
			totals.Withdrawn = totals.Withdrawn.Add(r.Amount)
		}
	}
	return totals, nil
}

// MarkWithdrawn flags a reward as paid out. This is bookkeeping only; the
// ledger is untouched.
func (s *ReferralService) MarkWithdrawn(ctx context.Context, rewardID string) (model.ReferralReward, error) {
	reward, err := s.referralRepo.GetReward(ctx, rewardID)
	if err != nil {
		return model.ReferralReward{}, err
	}
	ok, err := s.referralRepo.UpdateRewardStatus(ctx, rewardID, model.RewardCompleted, model.RewardWithdrawn, s.clock())
	if err != nil {
		return model.ReferralReward{}, err
	}
	if !ok {
		return model.ReferralReward{}, fmt.Errorf("%w: reward %s is %s", apperrors.ErrInvalidTransition, rewardID, reward.Status)
	}
	reward.Status = model.RewardWithdrawn
	return reward, nil
}
