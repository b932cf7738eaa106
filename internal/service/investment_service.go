package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ndewijer/investment-ledger/internal/apperrors"
	"github.com/ndewijer/investment-ledger/internal/database"
	"github.com/ndewijer/investment-ledger/internal/model"
	"github.com/ndewijer/investment-ledger/internal/repository"
)

// InvestmentService handles purchases of products and the registry of
// resulting investments.
type InvestmentService struct {
	db             *sql.DB
	ledger         *LedgerService
	investmentRepo *repository.InvestmentRepository
	grantRepo      *repository.IncomeGrantRepository
	catalog        ProductCatalog
	location       *time.Location
	logger         *zap.Logger
	clock          Clock
}

// NewInvestmentService creates a new InvestmentService.
func NewInvestmentService(
	db *sql.DB,
	ledger *LedgerService,
	investmentRepo *repository.InvestmentRepository,
	grantRepo *repository.IncomeGrantRepository,
	catalog ProductCatalog,
	location *time.Location,
	logger *zap.Logger,
	clock Clock,
) *InvestmentService {
	return &InvestmentService{
		db:             db,
		ledger:         ledger,
		investmentRepo: investmentRepo,
		grantRepo:      grantRepo,
		catalog:        catalog,
		location:       location,
		logger:         logger,
		clock:          clock.orDefault(),
	}
}

// Purchase buys productID for account.
//
// The debit_purchase transaction and the investment are written in one
// transaction together with whatever purchase hooks append (the referral
// reward). idempotencyKey, when set, becomes the funding transaction id so
// a retried request returns the investment created by the first attempt.
//
// Errors:
//   - apperrors.ErrProductNotFound when the catalog does not know productID
//   - apperrors.ErrProductUnavailable when the catalog cannot be reached
//   - *apperrors.PolicyError wrapping ErrInsufficientBalance
//   - apperrors.ErrIdempotencyKeyReuse when the key was used for another purchase
func (s *InvestmentService) Purchase(ctx context.Context, account, productID, idempotencyKey string) (model.Investment, error) {
	if account == "" {
		return model.Investment{}, apperrors.ErrEmptyAccount
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, apperrors.ErrProductNotFound) {
			return model.Investment{}, err
		}
		s.logger.Error("product catalog lookup failed", zap.String("productId", productID), zap.Error(err))
		return model.Investment{}, fmt.Errorf("%w: %v", apperrors.ErrProductUnavailable, err)
	}

	fundingID := newID(idempotencyKey)
	now := s.clock()
	investment := model.Investment{
		ID:                   deterministicID("investment", fundingID),
		Account:              account,
		ProductID:            product.ID,
		PurchasePrice:        product.Price,
		PurchaseDate:         model.CalendarDate(now, s.location),
		FundingTransactionID: fundingID,
		CreatedAt:            now,
	}

	var emitted []model.Transaction
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.investmentRepo.WithTx(tx)

		// A retry finds its own funding transaction already recorded.
		if existing, err := s.ledger.transactionRepo.WithTx(tx).GetTransaction(ctx, fundingID); err == nil {
			if existing.Account != account || existing.Kind != model.KindDebitPurchase || !existing.Amount.Equal(product.Price) {
				return fmt.Errorf("%w: %s", apperrors.ErrIdempotencyKeyReuse, fundingID)
			}
			investment, err = repo.GetByFundingTransaction(ctx, fundingID)
			return err
		} else if !errors.Is(err, apperrors.ErrTransactionNotFound) {
			return err
		}

		balance, err := s.ledger.BalanceOfInTx(ctx, tx, account)
		if err != nil {
			return err
		}
		if balance.LessThan(product.Price) {
			return apperrors.NewPolicyError(apperrors.ErrInsufficientBalance,
				"balance %s is below the price of %s (%s)", formatMoney(balance), product.Name, formatMoney(product.Price))
		}

		_, _, emitted, err = s.ledger.AppendInTx(ctx, tx, model.Transaction{
			ID:      fundingID,
			Account: account,
			Kind:    model.KindDebitPurchase,
			Amount:  product.Price,
			Status:  model.StatusCompleted,
			Metadata: map[string]string{
				model.MetaSource:       model.SourcePurchase,
				model.MetaProductID:    product.ID,
				model.MetaInvestmentID: investment.ID,
			},
		})
		if err != nil {
			return err
		}
		return repo.Insert(ctx, investment)
	})
	if err != nil {
		return model.Investment{}, err
	}

	s.ledger.Committed(ctx, emitted...)
	if len(emitted) > 0 {
		s.logger.Info("investment purchased",
			zap.String("account", account),
			zap.String("investmentId", investment.ID),
			zap.String("productId", product.ID),
			zap.String("price", product.Price.String()),
		)
	}
	return investment, nil
}

// GetInvestment retrieves a single investment.
func (s *InvestmentService) GetInvestment(ctx context.Context, id string) (model.Investment, error) {
	return s.investmentRepo.GetInvestment(ctx, id)
}

// ListInvestments returns the investments of account with their state as of today.
// Investments whose product disappeared from the catalog are still listed,
// without product details.
func (s *InvestmentService) ListInvestments(ctx context.Context, account string) ([]model.InvestmentView, error) {
	if account == "" {
		return nil, apperrors.ErrEmptyAccount
	}
	investments, err := s.investmentRepo.ListByAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrFailedToRetrieveInvestments, err)
	}
	grants, err := s.grantRepo.CountByAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrFailedToRetrieveInvestments, err)
	}

	today := model.CalendarDate(s.clock(), s.location)
	views := make([]model.InvestmentView, 0, len(investments))
	for _, inv := range investments {
		view := model.InvestmentView{
			Investment:  inv,
			DaysElapsed: inv.DaysElapsed(today),
			GrantsPaid:  grants[inv.ID],
		}
		if product, err := s.catalog.GetProduct(ctx, inv.ProductID); err == nil {
			view.ProductName = product.Name
			view.DailyIncome = product.DailyIncome
			view.DurationDays = product.DurationDays
			view.Active = inv.IsActive(today, product)
		} else {
			s.logger.Warn("product missing for investment", zap.String("investmentId", inv.ID), zap.Error(err))
		}
		views = append(views, view)
	}
	return views, nil
}
