package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ndewijer/investment-ledger/internal/apperrors"
	"github.com/ndewijer/investment-ledger/internal/database"
	"github.com/ndewijer/investment-ledger/internal/metrics"
	"github.com/ndewijer/investment-ledger/internal/model"
	"github.com/ndewijer/investment-ledger/internal/repository"
)

// RunSummary reports the outcome of one accrual run.
//
// Granted and Backfilled count grants; Backfilled is the share paid for
// dates before GrantDate. The other counters count investments.
type RunSummary struct {
	GrantDate  string        `json:"grantDate"`
	Scanned    int           `json:"scanned"`
	Granted    int           `json:"granted"`
	Backfilled int           `json:"backfilled"`
	Skipped    int           `json:"skipped"`
	Failed     int           `json:"failed"`
	Expired    int           `json:"expired"`
	NotDue     int           `json:"notDue"`
	Duration   time.Duration `json:"durationNs"`
}

// AccrualService grants daily investment income.
//
// It keeps no memory of previous runs: the unique (investment, grant date)
// constraint on income_grant decides whether a grant is still owed, so any
// number of runs, concurrent or not, pay each investment once per day. A run
// pays every owed day up to its grant date, so days missed by an outage are
// paid by the next run.
type AccrualService struct {
	db             *sql.DB
	ledger         *LedgerService
	investmentRepo *repository.InvestmentRepository
	grantRepo      *repository.IncomeGrantRepository
	catalog        ProductCatalog
	location       *time.Location
	workers        int
	logger         *zap.Logger
}

// NewAccrualService creates a new AccrualService processing up to workers investments in parallel.
func NewAccrualService(
	db *sql.DB,
	ledger *LedgerService,
	investmentRepo *repository.InvestmentRepository,
	grantRepo *repository.IncomeGrantRepository,
	catalog ProductCatalog,
	location *time.Location,
	workers int,
	logger *zap.Logger,
) *AccrualService {
	if workers < 1 {
		workers = 1
	}
	return &AccrualService{
		db:             db,
		ledger:         ledger,
		investmentRepo: investmentRepo,
		grantRepo:      grantRepo,
		catalog:        catalog,
		location:       location,
		workers:        workers,
		logger:         logger,
	}
}

type grantOutcome int

const (
	outcomeGranted grantOutcome = iota
	outcomeSkipped
	outcomeFailed
	outcomeExpired
	outcomeNotDue
)

var outcomeLabels = map[grantOutcome]string{
	outcomeGranted: metrics.OutcomeGranted,
	outcomeSkipped: metrics.OutcomeSkipped,
	outcomeFailed:  metrics.OutcomeFailed,
	outcomeExpired: metrics.OutcomeExpired,
	outcomeNotDue:  metrics.OutcomeNotDue,
}

// Run grants the income due up to and including the platform calendar day
// containing now.
//
// Per-investment failures are logged and counted; they never abort the run.
// An error is returned only when the investments cannot be listed or ctx is
// cancelled.
func (s *AccrualService) Run(ctx context.Context, now time.Time) (RunSummary, error) {
	start := time.Now()
	grantDate := model.CalendarDate(now, s.location)
	summary := RunSummary{GrantDate: grantDate.Format(model.DateLayout)}

	investments, err := s.investmentRepo.ListPurchasedOnOrBefore(ctx, grantDate)
	if err != nil {
		return summary, fmt.Errorf("%w: %v", apperrors.ErrFailedToRunAccrual, err)
	}

	var (
		counts              [5]atomic.Int64
		granted, backfilled atomic.Int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, inv := range investments {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res := s.accrue(gctx, inv, grantDate)
			granted.Add(int64(res.granted))
			backfilled.Add(int64(res.backfilled))
			if res.granted > 0 {
				metrics.AccrualGrants.WithLabelValues(outcomeLabels[outcomeGranted]).Add(float64(res.granted))
			}
			if res.outcome != outcomeGranted {
				counts[res.outcome].Add(1)
				metrics.AccrualGrants.WithLabelValues(outcomeLabels[res.outcome]).Inc()
			}
			return nil
		})
	}
	_ = g.Wait()

	summary.Scanned = len(investments)
	summary.Granted = int(granted.Load())
	summary.Backfilled = int(backfilled.Load())
	summary.Skipped = int(counts[outcomeSkipped].Load())
	summary.Failed = int(counts[outcomeFailed].Load())
	summary.Expired = int(counts[outcomeExpired].Load())
	summary.NotDue = int(counts[outcomeNotDue].Load())
	summary.Duration = time.Since(start)
	metrics.AccrualRunDuration.Observe(summary.Duration.Seconds())

	s.logger.Info("accrual run finished",
		zap.String("grantDate", summary.GrantDate),
		zap.Int("scanned", summary.Scanned),
		zap.Int("granted", summary.Granted),
		zap.Int("backfilled", summary.Backfilled),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Int("expired", summary.Expired),
		zap.Duration("duration", summary.Duration),
	)

	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("%w: %v", apperrors.ErrFailedToRunAccrual, err)
	}
	return summary, nil
}

type accrualResult struct {
	outcome    grantOutcome
	granted    int
	backfilled int
}

// accrue pays one investment every day still owed from its purchase date
// through grantDate, stopping at the end of the plan.
func (s *AccrualService) accrue(ctx context.Context, inv model.Investment, grantDate time.Time) accrualResult {
	log := s.logger.With(zap.String("investmentId", inv.ID), zap.String("grantDate", grantDate.Format(model.DateLayout)))

	product, err := s.catalog.GetProduct(ctx, inv.ProductID)
	if err != nil {
		log.Warn("skipping investment: product lookup failed", zap.String("productId", inv.ProductID), zap.Error(err))
		return accrualResult{outcome: outcomeFailed}
	}

	elapsed := inv.DaysElapsed(grantDate)
	if elapsed < 0 {
		return accrualResult{outcome: outcomeNotDue}
	}
	last := min(elapsed, product.DurationDays-1)

	paid, err := s.grantRepo.GrantedDates(ctx, inv.ID)
	if err != nil {
		log.Warn("skipping investment: grant lookup failed", zap.Error(err))
		return accrualResult{outcome: outcomeFailed}
	}

	var res accrualResult
	for day := 0; day <= last; day++ {
		date := time.Date(inv.PurchaseDate.Year(), inv.PurchaseDate.Month(), inv.PurchaseDate.Day()+day, 0, 0, 0, 0, s.location)
		if paid[date.Format(model.DateLayout)] {
			continue
		}
		ok, err := s.grant(ctx, inv, product, date, day+1)
		if err != nil {
			log.Warn("income grant failed", zap.String("day", date.Format(model.DateLayout)), zap.Error(err))
			res.outcome = outcomeFailed
			return res
		}
		if !ok {
			continue
		}
		res.granted++
		if day < elapsed {
			res.backfilled++
		}
	}

	switch {
	case res.granted > 0:
		res.outcome = outcomeGranted
	case elapsed >= product.DurationDays:
		res.outcome = outcomeExpired
	default:
		res.outcome = outcomeSkipped
	}
	return res
}

// grant claims the (investment, date) slot and appends its credit in one
// transaction. It reports false when the slot was already taken.
func (s *AccrualService) grant(ctx context.Context, inv model.Investment, product model.Product, date time.Time, dayNumber int) (bool, error) {
	dateKey := date.Format(model.DateLayout)
	credit := model.Transaction{
		ID:      deterministicID("income", inv.ID, dateKey),
		Account: inv.Account,
		Kind:    model.KindCreditDeposit,
		Amount:  product.DailyIncome,
		Status:  model.StatusCompleted,
		Metadata: map[string]string{
			model.MetaSource:       model.SourceAccrual,
			model.MetaInvestmentID: inv.ID,
			model.MetaGrantDate:    dateKey,
			model.MetaDayNumber:    strconv.Itoa(dayNumber),
		},
	}
	grant := model.IncomeGrant{
		ID:            deterministicID("grant", inv.ID, dateKey),
		Account:       inv.Account,
		InvestmentID:  inv.ID,
		GrantDate:     date,
		DayNumber:     dayNumber,
		Amount:        product.DailyIncome,
		TransactionID: credit.ID,
		CreatedAt:     s.ledger.clock(),
	}

	var emitted []model.Transaction
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		claimed, err := s.grantRepo.WithTx(tx).Insert(ctx, grant)
		if err != nil {
			return err
		}
		if !claimed {
			return errAlreadyGranted
		}
		_, _, emitted, err = s.ledger.AppendInTx(ctx, tx, credit)
		return err
	})
	if errors.Is(err, errAlreadyGranted) {
		s.logger.Debug("income already granted", zap.String("investmentId", inv.ID), zap.String("grantDate", dateKey))
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.ledger.Committed(ctx, emitted...)
	return true, nil
}

var errAlreadyGranted = errors.New("income already granted")

// GrantHistory returns the income grants paid for an investment.
func (s *AccrualService) GrantHistory(ctx context.Context, investmentID string) ([]model.IncomeGrant, error) {
	if _, err := s.investmentRepo.GetInvestment(ctx, investmentID); err != nil {
		return nil, err
	}
	grants, err := s.grantRepo.ListByInvestment(ctx, investmentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrFailedToRetrieveGrants, err)
	}
	return grants, nil
}
