package testutil

import (
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ndewijer/investment-ledger/internal/catalog"
	"github.com/ndewijer/investment-ledger/internal/model"
	"github.com/ndewijer/investment-ledger/internal/repository"
	"github.com/ndewijer/investment-ledger/internal/service"
	"github.com/ndewijer/investment-ledger/internal/vault"
)

// WeekdayNoon is a Wednesday inside the default withdrawal window.
var WeekdayNoon = time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)

// Test products. Plan90 matches the 90/day, 120 day plan used across the tests.
var (
	Plan90 = model.Product{
		ID:           "plan-90",
		Name:         "Plan 90",
		Price:        decimal.NewFromInt(500),
		DailyIncome:  decimal.NewFromInt(90),
		DurationDays: 120,
	}
	PlanShort = model.Product{
		ID:           "plan-short",
		Name:         "Short Plan",
		Price:        decimal.NewFromInt(100),
		DailyIncome:  decimal.NewFromInt(10),
		DurationDays: 3,
	}
)

// DefaultPolicy is the withdrawal policy used by NewTestServices.
func DefaultPolicy() service.WithdrawalPolicy {
	return service.WithdrawalPolicy{
		MinimumAmount: decimal.NewFromInt(100),
		DailyLimit:    decimal.NewFromInt(1000),
		TaxRate:       decimal.RequireFromString("0.15"),
		OpenHour:      9,
		CloseHour:     17,
		BlockedDays:   []time.Weekday{time.Saturday, time.Sunday},
		Location:      time.UTC,
	}
}

// ReferralReward is the fixed reward paid by the test ReferralService.
var ReferralReward = decimal.NewFromInt(50)

// Clock is a settable time source for services under test.
//
// Example usage:
//
//	clock := testutil.NewClock(testutil.WeekdayNoon)
//	svc := service.NewLedgerService(db, repo, nil, nil, logger, clock.Now)
//	clock.Advance(24 * time.Hour)
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a Clock stopped at now.
func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

// Now returns the current test time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to now.
func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// NewTestCatalog returns a catalog holding Plan90 and PlanShort.
func NewTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()

	c, err := catalog.New(Plan90, PlanShort)
	if err != nil {
		t.Fatalf("Failed to build test catalog: %v", err)
	}
	return c
}

// NewTestVault returns a vault with a freshly generated key.
func NewTestVault(t *testing.T) *vault.Vault {
	t.Helper()

	key, err := vault.GenerateKey()
	if err != nil {
		t.Fatalf("Failed to generate vault key: %v", err)
	}
	v, err := vault.New([]string{key})
	if err != nil {
		t.Fatalf("Failed to create vault: %v", err)
	}
	return v
}

func NewTestLedgerService(t *testing.T, db *sql.DB, clock *Clock) *service.LedgerService {
	t.Helper()

	return service.NewLedgerService(
		db,
		repository.NewTransactionRepository(db),
		nil,
		nil,
		zap.NewNop(),
		clock.Now,
	)
}

func NewTestSystemService(t *testing.T, db *sql.DB) *service.SystemService {
	t.Helper()
	return service.NewSystemService(db, map[string]bool{"balance_cache": false, "event_stream": false})
}

// Services bundles every engine service over one database, wired the way
// the server wires them.
type Services struct {
	DB          *sql.DB
	Clock       *Clock
	Catalog     *catalog.Catalog
	Ledger      *service.LedgerService
	Investments *service.InvestmentService
	Accrual     *service.AccrualService
	Referrals   *service.ReferralService
	Withdrawals *service.WithdrawalService
	Credentials *service.CredentialService
	Payouts     *service.PayoutService
}

// NewTestServices wires the full engine over db with the clock at WeekdayNoon,
// DefaultPolicy and the test catalog.
//
// Example usage:
//
//	s := testutil.NewTestServices(t, testutil.SetupTestDB(t))
//	testutil.Deposit(t, s, "acc-a", "1000")
func NewTestServices(t *testing.T, db *sql.DB) *Services {
	t.Helper()

	clock := NewClock(WeekdayNoon)
	logger := zap.NewNop()
	cat := NewTestCatalog(t)
	v := NewTestVault(t)

	investmentRepo := repository.NewInvestmentRepository(db)
	grantRepo := repository.NewIncomeGrantRepository(db)

	ledger := NewTestLedgerService(t, db, clock)
	credentials := service.NewCredentialService(repository.NewCredentialRepository(db), v, clock.Now)
	payouts := service.NewPayoutService(repository.NewPayoutMethodRepository(db), v, clock.Now)

	return &Services{
		DB:      db,
		Clock:   clock,
		Catalog: cat,
		Ledger:  ledger,
		Investments: service.NewInvestmentService(
			db, ledger, investmentRepo, grantRepo, cat, time.UTC, logger, clock.Now,
		),
		Accrual: service.NewAccrualService(
			db, ledger, investmentRepo, grantRepo, cat, time.UTC, 4, logger,
		),
		Referrals: service.NewReferralService(
			db, ledger, repository.NewReferralRepository(db), ReferralReward, logger, clock.Now,
		),
		Withdrawals: service.NewWithdrawalService(
			db, ledger, repository.NewWithdrawalRepository(db), credentials, payouts, nil, DefaultPolicy(), logger, clock.Now,
		),
		Credentials: credentials,
		Payouts:     payouts,
	}
}

// NewTestWithdrawalService builds a WithdrawalService over db with the given
// collaborators, typically gomock mocks. The returned ledger shares db.
func NewTestWithdrawalService(
	t *testing.T,
	db *sql.DB,
	clock *Clock,
	credentials service.CredentialVerifier,
	payouts service.PayoutDirectory,
) (*service.WithdrawalService, *service.LedgerService) {
	t.Helper()

	ledger := NewTestLedgerService(t, db, clock)
	return service.NewWithdrawalService(
		db,
		ledger,
		repository.NewWithdrawalRepository(db),
		credentials,
		payouts,
		nil,
		DefaultPolicy(),
		zap.NewNop(),
		clock.Now,
	), ledger
}

// MakeID returns a fresh UUID string.
func MakeID() string {
	return uuid.New().String()
}

// MakeAccount returns a unique account identifier with the given prefix.
func MakeAccount(prefix string) string {
	return prefix + "-" + uuid.New().String()[:8]
}
