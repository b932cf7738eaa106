package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ndewijer/investment-ledger/internal/api"
	"github.com/ndewijer/investment-ledger/internal/cache"
	"github.com/ndewijer/investment-ledger/internal/catalog"
	"github.com/ndewijer/investment-ledger/internal/config"
	"github.com/ndewijer/investment-ledger/internal/database"
	"github.com/ndewijer/investment-ledger/internal/events"
	"github.com/ndewijer/investment-ledger/internal/logging"
	"github.com/ndewijer/investment-ledger/internal/repository"
	"github.com/ndewijer/investment-ledger/internal/service"
	"github.com/ndewijer/investment-ledger/internal/vault"
)

// app is the wired engine shared by the commands.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *sql.DB
	catalog   *catalog.Catalog
	cache     cache.BalanceCache
	publisher events.Publisher
	services  api.Services
}

// loadApp reads the configuration, opens the database and wires every
// service. When migrate is set, pending migrations are applied first;
// otherwise a schema behind the binary is an error.
func loadApp(ctx context.Context, migrate bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	zap.ReplaceGlobals(logger)

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	logger.Info("connected to database", zap.String("path", cfg.Database.Path))

	a := &app{cfg: cfg, logger: logger, db: db}
	if err := a.wire(ctx, migrate); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context, migrate bool) error {
	cfg := a.cfg

	if migrate {
		applied, err := database.Migrate(ctx, a.db)
		if err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		a.logger.Info("database schema ready", zap.Int64("version", applied))
	} else {
		current, pending, err := database.SchemaStatus(ctx, a.db)
		if err != nil {
			return err
		}
		if pending {
			return fmt.Errorf("database schema is at version %d with migrations pending; run 'ledgerd migrate'", current)
		}
	}

	if len(cfg.Security.FernetKeys) == 0 {
		return errors.New("FERNET_KEYS is required; generate one with 'ledgerd keygen'")
	}
	v, err := vault.New(cfg.Security.FernetKeys)
	if err != nil {
		return fmt.Errorf("invalid FERNET_KEYS: %w", err)
	}

	if a.catalog, err = catalog.Load(cfg.Catalog.Path); err != nil {
		return fmt.Errorf("failed to load product catalog: %w", err)
	}
	a.logger.Info("product catalog loaded", zap.String("path", cfg.Catalog.Path), zap.Int("products", len(a.catalog.List())))

	a.cache = cache.Nop{}
	if cfg.Cache.RedisAddr != "" {
		a.cache = cache.NewRedisBalanceCache(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.BalanceTTL)
		a.logger.Info("balance cache enabled", zap.String("addr", cfg.Cache.RedisAddr))
	}

	a.publisher = events.Nop{}
	if len(cfg.Events.KafkaBrokers) > 0 {
		a.publisher = events.NewKafkaPublisher(cfg.Events.KafkaBrokers, cfg.Events.Topic, a.logger)
		a.logger.Info("event stream enabled", zap.Strings("brokers", cfg.Events.KafkaBrokers), zap.String("topic", cfg.Events.Topic))
	}

	db, loc, logger := a.db, cfg.Platform.Location, a.logger
	investmentRepo := repository.NewInvestmentRepository(db)
	grantRepo := repository.NewIncomeGrantRepository(db)

	ledger := service.NewLedgerService(db, repository.NewTransactionRepository(db), a.cache, a.publisher, logger, nil)
	credentials := service.NewCredentialService(repository.NewCredentialRepository(db), v, nil)
	payouts := service.NewPayoutService(repository.NewPayoutMethodRepository(db), v, nil)

	a.services = api.Services{
		System: service.NewSystemService(db, map[string]bool{
			"balance_cache": cfg.Cache.RedisAddr != "",
			"event_stream":  len(cfg.Events.KafkaBrokers) > 0,
		}),
		Ledger:      ledger,
		Investments: service.NewInvestmentService(db, ledger, investmentRepo, grantRepo, a.catalog, loc, logger, nil),
		Accrual:     service.NewAccrualService(db, ledger, investmentRepo, grantRepo, a.catalog, loc, cfg.Accrual.Workers, logger),
		Referrals:   service.NewReferralService(db, ledger, repository.NewReferralRepository(db), cfg.Referral.RewardAmount, logger, nil),
		Withdrawals: service.NewWithdrawalService(
			db, ledger, repository.NewWithdrawalRepository(db), credentials, payouts, a.publisher,
			service.WithdrawalPolicy{
				MinimumAmount: cfg.Withdrawal.MinimumAmount,
				DailyLimit:    cfg.Withdrawal.DailyLimit,
				TaxRate:       cfg.Withdrawal.TaxRate,
				OpenHour:      cfg.Withdrawal.OpenHour,
				CloseHour:     cfg.Withdrawal.CloseHour,
				BlockedDays:   cfg.Withdrawal.BlockedDays,
				Location:      loc,
			},
			logger, nil,
		),
		Credentials: credentials,
		Payouts:     payouts,
	}
	return nil
}

// Close releases the database and the optional collaborators.
func (a *app) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("failed to close event publisher", zap.Error(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("failed to close balance cache", zap.Error(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("failed to close database", zap.Error(err))
	}
	_ = a.logger.Sync()
}
