// Package api assembles the HTTP surface of the ledger.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ndewijer/investment-ledger/internal/api/handlers"
	custommiddleware "github.com/ndewijer/investment-ledger/internal/api/middleware"
	"github.com/ndewijer/investment-ledger/internal/service"
)

// Services are the engine services exposed over HTTP.
type Services struct {
	System      *service.SystemService
	Ledger      *service.LedgerService
	Investments *service.InvestmentService
	Accrual     *service.AccrualService
	Referrals   *service.ReferralService
	Withdrawals *service.WithdrawalService
	Credentials *service.CredentialService
	Payouts     *service.PayoutService
}

// RouterConfig holds the HTTP settings of the router.
type RouterConfig struct {
	AllowedOrigins []string
	InternalAPIKey string
	Location       *time.Location
}

// NewRouter creates and configures the HTTP router.
//
// Account routes are served to the client application; /api/admin routes are
// for operators and the payment collaborator and require the internal API key.
func NewRouter(svc Services, cfg RouterConfig, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger(logger))
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	r.Handle("/metrics", promhttp.Handler())

	systemHandler := handlers.NewSystemHandler(svc.System)
	ledgerHandler := handlers.NewLedgerHandler(svc.Ledger)
	investmentHandler := handlers.NewInvestmentHandler(svc.Investments, svc.Accrual)
	accrualHandler := handlers.NewAccrualHandler(svc.Accrual, cfg.Location)
	withdrawalHandler := handlers.NewWithdrawalHandler(svc.Withdrawals, svc.Credentials, svc.Payouts)
	referralHandler := handlers.NewReferralHandler(svc.Referrals)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
		})

		r.Route("/accounts/{account}", func(r chi.Router) {
			r.Use(custommiddleware.ValidateAccountMiddleware)

			r.Get("/balance", ledgerHandler.Balance)
			r.Get("/transactions", ledgerHandler.History)

			r.Get("/investments", investmentHandler.ListInvestments)
			r.Post("/investments", investmentHandler.Purchase)

			r.Get("/withdrawals", withdrawalHandler.ListWithdrawals)
			r.Post("/withdrawals", withdrawalHandler.Submit)
			r.Get("/withdrawals/allowance", withdrawalHandler.Allowance)
			r.Post("/payout-methods", withdrawalHandler.AddPayoutMethod)
			r.Put("/credential", withdrawalHandler.SetCredential)

			r.Post("/referrer", referralHandler.RegisterReferral)
			r.Get("/referrals", referralHandler.ListRewards)
			r.Get("/referrals/totals", referralHandler.Totals)
		})

		r.Get("/transactions/{id}", ledgerHandler.GetTransaction)

		r.Route("/investments/{uuid}", func(r chi.Router) {
			r.Use(custommiddleware.ValidateUUIDMiddleware)
			r.Get("/", investmentHandler.GetInvestment)
			r.Get("/grants", investmentHandler.GrantHistory)
		})

		r.With(custommiddleware.ValidateUUIDMiddleware).
			Get("/withdrawals/{uuid}", withdrawalHandler.GetWithdrawal)

		r.Route("/admin", func(r chi.Router) {
			r.Use(custommiddleware.RequireAPIKey(cfg.InternalAPIKey))

			r.Post("/deposits", ledgerHandler.RecordDeposit)
			r.Post("/transactions/{id}/status", ledgerHandler.TransitionStatus)
			r.Post("/accrual/run", accrualHandler.Run)

			r.Get("/withdrawals/pending", withdrawalHandler.ListPending)
			r.Route("/withdrawals/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Post("/approve", withdrawalHandler.Approve)
				r.Post("/reject", withdrawalHandler.Reject)
				r.Post("/complete", withdrawalHandler.Complete)
			})

			r.With(custommiddleware.ValidateUUIDMiddleware).
				Post("/referral-rewards/{uuid}/withdrawn", referralHandler.MarkWithdrawn)
		})
	})

	return r
}
