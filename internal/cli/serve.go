package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ndewijer/investment-ledger/internal/api"
	"github.com/ndewijer/investment-ledger/internal/scheduler"
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Bool("migrate", true, "Apply pending database migrations before serving")
	serveCmd.Flags().Bool("no-scheduler", false, "Do not run the daily accrual job in this process")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the daily accrual scheduler",
	Long: `Serve the account and admin HTTP API. Unless --no-scheduler is given,
the daily accrual job runs in-process on ACCRUAL_SCHEDULE, evaluated in
PLATFORM_TIMEZONE. SIGHUP reloads the product catalog.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	migrate, _ := cmd.Flags().GetBool("migrate")
	noScheduler, _ := cmd.Flags().GetBool("no-scheduler")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := loadApp(ctx, migrate)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg, logger := a.cfg, a.logger

	var sched *scheduler.Scheduler
	if !noScheduler {
		sched, err = scheduler.New(cfg.Accrual.Schedule, cfg.Platform.Location, a.services.Accrual, logger)
		if err != nil {
			return fmt.Errorf("invalid ACCRUAL_SCHEDULE: %w", err)
		}
		sched.Start(cfg.Accrual.RunOnStart)
		logger.Info("accrual scheduler started",
			zap.String("schedule", cfg.Accrual.Schedule),
			zap.Time("next", sched.Next()),
		)
	}

	go reloadCatalogOnHangup(ctx, a)

	router := api.NewRouter(a.services, api.RouterConfig{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		InternalAPIKey: cfg.Security.InternalAPIKey,
		Location:       cfg.Platform.Location,
	}, logger)
	if cfg.Security.InternalAPIKey == "" {
		logger.Warn("INTERNAL_API_KEY is not set; admin routes will refuse every request")
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if sched != nil {
		sched.Stop(shutdownCtx)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}

func reloadCatalogOnHangup(ctx context.Context, a *app) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := a.catalog.Reload(); err != nil {
				a.logger.Error("catalog reload failed, keeping previous products", zap.Error(err))
				continue
			}
			a.logger.Info("product catalog reloaded", zap.Int("products", len(a.catalog.List())))
		}
	}
}
