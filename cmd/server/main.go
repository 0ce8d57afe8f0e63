// Package main is the entrypoint for the QuickHire API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/quickhire-gh/quickhire/internal/api"
	"github.com/quickhire-gh/quickhire/internal/api/handler"
	mw "github.com/quickhire-gh/quickhire/internal/api/middleware"
	"github.com/quickhire-gh/quickhire/internal/cache"
	"github.com/quickhire-gh/quickhire/internal/config"
	"github.com/quickhire-gh/quickhire/internal/notify"
	"github.com/quickhire-gh/quickhire/internal/payment/paystack"
	"github.com/quickhire-gh/quickhire/internal/quickhire"
	"github.com/quickhire-gh/quickhire/internal/store"
	"github.com/quickhire-gh/quickhire/internal/sweeper"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// Local development convenience; real deployments set the env directly.
	_ = godotenv.Load()

	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded",
		"env", cfg.Server.Env,
		"fee_rate", cfg.Policy.FeeRate,
		"auto_resolution", cfg.Policy.AutoResolution)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Payment provider
	provider := paystack.NewClient(cfg.Paystack.BaseURL, cfg.Paystack.SecretKey, cfg.Paystack.Timeout)

	// 6. Notification queue: publisher plus in-process worker
	notifier, err := notify.NewAsynqNotifier(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create notifier: %w", err)
	}
	defer notifier.Close()

	notifyWorker, err := notify.NewWorker(cfg.Redis.URL, logger)
	if err != nil {
		return fmt.Errorf("create notification worker: %w", err)
	}
	go func() {
		if err := notifyWorker.Run(); err != nil {
			slog.Error("notification worker stopped", "error", err)
		}
	}()
	defer notifyWorker.Shutdown()

	// 7. Core service and background sweeper
	pgStore := store.NewPostgresStore(pool)
	svc := quickhire.NewService(pgStore, redisCache, provider, notifier, cfg.Policy, logger)

	sw := sweeper.New(pgStore, svc, cfg.Sweep.Interval, 100, logger)
	go sw.Run(ctx)

	// 8. Build router with dependencies
	deps := api.Dependencies{
		RateLimit: mw.NewRateLimit(redisCache, 0),

		HealthHandler:  handler.NewHealthHandler(pgStore, redisCache),
		WebhookHandler: handler.NewPaystackWebhookHandler(svc),

		CreateJob:  handler.NewCreateJobHandler(svc),
		GetJob:     handler.NewGetJobHandler(svc),
		NearbyJobs: handler.NewNearbyJobsHandler(svc),
		ListMyJobs: handler.NewListMyJobsHandler(svc),
		CancelJob:  handler.NewCancelJobHandler(svc),

		SubmitQuote:   handler.NewSubmitQuoteHandler(svc),
		WithdrawQuote: handler.NewWithdrawQuoteHandler(svc),
		AcceptQuote:   handler.NewAcceptQuoteHandler(svc),

		InitializeEscrow: handler.NewInitializeEscrowHandler(svc),
		ConfirmEscrow:    handler.NewConfirmEscrowHandler(svc),

		WorkerOnWay:  handler.NewWorkerOnWayHandler(svc),
		Arrive:       handler.NewArrivalHandler(svc),
		StartWork:    handler.NewStartWorkHandler(svc),
		CompleteWork: handler.NewCompleteWorkHandler(svc),
		Approve:      handler.NewApproveHandler(svc),
		RateClient:   handler.NewRateClientHandler(svc),

		RaiseDispute:    handler.NewRaiseDisputeHandler(svc),
		DisputeEvidence: handler.NewDisputeEvidenceHandler(svc),
		ResolveDispute:  handler.NewResolveDisputeHandler(svc),
		DisputeOverview: handler.NewDisputeOverviewHandler(svc),

		RequestAdditionalWork: handler.NewRequestAdditionalWorkHandler(svc),
		DecideAdditionalWork:  handler.NewAdditionalWorkDecisionHandler(svc),
	}

	router := api.NewRouter(deps)

	// 9. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
