package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tickerdeck/tickerdeck/internal"
	"github.com/tickerdeck/tickerdeck/internal/ai"
	"github.com/tickerdeck/tickerdeck/internal/auth"
	"github.com/tickerdeck/tickerdeck/internal/billing"
	"github.com/tickerdeck/tickerdeck/internal/domain"
	"github.com/tickerdeck/tickerdeck/internal/handler/api"
	"github.com/tickerdeck/tickerdeck/internal/handler/webhook"
	"github.com/tickerdeck/tickerdeck/internal/marketdata"
	"github.com/tickerdeck/tickerdeck/internal/middleware"
	"github.com/tickerdeck/tickerdeck/internal/postgres"
	"github.com/tickerdeck/tickerdeck/internal/routes"
	"github.com/tickerdeck/tickerdeck/internal/service"
	"github.com/tickerdeck/tickerdeck/internal/telemetry"
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Migrations run over database/sql; the application uses a pgx pool.
	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	logger.Info("Running database migrations...")
	if err := internal.RunMigrations(sqlDB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	userStore := postgres.NewUserStore(pool)
	watchlistStore := postgres.NewWatchlistStore(pool)

	// Billing provider. Without a Stripe key the whole billing surface
	// runs in mock mode against storage only.
	var provider billing.Provider
	if cfg.Stripe.Enabled() {
		stripeProvider, err := billing.NewStripeProvider(billing.StripeConfig{
			APIKey:        cfg.Stripe.SecretKey,
			WebhookSecret: cfg.Stripe.WebhookSecret,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize Stripe provider: %w", err)
		}
		logger.Info("Stripe billing provider initialized", "test_mode", stripeProvider.IsTestMode())
		provider = stripeProvider
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set, billing runs in mock mode")
		provider = billing.NewNullProvider()
	}

	prices := func(plan string, isAnnual bool) string {
		switch {
		case plan == domain.PlanAdvanced && isAnnual:
			return cfg.Stripe.Prices.AdvancedAnnual
		case plan == domain.PlanAdvanced:
			return cfg.Stripe.Prices.AdvancedMonthly
		case isAnnual:
			return cfg.Stripe.Prices.ProAnnual
		default:
			return cfg.Stripe.Prices.ProMonthly
		}
	}

	market := marketdata.NewService()

	subscriptionService := service.NewSubscriptionService(userStore, provider, prices, service.CheckoutURLs{
		Success: cfg.AppURL + "/dashboard?checkout=success&session_id={CHECKOUT_SESSION_ID}",
		Cancel:  cfg.AppURL + "/pricing?checkout=cancelled",
	}, logger)
	userService := service.NewUserService(userStore, logger)
	watchlistService := service.NewWatchlistService(watchlistStore, market)

	var queryService domain.QueryService
	if cfg.Gemini.APIKey != "" {
		gemini, err := ai.NewQueryService(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, market, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize gemini client: %w", err)
		}
		defer gemini.Close()
		queryService = gemini
	} else {
		logger.Warn("GEMINI_API_KEY not set, AI assistant disabled")
		queryService = ai.DisabledService{}
	}

	bizMetrics := telemetry.NewMetrics("tickerdeck")
	httpMetrics := middleware.NewMetrics("tickerdeck")

	r := routes.New(routes.Deps{
		Logger:          logger,
		AllowedOrigins:  []string{cfg.AppURL},
		Verifier:        auth.NewVerifier(cfg.Auth.SessionSecret),
		HTTPMetrics:     httpMetrics,
		Subscriptions:   api.NewSubscriptionHandler(subscriptionService, bizMetrics),
		Watchlist:       api.NewWatchlistHandler(watchlistService, bizMetrics),
		Market:          api.NewMarketHandler(market),
		AI:              api.NewAIHandler(queryService, bizMetrics),
		StripeWebhook:   webhook.NewStripeHandler(subscriptionService, provider, cfg.Stripe.WebhookSecret, bizMetrics),
		IdentityWebhook: webhook.NewIdentityHandler(userService, cfg.Auth.WebhookSecret, bizMetrics),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "address", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
