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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/pflag"

	"github.com/cimillas/ticket-site/internal/app"
	"github.com/cimillas/ticket-site/internal/catalog"
	"github.com/cimillas/ticket-site/internal/clock"
	"github.com/cimillas/ticket-site/internal/config"
	"github.com/cimillas/ticket-site/internal/mail"
	"github.com/cimillas/ticket-site/internal/metrics"
	"github.com/cimillas/ticket-site/internal/payment"
	"github.com/cimillas/ticket-site/internal/storage/postgres"
	"github.com/cimillas/ticket-site/internal/storage/sqlite"
	transporthttp "github.com/cimillas/ticket-site/internal/transport/http"
	"github.com/cimillas/ticket-site/migrations"
)

const startupTimeout = 5 * time.Second

type orderStore interface {
	app.OrderCreator
	app.OrderGetter
	app.PaymentRepository
	transporthttp.Pinger
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	if wd, err := os.Getwd(); err == nil {
		config.LoadEnvFile(logger, wd)
	}

	cfg, err := config.Load(os.Args[1:], os.Stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Stripe.WebhookSecret == "" {
		logger.Warn("STRIPE_WEBHOOK_SECRET not set; every webhook delivery will be rejected")
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	store, closeStore, err := openStore(startupCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	events, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	logger.Info("catalog loaded", "path", cfg.CatalogPath, "events", len(events.Events()))

	reg := metrics.NewRegistry()
	clk := clock.NewSystem()

	var sender mail.Sender = mail.LogSender{Logger: logger}
	if cfg.MailEnabled() {
		sender = mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	} else {
		logger.Warn("SMTP_HOST not set, confirmation emails are only logged")
	}
	outbox := mail.NewAsync(sender, logger, mail.WithOnError(reg.MailFailed))

	var purchaseOpts []app.PurchaseServiceOption
	if cfg.CheckoutEnabled() {
		purchaseOpts = append(purchaseOpts, app.WithCheckout(payment.NewCheckout(cfg.Stripe.SecretKey, cfg.PublicBaseURL)))
	}

	handler := transporthttp.NewRouter(transporthttp.RouterDeps{
		Events:        events,
		Purchases:     app.NewPurchaseService(store, events, clk, purchaseOpts...),
		Confirmations: app.NewConfirmationService(store, events),
		Verifier:      payment.NewVerifier(cfg.Stripe.WebhookSecret, 0),
		Reconciler:    app.NewReconciler(store, events, mail.NewConfirmationNotifier(outbox), clk, logger),
		Store:         store,
		Metrics:       reg,
		Clock:         clk,
		Logger:        logger,
		CORSOrigins:   cfg.CORSOrigins,
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("api listening",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"checkout", cfg.CheckoutEnabled(),
		"smtp", cfg.MailEnabled(),
	)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown error", "error", err)
	}
	if err := outbox.Wait(shutdownCtx); err != nil {
		logger.Warn("pending confirmation emails dropped", "error", err)
	}
	logger.Info("server stopped")
	return nil
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (orderStore, func(), error) {
	driver, dsn, err := cfg.Store()
	if err != nil {
		return nil, nil, err
	}

	switch driver {
	case "postgres":
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to db: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("db ping: %w", err)
		}
		if err := migrations.Apply(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("apply migrations: %w", err)
		}
		logger.Info("order store ready", "driver", driver)
		return postgres.NewOrderRepository(pool), pool.Close, nil
	default:
		repo, err := sqlite.Open(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("order store ready", "driver", driver, "path", dsn)
		return repo, func() { _ = repo.Close() }, nil
	}
}
