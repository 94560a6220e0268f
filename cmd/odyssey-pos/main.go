package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-pos/internal/app"
	"github.com/odyssey-erp/odyssey-pos/internal/backoffice"
	"github.com/odyssey-erp/odyssey-pos/internal/checkout"
	"github.com/odyssey-erp/odyssey-pos/internal/directory"
	"github.com/odyssey-erp/odyssey-pos/internal/observability"
	"github.com/odyssey-erp/odyssey-pos/internal/payments"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-pos/internal/submission"
	"github.com/odyssey-erp/odyssey-pos/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	// Without Redis the directory is served uncached.
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, directory cache disabled", slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	currency := cfg.CurrencyUnit()
	classifier := submission.NewClassifier(currency)
	metrics := observability.NewMetrics()

	client := backoffice.NewClient(cfg.BackofficeURL, cfg.BackofficeToken, cfg.BackofficeTimeout)
	directoryService := directory.NewService(client, directory.NewCache(redisClient, cfg.DirectoryCacheTTL), logger)
	gateway := checkout.NewBackofficeGateway(client, directoryService, currency)

	registry := checkout.NewRegistry(checkout.SessionOptions{
		Draft:      cfg.DraftConfig(),
		Gateway:    gateway,
		Classifier: classifier,
		Recorder:   metrics,
		Logger:     logger,
	}, cfg.SessionIdleTTL)
	metrics.TrackOpenSessions(registry.Len)
	go registry.Run(ctx, cfg.SessionSweepEvery)

	paymentService := payments.NewService(client, classifier, metrics, logger)
	go sweepPaymentForms(ctx, paymentService, cfg.SessionIdleTTL, cfg.SessionSweepEvery, logger)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		CheckoutHandler: checkout.NewHandler(logger, registry, classifier),
		PaymentsHandler: payments.NewHandler(logger, paymentService),
		JobHandler:      jobs.NewHandler(inspector, jobClient, logger),
		Metrics:         metrics,
		Ready: func(r *http.Request) error {
			return client.Ping(r.Context())
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("currency", currency.Code))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

func sweepPaymentForms(ctx context.Context, svc *payments.Service, ttl, every time.Duration, logger *slog.Logger) {
	if ttl <= 0 || every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := svc.Sweep(now.Add(-ttl)); n > 0 {
				logger.Info("expired idle payment forms", slog.Int("count", n))
			}
		}
	}
}
