package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/metrics"
	"storefront/internal/notify"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/internal/sweeper"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger, "sweeper")
	logger.Info().
		Dur("interval", cfg.Sweeper.Interval).
		Dur("payment_ttl", cfg.Sweeper.PaymentTTL).
		Msg("starting storefront sweeper")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	orderRepo := repository.NewOrderRepository(pool, logger)
	paymentRepo := repository.NewPaymentRepository(pool, logger)
	ledger := repository.NewInventoryLedger(logger)

	notifier := notify.NewLogNotifier(logger)
	lock := sweeper.NewLocalLock()
	if cfg.Redis.Enabled {
		redisClient, err := notify.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisClient.Close()

		notifier = notify.NewRedisNotifier(redisClient, cfg.Notify.Channel, cfg.Notify.Timeout, logger)
		lock, err = sweeper.NewRedisLock(redisClient, cfg.Sweeper.LockKey, cfg.Sweeper.LockTTL)
		if err != nil {
			return fmt.Errorf("failed to create sweeper lock: %w", err)
		}
	} else {
		logger.Warn().Msg("redis disabled; sweeper lock is process-local, run a single replica")
	}
	defer notifier.Close()

	reg := prometheus.NewRegistry()
	if cfg.Sweeper.MetricsAddr != "" {
		metricsServer := &http.Server{
			Addr:              cfg.Sweeper.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server stopped")
			}
		}()
		defer metricsServer.Close()
	}

	orderService := service.NewOrderService(orderRepo, paymentRepo, ledger, notifier, metrics.NewOrderMetrics(reg), logger)

	staleOrders, err := sweeper.NewStaleOrderJob(sweeper.StaleOrderJobParams{
		Orders:     orderRepo,
		Canceller:  orderService,
		PaymentTTL: cfg.Sweeper.PaymentTTL,
		BatchSize:  cfg.Sweeper.BatchSize,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create stale order job: %w", err)
	}

	svc, err := sweeper.NewService(sweeper.ServiceParams{
		Registry: sweeper.NewRegistry(staleOrders),
		Lock:     lock,
		Metrics:  metrics.NewJobMetrics(reg),
		Interval: cfg.Sweeper.Interval,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create sweeper: %w", err)
	}

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().Msg("sweeper shutdown completed")
	return nil
}
