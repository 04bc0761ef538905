package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handler"
	"storefront/internal/metrics"
	"storefront/internal/notify"
	"storefront/internal/repository"
	"storefront/internal/router"
	"storefront/internal/service"
	"storefront/internal/storage"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger, "api")
	logger.Info().Msg("starting storefront API server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	catalogRepo := repository.NewCatalogRepository(pool, logger)
	cartRepo := repository.NewCartRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	paymentRepo := repository.NewPaymentRepository(pool, logger)
	ledger := repository.NewInventoryLedger(logger)

	store := newProofStore(ctx, cfg.Storage, logger)

	notifier := notify.NewLogNotifier(logger)
	if cfg.Redis.Enabled {
		redisClient, err := notify.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisClient.Close()
		notifier = notify.NewRedisNotifier(redisClient, cfg.Notify.Channel, cfg.Notify.Timeout, logger)
	}
	// Deferred after the client close so in-flight publishes drain first.
	defer func() {
		if err := notifier.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close notifier")
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	orderMetrics := metrics.NewOrderMetrics(reg)

	catalogService := service.NewCatalogService(catalogRepo, logger)
	cartService := service.NewCartService(cartRepo, catalogRepo, logger)
	checkoutService := service.NewCheckoutService(cartRepo, orderRepo, ledger, notifier, orderMetrics, logger)
	orderService := service.NewOrderService(orderRepo, paymentRepo, ledger, notifier, orderMetrics, logger)
	paymentService := service.NewPaymentService(orderRepo, paymentRepo, ledger, store, notifier, orderMetrics, cfg.Upload.MaxProofBytes, logger)

	handlers := router.Handlers{
		Product: handler.NewProductHandler(catalogService, logger),
		Cart:    handler.NewCartHandler(cartService, logger),
		Order:   handler.NewOrderHandler(checkoutService, orderService, logger),
		Payment: handler.NewPaymentHandler(paymentService, cfg.Upload.MaxProofBytes, logger),
	}

	mux := router.New(handlers, router.Options{
		Auth:        cfg.Auth,
		Gatherer:    reg,
		HTTPMetrics: metrics.NewHTTPMetrics(reg),
		UploadsDir:  cfg.Storage.LocalDir,
	}, logger)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// newProofStore prefers S3 when enabled and always keeps local disk as the fallback.
func newProofStore(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) storage.Store {
	local := storage.NewLocalStore(cfg.LocalDir, cfg.LocalBaseURL, logger)
	if !cfg.S3Enabled {
		logger.Info().Str("dir", cfg.LocalDir).Msg("using local file system for payment proofs (S3 disabled)")
		return local
	}

	s3Store, err := storage.NewS3Store(ctx, cfg.Bucket, cfg.Region, cfg.Prefix, cfg.PublicBaseURL, logger)
	if err != nil {
		logger.Warn().
			Err(err).
			Msg("failed to initialise S3 store, falling back to local file system only")
		return local
	}
	return storage.NewFallbackStore(s3Store, local, true, logger)
}
