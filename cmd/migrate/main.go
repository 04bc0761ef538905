package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"storefront/internal/config"
	"storefront/internal/database"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type migrateConfig struct {
	Database config.DatabaseConfig
	Logger   config.LoggerConfig
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|status|version")
	flag.Parse()

	switch *cmd {
	case "up", "down", "status", "version":
	default:
		return fmt.Errorf("unsupported migration command %q", *cmd)
	}

	// Only database settings are needed, so JWT and storage settings stay optional.
	var cfg migrateConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}

	logger := config.NewLogger(cfg.Logger, "migrate")
	ctx := context.Background()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, *cmd, logger, flag.Args()...); err != nil {
		return err
	}

	logger.Info().Str("cmd", *cmd).Msg("migration command completed")
	return nil
}
