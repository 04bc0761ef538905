package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type seedVariant struct {
	color string
	size  string
	price string
	stock int
}

type seedProduct struct {
	name        string
	description string
	variants    []seedVariant
}

var catalog = []seedProduct{
	{
		name:        "Linen Shirt",
		description: "Relaxed fit linen shirt",
		variants: []seedVariant{
			{color: "white", size: "M", price: "19.99", stock: 25},
			{color: "white", size: "L", price: "19.99", stock: 10},
			{color: "navy", size: "M", price: "21.50", stock: 3},
		},
	},
	{
		name:        "Canvas Tote",
		description: "Heavyweight cotton tote bag",
		variants: []seedVariant{
			{color: "natural", price: "5.50", stock: 100},
		},
	},
	{
		name:        "Limited Print",
		description: "Signed print, one left",
		variants: []seedVariant{
			{size: "A3", price: "120.00", stock: 1},
		},
	},
}

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

	logger := config.NewLogger(cfg.Logger, "seed")
	ctx := context.Background()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, "up", logger); err != nil {
		return err
	}

	err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		for _, p := range catalog {
			productID := uuid.New()
			if _, err := tx.Exec(ctx,
				`INSERT INTO products (id, name, description) VALUES ($1, $2, $3)`,
				productID, p.name, p.description,
			); err != nil {
				return fmt.Errorf("failed to insert product %q: %w", p.name, err)
			}
			fmt.Printf("product %s  %s\n", productID, p.name)

			for _, v := range p.variants {
				variantID := uuid.New()
				if _, err := tx.Exec(ctx,
					`INSERT INTO variants (id, product_id, color, size, unit_price, stock_quantity)
					 VALUES ($1, $2, $3, $4, $5, $6)`,
					variantID, productID, nullable(v.color), nullable(v.size), decimal.RequireFromString(v.price), v.stock,
				); err != nil {
					return fmt.Errorf("failed to insert variant of %q: %w", p.name, err)
				}
				fmt.Printf("  variant %s  %s/%s  %s  stock=%d\n", variantID, v.color, v.size, v.price, v.stock)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	now := time.Now()
	for _, p := range []model.Principal{
		{UserID: uuid.New(), Role: model.RoleUser},
		{UserID: uuid.New(), Role: model.RoleAdmin},
	} {
		token, err := auth.MintToken(cfg.Auth, now, p)
		if err != nil {
			return fmt.Errorf("failed to mint token: %w", err)
		}
		fmt.Printf("\n%s token (user %s):\n%s\n", p.Role, p.UserID, token)
	}

	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
