package repository

import (
	"context"
	"testing"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB starts a PostgreSQL container and applies the migrations.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping repository test in short mode")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := database.Open(ctx, connStr, config.DatabaseConfig{MaxConnections: 10, MinConnections: 1}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, database.Migrate(ctx, pool, "up", zerolog.Nop()))
	return pool
}

// seedVariant inserts a product with a single variant and returns the variant.
func seedVariant(t *testing.T, pool *pgxpool.Pool, price string, stock int) model.Variant {
	t.Helper()
	ctx := context.Background()

	productID := uuid.New()
	_, err := pool.Exec(ctx, `INSERT INTO products (id, name, description) VALUES ($1, $2, '')`, productID, "Tee "+productID.String()[:8])
	require.NoError(t, err)

	v := model.Variant{
		ID:            uuid.New(),
		ProductID:     productID,
		UnitPrice:     decimal.RequireFromString(price),
		StockQuantity: stock,
	}
	color := "black"
	v.Color = &color
	_, err = pool.Exec(ctx,
		`INSERT INTO variants (id, product_id, color, unit_price, stock_quantity) VALUES ($1, $2, $3, $4, $5)`,
		v.ID, v.ProductID, v.Color, v.UnitPrice, v.StockQuantity)
	require.NoError(t, err)
	return v
}

func stockOf(t *testing.T, pool *pgxpool.Pool, variantID uuid.UUID) int {
	t.Helper()
	var stock int
	err := pool.QueryRow(context.Background(), `SELECT stock_quantity FROM variants WHERE id = $1`, variantID).Scan(&stock)
	require.NoError(t, err)
	return stock
}

// seedOrder inserts an order in the given status, committed.
func seedOrder(t *testing.T, pool *pgxpool.Pool, repo OrderRepository, userID uuid.UUID, status model.OrderStatus, createdAt time.Time) *model.Order {
	t.Helper()
	ctx := context.Background()

	order := &model.Order{
		ID:              uuid.New(),
		UserID:          userID,
		TotalPrice:      decimal.RequireFromString("10.00"),
		ShippingAddress: "1 Test Street",
		Status:          status,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.CreateOrder(ctx, tx, order))
	require.NoError(t, tx.Commit(ctx))
	return order
}
