package integration

import (
	"context"
	"net/http"
	"testing"
	"time"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handler"
	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/notify"
	"storefront/internal/repository"
	"storefront/internal/router"
	"storefront/internal/service"
	"storefront/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const maxProofBytes = 1 << 20

var testAuth = config.AuthConfig{
	JWTSecret: "integration-secret-0123456789abcdef",
	JWTIssuer: "storefront",
	TokenTTL:  time.Hour,
}

// TestDB represents a migrated test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container and applies the migrations.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	logger := zerolog.Nop()
	pool, err := database.Open(ctx, connStr, config.DatabaseConfig{MaxConnections: 20, MinConnections: 2}, logger)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := database.Migrate(ctx, pool, "up", logger); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// SeedVariant inserts a product with one variant and returns the variant ID.
func SeedVariant(t *testing.T, pool *pgxpool.Pool, name, price string, stock int) uuid.UUID {
	t.Helper()

	ctx := context.Background()
	productID := uuid.New()
	variantID := uuid.New()

	if _, err := pool.Exec(ctx,
		"INSERT INTO products (id, name, description) VALUES ($1, $2, '')",
		productID, name,
	); err != nil {
		t.Fatalf("failed to seed product %s: %v", name, err)
	}
	if _, err := pool.Exec(ctx,
		"INSERT INTO variants (id, product_id, size, unit_price, stock_quantity) VALUES ($1, $2, 'M', $3, $4)",
		variantID, productID, decimal.RequireFromString(price), stock,
	); err != nil {
		t.Fatalf("failed to seed variant of %s: %v", name, err)
	}
	return variantID
}

// SetPrice changes a variant's catalogue price.
func SetPrice(t *testing.T, pool *pgxpool.Pool, variantID uuid.UUID, price string) {
	t.Helper()
	if _, err := pool.Exec(context.Background(),
		"UPDATE variants SET unit_price = $2 WHERE id = $1", variantID, decimal.RequireFromString(price),
	); err != nil {
		t.Fatalf("failed to update price: %v", err)
	}
}

// DeleteProductOf removes the product owning a variant, cascading to the variant.
func DeleteProductOf(t *testing.T, pool *pgxpool.Pool, variantID uuid.UUID) {
	t.Helper()
	if _, err := pool.Exec(context.Background(),
		"DELETE FROM products WHERE id = (SELECT product_id FROM variants WHERE id = $1)", variantID,
	); err != nil {
		t.Fatalf("failed to delete product: %v", err)
	}
}

// StockOf reads the current stock of a variant.
func StockOf(t *testing.T, pool *pgxpool.Pool, variantID uuid.UUID) int {
	t.Helper()
	var stock int
	if err := pool.QueryRow(context.Background(),
		"SELECT stock_quantity FROM variants WHERE id = $1", variantID,
	).Scan(&stock); err != nil {
		t.Fatalf("failed to read stock: %v", err)
	}
	return stock
}

// BackdateOrder moves an order's creation time into the past.
func BackdateOrder(t *testing.T, pool *pgxpool.Pool, orderID uuid.UUID, age time.Duration) {
	t.Helper()
	if _, err := pool.Exec(context.Background(),
		"UPDATE orders SET created_at = NOW() - make_interval(secs => $2) WHERE id = $1",
		orderID, age.Seconds(),
	); err != nil {
		t.Fatalf("failed to backdate order: %v", err)
	}
}

// CleanupDB cleans all data from test tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		"TRUNCATE payments, order_items, orders, cart_items, carts, variants, products")
	if err != nil {
		t.Fatalf("failed to clean tables: %v", err)
	}
}

// Stack is the fully wired application on top of a test database.
type Stack struct {
	Repos struct {
		Orders repository.OrderRepository
	}
	Cart     service.CartService
	Checkout service.CheckoutService
	Orders   service.OrderService
	Payments service.PaymentService
	Handler  http.Handler
}

// NewStack wires repositories, services and the router the way cmd/api does,
// with proofs stored in a temporary directory.
func NewStack(t *testing.T, testDB *TestDB) *Stack {
	t.Helper()

	logger := zerolog.Nop()
	pool := testDB.Pool
	reg := prometheus.NewRegistry()
	orderMetrics := metrics.NewOrderMetrics(reg)
	notifier := notify.NewLogNotifier(logger)
	uploads := t.TempDir()
	store := storage.NewLocalStore(uploads, "/uploads", logger)

	catalogRepo := repository.NewCatalogRepository(pool, logger)
	cartRepo := repository.NewCartRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	paymentRepo := repository.NewPaymentRepository(pool, logger)
	ledger := repository.NewInventoryLedger(logger)

	s := &Stack{
		Cart:     service.NewCartService(cartRepo, catalogRepo, logger),
		Checkout: service.NewCheckoutService(cartRepo, orderRepo, ledger, notifier, orderMetrics, logger),
		Orders:   service.NewOrderService(orderRepo, paymentRepo, ledger, notifier, orderMetrics, logger),
		Payments: service.NewPaymentService(orderRepo, paymentRepo, ledger, store, notifier, orderMetrics, maxProofBytes, logger),
	}
	s.Repos.Orders = orderRepo

	s.Handler = router.New(router.Handlers{
		Product: handler.NewProductHandler(service.NewCatalogService(catalogRepo, logger), logger),
		Cart:    handler.NewCartHandler(s.Cart, logger),
		Order:   handler.NewOrderHandler(s.Checkout, s.Orders, logger),
		Payment: handler.NewPaymentHandler(s.Payments, maxProofBytes, logger),
	}, router.Options{
		Auth:        testAuth,
		Gatherer:    reg,
		HTTPMetrics: metrics.NewHTTPMetrics(reg),
		UploadsDir:  uploads,
	}, logger)

	return s
}

// NewUser returns a fresh customer principal.
func NewUser() model.Principal {
	return model.Principal{UserID: uuid.New(), Role: model.RoleUser}
}

// NewAdmin returns a fresh admin principal.
func NewAdmin() model.Principal {
	return model.Principal{UserID: uuid.New(), Role: model.RoleAdmin}
}

// Bearer mints an Authorization header value for the principal.
func Bearer(t *testing.T, p model.Principal) string {
	t.Helper()
	token, err := auth.MintToken(testAuth, time.Now(), p)
	if err != nil {
		t.Fatalf("failed to mint token: %v", err)
	}
	return "Bearer " + token
}

func serviceProof(filename string, data []byte) service.ProofFile {
	return service.ProofFile{Filename: filename, Data: data}
}
