package repository

import (
	"context"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CatalogRepository defines read access to products and variants.
type CatalogRepository interface {
	// GetProduct retrieves a product with its variants.
	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)

	// GetVariant retrieves a single variant by its ID.
	GetVariant(ctx context.Context, id uuid.UUID) (*model.Variant, error)
}

// InventoryLedger is the only component allowed to mutate variant stock.
// Every method runs inside the caller's transaction.
type InventoryLedger interface {
	// LockVariants row-locks the given variants in ID order and returns the
	// ones that still exist, keyed by ID.
	LockVariants(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) (map[uuid.UUID]model.Variant, error)

	// Reserve atomically deducts qty units, failing with InsufficientStock
	// without mutation when stock is short.
	Reserve(ctx context.Context, tx pgx.Tx, variantID uuid.UUID, qty int) error

	// Release returns qty units to stock. A missing variant is not an error.
	Release(ctx context.Context, tx pgx.Tx, variantID uuid.UUID, qty int) error
}

// CartRepository defines data access for carts and cart items.
type CartRepository interface {
	// LockByUserID row-locks the user's cart. Returns nil when the user has no cart.
	LockByUserID(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*model.Cart, error)

	// ListItems returns the cart's items in insertion order.
	ListItems(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) ([]model.CartItem, error)

	// ClearItems deletes every item of the cart and returns how many were removed.
	ClearItems(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) (int64, error)

	// FindItemByVariant returns the user's line for a variant, or nil.
	FindItemByVariant(ctx context.Context, userID, variantID uuid.UUID) (*model.CartItem, error)

	// AddItem creates the cart if needed and upserts the (cart, variant) line,
	// incrementing the quantity of an existing line.
	AddItem(ctx context.Context, userID, variantID uuid.UUID, qty int) (*model.CartItem, error)

	// GetItem retrieves a line that belongs to the user's cart.
	GetItem(ctx context.Context, userID, itemID uuid.UUID) (*model.CartItem, error)

	// UpdateItemQuantity overwrites the quantity of a line.
	UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, qty int) (*model.CartItem, error)

	// RemoveItem deletes a line that belongs to the user's cart.
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error

	// GetView resolves the user's cart against the catalogue for display.
	GetView(ctx context.Context, userID uuid.UUID) (*model.CartView, error)
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new read committed transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts a new order within the provided transaction.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts multiple order items within the provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByID retrieves an order with its items and payment.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// LockByID row-locks an order inside the transaction.
	LockByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error)

	// GetItems returns the items of an order inside the transaction.
	GetItems(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) ([]model.OrderItem, error)

	// UpdateStatus moves an order from one status to another, stamping the
	// shipment timestamps. It fails with InvalidStatusTransition when the
	// stored status is no longer from.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to model.OrderStatus, at time.Time) error

	// ListByUser returns a user's orders, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error)

	// ListByStatus returns all orders in a status, oldest first.
	ListByStatus(ctx context.Context, status model.OrderStatus) ([]model.Order, error)

	// ListByStatusBefore returns up to limit orders in a status created before cutoff.
	ListByStatusBefore(ctx context.Context, status model.OrderStatus, cutoff time.Time, limit int) ([]model.Order, error)
}

// PaymentRepository defines data access for payment proofs.
type PaymentRepository interface {
	// GetByID retrieves a payment by its ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Payment, error)

	// LockByID row-locks a payment inside the transaction.
	LockByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Payment, error)

	// LockByOrderID row-locks the payment of an order. Returns nil when none exists.
	LockByOrderID(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (*model.Payment, error)

	// Upsert stores the order's proof, resetting it to pending. payment.ID is
	// replaced by the stored ID when a record already exists.
	Upsert(ctx context.Context, tx pgx.Tx, payment *model.Payment) error

	// UpdateStatus moves a payment between review states.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to model.PaymentStatus, at time.Time) error
}
