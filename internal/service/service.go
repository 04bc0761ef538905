package service

import (
	"context"

	"storefront/internal/model"

	"github.com/google/uuid"
)

// CatalogService exposes read-only product data.
type CatalogService interface {
	// GetProduct retrieves a product with its variants.
	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
}

// CartService defines operations on the caller's cart. It never touches stock.
type CartService interface {
	// AddItem adds qty units of a variant, merging with an existing line.
	AddItem(ctx context.Context, principal model.Principal, variantID uuid.UUID, qty int) (*model.CartItem, error)

	// UpdateQuantity overwrites the quantity of one of the caller's lines.
	UpdateQuantity(ctx context.Context, principal model.Principal, itemID uuid.UUID, qty int) (*model.CartItem, error)

	// RemoveItem deletes one of the caller's lines.
	RemoveItem(ctx context.Context, principal model.Principal, itemID uuid.UUID) error

	// GetCart returns the caller's cart resolved against the catalogue.
	GetCart(ctx context.Context, principal model.Principal) (*model.CartView, error)
}

// CheckoutService converts a cart into an order.
type CheckoutService interface {
	// Checkout atomically creates an order from the caller's cart, reserves
	// stock and empties the cart. Nothing is written on failure.
	Checkout(ctx context.Context, principal model.Principal, shippingAddress string) (*model.Order, error)
}

// OrderService defines order reads and status changes.
type OrderService interface {
	// Get retrieves an order with items and payment. Owner or admin only.
	Get(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Order, error)

	// ListMine returns the caller's orders, newest first.
	ListMine(ctx context.Context, principal model.Principal) ([]model.Order, error)

	// ListByStatus returns every order in a status. Admin only.
	ListByStatus(ctx context.Context, principal model.Principal, status model.OrderStatus) ([]model.Order, error)

	// UpdateStatus moves an order to a new status. Admin only.
	UpdateStatus(ctx context.Context, principal model.Principal, id uuid.UUID, status model.OrderStatus) (*model.Order, error)

	// Cancel cancels an order and returns its stock. Owner or admin.
	Cancel(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Order, error)
}

// ProofFile is an uploaded payment proof.
type ProofFile struct {
	Filename string
	Data     []byte
}

// PaymentService defines the payment proof workflow.
type PaymentService interface {
	// UploadProof stores a proof for one of the caller's orders and moves the
	// order to awaiting verification.
	UploadProof(ctx context.Context, principal model.Principal, orderID uuid.UUID, file ProofFile) (*model.Payment, error)

	// Verify accepts a proof, moving the order to processing. Admin only.
	Verify(ctx context.Context, principal model.Principal, paymentID uuid.UUID) (*model.Order, error)

	// Reject refuses a proof and cancels the order. Admin only.
	Reject(ctx context.Context, principal model.Principal, paymentID uuid.UUID) (*model.Order, error)
}
