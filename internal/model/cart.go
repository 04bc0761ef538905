package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart is the per-user pre-order holding area. It is created lazily.
type Cart struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"userId" db:"user_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// CartItem is a (cart, variant) line. VariantID may dangle after the variant
// is removed from the catalogue.
type CartItem struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CartID    uuid.UUID `json:"cartId" db:"cart_id"`
	VariantID uuid.UUID `json:"variantId" db:"variant_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// CartLine is a cart item resolved against the catalogue for display.
type CartLine struct {
	ItemID        uuid.UUID       `json:"itemId"`
	VariantID     uuid.UUID       `json:"variantId"`
	Quantity      int             `json:"quantity"`
	Available     bool            `json:"available"`
	ProductID     *uuid.UUID      `json:"productId,omitempty"`
	ProductName   string          `json:"productName,omitempty"`
	Color         *string         `json:"color,omitempty"`
	Size          *string         `json:"size,omitempty"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	StockQuantity int             `json:"stockQuantity"`
	LineTotal     decimal.Decimal `json:"lineTotal"`
}

// CartView is the response shape of GET /api/cart.
type CartView struct {
	ID       *uuid.UUID      `json:"id,omitempty"`
	UserID   uuid.UUID       `json:"userId"`
	Items    []CartLine      `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// AddCartItemRequest represents the request payload for adding to the cart.
type AddCartItemRequest struct {
	VariantID uuid.UUID `json:"variantId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

// UpdateCartItemRequest represents the request payload for changing a line quantity.
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}
