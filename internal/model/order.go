package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order represents a customer order. Identity, items and total are fixed at
// checkout; only Status and the shipment timestamps change afterwards.
type Order struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	UserID          uuid.UUID       `json:"userId" db:"user_id"`
	TotalPrice      decimal.Decimal `json:"totalPrice" db:"total_price"`
	ShippingAddress string          `json:"shippingAddress" db:"shipping_address"`
	Status          OrderStatus     `json:"status" db:"status"`
	ShippedAt       *time.Time      `json:"shippedAt,omitempty" db:"shipped_at"`
	ReceivedAt      *time.Time      `json:"receivedAt,omitempty" db:"received_at"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
	Items           []OrderItem     `json:"items,omitempty"`
	Payment         *Payment        `json:"payment,omitempty"`
}

// OrderItem represents a line item in an order, with the unit price
// snapshotted at checkout time.
type OrderItem struct {
	ID                  uuid.UUID       `json:"id" db:"id"`
	OrderID             uuid.UUID       `json:"orderId" db:"order_id"`
	VariantID           uuid.UUID       `json:"variantId" db:"variant_id"`
	Quantity            int             `json:"quantity" db:"quantity"`
	UnitPriceAtPurchase decimal.Decimal `json:"unitPriceAtPurchase" db:"unit_price_at_purchase"`
}

// LineTotal returns unit price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPriceAtPurchase.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Payment is the single proof-of-payment record of an order.
type Payment struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	OrderID       uuid.UUID     `json:"orderId" db:"order_id"`
	ProofImageURL *string       `json:"proofImageUrl,omitempty" db:"proof_image_url"`
	Status        PaymentStatus `json:"status" db:"status"`
	UploadedAt    time.Time     `json:"uploadedAt" db:"uploaded_at"`
	VerifiedAt    *time.Time    `json:"verifiedAt,omitempty" db:"verified_at"`
	UpdatedAt     time.Time     `json:"updatedAt" db:"updated_at"`
}

// CheckoutRequest represents the request payload for POST /api/orders/checkout.
type CheckoutRequest struct {
	ShippingAddress string `json:"shippingAddress" validate:"required,max=1000"`
}

// UpdateOrderStatusRequest represents the request payload for PUT /api/orders/{id}/status.
type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}
