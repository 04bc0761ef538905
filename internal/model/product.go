package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a catalogue product. The checkout core only reads it
// for display data.
type Product struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	Variants    []Variant `json:"variants,omitempty"`
}

// Variant is a purchasable colour/size option of a product. StockQuantity is
// only ever mutated through the inventory ledger.
type Variant struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	ProductID     uuid.UUID       `json:"productId" db:"product_id"`
	Color         *string         `json:"color,omitempty" db:"color"`
	Size          *string         `json:"size,omitempty" db:"size"`
	UnitPrice     decimal.Decimal `json:"unitPrice" db:"unit_price"`
	StockQuantity int             `json:"stockQuantity" db:"stock_quantity"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time       `json:"updatedAt" db:"updated_at"`
}
