package model

import (
	"errors"

	"github.com/google/uuid"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON             = "INVALID_JSON"
	ErrCodeValidation              = "VALIDATION_ERROR"
	ErrCodeEmptyCart               = "EMPTY_CART"
	ErrCodeInvalidCartItem         = "INVALID_CART_ITEM"
	ErrCodeInsufficientStock       = "INSUFFICIENT_STOCK"
	ErrCodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	ErrCodeNotFound                = "NOT_FOUND"
	ErrCodeUnauthenticated         = "UNAUTHENTICATED"
	ErrCodeUnauthorised            = "UNAUTHORIZED"
	ErrCodeInternalError           = "INTERNAL_ERROR"
)

// DomainError is a business rule failure. Details carries the structured
// payload callers need to render the failure (e.g. which variant ran short).
type DomainError struct {
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches errors that share code and message, so detailed copies created
// by the constructors below still satisfy errors.Is against the sentinels.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == e.Message
}

// WithDetails returns a copy of the error carrying the given details.
func (e *DomainError) WithDetails(details any) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
	}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// InsufficientStockDetails describes a variant that cannot cover a request.
type InsufficientStockDetails struct {
	VariantID uuid.UUID `json:"variantId"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

// InvalidCartItemDetails identifies a cart line whose variant is gone.
type InvalidCartItemDetails struct {
	VariantID uuid.UUID `json:"variantId"`
}

// StatusTransitionDetails describes a rejected order status change.
type StatusTransitionDetails struct {
	From OrderStatus `json:"from"`
	To   OrderStatus `json:"to"`
}

// PaymentTransitionDetails describes a payment that left the expected review state.
type PaymentTransitionDetails struct {
	PaymentID uuid.UUID     `json:"paymentId"`
	From      PaymentStatus `json:"from"`
	To        PaymentStatus `json:"to"`
}

// Common domain errors
var (
	ErrEmptyCart               = NewDomainError(ErrCodeEmptyCart, "Cart is empty")
	ErrInvalidCartItem         = NewDomainError(ErrCodeInvalidCartItem, "Cart item references a variant that no longer exists")
	ErrInsufficientStock       = NewDomainError(ErrCodeInsufficientStock, "Insufficient stock for variant")
	ErrInvalidStatusTransition = NewDomainError(ErrCodeInvalidStatusTransition, "Order status transition is not allowed")

	ErrOrderNotFound    = NewDomainError(ErrCodeNotFound, "Order not found")
	ErrPaymentNotFound  = NewDomainError(ErrCodeNotFound, "Payment not found")
	ErrProductNotFound  = NewDomainError(ErrCodeNotFound, "Product not found")
	ErrVariantNotFound  = NewDomainError(ErrCodeNotFound, "Variant not found")
	ErrCartItemNotFound = NewDomainError(ErrCodeNotFound, "Cart item not found")

	ErrUnauthenticated = NewDomainError(ErrCodeUnauthenticated, "Authentication required")
	ErrUnauthorised    = NewDomainError(ErrCodeUnauthorised, "Not allowed to perform this action")

	ErrInvalidQuantity         = NewDomainError(ErrCodeValidation, "Quantity must be greater than zero")
	ErrShippingAddressRequired = NewDomainError(ErrCodeValidation, "Shipping address is required")
	ErrInvalidOrderStatus      = NewDomainError(ErrCodeValidation, "Unknown order status")
	ErrInvalidProofFile        = NewDomainError(ErrCodeValidation, "Payment proof must be a PNG, JPEG, WebP or GIF image")
	ErrProofTooLarge           = NewDomainError(ErrCodeValidation, "Payment proof exceeds the maximum upload size")
)

// NewInsufficientStockError reports that variantID has fewer units than requested.
func NewInsufficientStockError(variantID uuid.UUID, requested, available int) *DomainError {
	return ErrInsufficientStock.WithDetails(InsufficientStockDetails{
		VariantID: variantID,
		Requested: requested,
		Available: available,
	})
}

// NewInvalidCartItemError reports a cart line pointing at a deleted variant.
func NewInvalidCartItemError(variantID uuid.UUID) *DomainError {
	return ErrInvalidCartItem.WithDetails(InvalidCartItemDetails{VariantID: variantID})
}

// NewInvalidStatusTransitionError reports a status change outside the transition table.
func NewInvalidStatusTransitionError(from, to OrderStatus) *DomainError {
	return ErrInvalidStatusTransition.WithDetails(StatusTransitionDetails{From: from, To: to})
}

// NewPaymentTransitionError reports a payment whose status moved before a guarded update.
func NewPaymentTransitionError(paymentID uuid.UUID, from, to PaymentStatus) *DomainError {
	return ErrInvalidStatusTransition.WithDetails(PaymentTransitionDetails{PaymentID: paymentID, From: from, To: to})
}

// NewValidationError wraps a request validation failure with per-field details.
func NewValidationError(message string, details any) *DomainError {
	return &DomainError{
		Code:    ErrCodeValidation,
		Message: message,
		Details: details,
	}
}

// AsDomainError unwraps err into a DomainError when one is present in the chain.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
