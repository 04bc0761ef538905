package model

import "strings"

// OrderStatus is the single canonical order lifecycle enum shared by
// persistence, transport and business rules.
type OrderStatus string

const (
	OrderStatusAwaitingPayment      OrderStatus = "awaiting_payment"
	OrderStatusAwaitingVerification OrderStatus = "awaiting_verification"
	OrderStatusProcessing           OrderStatus = "processing"
	OrderStatusShipped              OrderStatus = "shipped"
	OrderStatusCompleted            OrderStatus = "completed"
	OrderStatusCancelled            OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusAwaitingPayment:      {OrderStatusAwaitingVerification, OrderStatusCancelled},
	OrderStatusAwaitingVerification: {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing:           {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:              {OrderStatusCompleted},
	OrderStatusCompleted:            {},
	OrderStatusCancelled:            {},
}

// AllOrderStatuses lists every status in lifecycle order.
func AllOrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusAwaitingPayment,
		OrderStatusAwaitingVerification,
		OrderStatusProcessing,
		OrderStatusShipped,
		OrderStatusCompleted,
		OrderStatusCancelled,
	}
}

// ParseOrderStatus converts a wire value into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	status := OrderStatus(strings.ToLower(strings.TrimSpace(value)))
	if !status.IsValid() {
		return "", ErrInvalidOrderStatus
	}
	return status, nil
}

func (s OrderStatus) IsValid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// IsTerminal reports whether no further transitions are possible.
func (s OrderStatus) IsTerminal() bool {
	next, ok := orderTransitions[s]
	return ok && len(next) == 0
}

// CanTransition reports whether from -> to is an edge of the lifecycle.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PaymentStatus tracks the review state of an uploaded payment proof.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusVerified PaymentStatus = "verified"
	PaymentStatusRejected PaymentStatus = "rejected"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusVerified, PaymentStatusRejected:
		return true
	}
	return false
}
