package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event types published by the order workflow.
const (
	EventOrderCreated         = "order.created"
	EventOrderStatusChanged   = "order.status_changed"
	EventPaymentProofUploaded = "payment.proof_uploaded"
)

// Event is the envelope sent to subscribers.
type Event struct {
	ID         uuid.UUID      `json:"eventId"`
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurredAt"`
	OrderID    uuid.UUID      `json:"orderId"`
	UserID     uuid.UUID      `json:"userId"`
	Data       map[string]any `json:"data,omitempty"`
}

// NewEvent builds an event with a fresh ID.
func NewEvent(eventType string, orderID, userID uuid.UUID, data map[string]any) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		OrderID:    orderID,
		UserID:     userID,
		Data:       data,
	}
}

// Notifier delivers events without blocking or failing the caller.
type Notifier interface {
	Notify(ctx context.Context, event Event)
	Close() error
}

// logNotifier writes events to the log only.
type logNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a notifier used when no broker is configured.
func NewLogNotifier(logger zerolog.Logger) Notifier {
	return &logNotifier{logger: logger.With().Str("component", "log-notifier").Logger()}
}

func (n *logNotifier) Notify(_ context.Context, event Event) {
	n.logger.Info().
		Str("event_id", event.ID.String()).
		Str("type", event.Type).
		Str("order_id", event.OrderID.String()).
		Str("user_id", event.UserID.String()).
		Interface("data", event.Data).
		Msg("event")
}

func (n *logNotifier) Close() error { return nil }
