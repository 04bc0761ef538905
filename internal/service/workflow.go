package service

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"time"

	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/notify"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// workflow holds the transactional steps shared by the order and payment
// services. Every *Locked method expects the order row to be locked by tx.
type workflow struct {
	orderRepo   repository.OrderRepository
	paymentRepo repository.PaymentRepository
	ledger      repository.InventoryLedger
	notifier    notify.Notifier
	metrics     *metrics.OrderMetrics
	logger      zerolog.Logger
	now         func() time.Time
}

type statusChange struct {
	order *model.Order
	from  model.OrderStatus
	to    model.OrderStatus
}

// inTx runs fn in a transaction, committing on success.
func (w *workflow) inTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := w.orderRepo.BeginTx(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("failed to begin transaction")
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				w.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		w.logger.Error().Err(err).Msg("failed to commit transaction")
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// transitionLocked applies a plain status change after checking the table.
func (w *workflow) transitionLocked(ctx context.Context, tx pgx.Tx, order *model.Order, to model.OrderStatus) (statusChange, error) {
	if !model.CanTransition(order.Status, to) {
		return statusChange{}, model.NewInvalidStatusTransitionError(order.Status, to)
	}

	if err := w.orderRepo.UpdateStatus(ctx, tx, order.ID, order.Status, to, w.now()); err != nil {
		return statusChange{}, err
	}

	return statusChange{order: order, from: order.Status, to: to}, nil
}

// cancelLocked cancels the order and returns every reserved unit to stock in
// the same transaction.
func (w *workflow) cancelLocked(ctx context.Context, tx pgx.Tx, order *model.Order) (statusChange, error) {
	if !model.CanTransition(order.Status, model.OrderStatusCancelled) {
		return statusChange{}, model.NewInvalidStatusTransitionError(order.Status, model.OrderStatusCancelled)
	}

	items, err := w.orderRepo.GetItems(ctx, tx, order.ID)
	if err != nil {
		return statusChange{}, err
	}

	// Release in variant id order, the same order checkout locks variants in.
	slices.SortFunc(items, func(a, b model.OrderItem) int {
		return bytes.Compare(a.VariantID[:], b.VariantID[:])
	})

	for _, item := range items {
		if err := w.ledger.Release(ctx, tx, item.VariantID, item.Quantity); err != nil {
			w.logger.Error().
				Err(err).
				Str("order_id", order.ID.String()).
				Str("variant_id", item.VariantID.String()).
				Msg("failed to release stock")
			return statusChange{}, err
		}
	}

	if err := w.orderRepo.UpdateStatus(ctx, tx, order.ID, order.Status, model.OrderStatusCancelled, w.now()); err != nil {
		return statusChange{}, err
	}

	w.logger.Info().
		Str("order_id", order.ID.String()).
		Str("from", string(order.Status)).
		Int("items_released", len(items)).
		Msg("order cancelled")

	return statusChange{order: order, from: order.Status, to: model.OrderStatusCancelled}, nil
}

// verifyLocked accepts the order's payment and moves the order to processing.
func (w *workflow) verifyLocked(ctx context.Context, tx pgx.Tx, order *model.Order, payment *model.Payment) (statusChange, error) {
	if order.Status != model.OrderStatusAwaitingVerification || payment == nil {
		return statusChange{}, model.NewInvalidStatusTransitionError(order.Status, model.OrderStatusProcessing)
	}

	now := w.now()
	if err := w.paymentRepo.UpdateStatus(ctx, tx, payment.ID, payment.Status, model.PaymentStatusVerified, now); err != nil {
		return statusChange{}, err
	}

	if err := w.orderRepo.UpdateStatus(ctx, tx, order.ID, order.Status, model.OrderStatusProcessing, now); err != nil {
		return statusChange{}, err
	}

	return statusChange{order: order, from: order.Status, to: model.OrderStatusProcessing}, nil
}

// committed records and announces a status change once its transaction is durable.
func (w *workflow) committed(ctx context.Context, change statusChange) {
	if change.order == nil {
		return
	}

	w.metrics.IncTransition(string(change.from), string(change.to))

	w.logger.Info().
		Str("order_id", change.order.ID.String()).
		Str("from", string(change.from)).
		Str("to", string(change.to)).
		Msg("order status changed")

	w.notifier.Notify(ctx, notify.NewEvent(notify.EventOrderStatusChanged, change.order.ID, change.order.UserID, map[string]any{
		"from": change.from,
		"to":   change.to,
	}))
}

func (w *workflow) reload(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := w.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload order: %w", err)
	}
	return order, nil
}
