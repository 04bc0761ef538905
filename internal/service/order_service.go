package service

import (
	"context"
	"time"

	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/notify"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// orderService implements OrderService.
type orderService struct {
	workflow
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	ledger repository.InventoryLedger,
	notifier notify.Notifier,
	orderMetrics *metrics.OrderMetrics,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		workflow: workflow{
			orderRepo:   orderRepo,
			paymentRepo: paymentRepo,
			ledger:      ledger,
			notifier:    notifier,
			metrics:     orderMetrics,
			logger:      logger.With().Str("service", "order").Logger(),
			now:         time.Now,
		},
	}
}

// Get retrieves an order with items and payment. Owner or admin only.
func (s *orderService) Get(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !principal.CanAccess(order.UserID) {
		s.logger.Warn().
			Str("order_id", id.String()).
			Str("user_id", principal.UserID.String()).
			Msg("order access denied")
		return nil, model.ErrUnauthorised
	}

	return order, nil
}

// ListMine returns the caller's orders, newest first.
func (s *orderService) ListMine(ctx context.Context, principal model.Principal) ([]model.Order, error) {
	if principal.UserID == uuid.Nil {
		return nil, model.ErrUnauthenticated
	}
	return s.orderRepo.ListByUser(ctx, principal.UserID)
}

// ListByStatus returns every order in a status. Admin only.
func (s *orderService) ListByStatus(ctx context.Context, principal model.Principal, status model.OrderStatus) ([]model.Order, error) {
	if !principal.IsAdmin() {
		return nil, model.ErrUnauthorised
	}
	if !status.IsValid() {
		return nil, model.ErrInvalidOrderStatus
	}
	return s.orderRepo.ListByStatus(ctx, status)
}

// UpdateStatus moves an order to a new status. Cancelling releases stock and
// moving to processing verifies the pending payment in the same transaction.
// Awaiting verification is only reachable through a proof upload.
func (s *orderService) UpdateStatus(ctx context.Context, principal model.Principal, id uuid.UUID, status model.OrderStatus) (*model.Order, error) {
	if !principal.IsAdmin() {
		return nil, model.ErrUnauthorised
	}
	if !status.IsValid() {
		return nil, model.ErrInvalidOrderStatus
	}

	var change statusChange
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		order, err := s.orderRepo.LockByID(ctx, tx, id)
		if err != nil {
			return err
		}

		switch status {
		case model.OrderStatusCancelled:
			change, err = s.cancelLocked(ctx, tx, order)
		case model.OrderStatusProcessing:
			var payment *model.Payment
			payment, err = s.paymentRepo.LockByOrderID(ctx, tx, order.ID)
			if err != nil {
				return err
			}
			change, err = s.verifyLocked(ctx, tx, order, payment)
		case model.OrderStatusAwaitingVerification:
			err = model.NewInvalidStatusTransitionError(order.Status, status)
		default:
			change, err = s.transitionLocked(ctx, tx, order, status)
		}
		return err
	})
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("order_id", id.String()).
			Str("to", string(status)).
			Msg("order status update failed")
		return nil, err
	}

	s.committed(ctx, change)

	return s.reload(ctx, id)
}

// Cancel cancels an order and returns its stock. Owner or admin.
func (s *orderService) Cancel(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Order, error) {
	var change statusChange
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		order, err := s.orderRepo.LockByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if !principal.CanAccess(order.UserID) {
			return model.ErrUnauthorised
		}
		change, err = s.cancelLocked(ctx, tx, order)
		return err
	})
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("order_id", id.String()).
			Msg("order cancellation failed")
		return nil, err
	}

	s.committed(ctx, change)

	return s.reload(ctx, id)
}
