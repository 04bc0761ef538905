package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/notify"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// checkoutService implements CheckoutService.
type checkoutService struct {
	cartRepo  repository.CartRepository
	orderRepo repository.OrderRepository
	ledger    repository.InventoryLedger
	notifier  notify.Notifier
	metrics   *metrics.OrderMetrics
	logger    zerolog.Logger
	now       func() time.Time
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	cartRepo repository.CartRepository,
	orderRepo repository.OrderRepository,
	ledger repository.InventoryLedger,
	notifier notify.Notifier,
	orderMetrics *metrics.OrderMetrics,
	logger zerolog.Logger,
) CheckoutService {
	return &checkoutService{
		cartRepo:  cartRepo,
		orderRepo: orderRepo,
		ledger:    ledger,
		notifier:  notifier,
		metrics:   orderMetrics,
		logger:    logger.With().Str("service", "checkout").Logger(),
		now:       time.Now,
	}
}

// Checkout creates an order from the caller's cart in a single transaction.
// The cart row and every referenced variant are locked before stock is
// checked, so concurrent checkouts for the same variant serialise.
func (s *checkoutService) Checkout(ctx context.Context, principal model.Principal, shippingAddress string) (order *model.Order, err error) {
	defer func() {
		s.metrics.IncCheckout(checkoutOutcome(err))
	}()

	if principal.UserID == uuid.Nil {
		return nil, model.ErrUnauthenticated
	}

	shippingAddress = strings.TrimSpace(shippingAddress)
	if shippingAddress == "" {
		return nil, model.ErrShippingAddressRequired
	}

	// Start transaction
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to checkout: %w", err)
	}

	// Ensure transaction is rolled back on error
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	cart, err := s.cartRepo.LockByUserID(ctx, tx, principal.UserID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, model.ErrEmptyCart
	}

	cartItems, err := s.cartRepo.ListItems(ctx, tx, cart.ID)
	if err != nil {
		return nil, err
	}
	if len(cartItems) == 0 {
		return nil, model.ErrEmptyCart
	}

	variantIDs := make([]uuid.UUID, len(cartItems))
	for i, item := range cartItems {
		variantIDs[i] = item.VariantID
	}

	variants, err := s.ledger.LockVariants(ctx, tx, variantIDs)
	if err != nil {
		return nil, err
	}

	// Validate every line against the locked rows and price the order
	total := decimal.Zero
	now := s.now()
	order = &model.Order{
		ID:              uuid.New(),
		UserID:          principal.UserID,
		ShippingAddress: shippingAddress,
		Status:          model.OrderStatusAwaitingPayment,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	orderItems := make([]model.OrderItem, len(cartItems))

	for i, item := range cartItems {
		variant, ok := variants[item.VariantID]
		if !ok {
			s.logger.Warn().
				Str("user_id", principal.UserID.String()).
				Str("variant_id", item.VariantID.String()).
				Msg("cart references a missing variant")
			return nil, model.NewInvalidCartItemError(item.VariantID)
		}
		if item.Quantity > variant.StockQuantity {
			s.logger.Info().
				Str("variant_id", item.VariantID.String()).
				Int("requested", item.Quantity).
				Int("available", variant.StockQuantity).
				Msg("insufficient stock at checkout")
			return nil, model.NewInsufficientStockError(item.VariantID, item.Quantity, variant.StockQuantity)
		}

		orderItems[i] = model.OrderItem{
			ID:                  uuid.New(),
			OrderID:             order.ID,
			VariantID:           item.VariantID,
			Quantity:            item.Quantity,
			UnitPriceAtPurchase: variant.UnitPrice,
		}
		total = total.Add(orderItems[i].LineTotal())
	}
	order.TotalPrice = total

	if err = s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to create order")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if err = s.orderRepo.CreateOrderItems(ctx, tx, orderItems); err != nil {
		s.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Int("item_count", len(orderItems)).
			Msg("failed to create order items")
		return nil, fmt.Errorf("failed to create order items: %w", err)
	}

	for _, item := range orderItems {
		if err = s.ledger.Reserve(ctx, tx, item.VariantID, item.Quantity); err != nil {
			return nil, err
		}
	}

	if _, err = s.cartRepo.ClearItems(ctx, tx, cart.ID); err != nil {
		return nil, err
	}

	// Commit transaction
	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to checkout: %w", err)
	}

	order.Items = orderItems

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("user_id", principal.UserID.String()).
		Int("item_count", len(orderItems)).
		Str("total", total.StringFixed(2)).
		Msg("order created successfully")

	s.notifier.Notify(ctx, notify.NewEvent(notify.EventOrderCreated, order.ID, order.UserID, map[string]any{
		"total":     total.StringFixed(2),
		"itemCount": len(orderItems),
	}))

	return order, nil
}

func checkoutOutcome(err error) string {
	if err == nil {
		return "success"
	}
	if de, ok := model.AsDomainError(err); ok {
		return de.Code
	}
	return model.ErrCodeInternalError
}
