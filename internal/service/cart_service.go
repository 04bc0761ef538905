package service

import (
	"context"
	"errors"

	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// cartService implements CartService.
type cartService struct {
	cartRepo    repository.CartRepository
	catalogRepo repository.CatalogRepository
	logger      zerolog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(cartRepo repository.CartRepository, catalogRepo repository.CatalogRepository, logger zerolog.Logger) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		catalogRepo: catalogRepo,
		logger:      logger.With().Str("service", "cart").Logger(),
	}
}

// AddItem adds qty units of a variant. The merged quantity must fit the
// current stock; stock itself is only checked, never reserved.
func (s *cartService) AddItem(ctx context.Context, principal model.Principal, variantID uuid.UUID, qty int) (*model.CartItem, error) {
	if principal.UserID == uuid.Nil {
		return nil, model.ErrUnauthenticated
	}
	if qty < 1 {
		return nil, model.ErrInvalidQuantity
	}

	variant, err := s.catalogRepo.GetVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}

	existing, err := s.cartRepo.FindItemByVariant(ctx, principal.UserID, variantID)
	if err != nil {
		return nil, err
	}

	total := qty
	if existing != nil {
		total += existing.Quantity
	}
	if total > variant.StockQuantity {
		s.logger.Info().
			Str("variant_id", variantID.String()).
			Int("requested", total).
			Int("available", variant.StockQuantity).
			Msg("cart quantity exceeds stock")
		return nil, model.NewInsufficientStockError(variantID, total, variant.StockQuantity)
	}

	item, err := s.cartRepo.AddItem(ctx, principal.UserID, variantID, qty)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("user_id", principal.UserID.String()).
		Str("variant_id", variantID.String()).
		Int("quantity", item.Quantity).
		Msg("cart item added")

	return item, nil
}

// UpdateQuantity overwrites the quantity of one of the caller's lines.
func (s *cartService) UpdateQuantity(ctx context.Context, principal model.Principal, itemID uuid.UUID, qty int) (*model.CartItem, error) {
	if principal.UserID == uuid.Nil {
		return nil, model.ErrUnauthenticated
	}
	if qty < 1 {
		return nil, model.ErrInvalidQuantity
	}

	item, err := s.cartRepo.GetItem(ctx, principal.UserID, itemID)
	if err != nil {
		return nil, err
	}

	variant, err := s.catalogRepo.GetVariant(ctx, item.VariantID)
	if err != nil {
		if errors.Is(err, model.ErrVariantNotFound) {
			return nil, model.NewInvalidCartItemError(item.VariantID)
		}
		return nil, err
	}

	if qty > variant.StockQuantity {
		return nil, model.NewInsufficientStockError(item.VariantID, qty, variant.StockQuantity)
	}

	return s.cartRepo.UpdateItemQuantity(ctx, item.ID, qty)
}

// RemoveItem deletes one of the caller's lines.
func (s *cartService) RemoveItem(ctx context.Context, principal model.Principal, itemID uuid.UUID) error {
	if principal.UserID == uuid.Nil {
		return model.ErrUnauthenticated
	}
	return s.cartRepo.RemoveItem(ctx, principal.UserID, itemID)
}

// GetCart returns the caller's cart resolved against the catalogue.
func (s *cartService) GetCart(ctx context.Context, principal model.Principal) (*model.CartView, error) {
	if principal.UserID == uuid.Nil {
		return nil, model.ErrUnauthenticated
	}
	return s.cartRepo.GetView(ctx, principal.UserID)
}
