package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const cartItemColumns = `ci.id, ci.cart_id, ci.variant_id, ci.quantity, ci.created_at, ci.updated_at`

// cartRepository implements the CartRepository interface using PostgreSQL.
type cartRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool *pgxpool.Pool, logger zerolog.Logger) CartRepository {
	return &cartRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "cart").Logger(),
	}
}

// LockByUserID row-locks the user's cart.
func (r *cartRepository) LockByUserID(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*model.Cart, error) {
	query := `
		SELECT id, user_id, created_at, updated_at
		FROM carts
		WHERE user_id = $1
		FOR UPDATE
	`

	var c model.Cart
	err := tx.QueryRow(ctx, query, userID).Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to lock cart")
		return nil, fmt.Errorf("failed to lock cart: %w", err)
	}
	return &c, nil
}

// ListItems returns the cart's items in insertion order.
func (r *cartRepository) ListItems(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) ([]model.CartItem, error) {
	query := `
		SELECT ` + cartItemColumns + `
		FROM cart_items ci
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at, ci.id
	`

	rows, err := tx.Query(ctx, query, cartID)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to query cart items")
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	var items []model.CartItem
	for rows.Next() {
		var item model.CartItem
		if err := scanCartItem(rows, &item); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan cart item row")
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating cart item rows")
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return items, nil
}

// ClearItems deletes every item of the cart.
func (r *cartRepository) ClearItems(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) (int64, error) {
	tag, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to clear cart")
		return 0, fmt.Errorf("failed to clear cart: %w", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE carts SET updated_at = NOW() WHERE id = $1`, cartID); err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to touch cart")
		return 0, fmt.Errorf("failed to touch cart: %w", err)
	}

	return tag.RowsAffected(), nil
}

// FindItemByVariant returns the user's line for a variant, or nil.
func (r *cartRepository) FindItemByVariant(ctx context.Context, userID, variantID uuid.UUID) (*model.CartItem, error) {
	query := `
		SELECT ` + cartItemColumns + `
		FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		WHERE c.user_id = $1 AND ci.variant_id = $2
	`

	var item model.CartItem
	if err := scanCartItem(r.pool.QueryRow(ctx, query, userID, variantID), &item); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("variant_id", variantID.String()).Msg("failed to query cart item by variant")
		return nil, fmt.Errorf("failed to query cart item: %w", err)
	}
	return &item, nil
}

// AddItem lazily creates the cart and upserts the line in one statement.
func (r *cartRepository) AddItem(ctx context.Context, userID, variantID uuid.UUID, qty int) (*model.CartItem, error) {
	query := `
		WITH cart AS (
			INSERT INTO carts (id, user_id)
			VALUES ($1, $2)
			ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()
			RETURNING id
		)
		INSERT INTO cart_items (id, cart_id, variant_id, quantity)
		SELECT $3, cart.id, $4, $5 FROM cart
		ON CONFLICT (cart_id, variant_id) DO UPDATE
		SET quantity = cart_items.quantity + EXCLUDED.quantity,
		    updated_at = NOW()
		RETURNING id, cart_id, variant_id, quantity, created_at, updated_at
	`

	var item model.CartItem
	err := scanCartItem(r.pool.QueryRow(ctx, query, uuid.New(), userID, uuid.New(), variantID, qty), &item)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("user_id", userID.String()).
			Str("variant_id", variantID.String()).
			Msg("failed to add cart item")
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}

	r.logger.Debug().
		Str("cart_item_id", item.ID.String()).
		Int("quantity", item.Quantity).
		Msg("cart item upserted")

	return &item, nil
}

// GetItem retrieves a line that belongs to the user's cart.
func (r *cartRepository) GetItem(ctx context.Context, userID, itemID uuid.UUID) (*model.CartItem, error) {
	query := `
		SELECT ` + cartItemColumns + `
		FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		WHERE ci.id = $1 AND c.user_id = $2
	`

	var item model.CartItem
	if err := scanCartItem(r.pool.QueryRow(ctx, query, itemID, userID), &item); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrCartItemNotFound
		}
		r.logger.Error().Err(err).Str("cart_item_id", itemID.String()).Msg("failed to query cart item")
		return nil, fmt.Errorf("failed to query cart item: %w", err)
	}
	return &item, nil
}

// UpdateItemQuantity overwrites the quantity of a line.
func (r *cartRepository) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, qty int) (*model.CartItem, error) {
	query := `
		UPDATE cart_items ci
		SET quantity = $2, updated_at = NOW()
		WHERE ci.id = $1
		RETURNING ` + cartItemColumns

	var item model.CartItem
	if err := scanCartItem(r.pool.QueryRow(ctx, query, itemID, qty), &item); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrCartItemNotFound
		}
		r.logger.Error().Err(err).Str("cart_item_id", itemID.String()).Msg("failed to update cart item")
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}
	return &item, nil
}

// RemoveItem deletes a line that belongs to the user's cart.
func (r *cartRepository) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	query := `
		DELETE FROM cart_items ci
		USING carts c
		WHERE ci.cart_id = c.id AND ci.id = $1 AND c.user_id = $2
	`

	tag, err := r.pool.Exec(ctx, query, itemID, userID)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_item_id", itemID.String()).Msg("failed to remove cart item")
		return fmt.Errorf("failed to remove cart item: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return model.ErrCartItemNotFound
	}
	return nil
}

// GetView resolves the user's cart against the catalogue. Lines whose
// variant is gone are returned unavailable with a zero price.
func (r *cartRepository) GetView(ctx context.Context, userID uuid.UUID) (*model.CartView, error) {
	view := &model.CartView{
		UserID:   userID,
		Items:    []model.CartLine{},
		Subtotal: decimal.Zero,
	}

	var cartID uuid.UUID
	err := r.pool.QueryRow(ctx, `SELECT id FROM carts WHERE user_id = $1`, userID).Scan(&cartID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return view, nil
		}
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to query cart")
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}
	view.ID = &cartID

	query := `
		SELECT ci.id, ci.variant_id, ci.quantity,
		       v.product_id, p.name, v.color, v.size, v.unit_price, v.stock_quantity
		FROM cart_items ci
		LEFT JOIN variants v ON v.id = ci.variant_id
		LEFT JOIN products p ON p.id = v.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at, ci.id
	`

	rows, err := r.pool.Query(ctx, query, cartID)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to query cart lines")
		return nil, fmt.Errorf("failed to query cart lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			line        model.CartLine
			productName *string
			unitPrice   decimal.NullDecimal
			stock       *int
		)
		err := rows.Scan(
			&line.ItemID,
			&line.VariantID,
			&line.Quantity,
			&line.ProductID,
			&productName,
			&line.Color,
			&line.Size,
			&unitPrice,
			&stock,
		)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan cart line row")
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}

		line.Available = line.ProductID != nil
		line.UnitPrice = decimal.Zero
		line.LineTotal = decimal.Zero
		if line.Available {
			if productName != nil {
				line.ProductName = *productName
			}
			if unitPrice.Valid {
				line.UnitPrice = unitPrice.Decimal
			}
			if stock != nil {
				line.StockQuantity = *stock
			}
			line.LineTotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
			view.Subtotal = view.Subtotal.Add(line.LineTotal)
		}
		view.Items = append(view.Items, line)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating cart line rows")
		return nil, fmt.Errorf("error iterating cart lines: %w", err)
	}

	return view, nil
}

func scanCartItem(row pgx.Row, item *model.CartItem) error {
	return row.Scan(
		&item.ID,
		&item.CartID,
		&item.VariantID,
		&item.Quantity,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
}
