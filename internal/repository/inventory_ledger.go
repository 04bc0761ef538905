package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// inventoryLedger implements InventoryLedger on the variants table.
type inventoryLedger struct {
	logger zerolog.Logger
}

// NewInventoryLedger creates the stock ledger. It holds no pool of its own:
// every mutation happens inside a transaction owned by the caller.
func NewInventoryLedger(logger zerolog.Logger) InventoryLedger {
	return &inventoryLedger{
		logger: logger.With().Str("repository", "inventory").Logger(),
	}
}

// LockVariants row-locks the given variants in ID order.
func (l *inventoryLedger) LockVariants(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) (map[uuid.UUID]model.Variant, error) {
	variants := make(map[uuid.UUID]model.Variant, len(ids))
	if len(ids) == 0 {
		return variants, nil
	}

	// Rows are locked in ID order so overlapping checkouts cannot deadlock.
	query := `
		SELECT ` + variantColumns + `
		FROM variants
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`

	rows, err := tx.Query(ctx, query, ids)
	if err != nil {
		l.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to lock variants")
		return nil, fmt.Errorf("failed to lock variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v model.Variant
		if err := scanVariant(rows, &v); err != nil {
			l.logger.Error().Err(err).Msg("failed to scan locked variant")
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		variants[v.ID] = v
	}

	if err := rows.Err(); err != nil {
		l.logger.Error().Err(err).Msg("error iterating locked variants")
		return nil, fmt.Errorf("error iterating variants: %w", err)
	}

	return variants, nil
}

// Reserve deducts qty units from a variant, re-reading stock inside the
// transaction. On shortfall nothing is written.
func (l *inventoryLedger) Reserve(ctx context.Context, tx pgx.Tx, variantID uuid.UUID, qty int) error {
	if qty <= 0 {
		return model.ErrInvalidQuantity
	}

	query := `
		UPDATE variants
		SET stock_quantity = stock_quantity - $1,
		    updated_at = NOW()
		WHERE id = $2
		  AND stock_quantity >= $1
	`

	tag, err := tx.Exec(ctx, query, qty, variantID)
	if err != nil {
		l.logger.Error().Err(err).Str("variant_id", variantID.String()).Msg("failed to reserve stock")
		return fmt.Errorf("failed to reserve stock: %w", err)
	}

	if tag.RowsAffected() == 1 {
		l.logger.Debug().
			Str("variant_id", variantID.String()).
			Int("quantity", qty).
			Msg("stock reserved")
		return nil
	}

	var available int
	err = tx.QueryRow(ctx, `SELECT stock_quantity FROM variants WHERE id = $1`, variantID).Scan(&available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			l.logger.Warn().Str("variant_id", variantID.String()).Msg("reserve on missing variant")
			return model.NewInvalidCartItemError(variantID)
		}
		l.logger.Error().Err(err).Str("variant_id", variantID.String()).Msg("failed to read stock")
		return fmt.Errorf("failed to read stock: %w", err)
	}

	l.logger.Info().
		Str("variant_id", variantID.String()).
		Int("requested", qty).
		Int("available", available).
		Msg("insufficient stock")

	return model.NewInsufficientStockError(variantID, qty, available)
}

// Release returns qty units to a variant's stock.
func (l *inventoryLedger) Release(ctx context.Context, tx pgx.Tx, variantID uuid.UUID, qty int) error {
	if qty <= 0 {
		return model.ErrInvalidQuantity
	}

	query := `
		UPDATE variants
		SET stock_quantity = stock_quantity + $1,
		    updated_at = NOW()
		WHERE id = $2
	`

	tag, err := tx.Exec(ctx, query, qty, variantID)
	if err != nil {
		l.logger.Error().Err(err).Str("variant_id", variantID.String()).Msg("failed to release stock")
		return fmt.Errorf("failed to release stock: %w", err)
	}

	if tag.RowsAffected() == 0 {
		l.logger.Warn().
			Str("variant_id", variantID.String()).
			Int("quantity", qty).
			Msg("released stock for a variant that no longer exists")
		return nil
	}

	l.logger.Debug().
		Str("variant_id", variantID.String()).
		Int("quantity", qty).
		Msg("stock released")

	return nil
}
