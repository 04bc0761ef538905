package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const paymentColumns = `id, order_id, proof_image_url, status, uploaded_at, verified_at, updated_at`

// paymentRepository implements the PaymentRepository interface using PostgreSQL.
type paymentRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPaymentRepository creates a new PostgreSQL-backed payment repository.
func NewPaymentRepository(pool *pgxpool.Pool, logger zerolog.Logger) PaymentRepository {
	return &paymentRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "payment").Logger(),
	}
}

func (r *paymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	var p model.Payment
	if err := scanPayment(r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPaymentNotFound
		}
		r.logger.Error().Err(err).Str("payment_id", id.String()).Msg("failed to query payment")
		return nil, fmt.Errorf("failed to query payment: %w", err)
	}
	return &p, nil
}

func (r *paymentRepository) LockByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Payment, error) {
	var p model.Payment
	if err := scanPayment(tx.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, id), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPaymentNotFound
		}
		r.logger.Error().Err(err).Str("payment_id", id.String()).Msg("failed to lock payment")
		return nil, fmt.Errorf("failed to lock payment: %w", err)
	}
	return &p, nil
}

func (r *paymentRepository) LockByOrderID(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (*model.Payment, error) {
	var p model.Payment
	if err := scanPayment(tx.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE order_id = $1 FOR UPDATE`, orderID), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to lock order payment")
		return nil, fmt.Errorf("failed to lock order payment: %w", err)
	}
	return &p, nil
}

// Upsert stores the proof URL, resetting review state to pending.
func (r *paymentRepository) Upsert(ctx context.Context, tx pgx.Tx, payment *model.Payment) error {
	query := `
		INSERT INTO payments (id, order_id, proof_image_url, status, uploaded_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (order_id) DO UPDATE
		SET proof_image_url = EXCLUDED.proof_image_url,
		    status = EXCLUDED.status,
		    uploaded_at = EXCLUDED.uploaded_at,
		    verified_at = NULL,
		    updated_at = EXCLUDED.updated_at
		RETURNING ` + paymentColumns

	err := scanPayment(tx.QueryRow(ctx, query,
		payment.ID,
		payment.OrderID,
		payment.ProofImageURL,
		string(model.PaymentStatusPending),
		payment.UploadedAt,
	), payment)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", payment.OrderID.String()).
			Msg("failed to upsert payment")
		return fmt.Errorf("failed to upsert payment: %w", err)
	}

	r.logger.Debug().
		Str("payment_id", payment.ID.String()).
		Str("order_id", payment.OrderID.String()).
		Msg("payment proof stored")

	return nil
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to model.PaymentStatus, at time.Time) error {
	query := `
		UPDATE payments
		SET status = $3,
		    updated_at = $4,
		    verified_at = CASE WHEN $3 = 'verified' THEN $4 ELSE verified_at END
		WHERE id = $1 AND status = $2
	`

	tag, err := tx.Exec(ctx, query, id, string(from), string(to), at)
	if err != nil {
		r.logger.Error().Err(err).Str("payment_id", id.String()).Msg("failed to update payment status")
		return fmt.Errorf("failed to update payment status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		r.logger.Warn().
			Str("payment_id", id.String()).
			Str("from", string(from)).
			Str("to", string(to)).
			Msg("payment status changed concurrently")
		return model.NewPaymentTransitionError(id, from, to)
	}

	return nil
}

func scanPayment(row pgx.Row, p *model.Payment) error {
	var status string
	err := row.Scan(
		&p.ID,
		&p.OrderID,
		&p.ProofImageURL,
		&status,
		&p.UploadedAt,
		&p.VerifiedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	p.Status = model.PaymentStatus(status)
	return nil
}
