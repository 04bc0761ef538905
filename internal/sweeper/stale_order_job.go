package sweeper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

const defaultBatchSize = 100

type staleOrderLister interface {
	ListByStatusBefore(ctx context.Context, status model.OrderStatus, cutoff time.Time, limit int) ([]model.Order, error)
}

type orderCanceller interface {
	Cancel(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Order, error)
}

// StaleOrderJobParams configure the stale unpaid order job.
type StaleOrderJobParams struct {
	Orders    staleOrderLister
	Canceller orderCanceller
	// PaymentTTL is how long an order may wait for a payment proof.
	PaymentTTL time.Duration
	BatchSize  int
	Logger     zerolog.Logger
}

type staleOrderJob struct {
	orders     staleOrderLister
	canceller  orderCanceller
	paymentTTL time.Duration
	batchSize  int
	logger     zerolog.Logger
	now        func() time.Time
}

// NewStaleOrderJob builds the job that cancels orders left in
// awaiting_payment past the payment TTL, returning their stock.
func NewStaleOrderJob(params StaleOrderJobParams) (Job, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("order lister required")
	}
	if params.Canceller == nil {
		return nil, fmt.Errorf("order canceller required")
	}
	if params.PaymentTTL <= 0 {
		return nil, fmt.Errorf("payment ttl must be positive")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &staleOrderJob{
		orders:     params.Orders,
		canceller:  params.Canceller,
		paymentTTL: params.PaymentTTL,
		batchSize:  batchSize,
		logger:     params.Logger.With().Str("job", "stale-unpaid-orders").Logger(),
		now:        time.Now,
	}, nil
}

func (j *staleOrderJob) Name() string { return "stale-unpaid-orders" }

// Run cancels stale orders page by page. A page containing failures ends the
// run so the same orders are not retried in a tight loop.
func (j *staleOrderJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.paymentTTL)

	var errs error
	cancelled := 0
	for {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}

		orders, err := j.orders.ListByStatusBefore(ctx, model.OrderStatusAwaitingPayment, cutoff, j.batchSize)
		if err != nil {
			return multierr.Append(errs, fmt.Errorf("query stale orders: %w", err))
		}

		failed := false
		for _, order := range orders {
			if _, err := j.canceller.Cancel(ctx, model.SystemPrincipal, order.ID); err != nil {
				if errors.Is(err, model.ErrInvalidStatusTransition) {
					// Paid or cancelled since the query ran.
					continue
				}
				failed = true
				errs = multierr.Append(errs, fmt.Errorf("cancel order %s: %w", order.ID, err))
				continue
			}
			cancelled++
		}

		if failed || len(orders) < j.batchSize {
			break
		}
	}

	j.logger.Info().
		Int("cancelled", cancelled).
		Time("cutoff", cutoff).
		Int("failures", len(multierr.Errors(errs))).
		Msg("stale order sweep complete")

	return errs
}
