package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/notify"
	"storefront/internal/repository"
	"storefront/internal/storage"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

var proofMimeTypes = []string{"image/png", "image/jpeg", "image/webp", "image/gif"}

// paymentService implements PaymentService.
type paymentService struct {
	workflow
	store         storage.Store
	maxProofBytes int64
}

// NewPaymentService creates a new payment service.
func NewPaymentService(
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	ledger repository.InventoryLedger,
	store storage.Store,
	notifier notify.Notifier,
	orderMetrics *metrics.OrderMetrics,
	maxProofBytes int64,
	logger zerolog.Logger,
) PaymentService {
	return &paymentService{
		workflow: workflow{
			orderRepo:   orderRepo,
			paymentRepo: paymentRepo,
			ledger:      ledger,
			notifier:    notifier,
			metrics:     orderMetrics,
			logger:      logger.With().Str("service", "payment").Logger(),
			now:         time.Now,
		},
		store:         store,
		maxProofBytes: maxProofBytes,
	}
}

func acceptsProof(status model.OrderStatus) bool {
	return status == model.OrderStatusAwaitingPayment || status == model.OrderStatusAwaitingVerification
}

// UploadProof stores the file before opening the transaction, so a storage
// failure leaves the order and payment untouched. A re-upload replaces the
// proof and resets the payment to pending.
func (s *paymentService) UploadProof(ctx context.Context, principal model.Principal, orderID uuid.UUID, file ProofFile) (*model.Payment, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if principal.UserID == uuid.Nil || order.UserID != principal.UserID {
		return nil, model.ErrUnauthorised
	}
	if !acceptsProof(order.Status) {
		return nil, model.NewInvalidStatusTransitionError(order.Status, model.OrderStatusAwaitingVerification)
	}

	mime, err := s.checkProof(file)
	if err != nil {
		return nil, err
	}

	now := s.now()
	key := storage.ProofKey(orderID, mime.Extension(), now)
	url, err := s.store.Put(ctx, key, mime.String(), bytes.NewReader(file.Data), int64(len(file.Data)))
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("order_id", orderID.String()).
			Msg("failed to store payment proof")
		return nil, fmt.Errorf("failed to store payment proof: %w", err)
	}

	payment := &model.Payment{
		ID:            uuid.New(),
		OrderID:       orderID,
		ProofImageURL: &url,
		Status:        model.PaymentStatusPending,
		UploadedAt:    now,
	}

	var change statusChange
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		locked, err := s.orderRepo.LockByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if !acceptsProof(locked.Status) {
			return model.NewInvalidStatusTransitionError(locked.Status, model.OrderStatusAwaitingVerification)
		}

		if err := s.paymentRepo.Upsert(ctx, tx, payment); err != nil {
			return err
		}

		if locked.Status == model.OrderStatusAwaitingPayment {
			change, err = s.transitionLocked(ctx, tx, locked, model.OrderStatusAwaitingVerification)
		}
		return err
	})
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("order_id", orderID.String()).
			Str("proof_url", url).
			Msg("payment proof stored but not recorded")
		return nil, err
	}

	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("payment_id", payment.ID.String()).
		Str("content_type", mime.String()).
		Int("size", len(file.Data)).
		Msg("payment proof uploaded")

	s.notifier.Notify(ctx, notify.NewEvent(notify.EventPaymentProofUploaded, order.ID, order.UserID, map[string]any{
		"paymentId": payment.ID,
		"url":       url,
	}))
	s.committed(ctx, change)

	return payment, nil
}

func (s *paymentService) checkProof(file ProofFile) (*mimetype.MIME, error) {
	if len(file.Data) == 0 {
		return nil, model.ErrInvalidProofFile
	}
	if s.maxProofBytes > 0 && int64(len(file.Data)) > s.maxProofBytes {
		return nil, model.ErrProofTooLarge
	}

	mime := mimetype.Detect(file.Data)
	if !mimetype.EqualsAny(mime.String(), proofMimeTypes...) {
		s.logger.Warn().
			Str("filename", file.Filename).
			Str("detected", mime.String()).
			Msg("rejected payment proof type")
		return nil, model.ErrInvalidProofFile
	}
	return mime, nil
}

// Verify accepts the proof and moves the order to processing in one transaction.
func (s *paymentService) Verify(ctx context.Context, principal model.Principal, paymentID uuid.UUID) (*model.Order, error) {
	if !principal.IsAdmin() {
		return nil, model.ErrUnauthorised
	}

	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	var change statusChange
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		order, err := s.orderRepo.LockByID(ctx, tx, payment.OrderID)
		if err != nil {
			return err
		}
		locked, err := s.paymentRepo.LockByID(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		change, err = s.verifyLocked(ctx, tx, order, locked)
		return err
	})
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("payment_id", paymentID.String()).
			Msg("payment verification failed")
		return nil, err
	}

	s.committed(ctx, change)

	return s.reload(ctx, payment.OrderID)
}

// Reject refuses the proof, cancels the order and returns its stock.
func (s *paymentService) Reject(ctx context.Context, principal model.Principal, paymentID uuid.UUID) (*model.Order, error) {
	if !principal.IsAdmin() {
		return nil, model.ErrUnauthorised
	}

	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	var change statusChange
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		order, err := s.orderRepo.LockByID(ctx, tx, payment.OrderID)
		if err != nil {
			return err
		}
		if order.Status != model.OrderStatusAwaitingVerification {
			return model.NewInvalidStatusTransitionError(order.Status, model.OrderStatusCancelled)
		}
		locked, err := s.paymentRepo.LockByID(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if err := s.paymentRepo.UpdateStatus(ctx, tx, locked.ID, locked.Status, model.PaymentStatusRejected, s.now()); err != nil {
			return err
		}
		change, err = s.cancelLocked(ctx, tx, order)
		return err
	})
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("payment_id", paymentID.String()).
			Msg("payment rejection failed")
		return nil, err
	}

	s.committed(ctx, change)

	return s.reload(ctx, payment.OrderID)
}
