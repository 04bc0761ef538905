package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// multipartOverhead covers form field and part headers around the file.
const multipartOverhead = 64 << 10

// PaymentHandler handles payment proof HTTP requests.
type PaymentHandler struct {
	service       service.PaymentService
	maxProofBytes int64
	logger        zerolog.Logger
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(service service.PaymentService, maxProofBytes int64, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		service:       service,
		maxProofBytes: maxProofBytes,
		logger:        logger.With().Str("handler", "payment").Logger(),
	}
}

// Upload handles POST /api/payments/upload multipart requests carrying
// an orderId field and a file part.
func (h *PaymentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	caller, err := principal(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxProofBytes+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxProofBytes + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, model.ErrProofTooLarge, h.logger)
			return
		}
		writeError(w, model.NewValidationError("invalid multipart form", nil), h.logger)
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	orderID, err := uuid.Parse(r.FormValue("orderId"))
	if err != nil {
		writeError(w, model.NewValidationError("validation failed", map[string]string{"orderId": "must be a UUID"}), h.logger)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, model.NewValidationError("validation failed", map[string]string{"file": "is required"}), h.logger)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxProofBytes+1))
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	payment, err := h.service.UploadProof(r.Context(), caller, orderID, service.ProofFile{
		Filename: header.Filename,
		Data:     data,
	})
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, payment)
}

// Verify handles PUT /api/payments/{id}/verify requests.
func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.service.Verify)
}

// Reject handles PUT /api/payments/{id}/reject requests.
func (h *PaymentHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.service.Reject)
}

func (h *PaymentHandler) review(w http.ResponseWriter, r *http.Request, decide func(context.Context, model.Principal, uuid.UUID) (*model.Order, error)) {
	caller, err := principal(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	paymentID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	order, err := decide(r.Context(), caller, paymentID)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}
