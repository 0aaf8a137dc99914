package handler

import (
	"errors"
	"io"
	"net/http"

	"printbox/internal/model"
	"printbox/internal/service"

	"github.com/rs/zerolog"
)

// webhookSignatureHeader carries the gateway's whole-body HMAC signature.
const webhookSignatureHeader = "X-Razorpay-Signature"

// maxWebhookBody caps how much of a webhook payload is read.
const maxWebhookBody = 1 << 20

// PaymentHandler handles payment reconciliation HTTP requests.
type PaymentHandler struct {
	service service.ReconciliationService
	logger  zerolog.Logger
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(service service.ReconciliationService, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		logger:  logger.With().Str("handler", "payment").Logger(),
	}
}

// Verify handles POST /api/payments/verify requests (Trigger A).
func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, model.ErrCodeValidation, "method not allowed", h.logger)
		return
	}

	var req model.VerifyPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid request body", h.logger)
		return
	}

	resp, err := h.service.VerifyPayment(r.Context(), &req)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Webhook handles POST /api/payments/webhook requests (Trigger B). The
// response is 200 whenever the signature and payload were acceptable,
// regardless of the business outcome; there is no human caller to inform.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to read webhook body")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	signature := r.Header.Get(webhookSignatureHeader)

	if err := h.service.HandleWebhook(r.Context(), body, signature); err != nil {
		var domainErr *model.DomainError
		status := http.StatusInternalServerError
		if errors.As(err, &domainErr) {
			status = http.StatusBadRequest
		}
		h.logger.Warn().Err(err).Int("status", status).Msg("webhook rejected")
		w.WriteHeader(status)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// Failed handles POST /api/payments/failed requests, recording a
// client-reported payment failure.
func (h *PaymentHandler) Failed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, model.ErrCodeValidation, "method not allowed", h.logger)
		return
	}

	var req model.PaymentFailedRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid request body", h.logger)
		return
	}

	if err := h.service.RecordFailure(r.Context(), req.OrderID, req.ErrorDesc); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Payment failure recorded",
		"orderId": req.OrderID,
	})
}
