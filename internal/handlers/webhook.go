package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ticket-storefront/internal/models"
	"ticket-storefront/internal/services"
)

const maxWebhookBody = 1 << 20

// WebhookHandler receives order webhooks and manual processing requests
type WebhookHandler struct {
	webhooks  *services.WebhookService
	processor *services.OrderProcessor
	logger    *zap.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(webhooks *services.WebhookService, processor *services.OrderProcessor, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		webhooks:  webhooks,
		processor: processor,
		logger:    logger,
	}
}

// WooCommerce handles an order webhook delivery
func (h *WebhookHandler) WooCommerce(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Unable to read request body")
		return
	}

	result, err := h.webhooks.Handle(r.Context(), services.WebhookRequest{
		Body:      body,
		Signature: r.Header.Get("X-WC-Webhook-Signature"),
		Topic:     r.Header.Get("X-WC-Webhook-Topic"),
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidWebhookSignature):
			writeError(w, http.StatusUnauthorized, "invalid_signature", "Invalid webhook signature")
		case errors.Is(err, models.ErrInvalidWebhookPayload):
			writeError(w, http.StatusBadRequest, "invalid_payload", err.Error())
		default:
			h.logger.Error("Webhook processing failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "processing_failed", "Webhook processing failed")
		}
		return
	}

	status := "processed"
	if result.Skipped {
		status = "skipped"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   status,
		"order_id": result.OrderID,
	})
}

// ProcessOrder dispatches the confirmation of an order on request
func (h *WebhookHandler) ProcessOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.Atoi(chi.URLParam(r, "orderId"))
	if err != nil || orderID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_order_id", "Invalid order ID")
		return
	}

	if err := h.processor.ProcessOrder(r.Context(), orderID); err != nil {
		switch {
		case errors.Is(err, models.ErrOrderNotFound):
			writeError(w, http.StatusNotFound, "order_not_found", "Order not found")
		case errors.Is(err, models.ErrInvalidOrderData):
			writeError(w, http.StatusUnprocessableEntity, "invalid_order_data", "Order is missing required data")
		default:
			h.logger.Error("Order processing failed", zap.Int("order_id", orderID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "processing_failed", "Order processing failed")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":   "queued",
		"order_id": orderID,
	})
}
