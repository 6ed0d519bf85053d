package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ticket-storefront/internal/jobs"
	"ticket-storefront/internal/logging"
	"ticket-storefront/internal/models"
)

// JobOrderConfirmation is the job type of confirmation emails
const JobOrderConfirmation = "order-confirmation"

// ConfirmationPayload is the payload of an order confirmation job
type ConfirmationPayload struct {
	OrderID       int    `json:"order_id"`
	DownloadToken string `json:"download_token"`
	Resend        bool   `json:"resend,omitempty"` // sends even when already delivered
}

// ConfirmationDedupKey identifies the confirmation of an order across
// redeliveries and repeated dispatches
func ConfirmationDedupKey(orderID int) string {
	return JobOrderConfirmation + ":" + strconv.Itoa(orderID)
}

// ConfirmationDispatcher mints a download token for a completed order and
// queues its confirmation email
type ConfirmationDispatcher struct {
	queue  jobs.Queue
	tokens *DocumentTokenService
	logger *zap.Logger
}

// NewConfirmationDispatcher creates a new confirmation dispatcher
func NewConfirmationDispatcher(queue jobs.Queue, tokens *DocumentTokenService, logger *zap.Logger) *ConfirmationDispatcher {
	return &ConfirmationDispatcher{queue: queue, tokens: tokens, logger: logger}
}

// Dispatch enqueues the confirmation job of an order
func (d *ConfirmationDispatcher) Dispatch(ctx context.Context, orderID int) error {
	return d.enqueue(ctx, orderID, false)
}

// Resend enqueues a confirmation that is sent even when one was delivered
// recently. Every resend has its own dedup key, so FIFO queues accept it.
func (d *ConfirmationDispatcher) Resend(ctx context.Context, orderID int) error {
	return d.enqueue(ctx, orderID, true)
}

func (d *ConfirmationDispatcher) enqueue(ctx context.Context, orderID int, resend bool) error {
	token, err := d.tokens.Mint(orderID)
	if err != nil {
		return fmt.Errorf("failed to mint download token: %w", err)
	}

	dedupKey := ConfirmationDedupKey(orderID)
	if resend {
		dedupKey += ":resend:" + uuid.NewString()
	}

	job, err := jobs.NewJob(JobOrderConfirmation, dedupKey, ConfirmationPayload{
		OrderID:       orderID,
		DownloadToken: token,
		Resend:        resend,
	})
	if err != nil {
		return err
	}

	if err := d.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("failed to enqueue confirmation for order %d: %w", orderID, err)
	}

	d.logger.Info("Order processed successfully",
		zap.Int("order_id", orderID),
		zap.String("job_id", job.ID),
		zap.Bool("resend", resend))
	return nil
}

// ConfirmationOptions holds the settings of confirmation emails
type ConfirmationOptions struct {
	BaseURL     string
	Currency    string
	DedupWindow time.Duration
}

// ConfirmationHandler renders the ticket PDF of an order and emails it with
// a download link. Errors are returned so the queue redelivers the job.
type ConfirmationHandler struct {
	orders    OrderService
	documents *DocumentService
	tokens    *DocumentTokenService
	mailer    Mailer
	ledger    jobs.DeliveryLedger
	templates *EmailTemplates
	options   ConfirmationOptions
	now       func() time.Time
	logger    *zap.Logger
}

// NewConfirmationHandler creates a new confirmation handler. ledger may be
// nil, in which case every delivery sends an email.
func NewConfirmationHandler(
	orders OrderService,
	documents *DocumentService,
	tokens *DocumentTokenService,
	mailer Mailer,
	ledger jobs.DeliveryLedger,
	options ConfirmationOptions,
	logger *zap.Logger,
) *ConfirmationHandler {
	return &ConfirmationHandler{
		orders:    orders,
		documents: documents,
		tokens:    tokens,
		mailer:    mailer,
		ledger:    ledger,
		templates: NewEmailTemplates(),
		options:   options,
		now:       time.Now,
		logger:    logger,
	}
}

// WithClock replaces the clock used for dedup windows and email dates
func (h *ConfirmationHandler) WithClock(now func() time.Time) *ConfirmationHandler {
	h.now = now
	return h
}

// Handle processes one confirmation job
func (h *ConfirmationHandler) Handle(ctx context.Context, job jobs.Job) error {
	var payload ConfirmationPayload
	if err := job.Decode(&payload); err != nil || payload.OrderID <= 0 {
		h.logger.Error("Dropping confirmation job with invalid payload",
			zap.String("job_id", job.ID),
			zap.Error(err))
		return nil
	}

	// The ledger tracks orders, so resends record under the order's key too
	key := ConfirmationDedupKey(payload.OrderID)

	if !payload.Resend && h.alreadyDelivered(ctx, key) {
		h.logger.Info("Confirmation already sent, skipping",
			zap.Int("order_id", payload.OrderID),
			zap.String("dedup_key", key))
		return nil
	}

	order, err := h.orders.GetOrder(ctx, payload.OrderID)
	if err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			h.logger.Error("Dropping confirmation for unknown order", zap.Int("order_id", payload.OrderID))
			return nil
		}
		return h.fail(payload.OrderID, "failed to load order", err)
	}

	email := order.CustomerEmail()
	if email == "" {
		h.logger.Warn("Order has no customer email, confirmation not sent", zap.Int("order_id", order.ID))
		return nil
	}

	document, err := h.documents.Generate(ctx, order)
	if err != nil {
		return h.fail(order.ID, "failed to render tickets", err)
	}

	token, claims := h.downloadToken(payload)

	data := &OrderConfirmationData{
		OrderNumber:  order.DisplayNumber(),
		OrderDate:    formatEmailDate(h.now()),
		CustomerName: order.CustomerName(),
		EventName:    order.MetaString("_event_name"),
		EventDate:    order.MetaString("_event_date"),
		Total:        h.formatTotal(order),
		DownloadURL:  h.options.BaseURL + "/pdf/download/" + token,
		ValidUntil:   formatEmailDate(time.Unix(claims.ExpiresAt, 0)),
	}

	subject, html, text, err := h.templates.OrderConfirmation(data)
	if err != nil {
		return h.fail(order.ID, "failed to render email", err)
	}

	message := &EmailMessage{
		To:       email,
		Subject:  subject,
		HTML:     html,
		Text:     text,
		Category: JobOrderConfirmation,
		Attachments: []EmailAttachment{{
			Filename:    document.Filename,
			ContentType: "application/pdf",
			Content:     document.Content,
		}},
	}

	if err := h.mailer.Send(ctx, message); err != nil {
		return h.fail(order.ID, "failed to send email", err)
	}

	if h.ledger != nil {
		if err := h.ledger.Record(ctx, key, h.now()); err != nil {
			h.logger.Warn("Failed to record confirmation delivery",
				zap.Int("order_id", order.ID),
				zap.Error(err))
		}
	}

	h.logger.Info("Order notification emails sent",
		zap.Int("order_id", order.ID),
		zap.String("token", logging.TokenPrefix(token)),
		zap.Int("attachment_bytes", len(document.Content)))
	return nil
}

func (h *ConfirmationHandler) alreadyDelivered(ctx context.Context, key string) bool {
	if h.ledger == nil || h.options.DedupWindow <= 0 {
		return false
	}

	delivered, err := h.ledger.Delivered(ctx, key, h.now().Add(-h.options.DedupWindow))
	if err != nil {
		h.logger.Warn("Failed to check delivery ledger, sending anyway",
			zap.String("dedup_key", key),
			zap.Error(err))
		return false
	}
	return delivered
}

// downloadToken returns the token from the job, or a fresh one when the
// queued token no longer verifies
func (h *ConfirmationHandler) downloadToken(payload ConfirmationPayload) (string, *DocumentClaims) {
	if claims, err := h.tokens.Claims(payload.DownloadToken); err == nil && claims.OrderID == payload.OrderID {
		return payload.DownloadToken, claims
	}

	h.logger.Warn("Queued download token is invalid, minting a new one", zap.Int("order_id", payload.OrderID))
	token, err := h.tokens.Mint(payload.OrderID)
	if err != nil {
		return payload.DownloadToken, &DocumentClaims{OrderID: payload.OrderID, ExpiresAt: h.now().Unix()}
	}
	claims, err := h.tokens.Claims(token)
	if err != nil {
		return token, &DocumentClaims{OrderID: payload.OrderID, ExpiresAt: h.now().Unix()}
	}
	return token, claims
}

func (h *ConfirmationHandler) formatTotal(order *models.Order) string {
	if order.Total == "" {
		return ""
	}
	total, err := decimal.NewFromString(order.Total)
	if err != nil {
		return order.Total
	}
	currency := order.Currency
	if currency == "" {
		currency = h.options.Currency
	}
	return FormatMoney(total, currency)
}

func (h *ConfirmationHandler) fail(orderID int, message string, err error) error {
	h.logger.Error("Failed to send order notification emails via worker",
		zap.Int("order_id", orderID),
		zap.String("step", message),
		zap.Error(err))
	return fmt.Errorf("%s for order %d: %w", message, orderID, err)
}
