package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"ticket-storefront/internal/models"
	"ticket-storefront/internal/utils"
)

// WebhookRequest is an order webhook delivery from the shop
type WebhookRequest struct {
	Body      []byte
	Signature string // X-WC-Webhook-Signature
	Topic     string // X-WC-Webhook-Topic
}

// WebhookResult describes how a delivery was handled
type WebhookResult struct {
	OrderID int
	Topic   string
	Action  string
	Skipped bool
}

// actionPayload is the action based webhook format, which carries only the
// order id
type actionPayload struct {
	Action string          `json:"action"`
	Arg    json.RawMessage `json:"arg"`
}

// Resender queues a confirmation regardless of earlier deliveries
type Resender interface {
	Resend(ctx context.Context, orderID int) error
}

// OrderProcessor validates an order and resends its confirmation
type OrderProcessor struct {
	orders   OrderService
	resender Resender
	logger   *zap.Logger
}

// NewOrderProcessor creates a new order processor
func NewOrderProcessor(orders OrderService, resender Resender, logger *zap.Logger) *OrderProcessor {
	return &OrderProcessor{orders: orders, resender: resender, logger: logger}
}

// ProcessOrder loads an order by id and queues its confirmation. It is used
// to resend confirmations manually, so the delivery ledger is bypassed.
func (p *OrderProcessor) ProcessOrder(ctx context.Context, orderID int) error {
	p.logger.Info("API order processing request received", zap.Int("order_id", orderID))

	order, err := p.orders.GetOrder(ctx, orderID)
	if err != nil {
		p.logger.Error("Order not found in shop", zap.Int("order_id", orderID), zap.Error(err))
		return err
	}

	if order.ID <= 0 || order.Billing == nil {
		return models.ErrInvalidOrderData
	}

	return p.resender.Resend(ctx, order.ID)
}

// WebhookService authenticates order webhooks and dispatches confirmations
// for completed orders
type WebhookService struct {
	orders     OrderService
	dispatcher Dispatcher
	secret     []byte
	logger     *zap.Logger
}

// NewWebhookService creates a new webhook service. With an empty secret
// signatures are not checked.
func NewWebhookService(orders OrderService, dispatcher Dispatcher, secret string, logger *zap.Logger) *WebhookService {
	if secret == "" {
		logger.Warn("Webhook secret not configured, signatures will not be validated")
	}
	return &WebhookService{
		orders:     orders,
		dispatcher: dispatcher,
		secret:     []byte(secret),
		logger:     logger,
	}
}

// VerifySignature checks a base64 HMAC-SHA256 signature of the body
func (s *WebhookService) VerifySignature(body []byte, signature string) bool {
	expected := utils.SignHMACBase64(s.secret, body)
	return utils.ConstantTimeEqual(expected, signature)
}

// Handle processes one webhook delivery. Draft orders are skipped.
func (s *WebhookService) Handle(ctx context.Context, req WebhookRequest) (*WebhookResult, error) {
	body := bytes.TrimSpace(req.Body)
	if len(body) == 0 || body[0] != '{' || !json.Valid(body) {
		s.logger.Error("Invalid webhook payload received")
		return nil, fmt.Errorf("%w: invalid JSON payload", models.ErrInvalidWebhookPayload)
	}

	if len(s.secret) > 0 {
		if req.Signature == "" {
			return nil, fmt.Errorf("%w: missing signature header", models.ErrInvalidWebhookSignature)
		}
		if !s.VerifySignature(req.Body, req.Signature) {
			s.logger.Error("Invalid webhook signature")
			return nil, models.ErrInvalidWebhookSignature
		}
	}

	if req.Topic == "" {
		s.logger.Error("Missing X-WC-Webhook-Topic header")
		return nil, fmt.Errorf("%w: missing webhook topic header", models.ErrInvalidWebhookPayload)
	}

	result := &WebhookResult{Topic: req.Topic}

	order, action, err := s.resolveOrder(ctx, body)
	if err != nil {
		return nil, err
	}
	result.OrderID = order.ID
	result.Action = action

	if order.Status == "" || order.IsDraft() {
		s.logger.Info("Skipping invalid or draft order",
			zap.Int("order_id", order.ID),
			zap.String("status", string(order.Status)))
		result.Skipped = true
		return result, nil
	}

	s.logger.Info("Order webhook received",
		zap.Int("order_id", order.ID),
		zap.String("status", string(order.Status)),
		zap.String("topic", req.Topic))

	if err := s.dispatcher.Dispatch(ctx, order.ID); err != nil {
		s.logger.Error("Error processing order webhook", zap.Int("order_id", order.ID), zap.Error(err))
		return nil, err
	}

	return result, nil
}

// resolveOrder reads the order from an action payload, fetching it from the
// shop, or directly from a legacy payload
func (s *WebhookService) resolveOrder(ctx context.Context, body []byte) (*models.Order, string, error) {
	var action actionPayload
	if err := json.Unmarshal(body, &action); err == nil && action.Action != "" && len(action.Arg) > 0 {
		orderID, err := parseOrderArg(action.Arg)
		if err != nil {
			return nil, "", fmt.Errorf("%w: invalid order id", models.ErrInvalidWebhookPayload)
		}

		s.logger.Info("Processing action-based webhook",
			zap.String("action", action.Action),
			zap.Int("order_id", orderID))

		order, err := s.orders.GetOrder(ctx, orderID)
		if err != nil {
			s.logger.Error("Failed to fetch order from shop", zap.Int("order_id", orderID), zap.Error(err))
			return nil, "", fmt.Errorf("%w: unable to fetch order data", models.ErrInvalidWebhookPayload)
		}
		return order, action.Action, nil
	}

	var order models.Order
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, "", fmt.Errorf("%w: %v", models.ErrInvalidWebhookPayload, err)
	}
	if order.ID <= 0 {
		s.logger.Error("Missing order ID in webhook payload")
		return nil, "", fmt.Errorf("%w: missing order ID in payload", models.ErrInvalidWebhookPayload)
	}
	return &order, "", nil
}

// parseOrderArg accepts the order id as a JSON number or string
func parseOrderArg(raw json.RawMessage) (int, error) {
	value := strings.Trim(string(raw), `"`)
	id, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, errors.New("order id must be positive")
	}
	return id, nil
}
