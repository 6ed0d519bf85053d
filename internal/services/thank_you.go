package services

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"

	"ticket-storefront/internal/models"
	"ticket-storefront/internal/session"
	"ticket-storefront/internal/utils"
)

// ThankYouQuery holds the parameters the payment provider appends to the
// return URL
type ThankYouQuery struct {
	OrderID string
	Key     string
}

// ThankYouView is the data of the page shown after checkout
type ThankYouView struct {
	OrderID        int                      `json:"order_id,omitempty"`
	OrderNumber    string                   `json:"order_number,omitempty"`
	Customer       *models.CustomerSnapshot `json:"customer,omitempty"`
	Payment        *models.PaymentStatus    `json:"payment,omitempty"`
	PaymentMessage string                   `json:"payment_message,omitempty"`
	IsSuccessful   bool                     `json:"is_successful"`
	IsPending      bool                     `json:"is_pending"`
	IsFailed       bool                     `json:"is_failed"`
}

// ThankYouService resolves the order and payment shown after checkout and
// ends the checkout session
type ThankYouService struct {
	orders   OrderService
	payments PaymentService
	logger   *zap.Logger
}

// NewThankYouService creates a new thank-you service
func NewThankYouService(orders OrderService, payments PaymentService, logger *zap.Logger) *ThankYouService {
	return &ThankYouService{orders: orders, payments: payments, logger: logger}
}

// Load builds the thank-you view. An order id in the query must come with the
// matching order key; otherwise access is denied with a *models.AccessError.
func (s *ThankYouService) Load(ctx context.Context, state session.State, query ThankYouQuery) (*ThankYouView, error) {
	view := &ThankYouView{}

	var customer models.CustomerSnapshot
	if found, err := session.GetJSON(state, session.KeyCustomer, &customer); err == nil && found {
		view.Customer = &customer
	}

	orderRef, _ := state.Get(session.KeyOrderID)
	fromQuery := query.OrderID != ""
	if fromQuery {
		orderRef = query.OrderID
		if query.Key == "" {
			return nil, s.deny("missing_key", "Order key is required")
		}
	}

	if orderRef != "" {
		orderID, err := strconv.Atoi(orderRef)
		if err != nil || orderID <= 0 {
			return nil, s.deny("order_not_found", "Order not found")
		}

		order, err := s.orders.GetOrder(ctx, orderID)
		if err != nil {
			if !errors.Is(err, models.ErrOrderNotFound) {
				s.logger.Error("Failed to load order for thank-you page", zap.Int("order_id", orderID), zap.Error(err))
			}
			return nil, s.deny("order_not_found", "Order not found")
		}

		if fromQuery {
			expected := order.Key()
			if expected == "" || !utils.ConstantTimeEqual(expected, query.Key) {
				return nil, s.deny("invalid_key", "Invalid order key")
			}
		}

		view.OrderID = order.ID
		view.OrderNumber = order.DisplayNumber()
		s.attachPayment(ctx, view, order)
	}

	state.Delete(session.KeyCart, session.KeyOrderID, session.KeyCustomer, session.KeyCheckoutToken)

	return view, nil
}

func (s *ThankYouService) attachPayment(ctx context.Context, view *ThankYouView, order *models.Order) {
	reference := order.PaymentReference()
	if reference == "" {
		return
	}

	status, err := s.payments.GetPaymentStatus(ctx, reference)
	if err != nil {
		s.logger.Error("Failed to get payment status",
			zap.Int("order_id", order.ID),
			zap.Error(err))
		return
	}

	view.Payment = status
	view.PaymentMessage = status.Message()
	view.IsSuccessful = status.IsSuccessful()
	view.IsPending = status.IsPending()
	view.IsFailed = status.IsFailed()
}

func (s *ThankYouService) deny(code, message string) error {
	s.logger.Warn("Access denied to thank you page",
		zap.String("error_code", code),
		zap.String("message", message))
	return &models.AccessError{Code: code, Message: message}
}
