package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ticket-storefront/internal/logging"
	"ticket-storefront/internal/models"
	"ticket-storefront/internal/session"
)

// discountTolerance is the largest accepted difference between the discount
// the client displayed and the recomputed one
var discountTolerance = decimal.New(1, -2)

// Dispatcher schedules the confirmation of a completed order
type Dispatcher interface {
	Dispatch(ctx context.Context, orderID int) error
}

// CheckoutOptions holds the storefront settings used during checkout
type CheckoutOptions struct {
	BaseURL  string
	Currency string
}

// CheckoutService renders the checkout page data and turns a submission
// into an order
type CheckoutService struct {
	cart       *CartManager
	calculator *Calculator
	tokens     *CheckoutTokenGuard
	orders     OrderService
	dispatcher Dispatcher
	validator  *FormValidator
	options    CheckoutOptions
	logger     *zap.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(
	cart *CartManager,
	calculator *Calculator,
	tokens *CheckoutTokenGuard,
	orders OrderService,
	dispatcher Dispatcher,
	validator *FormValidator,
	options CheckoutOptions,
	logger *zap.Logger,
) *CheckoutService {
	if options.Currency == "" {
		options.Currency = "EUR"
	}
	return &CheckoutService{
		cart:       cart,
		calculator: calculator,
		tokens:     tokens,
		orders:     orders,
		dispatcher: dispatcher,
		validator:  validator,
		options:    options,
		logger:     logger,
	}
}

// Render returns the checkout page data. Every render issues a fresh token,
// invalidating the one handed out before.
func (s *CheckoutService) Render(state session.State) (*models.CheckoutView, error) {
	cart, totals, err := s.cart.Totals(state)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, models.ErrEmptyCart
	}

	token, err := s.tokens.Issue(state, true)
	if err != nil {
		return nil, fmt.Errorf("failed to issue checkout token: %w", err)
	}

	return &models.CheckoutView{
		Cart:          cart,
		Totals:        totals.Rounded(),
		TaxRate:       s.calculator.TaxRate().String(),
		CheckoutToken: token,
	}, nil
}

// Reject spends the pending checkout token of a submission that could not be
// parsed, so it counts as a consumed attempt.
func (s *CheckoutService) Reject(state session.State) {
	s.tokens.Discard(state)
}

// Submit places the order for the session cart. The checkout token is
// consumed before anything else is looked at, so a duplicate submission
// never reaches validation or the shop.
func (s *CheckoutService) Submit(ctx context.Context, state session.State, form *models.CheckoutForm, token string) (*models.OrderResult, error) {
	if err := s.tokens.Consume(state, token); err != nil {
		return nil, err
	}

	if err := s.validator.Checkout(form); err != nil {
		return nil, err
	}

	cart, totals, err := s.cart.Totals(state)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, models.ErrEmptyCart
	}

	s.checkClaimedDiscount(state, form, totals)

	payload := BuildOrderPayload(cart, totals, form, s.calculator, s.options.Currency)

	order, err := s.orders.CreateOrder(ctx, payload)
	if err != nil {
		s.logger.Error("Failed to create order",
			zap.Int("event_id", cart.EventID),
			zap.Int("tickets", cart.TicketCount()),
			zap.Error(err))
		return nil, upstream(models.ErrOrderCreationFailed, err)
	}
	if order == nil || order.ID <= 0 {
		s.logger.Error("Order API returned no order id", zap.Int("event_id", cart.EventID))
		return nil, &models.UpstreamError{Kind: models.ErrOrderCreationFailed, Message: "no order id returned"}
	}

	state.Set(session.KeyOrderID, strconv.Itoa(order.ID))
	if err := session.SetJSON(state, session.KeyCustomer, form.Snapshot()); err != nil {
		s.logger.Warn("Failed to store customer snapshot", zap.Int("order_id", order.ID), zap.Error(err))
	}

	result := &models.OrderResult{
		OrderID:     order.ID,
		OrderNumber: order.DisplayNumber(),
		Total:       totals.Total.Round(2),
	}

	if totals.Total.Sign() > 0 {
		url, err := s.orders.GetCheckoutURL(ctx, order.ID, s.options.BaseURL+"/thank-you")
		if err != nil || url == "" {
			s.logger.Error("Failed to get payment link",
				zap.Int("order_id", order.ID),
				zap.Error(err))
			if err == nil {
				return nil, &models.UpstreamError{Kind: models.ErrPaymentLinkUnavailable, Message: "no checkout url returned"}
			}
			return nil, upstream(models.ErrPaymentLinkUnavailable, err)
		}
		result.PaymentURL = url
	} else {
		s.completeFreeOrder(ctx, order.ID)
		result.Completed = true
	}

	s.cart.Clear(state)

	s.logger.Info("Order placed",
		zap.Int("order_id", order.ID),
		zap.String("total", result.Total.StringFixed(2)),
		zap.Bool("payment_required", !result.Completed))

	return result, nil
}

// completeFreeOrder marks a zero-value order completed and schedules its
// confirmation. Failures are logged; the customer already has an order.
func (s *CheckoutService) completeFreeOrder(ctx context.Context, orderID int) {
	if err := s.orders.UpdateOrderStatus(ctx, orderID, models.OrderCompleted); err != nil {
		s.logger.Warn("Failed to update order status to completed for zero-value order",
			zap.Int("order_id", orderID),
			zap.Error(err))
	}

	if err := s.dispatcher.Dispatch(ctx, orderID); err != nil {
		s.logger.Error("Failed to dispatch order confirmation",
			zap.Int("order_id", orderID),
			zap.Error(err))
	}
}

// checkClaimedDiscount compares the discount the client showed with the
// recomputed one. The recomputed value is always used.
func (s *CheckoutService) checkClaimedDiscount(state session.State, form *models.CheckoutForm, totals models.CartTotals) {
	if form.ClaimedDiscount == nil {
		return
	}

	diff := form.ClaimedDiscount.Sub(totals.Discount).Abs()
	if diff.GreaterThan(discountTolerance) {
		s.logger.Warn("Client discount differs from server discount",
			zap.String("session", logging.TokenPrefix(state.ID())),
			zap.String("claimed", form.ClaimedDiscount.StringFixed(2)),
			zap.String("computed", totals.Discount.StringFixed(2)))
	}
}

// upstream wraps an adapter error in the given kind unless it already is one
func upstream(kind error, err error) error {
	if errors.Is(err, kind) {
		return err
	}
	return &models.UpstreamError{Kind: kind, Message: err.Error(), Err: err}
}
