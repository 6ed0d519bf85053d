package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"ticket-storefront/internal/models"
	"ticket-storefront/internal/services"
	"ticket-storefront/internal/session"
)

// CartHandler handles cart quantity and coupon requests
type CartHandler struct {
	cart       *services.CartManager
	calculator *services.Calculator
	coupons    *services.CouponValidator
	logger     *zap.Logger
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cart *services.CartManager, calculator *services.Calculator, coupons *services.CouponValidator, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		cart:       cart,
		calculator: calculator,
		coupons:    coupons,
		logger:     logger,
	}
}

// CartLineRequest selects a ticket type. EventID defaults to the event of the
// session cart.
type CartLineRequest struct {
	EventID      int `json:"event_id"`
	TicketTypeID int `json:"ticket_type_id"`
	Quantity     int `json:"quantity"`
}

// QuantityResponse is the cart after a quantity change
type QuantityResponse struct {
	CartResponse
	Clamped bool `json:"clamped"`
}

// CouponRequest carries a coupon code
type CouponRequest struct {
	Code string `json:"code"`
}

// CouponResponse is the cart after a coupon change
type CouponResponse struct {
	CartResponse
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// Increment adds one ticket of a type to the cart
func (h *CartHandler) Increment(w http.ResponseWriter, r *http.Request) {
	state, req, eventID, ok := h.lineRequest(w, r)
	if !ok {
		return
	}

	cart, err := h.cart.Increment(r.Context(), state, eventID, req.TicketTypeID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, h.response(cart))
}

// SetQuantity sets the quantity of a ticket type in the cart
func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	state, req, eventID, ok := h.lineRequest(w, r)
	if !ok {
		return
	}

	cart, clamped, err := h.cart.SetQuantity(r.Context(), state, eventID, req.TicketTypeID, req.Quantity)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, QuantityResponse{
		CartResponse: h.response(cart),
		Clamped:      clamped,
	})
}

// ValidateCoupon validates a coupon code and applies it to the cart when valid
func (h *CartHandler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var req CouponRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		writeError(w, http.StatusBadRequest, "missing_code", "Coupon code is required")
		return
	}

	state, ok := requireState(w, r)
	if !ok {
		return
	}

	coupon, err := h.coupons.Validate(r.Context(), req.Code)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	if !coupon.Valid {
		cart, err := h.cart.Load(state)
		if err != nil {
			writeServiceError(w, r, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, CouponResponse{
			CartResponse: h.response(cart),
			Valid:        false,
			Message:      coupon.Message,
		})
		return
	}

	cart, err := h.cart.ApplyCoupon(state, coupon)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, CouponResponse{
		CartResponse: h.response(cart),
		Valid:        true,
		Message:      coupon.Description,
	})
}

// RemoveCoupon detaches the coupon from the cart
func (h *CartHandler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	state, ok := requireState(w, r)
	if !ok {
		return
	}

	cart, err := h.cart.RemoveCoupon(state)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, CouponResponse{CartResponse: h.response(cart), Valid: false})
}

func (h *CartHandler) lineRequest(w http.ResponseWriter, r *http.Request) (state session.State, req CartLineRequest, eventID int, ok bool) {
	if err := decodeJSON(w, r, &req); err != nil || req.TicketTypeID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid ticket type")
		return nil, req, 0, false
	}

	state, ok = requireState(w, r)
	if !ok {
		return nil, req, 0, false
	}

	eventID = req.EventID
	if eventID <= 0 {
		cart, err := h.cart.Load(state)
		if err != nil {
			writeServiceError(w, r, h.logger, err)
			return nil, req, 0, false
		}
		eventID = cart.EventID
	}
	if eventID <= 0 {
		writeServiceError(w, r, h.logger, models.ErrEmptyCart)
		return nil, req, 0, false
	}

	return state, req, eventID, true
}

func (h *CartHandler) response(cart *models.Cart) CartResponse {
	return CartResponse{
		Cart:   cart,
		Totals: h.calculator.Totals(cart).Rounded(),
	}
}
