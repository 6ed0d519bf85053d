package handlers

import (
	"mime"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ticket-storefront/internal/models"
	"ticket-storefront/internal/services"
)

// CheckoutHandler handles checkout and the page shown after payment
type CheckoutHandler struct {
	checkout *services.CheckoutService
	thankYou *services.ThankYouService
	logger   *zap.Logger
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkout *services.CheckoutService, thankYou *services.ThankYouService, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		thankYou: thankYou,
		logger:   logger,
	}
}

// CheckoutRequest is the JSON form of a checkout submission
type CheckoutRequest struct {
	models.CheckoutForm
	CheckoutToken string `json:"checkout_token"`
}

// CheckoutPage returns the checkout data with a fresh checkout token
func (h *CheckoutHandler) CheckoutPage(w http.ResponseWriter, r *http.Request) {
	state, ok := requireState(w, r)
	if !ok {
		return
	}

	view, err := h.checkout.Render(state)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// ProcessCheckout places the order. The response carries the payment URL to
// redirect to, or marks a free order as completed.
func (h *CheckoutHandler) ProcessCheckout(w http.ResponseWriter, r *http.Request) {
	state, ok := requireState(w, r)
	if !ok {
		return
	}

	req, err := h.parseCheckout(w, r)
	if err != nil {
		h.checkout.Reject(state)
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid checkout data")
		return
	}

	result, err := h.checkout.Submit(r.Context(), state, &req.CheckoutForm, req.CheckoutToken)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ThankYou returns the order and payment status after checkout
func (h *CheckoutHandler) ThankYou(w http.ResponseWriter, r *http.Request) {
	state, ok := requireState(w, r)
	if !ok {
		return
	}

	query := services.ThankYouQuery{
		OrderID: r.URL.Query().Get("order_id"),
		Key:     r.URL.Query().Get("key"),
	}

	view, err := h.thankYou.Load(r.Context(), state, query)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// parseCheckout reads a JSON body or a url-encoded form
func (h *CheckoutHandler) parseCheckout(w http.ResponseWriter, r *http.Request) (*CheckoutRequest, error) {
	var req CheckoutRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := decodeJSON(w, r, &req); err != nil {
			return nil, err
		}
		return &req, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := r.ParseForm(); err != nil {
		return nil, err
	}

	req.CheckoutForm = models.CheckoutForm{
		FirstName:    r.PostFormValue("firstName"),
		LastName:     r.PostFormValue("lastName"),
		CompanyName:  r.PostFormValue("companyName"),
		City:         r.PostFormValue("city"),
		PhoneNumber:  r.PostFormValue("phoneNumber"),
		Email:        r.PostFormValue("email"),
		EmailConfirm: r.PostFormValue("emailConfirm"),
		Terms:        isChecked(r.PostFormValue("terms")),
	}
	req.CheckoutToken = r.PostFormValue("checkout_token")

	if raw := strings.TrimSpace(r.PostFormValue("discount_amount")); raw != "" {
		claimed, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, err
		}
		req.ClaimedDiscount = &claimed
	}

	return &req, nil
}

func isChecked(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on", "1", "true", "yes":
		return true
	}
	return false
}
