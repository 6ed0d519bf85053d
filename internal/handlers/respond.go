package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"ticket-storefront/internal/middleware"
	"ticket-storefront/internal/models"
	"ticket-storefront/internal/session"
)

// ErrorResponse is the JSON body of failed requests
type ErrorResponse struct {
	Error   string              `json:"error"`
	Message string              `json:"message,omitempty"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// writeServiceError maps pipeline errors onto status codes. Upstream failures
// get a generic message; the detail only goes to the log.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var validationErr *models.ValidationError
	var accessErr *models.AccessError

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation_failed",
			Message: "Controleer de ingevulde gegevens",
			Fields:  validationErr.Fields,
		})
	case errors.As(err, &accessErr):
		writeError(w, http.StatusForbidden, accessErr.Code, accessErr.Message)
	case errors.Is(err, models.ErrDuplicateOrExpiredSubmission):
		writeError(w, http.StatusConflict, "duplicate_submission", "Deze bestelling is al verwerkt of je sessie is verlopen")
	case errors.Is(err, models.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, "empty_cart", "Je winkelwagen is leeg")
	case errors.Is(err, models.ErrStockOrQuantityExceeded):
		writeError(w, http.StatusConflict, "quantity_exceeded", "Het maximale aantal tickets is bereikt")
	case errors.Is(err, models.ErrEventUnavailable):
		writeError(w, http.StatusConflict, "sold_out", "Deze voorstelling is uitverkocht")
	case errors.Is(err, models.ErrEventNotFound):
		writeError(w, http.StatusNotFound, "event_not_found", "Voorstelling niet gevonden")
	case errors.Is(err, models.ErrTicketTypeNotFound):
		writeError(w, http.StatusNotFound, "ticket_type_not_found", "Tickettype niet gevonden")
	case errors.Is(err, models.ErrInvalidCoupon):
		writeError(w, http.StatusBadRequest, "invalid_coupon", "Ongeldige kortingscode")
	case errors.Is(err, models.ErrOrderCreationFailed), errors.Is(err, models.ErrPaymentLinkUnavailable):
		logger.Error("Checkout failed upstream",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.Error(err))
		writeError(w, http.StatusBadGateway, "upstream_error", "Er is iets misgegaan bij het verwerken van je bestelling. Probeer het later opnieuw.")
	default:
		logger.Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "Er is iets misgegaan. Probeer het later opnieuw.")
	}
}

// requireState returns the session state of the request, answering with an
// error when the session middleware did not run
func requireState(w http.ResponseWriter, r *http.Request) (session.State, bool) {
	state, ok := middleware.GetSessionState(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "session_error", "Session unavailable")
		return nil, false
	}
	return state, true
}

// decodeJSON reads a JSON request body of at most 1 MB
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v)
}

// CartResponse is the cart with its rounded totals
type CartResponse struct {
	Cart   *models.Cart      `json:"cart"`
	Totals models.CartTotals `json:"totals"`
}
