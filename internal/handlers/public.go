package handlers

import (
	"net/http"
	"regexp"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ticket-storefront/internal/models"
	"ticket-storefront/internal/services"
)

// ticketFieldPattern matches the quantity fields of the selection form,
// tickets[<ticket type id>][quantity]
var ticketFieldPattern = regexp.MustCompile(`^tickets\[(\d+)\]\[quantity\]$`)

// PublicHandler serves the show pages of the storefront
type PublicHandler struct {
	catalog    services.CatalogService
	cart       *services.CartManager
	calculator *services.Calculator
	logger     *zap.Logger
}

// NewPublicHandler creates a new public handler
func NewPublicHandler(catalog services.CatalogService, cart *services.CartManager, calculator *services.Calculator, logger *zap.Logger) *PublicHandler {
	return &PublicHandler{
		catalog:    catalog,
		cart:       cart,
		calculator: calculator,
		logger:     logger,
	}
}

// ShowTicketsResponse is the ticket page of a show
type ShowTicketsResponse struct {
	Event     *models.Event     `json:"event"`
	Available bool              `json:"available"`
	Cart      *models.Cart      `json:"cart"`
	Totals    models.CartTotals `json:"totals"`
}

// ShowTickets returns an event with its ticket types and the session cart
func (h *PublicHandler) ShowTickets(w http.ResponseWriter, r *http.Request) {
	eventID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || eventID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_event", "Invalid event ID")
		return
	}

	state, ok := requireState(w, r)
	if !ok {
		return
	}

	event, err := h.catalog.GetEvent(r.Context(), eventID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	cart, totals, err := h.cart.Totals(state)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if cart.EventID != event.ID {
		cart = &models.Cart{}
		totals = h.calculator.Totals(cart)
	}

	writeJSON(w, http.StatusOK, ShowTicketsResponse{
		Event:     event,
		Available: event.IsAvailable(),
		Cart:      cart,
		Totals:    totals.Rounded(),
	})
}

// SubmitOrder replaces the cart with the ticket selection form of a show
func (h *PublicHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	eventID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || eventID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_event", "Invalid event ID")
		return
	}

	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_form", "Invalid form data")
		return
	}

	selections := make(map[int]int)
	for field, values := range r.PostForm {
		match := ticketFieldPattern.FindStringSubmatch(field)
		if match == nil || len(values) == 0 {
			continue
		}
		ticketTypeID, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		quantity, err := strconv.Atoi(values[0])
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_quantity", "Invalid quantity")
			return
		}
		selections[ticketTypeID] = quantity
	}

	state, ok := requireState(w, r)
	if !ok {
		return
	}

	cart, err := h.cart.ReplaceLines(r.Context(), state, eventID, selections)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, CartResponse{
		Cart:   cart,
		Totals: h.calculator.Totals(cart).Rounded(),
	})
}

// Health reports that the service is up
func Health(service string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"service": service,
		})
	}
}
