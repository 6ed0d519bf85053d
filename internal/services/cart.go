package services

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"ticket-storefront/internal/models"
	"ticket-storefront/internal/session"
)

// CartManager mutates the cart held in session state and enforces the per
// order maximum and the event's shared stock
type CartManager struct {
	catalog    CatalogService
	calculator *Calculator
	maxTickets int
	logger     *zap.Logger
}

// NewCartManager creates a new cart manager
func NewCartManager(catalog CatalogService, calculator *Calculator, maxTickets int, logger *zap.Logger) *CartManager {
	return &CartManager{
		catalog:    catalog,
		calculator: calculator,
		maxTickets: maxTickets,
		logger:     logger,
	}
}

// Load returns the session cart, or an empty cart
func (m *CartManager) Load(state session.State) (*models.Cart, error) {
	var cart models.Cart
	found, err := session.GetJSON(state, session.KeyCart, &cart)
	if err != nil {
		m.logger.Warn("Discarding unreadable cart", zap.String("session", state.ID()), zap.Error(err))
		return &models.Cart{}, nil
	}
	if !found {
		return &models.Cart{}, nil
	}
	return &cart, nil
}

// Save stores the cart in session state
func (m *CartManager) Save(state session.State, cart *models.Cart) error {
	return session.SetJSON(state, session.KeyCart, cart)
}

// Clear removes the cart and its coupon
func (m *CartManager) Clear(state session.State) {
	state.Delete(session.KeyCart)
}

// Totals computes the totals of the session cart
func (m *CartManager) Totals(state session.State) (*models.Cart, models.CartTotals, error) {
	cart, err := m.Load(state)
	if err != nil {
		return nil, models.CartTotals{}, err
	}
	return cart, m.calculator.Totals(cart), nil
}

// ReplaceLines replaces the cart with a new ticket selection for an event.
// selections maps ticket type id to quantity. Quantities beyond the caps are
// clamped and lines with quantity 0 are dropped.
func (m *CartManager) ReplaceLines(ctx context.Context, state session.State, eventID int, selections map[int]int) (*models.Cart, error) {
	event, err := m.catalog.GetEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if !event.IsAvailable() {
		return nil, models.ErrEventUnavailable
	}

	current, err := m.Load(state)
	if err != nil {
		return nil, err
	}

	cart := m.cartForEvent(current, event)
	cart.Lines = nil

	// Stable order so clamping is deterministic
	ids := make([]int, 0, len(selections))
	for id := range selections {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	remaining := m.limit(cart)
	for _, id := range ids {
		quantity := selections[id]
		if quantity <= 0 {
			continue
		}

		ticketType, ok := event.FindTicketType(id)
		if !ok {
			return nil, models.ErrTicketTypeNotFound
		}

		if quantity > remaining {
			m.logger.Info("Clamping ticket quantity",
				zap.Int("event_id", eventID),
				zap.Int("ticket_type_id", id),
				zap.Int("requested", quantity),
				zap.Int("allowed", remaining))
			quantity = remaining
		}
		if quantity == 0 {
			continue
		}

		cart.Lines = append(cart.Lines, models.CartLine{
			TicketTypeID: ticketType.ID,
			Name:         ticketType.Name,
			UnitPrice:    ticketType.Price,
			Quantity:     quantity,
		})
		remaining -= quantity
	}

	if len(cart.Lines) == 0 {
		return nil, models.NewValidationError("tickets", "Selecteer ten minste één ticket")
	}

	if err := m.Save(state, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// Increment adds one ticket of a type. It is rejected, leaving the cart
// unchanged, when the event is unavailable or the order maximum or shared
// stock would be exceeded.
func (m *CartManager) Increment(ctx context.Context, state session.State, eventID, ticketTypeID int) (*models.Cart, error) {
	event, err := m.catalog.GetEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if !event.IsAvailable() {
		return nil, models.ErrEventUnavailable
	}

	ticketType, ok := event.FindTicketType(ticketTypeID)
	if !ok {
		return nil, models.ErrTicketTypeNotFound
	}

	current, err := m.Load(state)
	if err != nil {
		return nil, err
	}
	cart := m.cartForEvent(current, event)

	if cart.TicketCount()+1 > m.limit(cart) {
		m.logger.Info("Ticket increment rejected",
			zap.Int("event_id", eventID),
			zap.Int("ticket_type_id", ticketTypeID),
			zap.Int("count", cart.TicketCount()))
		return current, models.ErrStockOrQuantityExceeded
	}

	if i := cart.Line(ticketTypeID); i >= 0 {
		cart.Lines[i].Quantity++
	} else {
		cart.Lines = append(cart.Lines, models.CartLine{
			TicketTypeID: ticketType.ID,
			Name:         ticketType.Name,
			UnitPrice:    ticketType.Price,
			Quantity:     1,
		})
	}

	if err := m.Save(state, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// SetQuantity sets the quantity of a ticket type. Negative values become 0,
// values beyond the caps are clamped down, and 0 removes the line. clamped
// reports whether the requested quantity was reduced.
func (m *CartManager) SetQuantity(ctx context.Context, state session.State, eventID, ticketTypeID, quantity int) (cart *models.Cart, clamped bool, err error) {
	event, err := m.catalog.GetEvent(ctx, eventID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get event: %w", err)
	}
	// Lines can still be lowered or removed once the event is sold out
	if quantity > 0 && !event.IsAvailable() {
		return nil, false, models.ErrEventUnavailable
	}

	ticketType, ok := event.FindTicketType(ticketTypeID)
	if !ok {
		return nil, false, models.ErrTicketTypeNotFound
	}

	current, err := m.Load(state)
	if err != nil {
		return nil, false, err
	}
	cart = m.cartForEvent(current, event)

	if quantity < 0 {
		quantity = 0
		clamped = true
	}

	index := cart.Line(ticketTypeID)
	others := cart.TicketCount()
	if index >= 0 {
		others -= cart.Lines[index].Quantity
	}

	allowed := m.limit(cart) - others
	if allowed < 0 {
		allowed = 0
	}
	if quantity > allowed {
		quantity = allowed
		clamped = true
	}

	switch {
	case quantity == 0 && index >= 0:
		cart.Lines = append(cart.Lines[:index], cart.Lines[index+1:]...)
	case quantity == 0:
		// nothing to remove
	case index >= 0:
		cart.Lines[index].Quantity = quantity
	default:
		cart.Lines = append(cart.Lines, models.CartLine{
			TicketTypeID: ticketType.ID,
			Name:         ticketType.Name,
			UnitPrice:    ticketType.Price,
			Quantity:     quantity,
		})
	}

	if err := m.Save(state, cart); err != nil {
		return nil, false, err
	}
	return cart, clamped, nil
}

// ApplyCoupon attaches a validated coupon to the cart, replacing any other
func (m *CartManager) ApplyCoupon(state session.State, coupon *models.Coupon) (*models.Cart, error) {
	if coupon == nil || !coupon.Valid {
		return nil, models.ErrInvalidCoupon
	}

	cart, err := m.Load(state)
	if err != nil {
		return nil, err
	}

	attached := *coupon
	cart.Coupon = &attached

	if err := m.Save(state, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// RemoveCoupon detaches the coupon from the cart
func (m *CartManager) RemoveCoupon(state session.State) (*models.Cart, error) {
	cart, err := m.Load(state)
	if err != nil {
		return nil, err
	}

	cart.Coupon = nil

	if err := m.Save(state, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// cartForEvent returns a copy of the cart bound to the event. A cart for a
// different event is started over.
func (m *CartManager) cartForEvent(current *models.Cart, event *models.Event) *models.Cart {
	cart := &models.Cart{
		EventID:     event.ID,
		EventTitle:  event.Title,
		EventDate:   event.Date,
		SharedStock: event.SharedStock(),
	}
	if current.EventID == event.ID {
		cart.Lines = append([]models.CartLine(nil), current.Lines...)
		cart.Coupon = current.Coupon
	}
	return cart
}

// limit returns the maximum aggregate ticket count for the cart
func (m *CartManager) limit(cart *models.Cart) int {
	limit := m.maxTickets
	if cart.SharedStock != nil && *cart.SharedStock < limit {
		limit = *cart.SharedStock
	}
	if limit < 0 {
		return 0
	}
	return limit
}
