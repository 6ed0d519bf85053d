package models

import "github.com/shopspring/decimal"

// StockStatus mirrors the WooCommerce product stock status
type StockStatus string

const (
	StockInStock    StockStatus = "instock"
	StockOutOfStock StockStatus = "outofstock"
	StockBackorder  StockStatus = "onbackorder"
)

// Event represents a show as exposed by the catalog. Stock is shared across all
// ticket types of the event.
type Event struct {
	ID            int          `json:"id"`
	EventID       int          `json:"event_id"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	Date          string       `json:"date"`
	Time          string       `json:"time"`
	Location      string       `json:"location"`
	StockQuantity *int         `json:"stock_quantity"`
	StockStatus   StockStatus  `json:"stock_status"`
	TicketTypes   []TicketType `json:"ticket_types"`
}

// TicketType is a priced variation of an event. Price is tax-inclusive.
type TicketType struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	StockStatus StockStatus     `json:"stock_status"`
}

// IsAvailable reports whether tickets can still be ordered for the event
func (e *Event) IsAvailable() bool {
	if e.StockStatus != StockInStock {
		return false
	}
	return e.StockQuantity == nil || *e.StockQuantity > 0
}

// SharedStock returns the shared stock pool, or nil when stock is unmanaged
func (e *Event) SharedStock() *int {
	if e.StockQuantity == nil {
		return nil
	}
	stock := *e.StockQuantity
	return &stock
}

// FindTicketType returns the ticket type with the given id
func (e *Event) FindTicketType(id int) (*TicketType, bool) {
	for i := range e.TicketTypes {
		if e.TicketTypes[i].ID == id {
			return &e.TicketTypes[i], true
		}
	}
	return nil, false
}
