package models

import "github.com/shopspring/decimal"

// Cart represents the ticket selection held in a checkout session
type Cart struct {
	EventID     int        `json:"event_id"`
	EventTitle  string     `json:"event_title"`
	EventDate   string     `json:"event_date"`
	Lines       []CartLine `json:"lines"`
	Coupon      *Coupon    `json:"coupon,omitempty"`
	SharedStock *int       `json:"shared_stock,omitempty"`
}

// CartLine represents a ticket type and quantity in the cart
type CartLine struct {
	TicketTypeID int             `json:"ticket_type_id"`
	Name         string          `json:"name"`
	UnitPrice    decimal.Decimal `json:"unit_price"` // tax-inclusive
	Quantity     int             `json:"quantity"`
}

// CartTotals is derived from the cart lines, the coupon and the tax rate.
// Total - Tax == SubtotalExTax always holds.
type CartTotals struct {
	Subtotal      decimal.Decimal `json:"subtotal"` // gross, before discount
	Discount      decimal.Decimal `json:"discount"`
	Tax           decimal.Decimal `json:"tax"`
	SubtotalExTax decimal.Decimal `json:"subtotal_ex_tax"`
	Total         decimal.Decimal `json:"total"` // gross, after discount
}

// LineTotal returns UnitPrice × Quantity
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// TicketCount returns the aggregate quantity over all lines
func (c *Cart) TicketCount() int {
	count := 0
	for _, line := range c.Lines {
		count += line.Quantity
	}
	return count
}

// IsEmpty reports whether no tickets are selected
func (c *Cart) IsEmpty() bool {
	return c.TicketCount() == 0
}

// Line returns the index of the line for a ticket type, or -1
func (c *Cart) Line(ticketTypeID int) int {
	for i := range c.Lines {
		if c.Lines[i].TicketTypeID == ticketTypeID {
			return i
		}
	}
	return -1
}

// Subtotal returns the sum of all line totals (tax-inclusive)
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Lines {
		total = total.Add(line.LineTotal())
	}
	return total
}

// Rounded returns the totals rounded to cents for display. Tax and total are
// rounded and the net amount is derived from them so the invariant survives
// rounding.
func (t CartTotals) Rounded() CartTotals {
	total := t.Total.Round(2)
	tax := t.Tax.Round(2)
	return CartTotals{
		Subtotal:      t.Subtotal.Round(2),
		Discount:      t.Discount.Round(2),
		Tax:           tax,
		SubtotalExTax: total.Sub(tax),
		Total:         total,
	}
}
