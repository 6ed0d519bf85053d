package models

// TicketInfo is the ticket data of an order as provided by the ticket API
type TicketInfo struct {
	EventName string                 `json:"event_name"`
	EventDate string                 `json:"event_date"`
	Tickets   map[string]TicketEntry `json:"tickets"`
}

// TicketEntry is a single admission with its scannable code
type TicketEntry struct {
	TicketCode string `json:"ticket_code"`
	TicketName string `json:"ticket_name"`
}

// Validate checks the response shape. event_date is optional.
func (t *TicketInfo) Validate() error {
	if t.EventName == "" {
		return ErrInvalidTicketResponse
	}
	if t.Tickets == nil {
		return ErrInvalidTicketResponse
	}
	for _, ticket := range t.Tickets {
		if ticket.TicketCode == "" || ticket.TicketName == "" {
			return ErrInvalidTicketResponse
		}
	}
	return nil
}
