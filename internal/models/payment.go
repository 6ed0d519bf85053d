package models

// PaymentStatus is the state of a payment at the payment provider
type PaymentStatus struct {
	Status   string `json:"status"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	Method   string `json:"method"`
	PaidAt   string `json:"paid_at,omitempty"`
}

// IsSuccessful reports a paid payment
func (p *PaymentStatus) IsSuccessful() bool {
	return p.Status == "paid"
}

// IsPending reports a payment that is still processing
func (p *PaymentStatus) IsPending() bool {
	return p.Status == "pending" || p.Status == "open"
}

// IsFailed reports a payment that will not complete
func (p *PaymentStatus) IsFailed() bool {
	switch p.Status {
	case "canceled", "expired", "failed":
		return true
	}
	return false
}

// Message returns the customer-facing status text
func (p *PaymentStatus) Message() string {
	switch p.Status {
	case "paid":
		return "Betaling gelukt"
	case "pending", "open":
		return "Betaling wordt verwerkt"
	case "canceled":
		return "Betaling geannuleerd"
	case "expired":
		return "Betaling verlopen"
	case "failed":
		return "Betaling mislukt"
	default:
		return "Onbekende betalingsstatus"
	}
}
