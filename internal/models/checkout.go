package models

import "github.com/shopspring/decimal"

// CheckoutForm is the customer data submitted with the checkout page
type CheckoutForm struct {
	FirstName    string `json:"firstName" form:"firstName" validate:"required,max=255"`
	LastName     string `json:"lastName" form:"lastName" validate:"required,max=255"`
	CompanyName  string `json:"companyName" form:"companyName" validate:"max=255"`
	City         string `json:"city" form:"city" validate:"required,max=255"`
	PhoneNumber  string `json:"phoneNumber" form:"phoneNumber" validate:"max=50"`
	Email        string `json:"email" form:"email" validate:"required,email,max=255"`
	EmailConfirm string `json:"emailConfirm" form:"emailConfirm" validate:"required,email,eqfield=Email"`
	Terms        bool   `json:"terms" form:"terms" validate:"eq=true"`

	// ClaimedDiscount is the discount the client displayed; it is only
	// cross-checked against the server computation.
	ClaimedDiscount *decimal.Decimal `json:"discountAmount,omitempty" form:"discount_amount" validate:"-"`
}

// CustomerSnapshot is kept in the session for the thank-you page
type CustomerSnapshot struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	CompanyName string `json:"companyName"`
	City        string `json:"city"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email"`
}

// Snapshot copies the customer fields of the form
func (f *CheckoutForm) Snapshot() CustomerSnapshot {
	return CustomerSnapshot{
		FirstName:   f.FirstName,
		LastName:    f.LastName,
		CompanyName: f.CompanyName,
		City:        f.City,
		PhoneNumber: f.PhoneNumber,
		Email:       f.Email,
	}
}

// OrderResult describes the outcome of a successful submission
type OrderResult struct {
	OrderID     int             `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	Total       decimal.Decimal `json:"total"`
	PaymentURL  string          `json:"payment_url,omitempty"` // set when payment is required
	Completed   bool            `json:"completed"`             // zero-value order, no payment
}

// CheckoutView is the data needed to render the checkout page
type CheckoutView struct {
	Cart          *Cart      `json:"cart"`
	Totals        CartTotals `json:"totals"`
	TaxRate       string     `json:"tax_rate"`
	CheckoutToken string     `json:"checkout_token"`
}
