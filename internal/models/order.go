package models

import (
	"fmt"
	"strings"
)

// OrderStatus is a WooCommerce order status
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderCompleted  OrderStatus = "completed"
	OrderDraft      OrderStatus = "draft"
	OrderAutoDraft  OrderStatus = "auto-draft"
)

// Order is the external order entity. Only the fields the checkout pipeline
// reads are modelled.
type Order struct {
	ID            int          `json:"id"`
	Number        string       `json:"number"`
	OrderKey      string       `json:"order_key"`
	Status        OrderStatus  `json:"status"`
	Currency      string       `json:"currency"`
	Total         string       `json:"total"`
	TotalTax      string       `json:"total_tax"`
	DateCreated   string       `json:"date_created"`
	TransactionID string       `json:"transaction_id"`
	Billing       *Address     `json:"billing,omitempty"`
	Shipping      *Address     `json:"shipping,omitempty"`
	LineItems     []LineItem   `json:"line_items"`
	CouponLines   []CouponLine `json:"coupon_lines"`
	TaxLines      []TaxLine    `json:"tax_lines"`
	MetaData      []MetaData   `json:"meta_data"`
}

// Address holds billing or shipping contact fields
type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	City      string `json:"city"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
}

// LineItem is a net-priced order line with its tax component
type LineItem struct {
	ProductID int       `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Name      string    `json:"name"`
	Price     string    `json:"price"`
	Total     string    `json:"total"`
	TotalTax  string    `json:"total_tax"`
	Taxes     []LineTax `json:"taxes,omitempty"`
}

// LineTax is the per-rate tax component of a line
type LineTax struct {
	ID       int    `json:"id"`
	Total    string `json:"total"`
	Subtotal string `json:"subtotal"`
}

// CouponLine records a coupon with its net discount and discount tax
type CouponLine struct {
	Code        string `json:"code"`
	Discount    string `json:"discount"`
	DiscountTax string `json:"discount_tax"`
}

// TaxLine is an order-level tax summary
type TaxLine struct {
	RateCode         string `json:"rate_code"`
	RateID           string `json:"rate_id"`
	Label            string `json:"label"`
	Compound         bool   `json:"compound"`
	TaxTotal         string `json:"tax_total"`
	ShippingTaxTotal string `json:"shipping_tax_total"`
}

// MetaData is a WooCommerce key/value meta entry. Values are not always strings.
type MetaData struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// OrderPayload is the body sent to the order-management capability
type OrderPayload struct {
	PaymentMethod      string       `json:"payment_method"`
	PaymentMethodTitle string       `json:"payment_method_title"`
	SetPaid            bool         `json:"set_paid"`
	Status             OrderStatus  `json:"status"`
	Currency           string       `json:"currency"`
	Billing            Address      `json:"billing"`
	Shipping           Address      `json:"shipping"`
	LineItems          []LineItem   `json:"line_items"`
	CouponLines        []CouponLine `json:"coupon_lines"`
	ShippingLines      []struct{}   `json:"shipping_lines"`
	FeeLines           []struct{}   `json:"fee_lines"`
	TaxLines           []TaxLine    `json:"tax_lines"`
	MetaData           []MetaData   `json:"meta_data"`
}

var paymentReferenceKeys = []string{"_mollie_payment_id", "mollie_payment_id", "_payment_id"}

var orderKeyMetaKeys = []string{"_order_key", "order_key", "_woocommerce_order_key"}

// PaymentReference returns the payment provider reference stored on the order,
// falling back to the transaction id
func (o *Order) PaymentReference() string {
	if value := o.metaValue(paymentReferenceKeys); value != "" {
		return value
	}
	return o.TransactionID
}

// Key returns the order key used to authorize thank-you page access
func (o *Order) Key() string {
	if o.OrderKey != "" {
		return o.OrderKey
	}
	return o.metaValue(orderKeyMetaKeys)
}

// DisplayNumber returns the order number, or the id when no number is set
func (o *Order) DisplayNumber() string {
	if o.Number != "" {
		return o.Number
	}
	return fmt.Sprintf("%d", o.ID)
}

// CustomerName prefers billing over shipping names
func (o *Order) CustomerName() string {
	for _, addr := range []*Address{o.Billing, o.Shipping} {
		if addr == nil {
			continue
		}
		if name := strings.TrimSpace(addr.FirstName + " " + addr.LastName); name != "" {
			return name
		}
	}
	return ""
}

// CustomerEmail returns the billing email, if any
func (o *Order) CustomerEmail() string {
	if o.Billing == nil {
		return ""
	}
	return strings.TrimSpace(o.Billing.Email)
}

// IsDraft reports whether the order is still a draft
func (o *Order) IsDraft() bool {
	return o.Status == OrderDraft || o.Status == OrderAutoDraft
}

// MetaString returns the string value of a meta entry
func (o *Order) MetaString(key string) string {
	return o.metaValue([]string{key})
}

func (o *Order) metaValue(keys []string) string {
	return FindMeta(o.MetaData, keys...)
}

// FindMeta returns the first non-empty string value among keys, in key order
func FindMeta(meta []MetaData, keys ...string) string {
	for _, key := range keys {
		for _, entry := range meta {
			if entry.Key != key {
				continue
			}
			if s, ok := entry.Value.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
