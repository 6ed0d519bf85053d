package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// DiscountType is the normalized coupon discount kind
type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountFixed   DiscountType = "fixed"
)

// Coupon is the normalized result of a coupon validation. It is treated as
// immutable once attached to a cart.
type Coupon struct {
	Code         string          `json:"code"`
	DiscountType DiscountType    `json:"discount_type"`
	Amount       decimal.Decimal `json:"amount"`
	Valid        bool            `json:"valid"`
	Description  string          `json:"description,omitempty"`
	Message      string          `json:"message,omitempty"`
}

// CouponValidation is the raw answer of the external validation capability
type CouponValidation struct {
	Valid        bool            `json:"valid"`
	Code         string          `json:"code"`
	Amount       json.RawMessage `json:"amount"` // number or numeric string
	DiscountType string          `json:"discount_type"`
	Description  string          `json:"description"`
	Message      string          `json:"message"`
}
