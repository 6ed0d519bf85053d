package services

import (
	"go.uber.org/zap"

	"github.com/shopspring/decimal"

	"ticket-storefront/internal/models"
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// TaxBreakdown splits a tax-inclusive amount into its net and tax parts.
// Net + Tax == Gross holds exactly.
type TaxBreakdown struct {
	Gross decimal.Decimal
	Net   decimal.Decimal
	Tax   decimal.Decimal
}

// ExtractTax computes tax = gross - gross/(1+rate/100) for a tax-inclusive
// gross amount and a percentage rate. Results keep full precision.
func ExtractTax(gross, ratePercent decimal.Decimal) TaxBreakdown {
	if ratePercent.Sign() <= 0 {
		return TaxBreakdown{Gross: gross, Net: gross, Tax: decimal.Zero}
	}

	divisor := one.Add(ratePercent.Div(hundred))
	tax := gross.Sub(gross.Div(divisor))
	return TaxBreakdown{
		Gross: gross,
		Net:   gross.Sub(tax),
		Tax:   tax,
	}
}

// DiscountFor computes the discount a coupon grants on a tax-inclusive
// subtotal. The result never exceeds the subtotal and is never negative.
// known is false for an unrecognised discount type, which grants nothing.
func DiscountFor(coupon *models.Coupon, subtotal decimal.Decimal) (discount decimal.Decimal, known bool) {
	if coupon == nil {
		return decimal.Zero, true
	}

	switch coupon.DiscountType {
	case models.DiscountPercent:
		discount = subtotal.Mul(coupon.Amount).Div(hundred)
	case models.DiscountFixed:
		discount = coupon.Amount
	default:
		return decimal.Zero, false
	}

	if discount.Sign() <= 0 || subtotal.Sign() <= 0 {
		return decimal.Zero, true
	}
	return decimal.Min(discount, subtotal), true
}

// RoundMoney rounds an amount to cents for display or for the wire
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// FormatMoney renders an amount with two decimals and the currency symbol
func FormatMoney(amount decimal.Decimal, currency string) string {
	symbol := currency + " "
	switch currency {
	case "EUR":
		symbol = "€"
	case "USD":
		symbol = "$"
	case "GBP":
		symbol = "£"
	}
	return symbol + amount.StringFixed(2)
}

// Calculator derives cart totals from lines, coupon and the tax rate
type Calculator struct {
	taxRate decimal.Decimal
	logger  *zap.Logger
}

// NewCalculator creates a new calculator for a percentage tax rate
func NewCalculator(taxRate decimal.Decimal, logger *zap.Logger) *Calculator {
	return &Calculator{taxRate: taxRate, logger: logger}
}

// TaxRate returns the configured percentage rate
func (c *Calculator) TaxRate() decimal.Decimal {
	return c.taxRate
}

// Split decomposes a tax-inclusive amount at the configured rate
func (c *Calculator) Split(gross decimal.Decimal) TaxBreakdown {
	return ExtractTax(gross, c.taxRate)
}

// Discount computes the coupon discount on a subtotal, logging unknown types
func (c *Calculator) Discount(coupon *models.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	if coupon == nil || !coupon.Valid {
		return decimal.Zero
	}

	discount, known := DiscountFor(coupon, subtotal)
	if !known {
		c.logger.Warn("Unknown coupon discount type, no discount applied",
			zap.String("code", coupon.Code),
			zap.String("discount_type", string(coupon.DiscountType)))
	}
	return discount
}

// Totals computes the totals of a cart. The discount reduces the gross
// amount and tax is extracted from what remains. It has no side effects.
func (c *Calculator) Totals(cart *models.Cart) models.CartTotals {
	if cart == nil {
		return models.CartTotals{}
	}

	subtotal := cart.Subtotal()
	discount := c.Discount(cart.Coupon, subtotal)
	total := subtotal.Sub(discount)
	breakdown := c.Split(total)

	return models.CartTotals{
		Subtotal:      subtotal,
		Discount:      discount,
		Tax:           breakdown.Tax,
		SubtotalExTax: breakdown.Net,
		Total:         total,
	}
}
