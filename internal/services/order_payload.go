package services

import (
	"github.com/shopspring/decimal"

	"ticket-storefront/internal/models"
)

const (
	paymentMethodIDEAL      = "mollie_wc_gateway_ideal"
	paymentMethodIDEALTitle = "iDEAL"
	defaultEventName        = "Event"
)

// money formats an amount for the order API
func money(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// BuildOrderPayload converts a cart and its server-side totals into the net
// priced order the shop expects. Every line and the coupon are split into
// net and tax parts at the calculator's rate.
func BuildOrderPayload(cart *models.Cart, totals models.CartTotals, form *models.CheckoutForm, calc *Calculator, currency string) *models.OrderPayload {
	eventName := cart.EventTitle
	if eventName == "" {
		eventName = defaultEventName
	}

	payload := &models.OrderPayload{
		PaymentMethod:      paymentMethodIDEAL,
		PaymentMethodTitle: paymentMethodIDEALTitle,
		SetPaid:            false,
		Status:             models.OrderPending,
		Currency:           currency,
		Billing: models.Address{
			FirstName: form.FirstName,
			LastName:  form.LastName,
			Company:   form.CompanyName,
			City:      form.City,
			Phone:     form.PhoneNumber,
			Email:     form.Email,
		},
		Shipping: models.Address{
			FirstName: form.FirstName,
			LastName:  form.LastName,
			Company:   form.CompanyName,
			City:      form.City,
		},
		LineItems:     make([]models.LineItem, 0, len(cart.Lines)),
		CouponLines:   []models.CouponLine{},
		ShippingLines: []struct{}{},
		FeeLines:      []struct{}{},
		TaxLines: []models.TaxLine{{
			RateCode:         "NL-VAT-" + calc.TaxRate().String(),
			RateID:           "1",
			Label:            "BTW",
			Compound:         false,
			TaxTotal:         money(totals.Tax),
			ShippingTaxTotal: "0.00",
		}},
		MetaData: []models.MetaData{
			{Key: "_event_name", Value: eventName},
			{Key: "_event_date", Value: cart.EventDate},
		},
	}

	for _, line := range cart.Lines {
		if line.Quantity <= 0 {
			continue
		}
		split := calc.Split(line.LineTotal())
		tax := money(split.Tax)
		payload.LineItems = append(payload.LineItems, models.LineItem{
			ProductID: line.TicketTypeID,
			Quantity:  line.Quantity,
			Name:      line.Name,
			Price:     money(split.Net.Div(decimal.NewFromInt(int64(line.Quantity)))),
			Total:     money(split.Net),
			TotalTax:  tax,
			Taxes:     []models.LineTax{{ID: 1, Total: tax, Subtotal: tax}},
		})
	}

	if cart.Coupon != nil && totals.Discount.Sign() > 0 {
		split := calc.Split(totals.Discount)
		payload.CouponLines = append(payload.CouponLines, models.CouponLine{
			Code:        cart.Coupon.Code,
			Discount:    money(split.Net),
			DiscountTax: money(split.Tax),
		})
	}

	return payload
}
