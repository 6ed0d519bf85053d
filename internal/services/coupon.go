package services

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ticket-storefront/internal/models"
)

const (
	couponUnavailableMessage = "Unable to validate coupon at this time. Please try again."
	couponInvalidMessage     = "Invalid coupon code"
)

// CouponValidator validates coupon codes and normalizes the shop's answer
type CouponValidator struct {
	coupons CouponService
	logger  *zap.Logger
}

// NewCouponValidator creates a new coupon validator
func NewCouponValidator(coupons CouponService, logger *zap.Logger) *CouponValidator {
	return &CouponValidator{coupons: coupons, logger: logger}
}

// Validate checks a code. An empty code is a validation error; every other
// outcome, including an upstream failure, is reported as a coupon with
// Valid set accordingly.
func (v *CouponValidator) Validate(ctx context.Context, code string) (*models.Coupon, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, models.NewValidationError("code", "Coupon code is required")
	}

	v.logger.Info("Validating coupon", zap.String("code", code))

	result, err := v.coupons.ValidateCoupon(ctx, code)
	if err != nil {
		v.logger.Error("Coupon validation request failed", zap.String("code", code), zap.Error(err))
		return &models.Coupon{Code: code, Valid: false, Message: couponUnavailableMessage}, nil
	}

	if result == nil || !result.Valid {
		message := couponInvalidMessage
		if result != nil && result.Message != "" {
			message = result.Message
		}
		v.logger.Warn("Coupon rejected", zap.String("code", code), zap.String("message", message))
		return &models.Coupon{Code: code, Valid: false, Message: message}, nil
	}

	amount, err := parseCouponAmount(result.Amount)
	if err != nil {
		v.logger.Error("Coupon amount is not numeric",
			zap.String("code", code),
			zap.ByteString("amount", result.Amount),
			zap.Error(err))
		return &models.Coupon{Code: code, Valid: false, Message: couponUnavailableMessage}, nil
	}

	coupon := &models.Coupon{
		Code:         code,
		DiscountType: NormalizeDiscountType(result.DiscountType),
		Amount:       amount,
		Valid:        true,
		Description:  result.Description,
	}
	if result.Code != "" {
		coupon.Code = result.Code
	}

	v.logger.Info("Coupon validation successful",
		zap.String("code", coupon.Code),
		zap.String("discount_type", string(coupon.DiscountType)),
		zap.String("amount", amount.String()))

	return coupon, nil
}

// NormalizeDiscountType maps the shop's discount type names onto the two
// supported kinds. Other values pass through and grant no discount.
func NormalizeDiscountType(raw string) models.DiscountType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "percent", "percentage":
		return models.DiscountPercent
	case "fixed", "fixed_cart":
		return models.DiscountFixed
	default:
		return models.DiscountType(raw)
	}
}

func parseCouponAmount(raw []byte) (decimal.Decimal, error) {
	value := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if value == "" || value == "null" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(value)
}
