package models

import (
	"errors"
	"sort"
	"strings"
)

// Errors of the checkout pipeline. Handlers branch on these with errors.Is.
var (
	ErrDuplicateOrExpiredSubmission = errors.New("checkout already processed or session expired")
	ErrCheckoutTokenExists          = errors.New("checkout token already issued")
	ErrEmptyCart                    = errors.New("cart is empty")
	ErrStockOrQuantityExceeded      = errors.New("ticket stock or order maximum exceeded")
	ErrEventUnavailable             = errors.New("event is sold out")
	ErrEventNotFound                = errors.New("event not found")
	ErrTicketTypeNotFound           = errors.New("ticket type not found")
	ErrInvalidCoupon                = errors.New("invalid coupon")
	ErrOrderCreationFailed          = errors.New("order creation failed")
	ErrPaymentLinkUnavailable       = errors.New("payment link unavailable")
	ErrPaymentStatusUnavailable     = errors.New("payment status unavailable")
	ErrOrderNotFound                = errors.New("order not found")
	ErrInvalidOrExpiredToken        = errors.New("document not found or token invalid")
	ErrRenderingFailure             = errors.New("ticket rendering failed")
	ErrInvalidTicketResponse        = errors.New("ticket api response is missing required fields")
	ErrInvalidWebhookSignature      = errors.New("invalid webhook signature")
	ErrInvalidWebhookPayload        = errors.New("invalid webhook payload")
	ErrInvalidOrderData             = errors.New("order data is missing required fields")
)

// ValidationError carries field-level messages for user-correctable input
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError creates a validation error for a single field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string][]string{field: {message}}}
}

// Add appends a message for a field
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// HasErrors reports whether any field failed
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// UpstreamError wraps a failure reported by an external capability. Message is
// the upstream text, kept for logs.
type UpstreamError struct {
	Kind    error
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Message
}

func (e *UpstreamError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// AccessError denies access to order-bound pages
type AccessError struct {
	Code    string // missing_key, invalid_key, order_not_found
	Message string
}

func (e *AccessError) Error() string {
	return e.Code + ": " + e.Message
}
