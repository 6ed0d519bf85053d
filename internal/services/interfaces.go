package services

import (
	"context"

	"ticket-storefront/internal/models"
)

// CatalogService provides event data including ticket types and shared stock
type CatalogService interface {
	GetEvent(ctx context.Context, id int) (*models.Event, error)
}

// CouponService validates coupon codes against the shop
type CouponService interface {
	ValidateCoupon(ctx context.Context, code string) (*models.CouponValidation, error)
}

// OrderService manages orders in the remote shop. GetOrder returns
// models.ErrOrderNotFound when the order does not exist.
type OrderService interface {
	CreateOrder(ctx context.Context, payload *models.OrderPayload) (*models.Order, error)
	GetOrder(ctx context.Context, id int) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id int, status models.OrderStatus) error
	GetCheckoutURL(ctx context.Context, id int, returnURL string) (string, error)
}

// PaymentService reports payment status at the payment provider
type PaymentService interface {
	GetPaymentStatus(ctx context.Context, reference string) (*models.PaymentStatus, error)
}

// TicketInfoService fetches the issued tickets of an order
type TicketInfoService interface {
	GetTicketInfo(ctx context.Context, orderID int) (*models.TicketInfo, error)
}

// DocumentRenderer turns an order and its tickets into a PDF
type DocumentRenderer interface {
	RenderTickets(order *models.Order, info *models.TicketInfo) ([]byte, error)
}

// Mailer delivers a single email message
type Mailer interface {
	Send(ctx context.Context, message *EmailMessage) error
}

// EmailMessage is a multipart email with optional attachments
type EmailMessage struct {
	To          string
	Subject     string
	HTML        string
	Text        string
	Category    string
	Attachments []EmailAttachment
}

// EmailAttachment is a file attached to an email
type EmailAttachment struct {
	Filename    string
	ContentType string
	Content     []byte
}
