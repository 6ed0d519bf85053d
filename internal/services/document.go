package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"ticket-storefront/internal/logging"
	"ticket-storefront/internal/models"
)

// Document is a rendered ticket PDF ready to be served or attached
type Document struct {
	Filename string
	Content  []byte
}

// DocumentService produces ticket PDFs. Documents are rendered from current
// order and ticket data on every request and never stored.
type DocumentService struct {
	orders   OrderService
	tickets  TicketInfoService
	renderer DocumentRenderer
	tokens   *DocumentTokenService
	logger   *zap.Logger
}

// NewDocumentService creates a new document service
func NewDocumentService(orders OrderService, tickets TicketInfoService, renderer DocumentRenderer, tokens *DocumentTokenService, logger *zap.Logger) *DocumentService {
	return &DocumentService{
		orders:   orders,
		tickets:  tickets,
		renderer: renderer,
		tokens:   tokens,
		logger:   logger,
	}
}

// PDFFilename returns the attachment name of an order's ticket PDF
func PDFFilename(order *models.Order) string {
	return "order-confirmation-" + order.DisplayNumber() + ".pdf"
}

// Generate renders the ticket PDF of an order. When the ticket API is
// unavailable the document is still rendered, without tickets.
func (s *DocumentService) Generate(ctx context.Context, order *models.Order) (*Document, error) {
	info, err := s.tickets.GetTicketInfo(ctx, order.ID)
	if err == nil {
		if info == nil {
			err = models.ErrInvalidTicketResponse
		} else {
			err = info.Validate()
		}
	}
	if err != nil {
		s.logger.Error("Failed to fetch ticket information from API",
			zap.Int("order_id", order.ID),
			zap.Error(err))
		info = nil
	} else {
		s.logger.Info("Using ticket information from API",
			zap.Int("order_id", order.ID),
			zap.String("event_name", info.EventName),
			zap.Int("ticket_count", len(info.Tickets)))
	}

	content, err := s.renderer.RenderTickets(order, info)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrRenderingFailure, err)
	}

	return &Document{Filename: PDFFilename(order), Content: content}, nil
}

// Download verifies a document token and renders the PDF of its order.
// Every failure is reported as models.ErrInvalidOrExpiredToken so callers
// cannot tell an expired token from an unknown one.
func (s *DocumentService) Download(ctx context.Context, token string) (*Document, error) {
	orderID, err := s.tokens.Verify(token)
	if err != nil {
		s.logger.Warn("Invalid PDF download token accessed",
			zap.String("token", logging.TokenPrefix(token)),
			zap.Error(err))
		return nil, models.ErrInvalidOrExpiredToken
	}

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		if !errors.Is(err, models.ErrOrderNotFound) {
			s.logger.Error("Failed to load order for download",
				zap.Int("order_id", orderID),
				zap.Error(err))
		}
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidOrExpiredToken, err)
	}

	document, err := s.Generate(ctx, order)
	if err != nil {
		s.logger.Error("PDF download failed",
			zap.Int("order_id", orderID),
			zap.String("token", logging.TokenPrefix(token)),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidOrExpiredToken, err)
	}

	s.logger.Info("PDF downloaded successfully",
		zap.Int("order_id", orderID),
		zap.String("token", logging.TokenPrefix(token)))
	return document, nil
}
