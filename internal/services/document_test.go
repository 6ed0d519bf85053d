package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ticket-storefront/internal/models"
)

type documentFixture struct {
	service  *DocumentService
	orders   *MockOrderService
	tickets  *MockTicketInfoService
	renderer *MockDocumentRenderer
	tokens   *DocumentTokenService
}

func newDocumentFixture() *documentFixture {
	f := &documentFixture{
		orders:   new(MockOrderService),
		tickets:  new(MockTicketInfoService),
		renderer: new(MockDocumentRenderer),
		tokens:   NewDocumentTokenService("document-secret", time.Hour),
	}
	f.service = NewDocumentService(f.orders, f.tickets, f.renderer, f.tokens, zap.NewNop())
	return f
}

func testTicketInfo() *models.TicketInfo {
	return &models.TicketInfo{
		EventName: "Voorstelling",
		EventDate: "2025-05-01",
		Tickets: map[string]models.TicketEntry{
			"1": {TicketCode: "CODE-A", TicketName: "Regulier"},
		},
	}
}

func TestPDFFilename(t *testing.T) {
	assert.Equal(t, "order-confirmation-1001.pdf", PDFFilename(&models.Order{ID: 5, Number: "1001"}))
	assert.Equal(t, "order-confirmation-5.pdf", PDFFilename(&models.Order{ID: 5}))
}

func TestDocumentService_Generate(t *testing.T) {
	ctx := context.Background()
	order := &models.Order{ID: 5, Number: "1001"}

	t.Run("with ticket info", func(t *testing.T) {
		f := newDocumentFixture()
		info := testTicketInfo()
		f.tickets.On("GetTicketInfo", ctx, 5).Return(info, nil)
		f.renderer.On("RenderTickets", order, info).Return([]byte("%PDF"), nil)

		document, err := f.service.Generate(ctx, order)
		require.NoError(t, err)
		assert.Equal(t, "order-confirmation-1001.pdf", document.Filename)
		assert.Equal(t, []byte("%PDF"), document.Content)
	})

	t.Run("ticket api failure renders without tickets", func(t *testing.T) {
		f := newDocumentFixture()
		f.tickets.On("GetTicketInfo", ctx, 5).Return(nil, errors.New("timeout"))
		f.renderer.On("RenderTickets", order, (*models.TicketInfo)(nil)).Return([]byte("%PDF"), nil)

		_, err := f.service.Generate(ctx, order)
		require.NoError(t, err)
		f.renderer.AssertExpectations(t)
	})

	t.Run("invalid ticket info renders without tickets", func(t *testing.T) {
		f := newDocumentFixture()
		f.tickets.On("GetTicketInfo", ctx, 5).Return(&models.TicketInfo{EventName: "Voorstelling"}, nil)
		f.renderer.On("RenderTickets", order, (*models.TicketInfo)(nil)).Return([]byte("%PDF"), nil)

		_, err := f.service.Generate(ctx, order)
		require.NoError(t, err)
		f.renderer.AssertExpectations(t)
	})

	t.Run("renderer failure", func(t *testing.T) {
		f := newDocumentFixture()
		f.tickets.On("GetTicketInfo", ctx, 5).Return(testTicketInfo(), nil)
		f.renderer.On("RenderTickets", order, mock.Anything).Return(nil, errors.New("boom"))

		_, err := f.service.Generate(ctx, order)
		assert.ErrorIs(t, err, models.ErrRenderingFailure)
	})
}

func TestDocumentService_Download(t *testing.T) {
	ctx := context.Background()

	t.Run("valid token", func(t *testing.T) {
		f := newDocumentFixture()
		order := &models.Order{ID: 42, Number: "1042"}
		token, err := f.tokens.Mint(42)
		require.NoError(t, err)

		f.orders.On("GetOrder", ctx, 42).Return(order, nil)
		f.tickets.On("GetTicketInfo", ctx, 42).Return(testTicketInfo(), nil)
		f.renderer.On("RenderTickets", order, mock.Anything).Return([]byte("%PDF-1.4"), nil)

		document, err := f.service.Download(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, "order-confirmation-1042.pdf", document.Filename)
	})

	t.Run("tampered token", func(t *testing.T) {
		f := newDocumentFixture()
		token, err := f.tokens.Mint(42)
		require.NoError(t, err)

		_, err = f.service.Download(ctx, token+"x")
		assert.ErrorIs(t, err, models.ErrInvalidOrExpiredToken)
		f.orders.AssertNotCalled(t, "GetOrder", mock.Anything, mock.Anything)
	})

	t.Run("expired token", func(t *testing.T) {
		f := newDocumentFixture()
		issued := time.Now().Add(-2 * time.Hour)
		token, err := NewDocumentTokenService("document-secret", time.Hour).
			WithClock(func() time.Time { return issued }).
			Mint(42)
		require.NoError(t, err)

		_, err = f.service.Download(ctx, token)
		assert.ErrorIs(t, err, models.ErrInvalidOrExpiredToken)
	})

	t.Run("unknown order", func(t *testing.T) {
		f := newDocumentFixture()
		token, err := f.tokens.Mint(43)
		require.NoError(t, err)
		f.orders.On("GetOrder", ctx, 43).Return(nil, models.ErrOrderNotFound)

		_, err = f.service.Download(ctx, token)
		assert.ErrorIs(t, err, models.ErrInvalidOrExpiredToken)
	})

	t.Run("render failure", func(t *testing.T) {
		f := newDocumentFixture()
		order := &models.Order{ID: 44}
		token, err := f.tokens.Mint(44)
		require.NoError(t, err)
		f.orders.On("GetOrder", ctx, 44).Return(order, nil)
		f.tickets.On("GetTicketInfo", ctx, 44).Return(nil, errors.New("down"))
		f.renderer.On("RenderTickets", order, mock.Anything).Return(nil, errors.New("boom"))

		_, err = f.service.Download(ctx, token)
		assert.ErrorIs(t, err, models.ErrInvalidOrExpiredToken)
	})
}
