package services

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"ticket-storefront/internal/jobs"
	"ticket-storefront/internal/models"
)

// MockCatalogService is a mock implementation of CatalogService
type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) GetEvent(ctx context.Context, id int) (*models.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

// MockCouponService is a mock implementation of CouponService
type MockCouponService struct {
	mock.Mock
}

func (m *MockCouponService) ValidateCoupon(ctx context.Context, code string) (*models.CouponValidation, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CouponValidation), args.Error(1)
}

// MockOrderService is a mock implementation of OrderService
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, payload *models.OrderPayload) (*models.Order, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, id int) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderService) UpdateOrderStatus(ctx context.Context, id int, status models.OrderStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOrderService) GetCheckoutURL(ctx context.Context, id int, returnURL string) (string, error) {
	args := m.Called(ctx, id, returnURL)
	return args.String(0), args.Error(1)
}

// MockPaymentService is a mock implementation of PaymentService
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) GetPaymentStatus(ctx context.Context, reference string) (*models.PaymentStatus, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentStatus), args.Error(1)
}

// MockTicketInfoService is a mock implementation of TicketInfoService
type MockTicketInfoService struct {
	mock.Mock
}

func (m *MockTicketInfoService) GetTicketInfo(ctx context.Context, orderID int) (*models.TicketInfo, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TicketInfo), args.Error(1)
}

// MockDocumentRenderer is a mock implementation of DocumentRenderer
type MockDocumentRenderer struct {
	mock.Mock
}

func (m *MockDocumentRenderer) RenderTickets(order *models.Order, info *models.TicketInfo) ([]byte, error) {
	args := m.Called(order, info)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockMailer is a mock implementation of Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, message *EmailMessage) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

// recordingQueue captures enqueued jobs
type recordingQueue struct {
	mutex sync.Mutex
	jobs  []jobs.Job
	err   error
}

func (q *recordingQueue) Enqueue(ctx context.Context, job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.mutex.Lock()
	q.jobs = append(q.jobs, job)
	q.mutex.Unlock()
	return nil
}

func (q *recordingQueue) Enqueued() []jobs.Job {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return append([]jobs.Job(nil), q.jobs...)
}

func testEvent(stock *int) *models.Event {
	return &models.Event{
		ID:            7,
		Title:         "Voorstelling",
		Date:          "2025-05-01",
		StockQuantity: stock,
		StockStatus:   models.StockInStock,
		TicketTypes: []models.TicketType{
			{ID: 71, Name: "Regulier", Price: dec("15.00"), StockStatus: models.StockInStock},
			{ID: 72, Name: "Kind", Price: dec("7.50"), StockStatus: models.StockInStock},
		},
	}
}

func intPtr(v int) *int {
	return &v
}
