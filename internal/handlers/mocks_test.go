package handlers

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"ticket-storefront/internal/jobs"
	"ticket-storefront/internal/middleware"
	"ticket-storefront/internal/models"
	"ticket-storefront/internal/services"
	"ticket-storefront/internal/session"
)

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) GetEvent(ctx context.Context, id int) (*models.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

type MockCoupons struct {
	mock.Mock
}

func (m *MockCoupons) ValidateCoupon(ctx context.Context, code string) (*models.CouponValidation, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CouponValidation), args.Error(1)
}

type MockOrders struct {
	mock.Mock
}

func (m *MockOrders) CreateOrder(ctx context.Context, payload *models.OrderPayload) (*models.Order, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrders) GetOrder(ctx context.Context, id int) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrders) UpdateOrderStatus(ctx context.Context, id int, status models.OrderStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockOrders) GetCheckoutURL(ctx context.Context, id int, returnURL string) (string, error) {
	args := m.Called(ctx, id, returnURL)
	return args.String(0), args.Error(1)
}

type MockPayments struct {
	mock.Mock
}

func (m *MockPayments) GetPaymentStatus(ctx context.Context, reference string) (*models.PaymentStatus, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentStatus), args.Error(1)
}

type MockTickets struct {
	mock.Mock
}

func (m *MockTickets) GetTicketInfo(ctx context.Context, orderID int) (*models.TicketInfo, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TicketInfo), args.Error(1)
}

type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) RenderTickets(order *models.Order, info *models.TicketInfo) ([]byte, error) {
	args := m.Called(order, info)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
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

func (q *recordingQueue) Len() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return len(q.jobs)
}

// storefront wires real services around mocked capabilities
type storefront struct {
	catalog  *MockCatalog
	coupons  *MockCoupons
	orders   *MockOrders
	payments *MockPayments
	tickets  *MockTickets
	renderer *MockRenderer
	queue    *recordingQueue
	states   *session.MemoryStore
	tokens   *services.DocumentTokenService

	public   *PublicHandler
	cart     *CartHandler
	checkout *CheckoutHandler
	document *DocumentHandler
	webhook  *WebhookHandler
}

const testWebhookSecret = "webhook-secret"

func newStorefront(t *testing.T) *storefront {
	t.Helper()
	logger := zap.NewNop()

	f := &storefront{
		catalog:  &MockCatalog{},
		coupons:  &MockCoupons{},
		orders:   &MockOrders{},
		payments: &MockPayments{},
		tickets:  &MockTickets{},
		renderer: &MockRenderer{},
		queue:    &recordingQueue{},
		states:   session.NewMemoryStore(time.Hour),
		tokens:   services.NewDocumentTokenService("document-secret", 24*time.Hour),
	}
	t.Cleanup(f.states.Close)

	calculator := services.NewCalculator(decimal.NewFromInt(9), logger)
	cart := services.NewCartManager(f.catalog, calculator, 10, logger)
	dispatcher := services.NewConfirmationDispatcher(f.queue, f.tokens, logger)
	checkout := services.NewCheckoutService(
		cart,
		calculator,
		services.NewCheckoutTokenGuard(logger),
		f.orders,
		dispatcher,
		services.NewFormValidator(),
		services.CheckoutOptions{BaseURL: "https://shop.example.com", Currency: "EUR"},
		logger,
	)

	f.public = NewPublicHandler(f.catalog, cart, calculator, logger)
	f.cart = NewCartHandler(cart, calculator, services.NewCouponValidator(f.coupons, logger), logger)
	f.checkout = NewCheckoutHandler(checkout, services.NewThankYouService(f.orders, f.payments, logger), logger)
	f.document = NewDocumentHandler(services.NewDocumentService(f.orders, f.tickets, f.renderer, f.tokens, logger), logger)
	f.webhook = NewWebhookHandler(
		services.NewWebhookService(f.orders, dispatcher, testWebhookSecret, logger),
		services.NewOrderProcessor(f.orders, dispatcher, logger),
		logger,
	)
	return f
}

// router mounts the handlers and attaches the session state of sid to every
// request
func (f *storefront) router(sid string) chi.Router {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.WithSessionState(r.Context(), f.states.Load(sid))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})

	r.Get("/show/{id}/tickets", f.public.ShowTickets)
	r.Post("/show/{id}/order", f.public.SubmitOrder)
	r.Post("/cart/increment", f.cart.Increment)
	r.Post("/cart/quantity", f.cart.SetQuantity)
	r.Post("/api/validate-coupon", f.cart.ValidateCoupon)
	r.Post("/api/remove-coupon", f.cart.RemoveCoupon)
	r.Get("/checkout", f.checkout.CheckoutPage)
	r.Post("/checkout", f.checkout.ProcessCheckout)
	r.Get("/thank-you", f.checkout.ThankYou)
	r.Get("/pdf/download/{token}", f.document.Download)
	r.Post("/webhook/woocommerce", f.webhook.WooCommerce)
	r.Post("/api/orders/{orderId}/process", f.webhook.ProcessOrder)
	return r
}

func testEvent() *models.Event {
	stock := 20
	return &models.Event{
		ID:            7,
		Title:         "Voorstelling",
		Date:          "2025-05-01",
		StockQuantity: &stock,
		StockStatus:   models.StockInStock,
		TicketTypes: []models.TicketType{
			{ID: 71, Name: "Regulier", Price: decimal.RequireFromString("15.00"), StockStatus: models.StockInStock},
			{ID: 72, Name: "Kind", Price: decimal.RequireFromString("7.50"), StockStatus: models.StockInStock},
		},
	}
}
