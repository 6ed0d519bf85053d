package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ticket-storefront/internal/jobs"
	"ticket-storefront/internal/models"
)

var confirmationNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

type confirmationFixture struct {
	handler  *ConfirmationHandler
	orders   *MockOrderService
	tickets  *MockTicketInfoService
	renderer *MockDocumentRenderer
	mailer   *MockMailer
	ledger   *jobs.MemoryLedger
	tokens   *DocumentTokenService
}

func newConfirmationFixture() *confirmationFixture {
	f := &confirmationFixture{
		orders:   new(MockOrderService),
		tickets:  new(MockTicketInfoService),
		renderer: new(MockDocumentRenderer),
		mailer:   new(MockMailer),
		ledger:   jobs.NewMemoryLedger(),
		tokens: NewDocumentTokenService("document-secret", 24*time.Hour).
			WithClock(func() time.Time { return confirmationNow }),
	}

	documents := NewDocumentService(f.orders, f.tickets, f.renderer, f.tokens, zap.NewNop())
	f.handler = NewConfirmationHandler(f.orders, documents, f.tokens, f.mailer, f.ledger, ConfirmationOptions{
		BaseURL:     "https://shop.test",
		Currency:    "EUR",
		DedupWindow: 24 * time.Hour,
	}, zap.NewNop()).WithClock(func() time.Time { return confirmationNow })
	return f
}

func confirmationOrder() *models.Order {
	return &models.Order{
		ID:       42,
		Number:   "1042",
		Status:   models.OrderCompleted,
		Currency: "EUR",
		Total:    "27.00",
		Billing:  &models.Address{FirstName: "Jan", LastName: "Jansen", Email: "jan@example.com"},
		MetaData: []models.MetaData{
			{Key: "_event_name", Value: "Voorstelling"},
			{Key: "_event_date", Value: "2025-05-01"},
		},
	}
}

func (f *confirmationFixture) job(t *testing.T, orderID int) (jobs.Job, string) {
	t.Helper()
	token, err := f.tokens.Mint(orderID)
	require.NoError(t, err)
	job, err := jobs.NewJob(JobOrderConfirmation, ConfirmationDedupKey(orderID), ConfirmationPayload{
		OrderID:       orderID,
		DownloadToken: token,
	})
	require.NoError(t, err)
	return job, token
}

func (f *confirmationFixture) expectDocument(order *models.Order) {
	f.tickets.On("GetTicketInfo", mock.Anything, order.ID).Return(testTicketInfo(), nil)
	f.renderer.On("RenderTickets", order, mock.Anything).Return([]byte("%PDF-1.4"), nil)
}

func TestConfirmationDedupKey(t *testing.T) {
	assert.Equal(t, "order-confirmation:42", ConfirmationDedupKey(42))
}

func TestConfirmationHandler_SendsEmail(t *testing.T) {
	f := newConfirmationFixture()
	ctx := context.Background()
	order := confirmationOrder()
	job, token := f.job(t, 42)

	f.orders.On("GetOrder", ctx, 42).Return(order, nil)
	f.expectDocument(order)

	var sent *EmailMessage
	f.mailer.On("Send", ctx, mock.Anything).Run(func(args mock.Arguments) {
		sent = args.Get(1).(*EmailMessage)
	}).Return(nil).Once()

	require.NoError(t, f.handler.Handle(ctx, job))

	require.NotNil(t, sent)
	assert.Equal(t, "jan@example.com", sent.To)
	assert.Equal(t, "Je tickets voor bestelling #1042", sent.Subject)
	assert.Equal(t, JobOrderConfirmation, sent.Category)
	assert.Contains(t, sent.HTML, "https://shop.test/pdf/download/"+token)
	assert.Contains(t, sent.HTML, "Jan Jansen")
	assert.Contains(t, sent.Text, "Voorstelling: Voorstelling (2025-05-01)")
	assert.Contains(t, sent.Text, "Totaal: €27.00")

	require.Len(t, sent.Attachments, 1)
	assert.Equal(t, "order-confirmation-1042.pdf", sent.Attachments[0].Filename)
	assert.Equal(t, "application/pdf", sent.Attachments[0].ContentType)
	assert.Equal(t, []byte("%PDF-1.4"), sent.Attachments[0].Content)

	delivered, err := f.ledger.Delivered(ctx, ConfirmationDedupKey(42), confirmationNow.Add(-time.Minute))
	require.NoError(t, err)
	assert.True(t, delivered)
}

func TestConfirmationHandler_SkipsRecentDelivery(t *testing.T) {
	f := newConfirmationFixture()
	ctx := context.Background()
	job, _ := f.job(t, 42)

	require.NoError(t, f.ledger.Record(ctx, ConfirmationDedupKey(42), confirmationNow.Add(-time.Hour)))

	require.NoError(t, f.handler.Handle(ctx, job))

	f.orders.AssertNotCalled(t, "GetOrder", mock.Anything, mock.Anything)
	f.mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestConfirmationHandler_ResendsAfterWindow(t *testing.T) {
	f := newConfirmationFixture()
	ctx := context.Background()
	order := confirmationOrder()
	job, _ := f.job(t, 42)

	require.NoError(t, f.ledger.Record(ctx, ConfirmationDedupKey(42), confirmationNow.Add(-48*time.Hour)))
	f.orders.On("GetOrder", ctx, 42).Return(order, nil)
	f.expectDocument(order)
	f.mailer.On("Send", ctx, mock.Anything).Return(nil).Once()

	require.NoError(t, f.handler.Handle(ctx, job))
	f.mailer.AssertExpectations(t)
}

func TestConfirmationHandler_NoCustomerEmail(t *testing.T) {
	f := newConfirmationFixture()
	ctx := context.Background()
	order := confirmationOrder()
	order.Billing.Email = ""
	job, _ := f.job(t, 42)

	f.orders.On("GetOrder", ctx, 42).Return(order, nil)

	require.NoError(t, f.handler.Handle(ctx, job))
	f.mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)

	delivered, err := f.ledger.Delivered(ctx, ConfirmationDedupKey(42), time.Time{})
	require.NoError(t, err)
	assert.False(t, delivered)
}

func TestConfirmationHandler_SendFailureIsRetried(t *testing.T) {
	f := newConfirmationFixture()
	ctx := context.Background()
	order := confirmationOrder()
	job, _ := f.job(t, 42)

	f.orders.On("GetOrder", ctx, 42).Return(order, nil)
	f.expectDocument(order)
	f.mailer.On("Send", ctx, mock.Anything).Return(errors.New("rate limited")).Once()

	err := f.handler.Handle(ctx, job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")

	delivered, err := f.ledger.Delivered(ctx, ConfirmationDedupKey(42), time.Time{})
	require.NoError(t, err)
	assert.False(t, delivered)
}

func TestConfirmationHandler_OrderLookup(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown order is dropped", func(t *testing.T) {
		f := newConfirmationFixture()
		job, _ := f.job(t, 42)
		f.orders.On("GetOrder", ctx, 42).Return(nil, models.ErrOrderNotFound)

		assert.NoError(t, f.handler.Handle(ctx, job))
		f.mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("transient failure is retried", func(t *testing.T) {
		f := newConfirmationFixture()
		job, _ := f.job(t, 42)
		f.orders.On("GetOrder", ctx, 42).Return(nil, errors.New("timeout"))

		assert.Error(t, f.handler.Handle(ctx, job))
	})
}

func TestConfirmationHandler_InvalidPayloadIsDropped(t *testing.T) {
	f := newConfirmationFixture()

	job := jobs.Job{ID: "job-1", Type: JobOrderConfirmation, Payload: []byte(`{"order_id":"x"}`)}
	assert.NoError(t, f.handler.Handle(context.Background(), job))

	job = jobs.Job{ID: "job-2", Type: JobOrderConfirmation, Payload: []byte(`{"order_id":0}`)}
	assert.NoError(t, f.handler.Handle(context.Background(), job))

	f.orders.AssertNotCalled(t, "GetOrder", mock.Anything, mock.Anything)
}

func TestConfirmationHandler_RemintsInvalidToken(t *testing.T) {
	f := newConfirmationFixture()
	ctx := context.Background()
	order := confirmationOrder()

	job, err := jobs.NewJob(JobOrderConfirmation, ConfirmationDedupKey(42), ConfirmationPayload{
		OrderID:       42,
		DownloadToken: "stale.token.value",
	})
	require.NoError(t, err)

	f.orders.On("GetOrder", ctx, 42).Return(order, nil)
	f.expectDocument(order)

	var sent *EmailMessage
	f.mailer.On("Send", ctx, mock.Anything).Run(func(args mock.Arguments) {
		sent = args.Get(1).(*EmailMessage)
	}).Return(nil).Once()

	require.NoError(t, f.handler.Handle(ctx, job))
	require.NotNil(t, sent)

	prefix := "https://shop.test/pdf/download/"
	start := strings.Index(sent.Text, prefix)
	require.GreaterOrEqual(t, start, 0)
	token := strings.Fields(sent.Text[start+len(prefix):])[0]
	assert.NotEqual(t, "stale.token.value", token)

	orderID, err := f.tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, 42, orderID)
}

func TestConfirmationDispatcher_EnqueueFailure(t *testing.T) {
	queue := &recordingQueue{err: errors.New("queue full")}
	dispatcher := NewConfirmationDispatcher(queue, NewDocumentTokenService("secret", time.Hour), zap.NewNop())

	err := dispatcher.Dispatch(context.Background(), 42)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "queue full")
}

func TestOrderProcessor_ResendsDeliveredConfirmation(t *testing.T) {
	f := newConfirmationFixture()
	ctx := context.Background()
	order := confirmationOrder()

	queue := &recordingQueue{}
	dispatcher := NewConfirmationDispatcher(queue, f.tokens, zap.NewNop())
	processor := NewOrderProcessor(f.orders, dispatcher, zap.NewNop())

	f.orders.On("GetOrder", mock.Anything, 42).Return(order, nil)
	f.expectDocument(order)
	f.mailer.On("Send", ctx, mock.Anything).Return(nil).Twice()

	require.NoError(t, dispatcher.Dispatch(ctx, 42))
	require.NoError(t, processor.ProcessOrder(ctx, 42))

	queued := queue.Enqueued()
	require.Len(t, queued, 2)
	assert.Equal(t, ConfirmationDedupKey(42), queued[0].DedupKey)
	assert.NotEqual(t, queued[0].DedupKey, queued[1].DedupKey)
	assert.True(t, strings.HasPrefix(queued[1].DedupKey, ConfirmationDedupKey(42)+":resend:"))

	for _, job := range queued {
		require.NoError(t, f.handler.Handle(ctx, job))
	}

	f.mailer.AssertNumberOfCalls(t, "Send", 2)

	// a regular redelivery after the resend is still deduplicated
	require.NoError(t, f.handler.Handle(ctx, queued[0]))
	f.mailer.AssertNumberOfCalls(t, "Send", 2)
}

func TestConfirmationDispatcher_ResendKeysAreUnique(t *testing.T) {
	queue := &recordingQueue{}
	dispatcher := NewConfirmationDispatcher(queue, NewDocumentTokenService("secret", time.Hour), zap.NewNop())
	ctx := context.Background()

	require.NoError(t, dispatcher.Resend(ctx, 42))
	require.NoError(t, dispatcher.Resend(ctx, 42))

	queued := queue.Enqueued()
	require.Len(t, queued, 2)
	assert.NotEqual(t, queued[0].DedupKey, queued[1].DedupKey)

	var payload ConfirmationPayload
	require.NoError(t, queued[0].Decode(&payload))
	assert.True(t, payload.Resend)
	assert.Equal(t, 42, payload.OrderID)
}
