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
	"ticket-storefront/internal/session"
)

func newTestCartManager(t *testing.T, event *models.Event, maxTickets int) (*CartManager, session.State) {
	t.Helper()

	catalog := new(MockCatalogService)
	catalog.On("GetEvent", mock.Anything, event.ID).Return(event, nil)

	store := session.NewMemoryStore(time.Hour)
	t.Cleanup(store.Close)

	calc := NewCalculator(dec("9"), zap.NewNop())
	return NewCartManager(catalog, calc, maxTickets, zap.NewNop()), store.Load("session-1")
}

func TestCartManager_IncrementRejectedAtSharedStock(t *testing.T) {
	event := testEvent(intPtr(5))
	manager, state := newTestCartManager(t, event, 50)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := manager.Increment(ctx, state, event.ID, 71)
		require.NoError(t, err)
	}

	_, err := manager.Increment(ctx, state, event.ID, 72)
	assert.ErrorIs(t, err, models.ErrStockOrQuantityExceeded)

	cart, err := manager.Load(state)
	require.NoError(t, err)
	assert.Equal(t, 5, cart.TicketCount())
	assert.Equal(t, -1, cart.Line(72))
}

func TestCartManager_IncrementRejectedAtOrderMaximum(t *testing.T) {
	event := testEvent(nil)
	manager, state := newTestCartManager(t, event, 2)
	ctx := context.Background()

	_, err := manager.Increment(ctx, state, event.ID, 71)
	require.NoError(t, err)
	_, err = manager.Increment(ctx, state, event.ID, 72)
	require.NoError(t, err)

	_, err = manager.Increment(ctx, state, event.ID, 71)
	assert.ErrorIs(t, err, models.ErrStockOrQuantityExceeded)

	cart, _ := manager.Load(state)
	assert.Equal(t, 2, cart.TicketCount())
}

func TestCartManager_IncrementUnknownTicketType(t *testing.T) {
	event := testEvent(nil)
	manager, state := newTestCartManager(t, event, 10)

	_, err := manager.Increment(context.Background(), state, event.ID, 999)
	assert.ErrorIs(t, err, models.ErrTicketTypeNotFound)
}

func TestCartManager_SoldOutEventBlocksAdding(t *testing.T) {
	event := testEvent(nil)
	manager, state := newTestCartManager(t, event, 10)
	ctx := context.Background()

	_, err := manager.Increment(ctx, state, event.ID, 71)
	require.NoError(t, err)

	event.StockStatus = models.StockOutOfStock

	_, err = manager.Increment(ctx, state, event.ID, 71)
	assert.ErrorIs(t, err, models.ErrEventUnavailable)

	_, _, err = manager.SetQuantity(ctx, state, event.ID, 72, 2)
	assert.ErrorIs(t, err, models.ErrEventUnavailable)

	cart, err := manager.Load(state)
	require.NoError(t, err)
	assert.Equal(t, 1, cart.TicketCount())

	// removing a line still works
	cart, _, err = manager.SetQuantity(ctx, state, event.ID, 71, 0)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

func TestCartManager_SetQuantity(t *testing.T) {
	tests := []struct {
		name        string
		stock       *int
		max         int
		existing    map[int]int
		ticketType  int
		quantity    int
		wantQty     int
		wantClamped bool
	}{
		{name: "within caps", max: 10, ticketType: 71, quantity: 3, wantQty: 3},
		{name: "clamped to order maximum", max: 4, ticketType: 71, quantity: 9, wantQty: 4, wantClamped: true},
		{name: "clamped to shared stock", stock: intPtr(5), max: 50, existing: map[int]int{72: 3}, ticketType: 71, quantity: 4, wantQty: 2, wantClamped: true},
		{name: "negative becomes zero", max: 10, existing: map[int]int{71: 2}, ticketType: 71, quantity: -3, wantQty: 0, wantClamped: true},
		{name: "zero removes line", max: 10, existing: map[int]int{71: 2}, ticketType: 71, quantity: 0, wantQty: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := testEvent(tt.stock)
			manager, state := newTestCartManager(t, event, tt.max)
			ctx := context.Background()

			if len(tt.existing) > 0 {
				_, err := manager.ReplaceLines(ctx, state, event.ID, tt.existing)
				require.NoError(t, err)
			}

			cart, clamped, err := manager.SetQuantity(ctx, state, event.ID, tt.ticketType, tt.quantity)
			require.NoError(t, err)
			assert.Equal(t, tt.wantClamped, clamped)

			index := cart.Line(tt.ticketType)
			if tt.wantQty == 0 {
				assert.Equal(t, -1, index)
				return
			}
			require.GreaterOrEqual(t, index, 0)
			assert.Equal(t, tt.wantQty, cart.Lines[index].Quantity)
			assert.LessOrEqual(t, cart.TicketCount(), tt.max)
		})
	}
}

func TestCartManager_ReplaceLines(t *testing.T) {
	event := testEvent(intPtr(4))
	manager, state := newTestCartManager(t, event, 50)
	ctx := context.Background()

	cart, err := manager.ReplaceLines(ctx, state, event.ID, map[int]int{71: 3, 72: 3})
	require.NoError(t, err)

	// Clamped in ticket type order to the shared stock of 4
	require.Len(t, cart.Lines, 2)
	assert.Equal(t, 3, cart.Lines[0].Quantity)
	assert.Equal(t, 1, cart.Lines[1].Quantity)
	assert.Equal(t, event.Title, cart.EventTitle)
	require.NotNil(t, cart.SharedStock)
	assert.Equal(t, 4, *cart.SharedStock)

	// A new selection replaces the old one wholesale
	cart, err = manager.ReplaceLines(ctx, state, event.ID, map[int]int{72: 1, 71: 0})
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 72, cart.Lines[0].TicketTypeID)
}

func TestCartManager_ReplaceLinesErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("empty selection", func(t *testing.T) {
		event := testEvent(nil)
		manager, state := newTestCartManager(t, event, 10)

		_, err := manager.ReplaceLines(ctx, state, event.ID, map[int]int{71: 0})
		var validationErr *models.ValidationError
		assert.True(t, errors.As(err, &validationErr))
	})

	t.Run("sold out", func(t *testing.T) {
		event := testEvent(intPtr(0))
		manager, state := newTestCartManager(t, event, 10)

		_, err := manager.ReplaceLines(ctx, state, event.ID, map[int]int{71: 1})
		assert.ErrorIs(t, err, models.ErrEventUnavailable)
	})

	t.Run("catalog failure", func(t *testing.T) {
		catalog := new(MockCatalogService)
		catalog.On("GetEvent", mock.Anything, 1).Return(nil, errors.New("timeout"))
		store := session.NewMemoryStore(time.Hour)
		defer store.Close()

		manager := NewCartManager(catalog, NewCalculator(dec("9"), zap.NewNop()), 10, zap.NewNop())
		_, err := manager.ReplaceLines(ctx, store.Load("s"), 1, map[int]int{71: 1})
		assert.Error(t, err)
	})
}

func TestCartManager_CartForOtherEventStartsOver(t *testing.T) {
	first := testEvent(nil)
	second := testEvent(nil)
	second.ID = 8

	catalog := new(MockCatalogService)
	catalog.On("GetEvent", mock.Anything, first.ID).Return(first, nil)
	catalog.On("GetEvent", mock.Anything, second.ID).Return(second, nil)
	store := session.NewMemoryStore(time.Hour)
	defer store.Close()
	state := store.Load("s")

	manager := NewCartManager(catalog, NewCalculator(dec("9"), zap.NewNop()), 10, zap.NewNop())
	ctx := context.Background()

	_, err := manager.ReplaceLines(ctx, state, first.ID, map[int]int{71: 2})
	require.NoError(t, err)

	cart, err := manager.Increment(ctx, state, second.ID, 72)
	require.NoError(t, err)
	assert.Equal(t, second.ID, cart.EventID)
	assert.Equal(t, 1, cart.TicketCount())
}

func TestCartManager_Coupons(t *testing.T) {
	event := testEvent(nil)
	manager, state := newTestCartManager(t, event, 10)
	ctx := context.Background()

	_, err := manager.ReplaceLines(ctx, state, event.ID, map[int]int{71: 2})
	require.NoError(t, err)

	_, err = manager.ApplyCoupon(state, &models.Coupon{Code: "BAD", Valid: false})
	assert.ErrorIs(t, err, models.ErrInvalidCoupon)

	coupon := &models.Coupon{Code: "TEN", DiscountType: models.DiscountPercent, Amount: dec("10"), Valid: true}
	_, err = manager.ApplyCoupon(state, coupon)
	require.NoError(t, err)

	_, totals, err := manager.Totals(state)
	require.NoError(t, err)
	assert.Equal(t, "27.00", totals.Rounded().Total.StringFixed(2))

	_, err = manager.RemoveCoupon(state)
	require.NoError(t, err)

	cart, totals, err := manager.Totals(state)
	require.NoError(t, err)
	assert.Nil(t, cart.Coupon)
	assert.Equal(t, "30.00", totals.Rounded().Total.StringFixed(2))
}

func TestCartManager_LoadDiscardsCorruptCart(t *testing.T) {
	event := testEvent(nil)
	manager, state := newTestCartManager(t, event, 10)

	state.Set(session.KeyCart, "{broken")
	cart, err := manager.Load(state)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}
