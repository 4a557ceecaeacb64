package actions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/square-key-labs/strawgo-lisa/src/store"
)

// brokenStore simulates an unreachable order backend
type brokenStore struct {
	calls int
}

func (b *brokenStore) SearchOrders(ctx context.Context, c store.Criteria) ([]store.Order, error) {
	b.calls++
	return nil, errors.New("dial tcp 10.0.0.5:5432: connect: connection refused")
}

func (b *brokenStore) CreateOrder(ctx context.Context, d store.OrderDraft) (store.Order, error) {
	b.calls++
	return store.Order{}, errors.New("connection refused")
}

func (b *brokenStore) SearchCustomers(ctx context.Context, q string) ([]store.Customer, error) {
	b.calls++
	return nil, errors.New("connection refused")
}

func (b *brokenStore) Close() error { return nil }

// slowStore blocks until the call context ends
type slowStore struct{ brokenStore }

func (s *slowStore) SearchOrders(ctx context.Context, c store.Criteria) ([]store.Order, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// wednesday is 2026-03-04 14:30 UTC
var wednesday = time.Date(2026, 3, 4, 14, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return wednesday }

func TestSearchThisWeekWithUnreachableStore(t *testing.T) {
	bs := &brokenStore{}
	e := NewExecutor(bs, time.Second).WithClock(fixedClock)

	res := e.Execute(context.Background(), SearchOrders, map[string]any{"dateRange": "this_week"})
	assert.Equal(t, 1, bs.calls)
	assert.Equal(t, TypeOrdersFound, res.Type)
	assert.Equal(t, 200, res.StatusCode)
	assert.True(t, res.Demo)
	require.NotEmpty(t, res.Orders)
	for _, o := range res.Orders {
		assert.Equal(t, demoNote, o.Notes)
	}
}

func TestNilStoreDegradesToDemo(t *testing.T) {
	e := NewExecutor(nil, 0)
	res := e.Execute(context.Background(), SearchCustomers, nil)
	assert.Equal(t, 200, res.StatusCode)
	assert.True(t, res.Demo)
	assert.NotEmpty(t, res.Customers)

	res = e.Execute(context.Background(), CreateOrder, map[string]any{
		"customerName": "Acme", "glassType": "tempered", "quantity": 3,
	})
	assert.Equal(t, TypeOrderCreated, res.Type)
	assert.True(t, res.Demo)
	require.NotNil(t, res.Order)
	assert.Equal(t, 3, res.Order.Quantity)
}

func TestStoreTimeoutDegradesToDemo(t *testing.T) {
	e := NewExecutor(&slowStore{}, 20*time.Millisecond)
	start := time.Now()
	res := e.Execute(context.Background(), SearchOrders, nil)
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, res.Demo)
	assert.Equal(t, 200, res.StatusCode)
}

func TestSearchUsesStoreAndDateRange(t *testing.T) {
	ms := store.NewMemoryStore()
	ms.Seed([]store.Order{
		{ID: "1", OrderNumber: "ORD-1", CustomerName: "Acme", GlassType: "tempered", Status: "pending", CreatedAt: wednesday.Add(-time.Hour)},
		{ID: "2", OrderNumber: "ORD-2", CustomerName: "Acme", GlassType: "tempered", Status: "pending", CreatedAt: wednesday.AddDate(0, 0, -3)},
		{ID: "3", OrderNumber: "ORD-3", CustomerName: "Zenith", GlassType: "frosted", Status: "shipped", CreatedAt: wednesday.AddDate(0, 0, -1)},
	}, nil)
	e := NewExecutor(ms, time.Second).WithClock(fixedClock)

	res := e.Execute(context.Background(), SearchOrders, map[string]any{"dateRange": "this_week"})
	assert.False(t, res.Demo)
	assert.Len(t, res.Orders, 2)
	assert.Equal(t, "I found 2 orders.", res.Message)

	res = e.Execute(context.Background(), SearchOrders, map[string]any{"dateRange": "last_week", "customerName": "acme"})
	require.Len(t, res.Orders, 1)
	assert.Equal(t, "ORD-2", res.Orders[0].OrderNumber)

	res = e.Execute(context.Background(), SearchOrders, map[string]any{"status": "cancelled"})
	assert.Empty(t, res.Orders)
	assert.Equal(t, 200, res.StatusCode)
	assert.Equal(t, "I couldn't find any matching orders.", res.Message)
}

func TestCreateOrder(t *testing.T) {
	ms := store.NewMemoryStore()
	e := NewExecutor(ms, time.Second)

	res := e.Execute(context.Background(), CreateOrder, map[string]any{
		"customerName": "Acme Glass", "glassType": "laminated", "quantity": float64(6), "thickness": "10mm",
	})
	assert.Equal(t, TypeOrderCreated, res.Type)
	require.NotNil(t, res.Order)
	assert.False(t, res.Demo)
	assert.Contains(t, res.Message, res.Order.OrderNumber)

	found, err := ms.SearchOrders(context.Background(), store.Criteria{})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	res = e.Execute(context.Background(), CreateOrder, map[string]any{"glassType": "clear"})
	assert.Equal(t, TypeOrderIncomplete, res.Type)
	assert.Equal(t, 400, res.StatusCode)
}

func TestUnknownAndStaticActions(t *testing.T) {
	e := NewExecutor(store.NewMemoryStore(), 0)
	res := e.Execute(context.Background(), "launch_rocket", nil)
	assert.Equal(t, TypeUnknownAction, res.Type)
	assert.Equal(t, 400, res.StatusCode)

	assert.Equal(t, TypeConversationEnded, e.Execute(context.Background(), EndConversation, nil).Type)
	assert.Equal(t, TypeHelp, e.Execute(context.Background(), ShowHelp, nil).Type)

	pdf := e.Execute(context.Background(), GeneratePDF, nil)
	assert.Equal(t, TypePDFRequested, pdf.Type)
	assert.Equal(t, GeneratePDF, pdf.Action)
}

func TestResolveDateRange(t *testing.T) {
	from, to, ok := ResolveDateRange("this week", wednesday)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), to)

	from, to, ok = ResolveDateRange("last_month", wednesday)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), to)

	from, _, ok = ResolveDateRange("yesterday", wednesday)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), from)

	_, _, ok = ResolveDateRange("next decade", wednesday)
	assert.False(t, ok)
}
