package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/square-key-labs/strawgo-lisa/src/config"
)

func TestDraftValidate(t *testing.T) {
	err := OrderDraft{GlassType: "tempered"}.Validate()
	require.ErrorIs(t, err, ErrInvalidDraft)
	assert.Contains(t, err.Error(), "customerName")
	assert.Contains(t, err.Error(), "quantity")

	assert.NoError(t, OrderDraft{CustomerName: "Acme", GlassType: "clear", Quantity: 2}.Validate())
}

func TestOrderQueryPlaceholders(t *testing.T) {
	from := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	q, args := orderQuery(Criteria{CustomerName: "Acme", Status: "Pending", From: from}, dollar, passTime)
	assert.Equal(t,
		"SELECT "+orderColumns+" FROM orders WHERE lower(customer_name) LIKE $1 AND lower(status) = $2 AND created_at >= $3 ORDER BY created_at DESC LIMIT $4",
		q)
	assert.Equal(t, []any{"%acme%", "pending", from, defaultLimit}, args)

	q, args = orderQuery(Criteria{Limit: 5}, questionMark, millis)
	assert.Equal(t, "SELECT "+orderColumns+" FROM orders ORDER BY created_at DESC LIMIT ?", q)
	assert.Equal(t, []any{5}, args)
}

func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	o, err := s.CreateOrder(ctx, OrderDraft{CustomerName: " Acme Glass ", GlassType: "tempered", Quantity: 10, Thickness: "6mm"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(o.OrderNumber, "ORD-"))
	assert.Equal(t, "Acme Glass", o.CustomerName)
	assert.Equal(t, StatusPending, o.Status)

	_, err = s.CreateOrder(ctx, OrderDraft{CustomerName: "acme glass", GlassType: "laminated", Quantity: 3})
	require.NoError(t, err)
	_, err = s.CreateOrder(ctx, OrderDraft{CustomerName: "Bright Windows", GlassType: "frosted", Quantity: 1})
	require.NoError(t, err)

	_, err = s.CreateOrder(ctx, OrderDraft{CustomerName: "Nobody"})
	assert.ErrorIs(t, err, ErrInvalidDraft)

	found, err := s.SearchOrders(ctx, Criteria{CustomerName: "acme"})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = s.SearchOrders(ctx, Criteria{GlassType: "Tempered"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, o.OrderNumber, found[0].OrderNumber)
	assert.Equal(t, "6mm", found[0].Thickness)

	found, err = s.SearchOrders(ctx, Criteria{From: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, found)

	found, err = s.SearchOrders(ctx, Criteria{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	// customers are upserted case-insensitively
	customers, err := s.SearchCustomers(ctx, "")
	require.NoError(t, err)
	assert.Len(t, customers, 2)

	customers, err = s.SearchCustomers(ctx, "bright")
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, "Bright Windows", customers[0].Name)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	exerciseStore(t, s)
}

func TestMemoryStoreSeedAndDateRange(t *testing.T) {
	s := NewMemoryStore()
	monday := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s.Seed([]Order{
		{ID: "1", OrderNumber: "ORD-1", CustomerName: "Acme", CreatedAt: monday},
		{ID: "2", OrderNumber: "ORD-2", CustomerName: "Acme", CreatedAt: monday.AddDate(0, 0, -7)},
	}, nil)

	found, err := s.SearchOrders(context.Background(), Criteria{From: monday.Truncate(24 * time.Hour), To: monday.AddDate(0, 0, 7)})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "ORD-1", found[0].OrderNumber)
}

func TestMemoryStoreCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemoryStore().SearchOrders(ctx, Criteria{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSQLiteStore(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "lisa.db")
	s, err := NewSQLiteStore(context.Background(), dsn)
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLiteStoreReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "lisa.db")

	s, err := NewSQLiteStore(ctx, dsn)
	require.NoError(t, err)
	_, err = s.CreateOrder(ctx, OrderDraft{CustomerName: "Acme", GlassType: "clear", Quantity: 4})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(ctx, dsn)
	require.NoError(t, err)
	defer s.Close()
	found, err := s.SearchOrders(ctx, Criteria{})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, 4, found[0].Quantity)
}

func TestOpen(t *testing.T) {
	s, err := Open(context.Background(), config.Store{Driver: config.DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = Open(context.Background(), config.Store{Driver: "mongo"})
	assert.Error(t, err)
}
