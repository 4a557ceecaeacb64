package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps orders in process memory
type MemoryStore struct {
	mu        sync.RWMutex
	orders    []Order
	customers []Customer
	now       func() time.Time
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// Seed adds orders and customers, for development and tests
func (s *MemoryStore) Seed(orders []Order, customers []Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, orders...)
	s.customers = append(s.customers, customers...)
}

func (s *MemoryStore) SearchOrders(ctx context.Context, c Criteria) ([]Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Order
	for _, o := range s.orders {
		if matchOrder(o, c) {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > c.limit() {
		out = out[:c.limit()]
	}
	return out, nil
}

func matchOrder(o Order, c Criteria) bool {
	if c.CustomerName != "" && !containsFold(o.CustomerName, c.CustomerName) {
		return false
	}
	if c.Status != "" && !strings.EqualFold(o.Status, c.Status) {
		return false
	}
	if c.GlassType != "" && !strings.EqualFold(o.GlassType, c.GlassType) {
		return false
	}
	if c.OrderNumber != "" && !containsFold(o.OrderNumber, c.OrderNumber) {
		return false
	}
	if !c.From.IsZero() && o.CreatedAt.Before(c.From) {
		return false
	}
	if !c.To.IsZero() && !o.CreatedAt.Before(c.To) {
		return false
	}
	return true
}

func (s *MemoryStore) CreateOrder(ctx context.Context, d OrderDraft) (Order, error) {
	if err := d.Validate(); err != nil {
		return Order{}, err
	}
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	o := newOrder(d, s.now())
	s.orders = append(s.orders, o)

	known := false
	for _, c := range s.customers {
		if strings.EqualFold(c.Name, o.CustomerName) {
			known = true
			break
		}
	}
	if !known {
		s.customers = append(s.customers, Customer{ID: uuid.NewString(), Name: o.CustomerName})
	}
	return o, nil
}

func (s *MemoryStore) SearchCustomers(ctx context.Context, query string) ([]Customer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Customer
	for _, c := range s.customers {
		if query == "" || containsFold(c.Name, query) || containsFold(c.Email, query) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
