// Package store holds the order/customer collaborators the action executor
// talks to: an in-memory store, SQLite and Postgres.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Order statuses
const (
	StatusPending      = "pending"
	StatusInProduction = "in_production"
	StatusReady        = "ready"
	StatusShipped      = "shipped"
	StatusDelivered    = "delivered"
	StatusCompleted    = "completed"
	StatusCancelled    = "cancelled"
)

// ErrInvalidDraft is returned when a draft lacks a required field
var ErrInvalidDraft = errors.New("invalid order draft")

// Order is a glass order
type Order struct {
	ID           string    `json:"id"`
	OrderNumber  string    `json:"orderNumber"`
	CustomerName string    `json:"customerName"`
	GlassType    string    `json:"glassType"`
	Quantity     int       `json:"quantity"`
	Dimensions   string    `json:"dimensions,omitempty"`
	Thickness    string    `json:"thickness,omitempty"`
	Status       string    `json:"status"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Customer is an account orders are placed for
type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// Criteria filters an order search. Zero fields are ignored.
type Criteria struct {
	CustomerName string
	Status       string
	GlassType    string
	OrderNumber  string
	From         time.Time
	To           time.Time
	Limit        int
}

// OrderDraft is what slot filling produces
type OrderDraft struct {
	CustomerName string
	GlassType    string
	Quantity     int
	Dimensions   string
	Thickness    string
	Notes        string
}

// Validate checks required fields
func (d OrderDraft) Validate() error {
	var missing []string
	if strings.TrimSpace(d.CustomerName) == "" {
		missing = append(missing, "customerName")
	}
	if strings.TrimSpace(d.GlassType) == "" {
		missing = append(missing, "glassType")
	}
	if d.Quantity <= 0 {
		missing = append(missing, "quantity")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidDraft, strings.Join(missing, ", "))
	}
	return nil
}

// Store is the order/customer collaborator
type Store interface {
	SearchOrders(ctx context.Context, c Criteria) ([]Order, error)
	CreateOrder(ctx context.Context, d OrderDraft) (Order, error)
	SearchCustomers(ctx context.Context, query string) ([]Customer, error)
	Close() error
}

const defaultLimit = 20

func (c Criteria) limit() int {
	if c.Limit <= 0 || c.Limit > 100 {
		return defaultLimit
	}
	return c.Limit
}

// newOrder fills the generated fields of an order created from d
func newOrder(d OrderDraft, now time.Time) Order {
	id := uuid.New()
	return Order{
		ID:           id.String(),
		OrderNumber:  fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), strings.ToUpper(id.String()[:6])),
		CustomerName: strings.TrimSpace(d.CustomerName),
		GlassType:    strings.TrimSpace(d.GlassType),
		Quantity:     d.Quantity,
		Dimensions:   d.Dimensions,
		Thickness:    d.Thickness,
		Status:       StatusPending,
		Notes:        d.Notes,
		CreatedAt:    now.UTC(),
	}
}
