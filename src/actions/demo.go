package actions

import (
	"fmt"
	"time"

	"github.com/square-key-labs/strawgo-lisa/src/store"
)

// Demo data is returned when the order store cannot be reached. Every record
// is marked so clients can label it.

const demoNote = "sample data"

func demoOrders(now time.Time) []store.Order {
	now = now.UTC()
	return []store.Order{
		{
			ID: "demo-1", OrderNumber: "DEMO-1001", CustomerName: "Acme Glass Co",
			GlassType: "tempered", Quantity: 12, Dimensions: "1200x800 mm", Thickness: "8mm",
			Status: store.StatusInProduction, Notes: demoNote, CreatedAt: now.Add(-2 * time.Hour),
		},
		{
			ID: "demo-2", OrderNumber: "DEMO-1002", CustomerName: "Bright Windows Ltd",
			GlassType: "double-glazed", Quantity: 4, Dimensions: "900x600 mm",
			Status: store.StatusPending, Notes: demoNote, CreatedAt: now.Add(-26 * time.Hour),
		},
		{
			ID: "demo-3", OrderNumber: "DEMO-1003", CustomerName: "Harbor Interiors",
			GlassType: "frosted", Quantity: 20, Thickness: "6mm",
			Status: store.StatusShipped, Notes: demoNote, CreatedAt: now.Add(-50 * time.Hour),
		},
	}
}

func demoOrder(d store.OrderDraft, now time.Time) store.Order {
	return store.Order{
		ID:           "demo-new",
		OrderNumber:  fmt.Sprintf("DEMO-%s", now.UTC().Format("150405")),
		CustomerName: d.CustomerName,
		GlassType:    d.GlassType,
		Quantity:     d.Quantity,
		Dimensions:   d.Dimensions,
		Thickness:    d.Thickness,
		Status:       store.StatusPending,
		Notes:        demoNote,
		CreatedAt:    now.UTC(),
	}
}

func demoCustomers() []store.Customer {
	return []store.Customer{
		{ID: "demo-c1", Name: "Acme Glass Co", Email: "orders@acme.example"},
		{ID: "demo-c2", Name: "Bright Windows Ltd", Phone: "555-0142"},
	}
}
