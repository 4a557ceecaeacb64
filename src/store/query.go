package store

import (
	"fmt"
	"strings"
	"time"
)

// placeholder renders the n-th (1-based) bind parameter for a dialect
type placeholder func(n int) string

func questionMark(int) string { return "?" }

func dollar(n int) string { return fmt.Sprintf("$%d", n) }

const orderColumns = "id, order_number, customer_name, glass_type, quantity, dimensions, thickness, status, notes, created_at"

// orderQuery builds the search statement shared by the SQL stores. ts
// converts time bounds into the dialect's column representation.
func orderQuery(c Criteria, ph placeholder, ts func(time.Time) any) (string, []any) {
	var where []string
	var args []any
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, ph(len(args))))
	}

	if c.CustomerName != "" {
		add("lower(customer_name) LIKE %s", "%"+strings.ToLower(c.CustomerName)+"%")
	}
	if c.Status != "" {
		add("lower(status) = %s", strings.ToLower(c.Status))
	}
	if c.GlassType != "" {
		add("lower(glass_type) = %s", strings.ToLower(c.GlassType))
	}
	if c.OrderNumber != "" {
		add("upper(order_number) LIKE %s", "%"+strings.ToUpper(c.OrderNumber)+"%")
	}
	if !c.From.IsZero() {
		add("created_at >= %s", ts(c.From))
	}
	if !c.To.IsZero() {
		add("created_at < %s", ts(c.To))
	}

	q := "SELECT " + orderColumns + " FROM orders"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, c.limit())
	q += fmt.Sprintf(" ORDER BY created_at DESC LIMIT %s", ph(len(args)))
	return q, args
}

func customerQuery(query string, ph placeholder) (string, []any) {
	q := "SELECT id, name, phone, email FROM customers"
	if query == "" {
		return q + " ORDER BY name LIMIT 50", nil
	}
	like := "%" + strings.ToLower(query) + "%"
	return q + fmt.Sprintf(" WHERE lower(name) LIKE %s OR lower(email) LIKE %s ORDER BY name LIMIT 50", ph(1), ph(2)),
		[]any{like, like}
}

func insertOrderStatement(ph placeholder) string {
	vals := make([]string, 10)
	for i := range vals {
		vals[i] = ph(i + 1)
	}
	return "INSERT INTO orders (" + orderColumns + ") VALUES (" + strings.Join(vals, ", ") + ")"
}

func insertCustomerStatement(ph placeholder) string {
	return fmt.Sprintf("INSERT INTO customers (id, name, created_at) VALUES (%s, %s, %s) ON CONFLICT DO NOTHING",
		ph(1), ph(2), ph(3))
}
