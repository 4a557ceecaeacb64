package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/square-key-labs/strawgo-lisa/src/logger"
)

//go:embed migrations
var migrations embed.FS

// migrate applies the embedded migrations for dialect on db
func migrate(ctx context.Context, db *sql.DB, dialect goose.Dialect, dir string) error {
	sub, err := fs.Sub(migrations, "migrations/"+dir)
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(dialect, db, sub)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("migrate %s: %w", dir, err)
	}
	for _, r := range results {
		logger.Info("[Store] applied migration %s (%s)", r.Source.Path, r.Duration)
	}
	return nil
}

// SQLiteStore persists orders in a SQLite database
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens dsn and applies migrations
func NewSQLiteStore(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection keeps :memory: databases coherent
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := migrate(ctx, db, goose.DialectSQLite3, "sqlite"); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func millis(t time.Time) any { return t.UnixMilli() }

func (s *SQLiteStore) SearchOrders(ctx context.Context, c Criteria) ([]Order, error) {
	q, args := orderQuery(c, questionMark, millis)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("search orders: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		var created int64
		if err := rows.Scan(&o.ID, &o.OrderNumber, &o.CustomerName, &o.GlassType, &o.Quantity,
			&o.Dimensions, &o.Thickness, &o.Status, &o.Notes, &created); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CreateOrder(ctx context.Context, d OrderDraft) (Order, error) {
	if err := d.Validate(); err != nil {
		return Order{}, err
	}
	o := newOrder(d, s.now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Order{}, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, insertOrderStatement(questionMark),
		o.ID, o.OrderNumber, o.CustomerName, o.GlassType, o.Quantity,
		o.Dimensions, o.Thickness, o.Status, o.Notes, o.CreatedAt.UnixMilli()); err != nil {
		return Order{}, fmt.Errorf("insert order: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insertCustomerStatement(questionMark),
		uuid.NewString(), o.CustomerName, o.CreatedAt.UnixMilli()); err != nil {
		return Order{}, fmt.Errorf("upsert customer: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Order{}, err
	}
	return o, nil
}

func (s *SQLiteStore) SearchCustomers(ctx context.Context, query string) ([]Customer, error) {
	q, args := customerQuery(query, questionMark)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("search customers: %w", err)
	}
	defer rows.Close()
	return scanCustomers(rows)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanCustomers(rows *sql.Rows) ([]Customer, error) {
	var out []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
