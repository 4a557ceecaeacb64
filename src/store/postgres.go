package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresStore persists orders in Postgres through a pgx pool
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresStore connects to dsn and applies migrations
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	err = migrate(ctx, db, goose.DialectPostgres, "postgres")
	db.Close()
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool, now: time.Now}, nil
}

func passTime(t time.Time) any { return t }

func (s *PostgresStore) SearchOrders(ctx context.Context, c Criteria) ([]Order, error) {
	q, args := orderQuery(c, dollar, passTime)
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("search orders: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Order, error) {
		var o Order
		err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerName, &o.GlassType, &o.Quantity,
			&o.Dimensions, &o.Thickness, &o.Status, &o.Notes, &o.CreatedAt)
		o.CreatedAt = o.CreatedAt.UTC()
		return o, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan orders: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CreateOrder(ctx context.Context, d OrderDraft) (Order, error) {
	if err := d.Validate(); err != nil {
		return Order{}, err
	}
	o := newOrder(d, s.now())

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertOrderStatement(dollar),
			o.ID, o.OrderNumber, o.CustomerName, o.GlassType, o.Quantity,
			o.Dimensions, o.Thickness, o.Status, o.Notes, o.CreatedAt); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		if _, err := tx.Exec(ctx, insertCustomerStatement(dollar), uuid.NewString(), o.CustomerName, o.CreatedAt); err != nil {
			return fmt.Errorf("upsert customer: %w", err)
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

func (s *PostgresStore) SearchCustomers(ctx context.Context, query string) ([]Customer, error) {
	q, args := customerQuery(query, dollar)
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("search customers: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Customer])
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
