// Package sqlite provides a SQLite-backed order store for single-node
// deployments and tests.
//
// The database is opened with a single connection: SQLite allows one writer
// at a time, and a transaction carried on the context must see every query
// issued inside it.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cimillas/ticket-site/internal/domain"
	"github.com/cimillas/ticket-site/migrations"

	// Pure-Go driver, registered as "sqlite".
	_ "modernc.org/sqlite"
)

const orderColumns = `id, event_id, purchaser_name, purchaser_email, quantity, unit_price, amount, currency, status, payment_ref, created_at, paid_at`

var ErrDuplicateOrder = errors.New("duplicate order id")

type OrderRepository struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies migrations.
// Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*OrderRepository, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	// Keep the single connection alive; closing it drops an in-memory database.
	db.SetConnMaxIdleTime(0)
	db.SetConnMaxLifetime(0)

	if err := migrations.ApplySQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply migrations: %w", err)
	}
	return &OrderRepository{db: db}, nil
}

// DB exposes the underlying handle for maintenance queries.
func (r *OrderRepository) DB() *sql.DB {
	return r.db
}

func (r *OrderRepository) Close() error {
	return r.db.Close()
}

func (r *OrderRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type txKey struct{}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *OrderRepository) conn(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return r.db
}

func (r *OrderRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (r *OrderRepository) CreateOrder(ctx context.Context, order domain.Order) error {
	const stmt = `INSERT INTO orders (` + orderColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.conn(ctx).ExecContext(ctx, stmt,
		order.ID,
		order.EventID,
		order.Name,
		order.Email,
		order.Quantity,
		order.UnitPrice,
		order.Amount,
		order.Currency,
		string(order.Status),
		order.PaymentRef,
		formatTime(order.CreatedAt),
		formatTimePtr(order.PaidAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("sqlite: create order %q: %w", order.ID, err)
	}
	return nil
}

func (r *OrderRepository) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`

	var o domain.Order
	var status, createdAt string
	var paidAt sql.NullString
	err := r.conn(ctx).QueryRowContext(ctx, query, id).Scan(
		&o.ID,
		&o.EventID,
		&o.Name,
		&o.Email,
		&o.Quantity,
		&o.UnitPrice,
		&o.Amount,
		&o.Currency,
		&status,
		&o.PaymentRef,
		&createdAt,
		&paidAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("sqlite: get order %q: %w", id, err)
	}

	o.Status = domain.PaymentStatus(status)
	if o.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Order{}, err
	}
	if paidAt.Valid {
		t, err := parseTime(paidAt.String)
		if err != nil {
			return domain.Order{}, err
		}
		o.PaidAt = &t
	}
	return o, nil
}

// GetOrderForUpdate reads the order inside the current transaction. The
// single connection already excludes other writers.
func (r *OrderRepository) GetOrderForUpdate(ctx context.Context, id string) (domain.Order, error) {
	return r.GetOrder(ctx, id)
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to domain.PaymentStatus, paymentRef string, at time.Time) (bool, error) {
	const stmt = `UPDATE orders SET status = ?, payment_ref = ?, paid_at = ? WHERE id = ? AND status = ?`

	res, err := r.conn(ctx).ExecContext(ctx, stmt, string(to), paymentRef, formatTime(at), id, string(from))
	if err != nil {
		return false, fmt.Errorf("sqlite: update order status %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: rows affected: %w", err)
	}
	return n == 1, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse time %q: %w", s, err)
	}
	return t, nil
}
