package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cimillas/ticket-site/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrDuplicateOrder = errors.New("duplicate order id")

const orderColumns = `id, event_id, purchaser_name, purchaser_email, quantity, unit_price, amount, currency, status, payment_ref, created_at, paid_at`

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *OrderRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *OrderRepository) CreateOrder(ctx context.Context, order domain.Order) error {
	const stmt = `
INSERT INTO orders (` + orderColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := conn(ctx, r.pool).Exec(ctx, stmt,
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
		order.CreatedAt,
		order.PaidAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isUniqueViolation(err) {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (r *OrderRepository) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return r.getOrder(ctx, query, id)
}

// GetOrderForUpdate locks the order row until the surrounding transaction ends.
func (r *OrderRepository) GetOrderForUpdate(ctx context.Context, id string) (domain.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	return r.getOrder(ctx, query, id)
}

// UpdateStatus moves the order from one status to another and reports whether
// the row was in the expected status.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to domain.PaymentStatus, paymentRef string, at time.Time) (bool, error) {
	const stmt = `
UPDATE orders
SET status = $3, payment_ref = $4, paid_at = $5
WHERE id = $1 AND status = $2`

	tag, err := conn(ctx, r.pool).Exec(ctx, stmt, id, string(from), string(to), paymentRef, at)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("update order status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *OrderRepository) getOrder(ctx context.Context, query, id string) (domain.Order, error) {
	var o domain.Order
	var status string
	err := conn(ctx, r.pool).QueryRow(ctx, query, id).Scan(
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
		&o.CreatedAt,
		&o.PaidAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Order{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}
	o.Status = domain.PaymentStatus(status)
	return o, nil
}
