package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fieldsync/internal/domain/order"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"
)

func NewOrderRepository(pool *pgxpool.Pool, log *slog.Logger) *OrderRepository {
	return &OrderRepository{
		pool: pool,
		log:  log,
	}
}

type OrderRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func (r *OrderRepository) Create(ctx context.Context, o *order.Order) (int64, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return 0, fmt.Errorf("marshal items: %w", err)
	}
	err = r.pool.QueryRow(ctx,
		`INSERT INTO orders (local_id, device_id, customer_id, customer_name, status, total_amount, notes, items, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		o.LocalID, o.DeviceID, o.CustomerID, o.CustomerName, string(o.Status), o.TotalAmount, o.Notes, items,
		o.CreatedAt, o.UpdatedAt).Scan(&o.ID)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}
	return o.ID, nil
}

func (r *OrderRepository) Get(ctx context.Context, id int64) (*order.Order, error) {
	var (
		o      order.Order
		status string
		items  []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, local_id, device_id, customer_id, customer_name, status, total_amount, notes, items, created_at, updated_at
		 FROM orders WHERE id = $1`, id).
		Scan(&o.ID, &o.LocalID, &o.DeviceID, &o.CustomerID, &o.CustomerName, &status, &o.TotalAmount, &o.Notes,
			&items, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, order.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select order: %w", err)
	}
	o.Status = order.Status(status)
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	return &o, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status order.Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}
