package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"fieldsync/internal/domain/sale"

	"github.com/jackc/pgx/v5/pgxpool"
)

type SaleRepository struct {
	pool *pgxpool.Pool
}

func NewSaleRepository(pool *pgxpool.Pool) *SaleRepository {
	return &SaleRepository{pool: pool}
}

func (r *SaleRepository) Create(ctx context.Context, s *sale.Sale) (int64, error) {
	items, err := json.Marshal(s.Items)
	if err != nil {
		return 0, fmt.Errorf("marshal items: %w", err)
	}
	err = r.pool.QueryRow(ctx,
		`INSERT INTO sales (device_id, customer_id, payment_method, items, total, sold_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		s.DeviceID, s.CustomerID, string(s.PaymentMethod), items, s.Total, s.SoldAt).Scan(&s.ID)
	if err != nil {
		return 0, fmt.Errorf("insert sale: %w", err)
	}
	return s.ID, nil
}
