package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fieldsync/internal/domain/catalog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CatalogRepository struct {
	pool *pgxpool.Pool
}

func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

func (r *CatalogRepository) ListProducts(ctx context.Context, f catalog.ProductFilter) ([]catalog.Product, error) {
	query := `SELECT id, name, sku, category, price, stock, unit, active, last_updated FROM products WHERE 1=1`
	var args []any
	if f.Search != "" {
		args = append(args, "%"+strings.ToLower(f.Search)+"%")
		query += fmt.Sprintf(" AND (LOWER(name) LIKE $%d OR LOWER(sku) LIKE $%d)", len(args), len(args))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		query += fmt.Sprintf(" AND LOWER(category) = LOWER($%d)", len(args))
	}
	if f.ActiveOnly {
		query += " AND active"
	}
	query += " ORDER BY LOWER(name)"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Product, error) {
		var p catalog.Product
		err := row.Scan(&p.ID, &p.Name, &p.SKU, &p.Category, &p.Price, &p.Stock, &p.Unit, &p.Active, &p.LastUpdated)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan products: %w", err)
	}
	return products, nil
}

func (r *CatalogRepository) ListCustomers(ctx context.Context, f catalog.CustomerFilter) ([]catalog.Customer, error) {
	query := `SELECT id, name, phone, email, address, last_updated FROM customers`
	var args []any
	if f.Search != "" {
		args = append(args, "%"+strings.ToLower(f.Search)+"%")
		query += ` WHERE LOWER(name) LIKE $1 OR LOWER(phone) LIKE $1 OR LOWER(email) LIKE $1`
	}
	query += " ORDER BY LOWER(name)"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select customers: %w", err)
	}
	customers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Customer, error) {
		var c catalog.Customer
		err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.LastUpdated)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan customers: %w", err)
	}
	return customers, nil
}

func (r *CatalogRepository) CreateCustomer(ctx context.Context, c *catalog.Customer) (int64, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO customers (name, phone, email, address) VALUES ($1, $2, $3, $4)
		 RETURNING id, last_updated`,
		c.Name, c.Phone, c.Email, c.Address).Scan(&c.ID, &c.LastUpdated)
	if err != nil {
		return 0, fmt.Errorf("insert customer: %w", err)
	}
	return c.ID, nil
}

type IdempotencyRepository struct {
	pool *pgxpool.Pool
}

func NewIdempotencyRepository(pool *pgxpool.Pool) *IdempotencyRepository {
	return &IdempotencyRepository{pool: pool}
}

func (r *IdempotencyRepository) Lookup(ctx context.Context, scope, key string) (int64, bool, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`SELECT resource_id FROM idempotency_keys WHERE scope = $1 AND key = $2`, scope, key).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("select idempotency key: %w", err)
	}
	return id, true, nil
}

func (r *IdempotencyRepository) Save(ctx context.Context, scope, key string, id int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO idempotency_keys (scope, key, resource_id) VALUES ($1, $2, $3)
		 ON CONFLICT (scope, key) DO NOTHING`, scope, key, id)
	if err != nil {
		return fmt.Errorf("insert idempotency key: %w", err)
	}
	return nil
}
