package catalog

import (
	"context"
)

type Repository interface {
	ListProducts(ctx context.Context, f ProductFilter) ([]Product, error)
	ListCustomers(ctx context.Context, f CustomerFilter) ([]Customer, error)
	CreateCustomer(ctx context.Context, c *Customer) (int64, error)
}
