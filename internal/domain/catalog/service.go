package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/exp/slog"
)

type Servicer interface {
	Products(ctx context.Context, f ProductFilter) ([]Product, error)
	Customers(ctx context.Context, f CustomerFilter) ([]Customer, error)
	CreateCustomer(ctx context.Context, req CreateCustomerRequest) (int64, error)
}

type Service struct {
	repo Repository
	log  *slog.Logger
}

func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With("component", "catalog_service"),
	}
}

func (s *Service) Products(ctx context.Context, f ProductFilter) ([]Product, error) {
	products, err := s.repo.ListProducts(ctx, f)
	if err != nil {
		s.log.Error("failed to list products", "error", err)
		return nil, fmt.Errorf("list products: %w", err)
	}
	if products == nil {
		products = []Product{}
	}
	return products, nil
}

func (s *Service) Customers(ctx context.Context, f CustomerFilter) ([]Customer, error) {
	customers, err := s.repo.ListCustomers(ctx, f)
	if err != nil {
		s.log.Error("failed to list customers", "error", err)
		return nil, fmt.Errorf("list customers: %w", err)
	}
	if customers == nil {
		customers = []Customer{}
	}
	return customers, nil
}

func (s *Service) CreateCustomer(ctx context.Context, req CreateCustomerRequest) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	c := &Customer{
		Name:        strings.TrimSpace(req.Name),
		Phone:       req.Phone,
		Email:       req.Email,
		Address:     req.Address,
		LastUpdated: time.Now(),
	}
	id, err := s.repo.CreateCustomer(ctx, c)
	if err != nil {
		s.log.Error("failed to create customer", "error", err)
		return 0, fmt.Errorf("create customer: %w", err)
	}
	return id, nil
}
