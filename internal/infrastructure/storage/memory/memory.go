package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"fieldsync/internal/domain/catalog"
	"fieldsync/internal/domain/location"
	"fieldsync/internal/domain/order"
	"fieldsync/internal/domain/sale"

	"golang.org/x/exp/slog"
)

// Storage держит данные удаленного сервиса в памяти процесса.
// Используется для локальной разработки и тестов.
type Storage struct {
	mu        sync.RWMutex
	nextID    int64
	orders    map[int64]order.Order
	sales     map[int64]sale.Sale
	points    map[int64]location.Point
	products  map[int64]catalog.Product
	customers map[int64]catalog.Customer
	keys      map[string]int64
}

func New() *Storage {
	return &Storage{
		orders:    make(map[int64]order.Order),
		sales:     make(map[int64]sale.Sale),
		points:    make(map[int64]location.Point),
		products:  make(map[int64]catalog.Product),
		customers: make(map[int64]catalog.Customer),
		keys:      make(map[string]int64),
	}
}

func (s *Storage) Name() string { return "memory" }

func (s *Storage) Ping(context.Context) error { return nil }

func (s *Storage) Close() error { return nil }

func (s *Storage) id() int64 {
	s.nextID++
	return s.nextID
}

// Seed заполняет справочники
func (s *Storage) Seed(products []catalog.Product, customers []catalog.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for _, p := range products {
		if p.ID == 0 {
			p.ID = s.id()
		} else if p.ID > s.nextID {
			s.nextID = p.ID
		}
		if p.LastUpdated.IsZero() {
			p.LastUpdated = now
		}
		s.products[p.ID] = p
	}
	for _, c := range customers {
		if c.ID == 0 {
			c.ID = s.id()
		} else if c.ID > s.nextID {
			s.nextID = c.ID
		}
		if c.LastUpdated.IsZero() {
			c.LastUpdated = now
		}
		s.customers[c.ID] = c
	}
}

// Counts возвращает число принятых заказов, продаж и точек
func (s *Storage) Counts() (orders, sales, points int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders), len(s.sales), len(s.points)
}

type OrderRepository struct {
	s   *Storage
	log *slog.Logger
}

func NewOrderRepository(s *Storage, log *slog.Logger) *OrderRepository {
	return &OrderRepository{s: s, log: log.With("component", "order_repository")}
}

func (r *OrderRepository) Create(_ context.Context, o *order.Order) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o.ID = r.s.id()
	stored := *o
	stored.Items = append([]order.Item(nil), o.Items...)
	r.s.orders[o.ID] = stored
	return o.ID, nil
}

func (r *OrderRepository) Get(_ context.Context, id int64) (*order.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	o.Items = append([]order.Item(nil), o.Items...)
	return &o, nil
}

func (r *OrderRepository) UpdateStatus(_ context.Context, id int64, status order.Status) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	r.s.orders[id] = o
	return nil
}

type SaleRepository struct {
	s *Storage
}

func NewSaleRepository(s *Storage) *SaleRepository {
	return &SaleRepository{s: s}
}

func (r *SaleRepository) Create(_ context.Context, sl *sale.Sale) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sl.ID = r.s.id()
	r.s.sales[sl.ID] = *sl
	return sl.ID, nil
}

type LocationRepository struct {
	s *Storage
}

func NewLocationRepository(s *Storage) *LocationRepository {
	return &LocationRepository{s: s}
}

func (r *LocationRepository) Create(_ context.Context, p *location.Point) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p.ID = r.s.id()
	r.s.points[p.ID] = *p
	return p.ID, nil
}

type CatalogRepository struct {
	s *Storage
}

func NewCatalogRepository(s *Storage) *CatalogRepository {
	return &CatalogRepository{s: s}
}

func (r *CatalogRepository) ListProducts(_ context.Context, f catalog.ProductFilter) ([]catalog.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]catalog.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out, nil
}

func (r *CatalogRepository) ListCustomers(_ context.Context, f catalog.CustomerFilter) ([]catalog.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]catalog.Customer, 0, len(r.s.customers))
	for _, c := range r.s.customers {
		if f.Match(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out, nil
}

func (r *CatalogRepository) CreateCustomer(_ context.Context, c *catalog.Customer) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c.ID = r.s.id()
	r.s.customers[c.ID] = *c
	return c.ID, nil
}

type IdempotencyRepository struct {
	s *Storage
}

func NewIdempotencyRepository(s *Storage) *IdempotencyRepository {
	return &IdempotencyRepository{s: s}
}

func (r *IdempotencyRepository) Lookup(_ context.Context, scope, key string) (int64, bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.keys[scope+"/"+key]
	return id, ok, nil
}

func (r *IdempotencyRepository) Save(_ context.Context, scope, key string, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.keys[scope+"/"+key] = id
	return nil
}
