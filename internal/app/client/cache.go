package client

import (
	"context"
	"fmt"
	"time"

	"fieldsync/internal/domain/catalog"

	"golang.org/x/exp/slog"
)

type matcher[T any] interface {
	Match(T) bool
}

// CacheResult содержит список справочника и его происхождение
type CacheResult[T any] struct {
	Items  []T       `json:"items"`
	Source Source    `json:"source"`
	Stale  bool      `json:"stale,omitempty"`
	AsOf   time.Time `json:"as_of"`
}

// ReferenceCache сначала обращается к серверу, а при неудаче
// фильтрует локальный снимок тем же предикатом
type ReferenceCache[T any, F matcher[T]] struct {
	name       string
	fetch      func(ctx context.Context, f F) ([]T, error)
	load       func(ctx context.Context) ([]T, error)
	save       func(ctx context.Context, items []T) error
	stamp      func(item *T, at time.Time)
	updatedAt  func(item T) time.Time
	oracle     Oracle
	staleAfter time.Duration
	log        *slog.Logger
	now        func() time.Time
}

func (c *ReferenceCache[T, F]) Get(ctx context.Context, f F) (*CacheResult[T], error) {
	var cause error = ErrOffline

	if c.oracle.IsOnline() {
		items, err := c.fetch(ctx, f)
		if err == nil {
			return c.refresh(ctx, items), nil
		}
		c.log.Info("Живой запрос не удался, используется кэш", "error", err)
		cause = err
	}

	cached, err := c.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения кэша %s: %w", c.name, err)
	}
	if len(cached) == 0 {
		return nil, fmt.Errorf("%s: %w: %w", c.name, ErrNoCachedData, cause)
	}

	var newest time.Time
	out := make([]T, 0, len(cached))
	for _, item := range cached {
		if ts := c.updatedAt(item); ts.After(newest) {
			newest = ts
		}
		if f.Match(item) {
			out = append(out, item)
		}
	}

	result := &CacheResult[T]{Items: out, Source: SourceCache, AsOf: newest}
	if c.staleAfter > 0 && c.now().Sub(newest) > c.staleAfter {
		result.Stale = true
		c.log.Warn("Кэш устарел", "cache", c.name, "as_of", newest)
	}
	return result, nil
}

// refresh обновляет снимок живыми данными; пустой ответ тоже успешен
func (c *ReferenceCache[T, F]) refresh(ctx context.Context, items []T) *CacheResult[T] {
	at := c.now()
	if items == nil {
		items = []T{}
	}
	for i := range items {
		c.stamp(&items[i], at)
	}
	if len(items) > 0 {
		if err := c.save(ctx, items); err != nil {
			c.log.Warn("Не удалось обновить кэш", "cache", c.name, "error", err)
		}
	}
	return &CacheResult[T]{Items: items, Source: SourceLive, AsOf: at}
}

type catalogRemote interface {
	ListProducts(ctx context.Context, f catalog.ProductFilter) ([]catalog.Product, error)
	ListCustomers(ctx context.Context, f catalog.CustomerFilter) ([]catalog.Customer, error)
}

type catalogStore interface {
	UpsertProducts(ctx context.Context, products []catalog.Product) error
	ListProducts(ctx context.Context) ([]catalog.Product, error)
	UpsertCustomers(ctx context.Context, customers []catalog.Customer) error
	ListCustomers(ctx context.Context) ([]catalog.Customer, error)
}

func NewProductCache(store catalogStore, remote catalogRemote, oracle Oracle, staleAfter time.Duration, log *slog.Logger) *ReferenceCache[catalog.Product, catalog.ProductFilter] {
	return &ReferenceCache[catalog.Product, catalog.ProductFilter]{
		name:       "products",
		fetch:      remote.ListProducts,
		load:       store.ListProducts,
		save:       store.UpsertProducts,
		stamp:      func(p *catalog.Product, at time.Time) { p.LastUpdated = at },
		updatedAt:  func(p catalog.Product) time.Time { return p.LastUpdated },
		oracle:     oracle,
		staleAfter: staleAfter,
		log:        log.With("component", "product_cache"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func NewCustomerCache(store catalogStore, remote catalogRemote, oracle Oracle, staleAfter time.Duration, log *slog.Logger) *ReferenceCache[catalog.Customer, catalog.CustomerFilter] {
	return &ReferenceCache[catalog.Customer, catalog.CustomerFilter]{
		name:       "customers",
		fetch:      remote.ListCustomers,
		load:       store.ListCustomers,
		save:       store.UpsertCustomers,
		stamp:      func(c *catalog.Customer, at time.Time) { c.LastUpdated = at },
		updatedAt:  func(c catalog.Customer) time.Time { return c.LastUpdated },
		oracle:     oracle,
		staleAfter: staleAfter,
		log:        log.With("component", "customer_cache"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}
