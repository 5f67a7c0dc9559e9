package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fieldsync/internal/domain/catalog"
	"fieldsync/internal/domain/location"
	"fieldsync/internal/domain/mutation"
	"fieldsync/internal/domain/order"

	"golang.org/x/exp/slog"
)

// FallbackStore направляет операции в основной носитель и при первом
// сбое хранилища необратимо переключается на запасной.
type FallbackStore struct {
	log         *slog.Logger
	openReserve func() (Store, error)

	mu       sync.RWMutex
	current  Store
	primary  Store
	degraded bool
}

func NewFallbackStore(primary Store, openReserve func() (Store, error), log *slog.Logger) *FallbackStore {
	return &FallbackStore{
		log:         log.With("component", "fallback_store"),
		openReserve: openReserve,
		current:     primary,
		primary:     primary,
	}
}

// Degraded сообщает, работает ли хранилище на запасном носителе
func (f *FallbackStore) Degraded() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.degraded
}

func (f *FallbackStore) Backend() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.current.Backend()
}

func (f *FallbackStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current.Close()
}

// run выполняет op на текущем носителе под блокировкой чтения: переключение
// носителя дожидается завершения начатых операций и только потом копирует данные
func (f *FallbackStore) run(op func(Store) error) (degraded bool, err error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.degraded, op(f.current)
}

// do выполняет op на текущем носителе, при сбое деградирует и повторяет op один раз
func (f *FallbackStore) do(ctx context.Context, name string, op func(Store) error) error {
	degraded, err := f.run(op)
	if !isStorageFailure(ctx, err) {
		return err
	}
	if degraded {
		return fmt.Errorf("%w: %s: %v", ErrStorageUnavailable, name, err)
	}

	f.log.Error("Сбой основного хранилища", "operation", name, "error", err)
	reserve, derr := f.degrade(ctx)
	if derr != nil {
		return fmt.Errorf("%w: %s: %v; reserve: %v", ErrStorageUnavailable, name, err, derr)
	}

	err = op(reserve)
	if isStorageFailure(ctx, err) {
		return fmt.Errorf("%w: %s: %v", ErrStorageUnavailable, name, err)
	}
	return err
}

func (f *FallbackStore) degrade(ctx context.Context) (Store, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.degraded {
		return f.current, nil
	}

	reserve, err := f.openReserve()
	if err != nil {
		return nil, err
	}

	f.copyInto(ctx, reserve)
	if err := f.primary.Close(); err != nil {
		f.log.Warn("Не удалось закрыть основное хранилище", "error", err)
	}

	f.current = reserve
	f.degraded = true
	f.log.Warn("Хранилище переключено на запасной носитель", "backend", reserve.Backend())
	return reserve, nil
}

type restorer interface {
	upsertOrder(o order.LocalOrder) error
	upsertLocation(l location.Sample) error
	restoreMutation(m mutation.Pending) error
}

// copyInto переносит все, что еще читается из основного носителя.
// Копирование идемпотентно: повторный перенос перезаписывает те же ключи.
func (f *FallbackStore) copyInto(ctx context.Context, dst Store) {
	r, ok := dst.(restorer)
	if !ok {
		f.log.Warn("Запасной носитель не поддерживает перенос данных", "backend", dst.Backend())
		return
	}

	copied := map[string]int{}

	if orders, err := f.primary.ListOrders(ctx); err != nil {
		f.log.Warn("Не удалось прочитать заказы для переноса", "error", err)
	} else {
		for _, o := range orders {
			if err := r.upsertOrder(o); err != nil {
				f.log.Warn("Не удалось перенести заказ", "local_id", o.LocalID, "error", err)
				continue
			}
			copied["orders"]++
		}
	}

	if list, err := f.primary.ListMutations(ctx); err != nil {
		f.log.Warn("Не удалось прочитать очередь для переноса", "error", err)
	} else {
		for _, m := range list {
			if err := r.restoreMutation(m); err != nil {
				f.log.Warn("Не удалось перенести элемент очереди", "id", m.ID, "error", err)
				continue
			}
			copied["mutations"]++
		}
	}

	if samples, err := f.primary.ListUnsyncedLocations(ctx, 0); err != nil {
		f.log.Warn("Не удалось прочитать геопозиции для переноса", "error", err)
	} else {
		for _, l := range samples {
			if err := r.upsertLocation(l); err != nil {
				f.log.Warn("Не удалось перенести геопозицию", "id", l.ID, "error", err)
				continue
			}
			copied["locations"]++
		}
	}

	if products, err := f.primary.ListProducts(ctx); err == nil {
		if err := dst.UpsertProducts(ctx, products); err == nil {
			copied["products"] = len(products)
		}
	}
	if customers, err := f.primary.ListCustomers(ctx); err == nil {
		if err := dst.UpsertCustomers(ctx, customers); err == nil {
			copied["customers"] = len(customers)
		}
	}

	f.log.Info("Данные перенесены в запасное хранилище",
		"orders", copied["orders"],
		"mutations", copied["mutations"],
		"locations", copied["locations"],
		"products", copied["products"],
		"customers", copied["customers"],
	)
}

func isStorageFailure(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadySynced) || errors.Is(err, ErrConflict) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return false
	}
	return true
}

func (f *FallbackStore) InsertOrder(ctx context.Context, o *order.LocalOrder) error {
	return f.do(ctx, "insert_order", func(s Store) error { return s.InsertOrder(ctx, o) })
}

func (f *FallbackStore) UpdateOrderStatus(ctx context.Context, localID string, status order.Status, at time.Time) error {
	return f.do(ctx, "update_order_status", func(s Store) error {
		return s.UpdateOrderStatus(ctx, localID, status, at)
	})
}

func (f *FallbackStore) GetOrder(ctx context.Context, localID string) (*order.LocalOrder, error) {
	var out *order.LocalOrder
	err := f.do(ctx, "get_order", func(s Store) error {
		var err error
		out, err = s.GetOrder(ctx, localID)
		return err
	})
	return out, err
}

func (f *FallbackStore) ListOrders(ctx context.Context) ([]order.LocalOrder, error) {
	var out []order.LocalOrder
	err := f.do(ctx, "list_orders", func(s Store) error {
		var err error
		out, err = s.ListOrders(ctx)
		return err
	})
	return out, err
}

func (f *FallbackStore) ListUnsyncedOrders(ctx context.Context) ([]order.LocalOrder, error) {
	var out []order.LocalOrder
	err := f.do(ctx, "list_unsynced_orders", func(s Store) error {
		var err error
		out, err = s.ListUnsyncedOrders(ctx)
		return err
	})
	return out, err
}

func (f *FallbackStore) MarkOrderSynced(ctx context.Context, localID string, serverID int64, at time.Time) error {
	return f.do(ctx, "mark_order_synced", func(s Store) error {
		return s.MarkOrderSynced(ctx, localID, serverID, at)
	})
}

func (f *FallbackStore) UpsertProducts(ctx context.Context, products []catalog.Product) error {
	return f.do(ctx, "upsert_products", func(s Store) error { return s.UpsertProducts(ctx, products) })
}

func (f *FallbackStore) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	var out []catalog.Product
	err := f.do(ctx, "list_products", func(s Store) error {
		var err error
		out, err = s.ListProducts(ctx)
		return err
	})
	return out, err
}

func (f *FallbackStore) UpsertCustomers(ctx context.Context, customers []catalog.Customer) error {
	return f.do(ctx, "upsert_customers", func(s Store) error { return s.UpsertCustomers(ctx, customers) })
}

func (f *FallbackStore) ListCustomers(ctx context.Context) ([]catalog.Customer, error) {
	var out []catalog.Customer
	err := f.do(ctx, "list_customers", func(s Store) error {
		var err error
		out, err = s.ListCustomers(ctx)
		return err
	})
	return out, err
}

func (f *FallbackStore) InsertLocation(ctx context.Context, l location.Sample) error {
	return f.do(ctx, "insert_location", func(s Store) error { return s.InsertLocation(ctx, l) })
}

func (f *FallbackStore) ListUnsyncedLocations(ctx context.Context, limit int) ([]location.Sample, error) {
	var out []location.Sample
	err := f.do(ctx, "list_unsynced_locations", func(s Store) error {
		var err error
		out, err = s.ListUnsyncedLocations(ctx, limit)
		return err
	})
	return out, err
}

func (f *FallbackStore) MarkLocationSynced(ctx context.Context, id string) error {
	return f.do(ctx, "mark_location_synced", func(s Store) error { return s.MarkLocationSynced(ctx, id) })
}

func (f *FallbackStore) EnqueueMutation(ctx context.Context, m *mutation.Pending) error {
	return f.do(ctx, "enqueue_mutation", func(s Store) error { return s.EnqueueMutation(ctx, m) })
}

func (f *FallbackStore) ListMutations(ctx context.Context) ([]mutation.Pending, error) {
	var out []mutation.Pending
	err := f.do(ctx, "list_mutations", func(s Store) error {
		var err error
		out, err = s.ListMutations(ctx)
		return err
	})
	return out, err
}

func (f *FallbackStore) UpdateMutation(ctx context.Context, m *mutation.Pending) error {
	return f.do(ctx, "update_mutation", func(s Store) error { return s.UpdateMutation(ctx, m) })
}

func (f *FallbackStore) RemoveMutation(ctx context.Context, id string) error {
	return f.do(ctx, "remove_mutation", func(s Store) error { return s.RemoveMutation(ctx, id) })
}
