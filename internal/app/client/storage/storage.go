package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fieldsync/internal/domain/catalog"
	"fieldsync/internal/domain/location"
	"fieldsync/internal/domain/mutation"
	"fieldsync/internal/domain/order"

	"github.com/spf13/afero"
	"golang.org/x/exp/slog"
)

const (
	BackendSQLite = "sqlite"
	BackendKV     = "kv"
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrAlreadySynced      = errors.New("record already synced")
	ErrConflict           = errors.New("record already exists")
	ErrStorageUnavailable = errors.New("local storage unavailable")
)

// Store описывает долговременное хранилище устройства.
// Реализации безопасны для конкурентного использования.
type Store interface {
	InsertOrder(ctx context.Context, o *order.LocalOrder) error
	UpdateOrderStatus(ctx context.Context, localID string, status order.Status, at time.Time) error
	GetOrder(ctx context.Context, localID string) (*order.LocalOrder, error)
	ListOrders(ctx context.Context) ([]order.LocalOrder, error)
	ListUnsyncedOrders(ctx context.Context) ([]order.LocalOrder, error)
	// MarkOrderSynced переводит заказ в synced только если он еще не синхронизирован,
	// иначе возвращает ErrAlreadySynced
	MarkOrderSynced(ctx context.Context, localID string, serverID int64, at time.Time) error

	UpsertProducts(ctx context.Context, products []catalog.Product) error
	ListProducts(ctx context.Context) ([]catalog.Product, error)
	UpsertCustomers(ctx context.Context, customers []catalog.Customer) error
	ListCustomers(ctx context.Context) ([]catalog.Customer, error)

	InsertLocation(ctx context.Context, s location.Sample) error
	// ListUnsyncedLocations возвращает самые старые точки первыми; limit <= 0 без ограничения
	ListUnsyncedLocations(ctx context.Context, limit int) ([]location.Sample, error)
	MarkLocationSynced(ctx context.Context, id string) error

	// EnqueueMutation сохраняет вызов и назначает ему Seq
	EnqueueMutation(ctx context.Context, m *mutation.Pending) error
	ListMutations(ctx context.Context) ([]mutation.Pending, error)
	UpdateMutation(ctx context.Context, m *mutation.Pending) error
	RemoveMutation(ctx context.Context, id string) error

	Backend() string
	Close() error
}

type Options struct {
	Backend    string
	SQLitePath string
	KVPath     string
}

// Open выбирает носитель один раз при старте. Если SQLite не открывается,
// используется файловое KV хранилище. Во время работы SQLite оборачивается
// в FallbackStore, который однократно деградирует на KV при сбое.
func Open(opts Options, log *slog.Logger) (Store, error) {
	openKV := func() (Store, error) {
		return NewKVStore(afero.NewOsFs(), opts.KVPath, log)
	}

	if opts.Backend == BackendKV {
		kv, err := openKV()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		return kv, nil
	}

	db, err := NewSQLiteStore(opts.SQLitePath, log)
	if err != nil {
		log.Warn("Не удалось инициализировать SQLite, используем файловое хранилище", "error", err)
		kv, kvErr := openKV()
		if kvErr != nil {
			return nil, fmt.Errorf("%w: sqlite: %v; kv: %v", ErrStorageUnavailable, err, kvErr)
		}
		return kv, nil
	}

	return NewFallbackStore(db, openKV, log), nil
}
