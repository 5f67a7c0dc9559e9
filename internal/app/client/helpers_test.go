package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"fieldsync/internal/app/client/storage"
	"fieldsync/internal/domain/catalog"
	"fieldsync/internal/domain/location"
	"fieldsync/internal/domain/order"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

// MockRemote подменяет удаленный сервис во всех менеджерах
type MockRemote struct {
	mock.Mock
}

func (m *MockRemote) Send(ctx context.Context, method, endpoint string, payload []byte, key string) ([]byte, error) {
	args := m.Called(ctx, method, endpoint, payload, key)
	body, _ := args.Get(0).([]byte)
	return body, args.Error(1)
}

func (m *MockRemote) CreateOrder(ctx context.Context, p order.Payload) (int64, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRemote) UploadLocation(ctx context.Context, req location.UploadRequest) (int64, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRemote) ListProducts(ctx context.Context, f catalog.ProductFilter) ([]catalog.Product, error) {
	args := m.Called(ctx, f)
	products, _ := args.Get(0).([]catalog.Product)
	return products, args.Error(1)
}

func (m *MockRemote) ListCustomers(ctx context.Context, f catalog.CustomerFilter) ([]catalog.Customer, error) {
	args := m.Called(ctx, f)
	customers, _ := args.Get(0).([]catalog.Customer)
	return customers, args.Error(1)
}

func newTestStore(t *testing.T) *storage.KVStore {
	t.Helper()
	s, err := storage.NewKVStore(afero.NewMemMapFs(), "/data", slog.Default())
	require.NoError(t, err)
	return s
}

// fakeClock выдает строго возрастающее время
type fakeClock struct {
	mu  sync.Mutex
	cur time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{cur: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

var (
	errTimeout  = &ConnectivityError{Op: "test", Err: context.DeadlineExceeded}
	errBadGate  = &ConnectivityError{Op: "test", Status: 502}
	errRejected = &RejectionError{Op: "test", Status: 422, Message: "invalid"}
)
