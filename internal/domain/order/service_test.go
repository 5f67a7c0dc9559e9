package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, o *Order) (int64, error) {
	args := m.Called(ctx, o)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) Get(ctx context.Context, id int64) (*Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Order), args.Error(1)
}

func (m *MockRepository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func validPayload() Payload {
	return Payload{
		LocalID:      "local-1",
		CustomerID:   42,
		CustomerName: "ООО Ромашка",
		TotalAmount:  2*150 + 1*400,
		Items: []Item{
			{ProductID: 1, ProductName: "Чай", Quantity: 2, UnitPrice: 150, Subtotal: 300},
			{ProductID: 2, ProductName: "Кофе", Quantity: 1, UnitPrice: 400, Subtotal: 400},
		},
		CreatedAt: time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC),
	}
}

func TestService_Create(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Payload)
		repoErr error
		wantErr error
		wantID  int64
	}{
		{name: "valid order", mutate: func(p *Payload) {}, wantID: 7},
		{name: "no items", mutate: func(p *Payload) { p.Items = nil }, wantErr: ErrNoItems},
		{name: "bad customer", mutate: func(p *Payload) { p.CustomerID = 0 }, wantErr: ErrInvalidCustomer},
		{name: "total mismatch", mutate: func(p *Payload) { p.TotalAmount = 1 }, wantErr: ErrTotalMismatch},
		{name: "zero quantity", mutate: func(p *Payload) { p.Items[0].Quantity = 0 }, wantErr: ErrInvalidQuantity},
		{name: "unknown status", mutate: func(p *Payload) { p.Status = "lost" }, wantErr: ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			svc := NewService(repo, slog.Default())
			p := validPayload()
			tt.mutate(&p)

			if tt.wantErr == nil {
				repo.On("Create", mock.Anything, mock.MatchedBy(func(o *Order) bool {
					return o.LocalID == "local-1" && o.DeviceID == "dev-1" && o.Status == StatusPending
				})).Return(tt.wantID, tt.repoErr)
			}

			id, err := svc.Create(context.Background(), "dev-1", p)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
			repo.AssertExpectations(t)
		})
	}
}

func TestService_Create_RepositoryError(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, slog.Default())
	repo.On("Create", mock.Anything, mock.Anything).Return(int64(0), errors.New("db down"))

	_, err := svc.Create(context.Background(), "dev-1", validPayload())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "create order")
}

func TestService_UpdateStatus(t *testing.T) {
	tests := []struct {
		name       string
		current    Status
		next       Status
		wantUpdate bool
		wantErr    error
	}{
		{name: "pending to processing", current: StatusPending, next: StatusProcessing, wantUpdate: true},
		{name: "processing to completed", current: StatusProcessing, next: StatusCompleted, wantUpdate: true},
		{name: "same status is noop", current: StatusProcessing, next: StatusProcessing},
		{name: "completed is terminal", current: StatusCompleted, next: StatusPending, wantErr: ErrInvalidTransition},
		{name: "cancelled is terminal", current: StatusCancelled, next: StatusProcessing, wantErr: ErrInvalidTransition},
		{name: "invalid status", current: StatusPending, next: "archived", wantErr: ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			svc := NewService(repo, slog.Default())
			repo.On("Get", mock.Anything, int64(5)).Return(&Order{ID: 5, Status: tt.current}, nil)
			if tt.wantUpdate {
				repo.On("UpdateStatus", mock.Anything, int64(5), tt.next).Return(nil)
			}

			err := svc.UpdateStatus(context.Background(), 5, tt.next)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			if !tt.wantUpdate {
				repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestService_UpdateStatus_NotFound(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, slog.Default())
	repo.On("Get", mock.Anything, int64(9)).Return(nil, ErrNotFound)

	err := svc.UpdateStatus(context.Background(), 9, StatusCompleted)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewLocal(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	req := CreateRequest{
		CustomerID:   42,
		CustomerName: "ИП Иванов",
		Items: []ItemRequest{
			{ProductID: 1, ProductName: "Сахар", Quantity: 3, UnitPrice: 99},
			{ProductID: 2, ProductName: "Соль", Quantity: 1, UnitPrice: 25},
		},
	}

	o, err := NewLocal(req, "abc", now)
	require.NoError(t, err)
	assert.Equal(t, "abc", o.LocalID)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, int64(3*99+25), o.TotalAmount)
	assert.Equal(t, int64(297), o.Items[0].Subtotal)
	assert.Nil(t, o.ServerID)
	assert.False(t, o.Synced)
	assert.Equal(t, now, o.CreatedAt)

	_, err = NewLocal(CreateRequest{CustomerID: 1}, "x", now)
	assert.ErrorIs(t, err, ErrNoItems)

	req.Items[1].Quantity = -1
	_, err = NewLocal(req, "x", now)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestStatus_CanTransition(t *testing.T) {
	assert.True(t, StatusPending.CanTransition(StatusCancelled))
	assert.True(t, StatusPending.CanTransition(StatusPending))
	assert.False(t, StatusCompleted.CanTransition(StatusCancelled))
	assert.False(t, StatusPending.CanTransition("unknown"))
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusProcessing.Terminal())
}
