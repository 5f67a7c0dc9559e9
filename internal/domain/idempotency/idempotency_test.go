package idempotency

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Lookup(ctx context.Context, scope, key string) (int64, bool, error) {
	args := m.Called(ctx, scope, key)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

func (m *MockRepository) Save(ctx context.Context, scope, key string, id int64) error {
	args := m.Called(ctx, scope, key, id)
	return args.Error(0)
}

func TestService_Do_FirstCall(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, slog.Default())
	repo.On("Lookup", mock.Anything, "orders", "k1").Return(int64(0), false, nil)
	repo.On("Save", mock.Anything, "orders", "k1", int64(3)).Return(nil)

	calls := 0
	id, replayed, err := svc.Do(context.Background(), "orders", "k1", func(context.Context) (int64, error) {
		calls++
		return 3, nil
	})

	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
	assert.False(t, replayed)
	assert.Equal(t, 1, calls)
	repo.AssertExpectations(t)
}

func TestService_Do_Replay(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, slog.Default())
	repo.On("Lookup", mock.Anything, "orders", "k1").Return(int64(3), true, nil)

	id, replayed, err := svc.Do(context.Background(), "orders", "k1", func(context.Context) (int64, error) {
		t.Fatal("must not be called")
		return 0, nil
	})

	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
	assert.True(t, replayed)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Do_FailureNotRemembered(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, slog.Default())
	repo.On("Lookup", mock.Anything, "sales", "k2").Return(int64(0), false, nil)

	_, _, err := svc.Do(context.Background(), "sales", "k2", func(context.Context) (int64, error) {
		return 0, errors.New("rejected")
	})

	assert.EqualError(t, err, "rejected")
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Do_EmptyKey(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, slog.Default())

	id, replayed, err := svc.Do(context.Background(), "sales", "", func(context.Context) (int64, error) {
		return 8, nil
	})

	require.NoError(t, err)
	assert.Equal(t, int64(8), id)
	assert.False(t, replayed)
	repo.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything, mock.Anything)
}
