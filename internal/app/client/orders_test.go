package client

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"fieldsync/internal/app/client/storage"
	"fieldsync/internal/domain/order"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type orderFixture struct {
	manager *OrderManager
	queue   *MutationQueue
	remote  *MockRemote
	oracle  *ManualOracle
	store   storage.Store
}

func newOrderFixture(t *testing.T, online bool) *orderFixture {
	t.Helper()
	store := newTestStore(t)
	remote := new(MockRemote)
	oracle := NewManualOracle(online)
	queue := NewMutationQueue(store, remote, oracle, 0, slog.Default())
	manager := NewOrderManager(store, remote, queue, oracle, slog.Default())
	manager.now = newFakeClock().Now
	return &orderFixture{manager: manager, queue: queue, remote: remote, oracle: oracle, store: store}
}

func shopRequest() order.CreateRequest {
	return order.CreateRequest{
		CustomerID:   42,
		CustomerName: "ООО Ромашка",
		Items: []order.ItemRequest{
			{ProductID: 1, ProductName: "Молоко 1л", Quantity: 2, UnitPrice: 15000},
			{ProductID: 2, ProductName: "Хлеб", Quantity: 1, UnitPrice: 9900},
		},
	}
}

func TestOrderManager_OfflineOrderScenario(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, false)

	res, err := f.manager.CreateOrder(ctx, shopRequest())
	require.NoError(t, err)

	assert.Equal(t, SourceDeferred, res.Source)
	assert.False(t, res.Order.Synced)
	assert.Nil(t, res.Order.ServerID)
	assert.Equal(t, int64(39900), res.Order.TotalAmount)
	assert.Equal(t, order.StatusPending, res.Order.Status)
	assert.Equal(t, "ООО Ромашка", res.Order.CustomerName)
	assert.Equal(t, int64(30000), res.Order.Items[0].Subtotal)
	f.remote.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)

	unsynced, err := f.store.ListUnsyncedOrders(ctx)
	require.NoError(t, err)
	require.Len(t, unsynced, 1)

	f.oracle.Set(true)
	f.remote.On("CreateOrder", mock.Anything, mock.MatchedBy(func(p order.Payload) bool {
		return p.LocalID == res.Order.LocalID && p.TotalAmount == 39900 && p.CustomerID == 42
	})).Return(int64(501), nil).Once()

	syncRes, err := f.manager.SyncOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, syncRes.Synced)

	stored, err := f.manager.GetOrder(ctx, res.Order.LocalID)
	require.NoError(t, err)
	assert.True(t, stored.Synced)
	require.NotNil(t, stored.ServerID)
	assert.Equal(t, int64(501), *stored.ServerID)
	assert.NotNil(t, stored.SyncedAt)

	// Повторный проход ничего не отправляет
	syncRes, err = f.manager.SyncOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, OrderSyncResult{}, syncRes)
	f.remote.AssertNumberOfCalls(t, "CreateOrder", 1)
}

func TestOrderManager_CreateOrder(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		online     bool
		remoteErr  error
		wantErr    bool
		wantSource Source
		wantSynced bool
		wantStored int
	}{
		{name: "online confirmed", online: true, wantSource: SourceLive, wantSynced: true, wantStored: 1},
		{name: "timeout stored locally", online: true, remoteErr: errTimeout, wantSource: SourceDeferred, wantStored: 1},
		{name: "server error stored locally", online: true, remoteErr: errBadGate, wantSource: SourceDeferred, wantStored: 1},
		{name: "rejected not stored", online: true, remoteErr: errRejected, wantErr: true},
		{name: "offline stored locally", online: false, wantSource: SourceDeferred, wantStored: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderFixture(t, tt.online)
			f.remote.On("CreateOrder", mock.Anything, mock.Anything).Return(int64(77), tt.remoteErr).Maybe()

			res, err := f.manager.CreateOrder(ctx, shopRequest())

			orders, lerr := f.store.ListOrders(ctx)
			require.NoError(t, lerr)
			assert.Len(t, orders, tt.wantStored)

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsRejection(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSource, res.Source)
			assert.Equal(t, tt.wantSynced, orders[0].Synced)
			assert.Equal(t, tt.wantSynced, orders[0].ServerID != nil)
		})
	}
}

func TestOrderManager_CreateOrderValidation(t *testing.T) {
	f := newOrderFixture(t, true)

	req := shopRequest()
	req.Items = nil
	_, err := f.manager.CreateOrder(context.Background(), req)
	assert.ErrorIs(t, err, order.ErrNoItems)

	req = shopRequest()
	req.Items[1].Quantity = 0
	_, err = f.manager.CreateOrder(context.Background(), req)
	assert.ErrorIs(t, err, order.ErrInvalidQuantity)

	f.remote.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestOrderManager_UpdateOrderStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("unsynced order changes locally", func(t *testing.T) {
		f := newOrderFixture(t, false)
		created, err := f.manager.CreateOrder(ctx, shopRequest())
		require.NoError(t, err)
		f.oracle.Set(true)

		res, err := f.manager.UpdateOrderStatus(ctx, created.Order.LocalID, order.StatusProcessing)
		require.NoError(t, err)
		assert.Equal(t, SourceDeferred, res.Source)
		assert.Equal(t, order.StatusProcessing, res.Order.Status)
		f.remote.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)

		pending, err := f.queue.Pending(ctx)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("synced order goes to server", func(t *testing.T) {
		f := newOrderFixture(t, true)
		f.remote.On("CreateOrder", mock.Anything, mock.Anything).Return(int64(501), nil).Once()
		f.remote.On("Send", mock.Anything, http.MethodPatch, "/api/v1/orders/501/status",
			[]byte(`{"status":"completed"}`), mock.Anything).Return([]byte(`{"id":501,"status":"Ok"}`), nil).Once()

		created, err := f.manager.CreateOrder(ctx, shopRequest())
		require.NoError(t, err)

		res, err := f.manager.UpdateOrderStatus(ctx, created.Order.LocalID, order.StatusCompleted)
		require.NoError(t, err)
		assert.Equal(t, SourceLive, res.Source)

		stored, err := f.manager.GetOrder(ctx, created.Order.LocalID)
		require.NoError(t, err)
		assert.Equal(t, order.StatusCompleted, stored.Status)
		f.remote.AssertExpectations(t)
	})

	t.Run("same status is no-op", func(t *testing.T) {
		f := newOrderFixture(t, true)
		f.remote.On("CreateOrder", mock.Anything, mock.Anything).Return(int64(501), nil).Once()
		created, err := f.manager.CreateOrder(ctx, shopRequest())
		require.NoError(t, err)

		_, err = f.manager.UpdateOrderStatus(ctx, created.Order.LocalID, order.StatusPending)
		require.NoError(t, err)
		f.remote.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("offline synced order is optimistic", func(t *testing.T) {
		f := newOrderFixture(t, true)
		f.remote.On("CreateOrder", mock.Anything, mock.Anything).Return(int64(501), nil).Once()
		created, err := f.manager.CreateOrder(ctx, shopRequest())
		require.NoError(t, err)
		f.oracle.Set(false)

		res, err := f.manager.UpdateOrderStatus(ctx, created.Order.LocalID, order.StatusCancelled)
		require.NoError(t, err)
		assert.Equal(t, SourceDeferred, res.Source)

		stored, err := f.manager.GetOrder(ctx, created.Order.LocalID)
		require.NoError(t, err)
		assert.Equal(t, order.StatusCancelled, stored.Status)

		pending, err := f.queue.Pending(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "/api/v1/orders/501/status", pending[0].Endpoint)
	})

	t.Run("rejection keeps local state", func(t *testing.T) {
		f := newOrderFixture(t, true)
		f.remote.On("CreateOrder", mock.Anything, mock.Anything).Return(int64(501), nil).Once()
		f.remote.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errRejected).Once()
		created, err := f.manager.CreateOrder(ctx, shopRequest())
		require.NoError(t, err)

		_, err = f.manager.UpdateOrderStatus(ctx, created.Order.LocalID, order.StatusProcessing)
		require.Error(t, err)
		assert.True(t, IsRejection(err))

		stored, err := f.manager.GetOrder(ctx, created.Order.LocalID)
		require.NoError(t, err)
		assert.Equal(t, order.StatusPending, stored.Status)
	})

	t.Run("terminal status cannot change", func(t *testing.T) {
		f := newOrderFixture(t, false)
		created, err := f.manager.CreateOrder(ctx, shopRequest())
		require.NoError(t, err)
		_, err = f.manager.UpdateOrderStatus(ctx, created.Order.LocalID, order.StatusCompleted)
		require.NoError(t, err)

		_, err = f.manager.UpdateOrderStatus(ctx, created.Order.LocalID, order.StatusPending)
		assert.ErrorIs(t, err, order.ErrInvalidTransition)
	})

	t.Run("unknown order", func(t *testing.T) {
		f := newOrderFixture(t, true)
		_, err := f.manager.UpdateOrderStatus(ctx, "missing", order.StatusCompleted)
		assert.ErrorIs(t, err, order.ErrNotFound)
	})
}

func TestOrderManager_SyncOrdersRejectionContinues(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, false)

	first, err := f.manager.CreateOrder(ctx, shopRequest())
	require.NoError(t, err)
	second, err := f.manager.CreateOrder(ctx, shopRequest())
	require.NoError(t, err)

	f.oracle.Set(true)
	f.remote.On("CreateOrder", mock.Anything, mock.MatchedBy(func(p order.Payload) bool {
		return p.LocalID == first.Order.LocalID
	})).Return(int64(0), errRejected).Once()
	f.remote.On("CreateOrder", mock.Anything, mock.MatchedBy(func(p order.Payload) bool {
		return p.LocalID == second.Order.LocalID
	})).Return(int64(900), nil).Once()

	res, err := f.manager.SyncOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, OrderSyncResult{Synced: 1, Rejected: 1}, res)

	unsynced, err := f.store.ListUnsyncedOrders(ctx)
	require.NoError(t, err)
	require.Len(t, unsynced, 1)
	assert.Equal(t, first.Order.LocalID, unsynced[0].LocalID)
}

func TestOrderManager_SyncOrdersStopsOnConnectivityFailure(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, false)

	for i := 0; i < 3; i++ {
		_, err := f.manager.CreateOrder(ctx, shopRequest())
		require.NoError(t, err)
	}

	f.oracle.Set(true)
	f.remote.On("CreateOrder", mock.Anything, mock.Anything).Return(int64(0), errTimeout).Once()

	res, err := f.manager.SyncOrders(ctx)
	require.NoError(t, err)
	assert.True(t, res.Stopped)
	f.remote.AssertNumberOfCalls(t, "CreateOrder", 1)
}

func TestOrderManager_SyncOrdersOfflineOrEmpty(t *testing.T) {
	ctx := context.Background()

	f := newOrderFixture(t, true)
	res, err := f.manager.SyncOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, OrderSyncResult{}, res)

	f = newOrderFixture(t, false)
	_, err = f.manager.CreateOrder(ctx, shopRequest())
	require.NoError(t, err)
	res, err = f.manager.SyncOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, OrderSyncResult{}, res)

	f.remote.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestOrderManager_ConcurrentSyncSubmitsOnce(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, false)

	const n = 5
	for i := 0; i < n; i++ {
		_, err := f.manager.CreateOrder(ctx, shopRequest())
		require.NoError(t, err)
	}

	f.oracle.Set(true)
	f.remote.On("CreateOrder", mock.Anything, mock.Anything).Return(int64(1), nil)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.manager.SyncOrders(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	f.remote.AssertNumberOfCalls(t, "CreateOrder", n)
	unsynced, err := f.store.ListUnsyncedOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, unsynced)
}

func TestOrderManager_StatusChangedDuringSubmission(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, false)
	created, err := f.manager.CreateOrder(ctx, shopRequest())
	require.NoError(t, err)
	f.oracle.Set(true)

	started := make(chan struct{})
	release := make(chan struct{})
	f.remote.On("CreateOrder", mock.Anything, mock.MatchedBy(func(p order.Payload) bool {
		return p.Status == order.StatusPending
	})).Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return(int64(99), nil).Once()
	f.remote.On("Send", mock.Anything, http.MethodPatch, "/api/v1/orders/99/status",
		[]byte(`{"status":"cancelled"}`), mock.Anything).Return([]byte(`{"id":99,"status":"Ok"}`), nil).Once()

	done := make(chan OrderSyncResult)
	go func() {
		res, err := f.manager.SyncOrders(ctx)
		assert.NoError(t, err)
		done <- res
	}()

	<-started
	res, err := f.manager.UpdateOrderStatus(ctx, created.Order.LocalID, order.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, SourceDeferred, res.Source)
	close(release)

	assert.Equal(t, 1, (<-done).Synced)
	f.remote.AssertExpectations(t)

	stored, err := f.manager.GetOrder(ctx, created.Order.LocalID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, stored.Status)
	assert.True(t, stored.Synced)
	require.NotNil(t, stored.ServerID)
	assert.Equal(t, int64(99), *stored.ServerID)

	pending, err := f.queue.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
