package client

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"
)

func newTestQueue(t *testing.T, online bool, maxAttempts int) (*MutationQueue, *MockRemote, *ManualOracle) {
	t.Helper()
	remote := new(MockRemote)
	oracle := NewManualOracle(online)
	q := NewMutationQueue(newTestStore(t), remote, oracle, maxAttempts, slog.Default())
	return q, remote, oracle
}

func TestMutationQueue_Execute(t *testing.T) {
	ctx := context.Background()
	payload := []byte(`{"payment_method":"cash"}`)

	t.Run("offline is deferred without calls", func(t *testing.T) {
		q, remote, _ := newTestQueue(t, false, 0)

		_, err := q.Execute(ctx, http.MethodPost, "/api/v1/sales", payload)

		require.ErrorIs(t, err, ErrDeferred)
		var deferred *DeferredError
		require.True(t, errors.As(err, &deferred))
		assert.NotEmpty(t, deferred.MutationID)

		pending, err := q.Pending(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, deferred.MutationID, pending[0].ID)
		assert.Equal(t, "/api/v1/sales", pending[0].Endpoint)
		assert.JSONEq(t, string(payload), string(pending[0].Payload))
		remote.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("online success is live", func(t *testing.T) {
		q, remote, _ := newTestQueue(t, true, 0)
		remote.On("Send", mock.Anything, http.MethodPost, "/api/v1/sales", mock.Anything,
			mock.MatchedBy(func(key string) bool { return key != "" })).
			Return([]byte(`{"id":7,"status":"Ok"}`), nil).Once()

		body, err := q.Execute(ctx, http.MethodPost, "/api/v1/sales", payload)

		require.NoError(t, err)
		assert.JSONEq(t, `{"id":7,"status":"Ok"}`, string(body))
		pending, err := q.Pending(ctx)
		require.NoError(t, err)
		assert.Empty(t, pending)
		remote.AssertExpectations(t)
	})

	t.Run("connectivity failure is deferred", func(t *testing.T) {
		q, remote, _ := newTestQueue(t, true, 0)
		remote.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errBadGate).Once()

		_, err := q.Execute(ctx, http.MethodPost, "/api/v1/sales", payload)

		require.ErrorIs(t, err, ErrDeferred)
		pending, err := q.Pending(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Contains(t, pending[0].LastError, "502")
		assert.Equal(t, 0, pending[0].Attempts)
	})

	t.Run("rejection is propagated and not queued", func(t *testing.T) {
		q, remote, _ := newTestQueue(t, true, 0)
		remote.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errRejected).Once()

		_, err := q.Execute(ctx, http.MethodPost, "/api/v1/sales", payload)

		require.Error(t, err)
		assert.True(t, IsRejection(err))
		assert.False(t, errors.Is(err, ErrDeferred))
		pending, err := q.Pending(ctx)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})
}

func enqueueOffline(t *testing.T, q *MutationQueue, oracle *ManualOracle, endpoints ...string) []string {
	t.Helper()
	oracle.Set(false)
	ids := make([]string, 0, len(endpoints))
	for _, ep := range endpoints {
		_, err := q.Execute(context.Background(), http.MethodPost, ep, []byte(`{}`))
		var deferred *DeferredError
		require.True(t, errors.As(err, &deferred))
		ids = append(ids, deferred.MutationID)
	}
	oracle.Set(true)
	return ids
}

func TestMutationQueue_DrainRejectionDoesNotBlockNext(t *testing.T) {
	ctx := context.Background()
	q, remote, oracle := newTestQueue(t, true, 0)
	ids := enqueueOffline(t, q, oracle, "/api/v1/customers", "/api/v1/sales")

	remote.On("Send", mock.Anything, http.MethodPost, "/api/v1/customers", mock.Anything, ids[0]).
		Return(nil, errRejected).Once()
	remote.On("Send", mock.Anything, http.MethodPost, "/api/v1/sales", mock.Anything, ids[1]).
		Return([]byte(`{"id":1}`), nil).Once()

	res, err := q.Drain(ctx)

	require.NoError(t, err)
	assert.Equal(t, DrainResult{Drained: 1, Rejected: 1}, res)
	remote.AssertExpectations(t)
	require.Equal(t, "/api/v1/customers", remote.Calls[0].Arguments.String(2))

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, ids[0], pending[0].ID)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.Contains(t, pending[0].LastError, "invalid")
	assert.NotNil(t, pending[0].LastAttemptAt)
	assert.False(t, pending[0].Dead)
}

func TestMutationQueue_DrainStopsOnConnectivityFailure(t *testing.T) {
	ctx := context.Background()
	q, remote, oracle := newTestQueue(t, true, 0)
	ids := enqueueOffline(t, q, oracle, "/api/v1/customers", "/api/v1/sales")

	remote.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, ids[0]).
		Return(nil, errTimeout).Once()

	res, err := q.Drain(ctx)

	require.NoError(t, err)
	assert.True(t, res.Stopped)
	assert.Equal(t, 0, res.Drained)
	remote.AssertNumberOfCalls(t, "Send", 1)

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, ids, []string{pending[0].ID, pending[1].ID})
	assert.Equal(t, 0, pending[0].Attempts)
}

func TestMutationQueue_DrainOfflineMakesNoCalls(t *testing.T) {
	q, remote, oracle := newTestQueue(t, true, 0)
	enqueueOffline(t, q, oracle, "/api/v1/sales")
	oracle.Set(false)

	res, err := q.Drain(context.Background())

	require.NoError(t, err)
	assert.True(t, res.Stopped)
	remote.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMutationQueue_DrainEmpty(t *testing.T) {
	q, remote, _ := newTestQueue(t, true, 0)

	res, err := q.Drain(context.Background())

	require.NoError(t, err)
	assert.Equal(t, DrainResult{}, res)
	remote.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMutationQueue_DeadLetter(t *testing.T) {
	ctx := context.Background()
	q, remote, oracle := newTestQueue(t, true, 2)
	ids := enqueueOffline(t, q, oracle, "/api/v1/sales")

	remote.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, ids[0]).
		Return(nil, errRejected).Twice()

	_, err := q.Drain(ctx)
	require.NoError(t, err)
	res, err := q.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rejected)

	res, err = q.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	remote.AssertNumberOfCalls(t, "Send", 2)

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.True(t, pending[0].Dead)
	assert.Equal(t, 2, pending[0].Attempts)
}

func TestMutationQueue_ConcurrentDrainsReplayOnce(t *testing.T) {
	ctx := context.Background()
	q, remote, oracle := newTestQueue(t, true, 0)
	ids := enqueueOffline(t, q, oracle, "/api/v1/sales", "/api/v1/sales", "/api/v1/customers")

	remote.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]byte(`{"id":1}`), nil)

	var g errgroup.Group
	results := make([]DrainResult, 2)
	for i := range results {
		i := i
		g.Go(func() error {
			res, err := q.Drain(ctx)
			results[i] = res
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, len(ids), results[0].Drained+results[1].Drained)
	remote.AssertNumberOfCalls(t, "Send", len(ids))
	for _, id := range ids {
		remote.AssertCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, id)
	}
}

func TestMutationQueue_Remove(t *testing.T) {
	ctx := context.Background()
	q, _, oracle := newTestQueue(t, true, 0)
	ids := enqueueOffline(t, q, oracle, "/api/v1/sales")

	require.NoError(t, q.Remove(ctx, ids[0]))

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Error(t, q.Remove(ctx, ids[0]))
}

func TestMutationQueue_ExecuteQueuesBehindBacklog(t *testing.T) {
	ctx := context.Background()
	q, remote, oracle := newTestQueue(t, true, 0)
	ids := enqueueOffline(t, q, oracle, "/api/v1/customers")

	_, err := q.Execute(ctx, http.MethodPost, "/api/v1/sales", []byte(`{}`))

	require.ErrorIs(t, err, ErrDeferred)
	assert.ErrorIs(t, err, ErrQueueBacklog)
	remote.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, ids[0], pending[0].ID)
	assert.Equal(t, "/api/v1/sales", pending[1].Endpoint)

	remote.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]byte(`{"id":1}`), nil)

	res, err := q.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Drained)
	assert.Equal(t, "/api/v1/customers", remote.Calls[0].Arguments.String(2))
	assert.Equal(t, "/api/v1/sales", remote.Calls[1].Arguments.String(2))

	_, err = q.Execute(ctx, http.MethodPost, "/api/v1/sales", []byte(`{}`))
	require.NoError(t, err)
	remote.AssertNumberOfCalls(t, "Send", 3)
}

func TestMutationQueue_ExecuteDuringDrainIsQueued(t *testing.T) {
	q, remote, _ := newTestQueue(t, true, 0)

	q.drainMu.Lock()
	_, err := q.Execute(context.Background(), http.MethodPost, "/api/v1/sales", []byte(`{}`))
	q.drainMu.Unlock()

	assert.ErrorIs(t, err, ErrQueueBacklog)
	remote.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMutationQueue_DeadItemsDoNotHoldBackLiveCalls(t *testing.T) {
	ctx := context.Background()
	q, remote, oracle := newTestQueue(t, true, 1)
	ids := enqueueOffline(t, q, oracle, "/api/v1/customers")

	remote.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, ids[0]).
		Return(nil, errRejected).Once()
	_, err := q.Drain(ctx)
	require.NoError(t, err)

	remote.On("Send", mock.Anything, http.MethodPost, "/api/v1/sales", mock.Anything, mock.Anything).
		Return([]byte(`{"id":5}`), nil).Once()

	body, err := q.Execute(ctx, http.MethodPost, "/api/v1/sales", []byte(`{}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":5}`, string(body))
}
