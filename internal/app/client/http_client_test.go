package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"fieldsync/internal/app/client/config"
	"fieldsync/internal/domain/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func newTestHTTPClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) (*httpClient, *ProbeOracle) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	hc := NewHTTPClient(&config.Config{
		ServerAddress:  strings.TrimPrefix(srv.URL, "http://"),
		RequestTimeout: timeout,
		DeviceID:       "device-1",
	}, slog.Default())
	hc.SetToken("secret")
	oracle := NewProbeOracle(hc, time.Minute, slog.Default())
	hc.SetReporter(oracle)
	return hc, oracle
}

func reply(status int, contentType, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestHTTPClient_SendClassification(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
		connErr    bool
		rejection  string
		online     bool
	}{
		{name: "ok", handler: reply(http.StatusOK, "application/json", `{"id":1}`), online: true},
		{name: "server error", handler: reply(http.StatusInternalServerError, "", ""), wantStatus: 500, connErr: true},
		{name: "bad gateway", handler: reply(http.StatusBadGateway, "", ""), wantStatus: 502, connErr: true},
		{name: "request timeout", handler: reply(http.StatusRequestTimeout, "", ""), wantStatus: 408, connErr: true},
		{name: "too many requests", handler: reply(http.StatusTooManyRequests, "", ""), wantStatus: 429, connErr: true},
		{
			name:      "problem json",
			handler:   reply(http.StatusUnprocessableEntity, "application/problem+json", `{"title":"Unprocessable Entity","detail":"order must contain at least one item"}`),
			rejection: "order must contain at least one item",
			online:    true,
		},
		{
			name:      "legacy error body",
			handler:   reply(http.StatusConflict, "application/json", `{"error":"transition not allowed"}`),
			rejection: "transition not allowed",
			online:    true,
		},
		{name: "rejection without body", handler: reply(http.StatusNotFound, "", ""), online: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc, oracle := newTestHTTPClient(t, tt.handler, time.Second)

			_, err := hc.Send(context.Background(), http.MethodPost, "/api/v1/sales", []byte(`{}`), "key-1")

			switch {
			case tt.connErr:
				var connErr *ConnectivityError
				require.True(t, errors.As(err, &connErr), "got %v", err)
				assert.Equal(t, tt.wantStatus, connErr.Status)
				assert.True(t, IsRetryable(err))
			case tt.name == "ok":
				require.NoError(t, err)
			default:
				var rej *RejectionError
				require.True(t, errors.As(err, &rej), "got %v", err)
				assert.Equal(t, tt.rejection, rej.Message)
				assert.False(t, IsRetryable(err))
			}
			assert.Equal(t, tt.online, oracle.IsOnline())
		})
	}
}

func TestHTTPClient_SendHeaders(t *testing.T) {
	headers := make(chan http.Header, 1)
	hc, _ := newTestHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
		_, _ = w.Write([]byte(`{"id":1}`))
	}, time.Second)

	_, err := hc.Send(context.Background(), http.MethodPost, "/api/v1/sales", []byte(`{}`), "key-1")
	require.NoError(t, err)
	got := <-headers

	assert.Equal(t, "Bearer secret", got.Get("Authorization"))
	assert.Equal(t, "device-1", got.Get("X-Device-ID"))
	assert.Equal(t, "key-1", got.Get("Idempotency-Key"))
	assert.NotEmpty(t, got.Get("User-Agent"))
}

func TestHTTPClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	hc, oracle := newTestHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, 50*time.Millisecond)
	defer close(release)

	_, err := hc.Send(context.Background(), http.MethodGet, "/api/v1/health", nil, "")

	var connErr *ConnectivityError
	require.True(t, errors.As(err, &connErr), "got %v", err)
	assert.Zero(t, connErr.Status)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, oracle.IsOnline())
}

func TestHTTPClient_SendCreateShape(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantID  int64
	}{
		{name: "created", handler: reply(http.StatusOK, "application/json", `{"id":17,"status":"Ok"}`), wantID: 17},
		{name: "html page", handler: reply(http.StatusOK, "text/html", `<html>login</html>`)},
		{name: "missing id", handler: reply(http.StatusOK, "application/json", `{"status":"Ok"}`)},
		{name: "string id", handler: reply(http.StatusOK, "application/json", `{"id":"17"}`)},
		{name: "empty body", handler: reply(http.StatusOK, "", "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc, oracle := newTestHTTPClient(t, tt.handler, time.Second)

			id, err := hc.SendCreate(context.Background(), http.MethodPost, "/api/v1/customers", []byte(`{}`), "key-1")

			if tt.wantID != 0 {
				require.NoError(t, err)
				assert.Equal(t, tt.wantID, id)
				assert.True(t, oracle.IsOnline())
				return
			}
			var shapeErr *ShapeError
			require.True(t, errors.As(err, &shapeErr), "got %v", err)
			assert.True(t, IsRetryable(err))
			assert.False(t, oracle.IsOnline())
		})
	}
}

func TestHTTPClient_ListShape(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantLen int
		shape   bool
	}{
		{name: "array", body: `[{"id":1,"name":"Молоко 1л"},{"id":2,"name":"Хлеб"}]`, wantLen: 2},
		{name: "empty array", body: `[]`, wantLen: 0},
		{name: "object", body: `{"items":[]}`, shape: true},
		{name: "null", body: `null`, shape: true},
		{name: "not json", body: `<html></html>`, shape: true},
		{name: "wrong element type", body: `[{"id":"one"}]`, shape: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queries := make(chan string, 1)
			hc, _ := newTestHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
				queries <- r.URL.RawQuery
				_, _ = w.Write([]byte(tt.body))
			}, time.Second)

			products, err := hc.ListProducts(context.Background(), catalog.ProductFilter{Category: "dairy"})

			assert.Contains(t, <-queries, "category=dairy")
			if tt.shape {
				var shapeErr *ShapeError
				require.True(t, errors.As(err, &shapeErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, products, tt.wantLen)
		})
	}
}

func TestOracle_FollowsHealthCheck(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	hc, oracle := newTestHTTPClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"OK"}`))
	}, time.Second)
	ctx := context.Background()

	assert.True(t, oracle.IsOnline(), "optimistic before the first health check")

	healthy.Store(false)
	assert.False(t, oracle.Probe(ctx))
	assert.False(t, oracle.IsOnline())

	healthy.Store(true)
	assert.True(t, oracle.Probe(ctx))
	assert.True(t, oracle.IsOnline())

	oracle.ReportFailure(&RejectionError{Op: "test", Status: 422})
	assert.True(t, oracle.IsOnline(), "a rejection proves the server is reachable")

	oracle.ReportFailure(errBadGate)
	assert.False(t, oracle.IsOnline())

	_, err := hc.Send(ctx, http.MethodGet, "/api/v1/health", nil, "")
	require.NoError(t, err)
	assert.True(t, oracle.IsOnline(), "any answered call brings the oracle back")
}
