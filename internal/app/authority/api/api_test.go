package api

import (
	"net/http"
	"reflect"
	"net/http/httptest"
	"strings"
	"testing"

	healthAPI "fieldsync/internal/app/authority/api/http/health"
	"fieldsync/internal/domain/catalog"
	"fieldsync/internal/domain/order"
	"fieldsync/internal/domain/sale"
	"fieldsync/internal/infrastructure/storage/memory"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"
)

const testToken = "device-token"

func newTestRouter(t *testing.T) (*chi.Mux, *memory.Storage) {
	t.Helper()
	log := slog.Default()
	hash, err := bcrypt.GenerateFromPassword([]byte(testToken), bcrypt.MinCost)
	require.NoError(t, err)

	s := memory.New()
	s.Seed([]catalog.Product{
		{ID: 1, Name: "Молоко 1л", SKU: "MLK-1", Category: "dairy", Price: 15000, Active: true},
		{ID: 2, Name: "Кефир", SKU: "KFR-1", Category: "dairy", Price: 12000, Active: false},
	}, nil)

	return New(Repositories{
		Storage:     s,
		Orders:      memory.NewOrderRepository(s, log),
		Sales:       memory.NewSaleRepository(s),
		Locations:   memory.NewLocationRepository(s),
		Catalog:     memory.NewCatalogRepository(s),
		Idempotency: memory.NewIdempotencyRepository(s),
	}, string(hash), log), s
}

func do(mux http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func authHeaders(key string) map[string]string {
	h := map[string]string{
		"Authorization": "Bearer " + testToken,
		"X-Device-ID":   "device-1",
	}
	if key != "" {
		h["Idempotency-Key"] = key
	}
	return h
}

func TestAPI_HealthIsPublic(t *testing.T) {
	mux, _ := newTestRouter(t)

	rec := do(mux, http.MethodGet, "/api/v1/health", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "memory", gjson.Get(rec.Body.String(), "storage").Str)
}

func TestAPI_RequiresToken(t *testing.T) {
	mux, _ := newTestRouter(t)

	rec := do(mux, http.MethodGet, "/api/v1/products", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(mux, http.MethodGet, "/api/v1/session", "", authHeaders(""))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "device-1", gjson.Get(rec.Body.String(), "device_id").Str)
}

func TestAPI_SaleReplayIsCollapsed(t *testing.T) {
	mux, s := newTestRouter(t)
	body := `{"payment_method":"cash","items":[{"product_id":1,"quantity":2,"unit_price":15000}],"sold_at":"2026-05-01T08:30:00Z"}`

	first := do(mux, http.MethodPost, "/api/v1/sales", body, authHeaders("0190a1b2-0000-7000-8000-0000000000aa"))
	second := do(mux, http.MethodPost, "/api/v1/sales", body, authHeaders("0190a1b2-0000-7000-8000-0000000000aa"))

	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	require.Equal(t, http.StatusOK, second.Code, second.Body.String())
	id := gjson.Get(first.Body.String(), "id").Int()
	assert.Positive(t, id)
	assert.Equal(t, id, gjson.Get(second.Body.String(), "id").Int())
	assert.True(t, gjson.Get(second.Body.String(), "replayed").Bool())

	_, sales, _ := s.Counts()
	assert.Equal(t, 1, sales)
}

func TestAPI_SaleValidation(t *testing.T) {
	mux, _ := newTestRouter(t)
	body := `{"payment_method":"barter","items":[{"product_id":1,"quantity":1,"unit_price":100}],"sold_at":"2026-05-01T08:30:00Z"}`

	rec := do(mux, http.MethodPost, "/api/v1/sales", body, authHeaders("k"))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAPI_ProductsFilter(t *testing.T) {
	mux, _ := newTestRouter(t)

	rec := do(mux, http.MethodGet, "/api/v1/products?category=dairy&active=true", "", authHeaders(""))
	require.Equal(t, http.StatusOK, rec.Code)
	list := gjson.Parse(rec.Body.String())
	require.True(t, list.IsArray())
	require.Len(t, list.Array(), 1)
	assert.Equal(t, int64(1), list.Array()[0].Get("id").Int())

	rec = do(mux, http.MethodGet, "/api/v1/products?search=nothing", "", authHeaders(""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestSchemaNamer(t *testing.T) {
	tests := []struct {
		name string
		typ  reflect.Type
		want string
	}{
		{name: "order item", typ: reflect.TypeOf(order.Item{}), want: "OrderItem"},
		{name: "sale item", typ: reflect.TypeOf(sale.Item{}), want: "SaleItem"},
		{name: "pointer", typ: reflect.TypeOf(&healthAPI.Response{}), want: "HealthResponse"},
		{name: "anonymous uses hint", typ: reflect.TypeOf(struct{ A int }{}), want: "Body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, schemaNamer(tt.typ, "Body"))
		})
	}
}

func TestAPI_NewRegistersAllRoutes(t *testing.T) {
	assert.NotPanics(t, func() { newTestRouter(t) })
}
