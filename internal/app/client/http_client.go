package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"fieldsync/internal/app/client/config"
	"fieldsync/internal/domain/catalog"
	"fieldsync/internal/domain/location"
	"fieldsync/internal/domain/order"

	"github.com/tidwall/gjson"
	"golang.org/x/exp/slog"
	"golang.org/x/time/rate"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerDeviceID       = "X-Device-ID"
	maxResponseSize      = 4 << 20
)

type httpClient struct {
	client    *http.Client
	log       *slog.Logger
	baseURL   string
	deviceID  string
	userAgent string
	timeout   time.Duration
	limiter   *rate.Limiter

	mu       sync.RWMutex
	token    string
	reporter outcomeReporter
}

func NewHTTPClient(cfg *config.Config, log *slog.Logger) *httpClient {
	client := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 10,
		},
	}

	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		burst = max(1, int(cfg.RequestsPerSecond))
	}

	return &httpClient{
		client:    client,
		log:       log.With("component", "http_client"),
		baseURL:   cfg.BaseURL(),
		deviceID:  cfg.DeviceID,
		userAgent: "FieldSync-Client/1.0",
		timeout:   cfg.RequestTimeout,
		limiter:   rate.NewLimiter(limit, burst),
	}
}

// SetToken устанавливает токен аутентификации
func (h *httpClient) SetToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = token
}

// SetReporter подключает получателя итогов вызовов (оракул связи)
func (h *httpClient) SetReporter(r outcomeReporter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reporter = r
}

func (h *httpClient) report(err error) {
	h.mu.RLock()
	r := h.reporter
	h.mu.RUnlock()
	if r == nil {
		return
	}
	if err == nil {
		r.ReportSuccess()
		return
	}
	r.ReportFailure(err)
}

// Health проверяет доступность сервера
func (h *httpClient) Health(ctx context.Context) error {
	_, err := h.Send(ctx, http.MethodGet, "/api/v1/health", nil, "")
	return err
}

// CheckSession проверяет токен и возвращает id устройства, известный серверу
func (h *httpClient) CheckSession(ctx context.Context) (string, error) {
	body, err := h.Send(ctx, http.MethodGet, "/api/v1/session", nil, "")
	if err != nil {
		return "", err
	}
	device := gjson.GetBytes(body, "device_id")
	if device.Type != gjson.String {
		return "", h.shapeError("GET /api/v1/session", "нет поля device_id")
	}
	return device.Str, nil
}

// Send выполняет вызов и классифицирует результат: ConnectivityError,
// RejectionError или тело успешного ответа
func (h *httpClient) Send(ctx context.Context, method, endpoint string, payload []byte, idempotencyKey string) ([]byte, error) {
	op := method + " " + endpoint

	if err := h.limiter.Wait(ctx); err != nil {
		return nil, &ConnectivityError{Op: op, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", h.userAgent)
	if h.deviceID != "" {
		req.Header.Set(headerDeviceID, h.deviceID)
	}
	if idempotencyKey != "" {
		req.Header.Set(headerIdempotencyKey, idempotencyKey)
	}
	h.mu.RLock()
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	h.mu.RUnlock()

	h.log.Debug("Отправка запроса", "method", method, "url", req.URL.String())

	resp, err := h.client.Do(req)
	if err != nil {
		cerr := &ConnectivityError{Op: op, Err: err}
		h.report(cerr)
		return nil, cerr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		cerr := &ConnectivityError{Op: op, Err: err}
		h.report(cerr)
		return nil, cerr
	}

	h.log.Debug("Получен ответ", "status", resp.StatusCode, "size", len(body))

	if retryableStatus(resp.StatusCode) {
		cerr := &ConnectivityError{Op: op, Status: resp.StatusCode}
		h.report(cerr)
		return nil, cerr
	}

	h.report(nil)

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &RejectionError{Op: op, Status: resp.StatusCode, Message: errorMessage(body)}
	}

	return body, nil
}

// errorMessage извлекает текст ошибки из problem+json или {"error": ...}
func errorMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	for _, path := range []string{"detail", "error", "title"} {
		if v := gjson.GetBytes(body, path); v.Type == gjson.String && v.Str != "" {
			return v.Str
		}
	}
	return ""
}

// createdID проверяет ответ вида {"id": <число>}
func (h *httpClient) createdID(op string, body []byte) (int64, error) {
	if !gjson.ValidBytes(body) {
		return 0, h.shapeError(op, "тело ответа не является JSON")
	}
	id := gjson.GetBytes(body, "id")
	if id.Type != gjson.Number || id.Int() <= 0 {
		return 0, h.shapeError(op, "нет числового поля id")
	}
	return id.Int(), nil
}

func (h *httpClient) shapeError(op, reason string) error {
	err := &ShapeError{Op: op, Reason: reason}
	h.report(err)
	return err
}

// SendCreate выполняет вызов, создающий ресурс, и возвращает его id
func (h *httpClient) SendCreate(ctx context.Context, method, endpoint string, payload []byte, idempotencyKey string) (int64, error) {
	body, err := h.Send(ctx, method, endpoint, payload, idempotencyKey)
	if err != nil {
		return 0, err
	}
	return h.createdID(method+" "+endpoint, body)
}

// CreateOrder создает заказ; local_id служит ключом идемпотентности
func (h *httpClient) CreateOrder(ctx context.Context, p order.Payload) (int64, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return 0, fmt.Errorf("ошибка маршалинга заказа: %w", err)
	}
	return h.SendCreate(ctx, http.MethodPost, "/api/v1/orders", body, p.LocalID)
}

// UploadLocation отправляет одну точку; id точки служит ключом идемпотентности
func (h *httpClient) UploadLocation(ctx context.Context, req location.UploadRequest) (int64, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("ошибка маршалинга геопозиции: %w", err)
	}
	return h.SendCreate(ctx, http.MethodPost, "/api/v1/locations", body, req.SampleID)
}

func (h *httpClient) ListProducts(ctx context.Context, f catalog.ProductFilter) ([]catalog.Product, error) {
	var products []catalog.Product
	if err := h.getList(ctx, "/api/v1/products", f.Query().Encode(), &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (h *httpClient) ListCustomers(ctx context.Context, f catalog.CustomerFilter) ([]catalog.Customer, error) {
	var customers []catalog.Customer
	if err := h.getList(ctx, "/api/v1/customers", f.Query().Encode(), &customers); err != nil {
		return nil, err
	}
	return customers, nil
}

func (h *httpClient) getList(ctx context.Context, endpoint, query string, out any) error {
	if query != "" {
		endpoint += "?" + query
	}
	op := http.MethodGet + " " + endpoint

	body, err := h.Send(ctx, http.MethodGet, endpoint, nil, "")
	if err != nil {
		return err
	}
	if !gjson.ValidBytes(body) {
		return h.shapeError(op, "тело ответа не является JSON")
	}
	if !gjson.ParseBytes(body).IsArray() {
		return h.shapeError(op, "ожидался массив")
	}
	if err := json.Unmarshal(body, out); err != nil {
		return h.shapeError(op, err.Error())
	}
	return nil
}
