package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	gosync "sync"
	"syscall"
	"time"

	"fieldsync/internal/app/client/config"
	"fieldsync/internal/app/client/storage"
	"fieldsync/internal/domain/catalog"
	"fieldsync/internal/domain/location"
	"fieldsync/internal/domain/mutation"
	"fieldsync/internal/domain/order"
	"fieldsync/internal/domain/sale"

	"github.com/tidwall/gjson"
	"golang.org/x/exp/slog"
)

// App связывает хранилище, очередь и менеджеры синхронизации клиента
type App struct {
	config     *config.Config
	log        *slog.Logger
	httpClient *httpClient
	store      storage.Store
	oracle     Oracle
	probe      *ProbeOracle

	queue     *MutationQueue
	orders    *OrderManager
	locations *LocationTracker
	products  *ReferenceCache[catalog.Product, catalog.ProductFilter]
	customers *ReferenceCache[catalog.Customer, catalog.CustomerFilter]
	sync      *SyncService

	authenticated bool
	wg            gosync.WaitGroup
	cancel        context.CancelFunc
	mu            gosync.RWMutex
}

type Option func(*options)

type options struct {
	oracle Oracle
	store  storage.Store
}

// WithOracle подменяет оракул связи (принудительный офлайн, тесты)
func WithOracle(o Oracle) Option {
	return func(opts *options) { opts.oracle = o }
}

// WithStore использует уже открытое хранилище
func WithStore(s storage.Store) Option {
	return func(opts *options) { opts.store = s }
}

func New(cfg *config.Config, log *slog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	httpCl := NewHTTPClient(cfg, log)

	store := o.store
	if store == nil {
		var err error
		store, err = storage.Open(storage.Options{
			Backend:    cfg.StorageBackend,
			SQLitePath: cfg.DataPath,
			KVPath:     cfg.KVPath,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("ошибка инициализации хранилища: %w", err)
		}
	}

	app := &App{
		config:     cfg,
		log:        log,
		httpClient: httpCl,
		store:      store,
		oracle:     o.oracle,
	}

	if app.oracle == nil {
		app.probe = NewProbeOracle(httpCl, cfg.ProbeInterval, log)
		httpCl.SetReporter(app.probe)
		app.oracle = app.probe
	}

	app.queue = NewMutationQueue(store, httpCl, app.oracle, cfg.MaxMutationAttempts, log)
	app.orders = NewOrderManager(store, httpCl, app.queue, app.oracle, log)
	app.locations = NewLocationTracker(store, httpCl, app.oracle, cfg.LocationBatchSize, log)
	app.products = NewProductCache(store, httpCl, app.oracle, cfg.CacheStaleAfter, log)
	app.customers = NewCustomerCache(store, httpCl, app.oracle, cfg.CacheStaleAfter, log)
	app.sync = NewSyncService(app.queue, app.orders, app.locations, app.products, app.customers, app.oracle,
		SyncOptions{RefreshCache: cfg.RefreshCacheOnSync, StatsDir: cfg.ConfigDir}, log)

	// Загружаем токен если он есть
	if token, err := app.GetToken(); err == nil && token != "" {
		httpCl.SetToken(token)
		app.authenticated = true
		log.Debug("Токен загружен из файла")
	}

	return app, nil
}

// Run запускает фоновые задачи: проверку связи, автосинхронизацию и,
// если передан источник координат, трекинг геопозиции
func (a *App) Run(ctx context.Context, provider PositionProvider) error {
	ctx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()

	go a.handleSignals(ctx)

	if a.probe != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.probe.Run(ctx)
		}()
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.sync.StartAutoSync(ctx, a.config.SyncInterval)
	}()

	if provider != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.locations.Run(ctx, provider, a.config.LocationInterval)
		}()
	}

	a.log.Info("Клиент запущен",
		"server", a.config.ServerAddress,
		"env", a.config.Env,
		"device_id", a.config.DeviceID,
		"storage", a.store.Backend(),
	)

	a.wg.Wait()
	return nil
}

func (a *App) handleSignals(ctx context.Context) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		a.log.Info("Получен сигнал завершения", "signal", sig.String())
		a.stop()
	case <-ctx.Done():
	}
}

func (a *App) stop() {
	a.mu.RLock()
	cancel := a.cancel
	a.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}

// Shutdown останавливает фоновые задачи и закрывает хранилище
func (a *App) Shutdown() {
	a.log.Info("Завершение работы клиента...")

	a.stop()
	a.wg.Wait()

	if err := a.store.Close(); err != nil {
		a.log.Error("Ошибка закрытия хранилища", "error", err)
	}
	a.log.Info("Клиент завершил работу")
}

// IsOnline возвращает последнее известное состояние связи
func (a *App) IsOnline() bool {
	return a.oracle.IsOnline()
}

// CheckConnection выполняет разовую проверку сервера
func (a *App) CheckConnection(ctx context.Context) error {
	if a.probe == nil {
		return a.httpClient.Health(ctx)
	}
	if !a.probe.Probe(ctx) {
		return &ConnectivityError{Op: "GET /api/v1/health", Err: ErrOffline}
	}
	return nil
}

// StorageBackend возвращает активный носитель локального хранилища
func (a *App) StorageBackend() string {
	return a.store.Backend()
}

// IsAuthenticated проверяет, есть ли сохраненный токен
func (a *App) IsAuthenticated() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.authenticated {
		token, err := a.GetToken()
		if err == nil && token != "" {
			a.authenticated = true
		}
	}

	return a.authenticated
}

// GetToken возвращает сохраненный токен
func (a *App) GetToken() (string, error) {
	tokenBytes, err := os.ReadFile(a.config.TokenPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("токен не найден. Выполните вход: fieldsync auth login")
		}
		return "", fmt.Errorf("ошибка чтения токена: %w", err)
	}
	return strings.TrimSpace(string(tokenBytes)), nil
}

// SaveToken сохраняет токен аутентификации
func (a *App) SaveToken(token string) error {
	if err := os.WriteFile(a.config.TokenPath, []byte(token), 0600); err != nil {
		return fmt.Errorf("ошибка сохранения токена: %w", err)
	}

	a.httpClient.SetToken(token)

	a.mu.Lock()
	a.authenticated = true
	a.mu.Unlock()

	return nil
}

// ClearToken удаляет токен
func (a *App) ClearToken() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.authenticated = false
	a.httpClient.SetToken("")

	if err := os.Remove(a.config.TokenPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления токена: %w", err)
	}
	return nil
}

// Login проверяет токен на сервере и сохраняет его. Без связи токен
// сохраняется без проверки: отказ придет при первой синхронизации.
func (a *App) Login(ctx context.Context, token string) (verified bool, err error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return false, fmt.Errorf("токен не может быть пустым")
	}

	a.httpClient.SetToken(token)

	if a.oracle.IsOnline() {
		deviceID, err := a.httpClient.CheckSession(ctx)
		switch {
		case err == nil:
			verified = true
			a.log.Info("Токен подтвержден сервером", "device_id", deviceID)
		case IsRetryable(err):
			a.log.Warn("Токен сохранен без проверки", "error", err)
		default:
			a.httpClient.SetToken("")
			return false, fmt.Errorf("токен отклонен: %w", err)
		}
	}

	if err := a.SaveToken(token); err != nil {
		return false, err
	}
	return verified, nil
}

// CreateOrder создает заказ, см. OrderManager.CreateOrder
func (a *App) CreateOrder(ctx context.Context, req order.CreateRequest) (*OrderResult, error) {
	return a.orders.CreateOrder(ctx, req)
}

// UpdateOrderStatus меняет статус заказа
func (a *App) UpdateOrderStatus(ctx context.Context, localID string, status order.Status) (*OrderResult, error) {
	return a.orders.UpdateOrderStatus(ctx, localID, status)
}

func (a *App) ListOrders(ctx context.Context) ([]order.LocalOrder, error) {
	return a.orders.ListOrders(ctx)
}

func (a *App) GetOrder(ctx context.Context, localID string) (*order.LocalOrder, error) {
	return a.orders.GetOrder(ctx, localID)
}

// CreateSale регистрирует продажу; без связи она откладывается в очередь
func (a *App) CreateSale(ctx context.Context, req sale.CreateRequest) (*WriteResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.SoldAt.IsZero() {
		req.SoldAt = time.Now().UTC()
	}
	return a.write(ctx, "/api/v1/sales", req)
}

// CreateCustomer создает клиента; без связи создание откладывается в очередь
func (a *App) CreateCustomer(ctx context.Context, req catalog.CreateCustomerRequest) (*WriteResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return a.write(ctx, "/api/v1/customers", req)
}

func (a *App) write(ctx context.Context, endpoint string, payload any) (*WriteResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("ошибка маршалинга запроса: %w", err)
	}

	resp, err := a.queue.Execute(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return writeResult(0, err)
	}

	// Вызов уже выполнен сервером, поэтому неожиданный ответ только логируем
	id := gjson.GetBytes(resp, "id")
	if id.Type != gjson.Number {
		a.log.Warn("Ответ без числового id", "endpoint", endpoint)
	}
	return writeResult(id.Int(), nil)
}

// RecordLocation сохраняет точку маршрута
func (a *App) RecordLocation(ctx context.Context, lat, lon, accuracy float64) (*location.Sample, error) {
	return a.locations.RecordLocation(ctx, lat, lon, accuracy)
}

// GetProducts возвращает товары с сервера или из кэша
func (a *App) GetProducts(ctx context.Context, f catalog.ProductFilter) (*CacheResult[catalog.Product], error) {
	return a.products.Get(ctx, f)
}

// GetCustomers возвращает клиентов с сервера или из кэша
func (a *App) GetCustomers(ctx context.Context, f catalog.CustomerFilter) (*CacheResult[catalog.Customer], error) {
	return a.customers.Get(ctx, f)
}

// SyncNow выполняет полный проход синхронизации
func (a *App) SyncNow(ctx context.Context) (*SyncResult, error) {
	return a.sync.SyncNow(ctx)
}

// SyncStats возвращает статистику синхронизаций
func (a *App) SyncStats() *SyncStats {
	return a.sync.GetStats()
}

// ResetSyncStats обнуляет статистику синхронизаций
func (a *App) ResetSyncStats() {
	a.sync.ResetStats()
}

// PendingMutations возвращает отложенные вызовы по порядку
func (a *App) PendingMutations(ctx context.Context) ([]mutation.Pending, error) {
	return a.queue.Pending(ctx)
}

// RemoveMutation удаляет отложенный вызов без отправки
func (a *App) RemoveMutation(ctx context.Context, id string) error {
	err := a.queue.Remove(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("вызов %s не найден в очереди: %w", id, err)
	}
	return err
}
