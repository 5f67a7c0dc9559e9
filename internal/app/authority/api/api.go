// GET   /api/v1/health              # Состояние сервиса (публичный)
// GET   /api/v1/session             # Проверка токена и устройства (auth)
// POST  /api/v1/orders              # Создать заказ (auth, Idempotency-Key)
// GET   /api/v1/orders/{id}         # Получить заказ (auth)
// PATCH /api/v1/orders/{id}/status  # Сменить статус (auth, Idempotency-Key)
// POST  /api/v1/sales               # Продажа (auth, Idempotency-Key)
// POST  /api/v1/locations           # Точка геолокации (auth, Idempotency-Key)
// GET   /api/v1/products            # Каталог товаров (auth)
// GET   /api/v1/customers           # Клиенты (auth)
// POST  /api/v1/customers           # Новый клиент (auth, Idempotency-Key)

package api

import (
	"path"
	"reflect"
	"strings"

	catalogAPI "fieldsync/internal/app/authority/api/http/catalog"
	healthAPI "fieldsync/internal/app/authority/api/http/health"
	locationAPI "fieldsync/internal/app/authority/api/http/location"
	"fieldsync/internal/app/authority/api/http/middleware"
	"fieldsync/internal/app/authority/api/http/middleware/auth"
	"fieldsync/internal/app/authority/api/http/middleware/logger"
	orderAPI "fieldsync/internal/app/authority/api/http/order"
	saleAPI "fieldsync/internal/app/authority/api/http/sale"
	sessionAPI "fieldsync/internal/app/authority/api/http/session"
	"fieldsync/internal/domain/catalog"
	"fieldsync/internal/domain/idempotency"
	"fieldsync/internal/domain/location"
	"fieldsync/internal/domain/order"
	"fieldsync/internal/domain/sale"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"
)

// Repositories содержит хранилища, из которых собирается API
type Repositories struct {
	Storage     healthAPI.Pinger
	Orders      order.Repository
	Sales       sale.Repository
	Locations   location.Repository
	Catalog     catalog.Repository
	Idempotency idempotency.Repository
}

type Handlers struct {
	Health   *healthAPI.Handler
	Session  *sessionAPI.Handler
	Order    *orderAPI.Handler
	Sale     *saleAPI.Handler
	Location *locationAPI.Handler
	Catalog  *catalogAPI.Handler
}

// New создает *chi.Mux со всеми операциями через huma.Register
func New(repos Repositories, tokenHash string, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()

	config := huma.DefaultConfig("FieldSync Authority API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer"},
	}
	config.Components.Schemas = huma.NewMapRegistry("#/components/schemas/", schemaNamer)

	API := humachi.New(mux, config)

	h := handlers(repos, tokenHash, log)
	h.Health.SetupRoutes(API)
	h.Session.SetupRoutes(API)
	h.Order.SetupRoutes(API)
	h.Sale.SetupRoutes(API)
	h.Location.SetupRoutes(API)
	h.Catalog.SetupRoutes(API)

	return mux
}

func handlers(repos Repositories, tokenHash string, log *slog.Logger) *Handlers {
	authMW := auth.New(tokenHash, log)
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer()
	idem := idempotency.NewService(repos.Idempotency, log)

	middlewares.Add(loggerMW.Middleware())
	healthHandler := healthAPI.NewHandler(repos.Storage, log, middlewares.GetAllAndClear())

	middlewares.Add(authMW.Middleware())
	middlewares.Add(loggerMW.Middleware())
	sessionHandler := sessionAPI.NewHandler(log, middlewares.GetAllAndClear())

	orderService := order.NewService(repos.Orders, log)
	middlewares.Add(authMW.Middleware())
	middlewares.Add(loggerMW.Middleware())
	orderHandler := orderAPI.NewHandler(orderService, idem, log, middlewares.GetAllAndClear())

	saleService := sale.NewService(repos.Sales, log)
	middlewares.Add(authMW.Middleware())
	middlewares.Add(loggerMW.Middleware())
	saleHandler := saleAPI.NewHandler(saleService, idem, log, middlewares.GetAllAndClear())

	locationService := location.NewService(repos.Locations, log)
	middlewares.Add(authMW.Middleware())
	middlewares.Add(loggerMW.Middleware())
	locationHandler := locationAPI.NewHandler(locationService, idem, log, middlewares.GetAllAndClear())

	catalogService := catalog.NewService(repos.Catalog, log)
	middlewares.Add(authMW.Middleware())
	middlewares.Add(loggerMW.Middleware())
	catalogHandler := catalogAPI.NewHandler(catalogService, idem, log, middlewares.GetAllAndClear())

	return &Handlers{
		Health:   healthHandler,
		Session:  sessionHandler,
		Order:    orderHandler,
		Sale:     saleHandler,
		Location: locationHandler,
		Catalog:  catalogHandler,
	}
}

// schemaNamer добавляет к имени схемы имя пакета: order.Item и sale.Item не должны совпадать
func schemaNamer(t reflect.Type, hint string) string {
	name := huma.DefaultSchemaNamer(t, hint)

	base := t
	for base.Kind() == reflect.Pointer || base.Kind() == reflect.Slice ||
		base.Kind() == reflect.Array || base.Kind() == reflect.Map {
		base = base.Elem()
	}
	pkg := path.Base(base.PkgPath())
	if pkg == "" || pkg == "." || pkg == "/" {
		return name
	}
	return strings.ToUpper(pkg[:1]) + pkg[1:] + name
}
