package authority

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"fieldsync/internal/app/authority/api"
	"fieldsync/internal/app/authority/config"
	"fieldsync/internal/domain/catalog"
	"fieldsync/internal/infrastructure/storage/memory"
	"fieldsync/internal/infrastructure/storage/postgres"

	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	cfg     *config.Config
	log     *slog.Logger
	storage io.Closer
	router  *chi.Mux
}

func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	repos, closer, err := repositories(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return &App{
		cfg:     cfg,
		log:     log,
		storage: closer,
		router:  api.New(repos, cfg.Auth.TokenHash, log),
	}, nil
}

func repositories(ctx context.Context, cfg *config.Config, log *slog.Logger) (api.Repositories, io.Closer, error) {
	if cfg.UseMemory() {
		s := memory.New()
		s.Seed(demoProducts(), demoCustomers())
		log.Warn("DATABASE_URI is empty, using in-memory storage")
		return api.Repositories{
			Storage:     s,
			Orders:      memory.NewOrderRepository(s, log),
			Sales:       memory.NewSaleRepository(s),
			Locations:   memory.NewLocationRepository(s),
			Catalog:     memory.NewCatalogRepository(s),
			Idempotency: memory.NewIdempotencyRepository(s),
		}, s, nil
	}

	s, err := postgres.New(ctx, cfg.DB.DatabaseURI)
	if err != nil {
		return api.Repositories{}, nil, fmt.Errorf("open postgres: %w", err)
	}
	pool := s.Pool()
	return api.Repositories{
		Storage:     s,
		Orders:      postgres.NewOrderRepository(pool, log),
		Sales:       postgres.NewSaleRepository(pool),
		Locations:   postgres.NewLocationRepository(pool),
		Catalog:     postgres.NewCatalogRepository(pool),
		Idempotency: postgres.NewIdempotencyRepository(pool),
	}, s, nil
}

// Handler отдает корневой роутер
func (a *App) Handler() http.Handler {
	return a.router
}

// Run обслуживает запросы до отмены ctx
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Server.RunAddress,
		Handler:           a.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("authority started", slog.String("address", srv.Addr), slog.String("env", a.cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.log.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (a *App) Close() error {
	return a.storage.Close()
}

func demoProducts() []catalog.Product {
	return []catalog.Product{
		{Name: "Молоко 1л", SKU: "MLK-1", Category: "dairy", Price: 15000, Stock: 120, Unit: "шт", Active: true},
		{Name: "Кефир 0.5л", SKU: "KFR-1", Category: "dairy", Price: 9000, Stock: 60, Unit: "шт", Active: true},
		{Name: "Хлеб", SKU: "BRD-1", Category: "bakery", Price: 9900, Stock: 40, Unit: "шт", Active: true},
		{Name: "Батон", SKU: "BRD-2", Category: "bakery", Price: 7500, Stock: 0, Unit: "шт", Active: false},
	}
}

func demoCustomers() []catalog.Customer {
	return []catalog.Customer{
		{Name: "ООО Ромашка", Phone: "+7 900 000-00-42", Address: "ул. Ленина, 1"},
		{Name: "ИП Васильков", Phone: "+7 900 000-00-43"},
	}
}
