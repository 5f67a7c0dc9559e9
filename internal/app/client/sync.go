package client

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"fieldsync/internal/domain/catalog"

	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// SyncError описывает ошибку одного этапа синхронизации
type SyncError struct {
	Operation string    `json:"operation"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// SyncStats накапливает статистику синхронизаций
type SyncStats struct {
	TotalSyncs       int       `json:"total_syncs"`
	LastSuccessful   time.Time `json:"last_successful"`
	LastFailed       time.Time `json:"last_failed"`
	TotalDrained     int       `json:"total_drained"`
	TotalOrders      int       `json:"total_orders"`
	TotalLocations   int       `json:"total_locations"`
	TotalErrors      int       `json:"total_errors"`
	AvgSyncDuration  float64   `json:"avg_sync_duration"`
	PendingMutations int       `json:"pending_mutations"`
}

// SyncResult описывает итог одного прохода SyncNow
type SyncResult struct {
	Success   bool               `json:"success"`
	Online    bool               `json:"online"`
	Mutations DrainResult        `json:"mutations"`
	Orders    OrderSyncResult    `json:"orders"`
	Locations LocationSyncResult `json:"locations"`
	Products  int                `json:"products_refreshed"`
	Customers int                `json:"customers_refreshed"`
	Errors    []SyncError        `json:"errors"`
	Duration  time.Duration      `json:"duration"`
	StartTime time.Time          `json:"start_time"`
	EndTime   time.Time          `json:"end_time"`
}

func (r *SyncResult) addError(op string, err error) {
	r.Errors = append(r.Errors, SyncError{
		Operation: op,
		Error:     err.Error(),
		Timestamp: time.Now().UTC(),
	})
}

// SyncService объединяет все точки синхронизации в один проход
type SyncService struct {
	queue     *MutationQueue
	orders    *OrderManager
	locations *LocationTracker
	products  *ReferenceCache[catalog.Product, catalog.ProductFilter]
	customers *ReferenceCache[catalog.Customer, catalog.CustomerFilter]
	oracle    Oracle
	log       *slog.Logger

	refreshCache bool
	statsPath    string

	group singleflight.Group
	mu    sync.RWMutex
	stats *SyncStats
}

// SyncOptions задает параметры SyncService
type SyncOptions struct {
	RefreshCache bool
	StatsDir     string
}

func NewSyncService(
	queue *MutationQueue,
	orders *OrderManager,
	locations *LocationTracker,
	products *ReferenceCache[catalog.Product, catalog.ProductFilter],
	customers *ReferenceCache[catalog.Customer, catalog.CustomerFilter],
	oracle Oracle,
	opts SyncOptions,
	log *slog.Logger,
) *SyncService {
	s := &SyncService{
		queue:        queue,
		orders:       orders,
		locations:    locations,
		products:     products,
		customers:    customers,
		oracle:       oracle,
		log:          log.With("component", "sync"),
		refreshCache: opts.RefreshCache,
		stats:        &SyncStats{},
	}
	if opts.StatsDir != "" {
		s.statsPath = filepath.Join(opts.StatsDir, "sync_stats.json")
		if stats, err := loadStats(s.statsPath); err == nil {
			s.stats = stats
		}
	}
	return s
}

// SyncNow выполняет полный проход: сначала очередь, затем заказы и точки.
// Перекрывающиеся вызовы получают результат одного прохода.
func (s *SyncService) SyncNow(ctx context.Context) (*SyncResult, error) {
	v, err, shared := s.group.Do("sync", func() (any, error) {
		return s.sync(ctx)
	})
	if shared {
		s.log.Debug("Результат синхронизации получен от параллельного прохода")
	}
	if v == nil {
		return nil, err
	}
	return v.(*SyncResult), err
}

func (s *SyncService) sync(ctx context.Context) (*SyncResult, error) {
	result := &SyncResult{
		StartTime: time.Now().UTC(),
		Online:    s.oracle.IsOnline(),
		Errors:    []SyncError{},
	}
	s.log.Debug("Начало синхронизации", "online", result.Online)

	// Очередь первой: отложенные вызовы старше всего остального
	drained, err := s.queue.Drain(ctx)
	result.Mutations = drained
	if err != nil {
		result.addError("drain", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := s.orders.SyncOrders(gctx)
		result.Orders = res
		if err != nil {
			return fmt.Errorf("orders: %w", err)
		}
		return nil
	})
	var locErr error
	g.Go(func() error {
		res, err := s.locations.SyncLocations(gctx)
		result.Locations = res
		locErr = err
		return nil
	})
	if err := g.Wait(); err != nil {
		result.addError("orders", err)
	}
	if locErr != nil {
		result.addError("locations", locErr)
	}

	if s.refreshCache && s.oracle.IsOnline() {
		s.refreshReference(ctx, result)
	}

	result.EndTime = time.Now().UTC()
	result.Duration = result.EndTime.Sub(result.StartTime)
	result.Success = len(result.Errors) == 0

	s.updateStats(ctx, result)

	s.log.Info("Синхронизация завершена",
		"drained", result.Mutations.Drained,
		"orders", result.Orders.Synced,
		"locations", result.Locations.Uploaded,
		"errors", len(result.Errors),
		"duration", result.Duration,
	)

	if !result.Success {
		return result, fmt.Errorf("синхронизация завершена с ошибками: %s", result.Errors[0].Error)
	}
	return result, nil
}

func (s *SyncService) refreshReference(ctx context.Context, result *SyncResult) {
	if res, err := s.products.Get(ctx, catalog.ProductFilter{}); err != nil {
		result.addError("products", err)
	} else if res.Source == SourceLive {
		result.Products = len(res.Items)
	}
	if res, err := s.customers.Get(ctx, catalog.CustomerFilter{}); err != nil {
		result.addError("customers", err)
	} else if res.Source == SourceLive {
		result.Customers = len(res.Items)
	}
}

func (s *SyncService) updateStats(ctx context.Context, result *SyncResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.TotalSyncs++
	if result.Success {
		s.stats.LastSuccessful = result.EndTime
	} else {
		s.stats.LastFailed = result.EndTime
	}
	s.stats.TotalDrained += result.Mutations.Drained
	s.stats.TotalOrders += result.Orders.Synced
	s.stats.TotalLocations += result.Locations.Uploaded
	s.stats.TotalErrors += len(result.Errors)

	if s.stats.TotalSyncs == 1 {
		s.stats.AvgSyncDuration = result.Duration.Seconds()
	} else {
		s.stats.AvgSyncDuration = (s.stats.AvgSyncDuration*float64(s.stats.TotalSyncs-1) +
			result.Duration.Seconds()) / float64(s.stats.TotalSyncs)
	}

	if pending, err := s.queue.Pending(ctx); err == nil {
		s.stats.PendingMutations = len(pending)
	}

	s.saveStats()
}

// StartAutoSync запускает периодическую синхронизацию до отмены контекста
func (s *SyncService) StartAutoSync(ctx context.Context, interval time.Duration) {
	s.log.Info("Запуск автоматической синхронизации", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Автоматическая синхронизация остановлена")
			return
		case <-ticker.C:
			if _, err := s.SyncNow(ctx); err != nil {
				s.log.Error("Ошибка автоматической синхронизации", "error", err)
			}
		}
	}
}

// GetStats возвращает копию статистики
func (s *SyncService) GetStats() *SyncStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statsCopy := *s.stats
	return &statsCopy
}

// ResetStats сбрасывает статистику синхронизации
func (s *SyncService) ResetStats() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats = &SyncStats{}
	s.saveStats()
}

func loadStats(path string) (*SyncStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var stats SyncStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("ошибка парсинга статистики: %w", err)
	}
	return &stats, nil
}

func (s *SyncService) saveStats() {
	if s.statsPath == "" {
		return
	}

	data, err := json.MarshalIndent(s.stats, "", "  ")
	if err != nil {
		s.log.Error("Ошибка сериализации статистики", "error", err)
		return
	}

	if err := os.WriteFile(s.statsPath, data, 0600); err != nil {
		s.log.Error("Ошибка записи статистики", "error", err)
	}
}
