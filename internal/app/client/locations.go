package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fieldsync/internal/app/client/storage"
	"fieldsync/internal/domain/location"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

type locationRemote interface {
	UploadLocation(ctx context.Context, req location.UploadRequest) (int64, error)
}

// Position хранит показание источника координат
type Position struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
}

// PositionProvider отдает текущие координаты устройства
type PositionProvider interface {
	Position(ctx context.Context) (Position, error)
}

// PositionFunc позволяет использовать функцию как PositionProvider
type PositionFunc func(ctx context.Context) (Position, error)

func (f PositionFunc) Position(ctx context.Context) (Position, error) {
	return f(ctx)
}

// LocationSyncResult описывает итог выгрузки одной пачки точек
type LocationSyncResult struct {
	Uploaded int `json:"uploaded"`
	Failed   int `json:"failed"`
}

// LocationTracker записывает точки маршрута и выгружает их пачками
type LocationTracker struct {
	store     storage.Store
	remote    locationRemote
	oracle    Oracle
	log       *slog.Logger
	batchSize int
	now       func() time.Time

	syncMu sync.Mutex
}

func NewLocationTracker(store storage.Store, remote locationRemote, oracle Oracle, batchSize int, log *slog.Logger) *LocationTracker {
	if batchSize <= 0 || batchSize > location.MaxBatch {
		batchSize = location.MaxBatch
	}
	return &LocationTracker{
		store:     store,
		remote:    remote,
		oracle:    oracle,
		log:       log.With("component", "location_tracker"),
		batchSize: batchSize,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RecordLocation сохраняет точку независимо от состояния связи
func (t *LocationTracker) RecordLocation(ctx context.Context, lat, lon, accuracy float64) (*location.Sample, error) {
	s := location.Sample{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Latitude:  lat,
		Longitude: lon,
		Accuracy:  accuracy,
		Timestamp: t.now(),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := t.store.InsertLocation(ctx, s); err != nil {
		return nil, fmt.Errorf("ошибка сохранения геопозиции: %w", err)
	}
	return &s, nil
}

// Run снимает координаты с заданным интервалом до отмены контекста
func (t *LocationTracker) Run(ctx context.Context, provider PositionProvider, interval time.Duration) {
	t.log.Info("Запуск трекинга геопозиции", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.log.Info("Трекинг геопозиции остановлен")
			return
		case <-ticker.C:
			pos, err := provider.Position(ctx)
			if err != nil {
				t.log.Warn("Не удалось получить координаты", "error", err)
				continue
			}
			if _, err := t.RecordLocation(ctx, pos.Latitude, pos.Longitude, pos.Accuracy); err != nil {
				t.log.Warn("Точка не записана", "error", err)
			}
		}
	}
}

// maxTransportFailures подряд без ответа сервера прерывают проход
const maxTransportFailures = 3

// isTransportFailure: запрос не дошел до сервера или ответ не получен
func isTransportFailure(err error) bool {
	var connErr *ConnectivityError
	return errors.As(err, &connErr) && connErr.Status == 0
}

// SyncLocations выгружает до batchSize самых старых точек по одной.
// Ошибка по одной точке не мешает отправке следующих; проход прерывается
// только после maxTransportFailures подряд сетевых сбоев.
func (t *LocationTracker) SyncLocations(ctx context.Context) (LocationSyncResult, error) {
	t.syncMu.Lock()
	defer t.syncMu.Unlock()

	var result LocationSyncResult

	if !t.oracle.IsOnline() {
		return result, nil
	}

	samples, err := t.store.ListUnsyncedLocations(ctx, t.batchSize)
	if err != nil {
		return result, fmt.Errorf("ошибка чтения геопозиций: %w", err)
	}

	transportFailures := 0
	for _, s := range samples {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if _, err := t.remote.UploadLocation(ctx, s.Upload()); err != nil {
			t.log.Debug("Точка не отправлена", "id", s.ID, "error", err)
			result.Failed++
			if isTransportFailure(err) {
				transportFailures++
				if transportFailures >= maxTransportFailures {
					t.log.Info("Сервер не отвечает, выгрузка прервана", "left", len(samples)-result.Uploaded-result.Failed)
					break
				}
			} else {
				transportFailures = 0
			}
			continue
		}
		transportFailures = 0
		if err := t.store.MarkLocationSynced(ctx, s.ID); err != nil {
			t.log.Warn("Не удалось отметить точку", "id", s.ID, "error", err)
			result.Failed++
			continue
		}
		result.Uploaded++
	}

	if result.Uploaded > 0 || result.Failed > 0 {
		t.log.Info("Выгрузка геопозиций", "uploaded", result.Uploaded, "failed", result.Failed)
	}
	return result, nil
}
