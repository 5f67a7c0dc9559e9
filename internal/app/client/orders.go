package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"fieldsync/internal/app/client/storage"
	"fieldsync/internal/domain/order"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

type orderRemote interface {
	CreateOrder(ctx context.Context, p order.Payload) (int64, error)
}

type mutationExecutor interface {
	Execute(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error)
}

// OrderResult содержит заказ и источник подтверждения
type OrderResult struct {
	Order  *order.LocalOrder `json:"order"`
	Source Source            `json:"source"`
}

// OrderSyncResult описывает итог прохода синхронизации заказов
type OrderSyncResult struct {
	Synced   int  `json:"synced"`
	Rejected int  `json:"rejected"`
	Skipped  int  `json:"skipped"`
	Stopped  bool `json:"stopped"`
}

// OrderManager создает заказы и доводит их до подтверждения сервером
type OrderManager struct {
	store  storage.Store
	remote orderRemote
	queue  mutationExecutor
	oracle Oracle
	log    *slog.Logger
	now    func() time.Time
	newID  func() string

	syncMu  sync.Mutex
	stateMu sync.Mutex
}

func NewOrderManager(store storage.Store, remote orderRemote, queue mutationExecutor, oracle Oracle, log *slog.Logger) *OrderManager {
	return &OrderManager{
		store:  store,
		remote: remote,
		queue:  queue,
		oracle: oracle,
		log:    log.With("component", "order_manager"),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.Must(uuid.NewV7()).String() },
	}
}

// CreateOrder сохраняет заказ локально и, если есть связь, сразу создает его на сервере.
// Отказ сервера возвращается ошибкой, заказ при этом не сохраняется.
func (m *OrderManager) CreateOrder(ctx context.Context, req order.CreateRequest) (*OrderResult, error) {
	o, err := order.NewLocal(req, m.newID(), m.now())
	if err != nil {
		return nil, err
	}

	source := SourceDeferred
	if m.oracle.IsOnline() {
		serverID, err := m.remote.CreateOrder(ctx, o.Payload())
		switch {
		case err == nil:
			at := m.now()
			o.ServerID = &serverID
			o.Synced = true
			o.SyncedAt = &at
			source = SourceLive
		case IsRetryable(err):
			m.log.Info("Заказ сохранен локально до появления связи", "local_id", o.LocalID, "error", err)
		default:
			return nil, fmt.Errorf("сервер отклонил заказ: %w", err)
		}
	}

	if err := m.store.InsertOrder(ctx, o); err != nil {
		if o.Synced {
			m.log.Error("Заказ создан на сервере, но не сохранен локально",
				"local_id", o.LocalID, "server_id", *o.ServerID, "error", err)
		}
		return nil, fmt.Errorf("ошибка сохранения заказа: %w", err)
	}

	m.log.Debug("Заказ создан", "local_id", o.LocalID, "source", source, "total", o.TotalAmount)
	return &OrderResult{Order: o, Source: source}, nil
}

// UpdateOrderStatus меняет статус заказа. Для еще не синхронизированного
// заказа изменение только локальное: статус уйдет вместе с заказом или
// догонит его отдельным вызовом, если заказ уже отправляется.
func (m *OrderManager) UpdateOrderStatus(ctx context.Context, localID string, status order.Status) (*OrderResult, error) {
	if !status.Valid() {
		return nil, order.ErrInvalidStatus
	}

	m.stateMu.Lock()
	o, err := m.store.GetOrder(ctx, localID)
	if err != nil {
		m.stateMu.Unlock()
		if errors.Is(err, storage.ErrNotFound) {
			return nil, order.ErrNotFound
		}
		return nil, err
	}

	if o.Status == status {
		m.stateMu.Unlock()
		return &OrderResult{Order: o, Source: SourceLive}, nil
	}
	if !o.Status.CanTransition(status) {
		m.stateMu.Unlock()
		return nil, fmt.Errorf("%w: %s -> %s", order.ErrInvalidTransition, o.Status, status)
	}

	if o.ServerID == nil {
		// Синхронизация заказа проверяет статус под тем же мьютексом
		defer m.stateMu.Unlock()
		if err := m.setLocalStatus(ctx, o, status); err != nil {
			return nil, err
		}
		return &OrderResult{Order: o, Source: SourceDeferred}, nil
	}
	m.stateMu.Unlock()

	source, err := m.pushStatus(ctx, *o.ServerID, status)
	if err != nil {
		return nil, err
	}
	if err := m.setLocalStatus(ctx, o, status); err != nil {
		return nil, err
	}
	return &OrderResult{Order: o, Source: source}, nil
}

func (m *OrderManager) setLocalStatus(ctx context.Context, o *order.LocalOrder, status order.Status) error {
	at := m.now()
	if err := m.store.UpdateOrderStatus(ctx, o.LocalID, status, at); err != nil {
		return fmt.Errorf("ошибка обновления статуса заказа: %w", err)
	}
	o.Status = status
	o.UpdatedAt = at
	return nil
}

// pushStatus отправляет статус через очередь: без связи вызов откладывается
func (m *OrderManager) pushStatus(ctx context.Context, serverID int64, status order.Status) (Source, error) {
	payload, err := json.Marshal(order.StatusUpdate{Status: status})
	if err != nil {
		return "", fmt.Errorf("ошибка маршалинга статуса: %w", err)
	}
	endpoint := "/api/v1/orders/" + strconv.FormatInt(serverID, 10) + "/status"
	_, err = m.queue.Execute(ctx, http.MethodPatch, endpoint, payload)
	switch {
	case err == nil:
		return SourceLive, nil
	case errors.Is(err, ErrDeferred):
		return SourceDeferred, nil
	default:
		return "", err
	}
}

// SyncOrders отправляет несинхронизированные заказы. Набор заказов фиксируется
// в начале прохода, каждый перечитывается перед отправкой.
func (m *OrderManager) SyncOrders(ctx context.Context) (OrderSyncResult, error) {
	m.syncMu.Lock()
	defer m.syncMu.Unlock()

	var result OrderSyncResult

	if !m.oracle.IsOnline() {
		return result, nil
	}

	pending, err := m.store.ListUnsyncedOrders(ctx)
	if err != nil {
		return result, fmt.Errorf("ошибка чтения несинхронизированных заказов: %w", err)
	}

	for _, snapshot := range pending {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if !m.oracle.IsOnline() {
			result.Stopped = true
			break
		}

		o, err := m.store.GetOrder(ctx, snapshot.LocalID)
		if err != nil {
			m.log.Warn("Заказ пропущен", "local_id", snapshot.LocalID, "error", err)
			result.Skipped++
			continue
		}
		if o.Synced {
			result.Skipped++
			continue
		}

		serverID, err := m.remote.CreateOrder(ctx, o.Payload())
		if err != nil {
			if IsRetryable(err) {
				m.log.Info("Синхронизация заказов остановлена", "local_id", o.LocalID, "error", err)
				result.Stopped = true
				break
			}
			m.log.Warn("Сервер отклонил заказ", "local_id", o.LocalID, "error", err)
			result.Rejected++
			continue
		}

		// Статус мог смениться, пока заказ был в пути
		m.stateMu.Lock()
		current, getErr := m.store.GetOrder(ctx, o.LocalID)
		err = m.store.MarkOrderSynced(ctx, o.LocalID, serverID, m.now())
		m.stateMu.Unlock()

		switch {
		case err == nil:
			result.Synced++
			if getErr == nil && current.Status != o.Status {
				m.log.Info("Статус изменился во время отправки заказа",
					"local_id", o.LocalID, "sent", o.Status, "current", current.Status)
				if _, perr := m.pushStatus(ctx, serverID, current.Status); perr != nil {
					m.log.Warn("Статус заказа не отправлен", "local_id", o.LocalID, "error", perr)
				}
			}
		case errors.Is(err, storage.ErrAlreadySynced):
			result.Skipped++
		default:
			return result, fmt.Errorf("ошибка отметки заказа %s: %w", o.LocalID, err)
		}
	}

	if result.Synced > 0 {
		m.log.Info("Заказы синхронизированы", "count", result.Synced)
	}
	return result, nil
}

func (m *OrderManager) ListOrders(ctx context.Context) ([]order.LocalOrder, error) {
	return m.store.ListOrders(ctx)
}

func (m *OrderManager) GetOrder(ctx context.Context, localID string) (*order.LocalOrder, error) {
	o, err := m.store.GetOrder(ctx, localID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, order.ErrNotFound
	}
	return o, err
}
