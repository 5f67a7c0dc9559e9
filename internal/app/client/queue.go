package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fieldsync/internal/app/client/storage"
	"fieldsync/internal/domain/mutation"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

type sender interface {
	Send(ctx context.Context, method, endpoint string, payload []byte, idempotencyKey string) ([]byte, error)
}

// MutationQueue выполняет вызов сразу, если это возможно, а иначе
// сохраняет его и воспроизводит позже в порядке постановки
type MutationQueue struct {
	store       storage.Store
	remote      sender
	oracle      Oracle
	log         *slog.Logger
	maxAttempts int
	now         func() time.Time

	drainMu sync.Mutex
}

// DrainResult описывает итог одного прохода по очереди
type DrainResult struct {
	Drained  int  `json:"drained"`
	Rejected int  `json:"rejected"`
	Skipped  int  `json:"skipped"`
	Stopped  bool `json:"stopped"`
}

func NewMutationQueue(store storage.Store, remote sender, oracle Oracle, maxAttempts int, log *slog.Logger) *MutationQueue {
	return &MutationQueue{
		store:       store,
		remote:      remote,
		oracle:      oracle,
		log:         log.With("component", "mutation_queue"),
		maxAttempts: maxAttempts,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Execute пытается выполнить вызов. При отсутствии связи, сбое связи или
// непустой очереди вызов ставится в очередь и возвращается *DeferredError.
// Отказ сервера возвращается как есть и в очередь не попадает.
func (q *MutationQueue) Execute(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	m := &mutation.Pending{
		ID:         uuid.Must(uuid.NewV7()).String(),
		Method:     method,
		Endpoint:   endpoint,
		Payload:    payload,
		EnqueuedAt: q.now(),
	}

	if !q.oracle.IsOnline() {
		return nil, q.enqueue(ctx, m, ErrOffline)
	}

	// Живой вызов не должен обогнать отложенные: идущее воспроизведение
	// или непустая очередь означают постановку в конец
	if !q.drainMu.TryLock() {
		return nil, q.enqueue(ctx, m, ErrQueueBacklog)
	}
	defer q.drainMu.Unlock()

	backlog, err := q.hasBacklog(ctx)
	if err != nil {
		return nil, err
	}
	if backlog {
		return nil, q.enqueue(ctx, m, ErrQueueBacklog)
	}

	body, err := q.remote.Send(ctx, method, endpoint, payload, m.ID)
	if err == nil {
		return body, nil
	}
	if IsRetryable(err) {
		q.log.Info("Вызов отложен из-за проблем со связью", "endpoint", endpoint, "error", err)
		m.LastError = err.Error()
		return nil, q.enqueue(ctx, m, err)
	}
	return nil, err
}

func (q *MutationQueue) hasBacklog(ctx context.Context) (bool, error) {
	items, err := q.store.ListMutations(ctx)
	if err != nil {
		return false, fmt.Errorf("ошибка чтения очереди: %w", err)
	}
	for _, m := range items {
		if !m.Dead {
			return true, nil
		}
	}
	return false, nil
}

func (q *MutationQueue) enqueue(ctx context.Context, m *mutation.Pending, cause error) error {
	if err := q.store.EnqueueMutation(ctx, m); err != nil {
		return fmt.Errorf("ошибка постановки вызова в очередь: %w", err)
	}
	q.log.Debug("Вызов поставлен в очередь", "id", m.ID, "seq", m.Seq, "endpoint", m.Endpoint)
	return &DeferredError{MutationID: m.ID, Cause: cause}
}

// Drain воспроизводит очередь по порядку. Отклоненный элемент остается
// в очереди, проход продолжается. Сбой связи останавливает проход.
// Параллельные вызовы Drain выполняются последовательно.
func (q *MutationQueue) Drain(ctx context.Context) (DrainResult, error) {
	q.drainMu.Lock()
	defer q.drainMu.Unlock()

	var result DrainResult

	items, err := q.store.ListMutations(ctx)
	if err != nil {
		return result, fmt.Errorf("ошибка чтения очереди: %w", err)
	}

	for i := range items {
		m := &items[i]
		if m.Dead {
			result.Skipped++
			continue
		}
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if !q.oracle.IsOnline() {
			result.Stopped = true
			break
		}

		_, err := q.remote.Send(ctx, m.Method, m.Endpoint, m.Payload, m.ID)
		at := q.now()

		switch {
		case err == nil:
			if err := q.store.RemoveMutation(ctx, m.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
				return result, fmt.Errorf("ошибка удаления выполненного вызова: %w", err)
			}
			result.Drained++

		case IsRetryable(err):
			m.LastError = err.Error()
			m.LastAttemptAt = &at
			if uerr := q.store.UpdateMutation(ctx, m); uerr != nil {
				q.log.Warn("Не удалось обновить элемент очереди", "id", m.ID, "error", uerr)
			}
			q.log.Info("Воспроизведение очереди остановлено", "id", m.ID, "error", err)
			result.Stopped = true
			return result, nil

		default:
			m.Attempts++
			m.LastError = err.Error()
			m.LastAttemptAt = &at
			if q.maxAttempts > 0 && m.Attempts >= q.maxAttempts {
				m.Dead = true
				q.log.Error("Вызов исчерпал попытки и больше не воспроизводится",
					"id", m.ID, "endpoint", m.Endpoint, "attempts", m.Attempts, "error", err)
			} else {
				q.log.Warn("Сервер отклонил отложенный вызов", "id", m.ID, "endpoint", m.Endpoint, "error", err)
			}
			if uerr := q.store.UpdateMutation(ctx, m); uerr != nil {
				return result, fmt.Errorf("ошибка обновления элемента очереди: %w", uerr)
			}
			result.Rejected++
		}
	}

	return result, nil
}

// Pending возвращает все элементы очереди по порядку
func (q *MutationQueue) Pending(ctx context.Context) ([]mutation.Pending, error) {
	return q.store.ListMutations(ctx)
}

// Remove удаляет элемент очереди без воспроизведения
func (q *MutationQueue) Remove(ctx context.Context, id string) error {
	q.drainMu.Lock()
	defer q.drainMu.Unlock()

	if err := q.store.RemoveMutation(ctx, id); err != nil {
		return err
	}
	q.log.Warn("Элемент очереди удален вручную", "id", id)
	return nil
}
