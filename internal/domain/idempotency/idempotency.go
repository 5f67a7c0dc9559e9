package idempotency

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/exp/slog"
)

// Repository хранит соответствие ключа идемпотентности и созданного ресурса
type Repository interface {
	Lookup(ctx context.Context, scope, key string) (int64, bool, error)
	Save(ctx context.Context, scope, key string, id int64) error
}

type Servicer interface {
	Do(ctx context.Context, scope, key string, fn func(ctx context.Context) (int64, error)) (int64, bool, error)
}

type Service struct {
	repo Repository
	log  *slog.Logger
	mu   sync.Mutex
}

func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With("component", "idempotency"),
	}
}

// Do выполняет fn не более одного раза для пары (scope, key).
// Повторный вызов возвращает ранее созданный id и replayed == true.
// Пустой ключ отключает защиту.
func (s *Service) Do(ctx context.Context, scope, key string, fn func(ctx context.Context) (int64, error)) (int64, bool, error) {
	if key == "" {
		id, err := fn(ctx)
		return id, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, found, err := s.repo.Lookup(ctx, scope, key)
	if err != nil {
		return 0, false, fmt.Errorf("lookup idempotency key: %w", err)
	}
	if found {
		s.log.Info("idempotent replay", "scope", scope, "key", key, "id", id)
		return id, true, nil
	}

	id, err = fn(ctx)
	if err != nil {
		return 0, false, err
	}
	if err := s.repo.Save(ctx, scope, key, id); err != nil {
		s.log.Error("failed to save idempotency key", "scope", scope, "key", key, "error", err)
		return id, false, fmt.Errorf("save idempotency key: %w", err)
	}
	return id, false, nil
}
