package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/slog"
)

type Servicer interface {
	Create(ctx context.Context, deviceID string, p Payload) (int64, error)
	Get(ctx context.Context, id int64) (*Order, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
}

type Service struct {
	repo Repository
	log  *slog.Logger
	now  func() time.Time
}

func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With("component", "order_service"),
		now:  time.Now,
	}
}

func (s *Service) Create(ctx context.Context, deviceID string, p Payload) (int64, error) {
	if p.CustomerID <= 0 {
		return 0, ErrInvalidCustomer
	}
	if len(p.Items) == 0 {
		return 0, ErrNoItems
	}
	if p.Status == "" {
		p.Status = StatusPending
	}
	if !p.Status.Valid() {
		return 0, ErrInvalidStatus
	}

	var total int64
	for _, it := range p.Items {
		if it.Quantity <= 0 {
			return 0, ErrInvalidQuantity
		}
		if it.UnitPrice < 0 {
			return 0, ErrInvalidPrice
		}
		total += int64(it.Quantity) * it.UnitPrice
	}
	if total != p.TotalAmount {
		return 0, ErrTotalMismatch
	}

	now := s.now()
	o := &Order{
		LocalID:      p.LocalID,
		DeviceID:     deviceID,
		CustomerID:   p.CustomerID,
		CustomerName: p.CustomerName,
		Status:       p.Status,
		TotalAmount:  p.TotalAmount,
		Notes:        p.Notes,
		Items:        p.Items,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    now,
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}

	id, err := s.repo.Create(ctx, o)
	if err != nil {
		s.log.Error("failed to create order", "local_id", p.LocalID, "error", err)
		return 0, fmt.Errorf("create order: %w", err)
	}

	s.log.Info("order created", "id", id, "local_id", p.LocalID, "device_id", deviceID)
	return id, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id int64, status Status) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}

	o, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if o.Status == status {
		return nil
	}
	if !o.Status.CanTransition(status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, status)
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		s.log.Error("failed to update order status", "id", id, "error", err)
		return fmt.Errorf("update order status: %w", err)
	}

	s.log.Info("order status updated", "id", id, "from", o.Status, "to", status)
	return nil
}
