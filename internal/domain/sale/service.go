package sale

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/exp/slog"
)

type Servicer interface {
	Create(ctx context.Context, deviceID string, req CreateRequest) (int64, error)
}

type Service struct {
	repo Repository
	log  *slog.Logger
}

func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With("component", "sale_service"),
	}
}

func (s *Service) Create(ctx context.Context, deviceID string, req CreateRequest) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	soldAt := req.SoldAt
	if soldAt.IsZero() {
		soldAt = time.Now()
	}

	id, err := s.repo.Create(ctx, &Sale{
		DeviceID:      deviceID,
		CustomerID:    req.CustomerID,
		PaymentMethod: req.PaymentMethod,
		Items:         req.Items,
		Total:         req.Total(),
		SoldAt:        soldAt,
	})
	if err != nil {
		s.log.Error("failed to create sale", "device_id", deviceID, "error", err)
		return 0, fmt.Errorf("create sale: %w", err)
	}
	return id, nil
}
