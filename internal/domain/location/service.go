package location

import (
	"context"
	"fmt"

	"golang.org/x/exp/slog"
)

type Servicer interface {
	Record(ctx context.Context, deviceID string, req UploadRequest) (int64, error)
}

type Service struct {
	repo Repository
	log  *slog.Logger
}

func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With("component", "location_service"),
	}
}

func (s *Service) Record(ctx context.Context, deviceID string, req UploadRequest) (int64, error) {
	sample := Sample{Latitude: req.Latitude, Longitude: req.Longitude, Accuracy: req.Accuracy}
	if err := sample.Validate(); err != nil {
		return 0, err
	}

	id, err := s.repo.Create(ctx, &Point{
		DeviceID:   deviceID,
		SampleID:   req.SampleID,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		Accuracy:   req.Accuracy,
		RecordedAt: req.RecordedAt,
	})
	if err != nil {
		s.log.Error("failed to store location", "device_id", deviceID, "error", err)
		return 0, fmt.Errorf("store location: %w", err)
	}
	return id, nil
}
