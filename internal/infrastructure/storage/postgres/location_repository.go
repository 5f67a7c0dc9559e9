package postgres

import (
	"context"
	"fmt"

	"fieldsync/internal/domain/location"

	"github.com/jackc/pgx/v5/pgxpool"
)

type LocationRepository struct {
	pool *pgxpool.Pool
}

func NewLocationRepository(pool *pgxpool.Pool) *LocationRepository {
	return &LocationRepository{pool: pool}
}

func (r *LocationRepository) Create(ctx context.Context, p *location.Point) (int64, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO location_points (device_id, sample_id, latitude, longitude, accuracy, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		p.DeviceID, p.SampleID, p.Latitude, p.Longitude, p.Accuracy, p.RecordedAt).Scan(&p.ID)
	if err != nil {
		return 0, fmt.Errorf("insert location: %w", err)
	}
	return p.ID, nil
}
