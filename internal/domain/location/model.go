package location

import (
	"math"
	"time"
)

// MaxBatch ограничивает число точек за один проход выгрузки
const MaxBatch = 100

// Sample хранит точку геолокации торгового агента
type Sample struct {
	ID        string    `json:"id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Synced    bool      `json:"synced"`
}

func (s Sample) Validate() error {
	if !finite(s.Latitude) || s.Latitude < -90 || s.Latitude > 90 {
		return ErrInvalidLatitude
	}
	if !finite(s.Longitude) || s.Longitude < -180 || s.Longitude > 180 {
		return ErrInvalidLongitude
	}
	if !finite(s.Accuracy) || s.Accuracy < 0 {
		return ErrInvalidAccuracy
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// UploadRequest задает тело запроса на отправку одной точки
type UploadRequest struct {
	SampleID   string    `json:"sample_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Accuracy   float64   `json:"accuracy,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

func (s Sample) Upload() UploadRequest {
	return UploadRequest{
		SampleID:   s.ID,
		Latitude:   s.Latitude,
		Longitude:  s.Longitude,
		Accuracy:   s.Accuracy,
		RecordedAt: s.Timestamp,
	}
}

// Point хранит точку, принятую сервером
type Point struct {
	ID         int64     `json:"id"`
	DeviceID   string    `json:"device_id"`
	SampleID   string    `json:"sample_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Accuracy   float64   `json:"accuracy,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}
