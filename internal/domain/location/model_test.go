package location

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSample_Validate(t *testing.T) {
	tests := []struct {
		name    string
		sample  Sample
		wantErr error
	}{
		{name: "moscow", sample: Sample{Latitude: 55.75, Longitude: 37.62}},
		{name: "pole edge", sample: Sample{Latitude: 90, Longitude: -180}},
		{name: "latitude too big", sample: Sample{Latitude: 91}, wantErr: ErrInvalidLatitude},
		{name: "longitude too small", sample: Sample{Longitude: -180.5}, wantErr: ErrInvalidLongitude},
		{name: "negative accuracy", sample: Sample{Accuracy: -1}, wantErr: ErrInvalidAccuracy},
		{name: "nan latitude", sample: Sample{Latitude: math.NaN()}, wantErr: ErrInvalidLatitude},
		{name: "infinite longitude", sample: Sample{Longitude: math.Inf(1)}, wantErr: ErrInvalidLongitude},
		{name: "nan accuracy", sample: Sample{Accuracy: math.NaN()}, wantErr: ErrInvalidAccuracy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sample.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSample_Upload(t *testing.T) {
	ts := time.Date(2026, 5, 1, 8, 30, 0, 0, time.UTC)
	req := Sample{ID: "s1", Latitude: 1, Longitude: 2, Accuracy: 5, Timestamp: ts}.Upload()

	assert.Equal(t, "s1", req.SampleID)
	assert.Equal(t, ts, req.RecordedAt)
	assert.Equal(t, 5.0, req.Accuracy)
}
