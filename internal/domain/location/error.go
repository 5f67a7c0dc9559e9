package location

import (
	"errors"
)

var (
	ErrInvalidLatitude  = errors.New("latitude out of range")
	ErrInvalidLongitude = errors.New("longitude out of range")
	ErrInvalidAccuracy  = errors.New("accuracy must not be negative")
)
