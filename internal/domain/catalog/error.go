package catalog

import (
	"errors"
)

var (
	ErrEmptyName    = errors.New("customer name is required")
	ErrInvalidEmail = errors.New("invalid email")
)
