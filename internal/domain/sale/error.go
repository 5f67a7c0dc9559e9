package sale

import (
	"errors"
)

var (
	ErrNoItems        = errors.New("sale must contain at least one item")
	ErrInvalidItem    = errors.New("invalid sale item")
	ErrInvalidPayment = errors.New("unsupported payment method")
)
