package order

import (
	"errors"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrNoItems           = errors.New("order must contain at least one item")
	ErrInvalidCustomer   = errors.New("invalid customer id")
	ErrInvalidProduct    = errors.New("invalid product id")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInvalidPrice      = errors.New("unit price must not be negative")
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrTotalMismatch     = errors.New("total amount does not match items")
)
