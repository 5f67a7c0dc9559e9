package order

import (
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal сообщает, что из статуса нет переходов
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition проверяет допустимость перехода на стороне сервера
func (s Status) CanTransition(to Status) bool {
	if !to.Valid() {
		return false
	}
	if s == to {
		return true
	}
	switch s {
	case StatusPending:
		return to == StatusProcessing || to == StatusCompleted || to == StatusCancelled
	case StatusProcessing:
		return to == StatusCompleted || to == StatusCancelled
	}
	return false
}

// Item описывает позицию заказа. Цены в копейках.
type Item struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	Subtotal    int64  `json:"subtotal"`
}

// LocalOrder хранит заказ в локальном хранилище устройства.
// ServerID == nil тогда и только тогда, когда Synced == false.
type LocalOrder struct {
	LocalID      string     `json:"local_id"`
	ServerID     *int64     `json:"server_id,omitempty"`
	CustomerID   int64      `json:"customer_id"`
	CustomerName string     `json:"customer_name"`
	Status       Status     `json:"status"`
	TotalAmount  int64      `json:"total_amount"`
	Notes        string     `json:"notes,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Synced       bool       `json:"synced"`
	SyncedAt     *time.Time `json:"synced_at,omitempty"`
	Items        []Item     `json:"items"`
}

// Order хранит заказ на стороне сервера
type Order struct {
	ID           int64     `json:"id"`
	LocalID      string    `json:"local_id"`
	DeviceID     string    `json:"device_id"`
	CustomerID   int64     `json:"customer_id"`
	CustomerName string    `json:"customer_name"`
	Status       Status    `json:"status"`
	TotalAmount  int64     `json:"total_amount"`
	Notes        string    `json:"notes,omitempty"`
	Items        []Item    `json:"items"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
