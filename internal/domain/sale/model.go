package sale

import (
	"time"
)

type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
)

// Item описывает позицию продажи, цена в копейках
type Item struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
	UnitPrice int64 `json:"unit_price"`
}

type Sale struct {
	ID            int64         `json:"id"`
	DeviceID      string        `json:"device_id"`
	CustomerID    *int64        `json:"customer_id,omitempty"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Items         []Item        `json:"items"`
	Total         int64         `json:"total"`
	SoldAt        time.Time     `json:"sold_at"`
}
