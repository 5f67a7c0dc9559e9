package order

import (
	"fmt"
	"time"
)

type ItemRequest struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
}

type CreateRequest struct {
	CustomerID   int64         `json:"customer_id"`
	CustomerName string        `json:"customer_name"`
	Notes        string        `json:"notes,omitempty"`
	Items        []ItemRequest `json:"items"`
}

func (r CreateRequest) Validate() error {
	if r.CustomerID <= 0 {
		return ErrInvalidCustomer
	}
	if len(r.Items) == 0 {
		return ErrNoItems
	}
	for i, it := range r.Items {
		if it.ProductID <= 0 {
			return fmt.Errorf("item %d: %w", i, ErrInvalidProduct)
		}
		if it.Quantity <= 0 {
			return fmt.Errorf("item %d: %w", i, ErrInvalidQuantity)
		}
		if it.UnitPrice < 0 {
			return fmt.Errorf("item %d: %w", i, ErrInvalidPrice)
		}
	}
	return nil
}

// NewLocal строит локальный заказ: снимок имен, подытоги и сумма
func NewLocal(req CreateRequest, localID string, now time.Time) (*LocalOrder, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(req.Items))
	var total int64
	for _, it := range req.Items {
		subtotal := int64(it.Quantity) * it.UnitPrice
		total += subtotal
		items = append(items, Item{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Subtotal:    subtotal,
		})
	}

	return &LocalOrder{
		LocalID:      localID,
		CustomerID:   req.CustomerID,
		CustomerName: req.CustomerName,
		Status:       StatusPending,
		TotalAmount:  total,
		Notes:        req.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
		Items:        items,
	}, nil
}

// Payload задает тело запроса на создание заказа
type Payload struct {
	LocalID      string    `json:"local_id"`
	CustomerID   int64     `json:"customer_id"`
	CustomerName string    `json:"customer_name"`
	Status       Status    `json:"status"`
	TotalAmount  int64     `json:"total_amount"`
	Notes        string    `json:"notes,omitempty"`
	Items        []Item    `json:"items"`
	CreatedAt    time.Time `json:"created_at"`
}

func (o *LocalOrder) Payload() Payload {
	return Payload{
		LocalID:      o.LocalID,
		CustomerID:   o.CustomerID,
		CustomerName: o.CustomerName,
		Status:       o.Status,
		TotalAmount:  o.TotalAmount,
		Notes:        o.Notes,
		Items:        o.Items,
		CreatedAt:    o.CreatedAt,
	}
}

type StatusUpdate struct {
	Status Status `json:"status"`
}
