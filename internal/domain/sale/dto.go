package sale

import (
	"time"
)

type CreateRequest struct {
	CustomerID    *int64        `json:"customer_id,omitempty"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Items         []Item        `json:"items"`
	SoldAt        time.Time     `json:"sold_at"`
}

func (r CreateRequest) Validate() error {
	if r.PaymentMethod != PaymentCash && r.PaymentMethod != PaymentCard {
		return ErrInvalidPayment
	}
	if len(r.Items) == 0 {
		return ErrNoItems
	}
	for _, it := range r.Items {
		if it.ProductID <= 0 || it.Quantity <= 0 || it.UnitPrice < 0 {
			return ErrInvalidItem
		}
	}
	return nil
}

func (r CreateRequest) Total() int64 {
	var total int64
	for _, it := range r.Items {
		total += int64(it.Quantity) * it.UnitPrice
	}
	return total
}
