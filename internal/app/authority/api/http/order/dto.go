package order

import (
	"fieldsync/internal/domain/order"
)

type createInput struct {
	IdempotencyKey string `header:"Idempotency-Key" doc:"Ключ повторной доставки, для заказа равен local_id"`
	Body           order.Payload
}

type statusInput struct {
	ID             int64  `path:"id" example:"501" doc:"ID заказа на сервере"`
	IdempotencyKey string `header:"Idempotency-Key"`
	Body           order.StatusUpdate
}

type findInput struct {
	ID int64 `path:"id" example:"501" doc:"ID заказа на сервере"`
}

type output struct {
	Body response
}

type findOutput struct {
	Body *order.Order
}

type response struct {
	ID       int64  `json:"id"`
	Status   string `json:"status"`
	Replayed bool   `json:"replayed,omitempty"`
}
